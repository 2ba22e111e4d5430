// Package cashflows projects the payment schedule of a trade leg between
// its start and maturity dates.
package cashflows

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mkrallis/swapbook/internal/domain"
)

// defaultScheduleMonths applies when a leg carries no schedule at all.
// Quarterly is the desk convention.
const defaultScheduleMonths = 3

var (
	decimalOne    = decimal.NewFromInt(1)
	decimalTwelve = decimal.NewFromInt(12)
	oneHundred    = decimal.NewFromInt(100)
)

// Generator builds cashflow schedules. StubAtMaturity forces a final
// payment onto the maturity date when the regular cycle leaves a gap.
type Generator struct {
	stubAtMaturity bool
	log            zerolog.Logger
}

// NewGenerator creates a cashflow generator.
func NewGenerator(stubAtMaturity bool, log zerolog.Logger) *Generator {
	return &Generator{
		stubAtMaturity: stubAtMaturity,
		log:            log.With().Str("component", "cashflows").Logger(),
	}
}

// Generate projects the cashflows for one leg. Dates run from startDate
// plus one interval up to and including maturityDate; each flow carries
// the leg's rate, pay/receive flag and payment convention.
func (g *Generator) Generate(leg *domain.TradeLeg, startDate, maturityDate time.Time) ([]domain.Cashflow, error) {
	if leg == nil {
		return nil, fmt.Errorf("cannot generate cashflows for a nil leg")
	}

	months, err := ParseSchedule(leg.Schedule)
	if err != nil {
		return nil, err
	}

	dates := paymentDates(startDate, maturityDate, months)
	if g.stubAtMaturity && (len(dates) == 0 || !dates[len(dates)-1].Equal(maturityDate)) {
		dates = append(dates, maturityDate)
	}

	value := paymentValue(leg, months)
	rate := decimal.Zero
	if leg.Rate != nil {
		rate = *leg.Rate
	}

	flows := make([]domain.Cashflow, 0, len(dates))
	for _, d := range dates {
		flows = append(flows, domain.Cashflow{
			ValueDate:  d,
			Value:      value,
			Rate:       rate,
			PayReceive: leg.PayReceive,
			PaymentBDC: leg.PaymentBDC,
		})
	}

	g.log.Debug().
		Int("legNo", leg.LegNo).
		Int("count", len(flows)).
		Str("schedule", leg.Schedule).
		Msg("Generated cashflows")
	return flows, nil
}

// ParseSchedule resolves a payment frequency descriptor to a month
// interval. Named frequencies and the "<n>M" form are accepted; an empty
// schedule defaults to quarterly, anything else is a hard failure.
func ParseSchedule(schedule string) (int, error) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		return defaultScheduleMonths, nil
	}

	switch strings.ToLower(schedule) {
	case "monthly":
		return 1, nil
	case "quarterly":
		return 3, nil
	case "semi-annually", "semiannually", "half-yearly":
		return 6, nil
	case "annually", "yearly":
		return 12, nil
	}

	if strings.HasSuffix(schedule, "M") || strings.HasSuffix(schedule, "m") {
		n, err := strconv.Atoi(schedule[:len(schedule)-1])
		if err == nil && n > 0 {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", domain.ErrInvalidSchedule, schedule)
}

// paymentDates walks from startDate in interval-month steps, collecting
// every date up to and including maturityDate. The final stub is not
// forced onto maturity here.
func paymentDates(startDate, maturityDate time.Time, months int) []time.Time {
	var dates []time.Time
	for d := startDate.AddDate(0, months, 0); !d.After(maturityDate); d = d.AddDate(0, months, 0) {
		dates = append(dates, d)
	}
	return dates
}

// paymentValue computes one period's payment.
//
// Fixed legs (and floating legs given a concrete rate) pay
// notional x rate x months/12, rounded half-to-even to 2 places. A raw
// rate above 1 is read as percentage points and divided by 100; this
// heuristic guards against a historical 100x miscalculation and must not
// be changed without migrating stored rates.
func paymentValue(leg *domain.TradeLeg, months int) decimal.Decimal {
	zero := decimal.Zero.Round(2)

	switch {
	case leg.IsFixed():
		if leg.Rate == nil {
			return zero
		}
		return periodValue(leg.Notional, *leg.Rate, months)

	case leg.IsFloating():
		if leg.Rate == nil || leg.Rate.IsZero() {
			return zero
		}
		return periodValue(leg.Notional, *leg.Rate, months)

	default:
		return zero
	}
}

func periodValue(notional, rawRate decimal.Decimal, months int) decimal.Decimal {
	rate := rawRate
	if rawRate.GreaterThan(decimalOne) {
		rate = rawRate.Div(oneHundred)
	}
	yearFraction := decimal.NewFromInt(int64(months)).DivRound(decimalTwelve, 10)
	return notional.Mul(rate).Mul(yearFraction).RoundBank(2)
}
