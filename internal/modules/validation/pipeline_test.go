package validation

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrallis/swapbook/internal/domain"
	"github.com/mkrallis/swapbook/internal/modules/refdata"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func ratePtr(s string) *decimal.Decimal {
	r := decimal.RequireFromString(s)
	return &r
}

// validTrade builds a trade that passes the full pipeline.
func validTrade(t *testing.T) *domain.Trade {
	t.Helper()
	now := time.Now().UTC()
	start := now.AddDate(0, 0, 2)
	maturity := now.AddDate(1, 0, 0)
	return &domain.Trade{
		TradeDate:        &now,
		StartDate:        &start,
		MaturityDate:     &maturity,
		BookName:         "RATES_DESK",
		CounterpartyName: "BigBank",
		Legs: []domain.TradeLeg{
			{
				LegNo:        1,
				Notional:     decimal.NewFromInt(10_000_000),
				Rate:         ratePtr("3.5"),
				LegType:      domain.LegTypeFixed,
				PayReceive:   domain.PayFlag,
				MaturityDate: &maturity,
			},
			{
				LegNo:        2,
				Notional:     decimal.NewFromInt(10_000_000),
				LegType:      domain.LegTypeFloating,
				PayReceive:   domain.ReceiveFlag,
				IndexName:    "SONIA",
				MaturityDate: &maturity,
			},
		},
	}
}

func testEngine() *Engine {
	return NewEngine(zerolog.New(nil).Level(zerolog.Disabled))
}

func TestValidate_CleanTradePasses(t *testing.T) {
	err := testEngine().Validate(validTrade(t), References{}, "")
	assert.NoError(t, err)
}

func TestValidate_MaturityBeforeStart(t *testing.T) {
	trade := validTrade(t)
	trade.MaturityDate = date(2020, time.January, 1)

	err := testEngine().Validate(trade, References{}, "")
	require.Error(t, err)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "Maturity date cannot be before start date")
}

func TestValidate_StartBeforeTradeDate(t *testing.T) {
	trade := validTrade(t)
	earlier := trade.TradeDate.AddDate(0, 0, -5)
	trade.StartDate = &earlier

	err := testEngine().Validate(trade, References{}, "")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "Start date cannot be before trade date")
}

func TestValidate_DateRequirements(t *testing.T) {
	trade := validTrade(t)
	trade.TradeDate = nil
	trade.StartDate = nil
	trade.MaturityDate = nil

	err := testEngine().Validate(trade, References{}, "")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "Trade date is required")
	assert.Contains(t, verr.Errors, "Start date is required")
	assert.Contains(t, verr.Errors, "Maturity date is required")

	// Without legs only the trade date is mandatory.
	trade.Legs = nil
	err = testEngine().Validate(trade, References{}, "")
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "Trade date is required")
	assert.NotContains(t, verr.Errors, "Start date is required")
	assert.NotContains(t, verr.Errors, "Maturity date is required")
}

func TestValidate_StaleTradeDate(t *testing.T) {
	trade := validTrade(t)
	old := time.Now().UTC().AddDate(0, 0, -31)
	trade.TradeDate = &old

	err := testEngine().Validate(trade, References{}, "")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "Trade date cannot be more than 30 days in the past")
}

func TestValidate_LegCount(t *testing.T) {
	trade := validTrade(t)
	trade.Legs = trade.Legs[:1]

	err := testEngine().Validate(trade, References{}, "")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "Trade must have at least two legs")
}

func TestValidate_LegMaturityRules(t *testing.T) {
	trade := validTrade(t)
	trade.Legs[1].MaturityDate = nil

	err := testEngine().Validate(trade, References{}, "")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "Both legs must have a maturity date defined")

	trade = validTrade(t)
	trade.Legs[1].MaturityDate = date(2030, time.June, 1)

	err = testEngine().Validate(trade, References{}, "")
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "Both legs must have identical maturity dates")
}

func TestValidate_PayReceiveRules(t *testing.T) {
	trade := validTrade(t)
	trade.Legs[1].PayReceive = ""

	err := testEngine().Validate(trade, References{}, "")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "Both legs must have a pay/receive flag defined")

	trade = validTrade(t)
	trade.Legs[1].PayReceive = domain.PayFlag

	err = testEngine().Validate(trade, References{}, "")
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "Legs must have opposite pay/receive flags")
}

func TestValidate_FloatingLegNeedsIndex(t *testing.T) {
	trade := validTrade(t)
	trade.Legs[1].IndexName = "  "

	err := testEngine().Validate(trade, References{}, "")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "Leg 2 is floating but does not specify an index")
}

func TestValidate_MissingReferences(t *testing.T) {
	trade := validTrade(t)
	trade.BookName = ""
	trade.CounterpartyName = ""

	err := testEngine().Validate(trade, References{}, "")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "Missing both book and counterparty reference")

	trade = validTrade(t)
	trade.BookName = ""
	err = testEngine().Validate(trade, References{}, "")
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "Missing book reference")
}

func TestValidate_InactiveEntities(t *testing.T) {
	trade := validTrade(t)
	refs := References{
		Book: &refdata.Book{ID: 1, BookName: "RATES_DESK", Active: false},
	}

	err := testEngine().Validate(trade, refs, "")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "Book entity must be active")
}

func TestValidate_AccumulatesAllFailures(t *testing.T) {
	trade := validTrade(t)
	trade.MaturityDate = date(2020, time.January, 1)
	trade.BookName = ""

	err := testEngine().Validate(trade, References{}, "")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.GreaterOrEqual(t, len(verr.Errors), 2, "All failures should be reported together")
}

func TestValidateLegRate_FixedBounds(t *testing.T) {
	cases := []struct {
		name string
		rate *decimal.Decimal
		ok   bool
	}{
		{"nil rate fails", nil, false},
		{"zero fails", ratePtr("0"), false},
		{"negative fails", ratePtr("-1"), false},
		{"plain rate passes", ratePtr("3.5"), true},
		{"at cap passes", ratePtr("100"), true},
		{"over cap fails", ratePtr("100.01"), false},
		{"four decimals passes", ratePtr("3.1234"), true},
		{"five decimals fails", ratePtr("3.12345"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			leg := &domain.TradeLeg{LegType: domain.LegTypeFixed, Rate: tc.rate}
			assert.Equal(t, tc.ok, ValidateLegRate(leg))
		})
	}
}

func TestValidateLegRate_FloatingIsLax(t *testing.T) {
	leg := &domain.TradeLeg{LegType: domain.LegTypeFloating}
	assert.True(t, ValidateLegRate(leg))

	leg.Rate = ratePtr("0")
	assert.True(t, ValidateLegRate(leg))
}
