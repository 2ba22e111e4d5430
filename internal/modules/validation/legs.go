package validation

import (
	"strings"

	"github.com/mkrallis/swapbook/internal/domain"
	"github.com/shopspring/decimal"
)

// maxFixedRate caps a fixed rate at 100 percentage points.
var maxFixedRate = decimal.NewFromInt(100)

// ValidateLegPairing checks the structural rules that tie the two legs of
// a swap together. It stops at the first failure so later checks do not
// run on malformed input.
func ValidateLegPairing(legs []domain.TradeLeg) []string {
	if len(legs) < 2 {
		return []string{"Trade must have at least two legs"}
	}

	leg1, leg2 := &legs[0], &legs[1]

	if leg1.MaturityDate == nil || leg2.MaturityDate == nil {
		return []string{"Both legs must have a maturity date defined"}
	}
	if !leg1.MaturityDate.Equal(*leg2.MaturityDate) {
		return []string{"Both legs must have identical maturity dates"}
	}
	return nil
}

// ValidatePayReceive checks that both legs carry flags and that they
// point in opposite directions.
func ValidatePayReceive(legs []domain.TradeLeg) []string {
	if len(legs) < 2 {
		return []string{"Trade must have at least two legs"}
	}

	leg1, leg2 := &legs[0], &legs[1]

	if leg1.PayReceive == "" || leg2.PayReceive == "" {
		return []string{"Both legs must have a pay/receive flag defined"}
	}
	if strings.EqualFold(leg1.PayReceive, leg2.PayReceive) {
		return []string{"Legs must have opposite pay/receive flags"}
	}
	return nil
}

// ValidateFloatingIndex reports whether a floating leg names its index.
// Non-floating legs always pass.
func ValidateFloatingIndex(leg *domain.TradeLeg) bool {
	if leg == nil {
		return false
	}
	if leg.IsFloating() {
		return strings.TrimSpace(leg.IndexName) != ""
	}
	return true
}

// ValidateLegRate checks rate sanity per leg type. A fixed leg needs a
// positive rate no greater than 100 with at most four decimal places.
// Floating legs are lax: nil or any set rate passes, since the projected
// rate comes from the index.
func ValidateLegRate(leg *domain.TradeLeg) bool {
	if leg == nil {
		return false
	}

	switch {
	case leg.IsFixed():
		if leg.Rate == nil {
			return false
		}
		if !leg.Rate.IsPositive() {
			return false
		}
		if leg.Rate.GreaterThan(maxFixedRate) {
			return false
		}
		if leg.Rate.Exponent() < -4 {
			return false
		}
		return true

	case leg.IsFloating():
		return true

	default:
		return leg.Rate != nil && !leg.Rate.IsNegative()
	}
}
