package validation

import (
	"time"

	"github.com/mkrallis/swapbook/internal/domain"
)

// maxTradeAgeDays is the oldest backdated trade the desk accepts.
const maxTradeAgeDays = 30

// ValidateDates checks trade-level date presence, ordering and
// staleness. The trade date is always required; start and maturity
// dates only matter once legs are supplied.
func ValidateDates(trade *domain.Trade) []string {
	var errs []string

	if trade.TradeDate == nil {
		errs = append(errs, "Trade date is required")
	}
	if len(trade.Legs) > 0 {
		if trade.StartDate == nil {
			errs = append(errs, "Start date is required")
		}
		if trade.MaturityDate == nil {
			errs = append(errs, "Maturity date is required")
		}
	}

	if trade.TradeDate != nil && trade.StartDate != nil && trade.MaturityDate != nil {
		if trade.MaturityDate.Before(*trade.StartDate) || trade.StartDate.Before(*trade.TradeDate) {
			errs = append(errs, "Maturity date cannot be before start date")
		}
		if trade.StartDate.Before(*trade.TradeDate) {
			errs = append(errs, "Start date cannot be before trade date")
		}
	}

	if trade.TradeDate != nil && time.Since(*trade.TradeDate) > maxTradeAgeDays*24*time.Hour {
		errs = append(errs, "Trade date cannot be more than 30 days in the past")
	}
	return errs
}
