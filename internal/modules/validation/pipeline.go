// Package validation implements the business-rule checks a trade must
// pass before it is booked or amended: date ordering, leg economics,
// entity status and settlement instruction hygiene. Each validator
// returns its own list of messages; the pipeline concatenates them and
// decides pass or fail.
package validation

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mkrallis/swapbook/internal/domain"
	"github.com/mkrallis/swapbook/internal/modules/refdata"
)

// Engine runs the full business-rule pipeline over a trade. Validators
// are independent; the engine folds their messages into one list so the
// caller gets all failures in a single pass instead of fixing them one
// at a time.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates a validation engine.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log.With().Str("component", "validation").Logger()}
}

// References carries the resolved refdata entities for status checks.
// Nil fields are skipped.
type References struct {
	Trader       *refdata.User
	Book         *refdata.Book
	Counterparty *refdata.Counterparty
}

// Validate runs every rule and returns a ValidationError listing all
// failures, or nil when the trade is clean.
func (e *Engine) Validate(trade *domain.Trade, refs References, settlementInstructions string) error {
	var errs []string

	errs = append(errs, ValidateDates(trade)...)
	errs = append(errs, ValidateEntityReferences(trade)...)
	errs = append(errs, ValidateEntityStatus(refs.Trader, refs.Book, refs.Counterparty)...)

	if pairing := ValidateLegPairing(trade.Legs); len(pairing) > 0 {
		errs = append(errs, pairing...)
	} else {
		errs = append(errs, ValidatePayReceive(trade.Legs)...)
		for i := range trade.Legs {
			leg := &trade.Legs[i]
			if !ValidateFloatingIndex(leg) {
				errs = append(errs, fmt.Sprintf("Leg %d is floating but does not specify an index", i+1))
			}
			if !ValidateLegRate(leg) {
				errs = append(errs, fmt.Sprintf("Leg %d has an invalid rate for its leg type", i+1))
			}
		}
	}

	errs = append(errs, ValidateSettlementInstructions(settlementInstructions)...)

	if len(errs) > 0 {
		e.log.Debug().Strs("errors", errs).Msg("Trade failed validation")
		return domain.NewValidationError(errs)
	}
	return nil
}
