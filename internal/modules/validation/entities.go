package validation

import (
	"github.com/mkrallis/swapbook/internal/domain"
	"github.com/mkrallis/swapbook/internal/modules/refdata"
)

// ValidateEntityStatus checks that every resolved reference is still
// active. Nil entities are skipped here; existence is the concern of
// ValidateEntityReferences. It stops at the first inactive entity.
func ValidateEntityStatus(user *refdata.User, book *refdata.Book, counterparty *refdata.Counterparty) []string {
	if user != nil && !user.Active {
		return []string{"ApplicationUser must be active"}
	}
	if book != nil && !book.Active {
		return []string{"Book entity must be active"}
	}
	if counterparty != nil && !counterparty.Active {
		return []string{"Counterparty entity must be active"}
	}
	return nil
}

// ValidateEntityReferences checks that a trade names both a book and a
// counterparty.
func ValidateEntityReferences(trade *domain.Trade) []string {
	hasBook := trade.BookID > 0 || trade.BookName != ""
	hasCounterparty := trade.CounterpartyID > 0 || trade.CounterpartyName != ""

	switch {
	case !hasBook && !hasCounterparty:
		return []string{"Missing both book and counterparty reference"}
	case !hasBook:
		return []string{"Missing book reference"}
	case !hasCounterparty:
		return []string{"Missing counterparty reference"}
	}
	return nil
}
