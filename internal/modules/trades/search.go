package trades

import (
	"fmt"
	"strings"
	"time"

	"github.com/mkrallis/swapbook/internal/domain"
	"github.com/mkrallis/swapbook/internal/modules/query"
)

// SearchCriteria is the structured search form. All fields are optional
// and combine with AND; string matches are case-insensitive substring
// matches, dates bound the trade date inclusively.
type SearchCriteria struct {
	Counterparty string     `json:"counterparty,omitempty"`
	Book         string     `json:"book,omitempty"`
	Trader       string     `json:"trader,omitempty"`
	Status       string     `json:"status,omitempty"`
	StartDate    *time.Time `json:"startDate,omitempty"`
	EndDate      *time.Time `json:"endDate,omitempty"`
}

// Search filters the caller's visible active trades by structured
// criteria.
func (s *Service) Search(ctx domain.AuthorizationContext, criteria SearchCriteria) ([]domain.Trade, error) {
	visible, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]domain.Trade, 0, len(visible))
	for _, t := range visible {
		if criteria.matches(&t) {
			matched = append(matched, t)
		}
	}
	return matched, nil
}

// SearchRSQL filters the caller's visible active trades by an RSQL
// expression, e.g. `status==LIVE;counterparty.name==*bank*`.
func (s *Service) SearchRSQL(ctx domain.AuthorizationContext, expression string) ([]domain.Trade, error) {
	predicate, err := query.ParseAndTranslate(expression)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidQuery, err)
	}

	visible, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]domain.Trade, 0, len(visible))
	for _, t := range visible {
		if predicate(&t) {
			matched = append(matched, t)
		}
	}
	return matched, nil
}

func (c SearchCriteria) matches(t *domain.Trade) bool {
	if !containsFold(t.CounterpartyName, c.Counterparty) {
		return false
	}
	if !containsFold(t.BookName, c.Book) {
		return false
	}
	if !containsFold(t.TraderLogin, c.Trader) {
		return false
	}
	if c.Status != "" && !strings.EqualFold(t.Status, c.Status) {
		return false
	}
	if c.StartDate != nil {
		if t.TradeDate == nil || t.TradeDate.Before(*c.StartDate) {
			return false
		}
	}
	if c.EndDate != nil {
		if t.TradeDate == nil || t.TradeDate.After(*c.EndDate) {
			return false
		}
	}
	return true
}

func containsFold(value, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(needle))
}
