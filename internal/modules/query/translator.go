package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mkrallis/swapbook/internal/domain"
)

// Predicate decides whether a trade matches a filter.
type Predicate func(*domain.Trade) bool

// matchAll is the no-op predicate empty expressions collapse to.
func matchAll(*domain.Trade) bool { return true }

type fieldKind int

const (
	kindString fieldKind = iota
	kindInt
	kindDate
)

// field describes one queryable path on a trade.
type field struct {
	kind fieldKind
	str  func(*domain.Trade) string
	num  func(*domain.Trade) int64
	date func(*domain.Trade) *time.Time
}

// tradeFields is the query schema. Both the persistence-era dotted paths
// and the flat JSON names resolve, so existing saved filters keep working.
var tradeFields = map[string]field{
	"tradeId": {kind: kindInt, num: func(t *domain.Trade) int64 { return t.TradeID }},
	"version": {kind: kindInt, num: func(t *domain.Trade) int64 { return int64(t.Version) }},
	"utiCode": {kind: kindString, str: func(t *domain.Trade) string { return t.UTICode }},

	"status":                  {kind: kindString, str: func(t *domain.Trade) string { return t.Status }},
	"tradeStatus.tradeStatus": {kind: kindString, str: func(t *domain.Trade) string { return t.Status }},

	"counterparty.name": {kind: kindString, str: func(t *domain.Trade) string { return t.CounterpartyName }},
	"book.bookName":     {kind: kindString, str: func(t *domain.Trade) string { return t.BookName }},

	"traderUser.loginId": {kind: kindString, str: func(t *domain.Trade) string { return t.TraderLogin }},
	"trader":             {kind: kindString, str: func(t *domain.Trade) string { return t.TraderLogin }},
	"inputter":           {kind: kindString, str: func(t *domain.Trade) string { return t.InputterLogin }},

	"tradeDate":          {kind: kindDate, date: func(t *domain.Trade) *time.Time { return t.TradeDate }},
	"startDate":          {kind: kindDate, date: func(t *domain.Trade) *time.Time { return t.StartDate }},
	"tradeStartDate":     {kind: kindDate, date: func(t *domain.Trade) *time.Time { return t.StartDate }},
	"maturityDate":       {kind: kindDate, date: func(t *domain.Trade) *time.Time { return t.MaturityDate }},
	"tradeMaturityDate":  {kind: kindDate, date: func(t *domain.Trade) *time.Time { return t.MaturityDate }},
	"executionDate":      {kind: kindDate, date: func(t *domain.Trade) *time.Time { return t.ExecutionDate }},
	"tradeExecutionDate": {kind: kindDate, date: func(t *domain.Trade) *time.Time { return t.ExecutionDate }},
}

var supportedOperators = map[string]bool{
	"==": true, "!=": true,
	"=gt=": true, "=lt=": true, "=ge=": true, "=le=": true,
	"=in=": true, "=out=": true, "=like=": true,
}

// Translate converts a parsed expression into a predicate. Nil nodes and
// empty boolean groups collapse to a match-all predicate; an unsupported
// operator or unresolvable field path is a client error.
func Translate(node Node) (Predicate, error) {
	if node == nil {
		return matchAll, nil
	}

	switch n := node.(type) {
	case *AndNode:
		return translateChildren(n.Children, func(a, b Predicate) Predicate {
			return func(t *domain.Trade) bool { return a(t) && b(t) }
		})
	case *OrNode:
		return translateChildren(n.Children, func(a, b Predicate) Predicate {
			return func(t *domain.Trade) bool { return a(t) || b(t) }
		})
	case *ComparisonNode:
		return translateComparison(n)
	default:
		return nil, fmt.Errorf("unknown query node %T", node)
	}
}

// ParseAndTranslate is the one-call form used by the search endpoint.
func ParseAndTranslate(expression string) (Predicate, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return matchAll, nil
	}
	node, err := Parse(expression)
	if err != nil {
		return nil, err
	}
	return Translate(node)
}

func translateChildren(children []Node, combine func(a, b Predicate) Predicate) (Predicate, error) {
	var result Predicate
	for _, child := range children {
		if child == nil {
			continue
		}
		p, err := Translate(child)
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = p
		} else {
			result = combine(result, p)
		}
	}
	if result == nil {
		return matchAll, nil
	}
	return result, nil
}

func translateComparison(n *ComparisonNode) (Predicate, error) {
	if !supportedOperators[n.Operator] {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidOperator, n.Operator)
	}

	f, ok := tradeFields[n.Selector]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownField, n.Selector)
	}
	if len(n.Arguments) == 0 {
		return nil, fmt.Errorf("operator %s requires a value for field %s", n.Operator, n.Selector)
	}
	arg := n.Arguments[0]

	switch n.Operator {
	case "==":
		return f.equals(arg, false)
	case "!=":
		return f.equals(arg, true)
	case "=gt=":
		return f.ordered(arg, func(c int) bool { return c > 0 })
	case "=lt=":
		return f.ordered(arg, func(c int) bool { return c < 0 })
	case "=ge=":
		return f.ordered(arg, func(c int) bool { return c >= 0 })
	case "=le=":
		return f.ordered(arg, func(c int) bool { return c <= 0 })
	case "=in=":
		return f.membership(n.Arguments, false)
	case "=out=":
		return f.membership(n.Arguments, true)
	case "=like=":
		return f.like(arg)
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrInvalidOperator, n.Operator)
}

func (f field) equals(arg string, negate bool) (Predicate, error) {
	switch f.kind {
	case kindInt:
		want, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid numeric value %q: %w", arg, err)
		}
		return func(t *domain.Trade) bool { return (f.num(t) == want) != negate }, nil

	case kindDate:
		want, err := parseQueryDate(arg)
		if err != nil {
			return nil, err
		}
		return func(t *domain.Trade) bool {
			d := f.date(t)
			return (d != nil && d.Equal(want)) != negate
		}, nil

	default:
		return func(t *domain.Trade) bool {
			return strings.EqualFold(f.str(t), arg) != negate
		}, nil
	}
}

func (f field) ordered(arg string, accept func(int) bool) (Predicate, error) {
	switch f.kind {
	case kindInt:
		want, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid numeric value %q: %w", arg, err)
		}
		return func(t *domain.Trade) bool {
			have := f.num(t)
			switch {
			case have > want:
				return accept(1)
			case have < want:
				return accept(-1)
			default:
				return accept(0)
			}
		}, nil

	case kindDate:
		want, err := parseQueryDate(arg)
		if err != nil {
			return nil, err
		}
		return func(t *domain.Trade) bool {
			d := f.date(t)
			if d == nil {
				return false
			}
			switch {
			case d.After(want):
				return accept(1)
			case d.Before(want):
				return accept(-1)
			default:
				return accept(0)
			}
		}, nil

	default:
		return func(t *domain.Trade) bool {
			return accept(strings.Compare(f.str(t), arg))
		}, nil
	}
}

func (f field) membership(args []string, negate bool) (Predicate, error) {
	switch f.kind {
	case kindInt:
		want := make(map[int64]bool, len(args))
		for _, a := range args {
			v, err := strconv.ParseInt(a, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid numeric value %q: %w", a, err)
			}
			want[v] = true
		}
		return func(t *domain.Trade) bool { return want[f.num(t)] != negate }, nil

	default:
		want := make(map[string]bool, len(args))
		for _, a := range args {
			want[strings.ToLower(a)] = true
		}
		return func(t *domain.Trade) bool {
			var have string
			if f.kind == kindDate {
				d := f.date(t)
				if d == nil {
					return negate
				}
				have = d.Format("2006-01-02")
			} else {
				have = f.str(t)
			}
			return want[strings.ToLower(have)] != negate
		}, nil
	}
}

// like matches with * wildcards, case-insensitively. Only textual fields
// support it.
func (f field) like(arg string) (Predicate, error) {
	if f.kind != kindString {
		return nil, fmt.Errorf("operator =like= requires a textual field")
	}

	pattern := strings.ToLower(arg)
	parts := strings.Split(pattern, "*")
	return func(t *domain.Trade) bool {
		return wildcardMatch(strings.ToLower(f.str(t)), parts,
			strings.HasPrefix(pattern, "*"), strings.HasSuffix(pattern, "*"))
	}, nil
}

// wildcardMatch checks that the non-wildcard segments appear in order,
// anchored at the ends unless the pattern starts/ends with *.
func wildcardMatch(s string, parts []string, openStart, openEnd bool) bool {
	pos := 0
	for i, part := range parts {
		if part == "" {
			continue
		}
		idx := strings.Index(s[pos:], part)
		if idx < 0 {
			return false
		}
		if i == 0 && !openStart && idx != 0 {
			return false
		}
		pos += idx + len(part)
	}
	if !openEnd && len(parts) > 0 && parts[len(parts)-1] != "" {
		return strings.HasSuffix(s, parts[len(parts)-1])
	}
	return true
}

func parseQueryDate(arg string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", arg)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date value %q, expected yyyy-MM-dd", arg)
	}
	return d, nil
}
