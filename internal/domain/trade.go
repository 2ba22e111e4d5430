package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Trade lifecycle statuses. The status table in refdata mirrors these.
const (
	StatusNew        = "NEW"
	StatusAmended    = "AMENDED"
	StatusTerminated = "TERMINATED"
	StatusCancelled  = "CANCELLED"
	StatusLive       = "LIVE"
	StatusDead       = "DEAD"
	StatusMatured    = "MATURED"
)

// Leg types.
const (
	LegTypeFixed    = "FIXED"
	LegTypeFloating = "FLOATING"
)

// Pay/receive flags.
const (
	PayFlag     = "PAY"
	ReceiveFlag = "RECEIVE"
)

// Trade is one version of a booked trade. The business identity is
// TradeID; RowID identifies the stored version. Exactly one version of a
// trade is active at any time.
type Trade struct {
	RowID            int64      `json:"-"`
	TradeID          int64      `json:"tradeId"`
	Version          int        `json:"version"`
	Active           bool       `json:"active"`
	Status           string     `json:"status"`
	TradeDate        *time.Time `json:"tradeDate,omitempty"`
	StartDate        *time.Time `json:"startDate,omitempty"`
	MaturityDate     *time.Time `json:"maturityDate,omitempty"`
	ExecutionDate    *time.Time `json:"executionDate,omitempty"`
	UTICode          string     `json:"utiCode,omitempty"`
	BookID           int64      `json:"bookId,omitempty"`
	BookName         string     `json:"bookName,omitempty"`
	CounterpartyID   int64      `json:"counterpartyId,omitempty"`
	CounterpartyName string     `json:"counterpartyName,omitempty"`
	TraderLogin      string     `json:"traderLogin,omitempty"`
	InputterLogin    string     `json:"inputterLogin,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	DeactivatedAt    *time.Time `json:"deactivatedAt,omitempty"`
	LastTouch        time.Time  `json:"lastTouch"`
	Legs             []TradeLeg `json:"legs,omitempty"`
}

// TradeLeg is one side of a swap. Fixed legs carry a rate; floating legs
// carry an index reference.
type TradeLeg struct {
	ID              int64            `json:"id,omitempty"`
	LegNo           int              `json:"legNo"`
	Notional        decimal.Decimal  `json:"notional"`
	Rate            *decimal.Decimal `json:"rate,omitempty"`
	LegType         string           `json:"legType"`
	PayReceive      string           `json:"payReceive"`
	Currency        string           `json:"currency,omitempty"`
	IndexName       string           `json:"indexName,omitempty"`
	MaturityDate    *time.Time       `json:"maturityDate,omitempty"`
	Schedule        string           `json:"schedule,omitempty"`
	HolidayCalendar string           `json:"holidayCalendar,omitempty"`
	PaymentBDC      string           `json:"paymentBdc,omitempty"`
	FixingBDC       string           `json:"fixingBdc,omitempty"`
	Cashflows       []Cashflow       `json:"cashflows,omitempty"`
}

// Cashflow is a single projected payment on a leg.
type Cashflow struct {
	ID         int64           `json:"id,omitempty"`
	LegID      int64           `json:"legId,omitempty"`
	ValueDate  time.Time       `json:"valueDate"`
	Value      decimal.Decimal `json:"paymentValue"`
	Rate       decimal.Decimal `json:"rate"`
	PayReceive string          `json:"payReceive,omitempty"`
	PaymentBDC string          `json:"paymentBdc,omitempty"`
}

// IsFixed reports whether the leg pays a fixed rate.
func (l *TradeLeg) IsFixed() bool {
	return strings.EqualFold(l.LegType, LegTypeFixed)
}

// IsFloating reports whether the leg pays a floating rate.
func (l *TradeLeg) IsFloating() bool {
	return strings.EqualFold(l.LegType, LegTypeFloating)
}
