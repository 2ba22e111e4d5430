// Package refdata provides repositories for static reference data: books,
// counterparties, users and privileges, currencies, indices, payment
// schedules, business day conventions and trade statuses. Every trade
// booking resolves its references through this package.
package refdata

// Book represents a trading book.
type Book struct {
	ID         int64  `json:"id"`
	BookName   string `json:"bookName"`
	CostCenter string `json:"costCenter,omitempty"`
	Active     bool   `json:"active"`
}

// Counterparty represents the other side of a trade.
type Counterparty struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// User represents an application user (trader, sales, middle office, support).
type User struct {
	ID        int64  `json:"id"`
	LoginID   string `json:"loginId"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	UserType  string `json:"userType,omitempty"`
	Active    bool   `json:"active"`
}

// Currency is a settlement currency code.
type Currency struct {
	ID     int64  `json:"id"`
	Code   string `json:"code"`
	Active bool   `json:"active"`
}

// RateIndex is a floating-rate index (LIBOR, EURIBOR, SONIA, ...).
type RateIndex struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Schedule is a payment frequency descriptor ("Quarterly", "1M", ...).
type Schedule struct {
	ID       int64  `json:"id"`
	Schedule string `json:"schedule"`
	Active   bool   `json:"active"`
}

// BusinessDayConvention is a date-roll convention reference.
type BusinessDayConvention struct {
	ID     int64  `json:"id"`
	BDC    string `json:"bdc"`
	Active bool   `json:"active"`
}

// TradeStatus is a lifecycle status lookup row. The table must contain
// NEW, AMENDED, TERMINATED and CANCELLED for the engine to operate.
type TradeStatus struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
	Active bool   `json:"active"`
}

// Snapshot is the full static reference data set, cached as one msgpack
// blob for cheap reads by the UI-facing endpoints.
type Snapshot struct {
	Books          []Book                  `msgpack:"books"`
	Counterparties []Counterparty          `msgpack:"counterparties"`
	Currencies     []Currency              `msgpack:"currencies"`
	Indices        []RateIndex             `msgpack:"indices"`
	Schedules      []Schedule              `msgpack:"schedules"`
	Conventions    []BusinessDayConvention `msgpack:"conventions"`
	Statuses       []TradeStatus           `msgpack:"statuses"`
}
