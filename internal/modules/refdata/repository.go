package refdata

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Repository handles reference-data lookups against refdata.db.
//
// Resolution methods follow the legacy contract: a name takes precedence
// when supplied, otherwise the numeric id is used. A nil result with a nil
// error means the reference simply does not exist; callers decide whether
// that is fatal.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new reference data repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "refdata").Logger(),
	}
}

// ResolveBook finds a book by name (preferred) or id.
func (r *Repository) ResolveBook(name string, id int64) (*Book, error) {
	var row *sql.Row
	if name != "" {
		row = r.db.QueryRow(`SELECT id, book_name, COALESCE(cost_center, ''), active FROM books WHERE book_name = ?`, name)
	} else if id > 0 {
		row = r.db.QueryRow(`SELECT id, book_name, COALESCE(cost_center, ''), active FROM books WHERE id = ?`, id)
	} else {
		return nil, nil
	}

	var b Book
	if err := row.Scan(&b.ID, &b.BookName, &b.CostCenter, &b.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve book: %w", err)
	}
	return &b, nil
}

// ResolveCounterparty finds a counterparty by name (preferred) or id.
func (r *Repository) ResolveCounterparty(name string, id int64) (*Counterparty, error) {
	var row *sql.Row
	if name != "" {
		row = r.db.QueryRow(`SELECT id, name, active FROM counterparties WHERE name = ?`, name)
	} else if id > 0 {
		row = r.db.QueryRow(`SELECT id, name, active FROM counterparties WHERE id = ?`, id)
	} else {
		return nil, nil
	}

	var c Counterparty
	if err := row.Scan(&c.ID, &c.Name, &c.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve counterparty: %w", err)
	}
	return &c, nil
}

// ResolveUser finds a user by id (preferred, most reliable), then by first
// name, then by login id. The first-name fallback is legacy behavior; the
// login-id fallback matches what the UI actually sends.
func (r *Repository) ResolveUser(name string, id int64) (*User, error) {
	if id > 0 {
		u, err := r.scanUser(r.db.QueryRow(userSelect+` WHERE id = ?`, id))
		if err != nil || u != nil {
			return u, err
		}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	// First-name lookup first (legacy), then login id.
	firstName := strings.Fields(name)[0]
	u, err := r.scanUser(r.db.QueryRow(userSelect+` WHERE first_name = ?`, firstName))
	if err != nil || u != nil {
		return u, err
	}
	return r.scanUser(r.db.QueryRow(userSelect+` WHERE login_id = ?`, name))
}

// GetUserByLogin finds a user by login id only.
func (r *Repository) GetUserByLogin(loginID string) (*User, error) {
	return r.scanUser(r.db.QueryRow(userSelect+` WHERE login_id = ?`, loginID))
}

const userSelect = `SELECT id, login_id, COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(user_type, ''), active FROM users`

func (r *Repository) scanUser(row *sql.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.LoginID, &u.FirstName, &u.LastName, &u.UserType, &u.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return &u, nil
}

// ResolveCurrency finds a currency by code (preferred) or id.
func (r *Repository) ResolveCurrency(code string, id int64) (*Currency, error) {
	var row *sql.Row
	if code != "" {
		row = r.db.QueryRow(`SELECT id, code, active FROM currencies WHERE code = ?`, code)
	} else if id > 0 {
		row = r.db.QueryRow(`SELECT id, code, active FROM currencies WHERE id = ?`, id)
	} else {
		return nil, nil
	}

	var c Currency
	if err := row.Scan(&c.ID, &c.Code, &c.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve currency: %w", err)
	}
	return &c, nil
}

// ResolveIndex finds a floating-rate index by name (preferred) or id.
func (r *Repository) ResolveIndex(name string, id int64) (*RateIndex, error) {
	var row *sql.Row
	if name != "" {
		row = r.db.QueryRow(`SELECT id, name, active FROM rate_indices WHERE name = ?`, name)
	} else if id > 0 {
		row = r.db.QueryRow(`SELECT id, name, active FROM rate_indices WHERE id = ?`, id)
	} else {
		return nil, nil
	}

	var ix RateIndex
	if err := row.Scan(&ix.ID, &ix.Name, &ix.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve index: %w", err)
	}
	return &ix, nil
}

// ResolveSchedule finds a payment schedule by its descriptor (preferred) or id.
func (r *Repository) ResolveSchedule(schedule string, id int64) (*Schedule, error) {
	var row *sql.Row
	if schedule != "" {
		row = r.db.QueryRow(`SELECT id, schedule, active FROM schedules WHERE schedule = ?`, schedule)
	} else if id > 0 {
		row = r.db.QueryRow(`SELECT id, schedule, active FROM schedules WHERE id = ?`, id)
	} else {
		return nil, nil
	}

	var s Schedule
	if err := row.Scan(&s.ID, &s.Schedule, &s.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve schedule: %w", err)
	}
	return &s, nil
}

// ResolveBDC finds a business day convention by name (preferred) or id.
func (r *Repository) ResolveBDC(bdc string, id int64) (*BusinessDayConvention, error) {
	var row *sql.Row
	if bdc != "" {
		row = r.db.QueryRow(`SELECT id, bdc, active FROM business_day_conventions WHERE bdc = ?`, bdc)
	} else if id > 0 {
		row = r.db.QueryRow(`SELECT id, bdc, active FROM business_day_conventions WHERE id = ?`, id)
	} else {
		return nil, nil
	}

	var b BusinessDayConvention
	if err := row.Scan(&b.ID, &b.BDC, &b.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve business day convention: %w", err)
	}
	return &b, nil
}

// ResolveStatus finds a trade status by name.
func (r *Repository) ResolveStatus(status string) (*TradeStatus, error) {
	var s TradeStatus
	err := r.db.QueryRow(`SELECT id, status, active FROM trade_statuses WHERE status = ?`, status).
		Scan(&s.ID, &s.Status, &s.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve trade status: %w", err)
	}
	return &s, nil
}

// FindUserPrivileges returns the explicit privilege names held by a user,
// normalized to upper case. An unknown login yields an empty list.
func (r *Repository) FindUserPrivileges(loginID string) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT p.name
		FROM privileges p
		JOIN user_privileges up ON up.privilege_id = p.id
		JOIN users u ON u.id = up.user_id
		WHERE u.login_id = ?
		ORDER BY p.name`, loginID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user privileges: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan privilege name: %w", err)
		}
		names = append(names, strings.ToUpper(strings.TrimSpace(name)))
	}
	return names, rows.Err()
}

// ListBooks returns all books.
func (r *Repository) ListBooks() ([]Book, error) {
	rows, err := r.db.Query(`SELECT id, book_name, COALESCE(cost_center, ''), active FROM books ORDER BY book_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.BookName, &b.CostCenter, &b.Active); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// ListCounterparties returns all counterparties.
func (r *Repository) ListCounterparties() ([]Counterparty, error) {
	rows, err := r.db.Query(`SELECT id, name, active FROM counterparties ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list counterparties: %w", err)
	}
	defer rows.Close()

	var cps []Counterparty
	for rows.Next() {
		var c Counterparty
		if err := rows.Scan(&c.ID, &c.Name, &c.Active); err != nil {
			return nil, fmt.Errorf("failed to scan counterparty: %w", err)
		}
		cps = append(cps, c)
	}
	return cps, rows.Err()
}

// ListCurrencies returns all currencies.
func (r *Repository) ListCurrencies() ([]Currency, error) {
	rows, err := r.db.Query(`SELECT id, code, active FROM currencies ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list currencies: %w", err)
	}
	defer rows.Close()

	var ccys []Currency
	for rows.Next() {
		var c Currency
		if err := rows.Scan(&c.ID, &c.Code, &c.Active); err != nil {
			return nil, fmt.Errorf("failed to scan currency: %w", err)
		}
		ccys = append(ccys, c)
	}
	return ccys, rows.Err()
}

// ListIndices returns all floating-rate indices.
func (r *Repository) ListIndices() ([]RateIndex, error) {
	rows, err := r.db.Query(`SELECT id, name, active FROM rate_indices ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list indices: %w", err)
	}
	defer rows.Close()

	var ixs []RateIndex
	for rows.Next() {
		var ix RateIndex
		if err := rows.Scan(&ix.ID, &ix.Name, &ix.Active); err != nil {
			return nil, fmt.Errorf("failed to scan index: %w", err)
		}
		ixs = append(ixs, ix)
	}
	return ixs, rows.Err()
}

// ListSchedules returns all payment schedules.
func (r *Repository) ListSchedules() ([]Schedule, error) {
	rows, err := r.db.Query(`SELECT id, schedule, active FROM schedules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	var scheds []Schedule
	for rows.Next() {
		var s Schedule
		if err := rows.Scan(&s.ID, &s.Schedule, &s.Active); err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		scheds = append(scheds, s)
	}
	return scheds, rows.Err()
}

// ListBDCs returns all business day conventions.
func (r *Repository) ListBDCs() ([]BusinessDayConvention, error) {
	rows, err := r.db.Query(`SELECT id, bdc, active FROM business_day_conventions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list business day conventions: %w", err)
	}
	defer rows.Close()

	var bdcs []BusinessDayConvention
	for rows.Next() {
		var b BusinessDayConvention
		if err := rows.Scan(&b.ID, &b.BDC, &b.Active); err != nil {
			return nil, fmt.Errorf("failed to scan business day convention: %w", err)
		}
		bdcs = append(bdcs, b)
	}
	return bdcs, rows.Err()
}

// ListStatuses returns all trade statuses.
func (r *Repository) ListStatuses() ([]TradeStatus, error) {
	rows, err := r.db.Query(`SELECT id, status, active FROM trade_statuses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list trade statuses: %w", err)
	}
	defer rows.Close()

	var statuses []TradeStatus
	for rows.Next() {
		var s TradeStatus
		if err := rows.Scan(&s.ID, &s.Status, &s.Active); err != nil {
			return nil, fmt.Errorf("failed to scan trade status: %w", err)
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

// Snapshot assembles the full reference data set in one call.
func (r *Repository) Snapshot() (*Snapshot, error) {
	snap := &Snapshot{}
	var err error
	if snap.Books, err = r.ListBooks(); err != nil {
		return nil, err
	}
	if snap.Counterparties, err = r.ListCounterparties(); err != nil {
		return nil, err
	}
	if snap.Currencies, err = r.ListCurrencies(); err != nil {
		return nil, err
	}
	if snap.Indices, err = r.ListIndices(); err != nil {
		return nil, err
	}
	if snap.Schedules, err = r.ListSchedules(); err != nil {
		return nil, err
	}
	if snap.Conventions, err = r.ListBDCs(); err != nil {
		return nil, err
	}
	if snap.Statuses, err = r.ListStatuses(); err != nil {
		return nil, err
	}
	return snap, nil
}
