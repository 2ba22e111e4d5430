package trades

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mkrallis/swapbook/internal/domain"
)

const dateLayout = "2006-01-02"

// Repository persists trade versions in the booking database. Amendments
// never rewrite history: each version is its own row and exactly one row
// per trade_id is active, enforced by a partial unique index as a
// backstop for the transactional amend path.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a trade repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "trades").Logger(),
	}
}

// NextTradeID allocates the next sequential business id. Ids start at
// 10000 and advance by the total number of stored versions.
func (r *Repository) NextTradeID(tx *sql.Tx) (int64, error) {
	var count int64
	if err := tx.QueryRow(`SELECT COUNT(*) FROM trades`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return 10000 + count, nil
}

// InsertVersion stores one trade version with its legs inside the
// caller's transaction. Leg row ids are written back into the trade.
func (r *Repository) InsertVersion(tx *sql.Tx, trade *domain.Trade) error {
	now := time.Now().UTC()
	trade.CreatedAt = now
	trade.LastTouch = now

	res, err := tx.Exec(`
		INSERT INTO trades (trade_id, version, active, status, trade_date, start_date, maturity_date, execution_date,
			uti_code, book_id, counterparty_id, trader_login, inputter_login, created_at, last_touch)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.TradeID, trade.Version, trade.Active, trade.Status,
		fmtDate(trade.TradeDate), fmtDate(trade.StartDate), fmtDate(trade.MaturityDate), fmtDate(trade.ExecutionDate),
		trade.UTICode, nullID(trade.BookID), nullID(trade.CounterpartyID),
		trade.TraderLogin, trade.InputterLogin, now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert trade version: %w", err)
	}
	trade.RowID, _ = res.LastInsertId()

	for i := range trade.Legs {
		leg := &trade.Legs[i]
		leg.LegNo = i + 1

		var rate interface{}
		if leg.Rate != nil {
			rate = leg.Rate.String()
		}
		res, err := tx.Exec(`
			INSERT INTO trade_legs (trade_row_id, leg_no, notional, rate, leg_type, pay_receive, currency,
				index_name, schedule, holiday_calendar, payment_bdc, fixing_bdc, active, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`,
			trade.RowID, leg.LegNo, leg.Notional.String(), rate, leg.LegType, leg.PayReceive, leg.Currency,
			leg.IndexName, leg.Schedule, leg.HolidayCalendar, leg.PaymentBDC, leg.FixingBDC, now.Unix())
		if err != nil {
			return fmt.Errorf("failed to insert trade leg %d: %w", leg.LegNo, err)
		}
		leg.ID, _ = res.LastInsertId()
	}
	return nil
}

// Deactivate marks a version row inactive, recording when.
func (r *Repository) Deactivate(tx *sql.Tx, rowID int64) error {
	now := time.Now().UTC().Unix()
	_, err := tx.Exec(`UPDATE trades SET active = 0, deactivated_at = ?, last_touch = ? WHERE id = ?`, now, now, rowID)
	if err != nil {
		return fmt.Errorf("failed to deactivate trade row %d: %w", rowID, err)
	}
	return nil
}

// UpdateStatus changes the status of an existing version in place. Used
// by terminate and cancel, which do not open a new version.
func (r *Repository) UpdateStatus(rowID int64, status string) error {
	_, err := r.db.Exec(`UPDATE trades SET status = ?, last_touch = ? WHERE id = ?`,
		status, time.Now().UTC().Unix(), rowID)
	if err != nil {
		return fmt.Errorf("failed to update trade status: %w", err)
	}
	return nil
}

// Reference names live in the separate refdata database, so rows carry
// ids only; the service layer fills in names where callers need them.
const tradeSelect = `
	SELECT t.id, t.trade_id, t.version, t.active, t.status,
		COALESCE(t.trade_date, ''), COALESCE(t.start_date, ''), COALESCE(t.maturity_date, ''), COALESCE(t.execution_date, ''),
		COALESCE(t.uti_code, ''), COALESCE(t.book_id, 0), '',
		COALESCE(t.counterparty_id, 0), '',
		COALESCE(t.trader_login, ''), COALESCE(t.inputter_login, ''),
		t.created_at, t.deactivated_at, t.last_touch
	FROM trades t`

// FindActiveByTradeID returns the active version of a trade with its
// legs, or nil when no active version exists.
func (r *Repository) FindActiveByTradeID(tradeID int64) (*domain.Trade, error) {
	rows, err := r.db.Query(tradeSelect+` WHERE t.trade_id = ? AND t.active = 1`, tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade %d: %w", tradeID, err)
	}
	trades, err := r.collect(rows)
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, nil
	}

	trade := &trades[0]
	if err := r.loadLegs(trade); err != nil {
		return nil, err
	}
	return trade, nil
}

// FindByTradeIDs returns the active versions for a set of business ids.
// Unknown ids are simply absent from the result.
func (r *Repository) FindByTradeIDs(tradeIDs []int64) ([]domain.Trade, error) {
	if len(tradeIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(tradeIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(tradeIDs))
	for i, id := range tradeIDs {
		args[i] = id
	}

	rows, err := r.db.Query(tradeSelect+` WHERE t.trade_id IN (`+placeholders+`) AND t.active = 1 ORDER BY t.trade_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades by ids: %w", err)
	}
	return r.collect(rows)
}

// ListActive returns every active trade, optionally scoped to one
// trader's own bookings.
func (r *Repository) ListActive(traderLogin string) ([]domain.Trade, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if traderLogin == "" {
		rows, err = r.db.Query(tradeSelect + ` WHERE t.active = 1 ORDER BY t.trade_id`)
	} else {
		rows, err = r.db.Query(tradeSelect+` WHERE t.active = 1 AND LOWER(t.trader_login) = LOWER(?) ORDER BY t.trade_id`, traderLogin)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return r.collect(rows)
}

// History returns every stored version of a trade, oldest first.
func (r *Repository) History(tradeID int64) ([]domain.Trade, error) {
	rows, err := r.db.Query(tradeSelect+` WHERE t.trade_id = ? ORDER BY t.version`, tradeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade history: %w", err)
	}
	return r.collect(rows)
}

// loadLegs attaches the active legs of a trade version.
func (r *Repository) loadLegs(trade *domain.Trade) error {
	rows, err := r.db.Query(`
		SELECT id, leg_no, COALESCE(notional, '0'), rate, COALESCE(leg_type, ''), COALESCE(pay_receive, ''),
			COALESCE(currency, ''), COALESCE(index_name, ''), COALESCE(schedule, ''),
			COALESCE(holiday_calendar, ''), COALESCE(payment_bdc, ''), COALESCE(fixing_bdc, '')
		FROM trade_legs
		WHERE trade_row_id = ? AND active = 1
		ORDER BY leg_no`, trade.RowID)
	if err != nil {
		return fmt.Errorf("failed to query trade legs: %w", err)
	}
	defer rows.Close()

	trade.Legs = nil
	for rows.Next() {
		var (
			leg      domain.TradeLeg
			notional string
			rate     sql.NullString
		)
		err := rows.Scan(&leg.ID, &leg.LegNo, &notional, &rate, &leg.LegType, &leg.PayReceive,
			&leg.Currency, &leg.IndexName, &leg.Schedule, &leg.HolidayCalendar, &leg.PaymentBDC, &leg.FixingBDC)
		if err != nil {
			return fmt.Errorf("failed to scan trade leg: %w", err)
		}
		if leg.Notional, err = decimal.NewFromString(notional); err != nil {
			return fmt.Errorf("invalid leg notional %q: %w", notional, err)
		}
		if rate.Valid {
			d, err := decimal.NewFromString(rate.String)
			if err != nil {
				return fmt.Errorf("invalid leg rate %q: %w", rate.String, err)
			}
			leg.Rate = &d
		}
		leg.MaturityDate = trade.MaturityDate
		trade.Legs = append(trade.Legs, leg)
	}
	return rows.Err()
}

func (r *Repository) collect(rows *sql.Rows) ([]domain.Trade, error) {
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var (
			t                                                 domain.Trade
			tradeDate, startDate, maturityDate, executionDate string
			createdAt, lastTouch                              int64
			deactivatedAt                                     sql.NullInt64
		)
		err := rows.Scan(&t.RowID, &t.TradeID, &t.Version, &t.Active, &t.Status,
			&tradeDate, &startDate, &maturityDate, &executionDate,
			&t.UTICode, &t.BookID, &t.BookName, &t.CounterpartyID, &t.CounterpartyName,
			&t.TraderLogin, &t.InputterLogin, &createdAt, &deactivatedAt, &lastTouch)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}

		if t.TradeDate, err = parseDate(tradeDate); err != nil {
			return nil, err
		}
		if t.StartDate, err = parseDate(startDate); err != nil {
			return nil, err
		}
		if t.MaturityDate, err = parseDate(maturityDate); err != nil {
			return nil, err
		}
		if t.ExecutionDate, err = parseDate(executionDate); err != nil {
			return nil, err
		}
		t.CreatedAt = time.Unix(createdAt, 0).UTC()
		t.LastTouch = time.Unix(lastTouch, 0).UTC()
		if deactivatedAt.Valid {
			d := time.Unix(deactivatedAt.Int64, 0).UTC()
			t.DeactivatedAt = &d
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func fmtDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid stored date %q: %w", s, err)
	}
	return &d, nil
}

func nullID(id int64) interface{} {
	if id <= 0 {
		return nil
	}
	return id
}
