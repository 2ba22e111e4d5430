package cashflows

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mkrallis/swapbook/internal/domain"
)

const dateLayout = "2006-01-02"

// Repository persists generated cashflows. Cashflows are write-once:
// regeneration on amendment inserts fresh rows for the new version and
// leaves the old ones untouched as history.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a cashflow repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "cashflows").Logger(),
	}
}

// InsertAll stores the flows for a leg inside the caller's transaction.
func (r *Repository) InsertAll(tx *sql.Tx, legID int64, flows []domain.Cashflow) error {
	stmt, err := tx.Prepare(`
		INSERT INTO cashflows (leg_id, value_date, payment_value, rate, pay_receive, payment_bdc, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare cashflow insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, f := range flows {
		_, err := stmt.Exec(legID, f.ValueDate.Format(dateLayout), f.Value.String(), f.Rate.String(), f.PayReceive, f.PaymentBDC, now)
		if err != nil {
			return fmt.Errorf("failed to insert cashflow: %w", err)
		}
	}
	return nil
}

// FindByLeg returns the stored flows for one leg, ordered by value date.
func (r *Repository) FindByLeg(legID int64) ([]domain.Cashflow, error) {
	rows, err := r.db.Query(`
		SELECT id, leg_id, value_date, payment_value, rate, COALESCE(pay_receive, ''), COALESCE(payment_bdc, '')
		FROM cashflows
		WHERE leg_id = ? AND active = 1
		ORDER BY value_date`, legID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cashflows: %w", err)
	}
	defer rows.Close()

	var flows []domain.Cashflow
	for rows.Next() {
		var (
			f                 domain.Cashflow
			valueDate         string
			paymentValue, rte string
		)
		if err := rows.Scan(&f.ID, &f.LegID, &valueDate, &paymentValue, &rte, &f.PayReceive, &f.PaymentBDC); err != nil {
			return nil, fmt.Errorf("failed to scan cashflow: %w", err)
		}
		if f.ValueDate, err = time.Parse(dateLayout, valueDate); err != nil {
			return nil, fmt.Errorf("invalid cashflow value date %q: %w", valueDate, err)
		}
		if f.Value, err = decimal.NewFromString(paymentValue); err != nil {
			return nil, fmt.Errorf("invalid cashflow value %q: %w", paymentValue, err)
		}
		if f.Rate, err = decimal.NewFromString(rte); err != nil {
			return nil, fmt.Errorf("invalid cashflow rate %q: %w", rte, err)
		}
		flows = append(flows, f)
	}
	return flows, rows.Err()
}
