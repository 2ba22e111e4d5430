package refdata

import (
	"database/sql"
	"fmt"
)

// requiredStatuses are the lifecycle statuses the engine writes. They must
// exist before the first booking.
var requiredStatuses = []string{"NEW", "AMENDED", "TERMINATED", "CANCELLED", "LIVE", "DEAD", "MATURED"}

var defaultCurrencies = []string{"USD", "EUR", "GBP", "JPY", "CHF"}

var defaultIndices = []string{"LIBOR", "EURIBOR", "SONIA", "SOFR", "ESTR"}

var defaultSchedules = []string{"Monthly", "Quarterly", "Semi-annually", "Annually", "1M", "3M", "6M", "12M"}

var defaultBDCs = []string{"Following", "Modified Following", "Preceding", "No Adjustment"}

// Seed inserts the lookup rows the engine depends on. Existing rows are
// left alone, so it is safe to call on every startup.
func Seed(db *sql.DB) error {
	seedRows := func(table, column string, values []string) error {
		stmt := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?) ON CONFLICT(%s) DO NOTHING`, table, column, column)
		for _, v := range values {
			if _, err := db.Exec(stmt, v); err != nil {
				return fmt.Errorf("failed to seed %s: %w", table, err)
			}
		}
		return nil
	}

	if err := seedRows("trade_statuses", "status", requiredStatuses); err != nil {
		return err
	}
	if err := seedRows("currencies", "code", defaultCurrencies); err != nil {
		return err
	}
	if err := seedRows("rate_indices", "name", defaultIndices); err != nil {
		return err
	}
	if err := seedRows("schedules", "schedule", defaultSchedules); err != nil {
		return err
	}
	return seedRows("business_day_conventions", "bdc", defaultBDCs)
}
