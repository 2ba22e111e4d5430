package trades

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/mkrallis/swapbook/internal/database"
	"github.com/mkrallis/swapbook/internal/domain"
)

func setupBookingDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// A second pooled connection would see its own empty in-memory
	// database, so keep the pool at one.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE trades (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			trade_id        INTEGER NOT NULL,
			version         INTEGER NOT NULL,
			active          INTEGER NOT NULL DEFAULT 1,
			status          TEXT    NOT NULL,
			trade_date      TEXT,
			start_date      TEXT,
			maturity_date   TEXT,
			execution_date  TEXT,
			uti_code        TEXT,
			book_id         INTEGER,
			counterparty_id INTEGER,
			trader_login    TEXT,
			inputter_login  TEXT,
			created_at      INTEGER NOT NULL,
			deactivated_at  INTEGER,
			last_touch      INTEGER NOT NULL,
			UNIQUE (trade_id, version)
		);
		CREATE UNIQUE INDEX idx_trades_one_active ON trades (trade_id) WHERE active = 1;
		CREATE TABLE trade_legs (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			trade_row_id     INTEGER NOT NULL,
			leg_no           INTEGER NOT NULL,
			notional         TEXT,
			rate             TEXT,
			leg_type         TEXT,
			pay_receive      TEXT,
			currency         TEXT,
			index_name       TEXT,
			schedule         TEXT,
			holiday_calendar TEXT,
			payment_bdc      TEXT,
			fixing_bdc       TEXT,
			active           INTEGER NOT NULL DEFAULT 1,
			created_at       INTEGER NOT NULL
		);
		CREATE TABLE cashflows (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			leg_id        INTEGER NOT NULL,
			value_date    TEXT    NOT NULL,
			payment_value TEXT    NOT NULL,
			rate          TEXT,
			pay_receive   TEXT,
			payment_bdc   TEXT,
			active        INTEGER NOT NULL DEFAULT 1,
			created_at    INTEGER NOT NULL
		);
	`)
	require.NoError(t, err)
	return db
}

func testTradeRepo(t *testing.T) (*Repository, *sql.DB) {
	t.Helper()
	db := setupBookingDB(t)
	return NewRepository(db, zerolog.New(nil).Level(zerolog.Disabled)), db
}

func datePtr(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func newBookedTrade() *domain.Trade {
	rate := decimal.NewFromFloat(3.5)
	return &domain.Trade{
		TradeID:        10001,
		Version:        1,
		Active:         true,
		Status:         domain.StatusNew,
		TradeDate:      datePtr(2026, time.August, 28),
		StartDate:      datePtr(2026, time.September, 1),
		MaturityDate:   datePtr(2027, time.September, 1),
		UTICode:        "UTI-10001",
		BookID:         1,
		CounterpartyID: 2,
		TraderLogin:    "jdoe",
		InputterLogin:  "jdoe",
		Legs: []domain.TradeLeg{
			{
				Notional:   decimal.NewFromInt(10_000_000),
				Rate:       &rate,
				LegType:    domain.LegTypeFixed,
				PayReceive: domain.PayFlag,
				Currency:   "GBP",
				Schedule:   "Quarterly",
			},
			{
				Notional:   decimal.NewFromInt(10_000_000),
				LegType:    domain.LegTypeFloating,
				PayReceive: domain.ReceiveFlag,
				Currency:   "GBP",
				IndexName:  "SONIA",
				Schedule:   "Quarterly",
			},
		},
	}
}

func insertTrade(t *testing.T, repo *Repository, db *sql.DB, trade *domain.Trade) {
	t.Helper()
	err := database.WithTransaction(db, func(tx *sql.Tx) error {
		return repo.InsertVersion(tx, trade)
	})
	require.NoError(t, err)
}

func TestNextTradeID(t *testing.T) {
	repo, db := testTradeRepo(t)

	err := database.WithTransaction(db, func(tx *sql.Tx) error {
		id, err := repo.NextTradeID(tx)
		require.NoError(t, err)
		assert.Equal(t, int64(10000), id)
		return nil
	})
	require.NoError(t, err)

	insertTrade(t, repo, db, newBookedTrade())

	err = database.WithTransaction(db, func(tx *sql.Tx) error {
		id, err := repo.NextTradeID(tx)
		require.NoError(t, err)
		assert.Equal(t, int64(10001), id)
		return nil
	})
	require.NoError(t, err)
}

func TestInsertAndFindActive(t *testing.T) {
	repo, db := testTradeRepo(t)

	trade := newBookedTrade()
	insertTrade(t, repo, db, trade)
	assert.NotZero(t, trade.RowID)
	assert.NotZero(t, trade.Legs[0].ID)
	assert.NotZero(t, trade.Legs[1].ID)

	found, err := repo.FindActiveByTradeID(10001)
	require.NoError(t, err)
	require.NotNil(t, found)

	assert.Equal(t, int64(10001), found.TradeID)
	assert.Equal(t, 1, found.Version)
	assert.True(t, found.Active)
	assert.Equal(t, domain.StatusNew, found.Status)
	assert.Equal(t, "UTI-10001", found.UTICode)
	require.NotNil(t, found.MaturityDate)
	assert.Equal(t, *trade.MaturityDate, *found.MaturityDate)

	require.Len(t, found.Legs, 2)
	assert.Equal(t, 1, found.Legs[0].LegNo)
	assert.True(t, found.Legs[0].Notional.Equal(decimal.NewFromInt(10_000_000)))
	require.NotNil(t, found.Legs[0].Rate)
	assert.True(t, found.Legs[0].Rate.Equal(decimal.NewFromFloat(3.5)))
	assert.Nil(t, found.Legs[1].Rate)
	assert.Equal(t, "SONIA", found.Legs[1].IndexName)
	require.NotNil(t, found.Legs[1].MaturityDate)
	assert.Equal(t, *trade.MaturityDate, *found.Legs[1].MaturityDate)
}

func TestFindActiveMissingReturnsNil(t *testing.T) {
	repo, _ := testTradeRepo(t)

	found, err := repo.FindActiveByTradeID(99999)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestAmendVersionChain(t *testing.T) {
	repo, db := testTradeRepo(t)

	v1 := newBookedTrade()
	insertTrade(t, repo, db, v1)

	v2 := newBookedTrade()
	v2.Version = 2
	v2.Status = domain.StatusAmended
	err := database.WithTransaction(db, func(tx *sql.Tx) error {
		if err := repo.Deactivate(tx, v1.RowID); err != nil {
			return err
		}
		return repo.InsertVersion(tx, v2)
	})
	require.NoError(t, err)

	active, err := repo.FindActiveByTradeID(10001)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, 2, active.Version)
	assert.Equal(t, domain.StatusAmended, active.Status)

	history, err := repo.History(10001)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].Version)
	assert.False(t, history[0].Active)
	assert.NotNil(t, history[0].DeactivatedAt)
	assert.Equal(t, 2, history[1].Version)
	assert.True(t, history[1].Active)
	assert.Nil(t, history[1].DeactivatedAt)
}

func TestOneActiveVersionEnforced(t *testing.T) {
	repo, db := testTradeRepo(t)

	insertTrade(t, repo, db, newBookedTrade())

	dup := newBookedTrade()
	dup.Version = 2
	err := database.WithTransaction(db, func(tx *sql.Tx) error {
		return repo.InsertVersion(tx, dup)
	})
	assert.Error(t, err)

	// The failed transaction must not leave a partial version behind.
	history, err := repo.History(10001)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestUpdateStatus(t *testing.T) {
	repo, db := testTradeRepo(t)

	trade := newBookedTrade()
	insertTrade(t, repo, db, trade)

	require.NoError(t, repo.UpdateStatus(trade.RowID, domain.StatusTerminated))

	found, err := repo.FindActiveByTradeID(10001)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, domain.StatusTerminated, found.Status)
	assert.Equal(t, 1, found.Version)
	assert.True(t, found.Active)
}

func TestListActiveScopedByTrader(t *testing.T) {
	repo, db := testTradeRepo(t)

	mine := newBookedTrade()
	insertTrade(t, repo, db, mine)

	other := newBookedTrade()
	other.TradeID = 10002
	other.TraderLogin = "asmith"
	insertTrade(t, repo, db, other)

	all, err := repo.ListActive("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := repo.ListActive("JDOE")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, int64(10001), scoped[0].TradeID)
}

func TestFindByTradeIDs(t *testing.T) {
	repo, db := testTradeRepo(t)

	first := newBookedTrade()
	insertTrade(t, repo, db, first)

	second := newBookedTrade()
	second.TradeID = 10002
	insertTrade(t, repo, db, second)

	found, err := repo.FindByTradeIDs([]int64{10002, 10001, 55555})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, int64(10001), found[0].TradeID)
	assert.Equal(t, int64(10002), found[1].TradeID)

	none, err := repo.FindByTradeIDs(nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
