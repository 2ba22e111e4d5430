package refdata

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupRefdataDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err, "Failed to open test database")
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE books (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			book_name   TEXT NOT NULL UNIQUE,
			cost_center TEXT,
			active      INTEGER NOT NULL DEFAULT 1
		);
		CREATE TABLE counterparties (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			name   TEXT NOT NULL UNIQUE,
			active INTEGER NOT NULL DEFAULT 1
		);
		CREATE TABLE users (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			login_id   TEXT NOT NULL UNIQUE,
			first_name TEXT,
			last_name  TEXT,
			user_type  TEXT,
			active     INTEGER NOT NULL DEFAULT 1
		);
		CREATE TABLE privileges (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		);
		CREATE TABLE user_privileges (
			user_id      INTEGER NOT NULL,
			privilege_id INTEGER NOT NULL,
			PRIMARY KEY (user_id, privilege_id)
		);
		CREATE TABLE currencies (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			code   TEXT NOT NULL UNIQUE,
			active INTEGER NOT NULL DEFAULT 1
		);
		CREATE TABLE rate_indices (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			name   TEXT NOT NULL UNIQUE,
			active INTEGER NOT NULL DEFAULT 1
		);
		CREATE TABLE schedules (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			schedule TEXT NOT NULL UNIQUE,
			active   INTEGER NOT NULL DEFAULT 1
		);
		CREATE TABLE business_day_conventions (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			bdc    TEXT NOT NULL UNIQUE,
			active INTEGER NOT NULL DEFAULT 1
		);
		CREATE TABLE trade_statuses (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			status TEXT NOT NULL UNIQUE,
			active INTEGER NOT NULL DEFAULT 1
		);
	`)
	require.NoError(t, err, "Failed to create test tables")

	return db
}

func testRepo(t *testing.T) (*Repository, *sql.DB) {
	t.Helper()
	db := setupRefdataDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewRepository(db, log), db
}

func TestResolveBook_NameTakesPrecedenceOverID(t *testing.T) {
	repo, db := testRepo(t)

	_, err := db.Exec(`INSERT INTO books (book_name, cost_center) VALUES ('RATES_DESK', 'CC1'), ('FX_DESK', 'CC2')`)
	require.NoError(t, err)

	// Name wins even when the id points at a different book.
	b, err := repo.ResolveBook("FX_DESK", 1)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "FX_DESK", b.BookName)
	assert.Equal(t, "CC2", b.CostCenter)

	b, err = repo.ResolveBook("", 1)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "RATES_DESK", b.BookName)

	b, err = repo.ResolveBook("NO_SUCH_BOOK", 0)
	require.NoError(t, err)
	assert.Nil(t, b, "Unknown book should resolve to nil without error")

	b, err = repo.ResolveBook("", 0)
	require.NoError(t, err)
	assert.Nil(t, b, "Empty reference should resolve to nil")
}

func TestResolveCounterparty(t *testing.T) {
	repo, db := testRepo(t)

	_, err := db.Exec(`INSERT INTO counterparties (name) VALUES ('BigBank'), ('MegaFund')`)
	require.NoError(t, err)

	c, err := repo.ResolveCounterparty("MegaFund", 0)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, int64(2), c.ID)

	c, err = repo.ResolveCounterparty("", 1)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "BigBank", c.Name)
}

func TestResolveUser_FallbackChain(t *testing.T) {
	repo, db := testRepo(t)

	_, err := db.Exec(`
		INSERT INTO users (login_id, first_name, last_name, user_type) VALUES
			('jdoe', 'John', 'Doe', 'TRADER'),
			('asmith', 'Alice', 'Smith', 'SALES')`)
	require.NoError(t, err)

	// Id lookup wins when present.
	u, err := repo.ResolveUser("Alice", 1)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "jdoe", u.LoginID)

	// First-name lookup when there is no id.
	u, err = repo.ResolveUser("Alice Smith", 0)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "asmith", u.LoginID)

	// Login-id fallback when the first name matches nobody.
	u, err = repo.ResolveUser("jdoe", 0)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "John", u.FirstName)

	u, err = repo.ResolveUser("nobody", 0)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestFindUserPrivileges(t *testing.T) {
	repo, db := testRepo(t)

	_, err := db.Exec(`
		INSERT INTO users (login_id, user_type) VALUES ('jdoe', 'TRADER');
		INSERT INTO privileges (name) VALUES ('trade_view_all'), ('TRADE_AMEND');
		INSERT INTO user_privileges (user_id, privilege_id) VALUES (1, 1), (1, 2);
	`)
	require.NoError(t, err)

	privs, err := repo.FindUserPrivileges("jdoe")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"TRADE_VIEW_ALL", "TRADE_AMEND"}, privs, "Privilege names should be normalized to upper case")

	privs, err = repo.FindUserPrivileges("nobody")
	require.NoError(t, err)
	assert.Empty(t, privs)
}

func TestResolveLookupTables(t *testing.T) {
	repo, db := testRepo(t)
	require.NoError(t, Seed(db))

	ccy, err := repo.ResolveCurrency("EUR", 0)
	require.NoError(t, err)
	require.NotNil(t, ccy)

	ix, err := repo.ResolveIndex("SONIA", 0)
	require.NoError(t, err)
	require.NotNil(t, ix)

	sched, err := repo.ResolveSchedule("Quarterly", 0)
	require.NoError(t, err)
	require.NotNil(t, sched)

	bdc, err := repo.ResolveBDC("Modified Following", 0)
	require.NoError(t, err)
	require.NotNil(t, bdc)

	for _, status := range []string{"NEW", "AMENDED", "TERMINATED", "CANCELLED"} {
		s, err := repo.ResolveStatus(status)
		require.NoError(t, err)
		require.NotNil(t, s, "Lifecycle status %s must be seeded", status)
	}
}

func TestSeed_IsIdempotent(t *testing.T) {
	_, db := testRepo(t)

	require.NoError(t, Seed(db))
	require.NoError(t, Seed(db))

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM currencies`).Scan(&count))
	assert.Equal(t, len(defaultCurrencies), count, "Re-seeding should not duplicate rows")
}

func TestSnapshotRoundTrip(t *testing.T) {
	repo, db := testRepo(t)
	require.NoError(t, Seed(db))
	_, err := db.Exec(`INSERT INTO books (book_name) VALUES ('RATES_DESK')`)
	require.NoError(t, err)

	snap, err := repo.Snapshot()
	require.NoError(t, err)
	assert.Len(t, snap.Books, 1)
	assert.Len(t, snap.Currencies, len(defaultCurrencies))

	cacheDB := setupCacheDB(t)
	cache := NewSnapshotCache(cacheDB, zerolog.New(nil).Level(zerolog.Disabled))

	loaded, err := cache.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded, "Empty cache should miss")

	require.NoError(t, cache.Save(snap))
	loaded, err = cache.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, snap.Books, loaded.Books)
	assert.Equal(t, snap.Statuses, loaded.Statuses)
}

func setupCacheDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE refdata_snapshots (
			name       TEXT PRIMARY KEY,
			data       BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		)`)
	require.NoError(t, err)
	return db
}
