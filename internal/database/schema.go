package database

// schemas maps database names to their DDL. All statements are idempotent
// so Migrate can run on every startup.
var schemas = map[string]string{
	"booking": bookingSchema,
	"refdata": refdataSchema,
	"cache":   cacheSchema,
}

// bookingSchema holds the trade booking audit trail. Trades are versioned:
// every amendment inserts a new row and deactivates the previous one, so
// the full history of a trade is preserved. The partial unique index
// enforces the "exactly one active version per trade_id" invariant at the
// storage layer as a backstop for the transactional amend path.
const bookingSchema = `
CREATE TABLE IF NOT EXISTS trades (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	trade_id         INTEGER NOT NULL,
	version          INTEGER NOT NULL,
	active           INTEGER NOT NULL DEFAULT 1,
	status           TEXT    NOT NULL,
	trade_date       TEXT,
	start_date       TEXT,
	maturity_date    TEXT,
	execution_date   TEXT,
	uti_code         TEXT,
	book_id          INTEGER,
	counterparty_id  INTEGER,
	trader_login     TEXT,
	inputter_login   TEXT,
	created_at       INTEGER NOT NULL,
	deactivated_at   INTEGER,
	last_touch       INTEGER NOT NULL,
	UNIQUE (trade_id, version)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_trades_one_active
	ON trades (trade_id) WHERE active = 1;

CREATE INDEX IF NOT EXISTS idx_trades_trader ON trades (trader_login);
CREATE INDEX IF NOT EXISTS idx_trades_status ON trades (status);

CREATE TABLE IF NOT EXISTS trade_legs (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	trade_row_id     INTEGER NOT NULL REFERENCES trades(id),
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

CREATE INDEX IF NOT EXISTS idx_trade_legs_trade ON trade_legs (trade_row_id);

CREATE TABLE IF NOT EXISTS cashflows (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	leg_id        INTEGER NOT NULL REFERENCES trade_legs(id),
	value_date    TEXT    NOT NULL,
	payment_value TEXT    NOT NULL,
	rate          TEXT,
	pay_receive   TEXT,
	payment_bdc   TEXT,
	active        INTEGER NOT NULL DEFAULT 1,
	created_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cashflows_leg ON cashflows (leg_id);

CREATE TABLE IF NOT EXISTS additional_info (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_type   TEXT    NOT NULL,
	entity_id     INTEGER NOT NULL,
	field_name    TEXT    NOT NULL,
	field_value   TEXT,
	field_type    TEXT    NOT NULL DEFAULT 'STRING',
	version       INTEGER NOT NULL DEFAULT 1,
	active        INTEGER NOT NULL DEFAULT 1,
	created_at    INTEGER NOT NULL,
	modified_at   INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_additional_info_active_key
	ON additional_info (entity_type, entity_id, field_name) WHERE active = 1;

CREATE TABLE IF NOT EXISTS additional_info_audit (
	id          TEXT PRIMARY KEY,
	info_id     INTEGER NOT NULL,
	entity_type TEXT    NOT NULL,
	entity_id   INTEGER NOT NULL,
	field_name  TEXT    NOT NULL,
	old_value   TEXT,
	new_value   TEXT,
	changed_by  TEXT,
	changed_at  INTEGER NOT NULL
);
`

// refdataSchema holds static reference data: books, counterparties, users
// and their privileges, plus the small lookup tables legs and statuses
// resolve against.
const refdataSchema = `
CREATE TABLE IF NOT EXISTS books (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	book_name   TEXT NOT NULL UNIQUE,
	cost_center TEXT,
	active      INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS counterparties (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	name   TEXT NOT NULL UNIQUE,
	active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS users (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	login_id   TEXT NOT NULL UNIQUE,
	first_name TEXT,
	last_name  TEXT,
	user_type  TEXT,
	active     INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS privileges (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS user_privileges (
	user_id      INTEGER NOT NULL REFERENCES users(id),
	privilege_id INTEGER NOT NULL REFERENCES privileges(id),
	PRIMARY KEY (user_id, privilege_id)
);

CREATE TABLE IF NOT EXISTS currencies (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	code   TEXT NOT NULL UNIQUE,
	active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS rate_indices (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	name   TEXT NOT NULL UNIQUE,
	active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS schedules (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	schedule TEXT NOT NULL UNIQUE,
	active   INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS business_day_conventions (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	bdc    TEXT NOT NULL UNIQUE,
	active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS trade_statuses (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	status TEXT NOT NULL UNIQUE,
	active INTEGER NOT NULL DEFAULT 1
);
`

// cacheSchema holds ephemeral operational data. Snapshots are msgpack
// blobs; losing this database only costs a cache rebuild.
const cacheSchema = `
CREATE TABLE IF NOT EXISTS refdata_snapshots (
	name       TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
`
