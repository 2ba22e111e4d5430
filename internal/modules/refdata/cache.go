package refdata

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

const snapshotName = "refdata"

// SnapshotCache persists reference data snapshots as msgpack blobs in the
// cache database. The cache is advisory: a miss or a decode failure just
// means the caller goes back to the refdata repository.
type SnapshotCache struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSnapshotCache creates a snapshot cache backed by cache.db.
func NewSnapshotCache(db *sql.DB, log zerolog.Logger) *SnapshotCache {
	return &SnapshotCache{
		db:  db,
		log: log.With().Str("component", "refdata-cache").Logger(),
	}
}

// Save serializes the snapshot and upserts it under the well-known key.
func (c *SnapshotCache) Save(snap *Snapshot) error {
	data, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = c.db.Exec(`
		INSERT INTO refdata_snapshots (name, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		snapshotName, data, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}

	c.log.Debug().Int("bytes", len(data)).Msg("Reference data snapshot cached")
	return nil
}

// Load returns the cached snapshot, or nil when none is stored.
func (c *SnapshotCache) Load() (*Snapshot, error) {
	var data []byte
	err := c.db.QueryRow(`SELECT data FROM refdata_snapshots WHERE name = ?`, snapshotName).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		// Stale or corrupt blob. Treat as a miss.
		c.log.Warn().Err(err).Msg("Discarding undecodable snapshot")
		return nil, nil
	}
	return &snap, nil
}
