package additionalinfo

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// dbtx is the common surface of *sql.DB and *sql.Tx the write path
// runs on, so an upsert can join a caller's booking transaction.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Repository persists additional-info records and their audit trail in
// the booking database.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates an additional-info repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "additionalinfo").Logger(),
	}
}

const recordSelect = `
	SELECT id, entity_type, entity_id, field_name, COALESCE(field_value, ''), field_type, version, active, created_at, modified_at
	FROM additional_info`

// FindActive returns the active record for a key, or nil.
func (r *Repository) FindActive(q dbtx, entityType string, entityID int64, fieldName string) (*Record, error) {
	row := q.QueryRow(recordSelect+`
		WHERE entity_type = ? AND entity_id = ? AND field_name = ? AND active = 1`,
		entityType, entityID, fieldName)
	return scanRecord(row)
}

func scanRecord(row *sql.Row) (*Record, error) {
	var (
		rec                   Record
		createdAt, modifiedAt int64
	)
	err := row.Scan(&rec.ID, &rec.EntityType, &rec.EntityID, &rec.FieldName, &rec.FieldValue,
		&rec.FieldType, &rec.Version, &rec.Active, &createdAt, &modifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read additional info: %w", err)
	}
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	rec.ModifiedAt = time.Unix(modifiedAt, 0).UTC()
	return &rec, nil
}

// Insert stores a fresh record at version 1.
func (r *Repository) Insert(q dbtx, rec *Record) error {
	now := time.Now().UTC()
	fieldType := rec.FieldType
	if fieldType == "" {
		fieldType = "STRING"
	}

	res, err := q.Exec(`
		INSERT INTO additional_info (entity_type, entity_id, field_name, field_value, field_type, version, active, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, 1, 1, ?, ?)`,
		rec.EntityType, rec.EntityID, rec.FieldName, rec.FieldValue, fieldType, now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert additional info: %w", err)
	}

	rec.ID, _ = res.LastInsertId()
	rec.FieldType = fieldType
	rec.Version = 1
	rec.Active = true
	rec.CreatedAt = now
	rec.ModifiedAt = now
	return nil
}

// UpdateValue replaces the value of an existing record and bumps its
// version.
func (r *Repository) UpdateValue(q dbtx, rec *Record, newValue string) error {
	now := time.Now().UTC()
	_, err := q.Exec(`
		UPDATE additional_info SET field_value = ?, version = version + 1, modified_at = ? WHERE id = ?`,
		newValue, now.Unix(), rec.ID)
	if err != nil {
		return fmt.Errorf("failed to update additional info %d: %w", rec.ID, err)
	}

	rec.FieldValue = newValue
	rec.Version++
	rec.ModifiedAt = now
	return nil
}

// SearchByValue returns active records whose value contains the keyword,
// case-insensitively.
func (r *Repository) SearchByValue(entityType, fieldName, keyword string) ([]Record, error) {
	rows, err := r.db.Query(recordSelect+`
		WHERE entity_type = ? AND field_name = ? AND active = 1
		  AND LOWER(field_value) LIKE '%' || LOWER(?) || '%'
		ORDER BY entity_id`,
		entityType, fieldName, keyword)
	if err != nil {
		return nil, fmt.Errorf("failed to search additional info: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec                   Record
			createdAt, modifiedAt int64
		)
		err := rows.Scan(&rec.ID, &rec.EntityType, &rec.EntityID, &rec.FieldName, &rec.FieldValue,
			&rec.FieldType, &rec.Version, &rec.Active, &createdAt, &modifiedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan additional info: %w", err)
		}
		rec.CreatedAt = time.Unix(createdAt, 0).UTC()
		rec.ModifiedAt = time.Unix(modifiedAt, 0).UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

// AppendAudit writes one audit entry. Audit ids are UUIDs so entries can
// be exported and merged without collision.
func (r *Repository) AppendAudit(q dbtx, entry *AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = time.Now().UTC()
	}

	_, err := q.Exec(`
		INSERT INTO additional_info_audit (id, info_id, entity_type, entity_id, field_name, old_value, new_value, changed_by, changed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.InfoID, entry.EntityType, entry.EntityID, entry.FieldName,
		entry.OldValue, entry.NewValue, entry.ChangedBy, entry.ChangedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// AuditTrail returns the change history for one key, newest first.
func (r *Repository) AuditTrail(entityType string, entityID int64, fieldName string) ([]AuditEntry, error) {
	rows, err := r.db.Query(`
		SELECT id, info_id, entity_type, entity_id, field_name, COALESCE(old_value, ''), COALESCE(new_value, ''), COALESCE(changed_by, ''), changed_at
		FROM additional_info_audit
		WHERE entity_type = ? AND entity_id = ? AND field_name = ?
		ORDER BY changed_at DESC, id`,
		entityType, entityID, fieldName)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit trail: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var (
			e         AuditEntry
			changedAt int64
		)
		if err := rows.Scan(&e.ID, &e.InfoID, &e.EntityType, &e.EntityID, &e.FieldName, &e.OldValue, &e.NewValue, &e.ChangedBy, &changedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.ChangedAt = time.Unix(changedAt, 0).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
