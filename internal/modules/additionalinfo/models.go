// Package additionalinfo stores free-form key/value extensions on
// business entities, chiefly trade settlement instructions, with a full
// audit trail of every change.
package additionalinfo

import "time"

// Well-known keys.
const (
	EntityTypeTrade            = "TRADE"
	FieldSettlementInstruction = "SETTLEMENT_INSTRUCTIONS"
)

// Record is one active key/value extension on an entity. Version counts
// in-place updates of the value.
type Record struct {
	ID         int64     `json:"id"`
	EntityType string    `json:"entityType"`
	EntityID   int64     `json:"entityId"`
	FieldName  string    `json:"fieldName"`
	FieldValue string    `json:"fieldValue"`
	FieldType  string    `json:"fieldType"`
	Version    int       `json:"version"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// AuditEntry records one change to a Record. Entries are append-only.
type AuditEntry struct {
	ID         string    `json:"id"`
	InfoID     int64     `json:"infoId"`
	EntityType string    `json:"entityType"`
	EntityID   int64     `json:"entityId"`
	FieldName  string    `json:"fieldName"`
	OldValue   string    `json:"oldValue,omitempty"`
	NewValue   string    `json:"newValue,omitempty"`
	ChangedBy  string    `json:"changedBy"`
	ChangedAt  time.Time `json:"changedAt"`
}
