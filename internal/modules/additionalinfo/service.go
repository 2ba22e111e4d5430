package additionalinfo

import (
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/mkrallis/swapbook/internal/database"
	"github.com/mkrallis/swapbook/internal/domain"
	"github.com/mkrallis/swapbook/internal/modules/validation"
)

// Service owns the settlement-instruction workflow: validate, upsert the
// single active record per trade, and record every change in the audit
// trail.
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates an additional-info service.
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "additionalinfo").Logger(),
	}
}

// UpsertSettlementInstructions creates or updates the settlement
// instructions for a trade and appends an audit entry attributed to
// changedBy. The text is validated with the settlement rules before
// anything is written; record and audit entry commit in one
// transaction.
func (s *Service) UpsertSettlementInstructions(tradeID int64, text, changedBy string) (*Record, error) {
	var target *Record
	err := database.WithTransaction(s.repo.db, func(tx *sql.Tx) error {
		var err error
		target, err = s.UpsertSettlementInstructionsTx(tx, tradeID, text, changedBy)
		return err
	})
	if err != nil {
		return nil, err
	}
	return target, nil
}

// UpsertSettlementInstructionsTx is the upsert for callers already
// inside a booking transaction, so instructions land or roll back with
// the trade version they were supplied with.
func (s *Service) UpsertSettlementInstructionsTx(tx *sql.Tx, tradeID int64, text, changedBy string) (*Record, error) {
	if errs := validation.ValidateSettlementInstructions(text); len(errs) > 0 {
		return nil, domain.NewValidationError(errs)
	}

	existing, err := s.repo.FindActive(tx, EntityTypeTrade, tradeID, FieldSettlementInstruction)
	if err != nil {
		return nil, err
	}

	var (
		target   *Record
		oldValue string
	)
	if existing != nil {
		oldValue = existing.FieldValue
		if err := s.repo.UpdateValue(tx, existing, text); err != nil {
			return nil, err
		}
		target = existing
	} else {
		target = &Record{
			EntityType: EntityTypeTrade,
			EntityID:   tradeID,
			FieldName:  FieldSettlementInstruction,
			FieldValue: text,
		}
		if err := s.repo.Insert(tx, target); err != nil {
			return nil, err
		}
	}

	err = s.repo.AppendAudit(tx, &AuditEntry{
		InfoID:     target.ID,
		EntityType: EntityTypeTrade,
		EntityID:   tradeID,
		FieldName:  FieldSettlementInstruction,
		OldValue:   oldValue,
		NewValue:   text,
		ChangedBy:  changedBy,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("tradeId", tradeID).
		Int("version", target.Version).
		Str("changedBy", changedBy).
		Msg("Settlement instructions saved")
	return target, nil
}

// SettlementInstructions returns the active instructions for a trade, or
// nil when none are stored. Absence is not an error; the field is
// optional.
func (s *Service) SettlementInstructions(tradeID int64) (*Record, error) {
	return s.repo.FindActive(s.repo.db, EntityTypeTrade, tradeID, FieldSettlementInstruction)
}

// SearchSettlementInstructions finds trades whose instructions contain
// the keyword.
func (s *Service) SearchSettlementInstructions(keyword string) ([]Record, error) {
	return s.repo.SearchByValue(EntityTypeTrade, FieldSettlementInstruction, keyword)
}

// SettlementAuditTrail returns the change history for a trade's
// settlement instructions, newest first.
func (s *Service) SettlementAuditTrail(tradeID int64) ([]AuditEntry, error) {
	return s.repo.AuditTrail(EntityTypeTrade, tradeID, FieldSettlementInstruction)
}
