// Package trades implements the trade lifecycle: booking, amendment,
// termination and cancellation, each gated by validation and
// authorization, with cashflow schedules regenerated on every new
// version.
package trades

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mkrallis/swapbook/internal/database"
	"github.com/mkrallis/swapbook/internal/domain"
	"github.com/mkrallis/swapbook/internal/events"
	"github.com/mkrallis/swapbook/internal/modules/additionalinfo"
	"github.com/mkrallis/swapbook/internal/modules/authz"
	"github.com/mkrallis/swapbook/internal/modules/cashflows"
	"github.com/mkrallis/swapbook/internal/modules/refdata"
	"github.com/mkrallis/swapbook/internal/modules/validation"
)

// ReferenceResolver is the slice of the refdata repository the lifecycle
// needs.
type ReferenceResolver interface {
	ResolveBook(name string, id int64) (*refdata.Book, error)
	ResolveCounterparty(name string, id int64) (*refdata.Counterparty, error)
	ResolveUser(name string, id int64) (*refdata.User, error)
	ResolveStatus(status string) (*refdata.TradeStatus, error)
}

// SettlementStore persists settlement instructions alongside trades.
// The upsert joins the caller's booking transaction so instructions
// commit or roll back with the trade version that carried them.
type SettlementStore interface {
	UpsertSettlementInstructionsTx(tx *sql.Tx, tradeID int64, text, changedBy string) (*additionalinfo.Record, error)
	SettlementInstructions(tradeID int64) (*additionalinfo.Record, error)
}

// Publisher emits lifecycle events.
type Publisher interface {
	Publish(events.Event)
}

var _ ReferenceResolver = (*refdata.Repository)(nil)
var _ SettlementStore = (*additionalinfo.Service)(nil)
var _ Publisher = (*events.Manager)(nil)

// Service orchestrates the trade lifecycle. Every mutating call runs
// validate -> authorize -> persist -> project cashflows -> publish, and
// the deactivate-old/insert-new pair of an amendment commits atomically
// so the one-active-version invariant holds for concurrent readers.
type Service struct {
	bookingDB  *sql.DB
	repo       *Repository
	flows      *cashflows.Repository
	generator  *cashflows.Generator
	validator  *validation.Engine
	authorizer *authz.Engine
	refs       ReferenceResolver
	settlement SettlementStore
	publisher  Publisher
	log        zerolog.Logger
}

// NewService wires the lifecycle service.
func NewService(
	bookingDB *sql.DB,
	repo *Repository,
	flows *cashflows.Repository,
	generator *cashflows.Generator,
	validator *validation.Engine,
	authorizer *authz.Engine,
	refs ReferenceResolver,
	settlement SettlementStore,
	publisher Publisher,
	log zerolog.Logger,
) *Service {
	return &Service{
		bookingDB:  bookingDB,
		repo:       repo,
		flows:      flows,
		generator:  generator,
		validator:  validator,
		authorizer: authorizer,
		refs:       refs,
		settlement: settlement,
		publisher:  publisher,
		log:        log.With().Str("service", "trades").Logger(),
	}
}

// Create books a new trade at version 1 with status NEW. A missing
// business id is allocated sequentially. Settlement instructions, when
// supplied, are stored with the booking and audited.
func (s *Service) Create(ctx domain.AuthorizationContext, trade *domain.Trade, settlementText string) (*domain.Trade, error) {
	if err := s.authorizer.CheckAction(ctx, domain.ActionCreate); err != nil {
		return nil, err
	}

	refs, err := s.resolveReferences(trade)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(trade, refs, settlementText); err != nil {
		return nil, err
	}
	if err := s.requireBookingRefs(refs); err != nil {
		return nil, err
	}
	if _, err := s.requireStatus(domain.StatusNew); err != nil {
		return nil, err
	}

	trade.Version = 1
	trade.Active = true
	trade.Status = domain.StatusNew
	if trade.TraderLogin == "" && refs.Trader != nil {
		trade.TraderLogin = refs.Trader.LoginID
	}
	if trade.InputterLogin == "" {
		trade.InputterLogin = ctx.LoginID
	}

	err = database.WithTransaction(s.bookingDB, func(tx *sql.Tx) error {
		if trade.TradeID == 0 {
			id, err := s.repo.NextTradeID(tx)
			if err != nil {
				return err
			}
			trade.TradeID = id
		}
		if err := s.repo.InsertVersion(tx, trade); err != nil {
			return err
		}
		if err := s.projectCashflows(tx, trade); err != nil {
			return err
		}
		if strings.TrimSpace(settlementText) != "" {
			if _, err := s.settlement.UpsertSettlementInstructionsTx(tx, trade.TradeID, settlementText, ctx.LoginID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(events.Event{
		Type:    events.TypeTradeCreated,
		TradeID: trade.TradeID,
		Version: trade.Version,
		Status:  trade.Status,
		Actor:   ctx.LoginID,
	})

	s.log.Info().
		Int64("tradeId", trade.TradeID).
		Str("book", trade.BookName).
		Str("counterparty", trade.CounterpartyName).
		Msg("Trade created")
	return trade, nil
}

// Amend books a new version of an existing trade: the current active row
// is deactivated and the amended state inserted at version+1 with status
// AMENDED, in one transaction. Reference data is re-resolved and the
// cashflow schedule regenerated; the prior version's cashflows remain as
// history.
func (s *Service) Amend(ctx domain.AuthorizationContext, tradeID int64, trade *domain.Trade, settlementText string) (*domain.Trade, error) {
	if err := s.authorizer.CheckAction(ctx, domain.ActionAmend); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindActiveByTradeID(tradeID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, domain.NotFoundf("trade %d", tradeID)
	}
	if !s.authorizer.CanEdit(ctx, existing) {
		return nil, domain.Forbiddenf("insufficient privileges to amend trade %d", tradeID)
	}

	refs, err := s.resolveReferences(trade)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(trade, refs, settlementText); err != nil {
		return nil, err
	}
	if err := s.requireBookingRefs(refs); err != nil {
		return nil, err
	}

	if _, err := s.requireStatus(domain.StatusAmended); err != nil {
		return nil, err
	}

	trade.TradeID = tradeID
	trade.Version = existing.Version + 1
	trade.Active = true
	trade.Status = domain.StatusAmended
	if trade.TraderLogin == "" {
		trade.TraderLogin = existing.TraderLogin
	}
	if trade.InputterLogin == "" {
		trade.InputterLogin = ctx.LoginID
	}

	err = database.WithTransaction(s.bookingDB, func(tx *sql.Tx) error {
		if err := s.repo.Deactivate(tx, existing.RowID); err != nil {
			return err
		}
		if err := s.repo.InsertVersion(tx, trade); err != nil {
			return err
		}
		if err := s.projectCashflows(tx, trade); err != nil {
			return err
		}
		if strings.TrimSpace(settlementText) != "" {
			if _, err := s.settlement.UpsertSettlementInstructionsTx(tx, tradeID, settlementText, ctx.LoginID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(events.Event{
		Type:    events.TypeTradeAmended,
		TradeID: tradeID,
		Version: trade.Version,
		Status:  trade.Status,
		Actor:   ctx.LoginID,
	})

	s.log.Info().Int64("tradeId", tradeID).Int("version", trade.Version).Msg("Trade amended")
	return trade, nil
}

// Terminate moves the active version to TERMINATED in place. No new
// version is opened; only the status and touch timestamp change.
func (s *Service) Terminate(ctx domain.AuthorizationContext, tradeID int64) (*domain.Trade, error) {
	return s.closeOut(ctx, tradeID, domain.ActionTerminate, domain.StatusTerminated, events.TypeTradeTerminated)
}

// Cancel moves the active version to CANCELLED in place.
func (s *Service) Cancel(ctx domain.AuthorizationContext, tradeID int64) (*domain.Trade, error) {
	return s.closeOut(ctx, tradeID, domain.ActionCancel, domain.StatusCancelled, events.TypeTradeCancelled)
}

// Delete cancels the trade. There is no physical delete; the version
// chain is the audit trail.
func (s *Service) Delete(ctx domain.AuthorizationContext, tradeID int64) error {
	if existing, err := s.repo.FindActiveByTradeID(tradeID); err != nil {
		return err
	} else if existing == nil {
		return domain.NotFoundf("trade %d", tradeID)
	}
	_, err := s.Cancel(ctx, tradeID)
	return err
}

func (s *Service) closeOut(ctx domain.AuthorizationContext, tradeID int64, action domain.Action, status, eventType string) (*domain.Trade, error) {
	if err := s.authorizer.CheckAction(ctx, action); err != nil {
		return nil, err
	}

	trade, err := s.repo.FindActiveByTradeID(tradeID)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, domain.NotFoundf("trade %d", tradeID)
	}
	if !s.authorizer.CanEdit(ctx, trade) {
		return nil, domain.Forbiddenf("insufficient privileges to %s trade %d", strings.ToLower(string(action)), tradeID)
	}

	if _, err := s.requireStatus(status); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(trade.RowID, status); err != nil {
		return nil, err
	}
	trade.Status = status

	s.publisher.Publish(events.Event{
		Type:    eventType,
		TradeID: tradeID,
		Version: trade.Version,
		Status:  status,
		Actor:   ctx.LoginID,
	})

	s.log.Info().Int64("tradeId", tradeID).Str("status", status).Msg("Trade closed out")
	return trade, nil
}

// Get returns the active version of a trade with legs and cashflows.
// Callers without view rights on the trade get Forbidden, distinct from
// NotFound for ids with no active version.
func (s *Service) Get(ctx domain.AuthorizationContext, tradeID int64) (*domain.Trade, error) {
	trade, err := s.repo.FindActiveByTradeID(tradeID)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, domain.NotFoundf("trade %d", tradeID)
	}
	if !s.authorizer.CanView(ctx, trade) {
		return nil, domain.Forbiddenf("insufficient privileges to view trade %d", tradeID)
	}

	for i := range trade.Legs {
		flows, err := s.flows.FindByLeg(trade.Legs[i].ID)
		if err != nil {
			return nil, err
		}
		trade.Legs[i].Cashflows = flows
	}
	return trade, nil
}

// History returns the full version chain of a trade, oldest first.
func (s *Service) History(ctx domain.AuthorizationContext, tradeID int64) ([]domain.Trade, error) {
	versions, err := s.repo.History(tradeID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, domain.NotFoundf("trade %d", tradeID)
	}
	if !s.authorizer.CanView(ctx, &versions[len(versions)-1]) {
		return nil, domain.Forbiddenf("insufficient privileges to view trade %d", tradeID)
	}
	return versions, nil
}

// List returns the active trades visible to the caller. Traders without
// an elevated view privilege only see their own bookings.
func (s *Service) List(ctx domain.AuthorizationContext) ([]domain.Trade, error) {
	if s.authorizer.SeesAllTrades(ctx) {
		return s.repo.ListActive("")
	}
	return s.repo.ListActive(ctx.LoginID)
}

// resolveReferences looks up the trade's book, counterparty and trader,
// writing resolved ids and canonical names back onto the trade.
func (s *Service) resolveReferences(trade *domain.Trade) (validation.References, error) {
	var refs validation.References

	book, err := s.refs.ResolveBook(trade.BookName, trade.BookID)
	if err != nil {
		return refs, err
	}
	if book != nil {
		trade.BookID = book.ID
		trade.BookName = book.BookName
	}
	refs.Book = book

	cpty, err := s.refs.ResolveCounterparty(trade.CounterpartyName, trade.CounterpartyID)
	if err != nil {
		return refs, err
	}
	if cpty != nil {
		trade.CounterpartyID = cpty.ID
		trade.CounterpartyName = cpty.Name
	}
	refs.Counterparty = cpty

	if trade.TraderLogin != "" {
		trader, err := s.refs.ResolveUser(trade.TraderLogin, 0)
		if err != nil {
			return refs, err
		}
		if trader != nil {
			trade.TraderLogin = trader.LoginID
		}
		refs.Trader = trader
	}
	return refs, nil
}

// requireBookingRefs enforces the hard reference requirements after
// validation has produced its friendlier messages.
func (s *Service) requireBookingRefs(refs validation.References) error {
	if refs.Book == nil {
		return fmt.Errorf("book not found or not set: %w", domain.ErrReferenceData)
	}
	if refs.Counterparty == nil {
		return fmt.Errorf("counterparty not found or not set: %w", domain.ErrReferenceData)
	}
	return nil
}

// requireStatus fails loudly when a lifecycle status row is missing from
// reference data rather than writing a status no lookup knows about.
func (s *Service) requireStatus(status string) (*refdata.TradeStatus, error) {
	st, err := s.refs.ResolveStatus(status)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("%s status not found: %w", status, domain.ErrReferenceData)
	}
	return st, nil
}

// projectCashflows generates and stores the schedule for every leg of a
// new trade version.
func (s *Service) projectCashflows(tx *sql.Tx, trade *domain.Trade) error {
	if trade.StartDate == nil || trade.MaturityDate == nil {
		return nil
	}
	for i := range trade.Legs {
		leg := &trade.Legs[i]
		flows, err := s.generator.Generate(leg, *trade.StartDate, *trade.MaturityDate)
		if err != nil {
			return err
		}
		if err := s.flows.InsertAll(tx, leg.ID, flows); err != nil {
			return err
		}
		leg.Cashflows = flows
	}
	return nil
}
