package trades

import (
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrallis/swapbook/internal/domain"
	"github.com/mkrallis/swapbook/internal/events"
	"github.com/mkrallis/swapbook/internal/modules/additionalinfo"
	"github.com/mkrallis/swapbook/internal/modules/authz"
	"github.com/mkrallis/swapbook/internal/modules/cashflows"
	"github.com/mkrallis/swapbook/internal/modules/refdata"
	"github.com/mkrallis/swapbook/internal/modules/validation"
)

type stubResolver struct {
	books    map[string]*refdata.Book
	cptys    map[string]*refdata.Counterparty
	users    map[string]*refdata.User
	statuses map[string]*refdata.TradeStatus
}

func newStubResolver() *stubResolver {
	r := &stubResolver{
		books: map[string]*refdata.Book{
			"rates_desk": {ID: 1, BookName: "RATES_DESK", Active: true},
		},
		cptys: map[string]*refdata.Counterparty{
			"bigbank": {ID: 2, Name: "BigBank", Active: true},
		},
		users: map[string]*refdata.User{
			"jdoe": {ID: 3, LoginID: "jdoe", FirstName: "Jane", UserType: "TRADER", Active: true},
		},
		statuses: map[string]*refdata.TradeStatus{},
	}
	for i, s := range []string{domain.StatusNew, domain.StatusAmended, domain.StatusTerminated, domain.StatusCancelled} {
		r.statuses[s] = &refdata.TradeStatus{ID: int64(i + 1), Status: s, Active: true}
	}
	return r
}

func (r *stubResolver) ResolveBook(name string, id int64) (*refdata.Book, error) {
	return r.books[strings.ToLower(name)], nil
}

func (r *stubResolver) ResolveCounterparty(name string, id int64) (*refdata.Counterparty, error) {
	return r.cptys[strings.ToLower(name)], nil
}

func (r *stubResolver) ResolveUser(name string, id int64) (*refdata.User, error) {
	return r.users[strings.ToLower(name)], nil
}

func (r *stubResolver) ResolveStatus(status string) (*refdata.TradeStatus, error) {
	return r.statuses[strings.ToUpper(status)], nil
}

type stubSettlementStore struct {
	byTrade map[int64]string
	calls   int
	fail    error
}

func (s *stubSettlementStore) UpsertSettlementInstructionsTx(tx *sql.Tx, tradeID int64, text, changedBy string) (*additionalinfo.Record, error) {
	s.calls++
	if s.fail != nil {
		return nil, s.fail
	}
	if s.byTrade == nil {
		s.byTrade = make(map[int64]string)
	}
	s.byTrade[tradeID] = text
	return &additionalinfo.Record{EntityID: tradeID, FieldValue: text}, nil
}

func (s *stubSettlementStore) SettlementInstructions(tradeID int64) (*additionalinfo.Record, error) {
	text, ok := s.byTrade[tradeID]
	if !ok {
		return nil, nil
	}
	return &additionalinfo.Record{EntityID: tradeID, FieldValue: text}, nil
}

type recordingPublisher struct {
	published []events.Event
}

func (p *recordingPublisher) Publish(evt events.Event) {
	p.published = append(p.published, evt)
}

type serviceFixture struct {
	service    *Service
	resolver   *stubResolver
	settlement *stubSettlementStore
	publisher  *recordingPublisher
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	db := setupBookingDB(t)
	quiet := zerolog.New(nil).Level(zerolog.Disabled)

	f := &serviceFixture{
		resolver:   newStubResolver(),
		settlement: &stubSettlementStore{},
		publisher:  &recordingPublisher{},
	}
	f.service = NewService(
		db,
		NewRepository(db, quiet),
		cashflows.NewRepository(db, quiet),
		cashflows.NewGenerator(false, quiet),
		validation.NewEngine(quiet),
		authz.NewEngine(true, quiet),
		f.resolver,
		f.settlement,
		f.publisher,
		quiet,
	)
	return f
}

func traderCtx() domain.AuthorizationContext {
	return domain.AuthorizationContext{LoginID: "jdoe", Roles: []string{domain.RoleTrader}}
}

func newTradeRequest() *domain.Trade {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	maturity := today.AddDate(1, 0, 0)
	rate := decimal.NewFromFloat(3.5)

	return &domain.Trade{
		TradeDate:        &today,
		StartDate:        &today,
		MaturityDate:     &maturity,
		BookName:         "RATES_DESK",
		CounterpartyName: "BigBank",
		TraderLogin:      "jdoe",
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

func TestCreateBooksVersionOne(t *testing.T) {
	f := newServiceFixture(t)

	created, err := f.service.Create(traderCtx(), newTradeRequest(), "")
	require.NoError(t, err)

	assert.Equal(t, int64(10000), created.TradeID)
	assert.Equal(t, 1, created.Version)
	assert.Equal(t, domain.StatusNew, created.Status)
	assert.True(t, created.Active)
	assert.Equal(t, int64(1), created.BookID)
	assert.Equal(t, "BigBank", created.CounterpartyName)
	assert.Equal(t, "jdoe", created.InputterLogin)

	require.Len(t, created.Legs, 2)
	assert.NotEmpty(t, created.Legs[0].Cashflows)
	for _, flow := range created.Legs[1].Cashflows {
		assert.True(t, flow.Value.IsZero())
	}

	require.Len(t, f.publisher.published, 1)
	assert.Equal(t, events.TypeTradeCreated, f.publisher.published[0].Type)
	assert.Equal(t, "jdoe", f.publisher.published[0].Actor)
}

func TestCreateStoresSettlementInstructions(t *testing.T) {
	f := newServiceFixture(t)

	created, err := f.service.Create(traderCtx(), newTradeRequest(), "Settle via CHAPS, ref desk 4421")
	require.NoError(t, err)

	assert.Equal(t, 1, f.settlement.calls)
	assert.Equal(t, "Settle via CHAPS, ref desk 4421", f.settlement.byTrade[created.TradeID])
}

func TestCreateRollsBackWhenSettlementWriteFails(t *testing.T) {
	f := newServiceFixture(t)
	f.settlement.fail = errors.New("disk full")

	_, err := f.service.Create(traderCtx(), newTradeRequest(), "Settle via CHAPS, ref desk 4421")
	require.Error(t, err)

	// The booking must not survive a failed instruction write.
	trade, err := f.service.repo.FindActiveByTradeID(10000)
	require.NoError(t, err)
	assert.Nil(t, trade)
	assert.Empty(t, f.publisher.published)
}

func TestCreateRejectsInvalidTrade(t *testing.T) {
	f := newServiceFixture(t)

	req := newTradeRequest()
	req.Legs = req.Legs[:1]

	_, err := f.service.Create(traderCtx(), req, "")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "Trade must have at least two legs")
	assert.Empty(t, f.publisher.published)
}

func TestCreateRejectsUnknownBook(t *testing.T) {
	f := newServiceFixture(t)

	req := newTradeRequest()
	req.BookName = "NO_SUCH_BOOK"

	_, err := f.service.Create(traderCtx(), req, "")
	require.ErrorIs(t, err, domain.ErrReferenceData)
	assert.Contains(t, err.Error(), "book not found or not set")
}

func TestCreateDeniedForSupport(t *testing.T) {
	f := newServiceFixture(t)

	ctx := domain.AuthorizationContext{LoginID: "helpdesk", Roles: []string{domain.RoleSupport}}
	_, err := f.service.Create(ctx, newTradeRequest(), "")
	require.ErrorIs(t, err, domain.ErrForbidden)
	assert.Contains(t, err.Error(), "SUPPORT cannot CREATE trades")
}

func TestAmendOpensNewVersion(t *testing.T) {
	f := newServiceFixture(t)

	created, err := f.service.Create(traderCtx(), newTradeRequest(), "")
	require.NoError(t, err)

	amendment := newTradeRequest()
	newRate := decimal.NewFromFloat(4.25)
	amendment.Legs[0].Rate = &newRate

	amended, err := f.service.Amend(traderCtx(), created.TradeID, amendment, "")
	require.NoError(t, err)

	assert.Equal(t, created.TradeID, amended.TradeID)
	assert.Equal(t, 2, amended.Version)
	assert.Equal(t, domain.StatusAmended, amended.Status)

	history, err := f.service.History(traderCtx(), created.TradeID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.False(t, history[0].Active)
	assert.True(t, history[1].Active)

	active, err := f.service.Get(traderCtx(), created.TradeID)
	require.NoError(t, err)
	require.NotNil(t, active.Legs[0].Rate)
	assert.True(t, active.Legs[0].Rate.Equal(newRate))
	assert.NotEmpty(t, active.Legs[0].Cashflows)
}

func TestAmendUnknownTradeIsNotFound(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.Amend(traderCtx(), 99999, newTradeRequest(), "")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTerminateKeepsVersion(t *testing.T) {
	f := newServiceFixture(t)

	created, err := f.service.Create(traderCtx(), newTradeRequest(), "")
	require.NoError(t, err)

	terminated, err := f.service.Terminate(traderCtx(), created.TradeID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTerminated, terminated.Status)
	assert.Equal(t, 1, terminated.Version)

	require.Len(t, f.publisher.published, 2)
	assert.Equal(t, events.TypeTradeTerminated, f.publisher.published[1].Type)
}

func TestDeleteCancels(t *testing.T) {
	f := newServiceFixture(t)

	created, err := f.service.Create(traderCtx(), newTradeRequest(), "")
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(traderCtx(), created.TradeID))

	active, err := f.service.Get(traderCtx(), created.TradeID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, active.Status)

	err = f.service.Delete(traderCtx(), 77777)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEditDeniedForOtherTrader(t *testing.T) {
	f := newServiceFixture(t)

	created, err := f.service.Create(traderCtx(), newTradeRequest(), "")
	require.NoError(t, err)

	other := domain.AuthorizationContext{LoginID: "asmith", Roles: []string{domain.RoleTrader}}
	_, err = f.service.Terminate(other, created.TradeID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.service.Get(other, created.TradeID)
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestListScopedToOwnTrades(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.Create(traderCtx(), newTradeRequest(), "")
	require.NoError(t, err)

	f.resolver.users["asmith"] = &refdata.User{ID: 4, LoginID: "asmith", UserType: "TRADER", Active: true}
	otherCtx := domain.AuthorizationContext{LoginID: "asmith", Roles: []string{domain.RoleTrader}}
	otherReq := newTradeRequest()
	otherReq.TraderLogin = "asmith"
	_, err = f.service.Create(otherCtx, otherReq, "")
	require.NoError(t, err)

	mine, err := f.service.List(traderCtx())
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "jdoe", mine[0].TraderLogin)

	super := domain.AuthorizationContext{LoginID: "ops", Roles: []string{domain.RoleSuperuser}}
	all, err := f.service.List(super)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSearchCriteria(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.Create(traderCtx(), newTradeRequest(), "")
	require.NoError(t, err)

	matched, err := f.service.Search(traderCtx(), SearchCriteria{Counterparty: "bigb"})
	require.NoError(t, err)
	assert.Len(t, matched, 1)

	matched, err = f.service.Search(traderCtx(), SearchCriteria{Counterparty: "acme"})
	require.NoError(t, err)
	assert.Empty(t, matched)

	matched, err = f.service.Search(traderCtx(), SearchCriteria{Status: "new", Book: "rates"})
	require.NoError(t, err)
	assert.Len(t, matched, 1)
}

func TestSearchRSQL(t *testing.T) {
	f := newServiceFixture(t)

	created, err := f.service.Create(traderCtx(), newTradeRequest(), "")
	require.NoError(t, err)

	matched, err := f.service.SearchRSQL(traderCtx(), "counterparty.name==*bank*;status==NEW")
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, created.TradeID, matched[0].TradeID)

	matched, err = f.service.SearchRSQL(traderCtx(), "status==CANCELLED")
	require.NoError(t, err)
	assert.Empty(t, matched)

	_, err = f.service.SearchRSQL(traderCtx(), "nonsense==1")
	require.Error(t, err)
}

func TestCreateWithMissingStatusRow(t *testing.T) {
	f := newServiceFixture(t)
	delete(f.resolver.statuses, domain.StatusAmended)

	created, err := f.service.Create(traderCtx(), newTradeRequest(), "")
	require.NoError(t, err)

	_, err = f.service.Amend(traderCtx(), created.TradeID, newTradeRequest(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrReferenceData))
}
