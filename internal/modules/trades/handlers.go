package trades

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/mkrallis/swapbook/internal/domain"
	"github.com/mkrallis/swapbook/internal/modules/additionalinfo"
)

// Handlers contains the HTTP handlers for the trade lifecycle API.
type Handlers struct {
	service    *Service
	settlement *additionalinfo.Service
	log        zerolog.Logger
}

// NewHandlers creates the trade API handlers.
func NewHandlers(service *Service, settlement *additionalinfo.Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service:    service,
		settlement: settlement,
		log:        log.With().Str("handler", "trades").Logger(),
	}
}

// tradeRequest is the booking payload. Settlement instructions travel
// with the trade but are stored and versioned separately.
type tradeRequest struct {
	domain.Trade
	SettlementInstructions string `json:"settlementInstructions,omitempty"`
}

// HandleCreate books a new trade.
// POST /api/trades
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	auth, ok := domain.AuthFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthenticated", http.StatusUnauthorized)
		return
	}

	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.service.Create(auth, &req.Trade, req.SettlementInstructions)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// HandleList returns the caller's visible active trades.
// GET /api/trades
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	auth, ok := domain.AuthFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthenticated", http.StatusUnauthorized)
		return
	}

	trades, err := h.service.List(auth)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if trades == nil {
		trades = []domain.Trade{}
	}
	h.writeJSON(w, http.StatusOK, trades)
}

// HandleGet returns the active version of a trade with its cashflows.
// GET /api/trades/{id}
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	auth, tradeID, ok := h.authAndID(w, r)
	if !ok {
		return
	}

	trade, err := h.service.Get(auth, tradeID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, trade)
}

// HandleAmend books a new version of an existing trade.
// PUT /api/trades/{id}
func (h *Handlers) HandleAmend(w http.ResponseWriter, r *http.Request) {
	auth, tradeID, ok := h.authAndID(w, r)
	if !ok {
		return
	}

	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	amended, err := h.service.Amend(auth, tradeID, &req.Trade, req.SettlementInstructions)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, amended)
}

// HandleTerminate terminates the active version in place.
// POST /api/trades/{id}/terminate
func (h *Handlers) HandleTerminate(w http.ResponseWriter, r *http.Request) {
	h.closeOut(w, r, h.service.Terminate)
}

// HandleCancel cancels the active version in place.
// POST /api/trades/{id}/cancel
func (h *Handlers) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.closeOut(w, r, h.service.Cancel)
}

// HandleDelete cancels the trade; nothing is physically removed.
// DELETE /api/trades/{id}
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	auth, tradeID, ok := h.authAndID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(auth, tradeID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleHistory returns the full version chain of a trade.
// GET /api/trades/{id}/history
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	auth, tradeID, ok := h.authAndID(w, r)
	if !ok {
		return
	}

	versions, err := h.service.History(auth, tradeID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, versions)
}

// HandleCashflows returns the projected cashflows of the active version.
// GET /api/trades/{id}/cashflows
func (h *Handlers) HandleCashflows(w http.ResponseWriter, r *http.Request) {
	auth, tradeID, ok := h.authAndID(w, r)
	if !ok {
		return
	}

	trade, err := h.service.Get(auth, tradeID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	flows := make([]domain.Cashflow, 0)
	for _, leg := range trade.Legs {
		flows = append(flows, leg.Cashflows...)
	}
	h.writeJSON(w, http.StatusOK, flows)
}

// HandleSearch filters visible trades by structured criteria.
// GET /api/trades/search?counterparty=&book=&trader=&status=&startDate=&endDate=
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	auth, ok := domain.AuthFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthenticated", http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	criteria := SearchCriteria{
		Counterparty: q.Get("counterparty"),
		Book:         q.Get("book"),
		Trader:       q.Get("trader"),
		Status:       q.Get("status"),
	}

	var err error
	if criteria.StartDate, err = parseQueryParamDate(q.Get("startDate")); err != nil {
		http.Error(w, "Invalid startDate, expected yyyy-MM-dd", http.StatusBadRequest)
		return
	}
	if criteria.EndDate, err = parseQueryParamDate(q.Get("endDate")); err != nil {
		http.Error(w, "Invalid endDate, expected yyyy-MM-dd", http.StatusBadRequest)
		return
	}

	trades, err := h.service.Search(auth, criteria)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, trades)
}

// HandleSearchRSQL filters visible trades by an RSQL expression.
// GET /api/trades/rsql?query=status==LIVE;counterparty.name==*bank*
func (h *Handlers) HandleSearchRSQL(w http.ResponseWriter, r *http.Request) {
	auth, ok := domain.AuthFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthenticated", http.StatusUnauthorized)
		return
	}

	trades, err := h.service.SearchRSQL(auth, r.URL.Query().Get("query"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, trades)
}

// HandleGetSettlementInstructions returns the active settlement
// instructions of a trade, or 404 when none are set.
// GET /api/trades/{id}/settlement-instructions
func (h *Handlers) HandleGetSettlementInstructions(w http.ResponseWriter, r *http.Request) {
	auth, tradeID, ok := h.authAndID(w, r)
	if !ok {
		return
	}

	if _, err := h.service.Get(auth, tradeID); err != nil {
		h.writeError(w, err)
		return
	}

	record, err := h.settlement.SettlementInstructions(tradeID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if record == nil {
		http.Error(w, "No settlement instructions set", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

// HandlePutSettlementInstructions creates or updates the settlement
// instructions of a trade with an audit entry.
// PUT /api/trades/{id}/settlement-instructions
func (h *Handlers) HandlePutSettlementInstructions(w http.ResponseWriter, r *http.Request) {
	auth, tradeID, ok := h.authAndID(w, r)
	if !ok {
		return
	}

	if _, err := h.service.Get(auth, tradeID); err != nil {
		h.writeError(w, err)
		return
	}

	var body struct {
		SettlementInstructions string `json:"settlementInstructions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	record, err := h.settlement.UpsertSettlementInstructions(tradeID, body.SettlementInstructions, auth.LoginID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

// HandleSettlementAudit returns the change history of a trade's
// settlement instructions, newest first.
// GET /api/trades/{id}/settlement-instructions/audit
func (h *Handlers) HandleSettlementAudit(w http.ResponseWriter, r *http.Request) {
	auth, tradeID, ok := h.authAndID(w, r)
	if !ok {
		return
	}

	if _, err := h.service.Get(auth, tradeID); err != nil {
		h.writeError(w, err)
		return
	}

	trail, err := h.settlement.SettlementAuditTrail(tradeID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if trail == nil {
		trail = []additionalinfo.AuditEntry{}
	}
	h.writeJSON(w, http.StatusOK, trail)
}

func (h *Handlers) closeOut(w http.ResponseWriter, r *http.Request, fn func(domain.AuthorizationContext, int64) (*domain.Trade, error)) {
	auth, tradeID, ok := h.authAndID(w, r)
	if !ok {
		return
	}

	trade, err := fn(auth, tradeID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, trade)
}

func (h *Handlers) authAndID(w http.ResponseWriter, r *http.Request) (domain.AuthorizationContext, int64, bool) {
	auth, ok := domain.AuthFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthenticated", http.StatusUnauthorized)
		return domain.AuthorizationContext{}, 0, false
	}

	tradeID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid trade id", http.StatusBadRequest)
		return domain.AuthorizationContext{}, 0, false
	}
	return auth, tradeID, true
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps domain errors onto HTTP statuses. Validation failures
// return the full message list so the UI can show every violation.
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": verr.Errors})
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrReferenceData),
		errors.Is(err, domain.ErrInvalidQuery),
		errors.Is(err, domain.ErrInvalidOperator),
		errors.Is(err, domain.ErrUnknownField):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error().Err(err).Msg("Unhandled API error")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func parseQueryParamDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
