package trades

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrallis/swapbook/internal/domain"
	"github.com/mkrallis/swapbook/internal/modules/additionalinfo"
)

func testRouter(t *testing.T) (*chi.Mux, *serviceFixture) {
	t.Helper()

	f := newServiceFixture(t)

	quiet := zerolog.New(nil).Level(zerolog.Disabled)
	infoRepo := additionalinfo.NewRepository(setupBookingDB(t), quiet)
	h := NewHandlers(f.service, additionalinfo.NewService(infoRepo, quiet), quiet)

	r := chi.NewRouter()
	r.Post("/api/trades", h.HandleCreate)
	r.Get("/api/trades", h.HandleList)
	r.Get("/api/trades/rsql", h.HandleSearchRSQL)
	r.Get("/api/trades/{id}", h.HandleGet)
	r.Post("/api/trades/{id}/terminate", h.HandleTerminate)
	return r, f
}

func doRequest(t *testing.T, router *chi.Mux, method, path string, body interface{}, auth *domain.AuthorizationContext) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if auth != nil {
		req = req.WithContext(domain.ContextWithAuth(req.Context(), *auth))
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleCreate(t *testing.T) {
	router, _ := testRouter(t)
	auth := traderCtx()

	w := doRequest(t, router, "POST", "/api/trades", newTradeRequest(), &auth)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var created domain.Trade
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.Equal(t, int64(10000), created.TradeID)
	assert.Equal(t, domain.StatusNew, created.Status)
	assert.Len(t, created.Legs, 2)
}

func TestHandleCreate_Unauthenticated(t *testing.T) {
	router, _ := testRouter(t)

	w := doRequest(t, router, "POST", "/api/trades", newTradeRequest(), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleCreate_ValidationErrors(t *testing.T) {
	router, _ := testRouter(t)
	auth := traderCtx()

	req := newTradeRequest()
	req.Legs = req.Legs[:1]

	w := doRequest(t, router, "POST", "/api/trades", req, &auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Contains(t, body.Errors, "Trade must have at least two legs")
}

func TestHandleGet_NotFoundAndForbidden(t *testing.T) {
	router, _ := testRouter(t)
	auth := traderCtx()

	w := doRequest(t, router, "GET", "/api/trades/99999", nil, &auth)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, router, "POST", "/api/trades", newTradeRequest(), &auth)
	require.Equal(t, http.StatusCreated, w.Code)

	other := domain.AuthorizationContext{LoginID: "asmith", Roles: []string{domain.RoleTrader}}
	w = doRequest(t, router, "GET", "/api/trades/10000", nil, &other)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandleTerminate(t *testing.T) {
	router, _ := testRouter(t)
	auth := traderCtx()

	w := doRequest(t, router, "POST", "/api/trades", newTradeRequest(), &auth)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, router, "POST", "/api/trades/10000/terminate", nil, &auth)
	assert.Equal(t, http.StatusOK, w.Code)

	var trade domain.Trade
	require.NoError(t, json.NewDecoder(w.Body).Decode(&trade))
	assert.Equal(t, domain.StatusTerminated, trade.Status)
}

func TestHandleSearchRSQL_BadQuery(t *testing.T) {
	router, _ := testRouter(t)
	auth := traderCtx()

	w := doRequest(t, router, "GET", "/api/trades/rsql?query=nonsense==1", nil, &auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleInvalidTradeID(t *testing.T) {
	router, _ := testRouter(t)
	auth := traderCtx()

	w := doRequest(t, router, "GET", "/api/trades/not-a-number", nil, &auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
