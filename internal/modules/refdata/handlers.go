package refdata

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// Handlers serves the reference data API. The full snapshot endpoint is
// backed by the cache database so trade entry screens get one cheap read.
type Handlers struct {
	repo  *Repository
	cache *SnapshotCache
	log   zerolog.Logger
}

// NewHandlers creates the reference data handlers.
func NewHandlers(repo *Repository, cache *SnapshotCache, log zerolog.Logger) *Handlers {
	return &Handlers{
		repo:  repo,
		cache: cache,
		log:   log.With().Str("handler", "refdata").Logger(),
	}
}

// HandleSnapshot returns the full reference data set. The cached copy is
// served when present; a miss rebuilds it from the reference database.
// GET /api/refdata
func (h *Handlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") != "true" {
		if snap, err := h.cache.Load(); err == nil && snap != nil {
			h.writeJSON(w, snap)
			return
		}
	}

	snap, err := h.repo.Snapshot()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build refdata snapshot")
		http.Error(w, "Failed to load reference data", http.StatusInternalServerError)
		return
	}
	if err := h.cache.Save(snap); err != nil {
		h.log.Warn().Err(err).Msg("Failed to cache refdata snapshot")
	}
	h.writeJSON(w, snap)
}

// HandleBooks returns all active books.
// GET /api/refdata/books
func (h *Handlers) HandleBooks(w http.ResponseWriter, r *http.Request) {
	h.list(w, func() (interface{}, error) { return h.repo.ListBooks() })
}

// HandleCounterparties returns all active counterparties.
// GET /api/refdata/counterparties
func (h *Handlers) HandleCounterparties(w http.ResponseWriter, r *http.Request) {
	h.list(w, func() (interface{}, error) { return h.repo.ListCounterparties() })
}

// HandleCurrencies returns all active currencies.
// GET /api/refdata/currencies
func (h *Handlers) HandleCurrencies(w http.ResponseWriter, r *http.Request) {
	h.list(w, func() (interface{}, error) { return h.repo.ListCurrencies() })
}

// HandleIndices returns all active floating-rate indices.
// GET /api/refdata/indices
func (h *Handlers) HandleIndices(w http.ResponseWriter, r *http.Request) {
	h.list(w, func() (interface{}, error) { return h.repo.ListIndices() })
}

// HandleSchedules returns all active payment schedules.
// GET /api/refdata/schedules
func (h *Handlers) HandleSchedules(w http.ResponseWriter, r *http.Request) {
	h.list(w, func() (interface{}, error) { return h.repo.ListSchedules() })
}

// HandleConventions returns all active business day conventions.
// GET /api/refdata/conventions
func (h *Handlers) HandleConventions(w http.ResponseWriter, r *http.Request) {
	h.list(w, func() (interface{}, error) { return h.repo.ListBDCs() })
}

// HandleStatuses returns all trade statuses.
// GET /api/refdata/statuses
func (h *Handlers) HandleStatuses(w http.ResponseWriter, r *http.Request) {
	h.list(w, func() (interface{}, error) { return h.repo.ListStatuses() })
}

func (h *Handlers) list(w http.ResponseWriter, fetch func() (interface{}, error)) {
	payload, err := fetch()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list reference data")
		http.Error(w, "Failed to load reference data", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, payload)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
