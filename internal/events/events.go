// Package events carries lifecycle notifications from the booking engine
// to in-process subscribers, chiefly the websocket broadcast endpoint.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event types emitted by the booking engine.
const (
	TypeTradeCreated      = "trade.created"
	TypeTradeAmended      = "trade.amended"
	TypeTradeTerminated   = "trade.terminated"
	TypeTradeCancelled    = "trade.cancelled"
	TypeSettlementUpdated = "trade.settlement_updated"
)

// Event is one lifecycle notification.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	TradeID   int64     `json:"tradeId"`
	Version   int       `json:"version,omitempty"`
	Status    string    `json:"status,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Manager fans events out to subscribers. Slow subscribers are skipped
// rather than blocking the publisher; a lifecycle write must never stall
// on a notification channel.
type Manager struct {
	mu   sync.RWMutex
	subs map[int64]chan Event
	next int64
	log  zerolog.Logger
}

// NewManager creates an event manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		subs: make(map[int64]chan Event),
		log:  log.With().Str("component", "events").Logger(),
	}
}

// Publish delivers the event to every subscriber. The event id and
// timestamp are filled in if unset.
func (m *Manager) Publish(evt Event) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for id, ch := range m.subs {
		select {
		case ch <- evt:
		default:
			m.log.Warn().Int64("subscriber", id).Str("type", evt.Type).Msg("Dropping event for slow subscriber")
		}
	}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function. The channel is buffered; unread events beyond the
// buffer are dropped for that subscriber.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.next
	m.next++
	ch := make(chan Event, 32)
	m.subs[id] = ch

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(ch)
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}
