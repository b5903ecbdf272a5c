// Package events provides a small in-process event bus.
//
// Handlers run synchronously on the emitting goroutine, after the emitter has
// finished its own work, so a slow or failing handler never affects the
// outcome already reported to the caller.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType represents different event types
type EventType string

const (
	PortfolioIngested    EventType = "PORTFOLIO_INGESTED"
	IngestionFailed      EventType = "INGESTION_FAILED"
	UploadArchived       EventType = "UPLOAD_ARCHIVED"
	MaintenanceCompleted EventType = "MAINTENANCE_COMPLETED"
	ErrorOccurred        EventType = "ERROR_OCCURRED"
)

// Event represents a system event
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data"`
	Type      EventType `json:"type"`
	Module    string    `json:"module"`
}

// Handler reacts to an emitted event
type Handler func(ctx context.Context, event Event)

// Manager handles event emission, logging and fan-out to subscribers
type Manager struct {
	handlers map[EventType][]Handler
	log      zerolog.Logger
	mu       sync.RWMutex
}

// NewManager creates a new event manager
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		handlers: make(map[EventType][]Handler),
		log:      log.With().Str("service", "events").Logger(),
	}
}

// Subscribe registers h for events of type t
func (m *Manager) Subscribe(t EventType, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[t] = append(m.handlers[t], h)
}

// Emit logs the event and invokes every subscriber in registration order.
// A panicking handler is logged and does not stop the others.
func (m *Manager) Emit(ctx context.Context, module string, data EventData) {
	event := Event{
		Type:      data.EventType(),
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		eventJSON = []byte(`{}`)
	}
	m.log.Info().
		Str("event_type", string(event.Type)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")

	m.mu.RLock()
	handlers := append([]Handler(nil), m.handlers[event.Type]...)
	m.mu.RUnlock()

	for _, h := range handlers {
		m.dispatch(ctx, h, event)
	}
}

func (m *Manager) dispatch(ctx context.Context, h Handler, event Event) {
	defer func() {
		if p := recover(); p != nil {
			m.log.Error().
				Interface("panic", p).
				Str("event_type", string(event.Type)).
				Msg("Event handler panicked")
		}
	}()
	h(ctx, event)
}
