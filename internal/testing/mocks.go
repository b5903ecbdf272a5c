package testing

import (
	"context"
	"sync"

	"github.com/capitalx/capitalx/internal/events"
)

// RecordingEmitter captures emitted events for assertions
type RecordingEmitter struct {
	mu     sync.Mutex
	events []events.EventData
}

// NewRecordingEmitter creates a new recording emitter
func NewRecordingEmitter() *RecordingEmitter {
	return &RecordingEmitter{}
}

// Emit records data
func (r *RecordingEmitter) Emit(ctx context.Context, module string, data events.EventData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, data)
}

// Events returns a copy of everything recorded so far
func (r *RecordingEmitter) Events() []events.EventData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.EventData(nil), r.events...)
}

// OfType returns the recorded events of type t
func (r *RecordingEmitter) OfType(t events.EventType) []events.EventData {
	var out []events.EventData
	for _, e := range r.Events() {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}
