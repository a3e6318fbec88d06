package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"wayfarer/internal/events"
)

// InMemoryOutbox records events in order, for unit tests and dev mode.
type InMemoryOutbox struct {
	mu      sync.Mutex
	entries []events.Entry
}

func NewInMemory() *InMemoryOutbox {
	return &InMemoryOutbox{}
}

func (s *InMemoryOutbox) Append(_ context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.entries = append(s.entries, events.Entry{
		ID:        event.ID,
		Event:     event,
		Payload:   payload,
		CreatedAt: event.At,
	})
	return nil
}

func (s *InMemoryOutbox) Pending(_ context.Context, limit int) ([]events.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []events.Entry
	for _, e := range s.entries {
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryOutbox) MarkPublished(_ context.Context, ids []uuid.UUID, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	published := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		published[id] = true
	}
	kept := s.entries[:0]
	for _, e := range s.entries {
		if !published[e.ID] {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return nil
}

// Events returns a snapshot of the recorded events, oldest first.
func (s *InMemoryOutbox) Events() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.Event, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Event
	}
	return out
}
