// Package events defines the domain events emitted by the claim engine and
// the transactional outbox contract that carries them. Events are written to
// the outbox inside the claim transaction and relayed to Kafka by a
// background worker, so an event exists if and only if its claim committed.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type labels an event.
type Type string

const (
	TypeClaimCommitted Type = "claim.committed"
	TypeHomeSet        Type = "home.set"
	TypeProfileCreated Type = "profile.created"
)

// Event is one domain event.
type Event struct {
	ID             uuid.UUID `json:"id"`
	Type           Type      `json:"type"`
	UserID         string    `json:"user_id"`
	CityID         string    `json:"city_id,omitempty"`
	Points         int64     `json:"points,omitempty"`
	FirstDiscovery bool      `json:"first_discovery,omitempty"`
	At             time.Time `json:"at"`
}

// Store is the outbox port. Append must join an ambient store transaction
// when one is present so the event commits or aborts with the claim.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Outbox extends Store with the relay side: fetching pending entries and
// acknowledging published ones.
type Outbox interface {
	Store
	Pending(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Entry is a persisted outbox row awaiting publication.
type Entry struct {
	ID        uuid.UUID
	Event     Event
	Payload   []byte
	CreatedAt time.Time
}
