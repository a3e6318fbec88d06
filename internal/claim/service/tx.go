package service

import (
	"context"
	"sync"
	"time"

	"wayfarer/internal/events"
	"wayfarer/internal/location"
	"wayfarer/internal/profile"
	dErrors "wayfarer/pkg/domain-errors"
)

// ProfileStore is the transactional handle over the user aggregate. Get must
// return the authoritative state as of the transaction snapshot, never a
// cached view, and ApplyClaim must move points, the visited set, and the
// counter as one mutation.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*profile.Profile, error)
	ApplyClaim(ctx context.Context, userID, cityID string, award int64) error
}

// LocationStore is the transactional handle over the shared city aggregate.
type LocationStore interface {
	Get(ctx context.Context, cityID string) (*location.Location, error)
	Create(ctx context.Context, loc *location.Location) error
	RecordVisit(ctx context.Context, cityID string, award int64, at time.Time) error
}

// Stores bundles the transactional handles a claim touches. Events may be nil
// when no outbox is wired.
type Stores struct {
	Profiles  ProfileStore
	Locations LocationStore
	Events    events.Store
}

// Tx is the transactional boundary for claims. Implementations guarantee
// snapshot-isolated read-then-write for the span of fn and all-or-nothing
// commit of fn's writes. A lost write race surfaces as sentinel.ErrConflict
// (possibly wrapped), which tells the coordinator to re-run fn from scratch.
type Tx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, st Stores) error) error
}

// defaultTxTimeout is the maximum duration of one claim transaction attempt.
const defaultTxTimeout = 5 * time.Second

// MemoryTx provides the transaction boundary over the in-memory stores with a
// coarse lock. Serializing every claim through one mutex is crude but gives
// exactly the isolation the coordinator needs, and the in-memory stores only
// back unit tests and dev mode.
type MemoryTx struct {
	mu      sync.Mutex
	stores  Stores
	timeout time.Duration
}

func NewMemoryTx(stores Stores) *MemoryTx {
	return &MemoryTx{stores: stores}
}

func (t *MemoryTx) RunInTx(ctx context.Context, fn func(ctx context.Context, st Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Check again after acquiring the lock.
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx, t.stores)
}
