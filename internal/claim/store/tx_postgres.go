// Package store provides the PostgreSQL transaction boundary for the claim
// coordinator. The per-aggregate stores live with their features; this
// package only owns the transaction mechanics.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	claimservice "wayfarer/internal/claim/service"
	dErrors "wayfarer/pkg/domain-errors"
	"wayfarer/pkg/platform/sentinel"
	txcontext "wayfarer/pkg/platform/tx"
)

const defaultClaimTxTimeout = 5 * time.Second

// PostgresTx runs claim transactions at SERIALIZABLE isolation. The profile
// read, the discovery check, and both aggregate writes all happen on the one
// sql.Tx carried in the context, so Postgres either commits the whole claim
// or aborts it, and a lost write race surfaces as a serialization failure
// that the coordinator re-runs.
type PostgresTx struct {
	db      *sql.DB
	stores  claimservice.Stores
	timeout time.Duration
}

func NewPostgresTx(db *sql.DB, stores claimservice.Stores) *PostgresTx {
	return &PostgresTx{db: db, stores: stores}
}

func (t *PostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context, st claimservice.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultClaimTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return classify(err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx), t.stores); err != nil {
		return classify(err)
	}

	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	return nil
}

// classify maps driver errors to the sentinels the coordinator understands.
// Serialization failures (40001), deadlocks (40P01), and unique violations
// (23505, two transactions lazily creating the same location) are all "you
// lost the race, run again" facts.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "23505":
			return errors.Join(sentinel.ErrConflict, err)
		}
	}
	return err
}
