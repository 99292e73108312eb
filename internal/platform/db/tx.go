package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// workflowTxOptions runs document workflows at ReadCommitted. Workflows
// serialize on FOR UPDATE row locks and then aggregate the append-only
// movement log; every statement needs a snapshot taken after the lock is
// granted, so the balance read includes movements committed by the previous
// lock holder. A snapshot pinned for the whole transaction would be taken
// before the lock wait and let two concurrent workflows pass a sufficiency
// check against the same pre-commit balance.
var workflowTxOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// WithTx executes fn inside one workflow transaction: commit when fn
// returns nil, roll back otherwise.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, workflowTxOptions)
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}
