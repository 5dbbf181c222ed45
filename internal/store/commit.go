package store

import (
	"context"
	"fmt"

	"openbook-candles/internal/database"
)

// Commit is the single atomic write a partition worker performs per batch:
// insert every decoded fill, then flip every processed signature's queue
// row to processed=true, all in one transaction. Either both sides land or
// neither does, so a crash between the two can never strand an orphaned
// fill or leave a signature permanently reprocessed.
//
// Grounded on original_source/src/database/insert.rs::add_fills_atomically.
type Commit struct {
	db *database.DB
}

// NewCommit builds a Commit unit over db.
func NewCommit(db *database.DB) *Commit {
	return &Commit{db: db}
}

// CommitBatch atomically inserts fills and marks every signature in
// processedSignatures as processed within partition, in a single
// transaction.
func (c *Commit) CommitBatch(ctx context.Context, partition int, fills []PersistedFill, processedSignatures []string) error {
	tx, err := c.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin commit transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertFillsBatch(ctx, tx, fills); err != nil {
		return err
	}

	if len(processedSignatures) > 0 {
		_, err := tx.Exec(ctx, `
			UPDATE transactions
			SET processed = true
			WHERE worker_partition = $1 AND signature = ANY($2)`,
			partition, processedSignatures)
		if err != nil {
			return fmt.Errorf("failed to mark signatures processed: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}
