package store

import (
	"context"
	"fmt"

	"openbook-candles/internal/database"

	"github.com/jackc/pgx/v5"
)

// Transactions is the partitioned-queue repository.
type Transactions struct {
	db *database.DB
}

// NewTransactions builds a Transactions repository over db.
func NewTransactions(db *database.DB) *Transactions {
	return &Transactions{db: db}
}

// InsertDiscovered queues newly-discovered signatures as unprocessed rows.
// ON CONFLICT DO NOTHING makes re-running the scraper over already-seen
// signatures (the live tail and a backfill pass can overlap) a no-op.
func (t *Transactions) InsertDiscovered(ctx context.Context, rows []TxDescriptor) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO transactions (signature, program_pk, block_datetime, slot, err, processed, worker_partition)
			VALUES ($1,$2,$3,$4,$5,false,$6)
			ON CONFLICT (signature, worker_partition) DO NOTHING`,
			r.Signature, r.ProgramPK, r.BlockDatetime, int64(r.Slot), r.Err, r.WorkerPartition)
	}

	results := t.db.Pool.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert discovered transaction: %w", err)
		}
	}
	return nil
}

// FetchUnprocessedBatch returns up to limit unprocessed, non-errored rows
// from one partition, oldest slot first — the batch a partition worker
// fetches transactions for.
func (t *Transactions) FetchUnprocessedBatch(ctx context.Context, partition, limit int) ([]TxDescriptor, error) {
	rows, err := t.db.Pool.Query(ctx, `
		SELECT signature, program_pk, block_datetime, slot, err, processed, worker_partition
		FROM transactions
		WHERE worker_partition = $1 AND processed = false AND err = false
		ORDER BY slot ASC
		LIMIT $2`, partition, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unprocessed batch for partition %d: %w", partition, err)
	}
	defer rows.Close()

	var out []TxDescriptor
	for rows.Next() {
		var d TxDescriptor
		var slot int64
		if err := rows.Scan(&d.Signature, &d.ProgramPK, &d.BlockDatetime, &slot, &d.Err, &d.Processed, &d.WorkerPartition); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		d.Slot = uint64(slot)
		out = append(out, d)
	}
	return out, rows.Err()
}

// UnprocessedCount returns how many rows remain unprocessed across every
// partition, feeding the fills_queue_length gauge (spec.md §6).
func (t *Transactions) UnprocessedCount(ctx context.Context) (int64, error) {
	var count int64
	err := t.db.Pool.QueryRow(ctx, `
		SELECT count(*) FROM transactions WHERE processed = false AND err = false`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unprocessed transactions: %w", err)
	}
	return count, nil
}
