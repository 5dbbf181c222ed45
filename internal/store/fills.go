package store

import (
	"context"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
)

// insertFillsBatch queues one parameterized insert per fill on tx, relying on
// ON CONFLICT (signature, log_index) DO NOTHING for idempotent re-insertion
// after a worker crash and retry (spec.md §7). Unlike
// original_source/src/database/insert.rs, which hand-builds the SQL
// string, this uses pgx.Batch with bound parameters throughout.
func insertFillsBatch(ctx context.Context, tx pgx.Tx, fills []PersistedFill) error {
	if len(fills) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, f := range fills {
		orderID := new(big.Int).SetBytes(reverse(f.OrderID[:]))
		batch.Queue(`
			INSERT INTO fills (
				signature, log_index, market, open_orders, open_orders_owner, bid, maker,
				native_qty_paid, native_qty_received, native_fee_or_rebate, order_id,
				owner_slot, fee_tier, client_order_id, referrer_rebate, block_time, price, size
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
			ON CONFLICT (signature, log_index) DO NOTHING`,
			f.Signature, f.LogIndex, f.Market, f.OpenOrders, f.OpenOrdersOwner, f.Bid, f.Maker,
			int64(f.NativeQtyPaid), int64(f.NativeQtyReceived), int64(f.NativeFeeOrRebate), orderID.String(),
			f.OwnerSlot, f.FeeTier, nullableU64(f.ClientOrderID), nullableU64(f.ReferrerRebate),
			f.BlockTime, f.Price, f.Size)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for range fills {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert fill: %w", err)
		}
	}
	return nil
}

func nullableU64(v *uint64) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
