// Package store holds the persistence contracts: the transactional commit
// unit, the candle upsert, the partitioned transaction queue, and the fill
// range queries the candle engine reads from.
//
// Grounded on repositories/candle_repository.go (pgx.Batch upsert idiom,
// pgx.ErrNoRows handling) and original_source/src/database/insert.rs
// (add_fills_atomically's transaction boundary), translated from the
// original's hand-built SQL strings to parameterized pgx calls.
package store

import "time"

// PersistedFill is one decoded fill ready to be written to the fills
// table: the decoder's native quantities plus the price/size the candle
// engine's formula derived from them, and the identifiers needed for the
// (signature, log_index) primary key and idempotent re-insertion.
type PersistedFill struct {
	Signature         string
	LogIndex          int
	Market            string
	OpenOrders        string
	OpenOrdersOwner   string
	Bid               bool
	Maker             bool
	NativeQtyPaid     uint64
	NativeQtyReceived uint64
	NativeFeeOrRebate uint64
	OrderID           [16]byte
	OwnerSlot         uint8
	FeeTier           uint8
	ClientOrderID     *uint64
	ReferrerRebate    *uint64
	BlockTime         time.Time
	Price             float64
	Size              float64
}

// TxDescriptor is one row of the partitioned transaction queue: a
// signature discovered by the scraper, awaiting fetch-and-decode by its
// assigned partition worker.
type TxDescriptor struct {
	Signature       string
	ProgramPK       string
	BlockDatetime   time.Time
	Slot            uint64
	Err             bool
	Processed       bool
	WorkerPartition int
}
