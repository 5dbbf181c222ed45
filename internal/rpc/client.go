// Package rpc defines the boundary the ingestion pipeline uses to talk to
// an on-chain RPC node. spec.md places the concrete client out of core
// scope; this interface is the contract the core consumes.
package rpc

import (
	"context"
	"time"
)

// SignatureInfo mirrors one entry of getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      uint64
	BlockTime time.Time
	Err       bool
}

// Transaction is one fetched transaction: its slot, block time, whether it
// failed on-chain, and its log messages in emission order.
type Transaction struct {
	Signature   string
	Slot        uint64
	BlockTime   time.Time
	Err         bool
	LogMessages []string
}

// MarketState holds the subset of an OpenBook market account the candle
// engine needs: token decimals and lot sizes, used to convert native
// lamport-denominated quantities into human-scaled price/size.
type MarketState struct {
	BaseDecimals  int
	QuoteDecimals int
	BaseLotSize   int64
	QuoteLotSize  int64
}

// Client is the on-chain RPC surface the ingestion pipeline depends on.
type Client interface {
	// GetSignaturesForAddress returns signatures involving addr, walking
	// backward from before (exclusive) toward until (exclusive, empty
	// means "as far back as the node will serve"), newest first, bounded
	// by limit.
	GetSignaturesForAddress(ctx context.Context, addr string, before, until string, limit int) ([]SignatureInfo, error)

	// GetTransaction fetches one confirmed transaction's log messages.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetMultipleAccounts fetches and decodes the market account state for
	// each address, in the same order as the input slice.
	GetMultipleAccounts(ctx context.Context, addresses []string) ([]MarketState, error)
}
