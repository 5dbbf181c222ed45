// Package market loads and enriches the immutable set of markets the
// ingestion pipeline tracks for the lifetime of the process.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"openbook-candles/internal/rpc"
)

// Descriptor describes one order-book market. It is built once at startup
// from the market file plus one RPC enrichment call and is never mutated
// afterward, so it is safe to share by read-only reference across every
// scraper, worker, and batcher goroutine without synchronization.
type Descriptor struct {
	Name    string `json:"name"`
	Address string `json:"address"`

	BaseDecimals  int `json:"-"`
	QuoteDecimals int `json:"-"`
	BaseLotSize   int64 `json:"-"`
	QuoteLotSize  int64 `json:"-"`
}

// fileEntry mirrors the on-disk JSON shape: an array of {name, address}.
type fileEntry struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// LoadFile parses the market file named by path into a slice of bare
// descriptors (decimals/lot sizes not yet filled in).
func LoadFile(path string) ([]*Descriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read market file: %w", err)
	}

	var entries []fileEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse market file: %w", err)
	}

	descriptors := make([]*Descriptor, 0, len(entries))
	for _, e := range entries {
		descriptors = append(descriptors, &Descriptor{Name: e.Name, Address: e.Address})
	}
	return descriptors, nil
}

// Enrich performs the one RPC call spec.md §1 allows — a batch
// getMultipleAccounts against every market's address — and fills in the
// decimals/lot sizes each descriptor needs for price/size computation.
func Enrich(ctx context.Context, client rpc.Client, descriptors []*Descriptor) error {
	addresses := make([]string, len(descriptors))
	for i, d := range descriptors {
		addresses[i] = d.Address
	}

	states, err := client.GetMultipleAccounts(ctx, addresses)
	if err != nil {
		return fmt.Errorf("failed to enrich market infos: %w", err)
	}
	if len(states) != len(descriptors) {
		return fmt.Errorf("expected %d market accounts, got %d", len(descriptors), len(states))
	}

	for i, d := range descriptors {
		state := states[i]
		d.BaseDecimals = state.BaseDecimals
		d.QuoteDecimals = state.QuoteDecimals
		d.BaseLotSize = state.BaseLotSize
		d.QuoteLotSize = state.QuoteLotSize
	}
	return nil
}

// ByName indexes a descriptor slice by market address for O(1) lookup during
// decode, matching the teacher's target_markets map idiom.
func ByName(descriptors []*Descriptor) map[string]*Descriptor {
	out := make(map[string]*Descriptor, len(descriptors))
	for _, d := range descriptors {
		out[d.Address] = d
	}
	return out
}
