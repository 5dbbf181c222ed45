// Scheduler runs one goroutine per market, assembling 1-minute candles from
// fills and then rolling every higher resolution up from its constituent,
// on a fixed interval — grounded on original_source's
// src/worker/candle_batching/mod.rs (batch_for_market/batch_inner) for the
// pass structure, and on the teacher's
// services/data_collection_service.go ticker/select loop for the Go
// idiom.
package candles

import (
	"context"
	"log"
	"time"
)

// Store is the persistence surface the batcher needs. internal/store
// implements it; keeping the interface here (rather than importing
// internal/store) keeps this package dependency-free of the database
// driver, matching spec.md §9's "independent tasks coordinate only through
// the database" — the batcher only ever sees this narrow contract.
type Store interface {
	LatestCandle(ctx context.Context, market string, resolution Resolution) (*Candle, error)
	FillsSince(ctx context.Context, market string, since time.Time) ([]Fill, error)
	CandlesSince(ctx context.Context, market string, resolution Resolution, since time.Time) ([]Candle, error)
	UpsertCandles(ctx context.Context, candles []Candle) error
}

// RunMarketBatcher runs until ctx is cancelled, running one batching pass
// every interval. A failed pass is logged and retried on the next tick
// rather than aborting the goroutine — the scheduler is restart-free by
// construction since each pass is independently idempotent.
func RunMarketBatcher(ctx context.Context, market string, store Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := batchInner(ctx, market, store); err != nil {
				log.Printf("[CandleBatcher][%s] pass failed: %v", market, err)
			}
		}
	}
}

// batchInner runs the 1-minute pass, then rolls every higher resolution up
// in ascending order (each depends on the one below it having just been
// written).
func batchInner(ctx context.Context, market string, store Store) error {
	if err := batch1mPass(ctx, market, store); err != nil {
		return err
	}

	for _, resolution := range HigherOrderResolutions {
		if err := batchHigherPass(ctx, market, resolution, store); err != nil {
			return err
		}
	}

	return nil
}

func batch1mPass(ctx context.Context, market string, store Store) error {
	latest, err := store.LatestCandle(ctx, market, R1m)
	if err != nil {
		return err
	}

	var since time.Time
	if latest != nil {
		since = latest.EndTime
	}

	fills, err := store.FillsSince(ctx, market, since)
	if err != nil {
		return err
	}

	newCandles := BuildMinuteCandles(market, latest, fills, time.Now().UTC())
	if len(newCandles) == 0 {
		return nil
	}

	return store.UpsertCandles(ctx, newCandles)
}

func batchHigherPass(ctx context.Context, market string, resolution Resolution, store Store) error {
	constituentRes, ok := resolution.Constituent()
	if !ok {
		return nil
	}

	latest, err := store.LatestCandle(ctx, market, resolution)
	if err != nil {
		return err
	}

	var since time.Time
	if latest != nil {
		since = latest.EndTime
	}

	constituents, err := store.CandlesSince(ctx, market, constituentRes, since)
	if err != nil {
		return err
	}

	newCandles := BuildHigherOrderCandles(market, resolution, latest, constituents, time.Now().UTC())
	if len(newCandles) == 0 {
		return nil
	}

	return store.UpsertCandles(ctx, newCandles)
}
