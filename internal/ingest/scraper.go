// Package ingest implements the signature scraper and partition workers:
// the two halves of the transaction-processing stage spec.md §4.3
// describes. Grounded on original_source's
// src/worker/trade_fetching/scrape.rs for algorithm and the teacher's
// services/data_collection_service.go for the Go ticker/semaphore idiom.
package ingest

import (
	"context"
	"log"
	"time"

	"openbook-candles/internal/rpc"
	"openbook-candles/internal/store"
)

// scrapePause is how long the scraper waits after each live-tail pass and
// after a failed fetch, grounded on original_source/src/worker/trade_fetching/scrape.rs's
// 250ms sleep.
const scrapePause = 250 * time.Millisecond

const scrapeLimit = 1000

// TransactionQueue is the subset of store.Transactions the scraper needs:
// recording newly discovered signatures. Kept as an interface here (rather
// than importing the concrete *store.Transactions type directly into the
// field) so the scraper's discovery loop can be tested against an in-memory
// fake, matching internal/candles.Store's "narrow contract" pattern.
type TransactionQueue interface {
	InsertDiscovered(ctx context.Context, rows []store.TxDescriptor) error
}

// Scraper discovers signatures involving the tracked program and queues
// them for partitioned processing.
type Scraper struct {
	rpc           rpc.Client
	transactions  TransactionQueue
	programID     string
	numPartitions int
}

// NewScraper builds a Scraper.
func NewScraper(client rpc.Client, transactions TransactionQueue, programID string, numPartitions int) *Scraper {
	return &Scraper{rpc: client, transactions: transactions, programID: programID, numPartitions: numPartitions}
}

// RunLiveTail walks forward indefinitely: each pass asks for signatures
// newer than the last one seen, queues them, and waits scrapePause before
// the next pass (whether or not anything new was found, and after a failed
// fetch or queue write), matching spec.md §4.3.1's "pause on empty, retry
// on transient fault" policy.
func (s *Scraper) RunLiveTail(ctx context.Context) {
	var until string

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		sigs, err := s.rpc.GetSignaturesForAddress(ctx, s.programID, "", until, scrapeLimit)
		if err != nil {
			log.Printf("[Scraper] live tail fetch failed: %v", err)
			time.Sleep(scrapePause)
			continue
		}

		if len(sigs) == 0 {
			time.Sleep(scrapePause)
			continue
		}

		if err := s.queue(ctx, sigs); err != nil {
			log.Printf("[Scraper] failed to queue discovered signatures: %v", err)
			time.Sleep(scrapePause)
			continue
		}

		// Newest-first results: the first entry becomes the next pass's
		// exclusive lower bound (until), so only strictly newer signatures
		// are fetched.
		until = sigs[0].Signature

		time.Sleep(scrapePause)
	}
}

// RunBackfill walks backward from the newest signature in pages of up to
// scrapeLimit, passing each page's oldest signature as the next page's
// before cursor, and stops once a page's oldest entry is older than
// olderThan or a page comes back empty — spec.md §4.3.1's bounded backfill.
func (s *Scraper) RunBackfill(ctx context.Context, olderThan time.Time) error {
	var before string

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		sigs, err := s.rpc.GetSignaturesForAddress(ctx, s.programID, before, "", scrapeLimit)
		if err != nil {
			log.Printf("[Scraper] backfill fetch failed: %v", err)
			time.Sleep(scrapePause)
			continue
		}

		if len(sigs) == 0 {
			return nil
		}

		if err := s.queue(ctx, sigs); err != nil {
			return err
		}

		oldest := sigs[len(sigs)-1]
		if oldest.BlockTime.Before(olderThan) {
			return nil
		}
		before = oldest.Signature
	}
}

// queue upserts every discovered signature into the transaction queue,
// including ones the cluster itself marked as errored — spec.md §4.3.1
// requires err'd signatures be recorded with err=true (so a partition
// worker's FetchUnprocessedBatch, which filters on err=false, never sees
// them) rather than silently dropped, since dropping would make the queue
// under-report what the scraper actually observed on-chain.
func (s *Scraper) queue(ctx context.Context, sigs []rpc.SignatureInfo) error {
	rows := make([]store.TxDescriptor, 0, len(sigs))
	for _, sig := range sigs {
		rows = append(rows, store.TxDescriptor{
			Signature:       sig.Signature,
			ProgramPK:       s.programID,
			BlockDatetime:   sig.BlockTime,
			Slot:            sig.Slot,
			Err:             sig.Err,
			Processed:       false,
			WorkerPartition: int(sig.Slot % uint64(s.numPartitions)),
		})
	}
	return s.transactions.InsertDiscovered(ctx, rows)
}
