package ingest

import (
	"context"
	"log"
	"sync"
	"time"

	"openbook-candles/internal/candles"
	"openbook-candles/internal/decoder"
	"openbook-candles/internal/market"
	"openbook-candles/internal/rpc"
	"openbook-candles/internal/store"
	"openbook-candles/internal/telemetry"
)

// emptyBatchPause is how long a partition worker waits before re-polling
// its queue when the last batch was empty, grounded on spec.md §4.3.2's
// 1-second empty-batch pause.
const emptyBatchPause = time.Second

const (
	batchSize        = 50
	fetchConcurrency = 10
)

// BatchSource is the subset of store.Transactions a partition worker reads
// its work queue from.
type BatchSource interface {
	FetchUnprocessedBatch(ctx context.Context, partition, limit int) ([]store.TxDescriptor, error)
}

// Committer is the subset of store.Commit a worker uses to atomically
// persist one batch's decoded fills and mark its signatures processed.
type Committer interface {
	CommitBatch(ctx context.Context, partition int, fills []store.PersistedFill, processedSignatures []string) error
}

// Worker drains one partition of the transaction queue: fetch a batch,
// decode each transaction's logs into fills, then atomically commit the
// fills and mark the batch processed.
type Worker struct {
	partition    int
	rpc          rpc.Client
	transactions BatchSource
	commit       Committer
	markets      map[string]*market.Descriptor // keyed by market address
	metrics      *telemetry.Metrics
}

// NewWorker builds a Worker for one partition id.
func NewWorker(partition int, client rpc.Client, transactions BatchSource, commit Committer, markets map[string]*market.Descriptor, metrics *telemetry.Metrics) *Worker {
	return &Worker{partition: partition, rpc: client, transactions: transactions, commit: commit, markets: markets, metrics: metrics}
}

// Run drains this worker's partition until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		batch, err := w.transactions.FetchUnprocessedBatch(ctx, w.partition, batchSize)
		if err != nil {
			log.Printf("[Worker %d] failed to fetch batch: %v", w.partition, err)
			time.Sleep(emptyBatchPause)
			continue
		}

		if len(batch) == 0 {
			time.Sleep(emptyBatchPause)
			continue
		}

		if err := w.processBatch(ctx, batch); err != nil {
			log.Printf("[Worker %d] failed to process batch: %v", w.partition, err)
			time.Sleep(emptyBatchPause)
		}
	}
}

func (w *Worker) processBatch(ctx context.Context, batch []store.TxDescriptor) error {
	type fetched struct {
		sig string
		tx  *rpc.Transaction
		err error
	}

	results := make(chan fetched, len(batch))
	semaphore := make(chan struct{}, fetchConcurrency)
	var wg sync.WaitGroup

	for _, item := range batch {
		wg.Add(1)
		go func(signature string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			tx, err := w.rpc.GetTransaction(ctx, signature)
			results <- fetched{sig: signature, tx: tx, err: err}
		}(item.Signature)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	targets := make(map[string]struct{}, len(w.markets))
	for addr := range w.markets {
		targets[addr] = struct{}{}
	}

	var fills []store.PersistedFill
	var processedSignatures []string

	for r := range results {
		if r.err != nil {
			log.Printf("[Worker %d] failed to fetch transaction %s: %v", w.partition, r.sig, r.err)
			w.metrics.RPCErrorsTotal.WithLabelValues("getTransaction").Inc()
			continue
		}
		w.metrics.TransactionsTotal.Inc()

		if r.tx.Err {
			processedSignatures = append(processedSignatures, r.sig)
			continue
		}

		rawFills := decoder.Decode(r.tx.LogMessages, targets)
		for _, rf := range rawFills {
			descriptor := w.markets[rf.Market]
			price, size := candles.FillPriceSize(rf, descriptor.BaseDecimals, descriptor.QuoteDecimals)

			fills = append(fills, store.PersistedFill{
				Signature:         r.sig,
				LogIndex:          rf.LogIndex,
				Market:            rf.Market,
				OpenOrders:        rf.OpenOrders,
				OpenOrdersOwner:   rf.OpenOrdersOwner,
				Bid:               rf.Bid,
				Maker:             rf.Maker,
				NativeQtyPaid:     rf.NativeQtyPaid,
				NativeQtyReceived: rf.NativeQtyReceived,
				NativeFeeOrRebate: rf.NativeFeeOrRebate,
				OrderID:           rf.OrderID,
				OwnerSlot:         rf.OwnerSlot,
				FeeTier:           rf.FeeTier,
				ClientOrderID:     rf.ClientOrderID,
				ReferrerRebate:    rf.ReferrerRebate,
				BlockTime:         r.tx.BlockTime,
				Price:             price,
				Size:              size,
			})
			w.metrics.FillsTotal.WithLabelValues(rf.Market).Inc()
		}

		processedSignatures = append(processedSignatures, r.sig)
	}

	return w.commit.CommitBatch(ctx, w.partition, fills, processedSignatures)
}
