package ingest

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"testing"
	"time"

	"openbook-candles/internal/market"
	"openbook-candles/internal/rpc"
	"openbook-candles/internal/store"
	"openbook-candles/internal/telemetry"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// testMetrics is registered once for the whole package's test binary —
// telemetry.New() registers against the global Prometheus registry, and a
// second call would panic on duplicate registration.
var testMetrics = telemetry.New()

const fillLogPrefix = "Program data: "

var fillDiscriminator = []byte{0x96, 0xd7, 0x1a, 0x37, 0x21, 0x2c, 0x41, 0x91}

func repeatByte(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func marketAddr(fill byte) string {
	return base64.StdEncoding.EncodeToString(repeatByte(fill, 32))
}

// encodeFillLogLine builds a minimal valid wire-format fill event log line,
// mirroring internal/decoder's wire layout (duplicated here rather than
// exported from the decoder package, since test fixtures are not part of
// its public contract).
func encodeFillLogLine(market byte, paid, received, fee uint64) string {
	var body []byte
	body = append(body, fillDiscriminator...)
	body = append(body, repeatByte(market, 32)...) // market
	body = append(body, repeatByte(0xAA, 32)...)    // open_orders
	body = append(body, repeatByte(0xBB, 32)...)    // open_orders_owner
	body = append(body, 1, 1)                       // bid=true, maker=true

	u64 := make([]byte, 8)
	binary.LittleEndian.PutUint64(u64, paid)
	body = append(body, u64...)
	binary.LittleEndian.PutUint64(u64, received)
	body = append(body, u64...)
	binary.LittleEndian.PutUint64(u64, fee)
	body = append(body, u64...)

	body = append(body, make([]byte, 16)...) // order_id
	body = append(body, 0, 1)                // owner_slot, fee_tier
	body = append(body, 0)                   // client_order_id: None
	body = append(body, 0)                   // referrer_rebate: None

	return fillLogPrefix + base64.StdEncoding.EncodeToString(body)
}

type fakeBatchSource struct{}

func (f *fakeBatchSource) FetchUnprocessedBatch(ctx context.Context, partition, limit int) ([]store.TxDescriptor, error) {
	return nil, nil
}

type fakeCommitter struct {
	fills               []store.PersistedFill
	processedSignatures []string
	err                 error
}

func (f *fakeCommitter) CommitBatch(ctx context.Context, partition int, fills []store.PersistedFill, processedSignatures []string) error {
	if f.err != nil {
		return f.err
	}
	f.fills = append(f.fills, fills...)
	f.processedSignatures = append(f.processedSignatures, processedSignatures...)
	return nil
}

type fakeWorkerRPC struct {
	getTransaction func(ctx context.Context, signature string) (*rpc.Transaction, error)
}

func (f *fakeWorkerRPC) GetSignaturesForAddress(ctx context.Context, addr, before, until string, limit int) ([]rpc.SignatureInfo, error) {
	return nil, nil
}

func (f *fakeWorkerRPC) GetTransaction(ctx context.Context, signature string) (*rpc.Transaction, error) {
	return f.getTransaction(ctx, signature)
}

func (f *fakeWorkerRPC) GetMultipleAccounts(ctx context.Context, addresses []string) ([]rpc.MarketState, error) {
	return nil, nil
}

func TestWorkerProcessBatchDecodesAndCommitsAtomically(t *testing.T) {
	addr := marketAddr(0x01)
	markets := map[string]*market.Descriptor{
		addr: {Name: "m1", Address: addr, BaseDecimals: 6, QuoteDecimals: 6},
	}

	blockTime := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rpcClient := &fakeWorkerRPC{
		getTransaction: func(ctx context.Context, signature string) (*rpc.Transaction, error) {
			return &rpc.Transaction{
				Signature: signature,
				BlockTime: blockTime,
				LogMessages: []string{
					"Program log: Instruction: NewOrderV3", // index 0, not a fill
					encodeFillLogLine(0x01, 200_000_000, 4_204_317, 1_683), // index 1
				},
			}, nil
		},
	}

	committer := &fakeCommitter{}
	w := NewWorker(0, rpcClient, &fakeBatchSource{}, committer, markets, testMetrics)

	batch := []store.TxDescriptor{{Signature: "sig1", Slot: 100}}
	if err := w.processBatch(context.Background(), batch); err != nil {
		t.Fatalf("processBatch failed: %v", err)
	}

	if len(committer.fills) != 1 {
		t.Fatalf("expected 1 committed fill, got %d", len(committer.fills))
	}
	fill := committer.fills[0]
	if fill.LogIndex != 1 {
		t.Fatalf("expected log index 1 (position in the full log sequence), got %d", fill.LogIndex)
	}
	if fill.Signature != "sig1" {
		t.Fatalf("expected fill signature sig1, got %s", fill.Signature)
	}
	if len(committer.processedSignatures) != 1 || committer.processedSignatures[0] != "sig1" {
		t.Fatalf("expected sig1 to be marked processed, got %v", committer.processedSignatures)
	}
}

func TestWorkerProcessBatchMarksErroredTransactionProcessedWithoutFills(t *testing.T) {
	addr := marketAddr(0x02)
	markets := map[string]*market.Descriptor{
		addr: {Name: "m2", Address: addr, BaseDecimals: 6, QuoteDecimals: 6},
	}

	rpcClient := &fakeWorkerRPC{
		getTransaction: func(ctx context.Context, signature string) (*rpc.Transaction, error) {
			return &rpc.Transaction{Signature: signature, Err: true}, nil
		},
	}

	committer := &fakeCommitter{}
	w := NewWorker(1, rpcClient, &fakeBatchSource{}, committer, markets, testMetrics)

	batch := []store.TxDescriptor{{Signature: "failed-tx", Slot: 5}}
	if err := w.processBatch(context.Background(), batch); err != nil {
		t.Fatalf("processBatch failed: %v", err)
	}

	if len(committer.fills) != 0 {
		t.Fatalf("expected no fills for an errored transaction, got %d", len(committer.fills))
	}
	if len(committer.processedSignatures) != 1 || committer.processedSignatures[0] != "failed-tx" {
		t.Fatalf("expected failed-tx to still be marked processed, got %v", committer.processedSignatures)
	}
}

func TestWorkerProcessBatchCountsRPCErrorsAndSkipsUnfetchedSignatures(t *testing.T) {
	markets := map[string]*market.Descriptor{}

	fetchErr := context.DeadlineExceeded
	rpcClient := &fakeWorkerRPC{
		getTransaction: func(ctx context.Context, signature string) (*rpc.Transaction, error) {
			return nil, fetchErr
		},
	}

	committer := &fakeCommitter{}
	before := testutil.ToFloat64(testMetrics.RPCErrorsTotal.WithLabelValues("getTransaction"))

	w := NewWorker(2, rpcClient, &fakeBatchSource{}, committer, markets, testMetrics)
	batch := []store.TxDescriptor{{Signature: "unreachable", Slot: 1}}
	if err := w.processBatch(context.Background(), batch); err != nil {
		t.Fatalf("processBatch failed: %v", err)
	}

	after := testutil.ToFloat64(testMetrics.RPCErrorsTotal.WithLabelValues("getTransaction"))
	if after != before+1 {
		t.Fatalf("expected rpc_errors_total{method=getTransaction} to increment by 1, went from %v to %v", before, after)
	}
	if len(committer.processedSignatures) != 0 {
		t.Fatalf("expected a failed fetch to leave its signature unprocessed for retry, got %v", committer.processedSignatures)
	}
}
