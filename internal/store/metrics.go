package store

import (
	"context"

	"openbook-candles/internal/candles"
	"openbook-candles/internal/telemetry"
)

// InstrumentedCandles decorates Candles with the candles_total counter
// (spec.md §6), keeping internal/candles' Store interface free of
// any telemetry dependency — the scheduler only ever sees the narrow
// contract, metrics are attached at the wiring point in cmd/*.
type InstrumentedCandles struct {
	*Candles
	metrics *telemetry.Metrics
}

// NewInstrumentedCandles wraps candles with metrics-counted writes.
func NewInstrumentedCandles(c *Candles, metrics *telemetry.Metrics) *InstrumentedCandles {
	return &InstrumentedCandles{Candles: c, metrics: metrics}
}

// UpsertCandles delegates to the wrapped Candles and, once the write
// succeeds, adds one to candles_total{market} for every candle in batch.
func (c *InstrumentedCandles) UpsertCandles(ctx context.Context, batch []candles.Candle) error {
	if err := c.Candles.UpsertCandles(ctx, batch); err != nil {
		return err
	}

	seen := make(map[string]int)
	for _, cd := range batch {
		seen[cd.MarketName]++
	}
	for market, n := range seen {
		c.metrics.CandlesTotal.WithLabelValues(market).Add(float64(n))
	}
	return nil
}
