package store

import (
	"context"
	"fmt"
	"time"

	"openbook-candles/internal/candles"
	"openbook-candles/internal/database"

	"github.com/jackc/pgx/v5"
)

// Candles is the candles-table repository. It implements candles.Store so
// the scheduler can depend on the narrow interface rather than this
// concrete type.
type Candles struct {
	db *database.DB
}

// NewCandles builds a Candles repository over db.
func NewCandles(db *database.DB) *Candles {
	return &Candles{db: db}
}

// LatestCandle returns the most recently completed candle at resolution for
// market, or nil if none exists yet — matching the teacher's
// GetLatest(pgx.ErrNoRows -> nil, nil) pattern in
// repositories/candle_repository.go.
func (c *Candles) LatestCandle(ctx context.Context, market string, resolution candles.Resolution) (*candles.Candle, error) {
	row := c.db.Pool.QueryRow(ctx, `
		SELECT market_name, start_time, end_time, resolution, open, close, high, low, volume, complete
		FROM candles
		WHERE market_name = $1 AND resolution = $2 AND complete = true
		ORDER BY start_time DESC
		LIMIT 1`, market, resolution.Label())

	var out candles.Candle
	var label string
	err := row.Scan(&out.MarketName, &out.StartTime, &out.EndTime, &label,
		&out.Open, &out.Close, &out.High, &out.Low, &out.Volume, &out.Complete)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest candle: %w", err)
	}
	out.Resolution = resolution
	return &out, nil
}

// CandlesSince returns every candle at resolution for market with
// start_time >= since, ordered ascending — the constituent feed the
// higher-order roll-up reads from.
func (c *Candles) CandlesSince(ctx context.Context, market string, resolution candles.Resolution, since time.Time) ([]candles.Candle, error) {
	rows, err := c.db.Pool.Query(ctx, `
		SELECT market_name, start_time, end_time, resolution, open, close, high, low, volume, complete
		FROM candles
		WHERE market_name = $1 AND resolution = $2 AND start_time >= $3
		ORDER BY start_time ASC`, market, resolution.Label(), since)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles since %v: %w", since, err)
	}
	defer rows.Close()

	var out []candles.Candle
	for rows.Next() {
		var c candles.Candle
		var label string
		if err := rows.Scan(&c.MarketName, &c.StartTime, &c.EndTime, &label,
			&c.Open, &c.Close, &c.High, &c.Low, &c.Volume, &c.Complete); err != nil {
			return nil, fmt.Errorf("failed to scan candle row: %w", err)
		}
		c.Resolution = resolution
		out = append(out, c)
	}
	return out, rows.Err()
}

// Range returns candles at resolution for market with start_time in
// [start, end), ordered ascending and bounded by limit — the query the
// HTTP read surface uses, grounded on
// repositories/candle_repository.go's GetByTimeRange.
func (c *Candles) Range(ctx context.Context, market string, resolution candles.Resolution, start, end time.Time, limit int) ([]candles.Candle, error) {
	rows, err := c.db.Pool.Query(ctx, `
		SELECT market_name, start_time, end_time, resolution, open, close, high, low, volume, complete
		FROM candles
		WHERE market_name = $1 AND resolution = $2 AND start_time >= $3 AND start_time < $4
		ORDER BY start_time ASC
		LIMIT $5`, market, resolution.Label(), start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query candle range: %w", err)
	}
	defer rows.Close()

	var out []candles.Candle
	for rows.Next() {
		var c candles.Candle
		var label string
		if err := rows.Scan(&c.MarketName, &c.StartTime, &c.EndTime, &label,
			&c.Open, &c.Close, &c.High, &c.Low, &c.Volume, &c.Complete); err != nil {
			return nil, fmt.Errorf("failed to scan candle row: %w", err)
		}
		c.Resolution = resolution
		out = append(out, c)
	}
	return out, rows.Err()
}

// Recent returns the most recent limit candles at resolution for market,
// ordered ascending (oldest of the window first) — the default "give me
// the latest chart page" query the HTTP read surface uses when no explicit
// range is given.
func (c *Candles) Recent(ctx context.Context, market string, resolution candles.Resolution, limit int) ([]candles.Candle, error) {
	rows, err := c.db.Pool.Query(ctx, `
		SELECT market_name, start_time, end_time, resolution, open, close, high, low, volume, complete
		FROM candles
		WHERE market_name = $1 AND resolution = $2
		ORDER BY start_time DESC
		LIMIT $3`, market, resolution.Label(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent candles: %w", err)
	}
	defer rows.Close()

	var out []candles.Candle
	for rows.Next() {
		var c candles.Candle
		var label string
		if err := rows.Scan(&c.MarketName, &c.StartTime, &c.EndTime, &label,
			&c.Open, &c.Close, &c.High, &c.Low, &c.Volume, &c.Complete); err != nil {
			return nil, fmt.Errorf("failed to scan candle row: %w", err)
		}
		c.Resolution = resolution
		out = append(out, c)
	}

	// Reverse in place: the query ran newest-first for an efficient
	// index scan, but callers expect ascending order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

// FillsSince returns every maker fill for market with block_time >= since,
// ordered ascending — spec.md §9 Open Question 3 resolved: taker fills are
// stored but excluded here.
func (c *Candles) FillsSince(ctx context.Context, market string, since time.Time) ([]candles.Fill, error) {
	rows, err := c.db.Pool.Query(ctx, `
		SELECT block_time, price, size
		FROM fills
		WHERE market = $1 AND maker = true AND block_time >= $2
		ORDER BY block_time ASC`, market, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query fills since %v: %w", since, err)
	}
	defer rows.Close()

	var out []candles.Fill
	for rows.Next() {
		var f candles.Fill
		if err := rows.Scan(&f.BlockTime, &f.Price, &f.Size); err != nil {
			return nil, fmt.Errorf("failed to scan fill row: %w", err)
		}
		f.Market = market
		out = append(out, f)
	}
	return out, rows.Err()
}

// UpsertCandles bulk-writes candles via pgx.Batch, keyed on
// (market_name, start_time, resolution) — grounded on
// repositories/candle_repository.go's BulkCreate.
func (c *Candles) UpsertCandles(ctx context.Context, rows []candles.Candle) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO candles (market_name, start_time, end_time, resolution, open, close, high, low, volume, complete)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (market_name, start_time, resolution)
			DO UPDATE SET end_time = excluded.end_time, open = excluded.open, close = excluded.close,
				high = excluded.high, low = excluded.low, volume = excluded.volume, complete = excluded.complete`,
			row.MarketName, row.StartTime, row.EndTime, row.Resolution.Label(),
			row.Open, row.Close, row.High, row.Low, row.Volume, row.Complete)
	}

	results := c.db.Pool.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert candle batch: %w", err)
		}
	}
	return nil
}
