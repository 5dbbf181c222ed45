package candles

import "time"

// Fill is the minimal shape the candle engine needs from a persisted fill
// row: its market, when it happened, and its already-computed price/size.
// Only maker fills are expected to reach the engine (spec.md §9 Open
// Question 3 resolved: taker fills are stored but excluded from the range
// query the batcher reads from).
type Fill struct {
	Market    string
	BlockTime time.Time
	Price     float64
	Size      float64
}

// Candle is one OHLCV bucket at a given resolution. It is the shape both
// internal/store and the HTTP read surface share, mirroring the teacher's
// single Candle struct reused across the repository and the API response
// (models/candle.go), adapted from a symbol+interval key to a
// market_name+resolution key.
type Candle struct {
	MarketName string
	StartTime  time.Time
	EndTime    time.Time
	Resolution Resolution
	Open       float64
	Close      float64
	High       float64
	Low        float64
	Volume     float64
	Complete   bool
}

func emptyCandle(market string, start time.Time, resolution Resolution, seedPrice float64) Candle {
	return Candle{
		MarketName: market,
		StartTime:  start,
		EndTime:    start.Add(resolution.Duration()),
		Resolution: resolution,
		Open:       seedPrice,
		Close:      seedPrice,
		High:       seedPrice,
		Low:        seedPrice,
		Volume:     0,
		Complete:   false,
	}
}
