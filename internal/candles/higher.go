package candles

import "time"

// BuildHigherOrderCandles rolls a sorted-ascending slice of a constituent
// resolution's candles up into resolution, continuing from latest (the most
// recent previously-persisted candle at resolution, or nil if none exists
// yet). When seeding from scratch, the bucket grid is aligned to the start
// of the UTC day the earliest constituent falls in, and the first bucket is
// the one on that grid containing the earliest constituent, so every
// resolution's buckets land on the same day-aligned grid regardless of when
// ingestion first started.
//
// Grounded on
// original_source/src/worker/candle_batching/higher_order_candles.rs
// (batch_higher_order_candles / combine_into_higher_order_candles /
// trim_zero_candles).
func BuildHigherOrderCandles(market string, resolution Resolution, latest *Candle, constituents []Candle, now time.Time) []Candle {
	if len(constituents) == 0 {
		return nil
	}

	duration := resolution.Duration()

	var start time.Time
	var lastPrice float64
	trimLeadingZeros := false

	if latest != nil {
		start = latest.EndTime
		lastPrice = latest.Close
	} else {
		dayStart := constituents[0].StartTime.Truncate(24 * time.Hour)
		elapsed := constituents[0].StartTime.Sub(dayStart)
		bucketIndex := elapsed / duration
		start = dayStart.Add(time.Duration(bucketIndex) * duration)
		lastPrice = constituents[0].Open
		trimLeadingZeros = true
	}

	if !now.After(start) {
		return nil
	}

	numCandles := int(now.Sub(start)/duration) + 1

	var out []Candle
	idx := 0

	for i := 0; i < numCandles; i++ {
		bucketStart := start.Add(time.Duration(i) * duration)
		bucketEnd := bucketStart.Add(duration)
		candle := emptyCandle(market, bucketStart, resolution, lastPrice)

		for idx < len(constituents) && constituents[idx].StartTime.Before(bucketEnd) {
			c := constituents[idx]
			if c.High > candle.High {
				candle.High = c.High
			}
			if c.Low < candle.Low {
				candle.Low = c.Low
			}
			candle.Close = c.Close
			candle.Volume += c.Volume
			lastPrice = c.Close
			idx++
		}

		candle.Complete = idx < len(constituents)
		out = append(out, candle)
	}

	if trimLeadingZeros {
		out = trimZeroCandles(out)
	}

	return out
}

// trimZeroCandles drops leading all-zero-volume, already-complete candles
// from a roll-up that was seeded from scratch.
func trimZeroCandles(candles []Candle) []Candle {
	i := 0
	for i < len(candles) && candles[i].Volume == 0 && candles[i].Complete {
		i++
	}
	return candles[i:]
}
