package candles

import "time"

// maxWindow bounds how far a single batching pass advances, so catching up
// after a long batcher outage happens in day-sized steps rather than one
// enormous pass — grounded on original_source's minute_candles.rs capping
// the window at `start_time + Duration::days(1)`.
const maxWindow = 24 * time.Hour

// BuildMinuteCandles assembles 1-minute candles for one market from a
// sorted-ascending slice of maker fills, continuing from latest (the most
// recent previously-persisted 1m candle, or nil if none exists yet).
//
// Every minute in [start, end) gets a candle, even ones with no fills —
// carrying the prior candle's close forward as a flat open=close=high=low
// bucket, so downstream consumers never see a gap. A candle is marked
// complete once a fill strictly after its end boundary has been observed,
// since that is the only way this engine can know no more fills will ever
// land in it; the bucket currently being assembled (the tail of the
// result) stays incomplete until the next pass proves otherwise.
//
// Grounded on original_source/src/worker/candle_batching/minute_candles.rs
// (batch_1m_candles / combine_fills_into_1m_candles).
func BuildMinuteCandles(market string, latest *Candle, fills []Fill, now time.Time) []Candle {
	nowMinute := now.Truncate(time.Minute)

	var start time.Time
	var lastPrice float64
	haveSeed := false

	if latest != nil {
		start = latest.EndTime
		lastPrice = latest.Close
		haveSeed = true
	} else if len(fills) > 0 {
		start = fills[0].BlockTime.Truncate(time.Minute)
		lastPrice = fills[0].Price
		haveSeed = true
	} else {
		return nil
	}

	if !haveSeed {
		return nil
	}

	end := nowMinute
	if end.Sub(start) > maxWindow {
		end = start.Add(maxWindow)
	}
	if !end.After(start) {
		return nil
	}

	var out []Candle
	fillIdx := 0

	for t := start; t.Before(end); t = t.Add(time.Minute) {
		bucketEnd := t.Add(time.Minute)
		candle := emptyCandle(market, t, R1m, lastPrice)

		for fillIdx < len(fills) && fills[fillIdx].BlockTime.Before(bucketEnd) {
			f := fills[fillIdx]
			if f.Price > candle.High {
				candle.High = f.Price
			}
			if f.Price < candle.Low {
				candle.Low = f.Price
			}
			candle.Close = f.Price
			candle.Volume += f.Size
			lastPrice = f.Price
			fillIdx++
		}

		candle.Complete = fillIdx < len(fills) && fills[fillIdx].BlockTime.After(bucketEnd)
		out = append(out, candle)
	}

	return out
}
