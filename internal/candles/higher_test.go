package candles

import (
	"testing"
	"time"
)

func TestBuildHigherOrderCandlesRollsUpVolume(t *testing.T) {
	base := mustTime(t, "2026-01-01T00:00:00Z")
	constituents := []Candle{
		{StartTime: base, EndTime: base.Add(time.Minute), Open: 10, Close: 12, High: 13, Low: 9, Volume: 2, Complete: true},
		{StartTime: base.Add(time.Minute), EndTime: base.Add(2 * time.Minute), Open: 12, Close: 15, High: 16, Low: 11, Volume: 3, Complete: true},
		{StartTime: base.Add(2 * time.Minute), EndTime: base.Add(3 * time.Minute), Open: 15, Close: 14, High: 15, Low: 13, Volume: 1, Complete: false},
	}
	now := base.Add(3 * time.Minute)

	// now sits exactly on the first bucket's end, so the result holds the
	// rolled-up bucket plus the (empty) bucket that is currently open.
	out := BuildHigherOrderCandles("m1", R3m, nil, constituents, now)
	if len(out) != 2 {
		t.Fatalf("expected 2 three-minute candles, got %d", len(out))
	}
	c := out[0]
	if c.Open != 10 || c.Close != 14 || c.High != 16 || c.Low != 9 || c.Volume != 6 {
		t.Fatalf("unexpected rollup: %+v", c)
	}
}

func TestBuildHigherOrderCandlesTrimsLeadingZeros(t *testing.T) {
	dayStart := mustTime(t, "2026-01-01T00:00:00Z")
	// First real activity starts at minute 3 of the day; no empty 3m bucket
	// from before that may appear in the output.
	activity := dayStart.Add(3 * time.Minute)
	constituents := []Candle{
		{StartTime: activity, EndTime: activity.Add(time.Minute), Open: 5, Close: 5, High: 5, Low: 5, Volume: 1, Complete: true},
	}
	now := activity.Add(time.Minute)

	out := BuildHigherOrderCandles("m1", R3m, nil, constituents, now)
	for _, c := range out {
		if c.Volume == 0 && c.Complete {
			t.Fatalf("expected leading zero-volume complete candles to be trimmed, found %+v", c)
		}
	}
}

func TestBuildHigherOrderCandlesContinuesFromLatest(t *testing.T) {
	base := mustTime(t, "2026-01-01T00:03:00Z")
	latest := &Candle{StartTime: base.Add(-3 * time.Minute), EndTime: base, Close: 20, Complete: true}
	constituents := []Candle{
		{StartTime: base, EndTime: base.Add(time.Minute), Open: 20, Close: 21, High: 22, Low: 19, Volume: 1, Complete: true},
	}
	now := base.Add(time.Minute)

	out := BuildHigherOrderCandles("m1", R3m, latest, constituents, now)
	if len(out) != 1 {
		t.Fatalf("expected 1 candle, got %d", len(out))
	}
	if !out[0].StartTime.Equal(base) {
		t.Fatalf("expected candle to start at latest.EndTime, got %v", out[0].StartTime)
	}
}

// A real market can gap between the previous bucket's close and the next
// constituent's open (a quiet period with no trades in between). Open must
// stay pinned to the seeded last-close, never jump to the first consumed
// constituent's Open.
func TestBuildHigherOrderCandlesOpenSurvivesDiscontinuity(t *testing.T) {
	base := mustTime(t, "2026-01-01T00:03:00Z")
	latest := &Candle{StartTime: base.Add(-3 * time.Minute), EndTime: base, Close: 20, Complete: true}
	constituents := []Candle{
		{StartTime: base, EndTime: base.Add(time.Minute), Open: 25, Close: 26, High: 27, Low: 24, Volume: 1, Complete: true},
	}
	now := base.Add(time.Minute)

	out := BuildHigherOrderCandles("m1", R3m, latest, constituents, now)
	if len(out) != 1 {
		t.Fatalf("expected 1 candle, got %d", len(out))
	}
	if out[0].Open != 20 {
		t.Fatalf("expected open to stay at seeded last close 20, got %v", out[0].Open)
	}
	if out[0].High != 27 || out[0].Low != 20 {
		t.Fatalf("expected high/low to widen against the seeded open, got high=%v low=%v", out[0].High, out[0].Low)
	}
}
