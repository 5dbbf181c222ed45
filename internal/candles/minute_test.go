package candles

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("bad time literal %q: %v", s, err)
	}
	return tm
}

func TestBuildMinuteCandlesSeedsFromFirstFillWhenNoLatest(t *testing.T) {
	base := mustTime(t, "2026-01-01T00:00:30Z")
	fills := []Fill{
		{Market: "m1", BlockTime: base, Price: 10, Size: 1},
	}
	now := mustTime(t, "2026-01-01T00:02:00Z")

	out := BuildMinuteCandles("m1", nil, fills, now)
	if len(out) == 0 {
		t.Fatal("expected at least one candle")
	}
	if out[0].Open != 10 {
		t.Fatalf("expected first candle open to be seeded from first fill price, got %v", out[0].Open)
	}
	if !out[0].StartTime.Equal(base.Truncate(time.Minute)) {
		t.Fatalf("expected first candle to start at truncated fill minute, got %v", out[0].StartTime)
	}
}

func TestBuildMinuteCandlesFillsGapsFlat(t *testing.T) {
	base := mustTime(t, "2026-01-01T00:00:00Z")
	fills := []Fill{
		{Market: "m1", BlockTime: base, Price: 5, Size: 1},
		// no fills in minute 1
		{Market: "m1", BlockTime: base.Add(2 * time.Minute), Price: 7, Size: 2},
	}
	now := mustTime(t, "2026-01-01T00:03:00Z")

	out := BuildMinuteCandles("m1", nil, fills, now)
	if len(out) != 3 {
		t.Fatalf("expected 3 one-minute candles, got %d", len(out))
	}
	gap := out[1]
	if gap.Volume != 0 || gap.Open != 5 || gap.Close != 5 {
		t.Fatalf("expected flat zero-volume gap candle carrying prior close, got %+v", gap)
	}
}

func TestBuildMinuteCandlesCompleteOnlyWhenLaterFillObserved(t *testing.T) {
	base := mustTime(t, "2026-01-01T00:00:00Z")
	fills := []Fill{
		{Market: "m1", BlockTime: base, Price: 5, Size: 1},
	}
	now := mustTime(t, "2026-01-01T00:01:00Z")

	out := BuildMinuteCandles("m1", nil, fills, now)
	if len(out) != 1 {
		t.Fatalf("expected 1 candle, got %d", len(out))
	}
	if out[0].Complete {
		t.Fatal("expected trailing candle with no later fill to stay incomplete")
	}
}

func TestBuildMinuteCandlesContinuesFromLatest(t *testing.T) {
	base := mustTime(t, "2026-01-01T00:05:00Z")
	latest := &Candle{
		MarketName: "m1",
		StartTime:  base.Add(-time.Minute),
		EndTime:    base,
		Resolution: R1m,
		Close:      99,
		Complete:   true,
	}
	fills := []Fill{
		{Market: "m1", BlockTime: base.Add(30 * time.Second), Price: 100, Size: 1},
	}
	now := mustTime(t, "2026-01-01T00:06:00Z")

	out := BuildMinuteCandles("m1", latest, fills, now)
	if len(out) != 1 {
		t.Fatalf("expected 1 candle, got %d", len(out))
	}
	if !out[0].StartTime.Equal(base) {
		t.Fatalf("expected candle to continue at latest.EndTime, got %v", out[0].StartTime)
	}
}

// Continuing from a seeded last close, open must stay pinned to that seed
// even though the first consumed fill in the bucket trades at a different
// price — open is never reassigned once a candle is seeded.
func TestBuildMinuteCandlesOpenSurvivesFirstFillDiscontinuity(t *testing.T) {
	base := mustTime(t, "2026-01-01T00:05:00Z")
	latest := &Candle{
		MarketName: "m1",
		StartTime:  base.Add(-time.Minute),
		EndTime:    base,
		Resolution: R1m,
		Close:      100.0,
		Complete:   true,
	}
	fills := []Fill{
		{Market: "m1", BlockTime: base.Add(10 * time.Second), Price: 99.5, Size: 1},
	}
	now := mustTime(t, "2026-01-01T00:06:00Z")

	out := BuildMinuteCandles("m1", latest, fills, now)
	if len(out) != 1 {
		t.Fatalf("expected 1 candle, got %d", len(out))
	}
	if out[0].Open != 100.0 {
		t.Fatalf("expected open to stay at seeded close 100.0, got %v", out[0].Open)
	}
	if out[0].Close != 99.5 {
		t.Fatalf("expected close to reflect the fill price, got %v", out[0].Close)
	}
	if out[0].Low != 99.5 || out[0].High != 100.0 {
		t.Fatalf("expected low/high to widen against the seeded open, got low=%v high=%v", out[0].Low, out[0].High)
	}
}

func TestBuildMinuteCandlesReturnsNilWithNoSeedAndNoFills(t *testing.T) {
	now := mustTime(t, "2026-01-01T00:06:00Z")
	if out := BuildMinuteCandles("m1", nil, nil, now); out != nil {
		t.Fatalf("expected nil when there is no latest candle and no fills, got %v", out)
	}
}
