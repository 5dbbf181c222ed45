package candles

import (
	"testing"
	"time"
)

func TestResolutionConstituentChain(t *testing.T) {
	cases := []struct {
		r    Resolution
		want Resolution
		ok   bool
	}{
		{R1m, "", false},
		{R3m, R1m, true},
		{R5m, R1m, true},
		{R15m, R5m, true},
		{R30m, R15m, true},
		{R1h, R30m, true},
		{R2h, R1h, true},
		{R4h, R2h, true},
		{R1d, R4h, true},
	}

	for _, c := range cases {
		got, ok := c.r.Constituent()
		if ok != c.ok || got != c.want {
			t.Errorf("%s.Constituent() = (%q, %v), want (%q, %v)", c.r, got, ok, c.want, c.ok)
		}
	}
}

func TestResolutionDuration(t *testing.T) {
	if R1m.Duration() != time.Minute {
		t.Fatalf("expected R1m duration to be 1 minute")
	}
	if R1d.Duration() != 24*time.Hour {
		t.Fatalf("expected R1d duration to be 24 hours")
	}
}

func TestResolutionValid(t *testing.T) {
	if !R1h.Valid() {
		t.Fatalf("expected R1h to be valid")
	}
	if Resolution("bogus").Valid() {
		t.Fatalf("expected unknown resolution to be invalid")
	}
}
