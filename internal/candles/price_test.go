package candles

import (
	"math"
	"testing"

	"openbook-candles/internal/decoder"
)

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestFillPriceSizeBidMaker(t *testing.T) {
	f := decoder.RawFill{
		Bid:               true,
		Maker:             true,
		NativeQtyPaid:     200_000_000,
		NativeQtyReceived: 4_204_317,
		NativeFeeOrRebate: 1_683,
	}

	price, size := FillPriceSize(f, 6, 6)

	if !almostEqual(price, 47.5706, 0.001) {
		t.Fatalf("expected price ~47.5706, got %v", price)
	}
	if !almostEqual(size, 4.204317, 1e-9) {
		t.Fatalf("expected size 4.204317, got %v", size)
	}
}

func TestFillPriceSizeBidTaker(t *testing.T) {
	f := decoder.RawFill{
		Bid:               true,
		Maker:             false,
		NativeQtyPaid:     200_000_000,
		NativeQtyReceived: 4_204_317,
		NativeFeeOrRebate: 1_683,
	}

	price, _ := FillPriceSize(f, 6, 6)

	// Taker subtracts the fee instead of adding it, so the effective price
	// before fees is lower than the maker case.
	makerFill := f
	makerFill.Maker = true
	makerPrice, _ := FillPriceSize(makerFill, 6, 6)

	if price >= makerPrice {
		t.Fatalf("expected taker price %v < maker price %v", price, makerPrice)
	}
}

func TestFillPriceSizeAskMirrorsBid(t *testing.T) {
	f := decoder.RawFill{
		Bid:               false,
		Maker:             true,
		NativeQtyPaid:     4_204_317,
		NativeQtyReceived: 200_000_000,
		NativeFeeOrRebate: 1_683,
	}

	price, size := FillPriceSize(f, 6, 6)

	if !almostEqual(size, 4.204317, 1e-9) {
		t.Fatalf("expected size 4.204317, got %v", size)
	}
	if price <= 0 {
		t.Fatalf("expected positive price, got %v", price)
	}
}

func TestTokenFactor(t *testing.T) {
	if tokenFactor(0) != 1 {
		t.Fatalf("expected 10^0 == 1")
	}
	if tokenFactor(6) != 1_000_000 {
		t.Fatalf("expected 10^6 == 1_000_000, got %v", tokenFactor(6))
	}
}
