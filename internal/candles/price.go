package candles

import "openbook-candles/internal/decoder"

// tokenFactor returns 10^decimals as used to scale a native lamport-style
// quantity into its human-readable unit.
func tokenFactor(decimals int) float64 {
	factor := 1.0
	for i := 0; i < decimals; i++ {
		factor *= 10
	}
	return factor
}

// FillPriceSize computes a fill's quote-denominated price and base-denominated
// size from its native on-chain quantities, grounded exactly on
// original_source/src/structs/openbook.rs::calculate_fill_price_and_size.
//
// Maker fills on the bid side add the fee back into what was paid (the fee
// is rebated to the maker); taker fills subtract it (the fee is charged on
// top). The ask side is the mirror image: the fee adjusts what was
// received instead of what was paid, and size is read off native_qty_paid
// instead of native_qty_received.
func FillPriceSize(f decoder.RawFill, baseDecimals, quoteDecimals int) (price, size float64) {
	baseFactor := tokenFactor(baseDecimals)
	quoteFactor := tokenFactor(quoteDecimals)

	var priceBeforeFees float64
	var nativeSize float64

	if f.Bid {
		if f.Maker {
			priceBeforeFees = float64(f.NativeQtyPaid) + float64(f.NativeFeeOrRebate)
		} else {
			priceBeforeFees = float64(f.NativeQtyPaid) - float64(f.NativeFeeOrRebate)
		}
		nativeSize = float64(f.NativeQtyReceived)
	} else {
		if f.Maker {
			priceBeforeFees = float64(f.NativeQtyReceived) - float64(f.NativeFeeOrRebate)
		} else {
			priceBeforeFees = float64(f.NativeQtyReceived) + float64(f.NativeFeeOrRebate)
		}
		nativeSize = float64(f.NativeQtyPaid)
	}

	price = (priceBeforeFees * baseFactor) / (quoteFactor * nativeSize)
	size = nativeSize / baseFactor
	return price, size
}
