// Package decoder turns a transaction's log lines into typed OpenBook fill
// events. It is a pure function package: no I/O, no state, just bytes in,
// structs out — grounded on original_source's
// src/candle_creation/trade_fetching/parsing.rs.
package decoder

import (
	"encoding/base64"
	"encoding/binary"
	"strings"
)

// programDataPrefix is the substring Anchor-style programs prepend to a
// base64-encoded event log line.
const programDataPrefix = "Program data: "

// fillEventDiscriminator is the 8-byte Anchor event discriminator that
// prefixes OpenBook fill event records, matched byte-for-byte. Hardcoded
// here (as the teacher hardcodes the Binance base URL in config) since it
// never changes for a given program build.
var fillEventDiscriminator = [8]byte{0x96, 0xd7, 0x1a, 0x37, 0x21, 0x2c, 0x41, 0x91}

// RawFill is the decoded wire shape of one fill log line: native,
// lamport-denominated quantities only. Price and size are a candle-engine
// concern (internal/candles.FillPriceSize), not a decode concern.
type RawFill struct {
	// LogIndex is this fill's position in the transaction's full log-message
	// sequence (logLines as passed to Decode), not its position within the
	// filtered/decoded output — spec.md §4.1 requires the former so that
	// log_index stays a stable, transaction-wide ordering key even as the
	// discriminator/target filters change what gets decoded.
	LogIndex          int
	Market            string
	OpenOrders        string
	OpenOrdersOwner   string
	Bid               bool
	Maker             bool
	NativeQtyPaid     uint64
	NativeQtyReceived uint64
	NativeFeeOrRebate uint64
	OrderID           [16]byte
	OwnerSlot         uint8
	FeeTier           uint8
	ClientOrderID     *uint64
	ReferrerRebate    *uint64
}

// pubkeySize is the byte width of a base58-addressed account key once
// decoded from the wire (32 raw bytes, base64-encoded in the log line).
const pubkeySize = 32

// minRecordLen is the fixed-width prefix of a FillEvent record before its
// two optional trailing u64 fields.
const minRecordLen = pubkeySize*3 + 1 + 1 + 8 + 8 + 8 + 16 + 1 + 1

// Decode scans logLines for "Program data: " records matching the fill
// event discriminator, decodes each into a RawFill, and keeps only fills
// whose market is present in targets. Any line that fails to base64-decode,
// is too short, or carries a different discriminator is silently skipped —
// spec.md §7's decode-fault policy — since log streams interleave many
// event kinds from many programs.
func Decode(logLines []string, targets map[string]struct{}) []RawFill {
	var fills []RawFill

	for lineIdx, line := range logLines {
		encoded, ok := strings.CutPrefix(line, programDataPrefix)
		if !ok {
			continue
		}

		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			continue
		}
		if len(raw) < 8 {
			continue
		}

		var disc [8]byte
		copy(disc[:], raw[:8])
		if disc != fillEventDiscriminator {
			continue
		}

		fill, ok := decodeRecord(raw[8:])
		if !ok {
			continue
		}

		if _, tracked := targets[fill.Market]; !tracked {
			continue
		}

		fill.LogIndex = lineIdx
		fills = append(fills, fill)
	}

	return fills
}

// decodeRecord walks the little-endian packed FillEvent body. Layout:
// market[32], open_orders[32], open_orders_owner[32], bid:1, maker:1,
// native_qty_paid:8, native_qty_received:8, native_fee_or_rebate:8,
// order_id:16, owner_slot:1, fee_tier:1, client_order_id:option<8>,
// referrer_rebate:option<8>. An option is a 1-byte discriminant (0 = None,
// 1 = Some) followed by the value when present.
func decodeRecord(b []byte) (RawFill, bool) {
	if len(b) < minRecordLen {
		return RawFill{}, false
	}

	var f RawFill
	off := 0

	f.Market = base64.StdEncoding.EncodeToString(b[off : off+pubkeySize])
	off += pubkeySize

	f.OpenOrders = base64.StdEncoding.EncodeToString(b[off : off+pubkeySize])
	off += pubkeySize

	f.OpenOrdersOwner = base64.StdEncoding.EncodeToString(b[off : off+pubkeySize])
	off += pubkeySize

	f.Bid = b[off] != 0
	off++

	f.Maker = b[off] != 0
	off++

	f.NativeQtyPaid = binary.LittleEndian.Uint64(b[off : off+8])
	off += 8

	f.NativeQtyReceived = binary.LittleEndian.Uint64(b[off : off+8])
	off += 8

	f.NativeFeeOrRebate = binary.LittleEndian.Uint64(b[off : off+8])
	off += 8

	copy(f.OrderID[:], b[off:off+16])
	off += 16

	f.OwnerSlot = b[off]
	off++

	f.FeeTier = b[off]
	off++

	clientOrderID, n, ok := decodeOptionU64(b[off:])
	if !ok {
		return RawFill{}, false
	}
	f.ClientOrderID = clientOrderID
	off += n

	referrerRebate, n, ok := decodeOptionU64(b[off:])
	if !ok {
		return RawFill{}, false
	}
	f.ReferrerRebate = referrerRebate
	off += n

	return f, true
}

// decodeOptionU64 decodes a Borsh/Anchor Option<u64> and returns the number
// of bytes consumed.
func decodeOptionU64(b []byte) (*uint64, int, bool) {
	if len(b) < 1 {
		return nil, 0, false
	}
	if b[0] == 0 {
		return nil, 1, true
	}
	if len(b) < 9 {
		return nil, 0, false
	}
	v := binary.LittleEndian.Uint64(b[1:9])
	return &v, 9, true
}
