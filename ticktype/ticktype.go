// Package ticktype enumerates market-data tick types and the tick-by-tick
// payload shapes (spec.md §4.8), grounded on
// _examples/original_source/ib_async/tick_types.py.
package ticktype

import "fmt"

// TickType identifies what a TICK_PRICE/TICK_SIZE/TICK_GENERIC/TICK_STRING
// update carries. Only the subset this client's feature handlers
// reference is enumerated; an unrecognized value on the wire decodes to
// Unknown, and the original integer is not kept.
type TickType int32

const (
	BidSize                TickType = 0
	Bid                    TickType = 1
	Ask                    TickType = 2
	AskSize                TickType = 3
	Last                   TickType = 4
	LastSize               TickType = 5
	High                   TickType = 6
	Low                    TickType = 7
	Volume                 TickType = 8
	Close                  TickType = 9
	BidOptionComputation   TickType = 10
	AskOptionComputation   TickType = 11
	LastOptionComputation  TickType = 12
	ModelOption            TickType = 13
	Open                   TickType = 14
	DelayedBid             TickType = 66
	DelayedAsk             TickType = 67
	DelayedLast            TickType = 68
	DelayedBidSize         TickType = 69
	DelayedAskSize         TickType = 70
	DelayedLastSize        TickType = 71
	DelayedHigh            TickType = 72
	DelayedLow             TickType = 73
	DelayedVolume          TickType = 74
	DelayedClose           TickType = 75
	DelayedOpen            TickType = 76
	RTVolume               TickType = 48
	Halted                 TickType = 49
	BidYield               TickType = 50
	AskYield               TickType = 51
	LastYield              TickType = 52
	MarkPrice              TickType = 37
	LastTimestamp          TickType = 45
	DelayedLastTimestamp   TickType = 88
	Unknown                TickType = -1
)

func (t TickType) String() string {
	switch t {
	case BidSize:
		return "BidSize"
	case Bid:
		return "Bid"
	case Ask:
		return "Ask"
	case AskSize:
		return "AskSize"
	case Last:
		return "Last"
	case LastSize:
		return "LastSize"
	case High:
		return "High"
	case Low:
		return "Low"
	case Volume:
		return "Volume"
	case Close:
		return "Close"
	case Open:
		return "Open"
	case DelayedBid:
		return "DelayedBid"
	case DelayedAsk:
		return "DelayedAsk"
	case DelayedLast:
		return "DelayedLast"
	case RTVolume:
		return "RTVolume"
	case Halted:
		return "Halted"
	case MarkPrice:
		return "MarkPrice"
	case Unknown:
		return "Unknown"
	default:
		return fmt.Sprintf("TickType(%d)", int32(t))
	}
}

// ByInt resolves an incoming integer tick-type value, or Unknown when not
// recognized by this client.
func ByInt(n int32) TickType {
	switch TickType(n) {
	case BidSize, Bid, Ask, AskSize, Last, LastSize, High, Low, Volume, Close,
		BidOptionComputation, AskOptionComputation, LastOptionComputation, ModelOption, Open,
		DelayedBid, DelayedAsk, DelayedLast, DelayedBidSize, DelayedAskSize, DelayedLastSize,
		DelayedHigh, DelayedLow, DelayedVolume, DelayedClose, DelayedOpen,
		RTVolume, Halted, BidYield, AskYield, LastYield, MarkPrice, LastTimestamp, DelayedLastTimestamp:
		return TickType(n)
	default:
		return Unknown
	}
}

// sizeTickFor pairs a price tick type with the size tick type that
// accompanies it, including the delayed variants (spec.md §4.8 "Market
// data subscribe"): "a static Bid→BidSize / Ask→AskSize / Last→LastSize
// table (including the Delayed variants)".
var sizeTickFor = map[TickType]TickType{
	Bid:         BidSize,
	Ask:         AskSize,
	Last:        LastSize,
	DelayedBid:  DelayedBidSize,
	DelayedAsk:  DelayedAskSize,
	DelayedLast: DelayedLastSize,
}

// PairedSizeTick returns the size tick type that accompanies a price tick
// type, and whether one exists.
func PairedSizeTick(price TickType) (TickType, bool) {
	t, ok := sizeTickFor[price]
	return t, ok
}

// PriceAttributes is the bitmask a TICK_PRICE update carries, expanded per
// spec.md §4.8: bits 0x01, 0x02, 0x04.
type PriceAttributes struct {
	CanAutoExecute bool
	PastLimit      bool
	PreOpen        bool
}

// ParsePriceAttributes expands the attribute bitmask into the named set
// spec.md §4.8 requires.
func ParsePriceAttributes(mask int32) PriceAttributes {
	return PriceAttributes{
		CanAutoExecute: mask&0x01 != 0,
		PastLimit:      mask&0x02 != 0,
		PreOpen:        mask&0x04 != 0,
	}
}

// TickByTickKind distinguishes the four tick-by-tick payload shapes
// (spec.md §4.8 "Tick-by-tick").
type TickByTickKind int32

const (
	TickByTickLast     TickByTickKind = 1
	TickByTickAllLast  TickByTickKind = 2
	TickByTickBidAsk   TickByTickKind = 3
	TickByTickMidpoint TickByTickKind = 4
)

// LastTick is the payload for tick-by-tick kinds 1 (Last) and 2 (AllLast).
type LastTick struct {
	Time         int64
	Price        float64
	Size         float64
	PastLimit    bool
	Unreported   bool
	Exchange     string
	Conditions   string
}

// ParseLastTickAttrs expands the kind-1/2 attribute bitmask: 0x01
// past-limit, 0x02 unreported (spec.md §4.8).
func ParseLastTickAttrs(mask int32) (pastLimit, unreported bool) {
	return mask&0x01 != 0, mask&0x02 != 0
}

// BidAskTick is the payload for tick-by-tick kind 3 (BidAsk).
type BidAskTick struct {
	Time        int64
	BidPrice    float64
	AskPrice    float64
	BidSize     float64
	AskSize     float64
	BidPastLow  bool
	AskPastHigh bool
}

// ParseBidAskTickAttrs expands the kind-3 attribute bitmask: 0x01
// bid-past-low, 0x02 ask-past-high (spec.md §4.8).
func ParseBidAskTickAttrs(mask int32) (bidPastLow, askPastHigh bool) {
	return mask&0x01 != 0, mask&0x02 != 0
}

// MidpointTick is the payload for tick-by-tick kind 4 (Midpoint).
type MidpointTick struct {
	Time     int64
	Midpoint float64
}
