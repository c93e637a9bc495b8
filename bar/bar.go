// Package bar defines the OHLCV+count bar types (spec.md GLOSSARY "Bar"),
// grounded on _examples/original_source/ib_async/bar.py.
package bar

import (
	"github.com/ondergetekende/ibclient/codec"
	"github.com/ondergetekende/ibclient/protover"
)

// BarType enumerates what a real-time or historical bar aggregates.
type BarType string

const (
	Trades                 BarType = "TRADES"
	Midpoint               BarType = "MIDPOINT"
	BidType                BarType = "BID"
	AskType                BarType = "ASK"
	BidAsk                 BarType = "BID_ASK"
	HistoricalVolatility   BarType = "HISTORICAL_VOLATILITY"
	OptionImpliedVolatility BarType = "OPTION_IMPLIED_VOLATILITY"
	FeeRate                BarType = "FEE_RATE"
	RebateRate             BarType = "REBATE_RATE"
)

// Bar is one OHLCV+count aggregate over an interval. HasGaps is only
// present for historical bars on protocol versions below
// protover.SyntRealtimeBars, per bar.py's serializing_historic/
// deserializing_historic flag.
type Bar struct {
	Time    int64
	Open    float64
	High    float64
	Low     float64
	Close   float64
	Volume  float64
	Average float64
	Count   int32
	HasGaps bool
}

// Decode reads a Bar's fields in declared order. historic selects whether
// HasGaps is present, mirroring bar.py's deserializing_historic flag.
func Decode(r *codec.Reader, historic bool) Bar {
	var b Bar
	b.Time = int64(r.ReadIntOr(codec.Gate{}, 0))
	b.Open = r.ReadFloatOr(codec.Gate{}, 0)
	b.High = r.ReadFloatOr(codec.Gate{}, 0)
	b.Low = r.ReadFloatOr(codec.Gate{}, 0)
	b.Close = r.ReadFloatOr(codec.Gate{}, 0)
	b.Volume = r.ReadFloatOr(codec.Gate{}, 0)
	b.Average = r.ReadFloatOr(codec.Gate{}, 0)
	b.Count = r.ReadIntOr(codec.Gate{}, 0)
	if historic {
		b.HasGaps = r.ReadBool(codec.Gate{MaxVersion: protover.SyntRealtimeBars}, false)
	}
	return b
}

// HistoricBar is a Bar returned as part of a REQ_HISTORICAL_DATA
// completion; it always carries the historic field layout.
type HistoricBar = Bar
