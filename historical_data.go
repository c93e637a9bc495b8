package ibclient

import (
	"context"

	"github.com/ondergetekende/ibclient/bar"
	"github.com/ondergetekende/ibclient/codec"
	"github.com/ondergetekende/ibclient/ibkrerr"
	"github.com/ondergetekende/ibclient/instrument"
	"github.com/ondergetekende/ibclient/message"
)

// historicalState tracks one in-flight REQ_HISTORICAL_DATA request so a
// HISTORICAL_DATA frame arriving after the caller canceled can be dropped
// silently instead of resolving or raising (spec.md §5 Cancellation, S5).
type historicalState struct {
	canceled bool
}

// HistoricalBarsResult is the single completion value for a historical
// data request: the requested span plus every bar in it (spec.md §4.8
// "Real-time bars": "a block containing start, end, and N bars").
type HistoricalBarsResult struct {
	Start string
	End   string
	Bars  []bar.HistoricBar
}

// HistoricalData issues REQ_HISTORICAL_DATA and resolves with the single
// HISTORICAL_DATA block delivered in reply. Canceling ctx sends
// CANCEL_HISTORICAL_DATA; a HISTORICAL_DATA frame arriving after that is
// dropped without resolving or raising (spec.md §4.8, §5, S5).
func (c *Connection) HistoricalData(ctx context.Context, inst *instrument.Instrument, endDateTime, duration, barSize, whatToShow string, includeExpired, useRTH bool) (HistoricalBarsResult, error) {
	if c.proto == 0 {
		return HistoricalBarsResult{}, ibkrerr.New(ibkrerr.NotConnected, "handshake not completed")
	}

	id := c.requests.nextRequestID()
	w := codec.NewWriter(c.proto)
	w.WriteIntVal(codec.Gate{}, int32(message.ReqHistoricalData))
	w.WriteIntVal(codec.Gate{}, id)
	w.WriteIntVal(codec.Gate{}, inst.ContractID)
	w.WriteString(codec.Gate{}, inst.Symbol)
	w.WriteString(codec.Gate{}, string(inst.SecurityType))
	w.WriteString(codec.Gate{}, inst.LastTradeDate)
	w.WriteFloat(codec.Gate{}, &inst.Strike)
	w.WriteString(codec.Gate{}, inst.Right)
	w.WriteString(codec.Gate{}, inst.Multiplier)
	w.WriteString(codec.Gate{}, inst.Exchange)
	w.WriteString(codec.Gate{}, inst.Currency)
	w.WriteString(codec.Gate{}, inst.LocalSymbol)
	w.WriteBool(codec.Gate{}, includeExpired)
	w.WriteString(codec.Gate{}, endDateTime)
	w.WriteString(codec.Gate{}, barSize)
	w.WriteString(codec.Gate{}, duration)
	w.WriteBool(codec.Gate{}, useRTH)
	w.WriteString(codec.Gate{}, whatToShow)
	w.WriteIntVal(codec.Gate{}, 2) // date format: always unix seconds
	w.WriteBool(codec.Gate{}, false) // keep up to date
	codec.WriteList(w, codec.Gate{}, ([]string)(nil), func(w *codec.Writer, v string) { w.WriteString(codec.Gate{}, v) })

	st := &historicalState{}
	c.stateMu.Lock()
	c.historical[id] = st
	c.stateMu.Unlock()

	ch := c.requests.makePending(id)
	if err := c.send(w.Fields()); err != nil {
		c.requests.cancel(id)
		c.stateMu.Lock()
		delete(c.historical, id)
		c.stateMu.Unlock()
		return HistoricalBarsResult{}, err
	}

	select {
	case res := <-ch:
		c.stateMu.Lock()
		delete(c.historical, id)
		c.stateMu.Unlock()
		if res.err != nil {
			return HistoricalBarsResult{}, res.err
		}
		return res.value.(HistoricalBarsResult), nil
	case <-ctx.Done():
		c.requests.cancel(id)
		c.stateMu.Lock()
		st.canceled = true
		c.stateMu.Unlock()
		c.cancelHistoricalData(id)
		return HistoricalBarsResult{}, ctx.Err()
	}
}

func (c *Connection) cancelHistoricalData(id int32) {
	w := codec.NewWriter(c.proto)
	w.WriteIntVal(codec.Gate{}, int32(message.CancelHistoricalData))
	w.WriteIntVal(codec.Gate{}, 1)
	w.WriteIntVal(codec.Gate{}, id)
	if err := c.send(w.Fields()); err != nil {
		c.logger.Warn("cancel historical data failed", "request_id", id, "err", err)
	}
}

// handleHistoricalData decodes the single HISTORICAL_DATA block. A late
// arrival for a request already canceled is dropped silently (S5).
func handleHistoricalData(c *Connection, r *codec.Reader) {
	id := r.ReadIntOr(codec.Gate{}, 0)

	c.stateMu.Lock()
	st, known := c.historical[id]
	c.stateMu.Unlock()

	result := HistoricalBarsResult{
		Start: r.ReadString(codec.Gate{}, ""),
		End:   r.ReadString(codec.Gate{}, ""),
	}
	n := r.ReadIntOr(codec.Gate{}, 0)
	for i := int32(0); i < n; i++ {
		result.Bars = append(result.Bars, bar.Decode(r, true))
	}

	if !known || st.canceled {
		return
	}
	c.requests.resolve(id, result)
}
