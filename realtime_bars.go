package ibclient

import (
	"github.com/ondergetekende/ibclient/codec"
	"github.com/ondergetekende/ibclient/instrument"
	"github.com/ondergetekende/ibclient/message"
)

// realtimeBarSub tracks one active REQ_REAL_TIME_BARS subscription, keyed
// by request id, for routing incoming REAL_TIME_BARS frames back to the
// subscribing Instrument (spec.md §4.8 "Real-time bars").
type realtimeBarSub struct {
	inst *instrument.Instrument
}

// onRealtimeBarSubscribe is OnRealtimeBar's first-subscriber callback.
// Only 5-second bars are supported, matching this client's scope.
func (c *Connection) onRealtimeBarSubscribe(inst *instrument.Instrument) {
	id := c.requests.nextRequestID()

	c.stateMu.Lock()
	if oldID, ok := c.realtimeBarsByContract[inst.ContractID]; ok {
		delete(c.realtimeBars, oldID)
	}
	c.realtimeBars[id] = &realtimeBarSub{inst: inst}
	c.realtimeBarsByContract[inst.ContractID] = id
	c.stateMu.Unlock()

	w := codec.NewWriter(c.proto)
	w.WriteIntVal(codec.Gate{}, int32(message.ReqRealTimeBars))
	w.WriteIntVal(codec.Gate{}, 3)
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
	w.WriteString(codec.Gate{}, inst.TradingClass)
	w.WriteIntVal(codec.Gate{}, 5) // bar size, seconds: only 5s bars supported
	w.WriteString(codec.Gate{}, "TRADES")
	w.WriteBool(codec.Gate{}, false) // use_rth
	codec.WriteList(w, codec.Gate{}, ([]string)(nil), func(w *codec.Writer, v string) { w.WriteString(codec.Gate{}, v) })

	if err := c.send(w.Fields()); err != nil {
		c.logger.Warn("real-time bars subscribe failed", "contract_id", inst.ContractID, "err", err)
	}
}

// onRealtimeBarUnsubscribe is OnRealtimeBar's last-subscriber callback.
func (c *Connection) onRealtimeBarUnsubscribe(inst *instrument.Instrument) {
	c.stateMu.Lock()
	id, ok := c.realtimeBarsByContract[inst.ContractID]
	if ok {
		delete(c.realtimeBarsByContract, inst.ContractID)
		delete(c.realtimeBars, id)
	}
	c.stateMu.Unlock()
	if !ok {
		return
	}

	w := codec.NewWriter(c.proto)
	w.WriteIntVal(codec.Gate{}, int32(message.CancelRealTimeBars))
	w.WriteIntVal(codec.Gate{}, 1)
	w.WriteIntVal(codec.Gate{}, id)
	if err := c.send(w.Fields()); err != nil {
		c.logger.Warn("real-time bars cancel failed", "contract_id", inst.ContractID, "err", err)
	}
}

// handleRealTimeBars decodes one REAL_TIME_BARS frame and fires it on the
// subscribing Instrument's OnRealtimeBar sink.
func handleRealTimeBars(c *Connection, r *codec.Reader) {
	id := r.ReadIntOr(codec.Gate{}, 0)
	c.stateMu.Lock()
	sub := c.realtimeBars[id]
	c.stateMu.Unlock()
	if sub == nil {
		return
	}
	bar := instrument.RealtimeBarEvent{
		Time:    int64(r.ReadIntOr(codec.Gate{}, 0)),
		Open:    r.ReadFloatOr(codec.Gate{}, 0),
		High:    r.ReadFloatOr(codec.Gate{}, 0),
		Low:     r.ReadFloatOr(codec.Gate{}, 0),
		Close:   r.ReadFloatOr(codec.Gate{}, 0),
		Volume:  r.ReadFloatOr(codec.Gate{}, 0),
		Average: r.ReadFloatOr(codec.Gate{}, 0),
		Count:   r.ReadIntOr(codec.Gate{}, 0),
	}
	sub.inst.OnRealtimeBar.Fire(bar)
}
