package ibclient

import (
	"github.com/ondergetekende/ibclient/codec"
	"github.com/ondergetekende/ibclient/ibkrerr"
	"github.com/ondergetekende/ibclient/instrument"
	"github.com/ondergetekende/ibclient/message"
	"github.com/ondergetekende/ibclient/protover"
	"github.com/ondergetekende/ibclient/ticktype"
)

// tickByTickSub tracks one active REQ_TICK_BY_TICK_DATA subscription, keyed
// by request id (spec.md §4.8 "Tick-by-tick").
type tickByTickSub struct {
	inst *instrument.Instrument
	kind ticktype.TickByTickKind
}

// SubscribeTickByTick sends REQ_TICK_BY_TICK_DATA for one of the four
// payload kinds (spec.md §4.8 "Tick-by-tick") and delivers updates on the
// returned channel until the returned cancel func is called.
func (c *Connection) SubscribeTickByTick(inst *instrument.Instrument, kind ticktype.TickByTickKind) (<-chan any, func(), error) {
	if c.proto == 0 {
		return nil, nil, ibkrerr.New(ibkrerr.NotConnected, "handshake not completed")
	}
	if err := c.requireFeature(protover.TickByTick, "REQ_TICK_BY_TICK_DATA"); err != nil {
		return nil, nil, err
	}

	id := c.requests.nextRequestID()
	sub := &tickByTickSub{inst: inst, kind: kind}
	c.stateMu.Lock()
	c.tickByTick[id] = sub
	c.stateMu.Unlock()

	kindName := map[ticktype.TickByTickKind]string{
		ticktype.TickByTickLast:     "Last",
		ticktype.TickByTickAllLast:  "AllLast",
		ticktype.TickByTickBidAsk:   "BidAsk",
		ticktype.TickByTickMidpoint: "MidPoint",
	}[kind]

	w := codec.NewWriter(c.proto)
	w.WriteIntVal(codec.Gate{}, int32(message.ReqTickByTickData))
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
	w.WriteString(codec.Gate{}, kindName)
	w.WriteIntVal(codec.Gate{}, 0) // number of ticks, 0 = streaming
	w.WriteBool(codec.Gate{}, false) // ignore size

	ch := make(chan any, 32)

	if err := c.send(w.Fields()); err != nil {
		c.stateMu.Lock()
		delete(c.tickByTick, id)
		c.stateMu.Unlock()
		return nil, nil, err
	}

	c.stateMu.Lock()
	c.tickByTickChans[id] = ch
	c.stateMu.Unlock()

	cancel := func() {
		c.stateMu.Lock()
		delete(c.tickByTick, id)
		delete(c.tickByTickChans, id)
		c.stateMu.Unlock()
		w := codec.NewWriter(c.proto)
		w.WriteIntVal(codec.Gate{}, int32(message.CancelTickByTickData))
		w.WriteIntVal(codec.Gate{}, id)
		_ = c.send(w.Fields())
	}
	return ch, cancel, nil
}

// handleTickByTick decodes one tick-by-tick frame, dispatching on its kind
// to the corresponding typed payload (spec.md §4.8 "Tick-by-tick").
func handleTickByTick(c *Connection, r *codec.Reader) {
	id := r.ReadIntOr(codec.Gate{}, 0)
	c.stateMu.Lock()
	sub := c.tickByTick[id]
	ch := c.tickByTickChans[id]
	c.stateMu.Unlock()
	if sub == nil {
		return
	}

	kind := ticktype.TickByTickKind(r.ReadIntOr(codec.Gate{}, 0))
	var value any
	switch kind {
	case ticktype.TickByTickLast, ticktype.TickByTickAllLast:
		t := ticktype.LastTick{Time: int64(r.ReadIntOr(codec.Gate{}, 0))}
		t.Price = r.ReadFloatOr(codec.Gate{}, 0)
		t.Size = r.ReadFloatOr(codec.Gate{}, 0)
		t.PastLimit, t.Unreported = ticktype.ParseLastTickAttrs(r.ReadIntOr(codec.Gate{}, 0))
		t.Exchange = r.ReadString(codec.Gate{}, "")
		t.Conditions = r.ReadString(codec.Gate{}, "")
		value = t
	case ticktype.TickByTickBidAsk:
		t := ticktype.BidAskTick{Time: int64(r.ReadIntOr(codec.Gate{}, 0))}
		t.BidPrice = r.ReadFloatOr(codec.Gate{}, 0)
		t.AskPrice = r.ReadFloatOr(codec.Gate{}, 0)
		t.BidSize = r.ReadFloatOr(codec.Gate{}, 0)
		t.AskSize = r.ReadFloatOr(codec.Gate{}, 0)
		t.BidPastLow, t.AskPastHigh = ticktype.ParseBidAskTickAttrs(r.ReadIntOr(codec.Gate{}, 0))
		value = t
	case ticktype.TickByTickMidpoint:
		t := ticktype.MidpointTick{Time: int64(r.ReadIntOr(codec.Gate{}, 0))}
		t.Midpoint = r.ReadFloatOr(codec.Gate{}, 0)
		value = t
	default:
		return
	}

	if ch != nil {
		select {
		case ch <- value:
		default:
		}
	}
}
