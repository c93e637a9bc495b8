package ibclient

import (
	"context"
	"strings"

	"github.com/ondergetekende/ibclient/codec"
	"github.com/ondergetekende/ibclient/ibkrerr"
	"github.com/ondergetekende/ibclient/instrument"
	"github.com/ondergetekende/ibclient/message"
	"github.com/ondergetekende/ibclient/protover"
	"github.com/ondergetekende/ibclient/ticktype"
)

// marketDataSub tracks one active REQ_MKT_DATA subscription, keyed by its
// request id (the "ticker id" on the wire), so incoming TICK_* frames can
// be routed back to the subscribing Instrument (spec.md §4.8 "Market data
// subscribe").
type marketDataSub struct {
	inst     *instrument.Instrument
	snapshot bool
}

// SubscribeMarketData validates that inst is not already subscribed, sends
// REQ_MKT_DATA, and resolves immediately for a streaming subscription or
// on TICK_SNAPSHOT_END for a one-shot snapshot (spec.md §4.8 "Market data
// subscribe"). Field updates stream on inst.OnTick for the life of the
// subscription; call CancelMarketData to stop them.
func (c *Connection) SubscribeMarketData(ctx context.Context, inst *instrument.Instrument, genericTicks []string, snapshot, regulatorySnapshot bool) error {
	if c.proto == 0 {
		return ibkrerr.New(ibkrerr.NotConnected, "handshake not completed")
	}
	if inst.SecurityType == instrument.SecurityTypeBag {
		return ibkrerr.New(ibkrerr.UnsupportedFeature, "BAG orders are not supported")
	}
	if regulatorySnapshot {
		if err := c.requireFeature(protover.ReqSmartComponents, "regulatory snapshot"); err != nil {
			return err
		}
	}

	c.stateMu.Lock()
	if _, already := c.marketDataByContract[inst.ContractID]; already {
		c.stateMu.Unlock()
		return ibkrerr.New(ibkrerr.InvariantViolation, "instrument already subscribed to market data")
	}
	id := c.requests.nextRequestID()
	c.marketData[id] = &marketDataSub{inst: inst, snapshot: snapshot}
	c.marketDataByContract[inst.ContractID] = id
	c.stateMu.Unlock()

	w := codec.NewWriter(c.proto)
	w.WriteIntVal(codec.Gate{}, int32(message.ReqMktData))
	w.WriteIntVal(codec.Gate{}, 11)
	w.WriteIntVal(codec.Gate{}, id)
	w.WriteIntVal(codec.Gate{}, inst.ContractID)
	w.WriteString(codec.Gate{}, inst.Symbol)
	w.WriteString(codec.Gate{}, string(inst.SecurityType))
	w.WriteString(codec.Gate{}, inst.LastTradeDate)
	w.WriteFloat(codec.Gate{}, &inst.Strike)
	w.WriteString(codec.Gate{}, inst.Right)
	w.WriteString(codec.Gate{}, inst.Multiplier)
	w.WriteString(codec.Gate{}, inst.Exchange)
	w.WriteString(codec.Gate{}, inst.PrimaryExchange)
	w.WriteString(codec.Gate{}, inst.Currency)
	w.WriteString(codec.Gate{}, inst.LocalSymbol)
	w.WriteString(codec.Gate{}, inst.TradingClass)
	w.WriteBool(codec.Gate{}, false) // combo legs present
	w.WriteString(codec.Gate{}, strings.Join(genericTicks, ","))
	w.WriteBool(codec.Gate{}, snapshot)
	w.WriteBool(codec.Gate{MinVersion: protover.ReqSmartComponents}, regulatorySnapshot)
	codec.WriteList(w, codec.Gate{}, ([]string)(nil), func(w *codec.Writer, v string) { w.WriteString(codec.Gate{}, v) })

	var ch <-chan completionResult
	if snapshot {
		ch = c.requests.makePending(id)
	}

	if err := c.send(w.Fields()); err != nil {
		c.stateMu.Lock()
		delete(c.marketData, id)
		delete(c.marketDataByContract, inst.ContractID)
		c.stateMu.Unlock()
		if snapshot {
			c.requests.cancel(id)
		}
		return err
	}

	if !snapshot {
		return nil
	}

	select {
	case res := <-ch:
		return res.err
	case <-ctx.Done():
		c.requests.cancel(id)
		return ctx.Err()
	}
}

// CancelMarketData sends CANCEL_MKT_DATA and stops routing ticks to inst.
func (c *Connection) CancelMarketData(inst *instrument.Instrument) error {
	c.stateMu.Lock()
	id, ok := c.marketDataByContract[inst.ContractID]
	if ok {
		delete(c.marketDataByContract, inst.ContractID)
		delete(c.marketData, id)
	}
	c.stateMu.Unlock()
	if !ok {
		return nil
	}

	w := codec.NewWriter(c.proto)
	w.WriteIntVal(codec.Gate{}, int32(message.CancelMktData))
	w.WriteIntVal(codec.Gate{}, 2)
	w.WriteIntVal(codec.Gate{}, id)
	return c.send(w.Fields())
}

func (c *Connection) marketDataSubByRequestID(id int32) *marketDataSub {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.marketData[id]
}

// handleTickPrice expands the attribute bitmask to {CanAutoExecute,
// PastLimit, PreOpen} and, when the price tick has an accompanying paired
// size tick type, also fires that size update (spec.md §4.8).
func handleTickPrice(c *Connection, r *codec.Reader) {
	id := r.ReadIntOr(codec.Gate{}, 0)
	tickType := ticktype.ByInt(r.ReadIntOr(codec.Gate{}, -1))
	price := r.ReadFloatOr(codec.Gate{}, 0)
	size := r.ReadFloatOr(codec.Gate{}, 0)
	attrs := ticktype.ParsePriceAttributes(r.ReadIntOr(codec.Gate{}, 0))

	sub := c.marketDataSubByRequestID(id)
	if sub == nil {
		return
	}
	sub.inst.OnTick.Fire(instrument.TickUpdate{Type: tickType, Price: price, Attrs: attrs})
	if sizeType, ok := ticktype.PairedSizeTick(tickType); ok {
		sub.inst.OnTick.Fire(instrument.TickUpdate{Type: sizeType, Size: size})
	}
}

func handleTickSize(c *Connection, r *codec.Reader) {
	id := r.ReadIntOr(codec.Gate{}, 0)
	tickType := ticktype.ByInt(r.ReadIntOr(codec.Gate{}, -1))
	size := r.ReadFloatOr(codec.Gate{}, 0)
	sub := c.marketDataSubByRequestID(id)
	if sub == nil {
		return
	}
	sub.inst.OnTick.Fire(instrument.TickUpdate{Type: tickType, Size: size})
}

func handleTickGeneric(c *Connection, r *codec.Reader) {
	id := r.ReadIntOr(codec.Gate{}, 0)
	tickType := ticktype.ByInt(r.ReadIntOr(codec.Gate{}, -1))
	value := r.ReadFloatOr(codec.Gate{}, 0)
	sub := c.marketDataSubByRequestID(id)
	if sub == nil {
		return
	}
	sub.inst.OnTick.Fire(instrument.TickUpdate{Type: tickType, Price: value})
}

func handleTickString(c *Connection, r *codec.Reader) {
	id := r.ReadIntOr(codec.Gate{}, 0)
	tickType := ticktype.ByInt(r.ReadIntOr(codec.Gate{}, -1))
	value := r.ReadString(codec.Gate{}, "")
	sub := c.marketDataSubByRequestID(id)
	if sub == nil {
		return
	}
	sub.inst.OnTick.Fire(instrument.TickUpdate{Type: tickType, Value: value})
}

// handleTickReqParams records the minimum price increment and best-ask
// exchange reported for a subscription; this client exposes it as a tick
// with Value carrying the raw exchange list, since the original's
// dedicated callback is out of this client's supplemented scope.
func handleTickReqParams(c *Connection, r *codec.Reader) {
	id := r.ReadIntOr(codec.Gate{}, 0)
	minTick := r.ReadFloatOr(codec.Gate{}, 0)
	bboExchange := r.ReadString(codec.Gate{}, "")
	sub := c.marketDataSubByRequestID(id)
	if sub == nil {
		return
	}
	sub.inst.MinimumTick = minTick
	sub.inst.OnTick.Fire(instrument.TickUpdate{Type: ticktype.Unknown, Value: bboExchange})
}

func handleTickSnapshotEnd(c *Connection, r *codec.Reader) {
	id := r.ReadIntOr(codec.Gate{}, 0)
	c.requests.resolve(id, nil)
}
