package ibclient

import (
	"github.com/ondergetekende/ibclient/codec"
	"github.com/ondergetekende/ibclient/instrument"
	"github.com/ondergetekende/ibclient/message"
)

// marketDepthSub tracks one active REQ_MKT_DEPTH subscription, keyed by
// its request id, so incoming MARKET_DEPTH/MARKET_DEPTH_L2 frames (which
// carry the request id, not the contract id) can be routed back to the
// subscribing Instrument (spec.md §4.8 "Market depth").
type marketDepthSub struct {
	inst *instrument.Instrument
}

// onMarketDepthSubscribe is Instrument.OnMarketDepth's first-subscriber
// callback (spec.md §4.6, §4.8 "Streaming subscription" pattern): it sends
// REQ_MKT_DEPTH and records request id -> Instrument.
func (c *Connection) onMarketDepthSubscribe(inst *instrument.Instrument) {
	id := c.requests.nextRequestID()

	c.stateMu.Lock()
	if oldID, ok := c.marketDepthByContract[inst.ContractID]; ok {
		delete(c.marketDepth, oldID)
	}
	c.marketDepth[id] = &marketDepthSub{inst: inst}
	c.marketDepthByContract[inst.ContractID] = id
	c.stateMu.Unlock()

	rows := inst.MarketDepthRows
	if rows == 0 {
		rows = 5
	}

	w := codec.NewWriter(c.proto)
	w.WriteIntVal(codec.Gate{}, int32(message.ReqMktDepth))
	w.WriteIntVal(codec.Gate{}, 5)
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
	w.WriteIntVal(codec.Gate{}, rows)
	w.WriteBool(codec.Gate{}, false) // is_smart_depth
	codec.WriteList(w, codec.Gate{}, ([]string)(nil), func(w *codec.Writer, v string) { w.WriteString(codec.Gate{}, v) })

	if err := c.send(w.Fields()); err != nil {
		c.logger.Warn("market depth subscribe failed", "contract_id", inst.ContractID, "err", err)
	}
}

// onMarketDepthUnsubscribe is OnMarketDepth's last-subscriber callback: it
// sends CANCEL_MKT_DEPTH and clears the routing entry.
func (c *Connection) onMarketDepthUnsubscribe(inst *instrument.Instrument) {
	c.stateMu.Lock()
	id, ok := c.marketDepthByContract[inst.ContractID]
	if ok {
		delete(c.marketDepthByContract, inst.ContractID)
		delete(c.marketDepth, id)
	}
	c.stateMu.Unlock()
	if !ok {
		return
	}

	w := codec.NewWriter(c.proto)
	w.WriteIntVal(codec.Gate{}, int32(message.CancelMktDepth))
	w.WriteIntVal(codec.Gate{}, 1)
	w.WriteIntVal(codec.Gate{}, id)
	w.WriteBool(codec.Gate{}, false) // is_smart_depth
	if err := c.send(w.Fields()); err != nil {
		c.logger.Warn("market depth cancel failed", "contract_id", inst.ContractID, "err", err)
	}
}

func (c *Connection) depthSubByRequestID(id int32) *marketDepthSub {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.marketDepth[id]
}

// handleMarketDepthL1 decodes a MARKET_DEPTH (L1) row: (position, operation,
// side, price, size); no market maker field (spec.md §4.8 "Market depth").
func handleMarketDepthL1(c *Connection, r *codec.Reader) {
	id := r.ReadIntOr(codec.Gate{}, 0)
	sub := c.depthSubByRequestID(id)
	if sub == nil {
		return
	}
	e := instrument.DepthEvent{
		Position:  r.ReadIntOr(codec.Gate{}, 0),
		Operation: instrument.DepthOperation(r.ReadIntOr(codec.Gate{}, 0)),
		Side:      instrument.DepthSide(r.ReadIntOr(codec.Gate{}, 0)),
		Price:     r.ReadFloatOr(codec.Gate{}, 0),
		Size:      r.ReadFloatOr(codec.Gate{}, 0),
	}
	sub.inst.ApplyDepth(e)
}

// handleMarketDepthL2 decodes a MARKET_DEPTH_L2 row: L1's fields plus
// market_maker, read between position and operation.
func handleMarketDepthL2(c *Connection, r *codec.Reader) {
	id := r.ReadIntOr(codec.Gate{}, 0)
	sub := c.depthSubByRequestID(id)
	if sub == nil {
		return
	}
	e := instrument.DepthEvent{
		Position:    r.ReadIntOr(codec.Gate{}, 0),
		MarketMaker: r.ReadString(codec.Gate{}, ""),
		Operation:   instrument.DepthOperation(r.ReadIntOr(codec.Gate{}, 0)),
		Side:        instrument.DepthSide(r.ReadIntOr(codec.Gate{}, 0)),
		Price:       r.ReadFloatOr(codec.Gate{}, 0),
		Size:        r.ReadFloatOr(codec.Gate{}, 0),
		IsL2:        true,
	}
	sub.inst.ApplyDepth(e)
}
