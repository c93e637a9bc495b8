package ibclient

import (
	"context"

	"github.com/ondergetekende/ibclient/codec"
	"github.com/ondergetekende/ibclient/event"
	"github.com/ondergetekende/ibclient/ibkrerr"
	"github.com/ondergetekende/ibclient/message"
	"github.com/ondergetekende/ibclient/order"
)

// pendingOrder tracks one order awaiting its initial placement completion,
// keyed by order id (spec.md §4.8 "Orders"): the completion resolves on
// the first of ORDER_STATUS/OPEN_ORDER to arrive for that id, or fails if
// an ERROR names that order id as its request id.
type pendingOrder struct {
	order *order.Order
}

// PlaceOrder assigns an order id from the next-valid-id cursor if unset,
// encodes o, and sends PLACE_ORDER. It then blocks and returns nil on the
// first ORDER_STATUS or OPEN_ORDER naming this order id, the error from an
// ERROR naming it, or ctx.Err(); o itself is updated in place (spec.md
// §4.8 "Orders", S6).
func (c *Connection) PlaceOrder(ctx context.Context, o *order.Order) error {
	if c.proto == 0 {
		return ibkrerr.New(ibkrerr.NotConnected, "handshake not completed")
	}

	c.stateMu.Lock()
	if o.OrderID == 0 {
		o.OrderID = c.nextOrderID
		c.nextOrderID++
	}
	if o.OnExecution == nil {
		o.OnExecution = event.NewInstance[any](nil, nil)
	}
	orderID := o.OrderID
	c.orders[orderID] = &pendingOrder{order: o}
	c.stateMu.Unlock()

	w := codec.NewWriter(c.proto)
	w.WriteIntVal(codec.Gate{}, int32(message.PlaceOrder))
	w.WriteIntVal(codec.Gate{}, orderID)
	if err := o.Encode(w, c.proto); err != nil {
		c.stateMu.Lock()
		delete(c.orders, orderID)
		c.stateMu.Unlock()
		return err
	}

	ch := c.requests.makePending(orderID)
	if err := c.send(w.Fields()); err != nil {
		c.requests.cancel(orderID)
		c.stateMu.Lock()
		delete(c.orders, orderID)
		c.stateMu.Unlock()
		return err
	}

	select {
	case res := <-ch:
		return res.err
	case <-ctx.Done():
		c.requests.cancel(orderID)
		return ctx.Err()
	}
}

// CancelOrder sends CANCEL_ORDER for orderID.
func (c *Connection) CancelOrder(orderID int32) error {
	w := codec.NewWriter(c.proto)
	w.WriteIntVal(codec.Gate{}, int32(message.CancelOrder))
	w.WriteIntVal(codec.Gate{}, 1)
	w.WriteIntVal(codec.Gate{}, orderID)
	return c.send(w.Fields())
}

func (c *Connection) pendingOrderByID(orderID int32) *pendingOrder {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.orders[orderID]
}

// handleOrderStatus decodes ORDER_STATUS, updates the tracked Order's
// status fields, and resolves the place-order completion if this is the
// first status/echo seen for this order id.
func handleOrderStatus(c *Connection, r *codec.Reader) {
	s := order.DecodeOrderStatus(r)
	p := c.pendingOrderByID(s.OrderID)
	if p == nil {
		return
	}
	o := p.order
	o.Status = s.Status
	o.Filled = s.Filled
	o.Remaining = s.Remaining
	o.AvgFillPrice = s.AvgFillPrice
	o.PermID = s.PermID
	o.ParentID = s.ParentID
	o.LastFillPrice = s.LastFillPrice
	o.ClientID = s.ClientID
	o.WhyHeld = s.WhyHeld
	o.MarketCapPrice = s.MarketCapPrice
	c.requests.resolve(s.OrderID, o)
}

// handleOpenOrder decodes an OPEN_ORDER echo for an order this client
// placed and resolves the place-order completion if still pending.
func handleOpenOrder(c *Connection, r *codec.Reader) {
	echoed := order.DecodeOpenOrder(r)
	p := c.pendingOrderByID(echoed.OrderID)
	if p == nil {
		return
	}
	c.requests.resolve(echoed.OrderID, p.order)
}

func handleOpenOrderEnd(c *Connection, r *codec.Reader) {
	// No accumulation state: each OPEN_ORDER already resolved its own
	// order id's completion as it arrived.
}

// handleNextValidID seeds the client-assigned order id cursor (spec.md §3
// "Order ids are client-assigned from a server-provided 'next valid id'
// cursor").
func handleNextValidID(c *Connection, r *codec.Reader) {
	id := r.ReadIntOr(codec.Gate{}, 0)
	c.stateMu.Lock()
	if id > c.nextOrderID {
		c.nextOrderID = id
	}
	c.stateMu.Unlock()
}
