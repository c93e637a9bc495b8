package ibclient

import "github.com/ondergetekende/ibclient/instrument"

// instrument returns the Instrument for contractID, creating it if needed,
// and binds its declarative event sinks' subscribe/unsubscribe wire
// callbacks to this Connection on every lookup (spec.md §9 "cyclic
// references between Connection and domain objects": domain objects hold
// a back reference to the Connection to issue wire messages). Wiring is
// idempotent and cheap, so it is safe to call on every lookup rather than
// tracking it precisely.
func (c *Connection) instrument(contractID int32) *instrument.Instrument {
	inst := c.instruments.getOrCreate(contractID)

	inst.OnMarketDepth.SetCallbacks(
		func() { c.onMarketDepthSubscribe(inst) },
		func() { c.onMarketDepthUnsubscribe(inst) },
	)
	inst.OnRealtimeBar.SetCallbacks(
		func() { c.onRealtimeBarSubscribe(inst) },
		func() { c.onRealtimeBarUnsubscribe(inst) },
	)
	return inst
}
