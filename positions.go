package ibclient

import (
	"github.com/ondergetekende/ibclient/codec"
	"github.com/ondergetekende/ibclient/message"
)

// onPositionsSubscribe is Connection.Positions's first-subscriber
// callback: it sends REQ_POSITIONS (spec.md §4.8 "Positions").
func (c *Connection) onPositionsSubscribe() {
	w := codec.NewWriter(c.proto)
	w.WriteIntVal(codec.Gate{}, int32(message.ReqPositions))
	w.WriteIntVal(codec.Gate{}, 1)
	if err := c.send(w.Fields()); err != nil {
		c.logger.Warn("positions subscribe failed", "err", err)
	}
}

// onPositionsUnsubscribe is Connection.Positions's last-subscriber
// callback: it sends CANCEL_POSITIONS.
func (c *Connection) onPositionsUnsubscribe() {
	w := codec.NewWriter(c.proto)
	w.WriteIntVal(codec.Gate{}, int32(message.CancelPositions))
	w.WriteIntVal(codec.Gate{}, 1)
	if err := c.send(w.Fields()); err != nil {
		c.logger.Warn("positions cancel failed", "err", err)
	}
}

// handlePositionData decodes one POSITION_DATA row, aggregating it into
// the named account's position map and firing Connection.Positions
// (spec.md §4.8 "Positions": "Aggregates rows into per-account maps until
// POSITION_END").
func handlePositionData(c *Connection, r *codec.Reader) {
	acctID := r.ReadString(codec.Gate{}, "")
	contractID := r.ReadIntOr(codec.Gate{}, 0)
	inst := c.instrument(contractID)
	inst.Symbol = r.ReadString(codec.Gate{}, "")
	inst.SecurityType, _ = readSecurityType(r)
	inst.LastTradeDate = r.ReadString(codec.Gate{}, "")
	inst.Strike = r.ReadFloatOr(codec.Gate{}, 0)
	inst.Right = r.ReadString(codec.Gate{}, "")
	inst.Multiplier = r.ReadString(codec.Gate{}, "")
	inst.Exchange = r.ReadString(codec.Gate{}, "")
	inst.Currency = r.ReadString(codec.Gate{}, "")
	inst.LocalSymbol = r.ReadString(codec.Gate{}, "")
	inst.TradingClass = r.ReadString(codec.Gate{}, "")
	position := r.ReadFloatOr(codec.Gate{}, 0)
	avgCost := r.ReadFloatOr(codec.Gate{}, 0)

	c.stateMu.Lock()
	acct, ok := c.accounts[acctID]
	if !ok {
		acct = &Account{ID: acctID, Positions: make(map[int32]PositionEntry)}
		c.accounts[acctID] = acct
	}
	acct.Positions[contractID] = PositionEntry{Position: position, AvgCost: avgCost}
	c.stateMu.Unlock()

	c.Positions.Fire(PositionEvent{Account: acct, ContractID: contractID, Position: position, AvgCost: avgCost})
}

func handlePositionEnd(c *Connection, r *codec.Reader) {
	// No accumulation beyond the per-account maps already updated by each
	// POSITION_DATA row.
}
