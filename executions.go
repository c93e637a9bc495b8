package ibclient

import (
	"context"

	"github.com/ondergetekende/ibclient/codec"
	"github.com/ondergetekende/ibclient/execution"
	"github.com/ondergetekende/ibclient/ibkrerr"
	"github.com/ondergetekende/ibclient/instrument"
	"github.com/ondergetekende/ibclient/message"
)

// ExecutionsFilter narrows a REQ_EXECUTIONS request; a zero value requests
// everything the server will return for this client id.
type ExecutionsFilter struct {
	ClientID   int32
	AcctCode   string
	Time       string
	Symbol     string
	SecType    string
	Exchange   string
	Side       string
}

// Executions issues REQ_EXECUTIONS and resolves with every EXECUTION_DATA
// row accumulated until EXECUTION_DATA_END (spec.md §4.8 "Executions").
// Each row also fans out to three sinks as it arrives: Connection-level
// (c.OnExecution), Instrument-level, and Order-level, keyed by
// InstrumentContractID and OrderID respectively.
func (c *Connection) Executions(ctx context.Context, filter ExecutionsFilter) ([]execution.Execution, error) {
	if c.proto == 0 {
		return nil, ibkrerr.New(ibkrerr.NotConnected, "handshake not completed")
	}

	id := c.requests.nextRequestID()
	w := codec.NewWriter(c.proto)
	w.WriteIntVal(codec.Gate{}, int32(message.ReqExecutions))
	w.WriteIntVal(codec.Gate{}, 3)
	w.WriteIntVal(codec.Gate{}, id)
	w.WriteIntVal(codec.Gate{}, filter.ClientID)
	w.WriteString(codec.Gate{}, filter.AcctCode)
	w.WriteString(codec.Gate{}, filter.Time)
	w.WriteString(codec.Gate{}, filter.Symbol)
	w.WriteString(codec.Gate{}, filter.SecType)
	w.WriteString(codec.Gate{}, filter.Exchange)
	w.WriteString(codec.Gate{}, filter.Side)

	c.stateMu.Lock()
	c.executionRows[id] = nil
	c.stateMu.Unlock()

	ch := c.requests.makePending(id)
	if err := c.send(w.Fields()); err != nil {
		c.requests.cancel(id)
		c.stateMu.Lock()
		delete(c.executionRows, id)
		c.stateMu.Unlock()
		return nil, err
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.value.([]execution.Execution), nil
	case <-ctx.Done():
		c.requests.cancel(id)
		return nil, ctx.Err()
	}
}

// trackedExecution remembers the sinks an Execution fanned out to, so a
// later COMMISSION_REPORT naming the same execution id can attach itself
// and re-fire through the same three sinks (spec.md SUPPLEMENTED:
// CommissionReport "decoded and attached to its Execution by execution
// id").
type trackedExecution struct {
	exec  *execution.Execution
	inst  *instrument.Instrument
	order *pendingOrder
}

// handleExecutionData decodes one EXECUTION_DATA row, reads the contract
// id to canonicalize the Instrument before calling execution.Decode, then
// fans the row out to the Connection, Instrument, and Order sinks.
func handleExecutionData(c *Connection, r *codec.Reader) {
	requestID := r.ReadIntOr(codec.Gate{}, 0)
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

	e := execution.Decode(r)
	e.InstrumentContractID = contractID

	c.stateMu.Lock()
	c.executionRows[requestID] = append(c.executionRows[requestID], e)
	p := c.orders[e.OrderID]
	c.executionByID[e.ExecutionID] = &trackedExecution{exec: &e, inst: inst, order: p}
	c.stateMu.Unlock()

	c.OnExecution.Fire(e)
	inst.OnExecution.Fire(e)
	if p != nil && p.order.OnExecution != nil {
		p.order.OnExecution.Fire(e)
	}
}

func handleExecutionDataEnd(c *Connection, r *codec.Reader) {
	requestID := r.ReadIntOr(codec.Gate{}, 0)
	c.stateMu.Lock()
	rows := c.executionRows[requestID]
	delete(c.executionRows, requestID)
	c.stateMu.Unlock()
	c.requests.resolve(requestID, rows)
}

// handleCommissionReport decodes a COMMISSION_REPORT, attaches it to the
// Execution it names by ExecutionID, and re-fires that Execution through
// the same three sinks (Connection, Instrument, Order) so subscribers see
// the commission-bearing copy.
func handleCommissionReport(c *Connection, r *codec.Reader) {
	report := execution.DecodeCommissionReport(r)

	c.stateMu.Lock()
	t := c.executionByID[report.ExecutionID]
	c.stateMu.Unlock()
	if t == nil {
		c.logger.Debug("commission report for unknown execution", "execution_id", report.ExecutionID)
		return
	}

	t.exec.Commission = &report
	c.OnExecution.Fire(*t.exec)
	t.inst.OnExecution.Fire(*t.exec)
	if t.order != nil && t.order.order.OnExecution != nil {
		t.order.order.OnExecution.Fire(*t.exec)
	}
}
