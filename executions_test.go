package ibclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ondergetekende/ibclient/execution"
)

// executionDataFrame builds an EXECUTION_DATA frame (kind 11, message
// version 10) for requestID/orderID/contractID, matching the field order
// handleExecutionData + execution.Decode expect: requestID, contractID,
// then ten contract fields, then OrderID, then execution.Decode's fields.
// ModelCode and LastLiquidity are gated on the negotiated protocol version
// (187 in newPipedConnection), not this message version.
func executionDataFrame(requestID, orderID, contractID string) []string {
	return []string{
		"11", "10",
		requestID, contractID,
		"AAPL", "STK", "", "0", "", "", "SMART", "USD", "", "",
		orderID,
		"0000e1a7.111", "20260730 10:00:00", "DU123456", "SMART", "BOT",
		"100", "150.25",
		"1", "7", "0",
		"100", "150.25",
		"", "", "0", "", "0",
	}
}

func TestExecutionsAccumulatesUntilEndAndFansOutThreeWays(t *testing.T) {
	t.Parallel()
	c, gw := newPipedConnection(t)

	o := newTestMarketOrder(4001)
	o.OrderID = 88
	c.stateMu.Lock()
	c.orders[88] = &pendingOrder{order: o}
	c.stateMu.Unlock()
	require.NotNil(t, o.OnExecution)

	connLevel := make(chan any, 1)
	c.OnExecution.AddStrong(func(e execution.Execution) { connLevel <- e })
	orderLevel := make(chan any, 1)
	o.OnExecution.AddStrong(func(e any) { orderLevel <- e })

	go func() {
		fields, err := gw.fr.ReadFrame()
		require.NoError(t, err)
		reqID := fields[2]
		require.NoError(t, gw.fw.WriteFrame(executionDataFrame(reqID, "88", "4001")))
		require.NoError(t, gw.fw.WriteFrame([]string{"55", "1", reqID}))
	}()

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	rows, err := c.Executions(ctx, ExecutionsFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "0000e1a7.111", rows[0].ExecutionID)
	assert.EqualValues(t, 88, rows[0].OrderID)

	select {
	case <-connLevel:
	case <-time.After(2 * time.Second):
		t.Fatal("Connection-level OnExecution never fired")
	}
	select {
	case <-orderLevel:
	case <-time.After(2 * time.Second):
		t.Fatal("Order-level OnExecution never fired")
	}
}

func TestExecutionsInstrumentLevelFanoutReachesTheOwningInstrument(t *testing.T) {
	t.Parallel()
	c, gw := newPipedConnection(t)
	inst := c.instrument(4002)

	instLevel := make(chan any, 1)
	inst.OnExecution.AddStrong(func(e any) { instLevel <- e })

	go func() {
		fields, err := gw.fr.ReadFrame()
		require.NoError(t, err)
		reqID := fields[2]
		require.NoError(t, gw.fw.WriteFrame(executionDataFrame(reqID, "0", "4002")))
		require.NoError(t, gw.fw.WriteFrame([]string{"55", "1", reqID}))
	}()

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	_, err := c.Executions(ctx, ExecutionsFilter{})
	require.NoError(t, err)

	select {
	case <-instLevel:
	case <-time.After(2 * time.Second):
		t.Fatal("Instrument-level OnExecution never fired")
	}
}

func TestCommissionReportAttachesToExecutionAndRefires(t *testing.T) {
	t.Parallel()
	c, gw := newPipedConnection(t)

	instLevel := make(chan any, 2)
	inst := c.instrument(4003)
	inst.OnExecution.AddStrong(func(e any) { instLevel <- e })

	go func() {
		fields, err := gw.fr.ReadFrame()
		require.NoError(t, err)
		reqID := fields[2]
		require.NoError(t, gw.fw.WriteFrame(executionDataFrame(reqID, "0", "4003")))
		require.NoError(t, gw.fw.WriteFrame([]string{"55", "1", reqID}))
	}()

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	_, err := c.Executions(ctx, ExecutionsFilter{})
	require.NoError(t, err)

	var first any
	select {
	case first = <-instLevel:
	case <-time.After(2 * time.Second):
		t.Fatal("Instrument-level OnExecution never fired for the initial row")
	}
	firstExec, ok := first.(execution.Execution)
	require.True(t, ok)
	assert.Nil(t, firstExec.Commission)

	// COMMISSION_REPORT (kind 59, versioned): executionID, commission,
	// currency, realizedPNL, yield, yieldRedemptionDate.
	require.NoError(t, gw.fw.WriteFrame([]string{
		"59", "1", "0000e1a7.111", "1.25", "USD", "", "", "0",
	}))

	select {
	case second := <-instLevel:
		withCommission, ok := second.(execution.Execution)
		require.True(t, ok)
		require.NotNil(t, withCommission.Commission)
		assert.Equal(t, 1.25, withCommission.Commission.Commission)
		assert.Equal(t, "USD", withCommission.Commission.Currency)
	case <-time.After(2 * time.Second):
		t.Fatal("Instrument-level OnExecution never re-fired with the commission attached")
	}
}
