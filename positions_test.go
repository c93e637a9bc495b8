package ibclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionsFirstSubscriberSendsReqPositions(t *testing.T) {
	t.Parallel()
	c, gw := newPipedConnection(t)

	reqCh := make(chan []string, 1)
	go func() {
		fields, err := gw.fr.ReadFrame()
		require.NoError(t, err)
		reqCh <- fields
	}()

	c.Positions.AddStrong(func(PositionEvent) {})

	select {
	case fields := <-reqCh:
		assert.Equal(t, "61", fields[0]) // REQ_POSITIONS
	case <-time.After(2 * time.Second):
		t.Fatal("REQ_POSITIONS was never sent")
	}
}

func TestPositionsLastUnsubscribeSendsCancelPositions(t *testing.T) {
	t.Parallel()
	c, gw := newPipedConnection(t)

	go func() { _, _ = gw.fr.ReadFrame() }()
	id := c.Positions.AddStrong(func(PositionEvent) {})

	cancelCh := make(chan []string, 1)
	go func() {
		fields, err := gw.fr.ReadFrame()
		require.NoError(t, err)
		cancelCh <- fields
	}()
	require.NoError(t, c.Positions.Remove(id))

	select {
	case fields := <-cancelCh:
		assert.Equal(t, "64", fields[0]) // CANCEL_POSITIONS
	case <-time.After(2 * time.Second):
		t.Fatal("CANCEL_POSITIONS was never sent")
	}
}

func TestPositionDataAggregatesIntoPerAccountMapAndFiresPositions(t *testing.T) {
	t.Parallel()
	c, gw := newPipedConnection(t)

	go func() { _, _ = gw.fr.ReadFrame() }()

	fired := make(chan PositionEvent, 2)
	c.Positions.AddStrong(func(e PositionEvent) { fired <- e })

	// POSITION_DATA (kind 61, versioned): account, contractID, symbol,
	// secType, lastTradeDate, strike, right, multiplier, exchange,
	// currency, localSymbol, tradingClass, position, avgCost.
	require.NoError(t, gw.fw.WriteFrame([]string{
		"61", "3", "DU123456", "6001", "AAPL", "STK", "", "0", "", "",
		"SMART", "USD", "", "", "100", "150.25",
	}))
	require.NoError(t, gw.fw.WriteFrame([]string{
		"61", "3", "DU123456", "6002", "MSFT", "STK", "", "0", "", "",
		"SMART", "USD", "", "", "50", "310.0",
	}))
	require.NoError(t, gw.fw.WriteFrame([]string{"62", "1"})) // POSITION_END

	var events []PositionEvent
	for len(events) < 2 {
		select {
		case e := <-fired:
			events = append(events, e)
		case <-time.After(2 * time.Second):
			t.Fatal("Positions never fired for both rows")
		}
	}

	c.stateMu.Lock()
	acct := c.accounts["DU123456"]
	c.stateMu.Unlock()
	require.NotNil(t, acct)
	assert.Equal(t, 100.0, acct.Positions[6001].Position)
	assert.Equal(t, 150.25, acct.Positions[6001].AvgCost)
	assert.Equal(t, 50.0, acct.Positions[6002].Position)
}
