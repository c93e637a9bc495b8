package ibclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ondergetekende/ibclient/instrument"
)

func TestMarketDepthFirstSubscriberSendsReqMktDepthAndAppliesInsert(t *testing.T) {
	t.Parallel()
	c, gw := newPipedConnection(t)

	inst := c.instrument(1001)
	inst.Symbol = "AAPL"
	inst.SecurityType = instrument.SecurityTypeStock
	inst.Exchange = "SMART"
	inst.Currency = "USD"

	reqCh := make(chan []string, 1)
	go func() {
		fields, err := gw.fr.ReadFrame()
		require.NoError(t, err)
		reqCh <- fields
	}()

	fired := make(chan instrument.DepthEvent, 1)
	inst.OnMarketDepth.AddStrong(func(e instrument.DepthEvent) { fired <- e })

	var reqID string
	select {
	case fields := <-reqCh:
		require.Equal(t, "10", fields[0]) // REQ_MKT_DEPTH
		require.Equal(t, "AAPL", fields[4])
		reqID = fields[2]
	case <-time.After(2 * time.Second):
		t.Fatal("REQ_MKT_DEPTH was never sent")
	}

	// MARKET_DEPTH (L1): kind, version, request id, position, operation
	// (0=insert), side (1=bid), price, size.
	require.NoError(t, gw.fw.WriteFrame([]string{"12", "3", reqID, "0", "0", "1", "150.25", "100"}))

	select {
	case e := <-fired:
		assert.Equal(t, instrument.DepthInsert, e.Operation)
		assert.Equal(t, instrument.DepthSideBid, e.Side)
		assert.Equal(t, 150.25, e.Price)
	case <-time.After(2 * time.Second):
		t.Fatal("OnMarketDepth never fired")
	}
	require.Len(t, inst.Bid, 1)
	assert.Equal(t, 150.25, inst.Bid[0].Price)
}

func TestMarketDepthLastUnsubscribeSendsCancelMktDepth(t *testing.T) {
	t.Parallel()
	c, gw := newPipedConnection(t)

	inst := c.instrument(1002)

	reqCh := make(chan []string, 1)
	go func() {
		fields, err := gw.fr.ReadFrame()
		require.NoError(t, err)
		reqCh <- fields
	}()

	id := inst.OnMarketDepth.AddStrong(func(instrument.DepthEvent) {})
	<-reqCh // REQ_MKT_DEPTH

	cancelCh := make(chan []string, 1)
	go func() {
		fields, err := gw.fr.ReadFrame()
		require.NoError(t, err)
		cancelCh <- fields
	}()

	require.NoError(t, inst.OnMarketDepth.Remove(id))

	select {
	case fields := <-cancelCh:
		assert.Equal(t, "11", fields[0]) // CANCEL_MKT_DEPTH
	case <-time.After(2 * time.Second):
		t.Fatal("CANCEL_MKT_DEPTH was never sent")
	}
}
