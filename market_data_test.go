package ibclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ondergetekende/ibclient/instrument"
	"github.com/ondergetekende/ibclient/ticktype"
)

func TestSubscribeMarketDataStreamingResolvesImmediatelyAfterSend(t *testing.T) {
	t.Parallel()
	c, gw := newPipedConnection(t)
	inst := c.instrument(2001)
	inst.Symbol = "MSFT"

	reqCh := make(chan []string, 1)
	go func() {
		fields, err := gw.fr.ReadFrame()
		require.NoError(t, err)
		reqCh <- fields
	}()

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.SubscribeMarketData(ctx, inst, nil, false, false))

	select {
	case fields := <-reqCh:
		assert.Equal(t, "1", fields[0]) // REQ_MKT_DATA
	case <-time.After(2 * time.Second):
		t.Fatal("REQ_MKT_DATA was never sent")
	}
}

func TestSubscribeMarketDataRejectsBagSecurityType(t *testing.T) {
	t.Parallel()
	c, _ := newPipedConnection(t)
	inst := c.instrument(2099)
	inst.SecurityType = instrument.SecurityTypeBag

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	err := c.SubscribeMarketData(ctx, inst, nil, false, false)
	assert.Error(t, err)
}

func TestSubscribeMarketDataDoubleSubscribeIsInvariantViolation(t *testing.T) {
	t.Parallel()
	c, gw := newPipedConnection(t)
	inst := c.instrument(2002)

	go func() { _, _ = gw.fr.ReadFrame() }()

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.SubscribeMarketData(ctx, inst, nil, false, false))

	err := c.SubscribeMarketData(ctx, inst, nil, false, false)
	assert.Error(t, err)
}

func TestSubscribeMarketDataSnapshotResolvesOnTickSnapshotEnd(t *testing.T) {
	t.Parallel()
	c, gw := newPipedConnection(t)
	inst := c.instrument(2003)

	go func() {
		fields, err := gw.fr.ReadFrame()
		require.NoError(t, err)
		reqID := fields[2]
		require.NoError(t, gw.fw.WriteFrame([]string{"57", "1", reqID})) // TICK_SNAPSHOT_END
	}()

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	err := c.SubscribeMarketData(ctx, inst, nil, true, false)
	assert.NoError(t, err)
}

func TestSubscribeMarketDataNonSnapshotDoesNotWaitForSnapshotEnd(t *testing.T) {
	t.Parallel()
	c, gw := newPipedConnection(t)
	inst := c.instrument(2004)

	go func() { _, _ = gw.fr.ReadFrame() }()

	ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
	defer cancel()
	// No TICK_SNAPSHOT_END is ever sent; a streaming subscription must not
	// block waiting for one.
	err := c.SubscribeMarketData(ctx, inst, nil, false, false)
	assert.NoError(t, err)
}

func TestTickPriceFiresOnTickAndPairedSizeTick(t *testing.T) {
	t.Parallel()
	c, gw := newPipedConnection(t)
	inst := c.instrument(2005)

	reqCh := make(chan []string, 1)
	go func() {
		fields, err := gw.fr.ReadFrame()
		require.NoError(t, err)
		reqCh <- fields
	}()

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.SubscribeMarketData(ctx, inst, nil, false, false))
	fields := <-reqCh
	reqID := fields[2]

	var got []instrument.TickUpdate
	done := make(chan struct{})
	inst.OnTick.AddStrong(func(u instrument.TickUpdate) {
		got = append(got, u)
		if len(got) == 2 {
			close(done)
		}
	})

	// TICK_PRICE: kind, version, reqID, tickType(1=Bid), price, size, attrMask.
	require.NoError(t, gw.fw.WriteFrame([]string{"1", "6", reqID, "1", "150.5", "12", "0"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected both the price tick and its paired size tick")
	}
	require.Len(t, got, 2)
	assert.Equal(t, ticktype.Bid, got[0].Type)
	assert.Equal(t, 150.5, got[0].Price)
	assert.Equal(t, ticktype.BidSize, got[1].Type)
	assert.Equal(t, 12.0, got[1].Size)
}

func TestCancelMarketDataSendsCancelMktData(t *testing.T) {
	t.Parallel()
	c, gw := newPipedConnection(t)
	inst := c.instrument(2006)

	go func() { _, _ = gw.fr.ReadFrame() }()
	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.SubscribeMarketData(ctx, inst, nil, false, false))

	cancelCh := make(chan []string, 1)
	go func() {
		fields, err := gw.fr.ReadFrame()
		require.NoError(t, err)
		cancelCh <- fields
	}()
	require.NoError(t, c.CancelMarketData(inst))

	select {
	case fields := <-cancelCh:
		assert.Equal(t, "2", fields[0]) // CANCEL_MKT_DATA
	case <-time.After(2 * time.Second):
		t.Fatal("CANCEL_MKT_DATA was never sent")
	}
}
