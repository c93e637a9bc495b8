package ibclient

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ondergetekende/ibclient/wire"
)

// fakeGateway wraps the server side of a net.Pipe connection with the
// handshake + frame helpers a test needs to script a gateway's responses,
// mirroring the teacher's fake-upstream test doubles.
type fakeGateway struct {
	t    *testing.T
	conn net.Conn
	fr   *wire.Reader
	fw   *wire.Writer
}

func newFakeGateway(t *testing.T, conn net.Conn) *fakeGateway {
	return &fakeGateway{t: t, conn: conn, fr: wire.NewReader(conn), fw: wire.NewWriter(conn)}
}

// completeHandshake reads the client's "API\0"+range preamble, sends back
// the two-field chosen-version response, then drains the START_API frame
// the client sends after it.
func (g *fakeGateway) completeHandshake(chosenVersion string) {
	g.t.Helper()
	preamble := make([]byte, 4)
	_, err := readFull(g.conn, preamble)
	require.NoError(g.t, err)
	require.Equal(g.t, "API\x00", string(preamble[:4]))

	lenBuf := make([]byte, 4)
	_, err = readFull(g.conn, lenBuf)
	require.NoError(g.t, err)
	n := be32(lenBuf)
	rangeBuf := make([]byte, n)
	_, err = readFull(g.conn, rangeBuf)
	require.NoError(g.t, err)

	require.NoError(g.t, g.fw.WriteFrame([]string{chosenVersion, "20260730 12:00:00 UTC"}))

	// Drain the START_API frame the client sends immediately after.
	_, err = g.fr.ReadFrame()
	require.NoError(g.t, err)
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func newPipedConnection(t *testing.T) (*Connection, *fakeGateway) {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	gw := newFakeGateway(t, serverConn)

	handshakeDone := make(chan struct{})
	go func() {
		gw.completeHandshake("187")
		close(handshakeDone)
	}()

	c, err := Connect(t.Context(), "ignored", 0, 7,
		WithDialer(func(ctx context.Context, network, addr string) (net.Conn, error) {
			return clientConn, nil
		}),
	)
	require.NoError(t, err)
	<-handshakeDone
	t.Cleanup(func() { _ = c.Close() })
	return c, gw
}

func TestConnectNegotiatesProtocolVersionFromGateway(t *testing.T) {
	t.Parallel()
	c, _ := newPipedConnection(t)
	assert.EqualValues(t, 187, c.ProtocolVersion())
}

func TestCurrentTimeResolvesFromMatchingResponse(t *testing.T) {
	t.Parallel()
	c, gw := newPipedConnection(t)

	go func() {
		fields, err := gw.fr.ReadFrame()
		require.NoError(t, err)
		require.Equal(t, "49", fields[0]) // REQ_CURRENT_TIME
		require.NoError(t, gw.fw.WriteFrame([]string{"49", "1", "1782820800"}))
	}()

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	got, err := c.CurrentTime(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1782820800, got)
}

func TestErrMsgFailsThePendingCompletionNamedByRequestID(t *testing.T) {
	t.Parallel()
	c, gw := newPipedConnection(t)

	go func() {
		fields, err := gw.fr.ReadFrame()
		require.NoError(t, err)
		require.Equal(t, "49", fields[0])
		require.NoError(t, gw.fw.WriteFrame([]string{"4", "2", "1000", "321", "no market data permission"}))
	}()

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	_, err := c.CurrentTime(ctx)
	assert.Error(t, err)
}

func TestInformationalErrorCodeDoesNotFailAnyPendingCompletion(t *testing.T) {
	t.Parallel()
	c, gw := newPipedConnection(t)

	go func() {
		// Informational notice first, unrelated to any pending request id.
		require.NoError(t, gw.fw.WriteFrame([]string{"4", "2", "-1", "2104", "Market data farm connection is OK"}))
		fields, err := gw.fr.ReadFrame()
		require.NoError(t, err)
		require.Equal(t, "49", fields[0])
		require.NoError(t, gw.fw.WriteFrame([]string{"49", "1", "42"}))
	}()

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	got, err := c.CurrentTime(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 42, got)
}

func TestCurrentTimeContextCancellationCancelsPendingCompletion(t *testing.T) {
	t.Parallel()
	c, gw := newPipedConnection(t)
	go func() { _, _ = gw.fr.ReadFrame() }()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := c.CurrentTime(ctx)
	assert.Error(t, err)
}

func TestTransportCloseFailsAllPendingCompletions(t *testing.T) {
	t.Parallel()
	c, gw := newPipedConnection(t)

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()

	resultCh := make(chan error, 1)
	go func() {
		_, err := c.CurrentTime(ctx)
		resultCh <- err
	}()

	// Let the request's frame reach the gateway, then drop the connection
	// without ever answering it.
	_, err := gw.fr.ReadFrame()
	require.NoError(t, err)
	require.NoError(t, gw.conn.Close())

	select {
	case err := <-resultCh:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("pending completion was never failed after transport close")
	}
}
