// Package ibclient is an asynchronous client library for a trading
// venue's TCP API gateway (spec.md §1). See SPEC_FULL.md for the full
// specification this module implements.
package ibclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/ondergetekende/ibclient/codec"
	"github.com/ondergetekende/ibclient/event"
	"github.com/ondergetekende/ibclient/execution"
	"github.com/ondergetekende/ibclient/ibkrerr"
	"github.com/ondergetekende/ibclient/message"
	"github.com/ondergetekende/ibclient/protover"
	"github.com/ondergetekende/ibclient/wire"
)

// Account is keyed by account id string; holds a map Instrument →
// position size and Instrument → average cost (spec.md §3).
type Account struct {
	ID        string
	Positions map[int32]PositionEntry
}

// PositionEntry is one account's position and average cost for a single
// instrument's contract id.
type PositionEntry struct {
	Position  float64
	AvgCost   float64
}

// PositionEvent is delivered on Connection.Positions for each position
// row accumulated while the single Connection-wide position subscription
// is active (spec.md §4.8 "Positions").
type PositionEvent struct {
	Account    *Account
	ContractID int32
	Position   float64
	AvgCost    float64
}

// Connection owns exactly one bidirectional byte stream, a negotiated
// version set once after handshake, a monotonically increasing request
// id counter, a map of pending completions, an instrument registry, and a
// set of active subscriptions (spec.md §3).
type Connection struct {
	id     string
	logger *slog.Logger
	conn   net.Conn
	fr     *wire.Reader

	writeMu sync.Mutex
	fw      *wire.Writer

	proto protover.Version

	requests    *requestRegistry
	instruments *instrumentRegistry

	stateMu       sync.Mutex
	accounts      map[string]*Account
	wiredInstruments map[int32]bool

	marketData          map[int32]*marketDataSub
	marketDataByContract map[int32]int32
	marketDepth          map[int32]*marketDepthSub
	marketDepthByContract map[int32]int32
	realtimeBars          map[int32]*realtimeBarSub
	realtimeBarsByContract map[int32]int32
	tickByTick      map[int32]*tickByTickSub
	tickByTickChans map[int32]chan any
	orders        map[int32]*pendingOrder
	contractRows  map[int32][]contractRow
	executionRows map[int32][]execution.Execution
	executionByID map[string]*trackedExecution
	historical    map[int32]*historicalState
	nextOrderID   int32
	currentTimeQueue []int32

	Positions   *event.Instance[PositionEvent]
	OnExecution *event.Instance[execution.Execution]

	closeOnce sync.Once
	closed    chan struct{}
}

// ConnectOption customizes Connect. The core's configuration surface is
// deliberately small: no environment variables, no config files, no
// persistent state (spec.md §6).
type ConnectOption func(*connectConfig)

type connectConfig struct {
	logger               *slog.Logger
	optionalCapabilities string
	dialer               func(ctx context.Context, network, addr string) (net.Conn, error)
}

// WithLogger overrides the default handler, which logs to stderr at Info
// level.
func WithLogger(l *slog.Logger) ConnectOption {
	return func(c *connectConfig) { c.logger = l }
}

// WithOptionalCapabilities sets the capabilities string sent with
// START_API (spec.md §6).
func WithOptionalCapabilities(s string) ConnectOption {
	return func(c *connectConfig) { c.optionalCapabilities = s }
}

// WithDialer overrides how the TCP connection is established, primarily
// for tests driving a fake gateway over net.Pipe.
func WithDialer(d func(ctx context.Context, network, addr string) (net.Conn, error)) ConnectOption {
	return func(c *connectConfig) { c.dialer = d }
}

// Connect performs the handshake (spec.md §4.1, §6) and starts the
// Connection's read-dispatch loop. clientID is this client's identity on
// the gateway.
func Connect(ctx context.Context, host string, port int, clientID int32, opts ...ConnectOption) (*Connection, error) {
	cfg := &connectConfig{
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})),
		dialer: func(ctx context.Context, network, addr string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := cfg.dialer(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("ibclient: dial %s: %w", addr, err)
	}

	id := uuid.New().String()[:8]
	c := &Connection{
		id:            id,
		logger:        cfg.logger.With("conn", id),
		conn:          conn,
		fr:            wire.NewReader(conn),
		fw:            wire.NewWriter(conn),
		requests:      newRequestRegistry(),
		instruments:   newInstrumentRegistry(),
		accounts:      make(map[string]*Account),
		wiredInstruments: make(map[int32]bool),
		marketData:    make(map[int32]*marketDataSub),
		marketDataByContract: make(map[int32]int32),
		marketDepth:   make(map[int32]*marketDepthSub),
		marketDepthByContract: make(map[int32]int32),
		realtimeBars:  make(map[int32]*realtimeBarSub),
		realtimeBarsByContract: make(map[int32]int32),
		tickByTick:    make(map[int32]*tickByTickSub),
		tickByTickChans: make(map[int32]chan any),
		orders:        make(map[int32]*pendingOrder),
		contractRows:  make(map[int32][]contractRow),
		executionRows: make(map[int32][]execution.Execution),
		executionByID: make(map[string]*trackedExecution),
		historical:    make(map[int32]*historicalState),
		nextOrderID:   1,
		closed:        make(chan struct{}),
	}
	c.OnExecution = event.NewInstance[execution.Execution](nil, nil)

	if err := c.handshake(clientID, cfg.optionalCapabilities); err != nil {
		_ = conn.Close()
		return nil, err
	}

	c.Positions = event.NewInstance[PositionEvent](c.onPositionsSubscribe, c.onPositionsUnsubscribe)

	go c.readLoop()
	return c, nil
}

// handshake writes the version-range advertisement, reads the server's
// two-field chosen-version response (buffering anything else that
// arrives first), and confirms with START_API (spec.md §4.1, §6).
func (c *Connection) handshake(clientID int32, optionalCapabilities string) error {
	rangeASCII := fmt.Sprintf("v%d..%d", protover.Min, protover.Max)
	if err := wire.WriteHandshake(c.conn, rangeASCII); err != nil {
		return fmt.Errorf("ibclient: handshake: %w", err)
	}

	var buffered [][]string
	for {
		fields, err := c.fr.ReadFrame()
		if err != nil {
			return fmt.Errorf("ibclient: handshake: read version response: %w", err)
		}
		if len(fields) == 2 {
			v, err := strconv.Atoi(fields[0])
			if err != nil {
				return fmt.Errorf("ibclient: handshake: malformed protocol version %q: %w", fields[0], err)
			}
			c.proto = protover.Version(v)
			break
		}
		buffered = append(buffered, fields)
	}

	w := codec.NewWriter(c.proto)
	w.WriteIntVal(codec.Gate{}, int32(message.StartAPI))
	w.WriteIntVal(codec.Gate{}, 2)
	w.WriteIntVal(codec.Gate{}, clientID)
	w.WriteString(codec.Gate{}, optionalCapabilities)
	if err := c.send(w.Fields()); err != nil {
		return fmt.Errorf("ibclient: handshake: send START_API: %w", err)
	}

	for _, fields := range buffered {
		c.dispatch(fields)
	}
	return nil
}

// send writes fields as one frame, serializing access to the writer
// against the read loop's own sends (spec.md §5 "Shared resources").
func (c *Connection) send(fields []string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	select {
	case <-c.closed:
		return transportDeadErr()
	default:
	}
	if err := c.fw.WriteFrame(fields); err != nil {
		return ibkrerr.Wrap(ibkrerr.Transport, err)
	}
	return nil
}

// readLoop runs the Connection's single reader task (spec.md §5): until
// EOF, read a frame via C1 and dispatch it.
func (c *Connection) readLoop() {
	for {
		fields, err := c.fr.ReadFrame()
		if err != nil {
			c.onTransportError(err)
			return
		}
		c.dispatch(fields)
	}
}

func (c *Connection) onTransportError(err error) {
	if closedErr(err) {
		c.logger.Debug("connection closed", "err", err)
	} else {
		c.logger.Warn("transport read failed", "err", err)
	}
	_ = c.closeInternal()
	c.requests.failAll(ibkrerr.Wrap(ibkrerr.Transport, err))
}

// Close shuts down the Connection's underlying socket. All pending
// completions are failed with a Transport error.
func (c *Connection) Close() error {
	err := c.closeInternal()
	c.requests.failAll(transportDeadErr())
	return err
}

func (c *Connection) closeInternal() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

// ProtocolVersion returns the negotiated protocol version.
func (c *Connection) ProtocolVersion() protover.Version { return c.proto }

// requireFeature fails with OutdatedServer when the negotiated protocol
// version is below min (spec.md §4.3 require_feature).
func (c *Connection) requireFeature(min protover.Version, feature string) error {
	if c.proto < min {
		return ibkrerr.Newf(ibkrerr.OutdatedServer, "%s requires protocol version >= %d, negotiated %d", feature, min, c.proto)
	}
	return nil
}

// closedErr classifies a read/write error as an ordinary closed-connection
// condition rather than a noteworthy transport failure, mirroring the
// architectural precedent's isClosedErr helper.
func closedErr(err error) bool {
	if err == nil {
		return false
	}
	if err == io.EOF {
		return true
	}
	if opErr, ok := err.(*net.OpError); ok {
		return opErr.Err != nil && opErr.Err.Error() == "use of closed network connection"
	}
	return false
}
