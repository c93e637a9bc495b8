package ibclient

import (
	"strconv"

	"github.com/ondergetekende/ibclient/codec"
	"github.com/ondergetekende/ibclient/ibkrerr"
	"github.com/ondergetekende/ibclient/message"
	"github.com/ondergetekende/ibclient/protover"
)

// informationalCodes is the fixed allowlist of server error codes that are
// logged, not raised (spec.md §6, §7): farm disconnection/reconnection
// notices and other harmless warnings.
var informationalCodes = map[int]bool{
	10167: true,
	2100:  true, 2101: true, 2102: true, 2103: true, 2104: true,
	2105: true, 2106: true, 2107: true, 2108: true, 2109: true, 2110: true,
	2137: true,
}

// handlerFunc consumes an incoming frame's remaining fields via the field
// codec, honoring gates, and either resolves a pending completion or
// emits to an event sink (spec.md §4.5).
type handlerFunc func(c *Connection, r *codec.Reader)

// handlerTable maps incoming kind to its handler. Built once; no
// reflection is used to locate a handler by inspecting a function
// signature (spec.md §9 Design Note: "explicit, message-specific decode
// function per incoming kind").
var handlerTable = map[message.IncomingKind]handlerFunc{
	message.CurrentTime:       handleCurrentTime,
	message.SymbolSamples:     handleSymbolSamples,
	message.ContractData:      handleContractData,
	message.ContractDataEnd:   handleContractDataEnd,
	message.TickPrice:         handleTickPrice,
	message.TickSize:          handleTickSize,
	message.TickGeneric:       handleTickGeneric,
	message.TickString:        handleTickString,
	message.TickReqParams:     handleTickReqParams,
	message.TickSnapshotEnd:   handleTickSnapshotEnd,
	message.MarketDepth:       handleMarketDepthL1,
	message.MarketDepthL2:     handleMarketDepthL2,
	message.RealTimeBars:      handleRealTimeBars,
	message.HistoricalData:    handleHistoricalData,
	message.TickByTick:        handleTickByTick,
	message.OrderStatus:       handleOrderStatus,
	message.OpenOrder:         handleOpenOrder,
	message.OpenOrderEnd:      handleOpenOrderEnd,
	message.NextValidID:       handleNextValidID,
	message.PositionData:      handlePositionData,
	message.PositionEnd:       handlePositionEnd,
	message.ExecutionData:     handleExecutionData,
	message.ExecutionDataEnd:  handleExecutionDataEnd,
	message.CommissionReport:  handleCommissionReport,
}

// dispatch decodes an incoming frame's header and routes to its handler
// (spec.md §4.5, C6). A handler that panics does not terminate the
// reader task: the panic is logged and dispatch continues.
func (c *Connection) dispatch(fields []string) {
	if len(fields) == 0 {
		return
	}
	kindNum, err := strconv.Atoi(fields[0])
	if err != nil {
		c.logger.Debug("malformed incoming frame: non-numeric kind", "field", fields[0])
		return
	}
	kind := message.IncomingKind(kindNum)

	msgVersion := c.proto
	idx := 1
	if message.VersionedIncoming[kind] {
		if len(fields) < 2 {
			c.logger.Debug("malformed incoming frame: missing message version", "kind", kind)
			return
		}
		v, err := strconv.Atoi(fields[1])
		if err != nil {
			c.logger.Debug("malformed incoming frame: non-numeric message version", "kind", kind)
			return
		}
		msgVersion = protover.Version(v)
		idx = 2
	}
	r := codec.NewReader(fields[idx:], c.proto, msgVersion)

	if kind == message.ErrMsg {
		c.handleErrMsg(r)
		return
	}

	h, ok := handlerTable[kind]
	if !ok {
		c.logger.Debug("no handler for incoming kind, dropped", "kind", kind)
		return
	}

	defer func() {
		if p := recover(); p != nil {
			c.logger.Warn("handler failed, frame dropped", "kind", kind, "panic", p)
		}
	}()
	h(c, r)
}

// handleErrMsg implements the distinguished ERROR handling described in
// spec.md §4.5: informational codes are logged at info; otherwise if a
// pending completion matches the request id it is failed with that
// code/message; otherwise the error is logged at warning. Order
// placement errors are not special-cased separately (spec.md §4.8
// "Orders"): place_order keys its pending completion by order id, and an
// ERROR naming that order id as its request id is handled by this same
// generic path.
func (c *Connection) handleErrMsg(r *codec.Reader) {
	requestID := r.ReadIntOr(codec.Gate{}, 0)
	code := int(r.ReadIntOr(codec.Gate{}, 0))
	msg := r.ReadString(codec.Gate{}, "")

	if informationalCodes[code] {
		c.logger.Info("informational server message", "code", code, "message", msg)
		return
	}
	if requestID != 0 && c.requests.has(requestID) {
		c.requests.fail(requestID, ibkrerr.APIErrorf(code, msg))
		return
	}
	c.logger.Warn("unmatched server error", "request_id", requestID, "code", code, "message", msg)
}
