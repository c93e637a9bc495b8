// Package message enumerates the closed set of incoming and outgoing
// message kinds (spec.md §4.3) and the static table recording which
// incoming kinds carry a leading "message version" field.
package message

import "fmt"

// IncomingKind identifies the kind of an incoming frame — the first field
// of every frame the gateway sends.
type IncomingKind int32

// OutgoingKind identifies the kind of an outgoing frame — the first field
// of every frame the client sends.
type OutgoingKind int32

// Incoming kinds this client understands. Values match the wire protocol
// this client was modeled on; kinds this client never handles are omitted
// rather than enumerated exhaustively — an unrecognized kind on the wire
// is simply not found in the dispatcher's handler table (spec.md §4.5).
const (
	TickPrice                  IncomingKind = 1
	TickSize                   IncomingKind = 2
	OrderStatus                IncomingKind = 3
	ErrMsg                     IncomingKind = 4
	OpenOrder                  IncomingKind = 5
	AcctValue                  IncomingKind = 6
	PortfolioValue             IncomingKind = 7
	AcctUpdateTime             IncomingKind = 8
	NextValidID                IncomingKind = 9
	ContractData               IncomingKind = 10
	ExecutionData              IncomingKind = 11
	MarketDepth                IncomingKind = 12
	MarketDepthL2              IncomingKind = 13
	NewsBulletins              IncomingKind = 14
	ManagedAccts               IncomingKind = 15
	ReceiveFA                  IncomingKind = 16
	HistoricalData             IncomingKind = 17
	BondContractData           IncomingKind = 18
	ScannerParameters          IncomingKind = 19
	ScannerData                IncomingKind = 20
	TickOptionComputation      IncomingKind = 21
	TickGeneric                IncomingKind = 45
	TickString                 IncomingKind = 46
	TickEFP                    IncomingKind = 47
	CurrentTime                IncomingKind = 49
	RealTimeBars               IncomingKind = 50
	FundamentalData            IncomingKind = 51
	ContractDataEnd            IncomingKind = 52
	OpenOrderEnd               IncomingKind = 53
	AcctDownloadEnd            IncomingKind = 54
	ExecutionDataEnd           IncomingKind = 55
	DeltaNeutralValidation     IncomingKind = 56
	TickSnapshotEnd            IncomingKind = 57
	MarketDataType             IncomingKind = 58
	CommissionReport           IncomingKind = 59
	PositionData               IncomingKind = 61
	PositionEnd                IncomingKind = 62
	AccountSummary             IncomingKind = 63
	AccountSummaryEnd          IncomingKind = 64
	SymbolSamples              IncomingKind = 79
	TickReqParams              IncomingKind = 81
	SmartComponents            IncomingKind = 82
	HistoricalTicks            IncomingKind = 96
	HistoricalTicksBidAsk      IncomingKind = 97
	HistoricalTicksLast        IncomingKind = 98
	TickByTick                 IncomingKind = 99
)

// Outgoing kinds this client is able to send.
const (
	ReqMktData                OutgoingKind = 1
	CancelMktData              OutgoingKind = 2
	PlaceOrder                 OutgoingKind = 3
	CancelOrder                OutgoingKind = 4
	ReqOpenOrders               OutgoingKind = 5
	ReqAccountData              OutgoingKind = 6
	ReqExecutions               OutgoingKind = 7
	ReqIDs                      OutgoingKind = 8
	ReqContractData             OutgoingKind = 9
	ReqMktDepth                 OutgoingKind = 10
	CancelMktDepth              OutgoingKind = 11
	ReqHistoricalData           OutgoingKind = 20
	CancelHistoricalData        OutgoingKind = 25
	ReqCurrentTime              OutgoingKind = 49
	ReqRealTimeBars             OutgoingKind = 50
	CancelRealTimeBars          OutgoingKind = 51
	ReqGlobalCancel             OutgoingKind = 58
	ReqMarketDataType           OutgoingKind = 59
	ReqPositions                OutgoingKind = 61
	CancelPositions             OutgoingKind = 64
	StartAPI                    OutgoingKind = 71
	ReqMatchingSymbols          OutgoingKind = 81
	ReqSmartComponents          OutgoingKind = 83
	ReqTickByTickData           OutgoingKind = 97
	CancelTickByTickData        OutgoingKind = 98
)

// VersionedIncoming is the static set of incoming kinds that carry an
// extra "message version" integer field immediately after the kind field
// (spec.md §4.3, §9 Open Question (a) — shipped verbatim as a constant
// table rather than derived). Kinds outside this set default their
// message version to the Connection's negotiated protocol version.
var VersionedIncoming = map[IncomingKind]bool{
	TickPrice:              true,
	TickSize:               true,
	OrderStatus:            true,
	ErrMsg:                 true,
	OpenOrder:               true,
	AcctValue:               true,
	PortfolioValue:          true,
	AcctUpdateTime:          true,
	NextValidID:             true,
	ContractData:            true,
	ExecutionData:           true,
	MarketDepth:             true,
	MarketDepthL2:           true,
	NewsBulletins:           true,
	ManagedAccts:            true,
	ReceiveFA:               true,
	HistoricalData:          true,
	BondContractData:        true,
	ScannerParameters:       true,
	ScannerData:             true,
	TickOptionComputation:   true,
	TickGeneric:             true,
	TickString:              true,
	TickEFP:                 true,
	CurrentTime:             true,
	RealTimeBars:            true,
	FundamentalData:         true,
	ContractDataEnd:         true,
	OpenOrderEnd:            true,
	AcctDownloadEnd:         true,
	ExecutionDataEnd:        true,
	DeltaNeutralValidation:  true,
	TickSnapshotEnd:         true,
	MarketDataType:          true,
	CommissionReport:        true,
	PositionData:            true,
	PositionEnd:             true,
	AccountSummary:          true,
	AccountSummaryEnd:       true,
	// SymbolSamples, TickReqParams, SmartComponents, TickByTick, and the
	// historical-ticks kinds are newer additions to the wire protocol and
	// were never assigned a message-version prefix.
}

func (k IncomingKind) String() string {
	switch k {
	case TickPrice:
		return "TICK_PRICE"
	case TickSize:
		return "TICK_SIZE"
	case OrderStatus:
		return "ORDER_STATUS"
	case ErrMsg:
		return "ERR_MSG"
	case OpenOrder:
		return "OPEN_ORDER"
	case NextValidID:
		return "NEXT_VALID_ID"
	case ContractData:
		return "CONTRACT_DATA"
	case ExecutionData:
		return "EXECUTION_DATA"
	case MarketDepth:
		return "MARKET_DEPTH"
	case MarketDepthL2:
		return "MARKET_DEPTH_L2"
	case HistoricalData:
		return "HISTORICAL_DATA"
	case TickGeneric:
		return "TICK_GENERIC"
	case TickString:
		return "TICK_STRING"
	case CurrentTime:
		return "CURRENT_TIME"
	case RealTimeBars:
		return "REAL_TIME_BARS"
	case ContractDataEnd:
		return "CONTRACT_DATA_END"
	case OpenOrderEnd:
		return "OPEN_ORDER_END"
	case ExecutionDataEnd:
		return "EXECUTION_DATA_END"
	case TickSnapshotEnd:
		return "TICK_SNAPSHOT_END"
	case CommissionReport:
		return "COMMISSION_REPORT"
	case PositionData:
		return "POSITION_DATA"
	case PositionEnd:
		return "POSITION_END"
	case SymbolSamples:
		return "SYMBOL_SAMPLES"
	case TickReqParams:
		return "TICK_REQ_PARAMS"
	case SmartComponents:
		return "SMART_COMPONENTS"
	case TickByTick:
		return "TICK_BY_TICK"
	default:
		return fmt.Sprintf("UnknownIncomingKind(%d)", int32(k))
	}
}

func (k OutgoingKind) String() string {
	switch k {
	case ReqMktData:
		return "REQ_MKT_DATA"
	case CancelMktData:
		return "CANCEL_MKT_DATA"
	case PlaceOrder:
		return "PLACE_ORDER"
	case CancelOrder:
		return "CANCEL_ORDER"
	case ReqContractData:
		return "REQ_CONTRACT_DATA"
	case ReqMktDepth:
		return "REQ_MKT_DEPTH"
	case CancelMktDepth:
		return "CANCEL_MKT_DEPTH"
	case ReqHistoricalData:
		return "REQ_HISTORICAL_DATA"
	case CancelHistoricalData:
		return "CANCEL_HISTORICAL_DATA"
	case ReqCurrentTime:
		return "REQ_CURRENT_TIME"
	case ReqRealTimeBars:
		return "REQ_REAL_TIME_BARS"
	case CancelRealTimeBars:
		return "CANCEL_REAL_TIME_BARS"
	case ReqPositions:
		return "REQ_POSITIONS"
	case CancelPositions:
		return "CANCEL_POSITIONS"
	case StartAPI:
		return "START_API"
	case ReqMatchingSymbols:
		return "REQ_MATCHING_SYMBOLS"
	case ReqTickByTickData:
		return "REQ_TICK_BY_TICK_DATA"
	case CancelTickByTickData:
		return "CANCEL_TICK_BY_TICK_DATA"
	default:
		return fmt.Sprintf("UnknownOutgoingKind(%d)", int32(k))
	}
}
