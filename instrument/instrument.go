// Package instrument defines the Instrument domain object (spec.md §3, §4.7)
// and its associated enumerations, grounded on
// _examples/original_source/ib_async/instrument.py.
package instrument

import (
	"github.com/ondergetekende/ibclient/event"
	"github.com/ondergetekende/ibclient/ticktype"
)

// SecurityType enumerates the kinds of tradable instrument this client
// recognizes.
type SecurityType string

const (
	SecurityTypeUnspecified SecurityType = ""
	SecurityTypeStock       SecurityType = "STK"
	SecurityTypeFuture      SecurityType = "FUT"
	SecurityTypeIndex       SecurityType = "IND"
	SecurityTypeOption      SecurityType = "OPT"
	SecurityTypeFutureOpt   SecurityType = "FOP"
	SecurityTypeCash        SecurityType = "CASH"
	SecurityTypeBag         SecurityType = "BAG"
	SecurityTypeWarrant     SecurityType = "WAR"
	SecurityTypeBond        SecurityType = "BOND"
	SecurityTypeCommodity   SecurityType = "CMDTY"
	SecurityTypeCrypto      SecurityType = "CRYPTO"
)

// SecurityIdentifierType enumerates the alternate-identifier schemes a
// contract lookup may be keyed on (spec.md §4.8 "Instrument lookup").
type SecurityIdentifierType string

const (
	SecurityIdentifierUnspecified SecurityIdentifierType = ""
	SecurityIdentifierCUSIP       SecurityIdentifierType = "CUSIP"
	SecurityIdentifierSEDOL       SecurityIdentifierType = "SEDOL"
	SecurityIdentifierISIN        SecurityIdentifierType = "ISIN"
	SecurityIdentifierRIC         SecurityIdentifierType = "RIC"
)

// MarketDepthRow is one row of an order-book side, keyed by position
// (spec.md §4.8 "Market depth").
type MarketDepthRow struct {
	Price       float64
	Size        float64
	MarketMaker string
}

// Instrument is a tradable symbol at a venue, identified by a stable
// contract id within a Connection (spec.md §3, §4.7). Field set grounded
// on instrument.py's Instrument.__init__.
type Instrument struct {
	Symbol                  string
	SecurityType            SecurityType
	LastTradeDate           string
	Strike                  float64
	Right                   string
	Exchange                string
	Currency                string
	LocalSymbol             string
	MarketName              string
	TradingClass            string
	ContractID              int32
	MinimumTick             float64
	MarketDataSizeMultiplier float64
	Multiplier              string
	OrderTypes              []string
	ValidExchanges          []string
	PriceMagnifier          int32
	UnderlyingContractID    int32
	LongName                string
	PrimaryExchange         string
	ContractMonth           string
	Industry                string
	Category                string
	Subcategory             string
	TimeZone                string
	TradingHours            string
	LiquidHours             string
	EVRule                  string
	EVMultiplier            int32
	SecurityIDs             map[SecurityIdentifierType]string
	AggregatedGroup         string
	UnderlyingSymbol        string
	UnderlyingSecurityType  SecurityType
	MarketRuleIDs           string
	RealExpirationDate      string

	// MarketDepthRows is the requested order-book depth for the next
	// REQ_MKT_DEPTH subscribe (or reconfigure) issued when OnMarketDepth
	// gains its first subscriber; zero requests 5 rows.
	MarketDepthRows int32

	// Bid and Ask are the order-book sides kept in position order
	// (spec.md §4.8 "Market depth"); ordinary field reads never touch
	// these, only the market-depth handler does.
	Bid []MarketDepthRow
	Ask []MarketDepthRow

	// OnMarketDepth fires once per applied depth-row mutation (insert,
	// update, or delete), per spec.md S4. Its subscribe/unsubscribe wire
	// callbacks are bound by the owning Connection once this Instrument
	// is first looked up (spec.md §9 "cyclic references").
	OnMarketDepth *event.Instance[DepthEvent]
	// OnRealtimeBar fires once per completed 5-second bar for this
	// instrument (spec.md §4.8 "Real-time bars").
	OnRealtimeBar *event.Instance[RealtimeBarEvent]
	// OnTick fires once per market-data update for this instrument
	// (spec.md §4.8 "Market data subscribe"). Unlike OnMarketDepth and
	// OnRealtimeBar, its wire lifecycle is driven explicitly by
	// Connection.SubscribeMarketData/CancelMarketData rather than by
	// handler-count transitions, because subscribing carries a
	// request/reply completion (immediate, or deferred to
	// TICK_SNAPSHOT_END) that a bare first-subscriber callback cannot
	// express.
	OnTick *event.Instance[TickUpdate]
	// OnExecution fires once per execution row naming this instrument
	// (spec.md §4.8 "Executions": Instrument-level sink).
	OnExecution *event.Instance[any]
}

// TickUpdate is one market-data field update delivered on Instrument.OnTick
// (spec.md §4.8 "Market data subscribe"). Only the fields relevant to Type
// are meaningful; e.g. a TICK_SIZE update leaves Price unset.
type TickUpdate struct {
	Type  ticktype.TickType
	Raw   string // not set by the market-data handlers; an unrecognized wire value shows only as ticktype.Unknown
	Price float64
	Size  float64
	Value string
	Attrs ticktype.PriceAttributes
}

// New constructs an empty Instrument with its event sinks ready. The sinks
// start with nil subscribe/unsubscribe callbacks; the owning Connection
// binds OnMarketDepth's and OnRealtimeBar's through SetCallbacks when it
// looks the Instrument up.
func New() *Instrument {
	inst := &Instrument{SecurityIDs: make(map[SecurityIdentifierType]string)}
	inst.OnMarketDepth = event.NewInstance[DepthEvent](nil, nil)
	inst.OnRealtimeBar = event.NewInstance[RealtimeBarEvent](nil, nil)
	inst.OnTick = event.NewInstance[TickUpdate](nil, nil)
	inst.OnExecution = event.NewInstance[any](nil, nil)
	return inst
}

// DepthEvent is one applied market-depth mutation, delivered on
// Instrument.OnMarketDepth.
type DepthEvent struct {
	Position    int32
	Operation   DepthOperation
	Side        DepthSide
	Price       float64
	Size        float64
	MarketMaker string
	IsL2        bool
}

// DepthOperation is the mutation applied to a market-depth row (spec.md
// §4.8 "Market depth").
type DepthOperation int32

const (
	DepthInsert DepthOperation = 0
	DepthUpdate DepthOperation = 1
	DepthDelete DepthOperation = 2
)

// DepthSide is which side of the book a depth row belongs to.
type DepthSide int32

const (
	DepthSideAsk DepthSide = 0
	DepthSideBid DepthSide = 1
)

// ApplyDepth mutates Bid or Ask in place per spec.md §4.8's operation
// codes, keeping the list ordered by position, then fires OnMarketDepth.
func (i *Instrument) ApplyDepth(e DepthEvent) {
	list := &i.Ask
	if e.Side == DepthSideBid {
		list = &i.Bid
	}
	switch e.Operation {
	case DepthInsert:
		row := MarketDepthRow{Price: e.Price, Size: e.Size, MarketMaker: e.MarketMaker}
		pos := int(e.Position)
		if pos >= len(*list) {
			*list = append(*list, row)
		} else {
			*list = append(*list, MarketDepthRow{})
			copy((*list)[pos+1:], (*list)[pos:])
			(*list)[pos] = row
		}
	case DepthUpdate:
		if pos := int(e.Position); pos >= 0 && pos < len(*list) {
			(*list)[pos] = MarketDepthRow{Price: e.Price, Size: e.Size, MarketMaker: e.MarketMaker}
		}
	case DepthDelete:
		if pos := int(e.Position); pos >= 0 && pos < len(*list) {
			*list = append((*list)[:pos], (*list)[pos+1:]...)
		}
	}
	i.OnMarketDepth.Fire(e)
}

// RealtimeBarEvent is one completed 5-second bar delivered on
// Instrument.OnRealtimeBar.
type RealtimeBarEvent struct {
	Time    int64
	Open    float64
	High    float64
	Low     float64
	Close   float64
	Volume  float64
	Average float64
	Count   int32
}

// MatchingSymbol is one row of a symbol-search result (spec.md §4.8
// "Instrument lookup", S2), grounded on
// original_source/ib_async/functionality/matching_symbols.py. The
// original discards DerivativeSecurityTypes; this module keeps it (see
// SPEC_FULL.md SUPPLEMENTED).
type MatchingSymbol struct {
	Instrument               *Instrument
	DerivativeSecurityTypes []string
}
