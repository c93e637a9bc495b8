package ibclient

import (
	"context"
	"strings"

	"github.com/ondergetekende/ibclient/codec"
	"github.com/ondergetekende/ibclient/ibkrerr"
	"github.com/ondergetekende/ibclient/instrument"
	"github.com/ondergetekende/ibclient/message"
	"github.com/ondergetekende/ibclient/protover"
)

// contractRow is one CONTRACT_DATA row accumulated for a REQ_CONTRACT_DATA
// request, resolved on the terminating CONTRACT_DATA_END (spec.md §4.8
// "Request/reply" pattern).
type contractRow = *instrument.Instrument

// ContractQuery names a contract to look up via REQ_CONTRACT_DATA
// (spec.md §4.8 "Instrument lookup"), grounded on
// _examples/original_source/ib_async/functionality/instrument_details.py
// refresh_instrument.
type ContractQuery struct {
	ContractID          int32
	Symbol              string
	SecurityType         instrument.SecurityType
	LastTradeDate        string
	Strike               float64
	Right                string
	Multiplier           string
	Exchange             string
	Currency             string
	LocalSymbol          string
	TradingClass         string
	IncludeExpired       bool
	SecurityIDType       instrument.SecurityIdentifierType
	SecurityID           string
}

// ContractDetails issues REQ_CONTRACT_DATA with all contract fields plus
// include-expired and a single optional (security-id-type, security-id)
// pair; completes on CONTRACT_DATA_END (spec.md §4.8, S3).
func (c *Connection) ContractDetails(ctx context.Context, q ContractQuery) ([]*instrument.Instrument, error) {
	if c.proto == 0 {
		return nil, ibkrerr.New(ibkrerr.NotConnected, "handshake not completed")
	}

	id := c.requests.nextRequestID()
	w := codec.NewWriter(c.proto)
	w.WriteIntVal(codec.Gate{}, int32(message.ReqContractData))
	w.WriteIntVal(codec.Gate{}, 8)
	w.WriteIntVal(codec.Gate{}, id)
	w.WriteIntVal(codec.Gate{}, q.ContractID)
	w.WriteString(codec.Gate{}, q.Symbol)
	w.WriteString(codec.Gate{}, string(q.SecurityType))
	w.WriteString(codec.Gate{}, q.LastTradeDate)
	w.WriteFloat(codec.Gate{}, &q.Strike)
	w.WriteString(codec.Gate{}, q.Right)
	w.WriteString(codec.Gate{}, q.Multiplier)
	w.WriteString(codec.Gate{}, q.Exchange)
	w.WriteString(codec.Gate{}, q.Currency)
	w.WriteString(codec.Gate{}, q.LocalSymbol)
	w.WriteString(codec.Gate{}, q.TradingClass)
	w.WriteBool(codec.Gate{}, q.IncludeExpired)
	w.WriteString(codec.Gate{}, string(q.SecurityIDType))
	w.WriteString(codec.Gate{}, q.SecurityID)

	ch := c.requests.makePending(id)
	c.stateMu.Lock()
	c.contractRows[id] = nil
	c.stateMu.Unlock()

	if err := c.send(w.Fields()); err != nil {
		c.requests.cancel(id)
		c.stateMu.Lock()
		delete(c.contractRows, id)
		c.stateMu.Unlock()
		return nil, err
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.value.([]*instrument.Instrument), nil
	case <-ctx.Done():
		c.requests.cancel(id)
		return nil, ctx.Err()
	}
}

// handleContractData decodes one CONTRACT_DATA row, grounded on
// instrument_details.py's _handle_contract_data field order and gates.
func handleContractData(c *Connection, r *codec.Reader) {
	requestID := r.ReadIntOr(codec.Gate{}, 0)
	symbol := r.ReadString(codec.Gate{}, "")
	secType, _ := readSecurityType(r)
	lastTradeDate := r.ReadString(codec.Gate{}, "")
	strike := r.ReadFloatOr(codec.Gate{}, 0)
	right := r.ReadString(codec.Gate{}, "")
	exchange := r.ReadString(codec.Gate{}, "")
	currency := r.ReadString(codec.Gate{}, "")
	localSymbol := r.ReadString(codec.Gate{}, "")
	marketName := r.ReadString(codec.Gate{}, "")
	tradingClass := r.ReadString(codec.Gate{}, "")
	contractID := r.ReadIntOr(codec.Gate{}, 0)
	minTick := r.ReadFloatOr(codec.Gate{}, 0)
	mdSizeMultiplier := r.ReadFloatOr(codec.Gate{MinVersion: protover.MDSizeMultiplier}, 1)
	multiplier := r.ReadString(codec.Gate{}, "")
	orderTypes := splitComma(r.ReadString(codec.Gate{}, ""))
	validExchanges := splitComma(r.ReadString(codec.Gate{}, ""))
	priceMagnifier := r.ReadIntOr(codec.Gate{}, 1)
	underlyingContractID := r.ReadIntOr(codec.Gate{}, 0)
	longName := r.ReadString(codec.Gate{}, "")
	primaryExchange := r.ReadString(codec.Gate{}, "")
	contractMonth := r.ReadString(codec.Gate{}, "")
	industry := r.ReadString(codec.Gate{}, "")
	category := r.ReadString(codec.Gate{}, "")
	subcategory := r.ReadString(codec.Gate{}, "")
	timeZone := r.ReadString(codec.Gate{}, "")
	tradingHours := r.ReadString(codec.Gate{}, "")
	liquidHours := r.ReadString(codec.Gate{}, "")
	evRule := r.ReadString(codec.Gate{}, "")
	evMultiplier := r.ReadIntOr(codec.Gate{}, 0)
	secIDs, secIDOrder := codec.ReadMap(r, codec.Gate{},
		func(r *codec.Reader) instrument.SecurityIdentifierType {
			return instrument.SecurityIdentifierType(r.ReadString(codec.Gate{}, ""))
		},
		func(r *codec.Reader) string { return r.ReadString(codec.Gate{}, "") })
	_ = secIDOrder
	aggregatedGroup := r.ReadString(codec.Gate{MinVersion: protover.AggGroup}, "")
	underlyingSymbol := r.ReadString(codec.Gate{MinVersion: protover.UnderlyingInfo}, "")
	underlyingSecType := instrument.SecurityType(r.ReadString(codec.Gate{MinVersion: protover.UnderlyingInfo}, ""))
	marketRuleIDs := r.ReadString(codec.Gate{MinVersion: protover.MarketRules}, "")
	realExpirationDate := r.ReadString(codec.Gate{MinVersion: protover.RealExpirationDate}, "")

	inst := c.instrument(contractID)
	inst.Symbol = symbol
	inst.SecurityType = secType
	inst.LastTradeDate = lastTradeDate
	inst.Strike = strike
	inst.Right = right
	inst.Exchange = exchange
	inst.Currency = currency
	inst.LocalSymbol = localSymbol
	inst.MarketName = marketName
	inst.TradingClass = tradingClass
	inst.MinimumTick = minTick
	inst.MarketDataSizeMultiplier = mdSizeMultiplier
	inst.Multiplier = multiplier
	inst.OrderTypes = orderTypes
	inst.ValidExchanges = validExchanges
	inst.PriceMagnifier = priceMagnifier
	inst.UnderlyingContractID = underlyingContractID
	inst.LongName = longName
	inst.PrimaryExchange = primaryExchange
	inst.ContractMonth = contractMonth
	inst.Industry = industry
	inst.Category = category
	inst.Subcategory = subcategory
	inst.TimeZone = timeZone
	inst.TradingHours = tradingHours
	inst.LiquidHours = liquidHours
	inst.EVRule = evRule
	inst.EVMultiplier = evMultiplier
	if secIDs != nil {
		inst.SecurityIDs = secIDs
	}
	inst.AggregatedGroup = aggregatedGroup
	inst.UnderlyingSymbol = underlyingSymbol
	inst.UnderlyingSecurityType = underlyingSecType
	inst.MarketRuleIDs = marketRuleIDs
	inst.RealExpirationDate = realExpirationDate

	c.stateMu.Lock()
	c.contractRows[requestID] = append(c.contractRows[requestID], inst)
	c.stateMu.Unlock()
}

func handleContractDataEnd(c *Connection, r *codec.Reader) {
	requestID := r.ReadIntOr(codec.Gate{}, 0)
	c.stateMu.Lock()
	rows := c.contractRows[requestID]
	delete(c.contractRows, requestID)
	c.stateMu.Unlock()
	c.requests.resolve(requestID, rows)
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
