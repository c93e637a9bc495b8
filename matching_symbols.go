package ibclient

import (
	"context"

	"github.com/ondergetekende/ibclient/codec"
	"github.com/ondergetekende/ibclient/ibkrerr"
	"github.com/ondergetekende/ibclient/instrument"
	"github.com/ondergetekende/ibclient/message"
	"github.com/ondergetekende/ibclient/protover"
)

// MatchingSymbols issues REQ_MATCHING_SYMBOLS for pattern and resolves
// with every symbol-search hit (spec.md §4.8 "Notable flows", S2),
// grounded on
// _examples/original_source/ib_async/functionality/matching_symbols.py.
// Unlike contract lookup, the gateway answers with a single SYMBOL_SAMPLES
// frame carrying every row inline; there is no terminating "*_END"
// message for this flow, so this handler resolves directly rather than
// accumulating across frames.
func (c *Connection) MatchingSymbols(ctx context.Context, pattern string) ([]instrument.MatchingSymbol, error) {
	if c.proto == 0 {
		return nil, ibkrerr.New(ibkrerr.NotConnected, "handshake not completed")
	}
	if err := c.requireFeature(protover.ReqMatchingSymbols, "REQ_MATCHING_SYMBOLS"); err != nil {
		return nil, err
	}

	id := c.requests.nextRequestID()
	w := codec.NewWriter(c.proto)
	w.WriteIntVal(codec.Gate{}, int32(message.ReqMatchingSymbols))
	w.WriteIntVal(codec.Gate{}, id)
	w.WriteString(codec.Gate{}, pattern)

	ch := c.requests.makePending(id)
	if err := c.send(w.Fields()); err != nil {
		c.requests.cancel(id)
		return nil, err
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.value.([]instrument.MatchingSymbol), nil
	case <-ctx.Done():
		c.requests.cancel(id)
		return nil, ctx.Err()
	}
}

func handleSymbolSamples(c *Connection, r *codec.Reader) {
	requestID := r.ReadIntOr(codec.Gate{}, 0)
	n := r.ReadIntOr(codec.Gate{}, 0)
	rows := make([]instrument.MatchingSymbol, 0, n)
	for i := int32(0); i < n; i++ {
		contractID := r.ReadIntOr(codec.Gate{}, 0)
		inst := c.instrument(contractID)
		inst.Symbol = r.ReadString(codec.Gate{}, "")
		inst.SecurityType, _ = readSecurityType(r)
		inst.PrimaryExchange = r.ReadString(codec.Gate{}, "")
		inst.Currency = r.ReadString(codec.Gate{}, "")
		derivatives := codec.ReadList(r, codec.Gate{}, func(r *codec.Reader) string {
			return r.ReadString(codec.Gate{}, "")
		})
		rows = append(rows, instrument.MatchingSymbol{Instrument: inst, DerivativeSecurityTypes: derivatives})
	}
	c.requests.resolve(requestID, rows)
}

// readSecurityType resolves a SecurityType field by text match, falling
// back to the raw string (spec.md §4.2, §9 Open Question (b)).
func readSecurityType(r *codec.Reader) (instrument.SecurityType, string) {
	return codec.ReadEnum(r, codec.Gate{}, codec.EnumValues[instrument.SecurityType]{
		ByText: map[string]instrument.SecurityType{
			"STK":    instrument.SecurityTypeStock,
			"FUT":    instrument.SecurityTypeFuture,
			"IND":    instrument.SecurityTypeIndex,
			"OPT":    instrument.SecurityTypeOption,
			"FOP":    instrument.SecurityTypeFutureOpt,
			"CASH":   instrument.SecurityTypeCash,
			"BAG":    instrument.SecurityTypeBag,
			"WAR":    instrument.SecurityTypeWarrant,
			"BOND":   instrument.SecurityTypeBond,
			"CMDTY":  instrument.SecurityTypeCommodity,
			"CRYPTO": instrument.SecurityTypeCrypto,
			"":       instrument.SecurityTypeUnspecified,
		},
		Default: instrument.SecurityTypeUnspecified,
	})
}
