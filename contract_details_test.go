package ibclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ondergetekende/ibclient/instrument"
)

// contractDataFrame builds a CONTRACT_DATA frame (kind 10, message version
// 8) matching handleContractData's exact read order through
// RealExpirationDate, assuming a negotiated protocol new enough to pass
// every gate in contract_details.go.
func contractDataFrame(requestID string) []string {
	return []string{
		"10", "8", requestID,
		"AAPL", "STK", "", "0", "", // symbol, secType, lastTradeDate, strike, right
		"SMART", "USD", "AAPL", "NMS", "AAPL", // exchange, currency, localSymbol, marketName, tradingClass
		"6001", "0.01", "100", "", // contractID, minTick, mdSizeMultiplier, multiplier
		"MKT,LMT", "SMART,NASDAQ", "1", "0", // orderTypes, validExchanges, priceMagnifier, underlyingContractID
		"Apple Inc", "NASDAQ", "", // longName, primaryExchange, contractMonth
		"Technology", "Computers", "Computers", // industry, category, subcategory
		"US/Eastern", "", "", // timeZone, tradingHours, liquidHours
		"", "0", // evRule, evMultiplier
		"0", // secIDs map count
		"1", // aggregatedGroup
		"", "", // underlyingSymbol, underlyingSecType
		"26,32", // marketRuleIDs
		"",      // realExpirationDate
	}
}

func TestContractDetailsAccumulatesRowsUntilEnd(t *testing.T) {
	t.Parallel()
	c, gw := newPipedConnection(t)

	go func() {
		fields, err := gw.fr.ReadFrame()
		require.NoError(t, err)
		require.Equal(t, "9", fields[0]) // REQ_CONTRACT_DATA
		reqID := fields[2]
		require.NoError(t, gw.fw.WriteFrame(contractDataFrame(reqID)))
		require.NoError(t, gw.fw.WriteFrame([]string{"52", "1", reqID})) // CONTRACT_DATA_END
	}()

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	rows, err := c.ContractDetails(ctx, ContractQuery{Symbol: "AAPL", SecurityType: instrument.SecurityTypeStock})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "AAPL", rows[0].Symbol)
	assert.EqualValues(t, 6001, rows[0].ContractID)
	assert.Equal(t, "1", rows[0].AggregatedGroup)
	assert.Equal(t, "26,32", rows[0].MarketRuleIDs)
}

func TestContractDetailsNoRowsBeforeEndResolvesEmpty(t *testing.T) {
	t.Parallel()
	c, gw := newPipedConnection(t)

	go func() {
		fields, err := gw.fr.ReadFrame()
		require.NoError(t, err)
		reqID := fields[2]
		require.NoError(t, gw.fw.WriteFrame([]string{"52", "1", reqID}))
	}()

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	rows, err := c.ContractDetails(ctx, ContractQuery{Symbol: "NOPE"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
