// Package execution defines the Execution and CommissionReport domain
// objects (spec.md §4.8 "Executions"), grounded on
// _examples/original_source/ib_async/execution.py.
package execution

import (
	"github.com/ondergetekende/ibclient/codec"
	"github.com/ondergetekende/ibclient/protover"
)

// Execution is one fill, dispatched to a three-way sink fanout
// (Connection-level, Instrument-level, Order-level) per spec.md §4.8.
type Execution struct {
	InstrumentContractID int32
	OrderID              int32
	ExecutionID          string
	Time                 string
	AccountNumber        string
	Exchange             string
	Side                 string
	Shares               float64
	Price                float64
	PermID               int32
	ClientID             int32
	Liquidation          int32
	CumulativeQuantity   float64
	AveragePrice         float64
	OrderRef             string
	EVRule               string
	EVMultiplier         float64
	ModelCode            string
	LastLiquidity        int32

	// Commission is nil until a companion COMMISSION_REPORT naming this
	// ExecutionID has been decoded and attached.
	Commission *CommissionReport
}

// Decode reads an Execution's fields in declared order, grounded on
// executions.py's _handle_execution_data. The caller is responsible for
// resolving InstrumentContractID to an *instrument.Instrument via the
// Connection's registry before or after this call; this package stays
// free of a dependency on package instrument to avoid an import cycle
// (Instrument.OnExecution fires execution rows typed as `any`).
func Decode(r *codec.Reader) Execution {
	var e Execution
	e.OrderID = r.ReadIntOr(codec.Gate{}, 0)
	// Contract fields (contract id, symbol, security type, ...) are read
	// by the caller via the instrument codec before calling Decode, since
	// they determine InstrumentContractID through the registry lookup.
	e.ExecutionID = r.ReadString(codec.Gate{}, "")
	e.Time = r.ReadString(codec.Gate{}, "")
	e.AccountNumber = r.ReadString(codec.Gate{}, "")
	e.Exchange = r.ReadString(codec.Gate{}, "")
	e.Side = r.ReadString(codec.Gate{}, "")
	e.Shares = r.ReadFloatOr(codec.Gate{}, 0)
	e.Price = r.ReadFloatOr(codec.Gate{}, 0)
	e.PermID = r.ReadIntOr(codec.Gate{}, 0)
	e.ClientID = r.ReadIntOr(codec.Gate{}, 0)
	e.Liquidation = r.ReadIntOr(codec.Gate{}, 0)
	e.CumulativeQuantity = r.ReadFloatOr(codec.Gate{}, 0)
	e.AveragePrice = r.ReadFloatOr(codec.Gate{}, 0)
	e.OrderRef = r.ReadString(codec.Gate{}, "")
	e.EVRule = r.ReadString(codec.Gate{}, "")
	e.EVMultiplier = r.ReadFloatOr(codec.Gate{}, 0)
	e.ModelCode = r.ReadString(codec.Gate{MinVersion: protover.ModelsSupport}, "")
	e.LastLiquidity = r.ReadIntOr(codec.Gate{MinVersion: protover.LastLiquidity}, 0)
	return e
}

// CommissionReport carries commission/realized-PnL detail delivered as a
// companion message to EXECUTION_DATA, keyed by execution id (see
// SPEC_FULL.md SUPPLEMENTED). The client only ever decodes these — it
// never originates one — so there is no Encode.
type CommissionReport struct {
	ExecutionID          string
	Commission           float64
	Currency             string
	RealizedPNL          *float64
	Yield                *float64
	YieldRedemptionDate  int32
}

// DecodeCommissionReport reads a CommissionReport's fields in declared
// order.
func DecodeCommissionReport(r *codec.Reader) CommissionReport {
	var c CommissionReport
	c.ExecutionID = r.ReadString(codec.Gate{}, "")
	c.Commission = r.ReadFloatOr(codec.Gate{}, 0)
	c.Currency = r.ReadString(codec.Gate{}, "")
	c.RealizedPNL = r.ReadFloat(codec.Gate{}, nil)
	c.Yield = r.ReadFloat(codec.Gate{}, nil)
	c.YieldRedemptionDate = r.ReadIntOr(codec.Gate{}, 0)
	return c
}
