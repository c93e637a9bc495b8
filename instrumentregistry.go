package ibclient

import (
	"sync"
	"weak"

	"github.com/ondergetekende/ibclient/ibkrerr"
	"github.com/ondergetekende/ibclient/instrument"
)

// instrumentRegistry canonicalizes domain objects by stable contract
// identifier within a Connection (spec.md §4.7, C8). Values are held
// weakly via the standard library's weak package so the registry does not
// keep an otherwise-unreferenced Instrument alive; a caller's own
// reference (or an active subscription closure) is what keeps an
// Instrument reachable.
type instrumentRegistry struct {
	mu  sync.Mutex
	byID map[int32]weak.Pointer[instrument.Instrument]
}

func newInstrumentRegistry() *instrumentRegistry {
	return &instrumentRegistry{byID: make(map[int32]weak.Pointer[instrument.Instrument])}
}

// getOrCreate returns the Instrument registered for contractID, creating
// one if absent or if the previous weak value has been collected
// (spec.md §4.7, testable property 6: instrument identity).
func (reg *instrumentRegistry) getOrCreate(contractID int32) *instrument.Instrument {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if wp, ok := reg.byID[contractID]; ok {
		if inst := wp.Value(); inst != nil {
			return inst
		}
	}
	inst := instrument.New()
	inst.ContractID = contractID
	reg.byID[contractID] = weak.Make(inst)
	return inst
}

// lookup returns the Instrument registered for contractID, or nil if none
// is registered or the weak value has been collected.
func (reg *instrumentRegistry) lookup(contractID int32) *instrument.Instrument {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	wp, ok := reg.byID[contractID]
	if !ok {
		return nil
	}
	return wp.Value()
}

// rebind moves inst to newContractID, clearing its previous slot.
// Assigning to an already-taken new slot (that still resolves to a live,
// distinct Instrument) is an invariant violation rather than a silent
// overwrite (spec.md §4.7, §9 Open Question (c)).
func (reg *instrumentRegistry) rebind(inst *instrument.Instrument, newContractID int32) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if wp, ok := reg.byID[newContractID]; ok {
		if existing := wp.Value(); existing != nil && existing != inst {
			return ibkrerr.New(ibkrerr.InvariantViolation, "duplicate contract id assignment")
		}
	}
	oldID := inst.ContractID
	if oldID != 0 && oldID != newContractID {
		if wp, ok := reg.byID[oldID]; ok {
			if existing := wp.Value(); existing == inst {
				delete(reg.byID, oldID)
			}
		}
	}
	inst.ContractID = newContractID
	reg.byID[newContractID] = weak.Make(inst)
	return nil
}
