// Package event implements the subscription manager (spec.md §4.6),
// re-architected per spec.md §9 Design Note 1: an Instance[T] owned by the
// entity, holding a slice of handlers each tagged strong or weak, in place
// of the source's descriptor-plus-weakref pattern. There is no reflection
// and no per-class descriptor registry; a domain object simply holds one
// *Instance[T] per event it declares, constructed with its
// subscribe/unsubscribe wire callbacks.
package event

import (
	"weak"

	"github.com/ondergetekende/ibclient/ibkrerr"
)

// Handler receives one event value.
type Handler[T any] func(T)

type entry[T any] struct {
	id   uint64
	call func(T) bool // false return means the handler's weak owner died; prune it.
}

// Instance is a per-owner, per-event-type mailbox of handlers. The zero
// value is not usable; construct with NewInstance.
type Instance[T any] struct {
	onSubscribe   func()
	onUnsubscribe func()
	handlers      []entry[T]
	nextID        uint64
}

// NewInstance constructs an Instance. onSubscribe runs when the handler
// count transitions 0→1 (including on Reconfigure); onUnsubscribe runs
// when it transitions to 0. Either may be nil.
func NewInstance[T any](onSubscribe, onUnsubscribe func()) *Instance[T] {
	return &Instance[T]{onSubscribe: onSubscribe, onUnsubscribe: onUnsubscribe}
}

func (e *Instance[T]) add(call func(T) bool) uint64 {
	e.nextID++
	id := e.nextID
	wasEmpty := len(e.handlers) == 0
	e.handlers = append(e.handlers, entry[T]{id: id, call: call})
	if wasEmpty && e.onSubscribe != nil {
		e.onSubscribe()
	}
	return id
}

// SetCallbacks (re)binds the subscribe/unsubscribe wire callbacks after
// construction. Used when the event's owner (an Instrument) is created
// before its Connection context is known, and the wire callbacks must
// close over that Connection (spec.md §9 "cyclic references between
// Connection and domain objects").
func (e *Instance[T]) SetCallbacks(onSubscribe, onUnsubscribe func()) {
	e.onSubscribe = onSubscribe
	e.onUnsubscribe = onUnsubscribe
}

// AddStrong registers h, holding a strong reference to it for the life of
// the subscription (or until explicitly removed).
func (e *Instance[T]) AddStrong(h Handler[T]) uint64 {
	return e.add(func(v T) bool { h(v); return true })
}

// AddWeak registers a handler bound to owner by weak reference: once owner
// is no longer otherwise referenced, the handler is pruned on next
// delivery rather than kept alive by this subscription (spec.md §4.6).
func AddWeak[T any, O any](e *Instance[T], owner *O, h func(*O, T)) uint64 {
	wp := weak.Make(owner)
	return e.add(func(v T) bool {
		o := wp.Value()
		if o == nil {
			return false
		}
		h(o, v)
		return true
	})
}

// Remove unregisters the handler with the given id. Removing an id that
// is not present is an invariant violation (spec.md §4.6: "a removed
// handler that is not present fails with a 'not subscribed' error").
func (e *Instance[T]) Remove(id uint64) error {
	for i, h := range e.handlers {
		if h.id != id {
			continue
		}
		e.handlers = append(e.handlers[:i], e.handlers[i+1:]...)
		if len(e.handlers) == 0 && e.onUnsubscribe != nil {
			e.onUnsubscribe()
		}
		return nil
	}
	return ibkrerr.New(ibkrerr.InvariantViolation, "handler not subscribed")
}

// HasSubscribers reports whether any handler is currently registered.
func (e *Instance[T]) HasSubscribers() bool { return len(e.handlers) > 0 }

// Reconfigure re-invokes the subscribe callback without altering the
// handler set, for use when a subscription's parameters change (e.g.
// depth rows, tick-type set) and the underlying stream must be
// reconfigured in place while staying active (spec.md §4.6).
func (e *Instance[T]) Reconfigure() {
	if e.onSubscribe != nil {
		e.onSubscribe()
	}
}

// Fire delivers v to every live handler, in registration order, pruning
// any whose weak owner has died.
func (e *Instance[T]) Fire(v T) {
	if len(e.handlers) == 0 {
		return
	}
	live := e.handlers[:0:0]
	for _, h := range e.handlers {
		if h.call(v) {
			live = append(live, h)
		}
	}
	hadHandlers := len(e.handlers) > 0
	e.handlers = live
	if hadHandlers && len(e.handlers) == 0 && e.onUnsubscribe != nil {
		e.onUnsubscribe()
	}
}

// Chan subscribes a buffered channel to this event, mirroring the
// asynchronous-iteration form of subscription (spec.md §4.6 "iterate as an
// asynchronous stream"). Delivery is non-blocking: a full channel drops
// the value rather than stalling dispatch. The returned func unsubscribes.
func (e *Instance[T]) Chan(buf int) (<-chan T, func()) {
	ch := make(chan T, buf)
	id := e.AddStrong(func(v T) {
		select {
		case ch <- v:
		default:
		}
	})
	return ch, func() { _ = e.Remove(id) }
}
