package ibclient

import (
	"sync"

	"github.com/ondergetekende/ibclient/ibkrerr"
)

// completionResult is what a pending completion resolves or fails with.
type completionResult struct {
	value any
	err   error
}

// requestRegistry allocates monotonically increasing request ids (spec.md
// §4.4, starting at 1000) and holds single-shot pending completions keyed
// by request id. Grounded on protocol.py's
// next_request_id/make_future/resolve_future, translated to Go's
// channel-based single-result slot instead of asyncio.Future.
type requestRegistry struct {
	mu      sync.Mutex
	nextID  int32
	pending map[int32]chan completionResult
}

func newRequestRegistry() *requestRegistry {
	return &requestRegistry{nextID: 1000, pending: make(map[int32]chan completionResult)}
}

// nextRequestID allocates the next request id. Request ids are strictly
// increasing and never reused within a Connection (spec.md §3 invariant).
func (r *requestRegistry) nextRequestID() int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	return id
}

// makePending inserts a fresh completion slot keyed by id and returns a
// channel that receives exactly one completionResult.
func (r *requestRegistry) makePending(id int32) <-chan completionResult {
	ch := make(chan completionResult, 1)
	r.mu.Lock()
	r.pending[id] = ch
	r.mu.Unlock()
	return ch
}

// resolve completes the pending slot for id successfully. A missing or
// already-completed slot is ignored (spec.md §4.4).
func (r *requestRegistry) resolve(id int32, value any) {
	r.mu.Lock()
	ch, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()
	if ok {
		ch <- completionResult{value: value}
	}
}

// fail completes the pending slot for id with an error. A missing or
// already-completed slot is ignored.
func (r *requestRegistry) fail(id int32, err error) {
	r.mu.Lock()
	ch, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()
	if ok {
		ch <- completionResult{err: err}
	}
}

// cancel drops the pending slot for id without resolving it, so a late
// response arriving afterward is dropped silently (spec.md §5
// Cancellation). It reports whether a slot was present.
func (r *requestRegistry) cancel(id int32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	return ok
}

// has reports whether a pending completion is still outstanding for id.
func (r *requestRegistry) has(id int32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[id]
	return ok
}

// failAll fails every outstanding pending completion with err — used when
// the transport dies (spec.md §7 "A transport failure fails all pending
// completions and closes the Connection").
func (r *requestRegistry) failAll(err error) {
	r.mu.Lock()
	pending := r.pending
	r.pending = make(map[int32]chan completionResult)
	r.mu.Unlock()
	for _, ch := range pending {
		ch <- completionResult{err: err}
	}
}

func transportDeadErr() error {
	return ibkrerr.New(ibkrerr.Transport, "connection closed")
}
