package ibclient

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextRequestIDStartsAt1000AndIncreasesMonotonically(t *testing.T) {
	t.Parallel()

	r := newRequestRegistry()
	first := r.nextRequestID()
	second := r.nextRequestID()
	third := r.nextRequestID()

	assert.Equal(t, int32(1000), first)
	assert.Less(t, first, second)
	assert.Less(t, second, third)
}

func TestNextRequestIDNeverRepeatsUnderConcurrentAllocation(t *testing.T) {
	t.Parallel()

	r := newRequestRegistry()
	const n = 200
	ids := make(chan int32, n)
	done := make(chan struct{})
	for range n {
		go func() {
			ids <- r.nextRequestID()
			done <- struct{}{}
		}()
	}
	for range n {
		<-done
	}
	close(ids)

	seen := make(map[int32]bool, n)
	for id := range ids {
		require.False(t, seen[id], "request id %d allocated twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestResolveDeliversValueToPendingChannel(t *testing.T) {
	t.Parallel()

	r := newRequestRegistry()
	id := r.nextRequestID()
	ch := r.makePending(id)

	r.resolve(id, "ok")
	res := <-ch
	assert.Equal(t, "ok", res.value)
	assert.NoError(t, res.err)
	assert.False(t, r.has(id))
}

func TestFailDeliversErrorToPendingChannel(t *testing.T) {
	t.Parallel()

	r := newRequestRegistry()
	id := r.nextRequestID()
	ch := r.makePending(id)

	wantErr := errors.New("boom")
	r.fail(id, wantErr)
	res := <-ch
	assert.Equal(t, wantErr, res.err)
}

func TestResolveOnUnknownIDIsANoOp(t *testing.T) {
	t.Parallel()

	r := newRequestRegistry()
	assert.NotPanics(t, func() { r.resolve(42, "ignored") })
}

func TestCancelDropsPendingSlotSoLateResolveIsIgnored(t *testing.T) {
	t.Parallel()

	r := newRequestRegistry()
	id := r.nextRequestID()
	r.makePending(id)

	ok := r.cancel(id)
	assert.True(t, ok)
	assert.False(t, r.has(id))

	// A resolve arriving after cancel must not panic or block: cancel
	// removed the slot, so resolve finds nothing to send to.
	assert.NotPanics(t, func() { r.resolve(id, "late") })
}

func TestFailAllFailsEveryOutstandingCompletion(t *testing.T) {
	t.Parallel()

	r := newRequestRegistry()
	id1 := r.nextRequestID()
	id2 := r.nextRequestID()
	ch1 := r.makePending(id1)
	ch2 := r.makePending(id2)

	wantErr := transportDeadErr()
	r.failAll(wantErr)

	res1 := <-ch1
	res2 := <-ch2
	assert.Equal(t, wantErr, res1.err)
	assert.Equal(t, wantErr, res2.err)
	assert.False(t, r.has(id1))
	assert.False(t, r.has(id2))
}
