package event_test

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ondergetekende/ibclient/event"
)

func TestFireDeliversToAllHandlersInRegistrationOrder(t *testing.T) {
	t.Parallel()

	e := event.NewInstance[int](nil, nil)
	var got []int
	e.AddStrong(func(v int) { got = append(got, v*10) })
	e.AddStrong(func(v int) { got = append(got, v*100) })

	e.Fire(1)
	assert.Equal(t, []int{10, 100}, got)
}

func TestSubscribeTransitionFiresOnSubscribeOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	e := event.NewInstance[int](func() { calls++ }, nil)
	e.AddStrong(func(int) {})
	e.AddStrong(func(int) {})
	assert.Equal(t, 1, calls, "onSubscribe fires only on the 0->1 transition")
}

func TestLastUnsubscribeFiresOnUnsubscribe(t *testing.T) {
	t.Parallel()

	unsubs := 0
	e := event.NewInstance[int](nil, func() { unsubs++ })
	id1 := e.AddStrong(func(int) {})
	id2 := e.AddStrong(func(int) {})

	require.NoError(t, e.Remove(id1))
	assert.Equal(t, 0, unsubs, "not the last handler yet")

	require.NoError(t, e.Remove(id2))
	assert.Equal(t, 1, unsubs)
}

func TestRemoveUnknownIDIsInvariantViolation(t *testing.T) {
	t.Parallel()

	e := event.NewInstance[int](nil, nil)
	err := e.Remove(999)
	assert.Error(t, err)
}

func TestSetCallbacksRebindsAfterConstruction(t *testing.T) {
	t.Parallel()

	e := event.NewInstance[int](nil, nil)
	calls := 0
	e.SetCallbacks(func() { calls++ }, nil)
	e.AddStrong(func(int) {})
	assert.Equal(t, 1, calls)
}

func TestReconfigureReinvokesSubscribeWithoutChangingHandlers(t *testing.T) {
	t.Parallel()

	calls := 0
	e := event.NewInstance[int](func() { calls++ }, nil)
	e.AddStrong(func(int) {})
	assert.Equal(t, 1, calls)

	e.Reconfigure()
	assert.Equal(t, 2, calls)
	assert.True(t, e.HasSubscribers())
}

func TestChanDeliversAndUnsubscribeFunc(t *testing.T) {
	t.Parallel()

	e := event.NewInstance[int](nil, nil)
	ch, unsubscribe := e.Chan(4)

	e.Fire(7)
	select {
	case v := <-ch:
		assert.Equal(t, 7, v)
	default:
		t.Fatal("expected buffered value on channel")
	}

	unsubscribe()
	assert.False(t, e.HasSubscribers())
}

func TestChanDropsOnFullBuffer(t *testing.T) {
	t.Parallel()

	e := event.NewInstance[int](nil, nil)
	ch, _ := e.Chan(1)

	e.Fire(1)
	e.Fire(2) // buffer full, dropped rather than blocking Fire

	v := <-ch
	assert.Equal(t, 1, v)
	select {
	case <-ch:
		t.Fatal("expected no second value")
	default:
	}
}

type weakOwner struct{ n int }

func TestAddWeakPrunesAndFiresUnsubscribeWhenOwnerDies(t *testing.T) {
	unsubs := 0
	e := event.NewInstance[int](nil, func() { unsubs++ })

	var owner *weakOwner = &weakOwner{n: 1}
	delivered := 0
	event.AddWeak(e, owner, func(o *weakOwner, v int) { delivered += v })

	e.Fire(5)
	assert.Equal(t, 5, delivered)
	assert.Equal(t, 0, unsubs)

	owner = nil
	runtime.GC()
	runtime.GC()

	e.Fire(5)
	assert.Equal(t, 1, unsubs, "the dead owner's handler should have been pruned, firing onUnsubscribe")
}
