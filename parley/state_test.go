package parley

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStrings(t *testing.T) {
	want := map[ConnectionState]string{
		StateInitial:      "initial",
		StateConnecting:   "connecting",
		StateConnected:    "connected",
		StateDisconnected: "disconnected",
		StateReconnecting: "reconnecting",
		StateError:        "error",
		StateFailed:       "failed",
	}
	for state, s := range want {
		assert.Equal(t, s, state.String())
	}
	assert.Equal(t, "unknown", ConnectionState(99).String())
}

func TestStateMachineTransitions(t *testing.T) {
	m := newStateMachine(5, noopLogger{})
	require.Equal(t, StateInitial, m.state())

	var events []StateEvent
	m.subscribe(func(ev StateEvent) { events = append(events, ev) })

	m.set(StateConnecting, nil)
	m.set(StateConnected, nil)

	require.Len(t, events, 2)
	assert.Equal(t, StateInitial, events[0].OldState)
	assert.Equal(t, StateConnecting, events[0].NewState)
	assert.Equal(t, StateConnecting, events[1].OldState)
	assert.Equal(t, StateConnected, events[1].NewState)
	assert.False(t, events[1].At.IsZero())
}

func TestStateMachineNotificationsOrderedUnderRace(t *testing.T) {
	m := newStateMachine(5, noopLogger{})

	var mu sync.Mutex
	var events []StateEvent
	m.subscribe(func(ev StateEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	states := []ConnectionState{StateConnecting, StateConnected, StateDisconnected, StateReconnecting, StateError}
	const perGoroutine = 200

	var wg sync.WaitGroup
	for g := 0; g < 2; g++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				m.set(states[(i+offset)%len(states)], nil)
			}
		}(g)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 2*perGoroutine)
	for i := 1; i < len(events); i++ {
		require.Equal(t, events[i-1].NewState, events[i].OldState,
			"event %d must begin where event %d ended", i, i-1)
	}
}

func TestStateMachineReentrantCallback(t *testing.T) {
	m := newStateMachine(5, noopLogger{})

	var events []StateEvent
	m.subscribe(func(ev StateEvent) {
		events = append(events, ev)
		if ev.NewState == StateConnected {
			m.set(StateDisconnected, nil)
		}
	})

	m.set(StateConnected, nil)

	require.Len(t, events, 2)
	assert.Equal(t, StateConnected, events[0].NewState)
	assert.Equal(t, StateConnected, events[1].OldState)
	assert.Equal(t, StateDisconnected, events[1].NewState)
	assert.Equal(t, StateDisconnected, m.state())
}

func TestStateMachineAttemptBudget(t *testing.T) {
	m := newStateMachine(3, noopLogger{})

	for i := 1; i <= 3; i++ {
		require.True(t, m.incrementAttempts(), "attempt %d should be permitted", i)
		assert.Equal(t, i, m.attemptCount())
	}
	require.False(t, m.incrementAttempts(), "budget should be spent")
	assert.Equal(t, 3, m.attemptCount())

	m.resetAttempts()
	assert.Equal(t, 0, m.attemptCount())
	require.True(t, m.incrementAttempts())
}

func TestStateMachineConnectedResetsAttempts(t *testing.T) {
	m := newStateMachine(5, noopLogger{})
	m.incrementAttempts()
	m.incrementAttempts()
	require.Equal(t, 2, m.attemptCount())

	m.set(StateConnected, nil)
	assert.Equal(t, 0, m.attemptCount())
}
