package parley

import (
	"sync"
	"time"
)

// ConnectionState represents the current state of the WebSocket connection.
type ConnectionState int

const (
	// StateInitial means the client was constructed but Connect was never called.
	StateInitial ConnectionState = iota

	// StateConnecting means the client is validating a session and dialing.
	StateConnecting

	// StateConnected means the client is connected and ready.
	StateConnected

	// StateDisconnected means the client was explicitly disconnected.
	StateDisconnected

	// StateReconnecting means the client is waiting out a backoff delay
	// before the next automatic connection attempt.
	StateReconnecting

	// StateError means the last connection attempt failed.
	StateError

	// StateFailed means all automatic reconnection attempts were exhausted.
	// Only an explicit Connect call leaves this state.
	StateFailed
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateReconnecting:
		return "reconnecting"
	case StateError:
		return "error"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StateEvent represents a state change event.
type StateEvent struct {
	OldState ConnectionState
	NewState ConnectionState
	At       time.Time
	Error    error // Optional error that caused the state change
}

// stateMachine is the single source of truth for a client's connection state
// and its reconnection-attempt budget. Transitions are unconditional; the
// terminal nature of StateFailed is enforced by the reconnection path, which
// never schedules another attempt once the budget is spent.
type stateMachine struct {
	logger Logger

	mu       sync.Mutex
	current  ConnectionState
	attempts int
	max      int
	onChange func(StateEvent)
	pending  []StateEvent
	emitting bool
}

func newStateMachine(maxAttempts int, logger Logger) *stateMachine {
	return &stateMachine{
		logger:  logger,
		current: StateInitial,
		max:     maxAttempts,
	}
}

// set transitions to next, logs the transition, and notifies the subscriber.
// Notifications go through a queue drained by one goroutine at a time, so the
// subscriber sees every transition exactly once and in transition order even
// when goroutines race, and a callback may safely re-enter the machine.
// A transition into StateConnected zeroes the attempt counter.
func (m *stateMachine) set(next ConnectionState, cause error) {
	m.mu.Lock()
	old := m.current
	m.current = next
	if next == StateConnected {
		m.attempts = 0
	}
	m.pending = append(m.pending, StateEvent{OldState: old, NewState: next, At: time.Now(), Error: cause})
	if m.emitting {
		// the draining goroutine will deliver our event in order
		m.mu.Unlock()
		return
	}
	m.emitting = true
	for len(m.pending) > 0 {
		ev := m.pending[0]
		m.pending = m.pending[1:]
		fn := m.onChange
		m.mu.Unlock()

		m.logger.Info("connection state changed", map[string]any{
			"from": ev.OldState.String(),
			"to":   ev.NewState.String(),
			"at":   ev.At.Format(time.RFC3339Nano),
		})
		if fn != nil {
			fn(ev)
		}

		m.mu.Lock()
	}
	m.emitting = false
	m.mu.Unlock()
}

func (m *stateMachine) state() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *stateMachine) subscribe(fn func(StateEvent)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// incrementAttempts consumes one reconnection attempt. It returns false when
// the budget is already spent, in which case the caller must give up.
func (m *stateMachine) incrementAttempts() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.attempts >= m.max {
		return false
	}
	m.attempts++
	return true
}

func (m *stateMachine) attemptCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

func (m *stateMachine) resetAttempts() {
	m.mu.Lock()
	m.attempts = 0
	m.mu.Unlock()
}
