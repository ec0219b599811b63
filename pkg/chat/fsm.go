package chat

import (
	"sync"
	"time"
)

// State is a phase of the conversation loop.
type State int

const (
	StateAwaitingResponse State = iota
	StateHandlingToolCall
	StateDone
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateAwaitingResponse:
		return "AWAITING_RESPONSE"
	case StateHandlingToolCall:
		return "HANDLING_TOOL_CALL"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// StateChange represents a state transition event.
type StateChange struct {
	FromState State
	ToState   State
	Timestamp time.Time
	Reason    string
}

// StateListener observes loop state changes.
type StateListener interface {
	OnStateChange(event StateChange)
}

// ListenerFunc adapts a function to the StateListener interface.
type ListenerFunc func(event StateChange)

func (f ListenerFunc) OnStateChange(event StateChange) { f(event) }

// stateMachine validates and publishes the loop's state transitions.
type stateMachine struct {
	mu        sync.RWMutex
	current   State
	listeners []StateListener
}

func newStateMachine() *stateMachine {
	return &stateMachine{current: StateAwaitingResponse}
}

// State returns the current state.
func (m *stateMachine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// transitionValid checks if a state transition is valid. DONE is
// terminal, so nothing leads out of it.
func (m *stateMachine) transitionValid(from, to State) bool {
	validTransitions := map[State][]State{
		StateAwaitingResponse: {StateHandlingToolCall, StateDone},
		StateHandlingToolCall: {StateAwaitingResponse},
	}
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition moves to a new state with validation.
func (m *stateMachine) Transition(state State, reason string) error {
	m.mu.Lock()
	if !m.transitionValid(m.current, state) {
		err := &InvalidTransitionError{From: m.current, To: state}
		m.mu.Unlock()
		return err
	}
	event := StateChange{
		FromState: m.current,
		ToState:   state,
		Timestamp: time.Now(),
		Reason:    reason,
	}
	m.current = state

	// Notify outside the lock so listeners may query the machine.
	listeners := make([]StateListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, listener := range listeners {
		listener.OnStateChange(event)
	}
	return nil
}

// AddListener registers a listener for state change events.
func (m *stateMachine) AddListener(listener StateListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, listener)
}

// InvalidTransitionError represents an invalid state transition attempt
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return "invalid state transition from " + e.From.String() + " to " + e.To.String()
}
