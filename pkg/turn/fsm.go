package turn

import (
	"sync"
	"time"
)

type State int

const (
	StateIdle State = iota
	StateSpeaking
	StateCompleted
	StateInterrupted
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateSpeaking:
		return "SPEAKING"
	case StateCompleted:
		return "COMPLETED"
	case StateInterrupted:
		return "INTERRUPTED"
	case StateReleased:
		return "RELEASED"
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

// StateListener observes turn state changes.
type StateListener interface {
	OnStateChange(event StateChange)
}

// Machine is the finite state machine for the opening turn. Once released
// no path returns to Speaking; further turns belong to the pipeline's own
// loop.
type Machine struct {
	mu           sync.RWMutex
	currentState State
	listeners    []StateListener

	speakingStartTime time.Time
}

func NewMachine() *Machine {
	return &Machine{currentState: StateIdle}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentState
}

func transitionValid(from, to State) bool {
	validTransitions := map[State][]State{
		StateIdle:        {StateSpeaking, StateReleased},
		StateSpeaking:    {StateCompleted, StateInterrupted, StateReleased},
		StateCompleted:   {StateReleased},
		StateInterrupted: {StateReleased},
	}
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition moves to a new state with validation.
func (m *Machine) Transition(state State, reason string) error {
	m.mu.Lock()
	if !transitionValid(m.currentState, state) {
		from := m.currentState
		m.mu.Unlock()
		return &InvalidTransitionError{From: from, To: state}
	}
	oldState := m.currentState
	m.currentState = state
	if state == StateSpeaking {
		m.speakingStartTime = time.Now()
	}
	event := StateChange{
		FromState: oldState,
		ToState:   state,
		Timestamp: time.Now(),
		Reason:    reason,
	}
	listeners := make([]StateListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, listener := range listeners {
		listener.OnStateChange(event)
	}
	return nil
}

// AddListener registers a listener for state change events.
func (m *Machine) AddListener(listener StateListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, listener)
}

// SpeakingFor returns how long the current utterance has been in progress.
func (m *Machine) SpeakingFor() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.currentState != StateSpeaking {
		return 0
	}
	return time.Since(m.speakingStartTime)
}

// InvalidTransitionError represents an invalid state transition attempt.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return "invalid state transition from " + e.From.String() + " to " + e.To.String()
}
