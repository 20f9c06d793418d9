package turn

import (
	"errors"
	"sync"
	"testing"
)

type captureListener struct {
	mu     sync.Mutex
	events []StateChange
}

func (c *captureListener) OnStateChange(event StateChange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureListener) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestMachineHappyPath(t *testing.T) {
	m := NewMachine()
	listener := &captureListener{}
	m.AddListener(listener)

	if err := m.Transition(StateSpeaking, "test"); err != nil {
		t.Fatalf("transition error: %v", err)
	}
	if err := m.Transition(StateCompleted, "test"); err != nil {
		t.Fatalf("transition error: %v", err)
	}
	if err := m.Transition(StateReleased, "test"); err != nil {
		t.Fatalf("transition error: %v", err)
	}
	if m.State() != StateReleased {
		t.Fatalf("expected RELEASED, got %s", m.State())
	}
	if listener.Count() != 3 {
		t.Fatalf("expected 3 state change events, got %d", listener.Count())
	}
}

func TestMachineInterruptedPath(t *testing.T) {
	m := NewMachine()
	if err := m.Transition(StateSpeaking, "test"); err != nil {
		t.Fatalf("transition error: %v", err)
	}
	if err := m.Transition(StateInterrupted, "caller speech"); err != nil {
		t.Fatalf("transition error: %v", err)
	}
	if err := m.Transition(StateReleased, "test"); err != nil {
		t.Fatalf("transition error: %v", err)
	}
}

func TestMachineNoReturnToSpeaking(t *testing.T) {
	for _, from := range []State{StateCompleted, StateInterrupted, StateReleased} {
		m := NewMachine()
		_ = m.Transition(StateSpeaking, "test")
		switch from {
		case StateCompleted:
			_ = m.Transition(StateCompleted, "test")
		case StateInterrupted:
			_ = m.Transition(StateInterrupted, "test")
		case StateReleased:
			_ = m.Transition(StateReleased, "test")
		}
		if err := m.Transition(StateSpeaking, "test"); err == nil {
			t.Fatalf("expected rejection of %s -> SPEAKING", from)
		}
	}
}

func TestMachineRejectsSkippingSpeaking(t *testing.T) {
	m := NewMachine()
	if err := m.Transition(StateCompleted, "test"); err == nil {
		t.Fatalf("expected rejection of IDLE -> COMPLETED")
	}
	var invalid *InvalidTransitionError
	err := m.Transition(StateInterrupted, "test")
	if err == nil {
		t.Fatalf("expected rejection of IDLE -> INTERRUPTED")
	}
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %T", err)
	}
}

func TestMachineReleasedFromIdle(t *testing.T) {
	// Cancellation before the utterance starts releases the turn directly.
	m := NewMachine()
	if err := m.Transition(StateReleased, "cancelled"); err != nil {
		t.Fatalf("transition error: %v", err)
	}
}
