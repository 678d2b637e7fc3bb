package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/tgcon/tgcon/internal/event"
)

// State is a session runtime state shown on the status line.
type State string

const (
	Booting      State = "BOOTING"
	AuthRequired State = "AUTH_REQUIRED"
	Connecting   State = "CONNECTING"
	Syncing      State = "SYNCING"
	Ready        State = "READY"
	Reconnecting State = "RECONNECTING"
	Error        State = "ERROR"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Booting:      {AuthRequired, Connecting, Error},
	AuthRequired: {Connecting, Error},
	Connecting:   {Syncing, AuthRequired, Reconnecting, Error},
	Syncing:      {Ready, Reconnecting, Error},
	Ready:        {Reconnecting, AuthRequired, Error},
	Reconnecting: {Connecting, Error},
	Error:        {Booting},
}

// Machine tracks session runtime state. Producers (the adapter) mutate it
// from their own goroutines; each successful transition is delivered to
// the central loop as a status event on the queue, never applied to view
// state directly.
type Machine struct {
	mu      sync.RWMutex
	current State
	queue   *event.Queue
}

// Change is the payload of a status event.
type Change struct {
	From State
	To   State
}

// NewMachine creates a machine in the Booting state.
func NewMachine(q *event.Queue) *Machine {
	return &Machine{current: Booting, queue: q}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state and enqueues the change.
// Returns an error when the transition is not allowed.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.queue != nil {
		_ = m.queue.Push(event.New(event.KindStatusChanged, Change{From: from, To: to}))
	}
	return nil
}
