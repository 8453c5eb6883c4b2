// Package workflow holds the batch run lifecycle state machine.
package workflow

import "errors"

// State is a batch run lifecycle state
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateDone      State = "done"
	StateCancelled State = "cancelled"
)

var validStates = map[State]bool{
	StateIdle:      true,
	StateRunning:   true,
	StateDone:      true,
	StateCancelled: true,
}

var terminalStates = map[State]bool{
	StateDone:      true,
	StateCancelled: true,
}

// IsTerminal returns true if no further transitions are expected
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsValid returns true if the state is a known lifecycle state
func (s State) IsValid() bool {
	return validStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// Trigger is an event that moves a batch run between states
type Trigger string

const (
	TriggerStart    Trigger = "start"
	TriggerComplete Trigger = "complete"
	TriggerCancel   Trigger = "cancel"
	TriggerReset    Trigger = "reset"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

var (
	// ErrInvalidTransition is returned when a trigger is not permitted in the current state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when every guarded transition for a trigger is rejected
	ErrGuardFailed = errors.New("guard condition failed")
)
