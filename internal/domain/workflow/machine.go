package workflow

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc decides whether a transition may be taken
type GuardFunc func(ctx context.Context) bool

// TransitionFunc observes a completed transition
type TransitionFunc func(from, to State, trigger Trigger)

type transition struct {
	to    State
	guard GuardFunc
}

// Definition is an immutable table of permitted transitions. Machines built
// from the same definition share it.
type Definition struct {
	transitions map[State]map[Trigger][]transition
}

// DefinitionBuilder collects transitions for a Definition
type DefinitionBuilder struct {
	transitions map[State]map[Trigger][]transition
}

// NewDefinition starts a new transition table
func NewDefinition() *DefinitionBuilder {
	return &DefinitionBuilder{
		transitions: make(map[State]map[Trigger][]transition),
	}
}

// Permit allows trigger to move from one state to another
func (b *DefinitionBuilder) Permit(from State, trigger Trigger, to State) *DefinitionBuilder {
	return b.PermitIf(from, trigger, to, nil)
}

// PermitIf allows the transition only when guard passes. Guards are tried in
// the order they were added.
func (b *DefinitionBuilder) PermitIf(from State, trigger Trigger, to State, guard GuardFunc) *DefinitionBuilder {
	if !from.IsValid() {
		panic(fmt.Sprintf("invalid source state: %s", from))
	}
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", to))
	}

	byTrigger, ok := b.transitions[from]
	if !ok {
		byTrigger = make(map[Trigger][]transition)
		b.transitions[from] = byTrigger
	}
	byTrigger[trigger] = append(byTrigger[trigger], transition{to: to, guard: guard})
	return b
}

// Build freezes the table
func (b *DefinitionBuilder) Build() *Definition {
	frozen := make(map[State]map[Trigger][]transition, len(b.transitions))
	for state, byTrigger := range b.transitions {
		copied := make(map[Trigger][]transition, len(byTrigger))
		for trigger, ts := range byTrigger {
			copied[trigger] = append([]transition(nil), ts...)
		}
		frozen[state] = copied
	}
	return &Definition{transitions: frozen}
}

// Machine tracks the current state of one batch run. It is not safe for
// concurrent use; the owner serialises access.
type Machine struct {
	def       *Definition
	current   State
	listeners []TransitionFunc
}

// NewMachine creates a machine positioned at initial
func NewMachine(def *Definition, initial State) *Machine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initial))
	}
	return &Machine{def: def, current: initial}
}

// OnTransition registers fn to be called after every successful Fire
func (m *Machine) OnTransition(fn TransitionFunc) {
	m.listeners = append(m.listeners, fn)
}

// State returns the current state
func (m *Machine) State() State {
	return m.current
}

// CanFire returns true if trigger has at least one transition from the current state
func (m *Machine) CanFire(trigger Trigger) bool {
	return len(m.def.transitions[m.current][trigger]) > 0
}

// Fire applies trigger, taking the first transition whose guard passes
func (m *Machine) Fire(ctx context.Context, trigger Trigger) error {
	ts := m.def.transitions[m.current][trigger]
	if len(ts) == 0 {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.current)
	}

	for _, t := range ts {
		if t.guard != nil && !t.guard(ctx) {
			continue
		}
		from := m.current
		m.current = t.to
		for _, fn := range m.listeners {
			fn(from, t.to, trigger)
		}
		return nil
	}

	return fmt.Errorf("%w: %s from %s", ErrGuardFailed, trigger, m.current)
}

// PermittedTriggers returns the triggers available from the current state, sorted
func (m *Machine) PermittedTriggers() []Trigger {
	byTrigger := m.def.transitions[m.current]
	triggers := make([]Trigger, 0, len(byTrigger))
	for trigger := range byTrigger {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}
