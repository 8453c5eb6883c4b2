package workflow

// batchLifecycle is shared by every batch run:
//
//	idle --start--> running --complete--> done
//	                running --cancel----> cancelled
//	done|cancelled --reset--> idle
var batchLifecycle = NewDefinition().
	Permit(StateIdle, TriggerStart, StateRunning).
	Permit(StateRunning, TriggerComplete, StateDone).
	Permit(StateRunning, TriggerCancel, StateCancelled).
	Permit(StateDone, TriggerReset, StateIdle).
	Permit(StateCancelled, TriggerReset, StateIdle).
	Build()

// BatchLifecycle returns the batch run transition table
func BatchLifecycle() *Definition {
	return batchLifecycle
}

// NewBatchMachine returns a machine for a new batch run, starting idle
func NewBatchMachine() *Machine {
	return NewMachine(batchLifecycle, StateIdle)
}
