package workflow

// StateMachine tracks the current stage of one workflow and validates transitions
type StateMachine interface {
	// Stage returns the current stage
	Stage() Stage

	// CanFire returns true if the trigger is permitted in the current stage
	CanFire(trigger Trigger) bool

	// Fire moves to the trigger's target stage if the trigger is permitted
	Fire(trigger Trigger) error

	// PermittedTriggers returns all triggers that can be fired in the current stage
	PermittedTriggers() []Trigger
}
