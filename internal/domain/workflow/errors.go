package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a stage transition is not allowed
	ErrInvalidTransition = errors.New("invalid stage transition")

	// ErrInvalidStage is returned when a stage is not valid
	ErrInvalidStage = errors.New("invalid stage")

	// ErrTerminalStage is returned when a trigger is fired on an Approved or Rejected workflow
	ErrTerminalStage = errors.New("workflow is in a terminal stage")
)
