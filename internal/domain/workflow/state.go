package workflow

import "fmt"

// Stage represents a position in the claim approval lifecycle
type Stage string

const (
	StageSubmitted   Stage = "Submitted"
	StageUnderReview Stage = "UnderReview"
	StageVerified    Stage = "Verified"
	StageApproved    Stage = "Approved"
	StageRejected    Stage = "Rejected"
)

var validStages = map[Stage]bool{
	StageSubmitted:   true,
	StageUnderReview: true,
	StageVerified:    true,
	StageApproved:    true,
	StageRejected:    true,
}

var terminalStages = map[Stage]bool{
	StageApproved: true,
	StageRejected: true,
}

// ParseStage converts a stored value into a Stage, rejecting anything outside the closed set
func ParseStage(s string) (Stage, error) {
	stage := Stage(s)
	if !stage.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStage, s)
	}
	return stage, nil
}

// IsTerminal returns true if no further transitions are allowed from the stage
func (s Stage) IsTerminal() bool {
	return terminalStages[s]
}

// String returns the string representation of the stage
func (s Stage) String() string {
	return string(s)
}

// IsValid returns true if the stage is a known workflow stage
func (s Stage) IsValid() bool {
	return validStages[s]
}
