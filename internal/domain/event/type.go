package event

// Type identifies the type of domain event
type Type string

const (
	// TypeStageChanged is emitted after every committed workflow transition
	TypeStageChanged Type = "claim.stage_changed"
	// TypeClaimFinalized is emitted when a claim reaches Approved or Rejected
	TypeClaimFinalized Type = "claim.finalized"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeStageChanged, TypeClaimFinalized:
		return true
	default:
		return false
	}
}
