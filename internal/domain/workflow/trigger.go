package workflow

// Trigger represents an event that can cause a stage transition
type Trigger string

const (
	// Submission outcomes, chosen by the validator result
	TriggerAutoReject    Trigger = "AUTO_REJECT"
	TriggerAutoApprove   Trigger = "AUTO_APPROVE"
	TriggerRequestReview Trigger = "REQUEST_REVIEW"

	// Review decisions, one pair per reviewing role
	TriggerCoordinatorApprove Trigger = "COORDINATOR_APPROVE"
	TriggerCoordinatorReject  Trigger = "COORDINATOR_REJECT"
	TriggerManagerApprove     Trigger = "MANAGER_APPROVE"
	TriggerManagerReject      Trigger = "MANAGER_REJECT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
