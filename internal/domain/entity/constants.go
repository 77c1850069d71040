package entity

import "fmt"

// ClaimStatus is the lifecycle status stored on a claim
type ClaimStatus string

const (
	ClaimStatusPending  ClaimStatus = "Pending"
	ClaimStatusVerified ClaimStatus = "Verified"
	ClaimStatusApproved ClaimStatus = "Approved"
	ClaimStatusRejected ClaimStatus = "Rejected"
)

// IsValid returns true if the status is one of the defined constants
func (s ClaimStatus) IsValid() bool {
	switch s {
	case ClaimStatusPending, ClaimStatusVerified, ClaimStatusApproved, ClaimStatusRejected:
		return true
	default:
		return false
	}
}

func (s ClaimStatus) String() string {
	return string(s)
}

// ParseClaimStatus converts a string to a ClaimStatus
func ParseClaimStatus(s string) (ClaimStatus, error) {
	status := ClaimStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid claim status: %q", s)
	}
	return status, nil
}

// Role identifies who acts on, or is expected to act next on, a workflow
type Role string

const (
	RoleLecturer    Role = "Lecturer"
	RoleCoordinator Role = "Coordinator"
	RoleManager     Role = "Manager"
	RoleSystem      Role = "System"
	RoleNone        Role = "None"
)

// IsReviewer returns true for roles that can approve or reject a claim
func (r Role) IsReviewer() bool {
	return r == RoleCoordinator || r == RoleManager
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts a string to a Role. System and None are not accepted
// from callers.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleLecturer, RoleCoordinator, RoleManager:
		return r, nil
	default:
		return "", fmt.Errorf("invalid role: %q", s)
	}
}

// HistoryAction tags a WorkflowHistory entry
type HistoryAction string

const (
	ActionCreated      HistoryAction = "Created"
	ActionSubmitted    HistoryAction = "Submitted"
	ActionAutoApproved HistoryAction = "AutoApproved"
	ActionAutoRejected HistoryAction = "AutoRejected"
	ActionVerified     HistoryAction = "Verified"
	ActionApproved     HistoryAction = "Approved"
	ActionRejected     HistoryAction = "Rejected"
)

// SystemActor is recorded as performer for entries not caused by a person
const SystemActor = "system"
