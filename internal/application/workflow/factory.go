package workflow

import (
	"strings"

	"github.com/garyjia/claims-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/claims-workflow/internal/domain/workflow"
)

// BuildClaimStateMachine creates a state machine configured for the claim approval workflow
func BuildClaimStateMachine(initial domainwf.Stage) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	// Submitted: the validator picks exactly one outcome. Coordinator review is
	// also accepted here for workflows that never left Submitted.
	builder.Configure(domainwf.StageSubmitted).
		Permit(domainwf.TriggerAutoReject, domainwf.StageRejected).
		Permit(domainwf.TriggerAutoApprove, domainwf.StageApproved).
		Permit(domainwf.TriggerRequestReview, domainwf.StageUnderReview).
		Permit(domainwf.TriggerCoordinatorApprove, domainwf.StageVerified).
		Permit(domainwf.TriggerCoordinatorReject, domainwf.StageRejected)

	builder.Configure(domainwf.StageUnderReview).
		Permit(domainwf.TriggerCoordinatorApprove, domainwf.StageVerified).
		Permit(domainwf.TriggerCoordinatorReject, domainwf.StageRejected)

	builder.Configure(domainwf.StageVerified).
		Permit(domainwf.TriggerManagerApprove, domainwf.StageApproved).
		Permit(domainwf.TriggerManagerReject, domainwf.StageRejected)

	// Approved and Rejected are terminal

	return builder.Build(initial)
}

type stamp int

const (
	stampNone stamp = iota
	stampVerified
	stampApproved
)

// outcome describes everything a trigger does besides moving the stage
type outcome struct {
	status      entity.ClaimStatus
	nextRole    entity.Role
	action      entity.HistoryAction
	stamp       stamp
	message     string
	nextAction  string
	notesPrefix string
	// historyNote overrides the caller-supplied detail in the ledger entry
	historyNote string
}

var outcomes = map[domainwf.Trigger]outcome{
	domainwf.TriggerAutoReject: {
		status:      entity.ClaimStatusRejected,
		nextRole:    entity.RoleNone,
		action:      entity.ActionAutoRejected,
		message:     "Claim validation failed",
		nextAction:  "Correct the listed policy violations and submit a new claim",
		notesPrefix: "Auto-rejected: ",
	},
	domainwf.TriggerAutoApprove: {
		status:      entity.ClaimStatusApproved,
		nextRole:    entity.RoleNone,
		action:      entity.ActionAutoApproved,
		stamp:       stampApproved,
		message:     "Claim auto-approved",
		nextAction:  "Ready for payment",
		notesPrefix: "Auto-approved: ",
		historyNote: "Auto-approved",
	},
	domainwf.TriggerRequestReview: {
		status:      entity.ClaimStatusPending,
		nextRole:    entity.RoleCoordinator,
		action:      entity.ActionSubmitted,
		message:     "Claim submitted for review",
		nextAction:  "Pending coordinator review",
		historyNote: "Sent for review",
	},
	domainwf.TriggerCoordinatorApprove: {
		status:      entity.ClaimStatusVerified,
		nextRole:    entity.RoleManager,
		action:      entity.ActionVerified,
		stamp:       stampVerified,
		message:     "Claim verified, sent to manager for final approval",
		nextAction:  "Pending manager approval",
		notesPrefix: "Verified by coordinator: ",
	},
	domainwf.TriggerCoordinatorReject: {
		status:      entity.ClaimStatusRejected,
		nextRole:    entity.RoleNone,
		action:      entity.ActionRejected,
		stamp:       stampVerified,
		message:     "Claim rejected",
		nextAction:  "None",
		notesPrefix: "Rejected by coordinator: ",
	},
	domainwf.TriggerManagerApprove: {
		status:      entity.ClaimStatusApproved,
		nextRole:    entity.RoleNone,
		action:      entity.ActionApproved,
		stamp:       stampApproved,
		message:     "Claim fully approved",
		nextAction:  "Ready for payment processing",
		notesPrefix: "Approved by manager: ",
	},
	domainwf.TriggerManagerReject: {
		status:      entity.ClaimStatusRejected,
		nextRole:    entity.RoleNone,
		action:      entity.ActionRejected,
		stamp:       stampApproved,
		message:     "Claim rejected by manager",
		nextAction:  "None",
		notesPrefix: "Rejected by manager: ",
	},
}

// workflowNotes builds the workflow notes for a trigger from the caller's detail
func (o outcome) workflowNotes(detail string) string {
	switch {
	case o.notesPrefix == "":
		return o.nextAction
	case detail == "":
		return strings.TrimSuffix(o.notesPrefix, ": ")
	default:
		return o.notesPrefix + detail
	}
}

func (o outcome) ledgerNote(detail string) string {
	if o.historyNote != "" {
		return o.historyNote
	}
	return detail
}

// reviewTrigger maps a reviewer's decision onto the role-specific trigger
func reviewTrigger(role entity.Role, approve bool) (domainwf.Trigger, bool) {
	switch {
	case role == entity.RoleCoordinator && approve:
		return domainwf.TriggerCoordinatorApprove, true
	case role == entity.RoleCoordinator:
		return domainwf.TriggerCoordinatorReject, true
	case role == entity.RoleManager && approve:
		return domainwf.TriggerManagerApprove, true
	case role == entity.RoleManager:
		return domainwf.TriggerManagerReject, true
	default:
		return "", false
	}
}

// stageForStatus positions a workflow recreated for an existing claim so that
// stage and claim status agree.
func stageForStatus(status entity.ClaimStatus) (domainwf.Stage, entity.Role) {
	switch status {
	case entity.ClaimStatusVerified:
		return domainwf.StageVerified, entity.RoleManager
	case entity.ClaimStatusApproved:
		return domainwf.StageApproved, entity.RoleNone
	case entity.ClaimStatusRejected:
		return domainwf.StageRejected, entity.RoleNone
	default:
		return domainwf.StageUnderReview, entity.RoleCoordinator
	}
}
