package workflow

import (
	"context"
	"errors"

	"github.com/garyjia/claims-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/claims-workflow/internal/domain/workflow"
)

var (
	// ErrWorkflowExists is returned when submitting a claim that already has a workflow
	ErrWorkflowExists = errors.New("workflow already exists for claim")

	// ErrWorkflowNotFound is returned by queries for a claim without a workflow
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrUnsupportedRole is returned when a review is attempted by a non-reviewer role
	ErrUnsupportedRole = errors.New("role cannot review claims")

	// ErrConcurrentUpdate is returned when the workflow moved while a transition was being applied
	ErrConcurrentUpdate = errors.New("workflow was updated concurrently")

	// ErrInvalidClaim is returned when a claim handed to the engine is not persisted
	ErrInvalidClaim = errors.New("invalid claim")
)

// NotFoundMessage is the result message when a review targets an unknown claim
const NotFoundMessage = "Workflow not found"

// ReviewRequest is a coordinator or manager decision on a claim
type ReviewRequest struct {
	ClaimID   int64       `json:"claim_id"`
	ActorID   string      `json:"actor_id"`
	ActorRole entity.Role `json:"actor_role"`
	Approve   bool        `json:"approve"`
	Comments  string      `json:"comments"`
}

// Result is returned for every submission and review. Success is false only
// when the claim or its workflow could not be located.
type Result struct {
	Success      bool               `json:"success"`
	Message      string             `json:"message"`
	NextAction   string             `json:"next_action"`
	NextRole     entity.Role        `json:"next_role,omitempty"`
	NewStatus    entity.ClaimStatus `json:"new_status,omitempty"`
	Stage        domainwf.Stage     `json:"stage,omitempty"`
	ClaimID      int64              `json:"claim_id"`
	WorkflowID   int64              `json:"workflow_id,omitempty"`
	AutoApproved bool               `json:"auto_approved"`
	Violations   []string           `json:"violations,omitempty"`
}

// WorkflowEngine drives claims through the approval workflow
type WorkflowEngine interface {
	// SubmitClaim creates the workflow for a persisted claim, validates it and
	// applies the auto-reject, auto-approve or review outcome.
	SubmitClaim(ctx context.Context, claim *entity.Claim) (*Result, error)

	// ReviewClaim applies a coordinator or manager decision
	ReviewClaim(ctx context.Context, req ReviewRequest) (*Result, error)

	// GetWorkflow returns the workflow of a claim
	GetWorkflow(ctx context.Context, claimID int64) (*entity.ApprovalWorkflow, error)

	// GetHistory returns the ledger of a claim's workflow in chronological order
	GetHistory(ctx context.Context, claimID int64) ([]*entity.WorkflowHistory, error)
}
