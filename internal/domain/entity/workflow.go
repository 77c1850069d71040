package entity

import (
	"time"

	"github.com/garyjia/claims-workflow/internal/domain/workflow"
)

// ApprovalWorkflow tracks where a claim is in the approval lifecycle.
// There is exactly one per claim.
type ApprovalWorkflow struct {
	ID                      int64          `json:"id"`
	ClaimID                 int64          `json:"claim_id"`
	Stage                   workflow.Stage `json:"stage"`
	NextApproverRole        Role           `json:"next_approver_role"`
	IsAutomaticallyApproved bool           `json:"is_automatically_approved"`
	CurrentApproverID       string         `json:"current_approver_id,omitempty"`
	Notes                   string         `json:"notes"`
	CreatedAt               time.Time      `json:"created_at"`
	UpdatedAt               time.Time      `json:"updated_at"`
}
