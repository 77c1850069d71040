package port

import (
	"context"
	"errors"

	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/domain/workflow"
)

// ErrConflict is returned when a conditional update finds the row already changed
var ErrConflict = errors.New("record was modified concurrently")

// ClaimRepository defines persistence operations for Claim.
// Get methods return (nil, nil) when the claim does not exist.
type ClaimRepository interface {
	Create(ctx context.Context, claim *entity.Claim) error
	GetByID(ctx context.Context, id int64) (*entity.Claim, error)
	// UpdateReview persists status and verification/approval fields only
	UpdateReview(ctx context.Context, claim *entity.Claim) error
	List(ctx context.Context, filter entity.ClaimFilter) ([]*entity.Claim, error)
	// SumAmountForPeriod totals hours*rate for a user's claims in a period,
	// restricted to the given statuses and skipping excludeClaimID.
	SumAmountForPeriod(ctx context.Context, userID string, period entity.Period, statuses []entity.ClaimStatus, excludeClaimID int64) (float64, error)
}

// WorkflowRepository defines persistence operations for ApprovalWorkflow
type WorkflowRepository interface {
	Create(ctx context.Context, wf *entity.ApprovalWorkflow) error
	GetByClaimID(ctx context.Context, claimID int64) (*entity.ApprovalWorkflow, error)
	// UpdateStage writes the workflow only if its stored stage still equals
	// expected, returning ErrConflict otherwise.
	UpdateStage(ctx context.Context, wf *entity.ApprovalWorkflow, expected workflow.Stage) error
}

// HistoryRepository is the append-only workflow ledger
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.WorkflowHistory) error
	ListByWorkflowID(ctx context.Context, workflowID int64) ([]*entity.WorkflowHistory, error)
}

// LecturerRepository defines persistence operations for lecturer profiles
type LecturerRepository interface {
	Upsert(ctx context.Context, lecturer *entity.Lecturer) error
	GetByUserID(ctx context.Context, userID string) (*entity.Lecturer, error)
	GetByUserIDs(ctx context.Context, userIDs []string) (map[string]*entity.Lecturer, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	// AfterCommit runs fn once the outermost transaction carried by ctx
	// commits, or immediately when ctx carries none. fn is dropped on rollback.
	// The context passed to fn carries no transaction.
	AfterCommit(ctx context.Context, fn func(ctx context.Context))
}
