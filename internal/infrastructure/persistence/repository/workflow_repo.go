package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/domain/workflow"
	"github.com/garyjia/claims-workflow/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// WorkflowRepository implements port.WorkflowRepository
type WorkflowRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWorkflowRepository creates a new workflow repository
func NewWorkflowRepository(db *sql.DB, logger *zap.Logger) *WorkflowRepository {
	return &WorkflowRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a workflow. claim_id is unique, so a second workflow for
// the same claim fails.
func (r *WorkflowRepository) Create(ctx context.Context, wf *entity.ApprovalWorkflow) error {
	query := `
		INSERT INTO approval_workflows (
			claim_id, stage, next_approver_role, is_automatically_approved,
			current_approver_id, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		wf.ClaimID,
		string(wf.Stage),
		string(wf.NextApproverRole),
		wf.IsAutomaticallyApproved,
		wf.CurrentApproverID,
		wf.Notes,
		wf.CreatedAt.UTC(),
		wf.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create workflow", zap.Int64("claim_id", wf.ClaimID), zap.Error(err))
		return fmt.Errorf("failed to create workflow: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	wf.ID = id
	return nil
}

// GetByClaimID retrieves the workflow of a claim, returning (nil, nil) when there is none
func (r *WorkflowRepository) GetByClaimID(ctx context.Context, claimID int64) (*entity.ApprovalWorkflow, error) {
	query := `
		SELECT id, claim_id, stage, next_approver_role, is_automatically_approved,
			current_approver_id, notes, created_at, updated_at
		FROM approval_workflows
		WHERE claim_id = ?
	`

	var (
		wf       entity.ApprovalWorkflow
		stage    string
		nextRole string
	)
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, claimID).Scan(
		&wf.ID,
		&wf.ClaimID,
		&stage,
		&nextRole,
		&wf.IsAutomaticallyApproved,
		&wf.CurrentApproverID,
		&wf.Notes,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get workflow", zap.Int64("claim_id", claimID), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	if wf.Stage, err = workflow.ParseStage(stage); err != nil {
		return nil, fmt.Errorf("workflow %d: %w", wf.ID, err)
	}
	wf.NextApproverRole = entity.Role(nextRole)

	return &wf, nil
}

// UpdateStage writes the workflow only while its stored stage equals expected
func (r *WorkflowRepository) UpdateStage(ctx context.Context, wf *entity.ApprovalWorkflow, expected workflow.Stage) error {
	query := `
		UPDATE approval_workflows
		SET stage = ?, next_approver_role = ?, is_automatically_approved = ?,
			current_approver_id = ?, notes = ?, updated_at = ?
		WHERE id = ? AND stage = ?
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		string(wf.Stage),
		string(wf.NextApproverRole),
		wf.IsAutomaticallyApproved,
		wf.CurrentApproverID,
		wf.Notes,
		wf.UpdatedAt.UTC(),
		wf.ID,
		string(expected),
	)
	if err != nil {
		r.logger.Error("Failed to update workflow", zap.Int64("id", wf.ID), zap.Error(err))
		return fmt.Errorf("failed to update workflow: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		r.logger.Warn("Workflow stage changed concurrently",
			zap.Int64("id", wf.ID),
			zap.String("expected_stage", expected.String()))
		return fmt.Errorf("workflow %d no longer at stage %s: %w", wf.ID, expected, port.ErrConflict)
	}

	return nil
}

var _ port.WorkflowRepository = (*WorkflowRepository)(nil)
