package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/domain/workflow"
	"github.com/garyjia/claims-workflow/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// HistoryRepository implements port.HistoryRepository. Rows are never
// updated; a trigger in the schema enforces it.
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a history record
func (r *HistoryRepository) Create(ctx context.Context, history *entity.WorkflowHistory) error {
	query := `
		INSERT INTO workflow_history (
			workflow_id, action, performed_by, performed_by_role,
			action_date, notes, previous_stage, new_stage
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		history.WorkflowID,
		string(history.Action),
		history.PerformedBy,
		string(history.PerformedByRole),
		history.ActionDate.UTC(),
		history.Notes,
		string(history.PreviousStage),
		string(history.NewStage),
	)
	if err != nil {
		r.logger.Error("Failed to create history record",
			zap.Int64("workflow_id", history.WorkflowID),
			zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	history.ID = id
	return nil
}

// ListByWorkflowID returns a workflow's history in chronological order
func (r *HistoryRepository) ListByWorkflowID(ctx context.Context, workflowID int64) ([]*entity.WorkflowHistory, error) {
	query := `
		SELECT id, workflow_id, action, performed_by, performed_by_role,
			action_date, notes, previous_stage, new_stage
		FROM workflow_history
		WHERE workflow_id = ?
		ORDER BY action_date ASC, id ASC
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, workflowID)
	if err != nil {
		r.logger.Error("Failed to get history", zap.Int64("workflow_id", workflowID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []*entity.WorkflowHistory
	for rows.Next() {
		var (
			h                  entity.WorkflowHistory
			action, role       string
			previous, newStage string
		)
		if err := rows.Scan(
			&h.ID,
			&h.WorkflowID,
			&action,
			&h.PerformedBy,
			&role,
			&h.ActionDate,
			&h.Notes,
			&previous,
			&newStage,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}

		h.Action = entity.HistoryAction(action)
		h.PerformedByRole = entity.Role(role)
		if h.PreviousStage, err = workflow.ParseStage(previous); err != nil {
			return nil, fmt.Errorf("history %d: %w", h.ID, err)
		}
		if h.NewStage, err = workflow.ParseStage(newStage); err != nil {
			return nil, fmt.Errorf("history %d: %w", h.ID, err)
		}

		records = append(records, &h)
	}

	return records, rows.Err()
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
