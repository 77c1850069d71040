package entity

import (
	"time"

	"github.com/garyjia/claims-workflow/internal/domain/workflow"
)

// WorkflowHistory is an immutable record of one workflow transition
type WorkflowHistory struct {
	ID              int64          `json:"id"`
	WorkflowID      int64          `json:"workflow_id"`
	Action          HistoryAction  `json:"action"`
	PerformedBy     string         `json:"performed_by"`
	PerformedByRole Role           `json:"performed_by_role"`
	ActionDate      time.Time      `json:"action_date"`
	Notes           string         `json:"notes"`
	PreviousStage   workflow.Stage `json:"previous_stage"`
	NewStage        workflow.Stage `json:"new_stage"`
}
