package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/claims-workflow/internal/application/dispatcher"
	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/application/validation"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/domain/event"
	domainwf "github.com/garyjia/claims-workflow/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type engineImpl struct {
	claimRepo    port.ClaimRepository
	workflowRepo port.WorkflowRepository
	historyRepo  port.HistoryRepository
	validator    validation.Validator
	txManager    port.TransactionManager
	dispatcher   dispatcher.Dispatcher
	logger       Logger
	now          func() time.Time
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithLogger sets a logger for the engine
func WithLogger(logger Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = logger
	}
}

// WithClock overrides the time source used for stamps
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	claimRepo port.ClaimRepository,
	workflowRepo port.WorkflowRepository,
	historyRepo port.HistoryRepository,
	validator validation.Validator,
	txManager port.TransactionManager,
	opts ...EngineOption,
) WorkflowEngine {
	e := &engineImpl{
		claimRepo:    claimRepo,
		workflowRepo: workflowRepo,
		historyRepo:  historyRepo,
		validator:    validator,
		txManager:    txManager,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

type actor struct {
	id   string
	role entity.Role
}

// transition captures a committed change for result building and events
type transition struct {
	claim    *entity.Claim
	workflow *entity.ApprovalWorkflow
	previous domainwf.Stage
	trigger  domainwf.Trigger
	actor    actor
}

func (e *engineImpl) SubmitClaim(ctx context.Context, claim *entity.Claim) (*Result, error) {
	if claim == nil || claim.ID == 0 {
		return nil, fmt.Errorf("%w: claim must be persisted before submission", ErrInvalidClaim)
	}

	var (
		applied    *transition
		violations []string
	)

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := e.workflowRepo.GetByClaimID(txCtx, claim.ID)
		if err != nil {
			return fmt.Errorf("failed to look up workflow: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("%w: claim %d", ErrWorkflowExists, claim.ID)
		}

		verdict, err := e.validator.Validate(txCtx, claim)
		if err != nil {
			return fmt.Errorf("failed to validate claim: %w", err)
		}

		now := e.now()
		wf := &entity.ApprovalWorkflow{
			ClaimID:          claim.ID,
			Stage:            domainwf.StageSubmitted,
			NextApproverRole: entity.RoleNone,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := e.workflowRepo.Create(txCtx, wf); err != nil {
			return fmt.Errorf("failed to create workflow: %w", err)
		}

		var (
			trigger domainwf.Trigger
			detail  string
		)
		switch {
		case !verdict.IsValid:
			violations = verdict.Errors()
			trigger, detail = domainwf.TriggerAutoReject, strings.Join(violations, ", ")
		case verdict.CanAutoApprove:
			trigger, detail = domainwf.TriggerAutoApprove, "Claim under threshold"
		default:
			trigger = domainwf.TriggerRequestReview
		}

		applied, err = e.apply(txCtx, claim, wf, trigger, actor{id: claim.UserID, role: entity.RoleLecturer}, detail)
		return err
	})
	if err != nil {
		e.logError("Claim submission failed", "claim_id", claim.ID, "error", err)
		return nil, err
	}

	e.logInfo("Claim submitted",
		"claim_id", claim.ID,
		"stage", applied.workflow.Stage,
		"auto_approved", applied.workflow.IsAutomaticallyApproved,
	)
	e.txManager.AfterCommit(ctx, func(ctx context.Context) { e.emit(ctx, applied) })

	result := e.buildResult(applied)
	result.Violations = violations
	return result, nil
}

func (e *engineImpl) ReviewClaim(ctx context.Context, req ReviewRequest) (*Result, error) {
	trigger, ok := reviewTrigger(req.ActorRole, req.Approve)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRole, req.ActorRole)
	}

	var (
		applied  *transition
		notFound bool
	)
	who := actor{id: req.ActorID, role: req.ActorRole}

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		claim, err := e.claimRepo.GetByID(txCtx, req.ClaimID)
		if err != nil {
			return fmt.Errorf("failed to load claim: %w", err)
		}
		if claim == nil {
			notFound = true
			return nil
		}

		wf, err := e.workflowRepo.GetByClaimID(txCtx, claim.ID)
		if err != nil {
			return fmt.Errorf("failed to look up workflow: %w", err)
		}
		if wf == nil {
			if wf, err = e.recreateWorkflow(txCtx, claim); err != nil {
				return err
			}
		}

		if wf.Stage.IsTerminal() {
			return fmt.Errorf("%w: claim %d is already %s", domainwf.ErrTerminalStage, claim.ID, wf.Stage)
		}

		applied, err = e.apply(txCtx, claim, wf, trigger, who, req.Comments)
		return err
	})
	if err != nil {
		e.logError("Claim review failed",
			"claim_id", req.ClaimID,
			"actor_id", req.ActorID,
			"actor_role", req.ActorRole,
			"error", err,
		)
		return nil, err
	}

	if notFound {
		return &Result{Success: false, Message: NotFoundMessage, ClaimID: req.ClaimID}, nil
	}

	e.logInfo("Claim reviewed",
		"claim_id", req.ClaimID,
		"actor_id", req.ActorID,
		"actor_role", req.ActorRole,
		"previous_stage", applied.previous,
		"new_stage", applied.workflow.Stage,
	)
	e.txManager.AfterCommit(ctx, func(ctx context.Context) { e.emit(ctx, applied) })

	return e.buildResult(applied), nil
}

func (e *engineImpl) GetWorkflow(ctx context.Context, claimID int64) (*entity.ApprovalWorkflow, error) {
	wf, err := e.workflowRepo.GetByClaimID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up workflow: %w", err)
	}
	if wf == nil {
		return nil, fmt.Errorf("%w: claim %d", ErrWorkflowNotFound, claimID)
	}
	return wf, nil
}

func (e *engineImpl) GetHistory(ctx context.Context, claimID int64) ([]*entity.WorkflowHistory, error) {
	wf, err := e.GetWorkflow(ctx, claimID)
	if err != nil {
		return nil, err
	}

	history, err := e.historyRepo.ListByWorkflowID(ctx, wf.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return history, nil
}

// recreateWorkflow backfills a workflow for a claim that lost or never had one
func (e *engineImpl) recreateWorkflow(ctx context.Context, claim *entity.Claim) (*entity.ApprovalWorkflow, error) {
	stage, nextRole := stageForStatus(claim.Status)
	now := e.now()

	wf := &entity.ApprovalWorkflow{
		ClaimID:          claim.ID,
		Stage:            stage,
		NextApproverRole: nextRole,
		Notes:            "Workflow created for existing claim",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := e.workflowRepo.Create(ctx, wf); err != nil {
		return nil, fmt.Errorf("failed to create missing workflow: %w", err)
	}

	if err := e.historyRepo.Create(ctx, &entity.WorkflowHistory{
		WorkflowID:      wf.ID,
		Action:          entity.ActionCreated,
		PerformedBy:     entity.SystemActor,
		PerformedByRole: entity.RoleSystem,
		ActionDate:      now,
		Notes:           wf.Notes,
		PreviousStage:   stage,
		NewStage:        stage,
	}); err != nil {
		return nil, fmt.Errorf("failed to create history record: %w", err)
	}

	e.logInfo("Recreated missing workflow", "claim_id", claim.ID, "stage", stage)
	return wf, nil
}

// apply fires the trigger and persists claim, workflow and ledger entry.
// Must run inside a transaction.
func (e *engineImpl) apply(
	ctx context.Context,
	claim *entity.Claim,
	wf *entity.ApprovalWorkflow,
	trigger domainwf.Trigger,
	who actor,
	detail string,
) (*transition, error) {
	out, ok := outcomes[trigger]
	if !ok {
		return nil, fmt.Errorf("%w: no outcome for trigger %s", domainwf.ErrInvalidTransition, trigger)
	}

	machine := BuildClaimStateMachine(wf.Stage)
	previous := machine.Stage()
	if err := machine.Fire(trigger); err != nil {
		return nil, err
	}

	now := e.now()

	claim.Status = out.status
	switch out.stamp {
	case stampVerified:
		claim.VerifiedBy = who.id
		claim.VerifiedAt = &now
	case stampApproved:
		claim.ApprovedAt = &now
		if who.role.IsReviewer() {
			claim.ApprovedBy = who.id
		}
	}

	wf.Stage = machine.Stage()
	wf.NextApproverRole = out.nextRole
	wf.Notes = out.workflowNotes(detail)
	wf.UpdatedAt = now
	if trigger == domainwf.TriggerAutoApprove {
		wf.IsAutomaticallyApproved = true
	}
	if who.role.IsReviewer() {
		wf.CurrentApproverID = who.id
	}

	if err := e.claimRepo.UpdateReview(ctx, claim); err != nil {
		return nil, fmt.Errorf("failed to update claim: %w", err)
	}

	if err := e.workflowRepo.UpdateStage(ctx, wf, previous); err != nil {
		if errors.Is(err, port.ErrConflict) {
			return nil, fmt.Errorf("%w: claim %d left stage %s: %w", ErrConcurrentUpdate, claim.ID, previous, err)
		}
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	if err := e.historyRepo.Create(ctx, &entity.WorkflowHistory{
		WorkflowID:      wf.ID,
		Action:          out.action,
		PerformedBy:     who.id,
		PerformedByRole: who.role,
		ActionDate:      now,
		Notes:           out.ledgerNote(detail),
		PreviousStage:   previous,
		NewStage:        wf.Stage,
	}); err != nil {
		return nil, fmt.Errorf("failed to create history record: %w", err)
	}

	return &transition{
		claim:    claim,
		workflow: wf,
		previous: previous,
		trigger:  trigger,
		actor:    who,
	}, nil
}

func (e *engineImpl) buildResult(t *transition) *Result {
	out := outcomes[t.trigger]
	return &Result{
		Success:      true,
		Message:      out.message,
		NextAction:   out.nextAction,
		NextRole:     t.workflow.NextApproverRole,
		NewStatus:    t.claim.Status,
		Stage:        t.workflow.Stage,
		ClaimID:      t.claim.ID,
		WorkflowID:   t.workflow.ID,
		AutoApproved: t.workflow.IsAutomaticallyApproved,
	}
}

// emit publishes events for a committed transition; handlers never affect it
func (e *engineImpl) emit(ctx context.Context, t *transition) {
	if e.dispatcher == nil {
		return
	}

	payload := map[string]interface{}{
		event.KeyPreviousStage: t.previous.String(),
		event.KeyNewStage:      t.workflow.Stage.String(),
		event.KeyNextRole:      t.workflow.NextApproverRole.String(),
		event.KeyClaimStatus:   t.claim.Status.String(),
		event.KeyActorID:       t.actor.id,
		event.KeyActorRole:     t.actor.role.String(),
		event.KeyUserID:        t.claim.UserID,
		event.KeyTotalAmount:   t.claim.TotalAmount(),
		event.KeyAutoApproved:  t.workflow.IsAutomaticallyApproved,
	}

	changed := event.NewEvent(event.TypeStageChanged, t.claim.ID, t.workflow.ID, payload)
	e.dispatcher.DispatchAsync(ctx, changed)

	if t.workflow.Stage.IsTerminal() {
		finalized := event.NewEventWithCorrelation(event.TypeClaimFinalized, t.claim.ID, t.workflow.ID, payload, changed.CorrelationID)
		e.dispatcher.DispatchAsync(ctx, finalized)
	}
}

func (e *engineImpl) logInfo(msg string, kv ...interface{}) {
	if e.logger != nil {
		e.logger.Info(msg, kv...)
	}
}

func (e *engineImpl) logError(msg string, kv ...interface{}) {
	if e.logger != nil {
		e.logger.Error(msg, kv...)
	}
}
