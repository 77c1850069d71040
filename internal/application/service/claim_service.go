package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/application/workflow"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

var (
	// ErrInvalidInput is returned for requests that fail basic checks
	ErrInvalidInput = errors.New("invalid input")

	// ErrClaimNotFound is returned when a claim does not exist
	ErrClaimNotFound = errors.New("claim not found")

	// ErrLecturerNotFound is returned when a lecturer profile does not exist
	ErrLecturerNotFound = errors.New("lecturer not found")

	// ErrRateUnavailable is returned when no rate was given and the lecturer has none on file
	ErrRateUnavailable = errors.New("hourly rate not provided and no default rate on file")
)

// SubmitClaimRequest is a lecturer's monthly claim. A zero HourlyRate falls
// back to the rate on the lecturer's profile.
type SubmitClaimRequest struct {
	UserID       string  `json:"user_id"`
	HoursWorked  float64 `json:"hours_worked"`
	HourlyRate   float64 `json:"hourly_rate"`
	Notes        string  `json:"notes"`
	DocumentPath string  `json:"document_path"`
}

// SubmitClaimResponse carries the stored claim and the workflow outcome
type SubmitClaimResponse struct {
	Claim  *ClaimView       `json:"claim"`
	Result *workflow.Result `json:"result"`
}

// ClaimView is a claim with its derived total
type ClaimView struct {
	*entity.Claim
	TotalAmount float64 `json:"total_amount"`
}

// ClaimDetail is a claim together with its workflow
type ClaimDetail struct {
	Claim    *ClaimView               `json:"claim"`
	Workflow *entity.ApprovalWorkflow `json:"workflow,omitempty"`
}

// ClaimService handles claim submission, review and lecturer profiles
type ClaimService interface {
	SubmitClaim(ctx context.Context, req SubmitClaimRequest) (*SubmitClaimResponse, error)
	GetClaim(ctx context.Context, id int64) (*ClaimDetail, error)
	ListClaims(ctx context.Context, filter entity.ClaimFilter) ([]*ClaimView, error)
	// ReviewQueue lists the claims waiting on role
	ReviewQueue(ctx context.Context, role entity.Role) ([]*ClaimView, error)
	ReviewClaim(ctx context.Context, req workflow.ReviewRequest) (*workflow.Result, error)
	GetHistory(ctx context.Context, claimID int64) ([]*entity.WorkflowHistory, error)

	UpsertLecturer(ctx context.Context, lecturer *entity.Lecturer) error
	GetLecturer(ctx context.Context, userID string) (*entity.Lecturer, error)
}

type claimServiceImpl struct {
	claimRepo    port.ClaimRepository
	lecturerRepo port.LecturerRepository
	engine       workflow.WorkflowEngine
	inspector    port.DocumentInspector
	txManager    port.TransactionManager
	logger       Logger
	now          func() time.Time
}

// NewClaimService creates a new ClaimService. inspector may be nil, in which
// case document references are stored unchecked.
func NewClaimService(
	claimRepo port.ClaimRepository,
	lecturerRepo port.LecturerRepository,
	engine workflow.WorkflowEngine,
	inspector port.DocumentInspector,
	txManager port.TransactionManager,
	logger Logger,
) ClaimService {
	return &claimServiceImpl{
		claimRepo:    claimRepo,
		lecturerRepo: lecturerRepo,
		engine:       engine,
		inspector:    inspector,
		txManager:    txManager,
		logger:       logger,
		now:          time.Now,
	}
}

// SubmitClaim stores a new claim and runs it through the submission step
func (s *claimServiceImpl) SubmitClaim(ctx context.Context, req SubmitClaimRequest) (*SubmitClaimResponse, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.DocumentPath = strings.TrimSpace(req.DocumentPath)
	req.Notes = utils.SanitizeText(req.Notes)

	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(req.Notes); n > entity.MaxNotesLength {
		return nil, fmt.Errorf("%w: notes are %d characters, maximum is %d", ErrInvalidInput, n, entity.MaxNotesLength)
	}
	if req.HourlyRate < 0 {
		return nil, fmt.Errorf("%w: hourly rate cannot be negative", ErrInvalidInput)
	}

	rate := req.HourlyRate
	if rate == 0 {
		lecturer, err := s.lecturerRepo.GetByUserID(ctx, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("get lecturer: %w", err)
		}
		if lecturer == nil || lecturer.HourlyRate <= 0 {
			return nil, fmt.Errorf("%w: user %s", ErrRateUnavailable, req.UserID)
		}
		rate = lecturer.HourlyRate
	}

	if req.DocumentPath != "" && s.inspector != nil {
		if _, err := s.inspector.Inspect(ctx, req.DocumentPath); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}

	now := s.now().UTC()
	period := entity.PeriodOf(now)
	claim := &entity.Claim{
		UserID:       req.UserID,
		HoursWorked:  req.HoursWorked,
		HourlyRate:   rate,
		Notes:        req.Notes,
		DocumentPath: req.DocumentPath,
		Status:       entity.ClaimStatusPending,
		SubmittedAt:  now,
		ClaimMonth:   period.Month,
		ClaimYear:    period.Year,
	}

	var result *workflow.Result
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.claimRepo.Create(txCtx, claim); err != nil {
			return fmt.Errorf("create claim: %w", err)
		}

		var err error
		result, err = s.engine.SubmitClaim(txCtx, claim)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to submit claim", "user_id", req.UserID, "error", err)
		return nil, err
	}

	s.logger.Info("Claim submitted",
		"claim_id", claim.ID,
		"user_id", claim.UserID,
		"status", claim.Status,
		"total_amount", claim.TotalAmount(),
	)

	return &SubmitClaimResponse{Claim: viewOf(claim), Result: result}, nil
}

// GetClaim returns a claim with its workflow
func (s *claimServiceImpl) GetClaim(ctx context.Context, id int64) (*ClaimDetail, error) {
	claim, err := s.claimRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}
	if claim == nil {
		return nil, fmt.Errorf("%w: %d", ErrClaimNotFound, id)
	}

	detail := &ClaimDetail{Claim: viewOf(claim)}
	wf, err := s.engine.GetWorkflow(ctx, id)
	switch {
	case err == nil:
		detail.Workflow = wf
	case errors.Is(err, workflow.ErrWorkflowNotFound):
		// The next review recreates it
	default:
		return nil, err
	}

	return detail, nil
}

// ListClaims returns claims matching the filter
func (s *claimServiceImpl) ListClaims(ctx context.Context, filter entity.ClaimFilter) ([]*ClaimView, error) {
	if filter.Month < 0 || filter.Month > 12 {
		return nil, fmt.Errorf("%w: month must be between 1 and 12", ErrInvalidInput)
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, fmt.Errorf("%w: limit and offset cannot be negative", ErrInvalidInput)
	}
	for _, st := range filter.Statuses {
		if !st.IsValid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, st)
		}
	}

	claims, err := s.claimRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	return viewsOf(claims), nil
}

// ReviewQueue lists Pending claims for coordinators and Verified claims for managers
func (s *claimServiceImpl) ReviewQueue(ctx context.Context, role entity.Role) ([]*ClaimView, error) {
	var status entity.ClaimStatus
	switch role {
	case entity.RoleCoordinator:
		status = entity.ClaimStatusPending
	case entity.RoleManager:
		status = entity.ClaimStatusVerified
	default:
		return nil, fmt.Errorf("%w: %s", workflow.ErrUnsupportedRole, role)
	}

	claims, err := s.claimRepo.List(ctx, entity.ClaimFilter{Statuses: []entity.ClaimStatus{status}})
	if err != nil {
		return nil, fmt.Errorf("list review queue: %w", err)
	}
	return viewsOf(claims), nil
}

// ReviewClaim forwards a reviewer decision to the workflow engine
func (s *claimServiceImpl) ReviewClaim(ctx context.Context, req workflow.ReviewRequest) (*workflow.Result, error) {
	req.ActorID = strings.TrimSpace(req.ActorID)
	req.Comments = utils.SanitizeText(req.Comments)
	if req.ActorID == "" {
		return nil, fmt.Errorf("%w: actor id is required", ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(req.Comments); n > entity.MaxNotesLength {
		return nil, fmt.Errorf("%w: comments are %d characters, maximum is %d", ErrInvalidInput, n, entity.MaxNotesLength)
	}

	return s.engine.ReviewClaim(ctx, req)
}

// GetHistory returns the workflow ledger of a claim
func (s *claimServiceImpl) GetHistory(ctx context.Context, claimID int64) ([]*entity.WorkflowHistory, error) {
	return s.engine.GetHistory(ctx, claimID)
}

// UpsertLecturer creates or replaces a lecturer profile
func (s *claimServiceImpl) UpsertLecturer(ctx context.Context, lecturer *entity.Lecturer) error {
	if lecturer == nil || strings.TrimSpace(lecturer.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if lecturer.HourlyRate < 0 {
		return fmt.Errorf("%w: hourly rate cannot be negative", ErrInvalidInput)
	}
	lecturer.UserID = strings.TrimSpace(lecturer.UserID)
	lecturer.Email = strings.TrimSpace(lecturer.Email)
	if lecturer.Email != "" {
		if err := utils.ValidateEmail(lecturer.Email); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}

	if err := s.lecturerRepo.Upsert(ctx, lecturer); err != nil {
		s.logger.Error("Failed to save lecturer", "user_id", lecturer.UserID, "error", err)
		return fmt.Errorf("save lecturer: %w", err)
	}

	s.logger.Info("Lecturer saved", "user_id", lecturer.UserID)
	return nil
}

// GetLecturer returns a lecturer profile
func (s *claimServiceImpl) GetLecturer(ctx context.Context, userID string) (*entity.Lecturer, error) {
	lecturer, err := s.lecturerRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get lecturer: %w", err)
	}
	if lecturer == nil {
		return nil, fmt.Errorf("%w: %s", ErrLecturerNotFound, userID)
	}
	return lecturer, nil
}

func viewOf(c *entity.Claim) *ClaimView {
	return &ClaimView{Claim: c, TotalAmount: c.TotalAmount()}
}

func viewsOf(claims []*entity.Claim) []*ClaimView {
	views := make([]*ClaimView, 0, len(claims))
	for _, c := range claims {
		views = append(views, viewOf(c))
	}
	return views
}
