package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/application/workflow"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/claims-workflow/internal/domain/workflow"
)

var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

type claimFixture struct {
	svc       *claimServiceImpl
	claims    *mockClaimRepo
	lecturers *mockLecturerRepo
	engine    *mockEngine
	inspector *mockInspector
	tx        *mockTxManager
	logger    *mockLogger
}

func newClaimFixture(claims ...*entity.Claim) *claimFixture {
	f := &claimFixture{
		claims: newMockClaimRepo(claims...),
		lecturers: newMockLecturerRepo(&entity.Lecturer{
			UserID: "lect-1", FullName: "Thandi Nkosi", HourlyRate: 250,
		}),
		engine:    &mockEngine{workflows: map[int64]*entity.ApprovalWorkflow{}},
		inspector: &mockInspector{},
		tx:        &mockTxManager{},
		logger:    &mockLogger{},
	}
	svc := NewClaimService(f.claims, f.lecturers, f.engine, f.inspector, f.tx, f.logger).(*claimServiceImpl)
	svc.now = func() time.Time { return fixedNow }
	f.svc = svc
	return f
}

func TestSubmitClaim_PersistsAndRunsWorkflowInOneTransaction(t *testing.T) {
	f := newClaimFixture()

	var engineInTx bool
	f.engine.submitFunc = func(ctx context.Context, claim *entity.Claim) (*workflow.Result, error) {
		engineInTx = inTx(ctx)
		if claim.ID == 0 {
			t.Error("claim must be persisted before the engine sees it")
		}
		claim.Status = entity.ClaimStatusPending
		return &workflow.Result{Success: true, Message: "Claim submitted for review", ClaimID: claim.ID, Stage: domainwf.StageUnderReview}, nil
	}

	resp, err := f.svc.SubmitClaim(context.Background(), SubmitClaimRequest{
		UserID:       " lect-1 ",
		HoursWorked:  40,
		HourlyRate:   200,
		Notes:        " October lectures\x00 ",
		DocumentPath: "lect-1/timesheet.pdf",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.tx.calls != 1 || !engineInTx {
		t.Errorf("expected engine to run inside the submission transaction (calls=%d, inTx=%v)", f.tx.calls, engineInTx)
	}

	c := resp.Claim
	if c.UserID != "lect-1" {
		t.Errorf("user id not trimmed: %q", c.UserID)
	}
	if c.Notes != "October lectures" {
		t.Errorf("notes not sanitized: %q", c.Notes)
	}
	if c.TotalAmount != 8000 {
		t.Errorf("expected total 8000, got %v", c.TotalAmount)
	}
	if !c.SubmittedAt.Equal(fixedNow) || c.ClaimMonth != 10 || c.ClaimYear != 2026 {
		t.Errorf("unexpected stamps: %v %d/%d", c.SubmittedAt, c.ClaimMonth, c.ClaimYear)
	}
	if resp.Result.Stage != domainwf.StageUnderReview {
		t.Errorf("unexpected result: %+v", resp.Result)
	}
	if len(f.inspector.paths) != 1 || f.inspector.paths[0] != "lect-1/timesheet.pdf" {
		t.Errorf("expected document to be inspected, got %v", f.inspector.paths)
	}
}

func TestSubmitClaim_DefaultsRateFromProfile(t *testing.T) {
	f := newClaimFixture()

	resp, err := f.svc.SubmitClaim(context.Background(), SubmitClaimRequest{UserID: "lect-1", HoursWorked: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Claim.HourlyRate != 250 {
		t.Errorf("expected profile rate 250, got %v", resp.Claim.HourlyRate)
	}
	if len(f.inspector.paths) != 0 {
		t.Error("no document reference means no inspection")
	}
}

func TestSubmitClaim_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		req     SubmitClaimRequest
		wantErr error
	}{
		{"missing user", SubmitClaimRequest{HoursWorked: 10, HourlyRate: 200}, ErrInvalidInput},
		{"notes too long", SubmitClaimRequest{UserID: "lect-1", HoursWorked: 10, HourlyRate: 200, Notes: strings.Repeat("é", 501)}, ErrInvalidInput},
		{"negative rate", SubmitClaimRequest{UserID: "lect-1", HoursWorked: 10, HourlyRate: -1}, ErrInvalidInput},
		{"no rate and no profile", SubmitClaimRequest{UserID: "lect-9", HoursWorked: 10}, ErrRateUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newClaimFixture()
			_, err := f.svc.SubmitClaim(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if f.tx.calls != 0 || len(f.claims.claims) != 0 {
				t.Error("nothing should be written for rejected input")
			}
		})
	}
}

func TestSubmitClaim_NotesLimitCountsCharacters(t *testing.T) {
	f := newClaimFixture()

	// 500 multi-byte characters are more than 500 bytes but still allowed
	_, err := f.svc.SubmitClaim(context.Background(), SubmitClaimRequest{
		UserID: "lect-1", HoursWorked: 10, HourlyRate: 200, Notes: strings.Repeat("é", 500),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSubmitClaim_InvalidDocument(t *testing.T) {
	f := newClaimFixture()
	f.inspector.err = port.ErrInvalidDocument

	_, err := f.svc.SubmitClaim(context.Background(), SubmitClaimRequest{
		UserID: "lect-1", HoursWorked: 10, HourlyRate: 200, DocumentPath: "../etc/passwd",
	})
	if !errors.Is(err, ErrInvalidInput) || !errors.Is(err, port.ErrInvalidDocument) {
		t.Errorf("expected invalid input wrapping invalid document, got %v", err)
	}
	if f.engine.submitCalls != 0 {
		t.Error("engine should not run for an invalid document")
	}
}

func TestSubmitClaim_EngineFailureRollsBack(t *testing.T) {
	f := newClaimFixture()
	errBoom := errors.New("disk full")
	f.engine.submitFunc = func(ctx context.Context, claim *entity.Claim) (*workflow.Result, error) {
		return nil, errBoom
	}

	resp, err := f.svc.SubmitClaim(context.Background(), SubmitClaimRequest{UserID: "lect-1", HoursWorked: 10, HourlyRate: 200})
	if !errors.Is(err, errBoom) || resp != nil {
		t.Fatalf("expected engine error, got %v", err)
	}
	if f.tx.rolledBack != 1 {
		t.Error("expected transaction rollback")
	}
	if len(f.logger.errors) == 0 {
		t.Error("expected failure to be logged")
	}
}

func TestGetClaim(t *testing.T) {
	claim := &entity.Claim{ID: 7, UserID: "lect-1", HoursWorked: 10, HourlyRate: 150, Status: entity.ClaimStatusPending}
	f := newClaimFixture(claim)

	detail, err := f.svc.GetClaim(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.Workflow != nil || detail.Claim.TotalAmount != 1500 {
		t.Errorf("unexpected detail: %+v", detail)
	}

	f.engine.workflows[7] = &entity.ApprovalWorkflow{ID: 3, ClaimID: 7, Stage: domainwf.StageUnderReview}
	detail, err = f.svc.GetClaim(context.Background(), 7)
	if err != nil || detail.Workflow == nil || detail.Workflow.ID != 3 {
		t.Errorf("expected workflow, got %+v, %v", detail, err)
	}

	if _, err := f.svc.GetClaim(context.Background(), 99); !errors.Is(err, ErrClaimNotFound) {
		t.Errorf("expected ErrClaimNotFound, got %v", err)
	}
}

func TestListClaims_ValidatesFilter(t *testing.T) {
	f := newClaimFixture()
	ctx := context.Background()

	bad := []entity.ClaimFilter{
		{Month: 13},
		{Limit: -1},
		{Statuses: []entity.ClaimStatus{"Archived"}},
	}
	for _, filter := range bad {
		if _, err := f.svc.ListClaims(ctx, filter); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("filter %+v: expected ErrInvalidInput, got %v", filter, err)
		}
	}

	filter := entity.ClaimFilter{UserID: "lect-1", Month: 10, Year: 2026}
	if _, err := f.svc.ListClaims(ctx, filter); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.claims.lastFilter.UserID != "lect-1" || f.claims.lastFilter.Month != 10 {
		t.Errorf("filter not passed through: %+v", f.claims.lastFilter)
	}
}

func TestReviewQueue(t *testing.T) {
	tests := []struct {
		role       entity.Role
		wantStatus entity.ClaimStatus
		wantErr    error
	}{
		{entity.RoleCoordinator, entity.ClaimStatusPending, nil},
		{entity.RoleManager, entity.ClaimStatusVerified, nil},
		{entity.RoleLecturer, "", workflow.ErrUnsupportedRole},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			f := newClaimFixture()
			_, err := f.svc.ReviewQueue(context.Background(), tt.role)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := f.claims.lastFilter.Statuses
			if len(got) != 1 || got[0] != tt.wantStatus {
				t.Errorf("expected queue of %s claims, got %v", tt.wantStatus, got)
			}
		})
	}
}

func TestReviewClaim(t *testing.T) {
	f := newClaimFixture()
	ctx := context.Background()

	if _, err := f.svc.ReviewClaim(ctx, workflow.ReviewRequest{ClaimID: 1, ActorRole: entity.RoleCoordinator, Approve: true}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected missing actor to be rejected, got %v", err)
	}
	if _, err := f.svc.ReviewClaim(ctx, workflow.ReviewRequest{ClaimID: 1, ActorID: "coord-1", ActorRole: entity.RoleCoordinator, Comments: strings.Repeat("x", 501)}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected long comments to be rejected, got %v", err)
	}
	if f.engine.reviewCalls != 0 {
		t.Fatal("engine should not be called for invalid reviews")
	}

	var got workflow.ReviewRequest
	f.engine.reviewFunc = func(ctx context.Context, req workflow.ReviewRequest) (*workflow.Result, error) {
		got = req
		return &workflow.Result{Success: true, ClaimID: req.ClaimID, Stage: domainwf.StageVerified}, nil
	}
	result, err := f.svc.ReviewClaim(ctx, workflow.ReviewRequest{ClaimID: 4, ActorID: " coord-1 ", ActorRole: entity.RoleCoordinator, Approve: true, Comments: "ok"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ActorID != "coord-1" || got.ClaimID != 4 || !got.Approve || result.Stage != domainwf.StageVerified {
		t.Errorf("unexpected pass-through: %+v -> %+v", got, result)
	}
}

func TestLecturerProfiles(t *testing.T) {
	f := newClaimFixture()
	ctx := context.Background()

	if err := f.svc.UpsertLecturer(ctx, &entity.Lecturer{FullName: "No Id"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if err := f.svc.UpsertLecturer(ctx, &entity.Lecturer{UserID: "lect-2", HourlyRate: -5}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	if err := f.svc.UpsertLecturer(ctx, &entity.Lecturer{UserID: "lect-2", Email: "pieter-at-campus"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for bad email, got %v", err)
	}

	if err := f.svc.UpsertLecturer(ctx, &entity.Lecturer{UserID: "lect-2", FullName: "Pieter Botha", Email: " pieter@campus.ac.za ", HourlyRate: 300}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l, err := f.svc.GetLecturer(ctx, "lect-2")
	if err != nil || l.FullName != "Pieter Botha" {
		t.Errorf("unexpected lecturer: %+v, %v", l, err)
	}

	if _, err := f.svc.GetLecturer(ctx, "nobody"); !errors.Is(err, ErrLecturerNotFound) {
		t.Errorf("expected ErrLecturerNotFound, got %v", err)
	}
}
