package service

import (
	"context"
	"sync"

	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/application/workflow"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
)

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

type mockClaimRepo struct {
	claims     map[int64]*entity.Claim
	nextID     int64
	createErr  error
	listFunc   func(ctx context.Context, filter entity.ClaimFilter) ([]*entity.Claim, error)
	lastFilter entity.ClaimFilter
}

func newMockClaimRepo(claims ...*entity.Claim) *mockClaimRepo {
	m := &mockClaimRepo{claims: make(map[int64]*entity.Claim)}
	for _, c := range claims {
		m.claims[c.ID] = c
		if c.ID > m.nextID {
			m.nextID = c.ID
		}
	}
	return m
}

func (m *mockClaimRepo) Create(ctx context.Context, claim *entity.Claim) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	claim.ID = m.nextID
	m.claims[claim.ID] = claim
	return nil
}

func (m *mockClaimRepo) GetByID(ctx context.Context, id int64) (*entity.Claim, error) {
	return m.claims[id], nil
}

func (m *mockClaimRepo) UpdateReview(ctx context.Context, claim *entity.Claim) error {
	m.claims[claim.ID] = claim
	return nil
}

func (m *mockClaimRepo) List(ctx context.Context, filter entity.ClaimFilter) ([]*entity.Claim, error) {
	m.lastFilter = filter
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	var out []*entity.Claim
	for id := m.nextID; id > 0; id-- {
		if c, ok := m.claims[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockClaimRepo) SumAmountForPeriod(ctx context.Context, userID string, period entity.Period, statuses []entity.ClaimStatus, excludeClaimID int64) (float64, error) {
	return 0, nil
}

type mockLecturerRepo struct {
	lecturers map[string]*entity.Lecturer
	err       error
}

func newMockLecturerRepo(lecturers ...*entity.Lecturer) *mockLecturerRepo {
	m := &mockLecturerRepo{lecturers: make(map[string]*entity.Lecturer)}
	for _, l := range lecturers {
		m.lecturers[l.UserID] = l
	}
	return m
}

func (m *mockLecturerRepo) Upsert(ctx context.Context, lecturer *entity.Lecturer) error {
	if m.err != nil {
		return m.err
	}
	m.lecturers[lecturer.UserID] = lecturer
	return nil
}

func (m *mockLecturerRepo) GetByUserID(ctx context.Context, userID string) (*entity.Lecturer, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.lecturers[userID], nil
}

func (m *mockLecturerRepo) GetByUserIDs(ctx context.Context, userIDs []string) (map[string]*entity.Lecturer, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]*entity.Lecturer)
	for _, id := range userIDs {
		if l, ok := m.lecturers[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

type mockEngine struct {
	submitFunc  func(ctx context.Context, claim *entity.Claim) (*workflow.Result, error)
	reviewFunc  func(ctx context.Context, req workflow.ReviewRequest) (*workflow.Result, error)
	workflows   map[int64]*entity.ApprovalWorkflow
	history     []*entity.WorkflowHistory
	submitCalls int
	reviewCalls int
}

func (m *mockEngine) SubmitClaim(ctx context.Context, claim *entity.Claim) (*workflow.Result, error) {
	m.submitCalls++
	if m.submitFunc != nil {
		return m.submitFunc(ctx, claim)
	}
	return &workflow.Result{Success: true, ClaimID: claim.ID, NewStatus: claim.Status}, nil
}

func (m *mockEngine) ReviewClaim(ctx context.Context, req workflow.ReviewRequest) (*workflow.Result, error) {
	m.reviewCalls++
	if m.reviewFunc != nil {
		return m.reviewFunc(ctx, req)
	}
	return &workflow.Result{Success: true, ClaimID: req.ClaimID}, nil
}

func (m *mockEngine) GetWorkflow(ctx context.Context, claimID int64) (*entity.ApprovalWorkflow, error) {
	if wf, ok := m.workflows[claimID]; ok {
		return wf, nil
	}
	return nil, workflow.ErrWorkflowNotFound
}

func (m *mockEngine) GetHistory(ctx context.Context, claimID int64) ([]*entity.WorkflowHistory, error) {
	return m.history, nil
}

type mockInspector struct {
	err   error
	paths []string
}

func (m *mockInspector) Inspect(ctx context.Context, path string) (*port.DocumentInfo, error) {
	m.paths = append(m.paths, path)
	if m.err != nil {
		return nil, m.err
	}
	return &port.DocumentInfo{Path: path, Kind: "pdf", PageCount: 1}, nil
}

type txKey struct{}

// mockTxManager marks the context so tests can check work ran inside a transaction
type mockTxManager struct {
	calls      int
	rolledBack int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.rolledBack++
		return err
	}
	return nil
}

func (m *mockTxManager) AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	fn(ctx)
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

type mockRenderer struct {
	report  *entity.ClaimsReport
	invoice *entity.Invoice
	err     error
}

func (m *mockRenderer) RenderClaimsReport(report *entity.ClaimsReport) ([]byte, error) {
	m.report = report
	return []byte("report"), m.err
}

func (m *mockRenderer) RenderInvoice(invoice *entity.Invoice) ([]byte, error) {
	m.invoice = invoice
	return []byte("invoice"), m.err
}

func (m *mockRenderer) ContentType() string { return "application/test" }

func (m *mockRenderer) Extension() string { return ".test" }

type mockStorage struct {
	saved map[string][]byte
	err   error
}

func (m *mockStorage) Save(ctx context.Context, path string, content []byte) error {
	if m.err != nil {
		return m.err
	}
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[path] = content
	return nil
}

func (m *mockStorage) Read(ctx context.Context, path string) ([]byte, error) {
	return m.saved[path], nil
}

func (m *mockStorage) Exists(ctx context.Context, path string) bool {
	_, ok := m.saved[path]
	return ok
}

func (m *mockStorage) GetFullPath(relativePath string) string {
	return "/reports/" + relativePath
}

func (m *mockStorage) ValidatePath(path string) error {
	return nil
}

type sentMessage struct {
	chatID string
	text   string
}

type mockSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (m *mockSender) SendText(ctx context.Context, chatID string, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (m *mockSender) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}
