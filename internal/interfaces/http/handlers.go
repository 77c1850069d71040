package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/claims-workflow/internal/application/service"
	"github.com/garyjia/claims-workflow/internal/application/workflow"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/claims-workflow/internal/domain/workflow"
)

// Reviewer identity headers
const (
	ActorIDHeader   = "X-Actor-ID"
	ActorRoleHeader = "X-Actor-Role"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	dateLayout       = "2006-01-02"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	deps   Dependencies
	logger Logger
	now    func() time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(deps Dependencies, logger Logger) *Handlers {
	return &Handlers{
		deps:   deps,
		logger: logger,
		now:    time.Now,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// SubmitClaimRequest is the body of POST /api/claims
type SubmitClaimRequest struct {
	UserID       string  `json:"user_id" binding:"required"`
	HoursWorked  float64 `json:"hours_worked"`
	HourlyRate   float64 `json:"hourly_rate"`
	Notes        string  `json:"notes"`
	DocumentPath string  `json:"document_path"`
}

// ReviewClaimRequest is the body of POST /api/claims/:id/review
type ReviewClaimRequest struct {
	Approve  *bool  `json:"approve" binding:"required"`
	Comments string `json:"comments"`
}

// LecturerRequest is the body of PUT /api/lecturers/:userId
type LecturerRequest struct {
	FullName   string  `json:"full_name"`
	Email      string  `json:"email"`
	Department string  `json:"department"`
	HourlyRate float64 `json:"hourly_rate"`
}

// ListClaimsQuery holds the query parameters of GET /api/claims
type ListClaimsQuery struct {
	UserID string   `form:"user_id"`
	Status []string `form:"status"`
	From   string   `form:"from"`
	To     string   `form:"to"`
	Month  int      `form:"month"`
	Year   int      `form:"year"`
	Limit  int      `form:"limit"`
	Offset int      `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	healthy := true
	var components interface{}
	if h.deps.Health != nil {
		healthy, components = h.deps.Health(c.Request.Context())
	}

	resp := HealthResponse{
		Status:     "healthy",
		Timestamp:  h.now().UTC().Format(time.RFC3339),
		Components: components,
	}
	status := http.StatusOK
	if !healthy {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, Response{Success: healthy, Data: resp})
}

// GetPolicy handles GET /api/policy
func (h *Handlers) GetPolicy(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: h.deps.Policy.Policies()})
}

// SubmitClaim handles POST /api/claims
func (h *Handlers) SubmitClaim(c *gin.Context) {
	var req SubmitClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid claim body", err)
		return
	}

	resp, err := h.deps.Claims.SubmitClaim(c.Request.Context(), service.SubmitClaimRequest{
		UserID:       req.UserID,
		HoursWorked:  req.HoursWorked,
		HourlyRate:   req.HourlyRate,
		Notes:        req.Notes,
		DocumentPath: req.DocumentPath,
	})
	if err != nil {
		h.writeError(c, "Failed to submit claim", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: resp})
}

// ListClaims handles GET /api/claims
func (h *Handlers) ListClaims(c *gin.Context) {
	var q ListClaimsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, "invalid query parameters", err)
		return
	}

	statuses, err := parseStatuses(q.Status)
	if err != nil {
		h.badRequest(c, err.Error(), err)
		return
	}
	from, to, err := parseDateRange(q.From, q.To)
	if err != nil {
		h.badRequest(c, err.Error(), err)
		return
	}

	if q.Limit <= 0 || q.Limit > maxListLimit {
		q.Limit = defaultListLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	claims, err := h.deps.Claims.ListClaims(c.Request.Context(), entity.ClaimFilter{
		UserID:   q.UserID,
		Statuses: statuses,
		From:     from,
		To:       to,
		Month:    q.Month,
		Year:     q.Year,
		Limit:    q.Limit,
		Offset:   q.Offset,
	})
	if err != nil {
		h.writeError(c, "Failed to list claims", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: claims})
}

// GetClaim handles GET /api/claims/:id
func (h *Handlers) GetClaim(c *gin.Context) {
	id, ok := h.claimID(c)
	if !ok {
		return
	}

	detail, err := h.deps.Claims.GetClaim(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "Failed to get claim", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// GetHistory handles GET /api/claims/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	id, ok := h.claimID(c)
	if !ok {
		return
	}

	history, err := h.deps.Claims.GetHistory(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "Failed to get history", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// ReviewClaim handles POST /api/claims/:id/review. The reviewer is
// identified by the X-Actor-ID and X-Actor-Role headers.
func (h *Handlers) ReviewClaim(c *gin.Context) {
	id, ok := h.claimID(c)
	if !ok {
		return
	}

	role, err := entity.ParseRole(c.GetHeader(ActorRoleHeader))
	if err != nil {
		h.badRequest(c, err.Error(), err)
		return
	}

	var req ReviewClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid review body", err)
		return
	}

	result, err := h.deps.Claims.ReviewClaim(c.Request.Context(), workflow.ReviewRequest{
		ClaimID:   id,
		ActorID:   c.GetHeader(ActorIDHeader),
		ActorRole: role,
		Approve:   *req.Approve,
		Comments:  req.Comments,
	})
	if err != nil {
		h.writeError(c, "Failed to review claim", err)
		return
	}

	if !result.Success {
		c.JSON(http.StatusNotFound, Response{Success: false, Data: result, Error: result.Message})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// ReviewQueue handles GET /api/reviews/queue?role=
func (h *Handlers) ReviewQueue(c *gin.Context) {
	role, err := entity.ParseRole(c.Query("role"))
	if err != nil {
		h.badRequest(c, err.Error(), err)
		return
	}

	claims, err := h.deps.Claims.ReviewQueue(c.Request.Context(), role)
	if err != nil {
		h.writeError(c, "Failed to load review queue", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: claims})
}

// UpsertLecturer handles PUT /api/lecturers/:userId
func (h *Handlers) UpsertLecturer(c *gin.Context) {
	var req LecturerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid lecturer body", err)
		return
	}

	lecturer := &entity.Lecturer{
		UserID:     c.Param("userId"),
		FullName:   req.FullName,
		Email:      req.Email,
		Department: req.Department,
		HourlyRate: req.HourlyRate,
	}
	if err := h.deps.Claims.UpsertLecturer(c.Request.Context(), lecturer); err != nil {
		h.writeError(c, "Failed to save lecturer", err)
		return
	}

	saved, err := h.deps.Claims.GetLecturer(c.Request.Context(), lecturer.UserID)
	if err != nil {
		h.writeError(c, "Failed to reload lecturer", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: saved})
}

// GetLecturer handles GET /api/lecturers/:userId
func (h *Handlers) GetLecturer(c *gin.Context) {
	lecturer, err := h.deps.Claims.GetLecturer(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.writeError(c, "Failed to get lecturer", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: lecturer})
}

// DownloadClaimsReport handles GET /api/reports/claims?from=&to=&status=
func (h *Handlers) DownloadClaimsReport(c *gin.Context) {
	from, to, err := parseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		h.badRequest(c, err.Error(), err)
		return
	}

	export, err := h.deps.Reports.ExportClaimsReport(c.Request.Context(), entity.ReportParameters{
		From:   from,
		To:     to,
		Status: entity.ClaimStatus(c.Query("status")),
	})
	if err != nil {
		h.writeError(c, "Failed to export claims report", err)
		return
	}

	sendExport(c, export)
}

// DownloadMonthlyReport handles GET /api/reports/monthly?month=&year=.
// Missing parameters default to the current month.
func (h *Handlers) DownloadMonthlyReport(c *gin.Context) {
	current := entity.PeriodOf(h.now().UTC())

	month, err := intQuery(c, "month", current.Month)
	if err != nil {
		h.badRequest(c, "invalid month", err)
		return
	}
	year, err := intQuery(c, "year", current.Year)
	if err != nil {
		h.badRequest(c, "invalid year", err)
		return
	}

	export, err := h.deps.Reports.ExportMonthlyReport(c.Request.Context(), month, year)
	if err != nil {
		h.writeError(c, "Failed to export monthly report", err)
		return
	}

	sendExport(c, export)
}

// DownloadInvoice handles GET /api/claims/:id/invoice
func (h *Handlers) DownloadInvoice(c *gin.Context) {
	id, ok := h.claimID(c)
	if !ok {
		return
	}

	export, err := h.deps.Reports.ExportInvoice(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "Failed to export invoice", err)
		return
	}

	sendExport(c, export)
}

func (h *Handlers) claimID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(c, "invalid claim ID", fmt.Errorf("parse claim id %q: %v", idStr, err))
		return 0, false
	}
	return id, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string, err error) {
	h.logger.Info("Rejected request", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// writeError maps application errors to status codes. Unexpected errors are
// logged and hidden behind a generic message.
func (h *Handlers) writeError(c *gin.Context, logMsg string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error(logMsg, "path", c.FullPath(), "error", err)
		msg = "internal server error"
	}
	c.JSON(status, Response{Success: false, Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrRateUnavailable):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrUnsupportedRole):
		return http.StatusForbidden
	case errors.Is(err, service.ErrClaimNotFound),
		errors.Is(err, service.ErrLecturerNotFound),
		errors.Is(err, workflow.ErrWorkflowNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainwf.ErrInvalidTransition),
		errors.Is(err, domainwf.ErrTerminalStage),
		errors.Is(err, workflow.ErrWorkflowExists),
		errors.Is(err, workflow.ErrConcurrentUpdate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func sendExport(c *gin.Context, export *service.Export) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName))
	c.Data(http.StatusOK, export.ContentType, export.Data)
}

// parseStatuses accepts repeated and comma-separated status values
func parseStatuses(values []string) ([]entity.ClaimStatus, error) {
	var statuses []entity.ClaimStatus
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			st, err := entity.ParseClaimStatus(part)
			if err != nil {
				return nil, err
			}
			statuses = append(statuses, st)
		}
	}
	return statuses, nil
}

// parseDateRange reads YYYY-MM-DD or RFC3339 bounds. A plain date as the
// upper bound covers that whole day.
func parseDateRange(fromStr, toStr string) (*time.Time, *time.Time, error) {
	from, _, err := parseDate(fromStr)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid from date: %w", err)
	}
	to, dateOnly, err := parseDate(toStr)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid to date: %w", err)
	}
	if to != nil && dateOnly {
		end := to.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	return from, to, nil
}

func parseDate(s string) (*time.Time, bool, error) {
	if s == "" {
		return nil, false, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return &t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false, fmt.Errorf("expected %s or RFC3339, got %q", dateLayout, s)
	}
	t = t.UTC()
	return &t, false, nil
}

func intQuery(c *gin.Context, key string, fallback int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
