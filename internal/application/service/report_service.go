package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
)

// ErrReportStorageUnavailable is returned by SaveMonthlyReport when no output storage is configured
var ErrReportStorageUnavailable = errors.New("report storage not configured")

// Export is a rendered document ready for download or storage
type Export struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ReportService builds claim reports and invoices
type ReportService interface {
	// ClaimsReport lists claims matching the parameters, newest submission first
	ClaimsReport(ctx context.Context, params entity.ReportParameters) (*entity.ClaimsReport, error)
	// MonthlyReport lists the approved claims of a period ordered by lecturer name
	MonthlyReport(ctx context.Context, month, year int) (*entity.ClaimsReport, error)
	Invoice(ctx context.Context, claimID int64) (*entity.Invoice, error)

	ExportClaimsReport(ctx context.Context, params entity.ReportParameters) (*Export, error)
	ExportMonthlyReport(ctx context.Context, month, year int) (*Export, error)
	ExportInvoice(ctx context.Context, claimID int64) (*Export, error)

	// SaveMonthlyReport renders the monthly report into report storage and
	// returns its relative path
	SaveMonthlyReport(ctx context.Context, month, year int) (string, error)
}

type reportServiceImpl struct {
	claimRepo    port.ClaimRepository
	lecturerRepo port.LecturerRepository
	renderer     port.ReportRenderer
	storage      port.FileStorage
	logger       Logger
	now          func() time.Time
}

// NewReportService creates a new ReportService. storage may be nil when
// reports are only streamed.
func NewReportService(
	claimRepo port.ClaimRepository,
	lecturerRepo port.LecturerRepository,
	renderer port.ReportRenderer,
	storage port.FileStorage,
	logger Logger,
) ReportService {
	return &reportServiceImpl{
		claimRepo:    claimRepo,
		lecturerRepo: lecturerRepo,
		renderer:     renderer,
		storage:      storage,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *reportServiceImpl) ClaimsReport(ctx context.Context, params entity.ReportParameters) (*entity.ClaimsReport, error) {
	if params.Status != "" && !params.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, params.Status)
	}
	if params.From != nil && params.To != nil && params.To.Before(*params.From) {
		return nil, fmt.Errorf("%w: end date is before start date", ErrInvalidInput)
	}

	filter := entity.ClaimFilter{From: params.From, To: params.To}
	if params.Status != "" {
		filter.Statuses = []entity.ClaimStatus{params.Status}
	}

	claims, err := s.claimRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}

	items, err := s.reportItems(ctx, claims)
	if err != nil {
		return nil, err
	}

	return s.buildReport("Claims Report", params, items), nil
}

func (s *reportServiceImpl) MonthlyReport(ctx context.Context, month, year int) (*entity.ClaimsReport, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month must be between 1 and 12", ErrInvalidInput)
	}
	if year < 1 {
		return nil, fmt.Errorf("%w: year must be positive", ErrInvalidInput)
	}

	claims, err := s.claimRepo.List(ctx, entity.ClaimFilter{
		Statuses: []entity.ClaimStatus{entity.ClaimStatusApproved},
		Month:    month,
		Year:     year,
	})
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}

	items, err := s.reportItems(ctx, claims)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return strings.ToLower(items[i].LecturerName) < strings.ToLower(items[j].LecturerName)
	})

	title := fmt.Sprintf("Monthly Approved Claims - %s %d", time.Month(month), year)
	return s.buildReport(title, entity.ReportParameters{Status: entity.ClaimStatusApproved}, items), nil
}

func (s *reportServiceImpl) Invoice(ctx context.Context, claimID int64) (*entity.Invoice, error) {
	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}
	if claim == nil {
		return nil, fmt.Errorf("%w: %d", ErrClaimNotFound, claimID)
	}

	lecturer, err := s.lecturerRepo.GetByUserID(ctx, claim.UserID)
	if err != nil {
		return nil, fmt.Errorf("get lecturer: %w", err)
	}

	invoice := &entity.Invoice{
		Number:       fmt.Sprintf("CMCS-%05d", claim.ID),
		IssuedAt:     s.now().UTC(),
		ClaimID:      claim.ID,
		LecturerName: claim.UserID,
		Period:       claim.Period(),
		Description:  fmt.Sprintf("%s hours @ R%.2f/hour", strconv.FormatFloat(claim.HoursWorked, 'f', -1, 64), claim.HourlyRate),
		HoursWorked:  claim.HoursWorked,
		HourlyRate:   claim.HourlyRate,
		Total:        amountOf(claim),
		Notes:        claim.Notes,
		Status:       claim.Status,
		SubmittedAt:  claim.SubmittedAt,
		ApprovedAt:   claim.ApprovedAt,
		ApprovedBy:   approvedBy(claim),
	}
	if lecturer != nil {
		invoice.LecturerName = lecturer.DisplayName()
		invoice.Email = lecturer.Email
		invoice.Department = lecturer.Department
	}

	return invoice, nil
}

func (s *reportServiceImpl) ExportClaimsReport(ctx context.Context, params entity.ReportParameters) (*Export, error) {
	report, err := s.ClaimsReport(ctx, params)
	if err != nil {
		return nil, err
	}
	data, err := s.renderer.RenderClaimsReport(report)
	if err != nil {
		return nil, fmt.Errorf("render claims report: %w", err)
	}
	name := "claims-report-" + report.GeneratedAt.Format("20060102-150405")
	return s.export(name, data), nil
}

func (s *reportServiceImpl) ExportMonthlyReport(ctx context.Context, month, year int) (*Export, error) {
	report, err := s.MonthlyReport(ctx, month, year)
	if err != nil {
		return nil, err
	}
	data, err := s.renderer.RenderClaimsReport(report)
	if err != nil {
		return nil, fmt.Errorf("render monthly report: %w", err)
	}
	return s.export(monthlyReportName(month, year), data), nil
}

func (s *reportServiceImpl) ExportInvoice(ctx context.Context, claimID int64) (*Export, error) {
	invoice, err := s.Invoice(ctx, claimID)
	if err != nil {
		return nil, err
	}
	data, err := s.renderer.RenderInvoice(invoice)
	if err != nil {
		return nil, fmt.Errorf("render invoice: %w", err)
	}
	return s.export(invoice.Number, data), nil
}

func (s *reportServiceImpl) SaveMonthlyReport(ctx context.Context, month, year int) (string, error) {
	if s.storage == nil {
		return "", ErrReportStorageUnavailable
	}

	export, err := s.ExportMonthlyReport(ctx, month, year)
	if err != nil {
		return "", err
	}

	if err := s.storage.Save(ctx, export.FileName, export.Data); err != nil {
		s.logger.Error("Failed to save monthly report", "file", export.FileName, "error", err)
		return "", fmt.Errorf("save report: %w", err)
	}

	s.logger.Info("Monthly report saved", "file", export.FileName, "month", month, "year", year)
	return export.FileName, nil
}

func (s *reportServiceImpl) reportItems(ctx context.Context, claims []*entity.Claim) ([]entity.ClaimReportItem, error) {
	seen := make(map[string]bool)
	var userIDs []string
	for _, c := range claims {
		if !seen[c.UserID] {
			seen[c.UserID] = true
			userIDs = append(userIDs, c.UserID)
		}
	}

	lecturers, err := s.lecturerRepo.GetByUserIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("get lecturers: %w", err)
	}

	items := make([]entity.ClaimReportItem, 0, len(claims))
	for _, c := range claims {
		item := entity.ClaimReportItem{
			ClaimID:      c.ID,
			UserID:       c.UserID,
			LecturerName: c.UserID,
			HoursWorked:  c.HoursWorked,
			HourlyRate:   c.HourlyRate,
			Amount:       amountOf(c),
			Status:       c.Status,
			SubmittedAt:  c.SubmittedAt,
			ApprovedAt:   c.ApprovedAt,
			ApprovedBy:   approvedBy(c),
		}
		if l := lecturers[c.UserID]; l != nil {
			item.LecturerName = l.DisplayName()
			item.Department = l.Department
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *reportServiceImpl) buildReport(title string, params entity.ReportParameters, items []entity.ClaimReportItem) *entity.ClaimsReport {
	hours, amount := decimal.Zero, decimal.Zero
	for _, item := range items {
		hours = hours.Add(decimal.NewFromFloat(item.HoursWorked))
		amount = amount.Add(item.Amount)
	}

	return &entity.ClaimsReport{
		Title:       title,
		GeneratedAt: s.now().UTC(),
		Parameters:  params,
		Items:       items,
		TotalHours:  hours,
		TotalAmount: amount,
	}
}

func (s *reportServiceImpl) export(baseName string, data []byte) *Export {
	return &Export{
		FileName:    baseName + s.renderer.Extension(),
		ContentType: s.renderer.ContentType(),
		Data:        data,
	}
}

func monthlyReportName(month, year int) string {
	return fmt.Sprintf("monthly-report-%d-%02d", year, month)
}

// amountOf computes hours*rate in decimal, rounded to cents
func amountOf(c *entity.Claim) decimal.Decimal {
	return decimal.NewFromFloat(c.HoursWorked).Mul(decimal.NewFromFloat(c.HourlyRate)).Round(2)
}

// approvedBy names the approver. Approved claims without one went through auto-approval.
func approvedBy(c *entity.Claim) string {
	if c.ApprovedBy != "" {
		return c.ApprovedBy
	}
	if c.Status == entity.ClaimStatusApproved {
		return entity.AutoApprovedLabel
	}
	return ""
}
