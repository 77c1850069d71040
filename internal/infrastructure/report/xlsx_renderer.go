package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/claims-workflow/internal/domain/entity"
)

const (
	claimsSheet  = "Claims"
	invoiceSheet = "Invoice"
	defaultSheet = "Sheet1"

	headerRow  = 5
	dateLayout = "2006-01-02"
	timeLayout = "2006-01-02 15:04"
)

var claimColumns = []interface{}{
	"Claim ID", "Lecturer", "Department", "Hours", "Rate", "Amount",
	"Status", "Submitted", "Approved", "Approved By",
}

// XLSXRenderer implements port.ReportRenderer with excelize workbooks
type XLSXRenderer struct {
	logger *zap.Logger
}

// NewXLSXRenderer creates a new XLSX renderer
func NewXLSXRenderer(logger *zap.Logger) *XLSXRenderer {
	return &XLSXRenderer{logger: logger}
}

// ContentType is the MIME type of rendered workbooks
func (r *XLSXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Extension is the file extension of rendered workbooks
func (r *XLSXRenderer) Extension() string {
	return ".xlsx"
}

// RenderClaimsReport writes one row per claim followed by a totals row
func (r *XLSXRenderer) RenderClaimsReport(report *entity.ClaimsReport) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("report cannot be nil")
	}

	file, err := newWorkbook(claimsSheet)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	bold, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	header := [][]interface{}{
		{report.Title},
		{"Generated", report.GeneratedAt.UTC().Format(timeLayout)},
		{"Filter", describeParameters(report.Parameters)},
	}
	for i, row := range header {
		if err := setRow(file, claimsSheet, 1, i+1, row); err != nil {
			return nil, err
		}
	}

	if err := setRow(file, claimsSheet, 1, headerRow, claimColumns); err != nil {
		return nil, err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(claimColumns))
	if err := file.SetCellStyle(claimsSheet, "A1", "A1", bold); err != nil {
		return nil, fmt.Errorf("failed to style title: %w", err)
	}
	if err := file.SetCellStyle(claimsSheet, fmt.Sprintf("A%d", headerRow), fmt.Sprintf("%s%d", lastCol, headerRow), bold); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	row := headerRow + 1
	for _, item := range report.Items {
		values := []interface{}{
			item.ClaimID,
			item.LecturerName,
			item.Department,
			item.HoursWorked,
			item.HourlyRate,
			item.Amount.InexactFloat64(),
			string(item.Status),
			item.SubmittedAt.UTC().Format(dateLayout),
			formatOptionalDate(item.ApprovedAt),
			item.ApprovedBy,
		}
		if err := setRow(file, claimsSheet, 1, row, values); err != nil {
			return nil, err
		}
		row++
	}

	totals := []interface{}{"Total", "", "", report.TotalHours.InexactFloat64(), "", report.TotalAmount.InexactFloat64()}
	if err := setRow(file, claimsSheet, 1, row, totals); err != nil {
		return nil, err
	}
	if err := file.SetCellStyle(claimsSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("F%d", row), bold); err != nil {
		return nil, fmt.Errorf("failed to style totals: %w", err)
	}

	if err := file.SetColWidth(claimsSheet, "B", "C", 24); err != nil {
		r.logger.Warn("Failed to set column width", zap.Error(err))
	}
	if err := file.SetColWidth(claimsSheet, "H", "J", 16); err != nil {
		r.logger.Warn("Failed to set column width", zap.Error(err))
	}

	r.logger.Debug("Claims report rendered",
		zap.String("title", report.Title),
		zap.Int("rows", len(report.Items)))

	return writeBytes(file)
}

// RenderInvoice writes the invoice as a two-column label/value sheet
func (r *XLSXRenderer) RenderInvoice(invoice *entity.Invoice) ([]byte, error) {
	if invoice == nil {
		return nil, fmt.Errorf("invoice cannot be nil")
	}

	file, err := newWorkbook(invoiceSheet)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rows := [][]interface{}{
		{"Invoice", invoice.Number},
		{"Issued", invoice.IssuedAt.UTC().Format(dateLayout)},
		{"Claim ID", invoice.ClaimID},
		{"Lecturer", invoice.LecturerName},
		{"Email", invoice.Email},
		{"Department", invoice.Department},
		{"Period", fmt.Sprintf("%02d/%d", invoice.Period.Month, invoice.Period.Year)},
		{"Description", invoice.Description},
		{"Hours", invoice.HoursWorked},
		{"Rate", invoice.HourlyRate},
		{"Total", invoice.Total.InexactFloat64()},
		{"Status", string(invoice.Status)},
		{"Submitted", invoice.SubmittedAt.UTC().Format(dateLayout)},
		{"Approved", formatOptionalDate(invoice.ApprovedAt)},
		{"Approved By", invoice.ApprovedBy},
		{"Notes", invoice.Notes},
	}
	for i, row := range rows {
		if err := setRow(file, invoiceSheet, 1, i+1, row); err != nil {
			return nil, err
		}
	}

	bold, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create label style: %w", err)
	}
	if err := file.SetCellStyle(invoiceSheet, "A1", fmt.Sprintf("A%d", len(rows)), bold); err != nil {
		return nil, fmt.Errorf("failed to style labels: %w", err)
	}
	if err := file.SetColWidth(invoiceSheet, "A", "A", 14); err != nil {
		r.logger.Warn("Failed to set column width", zap.Error(err))
	}
	if err := file.SetColWidth(invoiceSheet, "B", "B", 40); err != nil {
		r.logger.Warn("Failed to set column width", zap.Error(err))
	}

	r.logger.Debug("Invoice rendered", zap.String("number", invoice.Number))

	return writeBytes(file)
}

func newWorkbook(sheet string) (*excelize.File, error) {
	file := excelize.NewFile()
	if err := file.SetSheetName(defaultSheet, sheet); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	return file, nil
}

func setRow(file *excelize.File, sheet string, col, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("invalid cell at row %d: %w", row, err)
	}
	if err := file.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func writeBytes(file *excelize.File) ([]byte, error) {
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func describeParameters(p entity.ReportParameters) string {
	from, to, status := "any", "any", "All"
	if p.From != nil {
		from = p.From.UTC().Format(dateLayout)
	}
	if p.To != nil {
		to = p.To.UTC().Format(dateLayout)
	}
	if p.Status != "" {
		status = string(p.Status)
	}
	return fmt.Sprintf("From %s to %s, status %s", from, to, status)
}
