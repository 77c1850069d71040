package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// AutoApprovedLabel is shown as approver for claims approved without a manager
const AutoApprovedLabel = "Auto-Approved"

// ReportParameters filters the claims report
type ReportParameters struct {
	From   *time.Time  `json:"from,omitempty"`
	To     *time.Time  `json:"to,omitempty"`
	Status ClaimStatus `json:"status,omitempty"`
}

// ClaimReportItem is one row of a claims report
type ClaimReportItem struct {
	ClaimID      int64           `json:"claim_id"`
	UserID       string          `json:"user_id"`
	LecturerName string          `json:"lecturer_name"`
	Department   string          `json:"department,omitempty"`
	HoursWorked  float64         `json:"hours_worked"`
	HourlyRate   float64         `json:"hourly_rate"`
	Amount       decimal.Decimal `json:"amount"`
	Status       ClaimStatus     `json:"status"`
	SubmittedAt  time.Time       `json:"submitted_at"`
	ApprovedAt   *time.Time      `json:"approved_at,omitempty"`
	ApprovedBy   string          `json:"approved_by"`
}

// ClaimsReport is a filtered set of claims with totals
type ClaimsReport struct {
	Title       string            `json:"title"`
	GeneratedAt time.Time         `json:"generated_at"`
	Parameters  ReportParameters  `json:"parameters"`
	Items       []ClaimReportItem `json:"items"`
	TotalHours  decimal.Decimal   `json:"total_hours"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
}

// Invoice is the payable summary of a single claim
type Invoice struct {
	Number       string          `json:"number"`
	IssuedAt     time.Time       `json:"issued_at"`
	ClaimID      int64           `json:"claim_id"`
	LecturerName string          `json:"lecturer_name"`
	Email        string          `json:"email,omitempty"`
	Department   string          `json:"department,omitempty"`
	Period       Period          `json:"period"`
	Description  string          `json:"description"`
	HoursWorked  float64         `json:"hours_worked"`
	HourlyRate   float64         `json:"hourly_rate"`
	Total        decimal.Decimal `json:"total"`
	Notes        string          `json:"notes,omitempty"`
	Status       ClaimStatus     `json:"status"`
	SubmittedAt  time.Time       `json:"submitted_at"`
	ApprovedAt   *time.Time      `json:"approved_at,omitempty"`
	ApprovedBy   string          `json:"approved_by"`
}
