package entity

import "time"

// MaxNotesLength is the maximum number of characters accepted in claim notes
const MaxNotesLength = 500

// Claim is one lecturer's monthly hours claim
type Claim struct {
	ID           int64       `json:"id"`
	UserID       string      `json:"user_id"`
	HoursWorked  float64     `json:"hours_worked"`
	HourlyRate   float64     `json:"hourly_rate"`
	Notes        string      `json:"notes"`
	DocumentPath string      `json:"document_path,omitempty"`
	Status       ClaimStatus `json:"status"`
	SubmittedAt  time.Time   `json:"submitted_at"`
	VerifiedAt   *time.Time  `json:"verified_at,omitempty"`
	VerifiedBy   string      `json:"verified_by,omitempty"`
	ApprovedAt   *time.Time  `json:"approved_at,omitempty"`
	ApprovedBy   string      `json:"approved_by,omitempty"`
	ClaimMonth   int         `json:"claim_month"`
	ClaimYear    int         `json:"claim_year"`
}

// TotalAmount is always derived from hours and rate, never stored separately
func (c *Claim) TotalAmount() float64 {
	return c.HoursWorked * c.HourlyRate
}

// Period returns the budget period the claim belongs to
func (c *Claim) Period() Period {
	return Period{Month: c.ClaimMonth, Year: c.ClaimYear}
}

// Period is a calendar month used for budget aggregation
type Period struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// PeriodOf returns the calendar period containing t
func PeriodOf(t time.Time) Period {
	return Period{Month: int(t.Month()), Year: t.Year()}
}

// ClaimFilter selects claims for listings and reports. Zero values are ignored.
type ClaimFilter struct {
	UserID   string
	Statuses []ClaimStatus
	From     *time.Time
	To       *time.Time
	Month    int
	Year     int
	Limit    int
	Offset   int
}
