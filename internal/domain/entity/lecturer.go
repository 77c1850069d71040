package entity

import "time"

// Lecturer is the HR-maintained profile of a contract lecturer
type Lecturer struct {
	UserID     string    `json:"user_id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	Department string    `json:"department"`
	HourlyRate float64   `json:"hourly_rate"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DisplayName returns the full name, falling back to the user id
func (l *Lecturer) DisplayName() string {
	if l == nil {
		return ""
	}
	if l.FullName != "" {
		return l.FullName
	}
	return l.UserID
}
