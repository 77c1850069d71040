// Package policy exposes the claim policy parameters and the monthly budget check.
package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/claims-workflow/internal/domain/entity"
)

// Policies holds the configured claim limits
type Policies struct {
	MaxHoursPerClaim       float64   `json:"max_hours_per_claim"`
	MaxAmountPerClaim      float64   `json:"max_amount_per_claim"`
	AllowedHourlyRates     []float64 `json:"allowed_hourly_rates"`
	MonthlyBudgetPerUser   float64   `json:"monthly_budget_per_user"`
	AutoApproveSmallClaims bool      `json:"auto_approve_small_claims"`
	AutoApproveThreshold   float64   `json:"auto_approve_threshold"`
}

// Validate checks that the limits are usable. An empty rate list is allowed;
// it makes every claim fail the rate check.
func (p Policies) Validate() error {
	if p.MaxHoursPerClaim <= 0 {
		return errors.New("max hours per claim must be positive")
	}
	if p.MaxAmountPerClaim <= 0 {
		return errors.New("max amount per claim must be positive")
	}
	if p.MonthlyBudgetPerUser <= 0 {
		return errors.New("monthly budget per user must be positive")
	}
	if p.AutoApproveThreshold < 0 {
		return errors.New("auto-approve threshold cannot be negative")
	}
	for _, r := range p.AllowedHourlyRates {
		if r <= 0 {
			return fmt.Errorf("allowed hourly rate must be positive, got %v", r)
		}
	}
	return nil
}

// Provider is the read-only source of policy values
type Provider interface {
	Policies() Policies
	MaxHoursPerClaim() float64
	MaxAmountPerClaim() float64
	AllowedHourlyRates() []float64
	MonthlyBudgetPerUser() float64
	AutoApproveSmallClaims() bool
	AutoApproveThreshold() float64

	// IsWithinBudget reports whether adding amount to the user's existing
	// spend for the period stays within the monthly budget. It also returns
	// the spend already committed for the period.
	IsWithinBudget(ctx context.Context, userID string, amount float64, period entity.Period, excludeClaimID int64) (bool, float64, error)
}

// SpendingSource reports what a user has already claimed in a period
type SpendingSource interface {
	SumAmountForPeriod(ctx context.Context, userID string, period entity.Period, statuses []entity.ClaimStatus, excludeClaimID int64) (float64, error)
}

// BudgetStatuses are the claim statuses that count against the monthly budget
var BudgetStatuses = []entity.ClaimStatus{
	entity.ClaimStatusPending,
	entity.ClaimStatusVerified,
	entity.ClaimStatusApproved,
}

// StaticProvider serves policies fixed at construction
type StaticProvider struct {
	policies Policies
	spending SpendingSource
}

// NewStaticProvider creates a provider. The rate slice is copied.
func NewStaticProvider(p Policies, spending SpendingSource) *StaticProvider {
	p.AllowedHourlyRates = append([]float64(nil), p.AllowedHourlyRates...)
	return &StaticProvider{policies: p, spending: spending}
}

func (s *StaticProvider) Policies() Policies {
	p := s.policies
	p.AllowedHourlyRates = s.AllowedHourlyRates()
	return p
}

func (s *StaticProvider) MaxHoursPerClaim() float64     { return s.policies.MaxHoursPerClaim }
func (s *StaticProvider) MaxAmountPerClaim() float64    { return s.policies.MaxAmountPerClaim }
func (s *StaticProvider) MonthlyBudgetPerUser() float64 { return s.policies.MonthlyBudgetPerUser }
func (s *StaticProvider) AutoApproveSmallClaims() bool  { return s.policies.AutoApproveSmallClaims }
func (s *StaticProvider) AutoApproveThreshold() float64 { return s.policies.AutoApproveThreshold }

func (s *StaticProvider) AllowedHourlyRates() []float64 {
	return append([]float64(nil), s.policies.AllowedHourlyRates...)
}

func (s *StaticProvider) IsWithinBudget(ctx context.Context, userID string, amount float64, period entity.Period, excludeClaimID int64) (bool, float64, error) {
	var spent float64
	if s.spending != nil {
		var err error
		spent, err = s.spending.SumAmountForPeriod(ctx, userID, period, BudgetStatuses, excludeClaimID)
		if err != nil {
			return false, 0, fmt.Errorf("failed to load spend for %s %02d/%d: %w", userID, period.Month, period.Year, err)
		}
	}
	return spent+amount <= s.policies.MonthlyBudgetPerUser, spent, nil
}

var _ Provider = (*StaticProvider)(nil)
