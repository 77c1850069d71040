// Package validation applies claim policy checks and decides auto-approval eligibility.
package validation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/garyjia/claims-workflow/internal/application/policy"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
)

// Rule identifies which policy check produced a violation
type Rule string

const (
	RuleHours  Rule = "hours"
	RuleRate   Rule = "rate"
	RuleAmount Rule = "amount"
	RuleBudget Rule = "budget"
)

// Violation is one failed policy check
type Violation struct {
	Rule    Rule   `json:"rule"`
	Message string `json:"message"`
}

// Result is the outcome of validating a claim. CanAutoApprove is computed
// even when the claim is invalid; callers must check IsValid first.
type Result struct {
	IsValid        bool        `json:"is_valid"`
	Violations     []Violation `json:"violations"`
	CanAutoApprove bool        `json:"can_auto_approve"`
}

// Errors returns the violation messages in check order
func (r *Result) Errors() []string {
	msgs := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		msgs[i] = v.Message
	}
	return msgs
}

// Has reports whether a violation for the rule is present
func (r *Result) Has(rule Rule) bool {
	for _, v := range r.Violations {
		if v.Rule == rule {
			return true
		}
	}
	return false
}

// Validator checks a claim against the current policies
type Validator interface {
	Validate(ctx context.Context, claim *entity.Claim) (*Result, error)
}

// ClaimValidator implements Validator on top of a policy.Provider
type ClaimValidator struct {
	policies policy.Provider
}

// NewClaimValidator creates a validator
func NewClaimValidator(policies policy.Provider) *ClaimValidator {
	return &ClaimValidator{policies: policies}
}

// Validate runs every check independently and reports all failures. The only
// error return is a failure to read the user's existing spend.
func (v *ClaimValidator) Validate(ctx context.Context, claim *entity.Claim) (*Result, error) {
	result := &Result{}
	total := claim.TotalAmount()

	maxHours := v.policies.MaxHoursPerClaim()
	// written as a negation so NaN fails
	if !(claim.HoursWorked > 0 && claim.HoursWorked <= maxHours) {
		result.add(RuleHours, fmt.Sprintf("Hours worked (%s) must be greater than 0 and not exceed the maximum allowed (%s hours).",
			formatNumber(claim.HoursWorked), formatNumber(maxHours)))
	}

	rates := v.policies.AllowedHourlyRates()
	if !containsRate(rates, claim.HourlyRate) {
		result.add(RuleRate, fmt.Sprintf("Hourly rate (R%s) is not allowed. Allowed rates: %s",
			formatNumber(claim.HourlyRate), formatRates(rates)))
	}

	maxAmount := v.policies.MaxAmountPerClaim()
	if !(total <= maxAmount) {
		result.add(RuleAmount, fmt.Sprintf("Total amount (R%.2f) exceeds maximum per claim (R%.2f).", total, maxAmount))
	}

	within, spent, err := v.policies.IsWithinBudget(ctx, claim.UserID, total, claim.Period(), claim.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check monthly budget: %w", err)
	}
	if !within {
		result.add(RuleBudget, fmt.Sprintf("Claim amount (R%.2f) exceeds monthly budget (R%.2f); already claimed R%.2f for %02d/%d.",
			total, v.policies.MonthlyBudgetPerUser(), spent, claim.ClaimMonth, claim.ClaimYear))
	}

	result.IsValid = len(result.Violations) == 0
	result.CanAutoApprove = v.policies.AutoApproveSmallClaims() && total <= v.policies.AutoApproveThreshold()

	return result, nil
}

func (r *Result) add(rule Rule, msg string) {
	r.Violations = append(r.Violations, Violation{Rule: rule, Message: msg})
}

// containsRate uses exact equality; configured rates are whole currency units
func containsRate(rates []float64, rate float64) bool {
	for _, r := range rates {
		if r == rate {
			return true
		}
	}
	return false
}

func formatRates(rates []float64) string {
	if len(rates) == 0 {
		return "none configured"
	}
	parts := make([]string, len(rates))
	for i, r := range rates {
		parts[i] = "R" + formatNumber(r)
	}
	return strings.Join(parts, ", ")
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

var _ Validator = (*ClaimValidator)(nil)
