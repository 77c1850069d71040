package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/garyjia/claims-workflow/internal/domain/entity"
)

type fakeSpending struct {
	total    float64
	err      error
	calls    int
	statuses []entity.ClaimStatus
	excluded int64
}

func (f *fakeSpending) SumAmountForPeriod(ctx context.Context, userID string, period entity.Period, statuses []entity.ClaimStatus, excludeClaimID int64) (float64, error) {
	f.calls++
	f.statuses = statuses
	f.excluded = excludeClaimID
	return f.total, f.err
}

func defaultPolicies() Policies {
	return Policies{
		MaxHoursPerClaim:       180,
		MaxAmountPerClaim:      50000,
		AllowedHourlyRates:     []float64{150, 200, 250, 300},
		MonthlyBudgetPerUser:   60000,
		AutoApproveSmallClaims: true,
		AutoApproveThreshold:   5000,
	}
}

func TestPolicies_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Policies)
		wantErr bool
	}{
		{"defaults", func(p *Policies) {}, false},
		{"empty rate list allowed", func(p *Policies) { p.AllowedHourlyRates = nil }, false},
		{"zero max hours", func(p *Policies) { p.MaxHoursPerClaim = 0 }, true},
		{"zero max amount", func(p *Policies) { p.MaxAmountPerClaim = 0 }, true},
		{"zero budget", func(p *Policies) { p.MonthlyBudgetPerUser = 0 }, true},
		{"negative threshold", func(p *Policies) { p.AutoApproveThreshold = -1 }, true},
		{"negative rate", func(p *Policies) { p.AllowedHourlyRates = []float64{-150} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := defaultPolicies()
			tt.mutate(&p)
			if err := p.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStaticProvider_RatesAreCopied(t *testing.T) {
	rates := []float64{150, 200}
	p := defaultPolicies()
	p.AllowedHourlyRates = rates

	provider := NewStaticProvider(p, nil)
	rates[0] = 999

	got := provider.AllowedHourlyRates()
	if got[0] != 150 {
		t.Fatalf("provider should not alias caller slice, got %v", got)
	}

	got[1] = 999
	if provider.AllowedHourlyRates()[1] != 200 {
		t.Error("provider should not expose its internal slice")
	}
}

func TestStaticProvider_IsWithinBudget(t *testing.T) {
	period := entity.Period{Month: 10, Year: 2026}

	tests := []struct {
		name       string
		spent      float64
		amount     float64
		wantWithin bool
	}{
		{"nothing spent", 0, 8000, true},
		{"exactly at budget", 52000, 8000, true},
		{"over budget", 55000, 8000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spending := &fakeSpending{total: tt.spent}
			provider := NewStaticProvider(defaultPolicies(), spending)

			within, spent, err := provider.IsWithinBudget(context.Background(), "lect-1", tt.amount, period, 42)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if within != tt.wantWithin {
				t.Errorf("IsWithinBudget() = %v, want %v", within, tt.wantWithin)
			}
			if spent != tt.spent {
				t.Errorf("spent = %v, want %v", spent, tt.spent)
			}
			if spending.excluded != 42 {
				t.Errorf("expected claim 42 excluded, got %d", spending.excluded)
			}
			if len(spending.statuses) != 3 {
				t.Errorf("expected 3 counted statuses, got %v", spending.statuses)
			}
		})
	}
}

func TestStaticProvider_IsWithinBudget_SourceError(t *testing.T) {
	errDB := errors.New("db down")
	provider := NewStaticProvider(defaultPolicies(), &fakeSpending{err: errDB})

	_, _, err := provider.IsWithinBudget(context.Background(), "lect-1", 100, entity.Period{Month: 1, Year: 2026}, 0)
	if !errors.Is(err, errDB) {
		t.Errorf("expected wrapped source error, got %v", err)
	}
}
