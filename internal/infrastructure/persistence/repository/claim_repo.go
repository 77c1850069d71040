package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const claimColumns = `id, user_id, hours_worked, hourly_rate, notes, document_path, status,
	submitted_at, verified_at, verified_by, approved_at, approved_by, claim_month, claim_year`

// ClaimRepository implements port.ClaimRepository
type ClaimRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *sql.DB, logger *zap.Logger) *ClaimRepository {
	return &ClaimRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a claim. total_amount is generated by the database.
func (r *ClaimRepository) Create(ctx context.Context, claim *entity.Claim) error {
	query := `
		INSERT INTO claims (
			user_id, hours_worked, hourly_rate, notes, document_path, status,
			submitted_at, claim_month, claim_year
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		claim.UserID,
		claim.HoursWorked,
		claim.HourlyRate,
		claim.Notes,
		claim.DocumentPath,
		string(claim.Status),
		claim.SubmittedAt.UTC(),
		claim.ClaimMonth,
		claim.ClaimYear,
	)
	if err != nil {
		r.logger.Error("Failed to create claim", zap.String("user_id", claim.UserID), zap.Error(err))
		return fmt.Errorf("failed to create claim: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	claim.ID = id
	return nil
}

// GetByID retrieves a claim, returning (nil, nil) when it does not exist
func (r *ClaimRepository) GetByID(ctx context.Context, id int64) (*entity.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = ?`

	claim, err := scanClaim(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get claim", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}

	return claim, nil
}

// UpdateReview persists the status and review stamps of a claim
func (r *ClaimRepository) UpdateReview(ctx context.Context, claim *entity.Claim) error {
	query := `
		UPDATE claims
		SET status = ?, verified_at = ?, verified_by = ?, approved_at = ?, approved_by = ?
		WHERE id = ?
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		string(claim.Status),
		nullTime(claim.VerifiedAt),
		nullString(claim.VerifiedBy),
		nullTime(claim.ApprovedAt),
		nullString(claim.ApprovedBy),
		claim.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update claim", zap.Int64("id", claim.ID), zap.Error(err))
		return fmt.Errorf("failed to update claim: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("claim %d not found", claim.ID)
	}

	return nil
}

// List returns claims matching the filter, newest submission first
func (r *ClaimRepository) List(ctx context.Context, filter entity.ClaimFilter) ([]*entity.Claim, error) {
	var (
		conds []string
		args  []interface{}
	)

	if filter.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if len(filter.Statuses) > 0 {
		conds = append(conds, "status IN ("+placeholders(len(filter.Statuses))+")")
		for _, s := range filter.Statuses {
			args = append(args, string(s))
		}
	}
	if filter.From != nil {
		conds = append(conds, "submitted_at >= ?")
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		conds = append(conds, "submitted_at <= ?")
		args = append(args, filter.To.UTC())
	}
	if filter.Month > 0 {
		conds = append(conds, "claim_month = ?")
		args = append(args, filter.Month)
	}
	if filter.Year > 0 {
		conds = append(conds, "claim_year = ?")
		args = append(args, filter.Year)
	}

	query := `SELECT ` + claimColumns + ` FROM claims`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY submitted_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list claims", zap.Error(err))
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	var claims []*entity.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, claim)
	}

	return claims, rows.Err()
}

// SumAmountForPeriod totals the generated amount column for a user's period
func (r *ClaimRepository) SumAmountForPeriod(ctx context.Context, userID string, period entity.Period, statuses []entity.ClaimStatus, excludeClaimID int64) (float64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}

	query := `
		SELECT COALESCE(SUM(total_amount), 0)
		FROM claims
		WHERE user_id = ? AND claim_month = ? AND claim_year = ? AND id != ?
		  AND status IN (` + placeholders(len(statuses)) + `)
	`

	args := []interface{}{userID, period.Month, period.Year, excludeClaimID}
	for _, s := range statuses {
		args = append(args, string(s))
	}

	var total float64
	if err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to sum claim amounts",
			zap.String("user_id", userID),
			zap.Int("month", period.Month),
			zap.Int("year", period.Year),
			zap.Error(err))
		return 0, fmt.Errorf("failed to sum claim amounts: %w", err)
	}

	return total, nil
}

func scanClaim(row scanner) (*entity.Claim, error) {
	var (
		c          entity.Claim
		status     string
		verifiedAt sql.NullTime
		verifiedBy sql.NullString
		approvedAt sql.NullTime
		approvedBy sql.NullString
	)

	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.HoursWorked,
		&c.HourlyRate,
		&c.Notes,
		&c.DocumentPath,
		&status,
		&c.SubmittedAt,
		&verifiedAt,
		&verifiedBy,
		&approvedAt,
		&approvedBy,
		&c.ClaimMonth,
		&c.ClaimYear,
	)
	if err != nil {
		return nil, err
	}

	c.Status = entity.ClaimStatus(status)
	c.VerifiedAt = timePtr(verifiedAt)
	c.VerifiedBy = verifiedBy.String
	c.ApprovedAt = timePtr(approvedAt)
	c.ApprovedBy = approvedBy.String

	return &c, nil
}

var _ port.ClaimRepository = (*ClaimRepository)(nil)
