package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// LecturerRepository implements port.LecturerRepository
type LecturerRepository struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewLecturerRepository creates a new lecturer repository
func NewLecturerRepository(db *sql.DB, logger *zap.Logger) *LecturerRepository {
	return &LecturerRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Upsert inserts a profile or updates every field except created_at
func (r *LecturerRepository) Upsert(ctx context.Context, lecturer *entity.Lecturer) error {
	now := r.now().UTC()
	if lecturer.CreatedAt.IsZero() {
		lecturer.CreatedAt = now
	}
	lecturer.UpdatedAt = now

	query := `
		INSERT INTO lecturers (user_id, full_name, email, department, hourly_rate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			full_name = excluded.full_name,
			email = excluded.email,
			department = excluded.department,
			hourly_rate = excluded.hourly_rate,
			updated_at = excluded.updated_at
	`

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		lecturer.UserID,
		lecturer.FullName,
		lecturer.Email,
		lecturer.Department,
		lecturer.HourlyRate,
		lecturer.CreatedAt.UTC(),
		lecturer.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert lecturer", zap.String("user_id", lecturer.UserID), zap.Error(err))
		return fmt.Errorf("failed to upsert lecturer: %w", err)
	}

	return nil
}

// GetByUserID retrieves a profile, returning (nil, nil) when it does not exist
func (r *LecturerRepository) GetByUserID(ctx context.Context, userID string) (*entity.Lecturer, error) {
	query := `
		SELECT user_id, full_name, email, department, hourly_rate, created_at, updated_at
		FROM lecturers
		WHERE user_id = ?
	`

	lecturer, err := scanLecturer(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get lecturer", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to get lecturer: %w", err)
	}

	return lecturer, nil
}

// GetByUserIDs returns the profiles that exist for the given ids, keyed by user id
func (r *LecturerRepository) GetByUserIDs(ctx context.Context, userIDs []string) (map[string]*entity.Lecturer, error) {
	result := make(map[string]*entity.Lecturer, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT user_id, full_name, email, department, hourly_rate, created_at, updated_at
		FROM lecturers
		WHERE user_id IN (` + placeholders(len(userIDs)) + `)
	`

	args := make([]interface{}, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to get lecturers", zap.Int("count", len(userIDs)), zap.Error(err))
		return nil, fmt.Errorf("failed to get lecturers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		lecturer, err := scanLecturer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lecturer: %w", err)
		}
		result[lecturer.UserID] = lecturer
	}

	return result, rows.Err()
}

func scanLecturer(row scanner) (*entity.Lecturer, error) {
	var l entity.Lecturer
	if err := row.Scan(
		&l.UserID,
		&l.FullName,
		&l.Email,
		&l.Department,
		&l.HourlyRate,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &l, nil
}

var _ port.LecturerRepository = (*LecturerRepository)(nil)
