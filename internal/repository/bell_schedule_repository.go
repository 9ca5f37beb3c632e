package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const bellScheduleColumns = `id, school_id, academic_year_id, name, is_default, created_at, updated_at`

// BellScheduleRepository persists named bell schedules.
type BellScheduleRepository struct {
	db *sqlx.DB
}

// NewBellScheduleRepository builds the repository.
func NewBellScheduleRepository(db *sqlx.DB) *BellScheduleRepository {
	return &BellScheduleRepository{db: db}
}

func (r *BellScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListByYear returns every schedule of a year, default first.
func (r *BellScheduleRepository) ListByYear(ctx context.Context, exec sqlx.ExtContext, schoolID, yearID string) ([]models.BellSchedule, error) {
	query := `SELECT ` + bellScheduleColumns + ` FROM bell_schedules WHERE school_id = $1 AND academic_year_id = $2 ORDER BY is_default DESC, name ASC`
	var schedules []models.BellSchedule
	if err := sqlx.SelectContext(ctx, r.exec(exec), &schedules, query, schoolID, yearID); err != nil {
		return nil, fmt.Errorf("list bell schedules: %w", err)
	}
	return schedules, nil
}

// FindByID returns the schedule scoped to the school or sql.ErrNoRows.
func (r *BellScheduleRepository) FindByID(ctx context.Context, schoolID, id string) (*models.BellSchedule, error) {
	query := `SELECT ` + bellScheduleColumns + ` FROM bell_schedules WHERE id = $1 AND school_id = $2`
	var schedule models.BellSchedule
	if err := r.db.GetContext(ctx, &schedule, query, id, schoolID); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// Create inserts a schedule, assigning id and timestamps when absent.
func (r *BellScheduleRepository) Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.BellSchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	const query = `INSERT INTO bell_schedules (id, school_id, academic_year_id, name, is_default, created_at, updated_at)
VALUES (:id, :school_id, :academic_year_id, :name, :is_default, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, schedule); err != nil {
		return fmt.Errorf("create bell schedule: %w", err)
	}
	return nil
}

// ClearDefault unsets the default flag on every schedule of the year.
func (r *BellScheduleRepository) ClearDefault(ctx context.Context, exec sqlx.ExtContext, schoolID, yearID string) error {
	const query = `UPDATE bell_schedules SET is_default = FALSE, updated_at = $3 WHERE school_id = $1 AND academic_year_id = $2 AND is_default`
	if _, err := r.exec(exec).ExecContext(ctx, query, schoolID, yearID, time.Now().UTC()); err != nil {
		return fmt.Errorf("clear default bell schedule: %w", err)
	}
	return nil
}

// MarkDefault flags a single schedule as the default.
func (r *BellScheduleRepository) MarkDefault(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `UPDATE bell_schedules SET is_default = TRUE, updated_at = $2 WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark default bell schedule: %w", err)
	}
	return nil
}

// Delete removes a schedule row.
func (r *BellScheduleRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM bell_schedules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete bell schedule: %w", err)
	}
	return nil
}

// CountPeriods returns how many periods reference the schedule.
func (r *BellScheduleRepository) CountPeriods(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM time_periods WHERE schedule_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count schedule periods: %w", err)
	}
	return count, nil
}
