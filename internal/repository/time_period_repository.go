package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const timePeriodColumns = `id, school_id, academic_year_id, schedule_id, name, start_time, end_time, period_type, days, created_at, updated_at`

// TimePeriodRepository persists periods and their materialised day slots.
type TimePeriodRepository struct {
	db *sqlx.DB
}

// NewTimePeriodRepository builds the repository.
func NewTimePeriodRepository(db *sqlx.DB) *TimePeriodRepository {
	return &TimePeriodRepository{db: db}
}

func (r *TimePeriodRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListByYear returns all periods of a year ordered by start time.
func (r *TimePeriodRepository) ListByYear(ctx context.Context, exec sqlx.ExtContext, schoolID, yearID string) ([]models.TimePeriod, error) {
	query := `SELECT ` + timePeriodColumns + ` FROM time_periods WHERE school_id = $1 AND academic_year_id = $2 ORDER BY start_time ASC, name ASC`
	var periods []models.TimePeriod
	if err := sqlx.SelectContext(ctx, r.exec(exec), &periods, query, schoolID, yearID); err != nil {
		return nil, fmt.Errorf("list time periods: %w", err)
	}
	return periods, nil
}

// FindByID returns the period scoped to the school or sql.ErrNoRows.
func (r *TimePeriodRepository) FindByID(ctx context.Context, schoolID, id string) (*models.TimePeriod, error) {
	query := `SELECT ` + timePeriodColumns + ` FROM time_periods WHERE id = $1 AND school_id = $2`
	var period models.TimePeriod
	if err := r.db.GetContext(ctx, &period, query, id, schoolID); err != nil {
		return nil, err
	}
	return &period, nil
}

// Create inserts a period, assigning id and timestamps.
func (r *TimePeriodRepository) Create(ctx context.Context, exec sqlx.ExtContext, period *models.TimePeriod) error {
	if period.ID == "" {
		period.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	period.CreatedAt = now
	period.UpdatedAt = now

	const query = `INSERT INTO time_periods (id, school_id, academic_year_id, schedule_id, name, start_time, end_time, period_type, days, created_at, updated_at)
VALUES (:id, :school_id, :academic_year_id, :schedule_id, :name, :start_time, :end_time, :period_type, :days, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, period); err != nil {
		return fmt.Errorf("create time period: %w", err)
	}
	return nil
}

// Update overwrites the mutable columns of a period.
func (r *TimePeriodRepository) Update(ctx context.Context, exec sqlx.ExtContext, period *models.TimePeriod) error {
	period.UpdatedAt = time.Now().UTC()
	const query = `UPDATE time_periods SET schedule_id = :schedule_id, name = :name, start_time = :start_time, end_time = :end_time,
period_type = :period_type, days = :days, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, period); err != nil {
		return fmt.Errorf("update time period: %w", err)
	}
	return nil
}

// Delete removes the period together with its slots.
func (r *TimePeriodRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM time_slots WHERE period_id = $1`, id); err != nil {
		return fmt.Errorf("delete time slots: %w", err)
	}
	if _, err := target.ExecContext(ctx, `DELETE FROM time_periods WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete time period: %w", err)
	}
	return nil
}

// ReplaceSlots drops every slot of the period and recreates one per day.
func (r *TimePeriodRepository) ReplaceSlots(ctx context.Context, exec sqlx.ExtContext, periodID string, days []models.Weekday) ([]models.TimeSlot, error) {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM time_slots WHERE period_id = $1`, periodID); err != nil {
		return nil, fmt.Errorf("clear time slots: %w", err)
	}

	const query = `INSERT INTO time_slots (id, period_id, day, created_at) VALUES (:id, :period_id, :day, :created_at)`
	now := time.Now().UTC()
	slots := make([]models.TimeSlot, 0, len(days))
	for _, day := range days {
		slot := models.TimeSlot{ID: uuid.NewString(), PeriodID: periodID, Day: day, CreatedAt: now}
		if _, err := sqlx.NamedExecContext(ctx, target, query, slot); err != nil {
			return nil, fmt.Errorf("insert time slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// SlotExists reports whether the school's period is active on day.
func (r *TimePeriodRepository) SlotExists(ctx context.Context, schoolID, periodID string, day models.Weekday) (bool, error) {
	const query = `SELECT EXISTS (
	SELECT 1 FROM time_slots s
	JOIN time_periods p ON p.id = s.period_id
	WHERE s.period_id = $1 AND s.day = $2 AND p.school_id = $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, periodID, string(day), schoolID); err != nil {
		return false, fmt.Errorf("check time slot: %w", err)
	}
	return exists, nil
}
