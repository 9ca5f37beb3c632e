package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

var analyticsColumns = map[models.AnalyticsDimension]string{
	models.AnalyticsByTeacher: "teacher_id",
	models.AnalyticsByRoom:    "room_id",
	models.AnalyticsBySubject: "subject_id",
	models.AnalyticsBySection: "section_id",
	models.AnalyticsByDay:     "day",
}

// AnalyticsRepository runs read-only aggregations over the booking ledger.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository builds the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// CountBy groups the year's entries by the whitelisted dimension.
func (r *AnalyticsRepository) CountBy(ctx context.Context, schoolID, yearID string, dim models.AnalyticsDimension) ([]models.WorkloadBucket, error) {
	column, ok := analyticsColumns[dim]
	if !ok {
		return nil, fmt.Errorf("unsupported analytics dimension %q", dim)
	}
	query := fmt.Sprintf(`SELECT %[1]s AS bucket, COUNT(*) AS entries FROM timetable_entries
WHERE school_id = $1 AND academic_year_id = $2 AND %[1]s IS NOT NULL
GROUP BY %[1]s ORDER BY entries DESC, bucket ASC`, column)
	var buckets []models.WorkloadBucket
	if err := r.db.SelectContext(ctx, &buckets, query, schoolID, yearID); err != nil {
		return nil, fmt.Errorf("count entries by %s: %w", dim, err)
	}
	return buckets, nil
}

// RoomBookings counts entries per active room, including rooms with none.
func (r *AnalyticsRepository) RoomBookings(ctx context.Context, schoolID, yearID string) ([]models.RoomUtilization, error) {
	const query = `SELECT r.id AS room_id, r.name AS room_name, COUNT(e.id) AS booked
FROM rooms r
LEFT JOIN timetable_entries e ON e.room_id = r.id AND e.school_id = r.school_id AND e.academic_year_id = $2
WHERE r.school_id = $1 AND r.active
GROUP BY r.id, r.name ORDER BY booked DESC, r.name ASC`
	var rooms []models.RoomUtilization
	if err := r.db.SelectContext(ctx, &rooms, query, schoolID, yearID); err != nil {
		return nil, fmt.Errorf("count room bookings: %w", err)
	}
	return rooms, nil
}

// CountTeachingSlots counts the weekly (day, teaching period) slots configured for the year.
func (r *AnalyticsRepository) CountTeachingSlots(ctx context.Context, schoolID, yearID string) (int, error) {
	const query = `SELECT COUNT(*) FROM time_slots s JOIN time_periods p ON p.id = s.period_id
WHERE p.school_id = $1 AND p.academic_year_id = $2 AND p.period_type = 'TEACHING'`
	var count int
	if err := r.db.GetContext(ctx, &count, query, schoolID, yearID); err != nil {
		return 0, fmt.Errorf("count teaching slots: %w", err)
	}
	return count, nil
}
