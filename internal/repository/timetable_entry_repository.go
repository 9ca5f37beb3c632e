package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const timetableEntryColumns = `id, school_id, academic_year_id, class_id, section_id, subject_id, teacher_id, period_id, day, room_id,
is_locked, status, published_at, published_by, created_at, updated_at`

// TimetableEntryRepository persists the booking ledger.
type TimetableEntryRepository struct {
	db *sqlx.DB
}

// NewTimetableEntryRepository builds the repository.
func NewTimetableEntryRepository(db *sqlx.DB) *TimetableEntryRepository {
	return &TimetableEntryRepository{db: db}
}

func (r *TimetableEntryRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID returns the entry scoped to the school. forUpdate takes a row lock and needs a transaction.
func (r *TimetableEntryRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, schoolID, id string, forUpdate bool) (*models.TimetableEntry, error) {
	query := `SELECT ` + timetableEntryColumns + ` FROM timetable_entries WHERE id = $1 AND school_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var entry models.TimetableEntry
	if err := sqlx.GetContext(ctx, r.exec(exec), &entry, query, id, schoolID); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListBySlot returns every entry booked at (day, period) in the year.
func (r *TimetableEntryRepository) ListBySlot(ctx context.Context, exec sqlx.ExtContext, schoolID, yearID string, day models.Weekday, periodID string) ([]models.TimetableEntry, error) {
	query := `SELECT ` + timetableEntryColumns + ` FROM timetable_entries
WHERE school_id = $1 AND academic_year_id = $2 AND day = $3 AND period_id = $4 ORDER BY created_at ASC`
	var entries []models.TimetableEntry
	if err := sqlx.SelectContext(ctx, r.exec(exec), &entries, query, schoolID, yearID, string(day), periodID); err != nil {
		return nil, fmt.Errorf("list entries by slot: %w", err)
	}
	return entries, nil
}

// List returns entries of a year matching the optional filters, ordered for grid rendering.
func (r *TimetableEntryRepository) List(ctx context.Context, filter models.TimetableEntryFilter) ([]models.TimetableEntry, error) {
	conditions := []string{"school_id = $1", "academic_year_id = $2"}
	args := []interface{}{filter.SchoolID, filter.AcademicYearID}
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("section_id", filter.SectionID)
	add("teacher_id", filter.TeacherID)
	add("room_id", filter.RoomID)
	add("day", string(filter.Day))

	query := `SELECT ` + timetableEntryColumns + ` FROM timetable_entries WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY day ASC, period_id ASC, section_id ASC`
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// Create inserts an entry. Status and lock flag are taken from the struct as given.
func (r *TimetableEntryRepository) Create(ctx context.Context, exec sqlx.ExtContext, entry *models.TimetableEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	const query = `INSERT INTO timetable_entries (id, school_id, academic_year_id, class_id, section_id, subject_id, teacher_id, period_id, day,
room_id, is_locked, status, created_at, updated_at)
VALUES (:id, :school_id, :academic_year_id, :class_id, :section_id, :subject_id, :teacher_id, :period_id, :day,
:room_id, :is_locked, :status, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, entry); err != nil {
		return fmt.Errorf("create timetable entry: %w", err)
	}
	return nil
}

// UpdateSlot moves an entry to another (day, period), leaving every other column untouched.
func (r *TimetableEntryRepository) UpdateSlot(ctx context.Context, exec sqlx.ExtContext, id string, day models.Weekday, periodID string) error {
	const query = `UPDATE timetable_entries SET day = $2, period_id = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, id, string(day), periodID, time.Now().UTC()); err != nil {
		return fmt.Errorf("move timetable entry: %w", err)
	}
	return nil
}

// SwapSlots exchanges day and period (and room when swapRooms) of two entries in one statement,
// so the deferrable unique constraints only see the final state.
func (r *TimetableEntryRepository) SwapSlots(ctx context.Context, exec sqlx.ExtContext, a, b models.TimetableEntry, swapRooms bool) error {
	const query = `UPDATE timetable_entries SET
day = CASE id WHEN $1 THEN $3 ELSE $4 END,
period_id = CASE id WHEN $1 THEN $5 ELSE $6 END,
room_id = CASE WHEN $9::boolean THEN (CASE id WHEN $1 THEN $7::text ELSE $8::text END) ELSE room_id END,
updated_at = $10
WHERE id IN ($1, $2)`
	res, err := r.exec(exec).ExecContext(ctx, query,
		a.ID, b.ID,
		string(b.Day), string(a.Day),
		b.PeriodID, a.PeriodID,
		b.RoomID, a.RoomID,
		swapRooms, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("swap timetable entries: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected != 2 {
		return fmt.Errorf("swap timetable entries: expected 2 rows, updated %d", affected)
	}
	return nil
}

// SetLocked flips the per-entry lock flag.
func (r *TimetableEntryRepository) SetLocked(ctx context.Context, exec sqlx.ExtContext, id string, locked bool) error {
	const query = `UPDATE timetable_entries SET is_locked = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, id, locked, time.Now().UTC()); err != nil {
		return fmt.Errorf("lock timetable entry: %w", err)
	}
	return nil
}

// Delete removes an entry.
func (r *TimetableEntryRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `DELETE FROM timetable_entries WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete timetable entry: %w", err)
	}
	return nil
}

// CountByPeriod counts entries on the period, optionally limited to the given days.
func (r *TimetableEntryRepository) CountByPeriod(ctx context.Context, periodID string, days []models.Weekday) (int, error) {
	query := `SELECT COUNT(*) FROM timetable_entries WHERE period_id = $1`
	args := []interface{}{periodID}
	if len(days) > 0 {
		values := make([]string, 0, len(days))
		for _, d := range days {
			values = append(values, string(d))
		}
		query += ` AND day = ANY($2)`
		args = append(args, pq.Array(values))
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count period entries: %w", err)
	}
	return count, nil
}

// UpdateStatus moves every entry in scope whose status is in sources to target.
// Non-nil publishedAt/publishedBy are stamped, otherwise the existing stamp is kept.
func (r *TimetableEntryRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, scope models.EntryScope, target models.EntryStatus, sources []string, publishedAt *time.Time, publishedBy *string) (int64, error) {
	query := `UPDATE timetable_entries SET status = $3, updated_at = $4,
published_at = COALESCE($5::timestamptz, published_at), published_by = COALESCE($6::text, published_by)
WHERE school_id = $1 AND academic_year_id = $2 AND status = ANY($7)`
	args := []interface{}{scope.SchoolID, scope.AcademicYearID, string(target), time.Now().UTC(), publishedAt, publishedBy, pq.Array(sources)}
	if scope.SectionID != "" {
		query += ` AND section_id = $8`
		args = append(args, scope.SectionID)
	}
	res, err := r.exec(exec).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update entry status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update entry status: %w", err)
	}
	return affected, nil
}
