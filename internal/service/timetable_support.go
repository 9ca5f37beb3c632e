package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type academicYearReader interface {
	FindByID(ctx context.Context, schoolID, id string) (*models.AcademicYear, error)
}

type workingPatternReader interface {
	IsWorkingDay(ctx context.Context, schoolID, yearID string, day models.Weekday) (bool, error)
}

type bellScheduleStore interface {
	ListByYear(ctx context.Context, exec sqlx.ExtContext, schoolID, yearID string) ([]models.BellSchedule, error)
	FindByID(ctx context.Context, schoolID, id string) (*models.BellSchedule, error)
	Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.BellSchedule) error
	ClearDefault(ctx context.Context, exec sqlx.ExtContext, schoolID, yearID string) error
	MarkDefault(ctx context.Context, exec sqlx.ExtContext, id string) error
	Delete(ctx context.Context, id string) error
	CountPeriods(ctx context.Context, id string) (int, error)
}

type timePeriodStore interface {
	ListByYear(ctx context.Context, exec sqlx.ExtContext, schoolID, yearID string) ([]models.TimePeriod, error)
	FindByID(ctx context.Context, schoolID, id string) (*models.TimePeriod, error)
	Create(ctx context.Context, exec sqlx.ExtContext, period *models.TimePeriod) error
	Update(ctx context.Context, exec sqlx.ExtContext, period *models.TimePeriod) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
	ReplaceSlots(ctx context.Context, exec sqlx.ExtContext, periodID string, days []models.Weekday) ([]models.TimeSlot, error)
	SlotExists(ctx context.Context, schoolID, periodID string, day models.Weekday) (bool, error)
}

type timetableEntryStore interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, schoolID, id string, forUpdate bool) (*models.TimetableEntry, error)
	ListBySlot(ctx context.Context, exec sqlx.ExtContext, schoolID, yearID string, day models.Weekday, periodID string) ([]models.TimetableEntry, error)
	List(ctx context.Context, filter models.TimetableEntryFilter) ([]models.TimetableEntry, error)
	Create(ctx context.Context, exec sqlx.ExtContext, entry *models.TimetableEntry) error
	UpdateSlot(ctx context.Context, exec sqlx.ExtContext, id string, day models.Weekday, periodID string) error
	SwapSlots(ctx context.Context, exec sqlx.ExtContext, a, b models.TimetableEntry, swapRooms bool) error
	SetLocked(ctx context.Context, exec sqlx.ExtContext, id string, locked bool) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
	CountByPeriod(ctx context.Context, periodID string, days []models.Weekday) (int, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, scope models.EntryScope, target models.EntryStatus, sources []string, publishedAt *time.Time, publishedBy *string) (int64, error)
}

type resourceReader interface {
	ListActiveTeachers(ctx context.Context, schoolID string) ([]models.TeacherOption, error)
	ListActiveRooms(ctx context.Context, schoolID string) ([]models.Room, error)
	TeacherExists(ctx context.Context, schoolID, id string) (bool, error)
	RoomExists(ctx context.Context, schoolID, id string) (bool, error)
	ListAllocations(ctx context.Context, schoolID, yearID, sectionID string) ([]models.SubjectAllocation, error)
}

// yearGate resolves an academic year and rejects writes once it is closed or archived.
type yearGate struct {
	years academicYearReader
}

func (g yearGate) load(ctx context.Context, schoolID, yearID string) (*models.AcademicYear, error) {
	year, err := g.years.FindByID(ctx, schoolID, yearID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	return year, nil
}

func (g yearGate) ensureMutable(ctx context.Context, schoolID, yearID string) (*models.AcademicYear, error) {
	year, err := g.load(ctx, schoolID, yearID)
	if err != nil {
		return nil, err
	}
	if year.Locked() {
		return nil, appErrors.Clone(appErrors.ErrLocked, fmt.Sprintf("academic year %s is %s", year.Name, strings.ToLower(string(year.Status))))
	}
	return year, nil
}

// normalizeDays parses, de-duplicates and orders weekdays Monday first.
func normalizeDays(raw []string) ([]models.Weekday, error) {
	seen := make(map[models.Weekday]struct{}, len(raw))
	days := make([]models.Weekday, 0, len(raw))
	for _, value := range raw {
		day, ok := models.ParseWeekday(value)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("days: unknown weekday %q", value))
		}
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Index() < days[j].Index() })
	return days, nil
}

func parseDay(raw string) (models.Weekday, error) {
	day, ok := models.ParseWeekday(raw)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day: unknown weekday %q", raw))
	}
	return day, nil
}

func weekdayStrings(days []models.Weekday) []string {
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, string(d))
	}
	return out
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func notFoundOr(err error, resource string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, resource+" not found")
	}
	return internalError(err, "failed to load "+resource)
}

func rollback(tx *sqlx.Tx) {
	if tx != nil {
		_ = tx.Rollback()
	}
}

func optionalString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
