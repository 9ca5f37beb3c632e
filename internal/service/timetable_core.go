package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

var constraintDimensions = map[string]models.ConflictDimension{
	repository.ConstraintTeacherSlot: models.ConflictTeacher,
	repository.ConstraintSectionSlot: models.ConflictSection,
	repository.ConstraintRoomSlot:    models.ConflictRoom,
}

// TimetableCore holds the collaborators shared by every timetable service: the year lock gate,
// slot configuration, the booking ledger and the cache/metrics side effects of a mutation.
type TimetableCore struct {
	gate      yearGate
	patterns  workingPatternReader
	periods   timePeriodStore
	entries   timetableEntryStore
	resources resourceReader
	tx        txProvider
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewTimetableCore wires the shared collaborators. cache and metrics may be nil.
func NewTimetableCore(
	years academicYearReader,
	patterns workingPatternReader,
	periods timePeriodStore,
	entries timetableEntryStore,
	resources resourceReader,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
) *TimetableCore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableCore{
		gate:      yearGate{years: years},
		patterns:  patterns,
		periods:   periods,
		entries:   entries,
		resources: resources,
		tx:        tx,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
	}
}

func (c *TimetableCore) begin(ctx context.Context) (*sqlx.Tx, error) {
	if c.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := c.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, internalError(err, "failed to begin transaction")
	}
	return tx, nil
}

// ensureResources resolves the teacher and optional room within the school.
func (c *TimetableCore) ensureResources(ctx context.Context, schoolID, teacherID string, roomID *string) error {
	ok, err := c.resources.TeacherExists(ctx, schoolID, teacherID)
	if err != nil {
		return internalError(err, "failed to load teacher")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	if roomID == nil || *roomID == "" {
		return nil
	}
	ok, err = c.resources.RoomExists(ctx, schoolID, *roomID)
	if err != nil {
		return internalError(err, "failed to load room")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "room not found")
	}
	return nil
}

// resolvePeriod loads a period of the caller's school and requires it to belong to yearID.
func (c *TimetableCore) resolvePeriod(ctx context.Context, schoolID, yearID, periodID string) (*models.TimePeriod, error) {
	period, err := c.periods.FindByID(ctx, schoolID, periodID)
	if err != nil {
		return nil, notFoundOr(err, "time period")
	}
	if period.AcademicYearID != yearID {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, fmt.Sprintf("period %s belongs to another academic year", periodID))
	}
	return period, nil
}

// checkPlacement runs the period-scope, working-day, slot-existence and occupancy checks for a (day, period) target.
func (c *TimetableCore) checkPlacement(ctx context.Context, exec sqlx.ExtContext, schoolID, yearID string, day models.Weekday, periodID string, candidate SlotCandidate, order []models.ConflictDimension, exclude ...string) error {
	if _, err := c.resolvePeriod(ctx, schoolID, yearID, periodID); err != nil {
		return err
	}
	working, err := c.patterns.IsWorkingDay(ctx, schoolID, yearID, day)
	if err != nil {
		return internalError(err, "failed to load working pattern")
	}
	if !working {
		return appErrors.Clone(appErrors.ErrNonWorkingDay, fmt.Sprintf("cannot schedule on a holiday: %s is not a working day", day))
	}

	exists, err := c.periods.SlotExists(ctx, schoolID, periodID, day)
	if err != nil {
		return internalError(err, "failed to load time slot")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrConfiguration, fmt.Sprintf("period not configured for this day (%s)", day))
	}

	occupants, err := c.entries.ListBySlot(ctx, exec, schoolID, yearID, day, periodID)
	if err != nil {
		return internalError(err, "failed to load slot occupants")
	}
	if conflict := EvaluateSlot(occupants, candidate, order, exclude...); conflict != nil {
		return conflictError(conflict)
	}
	return nil
}

// slotTarget is a (day, period) an entry is being written to.
type slotTarget struct {
	day       models.Weekday
	periodID  string
	candidate SlotCandidate
}

func targetOf(entry models.TimetableEntry) slotTarget {
	return slotTarget{day: entry.Day, periodID: entry.PeriodID, candidate: candidateOf(entry)}
}

// translateWriteError turns a unique-violation raised by the database into the same conflict
// the pre-check would have reported, re-reading every written slot to name the winning entry.
func (c *TimetableCore) translateWriteError(ctx context.Context, err error, schoolID, yearID string, targets []slotTarget, exclude ...string) error {
	constraint, ok := repository.UniqueViolation(err)
	if !ok {
		return internalError(err, "failed to write timetable entry")
	}
	dim, known := constraintDimensions[constraint]
	if !known || len(targets) == 0 {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "timetable conflict")
	}

	for _, target := range targets {
		occupants, readErr := c.entries.ListBySlot(ctx, nil, schoolID, yearID, target.day, target.periodID)
		if readErr != nil {
			c.logger.Warn("re-read after unique violation failed", zap.Error(readErr))
			continue
		}
		if conflict := EvaluateSlot(occupants, target.candidate, []models.ConflictDimension{dim}, exclude...); conflict != nil {
			return conflictError(conflict)
		}
	}

	first := targets[0]
	return conflictError(&models.TimetableConflictError{
		Dimension: dim,
		Message:   fmt.Sprintf("%s already booked on %s period %s", dimensionNoun(dim), first.day, first.periodID),
		Conflict:  models.TimetableConflict{Dimension: dim, Day: first.day, PeriodID: first.periodID},
	})
}

// rejected records conflict metrics for an error returned by a mutating operation.
func (c *TimetableCore) rejected(err error) error {
	var conflict *models.TimetableConflictError
	if errors.As(err, &conflict) {
		c.metrics.RecordConflict(conflict.Dimension)
		c.logger.Debug("timetable conflict", zap.String("dimension", string(conflict.Dimension)), zap.String("message", conflict.Message))
	}
	return err
}

// afterMutation runs the side effects of a committed change.
func (c *TimetableCore) afterMutation(ctx context.Context, operation, schoolID, yearID string, fields ...zap.Field) {
	c.metrics.RecordMutation(operation)
	c.cache.InvalidateTimetable(ctx, schoolID, yearID)
	c.logger.Info("timetable mutation", append([]zap.Field{
		zap.String("operation", operation),
		zap.String("school_id", schoolID),
		zap.String("academic_year_id", yearID),
	}, fields...)...)
}

func conflictError(conflict *models.TimetableConflictError) error {
	return appErrors.Wrap(conflict, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, conflict.Message)
}

func dimensionNoun(dim models.ConflictDimension) string {
	switch dim {
	case models.ConflictTeacher:
		return "teacher"
	case models.ConflictSection:
		return "section"
	default:
		return "room"
	}
}

func asConflict(err error) *models.TimetableConflictError {
	var conflict *models.TimetableConflictError
	if errors.As(err, &conflict) {
		return conflict
	}
	return nil
}
