package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// TimetableService is the booking ledger: it creates, checks, lists and deletes entries.
type TimetableService struct {
	core      *TimetableCore
	schedules bellScheduleStore
	validator *validator.Validate
}

// NewTimetableService instantiates TimetableService.
func NewTimetableService(core *TimetableCore, schedules bellScheduleStore, validate *validator.Validate) *TimetableService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	return &TimetableService{core: core, schedules: schedules, validator: validate}
}

func (s *TimetableService) prepare(req dto.EntryRequest) (*models.TimetableEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid timetable entry payload")
	}
	day, err := parseDay(req.Day)
	if err != nil {
		return nil, err
	}
	entry := &models.TimetableEntry{
		ClassID:   req.ClassID,
		SectionID: req.SectionID,
		SubjectID: req.SubjectID,
		TeacherID: req.TeacherID,
		PeriodID:  req.PeriodID,
		Day:       day,
		Status:    models.EntryStatusInitial,
		IsLocked:  false,
	}
	if req.RoomID != nil && *req.RoomID != "" {
		room := *req.RoomID
		entry.RoomID = &room
	}
	return entry, nil
}

// evaluate is the shared rule set of CreateEntry and CheckAvailability.
func (s *TimetableService) evaluate(ctx context.Context, exec sqlx.ExtContext, schoolID, yearID string, entry *models.TimetableEntry) error {
	if err := s.core.ensureResources(ctx, schoolID, entry.TeacherID, entry.RoomID); err != nil {
		return err
	}
	return s.core.checkPlacement(ctx, exec, schoolID, yearID, entry.Day, entry.PeriodID, candidateOf(*entry), BookingOrder)
}

// CreateEntry books an entry after the lock, configuration and conflict checks. The insert runs in a
// transaction and a unique-constraint violation is reported as the matching conflict.
func (s *TimetableService) CreateEntry(ctx context.Context, schoolID, yearID string, req dto.EntryRequest) (*models.TimetableEntry, error) {
	entry, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.core.gate.ensureMutable(ctx, schoolID, yearID); err != nil {
		return nil, err
	}
	entry.SchoolID = schoolID
	entry.AcademicYearID = yearID

	tx, err := s.core.begin(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			rollback(tx)
		}
	}()

	if err := s.evaluate(ctx, tx, schoolID, yearID, entry); err != nil {
		return nil, s.core.rejected(err)
	}
	if err := s.core.entries.Create(ctx, tx, entry); err != nil {
		rollback(tx)
		return nil, s.core.rejected(s.core.translateWriteError(ctx, err, schoolID, yearID, []slotTarget{targetOf(*entry)}))
	}
	if err := tx.Commit(); err != nil {
		return nil, s.core.rejected(s.core.translateWriteError(ctx, err, schoolID, yearID, []slotTarget{targetOf(*entry)}))
	}
	committed = true

	s.core.afterMutation(ctx, "create_entry", schoolID, yearID, zap.String("entry_id", entry.ID))
	return entry, nil
}

// CheckAvailability runs the booking rules without writing. Business refusals are reported in the
// response; malformed input, unknown resources and infrastructure failures are returned as errors.
func (s *TimetableService) CheckAvailability(ctx context.Context, schoolID, yearID string, req dto.EntryRequest) (*dto.AvailabilityResponse, error) {
	entry, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.core.gate.load(ctx, schoolID, yearID); err != nil {
		return nil, err
	}

	err = s.evaluate(ctx, nil, schoolID, yearID, entry)
	if err == nil {
		return &dto.AvailabilityResponse{Status: dto.AvailabilityOK}, nil
	}

	var conflict *models.TimetableConflictError
	if errors.As(err, &conflict) {
		detail := conflict.Conflict
		return &dto.AvailabilityResponse{
			Status:    dto.AvailabilityConflict,
			Message:   conflict.Message,
			Dimension: conflict.Dimension,
			Conflict:  &detail,
		}, nil
	}
	if appErrors.Is(err, appErrors.ErrNonWorkingDay) || appErrors.Is(err, appErrors.ErrConfiguration) {
		return &dto.AvailabilityResponse{Status: dto.AvailabilityConflict, Message: appErrors.FromError(err).Message}, nil
	}
	return nil, err
}

// DeleteEntry hard-deletes an entry unless the year or the entry is locked.
func (s *TimetableService) DeleteEntry(ctx context.Context, schoolID, entryID string) error {
	entry, err := s.core.entries.FindByID(ctx, nil, schoolID, entryID, false)
	if err != nil {
		return notFoundOr(err, "timetable entry")
	}
	if _, err := s.core.gate.ensureMutable(ctx, schoolID, entry.AcademicYearID); err != nil {
		return err
	}
	if entry.Frozen() {
		return appErrors.Clone(appErrors.ErrLocked, "timetable entry "+entry.ID+" is locked")
	}
	if err := s.core.entries.Delete(ctx, nil, entry.ID); err != nil {
		return internalError(err, "failed to delete timetable entry")
	}
	s.core.afterMutation(ctx, "delete_entry", schoolID, entry.AcademicYearID, zap.String("entry_id", entry.ID))
	return nil
}

// GetEntry returns one entry of the school.
func (s *TimetableService) GetEntry(ctx context.Context, schoolID, entryID string) (*models.TimetableEntry, error) {
	entry, err := s.core.entries.FindByID(ctx, nil, schoolID, entryID, false)
	if err != nil {
		return nil, notFoundOr(err, "timetable entry")
	}
	return entry, nil
}

// ListEntries returns a year's entries filtered by section, teacher, room or day.
func (s *TimetableService) ListEntries(ctx context.Context, schoolID, yearID string, query dto.EntryQuery) ([]models.TimetableEntry, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError(err, "invalid entry filter")
	}
	filter := models.TimetableEntryFilter{
		SchoolID:       schoolID,
		AcademicYearID: yearID,
		SectionID:      query.SectionID,
		TeacherID:      query.TeacherID,
		RoomID:         query.RoomID,
	}
	if query.Day != "" {
		day, err := parseDay(query.Day)
		if err != nil {
			return nil, err
		}
		filter.Day = day
	}
	entries, err := s.core.entries.List(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to list timetable entries")
	}
	return entries, nil
}

// GetContext returns periods grouped by day plus the section's entries, allocations and the bookable rooms.
func (s *TimetableService) GetContext(ctx context.Context, schoolID, yearID, sectionID string) (*dto.TimetableContext, error) {
	if sectionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sectionId is required")
	}
	if _, err := s.core.gate.load(ctx, schoolID, yearID); err != nil {
		return nil, err
	}

	schedules, err := s.schedules.ListByYear(ctx, nil, schoolID, yearID)
	if err != nil {
		return nil, internalError(err, "failed to list bell schedules")
	}
	periods, err := s.core.periods.ListByYear(ctx, nil, schoolID, yearID)
	if err != nil {
		return nil, internalError(err, "failed to list time periods")
	}
	entries, err := s.core.entries.List(ctx, models.TimetableEntryFilter{SchoolID: schoolID, AcademicYearID: yearID, SectionID: sectionID})
	if err != nil {
		return nil, internalError(err, "failed to list timetable entries")
	}
	allocations, err := s.core.resources.ListAllocations(ctx, schoolID, yearID, sectionID)
	if err != nil {
		return nil, internalError(err, "failed to list subject allocations")
	}
	rooms, err := s.core.resources.ListActiveRooms(ctx, schoolID)
	if err != nil {
		return nil, internalError(err, "failed to list rooms")
	}

	return &dto.TimetableContext{
		AcademicYearID: yearID,
		SectionID:      sectionID,
		Schedules:      schedules,
		Days:           groupPeriodsByDay(periods),
		Entries:        entries,
		Allocations:    allocations,
		Rooms:          rooms,
	}, nil
}

// groupPeriodsByDay keeps the incoming start-time order within each day and skips empty days.
func groupPeriodsByDay(periods []models.TimePeriod) []dto.DayPeriods {
	byDay := make(map[models.Weekday][]models.TimePeriod)
	for _, p := range periods {
		for _, d := range p.Weekdays() {
			byDay[d] = append(byDay[d], p)
		}
	}
	days := make([]dto.DayPeriods, 0, len(byDay))
	for _, d := range models.Weekdays {
		if list, ok := byDay[d]; ok {
			days = append(days, dto.DayPeriods{Day: d, Periods: list})
		}
	}
	return days
}
