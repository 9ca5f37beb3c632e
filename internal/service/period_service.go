package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// PeriodService configures time periods and keeps their day slots in sync.
type PeriodService struct {
	core      *TimetableCore
	schedules bellScheduleStore
	validator *validator.Validate
}

// NewPeriodService instantiates PeriodService.
func NewPeriodService(core *TimetableCore, schedules bellScheduleStore, validate *validator.Validate) *PeriodService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	return &PeriodService{core: core, schedules: schedules, validator: validate}
}

// ListPeriods returns the periods of a year ordered by start time.
func (s *PeriodService) ListPeriods(ctx context.Context, schoolID, yearID string) ([]models.TimePeriod, error) {
	if _, err := s.core.gate.load(ctx, schoolID, yearID); err != nil {
		return nil, err
	}
	periods, err := s.core.periods.ListByYear(ctx, nil, schoolID, yearID)
	if err != nil {
		return nil, internalError(err, "failed to list time periods")
	}
	return periods, nil
}

// build validates the payload and resolves the schedule reference.
func (s *PeriodService) build(ctx context.Context, schoolID, yearID string, req dto.PeriodRequest) (*models.TimePeriod, []models.Weekday, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, validationError(err, "invalid time period payload")
	}
	if _, _, err := periodRange(req.StartTime, req.EndTime); err != nil {
		return nil, nil, err
	}
	days, err := normalizeDays(req.Days)
	if err != nil {
		return nil, nil, err
	}

	var scheduleID *string
	if req.ScheduleID != nil && *req.ScheduleID != "" {
		schedule, err := s.schedules.FindByID(ctx, schoolID, *req.ScheduleID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrConfiguration, fmt.Sprintf("unknown scheduleId %s", *req.ScheduleID))
		}
		if err != nil {
			return nil, nil, internalError(err, "failed to load bell schedule")
		}
		if schedule.AcademicYearID != yearID {
			return nil, nil, appErrors.Clone(appErrors.ErrConfiguration, fmt.Sprintf("schedule %s belongs to another academic year", schedule.Name))
		}
		id := schedule.ID
		scheduleID = &id
	}

	period := &models.TimePeriod{
		SchoolID:       schoolID,
		AcademicYearID: yearID,
		ScheduleID:     scheduleID,
		Name:           strings.TrimSpace(req.Name),
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Type:           req.Type,
		Days:           weekdayStrings(days),
	}
	return period, days, nil
}

// CreatePeriod adds a period and materialises one slot per requested day.
func (s *PeriodService) CreatePeriod(ctx context.Context, schoolID, yearID string, req dto.PeriodRequest) (*models.TimePeriod, error) {
	if _, err := s.core.gate.ensureMutable(ctx, schoolID, yearID); err != nil {
		return nil, err
	}
	period, days, err := s.build(ctx, schoolID, yearID, req)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, period, days, ""); err != nil {
		return nil, err
	}
	s.core.afterMutation(ctx, "create_period", schoolID, yearID, zap.String("period_id", period.ID))
	return period, nil
}

// UpdatePeriod replaces a period definition. Dropping a day that still carries entries is refused.
func (s *PeriodService) UpdatePeriod(ctx context.Context, schoolID, periodID string, req dto.PeriodRequest) (*models.TimePeriod, error) {
	current, err := s.core.periods.FindByID(ctx, schoolID, periodID)
	if err != nil {
		return nil, notFoundOr(err, "time period")
	}
	if _, err := s.core.gate.ensureMutable(ctx, schoolID, current.AcademicYearID); err != nil {
		return nil, err
	}
	period, days, err := s.build(ctx, schoolID, current.AcademicYearID, req)
	if err != nil {
		return nil, err
	}

	if removed := removedDays(current.Weekdays(), days); len(removed) > 0 {
		count, err := s.core.entries.CountByPeriod(ctx, current.ID, removed)
		if err != nil {
			return nil, internalError(err, "failed to count timetable entries")
		}
		if count > 0 {
			return nil, appErrors.Clone(appErrors.ErrConflict,
				fmt.Sprintf("period %s still has %d timetable entries on the removed days", current.Name, count))
		}
	}

	period.ID = current.ID
	period.CreatedAt = current.CreatedAt
	if err := s.save(ctx, period, days, current.ID); err != nil {
		return nil, err
	}
	s.core.afterMutation(ctx, "update_period", schoolID, current.AcademicYearID, zap.String("period_id", period.ID))
	return period, nil
}

// save validates overlaps against the year's periods and writes the period with its slots in one transaction.
func (s *PeriodService) save(ctx context.Context, period *models.TimePeriod, days []models.Weekday, existingID string) error {
	tx, err := s.core.begin(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			rollback(tx)
		}
	}()

	existing, err := s.core.periods.ListByYear(ctx, tx, period.SchoolID, period.AcademicYearID)
	if err != nil {
		return internalError(err, "failed to load time periods")
	}
	if err := checkPeriodConflicts(existing, *period, existingID); err != nil {
		return err
	}

	if existingID == "" {
		err = s.core.periods.Create(ctx, tx, period)
	} else {
		err = s.core.periods.Update(ctx, tx, period)
	}
	if err != nil {
		return internalError(err, "failed to save time period")
	}
	if _, err := s.core.periods.ReplaceSlots(ctx, tx, period.ID, days); err != nil {
		return internalError(err, "failed to sync time slots")
	}
	if err := tx.Commit(); err != nil {
		return internalError(err, "failed to commit time period")
	}
	committed = true
	return nil
}

// DeletePeriod removes a period and its slots. It is refused while any entry references the period.
func (s *PeriodService) DeletePeriod(ctx context.Context, schoolID, periodID string) error {
	period, err := s.core.periods.FindByID(ctx, schoolID, periodID)
	if err != nil {
		return notFoundOr(err, "time period")
	}
	if _, err := s.core.gate.ensureMutable(ctx, schoolID, period.AcademicYearID); err != nil {
		return err
	}
	count, err := s.core.entries.CountByPeriod(ctx, period.ID, nil)
	if err != nil {
		return internalError(err, "failed to count timetable entries")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("period %s is referenced by %d timetable entries", period.Name, count))
	}

	tx, err := s.core.begin(ctx)
	if err != nil {
		return err
	}
	if err := s.core.periods.Delete(ctx, tx, period.ID); err != nil {
		rollback(tx)
		return internalError(err, "failed to delete time period")
	}
	if err := tx.Commit(); err != nil {
		rollback(tx)
		return internalError(err, "failed to commit period deletion")
	}
	s.core.afterMutation(ctx, "delete_period", schoolID, period.AcademicYearID, zap.String("period_id", period.ID))
	return nil
}

func removedDays(before, after []models.Weekday) []models.Weekday {
	keep := make(map[models.Weekday]struct{}, len(after))
	for _, d := range after {
		keep[d] = struct{}{}
	}
	var removed []models.Weekday
	for _, d := range before {
		if _, ok := keep[d]; !ok {
			removed = append(removed, d)
		}
	}
	return removed
}
