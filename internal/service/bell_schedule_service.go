package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// BellScheduleService manages the named bell schedules of an academic year.
type BellScheduleService struct {
	core      *TimetableCore
	schedules bellScheduleStore
	validator *validator.Validate
}

// NewBellScheduleService instantiates BellScheduleService.
func NewBellScheduleService(core *TimetableCore, schedules bellScheduleStore, validate *validator.Validate) *BellScheduleService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	return &BellScheduleService{core: core, schedules: schedules, validator: validate}
}

// List returns the schedules of a year, default first.
func (s *BellScheduleService) List(ctx context.Context, schoolID, yearID string) ([]models.BellSchedule, error) {
	if _, err := s.core.gate.load(ctx, schoolID, yearID); err != nil {
		return nil, err
	}
	schedules, err := s.schedules.ListByYear(ctx, nil, schoolID, yearID)
	if err != nil {
		return nil, internalError(err, "failed to list bell schedules")
	}
	return schedules, nil
}

// Create adds a schedule. A default schedule replaces the previous default.
func (s *BellScheduleService) Create(ctx context.Context, schoolID, yearID string, req dto.BellScheduleRequest) (*models.BellSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid bell schedule payload")
	}
	if _, err := s.core.gate.ensureMutable(ctx, schoolID, yearID); err != nil {
		return nil, err
	}

	schedule := &models.BellSchedule{
		SchoolID:       schoolID,
		AcademicYearID: yearID,
		Name:           strings.TrimSpace(req.Name),
		IsDefault:      req.IsDefault,
	}

	tx, err := s.core.begin(ctx)
	if err != nil {
		return nil, err
	}
	if schedule.IsDefault {
		if err := s.schedules.ClearDefault(ctx, tx, schoolID, yearID); err != nil {
			rollback(tx)
			return nil, internalError(err, "failed to clear default bell schedule")
		}
	}
	if err := s.schedules.Create(ctx, tx, schedule); err != nil {
		rollback(tx)
		if constraint, ok := repository.UniqueViolation(err); ok && constraint == repository.ConstraintBellName {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("bell schedule %q already exists", schedule.Name))
		}
		return nil, internalError(err, "failed to create bell schedule")
	}
	if err := tx.Commit(); err != nil {
		rollback(tx)
		return nil, internalError(err, "failed to commit bell schedule")
	}
	s.core.afterMutation(ctx, "create_schedule", schoolID, yearID, zap.String("schedule_id", schedule.ID))
	return schedule, nil
}

// SetDefault marks the schedule as its year's default.
func (s *BellScheduleService) SetDefault(ctx context.Context, schoolID, scheduleID string) (*models.BellSchedule, error) {
	schedule, err := s.schedules.FindByID(ctx, schoolID, scheduleID)
	if err != nil {
		return nil, notFoundOr(err, "bell schedule")
	}
	if _, err := s.core.gate.ensureMutable(ctx, schoolID, schedule.AcademicYearID); err != nil {
		return nil, err
	}
	if schedule.IsDefault {
		return schedule, nil
	}

	tx, err := s.core.begin(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.schedules.ClearDefault(ctx, tx, schoolID, schedule.AcademicYearID); err != nil {
		rollback(tx)
		return nil, internalError(err, "failed to clear default bell schedule")
	}
	if err := s.schedules.MarkDefault(ctx, tx, schedule.ID); err != nil {
		rollback(tx)
		return nil, internalError(err, "failed to mark default bell schedule")
	}
	if err := tx.Commit(); err != nil {
		rollback(tx)
		return nil, internalError(err, "failed to commit default bell schedule")
	}
	schedule.IsDefault = true
	s.core.afterMutation(ctx, "default_schedule", schoolID, schedule.AcademicYearID, zap.String("schedule_id", schedule.ID))
	return schedule, nil
}

// Delete removes an unused schedule.
func (s *BellScheduleService) Delete(ctx context.Context, schoolID, scheduleID string) error {
	schedule, err := s.schedules.FindByID(ctx, schoolID, scheduleID)
	if err != nil {
		return notFoundOr(err, "bell schedule")
	}
	if _, err := s.core.gate.ensureMutable(ctx, schoolID, schedule.AcademicYearID); err != nil {
		return err
	}
	count, err := s.schedules.CountPeriods(ctx, schedule.ID)
	if err != nil {
		return internalError(err, "failed to count schedule periods")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("bell schedule %s still has %d periods", schedule.Name, count))
	}
	if err := s.schedules.Delete(ctx, schedule.ID); err != nil {
		return internalError(err, "failed to delete bell schedule")
	}
	s.core.afterMutation(ctx, "delete_schedule", schoolID, schedule.AcademicYearID, zap.String("schedule_id", schedule.ID))
	return nil
}
