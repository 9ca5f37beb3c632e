package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// StructureCopyService clones bell schedules, periods and slots from one academic year into another.
type StructureCopyService struct {
	core      *TimetableCore
	schedules bellScheduleStore
	validator *validator.Validate
}

// NewStructureCopyService instantiates StructureCopyService.
func NewStructureCopyService(core *TimetableCore, schedules bellScheduleStore, validate *validator.Validate) *StructureCopyService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	return &StructureCopyService{core: core, schedules: schedules, validator: validate}
}

// CopyStructure copies the source year's structure into toYearID in one transaction. Schedules are
// matched by name so a repeated copy reuses them; copied periods go through the usual overlap checks.
func (s *StructureCopyService) CopyStructure(ctx context.Context, schoolID, toYearID string, req dto.CopyStructureRequest) (*dto.CopyStructureResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid copy payload")
	}
	if req.FromYearID == toYearID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "source and target academic years must differ")
	}
	if _, err := s.core.gate.ensureMutable(ctx, schoolID, toYearID); err != nil {
		return nil, err
	}
	if _, err := s.core.gate.load(ctx, schoolID, req.FromYearID); err != nil {
		return nil, err
	}

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

	sourcePeriods, err := s.core.periods.ListByYear(ctx, tx, schoolID, req.FromYearID)
	if err != nil {
		return nil, internalError(err, "failed to load source periods")
	}
	if len(sourcePeriods) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "source academic year has no periods to copy")
	}

	resp := &dto.CopyStructureResponse{FromYearID: req.FromYearID, ToYearID: toYearID}
	scheduleMap, created, err := s.copySchedules(ctx, tx, schoolID, req.FromYearID, toYearID)
	if err != nil {
		return nil, err
	}
	resp.Schedules = created

	targetPeriods, err := s.core.periods.ListByYear(ctx, tx, schoolID, toYearID)
	if err != nil {
		return nil, internalError(err, "failed to load target periods")
	}
	for _, src := range sourcePeriods {
		period := models.TimePeriod{
			SchoolID:       schoolID,
			AcademicYearID: toYearID,
			Name:           src.Name,
			StartTime:      src.StartTime,
			EndTime:        src.EndTime,
			Type:           src.Type,
			Days:           append([]string(nil), src.Days...),
		}
		if src.ScheduleID != nil {
			if id, ok := scheduleMap[*src.ScheduleID]; ok {
				period.ScheduleID = &id
			}
		}
		if err := checkPeriodConflicts(targetPeriods, period, ""); err != nil {
			return nil, err
		}
		if err := s.core.periods.Create(ctx, tx, &period); err != nil {
			return nil, internalError(err, "failed to copy time period")
		}
		slots, err := s.core.periods.ReplaceSlots(ctx, tx, period.ID, period.Weekdays())
		if err != nil {
			return nil, internalError(err, "failed to copy time slots")
		}
		targetPeriods = append(targetPeriods, period)
		resp.Periods++
		resp.Slots += len(slots)
	}

	if err := tx.Commit(); err != nil {
		return nil, internalError(err, "failed to commit structure copy")
	}
	committed = true

	s.core.afterMutation(ctx, "copy_structure", schoolID, toYearID,
		zap.String("from_year_id", req.FromYearID), zap.Int("periods", resp.Periods), zap.Int("slots", resp.Slots))
	return resp, nil
}

// copySchedules maps every source schedule id to a target schedule, creating the missing ones.
// The default flag is carried over only when the target has no default yet.
func (s *StructureCopyService) copySchedules(ctx context.Context, exec sqlx.ExtContext, schoolID, fromYearID, toYearID string) (map[string]string, int, error) {
	source, err := s.schedules.ListByYear(ctx, exec, schoolID, fromYearID)
	if err != nil {
		return nil, 0, internalError(err, "failed to load source schedules")
	}
	target, err := s.schedules.ListByYear(ctx, exec, schoolID, toYearID)
	if err != nil {
		return nil, 0, internalError(err, "failed to load target schedules")
	}

	byName := make(map[string]string, len(target))
	hasDefault := false
	for _, t := range target {
		byName[t.Name] = t.ID
		hasDefault = hasDefault || t.IsDefault
	}

	mapping := make(map[string]string, len(source))
	created := 0
	for _, src := range source {
		if id, ok := byName[src.Name]; ok {
			mapping[src.ID] = id
			continue
		}
		clone := models.BellSchedule{
			SchoolID:       schoolID,
			AcademicYearID: toYearID,
			Name:           src.Name,
			IsDefault:      src.IsDefault && !hasDefault,
		}
		if err := s.schedules.Create(ctx, exec, &clone); err != nil {
			return nil, 0, internalError(err, "failed to copy bell schedule")
		}
		hasDefault = hasDefault || clone.IsDefault
		byName[clone.Name] = clone.ID
		mapping[src.ID] = clone.ID
		created++
	}
	return mapping, created, nil
}
