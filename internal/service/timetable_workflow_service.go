package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// TimetableWorkflowService mutates committed entries: move, swap, lock and bulk status changes.
type TimetableWorkflowService struct {
	core           *TimetableCore
	validator      *validator.Validate
	swapMovesRooms bool
}

// NewTimetableWorkflowService instantiates the workflow engine. swapMovesRooms sets whether a swap
// carries each entry's room along with its slot when the request does not say.
func NewTimetableWorkflowService(core *TimetableCore, validate *validator.Validate, swapMovesRooms bool) *TimetableWorkflowService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	return &TimetableWorkflowService{core: core, validator: validate, swapMovesRooms: swapMovesRooms}
}

func (s *TimetableWorkflowService) lockedEntry(ctx context.Context, exec sqlx.ExtContext, schoolID, entryID string) (*models.TimetableEntry, error) {
	entry, err := s.core.entries.FindByID(ctx, exec, schoolID, entryID, exec != nil)
	if err != nil {
		return nil, notFoundOr(err, "timetable entry")
	}
	return entry, nil
}

func ensureUnfrozen(entries ...*models.TimetableEntry) error {
	for _, e := range entries {
		if e.Frozen() {
			return appErrors.Clone(appErrors.ErrLocked, fmt.Sprintf("timetable entry %s is locked", e.ID))
		}
	}
	return nil
}

// MoveEntry relocates an entry to another (day, period). The section is checked first so a busy
// target slot asks the caller to swap instead; teacher and room follow.
func (s *TimetableWorkflowService) MoveEntry(ctx context.Context, schoolID, entryID string, req dto.MoveEntryRequest) (*models.TimetableEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid move payload")
	}
	day, err := parseDay(req.Day)
	if err != nil {
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

	entry, err := s.lockedEntry(ctx, tx, schoolID, entryID)
	if err != nil {
		return nil, err
	}
	if _, err := s.core.gate.ensureMutable(ctx, schoolID, entry.AcademicYearID); err != nil {
		return nil, err
	}
	if err := ensureUnfrozen(entry); err != nil {
		return nil, err
	}

	target := slotTarget{day: day, periodID: req.PeriodID, candidate: candidateOf(*entry)}
	if err := s.core.checkPlacement(ctx, tx, schoolID, entry.AcademicYearID, day, target.periodID, target.candidate, MoveOrder, entry.ID); err != nil {
		return nil, s.core.rejected(swapHint(err))
	}
	if err := s.core.entries.UpdateSlot(ctx, tx, entry.ID, day, target.periodID); err != nil {
		rollback(tx)
		return nil, s.core.rejected(s.core.translateWriteError(ctx, err, schoolID, entry.AcademicYearID, []slotTarget{target}, entry.ID))
	}
	if err := tx.Commit(); err != nil {
		return nil, internalError(err, "failed to commit move")
	}
	committed = true

	from := fmt.Sprintf("%s/%s", entry.Day, entry.PeriodID)
	entry.Day = day
	entry.PeriodID = target.periodID
	entry.UpdatedAt = time.Now().UTC()
	s.core.afterMutation(ctx, "move_entry", schoolID, entry.AcademicYearID,
		zap.String("entry_id", entry.ID), zap.String("from", from), zap.String("to", fmt.Sprintf("%s/%s", day, target.periodID)))
	return entry, nil
}

// swapHint rewrites a section conflict on move into the "occupied, swap instead" refusal.
func swapHint(err error) error {
	conflict := asConflict(err)
	if conflict == nil || conflict.Dimension != models.ConflictSection {
		return err
	}
	hinted := *conflict
	hinted.Message = fmt.Sprintf("target slot %s period %s is occupied for section %s (class %s); swap instead",
		conflict.Conflict.Day, conflict.Conflict.PeriodID, conflict.Conflict.SectionID, conflict.Conflict.ClassID)
	return conflictError(&hinted)
}

// SwapEntries exchanges the slots of two entries in one statement. Each entry gets the full placement
// check at its counterpart's slot with both entries excluded, since they vacate those slots.
func (s *TimetableWorkflowService) SwapEntries(ctx context.Context, schoolID string, req dto.SwapEntriesRequest) (*dto.SwapEntriesResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid swap payload")
	}
	swapRooms := s.swapMovesRooms
	if req.KeepRooms != nil {
		swapRooms = !*req.KeepRooms
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

	// Row locks are taken in id order so concurrent swaps of the same pair cannot deadlock.
	firstID, secondID := req.EntryID1, req.EntryID2
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}
	first, err := s.lockedEntry(ctx, tx, schoolID, firstID)
	if err != nil {
		return nil, err
	}
	second, err := s.lockedEntry(ctx, tx, schoolID, secondID)
	if err != nil {
		return nil, err
	}
	if first.ID != req.EntryID1 {
		first, second = second, first
	}

	if first.AcademicYearID != second.AcademicYearID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "entries belong to different academic years")
	}
	yearID := first.AcademicYearID
	if _, err := s.core.gate.ensureMutable(ctx, schoolID, yearID); err != nil {
		return nil, err
	}
	if err := ensureUnfrozen(first, second); err != nil {
		return nil, err
	}

	firstAfter, secondAfter := swapped(*first, *second, swapRooms)
	targets := []slotTarget{targetOf(firstAfter), targetOf(secondAfter)}
	for _, target := range targets {
		if err := s.core.checkPlacement(ctx, tx, schoolID, yearID, target.day, target.periodID, target.candidate, BookingOrder, first.ID, second.ID); err != nil {
			return nil, s.core.rejected(err)
		}
	}

	if err := s.core.entries.SwapSlots(ctx, tx, *first, *second, swapRooms); err != nil {
		rollback(tx)
		return nil, s.core.rejected(s.core.translateWriteError(ctx, err, schoolID, yearID, targets, first.ID, second.ID))
	}
	if err := tx.Commit(); err != nil {
		return nil, internalError(err, "failed to commit swap")
	}
	committed = true

	s.core.afterMutation(ctx, "swap_entries", schoolID, yearID,
		zap.String("entry_id", first.ID), zap.String("counterpart_id", second.ID), zap.Bool("rooms_swapped", swapRooms))
	return &dto.SwapEntriesResponse{First: firstAfter, Second: secondAfter}, nil
}

// swapped returns both entries as they will look after the swap.
func swapped(a, b models.TimetableEntry, swapRooms bool) (models.TimetableEntry, models.TimetableEntry) {
	now := time.Now().UTC()
	a2, b2 := a, b
	a2.Day, b2.Day = b.Day, a.Day
	a2.PeriodID, b2.PeriodID = b.PeriodID, a.PeriodID
	if swapRooms {
		a2.RoomID, b2.RoomID = b.RoomID, a.RoomID
	}
	a2.UpdatedAt, b2.UpdatedAt = now, now
	return a2, b2
}

// LockEntry flips the per-entry lock flag regardless of status.
func (s *TimetableWorkflowService) LockEntry(ctx context.Context, schoolID, entryID string, req dto.LockEntryRequest) (*models.TimetableEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid lock payload")
	}
	entry, err := s.lockedEntry(ctx, nil, schoolID, entryID)
	if err != nil {
		return nil, err
	}
	if _, err := s.core.gate.ensureMutable(ctx, schoolID, entry.AcademicYearID); err != nil {
		return nil, err
	}
	if err := s.core.entries.SetLocked(ctx, nil, entry.ID, *req.IsLocked); err != nil {
		return nil, internalError(err, "failed to update entry lock")
	}
	entry.IsLocked = *req.IsLocked
	entry.UpdatedAt = time.Now().UTC()
	s.core.afterMutation(ctx, "lock_entry", schoolID, entry.AcademicYearID,
		zap.String("entry_id", entry.ID), zap.Bool("is_locked", entry.IsLocked))
	return entry, nil
}

// Publish promotes every non-LOCKED entry of the section to PUBLISHED and stamps the publisher.
func (s *TimetableWorkflowService) Publish(ctx context.Context, schoolID, yearID, sectionID, actorID string) (*models.BulkStatusResult, error) {
	if sectionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sectionId is required")
	}
	return s.publish(ctx, models.EntryScope{SchoolID: schoolID, AcademicYearID: yearID, SectionID: sectionID}, actorID, "publish_section")
}

// PublishAll promotes every non-LOCKED entry of the year to PUBLISHED.
func (s *TimetableWorkflowService) PublishAll(ctx context.Context, schoolID, yearID, actorID string) (*models.BulkStatusResult, error) {
	return s.publish(ctx, models.EntryScope{SchoolID: schoolID, AcademicYearID: yearID}, actorID, "publish_year")
}

func (s *TimetableWorkflowService) publish(ctx context.Context, scope models.EntryScope, actorID, operation string) (*models.BulkStatusResult, error) {
	now := time.Now().UTC()
	var by *string
	if actorID != "" {
		by = &actorID
	}
	return s.bulk(ctx, scope, models.EntryEventPublish, &now, by, operation)
}

// LockSection sets every entry of the section to LOCKED.
func (s *TimetableWorkflowService) LockSection(ctx context.Context, schoolID, yearID, sectionID string) (*models.BulkStatusResult, error) {
	if sectionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sectionId is required")
	}
	scope := models.EntryScope{SchoolID: schoolID, AcademicYearID: yearID, SectionID: sectionID}
	return s.bulk(ctx, scope, models.EntryEventLock, nil, nil, "lock_section")
}

// UnlockSection reverts LOCKED entries of the section to PUBLISHED.
func (s *TimetableWorkflowService) UnlockSection(ctx context.Context, schoolID, yearID, sectionID string) (*models.BulkStatusResult, error) {
	if sectionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sectionId is required")
	}
	scope := models.EntryScope{SchoolID: schoolID, AcademicYearID: yearID, SectionID: sectionID}
	return s.bulk(ctx, scope, models.EntryEventUnlock, nil, nil, "unlock_section")
}

// bulk applies event to every entry of the scope whose status accepts it.
func (s *TimetableWorkflowService) bulk(ctx context.Context, scope models.EntryScope, event models.EntryEvent, at *time.Time, by *string, operation string) (*models.BulkStatusResult, error) {
	if _, err := s.core.gate.ensureMutable(ctx, scope.SchoolID, scope.AcademicYearID); err != nil {
		return nil, err
	}
	target, from := models.TransitionSources(event)
	if len(from) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("no status accepts %s", event))
	}
	sources := make([]string, 0, len(from))
	for _, status := range from {
		sources = append(sources, string(status))
	}
	affected, err := s.core.entries.UpdateStatus(ctx, nil, scope, target, sources, at, by)
	if err != nil {
		return nil, internalError(err, "failed to update timetable status")
	}
	s.core.afterMutation(ctx, operation, scope.SchoolID, scope.AcademicYearID,
		zap.String("section_id", scope.SectionID), zap.Int64("affected", affected))
	return &models.BulkStatusResult{Status: target, Affected: affected}, nil
}
