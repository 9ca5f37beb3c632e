package service

import (
	"context"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// DiscoveryService answers which teachers and rooms are free at a (day, period).
type DiscoveryService struct {
	core      *TimetableCore
	validator *validator.Validate
}

// NewDiscoveryService instantiates DiscoveryService.
func NewDiscoveryService(core *TimetableCore, validate *validator.Validate) *DiscoveryService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	return &DiscoveryService{core: core, validator: validate}
}

// slot validates the query, the year and the period, returning the parsed weekday.
func (s *DiscoveryService) slot(ctx context.Context, schoolID, yearID string, query dto.SlotQuery) (models.Weekday, error) {
	if err := s.validator.Struct(query); err != nil {
		return "", validationError(err, "invalid slot query")
	}
	day, err := parseDay(query.Day)
	if err != nil {
		return "", err
	}
	if _, err := s.core.gate.load(ctx, schoolID, yearID); err != nil {
		return "", err
	}
	if _, err := s.core.resolvePeriod(ctx, schoolID, yearID, query.PeriodID); err != nil {
		return "", err
	}
	return day, nil
}

func (s *DiscoveryService) occupants(ctx context.Context, schoolID, yearID string, day models.Weekday, periodID string) ([]models.TimetableEntry, error) {
	entries, err := s.core.entries.ListBySlot(ctx, nil, schoolID, yearID, day, periodID)
	if err != nil {
		return nil, internalError(err, "failed to load slot occupants")
	}
	return entries, nil
}

// FreeTeachers lists active teachers without an entry at the slot. When a subject is given,
// teachers who declared it sort first; nobody is dropped for lacking it.
func (s *DiscoveryService) FreeTeachers(ctx context.Context, schoolID, yearID string, query dto.SlotQuery) ([]models.TeacherOption, error) {
	day, err := s.slot(ctx, schoolID, yearID, query)
	if err != nil {
		return nil, err
	}
	key := TimetableKey(schoolID, yearID, "free-teachers", string(day), query.PeriodID, query.SubjectID)
	free, _, err := remember(ctx, s.core.cache, key, func() ([]models.TeacherOption, error) {
		busy, err := s.occupants(ctx, schoolID, yearID, day, query.PeriodID)
		if err != nil {
			return nil, err
		}
		teachers, err := s.core.resources.ListActiveTeachers(ctx, schoolID)
		if err != nil {
			return nil, internalError(err, "failed to list teachers")
		}
		taken := make(map[string]struct{}, len(busy))
		for _, e := range busy {
			taken[e.TeacherID] = struct{}{}
		}

		free := make([]models.TeacherOption, 0, len(teachers))
		for _, t := range teachers {
			if _, ok := taken[t.ID]; ok {
				continue
			}
			t.Preferred = query.SubjectID != "" && t.Teaches(query.SubjectID)
			free = append(free, t)
		}
		sort.SliceStable(free, func(i, j int) bool { return free[i].Preferred && !free[j].Preferred })
		return free, nil
	})
	return free, err
}

// FreeRooms lists active rooms without an entry at the slot.
func (s *DiscoveryService) FreeRooms(ctx context.Context, schoolID, yearID string, query dto.SlotQuery) ([]models.Room, error) {
	day, err := s.slot(ctx, schoolID, yearID, query)
	if err != nil {
		return nil, err
	}
	key := TimetableKey(schoolID, yearID, "free-rooms", string(day), query.PeriodID)
	free, _, err := remember(ctx, s.core.cache, key, func() ([]models.Room, error) {
		busy, err := s.occupants(ctx, schoolID, yearID, day, query.PeriodID)
		if err != nil {
			return nil, err
		}
		rooms, err := s.core.resources.ListActiveRooms(ctx, schoolID)
		if err != nil {
			return nil, internalError(err, "failed to list rooms")
		}
		taken := make(map[string]struct{}, len(busy))
		for _, e := range busy {
			if e.HasRoom() {
				taken[*e.RoomID] = struct{}{}
			}
		}

		free := make([]models.Room, 0, len(rooms))
		for _, r := range rooms {
			if _, ok := taken[r.ID]; !ok {
				free = append(free, r)
			}
		}
		return free, nil
	})
	return free, err
}
