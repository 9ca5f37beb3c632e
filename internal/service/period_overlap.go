package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// clockMinutes converts HH:MM into minutes since midnight.
func clockMinutes(hhmm string) (int, error) {
	parts := strings.Split(hhmm, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("time %q is not HH:MM", hhmm)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("time %q has an invalid hour", hhmm)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("time %q has an invalid minute", hhmm)
	}
	return hours*60 + minutes, nil
}

// rangesOverlap is the half-open [s1,e1) vs [s2,e2) test. Touching ranges do not overlap.
func rangesOverlap(s1, e1, s2, e2 int) bool {
	return s1 < e2 && e1 > s2
}

// periodRange parses and orders a period's bounds.
func periodRange(start, end string) (int, int, error) {
	s, err := clockMinutes(start)
	if err != nil {
		return 0, 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "startTime: "+err.Error())
	}
	e, err := clockMinutes(end)
	if err != nil {
		return 0, 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "endTime: "+err.Error())
	}
	if s >= e {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "startTime must be before endTime")
	}
	return s, e, nil
}

// checkPeriodConflicts compares candidate against every other period in its schedule bucket.
// Time overlaps are reported before duplicate names.
func checkPeriodConflicts(existing []models.TimePeriod, candidate models.TimePeriod, excludeID string) error {
	start, end, err := periodRange(candidate.StartTime, candidate.EndTime)
	if err != nil {
		return err
	}

	peers := make([]models.TimePeriod, 0, len(existing))
	for _, p := range existing {
		if p.ID == excludeID || !p.SameSchedule(candidate.ScheduleID) {
			continue
		}
		peers = append(peers, p)
	}

	for _, p := range peers {
		s, e, err := periodRange(p.StartTime, p.EndTime)
		if err != nil {
			continue
		}
		if rangesOverlap(start, end, s, e) {
			return overlapError(&models.PeriodOverlapError{
				Message: fmt.Sprintf("period %s-%s overlaps %q (%s-%s)",
					candidate.StartTime, candidate.EndTime, p.Name, p.StartTime, p.EndTime),
				ExistingID:    p.ID,
				ExistingName:  p.Name,
				ExistingStart: p.StartTime,
				ExistingEnd:   p.EndTime,
			})
		}
	}

	for _, p := range peers {
		if strings.EqualFold(strings.TrimSpace(p.Name), strings.TrimSpace(candidate.Name)) {
			return overlapError(&models.PeriodOverlapError{
				Message:        fmt.Sprintf("a period named %q already exists in this schedule", p.Name),
				ExistingID:     p.ID,
				ExistingName:   p.Name,
				ExistingStart:  p.StartTime,
				ExistingEnd:    p.EndTime,
				DuplicatedName: true,
			})
		}
	}
	return nil
}

func overlapError(detail *models.PeriodOverlapError) error {
	return appErrors.Wrap(detail, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, detail.Message)
}
