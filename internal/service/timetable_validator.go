package service

import "github.com/noah-isme/sma-timetable-api/internal/models"

// SlotCandidate is a prospective occupant of a (day, period) slot.
type SlotCandidate struct {
	TeacherID string
	SectionID string
	RoomID    *string
}

// Dimension orders used by the ledger operations.
var (
	BookingOrder = []models.ConflictDimension{models.ConflictTeacher, models.ConflictSection, models.ConflictRoom}
	MoveOrder    = []models.ConflictDimension{models.ConflictSection, models.ConflictTeacher, models.ConflictRoom}
)

var conflictPredicates = map[models.ConflictDimension]func(existing models.TimetableEntry, c SlotCandidate) bool{
	models.ConflictTeacher: func(existing models.TimetableEntry, c SlotCandidate) bool {
		return existing.TeacherID == c.TeacherID
	},
	models.ConflictSection: func(existing models.TimetableEntry, c SlotCandidate) bool {
		return existing.SectionID == c.SectionID
	},
	models.ConflictRoom: func(existing models.TimetableEntry, c SlotCandidate) bool {
		return c.RoomID != nil && *c.RoomID != "" && existing.HasRoom() && *existing.RoomID == *c.RoomID
	},
}

// EvaluateSlot checks the candidate against the slot's occupants one dimension at a time, in order,
// and returns the first blocking conflict or nil. Occupants whose id is in exclude are ignored.
func EvaluateSlot(occupants []models.TimetableEntry, candidate SlotCandidate, order []models.ConflictDimension, exclude ...string) *models.TimetableConflictError {
	skip := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	for _, dim := range order {
		clash := conflictPredicates[dim]
		for _, existing := range occupants {
			if _, ignored := skip[existing.ID]; ignored {
				continue
			}
			if clash(existing, candidate) {
				return models.NewTimetableConflict(dim, existing)
			}
		}
	}
	return nil
}

func candidateOf(entry models.TimetableEntry) SlotCandidate {
	return SlotCandidate{TeacherID: entry.TeacherID, SectionID: entry.SectionID, RoomID: entry.RoomID}
}
