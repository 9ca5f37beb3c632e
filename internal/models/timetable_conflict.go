package models

import "fmt"

// ConflictDimension names the resource axis on which two bookings collide.
type ConflictDimension string

const (
	ConflictTeacher ConflictDimension = "TEACHER"
	ConflictSection ConflictDimension = "SECTION"
	ConflictRoom    ConflictDimension = "ROOM"
)

// ErrorDetail is implemented by errors that carry a structured payload for API clients.
type ErrorDetail interface {
	Detail() interface{}
}

// TimetableConflict describes the existing entry that blocks a booking.
type TimetableConflict struct {
	EntryID   string            `json:"entry_id,omitempty"`
	Dimension ConflictDimension `json:"dimension"`
	Day       Weekday           `json:"day"`
	PeriodID  string            `json:"period_id"`
	ClassID   string            `json:"class_id,omitempty"`
	SectionID string            `json:"section_id,omitempty"`
	TeacherID string            `json:"teacher_id,omitempty"`
	RoomID    string            `json:"room_id,omitempty"`
}

// TimetableConflictError is returned when a booking would double-book a teacher, section or room.
type TimetableConflictError struct {
	Dimension ConflictDimension `json:"dimension"`
	Message   string            `json:"message"`
	Conflict  TimetableConflict `json:"conflict"`
}

// NewTimetableConflict builds the error for an existing entry that already holds the slot.
func NewTimetableConflict(dim ConflictDimension, existing TimetableEntry) *TimetableConflictError {
	conflict := TimetableConflict{
		EntryID:   existing.ID,
		Dimension: dim,
		Day:       existing.Day,
		PeriodID:  existing.PeriodID,
		ClassID:   existing.ClassID,
		SectionID: existing.SectionID,
		TeacherID: existing.TeacherID,
	}
	if existing.HasRoom() {
		conflict.RoomID = *existing.RoomID
	}

	var msg string
	switch dim {
	case ConflictTeacher:
		msg = fmt.Sprintf("teacher %s is already teaching class %s section %s on %s period %s",
			existing.TeacherID, existing.ClassID, existing.SectionID, existing.Day, existing.PeriodID)
	case ConflictSection:
		msg = fmt.Sprintf("section %s of class %s already has a lesson on %s period %s",
			existing.SectionID, existing.ClassID, existing.Day, existing.PeriodID)
	default:
		msg = fmt.Sprintf("room %s is already used by class %s section %s on %s period %s",
			conflict.RoomID, existing.ClassID, existing.SectionID, existing.Day, existing.PeriodID)
	}
	return &TimetableConflictError{Dimension: dim, Message: msg, Conflict: conflict}
}

// Error implements error.
func (e *TimetableConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// Detail exposes the conflict to API clients.
func (e *TimetableConflictError) Detail() interface{} {
	return e
}

// PeriodOverlapError reports a period whose time range or name collides with an existing one.
type PeriodOverlapError struct {
	Message        string `json:"message"`
	ExistingID     string `json:"existing_id"`
	ExistingName   string `json:"existing_name"`
	ExistingStart  string `json:"existing_start"`
	ExistingEnd    string `json:"existing_end"`
	DuplicatedName bool   `json:"duplicated_name,omitempty"`
}

// Error implements error.
func (e *PeriodOverlapError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// Detail exposes the overlap to API clients.
func (e *PeriodOverlapError) Detail() interface{} {
	return e
}
