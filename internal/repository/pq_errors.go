package repository

import (
	"errors"

	"github.com/lib/pq"
)

const uniqueViolation = pq.ErrorCode("23505")

// Constraint names enforced by migration 0001.
const (
	ConstraintTeacherSlot = "uq_timetable_entries_teacher_slot"
	ConstraintSectionSlot = "uq_timetable_entries_section_slot"
	ConstraintRoomSlot    = "uq_timetable_entries_room_slot"
	ConstraintBellName    = "uq_bell_schedules_name"
	ConstraintBellDefault = "uq_bell_schedules_default"
)

// UniqueViolation returns the violated constraint when err is a Postgres unique-violation.
func UniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}
