package models

import "github.com/lib/pq"

// TeacherOption is an active teacher as seen by discovery queries.
type TeacherOption struct {
	ID         string         `db:"id" json:"id"`
	FullName   string         `db:"full_name" json:"full_name"`
	SubjectIDs pq.StringArray `db:"subject_ids" json:"subject_ids"`
	Preferred  bool           `db:"-" json:"preferred"`
}

// Teaches reports whether the teacher declared a preference for subjectID.
func (t TeacherOption) Teaches(subjectID string) bool {
	for _, id := range t.SubjectIDs {
		if id == subjectID {
			return true
		}
	}
	return false
}

// Room is a bookable physical room.
type Room struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Capacity int    `db:"capacity" json:"capacity"`
}

// SubjectAllocation is the planned weekly load of a subject for a section.
type SubjectAllocation struct {
	ID             string  `db:"id" json:"id"`
	SectionID      string  `db:"section_id" json:"section_id"`
	SubjectID      string  `db:"subject_id" json:"subject_id"`
	TeacherID      *string `db:"teacher_id" json:"teacher_id,omitempty"`
	PeriodsPerWeek int     `db:"periods_per_week" json:"periods_per_week"`
}
