package models

import "time"

// AcademicYearStatus is owned by the academic-year module; this engine only reads it.
type AcademicYearStatus string

const (
	AcademicYearPlanned  AcademicYearStatus = "PLANNED"
	AcademicYearActive   AcademicYearStatus = "ACTIVE"
	AcademicYearClosed   AcademicYearStatus = "CLOSED"
	AcademicYearArchived AcademicYearStatus = "ARCHIVED"
)

// AcademicYear is the slice of the academic year record needed for the lock gate.
type AcademicYear struct {
	ID        string             `db:"id" json:"id"`
	SchoolID  string             `db:"school_id" json:"school_id"`
	Name      string             `db:"name" json:"name"`
	Status    AcademicYearStatus `db:"status" json:"status"`
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt time.Time          `db:"updated_at" json:"updated_at"`
}

// Locked reports whether timetable data of this year is frozen.
func (y AcademicYear) Locked() bool {
	return y.Status == AcademicYearClosed || y.Status == AcademicYearArchived
}

// WorkingPattern marks one weekday as working or not for a school year.
type WorkingPattern struct {
	SchoolID       string  `db:"school_id" json:"school_id"`
	AcademicYearID string  `db:"academic_year_id" json:"academic_year_id"`
	Day            Weekday `db:"day" json:"day"`
	IsWorking      bool    `db:"is_working" json:"is_working"`
}
