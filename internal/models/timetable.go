package models

import (
	"time"

	"github.com/lib/pq"
)

// BellSchedule is a named bell-time variant (e.g. regular day, exam day) for one school year.
type BellSchedule struct {
	ID             string    `db:"id" json:"id"`
	SchoolID       string    `db:"school_id" json:"school_id"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	Name           string    `db:"name" json:"name"`
	IsDefault      bool      `db:"is_default" json:"is_default"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// PeriodType distinguishes teaching periods from breaks.
type PeriodType string

const (
	PeriodTypeTeaching PeriodType = "TEACHING"
	PeriodTypeBreak    PeriodType = "BREAK"
)

// TimePeriod is a named [start, end) time range within a bell schedule.
// A nil ScheduleID places the period in the unscheduled bucket of its year.
type TimePeriod struct {
	ID             string         `db:"id" json:"id"`
	SchoolID       string         `db:"school_id" json:"school_id"`
	AcademicYearID string         `db:"academic_year_id" json:"academic_year_id"`
	ScheduleID     *string        `db:"schedule_id" json:"schedule_id,omitempty"`
	Name           string         `db:"name" json:"name"`
	StartTime      string         `db:"start_time" json:"start_time"`
	EndTime        string         `db:"end_time" json:"end_time"`
	Type           PeriodType     `db:"period_type" json:"type"`
	Days           pq.StringArray `db:"days" json:"days"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// Weekdays returns Days as typed values.
func (p TimePeriod) Weekdays() []Weekday {
	days := make([]Weekday, 0, len(p.Days))
	for _, d := range p.Days {
		days = append(days, Weekday(d))
	}
	return days
}

// SameSchedule reports whether both periods live in the same schedule bucket.
func (p TimePeriod) SameSchedule(scheduleID *string) bool {
	if p.ScheduleID == nil || scheduleID == nil {
		return p.ScheduleID == nil && scheduleID == nil
	}
	return *p.ScheduleID == *scheduleID
}

// TimeSlot activates a period on one weekday. Slots are replaced wholesale when a period's days change.
type TimeSlot struct {
	ID        string    `db:"id" json:"id"`
	PeriodID  string    `db:"period_id" json:"period_id"`
	Day       Weekday   `db:"day" json:"day"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// EntryStatus is the publication lifecycle of a timetable entry.
type EntryStatus string

const (
	EntryStatusDraft     EntryStatus = "DRAFT"
	EntryStatusPublished EntryStatus = "PUBLISHED"
	EntryStatusLocked    EntryStatus = "LOCKED"

	// EntryStatusInitial is assigned to every newly booked entry.
	EntryStatusInitial = EntryStatusDraft
)

// EntryEvent is a lifecycle action applied to entries in bulk.
type EntryEvent string

const (
	EntryEventPublish EntryEvent = "PUBLISH"
	EntryEventLock    EntryEvent = "LOCK"
	EntryEventUnlock  EntryEvent = "UNLOCK"
)

var entryStatuses = []EntryStatus{EntryStatusDraft, EntryStatusPublished, EntryStatusLocked}

// entryTransitions maps (from, event) to the resulting status. Absent pairs are illegal.
var entryTransitions = map[EntryStatus]map[EntryEvent]EntryStatus{
	EntryStatusDraft: {
		EntryEventPublish: EntryStatusPublished,
		EntryEventLock:    EntryStatusLocked,
	},
	EntryStatusPublished: {
		EntryEventPublish: EntryStatusPublished,
		EntryEventLock:    EntryStatusLocked,
	},
	EntryStatusLocked: {
		EntryEventUnlock: EntryStatusPublished,
	},
}

// Transition applies event to an entry in status from.
func Transition(from EntryStatus, event EntryEvent) (EntryStatus, bool) {
	to, ok := entryTransitions[from][event]
	return to, ok
}

// TransitionSources returns the status event leads to and every status it may be applied to,
// in lifecycle order.
func TransitionSources(event EntryEvent) (EntryStatus, []EntryStatus) {
	var target EntryStatus
	var sources []EntryStatus
	for _, from := range entryStatuses {
		if to, ok := Transition(from, event); ok {
			target = to
			sources = append(sources, from)
		}
	}
	return target, sources
}

// EntryScope addresses the entries affected by a bulk status change. An empty SectionID means the whole year.
type EntryScope struct {
	SchoolID       string
	AcademicYearID string
	SectionID      string
}

// TimetableEntry is a committed booking of subject, teacher and optional room into a section's slot.
type TimetableEntry struct {
	ID             string      `db:"id" json:"id"`
	SchoolID       string      `db:"school_id" json:"school_id"`
	AcademicYearID string      `db:"academic_year_id" json:"academic_year_id"`
	ClassID        string      `db:"class_id" json:"class_id"`
	SectionID      string      `db:"section_id" json:"section_id"`
	SubjectID      string      `db:"subject_id" json:"subject_id"`
	TeacherID      string      `db:"teacher_id" json:"teacher_id"`
	PeriodID       string      `db:"period_id" json:"period_id"`
	Day            Weekday     `db:"day" json:"day"`
	RoomID         *string     `db:"room_id" json:"room_id,omitempty"`
	IsLocked       bool        `db:"is_locked" json:"is_locked"`
	Status         EntryStatus `db:"status" json:"status"`
	PublishedAt    *time.Time  `db:"published_at" json:"published_at,omitempty"`
	PublishedBy    *string     `db:"published_by" json:"published_by,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

// Frozen reports whether either lock mechanism blocks mutation.
func (e TimetableEntry) Frozen() bool {
	return e.IsLocked || e.Status == EntryStatusLocked
}

// HasRoom reports whether the entry occupies a room.
func (e TimetableEntry) HasRoom() bool {
	return e.RoomID != nil && *e.RoomID != ""
}

// TimetableEntryFilter narrows entry listings within a school year.
type TimetableEntryFilter struct {
	SchoolID       string
	AcademicYearID string
	SectionID      string
	TeacherID      string
	RoomID         string
	Day            Weekday
}

// BulkStatusResult reports the outcome of a section- or year-wide status change.
type BulkStatusResult struct {
	Status   EntryStatus `json:"status"`
	Affected int64       `json:"affected"`
}
