package dto

import "github.com/noah-isme/sma-timetable-api/internal/models"

// BellScheduleRequest creates a named bell schedule.
type BellScheduleRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	IsDefault bool   `json:"isDefault"`
}

// PeriodRequest creates or replaces a time period.
type PeriodRequest struct {
	ScheduleID *string           `json:"scheduleId" validate:"omitempty,min=1"`
	Name       string            `json:"name" validate:"required,max=100"`
	StartTime  string            `json:"startTime" validate:"required,hhmm"`
	EndTime    string            `json:"endTime" validate:"required,hhmm"`
	Type       models.PeriodType `json:"type" validate:"required,oneof=TEACHING BREAK"`
	Days       []string          `json:"days" validate:"required,min=1,unique,dive,weekday"`
}

// EntryRequest books a subject into a section's slot. It is also the dry-run payload.
type EntryRequest struct {
	ClassID   string  `json:"classId" validate:"required"`
	SectionID string  `json:"sectionId" validate:"required"`
	SubjectID string  `json:"subjectId" validate:"required"`
	TeacherID string  `json:"teacherId" validate:"required"`
	PeriodID  string  `json:"periodId" validate:"required"`
	Day       string  `json:"day" validate:"required,weekday"`
	RoomID    *string `json:"roomId" validate:"omitempty,min=1"`
}

// AvailabilityStatus is the verdict of a dry-run booking.
type AvailabilityStatus string

const (
	AvailabilityOK       AvailabilityStatus = "OK"
	AvailabilityConflict AvailabilityStatus = "CONFLICT"
)

// AvailabilityResponse reports whether an EntryRequest could be booked.
type AvailabilityResponse struct {
	Status    AvailabilityStatus        `json:"status"`
	Message   string                    `json:"message,omitempty"`
	Dimension models.ConflictDimension  `json:"dimension,omitempty"`
	Conflict  *models.TimetableConflict `json:"conflict,omitempty"`
}

// MoveEntryRequest relocates an entry to another slot.
type MoveEntryRequest struct {
	Day      string `json:"day" validate:"required,weekday"`
	PeriodID string `json:"periodId" validate:"required"`
}

// SwapEntriesRequest exchanges the slots of two entries. KeepRooms swaps time only.
type SwapEntriesRequest struct {
	EntryID1  string `json:"entryId1" validate:"required"`
	EntryID2  string `json:"entryId2" validate:"required,nefield=EntryID1"`
	KeepRooms *bool  `json:"keepRooms"`
}

// SwapEntriesResponse returns both entries after the swap.
type SwapEntriesResponse struct {
	First  models.TimetableEntry `json:"first"`
	Second models.TimetableEntry `json:"second"`
}

// LockEntryRequest flips the per-entry lock flag.
type LockEntryRequest struct {
	IsLocked *bool `json:"isLocked" validate:"required"`
}

// EntryQuery filters entry listings.
type EntryQuery struct {
	SectionID string `form:"sectionId"`
	TeacherID string `form:"teacherId"`
	RoomID    string `form:"roomId"`
	Day       string `form:"day" validate:"omitempty,weekday"`
}

// SlotQuery addresses a (day, period) pair for discovery.
type SlotQuery struct {
	Day       string `form:"day" validate:"required,weekday"`
	PeriodID  string `form:"periodId" validate:"required"`
	SubjectID string `form:"subjectId"`
}

// AnalyticsQuery selects the workload grouping.
type AnalyticsQuery struct {
	GroupBy string `form:"groupBy" validate:"omitempty,oneof=teacher room subject section day"`
}

// CopyStructureRequest clones bell structure from another year into the path year.
type CopyStructureRequest struct {
	FromYearID string `json:"fromYearId" validate:"required"`
}

// CopyStructureResponse summarises a completed copy.
type CopyStructureResponse struct {
	FromYearID string `json:"fromYearId"`
	ToYearID   string `json:"toYearId"`
	Schedules  int    `json:"schedules"`
	Periods    int    `json:"periods"`
	Slots      int    `json:"slots"`
}

// DayPeriods lists the periods active on one weekday, ordered by start time.
type DayPeriods struct {
	Day     models.Weekday      `json:"day"`
	Periods []models.TimePeriod `json:"periods"`
}

// TimetableContext is everything a client needs to render a section's weekly grid.
type TimetableContext struct {
	AcademicYearID string                     `json:"academicYearId"`
	SectionID      string                     `json:"sectionId"`
	Schedules      []models.BellSchedule      `json:"schedules"`
	Days           []DayPeriods               `json:"days"`
	Entries        []models.TimetableEntry    `json:"entries"`
	Allocations    []models.SubjectAllocation `json:"allocations"`
	Rooms          []models.Room              `json:"rooms"`
}

// ExportQuery selects the owner and rendering of a timetable export.
type ExportQuery struct {
	Format    string `form:"format" validate:"required,oneof=csv pdf xlsx ics"`
	SectionID string `form:"sectionId" validate:"required_without=TeacherID"`
	TeacherID string `form:"teacherId" validate:"required_without=SectionID"`
	StartDate string `form:"startDate" validate:"omitempty,datetime=2006-01-02"`
}
