package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const (
	testSchool = "school-1"
	testYear   = "year-1"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (*txProviderMock, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock"), mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type yearStub struct {
	years map[string]models.AcademicYear
}

func (s *yearStub) FindByID(ctx context.Context, schoolID, id string) (*models.AcademicYear, error) {
	year, ok := s.years[id]
	if !ok || year.SchoolID != schoolID {
		return nil, sql.ErrNoRows
	}
	return &year, nil
}

type patternStub struct {
	holidays map[models.Weekday]bool
	calls    int
}

func (s *patternStub) IsWorkingDay(ctx context.Context, schoolID, yearID string, day models.Weekday) (bool, error) {
	s.calls++
	return !s.holidays[day], nil
}

type scheduleStub struct {
	items     []models.BellSchedule
	periods   map[string]int
	createErr error
	cleared   int
}

func (s *scheduleStub) ListByYear(ctx context.Context, exec sqlx.ExtContext, schoolID, yearID string) ([]models.BellSchedule, error) {
	var out []models.BellSchedule
	for _, item := range s.items {
		if item.SchoolID == schoolID && item.AcademicYearID == yearID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *scheduleStub) FindByID(ctx context.Context, schoolID, id string) (*models.BellSchedule, error) {
	for _, item := range s.items {
		if item.ID == id && item.SchoolID == schoolID {
			found := item
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *scheduleStub) Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.BellSchedule) error {
	if s.createErr != nil {
		return s.createErr
	}
	if schedule.ID == "" {
		schedule.ID = "schedule-" + strings.ToLower(strings.ReplaceAll(schedule.Name, " ", "-")) + "-" + schedule.AcademicYearID
	}
	s.items = append(s.items, *schedule)
	return nil
}

func (s *scheduleStub) ClearDefault(ctx context.Context, exec sqlx.ExtContext, schoolID, yearID string) error {
	s.cleared++
	for i := range s.items {
		if s.items[i].SchoolID == schoolID && s.items[i].AcademicYearID == yearID {
			s.items[i].IsDefault = false
		}
	}
	return nil
}

func (s *scheduleStub) MarkDefault(ctx context.Context, exec sqlx.ExtContext, id string) error {
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].IsDefault = true
		}
	}
	return nil
}

func (s *scheduleStub) Delete(ctx context.Context, id string) error {
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *scheduleStub) CountPeriods(ctx context.Context, id string) (int, error) {
	return s.periods[id], nil
}

type periodStub struct {
	items     []models.TimePeriod
	slots     map[string][]models.Weekday
	createErr error
	seq       int
}

func (s *periodStub) ListByYear(ctx context.Context, exec sqlx.ExtContext, schoolID, yearID string) ([]models.TimePeriod, error) {
	var out []models.TimePeriod
	for _, item := range s.items {
		if item.SchoolID == schoolID && item.AcademicYearID == yearID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *periodStub) FindByID(ctx context.Context, schoolID, id string) (*models.TimePeriod, error) {
	for _, item := range s.items {
		if item.ID == id && item.SchoolID == schoolID {
			found := item
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *periodStub) Create(ctx context.Context, exec sqlx.ExtContext, period *models.TimePeriod) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.seq++
	period.ID = period.AcademicYearID + "-period-" + string(rune('a'+s.seq-1))
	s.items = append(s.items, *period)
	return nil
}

func (s *periodStub) Update(ctx context.Context, exec sqlx.ExtContext, period *models.TimePeriod) error {
	for i := range s.items {
		if s.items[i].ID == period.ID {
			s.items[i] = *period
		}
	}
	return nil
}

func (s *periodStub) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	delete(s.slots, id)
	return nil
}

func (s *periodStub) ReplaceSlots(ctx context.Context, exec sqlx.ExtContext, periodID string, days []models.Weekday) ([]models.TimeSlot, error) {
	if s.slots == nil {
		s.slots = make(map[string][]models.Weekday)
	}
	s.slots[periodID] = append([]models.Weekday(nil), days...)
	out := make([]models.TimeSlot, 0, len(days))
	for _, d := range days {
		out = append(out, models.TimeSlot{ID: periodID + "-" + string(d), PeriodID: periodID, Day: d})
	}
	return out, nil
}

func (s *periodStub) SlotExists(ctx context.Context, schoolID, periodID string, day models.Weekday) (bool, error) {
	if _, err := s.FindByID(ctx, schoolID, periodID); err != nil {
		return false, nil
	}
	for _, d := range s.slots[periodID] {
		if d == day {
			return true, nil
		}
	}
	return false, nil
}

type entryStub struct {
	items      []models.TimetableEntry
	createErr  error
	race       *models.TimetableEntry
	swapErr    error
	seq        int
	lastSource []string
}

func (s *entryStub) find(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *entryStub) FindByID(ctx context.Context, exec sqlx.ExtContext, schoolID, id string, forUpdate bool) (*models.TimetableEntry, error) {
	i := s.find(id)
	if i < 0 || s.items[i].SchoolID != schoolID {
		return nil, sql.ErrNoRows
	}
	found := s.items[i]
	return &found, nil
}

func (s *entryStub) ListBySlot(ctx context.Context, exec sqlx.ExtContext, schoolID, yearID string, day models.Weekday, periodID string) ([]models.TimetableEntry, error) {
	var out []models.TimetableEntry
	for _, e := range s.items {
		if e.SchoolID == schoolID && e.AcademicYearID == yearID && e.Day == day && e.PeriodID == periodID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *entryStub) List(ctx context.Context, filter models.TimetableEntryFilter) ([]models.TimetableEntry, error) {
	var out []models.TimetableEntry
	for _, e := range s.items {
		if e.SchoolID != filter.SchoolID || e.AcademicYearID != filter.AcademicYearID {
			continue
		}
		if filter.SectionID != "" && e.SectionID != filter.SectionID {
			continue
		}
		if filter.TeacherID != "" && e.TeacherID != filter.TeacherID {
			continue
		}
		if filter.RoomID != "" && (!e.HasRoom() || *e.RoomID != filter.RoomID) {
			continue
		}
		if filter.Day != "" && e.Day != filter.Day {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *entryStub) Create(ctx context.Context, exec sqlx.ExtContext, entry *models.TimetableEntry) error {
	if s.createErr != nil {
		if s.race != nil {
			s.items = append(s.items, *s.race)
		}
		return s.createErr
	}
	s.seq++
	entry.ID = "entry-new-" + string(rune('0'+s.seq))
	entry.CreatedAt = time.Now().UTC()
	s.items = append(s.items, *entry)
	return nil
}

func (s *entryStub) UpdateSlot(ctx context.Context, exec sqlx.ExtContext, id string, day models.Weekday, periodID string) error {
	i := s.find(id)
	s.items[i].Day = day
	s.items[i].PeriodID = periodID
	return nil
}

func (s *entryStub) SwapSlots(ctx context.Context, exec sqlx.ExtContext, a, b models.TimetableEntry, swapRooms bool) error {
	if s.swapErr != nil {
		if s.race != nil {
			s.items = append(s.items, *s.race)
		}
		return s.swapErr
	}
	i, j := s.find(a.ID), s.find(b.ID)
	s.items[i].Day, s.items[j].Day = b.Day, a.Day
	s.items[i].PeriodID, s.items[j].PeriodID = b.PeriodID, a.PeriodID
	if swapRooms {
		s.items[i].RoomID, s.items[j].RoomID = b.RoomID, a.RoomID
	}
	return nil
}

func (s *entryStub) SetLocked(ctx context.Context, exec sqlx.ExtContext, id string, locked bool) error {
	s.items[s.find(id)].IsLocked = locked
	return nil
}

func (s *entryStub) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	i := s.find(id)
	s.items = append(s.items[:i], s.items[i+1:]...)
	return nil
}

func (s *entryStub) CountByPeriod(ctx context.Context, periodID string, days []models.Weekday) (int, error) {
	count := 0
	for _, e := range s.items {
		if e.PeriodID != periodID {
			continue
		}
		if len(days) == 0 {
			count++
			continue
		}
		for _, d := range days {
			if e.Day == d {
				count++
				break
			}
		}
	}
	return count, nil
}

func (s *entryStub) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, scope models.EntryScope, target models.EntryStatus, sources []string, publishedAt *time.Time, publishedBy *string) (int64, error) {
	s.lastSource = sources
	allowed := make(map[string]bool, len(sources))
	for _, src := range sources {
		allowed[src] = true
	}
	var affected int64
	for i := range s.items {
		e := &s.items[i]
		if e.SchoolID != scope.SchoolID || e.AcademicYearID != scope.AcademicYearID {
			continue
		}
		if scope.SectionID != "" && e.SectionID != scope.SectionID {
			continue
		}
		if !allowed[string(e.Status)] {
			continue
		}
		e.Status = target
		if publishedAt != nil {
			e.PublishedAt = publishedAt
		}
		if publishedBy != nil {
			e.PublishedBy = publishedBy
		}
		affected++
	}
	return affected, nil
}

type resourceStub struct {
	teachers    []models.TeacherOption
	rooms       []models.Room
	allocations []models.SubjectAllocation
}

func (s *resourceStub) ListActiveTeachers(ctx context.Context, schoolID string) ([]models.TeacherOption, error) {
	return append([]models.TeacherOption(nil), s.teachers...), nil
}

func (s *resourceStub) ListActiveRooms(ctx context.Context, schoolID string) ([]models.Room, error) {
	return append([]models.Room(nil), s.rooms...), nil
}

func (s *resourceStub) TeacherExists(ctx context.Context, schoolID, id string) (bool, error) {
	for _, t := range s.teachers {
		if t.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *resourceStub) RoomExists(ctx context.Context, schoolID, id string) (bool, error) {
	for _, r := range s.rooms {
		if r.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *resourceStub) ListAllocations(ctx context.Context, schoolID, yearID, sectionID string) ([]models.SubjectAllocation, error) {
	return s.allocations, nil
}

type timetableFixture struct {
	years     *yearStub
	patterns  *patternStub
	schedules *scheduleStub
	periods   *periodStub
	entries   *entryStub
	resources *resourceStub
	mock      sqlmock.Sqlmock
	metrics   *MetricsService
	core      *TimetableCore
}

// newTimetableFixture seeds year-1 (active), year-2 (planned) and year-closed, two weekday
// periods p1 09:00-10:00 and p2 10:00-10:45, three teachers and two rooms.
func newTimetableFixture(t *testing.T) *timetableFixture {
	t.Helper()
	tx, mock := newTxProviderMock(t)
	weekdays := []string{"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY"}
	f := &timetableFixture{
		years: &yearStub{years: map[string]models.AcademicYear{
			"year-1":      {ID: "year-1", SchoolID: testSchool, Name: "2025/2026", Status: models.AcademicYearActive},
			"year-2":      {ID: "year-2", SchoolID: testSchool, Name: "2026/2027", Status: models.AcademicYearPlanned},
			"year-closed": {ID: "year-closed", SchoolID: testSchool, Name: "2024/2025", Status: models.AcademicYearClosed},
		}},
		patterns: &patternStub{holidays: map[models.Weekday]bool{models.Saturday: true, models.Sunday: true}},
		schedules: &scheduleStub{items: []models.BellSchedule{
			{ID: "schedule-a", SchoolID: testSchool, AcademicYearID: testYear, Name: "Regular", IsDefault: true},
		}},
		periods: &periodStub{
			items: []models.TimePeriod{
				{ID: "p1", SchoolID: testSchool, AcademicYearID: testYear, ScheduleID: strPtr("schedule-a"), Name: "P1", StartTime: "09:00", EndTime: "10:00", Type: models.PeriodTypeTeaching, Days: weekdays},
				{ID: "p2", SchoolID: testSchool, AcademicYearID: testYear, ScheduleID: strPtr("schedule-a"), Name: "P2", StartTime: "10:00", EndTime: "10:45", Type: models.PeriodTypeTeaching, Days: weekdays},
			},
			slots: map[string][]models.Weekday{
				"p1": {models.Monday, models.Tuesday, models.Wednesday, models.Thursday, models.Friday},
				"p2": {models.Monday, models.Tuesday, models.Wednesday, models.Thursday, models.Friday},
			},
		},
		entries: &entryStub{},
		resources: &resourceStub{
			teachers: []models.TeacherOption{
				{ID: "t1", FullName: "Ani", SubjectIDs: []string{"math"}},
				{ID: "t2", FullName: "Budi", SubjectIDs: []string{"physics"}},
				{ID: "t3", FullName: "Citra", SubjectIDs: []string{"physics", "math"}},
			},
			rooms: []models.Room{{ID: "room-a", Name: "A", Capacity: 32}, {ID: "room-b", Name: "B", Capacity: 30}},
		},
		mock:    mock,
		metrics: NewMetricsService(),
	}
	f.core = NewTimetableCore(f.years, f.patterns, f.periods, f.entries, f.resources, tx, nil, f.metrics, nil)
	return f
}

func (f *timetableFixture) seedEntry(id, section, teacher string, day models.Weekday, period string, room *string) {
	f.entries.items = append(f.entries.items, models.TimetableEntry{
		ID:             id,
		SchoolID:       testSchool,
		AcademicYearID: testYear,
		ClassID:        "class-" + section,
		SectionID:      section,
		SubjectID:      "math",
		TeacherID:      teacher,
		PeriodID:       period,
		Day:            day,
		RoomID:         room,
		Status:         models.EntryStatusDraft,
	})
}

// seedOutOfScopePeriods adds "foreign" (another school) and "p-next" (year-2 of this school),
// both active on Monday.
func (f *timetableFixture) seedOutOfScopePeriods() {
	f.periods.items = append(f.periods.items,
		models.TimePeriod{ID: "foreign", SchoolID: "school-2", AcademicYearID: "year-x", Name: "P1", StartTime: "09:00", EndTime: "10:00", Type: models.PeriodTypeTeaching},
		models.TimePeriod{ID: "p-next", SchoolID: testSchool, AcademicYearID: "year-2", Name: "P1", StartTime: "09:00", EndTime: "10:00", Type: models.PeriodTypeTeaching},
	)
	f.periods.slots["foreign"] = []models.Weekday{models.Monday}
	f.periods.slots["p-next"] = []models.Weekday{models.Monday}
}

func (f *timetableFixture) entry(id string) models.TimetableEntry {
	return f.entries.items[f.entries.find(id)]
}

func strPtr(v string) *string { return &v }
