package service

import (
	"context"
	"errors"
	"testing"

	"github.com/lib/pq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func boolPtr(v bool) *bool { return &v }

func TestWorkflowMoveEntrySuccess(t *testing.T) {
	f := newTimetableFixture(t)
	f.seedEntry("e1", "S1", "t1", models.Monday, "p1", strPtr("room-a"))
	svc := NewTimetableWorkflowService(f.core, nil, true)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	moved, err := svc.MoveEntry(context.Background(), testSchool, "e1", dto.MoveEntryRequest{Day: "MONDAY", PeriodID: "p2"})
	require.NoError(t, err)
	assert.Equal(t, "e1", moved.ID)
	assert.Equal(t, "p2", moved.PeriodID)

	stored := f.entry("e1")
	assert.Equal(t, models.Monday, stored.Day)
	assert.Equal(t, "p2", stored.PeriodID)
	assert.Equal(t, "t1", stored.TeacherID)
	assert.Equal(t, "room-a", *stored.RoomID)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestWorkflowMoveEntryOccupiedSectionSuggestsSwap(t *testing.T) {
	f := newTimetableFixture(t)
	f.seedEntry("e1", "S1", "t1", models.Monday, "p1", nil)
	f.seedEntry("e2", "S1", "t2", models.Monday, "p2", nil)
	svc := NewTimetableWorkflowService(f.core, nil, true)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := svc.MoveEntry(context.Background(), testSchool, "e1", dto.MoveEntryRequest{Day: "MONDAY", PeriodID: "p2"})
	require.Error(t, err)
	var conflict *models.TimetableConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, models.ConflictSection, conflict.Dimension)
	assert.Contains(t, conflict.Message, "swap instead")
	assert.Equal(t, "p1", f.entry("e1").PeriodID)
}

func TestWorkflowMoveEntryTeacherConflictNamesSection(t *testing.T) {
	f := newTimetableFixture(t)
	f.seedEntry("e1", "S1", "t1", models.Monday, "p1", nil)
	f.seedEntry("e2", "S2", "t1", models.Monday, "p2", nil)
	svc := NewTimetableWorkflowService(f.core, nil, true)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := svc.MoveEntry(context.Background(), testSchool, "e1", dto.MoveEntryRequest{Day: "MONDAY", PeriodID: "p2"})
	var conflict *models.TimetableConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, models.ConflictTeacher, conflict.Dimension)
	assert.Contains(t, conflict.Message, "S2")
}

func TestWorkflowMoveEntryToHoliday(t *testing.T) {
	f := newTimetableFixture(t)
	f.seedEntry("e1", "S1", "t1", models.Monday, "p1", nil)
	svc := NewTimetableWorkflowService(f.core, nil, true)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := svc.MoveEntry(context.Background(), testSchool, "e1", dto.MoveEntryRequest{Day: "SUNDAY", PeriodID: "p1"})
	assert.Equal(t, appErrors.ErrNonWorkingDay.Code, appErrors.FromError(err).Code)
}

func TestWorkflowLockBlocksMoveAndSwap(t *testing.T) {
	for _, tc := range []struct {
		name   string
		freeze func(e *models.TimetableEntry)
	}{
		{name: "flag", freeze: func(e *models.TimetableEntry) { e.IsLocked = true }},
		{name: "status", freeze: func(e *models.TimetableEntry) { e.Status = models.EntryStatusLocked }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newTimetableFixture(t)
			f.seedEntry("e1", "S1", "t1", models.Monday, "p1", nil)
			f.seedEntry("e2", "S2", "t2", models.Tuesday, "p2", nil)
			tc.freeze(&f.entries.items[0])
			svc := NewTimetableWorkflowService(f.core, nil, true)

			f.mock.ExpectBegin()
			f.mock.ExpectRollback()
			_, err := svc.MoveEntry(context.Background(), testSchool, "e1", dto.MoveEntryRequest{Day: "WEDNESDAY", PeriodID: "p1"})
			assert.Equal(t, appErrors.ErrLocked.Code, appErrors.FromError(err).Code)

			f.mock.ExpectBegin()
			f.mock.ExpectRollback()
			_, err = svc.SwapEntries(context.Background(), testSchool, dto.SwapEntriesRequest{EntryID1: "e2", EntryID2: "e1"})
			assert.Equal(t, appErrors.ErrLocked.Code, appErrors.FromError(err).Code)

			assert.Equal(t, models.Monday, f.entry("e1").Day)
			assert.Equal(t, models.Tuesday, f.entry("e2").Day)
			assert.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

func TestWorkflowSwapEntriesExchangesSlotsAndRooms(t *testing.T) {
	f := newTimetableFixture(t)
	f.seedEntry("e1", "S1", "t1", models.Monday, "p1", strPtr("room-a"))
	f.seedEntry("e2", "S2", "t2", models.Tuesday, "p2", strPtr("room-b"))
	svc := NewTimetableWorkflowService(f.core, nil, true)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	resp, err := svc.SwapEntries(context.Background(), testSchool, dto.SwapEntriesRequest{EntryID1: "e1", EntryID2: "e2"})
	require.NoError(t, err)
	assert.Equal(t, "e1", resp.First.ID)

	e1, e2 := f.entry("e1"), f.entry("e2")
	assert.Equal(t, models.Tuesday, e1.Day)
	assert.Equal(t, "p2", e1.PeriodID)
	assert.Equal(t, "room-b", *e1.RoomID)
	assert.Equal(t, models.Monday, e2.Day)
	assert.Equal(t, "p1", e2.PeriodID)
	assert.Equal(t, "room-a", *e2.RoomID)

	assert.Equal(t, "t1", e1.TeacherID)
	assert.Equal(t, "S1", e1.SectionID)
	assert.Equal(t, "t2", e2.TeacherID)
	assert.Len(t, f.entries.items, 2)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestWorkflowSwapEntriesKeepRooms(t *testing.T) {
	f := newTimetableFixture(t)
	f.seedEntry("e1", "S1", "t1", models.Monday, "p1", strPtr("room-a"))
	f.seedEntry("e2", "S2", "t2", models.Tuesday, "p2", strPtr("room-b"))
	svc := NewTimetableWorkflowService(f.core, nil, true)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	_, err := svc.SwapEntries(context.Background(), testSchool, dto.SwapEntriesRequest{EntryID1: "e2", EntryID2: "e1", KeepRooms: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, models.Tuesday, f.entry("e1").Day)
	assert.Equal(t, "room-a", *f.entry("e1").RoomID)
	assert.Equal(t, "room-b", *f.entry("e2").RoomID)
}

func TestWorkflowSwapEntriesIgnoresCounterpartButNotThirdEntry(t *testing.T) {
	f := newTimetableFixture(t)
	f.seedEntry("e1", "S1", "t1", models.Monday, "p1", nil)
	f.seedEntry("e2", "S2", "t1", models.Tuesday, "p2", nil)
	// S1 already has e3 at e2's slot.
	f.seedEntry("e3", "S1", "t3", models.Tuesday, "p2", nil)
	svc := NewTimetableWorkflowService(f.core, nil, true)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := svc.SwapEntries(context.Background(), testSchool, dto.SwapEntriesRequest{EntryID1: "e1", EntryID2: "e2"})
	var conflict *models.TimetableConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, models.ConflictSection, conflict.Dimension)
	assert.Equal(t, "e3", conflict.Conflict.EntryID)
	assert.Equal(t, models.Monday, f.entry("e1").Day)
}

func TestWorkflowSwapEntriesSameTeacherSucceeds(t *testing.T) {
	f := newTimetableFixture(t)
	f.seedEntry("e1", "S1", "t1", models.Monday, "p1", nil)
	f.seedEntry("e2", "S2", "t1", models.Tuesday, "p2", nil)
	svc := NewTimetableWorkflowService(f.core, nil, false)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	_, err := svc.SwapEntries(context.Background(), testSchool, dto.SwapEntriesRequest{EntryID1: "e1", EntryID2: "e2"})
	require.NoError(t, err)
	assert.Equal(t, models.Tuesday, f.entry("e1").Day)
	assert.Equal(t, models.Monday, f.entry("e2").Day)
}

func TestWorkflowSwapEntriesRejectsSameID(t *testing.T) {
	f := newTimetableFixture(t)
	svc := NewTimetableWorkflowService(f.core, nil, true)

	_, err := svc.SwapEntries(context.Background(), testSchool, dto.SwapEntriesRequest{EntryID1: "e1", EntryID2: "e1"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestWorkflowLockEntryFlipsFlagOnly(t *testing.T) {
	f := newTimetableFixture(t)
	f.seedEntry("e1", "S1", "t1", models.Monday, "p1", nil)
	f.entries.items[0].Status = models.EntryStatusPublished
	svc := NewTimetableWorkflowService(f.core, nil, true)

	entry, err := svc.LockEntry(context.Background(), testSchool, "e1", dto.LockEntryRequest{IsLocked: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, entry.IsLocked)
	assert.True(t, f.entry("e1").IsLocked)
	assert.Equal(t, models.EntryStatusPublished, f.entry("e1").Status)

	_, err = svc.LockEntry(context.Background(), testSchool, "e1", dto.LockEntryRequest{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestWorkflowPublishAllNeverPromotesLocked(t *testing.T) {
	f := newTimetableFixture(t)
	f.seedEntry("draft", "S1", "t1", models.Monday, "p1", nil)
	f.seedEntry("published", "S2", "t2", models.Monday, "p1", nil)
	f.seedEntry("locked", "S3", "t3", models.Monday, "p1", nil)
	f.entries.items[1].Status = models.EntryStatusPublished
	f.entries.items[2].Status = models.EntryStatusLocked
	svc := NewTimetableWorkflowService(f.core, nil, true)

	result, err := svc.PublishAll(context.Background(), testSchool, testYear, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.EntryStatusPublished, result.Status)
	assert.Equal(t, int64(2), result.Affected)
	assert.NotContains(t, f.entries.lastSource, string(models.EntryStatusLocked))

	assert.Equal(t, models.EntryStatusPublished, f.entry("draft").Status)
	require.NotNil(t, f.entry("draft").PublishedBy)
	assert.Equal(t, "user-1", *f.entry("draft").PublishedBy)
	assert.NotNil(t, f.entry("draft").PublishedAt)
	assert.Equal(t, models.EntryStatusLocked, f.entry("locked").Status)
	assert.Nil(t, f.entry("locked").PublishedAt)
}

func TestWorkflowSectionLockAndUnlock(t *testing.T) {
	f := newTimetableFixture(t)
	f.seedEntry("e1", "S1", "t1", models.Monday, "p1", nil)
	f.seedEntry("e2", "S1", "t1", models.Tuesday, "p1", nil)
	f.seedEntry("other", "S2", "t2", models.Monday, "p1", nil)
	svc := NewTimetableWorkflowService(f.core, nil, true)
	ctx := context.Background()

	published, err := svc.Publish(ctx, testSchool, testYear, "S1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), published.Affected)
	assert.Equal(t, models.EntryStatusDraft, f.entry("other").Status)

	locked, err := svc.LockSection(ctx, testSchool, testYear, "S1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), locked.Affected)
	assert.Equal(t, models.EntryStatusLocked, f.entry("e1").Status)

	assert.Equal(t, []string{"DRAFT", "PUBLISHED"}, f.entries.lastSource)

	unlocked, err := svc.UnlockSection(ctx, testSchool, testYear, "S1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), unlocked.Affected)
	assert.Equal(t, []string{"LOCKED"}, f.entries.lastSource)
	assert.Equal(t, models.EntryStatusPublished, f.entry("e2").Status)
	assert.Equal(t, models.EntryStatusDraft, f.entry("other").Status)

	_, err = svc.LockSection(ctx, testSchool, "year-closed", "S1")
	assert.Equal(t, appErrors.ErrLocked.Code, appErrors.FromError(err).Code)

	_, err = svc.Publish(ctx, testSchool, testYear, "", "user-1")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestWorkflowMoveEntryConflictByDimension(t *testing.T) {
	for _, tc := range []struct {
		name    string
		section string
		teacher string
		room    *string
		want    models.ConflictDimension
	}{
		{name: "section", section: "S1", teacher: "t2", want: models.ConflictSection},
		{name: "teacher", section: "S2", teacher: "t1", want: models.ConflictTeacher},
		{name: "room", section: "S2", teacher: "t2", room: strPtr("room-a"), want: models.ConflictRoom},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newTimetableFixture(t)
			f.seedEntry("e1", "S1", "t1", models.Monday, "p1", strPtr("room-a"))
			f.seedEntry("e2", tc.section, tc.teacher, models.Monday, "p2", tc.room)
			svc := NewTimetableWorkflowService(f.core, nil, true)

			f.mock.ExpectBegin()
			f.mock.ExpectRollback()

			_, err := svc.MoveEntry(context.Background(), testSchool, "e1", dto.MoveEntryRequest{Day: "MONDAY", PeriodID: "p2"})
			var conflict *models.TimetableConflictError
			require.True(t, errors.As(err, &conflict))
			assert.Equal(t, tc.want, conflict.Dimension)
			assert.Equal(t, "e2", conflict.Conflict.EntryID)
			assert.Equal(t, "p1", f.entry("e1").PeriodID)
			assert.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

func TestWorkflowMoveEntryScopesPeriod(t *testing.T) {
	for _, tc := range []struct {
		period string
		code   string
	}{
		{period: "foreign", code: appErrors.ErrNotFound.Code},
		{period: "p-next", code: appErrors.ErrConfiguration.Code},
	} {
		t.Run(tc.period, func(t *testing.T) {
			f := newTimetableFixture(t)
			f.seedOutOfScopePeriods()
			f.seedEntry("e1", "S1", "t1", models.Tuesday, "p1", nil)
			svc := NewTimetableWorkflowService(f.core, nil, true)

			f.mock.ExpectBegin()
			f.mock.ExpectRollback()

			_, err := svc.MoveEntry(context.Background(), testSchool, "e1", dto.MoveEntryRequest{Day: "MONDAY", PeriodID: tc.period})
			assert.Equal(t, tc.code, appErrors.FromError(err).Code)
			assert.Equal(t, "p1", f.entry("e1").PeriodID)
		})
	}
}

func TestWorkflowSwapEntriesConflictByDimension(t *testing.T) {
	for _, tc := range []struct {
		name    string
		section string
		teacher string
		room    *string
		want    models.ConflictDimension
	}{
		{name: "teacher", section: "S3", teacher: "t1", want: models.ConflictTeacher},
		{name: "section", section: "S1", teacher: "t3", want: models.ConflictSection},
		{name: "room", section: "S3", teacher: "t3", room: strPtr("room-b"), want: models.ConflictRoom},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newTimetableFixture(t)
			f.seedEntry("e1", "S1", "t1", models.Monday, "p1", strPtr("room-a"))
			f.seedEntry("e2", "S2", "t2", models.Tuesday, "p2", strPtr("room-b"))
			// e3 sits at e2's slot, which e1 takes over together with room-b.
			f.seedEntry("e3", tc.section, tc.teacher, models.Tuesday, "p2", tc.room)
			svc := NewTimetableWorkflowService(f.core, nil, true)

			f.mock.ExpectBegin()
			f.mock.ExpectRollback()

			_, err := svc.SwapEntries(context.Background(), testSchool, dto.SwapEntriesRequest{EntryID1: "e1", EntryID2: "e2"})
			var conflict *models.TimetableConflictError
			require.True(t, errors.As(err, &conflict))
			assert.Equal(t, tc.want, conflict.Dimension)
			assert.Equal(t, "e3", conflict.Conflict.EntryID)
			assert.Equal(t, models.Monday, f.entry("e1").Day)
			assert.Equal(t, models.Tuesday, f.entry("e2").Day)
			assert.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

func TestWorkflowSwapEntriesChecksPlacement(t *testing.T) {
	for _, tc := range []struct {
		name  string
		setup func(f *timetableFixture)
		code  string
	}{
		{name: "holiday", setup: func(f *timetableFixture) { f.patterns.holidays[models.Tuesday] = true }, code: appErrors.ErrNonWorkingDay.Code},
		{name: "slot removed", setup: func(f *timetableFixture) { f.periods.slots["p2"] = []models.Weekday{models.Monday} }, code: appErrors.ErrConfiguration.Code},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newTimetableFixture(t)
			f.seedEntry("e1", "S1", "t1", models.Monday, "p1", nil)
			f.seedEntry("e2", "S2", "t2", models.Tuesday, "p2", nil)
			tc.setup(f)
			svc := NewTimetableWorkflowService(f.core, nil, true)

			f.mock.ExpectBegin()
			f.mock.ExpectRollback()

			_, err := svc.SwapEntries(context.Background(), testSchool, dto.SwapEntriesRequest{EntryID1: "e1", EntryID2: "e2"})
			assert.Equal(t, tc.code, appErrors.FromError(err).Code)
			assert.Equal(t, models.Monday, f.entry("e1").Day)
		})
	}
}

func TestWorkflowSwapEntriesTranslatesViolationAtSecondSlot(t *testing.T) {
	f := newTimetableFixture(t)
	f.seedEntry("e1", "S1", "t1", models.Monday, "p1", nil)
	f.seedEntry("e2", "S2", "t2", models.Tuesday, "p2", nil)
	// A concurrent booking takes t2 at e1's slot, where e2 is headed.
	f.entries.race = &models.TimetableEntry{
		ID: "winner", SchoolID: testSchool, AcademicYearID: testYear, ClassID: "class-S7", SectionID: "S7",
		TeacherID: "t2", PeriodID: "p1", Day: models.Monday, Status: models.EntryStatusDraft,
	}
	f.entries.swapErr = &pq.Error{Code: "23505", Constraint: repository.ConstraintTeacherSlot}
	svc := NewTimetableWorkflowService(f.core, nil, true)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := svc.SwapEntries(context.Background(), testSchool, dto.SwapEntriesRequest{EntryID1: "e1", EntryID2: "e2"})
	var conflict *models.TimetableConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, models.ConflictTeacher, conflict.Dimension)
	assert.Equal(t, "winner", conflict.Conflict.EntryID)
	assert.Equal(t, models.Monday, conflict.Conflict.Day)
	assert.Equal(t, "p1", conflict.Conflict.PeriodID)
}
