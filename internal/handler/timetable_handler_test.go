package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type timetableServiceStub struct {
	schoolID string
	yearID   string
	created  dto.EntryRequest
	query    dto.EntryQuery
	err      error
}

func (s *timetableServiceStub) CreateEntry(ctx context.Context, schoolID, yearID string, req dto.EntryRequest) (*models.TimetableEntry, error) {
	s.schoolID, s.yearID, s.created = schoolID, yearID, req
	if s.err != nil {
		return nil, s.err
	}
	return &models.TimetableEntry{ID: "entry-1", SectionID: req.SectionID, Status: models.EntryStatusDraft}, nil
}

func (s *timetableServiceStub) CheckAvailability(ctx context.Context, schoolID, yearID string, req dto.EntryRequest) (*dto.AvailabilityResponse, error) {
	return &dto.AvailabilityResponse{Status: dto.AvailabilityOK}, nil
}

func (s *timetableServiceStub) DeleteEntry(ctx context.Context, schoolID, entryID string) error {
	return s.err
}

func (s *timetableServiceStub) GetEntry(ctx context.Context, schoolID, entryID string) (*models.TimetableEntry, error) {
	return &models.TimetableEntry{ID: entryID}, s.err
}

func (s *timetableServiceStub) ListEntries(ctx context.Context, schoolID, yearID string, query dto.EntryQuery) ([]models.TimetableEntry, error) {
	s.query = query
	return []models.TimetableEntry{{ID: "entry-1"}}, nil
}

func (s *timetableServiceStub) GetContext(ctx context.Context, schoolID, yearID, sectionID string) (*dto.TimetableContext, error) {
	return &dto.TimetableContext{AcademicYearID: yearID, SectionID: sectionID}, nil
}

const entryPayload = `{"classId":"c1","sectionId":"s1","subjectId":"math","teacherId":"t1","periodId":"p1","day":"MONDAY"}`

func TestTimetableHandlerCreate(t *testing.T) {
	svc := &timetableServiceStub{}
	h := &TimetableHandler{service: svc}
	c, w := newTestContext(http.MethodPost, "/academic-years/year-1/timetable/entries", []byte(entryPayload), adminClaims())
	c.Params = gin.Params{{Key: "yearId", Value: "year-1"}}

	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "school-1", svc.schoolID)
	assert.Equal(t, "year-1", svc.yearID)
	assert.Equal(t, "t1", svc.created.TeacherID)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestTimetableHandlerCreateConflictCarriesDetails(t *testing.T) {
	existing := models.TimetableEntry{ID: "entry-0", ClassID: "c1", SectionID: "S1", TeacherID: "t1", PeriodID: "p1", Day: models.Monday}
	conflict := models.NewTimetableConflict(models.ConflictTeacher, existing)
	svc := &timetableServiceStub{err: appErrors.Wrap(conflict, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, conflict.Message)}
	h := &TimetableHandler{service: svc}
	c, w := newTestContext(http.MethodPost, "/", []byte(entryPayload), adminClaims())

	h.Create(c)

	require.Equal(t, http.StatusConflict, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "CONFLICT", env.Error.Code)
	assert.Contains(t, env.Error.Message, "S1")

	var detail models.TimetableConflictError
	require.NoError(t, json.Unmarshal(env.Details, &detail))
	assert.Equal(t, models.ConflictTeacher, detail.Dimension)
	assert.Equal(t, "entry-0", detail.Conflict.EntryID)
}

func TestTimetableHandlerRejectsMalformedBody(t *testing.T) {
	h := &TimetableHandler{service: &timetableServiceStub{}}
	c, w := newTestContext(http.MethodPost, "/", []byte(`{"classId":`), adminClaims())

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerRequiresSchoolScope(t *testing.T) {
	h := &TimetableHandler{service: &timetableServiceStub{}}
	c, w := newTestContext(http.MethodGet, "/", nil, nil)

	h.List(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newTestContext(http.MethodGet, "/", nil, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})
	h.List(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTimetableHandlerListBindsFilters(t *testing.T) {
	svc := &timetableServiceStub{}
	h := &TimetableHandler{service: svc}
	c, w := newTestContext(http.MethodGet, "/academic-years/year-1/timetable/entries?teacherId=t1&day=MONDAY", nil, adminClaims())

	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "t1", svc.query.TeacherID)
	assert.Equal(t, "MONDAY", svc.query.Day)
}

func TestTimetableHandlerDeleteMapsLock(t *testing.T) {
	h := &TimetableHandler{service: &timetableServiceStub{err: appErrors.Clone(appErrors.ErrLocked, "timetable entry is locked")}}
	c, w := newTestContext(http.MethodDelete, "/", nil, adminClaims())
	c.Params = gin.Params{{Key: "id", Value: "entry-1"}}

	h.Delete(c)

	assert.Equal(t, http.StatusLocked, w.Code)
}

func TestTimetableHandlerContextPassesSection(t *testing.T) {
	h := &TimetableHandler{service: &timetableServiceStub{}}
	c, w := newTestContext(http.MethodGet, "/academic-years/year-1/timetable/context?sectionId=s1", nil, adminClaims())
	c.Params = gin.Params{{Key: "yearId", Value: "year-1"}}

	h.Context(c)

	require.Equal(t, http.StatusOK, w.Code)
	var ctx dto.TimetableContext
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &ctx))
	assert.Equal(t, "s1", ctx.SectionID)
	assert.Equal(t, "year-1", ctx.AcademicYearID)
}
