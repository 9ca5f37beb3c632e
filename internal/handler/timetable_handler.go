package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type timetableService interface {
	CreateEntry(ctx context.Context, schoolID, yearID string, req dto.EntryRequest) (*models.TimetableEntry, error)
	CheckAvailability(ctx context.Context, schoolID, yearID string, req dto.EntryRequest) (*dto.AvailabilityResponse, error)
	DeleteEntry(ctx context.Context, schoolID, entryID string) error
	GetEntry(ctx context.Context, schoolID, entryID string) (*models.TimetableEntry, error)
	ListEntries(ctx context.Context, schoolID, yearID string, query dto.EntryQuery) ([]models.TimetableEntry, error)
	GetContext(ctx context.Context, schoolID, yearID, sectionID string) (*dto.TimetableContext, error)
}

// TimetableHandler exposes the booking ledger.
type TimetableHandler struct {
	service timetableService
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Create godoc
// @Summary Book a subject into a section's slot
// @Description Teacher, section and room are checked in that order; the first clash is reported with 409.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Param payload body dto.EntryRequest true "Entry payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /academic-years/{yearId}/timetable/entries [post]
func (h *TimetableHandler) Create(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.EntryRequest
	if !bindJSON(c, &req, "invalid entry payload") {
		return
	}
	entry, err := h.service.CreateEntry(c.Request.Context(), claims.SchoolID, c.Param("yearId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// CheckAvailability godoc
// @Summary Dry-run a booking without writing it
// @Tags Timetable
// @Accept json
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Param payload body dto.EntryRequest true "Entry payload"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{yearId}/timetable/check-availability [post]
func (h *TimetableHandler) CheckAvailability(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.EntryRequest
	if !bindJSON(c, &req, "invalid entry payload") {
		return
	}
	result, err := h.service.CheckAvailability(c.Request.Context(), claims.SchoolID, c.Param("yearId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// List godoc
// @Summary List entries of a year
// @Tags Timetable
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Param sectionId query string false "Section ID"
// @Param teacherId query string false "Teacher ID"
// @Param roomId query string false "Room ID"
// @Param day query string false "Weekday"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{yearId}/timetable/entries [get]
func (h *TimetableHandler) List(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var query dto.EntryQuery
	if !bindQuery(c, &query, "invalid entry filter") {
		return
	}
	entries, err := h.service.ListEntries(c.Request.Context(), claims.SchoolID, c.Param("yearId"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries)
}

// Context godoc
// @Summary Fetch everything needed to render a section's weekly grid
// @Tags Timetable
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Param sectionId query string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{yearId}/timetable/context [get]
func (h *TimetableHandler) Context(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	result, err := h.service.GetContext(c.Request.Context(), claims.SchoolID, c.Param("yearId"), c.Query("sectionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Get godoc
// @Summary Get one entry
// @Tags Timetable
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Router /timetable/entries/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	entry, err := h.service.GetEntry(c.Request.Context(), claims.SchoolID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry)
}

// Delete godoc
// @Summary Delete an unlocked entry
// @Tags Timetable
// @Param id path string true "Entry ID"
// @Success 204
// @Failure 423 {object} response.Envelope
// @Router /timetable/entries/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	if err := h.service.DeleteEntry(c.Request.Context(), claims.SchoolID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
