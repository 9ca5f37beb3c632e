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

type workflowService interface {
	MoveEntry(ctx context.Context, schoolID, entryID string, req dto.MoveEntryRequest) (*models.TimetableEntry, error)
	SwapEntries(ctx context.Context, schoolID string, req dto.SwapEntriesRequest) (*dto.SwapEntriesResponse, error)
	LockEntry(ctx context.Context, schoolID, entryID string, req dto.LockEntryRequest) (*models.TimetableEntry, error)
	Publish(ctx context.Context, schoolID, yearID, sectionID, actorID string) (*models.BulkStatusResult, error)
	PublishAll(ctx context.Context, schoolID, yearID, actorID string) (*models.BulkStatusResult, error)
	LockSection(ctx context.Context, schoolID, yearID, sectionID string) (*models.BulkStatusResult, error)
	UnlockSection(ctx context.Context, schoolID, yearID, sectionID string) (*models.BulkStatusResult, error)
}

// TimetableWorkflowHandler exposes move, swap, lock and publish transitions.
type TimetableWorkflowHandler struct {
	service workflowService
}

// NewTimetableWorkflowHandler constructs the handler.
func NewTimetableWorkflowHandler(svc *service.TimetableWorkflowService) *TimetableWorkflowHandler {
	return &TimetableWorkflowHandler{service: svc}
}

// Move godoc
// @Summary Move an entry to another slot
// @Tags Timetable Workflow
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body dto.MoveEntryRequest true "Target slot"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /timetable/entries/{id}/move [post]
func (h *TimetableWorkflowHandler) Move(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.MoveEntryRequest
	if !bindJSON(c, &req, "invalid move payload") {
		return
	}
	entry, err := h.service.MoveEntry(c.Request.Context(), claims.SchoolID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry)
}

// Swap godoc
// @Summary Exchange the slots of two entries atomically
// @Tags Timetable Workflow
// @Accept json
// @Produce json
// @Param payload body dto.SwapEntriesRequest true "Entries to swap"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetable/swap [post]
func (h *TimetableWorkflowHandler) Swap(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.SwapEntriesRequest
	if !bindJSON(c, &req, "invalid swap payload") {
		return
	}
	result, err := h.service.SwapEntries(c.Request.Context(), claims.SchoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Lock godoc
// @Summary Set or clear the lock flag of one entry
// @Tags Timetable Workflow
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body dto.LockEntryRequest true "Lock flag"
// @Success 200 {object} response.Envelope
// @Router /timetable/entries/{id}/lock [post]
func (h *TimetableWorkflowHandler) Lock(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.LockEntryRequest
	if !bindJSON(c, &req, "invalid lock payload") {
		return
	}
	entry, err := h.service.LockEntry(c.Request.Context(), claims.SchoolID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry)
}

// Publish godoc
// @Summary Publish a section's draft entries
// @Tags Timetable Workflow
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Param sectionId path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{yearId}/sections/{sectionId}/timetable/publish [post]
func (h *TimetableWorkflowHandler) Publish(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	result, err := h.service.Publish(c.Request.Context(), claims.SchoolID, c.Param("yearId"), c.Param("sectionId"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// PublishAll godoc
// @Summary Publish every non-locked entry of a year
// @Tags Timetable Workflow
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{yearId}/timetable/publish-all [post]
func (h *TimetableWorkflowHandler) PublishAll(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	result, err := h.service.PublishAll(c.Request.Context(), claims.SchoolID, c.Param("yearId"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// LockSection godoc
// @Summary Freeze every entry of a section
// @Tags Timetable Workflow
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Param sectionId path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{yearId}/sections/{sectionId}/timetable/lock [post]
func (h *TimetableWorkflowHandler) LockSection(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	result, err := h.service.LockSection(c.Request.Context(), claims.SchoolID, c.Param("yearId"), c.Param("sectionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// UnlockSection godoc
// @Summary Return a section's locked entries to published
// @Tags Timetable Workflow
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Param sectionId path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{yearId}/sections/{sectionId}/timetable/unlock [post]
func (h *TimetableWorkflowHandler) UnlockSection(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	result, err := h.service.UnlockSection(c.Request.Context(), claims.SchoolID, c.Param("yearId"), c.Param("sectionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
