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

type bellScheduleService interface {
	List(ctx context.Context, schoolID, yearID string) ([]models.BellSchedule, error)
	Create(ctx context.Context, schoolID, yearID string, req dto.BellScheduleRequest) (*models.BellSchedule, error)
	SetDefault(ctx context.Context, schoolID, scheduleID string) (*models.BellSchedule, error)
	Delete(ctx context.Context, schoolID, scheduleID string) error
}

// BellScheduleHandler manages named bell schedules.
type BellScheduleHandler struct {
	service bellScheduleService
}

// NewBellScheduleHandler constructs the handler.
func NewBellScheduleHandler(svc *service.BellScheduleService) *BellScheduleHandler {
	return &BellScheduleHandler{service: svc}
}

// List godoc
// @Summary List bell schedules of an academic year
// @Tags Periods
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{yearId}/bell-schedules [get]
func (h *BellScheduleHandler) List(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	schedules, err := h.service.List(c.Request.Context(), claims.SchoolID, c.Param("yearId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules)
}

// Create godoc
// @Summary Create a bell schedule
// @Tags Periods
// @Accept json
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Param payload body dto.BellScheduleRequest true "Bell schedule payload"
// @Success 201 {object} response.Envelope
// @Router /academic-years/{yearId}/bell-schedules [post]
func (h *BellScheduleHandler) Create(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.BellScheduleRequest
	if !bindJSON(c, &req, "invalid bell schedule payload") {
		return
	}
	schedule, err := h.service.Create(c.Request.Context(), claims.SchoolID, c.Param("yearId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// SetDefault godoc
// @Summary Make a bell schedule the year's default
// @Tags Periods
// @Produce json
// @Param id path string true "Bell schedule ID"
// @Success 200 {object} response.Envelope
// @Router /bell-schedules/{id}/default [post]
func (h *BellScheduleHandler) SetDefault(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	schedule, err := h.service.SetDefault(c.Request.Context(), claims.SchoolID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule)
}

// Delete godoc
// @Summary Delete a bell schedule no period references
// @Tags Periods
// @Param id path string true "Bell schedule ID"
// @Success 204
// @Router /bell-schedules/{id} [delete]
func (h *BellScheduleHandler) Delete(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), claims.SchoolID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
