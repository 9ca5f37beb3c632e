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

type periodService interface {
	ListPeriods(ctx context.Context, schoolID, yearID string) ([]models.TimePeriod, error)
	CreatePeriod(ctx context.Context, schoolID, yearID string, req dto.PeriodRequest) (*models.TimePeriod, error)
	UpdatePeriod(ctx context.Context, schoolID, periodID string, req dto.PeriodRequest) (*models.TimePeriod, error)
	DeletePeriod(ctx context.Context, schoolID, periodID string) error
}

// PeriodHandler exposes time period configuration.
type PeriodHandler struct {
	service periodService
}

// NewPeriodHandler constructs the handler.
func NewPeriodHandler(svc *service.PeriodService) *PeriodHandler {
	return &PeriodHandler{service: svc}
}

// List godoc
// @Summary List time periods of an academic year
// @Tags Periods
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{yearId}/periods [get]
func (h *PeriodHandler) List(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	periods, err := h.service.ListPeriods(c.Request.Context(), claims.SchoolID, c.Param("yearId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, periods)
}

// Create godoc
// @Summary Create a time period and its weekday slots
// @Description Rejected with 409 when it overlaps another period sharing a day in the same bell schedule.
// @Tags Periods
// @Accept json
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Param payload body dto.PeriodRequest true "Period payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /academic-years/{yearId}/periods [post]
func (h *PeriodHandler) Create(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.PeriodRequest
	if !bindJSON(c, &req, "invalid period payload") {
		return
	}
	period, err := h.service.CreatePeriod(c.Request.Context(), claims.SchoolID, c.Param("yearId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, period)
}

// Update godoc
// @Summary Replace a time period
// @Tags Periods
// @Accept json
// @Produce json
// @Param id path string true "Period ID"
// @Param payload body dto.PeriodRequest true "Period payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /periods/{id} [put]
func (h *PeriodHandler) Update(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.PeriodRequest
	if !bindJSON(c, &req, "invalid period payload") {
		return
	}
	period, err := h.service.UpdatePeriod(c.Request.Context(), claims.SchoolID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period)
}

// Delete godoc
// @Summary Delete a time period that no entry references
// @Tags Periods
// @Param id path string true "Period ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /periods/{id} [delete]
func (h *PeriodHandler) Delete(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	if err := h.service.DeletePeriod(c.Request.Context(), claims.SchoolID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
