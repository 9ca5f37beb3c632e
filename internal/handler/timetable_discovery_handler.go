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

type discoveryService interface {
	FreeTeachers(ctx context.Context, schoolID, yearID string, query dto.SlotQuery) ([]models.TeacherOption, error)
	FreeRooms(ctx context.Context, schoolID, yearID string, query dto.SlotQuery) ([]models.Room, error)
}

// DiscoveryHandler answers which teachers and rooms are free at a slot.
type DiscoveryHandler struct {
	service discoveryService
}

// NewDiscoveryHandler constructs the handler.
func NewDiscoveryHandler(svc *service.DiscoveryService) *DiscoveryHandler {
	return &DiscoveryHandler{service: svc}
}

// FreeTeachers godoc
// @Summary List active teachers with no booking at a slot
// @Description Teachers declaring subjectId are flagged preferred and listed first.
// @Tags Timetable Discovery
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Param day query string true "Weekday"
// @Param periodId query string true "Period ID"
// @Param subjectId query string false "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{yearId}/timetable/free-teachers [get]
func (h *DiscoveryHandler) FreeTeachers(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var query dto.SlotQuery
	if !bindQuery(c, &query, "invalid slot query") {
		return
	}
	teachers, err := h.service.FreeTeachers(c.Request.Context(), claims.SchoolID, c.Param("yearId"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers)
}

// FreeRooms godoc
// @Summary List active rooms with no booking at a slot
// @Tags Timetable Discovery
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Param day query string true "Weekday"
// @Param periodId query string true "Period ID"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{yearId}/timetable/free-rooms [get]
func (h *DiscoveryHandler) FreeRooms(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var query dto.SlotQuery
	if !bindQuery(c, &query, "invalid slot query") {
		return
	}
	rooms, err := h.service.FreeRooms(c.Request.Context(), claims.SchoolID, c.Param("yearId"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms)
}
