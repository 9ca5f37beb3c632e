package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type analyticsService interface {
	Workload(ctx context.Context, schoolID, yearID string, query dto.AnalyticsQuery) (*models.TimetableAnalytics, bool, error)
	SystemMetrics() models.SystemMetrics
}

// AnalyticsHandler exposes workload and utilization summaries.
type AnalyticsHandler struct {
	service analyticsService
}

// NewAnalyticsHandler constructs the handler.
func NewAnalyticsHandler(svc *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: svc}
}

// Workload godoc
// @Summary Count bookings per teacher, room, subject, section or day
// @Tags Analytics
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Param groupBy query string false "teacher|room|subject|section|day"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{yearId}/timetable/analytics [get]
func (h *AnalyticsHandler) Workload(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var query dto.AnalyticsQuery
	if !bindQuery(c, &query, "invalid analytics query") {
		return
	}
	result, hit, err := h.service.Workload(c.Request.Context(), claims.SchoolID, c.Param("yearId"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, result, middleware.ResponseMeta(c))
}

// System godoc
// @Summary Process level request, cache and conflict counters
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/system [get]
func (h *AnalyticsHandler) System(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.SystemMetrics(), middleware.ResponseMeta(c))
}
