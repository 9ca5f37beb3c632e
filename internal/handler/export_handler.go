package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type exportService interface {
	Export(ctx context.Context, schoolID, yearID string, query dto.ExportQuery) (*service.ExportResult, error)
}

// ExportHandler streams timetable downloads.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Export godoc
// @Summary Download a section or teacher timetable
// @Tags Export
// @Produce text/csv
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce text/calendar
// @Param yearId path string true "Academic year ID"
// @Param format query string true "csv|pdf|xlsx|ics"
// @Param sectionId query string false "Section ID"
// @Param teacherId query string false "Teacher ID"
// @Param startDate query string false "First week anchor for ics (YYYY-MM-DD)"
// @Success 200 {file} binary
// @Router /academic-years/{yearId}/timetable/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var query dto.ExportQuery
	if !bindQuery(c, &query, "invalid export query") {
		return
	}
	result, err := h.service.Export(c.Request.Context(), claims.SchoolID, c.Param("yearId"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.ContentType, result.Filename, result.Body)
}
