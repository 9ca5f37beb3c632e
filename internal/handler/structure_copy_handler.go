package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type structureCopier interface {
	CopyStructure(ctx context.Context, schoolID, toYearID string, req dto.CopyStructureRequest) (*dto.CopyStructureResponse, error)
}

// StructureCopyHandler clones bell structure between academic years.
type StructureCopyHandler struct {
	service structureCopier
}

// NewStructureCopyHandler constructs the handler.
func NewStructureCopyHandler(svc *service.StructureCopyService) *StructureCopyHandler {
	return &StructureCopyHandler{service: svc}
}

// Copy godoc
// @Summary Copy bell schedules, periods and slots from another year
// @Description All or nothing: any overlap or failure rolls the whole copy back.
// @Tags Periods
// @Accept json
// @Produce json
// @Param yearId path string true "Target academic year ID"
// @Param payload body dto.CopyStructureRequest true "Source year"
// @Success 200 {object} response.Envelope
// @Router /academic-years/{yearId}/structure/copy [post]
func (h *StructureCopyHandler) Copy(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.CopyStructureRequest
	if !bindJSON(c, &req, "invalid copy payload") {
		return
	}
	result, err := h.service.CopyStructure(c.Request.Context(), claims.SchoolID, c.Param("yearId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
