package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/neurobridge/scheduling-api/internal/service"
	"github.com/neurobridge/scheduling-api/pkg/response"
)

type exportService interface {
	RenderSchedule(ctx context.Context, educatorID string, from, to time.Time, format service.ExportFormat) (*service.ExportResult, error)
}

// ExportHandler serves downloadable schedule sheets.
type ExportHandler struct {
	service exportService
}

// NewExportHandler builds a new handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Schedule godoc
// @Summary Export an educator's schedule as CSV or PDF
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param educatorId path string true "Educator ID"
// @Param from query string true "Range start (YYYY-MM-DD)"
// @Param to query string true "Range end (YYYY-MM-DD)"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /educators/{educatorId}/schedule/export [get]
func (h *ExportHandler) Schedule(c *gin.Context) {
	from, err := dateQuery(c, "from")
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := dateQuery(c, "to")
	if err != nil {
		response.Error(c, err)
		return
	}

	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportFormatCSV)))
	result, err := h.service.RenderSchedule(c.Request.Context(), c.Param("educatorId"), from, to, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
