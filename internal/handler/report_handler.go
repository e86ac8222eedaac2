package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/hostelhq/hostel-api/internal/service"
	"github.com/hostelhq/hostel-api/pkg/response"
)

// ReportHandler wires HTTP endpoints to the report service.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// Occupancy godoc
// @Summary Occupancy report
// @Description Download the per-room occupancy table as CSV or PDF
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /reports/occupancy [get]
func (h *ReportHandler) Occupancy(c *gin.Context) {
	format := service.ReportFormat(c.DefaultQuery("format", "csv"))

	file, err := h.service.OccupancyReport(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	c.Data(200, file.ContentType, file.Content)
}
