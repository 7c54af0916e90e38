package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/changeboard-api/internal/models"
	"github.com/noah-isme/changeboard-api/internal/service"
	"github.com/noah-isme/changeboard-api/pkg/response"
)

type changesBuilder interface {
	Build(ctx context.Context) (*models.GroupedReport, error)
}

type changesExporter interface {
	Render(ctx context.Context, format models.ReportFormat) (*service.ExportFile, error)
}

// ChangesHandler serves the grouped change report.
type ChangesHandler struct {
	changes  changesBuilder
	exporter changesExporter
}

// NewChangesHandler constructs the handler.
func NewChangesHandler(changes changesBuilder, exporter changesExporter) *ChangesHandler {
	return &ChangesHandler{changes: changes, exporter: exporter}
}

// Changes godoc
// @Summary Grouped inventory changes
// @Description Fetches the change log report, drops noise and groups rows by show. Every call runs a fresh upstream fetch.
// @Tags Changes
// @Produce json
// @Success 200 {object} models.GroupedReport
// @Failure 401 {object} response.ErrorBody
// @Failure 500 {object} response.ErrorBody
// @Router /api/changes [get]
func (h *ChangesHandler) Changes(c *gin.Context) {
	report, err := h.changes.Build(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// Export godoc
// @Summary Download inventory changes
// @Tags Changes
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.ErrorBody
// @Failure 500 {object} response.ErrorBody
// @Router /api/changes/export [get]
func (h *ChangesHandler) Export(c *gin.Context) {
	format, err := service.ParseReportFormat(c.DefaultQuery("format", string(models.ReportFormatCSV)))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exporter.Render(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
