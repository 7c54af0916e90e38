package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/changeboard-api/internal/models"
	appErrors "github.com/noah-isme/changeboard-api/pkg/errors"
	"github.com/noah-isme/changeboard-api/pkg/export"
)

var exportHeaders = []string{"Order", "Verb", "Item", "Changed By", "Event Date", "Prep Date", "Return Date"}

// Relative PDF column weights for exportHeaders.
var exportWidths = []float64{1, 1.2, 5, 1.8, 2, 2, 2}

type reportBuilder interface {
	Build(ctx context.Context) (*models.GroupedReport, error)
}

type csvRenderer interface {
	Render(data export.Table) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Table) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Format      models.ReportFormat
	Rows        int
	Data        []byte
}

// ExportService renders freshly built reports as downloadable files.
type ExportService struct {
	builder reportBuilder
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(builder reportBuilder, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter(exportWidths...)
	}
	return &ExportService{builder: builder, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// ParseReportFormat validates a requested export format.
func ParseReportFormat(raw string) (models.ReportFormat, error) {
	switch models.ReportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case models.ReportFormatCSV:
		return models.ReportFormatCSV, nil
	case models.ReportFormatPDF:
		return models.ReportFormatPDF, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
	}
}

// Render builds a new report and renders it in format.
func (s *ExportService) Render(ctx context.Context, format models.ReportFormat) (*ExportFile, error) {
	if format != models.ReportFormatCSV && format != models.ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	report, err := s.builder.Build(ctx)
	if err != nil {
		return nil, err
	}

	table := BuildExportTable(report)
	var (
		payload     []byte
		contentType string
	)
	switch format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(table)
		contentType = "text/csv; charset=utf-8"
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(table)
		contentType = "application/pdf"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	file := &ExportFile{
		Filename:    fmt.Sprintf("inventory-changes_%s.%s", s.now().UTC().Format("20060102_150405"), format),
		ContentType: contentType,
		Format:      format,
		Rows:        report.Count,
		Data:        payload,
	}
	s.logger.Info("change report exported",
		zap.String("format", string(format)),
		zap.Int("rows", file.Rows),
		zap.Int("bytes", len(payload)),
	)
	return file, nil
}

// BuildExportTable lays the report out with shows in lexicographic order and each
// show's rows ordered by event date.
func BuildExportTable(report *models.GroupedReport) export.Table {
	table := export.Table{
		Title:        "Inventory changes",
		SectionLabel: "Show",
		Headers:      exportHeaders,
	}
	if report == nil {
		return table
	}
	table.Subtitle = fmt.Sprintf("As of %s, prep %s to %s, events from the last %d days",
		report.AsOf, report.Filters.PrepFrom, report.Filters.PrepTo, report.Filters.EventDaysBack)

	for _, show := range report.Shows() {
		rows := report.SortedRows(show)
		section := export.Section{Name: show, Rows: make([][]string, 0, len(rows))}
		for _, change := range rows {
			section.Rows = append(section.Rows, []string{
				strconv.FormatInt(change.OrderID, 10),
				change.VerbString(),
				change.Item,
				change.ChangeBy,
				change.EventDate,
				change.PrepDate,
				change.ReturnDate,
			})
		}
		table.Sections = append(table.Sections, section)
	}
	return table
}
