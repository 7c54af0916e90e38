package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth = 277.0 // A4 landscape minus margins
	pdfRowHeight = 6.0
	pdfEllipsis  = "..."
)

// PDFExporter renders tables as a landscape report with one block per section.
type PDFExporter struct {
	// Widths are relative column weights; equal widths are used when the count does not match.
	Widths []float64
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter(widths ...float64) *PDFExporter {
	return &PDFExporter{Widths: widths}
}

// Render creates a PDF document with the table title, subtitle and sections.
func (e *PDFExporter) Render(data Table) ([]byte, error) {
	if err := data.validate(); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	widths := e.columnWidths(len(data.Headers))

	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range data.Headers {
			pdf.CellFormat(widths[i], pdfRowHeight+1, tr(h), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}

	pdf.AddPage()
	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 9, tr(data.Title), "", 1, "L", false, 0, "")
	}
	if data.Subtitle != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 6, tr(data.Subtitle), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	if data.RowCount() == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 8, "No changes in range.", "", 1, "L", false, 0, "")
	}

	for _, section := range data.Sections {
		if len(section.Rows) == 0 {
			continue
		}
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 8, tr(section.Name), "B", 1, "L", false, 0, "")
		header()
		for _, row := range section.Rows {
			for i, cell := range row {
				pdf.CellFormat(widths[i], pdfRowHeight, fitText(pdf, tr(cell), widths[i]-2), "1", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) columnWidths(n int) []float64 {
	var total float64
	for _, w := range e.Widths {
		total += w
	}
	widths := make([]float64, n)
	for i := range widths {
		if len(e.Widths) == n && total > 0 {
			widths[i] = pdfPageWidth * e.Widths[i] / total
		} else {
			widths[i] = pdfPageWidth / float64(n)
		}
	}
	return widths
}

// fitText shortens s with an ellipsis until it fits in width at the current font. s is
// already translated to the single-byte font encoding.
func fitText(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	for n := len(s) - 1; n > 0; n-- {
		candidate := s[:n] + pdfEllipsis
		if pdf.GetStringWidth(candidate) <= width {
			return candidate
		}
	}
	return ""
}
