package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Section is a titled run of rows, such as all changes for one show.
type Section struct {
	Name string
	Rows [][]string
}

// Table defines sectioned tabular export content. Every row must have one cell per header.
type Table struct {
	Title        string
	Subtitle     string
	SectionLabel string
	Headers      []string
	Sections     []Section
}

// RowCount returns the number of data rows across all sections.
func (t Table) RowCount() int {
	n := 0
	for _, s := range t.Sections {
		n += len(s.Rows)
	}
	return n
}

func (t Table) validate() error {
	if len(t.Headers) == 0 {
		return fmt.Errorf("table requires at least one header")
	}
	for _, s := range t.Sections {
		for i, row := range s.Rows {
			if len(row) != len(t.Headers) {
				return fmt.Errorf("section %q row %d has %d cells, want %d", s.Name, i, len(row), len(t.Headers))
			}
		}
	}
	return nil
}

// CSVExporter flattens a Table into CSV, prefixing each row with its section name.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the table.
func (e *CSVExporter) Render(data Table) ([]byte, error) {
	if err := data.validate(); err != nil {
		return nil, err
	}
	label := data.SectionLabel
	if label == "" {
		label = "Section"
	}

	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(append([]string{label}, data.Headers...)); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	record := make([]string, len(data.Headers)+1)
	for _, section := range data.Sections {
		for _, row := range section.Rows {
			record[0] = section.Name
			copy(record[1:], row)
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
