package models

import (
	"sort"
	"time"
)

// timestampLayout is the ISO-8601 UTC form with milliseconds used on the wire.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// FormatUTC renders t in UTC with millisecond precision.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// TimeWindow is an inclusive pair of instants.
type TimeWindow struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t lies within the window, bounds included.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

// ReportWindows are the two windows derived for a single pipeline run.
type ReportWindows struct {
	Now   time.Time
	Today time.Time
	Event TimeWindow
	Prep  TimeWindow
}

// ReportFilters echoes the window parameters used for a report.
type ReportFilters struct {
	EventDaysBack int    `json:"eventDaysBack"`
	PrepFrom      string `json:"prepFrom"`
	PrepTo        string `json:"prepTo"`
}

// GroupedReport is the response payload of one pipeline run.
type GroupedReport struct {
	AsOf    string                        `json:"asOf"`
	Count   int                           `json:"count"`
	Grouped map[string][]ClassifiedChange `json:"grouped"`
	Filters ReportFilters                 `json:"filters"`
}

// Shows returns the group keys in lexicographic order.
func (r *GroupedReport) Shows() []string {
	if r == nil {
		return nil
	}
	shows := make([]string, 0, len(r.Grouped))
	for show := range r.Grouped {
		shows = append(shows, show)
	}
	sort.Strings(shows)
	return shows
}

// SortedRows returns a copy of the rows of a show ordered by SortKey. Rows with equal
// keys keep their upstream order.
func (r *GroupedReport) SortedRows(show string) []ClassifiedChange {
	if r == nil {
		return nil
	}
	rows := append([]ClassifiedChange(nil), r.Grouped[show]...)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].SortKey() < rows[j].SortKey()
	})
	return rows
}

// ReportFormat enumerates supported export formats.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)
