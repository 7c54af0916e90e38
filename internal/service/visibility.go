package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/noah-isme/changeboard-api/internal/models"
)

// VisibilityPolicy selects how rows are checked against the report windows.
type VisibilityPolicy string

const (
	// PolicyQuery trusts the upstream between-filters and only removes noise.
	PolicyQuery VisibilityPolicy = "query"
	// PolicyRecency additionally keeps jobs whose prep-to-return span covers today.
	PolicyRecency VisibilityPolicy = "recency"
)

// ParsePolicy validates a configured policy name.
func ParsePolicy(raw string) (VisibilityPolicy, error) {
	switch VisibilityPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PolicyQuery:
		return PolicyQuery, nil
	case PolicyRecency:
		return PolicyRecency, nil
	default:
		return "", fmt.Errorf("unknown visibility policy %q", raw)
	}
}

// DropReason explains why a row was excluded.
type DropReason string

const (
	DropNone        DropReason = ""
	DropNoiseLabor  DropReason = "noise_labor"
	DropNoisePrice  DropReason = "noise_price"
	DropMalformed   DropReason = "malformed"
	DropOutOfWindow DropReason = "out_of_window"
)

// prepLeadDays is how long before the prep date a job starts to matter.
const prepLeadDays = 3

var noisePatterns = []struct {
	reason  DropReason
	pattern *regexp.Regexp
}{
	{DropNoiseLabor, regexp.MustCompile(`(?i)(^labor\b|labor\b|labor\s*[-:])`)},
	{DropNoisePrice, regexp.MustCompile(`(?i)(^price\b|price\b|price\s*[-:])`)},
}

// VisibilityFilter decides which fetched rows belong in the report.
type VisibilityFilter struct {
	policy  VisibilityPolicy
	windows *WindowCalculator
}

// NewVisibilityFilter constructs a filter. The calculator supplies the reporting zone.
func NewVisibilityFilter(policy VisibilityPolicy, windows *WindowCalculator) *VisibilityFilter {
	if policy == "" {
		policy = PolicyQuery
	}
	return &VisibilityFilter{policy: policy, windows: windows}
}

// Policy returns the active policy.
func (f *VisibilityFilter) Policy() VisibilityPolicy {
	return f.policy
}

// Visible reports whether rec should be displayed for the run described by w.
func (f *VisibilityFilter) Visible(rec models.RawChangeRecord, w models.ReportWindows) (bool, DropReason) {
	if reason := NoiseReason(rec.Note); reason != DropNone {
		return false, reason
	}
	if f.policy != PolicyRecency {
		return true, DropNone
	}

	loc := f.windows.Config().Location
	prep, okPrep := ParseTimestamp(rec.BeginDate1, loc)
	ret, okRet := ParseTimestamp(rec.ReturnDate, loc)
	event, okEvent := ParseTimestamp(rec.EventDate, loc)
	if !okPrep || !okRet || !okEvent {
		return false, DropMalformed
	}

	prepMinus := f.windows.StartOfDay(prep).AddDate(0, 0, -prepLeadDays)
	relevant := models.TimeWindow{From: prepMinus, To: ret}
	if !relevant.Contains(w.Today) || event.Before(prepMinus) {
		return false, DropOutOfWindow
	}
	return true, DropNone
}

// NoiseReason reports whether a note is labor or price bookkeeping.
func NoiseReason(note string) DropReason {
	if note == "" {
		return DropNone
	}
	for _, noise := range noisePatterns {
		if noise.pattern.MatchString(note) {
			return noise.reason
		}
	}
	return DropNone
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an upstream timestamp. Values without an offset are read in loc.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, true
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
