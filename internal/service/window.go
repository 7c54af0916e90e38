package service

import (
	"time"

	"github.com/noah-isme/changeboard-api/internal/models"
)

// WindowConfig holds the day offsets and reporting zone for window arithmetic.
type WindowConfig struct {
	EventDaysBack  int
	PrepDaysPast   int
	PrepDaysFuture int
	Location       *time.Location
}

// WindowCalculator derives the event and prep windows from the current instant.
type WindowCalculator struct {
	cfg WindowConfig
}

// NewWindowCalculator constructs a calculator; a nil location means time.Local.
func NewWindowCalculator(cfg WindowConfig) *WindowCalculator {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &WindowCalculator{cfg: cfg}
}

// Config returns the calculator configuration.
func (w *WindowCalculator) Config() WindowConfig {
	return w.cfg
}

// Compute returns the windows for now.
func (w *WindowCalculator) Compute(now time.Time) models.ReportWindows {
	today := w.StartOfDay(now)
	return models.ReportWindows{
		Now:   now,
		Today: today,
		Event: models.TimeWindow{
			From: today.AddDate(0, 0, -w.cfg.EventDaysBack),
			To:   w.EndOfDay(now),
		},
		Prep: models.TimeWindow{
			From: today.AddDate(0, 0, -w.cfg.PrepDaysPast),
			To:   today.AddDate(0, 0, w.cfg.PrepDaysFuture),
		},
	}
}

// StartOfDay truncates t to midnight in the reporting zone.
func (w *WindowCalculator) StartOfDay(t time.Time) time.Time {
	t = t.In(w.cfg.Location)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, w.cfg.Location)
}

// EndOfDay returns 23:59:59.999 of t's day in the reporting zone.
func (w *WindowCalculator) EndOfDay(t time.Time) time.Time {
	t = t.In(w.cfg.Location)
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), w.cfg.Location)
}
