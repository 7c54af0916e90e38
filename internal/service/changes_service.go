package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/changeboard-api/internal/models"
	"github.com/noah-isme/changeboard-api/internal/repository"
)

type changeLogFetcher interface {
	FetchAll(ctx context.Context, windows models.ReportWindows, filters repository.ChangeLogFilters) ([]models.RawChangeRecord, error)
}

// ChangesServiceConfig carries the upstream narrowing applied to every run.
type ChangesServiceConfig struct {
	Filters repository.ChangeLogFilters
}

// ChangesService runs the fetch, filter, classify and group pipeline for one report.
type ChangesService struct {
	fetcher    changeLogFetcher
	windows    *WindowCalculator
	visibility *VisibilityFilter
	classifier *NoteClassifier
	metrics    *MetricsService
	logger     *zap.Logger
	cfg        ChangesServiceConfig
	now        func() time.Time
}

// NewChangesService constructs the pipeline. metrics may be nil.
func NewChangesService(fetcher changeLogFetcher, windows *WindowCalculator, visibility *VisibilityFilter, classifier *NoteClassifier, metrics *MetricsService, logger *zap.Logger, cfg ChangesServiceConfig) *ChangesService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if classifier == nil {
		classifier = NewNoteClassifier()
	}
	if visibility == nil {
		visibility = NewVisibilityFilter(PolicyQuery, windows)
	}
	return &ChangesService{
		fetcher:    fetcher,
		windows:    windows,
		visibility: visibility,
		classifier: classifier,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Build produces a fresh grouped report. Any upstream failure aborts the run; partial
// results are never returned.
func (s *ChangesService) Build(ctx context.Context) (*models.GroupedReport, error) {
	started := time.Now()
	now := s.now()
	windows := s.windows.Compute(now)

	records, err := s.fetcher.FetchAll(ctx, windows, s.cfg.Filters)
	if err != nil {
		s.metrics.ObservePipeline(OutcomeError, 0, time.Since(started), now)
		s.logger.Error("change report build failed", zap.Error(err))
		return nil, err
	}

	changes := make([]models.ClassifiedChange, 0, len(records))
	dropped := make(map[DropReason]int)
	for _, rec := range records {
		if ok, reason := s.visibility.Visible(rec, windows); !ok {
			dropped[reason]++
			continue
		}
		changes = append(changes, NewClassifiedChange(rec, s.classifier.Classify(rec.Note)))
	}
	for reason, n := range dropped {
		s.metrics.RecordDropped(reason, n)
	}
	if len(dropped) > 0 {
		s.logger.Debug("change rows dropped", zap.Any("reasons", dropped))
	}

	if len(changes) > 0 {
		s.logger.Debug("sample change row", zap.Any("row", changes[0]))
	}

	report := &models.GroupedReport{
		AsOf:    models.FormatUTC(now),
		Count:   len(changes),
		Grouped: GroupByShow(changes),
		Filters: models.ReportFilters{
			EventDaysBack: s.windows.Config().EventDaysBack,
			PrepFrom:      models.FormatUTC(windows.Prep.From),
			PrepTo:        models.FormatUTC(windows.Prep.To),
		},
	}

	s.metrics.ObservePipeline(OutcomeSuccess, report.Count, time.Since(started), now)
	s.logger.Info("change report built",
		zap.Int("fetched", len(records)),
		zap.Int("reported", report.Count),
		zap.Int("shows", len(report.Grouped)),
		zap.String("policy", string(s.visibility.Policy())),
	)
	return report, nil
}
