package service

import (
	"context"

	"go.uber.org/zap"
)

// ProbeService exercises the report pipeline in the background so upstream outages show
// up in metrics before a user opens the dashboard. Results are discarded.
type ProbeService struct {
	builder reportBuilder
	metrics *MetricsService
	logger  *zap.Logger
}

// NewProbeService constructs a probe over builder.
func NewProbeService(builder reportBuilder, metrics *MetricsService, logger *zap.Logger) *ProbeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProbeService{builder: builder, metrics: metrics, logger: logger}
}

// Run builds one report and records the outcome.
func (p *ProbeService) Run(ctx context.Context) error {
	report, err := p.builder.Build(ctx)
	if err != nil {
		p.metrics.ObserveProbe(OutcomeError)
		p.logger.Warn("upstream probe failed", zap.Error(err))
		return err
	}
	p.metrics.ObserveProbe(OutcomeSuccess)
	p.logger.Debug("upstream probe succeeded", zap.Int("count", report.Count))
	return nil
}
