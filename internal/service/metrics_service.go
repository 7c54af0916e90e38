package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline outcomes recorded per report build.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP surface and the report pipeline.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	upstreamPages   *prometheus.HistogramVec
	pipelineRuns    *prometheus.CounterVec
	pipelineLatency prometheus.Histogram
	droppedRecords  *prometheus.CounterVec
	reportedRecords prometheus.Gauge
	lastSuccess     prometheus.Gauge
	probeRuns       *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	upstreamPages := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upstream_page_duration_seconds",
		Help:    "Duration of change log page requests",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"status"})

	pipelineRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "changes_pipeline_runs_total",
		Help: "Report builds by outcome",
	}, []string{"outcome"})

	pipelineLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "changes_pipeline_duration_seconds",
		Help:    "End-to-end duration of report builds",
		Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	droppedRecords := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "changes_records_dropped_total",
		Help: "Fetched rows excluded from the report by reason",
	}, []string{"reason"})

	reportedRecords := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "changes_records_reported",
		Help: "Rows in the most recent successful report",
	})

	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "changes_last_success_timestamp_seconds",
		Help: "Unix time of the most recent successful report build",
	})

	probeRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "changes_probe_runs_total",
		Help: "Scheduled probe runs by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, upstreamPages, pipelineRuns, pipelineLatency,
		droppedRecords, reportedRecords, lastSuccess, probeRuns, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		upstreamPages:   upstreamPages,
		pipelineRuns:    pipelineRuns,
		pipelineLatency: pipelineLatency,
		droppedRecords:  droppedRecords,
		reportedRecords: reportedRecords,
		lastSuccess:     lastSuccess,
		probeRuns:       probeRuns,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveUpstreamPage records one report page request. Status 0 marks a transport failure.
func (m *MetricsService) ObserveUpstreamPage(status int, duration time.Duration) {
	if m == nil {
		return
	}
	label := "transport_error"
	if status > 0 {
		label = fmt.Sprintf("%d", status)
	}
	m.upstreamPages.WithLabelValues(label).Observe(duration.Seconds())
}

// ObservePipeline records a finished report build. reported is ignored for failed builds.
func (m *MetricsService) ObservePipeline(outcome string, reported int, duration time.Duration, at time.Time) {
	if m == nil {
		return
	}
	m.pipelineRuns.WithLabelValues(outcome).Inc()
	m.pipelineLatency.Observe(duration.Seconds())
	if outcome == OutcomeSuccess {
		m.reportedRecords.Set(float64(reported))
		m.lastSuccess.Set(float64(at.Unix()))
	}
}

// RecordDropped counts rows excluded for reason.
func (m *MetricsService) RecordDropped(reason DropReason, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.droppedRecords.WithLabelValues(string(reason)).Add(float64(n))
}

// ObserveProbe counts a scheduled probe run.
func (m *MetricsService) ObserveProbe(outcome string) {
	if m == nil {
		return
	}
	m.probeRuns.WithLabelValues(outcome).Inc()
}
