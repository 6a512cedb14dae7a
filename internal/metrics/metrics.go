// Package metrics writes per-run metrics to a Prometheus textfile for the
// node exporter's textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"apub-go/internal/config"
	"apub-go/internal/pub"
)

const namespace = "apub"

// Textfile implements pub.Metrics by writing the last run's values to a file.
// It uses its own registry so nothing from the default registry leaks in.
type Textfile struct {
	path     string
	logger   pub.Logger
	registry *prometheus.Registry

	success      prometheus.Gauge
	timestamp    prometheus.Gauge
	duration     prometheus.Gauge
	files        *prometheus.GaugeVec
	pushAttempts prometheus.Gauge
	stagingMode  *prometheus.GaugeVec
}

var _ pub.Metrics = (*Textfile)(nil)

// NewTextfile creates a Textfile writing to path.
func NewTextfile(path string, logger pub.Logger) *Textfile {
	m := &Textfile{
		path:     path,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the last run published successfully, 0 otherwise",
		}),
		timestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run started",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run",
		}),
		files: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_files",
			Help:      "File counts of the last run by stage outcome",
		}, []string{"state"}),
		pushAttempts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_push_attempts",
			Help:      "Push attempts made by the last run",
		}),
		stagingMode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_staging_mode",
			Help:      "1 for the staging tier the last run ended in",
		}, []string{"mode"}),
	}
	m.registry.MustRegister(m.success, m.timestamp, m.duration, m.files, m.pushAttempts, m.stagingMode)
	return m
}

// ObserveRun records s and rewrites the textfile. Write failures are logged;
// metrics never fail a run.
func (m *Textfile) ObserveRun(s *pub.RunSummary) {
	m.record(s)
	if err := m.write(); err != nil {
		m.logger.Warn("failed to write metrics", "path", m.path, "error", err)
	}
}

func (m *Textfile) record(s *pub.RunSummary) {
	m.success.Set(boolValue(s.Success))
	m.timestamp.Set(float64(s.StartedAt.Unix()))
	m.duration.Set(s.Elapsed.Seconds())

	m.files.Reset()
	m.files.WithLabelValues("extracted").Set(float64(s.Extract.Extracted))
	m.files.WithLabelValues("skipped").Set(float64(s.Extract.Skipped))
	if s.Audit != nil {
		m.files.WithLabelValues("oversized").Set(float64(len(s.Audit.Oversize)))
	}
	m.stagingMode.Reset()
	if s.Staging != nil {
		m.files.WithLabelValues("staged").Set(float64(s.Staging.Staged))
		m.files.WithLabelValues("failed").Set(float64(len(s.Staging.Failed)))
		m.stagingMode.WithLabelValues(string(s.Staging.Mode)).Set(1)
	}

	attempts := 0
	if s.Publish != nil {
		attempts = len(s.Publish.Attempts)
	}
	m.pushAttempts.Set(float64(attempts))
}

func (m *Textfile) write() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	return prometheus.WriteToTextfile(m.path, m.registry)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// NewMetricsFromConfig returns a Textfile when a path is configured and
// pub.NopMetrics otherwise.
func NewMetricsFromConfig(cfg config.MetricsConfig, logger pub.Logger) pub.Metrics {
	if cfg.TextfilePath == "" {
		return pub.NopMetrics{}
	}
	return NewTextfile(cfg.TextfilePath, logger)
}
