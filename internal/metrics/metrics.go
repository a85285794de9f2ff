// Package metrics counts what a run did. Each run owns its registry, and the
// result is written as a Prometheus textfile for node_exporter to pick up.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of one run.
type Metrics struct {
	registry *prometheus.Registry

	PagesTotal       *prometheus.CounterVec
	RecordsTotal     *prometheus.CounterVec
	DuplicatesTotal  *prometheus.CounterVec
	EnrichFailures   *prometheus.CounterVec
	GateTransitions  *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	StopReason       *prometheus.GaugeVec
	LastRunTimestamp prometheus.Gauge
	RunDuration      prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		PagesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jobcrawl_pages_total",
			Help: "Result pages visited",
		}, []string{"outcome"}), // 'ok', 'no_listings', 'blocked', 'error'
		RecordsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jobcrawl_records_total",
			Help: "Job records persisted",
		}, []string{"enriched"}),
		DuplicatesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jobcrawl_duplicates_total",
			Help: "Listings skipped as duplicates",
		}, []string{"scope"}), // 'run', 'seen_store'
		EnrichFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jobcrawl_enrich_failures_total",
			Help: "Detail page enrichments that failed",
		}, nil),
		GateTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jobcrawl_gate_transitions_total",
			Help: "Challenge gate state transitions",
		}, []string{"from", "to"}),
		ErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jobcrawl_errors_total",
			Help: "Errors by type",
		}, []string{"type"}), // e.g. 'sink', 'seen_store'
		StopReason: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jobcrawl_stop_reason",
			Help: "Set to 1 for the reason the last run stopped",
		}, []string{"reason"}),
		LastRunTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Name: "jobcrawl_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
		RunDuration: f.NewGauge(prometheus.GaugeOpts{
			Name: "jobcrawl_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) IncPages(outcome string) {
	m.PagesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncRecords(enriched bool) {
	label := "false"
	if enriched {
		label = "true"
	}
	m.RecordsTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) IncDuplicates(scope string) {
	m.DuplicatesTotal.WithLabelValues(scope).Inc()
}

func (m *Metrics) IncEnrichFailures() {
	m.EnrichFailures.WithLabelValues().Inc()
}

func (m *Metrics) IncGateTransition(from, to string) {
	m.GateTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) IncErrors(errorType string) {
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// Finish records how and when the run ended.
func (m *Metrics) Finish(reason string, finishedUnix, durationSeconds float64) {
	m.StopReason.Reset()
	m.StopReason.WithLabelValues(reason).Set(1)
	m.LastRunTimestamp.Set(finishedUnix)
	m.RunDuration.Set(durationSeconds)
}

// WriteToTextfile writes the registry in text exposition format to path,
// replacing it atomically.
func (m *Metrics) WriteToTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := prometheus.WriteToTextfile(tmp, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return os.Rename(tmp, path)
}
