// Package metrics exposes the counters of an analysis run. A run is a batch
// job, so metrics are gathered into a private registry and dumped to a
// node_exporter textfile when the run ends.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/werelate/dqa/errors"
)

// Metrics provides observability for an analysis run.
type Metrics struct {
	registry *prometheus.Registry

	// Rows written by the seed round, by namespace ("person", "family")
	Seeded *prometheus.CounterVec

	// Persons read and tightened per round
	Processed *prometheus.CounterVec
	Tightened *prometheus.CounterVec

	// Pages committed and failed per round
	Pages       *prometheus.CounterVec
	PageFailure *prometheus.CounterVec

	// Issues stored, by category
	Issues *prometheus.CounterVec

	// Duration of each round
	RoundDuration *prometheus.GaugeVec

	// Job id of the run
	Job prometheus.Gauge
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Seeded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dqa_seeded_rows_total",
			Help: "Rows written to the working set by the seed round",
		}, []string{"namespace"}),
		Processed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dqa_persons_processed_total",
			Help: "Persons read by a propagation round",
		}, []string{"round"}),
		Tightened: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dqa_persons_tightened_total",
			Help: "Persons whose birth interval narrowed in a round",
		}, []string{"round"}),
		Pages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dqa_pages_committed_total",
			Help: "Pages committed by a propagation round",
		}, []string{"round"}),
		PageFailure: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dqa_page_failures_total",
			Help: "Pages rolled back by a propagation round",
		}, []string{"round"}),
		Issues: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dqa_issues_total",
			Help: "Issues written, by category",
		}, []string{"category"}), // category: "Error", "Anomaly", "Incomplete"
		RoundDuration: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dqa_round_duration_seconds",
			Help: "Wall time of each round",
		}, []string{"round"}),
		Job: f.NewGauge(prometheus.GaugeOpts{
			Name: "dqa_job_id",
			Help: "Job id of the most recent run",
		}),
	}
}

// Registry returns the registry holding the run's metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// SetJob records the run's job id.
func (m *Metrics) SetJob(jobID int) {
	if m != nil {
		m.Job.Set(float64(jobID))
	}
}

// AddSeeded records rows written by the seed round.
func (m *Metrics) AddSeeded(namespace string, n int) {
	if m != nil {
		m.Seeded.WithLabelValues(namespace).Add(float64(n))
	}
}

// ObservePage records a committed page.
func (m *Metrics) ObservePage(round, processed, tightened int) {
	if m != nil {
		r := strconv.Itoa(round)
		m.Pages.WithLabelValues(r).Inc()
		m.Processed.WithLabelValues(r).Add(float64(processed))
		m.Tightened.WithLabelValues(r).Add(float64(tightened))
	}
}

// IncrementPageFailure records a rolled back page.
func (m *Metrics) IncrementPageFailure(round int) {
	if m != nil {
		m.PageFailure.WithLabelValues(strconv.Itoa(round)).Inc()
	}
}

// AddIssues records written issues of one category.
func (m *Metrics) AddIssues(category string, n int) {
	if m != nil && n > 0 {
		m.Issues.WithLabelValues(category).Add(float64(n))
	}
}

// ObserveRound records the duration of a round.
func (m *Metrics) ObserveRound(round int, d time.Duration) {
	if m != nil {
		m.RoundDuration.WithLabelValues(strconv.Itoa(round)).Set(d.Seconds())
	}
}

// WriteTextfile dumps the metrics in the text exposition format. An empty
// path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.Wrapf(err, "failed to write metrics to %s", path)
	}
	return nil
}
