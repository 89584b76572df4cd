// Package metrics defines the Prometheus collectors for an enrichment run.
// A batch job has no scrape endpoint, so the registry is flushed to a
// node_exporter textfile when the run ends.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels
const (
	OutcomeOK        = "ok"
	OutcomeMalformed = "malformed"
	OutcomeError     = "error"
	OutcomeSkipped   = "skipped"
	OutcomeCached    = "checkpoint"
)

// Metrics holds all Prometheus collectors for a run.
type Metrics struct {
	Registry *prometheus.Registry

	ModelCalls      *prometheus.CounterVec
	ModelLatency    *prometheus.HistogramVec
	PostsProcessed  *prometheus.CounterVec
	RawTags         prometheus.Gauge
	CanonicalTags   prometheus.Gauge
	RunDuration     prometheus.Gauge
	LastSuccessUnix prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ModelCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "postmeta_model_calls_total",
				Help: "Model invocations by stage (extract, unify) and outcome.",
			},
			[]string{"stage", "outcome"},
		),
		ModelLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "postmeta_model_call_duration_seconds",
				Help:    "Model invocation latency in seconds by stage.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),
		PostsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "postmeta_posts_processed_total",
				Help: "Posts leaving the extract phase by outcome (ok, checkpoint, skipped).",
			},
			[]string{"outcome"},
		),
		RawTags: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "postmeta_raw_tags",
			Help: "Distinct raw tags sent to unification in the last run.",
		}),
		CanonicalTags: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "postmeta_canonical_tags",
			Help: "Distinct canonical tags produced in the last run.",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "postmeta_run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		LastSuccessUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "postmeta_last_success_timestamp_seconds",
			Help: "Unix time of the last run that persisted its corpus.",
		}),
	}

	m.Registry.MustRegister(
		m.ModelCalls,
		m.ModelLatency,
		m.PostsProcessed,
		m.RawTags,
		m.CanonicalTags,
		m.RunDuration,
		m.LastSuccessUnix,
	)
	return m
}

// ObserveCall records one model invocation.
func (m *Metrics) ObserveCall(stage, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.ModelCalls.WithLabelValues(stage, outcome).Inc()
	m.ModelLatency.WithLabelValues(stage).Observe(took.Seconds())
}

// ObservePost records a post leaving the extract phase.
func (m *Metrics) ObservePost(outcome string) {
	if m == nil {
		return
	}
	m.PostsProcessed.WithLabelValues(outcome).Inc()
}

// ObserveTags records the vocabulary sizes of a unification.
func (m *Metrics) ObserveTags(raw, canonical int) {
	if m == nil {
		return
	}
	m.RawTags.Set(float64(raw))
	m.CanonicalTags.Set(float64(canonical))
}

// ObserveRun records the end of a run.
func (m *Metrics) ObserveRun(took time.Duration, succeeded bool, now time.Time) {
	if m == nil {
		return
	}
	m.RunDuration.Set(took.Seconds())
	if succeeded {
		m.LastSuccessUnix.Set(float64(now.Unix()))
	}
}

// WriteTextfile writes the registry in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
