// Package metrics exposes Prometheus collectors for the analysis engine.
// Degraded analyses are counted separately from genuine model scores so
// operators can see when the engine is running on its fallback.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "moodlens"

// Outcome label values.
const (
	OutcomeModel    = "model"
	OutcomeDegraded = "degraded"
	OutcomeRejected = "rejected"
)

// Metrics groups the engine collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	AnalysesTotal *prometheus.CounterVec
	InferenceTime prometheus.Histogram
	BackendState  prometheus.Gauge
	ArtifactFetch *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Completed analyses by outcome and degradation reason.",
		}, []string{"outcome", "reason"}),
		InferenceTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_seconds",
			Help:      "Model inference latency.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 2},
		}),
		BackendState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backend_state",
			Help:      "Scoring backend state (0 uninitialized, 1 loading, 2 ready, 3 unavailable).",
		}),
		ArtifactFetch: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "artifact_fetch_seconds",
			Help:      "Model and vocabulary download latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"artifact", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.AnalysesTotal, m.InferenceTime, m.BackendState, m.ArtifactFetch)
	}
	return m
}

// ObserveAnalysis counts one analysis. reason is empty for genuine scores.
func (m *Metrics) ObserveAnalysis(outcome, reason string) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(outcome, reason).Inc()
}

// ObserveInference records the duration of one Score call.
func (m *Metrics) ObserveInference(d time.Duration) {
	if m == nil {
		return
	}
	m.InferenceTime.Observe(d.Seconds())
}

// SetBackendState records the numeric backend state.
func (m *Metrics) SetBackendState(state int) {
	if m == nil {
		return
	}
	m.BackendState.Set(float64(state))
}

// ObserveFetch records one artifact download.
func (m *Metrics) ObserveFetch(artifact string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ArtifactFetch.WithLabelValues(artifact, result).Observe(d.Seconds())
}
