// Package metrics exposes pipeline counters and latencies to Prometheus.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK        = "ok"
	OutcomeCorrected = "corrected"
	OutcomeFailed    = "failed"
)

type Recorder struct {
	registry *prometheus.Registry

	analyses        *prometheus.CounterVec
	analysisLatency prometheus.Histogram
	comparisons     *prometheus.CounterVec
	aiCalls         *prometheus.CounterVec
	aiLatency       *prometheus.HistogramVec
	aiFallbacks     *prometheus.CounterVec
	languages       *prometheus.CounterVec
}

// New registers the codeq collectors on a fresh registry, together with
// the Go runtime and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		analyses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "codeq_analyses_total",
			Help: "Analyses completed, by outcome",
		}, []string{"outcome"}),
		analysisLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "codeq_analysis_duration_seconds",
			Help:    "Wall time of a full analysis",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~260s
		}),
		comparisons: f.NewCounterVec(prometheus.CounterOpts{
			Name: "codeq_comparisons_total",
			Help: "Comparisons completed, by outcome",
		}, []string{"outcome"}),
		aiCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "codeq_ai_calls_total",
			Help: "Collaborator calls, by operation and backend",
		}, []string{"operation", "backend"}),
		aiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codeq_ai_call_duration_seconds",
			Help:    "Collaborator call latency",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}, []string{"operation"}),
		aiFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "codeq_ai_fallbacks_total",
			Help: "Collaborator calls that fell back to stub output",
		}, []string{"operation"}),
		languages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "codeq_detected_language_total",
			Help: "Final language of each analysis",
		}, []string{"language"}),
	}
}

// ObserveAnalysis records one finished analysis.
func (r *Recorder) ObserveAnalysis(outcome, language string, d time.Duration) {
	if r == nil {
		return
	}
	r.analyses.WithLabelValues(outcome).Inc()
	r.analysisLatency.Observe(d.Seconds())
	if language != "" {
		r.languages.WithLabelValues(language).Inc()
	}
}

// ObserveComparison records one finished comparison.
func (r *Recorder) ObserveComparison(outcome string) {
	if r == nil {
		return
	}
	r.comparisons.WithLabelValues(outcome).Inc()
}

// ObserveAICall implements ai.Observer.
func (r *Recorder) ObserveAICall(op, backend string, d time.Duration, fallback bool) {
	if r == nil {
		return
	}
	r.aiCalls.WithLabelValues(op, backend).Inc()
	r.aiLatency.WithLabelValues(op).Observe(d.Seconds())
	if fallback {
		r.aiFallbacks.WithLabelValues(op).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry exposes the underlying registry for tests and embedding.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}
