package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the custom Prometheus metrics for the generation pipeline.
type Metrics struct {
	GenerationRequests prometheus.Counter
	GenerationLatency  prometheus.Histogram
	PipelineErrors     *prometheus.CounterVec
	SearchRequests     prometheus.Counter
	ContextSaves       prometheus.Counter
}

// InitMetrics registers and returns the pipeline metrics.
func InitMetrics() *Metrics {
	return &Metrics{
		GenerationRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pitchforge_generations_total",
			Help: "Total number of accepted generation requests",
		}),
		GenerationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pitchforge_generation_duration_seconds",
			Help:    "End-to-end generation latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		PipelineErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pitchforge_pipeline_errors_total",
			Help: "Pipeline step failures by step",
		}, []string{"step"}), // "parse", "search", "summarize", "generate"
		SearchRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pitchforge_search_requests_total",
			Help: "Total number of company research lookups issued",
		}),
		ContextSaves: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pitchforge_context_saves_total",
			Help: "Total number of company context saves",
		}),
	}
}

// stepError records a step failure if metrics are enabled.
func (m *Metrics) stepError(step string) {
	if m != nil {
		m.PipelineErrors.WithLabelValues(step).Inc()
	}
}
