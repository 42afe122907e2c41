package metrics

import "github.com/prometheus/client_golang/prometheus"

// Reasoning (LLM) Prometheus metrics.
var (
	ReasoningRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumatch",
			Name:      "reasoning_requests_total",
			Help:      "Total number of reasoning requests",
		},
		[]string{"provider", "model", "status"},
	)

	ReasoningRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "resumatch",
			Name:      "reasoning_request_duration_seconds",
			Help:      "Reasoning request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"provider", "model"},
	)

	ReasoningFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "resumatch",
			Name:      "reasoning_fallbacks_total",
			Help:      "Matches returned with a placeholder explanation after provider failure",
		},
	)
)

var reasoningMetricsRegistered bool

// RegisterReasoningMetrics registers Prometheus reasoning metrics. Must be called once from main.
func RegisterReasoningMetrics() {
	if reasoningMetricsRegistered {
		return
	}
	prometheus.MustRegister(ReasoningRequestsTotal)
	prometheus.MustRegister(ReasoningRequestDuration)
	prometheus.MustRegister(ReasoningFallbacksTotal)
	reasoningMetricsRegistered = true
}
