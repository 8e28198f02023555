package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoqa_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geoqa_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	LLMRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoqa_llm_requests_total",
		Help: "Total LLM requests",
	}, []string{"model", "status"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geoqa_llm_request_duration_seconds",
		Help:    "LLM request duration",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"model"})

	LLMRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoqa_llm_retries_total",
		Help: "LLM request attempts that were retried",
	}, []string{"model"})

	LLMTokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoqa_llm_tokens_total",
		Help: "Tokens reported by the LLM provider",
	}, []string{"model", "kind"})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "geoqa_circuit_breaker_state",
		Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
	}, []string{"name"})

	PredictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoqa_predictions_total",
		Help: "Predictor invocations",
	}, []string{"module", "status"})

	PredictionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geoqa_prediction_duration_seconds",
		Help:    "Predictor invocation duration",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"module"})

	EvaluationScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "geoqa_evaluation_score",
		Help: "Mean metric score of the most recent evaluation run",
	}, []string{"metric"})
)

// Collector records predictor activity on the package collectors.
// It satisfies prompt.MetricsCollector.
type Collector struct{}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) IncrementCounter(name string, labels map[string]string) {
	switch name {
	case "predictions":
		PredictionsTotal.WithLabelValues(labels["module"], labels["status"]).Inc()
	case "llm_retries":
		LLMRetriesTotal.WithLabelValues(labels["model"]).Inc()
	}
}

func (c *Collector) RecordHistogram(name string, value float64, labels map[string]string) {
	switch name {
	case "prediction_duration_seconds":
		PredictionDuration.WithLabelValues(labels["module"]).Observe(value)
	case "llm_request_duration_seconds":
		LLMRequestDuration.WithLabelValues(labels["model"]).Observe(value)
	}
}

func (c *Collector) SetGauge(name string, value float64, labels map[string]string) {
	switch name {
	case "evaluation_score":
		EvaluationScore.WithLabelValues(labels["metric"]).Set(value)
	case "circuit_breaker_state":
		CircuitBreakerState.WithLabelValues(labels["name"]).Set(value)
	}
}
