package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval, generation, and streaming Prometheus metrics.
var (
	RetrievalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atena",
			Name:      "retrieval_requests_total",
			Help:      "Total retrieval pipeline runs",
		},
		[]string{"outcome"}, // "answer" / "clarification" / "fallback" / "error"
	)

	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "atena",
			Name:      "retrieval_duration_seconds",
			Help:      "Retrieval pipeline stage duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"stage"}, // "embed" / "search" / "rerank" / "total"
	)

	RetrievalDocuments = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "atena",
			Name:      "retrieval_documents",
			Help:      "Final document count per retrieval",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 12, 20},
		},
	)

	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atena",
			Name:      "llm_requests_total",
			Help:      "Total LLM completion requests",
		},
		[]string{"provider", "model", "status"},
	)

	LLMFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atena",
			Name:      "llm_fallbacks_total",
			Help:      "Times the provider chain moved past a failed provider",
		},
		[]string{"from", "to"},
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atena",
			Name:      "embedding_requests_total",
			Help:      "Total embedding requests",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atena",
			Name:      "embedding_errors_total",
			Help:      "Embedding failures by reason",
		},
		[]string{"provider", "model", "reason"}, // "api_error" / "empty_response"
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "atena",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atena",
			Name:      "embedding_tokens_total",
			Help:      "Tokens consumed by embedding requests",
		},
		[]string{"provider", "model", "kind"}, // "prompt" / "total"
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atena",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache lookups",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	StreamEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atena",
			Name:      "stream_events_total",
			Help:      "Stream events emitted by type",
		},
		[]string{"type"},
	)

	StreamFinalizeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atena",
			Name:      "stream_finalize_total",
			Help:      "Finalize outcomes",
		},
		[]string{"outcome"}, // "sync" / "background" / "error"
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalRequestsTotal)
	prometheus.MustRegister(RetrievalDuration)
	prometheus.MustRegister(RetrievalDocuments)
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMFallbacksTotal)
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingErrorsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingTokensTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(StreamEventsTotal)
	prometheus.MustRegister(StreamFinalizeTotal)
	pipelineMetricsRegistered = true
}
