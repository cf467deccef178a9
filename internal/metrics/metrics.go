// Package metrics содержит метрики Prometheus поиска, провайдера эмбеддингов и задачи генерации.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы вызовов и обработки товаров
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeEmpty   = "empty"
	OutcomeSkipped = "skipped"
)

var (
	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_duration_seconds",
			Help:    "Duration of similarity searches in seconds, including the query embedding",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	SearchResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_results_total",
			Help: "Total number of results returned by similarity searches",
		},
		[]string{"backend"},
	)

	SearchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_errors_total",
			Help: "Total number of searches degraded to an empty result",
		},
		[]string{"backend", "reason"}, // "provider", "backend"
	)

	SearchSkippedCandidates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "search_skipped_candidates_total",
			Help: "Candidates dropped by the brute-force backend because similarity was undefined",
		},
	)

	EmbeddingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_requests_total",
			Help: "Total number of embedding provider calls by outcome",
		},
		[]string{"outcome"},
	)

	EmbeddingRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "embedding_request_duration_seconds",
			Help:    "Duration of embedding provider calls in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	EmbeddingJobItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "embedding_job_items_total",
			Help: "Products handled by the embedding job by outcome",
		},
		[]string{"outcome"},
	)

	ProductCardCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_card_cache_total",
			Help: "Product card cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "embedding_circuit_breaker_state",
			Help: "Embedding provider circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)
