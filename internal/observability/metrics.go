package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GroupingRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grouping_run_duration_seconds",
			Help:    "Keyword grouping run duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"source", "status"},
	)

	GroupingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grouping_runs_total",
			Help: "Total number of keyword grouping runs",
		},
		[]string{"source", "status"},
	)

	TokensPerRun = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "grouping_tokens_per_run",
			Help:    "Distinct tokens processed per grouping run",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		},
	)

	GroupsPerRun = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "grouping_groups_per_run",
			Help:    "Keyword groups produced per grouping run",
			Buckets: prometheus.ExponentialBuckets(5, 4, 8),
		},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP API requests",
		},
		[]string{"endpoint", "status"},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_cache_hits_total",
			Help: "Total number of Redis cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_cache_misses_total",
			Help: "Total number of Redis cache misses",
		},
	)

	ESQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "es_query_duration_seconds",
			Help:    "Elasticsearch query duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.15, 0.2, 0.5, 1},
		},
		[]string{"index", "status"},
	)

	CHQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ch_query_duration_seconds",
			Help:    "ClickHouse query duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"query_type", "status"},
	)

	IngestLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ingest_lag_seconds",
			Help: "Current ingest pipeline lag in seconds",
		},
	)

	IngestEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_events_total",
			Help: "Total number of search events processed by the ingest pipeline",
		},
		[]string{"operation", "status"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	SlowRunCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slow_run_total",
			Help: "Total number of slow grouping runs",
		},
		[]string{"severity", "run_type"},
	)

	ActiveConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of active connections to backend systems",
		},
		[]string{"backend"},
	)

	KafkaConsumerLag = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kafka_consumer_group_lag",
			Help: "Kafka consumer group lag by topic/partition",
		},
		[]string{"topic", "partition"},
	)

	ESClusterHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "es_cluster_health_status",
			Help: "ES cluster health (0=green, 1=yellow, 2=red)",
		},
		[]string{"color"},
	)
)
