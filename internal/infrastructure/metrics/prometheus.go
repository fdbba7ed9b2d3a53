// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gostream"

var (
	// CacheOperationsTotal tracks cache operations (get, set, delete).
	// Labels:
	//   - operation: get, set, delete
	//   - status: hit, miss, success, error
	//   - cache_type: redis
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations",
		},
		[]string{"operation", "status", "cache_type"},
	)

	// DBQueriesTotal tracks database queries.
	// Labels:
	//   - query_type: select, insert, update, delete
	//   - table: videos
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_queries_total",
			Help:      "Total number of database queries",
		},
		[]string{"query_type", "table"},
	)

	// SingleflightRequestsTotal tracks singleflight behavior.
	// Labels:
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"result"},
	)

	// BlobStoreOperationsTotal tracks blob store operations.
	// Labels:
	//   - operation: store, load, delete
	//   - status: success, error
	BlobStoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blobstore_operations_total",
			Help:      "Total number of blob store operations",
		},
		[]string{"operation", "status"},
	)

	// SSEActiveEmitters tracks the number of open SSE connections.
	SSEActiveEmitters = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sse_active_emitters",
			Help:      "Number of currently open SSE emitters",
		},
	)

	// SSEEventsTotal tracks events delivered to SSE emitters.
	// Labels:
	//   - outcome: delivered, dropped
	SSEEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sse_events_total",
			Help:      "Total number of SSE events dispatched",
		},
		[]string{"outcome"},
	)

	// TranscodeJobDuration tracks FFmpeg job wall-clock duration in seconds.
	// Labels:
	//   - outcome: ready, failed, timeout
	TranscodeJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcode_job_duration_seconds",
			Help:      "Duration of FFmpeg transcode jobs in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"outcome"},
	)

	// TranscodeJobsTotal tracks FFmpeg job outcomes.
	// Labels:
	//   - outcome: ready, failed, timeout
	TranscodeJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcode_jobs_total",
			Help:      "Total number of FFmpeg transcode jobs by outcome",
		},
		[]string{"outcome"},
	)
)

// Cache operation status constants.
const (
	CacheStatusHit     = "hit"
	CacheStatusMiss    = "miss"
	CacheStatusSuccess = "success"
	CacheStatusError   = "error"
)

// Cache operation type constants.
const (
	CacheOpGet    = "get"
	CacheOpSet    = "set"
	CacheOpDelete = "delete"
)

// Cache type constants.
const (
	CacheTypeRedis = "redis"
)

// DB query type constants.
const (
	DBQuerySelect = "select"
	DBQueryInsert = "insert"
	DBQueryUpdate = "update"
)

// Table name constants.
const (
	TableVideos = "videos"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)

// Blob store operation type constants.
const (
	BlobOpStore  = "store"
	BlobOpLoad   = "load"
	BlobOpDelete = "delete"
)

// Blob store operation status constants.
const (
	BlobStatusSuccess = "success"
	BlobStatusError   = "error"
)

// SSE event outcome constants.
const (
	SSEOutcomeDelivered = "delivered"
	SSEOutcomeDropped   = "dropped"
)

// Transcode job outcome constants.
const (
	TranscodeOutcomeReady   = "ready"
	TranscodeOutcomeFailed  = "failed"
	TranscodeOutcomeTimeout = "timeout"
)
