// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the replay pipeline:
// - Replay decode throughput and failure classification
// - Upload boundary acceptance and sizes
// - BadgerDB write performance and conflict retries
// - NATS pipeline stage latency
// - Video render durations
// - Query API latency and throughput

var (
	// Decode Metrics
	DecodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "replay_decode_duration_seconds",
			Help:    "Duration of full replay decodes in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	DecodesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replay_decodes_total",
			Help: "Total number of replay decode attempts",
		},
		[]string{"outcome"}, // "success", "failure"
	)

	DecodeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replay_decode_failures_total",
			Help: "Total number of replay decode failures by classification",
		},
		[]string{"kind"}, // "malformed_header", "decrypt", "unsupported_version", "truncated", "no_battle_stats"
	)

	PacketsScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "replay_packets_scanned_total",
			Help: "Total number of packets scanned from decoded replay streams",
		},
	)

	ReplaySizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "replay_size_bytes",
			Help:    "Size distribution of decoded replay files in bytes",
			Buckets: []float64{1e6, 2e6, 5e6, 1e7, 2e7, 5e7},
		},
	)

	// Upload Metrics
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploads_total",
			Help: "Total number of replay uploads by result",
		},
		[]string{"status"}, // "accepted", "duplicate", "rejected", "rate_limited", "unauthorized"
	)

	UploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "upload_size_bytes",
			Help:    "Size distribution of accepted uploads in bytes",
			Buckets: []float64{1e6, 2e6, 5e6, 1e7, 2e7, 5e7},
		},
	)

	// Record Store Metrics (BadgerDB)
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_op_duration_seconds",
			Help:    "Duration of record store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "persist", "get", "search", "update_video", "backfill"
	)

	StoreOpErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_op_errors_total",
			Help: "Total number of record store operation errors",
		},
		[]string{"operation", "error_type"},
	)

	StoreConflictRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_conflict_retries_total",
			Help: "Total number of transaction retries after write conflicts",
		},
	)

	StoreConflictsExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_conflicts_exhausted_total",
			Help: "Total number of writes abandoned after exhausting conflict retries",
		},
	)

	StoreGCRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_gc_runs_total",
			Help: "Total number of value log garbage collection runs",
		},
		[]string{"result"}, // "reclaimed", "noop"
	)

	StoreSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "store_size_bytes",
			Help: "Current on-disk size of the record store",
		},
		[]string{"component"}, // "lsm", "vlog"
	)

	MatchesPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matches_persisted_total",
			Help: "Total number of match writes by game type and disposition",
		},
		[]string{"game_type", "disposition"}, // disposition: "created", "merged"
	)

	MatchResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_results_total",
			Help: "Total number of persisted matches by battle result",
		},
		[]string{"result"}, // "win", "loss", "draw", "unknown"
	)

	StatsWritesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stats_writes_skipped_total",
			Help: "Total number of stats writes skipped because stats already existed",
		},
	)

	// Pipeline Metrics (NATS / Watermill)
	PipelinePublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_messages_published_total",
			Help: "Total number of messages published to pipeline topics",
		},
		[]string{"topic"},
	)

	PipelineConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_messages_consumed_total",
			Help: "Total number of messages consumed by pipeline handlers",
		},
		[]string{"handler"},
	)

	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_processing_duration_seconds",
			Help:    "Duration of pipeline handler executions in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 300},
		},
		[]string{"handler"},
	)

	PipelineFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_processing_failures_total",
			Help: "Total number of pipeline handler failures",
		},
		[]string{"handler"},
	)

	PipelinePoisoned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_poison_messages_total",
			Help: "Total number of messages routed to the poison queue",
		},
	)

	PipelineConsumerLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_consumer_lag",
			Help: "Number of pending messages in the pipeline consumer",
		},
	)

	// Render Metrics
	RenderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "render_duration_seconds",
			Help:    "Duration of minimap video renders in seconds",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
		},
	)

	RendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renders_total",
			Help: "Total number of render attempts by outcome",
		},
		[]string{"outcome"}, // "success", "failure", "already_exists"
	)

	RenderFramesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "render_frames_written_total",
			Help: "Total number of frames piped to the encoder",
		},
	)

	RenderQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "render_queue_depth",
			Help: "Current number of queued render requests",
		},
	)

	// Notification Metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discord_notifications_total",
			Help: "Total number of Discord notification attempts",
		},
		[]string{"outcome"}, // "sent", "failed", "skipped", "breaker_open"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// WoWS Encyclopedia Metrics
	EncyclopediaLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "encyclopedia_lookups_total",
			Help: "Total number of WoWS encyclopedia lookups by kind and outcome",
		},
		[]string{"kind", "outcome"}, // kind: "ship", "account", "clan"; outcome: "hit", "cached", "miss", "error"
	)

	// Analytics Mirror Metrics (DuckDB)
	AnalyticsQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	AnalyticsQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	AnalyticsRowsMirrored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "duckdb_rows_mirrored_total",
			Help: "Total number of player stat rows mirrored into DuckDB",
		},
	)

	// Blob Store Metrics
	BlobWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blob_writes_total",
			Help: "Total number of blobs written",
		},
		[]string{"kind"}, // "replay", "video"
	)

	BlobStoredBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blob_stored_bytes_total",
			Help: "Total bytes written to blob storage after compression",
		},
		[]string{"kind"},
	)

	BlobTokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "blob_url_tokens_issued_total",
			Help: "Total number of signed download tokens issued",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	SearchQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_queries_total",
			Help: "Total number of match searches by chosen plan",
		},
		[]string{"plan"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_duration_seconds",
			Help:    "Match search duration in seconds by chosen plan",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"plan"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordDecode records a replay decode attempt. kind must be empty on
// success, otherwise the failure classification label.
func RecordDecode(duration time.Duration, kind string) {
	DecodeDuration.Observe(duration.Seconds())
	if kind == "" {
		DecodesTotal.WithLabelValues("success").Inc()
		return
	}
	DecodesTotal.WithLabelValues("failure").Inc()
	DecodeFailures.WithLabelValues(kind).Inc()
}

// RecordUpload records an upload attempt. Size is only observed for
// accepted uploads.
func RecordUpload(status string, sizeBytes int64) {
	UploadsTotal.WithLabelValues(status).Inc()
	if status == "accepted" && sizeBytes > 0 {
		UploadSizeBytes.Observe(float64(sizeBytes))
	}
}

// RecordStoreOp records a record store operation metric
func RecordStoreOp(operation string, duration time.Duration, err error) {
	StoreOpDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		// Truncate long error messages to keep label cardinality sane
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		StoreOpErrors.WithLabelValues(operation, errorType).Inc()
	}
}

// RecordMatchPersisted records a persisted match write
func RecordMatchPersisted(gameType, disposition string) {
	MatchesPersisted.WithLabelValues(gameType, disposition).Inc()
}

// RecordMatchResult records the battle result of a persisted match
func RecordMatchResult(result string) {
	MatchResults.WithLabelValues(result).Inc()
}

// RecordConflictRetry records a transaction retry after a write conflict
func RecordConflictRetry() {
	StoreConflictRetries.Inc()
}

// RecordConflictExhausted records a write abandoned after all retries
func RecordConflictExhausted() {
	StoreConflictsExhausted.Inc()
}

// RecordStoreGC records a value log garbage collection run
func RecordStoreGC(reclaimed bool) {
	result := "noop"
	if reclaimed {
		result = "reclaimed"
	}
	StoreGCRuns.WithLabelValues(result).Inc()
}

// UpdateStoreSize updates the on-disk size gauges
func UpdateStoreSize(lsmBytes, vlogBytes int64) {
	StoreSizeBytes.WithLabelValues("lsm").Set(float64(lsmBytes))
	StoreSizeBytes.WithLabelValues("vlog").Set(float64(vlogBytes))
}

// RecordPipelinePublish records a message published to a pipeline topic
func RecordPipelinePublish(topic string) {
	PipelinePublished.WithLabelValues(topic).Inc()
}

// RecordPipelineHandled records a pipeline handler execution
func RecordPipelineHandled(handler string, duration time.Duration, err error) {
	PipelineConsumed.WithLabelValues(handler).Inc()
	PipelineDuration.WithLabelValues(handler).Observe(duration.Seconds())
	if err != nil {
		PipelineFailures.WithLabelValues(handler).Inc()
	}
}

// RecordPipelinePoison records a message routed to the poison queue
func RecordPipelinePoison() {
	PipelinePoisoned.Inc()
}

// UpdatePipelineConsumerLag updates the consumer lag gauge
func UpdatePipelineConsumerLag(lag int64) {
	PipelineConsumerLag.Set(float64(lag))
}

// RecordRender records a render attempt
func RecordRender(duration time.Duration, outcome string) {
	RendersTotal.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		RenderDuration.Observe(duration.Seconds())
	}
}

// RecordNotification records a Discord notification attempt
func RecordNotification(outcome string) {
	NotificationsTotal.WithLabelValues(outcome).Inc()
}

// RecordBreakerState sets the breaker state gauge for a named breaker
func RecordBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordBreakerTransition records a breaker state transition
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordEncyclopediaLookup records a WoWS encyclopedia lookup outcome
func RecordEncyclopediaLookup(kind, outcome string) {
	EncyclopediaLookups.WithLabelValues(kind, outcome).Inc()
}

// RecordAnalyticsQuery records a DuckDB query metric
func RecordAnalyticsQuery(operation, table string, duration time.Duration, err error) {
	AnalyticsQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		AnalyticsQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordBlobWrite records a blob written to storage
func RecordBlobWrite(kind string, storedBytes int64) {
	BlobWrites.WithLabelValues(kind).Inc()
	BlobStoredBytes.WithLabelValues(kind).Add(float64(storedBytes))
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordSearch records one match search and which index plan served it
func RecordSearch(plan string, duration time.Duration) {
	SearchQueries.WithLabelValues(plan).Inc()
	SearchDuration.WithLabelValues(plan).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
