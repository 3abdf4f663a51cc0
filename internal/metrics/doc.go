// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package instruments the full replay pipeline using the Prometheus client
library, exposing metrics for decode throughput, persistence performance, render
durations, and API health.

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:3917/metrics

# Available Metrics

Decode Metrics:
  - replay_decodes_total: Decode attempts (counter)
    Labels: outcome (success, failure)
  - replay_decode_failures_total: Failures by classification (counter)
    Labels: kind (malformed_header, decrypt, unsupported_version, truncated, no_battle_stats)
  - replay_decode_duration_seconds: Full decode latency (histogram)
  - replay_packets_scanned_total: Packets scanned from decoded streams (counter)

Upload Metrics:
  - uploads_total: Upload attempts by result (counter)
    Labels: status (accepted, duplicate, rejected, rate_limited, unauthorized)
  - upload_size_bytes: Accepted upload sizes (histogram)

Record Store Metrics:
  - store_op_duration_seconds: BadgerDB operation latency (histogram)
    Labels: operation (persist, get, search, update_video, backfill)
  - store_conflict_retries_total: Transaction retries after write conflicts (counter)
  - store_conflicts_exhausted_total: Writes abandoned after exhausting retries (counter)
  - matches_persisted_total: Match writes (counter)
    Labels: game_type, disposition (created, merged)
  - match_results_total: Battle results of persisted matches (counter)
    Labels: result (win, loss, draw, unknown)
  - stats_writes_skipped_total: Stats discarded because a first writer won (counter)

Pipeline Metrics:
  - pipeline_messages_published_total: Messages published per topic (counter)
  - pipeline_messages_consumed_total: Messages consumed per handler (counter)
  - pipeline_processing_duration_seconds: Handler latency (histogram)
  - pipeline_processing_failures_total: Handler failures (counter)
  - pipeline_poison_messages_total: Messages routed to the poison queue (counter)

Render Metrics:
  - render_duration_seconds: Successful render wall time (histogram)
  - renders_total: Render attempts (counter)
    Labels: outcome (success, failure, already_exists)
  - render_queue_depth: Queued render requests (gauge)

API Metrics:
  - api_requests_total: Total API requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: Request latency (histogram)
  - api_active_requests: In-flight requests (gauge)
  - api_rate_limit_hits_total: Rate limit rejections (counter)

Circuit Breaker Metrics:
  - circuit_breaker_state: Current state (gauge, 0=closed 1=half-open 2=open)
  - circuit_breaker_requests_total: Requests by result (counter)
  - circuit_breaker_state_transitions_total: State transitions (counter)

# Usage Example

	start := time.Now()
	record, err := store.Persist(ctx, match)
	metrics.RecordStoreOp("persist", time.Since(start), err)

# Grafana Integration

Suggested queries:

	# Decode failure rate over 5 minutes
	rate(replay_decode_failures_total[5m])

	# p95 pipeline stage latency
	histogram_quantile(0.95, rate(pipeline_processing_duration_seconds_bucket[5m]))

	# Upload acceptance ratio
	sum(rate(uploads_total{status="accepted"}[15m])) / sum(rate(uploads_total[15m]))
*/
package metrics
