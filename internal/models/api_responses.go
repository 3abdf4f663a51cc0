// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package models

import (
	"time"
)

// APIResponse represents a standardized API response wrapper used by all HTTP endpoints.
// It provides consistent structure for both successful and error responses, with metadata
// for observability.
//
// Status field values:
//   - "success": Request completed successfully, see Data field
//   - "error": Request failed, see Error field for details
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"items": [...], "count": 30},
//	  "metadata": {
//	    "timestamp": "2026-08-25T12:00:00Z",
//	    "query_time_ms": 4
//	  }
//	}
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {
//	    "code": "VALIDATION_ERROR",
//	    "message": "Invalid date range",
//	    "details": {"field": "date_from"}
//	  },
//	  "metadata": {"timestamp": "2026-08-25T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability and performance tracking.
//
// Fields:
//   - Timestamp: Server time when response was generated (RFC3339 format)
//   - QueryTimeMS: Store/analytics query execution time in milliseconds
//   - Cached: Whether response was served from cache (omitted if false)
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError represents an error response with structured error details.
//
// Common error codes:
//   - VALIDATION_ERROR: Invalid input parameters
//   - STORE_ERROR: Store read/write failure
//   - AUTHENTICATION_ERROR: Invalid/missing API key or token
//   - NOT_FOUND: Resource doesn't exist
//   - PAYLOAD_TOO_LARGE: Upload exceeds the configured size cap
//   - UNSUPPORTED_MEDIA: Wrong file extension or unparseable container
//   - RATE_LIMIT_EXCEEDED: Too many requests
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// UploadResponse acknowledges an accepted replay upload. The pipeline
// processes the upload asynchronously, so the arena id returned here is a
// provisional key derived from file metadata; the definitive arenaUniqueID
// becomes available once decoding persists the match.
type UploadResponse struct {
	UploadKey     string `json:"upload_key"`
	ArenaUniqueID string `json:"arena_unique_id"`
	Status        string `json:"status"` // "queued"
}

// SearchResponse is the result page for POST /api/search. CursorUnixTime
// is the pagination cursor for the next page; absent when HasMore is false.
type SearchResponse struct {
	Items          []MatchSummary `json:"items"`
	Count          int            `json:"count"`
	CursorUnixTime *int64         `json:"cursor_unix_time,omitempty"`
	HasMore        bool           `json:"has_more"`
}

// ReplayDownload is one downloadable replay on a match detail view, with a
// short-lived signed URL.
type ReplayDownload struct {
	PlayerID   int64     `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Team       int       `json:"team"`
	FileName   string    `json:"file_name"`
	UploadedAt time.Time `json:"uploaded_at"`
	URL        string    `json:"url"`
}

// MatchDetailResponse merges the MATCH record with its upload records and
// signed media URLs for GET /api/match/{arenaUniqueID}.
type MatchDetailResponse struct {
	Match        *MatchRecord     `json:"match"`
	Replays      []ReplayDownload `json:"replays"`
	VideoURL     string           `json:"video_url,omitempty"`
	DualVideoURL string           `json:"dual_video_url,omitempty"`
}

// Video generation statuses returned by POST /api/generate-video.
const (
	// VideoStatusAlreadyExists means a rendered video is already stored;
	// the response carries its signed URL.
	VideoStatusAlreadyExists = "already_exists"
	// VideoStatusGenerating means a render was enqueued.
	VideoStatusGenerating = "generating"
)

// GenerateVideoResponse reports the outcome of a video generation request.
type GenerateVideoResponse struct {
	Status   string `json:"status"`
	VideoURL string `json:"video_url,omitempty"`
}

// HealthStatus represents the health check response.
type HealthStatus struct {
	Status             string  `json:"status"`
	Version            string  `json:"version"`
	StoreConnected     bool    `json:"store_connected"`
	NATSConnected      bool    `json:"nats_connected"`
	BlobStoreWritable  bool    `json:"blob_store_writable"`
	AnalyticsConnected bool    `json:"analytics_connected"`
	Uptime             float64 `json:"uptime_seconds"`
}
