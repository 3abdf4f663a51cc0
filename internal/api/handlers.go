// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/navarchus/internal/analytics"
	"github.com/tomtom215/navarchus/internal/blobstore"
	"github.com/tomtom215/navarchus/internal/cache"
	"github.com/tomtom215/navarchus/internal/config"
	"github.com/tomtom215/navarchus/internal/logging"
	"github.com/tomtom215/navarchus/internal/pipeline"
	"github.com/tomtom215/navarchus/internal/query"
	"github.com/tomtom215/navarchus/internal/store"
	ws "github.com/tomtom215/navarchus/internal/websocket"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// EventPublisher publishes pipeline events from the HTTP boundary. The
// production implementation is *pipeline.Publisher.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event pipeline.Event) error
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers.go: Handler struct, constructor, WebSocket origin check
//   - handlers_upload.go: replay upload boundary
//   - handlers_matches.go: search, match detail, stats, generate-video
//   - handlers_analytics.go: DuckDB aggregate endpoints
//   - handlers_health.go: liveness/readiness/component health
//   - handlers_blob.go: signed blob downloads
//   - handlers_ws.go: WebSocket upgrade
type Handler struct {
	store     *store.Store
	blobs     *blobstore.Store
	signer    *blobstore.Signer
	gateway   *query.Gateway
	publisher EventPublisher
	analytics *analytics.Mirror
	wsHub     *ws.Hub
	health    *pipeline.HealthChecker
	config    *config.Config
	cache     *cache.Cache
	startTime time.Time
}

// NewHandler creates the API handler. analytics, publisher, wsHub and
// health may be nil when the matching subsystem is disabled; handlers
// degrade per endpoint rather than at construction time.
func NewHandler(s *store.Store, blobs *blobstore.Store, signer *blobstore.Signer, gw *query.Gateway, pub EventPublisher, mirror *analytics.Mirror, hub *ws.Hub, health *pipeline.HealthChecker, cfg *config.Config) *Handler {
	return &Handler{
		store:     s,
		blobs:     blobs,
		signer:    signer,
		gateway:   gw,
		publisher: pub,
		analytics: mirror,
		wsHub:     hub,
		health:    health,
		config:    cfg,
		cache:     cache.New(5 * time.Minute),
		startTime: time.Now(),
	}
}

// ClearCache invalidates cached analytics aggregates. The mirror worker
// calls this after each mirrored battle so dashboards see fresh data
// within one request.
func (h *Handler) ClearCache() {
	if h.cache != nil {
		h.cache.Clear()
	}
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout against slow-client attacks.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins against
// the configured CORS origins. Requests without an Origin header are
// rejected; browsers always send one, so an empty Origin would bypass
// CORS entirely.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	if h.config == nil {
		return true
	}

	for _, allowed := range h.config.API.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
