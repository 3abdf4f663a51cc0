// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/navarchus/internal/analytics"
	"github.com/tomtom215/navarchus/internal/assemble"
	"github.com/tomtom215/navarchus/internal/models"
)

// AnalyticsOverview returns battle counts, win rates and damage
// averages across the mirrored battles.
//
// GET /api/v1/analytics/overview?game_type=clan&days=30
func (h *Handler) AnalyticsOverview(w http.ResponseWriter, r *http.Request) {
	h.serveAggregate(w, r, func(filter analytics.Filter, _ int) (interface{}, error) {
		return h.analytics.GetOverview(r.Context(), filter)
	})
}

// AnalyticsShips returns per-ship pick and win aggregates.
//
// GET /api/v1/analytics/ships?game_type=clan&days=30&limit=25
func (h *Handler) AnalyticsShips(w http.ResponseWriter, r *http.Request) {
	h.serveAggregate(w, r, func(filter analytics.Filter, limit int) (interface{}, error) {
		return h.analytics.GetShipUsage(r.Context(), filter, limit)
	})
}

// AnalyticsPlayers returns per-player performance aggregates.
//
// GET /api/v1/analytics/players?game_type=clan&days=30&limit=25
func (h *Handler) AnalyticsPlayers(w http.ResponseWriter, r *http.Request) {
	h.serveAggregate(w, r, func(filter analytics.Filter, limit int) (interface{}, error) {
		return h.analytics.GetPlayerPerformance(r.Context(), filter, limit)
	})
}

// serveAggregate handles the shared shape of the aggregate endpoints:
// availability check, filter parsing, and a TTL cache keyed by the full
// request URI.
func (h *Handler) serveAggregate(w http.ResponseWriter, r *http.Request, load func(analytics.Filter, int) (interface{}, error)) {
	if h.analytics == nil {
		respondError(w, http.StatusServiceUnavailable, codeAnalyticsOff, "Analytics mirror is disabled", nil)
		return
	}

	cacheKey := r.URL.RequestURI()
	if cached, ok := h.cache.Get(cacheKey); ok {
		respondJSON(w, http.StatusOK, &models.APIResponse{
			Status:   "success",
			Data:     cached,
			Metadata: models.Metadata{Timestamp: time.Now(), Cached: true},
		})
		return
	}

	var filter analytics.Filter
	if raw := strings.TrimSpace(r.URL.Query().Get("game_type")); raw != "" {
		filter.GameType = assemble.NormalizeGameType(raw)
	}
	if days := getIntParam(r, "days", 0); days > 0 {
		filter.Since = time.Now().AddDate(0, 0, -days)
	}
	limit := getIntParam(r, "limit", analytics.DefaultAggregateLimit)

	start := time.Now()
	data, err := load(filter, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeStore, "Analytics query failed", err)
		return
	}

	h.cache.Set(cacheKey, data)
	respondData(w, http.StatusOK, data, time.Since(start))
}
