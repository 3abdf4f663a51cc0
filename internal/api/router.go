// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/navarchus/internal/config"
	"github.com/tomtom215/navarchus/internal/middleware"
)

// Router wires handlers and middleware into the Chi route tree.
type Router struct {
	handler *Handler
	chiMW   *ChiMiddleware
}

// NewRouter creates the router for the given handler and config.
func NewRouter(handler *Handler, cfg *config.Config) *Router {
	return &Router{
		handler: handler,
		chiMW:   NewChiMiddleware(cfg.API, cfg.Upload),
	}
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler so internal/middleware works with
// r.Use().
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// chiPathValue bridges Chi URL params to r.PathValue so handlers stay
// router-agnostic.
func chiPathValue(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rctx := chi.RouteContext(r.Context())
		if rctx != nil {
			for i, key := range rctx.URLParams.Keys {
				if i < len(rctx.URLParams.Values) {
					r.SetPathValue(key, rctx.URLParams.Values[i])
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMW.CORS()) // global so OPTIONS preflight always matches

	// Health endpoints. Permissive rate limit so monitoring pollers
	// never trip it.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMW.RateLimitTier("health", TierHealth))
		r.Use(APISecurityHeaders())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/nats", router.handler.HealthNATS)
	})

	// Upload boundary. Strict rate limit, each accepted request costs a
	// blob write and a decode job.
	r.Route("/api/upload", func(r chi.Router) {
		r.Use(router.chiMW.RateLimitUpload())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Post("/", router.handler.Upload)
	})

	// Match query surface.
	r.Route("/api", func(r chi.Router) {
		r.Use(router.chiMW.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(chiMiddleware(middleware.Compression))
		r.Use(chiPathValue)

		r.Post("/search", router.handler.Search)
		r.Get("/match/{arenaUniqueID}", router.handler.MatchDetail)
		r.Get("/match/{arenaUniqueID}/stats", router.handler.MatchStats)
		r.Post("/generate-video", router.handler.GenerateVideo)
	})

	// DuckDB aggregates. Cached reads, permissive limit for dashboards.
	r.Route("/api/v1/analytics", func(r chi.Router) {
		r.Use(router.chiMW.RateLimitTier("analytics", TierAnalytics))
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(chiMiddleware(middleware.Compression))

		r.Get("/overview", router.handler.AnalyticsOverview)
		r.Get("/ships", router.handler.AnalyticsShips)
		r.Get("/players", router.handler.AnalyticsPlayers)
	})

	// WebSocket event feed. The limit bounds the upgrade rate, not
	// messages on established connections.
	r.Route("/api/v1/ws", func(r chi.Router) {
		r.Use(router.chiMW.RateLimitTier("ws", TierWebSocket))
		r.Get("/", router.handler.WebSocket)
	})

	// Signed blob downloads. Tokens carry their own expiry, the rate
	// limit only slows bulk scraping.
	r.Group(func(r chi.Router) {
		r.Use(router.chiMW.RateLimit())
		r.Use(chiPathValue)
		r.Get("/blob/{token}", router.handler.BlobDownload)
	})

	// Observability.
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	return r
}
