// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

// Chi middleware factories backed by the go-chi ecosystem
// (go-chi/cors, go-chi/httprate).
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/navarchus/internal/config"
	"github.com/tomtom215/navarchus/internal/metrics"
)

// RateLimitTier defines rate limit parameters for a group of endpoints.
type RateLimitTier struct {
	Requests int
	Window   time.Duration
}

// Endpoint tiers. Health is permissive for monitoring pollers, upload
// is strict because each accepted request enqueues decode work, and
// analytics allows dashboard bursts against cached aggregates.
var (
	TierHealth    = RateLimitTier{Requests: 1000, Window: time.Minute}
	TierAnalytics = RateLimitTier{Requests: 300, Window: time.Minute}
	TierWebSocket = RateLimitTier{Requests: 30, Window: time.Minute}
	TierUpload    = RateLimitTier{Requests: 20, Window: time.Minute}
	TierAPI       = RateLimitTier{Requests: 100, Window: time.Minute}
)

// ChiMiddleware provides Chi-compatible middleware factories configured
// from the API and upload sections of the application config.
type ChiMiddleware struct {
	cors     func(http.Handler) http.Handler
	standard RateLimitTier
	upload   RateLimitTier
}

// NewChiMiddleware builds the middleware factory. CORS origins default
// to empty, requiring explicit configuration before browsers can reach
// the API cross-origin.
func NewChiMiddleware(apiCfg config.APIConfig, uploadCfg config.UploadConfig) *ChiMiddleware {
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   apiCfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-API-Key", "X-User-ID", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           86400,
	})

	standard := TierAPI
	if apiCfg.RateLimitReqs > 0 {
		standard.Requests = apiCfg.RateLimitReqs
	}
	if apiCfg.RateLimitWindow > 0 {
		standard.Window = apiCfg.RateLimitWindow
	}

	upload := TierUpload
	if uploadCfg.RatePerMinute > 0 {
		upload = RateLimitTier{Requests: uploadCfg.RatePerMinute, Window: time.Minute}
	}

	return &ChiMiddleware{
		cors:     corsHandler,
		standard: standard,
		upload:   upload,
	}
}

// CORS returns the shared CORS middleware. It must be global so OPTIONS
// preflight requests are answered before route matching.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit returns the default per-IP limiter for API endpoints.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	return m.limiter("api", m.standard)
}

// RateLimitUpload returns the strict per-IP limiter for the upload
// boundary.
func (m *ChiMiddleware) RateLimitUpload() func(http.Handler) http.Handler {
	return m.limiter("upload", m.upload)
}

// RateLimitTier returns a per-IP limiter for the given tier, labeled
// for the rate limit rejection metric.
func (m *ChiMiddleware) RateLimitTier(endpoint string, tier RateLimitTier) func(http.Handler) http.Handler {
	return m.limiter(endpoint, tier)
}

func (m *ChiMiddleware) limiter(endpoint string, tier RateLimitTier) func(http.Handler) http.Handler {
	return httprate.Limit(
		tier.Requests,
		tier.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.APIRateLimitHits.WithLabelValues(endpoint).Inc()
			respondError(w, http.StatusTooManyRequests, codeRateLimited, "Too many requests", nil)
		}),
	)
}

// APISecurityHeaders adds security headers to API responses. HSTS is
// added only when the request arrived over HTTPS or behind a
// TLS-terminating proxy.
func APISecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}
