// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

// Package middleware holds the plain http.HandlerFunc middleware the
// router composes under chi: request-id tagging, Prometheus request
// instrumentation, and gzip response compression. CORS and rate
// limiting live with the router, built from chi's ecosystem.
package middleware
