// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

// Package api is the HTTP boundary: replay uploads, match search and
// detail views, video generation requests, signed blob downloads,
// analytics aggregates, health probes, and the WebSocket event feed.
//
// Routing uses Chi with production middleware from its ecosystem
// (go-chi/cors, go-chi/httprate). All JSON responses use the
// models.APIResponse envelope. Handlers never reach into BadgerDB or
// DuckDB directly; reads go through query.Gateway and analytics.Mirror,
// writes are published as pipeline events.
package api
