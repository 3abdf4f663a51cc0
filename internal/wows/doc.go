// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

// Package wows provides a client for the public World of Warships
// encyclopedia API and a Resolver that layers it over the embedded
// gamedata snapshot.
//
// The API fills the two gaps replays leave open: ship display names
// for ids missing from the snapshot, and clan tags, which replays do
// not carry at all. The client caches every answer in-process
// (including negative answers for account and clan searches), rate
// limits outbound calls, and retries HTTP 429 with exponential
// backoff. BreakerClient adds a circuit breaker so an unreachable API
// degrades lookups to placeholders instead of stalling ingestion.
//
// The whole package is optional: without an application id the
// pipeline runs offline on the snapshot alone.
package wows
