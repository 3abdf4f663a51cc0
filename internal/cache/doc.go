// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

// Package cache is a small in-memory TTL cache. The wows resolver
// fronts its encyclopedia, account, and clan lookups with one cache
// per dimension, caching negative results too so a miss against the
// WoWS API is not retried for every replay that mentions the same
// player.
package cache
