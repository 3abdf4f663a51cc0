// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

// Package assemble shapes one decoded replay into the records the
// store persists: the shared MATCH record, the first-write-wins STATS
// record, and the per-uploader UPLOAD record.
//
// Assembly owns every derived field on those records: the normalized
// game type that selects the logical table, the unix time and sortable
// datetime derived from the client's wall clock, the timezone
// insensitive matchKey grouping hash, and the majority clan tag per
// team. Rosters are lifted from the replay metadata and enriched with
// ship names and clan tags through the wows resolver, preferring the
// arena-state tags already present in parsed statistics over API
// round-trips.
//
// The package also derives the reverse-index rows (ship, player, clan)
// from a finished MATCH record, so the initial write and an admin
// backfill produce identical rows.
package assemble
