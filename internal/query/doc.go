// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

// Package query is the read side of the archive: filtered match search
// and the match-detail join.
//
// Search picks one index per request, the most selective dimension
// present: ship name drives the ship index, then player name the
// player index, then a clan tag the clan index, and with none of those
// the by-time listing (or the per-map listing when only a map filter
// is given). Every remaining filter is applied as a post-scan
// predicate against the loaded match record. Pagination is a cursor on
// unixTime; a date range lowers the scan bound and cuts off the walk
// once rows fall below the range.
//
// Match detail joins the MATCH record with its STATS and UPLOAD rows
// and signs short-lived download URLs for stored replays and rendered
// videos.
package query
