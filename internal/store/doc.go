// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

// Package store persists match records on a single BadgerDB instance,
// partitioned into logical tables by key prefix: per-game-type battle
// records (MATCH, STATS, UPLOAD#), by-time listing and per-map rows
// for browsing, reverse-index rows for ship, player, and clan search,
// and decode-failure markers.
//
// PersistBundle implements the upload write protocol. The MATCH write
// is conditional inside one transaction: create when absent, otherwise
// merge the new uploader into the existing record without touching the
// fields pinned by the first upload. Badger's transaction conflict
// detection is the compare-and-set; conflicting writers retry with
// bounded exponential backoff. STATS is create-only, UPLOAD rows are
// per-player upserts, and listing plus reverse-index rows are emitted
// only when the MATCH was created, never on merge. A failure between
// steps leaves the MATCH record authoritative; Reindex re-emits the
// derived rows idempotently.
package store
