// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

/*
Package models defines data structures for the Navarchus application.

This package contains the persisted record types, reverse-index row types,
and API response structures used throughout the application. It serves as
the single source of truth for data structure definitions and carries no
behavior beyond small projection helpers.

Model Categories:

1. Persisted Records (one key space per game type):
  - MatchRecord: canonical per-battle record, one per arenaUniqueID
  - StatsRecord: all players' decoded statistics, written once
  - UploadRecord: one per uploading player, overwritten on re-upload
  - DecodeFailureMarker: decode failures keyed by upload blob key

2. Index Rows:
  - MatchSummary: by-time listing row and search result item
  - ShipIndexRow / PlayerIndexRow / ClanIndexRow: reverse indexes keyed by
    natural search dimension, written only on first MATCH creation

3. API Response Models:
  - APIResponse: standard response wrapper
  - APIError: error details
  - Metadata: response metadata (timestamp, query time)
  - UploadResponse, SearchResponse, MatchDetailResponse,
    GenerateVideoResponse, HealthStatus

4. Analytics Models:
  - AnalyticsOverview, ShipAggregate, PlayerAggregate: aggregates computed
    over the analytical mirror

Usage Example - API Response:

	import "github.com/tomtom215/navarchus/internal/models"

	response := models.APIResponse{
	    Status: "success",
	    Data: models.SearchResponse{
	        Items:   summaries,
	        Count:   len(summaries),
	        HasMore: false,
	    },
	    Metadata: models.Metadata{
	        Timestamp:   time.Now(),
	        QueryTimeMS: 4,
	    },
	}

	json.NewEncoder(w).Encode(response)

Perspective Convention:

MATCH records store everything relative to the FIRST uploader's team: the
Allies roster is that player's team, WinLoss is their outcome, and
AllyMainClanTag is their team's majority tag. AllyPerspectivePlayerID
records whose point of view the record reflects. Uploads from the opposing
team merge into Uploaders and flip HasDualReplay without re-orienting the
pinned fields.

Thread Safety:

All models are plain data structures safe for concurrent read access.
Mutating helpers (MergeUploader) must be called while the caller holds the
record exclusively, which the store's transactional read-modify-write
guarantees.

JSON Marshaling:

All models use snake_case JSON tags with omitempty on optional fields.
time.Time fields serialize as RFC3339.

See Also:

  - internal/store: persistence of these records over BadgerDB
  - internal/assemble: construction of records from decoded replays
  - internal/api: HTTP handlers returning these models
*/
package models
