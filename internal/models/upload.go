// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package models

import (
	"time"
)

// UploadRecord tracks one player's uploaded replay for a match (sort key
// "UPLOAD#{playerID}"). A match accumulates up to one record per uploading
// player; a re-upload by the same player overwrites only their own record.
type UploadRecord struct {
	ArenaUniqueID int64  `json:"arena_unique_id"`
	GameType      string `json:"game_type"`

	// Uploader identity
	PlayerID   int64  `json:"player_id"`
	PlayerName string `json:"player_name"`
	Team       int    `json:"team"`                  // raw in-game team id
	UploadedBy string `json:"uploaded_by,omitempty"` // external (Discord) identity

	// Stored blob
	ReplayKey string `json:"replay_key"` // object-store key
	FileName  string `json:"file_name"`
	FileSize  int64  `json:"file_size"`

	ClientVersion string    `json:"client_version,omitempty"`
	UploadedAt    time.Time `json:"uploaded_at"`

	// The uploader's own statistics from this replay. Kept per upload so a
	// dual-perspective match preserves both players' numbers even though
	// the shared STATS record is first-write-wins.
	OwnStats *PlayerBattleStats `json:"own_stats,omitempty"`
}

// DecodeFailureMarker records a decode failure keyed by the upload's blob
// key. Markers make failed uploads visible to operators and stop the
// pipeline from re-processing a replay that is known to be undecodable.
type DecodeFailureMarker struct {
	UploadKey  string    `json:"upload_key"`
	Kind       string    `json:"kind"` // failure taxonomy name, e.g. "decrypt_failure"
	Cause      string    `json:"cause,omitempty"`
	FileName   string    `json:"file_name,omitempty"`
	UploadedBy string    `json:"uploaded_by,omitempty"`
	FailedAt   time.Time `json:"failed_at"`
}
