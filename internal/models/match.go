// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package models

import (
	"time"
)

// Normalized game types. Raw replay game types are folded into these four
// buckets by the assembler; the bucket selects the logical table a match
// is written to.
const (
	// GameTypeClan indicates a clan battle.
	GameTypeClan = "clan"
	// GameTypeRanked indicates a ranked battle.
	GameTypeRanked = "ranked"
	// GameTypeRandom indicates a random (PvP) battle.
	GameTypeRandom = "random"
	// GameTypeOther is the bucket for co-op, events, and unrecognized types.
	GameTypeOther = "other"
)

// GameTypes lists every normalized game type, in table order.
// Useful for probing all logical tables when the game type is unknown.
func GameTypes() []string {
	return []string{GameTypeClan, GameTypeRanked, GameTypeRandom, GameTypeOther}
}

// IsValidGameType reports whether s is one of the normalized game types.
func IsValidGameType(s string) bool {
	switch s {
	case GameTypeClan, GameTypeRanked, GameTypeRandom, GameTypeOther:
		return true
	}
	return false
}

// Match outcome from the uploader's perspective.
const (
	// WinLossWin indicates the uploader's team won.
	WinLossWin = "win"
	// WinLossLoss indicates the uploader's team lost.
	WinLossLoss = "loss"
	// WinLossDraw indicates the battle ended in a draw.
	WinLossDraw = "draw"
	// WinLossUnknown indicates the outcome could not be determined
	// (incomplete replay with no usable fallback).
	WinLossUnknown = "unknown"
)

// Team labels relative to the first uploader's perspective.
const (
	// TeamAlly marks a player on the uploader's team.
	TeamAlly = "ally"
	// TeamEnemy marks a player on the opposing team.
	TeamEnemy = "enemy"
)

// ListingKeyActive is the fixed partition value shared by all MATCH rows in
// the by-time listing index. A single partition keeps "recent matches"
// queries to one ordered range scan.
const ListingKeyActive = "ACTIVE"

// SortableZero is the dateTimeSortable fallback for empty or malformed
// client datetimes. All zeros sorts such records to the bottom of every
// by-time index instead of dropping them.
const SortableZero = "00000000000000"

// MatchRecord is the canonical per-battle record (sort key "MATCH").
//
// Exactly one exists per arenaUniqueID within a game-type table. It is
// created by the first successful upload for that arena and never deleted
// while any upload record remains. Later uploads for the same arena merge
// into Uploaders and may flip HasDualReplay, but never change the fields
// pinned by the first upload (perspective, rosters, outcome).
//
// Perspective: Allies, WinLoss, AllyMainClanTag, and similar fields are all
// relative to the FIRST uploader's team. AllyPerspectivePlayerID records
// whose point of view that is.
//
// Video fields are absent until the renderer succeeds; HasVideo and
// HasDualVideo are the canonical presence checks.
type MatchRecord struct {
	ArenaUniqueID int64  `json:"arena_unique_id"`
	GameType      string `json:"game_type"`

	// Listing/index attributes
	ListingKey       string `json:"listing_key"` // always ListingKeyActive
	UnixTime         int64  `json:"unix_time"`   // seconds; 0 when dateTime was malformed
	DateTime         string `json:"date_time"`   // client-local "DD.MM.YYYY HH:MM:SS"
	DateTimeSortable string `json:"date_time_sortable"`
	MatchKey         string `json:"match_key"` // timezone-insensitive grouping hash

	// Battle identity
	MapID          string `json:"map_id"`
	MapDisplayName string `json:"map_display_name,omitempty"`
	ClientVersion  string `json:"client_version,omitempty"`

	// First-upload perspective (pinned)
	AllyPerspectivePlayerID int64         `json:"ally_perspective_player_id"`
	WinLoss                 string        `json:"win_loss"`
	AllyMainClanTag         string        `json:"ally_main_clan_tag,omitempty"`
	EnemyMainClanTag        string        `json:"enemy_main_clan_tag,omitempty"`
	Allies                  []RosterEntry `json:"allies"`
	Enemies                 []RosterEntry `json:"enemies"`

	// Rendered video artifacts
	MP4Key             string     `json:"mp4_key,omitempty"`
	MP4GeneratedAt     *time.Time `json:"mp4_generated_at,omitempty"`
	DualMP4Key         string     `json:"dual_mp4_key,omitempty"`
	DualMP4GeneratedAt *time.Time `json:"dual_mp4_generated_at,omitempty"`

	// Upload tracking
	HasDualReplay bool       `json:"has_dual_replay"`
	Uploaders     []Uploader `json:"uploaders"`

	// External comment system integration
	CommentCount int `json:"comment_count,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RosterEntry is one player on a match roster, taken from replay metadata.
type RosterEntry struct {
	PlayerID int64  `json:"player_id,omitempty"`
	Name     string `json:"name"`
	ClanTag  string `json:"clan_tag,omitempty"`
	ShipID   int64  `json:"ship_id,omitempty"`
	ShipName string `json:"ship_name"`
}

// Uploader identifies one player who uploaded a replay of this match.
// Team is the raw in-game team id (0 or 1); two uploaders with different
// team ids make the match dual-replay capable.
type Uploader struct {
	PlayerID   int64  `json:"player_id"`
	PlayerName string `json:"player_name"`
	Team       int    `json:"team"`
}

// HasVideo reports whether a rendered single-perspective video exists.
func (m *MatchRecord) HasVideo() bool {
	return m.MP4Key != ""
}

// HasDualVideo reports whether a rendered dual-perspective video exists.
func (m *MatchRecord) HasDualVideo() bool {
	return m.DualMP4Key != ""
}

// UploaderByID returns the uploader entry for playerID, if present.
func (m *MatchRecord) UploaderByID(playerID int64) (Uploader, bool) {
	for _, u := range m.Uploaders {
		if u.PlayerID == playerID {
			return u, true
		}
	}
	return Uploader{}, false
}

// MergeUploader folds a new upload into the record. A repeat upload by the
// same player replaces their entry in place; a first upload from the
// opposing team flips HasDualReplay. Reports whether the record changed,
// which callers use to decide if a rewrite is needed.
func (m *MatchRecord) MergeUploader(u Uploader) bool {
	for i, existing := range m.Uploaders {
		if existing.PlayerID == u.PlayerID {
			if existing == u {
				return false
			}
			m.Uploaders[i] = u
			return true
		}
	}
	m.Uploaders = append(m.Uploaders, u)
	if !m.HasDualReplay {
		for _, existing := range m.Uploaders {
			if existing.Team != u.Team {
				m.HasDualReplay = true
				break
			}
		}
	}
	return true
}

// UploadedTeams returns the set of team ids that have at least one upload.
func (m *MatchRecord) UploadedTeams() map[int]bool {
	teams := make(map[int]bool, 2)
	for _, u := range m.Uploaders {
		teams[u.Team] = true
	}
	return teams
}

// Summary projects the record into the shape stored on listing rows and
// returned by search.
func (m *MatchRecord) Summary() MatchSummary {
	return MatchSummary{
		ArenaUniqueID:    m.ArenaUniqueID,
		GameType:         m.GameType,
		UnixTime:         m.UnixTime,
		DateTime:         m.DateTime,
		DateTimeSortable: m.DateTimeSortable,
		MapID:            m.MapID,
		MapDisplayName:   m.MapDisplayName,
		WinLoss:          m.WinLoss,
		AllyMainClanTag:  m.AllyMainClanTag,
		EnemyMainClanTag: m.EnemyMainClanTag,
		HasDualReplay:    m.HasDualReplay,
		HasVideo:         m.HasVideo(),
		UploaderCount:    len(m.Uploaders),
	}
}
