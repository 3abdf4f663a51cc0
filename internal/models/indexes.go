// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package models

// MatchSummary is the projection of a MatchRecord stored on by-time listing
// rows and returned as a search result item.
type MatchSummary struct {
	ArenaUniqueID    int64  `json:"arena_unique_id"`
	GameType         string `json:"game_type"`
	UnixTime         int64  `json:"unix_time"`
	DateTime         string `json:"date_time,omitempty"`
	DateTimeSortable string `json:"date_time_sortable"`
	MapID            string `json:"map_id"`
	MapDisplayName   string `json:"map_display_name,omitempty"`
	WinLoss          string `json:"win_loss"`
	AllyMainClanTag  string `json:"ally_main_clan_tag,omitempty"`
	EnemyMainClanTag string `json:"enemy_main_clan_tag,omitempty"`
	HasDualReplay    bool   `json:"has_dual_replay"`
	HasVideo         bool   `json:"has_video"`
	UploaderCount    int    `json:"uploader_count,omitempty"`
}

// Reverse-index rows. One row exists per (dimension value, arena id) pair,
// written when the MATCH record is first created and never amended by later
// uploads. Each row carries the game type, unix time, and arena id that
// form its sort key so a scan can reach the MATCH record directly.

// ShipIndexRow indexes a match by an UPPERCASED ship name present in it.
type ShipIndexRow struct {
	ShipName      string `json:"ship_name"`
	GameType      string `json:"game_type"`
	UnixTime      int64  `json:"unix_time"`
	ArenaUniqueID int64  `json:"arena_unique_id"`
	AllyCount     int    `json:"ally_count"`
	EnemyCount    int    `json:"enemy_count"`
	TotalCount    int    `json:"total_count"`
}

// PlayerIndexRow indexes a match by a participating player's name.
type PlayerIndexRow struct {
	PlayerName    string `json:"player_name"`
	GameType      string `json:"game_type"`
	UnixTime      int64  `json:"unix_time"`
	ArenaUniqueID int64  `json:"arena_unique_id"`
	Team          string `json:"team"`
	ClanTag       string `json:"clan_tag,omitempty"`
	ShipName      string `json:"ship_name,omitempty"`
}

// ClanIndexRow indexes a match by a clan tag present on either team.
// IsMainClan marks rows whose tag is one of the match's majority tags.
type ClanIndexRow struct {
	ClanTag       string `json:"clan_tag"`
	GameType      string `json:"game_type"`
	UnixTime      int64  `json:"unix_time"`
	ArenaUniqueID int64  `json:"arena_unique_id"`
	Team          string `json:"team"`
	MemberCount   int    `json:"member_count"`
	IsMainClan    bool   `json:"is_main_clan"`
}
