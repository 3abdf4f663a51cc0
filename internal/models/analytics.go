// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package models

// AnalyticsOverview aggregates the whole archive for the analytics
// dashboard: battle volume, outcome distribution, and damage averages
// computed over the analytical mirror.
type AnalyticsOverview struct {
	TotalMatches      int64            `json:"total_matches"`
	TotalPlayers      int64            `json:"total_players"` // distinct player names seen
	TotalUploads      int64            `json:"total_uploads"`
	WinRate           float64          `json:"win_rate"` // uploader-perspective wins / decided matches
	MatchesByGameType map[string]int64 `json:"matches_by_game_type"`
	MatchesByOutcome  map[string]int64 `json:"matches_by_outcome"`
	AvgDamage         float64          `json:"avg_damage"`
	AvgKills          float64          `json:"avg_kills"`
	AvgBaseXP         float64          `json:"avg_base_xp"`
	RenderedVideos    int64            `json:"rendered_videos"`
	DualReplayMatches int64            `json:"dual_replay_matches"`
}

// ShipAggregate summarizes one ship's appearances across the archive.
// WinRate counts only matches with a decided outcome.
type ShipAggregate struct {
	ShipName    string  `json:"ship_name"`
	ShipClass   string  `json:"ship_class,omitempty"`
	Battles     int64   `json:"battles"`
	Wins        int64   `json:"wins"`
	Losses      int64   `json:"losses"`
	WinRate     float64 `json:"win_rate"`
	AvgDamage   float64 `json:"avg_damage"`
	AvgKills    float64 `json:"avg_kills"`
	AvgBaseXP   float64 `json:"avg_base_xp"`
	MaxDamage   int64   `json:"max_damage"`
	AvgSurvival float64 `json:"avg_survival_percent"`
}

// PlayerAggregate summarizes one player's appearances across the archive.
type PlayerAggregate struct {
	PlayerName  string  `json:"player_name"`
	ClanTag     string  `json:"clan_tag,omitempty"`
	Battles     int64   `json:"battles"`
	Wins        int64   `json:"wins"`
	Losses      int64   `json:"losses"`
	WinRate     float64 `json:"win_rate"`
	AvgDamage   float64 `json:"avg_damage"`
	AvgKills    float64 `json:"avg_kills"`
	AvgBaseXP   float64 `json:"avg_base_xp"`
	ShipsPlayed int64   `json:"ships_played"`
	LastSeen    string  `json:"last_seen,omitempty"` // dateTimeSortable of the newest match
}
