// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package models

import (
	"time"
)

// StatsRecord is the per-battle statistics record (sort key "STATS").
// Written exactly once by the first successful upload; later uploads never
// overwrite it, so the numbers always reflect the first decoded replay.
type StatsRecord struct {
	ArenaUniqueID   int64               `json:"arena_unique_id"`
	GameType        string              `json:"game_type"`
	ClientVersion   string              `json:"client_version,omitempty"`
	AllPlayersStats []PlayerBattleStats `json:"all_players_stats"`
	CreatedAt       time.Time           `json:"created_at"`
}

// PlayerBattleStats holds one player's decoded end-of-battle statistics.
//
// The numeric fields are read from the positional playersPublicInfo array
// by a per-client-version slot table; slots a version does not declare stay
// zero. Damage is the authoritative total reported by the server, not the
// sum of the per-source breakdown (the breakdown omits some minor sources).
//
// Team, IsOwn, ShipClass, CaptainSkills, Upgrades, and ShipComponents are
// derived during parsing: team by comparing team ids against the uploader,
// skills from the hidden crew state resolved by the player's actual ship
// class, upgrades from the ship config dump, components from the hidden
// ship-components state.
type PlayerBattleStats struct {
	// Identity
	PlayerID    int64  `json:"player_id"`
	PlayerName  string `json:"player_name"`
	AccountDBID int64  `json:"account_db_id,omitempty"`
	ClanTag     string `json:"clan_tag,omitempty"`
	ClanID      int64  `json:"clan_id,omitempty"`
	Realm       string `json:"realm,omitempty"`

	// Perspective
	Team  string `json:"team"` // TeamAlly or TeamEnemy
	IsOwn bool   `json:"is_own,omitempty"`

	// Ship
	ShipID    int64  `json:"ship_id,omitempty"`
	ShipName  string `json:"ship_name,omitempty"`
	ShipClass string `json:"ship_class,omitempty"`

	// Survival
	SurvivalTime    int     `json:"survival_time"`
	SurvivalPercent float64 `json:"survival_percent"`

	// Combat results
	Kills    int `json:"kills"`
	Citadels int `json:"citadels"`
	Crits    int `json:"crits"`
	Fires    int `json:"fires"`
	Floods   int `json:"floods"`

	// Hits by shell type
	HitsAP          int `json:"hits_ap"`
	HitsHE          int `json:"hits_he"`
	HitsSecondaries int `json:"hits_secondaries"`

	// Damage dealt, by source
	Damage              int `json:"damage"` // authoritative total
	DamageAP            int `json:"damage_ap"`
	DamageHE            int `json:"damage_he"`
	DamageHESecondaries int `json:"damage_he_secondaries"`
	DamageTorps         int `json:"damage_torps"`
	DamageDeepWater     int `json:"damage_deep_water_torps"`
	DamageFire          int `json:"damage_fire"`
	DamageFlooding      int `json:"damage_flooding"`
	DamageOther         int `json:"damage_other"`

	// Damage economy
	ReceivedDamage  int `json:"received_damage"`
	SpottingDamage  int `json:"spotting_damage"`
	PotentialDamage int `json:"potential_damage"`

	// Progression
	BaseXP int `json:"base_xp"`

	// Loadout
	CaptainSkills  []string `json:"captain_skills,omitempty"`
	Upgrades       []string `json:"upgrades,omitempty"`
	ShipComponents []string `json:"ship_components,omitempty"`
}
