// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package replay

// Vehicle relation codes used by Metadata.Vehicles. Anything above
// RelationAlly is an enemy team.
const (
	RelationSelf = 0
	RelationAlly = 1
)

// Metadata is the JSON block at the head of every replay, written by the
// game client at battle start. Only the keys the pipeline consumes are
// declared; unknown keys are dropped here at the decode boundary.
type Metadata struct {
	ClientVersionFromExe string `json:"clientVersionFromExe"`
	ClientVersionFromXML string `json:"clientVersionFromXml"`

	// DateTime is client-local wall time formatted DD.MM.YYYY HH:MM:SS.
	DateTime string `json:"dateTime"`
	Duration int    `json:"duration"`

	MapID          int    `json:"mapId"`
	MapName        string `json:"mapName"`
	MapDisplayName string `json:"mapDisplayName"`

	// The raw game type is spread across three keys depending on the
	// release and battle kind; GameTypeRaw picks the first populated one.
	MatchGroup string `json:"matchGroup"`
	GameLogic  string `json:"gameLogic"`
	BattleType string `json:"battleType"`

	Scenario         string `json:"scenario"`
	ScenarioConfigID int    `json:"scenarioConfigId"`
	TeamsCount       int    `json:"teamsCount"`
	PlayersPerTeam   int    `json:"playersPerTeam"`

	PlayerID      int64     `json:"playerID"`
	PlayerName    string    `json:"playerName"`
	PlayerVehicle string    `json:"playerVehicle"`
	Vehicles      []Vehicle `json:"vehicles"`
}

// Vehicle is one roster entry from the metadata block. ShipID is the
// GameParams ship id (the key for name and class lookups), ID is the
// player's avatar id in the packet stream.
type Vehicle struct {
	ShipID   int64  `json:"shipId"`
	Relation int    `json:"relation"`
	ID       int64  `json:"id"`
	Name     string `json:"name"`
}

// GameTypeRaw returns the raw game type string, probing matchGroup,
// gameLogic, and battleType in that order. Empty when none is set.
func (m *Metadata) GameTypeRaw() string {
	if m.MatchGroup != "" {
		return m.MatchGroup
	}
	if m.GameLogic != "" {
		return m.GameLogic
	}
	return m.BattleType
}

// OwnVehicle returns the recording player's roster entry.
func (m *Metadata) OwnVehicle() (Vehicle, bool) {
	for _, v := range m.Vehicles {
		if v.Relation == RelationSelf {
			return v, true
		}
	}
	return Vehicle{}, false
}

// Allies returns the roster entries on the recording player's team,
// excluding the player.
func (m *Metadata) Allies() []Vehicle {
	out := make([]Vehicle, 0, len(m.Vehicles)/2)
	for _, v := range m.Vehicles {
		if v.Relation == RelationAlly {
			out = append(out, v)
		}
	}
	return out
}

// Enemies returns the opposing team's roster entries.
func (m *Metadata) Enemies() []Vehicle {
	out := make([]Vehicle, 0, len(m.Vehicles)/2)
	for _, v := range m.Vehicles {
		if v.Relation > RelationAlly {
			out = append(out, v)
		}
	}
	return out
}

// MapInfo is decoded from the Map packet. ArenaID matches the
// arenaUniqueID reported by the terminal battle-stats packet and serves
// as a cross-check for incomplete replays.
type MapInfo struct {
	SpaceID int32
	ArenaID int64
	Name    string
}

// BattleStats is the server-authoritative result payload from the
// terminal packet of a completed battle.
type BattleStats struct {
	ArenaUniqueID     int64
	PlayersPublicInfo map[int64][]interface{}
	PrivateDataList   []interface{}
}

// HiddenState is the entity state accumulated from the packet stream,
// keyed by player id. It carries everything the stats parser needs that
// the metadata block does not: the battle result, the commander skill
// tables, and per-player ship configuration.
type HiddenState struct {
	BattleResult *BattleResult
	Players      map[int64]*PlayerState
	Crew         map[int64]*CrewState
}

// BattleResult is decoded from the battle-end broadcast. WinnerTeamID
// is -1 for a draw.
type BattleResult struct {
	WinnerTeamID int
	FinishReason int
}

// PlayerState is one entry of the player table broadcast at arena
// start. Field names follow the client's player-state properties.
type PlayerState struct {
	ID          int64
	AvatarID    int64
	AccountDBID int64
	Name        string
	ClanTag     string
	ClanID      int64
	Realm       string
	TeamID      int
	MaxHealth   int
	IsBot       bool

	// ShipEntityID is the vehicle entity in the packet stream and keys
	// position tracks. ShipParamsID is the GameParams ship id.
	ShipEntityID int64
	ShipParamsID int64

	// CrewParams carries the commander id at index 0; it matches a
	// CrewState by CrewID.
	CrewParams []int64

	ShipComponents map[string]string
	ShipConfigDump []byte
}

// CrewState is one commander entry from the crew broadcast.
// LearnedSkills maps a hull class name (Battleship, Cruiser, ...) to
// the internal skill names learned for that class.
type CrewState struct {
	CrewID        int64
	LearnedSkills map[string][]string
}

// TrackPoint is a minimap position sample for one entity.
type TrackPoint struct {
	Clock float32
	X     float32
	Z     float32
}

// DamageStat is one aggregated damage-timeline entry from the
// damage-stat broadcasts. Not required for persistence; the video
// renderer consumes it.
type DamageStat struct {
	Kind   int64
	Source int64
	Hits   int64
	Damage float64
}

// DecodedReplay is the full product of a decode pass. It is transient:
// the pipeline persists records derived from it, never the struct
// itself.
type DecodedReplay struct {
	ClientVersion string
	Metadata      Metadata
	Map           MapInfo

	// BattleStats is nil when the recording player left before the
	// battle ended; downstream treats the replay as incomplete.
	BattleStats *BattleStats

	Hidden      HiddenState
	OwnAvatarID int64
	Tracks      map[int64][]TrackPoint
	DamageStats []DamageStat
	PacketCount int
}

// Complete reports whether the replay carries the terminal battle-stats
// packet.
func (d *DecodedReplay) Complete() bool {
	return d.BattleStats != nil
}

// PlayerStateFor returns the hidden player state for a player id.
func (d *DecodedReplay) PlayerStateFor(playerID int64) (*PlayerState, bool) {
	ps, ok := d.Hidden.Players[playerID]
	return ps, ok
}

// CrewFor resolves the commander state for a player by matching the
// player's CrewParams head against the crew table's CrewID values. The
// crew table is keyed by broadcast id, which does not always equal the
// player id, so the match is by commander id.
func (d *DecodedReplay) CrewFor(playerID int64) (*CrewState, bool) {
	ps, ok := d.Hidden.Players[playerID]
	if !ok || len(ps.CrewParams) == 0 {
		return nil, false
	}
	crewID := ps.CrewParams[0]
	for _, cs := range d.Hidden.Crew {
		if cs.CrewID == crewID {
			return cs, true
		}
	}
	return nil, false
}
