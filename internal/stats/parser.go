// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package stats

import (
	"fmt"
	"sort"

	"github.com/tomtom215/navarchus/internal/gamedata"
	"github.com/tomtom215/navarchus/internal/logging"
	"github.com/tomtom215/navarchus/internal/models"
	"github.com/tomtom215/navarchus/internal/replay"
)

// Clan battle end-of-battle base experience, as stored in the private
// results block (scaled by ten). The pair is the only outcome signal
// left when the battle-end broadcast is missing from the stream.
const (
	clanVictoryXP = 300000
	clanDefeatXP  = 150000
)

// Result is one replay's parsed statistics, seen from the uploader's
// perspective.
type Result struct {
	ArenaUniqueID int64
	ClientVersion string

	// WinLoss is the uploader's outcome, one of the models.WinLoss
	// constants.
	WinLoss string

	// Experience is the uploader's base experience from the private
	// results block, zero when the block is absent or unreadable.
	Experience int

	// OwnPlayerID is the uploader's avatar id, the key into Players.
	OwnPlayerID int64

	// OwnTeamID is the uploader's team in the arena state, -1 when the
	// arena-state broadcast never carried it.
	OwnTeamID int

	// Players is ordered by player id so repeated parses of the same
	// replay emit identical records.
	Players []models.PlayerBattleStats
}

// Parser turns decoded replays into typed per-player statistics. Safe
// for concurrent use; all state is immutable lookup tables.
type Parser struct {
	tables *gamedata.Tables
}

// NewParser returns a Parser resolving names against the given
// gamedata snapshot.
func NewParser(tables *gamedata.Tables) *Parser {
	return &Parser{tables: tables}
}

// Parse maps the positional battle-stats arrays of a decoded replay
// into named per-player records and derives the uploader's outcome.
// The replay must be complete; without the terminal packet there is
// nothing to parse and the error wraps replay.ErrNoBattleStats. An
// accepted client version without a registered slot table fails with
// ErrIndexMissing.
func (p *Parser) Parse(d *replay.DecodedReplay) (*Result, error) {
	if d.BattleStats == nil {
		return nil, fmt.Errorf("%w: replay is incomplete", replay.ErrNoBattleStats)
	}
	table, err := tableFor(d.ClientVersion)
	if err != nil {
		return nil, err
	}

	ownID := d.OwnAvatarID
	if ownID == 0 {
		if v, ok := d.Metadata.OwnVehicle(); ok {
			ownID = v.ID
		}
	}
	ownTeam := -1
	if st, ok := d.Hidden.Players[ownID]; ok {
		ownTeam = st.TeamID
	}

	ids := make([]int64, 0, len(d.BattleStats.PlayersPublicInfo))
	for id := range d.BattleStats.PlayersPublicInfo {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	players := make([]models.PlayerBattleStats, 0, len(ids))
	for _, id := range ids {
		row := d.BattleStats.PlayersPublicInfo[id]
		if len(row) < table.minLen {
			logging.Warn().
				Str("component", "stats").
				Int64("player_id", id).
				Int("slots", len(row)).
				Int("want", table.minLen).
				Msg("Skipping player with short stats row")
			continue
		}
		players = append(players, p.playerStats(d, table, id, row, ownID, ownTeam))
	}

	experience, _ := privateExperience(d.BattleStats)

	return &Result{
		ArenaUniqueID: d.BattleStats.ArenaUniqueID,
		ClientVersion: d.ClientVersion,
		WinLoss:       winLoss(d, ownTeam),
		Experience:    experience,
		OwnPlayerID:   ownID,
		OwnTeamID:     ownTeam,
		Players:       players,
	}, nil
}

func (p *Parser) playerStats(d *replay.DecodedReplay, t *slotTable, id int64, row []interface{}, ownID int64, ownTeam int) models.PlayerBattleStats {
	ps := models.PlayerBattleStats{
		PlayerID:    t.playerID.from64(row),
		PlayerName:  t.playerName.from(row),
		AccountDBID: t.accountDBID.from64(row),
		ClanTag:     t.clanTag.from(row),
		ClanID:      t.clanID.from64(row),
		Realm:       t.realm.from(row),

		SurvivalTime:    t.survivalTime.from(row),
		SurvivalPercent: t.survivalPercent.from(row),

		Kills:    t.kills.from(row),
		Citadels: t.citadels.from(row),
		Crits:    t.crits.from(row),
		Fires:    t.fires.from(row),
		Floods:   t.floods.from(row),

		HitsAP:          t.hitsAP.from(row),
		HitsHE:          t.hitsHE.from(row),
		HitsSecondaries: t.hitsSecondaries.from(row),

		Damage:              t.damage.from(row),
		DamageAP:            t.damageAP.from(row),
		DamageHE:            t.damageHE.from(row),
		DamageHESecondaries: t.damageHESecondaries.from(row),
		DamageTorps:         t.damageTorps.from(row),
		DamageDeepWater:     t.damageDeepWater.from(row),
		DamageFire:          t.damageFire.from(row),
		DamageFlooding:      t.damageFlooding.from(row),
		DamageOther:         t.damageOther.from(row),

		ReceivedDamage:  t.receivedDamage.from(row),
		SpottingDamage:  t.spottingDamage.from(row),
		PotentialDamage: t.potentialDamage.from(row),

		BaseXP: t.baseXP.from(row),
	}
	if ps.PlayerID == 0 {
		ps.PlayerID = id
	}
	ps.IsOwn = id == ownID
	ps.Team = teamOf(d, id, ownTeam)

	if st, ok := d.Hidden.Players[id]; ok {
		if st.ShipParamsID != 0 {
			ps.ShipID = st.ShipParamsID
			ps.ShipName = p.tables.ShipName(st.ShipParamsID)
			ps.ShipClass = p.tables.ShipClass(st.ShipParamsID)
		}
		ps.CaptainSkills = p.captainSkills(d, id, ps.ShipClass)
		ps.Upgrades = p.upgradeNames(st.ShipConfigDump)
		ps.ShipComponents = componentList(st.ShipComponents)
	}
	return ps
}

// teamOf classifies a player relative to the uploader. The arena state
// is authoritative; players missing from it, or an unknown own team,
// fall back to the metadata roster relation. The two tables describe
// the same match, so a player absent from both is classified enemy.
func teamOf(d *replay.DecodedReplay, id int64, ownTeam int) string {
	if st, ok := d.Hidden.Players[id]; ok && ownTeam >= 0 {
		if st.TeamID == ownTeam {
			return models.TeamAlly
		}
		return models.TeamEnemy
	}
	for _, v := range d.Metadata.Vehicles {
		if v.ID == id {
			if v.Relation <= replay.RelationAlly {
				return models.TeamAlly
			}
			return models.TeamEnemy
		}
	}
	return models.TeamEnemy
}

// captainSkills resolves the player's commander skills. Commanders
// carry a learned sub-list for every hull class they can command, so
// the lookup must use the class of the ship actually sailed. A ship
// missing from the gamedata snapshot leaves the class unknown and
// yields no skills; picking any other sub-list would produce a
// plausible but wrong loadout.
func (p *Parser) captainSkills(d *replay.DecodedReplay, id int64, shipClass string) []string {
	if shipClass == "" {
		return nil
	}
	crew, ok := d.CrewFor(id)
	if !ok {
		return nil
	}
	internal := crew.LearnedSkills[shipClass]
	if len(internal) == 0 {
		return nil
	}
	names := make([]string, 0, len(internal))
	for _, skill := range internal {
		names = append(names, p.tables.SkillDisplayName(skill))
	}
	return names
}

// upgradeNames decodes the ship configuration dump and resolves the
// mounted modernization ids to display names. Ids missing from the
// gamedata snapshot are dropped rather than rendered as raw numbers.
func (p *Parser) upgradeNames(dump []byte) []string {
	cfg := decodeShipConfigDump(dump)
	if len(cfg.Modernizations) == 0 {
		return nil
	}
	names := make([]string, 0, len(cfg.Modernizations))
	for _, id := range cfg.Modernizations {
		if id == 0 {
			continue
		}
		if name, ok := p.tables.UpgradeName(id); ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	return names
}

// componentList flattens the ship component table into a list ordered
// by module key so records compare stably.
func componentList(components map[string]string) []string {
	if len(components) == 0 {
		return nil
	}
	keys := make([]string, 0, len(components))
	for k := range components {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, components[k])
	}
	return out
}

// winLoss derives the uploader's outcome. The battle-end broadcast is
// authoritative; when it is missing from the stream the clan XP pair
// still identifies the outcome for clan battles. Raw clan battles
// report matchGroup "clan", which normalizes to itself.
func winLoss(d *replay.DecodedReplay, ownTeam int) string {
	if br := d.Hidden.BattleResult; br != nil {
		switch {
		case br.WinnerTeamID == -1:
			return models.WinLossDraw
		case ownTeam < 0:
			return models.WinLossUnknown
		case br.WinnerTeamID == ownTeam:
			return models.WinLossWin
		default:
			return models.WinLossLoss
		}
	}
	if d.Metadata.GameTypeRaw() == models.GameTypeClan {
		if raw, ok := privateRawXP(d.BattleStats); ok {
			switch raw {
			case clanVictoryXP:
				return models.WinLossWin
			case clanDefeatXP:
				return models.WinLossLoss
			}
		}
	}
	return models.WinLossUnknown
}

// privateRawXP reads the uploader's base experience from the private
// results block, still scaled by ten.
func privateRawXP(bs *replay.BattleStats) (int64, bool) {
	if bs == nil || len(bs.PrivateDataList) <= 7 {
		return 0, false
	}
	block, ok := bs.PrivateDataList[7].([]interface{})
	if !ok || len(block) == 0 {
		return 0, false
	}
	switch v := block[0].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// privateExperience is privateRawXP descaled to the value the game
// client shows.
func privateExperience(bs *replay.BattleStats) (int, bool) {
	raw, ok := privateRawXP(bs)
	if !ok {
		return 0, false
	}
	return int(raw / 10), true
}
