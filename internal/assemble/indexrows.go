// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package assemble

import (
	"sort"
	"strings"

	"github.com/tomtom215/navarchus/internal/models"
)

// Index-row builders derive the reverse-index rows from a MATCH record
// exactly as persisted, so the create-time write and an admin backfill
// emit identical rows. Output order is deterministic for the same
// reason.

// ShipIndexRows aggregates the roster by uppercased ship name with
// per-team counts. Entries without a ship name are skipped.
func ShipIndexRows(m *models.MatchRecord) []models.ShipIndexRow {
	type tally struct{ ally, enemy int }
	byShip := make(map[string]*tally)

	add := func(name string, enemy bool) {
		if name == "" {
			return
		}
		name = strings.ToUpper(name)
		t := byShip[name]
		if t == nil {
			t = &tally{}
			byShip[name] = t
		}
		if enemy {
			t.enemy++
		} else {
			t.ally++
		}
	}
	for _, e := range m.Allies {
		add(e.ShipName, false)
	}
	for _, e := range m.Enemies {
		add(e.ShipName, true)
	}

	names := make([]string, 0, len(byShip))
	for name := range byShip {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]models.ShipIndexRow, 0, len(names))
	for _, name := range names {
		t := byShip[name]
		rows = append(rows, models.ShipIndexRow{
			ShipName:      name,
			GameType:      m.GameType,
			UnixTime:      m.UnixTime,
			ArenaUniqueID: m.ArenaUniqueID,
			AllyCount:     t.ally,
			EnemyCount:    t.enemy,
			TotalCount:    t.ally + t.enemy,
		})
	}
	return rows
}

// PlayerIndexRows emits one row per named roster player, allies first.
func PlayerIndexRows(m *models.MatchRecord) []models.PlayerIndexRow {
	rows := make([]models.PlayerIndexRow, 0, len(m.Allies)+len(m.Enemies))
	emit := func(entries []models.RosterEntry, team string) {
		for _, e := range entries {
			if e.Name == "" {
				continue
			}
			rows = append(rows, models.PlayerIndexRow{
				PlayerName:    e.Name,
				GameType:      m.GameType,
				UnixTime:      m.UnixTime,
				ArenaUniqueID: m.ArenaUniqueID,
				Team:          team,
				ClanTag:       e.ClanTag,
				ShipName:      e.ShipName,
			})
		}
	}
	emit(m.Allies, models.TeamAlly)
	emit(m.Enemies, models.TeamEnemy)
	return rows
}

// ClanIndexRows emits one row per clan tag present on either roster.
// Team is the side fielding more of the tag's players, enemy on a
// tie. IsMainClan marks the match's majority tags.
func ClanIndexRows(m *models.MatchRecord) []models.ClanIndexRow {
	type tally struct{ ally, enemy int }
	byTag := make(map[string]*tally)

	add := func(tag string, enemy bool) {
		if tag == "" {
			return
		}
		t := byTag[tag]
		if t == nil {
			t = &tally{}
			byTag[tag] = t
		}
		if enemy {
			t.enemy++
		} else {
			t.ally++
		}
	}
	for _, e := range m.Allies {
		add(e.ClanTag, false)
	}
	for _, e := range m.Enemies {
		add(e.ClanTag, true)
	}

	tags := make([]string, 0, len(byTag))
	for tag := range byTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	rows := make([]models.ClanIndexRow, 0, len(tags))
	for _, tag := range tags {
		t := byTag[tag]
		team := models.TeamEnemy
		if t.ally > t.enemy {
			team = models.TeamAlly
		}
		rows = append(rows, models.ClanIndexRow{
			ClanTag:       tag,
			GameType:      m.GameType,
			UnixTime:      m.UnixTime,
			ArenaUniqueID: m.ArenaUniqueID,
			Team:          team,
			MemberCount:   t.ally + t.enemy,
			IsMainClan:    tag == m.AllyMainClanTag || tag == m.EnemyMainClanTag,
		})
	}
	return rows
}
