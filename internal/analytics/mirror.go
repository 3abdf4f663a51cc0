// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/navarchus/internal/metrics"
	"github.com/tomtom215/navarchus/internal/models"
)

const upsertBattleRow = `INSERT OR REPLACE INTO player_battles (
	arena_unique_id, game_type, player_id, player_name, clan_tag, team,
	is_own, ship_id, ship_name, ship_class, map_id, map_display_name,
	fought_at, outcome, damage, kills, citadels, fires, floods, crits,
	received_damage, spotting_damage, potential_damage, base_xp,
	survival_time, survival_percent, mirrored_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// MirrorBattle projects one battle into the mirror: one row per player
// in the stats record, keyed by (game_type, arena, player). Re-running
// for the same battle replaces the rows in place, so redeliveries and
// rebuilds are safe.
func (m *Mirror) MirrorBattle(ctx context.Context, match *models.MatchRecord, stats *models.StatsRecord) error {
	if match == nil || stats == nil {
		return errors.New("analytics: nil match or stats")
	}

	start := time.Now()
	err := m.mirrorBattle(ctx, match, stats)
	metrics.RecordAnalyticsQuery("mirror", battlesTable, time.Since(start), err)
	return err
}

func (m *Mirror) mirrorBattle(ctx context.Context, match *models.MatchRecord, stats *models.StatsRecord) error {
	tx, err := m.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mirror txn: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	mirroredAt := time.Now().UTC()
	fought := foughtAt(match)

	for _, ps := range stats.AllPlayersStats {
		_, err := tx.ExecContext(ctx, upsertBattleRow,
			match.ArenaUniqueID,
			match.GameType,
			ps.PlayerID,
			ps.PlayerName,
			nullIfEmpty(ps.ClanTag),
			ps.Team,
			ps.IsOwn,
			ps.ShipID,
			nullIfEmpty(ps.ShipName),
			nullIfEmpty(ps.ShipClass),
			nullIfEmpty(match.MapID),
			nullIfEmpty(match.MapDisplayName),
			fought,
			playerOutcome(ps.Team, match.WinLoss),
			ps.Damage,
			ps.Kills,
			ps.Citadels,
			ps.Fires,
			ps.Floods,
			ps.Crits,
			ps.ReceivedDamage,
			ps.SpottingDamage,
			ps.PotentialDamage,
			ps.BaseXP,
			ps.SurvivalTime,
			ps.SurvivalPercent,
			mirroredAt,
		)
		if err != nil {
			return fmt.Errorf("mirror battle %d player %d: %w", match.ArenaUniqueID, ps.PlayerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mirror txn: %w", err)
	}
	metrics.AnalyticsRowsMirrored.Add(float64(len(stats.AllPlayersStats)))
	return nil
}

// playerOutcome converts the match outcome, recorded from the first
// uploader's perspective, into this player's outcome.
func playerOutcome(team, matchWinLoss string) string {
	if team == models.TeamAlly {
		return matchWinLoss
	}
	switch matchWinLoss {
	case models.WinLossWin:
		return models.WinLossLoss
	case models.WinLossLoss:
		return models.WinLossWin
	}
	return matchWinLoss
}

// foughtAt converts the match unix time to a timestamp, NULL when the
// client datetime was malformed.
func foughtAt(match *models.MatchRecord) interface{} {
	if match.UnixTime <= 0 {
		return nil
	}
	return time.Unix(match.UnixTime, 0).UTC()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
