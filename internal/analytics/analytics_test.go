// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus/

package analytics

import (
	"context"
	"math"
	"testing"

	"github.com/tomtom215/navarchus/internal/config"
	"github.com/tomtom215/navarchus/internal/models"
)

func newTestMirror(t *testing.T) *Mirror {
	t.Helper()
	m, err := New(&config.AnalyticsConfig{
		Enabled:   true,
		Path:      ":memory:",
		MaxMemory: "256MB",
		Threads:   1,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := m.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return m
}

func testBattle(arenaID int64, gameType, winLoss string) (*models.MatchRecord, *models.StatsRecord) {
	match := &models.MatchRecord{
		ArenaUniqueID:  arenaID,
		GameType:       gameType,
		WinLoss:        winLoss,
		MapID:          "s01_solomon_islands",
		MapDisplayName: "Solomon Islands",
		UnixTime:       1764950400,
	}
	stats := &models.StatsRecord{
		ArenaUniqueID: arenaID,
		GameType:      gameType,
		AllPlayersStats: []models.PlayerBattleStats{
			{
				PlayerID: 101, PlayerName: "Tirpitz_Enjoyer", ClanTag: "KRAKN",
				Team: models.TeamAlly, IsOwn: true,
				ShipID: 4179539920, ShipName: "Tirpitz", ShipClass: "Battleship",
				Damage: 84000, Kills: 2, BaseXP: 1450, SurvivalPercent: 100,
			},
			{
				PlayerID: 102, PlayerName: "DD_Main",
				Team: models.TeamAlly,
				ShipID: 4180588496, ShipName: "Gearing", ShipClass: "Destroyer",
				Damage: 41000, Kills: 1,
			},
			{
				PlayerID: 201, PlayerName: "Enemy_CA", ClanTag: "FOE",
				Team: models.TeamEnemy,
				ShipID: 4181637072, ShipName: "Des Moines", ShipClass: "Cruiser",
				Damage: 96000, Kills: 3,
			},
		},
	}
	return match, stats
}

func TestMirrorBattleOverview(t *testing.T) {
	m := newTestMirror(t)
	ctx := context.Background()

	match, stats := testBattle(7598531900001111, models.GameTypeClan, models.WinLossWin)
	if err := m.MirrorBattle(ctx, match, stats); err != nil {
		t.Fatalf("MirrorBattle() error = %v", err)
	}

	overview, err := m.GetOverview(ctx, Filter{})
	if err != nil {
		t.Fatalf("GetOverview() error = %v", err)
	}

	// The overview reads only the uploader's own rows.
	if overview.TotalBattles != 1 {
		t.Errorf("TotalBattles = %d, want 1", overview.TotalBattles)
	}
	if overview.Wins != 1 || overview.Losses != 0 {
		t.Errorf("Wins/Losses = %d/%d, want 1/0", overview.Wins, overview.Losses)
	}
	if overview.WinRate != 100 {
		t.Errorf("WinRate = %v, want 100", overview.WinRate)
	}
	if math.Abs(overview.AvgDamage-84000) > 0.001 {
		t.Errorf("AvgDamage = %v, want 84000", overview.AvgDamage)
	}
	if math.Abs(overview.AvgBaseXP-1450) > 0.001 {
		t.Errorf("AvgBaseXP = %v, want 1450", overview.AvgBaseXP)
	}
	if len(overview.ByGameType) != 1 {
		t.Fatalf("ByGameType length = %d, want 1", len(overview.ByGameType))
	}
	if overview.ByGameType[0].GameType != models.GameTypeClan {
		t.Errorf("ByGameType[0].GameType = %q, want %q", overview.ByGameType[0].GameType, models.GameTypeClan)
	}
}

func TestMirrorBattleIdempotent(t *testing.T) {
	m := newTestMirror(t)
	ctx := context.Background()

	match, stats := testBattle(7598531900002222, models.GameTypeRandom, models.WinLossLoss)
	for i := 0; i < 3; i++ {
		if err := m.MirrorBattle(ctx, match, stats); err != nil {
			t.Fatalf("MirrorBattle() pass %d error = %v", i, err)
		}
	}

	overview, err := m.GetOverview(ctx, Filter{})
	if err != nil {
		t.Fatalf("GetOverview() error = %v", err)
	}
	if overview.TotalBattles != 1 {
		t.Errorf("TotalBattles after re-mirror = %d, want 1", overview.TotalBattles)
	}
	if overview.Losses != 1 {
		t.Errorf("Losses = %d, want 1", overview.Losses)
	}
}

func TestMirrorBattleNilArgs(t *testing.T) {
	m := newTestMirror(t)
	if err := m.MirrorBattle(context.Background(), nil, nil); err == nil {
		t.Error("MirrorBattle(nil, nil) expected error")
	}
}

func TestOverviewGameTypeFilter(t *testing.T) {
	m := newTestMirror(t)
	ctx := context.Background()

	clanMatch, clanStats := testBattle(7598531900003333, models.GameTypeClan, models.WinLossWin)
	randomMatch, randomStats := testBattle(7598531900004444, models.GameTypeRandom, models.WinLossLoss)
	for _, b := range []struct {
		match *models.MatchRecord
		stats *models.StatsRecord
	}{{clanMatch, clanStats}, {randomMatch, randomStats}} {
		if err := m.MirrorBattle(ctx, b.match, b.stats); err != nil {
			t.Fatalf("MirrorBattle() error = %v", err)
		}
	}

	overview, err := m.GetOverview(ctx, Filter{GameType: models.GameTypeClan})
	if err != nil {
		t.Fatalf("GetOverview() error = %v", err)
	}
	if overview.TotalBattles != 1 {
		t.Errorf("filtered TotalBattles = %d, want 1", overview.TotalBattles)
	}
	if overview.Wins != 1 {
		t.Errorf("filtered Wins = %d, want 1", overview.Wins)
	}

	all, err := m.GetOverview(ctx, Filter{})
	if err != nil {
		t.Fatalf("GetOverview() error = %v", err)
	}
	if all.TotalBattles != 2 {
		t.Errorf("unfiltered TotalBattles = %d, want 2", all.TotalBattles)
	}
}

func TestShipUsageAggregates(t *testing.T) {
	m := newTestMirror(t)
	ctx := context.Background()

	match, stats := testBattle(7598531900005555, models.GameTypeClan, models.WinLossWin)
	if err := m.MirrorBattle(ctx, match, stats); err != nil {
		t.Fatalf("MirrorBattle() error = %v", err)
	}

	ships, err := m.GetShipUsage(ctx, Filter{}, 10)
	if err != nil {
		t.Fatalf("GetShipUsage() error = %v", err)
	}
	if len(ships) != 3 {
		t.Fatalf("ship rows = %d, want 3", len(ships))
	}

	byName := make(map[string]ShipAggregate, len(ships))
	for _, s := range ships {
		byName[s.ShipName] = s
	}

	tirpitz, ok := byName["Tirpitz"]
	if !ok {
		t.Fatal("Tirpitz missing from ship usage")
	}
	if tirpitz.Battles != 1 || tirpitz.Wins != 1 {
		t.Errorf("Tirpitz battles/wins = %d/%d, want 1/1", tirpitz.Battles, tirpitz.Wins)
	}
	if tirpitz.ShipClass != "Battleship" {
		t.Errorf("Tirpitz class = %q, want Battleship", tirpitz.ShipClass)
	}

	// Enemy team lost the win from their perspective.
	desMoines, ok := byName["Des Moines"]
	if !ok {
		t.Fatal("Des Moines missing from ship usage")
	}
	if desMoines.Losses != 1 {
		t.Errorf("Des Moines losses = %d, want 1", desMoines.Losses)
	}
}

func TestPlayerPerformanceOutcomeInversion(t *testing.T) {
	m := newTestMirror(t)
	ctx := context.Background()

	match, stats := testBattle(7598531900006666, models.GameTypeClan, models.WinLossWin)
	if err := m.MirrorBattle(ctx, match, stats); err != nil {
		t.Fatalf("MirrorBattle() error = %v", err)
	}

	players, err := m.GetPlayerPerformance(ctx, Filter{}, 10)
	if err != nil {
		t.Fatalf("GetPlayerPerformance() error = %v", err)
	}

	byName := make(map[string]PlayerAggregate, len(players))
	for _, p := range players {
		byName[p.PlayerName] = p
	}

	ally, ok := byName["Tirpitz_Enjoyer"]
	if !ok {
		t.Fatal("uploader missing from player performance")
	}
	if ally.Wins != 1 || ally.Losses != 0 {
		t.Errorf("ally wins/losses = %d/%d, want 1/0", ally.Wins, ally.Losses)
	}
	if ally.ClanTag != "KRAKN" {
		t.Errorf("ally clan = %q, want KRAKN", ally.ClanTag)
	}

	enemy, ok := byName["Enemy_CA"]
	if !ok {
		t.Fatal("enemy missing from player performance")
	}
	if enemy.Wins != 0 || enemy.Losses != 1 {
		t.Errorf("enemy wins/losses = %d/%d, want 0/1", enemy.Wins, enemy.Losses)
	}
}

func TestOverviewEmptyMirror(t *testing.T) {
	m := newTestMirror(t)

	overview, err := m.GetOverview(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("GetOverview() on empty mirror error = %v", err)
	}
	if overview.TotalBattles != 0 {
		t.Errorf("TotalBattles = %d, want 0", overview.TotalBattles)
	}
	if overview.WinRate != 0 {
		t.Errorf("WinRate = %v, want 0", overview.WinRate)
	}
	if len(overview.ByGameType) != 0 {
		t.Errorf("ByGameType length = %d, want 0", len(overview.ByGameType))
	}
}

func TestPing(t *testing.T) {
	m := newTestMirror(t)
	if err := m.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
