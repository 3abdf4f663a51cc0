// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/navarchus/internal/metrics"
)

// Aggregate listing bounds.
const (
	DefaultAggregateLimit = 25
	MaxAggregateLimit     = 100
)

// Filter narrows aggregate queries. Zero values mean "no bound".
type Filter struct {
	GameType string
	Since    time.Time
}

// Overview summarizes the uploader's own battles.
type Overview struct {
	TotalBattles       int                 `json:"total_battles"`
	Wins               int                 `json:"wins"`
	Losses             int                 `json:"losses"`
	Draws              int                 `json:"draws"`
	WinRate            float64             `json:"win_rate"`
	AvgDamage          float64             `json:"avg_damage"`
	AvgKills           float64             `json:"avg_kills"`
	AvgSpottingDamage  float64             `json:"avg_spotting_damage"`
	AvgPotentialDamage float64             `json:"avg_potential_damage"`
	AvgReceivedDamage  float64             `json:"avg_received_damage"`
	AvgBaseXP          float64             `json:"avg_base_xp"`
	ByGameType         []GameTypeBreakdown `json:"by_game_type"`
}

// GameTypeBreakdown is the per-game-type slice of the overview.
type GameTypeBreakdown struct {
	GameType  string  `json:"game_type"`
	Battles   int     `json:"battles"`
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	WinRate   float64 `json:"win_rate"`
	AvgDamage float64 `json:"avg_damage"`
}

// ShipAggregate is pick and performance data for one ship across all
// mirrored players.
type ShipAggregate struct {
	ShipName  string  `json:"ship_name"`
	ShipClass string  `json:"ship_class,omitempty"`
	Battles   int     `json:"battles"`
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	WinRate   float64 `json:"win_rate"`
	AvgDamage float64 `json:"avg_damage"`
}

// PlayerAggregate is performance data for one player across all
// mirrored battles.
type PlayerAggregate struct {
	PlayerName string  `json:"player_name"`
	ClanTag    string  `json:"clan_tag,omitempty"`
	Battles    int     `json:"battles"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	WinRate    float64 `json:"win_rate"`
	AvgDamage  float64 `json:"avg_damage"`
	AvgBaseXP  float64 `json:"avg_base_xp"`
}

// GetOverview aggregates the uploader's own rows: battle counts, win
// rate, and damage/XP averages, plus a per-game-type breakdown.
func (m *Mirror) GetOverview(ctx context.Context, filter Filter) (*Overview, error) {
	start := time.Now()
	overview, err := m.getOverview(ctx, filter)
	metrics.RecordAnalyticsQuery("overview", battlesTable, time.Since(start), err)
	return overview, err
}

func (m *Mirror) getOverview(ctx context.Context, filter Filter) (*Overview, error) {
	where, args := buildWhere([]string{"is_own"}, filter)

	query := `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE outcome = 'win'),
		COUNT(*) FILTER (WHERE outcome = 'loss'),
		COUNT(*) FILTER (WHERE outcome = 'draw'),
		COALESCE(AVG(damage), 0),
		COALESCE(AVG(kills), 0),
		COALESCE(AVG(spotting_damage), 0),
		COALESCE(AVG(potential_damage), 0),
		COALESCE(AVG(received_damage), 0),
		COALESCE(AVG(base_xp), 0)
	FROM player_battles` + where

	var o Overview
	row := m.conn.QueryRowContext(ctx, query, args...)
	if err := row.Scan(
		&o.TotalBattles, &o.Wins, &o.Losses, &o.Draws,
		&o.AvgDamage, &o.AvgKills, &o.AvgSpottingDamage,
		&o.AvgPotentialDamage, &o.AvgReceivedDamage, &o.AvgBaseXP,
	); err != nil {
		return nil, fmt.Errorf("overview query: %w", err)
	}
	o.WinRate = winRate(o.Wins, o.Losses)

	byType, err := m.overviewByGameType(ctx, filter)
	if err != nil {
		return nil, err
	}
	o.ByGameType = byType

	return &o, nil
}

func (m *Mirror) overviewByGameType(ctx context.Context, filter Filter) ([]GameTypeBreakdown, error) {
	where, args := buildWhere([]string{"is_own"}, filter)

	query := `SELECT
		game_type,
		COUNT(*) AS battles,
		COUNT(*) FILTER (WHERE outcome = 'win'),
		COUNT(*) FILTER (WHERE outcome = 'loss'),
		COALESCE(AVG(damage), 0)
	FROM player_battles` + where + `
	GROUP BY game_type
	ORDER BY battles DESC, game_type`

	rows, err := queryAndScan(ctx, m.conn, query, args, func(rows *sql.Rows) (GameTypeBreakdown, error) {
		var b GameTypeBreakdown
		err := rows.Scan(&b.GameType, &b.Battles, &b.Wins, &b.Losses, &b.AvgDamage)
		b.WinRate = winRate(b.Wins, b.Losses)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("overview by game type: %w", err)
	}
	return rows, nil
}

// GetShipUsage aggregates pick counts and win rates per ship over
// every mirrored player row, most-picked first.
func (m *Mirror) GetShipUsage(ctx context.Context, filter Filter, limit int) ([]ShipAggregate, error) {
	start := time.Now()
	ships, err := m.getShipUsage(ctx, filter, limit)
	metrics.RecordAnalyticsQuery("ships", battlesTable, time.Since(start), err)
	return ships, err
}

func (m *Mirror) getShipUsage(ctx context.Context, filter Filter, limit int) ([]ShipAggregate, error) {
	where, args := buildWhere([]string{"ship_name IS NOT NULL"}, filter)
	args = append(args, clampLimit(limit))

	query := `SELECT
		ship_name,
		COALESCE(MAX(ship_class), ''),
		COUNT(*) AS battles,
		COUNT(*) FILTER (WHERE outcome = 'win'),
		COUNT(*) FILTER (WHERE outcome = 'loss'),
		COALESCE(AVG(damage), 0)
	FROM player_battles` + where + `
	GROUP BY ship_name
	ORDER BY battles DESC, ship_name
	LIMIT ?`

	ships, err := queryAndScan(ctx, m.conn, query, args, func(rows *sql.Rows) (ShipAggregate, error) {
		var s ShipAggregate
		err := rows.Scan(&s.ShipName, &s.ShipClass, &s.Battles, &s.Wins, &s.Losses, &s.AvgDamage)
		s.WinRate = winRate(s.Wins, s.Losses)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("ship usage query: %w", err)
	}
	return ships, nil
}

// GetPlayerPerformance aggregates battles, win rate, and averages per
// player over every mirrored row, most-seen first.
func (m *Mirror) GetPlayerPerformance(ctx context.Context, filter Filter, limit int) ([]PlayerAggregate, error) {
	start := time.Now()
	players, err := m.getPlayerPerformance(ctx, filter, limit)
	metrics.RecordAnalyticsQuery("players", battlesTable, time.Since(start), err)
	return players, err
}

func (m *Mirror) getPlayerPerformance(ctx context.Context, filter Filter, limit int) ([]PlayerAggregate, error) {
	where, args := buildWhere([]string{"player_name <> ''"}, filter)
	args = append(args, clampLimit(limit))

	query := `SELECT
		player_name,
		COALESCE(MAX(clan_tag), ''),
		COUNT(*) AS battles,
		COUNT(*) FILTER (WHERE outcome = 'win'),
		COUNT(*) FILTER (WHERE outcome = 'loss'),
		COALESCE(AVG(damage), 0),
		COALESCE(AVG(base_xp), 0)
	FROM player_battles` + where + `
	GROUP BY player_name
	ORDER BY battles DESC, player_name
	LIMIT ?`

	players, err := queryAndScan(ctx, m.conn, query, args, func(rows *sql.Rows) (PlayerAggregate, error) {
		var p PlayerAggregate
		err := rows.Scan(&p.PlayerName, &p.ClanTag, &p.Battles, &p.Wins, &p.Losses, &p.AvgDamage, &p.AvgBaseXP)
		p.WinRate = winRate(p.Wins, p.Losses)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("player performance query: %w", err)
	}
	return players, nil
}

// buildWhere combines fixed conditions with the filter's bounds into a
// WHERE clause. Returns "" when nothing applies.
func buildWhere(conds []string, filter Filter) (string, []interface{}) {
	conds = append([]string{}, conds...)
	args := make([]interface{}, 0, 2)
	if filter.GameType != "" {
		conds = append(conds, "game_type = ?")
		args = append(args, filter.GameType)
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "fought_at >= ?")
		args = append(args, filter.Since.UTC())
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// winRate excludes draws from the denominator. Draws are vanishingly
// rare and counting them as losses skews small samples.
func winRate(wins, losses int) float64 {
	decided := wins + losses
	if decided == 0 {
		return 0
	}
	return float64(wins) / float64(decided)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultAggregateLimit
	}
	if limit > MaxAggregateLimit {
		return MaxAggregateLimit
	}
	return limit
}

// scanFunc scans a single row into a result type.
type scanFunc[T any] func(*sql.Rows) (T, error)

// queryAndScan executes a query and scans all rows with scan.
func queryAndScan[T any](ctx context.Context, conn *sql.DB, query string, args []interface{}, scan scanFunc[T]) ([]T, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
