// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

// Package analytics maintains a DuckDB projection of persisted battles
// and serves aggregate queries over it. BadgerDB stays the source of
// truth; every row here can be rebuilt from the record store, so the
// mirror trades durability guarantees for cheap GROUP BY.
//
// One row per player per battle. The uploader's own row carries
// is_own=TRUE and is the basis for the overview aggregates; ship and
// player aggregates read every row.
package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/navarchus/internal/config"
	"github.com/tomtom215/navarchus/internal/logging"
)

// Mirror owns the DuckDB handle. Safe for concurrent use; DuckDB
// serializes writers internally.
type Mirror struct {
	conn *sql.DB
	path string
}

const battlesTable = "player_battles"

const createBattlesTable = `CREATE TABLE IF NOT EXISTS player_battles (
	arena_unique_id BIGINT NOT NULL,
	game_type TEXT NOT NULL,
	player_id BIGINT NOT NULL,
	player_name TEXT NOT NULL,
	clan_tag TEXT,
	team TEXT NOT NULL,
	is_own BOOLEAN NOT NULL DEFAULT FALSE,
	ship_id BIGINT,
	ship_name TEXT,
	ship_class TEXT,
	map_id TEXT,
	map_display_name TEXT,
	fought_at TIMESTAMP,
	outcome TEXT NOT NULL,
	damage INTEGER NOT NULL DEFAULT 0,
	kills INTEGER NOT NULL DEFAULT 0,
	citadels INTEGER NOT NULL DEFAULT 0,
	fires INTEGER NOT NULL DEFAULT 0,
	floods INTEGER NOT NULL DEFAULT 0,
	crits INTEGER NOT NULL DEFAULT 0,
	received_damage INTEGER NOT NULL DEFAULT 0,
	spotting_damage INTEGER NOT NULL DEFAULT 0,
	potential_damage INTEGER NOT NULL DEFAULT 0,
	base_xp INTEGER NOT NULL DEFAULT 0,
	survival_time INTEGER NOT NULL DEFAULT 0,
	survival_percent DOUBLE NOT NULL DEFAULT 0,
	mirrored_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (game_type, arena_unique_id, player_id)
)`

// New opens (or creates) the analytics database and ensures the schema.
func New(cfg *config.AnalyticsConfig) (*Mirror, error) {
	if cfg == nil {
		return nil, errors.New("analytics: nil config")
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "1GB"
	}

	if cfg.Path != ":memory:" {
		dir := filepath.Dir(cfg.Path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create analytics directory %s: %w", dir, err)
			}
		}
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s", cfg.Path, threads, maxMemory)
	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open analytics database: %w", err)
	}

	m := &Mirror{conn: conn, path: cfg.Path}
	if err := m.createSchema(); err != nil {
		conn.Close()
		return nil, err
	}

	logging.Info().
		Str("path", cfg.Path).
		Int("threads", threads).
		Str("max_memory", maxMemory).
		Msg("Analytics mirror ready")
	return m, nil
}

func (m *Mirror) createSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := m.conn.ExecContext(ctx, createBattlesTable); err != nil {
		return fmt.Errorf("create %s: %w", battlesTable, err)
	}
	return nil
}

// Ping verifies the database is reachable. Used by readiness checks.
func (m *Mirror) Ping(ctx context.Context) error {
	return m.conn.PingContext(ctx)
}

// Close releases the database handle.
func (m *Mirror) Close() error {
	if m.conn == nil {
		return nil
	}
	return m.conn.Close()
}
