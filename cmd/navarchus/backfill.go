// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/navarchus/internal/analytics"
	"github.com/tomtom215/navarchus/internal/config"
	"github.com/tomtom215/navarchus/internal/logging"
	"github.com/tomtom215/navarchus/internal/store"
)

var backfillMirror bool

var backfillCmd = &cobra.Command{
	Use:   "backfill-indexes",
	Short: "Rebuild search indexes from match records",
	Long: "Walk every persisted match and rewrite its ship, player, and clan\n" +
		"index entries. Idempotent; run after an index-affecting upgrade or a\n" +
		"partial write. The server must not hold the store open.",
	Args: cobra.NoArgs,
	RunE: runBackfill,
}

func init() {
	backfillCmd.Flags().BoolVar(&backfillMirror, "mirror", false, "also rebuild the analytics mirror")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: "console"})

	recordStore, err := store.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	defer func() {
		if err := recordStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing record store")
		}
	}()

	ctx := cmd.Context()

	result, err := recordStore.ReindexAll(ctx)
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	fmt.Printf("Reindexed %d matches: %d repaired, %d failed\n",
		result.Scanned, result.Repaired, result.Failed)

	if !backfillMirror {
		return nil
	}
	if !cfg.Analytics.Enabled {
		return fmt.Errorf("analytics mirror is disabled in configuration")
	}

	mirror, err := analytics.New(&cfg.Analytics)
	if err != nil {
		return fmt.Errorf("open analytics mirror: %w", err)
	}
	defer func() {
		if err := mirror.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing analytics mirror")
		}
	}()
	if err := mirror.Ping(context.Background()); err != nil {
		return fmt.Errorf("analytics mirror ping: %w", err)
	}

	rebuild, err := analytics.Rebuild(ctx, mirror, recordStore)
	if err != nil {
		return fmt.Errorf("rebuild mirror: %w", err)
	}
	fmt.Printf("Mirrored %d battles: %d skipped, %d failed\n",
		rebuild.Mirrored, rebuild.Skipped, rebuild.Failed)
	return nil
}
