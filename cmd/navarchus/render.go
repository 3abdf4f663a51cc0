// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/navarchus/internal/blobstore"
	"github.com/tomtom215/navarchus/internal/config"
	"github.com/tomtom215/navarchus/internal/logging"
	"github.com/tomtom215/navarchus/internal/pipeline"
	"github.com/tomtom215/navarchus/internal/render"
	"github.com/tomtom215/navarchus/internal/replay"
	"github.com/tomtom215/navarchus/internal/store"
)

var renderForce bool

var renderCmd = &cobra.Command{
	Use:   "render <arenaUniqueID>",
	Short: "Render the minimap video for a persisted match",
	Long: "Render a match's minimap MP4 directly, bypassing the pipeline. Uses\n" +
		"the stored replay blobs; renders dual-perspective when both sides\n" +
		"uploaded. The server must not hold the store open.",
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().BoolVar(&renderForce, "force", false, "re-render even if a video already exists")
}

func runRender(cmd *cobra.Command, args []string) error {
	arenaID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid arena id %q", args[0])
	}

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

	blobs, err := blobstore.Open(cfg.BlobStore)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}

	ctx := cmd.Context()

	match, err := recordStore.FindMatch(ctx, arenaID)
	if err != nil {
		return fmt.Errorf("find match %d: %w", arenaID, err)
	}
	uploads, err := recordStore.GetUploads(ctx, match.GameType, arenaID)
	if err != nil {
		return fmt.Errorf("load uploads: %w", err)
	}

	req, err := pipeline.BuildRenderRequest(match, uploads)
	if err != nil {
		return fmt.Errorf("build render job: %w", err)
	}

	if !renderForce {
		if (req.Dual && match.HasDualVideo()) || (!req.Dual && match.HasVideo()) {
			fmt.Println("Video already rendered; use --force to re-render")
			return nil
		}
	}

	decoder := replay.NewDecoder(replay.Options{})
	replays := make([]*replay.DecodedReplay, 0, len(req.ReplayKeys))
	for _, key := range req.ReplayKeys {
		r, err := blobs.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("load replay blob %s: %w", key, err)
		}
		data, err := io.ReadAll(r)
		closeErr := r.Close()
		if err != nil {
			return fmt.Errorf("read replay blob %s: %w", key, err)
		}
		if closeErr != nil {
			return fmt.Errorf("close replay blob %s: %w", key, closeErr)
		}
		decoded, err := decoder.Decode(data)
		if err != nil {
			return fmt.Errorf("decode replay %s: %w", key, err)
		}
		replays = append(replays, decoded)
	}

	renderer := render.New(cfg.Render, blobs)

	renderCtx := ctx
	if cfg.Pipeline.RenderTimeout > 0 {
		var cancel context.CancelFunc
		renderCtx, cancel = context.WithTimeout(ctx, cfg.Pipeline.RenderTimeout)
		defer cancel()
	}

	var videoKey string
	if req.Dual {
		videoKey, err = renderer.RenderDual(renderCtx, replays[0], replays[1],
			match.AllyMainClanTag, match.EnemyMainClanTag, arenaID)
	} else {
		videoKey, err = renderer.RenderSingle(renderCtx, replays[0], arenaID)
	}
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	now := time.Now().UTC()
	if req.Dual {
		_, err = recordStore.SetDualVideo(ctx, arenaID, videoKey, now)
	} else {
		_, err = recordStore.SetVideo(ctx, arenaID, videoKey, now)
	}
	if err != nil {
		return fmt.Errorf("record video key: %w", err)
	}

	fmt.Printf("Rendered %s\n", videoKey)
	return nil
}
