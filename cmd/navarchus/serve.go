// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/navarchus/internal/analytics"
	"github.com/tomtom215/navarchus/internal/api"
	"github.com/tomtom215/navarchus/internal/assemble"
	"github.com/tomtom215/navarchus/internal/blobstore"
	"github.com/tomtom215/navarchus/internal/config"
	"github.com/tomtom215/navarchus/internal/gamedata"
	"github.com/tomtom215/navarchus/internal/logging"
	"github.com/tomtom215/navarchus/internal/query"
	"github.com/tomtom215/navarchus/internal/render"
	"github.com/tomtom215/navarchus/internal/replay"
	"github.com/tomtom215/navarchus/internal/stats"
	"github.com/tomtom215/navarchus/internal/store"
	"github.com/tomtom215/navarchus/internal/supervisor"
	"github.com/tomtom215/navarchus/internal/supervisor/services"
	"github.com/tomtom215/navarchus/internal/wows"
	ws "github.com/tomtom215/navarchus/internal/websocket"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the upload API, replay pipeline, and query gateway",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

// blobRetentionInterval is how often the retention sweep walks the blob
// store. Retention is day-granular, so a half-day cadence is plenty.
const blobRetentionInterval = 12 * time.Hour

//nolint:gocyclo // Main initialization function with sequential setup steps
func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Str("version", api.Version).Msg("Starting Navarchus with supervisor tree")

	if cfg.NATS.Enabled {
		logging.Info().
			Bool("embedded_nats", cfg.NATS.EmbeddedServer).
			Str("store_path", cfg.Store.Path).
			Str("blob_path", cfg.BlobStore.Path).
			Bool("render", cfg.Render.Enabled).
			Msg("Configuration loaded")
	} else {
		logging.Info().
			Bool("nats_enabled", false).
			Str("store_path", cfg.Store.Path).
			Str("blob_path", cfg.BlobStore.Path).
			Msg("Configuration loaded (query-only mode)")
	}

	// Embedded ship tables load once and back every decode and every
	// offline ship-name lookup.
	tables, err := gamedata.NewTables()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load game data tables")
	}
	logging.Info().Int("ships", tables.ShipCount()).Msg("Game data tables loaded")

	// Encyclopedia lookups are optional; without an application id the
	// resolver falls back to the embedded tables and placeholder names.
	var enc wows.Encyclopedia
	if cfg.WOWS.Enabled && cfg.WOWS.ApplicationID != "" {
		enc = wows.NewBreakerClient(&cfg.WOWS)
		logging.Info().Str("base_url", cfg.WOWS.BaseURL).Msg("WoWS encyclopedia client enabled")
	} else {
		logging.Info().Msg("WoWS encyclopedia disabled - using embedded game data only")
	}
	resolver := wows.NewResolver(tables, enc)

	recordStore, err := store.Open(cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open record store")
	}
	defer func() {
		if err := recordStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing record store")
		}
	}()
	logging.Info().Str("path", cfg.Store.Path).Msg("Record store opened")

	blobs, err := blobstore.Open(cfg.BlobStore)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open blob store")
	}
	logging.Info().
		Str("path", cfg.BlobStore.Path).
		Bool("compress", cfg.BlobStore.Compress).
		Msg("Blob store opened")

	signer, err := blobstore.NewSigner(cfg.Auth)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create download signer")
	}

	// DuckDB analytics mirror (optional). The archive stays fully
	// functional without it; aggregate endpoints return 503.
	var mirror *analytics.Mirror
	if cfg.Analytics.Enabled {
		mirror, err = analytics.New(&cfg.Analytics)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open analytics mirror")
		}
		defer func() {
			if err := mirror.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing analytics mirror")
			}
		}()
		if err := mirror.Ping(context.Background()); err != nil {
			logging.Warn().Err(err).Msg("Analytics mirror ping failed")
		} else {
			logging.Info().Str("path", cfg.Analytics.Path).Msg("Analytics mirror opened")
		}
	} else {
		logging.Info().Msg("Analytics mirror disabled (ANALYTICS_ENABLED=false)")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog compatibility
	slogLogger := logging.NewSlogLogger()

	tree, err := supervisor.NewTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// WebSocket hub carries pipeline lifecycle events to browsers. It
	// must exist before the pipeline so the fanout handler can bind it.
	wsHub := ws.NewHub()

	decoder := replay.NewDecoder(replay.Options{})
	parser := stats.NewParser(tables)
	assembler := assemble.NewAssembler(resolver)

	var renderer *render.Renderer
	if cfg.Render.Enabled {
		renderer = render.New(cfg.Render, blobs)
		logging.Info().
			Int("frame_rate", cfg.Render.FrameRate).
			Int("frame_size", cfg.Render.FrameSize).
			Msg("Minimap renderer enabled")
	} else {
		logging.Info().Msg("Minimap renderer disabled (RENDER_ENABLED=false)")
	}

	pipe, err := initPipeline(cfg, pipelineDeps{
		Decoder:   decoder,
		Parser:    parser,
		Assembler: assembler,
		Renderer:  renderer,
		Store:     recordStore,
		Blobs:     blobs,
		Signer:    signer,
		Mirror:    mirror,
		Hub:       wsHub,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize replay pipeline")
	}

	gateway := query.New(recordStore, signer, cfg.API)

	var pub api.EventPublisher
	if pipe != nil {
		pub = pipe.EventPublisher()
	}
	handler := api.NewHandler(recordStore, blobs, signer, gateway, pub, mirror, wsHub, pipe.HealthChecker(), cfg)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(handler, cfg).SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Data layer: the stores' periodic maintenance runs as supervised
	// services so a wedged pass is restarted, not silently dead.
	tree.AddDataService(services.NewStoreGCService(recordStore, cfg.Store.GCInterval))
	if cfg.BlobStore.RetentionDays > 0 {
		tree.AddDataService(services.NewBlobRetentionService(blobs, blobRetentionInterval))
		logging.Info().Int("retention_days", cfg.BlobStore.RetentionDays).Msg("Blob retention sweep added")
	}

	// Pipeline layer
	tree.AddPipelineService(services.NewWebSocketHubService(wsHub))
	if pipe != nil {
		tree.AddPipelineService(services.NewPipelineService(pipe))
		logging.Info().Msg("Replay pipeline added to supervisor tree")
	}

	// API layer
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
	return nil
}
