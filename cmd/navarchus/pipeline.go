// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/navarchus/internal/analytics"
	"github.com/tomtom215/navarchus/internal/assemble"
	"github.com/tomtom215/navarchus/internal/blobstore"
	"github.com/tomtom215/navarchus/internal/config"
	"github.com/tomtom215/navarchus/internal/logging"
	"github.com/tomtom215/navarchus/internal/notify"
	"github.com/tomtom215/navarchus/internal/pipeline"
	"github.com/tomtom215/navarchus/internal/render"
	"github.com/tomtom215/navarchus/internal/replay"
	"github.com/tomtom215/navarchus/internal/stats"
	"github.com/tomtom215/navarchus/internal/store"
	ws "github.com/tomtom215/navarchus/internal/websocket"
)

// pipelineDeps bundles the components the pipeline consumes. Renderer
// and Mirror are optional; a nil value disables that path.
type pipelineDeps struct {
	Decoder   *replay.Decoder
	Parser    *stats.Parser
	Assembler *assemble.Assembler
	Renderer  *render.Renderer
	Store     *store.Store
	Blobs     *blobstore.Store
	Signer    *blobstore.Signer
	Mirror    *analytics.Mirror
	Hub       *ws.Hub
}

// pipelineComponents holds all NATS-related components for lifecycle
// management. It satisfies the supervisor's PipelineRunner contract so
// the whole messaging stack restarts as one unit.
type pipelineComponents struct {
	server    *pipeline.EmbeddedServer
	natsConn  *natsgo.Conn
	streams   []*pipeline.StreamInitializer
	publisher *pipeline.Publisher
	router    *pipeline.Router

	ingestSub *pipeline.Subscriber
	renderSub *pipeline.Subscriber
	fanoutSub *pipeline.Subscriber
	mirrorSub *pipeline.Subscriber
	notifySub *pipeline.Subscriber

	healthChecker *pipeline.HealthChecker

	shutdownComplete chan struct{}
	mu               sync.Mutex
	running          bool
}

// initPipeline initializes the replay pipeline when nats.enabled is
// set. Returns nil without error when the pipeline is disabled; the
// API then serves the archive read-only and rejects uploads.
//
//nolint:gocyclo // Complex initialization with multiple components is inherently multi-step
func initPipeline(cfg *config.Config, deps pipelineDeps) (*pipelineComponents, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("Replay pipeline disabled (NATS_ENABLED=false)")
		return nil, nil
	}

	logging.Info().Msg("Initializing replay pipeline...")

	components := &pipelineComponents{
		shutdownComplete: make(chan struct{}),
	}

	wmLogger := watermill.NewSlogLogger(logging.NewSlogLogger())

	// Publisher and subscribers read the URL out of the NATS config, so
	// an embedded server swaps its client URL in before anything
	// connects.
	natsCfg := cfg.NATS

	// Step 1: Start the embedded NATS server if enabled
	if cfg.NATS.EmbeddedServer {
		server, err := pipeline.NewEmbeddedServer(cfg.NATS)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		components.server = server
		natsCfg.URL = server.ClientURL()
		logging.Info().Str("url", natsCfg.URL).Msg("Embedded NATS server started")
	} else {
		logging.Info().Str("url", natsCfg.URL).Msg("Using external NATS server")
	}

	// Step 2: Connect and ensure both streams exist
	nc, err := natsgo.Connect(natsCfg.URL,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(natsCfg.MaxReconnects),
		natsgo.ReconnectWait(natsCfg.ReconnectWait),
	)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	components.natsConn = nc
	logging.Info().Msg("NATS connection established")

	js, err := jetstream.New(nc)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	ctx := context.Background()
	for _, streamCfg := range []pipeline.StreamConfig{
		pipeline.PipelineStreamConfig(natsCfg),
		pipeline.DLQStreamConfig(natsCfg),
	} {
		initializer, err := pipeline.NewStreamInitializer(js, streamCfg)
		if err != nil {
			components.Shutdown(context.Background())
			return nil, fmt.Errorf("create stream initializer: %w", err)
		}
		stream, err := initializer.EnsureStream(ctx)
		if err != nil {
			components.Shutdown(context.Background())
			return nil, fmt.Errorf("ensure stream %s: %w", streamCfg.Name, err)
		}
		components.streams = append(components.streams, initializer)
		info := stream.CachedInfo()
		logging.Info().
			Str("name", info.Config.Name).
			Strs("subjects", info.Config.Subjects).
			Dur("max_age", info.Config.MaxAge).
			Msg("JetStream stream ready")
	}

	// Step 3: Publisher, shared by workers and the upload handler
	publisher, err := pipeline.NewPublisher(natsCfg, wmLogger)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create publisher: %w", err)
	}
	components.publisher = publisher
	logging.Info().Msg("Pipeline publisher created")

	// Step 4: Router with retry and poison queue middleware. The DLQ
	// receives messages that exhaust their retries.
	router, err := pipeline.NewRouter(cfg.Pipeline, publisher.WatermillPublisher(), wmLogger)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create router: %w", err)
	}
	components.router = router
	logging.Info().
		Int("retries", cfg.Pipeline.RetryMaxRetries).
		Str("poison_topic", cfg.Pipeline.PoisonQueueTopic).
		Msg("Pipeline router created")

	// Step 5: Ingest worker consumes replay.uploaded
	renderEnabled := cfg.Render.Enabled && deps.Renderer != nil
	ingestWorker, err := pipeline.NewIngestWorker(pipeline.IngestDeps{
		Decoder:   deps.Decoder,
		Parser:    deps.Parser,
		Assembler: deps.Assembler,
		Blobs:     deps.Blobs,
		Store:     deps.Store,
		Publisher: publisher,
	}, pipeline.IngestWorkerConfig{
		DecodeTimeout: cfg.Pipeline.DecodeTimeout,
		RenderEnabled: renderEnabled,
	}, wmLogger)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create ingest worker: %w", err)
	}

	ingestSub, err := pipeline.NewSubscriber(natsCfg, pipeline.SubscriberOptions{
		Durable:    "-ingest",
		QueueGroup: "-ingest",
	}, wmLogger)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create ingest subscriber: %w", err)
	}
	components.ingestSub = ingestSub

	router.AddConsumerHandler(
		"ingest-worker",
		pipeline.TopicReplayUploaded,
		ingestSub,
		ingestWorker.Handle,
	)
	logging.Info().Msg("Ingest worker registered")

	// Step 6: Render worker consumes render.requested. Renders hold a
	// message for minutes, so the ack wait outlasts the render timeout
	// and a single in-process consumer keeps ffmpeg contention down.
	if renderEnabled {
		renderWorker, err := pipeline.NewRenderWorker(pipeline.RenderDeps{
			Renderer:  deps.Renderer,
			Decoder:   deps.Decoder,
			Blobs:     deps.Blobs,
			Store:     deps.Store,
			Publisher: publisher,
		}, pipeline.RenderWorkerConfig{
			DecodeTimeout: cfg.Pipeline.DecodeTimeout,
			RenderTimeout: cfg.Pipeline.RenderTimeout,
		}, wmLogger)
		if err != nil {
			components.Shutdown(context.Background())
			return nil, fmt.Errorf("create render worker: %w", err)
		}

		renderSub, err := pipeline.NewSubscriber(natsCfg, pipeline.SubscriberOptions{
			Durable:          "-render",
			QueueGroup:       "-render",
			AckWait:          cfg.Pipeline.RenderTimeout + time.Minute,
			SubscribersCount: 1,
		}, wmLogger)
		if err != nil {
			components.Shutdown(context.Background())
			return nil, fmt.Errorf("create render subscriber: %w", err)
		}
		components.renderSub = renderSub

		router.AddConsumerHandler(
			"render-worker",
			pipeline.TopicRenderRequested,
			renderSub,
			renderWorker.Handle,
		)
		logging.Info().Msg("Render worker registered")
	} else {
		logging.Info().Msg("Render path disabled")
	}

	// Step 7: Fanout pushes lifecycle events to WebSocket clients. One
	// subscriber serves all three topics; the durable and queue group
	// names derive per-topic from the shared prefix.
	fanout, err := pipeline.NewFanoutHandler(deps.Hub, wmLogger)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create fanout handler: %w", err)
	}

	fanoutSub, err := pipeline.NewSubscriber(natsCfg, pipeline.SubscriberOptions{
		Durable:    "-fanout",
		QueueGroup: "-fanout",
	}, wmLogger)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create fanout subscriber: %w", err)
	}
	components.fanoutSub = fanoutSub

	for _, topic := range []string{
		pipeline.TopicReplayPersisted,
		pipeline.TopicRenderCompleted,
		pipeline.TopicReplayFailed,
	} {
		router.AddConsumerHandler(
			"fanout-"+topic,
			topic,
			fanoutSub,
			fanout.HandlerFor(topic),
		)
	}
	logging.Info().Msg("WebSocket fanout registered")

	// Step 8: Analytics mirror consumes replay.persisted
	if deps.Mirror != nil {
		mirrorWorker, err := analytics.NewWorker(deps.Mirror, deps.Store)
		if err != nil {
			components.Shutdown(context.Background())
			return nil, fmt.Errorf("create mirror worker: %w", err)
		}
		mirrorHandler, err := pipeline.NewMirrorHandler(mirrorWorker, wmLogger)
		if err != nil {
			components.Shutdown(context.Background())
			return nil, fmt.Errorf("create mirror handler: %w", err)
		}

		mirrorSub, err := pipeline.NewSubscriber(natsCfg, pipeline.SubscriberOptions{
			Durable:    "-mirror",
			QueueGroup: "-mirror",
		}, wmLogger)
		if err != nil {
			components.Shutdown(context.Background())
			return nil, fmt.Errorf("create mirror subscriber: %w", err)
		}
		components.mirrorSub = mirrorSub

		router.AddConsumerHandler(
			"mirror-handler",
			pipeline.TopicReplayPersisted,
			mirrorSub,
			mirrorHandler.Handle,
		)
		logging.Info().Msg("Analytics mirror registered")
	} else {
		logging.Info().Msg("Analytics mirror path disabled")
	}

	// Step 9: Discord notifications on render.completed
	if cfg.Discord.Enabled && cfg.Discord.WebhookURL != "" {
		discord, err := notify.NewDiscord(cfg.Discord, deps.Store, deps.Signer)
		if err != nil {
			components.Shutdown(context.Background())
			return nil, fmt.Errorf("create Discord notifier: %w", err)
		}
		notifyHandler, err := pipeline.NewNotifyHandler(discord, wmLogger)
		if err != nil {
			components.Shutdown(context.Background())
			return nil, fmt.Errorf("create notify handler: %w", err)
		}

		notifySub, err := pipeline.NewSubscriber(natsCfg, pipeline.SubscriberOptions{
			Durable:    "-notify",
			QueueGroup: "-notify",
		}, wmLogger)
		if err != nil {
			components.Shutdown(context.Background())
			return nil, fmt.Errorf("create notify subscriber: %w", err)
		}
		components.notifySub = notifySub

		router.AddConsumerHandler(
			"notify-handler",
			pipeline.TopicRenderCompleted,
			notifySub,
			notifyHandler.Handle,
		)
		logging.Info().Strs("game_types", cfg.Discord.NotifyGameTypes).Msg("Discord notifier registered")
	} else {
		logging.Info().Msg("Discord notifications disabled")
	}

	// Step 10: Health checker over the long-lived components
	healthChecker := pipeline.NewHealthChecker(5 * time.Second)
	healthChecker.Register("publisher", publisher)
	healthChecker.Register("router", router)
	for i, initializer := range components.streams {
		name := "stream-pipeline"
		if i > 0 {
			name = "stream-dlq"
		}
		healthChecker.Register(name, initializer)
	}
	if components.server != nil {
		healthChecker.Register("nats-server", components.server)
	}
	components.healthChecker = healthChecker

	components.mu.Lock()
	components.running = true
	components.mu.Unlock()

	logging.Info().Msg("Replay pipeline initialized")
	return components, nil
}

// Start runs the router and blocks until every registered handler is
// consuming. Called by the supervisor after Init wired the handlers.
func (c *pipelineComponents) Start(ctx context.Context) error {
	if c == nil || c.router == nil {
		return nil
	}

	logging.Info().Msg("Starting pipeline router...")
	running := c.router.RunAsync(ctx)
	select {
	case <-running:
		logging.Info().Msg("Pipeline router started")
	case <-ctx.Done():
		return fmt.Errorf("context canceled while starting router: %w", ctx.Err())
	}
	return nil
}

// Shutdown stops all pipeline components.
//
// Shutdown order is deliberate:
//  1. Close the router first (stops all message handlers)
//  2. Close subscribers
//  3. Close the publisher
//  4. Close the NATS connection
//  5. Shut the embedded server down last
func (c *pipelineComponents) Shutdown(ctx context.Context) {
	if c == nil {
		return
	}

	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.mu.Unlock()

	logging.Info().Msg("Shutting down pipeline...")

	c.shutdownRouter()
	c.shutdownSubscribers()
	c.shutdownPublisher()
	c.shutdownConnection(ctx)

	close(c.shutdownComplete)
	logging.Info().Msg("Pipeline shutdown complete")
}

func (c *pipelineComponents) shutdownRouter() {
	if c.router == nil {
		return
	}
	if err := c.router.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing pipeline router")
	}
	logging.Info().Msg("Pipeline router stopped")
}

func (c *pipelineComponents) shutdownSubscribers() {
	subs := []struct {
		name string
		sub  *pipeline.Subscriber
	}{
		{"ingest", c.ingestSub},
		{"render", c.renderSub},
		{"fanout", c.fanoutSub},
		{"mirror", c.mirrorSub},
		{"notify", c.notifySub},
	}
	for _, s := range subs {
		if s.sub == nil {
			continue
		}
		if err := s.sub.Close(); err != nil {
			logging.Error().Err(err).Str("subscriber", s.name).Msg("Error closing subscriber")
		}
	}
	logging.Info().Msg("Pipeline subscribers closed")
}

func (c *pipelineComponents) shutdownPublisher() {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing publisher")
	}
	logging.Info().Msg("Pipeline publisher closed")
}

func (c *pipelineComponents) shutdownConnection(ctx context.Context) {
	if c.natsConn != nil {
		c.natsConn.Close()
		logging.Info().Msg("NATS connection closed")
	}
	if c.server != nil {
		if err := c.server.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("Error shutting down NATS server")
		}
		logging.Info().Msg("Embedded NATS server stopped")
	}
}

// IsRunning reports whether the pipeline is active.
func (c *pipelineComponents) IsRunning() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// EventPublisher exposes the publisher for the upload handler.
func (c *pipelineComponents) EventPublisher() *pipeline.Publisher {
	if c == nil {
		return nil
	}
	return c.publisher
}

// HealthChecker exposes the pipeline health checker for the API.
// Returns nil when the pipeline is disabled.
func (c *pipelineComponents) HealthChecker() *pipeline.HealthChecker {
	if c == nil {
		return nil
	}
	return c.healthChecker
}
