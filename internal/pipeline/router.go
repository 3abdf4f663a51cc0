// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"

	"github.com/tomtom215/navarchus/internal/config"
	"github.com/tomtom215/navarchus/internal/metrics"
)

// Router wraps the Watermill router with the pipeline's middleware
// chain: panic recovery, exponential backoff retry, and poison queue
// routing for messages that exhaust their retries.
type Router struct {
	router   *message.Router
	config   config.PipelineConfig
	logger   watermill.LoggerAdapter
	handlers map[string]*message.Handler
	closed   atomic.Bool
}

// poisonCounter counts messages the poison queue middleware diverts to
// the DLQ. It decorates the raw publisher handed to the middleware.
type poisonCounter struct {
	inner message.Publisher
}

func (p *poisonCounter) Publish(topic string, messages ...*message.Message) error {
	if err := p.inner.Publish(topic, messages...); err != nil {
		return err
	}
	for range messages {
		metrics.RecordPipelinePoison()
	}
	return nil
}

func (p *poisonCounter) Close() error {
	// The decorated publisher is owned and closed by its component.
	return nil
}

// NewRouter creates a router with the standard middleware chain.
// poisonPublisher receives messages that fail after all retries; a nil
// publisher or empty poison topic disables DLQ routing.
func NewRouter(cfg config.PipelineConfig, poisonPublisher message.Publisher, logger watermill.LoggerAdapter) (*Router, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	wmRouter, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: cfg.CloseTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	r := &Router{
		router:   wmRouter,
		config:   cfg,
		logger:   logger,
		handlers: make(map[string]*message.Handler),
	}

	wmRouter.AddPlugin(plugin.SignalsHandler)

	// The first middleware added is the outermost. The poison queue
	// wraps retry so it only sees failures that exhausted the retry
	// budget; the recoverer sits innermost so a panic surfaces as an
	// error the retry middleware can work with.
	if poisonPublisher != nil && cfg.PoisonQueueTopic != "" {
		poisonQueue, err := middleware.PoisonQueue(&poisonCounter{inner: poisonPublisher}, cfg.PoisonQueueTopic)
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		wmRouter.AddMiddleware(poisonQueue)
	}

	retryMiddleware := middleware.Retry{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      2.0,
		Logger:          logger,
	}
	wmRouter.AddMiddleware(retryMiddleware.Middleware)

	wmRouter.AddMiddleware(middleware.Recoverer)

	return r, nil
}

// AddHandler registers a handler that consumes one topic and publishes
// to another.
func (r *Router) AddHandler(
	name string,
	subscribeTopic string,
	subscriber message.Subscriber,
	publishTopic string,
	publisher message.Publisher,
	handler message.HandlerFunc,
) *message.Handler {
	h := r.router.AddHandler(name, subscribeTopic, subscriber, publishTopic, publisher, handler)
	r.handlers[name] = h
	return h
}

// AddConsumerHandler registers a handler that consumes one topic and
// produces nothing.
func (r *Router) AddConsumerHandler(
	name string,
	subscribeTopic string,
	subscriber message.Subscriber,
	handler message.NoPublishHandlerFunc,
) *message.Handler {
	h := r.router.AddConsumerHandler(name, subscribeTopic, subscriber, handler)
	r.handlers[name] = h
	return h
}

// Run starts the router and blocks until context cancellation or
// Close.
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// RunAsync starts the router in the background. The returned channel
// closes once all handlers are running.
func (r *Router) RunAsync(ctx context.Context) <-chan struct{} {
	running := make(chan struct{})

	go func() {
		go func() {
			if err := r.router.Run(ctx); err != nil {
				r.logger.Error("Router error", err, nil)
			}
		}()

		<-r.router.Running()
		close(running)
	}()

	return running
}

// Running returns a channel that closes when the router is running.
func (r *Router) Running() <-chan struct{} {
	return r.router.Running()
}

// Close stops the router, waiting up to CloseTimeout for in-flight
// handlers.
func (r *Router) Close() error {
	r.closed.Store(true)
	return r.router.Close()
}

// IsRunning reports whether the router has started and is not closed.
func (r *Router) IsRunning() bool {
	if r.closed.Load() {
		return false
	}
	select {
	case <-r.router.Running():
		return true
	default:
		return false
	}
}

// HealthCheck implements HealthCheckable.
func (r *Router) HealthCheck(ctx context.Context) ComponentHealth {
	health := ComponentHealth{
		Name:      "router",
		LastCheck: time.Now(),
		Details:   map[string]interface{}{"handlers": len(r.handlers)},
	}

	if r.IsRunning() {
		health.Healthy = true
		health.Message = "router is running"
	} else {
		health.Error = "router is not running"
	}

	return health
}
