// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/navarchus/internal/config"
)

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		RetryMaxRetries:      2,
		RetryInitialInterval: time.Millisecond,
		RetryMaxInterval:     5 * time.Millisecond,
		PoisonQueueTopic:     "dlq.pipeline",
		CloseTimeout:         time.Second,
	}
}

// capturePublisher records poison queue publishes.
type capturePublisher struct {
	mu       sync.Mutex
	messages []*message.Message
	topics   []string
	closed   bool
}

func (p *capturePublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, messages...)
	for range messages {
		p.topics = append(p.topics, topic)
	}
	return nil
}

func (p *capturePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func TestNewRouter(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.PoisonQueueTopic = ""

	router, err := NewRouter(cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	if router.IsRunning() {
		t.Error("IsRunning() = true before Run")
	}

	health := router.HealthCheck(context.Background())
	if health.Healthy {
		t.Error("HealthCheck().Healthy = true before Run")
	}

	if err := router.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestRouterRunAsyncAndClose(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.PoisonQueueTopic = ""
	cfg.CloseTimeout = 100 * time.Millisecond

	router, err := NewRouter(cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	select {
	case <-router.RunAsync(ctx):
	case <-time.After(time.Second):
		t.Fatal("router did not start within timeout")
	}

	if !router.IsRunning() {
		t.Error("IsRunning() = false after RunAsync")
	}

	if err := router.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if router.IsRunning() {
		t.Error("IsRunning() = true after Close")
	}
}

func TestPoisonCounter(t *testing.T) {
	inner := &capturePublisher{}
	counter := &poisonCounter{inner: inner}

	msg := message.NewMessage(watermill.NewUUID(), []byte("{}"))
	if err := counter.Publish("dlq.pipeline", msg, msg); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(inner.messages) != 2 {
		t.Errorf("inner publishes = %d, want 2", len(inner.messages))
	}
	if inner.topics[0] != "dlq.pipeline" {
		t.Errorf("topic = %q", inner.topics[0])
	}

	// The decorator must not close the shared publisher it wraps.
	if err := counter.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if inner.closed {
		t.Error("inner publisher closed by decorator")
	}
}

func TestRouterRetriesThenPoisons(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	cfg := testPipelineConfig()

	router, err := NewRouter(cfg, pubSub, watermill.NopLogger{})
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}

	var calls atomic.Int64
	router.AddConsumerHandler("always-fails", "jobs.test", pubSub, func(msg *message.Message) error {
		calls.Add(1)
		return NewRetryableError("transient", errors.New("still broken"))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poisoned, err := pubSub.Subscribe(ctx, cfg.PoisonQueueTopic)
	if err != nil {
		t.Fatalf("Subscribe(dlq) error = %v", err)
	}

	select {
	case <-router.RunAsync(ctx):
	case <-time.After(2 * time.Second):
		t.Fatal("router did not start")
	}
	defer router.Close()

	if err := pubSub.Publish("jobs.test", message.NewMessage(watermill.NewUUID(), []byte("{}"))); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-poisoned:
		msg.Ack()
		if reason := msg.Metadata.Get(middleware.ReasonForPoisonedKey); reason == "" {
			t.Error("poisoned message has no failure reason metadata")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("message never reached the poison queue")
	}

	// One initial attempt plus the configured retries.
	if got := calls.Load(); got != int64(cfg.RetryMaxRetries)+1 {
		t.Errorf("handler calls = %d, want %d", got, cfg.RetryMaxRetries+1)
	}
}

func TestRouterDeliversAfterTransientFailure(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	cfg := testPipelineConfig()

	router, err := NewRouter(cfg, pubSub, watermill.NopLogger{})
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}

	var calls atomic.Int64
	done := make(chan struct{})
	router.AddConsumerHandler("fails-once", "jobs.flaky", pubSub, func(msg *message.Message) error {
		if calls.Add(1) == 1 {
			return NewRetryableError("first attempt fails", nil)
		}
		close(done)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	select {
	case <-router.RunAsync(ctx):
	case <-time.After(2 * time.Second):
		t.Fatal("router did not start")
	}
	defer router.Close()

	if err := pubSub.Publish("jobs.flaky", message.NewMessage(watermill.NewUUID(), []byte("{}"))); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("handler never succeeded")
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("handler calls = %d, want 2", got)
	}

	health := router.HealthCheck(ctx)
	if !health.Healthy {
		t.Errorf("HealthCheck().Healthy = false while running: %+v", health)
	}
	if got := health.Details["handlers"]; got != 1 {
		t.Errorf("health handlers = %v, want 1", got)
	}
}
