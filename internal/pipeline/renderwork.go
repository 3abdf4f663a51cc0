// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/navarchus/internal/blobstore"
	"github.com/tomtom215/navarchus/internal/logging"
	"github.com/tomtom215/navarchus/internal/metrics"
	"github.com/tomtom215/navarchus/internal/models"
	"github.com/tomtom215/navarchus/internal/render"
	"github.com/tomtom215/navarchus/internal/replay"
	"github.com/tomtom215/navarchus/internal/store"
)

// VideoRenderer produces minimap videos from decoded replays.
type VideoRenderer interface {
	RenderSingle(ctx context.Context, decoded *replay.DecodedReplay, arenaUniqueID int64) (string, error)
	RenderDual(ctx context.Context, green, red *replay.DecodedReplay, greenTag, redTag string, arenaUniqueID int64) (string, error)
}

// RenderStore is the slice of the record store the render worker
// reads and writes.
type RenderStore interface {
	GetMatch(ctx context.Context, gameType string, arenaID int64) (*models.MatchRecord, error)
	SetVideo(ctx context.Context, arenaID int64, videoKey string, generatedAt time.Time) (*models.MatchRecord, error)
	SetDualVideo(ctx context.Context, arenaID int64, videoKey string, generatedAt time.Time) (*models.MatchRecord, error)
}

// RenderWorker consumes render.requested jobs, re-decodes the source
// replays, renders the video, and records the video key on the match.
// Renders run for minutes, so the worker's subscriber needs a long ack
// wait and a single in-process consumer.
type RenderWorker struct {
	renderer  VideoRenderer
	decoder   ReplayDecoder
	blobs     BlobStore
	store     RenderStore
	publisher EventPublisher
	logger    watermill.LoggerAdapter

	decodeTimeout time.Duration
	renderTimeout time.Duration

	messagesReceived atomic.Int64
	rendered         atomic.Int64
	skipped          atomic.Int64
	failures         atomic.Int64
	publishFailures  atomic.Int64
}

// RenderWorkerConfig carries the worker's tunables.
type RenderWorkerConfig struct {
	DecodeTimeout time.Duration
	RenderTimeout time.Duration
}

// RenderDeps bundles the worker's collaborators.
type RenderDeps struct {
	Renderer  VideoRenderer
	Decoder   ReplayDecoder
	Blobs     BlobStore
	Store     RenderStore
	Publisher EventPublisher
}

// NewRenderWorker creates the render worker.
func NewRenderWorker(deps RenderDeps, cfg RenderWorkerConfig, logger watermill.LoggerAdapter) (*RenderWorker, error) {
	if deps.Renderer == nil || deps.Decoder == nil {
		return nil, fmt.Errorf("renderer and decoder required")
	}
	if deps.Blobs == nil || deps.Store == nil || deps.Publisher == nil {
		return nil, fmt.Errorf("blob store, record store, and publisher required")
	}
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}
	if cfg.DecodeTimeout <= 0 {
		cfg.DecodeTimeout = 30 * time.Second
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = 10 * time.Minute
	}

	return &RenderWorker{
		renderer:      deps.Renderer,
		decoder:       deps.Decoder,
		blobs:         deps.Blobs,
		store:         deps.Store,
		publisher:     deps.Publisher,
		logger:        logger,
		decodeTimeout: cfg.DecodeTimeout,
		renderTimeout: cfg.RenderTimeout,
	}, nil
}

// Handle processes one render.requested message.
//
// Render failures acknowledge rather than retry: a deterministic
// encoder failure repeats on every delivery, and a timed-out render
// burned minutes of CPU already. The generate-video API re-queues a
// job once the cause is fixed. Interrupted renders (shutdown) and
// store failures are retried.
func (w *RenderWorker) Handle(msg *message.Message) error {
	start := time.Now()
	w.messagesReceived.Add(1)

	err := w.handle(msg)
	metrics.RecordPipelineHandled("render", time.Since(start), err)
	return err
}

func (w *RenderWorker) handle(msg *message.Message) error {
	var event RenderRequested
	if err := unmarshalEvent(msg.Payload, &event); err != nil {
		w.logger.Error("Failed to parse render request", err, watermill.LogFields{
			"message_uuid": msg.UUID,
		})
		return NewPermanentError("render request parse error", err)
	}

	ctx := context.Background()
	if msgCtx := msg.Context(); msgCtx != nil {
		ctx = msgCtx
	}

	match, err := w.store.GetMatch(ctx, event.GameType, event.ArenaUniqueID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NewPermanentError("match for render job not found", err)
		}
		return NewRetryableError("load match for render job", err)
	}

	if (event.Dual && match.HasDualVideo()) || (!event.Dual && match.HasVideo()) {
		w.skipped.Add(1)
		logging.Info().
			Str("component", "render_worker").
			Int64("arena_id", event.ArenaUniqueID).
			Bool("dual", event.Dual).
			Msg("Video already rendered, skipping")
		return nil
	}

	// A render whose store write failed leaves the finished video in
	// the blob store. Recover the key instead of rendering again.
	videoKey := blobstore.VideoKey(event.ArenaUniqueID, event.Dual)
	if exists, existsErr := w.blobs.Exists(ctx, videoKey); existsErr == nil && exists {
		logging.Info().
			Str("component", "render_worker").
			Int64("arena_id", event.ArenaUniqueID).
			Str("video_key", videoKey).
			Msg("Recovered existing video, recording key")
		if err := w.recordVideo(ctx, &event, videoKey); err != nil {
			return err
		}
		w.publishCompleted(ctx, &event, videoKey)
		return nil
	}

	replays, err := w.loadReplays(ctx, event.ReplayKeys)
	if err != nil {
		return err
	}

	metrics.RenderQueueDepth.Inc()
	defer metrics.RenderQueueDepth.Dec()

	renderCtx, cancel := context.WithTimeout(ctx, w.renderTimeout)
	defer cancel()

	if event.Dual {
		videoKey, err = w.renderer.RenderDual(renderCtx, replays[0], replays[1],
			match.AllyMainClanTag, match.EnemyMainClanTag, event.ArenaUniqueID)
	} else {
		videoKey, err = w.renderer.RenderSingle(renderCtx, replays[0], event.ArenaUniqueID)
	}
	if err != nil {
		return w.routeRenderError(&event, err)
	}
	w.rendered.Add(1)

	if err := w.recordVideo(ctx, &event, videoKey); err != nil {
		return err
	}
	w.publishCompleted(ctx, &event, videoKey)

	return nil
}

// loadReplays reads and decodes every source replay for the job, in
// request order (green first, red second for dual jobs).
func (w *RenderWorker) loadReplays(ctx context.Context, keys []string) ([]*replay.DecodedReplay, error) {
	replays := make([]*replay.DecodedReplay, 0, len(keys))
	for _, key := range keys {
		data, err := readBlob(ctx, w.blobs, key)
		if err != nil {
			if errors.Is(err, blobstore.ErrNotFound) {
				return nil, NewPermanentError("render source blob missing", err)
			}
			return nil, NewRetryableError("load render source", err)
		}

		decoded, err := decodeWithTimeout(ctx, w.decoder, data, w.decodeTimeout)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return nil, NewRetryableError("decode render source timed out", err)
			}
			// Decoded at ingest, refuses now. Corrupt blob or a
			// registry regression; either way redelivery cannot help.
			return nil, NewPermanentError("decode render source", err)
		}
		replays = append(replays, decoded)
	}
	return replays, nil
}

func (w *RenderWorker) routeRenderError(event *RenderRequested, err error) error {
	switch {
	case errors.Is(err, render.ErrRenderFailure):
		w.failures.Add(1)
		logging.Error().
			Str("component", "render_worker").
			Int64("arena_id", event.ArenaUniqueID).
			Bool("dual", event.Dual).
			Err(err).
			Msg("Render failed, job dropped; re-queue through the video API once fixed")
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		w.failures.Add(1)
		logging.Error().
			Str("component", "render_worker").
			Int64("arena_id", event.ArenaUniqueID).
			Bool("dual", event.Dual).
			Dur("timeout", w.renderTimeout).
			Msg("Render timed out, job dropped; re-queue through the video API")
		return nil
	case errors.Is(err, context.Canceled):
		return NewRetryableError("render interrupted", err)
	default:
		return NewRetryableError("render", err)
	}
}

// recordVideo writes the video key to the match record.
func (w *RenderWorker) recordVideo(ctx context.Context, event *RenderRequested, videoKey string) error {
	now := time.Now().UTC()
	var err error
	if event.Dual {
		_, err = w.store.SetDualVideo(ctx, event.ArenaUniqueID, videoKey, now)
	} else {
		_, err = w.store.SetVideo(ctx, event.ArenaUniqueID, videoKey, now)
	}
	if err != nil {
		return NewRetryableError("record video key", err)
	}
	return nil
}

// publishCompleted announces the finished video. Best effort: the
// match record already carries the key.
func (w *RenderWorker) publishCompleted(ctx context.Context, event *RenderRequested, videoKey string) {
	completed := &RenderCompleted{
		Envelope:      newEnvelope(),
		ArenaUniqueID: event.ArenaUniqueID,
		GameType:      event.GameType,
		Dual:          event.Dual,
		VideoKey:      videoKey,
	}
	if err := w.publisher.PublishEvent(ctx, completed); err != nil {
		w.publishFailures.Add(1)
		w.logger.Error("Failed to publish render.completed", err, watermill.LogFields{
			"arena_id": event.ArenaUniqueID,
		})
	}
}

// Stats returns runtime counters.
func (w *RenderWorker) Stats() RenderWorkerStats {
	return RenderWorkerStats{
		MessagesReceived: w.messagesReceived.Load(),
		Rendered:         w.rendered.Load(),
		Skipped:          w.skipped.Load(),
		Failures:         w.failures.Load(),
		PublishFailures:  w.publishFailures.Load(),
	}
}

// RenderWorkerStats holds runtime statistics.
type RenderWorkerStats struct {
	MessagesReceived int64
	Rendered         int64
	Skipped          int64
	Failures         int64
	PublishFailures  int64
}
