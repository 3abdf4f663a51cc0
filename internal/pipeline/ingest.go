// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/navarchus/internal/assemble"
	"github.com/tomtom215/navarchus/internal/blobstore"
	"github.com/tomtom215/navarchus/internal/logging"
	"github.com/tomtom215/navarchus/internal/metrics"
	"github.com/tomtom215/navarchus/internal/models"
	"github.com/tomtom215/navarchus/internal/replay"
	"github.com/tomtom215/navarchus/internal/stats"
	"github.com/tomtom215/navarchus/internal/store"
)

// kindIndexMissing marks replays whose client version the decoder
// accepts but the stats registry has no slot table for. Handled like
// an unsupported version.
const kindIndexMissing = "index_missing"

// ReplayDecoder decodes raw replay bytes.
type ReplayDecoder interface {
	Decode(data []byte) (*replay.DecodedReplay, error)
}

// StatsParser extracts per-player battle stats from a decoded replay.
type StatsParser interface {
	Parse(d *replay.DecodedReplay) (*stats.Result, error)
}

// BundleAssembler shapes decode and parse output into store records.
type BundleAssembler interface {
	Assemble(ctx context.Context, d *replay.DecodedReplay, parsed *stats.Result, up assemble.Upload) (*assemble.Bundle, error)
}

// BlobStore is the slice of the blob store the workers read from.
type BlobStore interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// IngestStore is the slice of the record store the ingest worker
// writes through.
type IngestStore interface {
	PersistBundle(ctx context.Context, b *assemble.Bundle) (*store.PersistResult, error)
	GetUploads(ctx context.Context, gameType string, arenaID int64) ([]models.UploadRecord, error)
	PutDecodeFailure(ctx context.Context, marker models.DecodeFailureMarker) error
	HasDecodeFailure(ctx context.Context, uploadKey string) (bool, error)
}

// EventPublisher publishes pipeline events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event Event) error
}

// IngestWorker drives one upload through decode, parse, assemble, and
// persist, then emits the lifecycle events downstream consumers key
// off. One message equals one upload.
type IngestWorker struct {
	decoder   ReplayDecoder
	parser    StatsParser
	assembler BundleAssembler
	blobs     BlobStore
	store     IngestStore
	publisher EventPublisher
	logger    watermill.LoggerAdapter

	decodeTimeout time.Duration
	renderEnabled bool

	messagesReceived atomic.Int64
	parseErrors      atomic.Int64
	decodeFailures   atomic.Int64
	persisted        atomic.Int64
	publishFailures  atomic.Int64
}

// IngestWorkerConfig carries the worker's tunables.
type IngestWorkerConfig struct {
	// DecodeTimeout bounds a single decode. Decoding is CPU-bound and
	// deterministic, so a deadline only fires when the host is
	// starved; the message is redelivered.
	DecodeTimeout time.Duration

	// RenderEnabled gates render job emission.
	RenderEnabled bool
}

// IngestDeps bundles the worker's collaborators.
type IngestDeps struct {
	Decoder   ReplayDecoder
	Parser    StatsParser
	Assembler BundleAssembler
	Blobs     BlobStore
	Store     IngestStore
	Publisher EventPublisher
}

// NewIngestWorker creates the ingest worker.
func NewIngestWorker(deps IngestDeps, cfg IngestWorkerConfig, logger watermill.LoggerAdapter) (*IngestWorker, error) {
	if deps.Decoder == nil || deps.Parser == nil || deps.Assembler == nil {
		return nil, fmt.Errorf("decoder, parser, and assembler required")
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

	return &IngestWorker{
		decoder:       deps.Decoder,
		parser:        deps.Parser,
		assembler:     deps.Assembler,
		blobs:         deps.Blobs,
		store:         deps.Store,
		publisher:     deps.Publisher,
		logger:        logger,
		decodeTimeout: cfg.DecodeTimeout,
		renderEnabled: cfg.RenderEnabled,
	}, nil
}

// Handle processes one replay.uploaded message.
//
// Error handling:
//   - Event parse errors return PermanentError (DLQ after retries).
//   - Decode failures write a failure marker, emit replay.failed, and
//     acknowledge; redelivering a broken file cannot fix it.
//   - Store and blob failures return RetryableError.
//   - Failures after a successful persist are logged and acknowledged;
//     the persisted match is the source of truth and redelivery would
//     observe a merge, not the original disposition.
func (w *IngestWorker) Handle(msg *message.Message) error {
	start := time.Now()
	w.messagesReceived.Add(1)

	err := w.handle(msg)
	metrics.RecordPipelineHandled("ingest", time.Since(start), err)
	return err
}

func (w *IngestWorker) handle(msg *message.Message) error {
	var event ReplayUploaded
	if err := unmarshalEvent(msg.Payload, &event); err != nil {
		w.parseErrors.Add(1)
		w.logger.Error("Failed to parse upload event", err, watermill.LogFields{
			"message_uuid": msg.UUID,
		})
		return NewPermanentError("upload event parse error", err)
	}

	ctx := context.Background()
	if msgCtx := msg.Context(); msgCtx != nil {
		ctx = msgCtx
	}

	// Redeliveries and manual DLQ replays of an upload already marked
	// broken must not spin on the same bytes.
	failed, err := w.store.HasDecodeFailure(ctx, event.ReplayKey)
	if err != nil {
		return NewRetryableError("check decode failure marker", err)
	}
	if failed {
		logging.Info().
			Str("component", "ingest").
			Str("replay_key", event.ReplayKey).
			Msg("Skipping upload with existing decode failure marker")
		return nil
	}

	data, err := readBlob(ctx, w.blobs, event.ReplayKey)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return NewPermanentError("replay blob missing", err)
		}
		return NewRetryableError("load replay blob", err)
	}

	decoded, err := decodeWithTimeout(ctx, w.decoder, data, w.decodeTimeout)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return NewRetryableError("decode timed out", err)
		}
		return w.markDecodeFailed(ctx, &event, replay.FailureKind(err), err)
	}

	parsed, err := w.parser.Parse(decoded)
	if err != nil {
		switch {
		case errors.Is(err, replay.ErrNoBattleStats):
			// Uploader left before the battle ended. The match still
			// persists on metadata alone.
			logging.Info().
				Str("component", "ingest").
				Str("replay_key", event.ReplayKey).
				Msg("Replay has no battle stats, persisting metadata only")
			parsed = nil
		case errors.Is(err, stats.ErrIndexMissing):
			logging.Error().
				Str("component", "ingest").
				Str("client_version", decoded.ClientVersion).
				Msg("Client version has no stats table; registry update needed")
			return w.markDecodeFailed(ctx, &event, kindIndexMissing, err)
		default:
			return w.markDecodeFailed(ctx, &event, replay.FailureKind(err), err)
		}
	}

	bundle, err := w.assembler.Assemble(ctx, decoded, parsed, assemble.Upload{
		ReplayKey:  event.ReplayKey,
		FileName:   event.FileName,
		FileSize:   event.FileSize,
		UploadedBy: event.UploadedBy,
		UploadedAt: event.UploadedAt,
	})
	if err != nil {
		return w.markDecodeFailed(ctx, &event, replay.FailureKind(err), err)
	}

	result, err := w.store.PersistBundle(ctx, bundle)
	if err != nil {
		return NewRetryableError("persist bundle", err)
	}
	w.persisted.Add(1)

	logging.Info().
		Str("component", "ingest").
		Int64("arena_id", result.Match.ArenaUniqueID).
		Str("game_type", result.Match.GameType).
		Str("disposition", result.Disposition).
		Bool("dual_flipped", result.DualFlipped).
		Str("uploaded_by", event.UploadedBy).
		Msg("Replay persisted")

	w.publishPersisted(ctx, &event, result)
	w.publishRenderJob(ctx, result)

	return nil
}

// markDecodeFailed records the failure marker and announces the failed
// upload. The message is acknowledged: decode output is deterministic,
// so redelivery would fail identically.
func (w *IngestWorker) markDecodeFailed(ctx context.Context, event *ReplayUploaded, kind string, cause error) error {
	w.decodeFailures.Add(1)

	if kind == replay.KindUnsupportedVersion {
		logging.Error().
			Str("component", "ingest").
			Str("replay_key", event.ReplayKey).
			Err(cause).
			Msg("Unsupported client version uploaded; version registry update needed")
	} else {
		logging.Warn().
			Str("component", "ingest").
			Str("replay_key", event.ReplayKey).
			Str("kind", kind).
			Err(cause).
			Msg("Replay decode failed")
	}

	marker := models.DecodeFailureMarker{
		UploadKey:  event.ReplayKey,
		Kind:       kind,
		Cause:      cause.Error(),
		FileName:   event.FileName,
		UploadedBy: event.UploadedBy,
		FailedAt:   time.Now().UTC(),
	}
	if err := w.store.PutDecodeFailure(ctx, marker); err != nil {
		return NewRetryableError("write decode failure marker", err)
	}

	failedEvent := &ReplayFailed{
		Envelope:  newEnvelope(),
		ReplayKey: event.ReplayKey,
		Kind:      kind,
		Cause:     cause.Error(),
		FileName:  event.FileName,
	}
	if err := w.publisher.PublishEvent(ctx, failedEvent); err != nil {
		w.publishFailures.Add(1)
		w.logger.Error("Failed to publish replay.failed", err, watermill.LogFields{
			"replay_key": event.ReplayKey,
		})
	}

	return nil
}

// publishPersisted announces the persisted upload. Best effort: the
// store write already happened and is what queries observe.
func (w *IngestWorker) publishPersisted(ctx context.Context, event *ReplayUploaded, result *store.PersistResult) {
	persisted := &ReplayPersisted{
		Envelope:      newEnvelope(),
		ArenaUniqueID: result.Match.ArenaUniqueID,
		GameType:      result.Match.GameType,
		Disposition:   result.Disposition,
		DualFlipped:   result.DualFlipped,
		StatsWritten:  result.StatsWritten,
		UploadedBy:    event.UploadedBy,
	}
	if err := w.publisher.PublishEvent(ctx, persisted); err != nil {
		w.publishFailures.Add(1)
		w.logger.Error("Failed to publish replay.persisted", err, watermill.LogFields{
			"arena_id": result.Match.ArenaUniqueID,
		})
	}
}

// publishRenderJob emits the render request a fresh persist calls for:
// a single-perspective job when the match was created, a dual job the
// one time an opposing-team upload flips hasDualReplay. Merges that
// flip nothing render nothing.
func (w *IngestWorker) publishRenderJob(ctx context.Context, result *store.PersistResult) {
	if !w.renderEnabled {
		return
	}
	if !result.Created() && !result.DualFlipped {
		return
	}

	match := result.Match
	uploads, err := w.store.GetUploads(ctx, match.GameType, match.ArenaUniqueID)
	if err != nil {
		w.logger.Error("Failed to load uploads for render job", err, watermill.LogFields{
			"arena_id": match.ArenaUniqueID,
		})
		return
	}

	req, err := BuildRenderRequest(match, uploads)
	if err != nil {
		w.logger.Error("Failed to build render request", err, watermill.LogFields{
			"arena_id": match.ArenaUniqueID,
		})
		return
	}

	if err := w.publisher.PublishEvent(ctx, req); err != nil {
		w.publishFailures.Add(1)
		w.logger.Error("Failed to publish render.requested", err, watermill.LogFields{
			"arena_id": match.ArenaUniqueID,
		})
		return
	}

	logging.Info().
		Str("component", "ingest").
		Int64("arena_id", match.ArenaUniqueID).
		Bool("dual", req.Dual).
		Msg("Render job queued")
}

// Stats returns runtime counters.
func (w *IngestWorker) Stats() IngestWorkerStats {
	return IngestWorkerStats{
		MessagesReceived: w.messagesReceived.Load(),
		ParseErrors:      w.parseErrors.Load(),
		DecodeFailures:   w.decodeFailures.Load(),
		Persisted:        w.persisted.Load(),
		PublishFailures:  w.publishFailures.Load(),
	}
}

// IngestWorkerStats holds runtime statistics.
type IngestWorkerStats struct {
	MessagesReceived int64
	ParseErrors      int64
	DecodeFailures   int64
	Persisted        int64
	PublishFailures  int64
}

// decodeWithTimeout bounds a decode with a deadline. The decoder is
// pure CPU and not context-aware, so it runs on its own goroutine; a
// fired deadline abandons the goroutine, which finishes and is
// collected.
func decodeWithTimeout(ctx context.Context, decoder ReplayDecoder, data []byte, timeout time.Duration) (*replay.DecodedReplay, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type decodeResult struct {
		decoded *replay.DecodedReplay
		err     error
	}
	ch := make(chan decodeResult, 1)
	go func() {
		decoded, err := decoder.Decode(data)
		ch <- decodeResult{decoded: decoded, err: err}
	}()

	select {
	case res := <-ch:
		return res.decoded, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("decode: %w", ctx.Err())
	}
}

// readBlob reads a blob fully into memory. Replay files run a few
// megabytes, well within bounds.
func readBlob(ctx context.Context, blobs BlobStore, key string) ([]byte, error) {
	rc, err := blobs.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", key, err)
	}
	return data, nil
}
