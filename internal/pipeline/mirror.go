// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/navarchus/internal/metrics"
)

// MirrorSink projects a persisted battle into a secondary store.
// Implementations classify their own failures: a RetryableError earns
// redelivery, anything else acks.
type MirrorSink interface {
	MirrorPersisted(ctx context.Context, event *ReplayPersisted) error
}

// MirrorHandler feeds replay.persisted events to the analytics mirror.
// Unlike notifications, a failed mirror write is worth redelivering:
// the projection has no other way to catch up short of a full rebuild.
type MirrorHandler struct {
	sink   MirrorSink
	logger watermill.LoggerAdapter

	messagesReceived atomic.Int64
	mirrored         atomic.Int64
	failures         atomic.Int64
}

// NewMirrorHandler creates the mirror handler.
func NewMirrorHandler(sink MirrorSink, logger watermill.LoggerAdapter) (*MirrorHandler, error) {
	if sink == nil {
		return nil, ErrNilMirrorSink
	}
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}
	return &MirrorHandler{
		sink:   sink,
		logger: logger,
	}, nil
}

// Handle processes one replay.persisted message.
func (h *MirrorHandler) Handle(msg *message.Message) error {
	start := time.Now()
	h.messagesReceived.Add(1)

	err := h.handle(msg)
	metrics.RecordPipelineHandled("mirror", time.Since(start), err)
	return err
}

func (h *MirrorHandler) handle(msg *message.Message) error {
	var event ReplayPersisted
	if err := unmarshalEvent(msg.Payload, &event); err != nil {
		h.logger.Error("Failed to parse persisted event", err, watermill.LogFields{
			"message_uuid": msg.UUID,
		})
		return nil
	}

	ctx := context.Background()
	if msgCtx := msg.Context(); msgCtx != nil {
		ctx = msgCtx
	}

	if err := h.sink.MirrorPersisted(ctx, &event); err != nil {
		h.failures.Add(1)
		h.logger.Error("Mirror write failed", err, watermill.LogFields{
			"arena_id":  event.ArenaUniqueID,
			"game_type": event.GameType,
		})
		return err
	}
	h.mirrored.Add(1)

	return nil
}

// Stats returns runtime counters.
func (h *MirrorHandler) Stats() MirrorStats {
	return MirrorStats{
		MessagesReceived: h.messagesReceived.Load(),
		Mirrored:         h.mirrored.Load(),
		Failures:         h.failures.Load(),
	}
}

// MirrorStats holds runtime statistics.
type MirrorStats struct {
	MessagesReceived int64
	Mirrored         int64
	Failures         int64
}
