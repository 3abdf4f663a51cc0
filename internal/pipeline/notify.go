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

// NotificationSink delivers a render completion notice to an external
// channel. The sink decides which game types warrant a notice.
type NotificationSink interface {
	NotifyRenderCompleted(ctx context.Context, event *RenderCompleted) error
}

// NotifyHandler forwards render completions to the notification sink.
// Delivery is best effort: a missed Discord post is an annoyance, a
// redelivered one is a duplicate ping, so failures are logged and the
// message acknowledged either way.
type NotifyHandler struct {
	sink   NotificationSink
	logger watermill.LoggerAdapter

	messagesReceived atomic.Int64
	delivered        atomic.Int64
	deliveryFailures atomic.Int64
}

// NewNotifyHandler creates the notification handler.
func NewNotifyHandler(sink NotificationSink, logger watermill.LoggerAdapter) (*NotifyHandler, error) {
	if sink == nil {
		return nil, ErrNilNotificationSink
	}
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}
	return &NotifyHandler{
		sink:   sink,
		logger: logger,
	}, nil
}

// Handle processes one render.completed message.
func (h *NotifyHandler) Handle(msg *message.Message) error {
	start := time.Now()
	h.messagesReceived.Add(1)

	err := h.handle(msg)
	metrics.RecordPipelineHandled("notify", time.Since(start), err)
	return err
}

func (h *NotifyHandler) handle(msg *message.Message) error {
	var event RenderCompleted
	if err := unmarshalEvent(msg.Payload, &event); err != nil {
		h.logger.Error("Failed to parse render completion", err, watermill.LogFields{
			"message_uuid": msg.UUID,
		})
		return nil
	}

	ctx := context.Background()
	if msgCtx := msg.Context(); msgCtx != nil {
		ctx = msgCtx
	}

	if err := h.sink.NotifyRenderCompleted(ctx, &event); err != nil {
		h.deliveryFailures.Add(1)
		h.logger.Error("Notification delivery failed", err, watermill.LogFields{
			"arena_id": event.ArenaUniqueID,
		})
		return nil
	}
	h.delivered.Add(1)

	return nil
}

// Stats returns runtime counters.
func (h *NotifyHandler) Stats() NotifyStats {
	return NotifyStats{
		MessagesReceived: h.messagesReceived.Load(),
		Delivered:        h.delivered.Load(),
		DeliveryFailures: h.deliveryFailures.Load(),
	}
}

// NotifyStats holds runtime statistics.
type NotifyStats struct {
	MessagesReceived int64
	Delivered        int64
	DeliveryFailures int64
}
