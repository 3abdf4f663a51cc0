// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/navarchus/internal/config"
)

// SubscriberOptions narrows one subscriber to a consumer identity.
// Durable and QueueGroup isolate each worker's cursor and load
// balancing from the others; two workers reading the same stream must
// not share either.
type SubscriberOptions struct {
	// Durable is the consumer's durable name suffix appended to the
	// configured prefix.
	Durable string

	// QueueGroup is the queue group suffix appended to the configured
	// prefix.
	QueueGroup string

	// AckWait overrides the configured ack wait when positive. Render
	// jobs hold a message for minutes, far past the default.
	AckWait time.Duration

	// SubscribersCount overrides the configured subscriber count when
	// positive. CPU-bound consumers want fewer.
	SubscribersCount int
}

// Subscriber wraps a durable JetStream queue subscriber.
type Subscriber struct {
	subscriber message.Subscriber
	logger     watermill.LoggerAdapter
}

// NewSubscriber creates a durable JetStream subscriber bound to the
// pipeline stream. Consumption starts at the earliest unacknowledged
// message, so jobs published while the instance was down are still
// worked after a restart.
func NewSubscriber(cfg config.NATSConfig, opts SubscriberOptions, logger watermill.LoggerAdapter) (*Subscriber, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}
	if opts.Durable == "" {
		return nil, fmt.Errorf("subscriber durable name required")
	}

	ackWait := cfg.AckWait
	if opts.AckWait > 0 {
		ackWait = opts.AckWait
	}
	subscribersCount := cfg.SubscribersCount
	if opts.SubscribersCount > 0 {
		subscribersCount = opts.SubscribersCount
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("Subscriber disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("Subscriber reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(cfg.MaxDeliver),
		natsgo.MaxAckPending(cfg.MaxAckPending),
		natsgo.AckWait(ackWait),
		natsgo.DeliverAll(),
	}

	// The stream covers wildcard subjects, so it is provisioned up
	// front and bound by name here; AutoProvision would try to create
	// a stream named after the wildcard topic and fail.
	subOpts = append(subOpts, natsgo.BindStream(cfg.StreamName))

	wmConfig := wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup + opts.QueueGroup,
		SubscribersCount: subscribersCount,
		AckWaitTimeout:   ackWait,
		CloseTimeout:     30 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    false,
			AckAsync:         false,
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName + opts.Durable,
		},
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}

	return &Subscriber{
		subscriber: sub,
		logger:     logger,
	}, nil
}

// Subscribe returns a message channel for the topic. The channel is
// closed when the context is canceled or the subscriber closes.
func (s *Subscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return s.subscriber.Subscribe(ctx, topic)
}

// WatermillSubscriber exposes the underlying subscriber for router
// handler registration.
func (s *Subscriber) WatermillSubscriber() message.Subscriber {
	return s.subscriber
}

// Close gracefully shuts down the subscriber.
func (s *Subscriber) Close() error {
	return s.subscriber.Close()
}
