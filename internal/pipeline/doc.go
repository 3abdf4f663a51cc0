// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

// Package pipeline moves uploaded replays through decode, persistence,
// and video rendering over NATS JetStream, using Watermill for message
// routing.
//
// # Architecture
//
// The upload endpoint stores raw bytes in the blob store and publishes
// a small event; everything heavy happens in workers consuming from
// the stream:
//
//	┌────────────┐                    ┌──────────────────┐
//	│ Upload API │── replay.uploaded ─▶   NATS JetStream │
//	└────────────┘                    │  (PIPELINE)      │
//	                                  └────────┬─────────┘
//	        ┌──────────────┬──────────────────┬┴─────────────┐
//	        ▼              ▼                  ▼              ▼
//	 ┌────────────┐ ┌──────────────┐ ┌──────────────┐ ┌───────────┐
//	 │IngestWorker│ │ RenderWorker │ │FanoutHandler │ │ Notify    │
//	 │decode/parse│ │ minimap MP4  │ │  websocket   │ │ Discord   │
//	 │  persist   │ │              │ │              │ │           │
//	 └─────┬──────┘ └──────┬───────┘ └──────────────┘ └───────────┘
//	       │               │
//	       ▼               ▼
//	 replay.persisted  render.completed
//	 render.requested
//	 replay.failed
//
// Events reference blobs by key and stay under a kilobyte; the stream
// never carries replay or video bytes.
//
// # Delivery semantics
//
// Publishing sets the NATS message id to the event id, so JetStream
// deduplicates redeliveries of the same publish within the duplicate
// window. Consumers are durable queue subscribers with DeliverAll:
// work queued while the process was down is consumed on restart, and
// an upload is never lost once its event is accepted by the stream.
//
// Handlers are idempotent instead of exactly-once. Persisting the same
// upload twice merges into the same match record, re-rendering an
// existing video is skipped, and a duplicate websocket frame is
// harmless.
//
// # Error handling
//
// Handlers classify failures with RetryableError and PermanentError.
// The router retries with exponential backoff either way; the
// classification is carried in the error chain so poisoned messages on
// the dlq.pipeline subject explain themselves during triage. Failures
// that retrying cannot fix, like a replay that will not decode, are
// recorded as decode failure markers and acknowledged instead of
// erroring.
//
// # Usage
//
//	srv, err := pipeline.NewEmbeddedServer(cfg.NATS)
//	...
//	pub, err := pipeline.NewPublisher(cfg.NATS, nil)
//	...
//	router, err := pipeline.NewRouter(cfg.Pipeline, pub.WatermillPublisher(), nil)
//	...
//	router.AddConsumerHandler("ingest", pipeline.TopicReplayUploaded, sub, worker.Handle)
//	<-router.RunAsync(ctx)
//
// Component construction and lifecycle ordering live in the server
// entrypoint.
package pipeline
