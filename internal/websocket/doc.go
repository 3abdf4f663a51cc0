// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

// Package websocket pushes pipeline lifecycle events to connected
// browsers: an upload's match was persisted, a render finished, a
// decode failed. The hub implements pipeline.Broadcaster, so the
// fanout consumer feeds it frames straight off the NATS topics; the
// hub translates each topic into a client-facing message type.
//
// Delivery is best effort. A slow client is dropped rather than
// buffered without bound, and a full broadcast queue drops the frame;
// the search API is the source of truth clients reconcile against.
package websocket
