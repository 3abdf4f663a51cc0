// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

// Package supervisor builds the suture v4 supervision tree for the
// single-binary deployment.
//
// The tree has three layers with independent restart budgets:
//
//   - data: BadgerDB value-log GC and blob retention sweeps
//   - pipeline: embedded NATS, the watermill router with its workers,
//     and the WebSocket hub
//   - api: the HTTP server
//
// The layering isolates failures: a crashing pipeline worker restarts
// inside the pipeline layer while the API keeps answering reads from
// the store. suture events are logged through sutureslog.
package supervisor
