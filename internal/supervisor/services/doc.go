// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

// Package services adapts the application's long-running components to
// suture's Serve(ctx) contract.
//
// Each wrapper owns the translation from a component's native
// lifecycle (ListenAndServe/Shutdown, Start/Shutdown, ticker loops) to
// a single blocking Serve call that returns when its context is
// canceled. The wrappers hold interfaces rather than concrete types so
// the supervisor package never imports the packages it supervises.
package services
