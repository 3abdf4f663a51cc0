// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

//go:build integration

// Package testinfra provides container-backed infrastructure for
// integration tests.
//
// Most of the pipeline test suite runs against the embedded NATS
// server and needs nothing from here. These helpers exist for the
// external-NATS deployment mode: a real nats-server container with
// JetStream enabled, so stream creation, redelivery, and reconnect
// behavior can be exercised against the same binary production talks
// to.
//
//	func TestExternalNATS(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    srv, err := testinfra.NewNATSContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, srv.Container)
//	    // srv.URL is a nats:// client URL
//	}
//
// The package also carries a webhook capture server for asserting on
// Discord notification deliveries without touching Discord.
//
// Everything here is behind the integration build tag; tests skip
// gracefully when Docker is unavailable.
package testinfra
