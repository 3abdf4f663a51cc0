// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package services

import (
	"context"
	"fmt"
	"time"
)

// PipelineRunner matches the ingest pipeline's assembled lifecycle:
// the embedded NATS server, the JetStream connection, the watermill
// router with its ingest and render handlers, and the DuckDB mirror
// started and stopped as one unit.
type PipelineRunner interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context)
	IsRunning() bool
}

// PipelineService wraps the pipeline components as a supervised
// service.
//
// If Start fails (NATS port in use, stream creation error), the error
// propagates to suture, which restarts the service under its backoff
// policy.
type PipelineService struct {
	runner          PipelineRunner
	shutdownTimeout time.Duration
	name            string
}

// NewPipelineService creates a pipeline service wrapper.
func NewPipelineService(runner PipelineRunner) *PipelineService {
	return &PipelineService{
		runner:          runner,
		shutdownTimeout: 10 * time.Second,
		name:            "replay-pipeline",
	}
}

// NewPipelineServiceWithTimeout creates a pipeline service wrapper
// with a custom shutdown timeout.
func NewPipelineServiceWithTimeout(runner PipelineRunner, shutdownTimeout time.Duration) *PipelineService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &PipelineService{
		runner:          runner,
		shutdownTimeout: shutdownTimeout,
		name:            "replay-pipeline",
	}
}

// Serve implements suture.Service. It starts the pipeline, blocks
// until the context is canceled, then shuts the components down with
// the configured timeout.
func (s *PipelineService) Serve(ctx context.Context) error {
	if err := s.runner.Start(ctx); err != nil {
		return fmt.Errorf("pipeline start failed: %w", err)
	}

	<-ctx.Done()

	// The run context is already canceled; shutdown needs its own.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.runner.Shutdown(shutdownCtx)

	return ctx.Err()
}

// String identifies the service in supervisor log events.
func (s *PipelineService) String() string {
	return s.name
}
