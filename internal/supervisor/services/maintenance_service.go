// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package services

import (
	"context"
	"time"

	"github.com/tomtom215/navarchus/internal/logging"
)

// GCRunner matches the match store's value-log garbage collection.
type GCRunner interface {
	RunGC() error
}

// StoreGCService runs BadgerDB value-log garbage collection on a
// fixed interval. A failed pass is logged and retried on the next
// tick rather than crashing the service; the store stays usable
// either way.
type StoreGCService struct {
	store    GCRunner
	interval time.Duration
	name     string
}

// NewStoreGCService creates a store GC service. An interval of zero
// or less defaults to ten minutes.
func NewStoreGCService(store GCRunner, interval time.Duration) *StoreGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &StoreGCService{
		store:    store,
		interval: interval,
		name:     "store-gc",
	}
}

// Serve implements suture.Service.
func (s *StoreGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.store.RunGC(); err != nil {
				logging.Warn().
					Err(err).
					Str("component", "supervisor").
					Msg("Store GC pass failed")
			}
		}
	}
}

// String identifies the service in supervisor log events.
func (s *StoreGCService) String() string {
	return s.name
}

// Pruner matches the blob store's retention sweep.
type Pruner interface {
	PruneExpired(ctx context.Context) (int, error)
}

// BlobRetentionService prunes raw replay blobs that have aged out of
// the retention window. Rendered videos are never pruned; the sweep
// only covers the replays/ prefix.
type BlobRetentionService struct {
	blobs    Pruner
	interval time.Duration
	name     string
}

// NewBlobRetentionService creates a blob retention service. An
// interval of zero or less defaults to twelve hours.
func NewBlobRetentionService(blobs Pruner, interval time.Duration) *BlobRetentionService {
	if interval <= 0 {
		interval = 12 * time.Hour
	}
	return &BlobRetentionService{
		blobs:    blobs,
		interval: interval,
		name:     "blob-retention",
	}
}

// Serve implements suture.Service. The first sweep runs immediately
// so a long interval does not delay cleanup after a restart.
func (s *BlobRetentionService) Serve(ctx context.Context) error {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *BlobRetentionService) sweep(ctx context.Context) {
	pruned, err := s.blobs.PruneExpired(ctx)
	if err != nil {
		logging.Warn().
			Err(err).
			Str("component", "supervisor").
			Msg("Blob retention sweep failed")
		return
	}
	if pruned > 0 {
		logging.Info().
			Int("pruned", pruned).
			Str("component", "supervisor").
			Msg("Blob retention sweep removed expired replays")
	}
}

// String identifies the service in supervisor log events.
func (s *BlobRetentionService) String() string {
	return s.name
}
