// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/navarchus/internal/logging"
	"github.com/tomtom215/navarchus/internal/metrics"
)

// defaultGCInterval applies when the config leaves the interval unset.
const defaultGCInterval = 10 * time.Minute

// StartGC launches periodic value-log garbage collection, stopping
// when ctx is done. Call at most once per Store.
func (s *Store) StartGC(ctx context.Context) {
	interval := s.cfg.GCInterval
	if interval <= 0 {
		interval = defaultGCInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.RunGC(); err != nil {
					logging.Warn().
						Err(err).
						Str("component", "store").
						Msg("Value log GC failed")
				}
			}
		}
	}()
}

// RunGC reclaims value-log space until no file qualifies for a
// rewrite, then refreshes the size gauges.
func (s *Store) RunGC() error {
	for {
		err := s.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) {
			metrics.RecordStoreGC(false)
			break
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
		metrics.RecordStoreGC(true)
	}

	lsm, vlog := s.db.Size()
	metrics.UpdateStoreSize(lsm, vlog)
	return nil
}
