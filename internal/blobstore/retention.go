// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package blobstore

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/tomtom215/navarchus/internal/logging"
)

const retentionSweepInterval = 12 * time.Hour

// StartRetention launches the background sweep that prunes raw replay
// blobs older than the configured retention window. A RetentionDays of
// zero keeps replays forever and disables the sweep. Rendered videos are
// never pruned; they are the product the archive exists to serve.
func (s *Store) StartRetention(ctx context.Context) {
	if s.cfg.RetentionDays <= 0 {
		logging.Debug().
			Str("component", "blobstore").
			Msg("Blob retention disabled, keeping replays forever")
		return
	}

	go func() {
		ticker := time.NewTicker(retentionSweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.PruneExpired(ctx); err != nil {
					logging.Warn().
						Str("component", "blobstore").
						Err(err).
						Msg("Blob retention sweep failed")
				}
			}
		}
	}()
}

// PruneExpired removes raw replay blobs whose modification time falls
// outside the retention window and reports how many were removed.
func (s *Store) PruneExpired(ctx context.Context) (int, error) {
	if s.cfg.RetentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
	replayRoot := filepath.Join(s.root, "replays")

	pruned := 0
	err := filepath.WalkDir(replayRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		pruned++
		return nil
	})
	if err != nil {
		// No replays directory means nothing has been uploaded yet.
		if os.IsNotExist(err) {
			return 0, nil
		}
		return pruned, fmt.Errorf("prune replay blobs: %w", err)
	}

	if pruned > 0 {
		logging.Info().
			Str("component", "blobstore").
			Int("pruned", pruned).
			Int("retention_days", s.cfg.RetentionDays).
			Msg("Expired replay blobs pruned")
	}
	return pruned, nil
}
