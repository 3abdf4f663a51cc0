// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package analytics

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/navarchus/internal/logging"
	"github.com/tomtom215/navarchus/internal/models"
	"github.com/tomtom215/navarchus/internal/pipeline"
	"github.com/tomtom215/navarchus/internal/store"
)

// MatchLoader reads a battle's records from the store of truth.
type MatchLoader interface {
	GetMatch(ctx context.Context, gameType string, arenaUniqueID int64) (*models.MatchRecord, error)
	GetStats(ctx context.Context, gameType string, arenaUniqueID int64) (*models.StatsRecord, error)
}

// MatchLister extends loading with per-game-type listing, for full
// mirror rebuilds.
type MatchLister interface {
	MatchLoader
	ListMatches(ctx context.Context, gameType string, opts store.ListOptions) ([]models.MatchSummary, string, error)
}

// Worker projects persisted battles into the mirror. It implements
// the pipeline's mirror sink.
type Worker struct {
	mirror *Mirror
	store  MatchLoader
}

// NewWorker creates the projection worker.
func NewWorker(mirror *Mirror, loader MatchLoader) (*Worker, error) {
	if mirror == nil {
		return nil, errors.New("analytics: mirror is nil")
	}
	if loader == nil {
		return nil, errors.New("analytics: match loader is nil")
	}
	return &Worker{mirror: mirror, store: loader}, nil
}

// MirrorPersisted loads the battle behind a replay.persisted event and
// upserts its player rows. Battles without a stats record are skipped;
// there is nothing to aggregate. Runs for merged uploads too, which
// re-applies identical rows and heals any earlier partial write.
func (w *Worker) MirrorPersisted(ctx context.Context, event *pipeline.ReplayPersisted) error {
	match, err := w.store.GetMatch(ctx, event.GameType, event.ArenaUniqueID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return pipeline.NewPermanentError(
				fmt.Sprintf("match %d/%s missing from store", event.ArenaUniqueID, event.GameType), err)
		}
		return pipeline.NewRetryableError("load match for mirror", err)
	}

	stats, err := w.store.GetStats(ctx, event.GameType, event.ArenaUniqueID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logging.Debug().
				Int64("arena_id", event.ArenaUniqueID).
				Str("game_type", event.GameType).
				Msg("Battle has no stats record, skipping mirror")
			return nil
		}
		return pipeline.NewRetryableError("load stats for mirror", err)
	}

	if err := w.mirror.MirrorBattle(ctx, match, stats); err != nil {
		return pipeline.NewRetryableError("mirror battle", err)
	}
	return nil
}

// RebuildResult reports a full mirror rebuild.
type RebuildResult struct {
	Mirrored int
	Skipped  int
	Failed   int
}

// Rebuild repopulates the mirror from the record store, paging every
// game type's listing. Existing rows are replaced in place; rows for
// battles since deleted from the store are left behind (drop the
// database file first for a clean slate). Individual battle failures
// are logged and counted, not fatal.
func Rebuild(ctx context.Context, mirror *Mirror, lister MatchLister) (*RebuildResult, error) {
	worker, err := NewWorker(mirror, lister)
	if err != nil {
		return nil, err
	}

	result := &RebuildResult{}
	for _, gameType := range models.GameTypes() {
		var cursor string
		for {
			summaries, next, err := lister.ListMatches(ctx, gameType, store.ListOptions{
				Limit:  200,
				Cursor: cursor,
			})
			if err != nil {
				return result, fmt.Errorf("list %s matches: %w", gameType, err)
			}

			for _, summary := range summaries {
				if err := ctx.Err(); err != nil {
					return result, err
				}
				switch err := worker.mirrorOne(ctx, gameType, summary.ArenaUniqueID); {
				case err == nil:
					result.Mirrored++
				case errors.Is(err, store.ErrNotFound):
					result.Skipped++
				default:
					result.Failed++
					logging.Warn().Err(err).
						Int64("arena_id", summary.ArenaUniqueID).
						Str("game_type", gameType).
						Msg("Rebuild skipped battle")
				}
			}

			if next == "" {
				break
			}
			cursor = next
		}
	}

	logging.Info().
		Int("mirrored", result.Mirrored).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("Analytics mirror rebuilt")
	return result, nil
}

// mirrorOne loads and mirrors a single battle. Returns ErrNotFound
// when the battle has no stats record.
func (w *Worker) mirrorOne(ctx context.Context, gameType string, arenaUniqueID int64) error {
	match, err := w.store.GetMatch(ctx, gameType, arenaUniqueID)
	if err != nil {
		return err
	}
	stats, err := w.store.GetStats(ctx, gameType, arenaUniqueID)
	if err != nil {
		return err
	}
	return w.mirror.MirrorBattle(ctx, match, stats)
}
