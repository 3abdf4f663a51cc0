// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package store

import (
	"context"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/navarchus/internal/assemble"
	"github.com/tomtom215/navarchus/internal/logging"
	"github.com/tomtom215/navarchus/internal/models"
)

// ReindexMatch re-emits the derived rows of one match and repairs its
// search-optimization fields. Derived rows are keyed by values that
// reindexing never changes, so re-running it is an idempotent upsert.
func (s *Store) ReindexMatch(ctx context.Context, arenaID int64) error {
	_, _, err := s.reindexOne(ctx, arenaID)
	return err
}

// ReindexResult summarizes a reindex pass.
type ReindexResult struct {
	Scanned  int `json:"scanned"`
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`
}

// ReindexAll walks every MATCH record across all game-type tables and
// re-emits its derived rows. Failures are counted and logged rather
// than aborting the walk, so one corrupt record cannot wedge an admin
// backfill.
func (s *Store) ReindexAll(ctx context.Context) (*ReindexResult, error) {
	result := &ReindexResult{}

	var arenaIDs []int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(battlePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			if !strings.HasSuffix(key, matchSuffix) {
				continue
			}
			var match models.MatchRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &match)
			})
			if err != nil || match.ArenaUniqueID == 0 {
				result.Failed++
				logging.Error().
					Err(err).
					Str("component", "store").
					Str("key", key).
					Msg("Skipping unreadable match record")
				continue
			}
			arenaIDs = append(arenaIDs, match.ArenaUniqueID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, arenaID := range arenaIDs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Scanned++
		_, repaired, err := s.reindexOne(ctx, arenaID)
		if err != nil {
			result.Failed++
			logging.Error().
				Err(err).
				Str("component", "store").
				Int64("arena_id", arenaID).
				Msg("Reindex failed for match")
			continue
		}
		if repaired {
			result.Repaired++
		}
	}

	logging.Info().
		Str("component", "store").
		Int("scanned", result.Scanned).
		Int("repaired", result.Repaired).
		Int("failed", result.Failed).
		Msg("Reindex pass complete")
	return result, nil
}

// reindexOne repairs missing search-optimization fields through the
// conditional update path, then re-emits the listing and reverse-index
// rows from the stored record.
func (s *Store) reindexOne(ctx context.Context, arenaID int64) (*models.MatchRecord, bool, error) {
	var repaired bool
	match, err := s.updateMatch(ctx, "reindex_repair", arenaID, func(m *models.MatchRecord) bool {
		repaired = false
		if m.MatchKey == "" {
			m.MatchKey = assemble.MatchKeyFor(m)
			repaired = true
		}
		if got := assemble.SortableDateTime(m.DateTime); m.DateTimeSortable != got {
			m.DateTimeSortable = got
			repaired = true
		}
		return repaired
	})
	if err != nil {
		return nil, false, err
	}
	if err := s.writeDerivedRows(match); err != nil {
		return nil, repaired, err
	}
	return match, repaired, nil
}
