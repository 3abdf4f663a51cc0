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
	"github.com/goccy/go-json"

	"github.com/tomtom215/navarchus/internal/logging"
	"github.com/tomtom215/navarchus/internal/models"
)

// updateMatch loads one MATCH record by probing the game-type tables,
// applies mutate, and conditionally rewrites it. mutate returning
// false abandons the write and the record is returned as read.
// Records are never deleted, so the game type resolved by the probe
// stays valid across retries.
func (s *Store) updateMatch(ctx context.Context, op string, arenaID int64, mutate func(*models.MatchRecord) bool) (*models.MatchRecord, error) {
	found, err := s.FindMatch(ctx, arenaID)
	if err != nil {
		return nil, err
	}
	key := keyMatch(found.GameType, arenaID)

	var updated models.MatchRecord
	err = s.withConflictRetry(ctx, op, func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(key)
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrNotFound, key)
			}
			if err != nil {
				return fmt.Errorf("get %s: %w", key, err)
			}

			var match models.MatchRecord
			err = item.Value(func(val []byte) error {
				return json.Unmarshal(val, &match)
			})
			if err != nil {
				return fmt.Errorf("unmarshal match: %w", err)
			}

			if !mutate(&match) {
				updated = match
				return nil
			}
			match.UpdatedAt = time.Now().UTC()

			data, err := json.Marshal(&match)
			if err != nil {
				return fmt.Errorf("marshal match: %w", err)
			}
			if err := txn.Set(key, data); err != nil {
				return fmt.Errorf("set %s: %w", key, err)
			}
			updated = match
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// SetVideo records the rendered single-perspective video of a match.
func (s *Store) SetVideo(ctx context.Context, arenaID int64, videoKey string, generatedAt time.Time) (*models.MatchRecord, error) {
	match, err := s.updateMatch(ctx, "set_video", arenaID, func(m *models.MatchRecord) bool {
		m.MP4Key = videoKey
		m.MP4GeneratedAt = &generatedAt
		return true
	})
	if err != nil {
		return nil, err
	}
	logging.Info().
		Str("component", "store").
		Int64("arena_id", arenaID).
		Str("video_key", videoKey).
		Msg("Match video key set")
	return match, nil
}

// SetDualVideo records the rendered dual-perspective video of a match.
func (s *Store) SetDualVideo(ctx context.Context, arenaID int64, videoKey string, generatedAt time.Time) (*models.MatchRecord, error) {
	match, err := s.updateMatch(ctx, "set_dual_video", arenaID, func(m *models.MatchRecord) bool {
		m.DualMP4Key = videoKey
		m.DualMP4GeneratedAt = &generatedAt
		return true
	})
	if err != nil {
		return nil, err
	}
	logging.Info().
		Str("component", "store").
		Int64("arena_id", arenaID).
		Str("video_key", videoKey).
		Msg("Match dual video key set")
	return match, nil
}

// UpdateCommentCount adjusts a match's comment tally by delta. The
// count is a plain running sum and may go negative if deletes outrun
// creates; readers treat anything below one as zero.
func (s *Store) UpdateCommentCount(ctx context.Context, arenaID int64, delta int) (*models.MatchRecord, error) {
	return s.updateMatch(ctx, "update_comment_count", arenaID, func(m *models.MatchRecord) bool {
		m.CommentCount += delta
		return true
	})
}
