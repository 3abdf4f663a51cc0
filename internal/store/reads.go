// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/navarchus/internal/models"
)

// GetMatch loads one MATCH record from a known game-type table.
func (s *Store) GetMatch(ctx context.Context, gameType string, arenaID int64) (*models.MatchRecord, error) {
	var match models.MatchRecord
	err := s.getJSON(keyMatch(gameType, arenaID), &match)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// FindMatch locates a MATCH record when only the arena id is known,
// probing the game-type tables in fixed order.
func (s *Store) FindMatch(ctx context.Context, arenaID int64) (*models.MatchRecord, error) {
	for _, gameType := range models.GameTypes() {
		match, err := s.GetMatch(ctx, gameType, arenaID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return match, nil
	}
	return nil, fmt.Errorf("%w: match %d in any table", ErrNotFound, arenaID)
}

// GetStats loads the STATS record of one match.
func (s *Store) GetStats(ctx context.Context, gameType string, arenaID int64) (*models.StatsRecord, error) {
	var stats models.StatsRecord
	err := s.getJSON(keyStats(gameType, arenaID), &stats)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetUpload loads one player's upload record.
func (s *Store) GetUpload(ctx context.Context, gameType string, arenaID, playerID int64) (*models.UploadRecord, error) {
	var upload models.UploadRecord
	err := s.getJSON(keyUpload(gameType, arenaID, playerID), &upload)
	if err != nil {
		return nil, err
	}
	return &upload, nil
}

// GetUploads loads every upload record of one match, in player-id key
// order.
func (s *Store) GetUploads(ctx context.Context, gameType string, arenaID int64) ([]models.UploadRecord, error) {
	var uploads []models.UploadRecord

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := keyUploadPrefix(gameType, arenaID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var upload models.UploadRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &upload)
			})
			if err != nil {
				return fmt.Errorf("unmarshal upload: %w", err)
			}
			uploads = append(uploads, upload)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return uploads, nil
}

// FullMatch is everything stored for one arena id.
type FullMatch struct {
	Match   *models.MatchRecord   `json:"match"`
	Stats   *models.StatsRecord   `json:"stats,omitempty"`
	Uploads []models.UploadRecord `json:"uploads"`
}

// GetFullMatch loads the MATCH record plus its STATS and UPLOAD rows.
// Stats may be nil when every upload of the match was incomplete.
func (s *Store) GetFullMatch(ctx context.Context, arenaID int64) (*FullMatch, error) {
	match, err := s.FindMatch(ctx, arenaID)
	if err != nil {
		return nil, err
	}

	full := &FullMatch{Match: match}

	stats, err := s.GetStats(ctx, match.GameType, arenaID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	full.Stats = stats
	if errors.Is(err, ErrNotFound) {
		full.Stats = nil
	}

	uploads, err := s.GetUploads(ctx, match.GameType, arenaID)
	if err != nil {
		return nil, err
	}
	full.Uploads = uploads

	return full, nil
}

// ListOptions page a match listing.
type ListOptions struct {
	// MapID narrows the listing to one map.
	MapID string

	// Limit caps the page size; zero applies the default of 30.
	Limit int

	// Cursor resumes after the last row of the previous page. Opaque:
	// pass back exactly what the previous call returned.
	Cursor string

	// BeforeUnix excludes rows at or after this timestamp, the same
	// bound IndexScan applies. Ignored when Cursor is set; zero starts
	// from the newest row.
	BeforeUnix int64
}

// defaultListLimit is the page size when the caller does not set one.
const defaultListLimit = 30

// ListMatches pages one game type's matches, newest first, optionally
// narrowed to a map. The returned cursor is empty on the final page.
func (s *Store) ListMatches(ctx context.Context, gameType string, opts ListOptions) ([]models.MatchSummary, string, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	prefix := keyListingPrefix(gameType)
	if opts.MapID != "" {
		prefix = keyMapListPrefix(gameType, opts.MapID)
	}

	var (
		summaries []models.MatchSummary
		next      string
	)
	err := s.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		it := txn.NewIterator(itOpts)
		defer it.Close()

		// The inverted timestamp in the key makes ascending order
		// newest-first. A cursor is the key suffix after the prefix;
		// seeking to it and skipping one row resumes the page.
		start := prefix
		if opts.Cursor != "" {
			start = append(append([]byte{}, prefix...), opts.Cursor...)
		} else if opts.BeforeUnix > 0 {
			// Rows at the bounded timestamp share its inverted prefix
			// and carry a ":arena" tail; 0xFF lands past all of them,
			// so iteration resumes at the first strictly older row.
			start = append(append([]byte{}, prefix...), revUnixTime(opts.BeforeUnix)...)
			start = append(start, 0xFF)
		}

		for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if opts.Cursor != "" && bytes.Equal(key, start) {
				continue
			}
			if len(summaries) == limit {
				// A row exists past the full page, so the cursor of
				// the last collected row resumes the listing.
				return nil
			}

			var summary models.MatchSummary
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &summary)
			})
			if err != nil {
				return fmt.Errorf("unmarshal listing row: %w", err)
			}
			summaries = append(summaries, summary)
			next = string(key[len(prefix):])
		}
		// Ran off the end of the prefix: no further pages.
		next = ""
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return summaries, next, nil
}

// getJSON loads and unmarshals one key, mapping a missing key to
// ErrNotFound.
func (s *Store) getJSON(key []byte, dst interface{}) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dst)
		})
	})
}
