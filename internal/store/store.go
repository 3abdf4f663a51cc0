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

	"github.com/tomtom215/navarchus/internal/assemble"
	"github.com/tomtom215/navarchus/internal/config"
	"github.com/tomtom215/navarchus/internal/logging"
	"github.com/tomtom215/navarchus/internal/metrics"
	"github.com/tomtom215/navarchus/internal/models"
)

var (
	// ErrNotFound means no record exists under the requested key.
	ErrNotFound = errors.New("store: record not found")

	// ErrConflict means a write lost against concurrent writers even
	// after the configured retries.
	ErrConflict = errors.New("store: write conflict")
)

// Dispositions of a match write.
const (
	// DispositionCreated means this upload created the MATCH record.
	DispositionCreated = "created"
	// DispositionMerged means the MATCH existed and the uploader was
	// merged into it.
	DispositionMerged = "merged"
)

// Store is the BadgerDB-backed record store. Safe for concurrent use.
type Store struct {
	db  *badger.DB
	cfg config.StoreConfig
}

// Open opens (or creates) the store at cfg.Path.
func Open(cfg config.StoreConfig) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	opts.Logger = nil
	opts.SyncWrites = cfg.SyncWrites
	if cfg.MemTableSize > 0 {
		opts.MemTableSize = cfg.MemTableSize
	}
	if cfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = cfg.ValueLogFileSize
	}
	if cfg.NumCompactors > 0 {
		opts.NumCompactors = cfg.NumCompactors
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}

	logging.Info().
		Str("component", "store").
		Str("path", cfg.Path).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("Record store opened")

	return &Store{db: db, cfg: cfg}, nil
}

// FromDB wraps an existing BadgerDB connection, sharing it with other
// subsystems.
func FromDB(db *badger.DB, cfg config.StoreConfig) *Store {
	return &Store{db: db, cfg: cfg}
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying BadgerDB for subsystems sharing the
// instance.
func (s *Store) DB() *badger.DB {
	return s.db
}

// PersistResult reports what an upload write did.
type PersistResult struct {
	// Disposition is DispositionCreated or DispositionMerged.
	Disposition string

	// Match is the record as persisted, after any merge.
	Match *models.MatchRecord

	// StatsWritten is false when the STATS record already existed (or
	// the bundle carried none).
	StatsWritten bool

	// DualFlipped is true when this upload was the first from the
	// opposing team, turning HasDualReplay on. Dual renders key off
	// this so they fire exactly once per match.
	DualFlipped bool
}

// Created reports whether this upload created the match.
func (r *PersistResult) Created() bool {
	return r.Disposition == DispositionCreated
}

// PersistBundle runs the upload write protocol against the bundle's
// game-type table:
//
//  1. MATCH: create if absent, else merge the uploader (one
//     transaction; conflicts retry with backoff).
//  2. STATS: create if absent, never overwrite.
//  3. UPLOAD#{playerID}: unconditional put.
//  4. Listing, map, and reverse-index rows, only when step 1 created.
//
// Steps run in separate transactions so a failure never blocks the
// MATCH record itself; the whole protocol is idempotent and safe to
// re-run for the same upload.
func (s *Store) PersistBundle(ctx context.Context, b *assemble.Bundle) (*PersistResult, error) {
	if b == nil || b.Match == nil || b.Upload == nil || len(b.Match.Uploaders) == 0 {
		return nil, errors.New("store: incomplete bundle")
	}

	start := time.Now()
	result, err := s.persistMatch(ctx, b.Match)
	metrics.RecordStoreOp("persist_match", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if b.Stats != nil {
		start = time.Now()
		written, err := s.persistStats(b.Stats)
		metrics.RecordStoreOp("persist_stats", time.Since(start), err)
		if err != nil {
			return nil, err
		}
		result.StatsWritten = written
	}

	start = time.Now()
	err = s.putUpload(b.Upload)
	metrics.RecordStoreOp("persist_upload", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if result.Created() {
		start = time.Now()
		err = s.writeDerivedRows(result.Match)
		metrics.RecordStoreOp("persist_indexes", time.Since(start), err)
		if err != nil {
			return nil, err
		}
		metrics.RecordMatchResult(result.Match.WinLoss)
	}

	metrics.RecordMatchPersisted(result.Match.GameType, result.Disposition)
	logging.Info().
		Str("component", "store").
		Int64("arena_id", result.Match.ArenaUniqueID).
		Str("game_type", result.Match.GameType).
		Str("disposition", result.Disposition).
		Bool("stats_written", result.StatsWritten).
		Int("uploaders", len(result.Match.Uploaders)).
		Msg("Persisted upload")

	return result, nil
}

// persistMatch is the conditional MATCH write. The record's existence
// is the lock: creation and merge both happen inside one transaction,
// and a concurrent writer surfaces as a Badger conflict that the
// bounded retry absorbs.
func (s *Store) persistMatch(ctx context.Context, match *models.MatchRecord) (*PersistResult, error) {
	result := &PersistResult{}
	key := keyMatch(match.GameType, match.ArenaUniqueID)

	err := s.withConflictRetry(ctx, "persist_match", func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(key)
			if errors.Is(err, badger.ErrKeyNotFound) {
				data, err := json.Marshal(match)
				if err != nil {
					return fmt.Errorf("marshal match: %w", err)
				}
				result.Disposition = DispositionCreated
				result.Match = match
				return txn.Set(key, data)
			}
			if err != nil {
				return fmt.Errorf("get match: %w", err)
			}

			var existing models.MatchRecord
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &existing)
			}); err != nil {
				return fmt.Errorf("unmarshal match: %w", err)
			}

			result.Disposition = DispositionMerged
			result.Match = &existing
			result.DualFlipped = false
			wasDual := existing.HasDualReplay
			if !existing.MergeUploader(match.Uploaders[0]) {
				return nil
			}
			result.DualFlipped = existing.HasDualReplay && !wasDual
			existing.UpdatedAt = match.UpdatedAt

			data, err := json.Marshal(&existing)
			if err != nil {
				return fmt.Errorf("marshal match: %w", err)
			}
			return txn.Set(key, data)
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// persistStats writes the STATS record unless one exists. The first
// uploader's numbers win; all replays of one match agree on them.
func (s *Store) persistStats(stats *models.StatsRecord) (bool, error) {
	written := false
	err := s.db.Update(func(txn *badger.Txn) error {
		key := keyStats(stats.GameType, stats.ArenaUniqueID)
		_, err := txn.Get(key)
		if err == nil {
			metrics.StatsWritesSkipped.Inc()
			logging.Debug().
				Str("component", "store").
				Int64("arena_id", stats.ArenaUniqueID).
				Msg("Stats record exists, keeping first write")
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("get stats: %w", err)
		}

		data, err := json.Marshal(stats)
		if err != nil {
			return fmt.Errorf("marshal stats: %w", err)
		}
		written = true
		return txn.Set(key, data)
	})
	return written, err
}

func (s *Store) putUpload(upload *models.UploadRecord) error {
	data, err := json.Marshal(upload)
	if err != nil {
		return fmt.Errorf("marshal upload: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyUpload(upload.GameType, upload.ArenaUniqueID, upload.PlayerID), data)
	})
}

// writeDerivedRows emits the listing row, the per-map row, and the
// three reverse-index row sets for a match. Upserts: re-running for
// the same record rewrites identical keys.
func (s *Store) writeDerivedRows(m *models.MatchRecord) error {
	summary, err := json.Marshal(m.Summary())
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	// Badger caps a transaction's size; a 24-player match emits a few
	// dozen small rows, far below it, so one transaction is fine.
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(keyListing(m.GameType, m.UnixTime, m.ArenaUniqueID), summary); err != nil {
			return fmt.Errorf("set listing row: %w", err)
		}
		if m.MapID != "" {
			if err := txn.Set(keyMapList(m.GameType, m.MapID, m.UnixTime, m.ArenaUniqueID), summary); err != nil {
				return fmt.Errorf("set map row: %w", err)
			}
		}

		for _, row := range assemble.ShipIndexRows(m) {
			data, err := json.Marshal(row)
			if err != nil {
				return fmt.Errorf("marshal ship row: %w", err)
			}
			if err := txn.Set(keyShipIdx(row.ShipName, m.GameType, m.UnixTime, m.ArenaUniqueID), data); err != nil {
				return fmt.Errorf("set ship row: %w", err)
			}
		}
		for _, row := range assemble.PlayerIndexRows(m) {
			data, err := json.Marshal(row)
			if err != nil {
				return fmt.Errorf("marshal player row: %w", err)
			}
			if err := txn.Set(keyPlayerIdx(row.PlayerName, m.GameType, m.UnixTime, m.ArenaUniqueID), data); err != nil {
				return fmt.Errorf("set player row: %w", err)
			}
		}
		for _, row := range assemble.ClanIndexRows(m) {
			data, err := json.Marshal(row)
			if err != nil {
				return fmt.Errorf("marshal clan row: %w", err)
			}
			if err := txn.Set(keyClanIdx(row.ClanTag, m.GameType, m.UnixTime, m.ArenaUniqueID), data); err != nil {
				return fmt.Errorf("set clan row: %w", err)
			}
		}
		return nil
	})
}

// withConflictRetry runs fn, retrying Badger transaction conflicts
// with exponential backoff up to the configured bound. Any other error
// passes through on the first occurrence.
func (s *Store) withConflictRetry(ctx context.Context, op string, fn func() error) error {
	retries := s.cfg.ConflictRetries
	if retries <= 0 {
		retries = 5
	}
	backoff := s.cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 10 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !errors.Is(err, badger.ErrConflict) {
			return err
		}
		if attempt >= retries {
			metrics.RecordConflictExhausted()
			return fmt.Errorf("%w: %s gave up after %d retries", ErrConflict, op, retries)
		}

		metrics.RecordConflictRetry()
		delay := backoff << uint(attempt)
		if maxBackoff := 5 * time.Second; delay > maxBackoff {
			delay = maxBackoff
		}
		logging.Debug().
			Str("component", "store").
			Str("operation", op).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Msg("Write conflict, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
