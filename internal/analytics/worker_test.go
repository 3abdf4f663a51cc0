// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus/

package analytics

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/navarchus/internal/models"
	"github.com/tomtom215/navarchus/internal/pipeline"
	"github.com/tomtom215/navarchus/internal/store"
)

// stubLoader serves canned battles keyed by arena id. Missing entries
// report store.ErrNotFound like the real store.
type stubLoader struct {
	matches map[int64]*models.MatchRecord
	stats   map[int64]*models.StatsRecord
	err     error
}

func (s *stubLoader) GetMatch(_ context.Context, _ string, arenaUniqueID int64) (*models.MatchRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	match, ok := s.matches[arenaUniqueID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return match, nil
}

func (s *stubLoader) GetStats(_ context.Context, _ string, arenaUniqueID int64) (*models.StatsRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	rec, ok := s.stats[arenaUniqueID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return rec, nil
}

type stubLister struct {
	stubLoader
	summaries map[string][]models.MatchSummary
}

func (s *stubLister) ListMatches(_ context.Context, gameType string, _ store.ListOptions) ([]models.MatchSummary, string, error) {
	return s.summaries[gameType], "", nil
}

func persistedEvent(arenaID int64, gameType string) *pipeline.ReplayPersisted {
	return &pipeline.ReplayPersisted{
		ArenaUniqueID: arenaID,
		GameType:      gameType,
		Disposition:   "created",
		StatsWritten:  true,
	}
}

func TestNewWorkerValidation(t *testing.T) {
	m := newTestMirror(t)

	if _, err := NewWorker(nil, &stubLoader{}); err == nil {
		t.Error("NewWorker(nil, loader) expected error")
	}
	if _, err := NewWorker(m, nil); err == nil {
		t.Error("NewWorker(mirror, nil) expected error")
	}
	if _, err := NewWorker(m, &stubLoader{}); err != nil {
		t.Errorf("NewWorker() error = %v", err)
	}
}

func TestMirrorPersisted(t *testing.T) {
	m := newTestMirror(t)
	ctx := context.Background()

	const arenaID = 7598531900007777
	match, stats := testBattle(arenaID, models.GameTypeClan, models.WinLossWin)
	loader := &stubLoader{
		matches: map[int64]*models.MatchRecord{arenaID: match},
		stats:   map[int64]*models.StatsRecord{arenaID: stats},
	}
	worker, err := NewWorker(m, loader)
	if err != nil {
		t.Fatalf("NewWorker() error = %v", err)
	}

	if err := worker.MirrorPersisted(ctx, persistedEvent(arenaID, models.GameTypeClan)); err != nil {
		t.Fatalf("MirrorPersisted() error = %v", err)
	}

	overview, err := m.GetOverview(ctx, Filter{})
	if err != nil {
		t.Fatalf("GetOverview() error = %v", err)
	}
	if overview.TotalBattles != 1 {
		t.Errorf("TotalBattles = %d, want 1", overview.TotalBattles)
	}
}

func TestMirrorPersistedMissingMatch(t *testing.T) {
	m := newTestMirror(t)

	worker, err := NewWorker(m, &stubLoader{})
	if err != nil {
		t.Fatalf("NewWorker() error = %v", err)
	}

	err = worker.MirrorPersisted(context.Background(), persistedEvent(1, models.GameTypeClan))
	if err == nil {
		t.Fatal("MirrorPersisted() expected error for missing match")
	}
	if !pipeline.IsPermanentError(err) {
		t.Errorf("MirrorPersisted() error = %v, want permanent", err)
	}
}

func TestMirrorPersistedMissingStats(t *testing.T) {
	m := newTestMirror(t)

	const arenaID = 7598531900008888
	match, _ := testBattle(arenaID, models.GameTypeClan, models.WinLossWin)
	loader := &stubLoader{
		matches: map[int64]*models.MatchRecord{arenaID: match},
	}
	worker, err := NewWorker(m, loader)
	if err != nil {
		t.Fatalf("NewWorker() error = %v", err)
	}

	// No stats means nothing to aggregate, not a failure.
	if err := worker.MirrorPersisted(context.Background(), persistedEvent(arenaID, models.GameTypeClan)); err != nil {
		t.Errorf("MirrorPersisted() error = %v, want nil skip", err)
	}
}

func TestMirrorPersistedStoreFailure(t *testing.T) {
	m := newTestMirror(t)

	loader := &stubLoader{err: errors.New("badger: disk full")}
	worker, err := NewWorker(m, loader)
	if err != nil {
		t.Fatalf("NewWorker() error = %v", err)
	}

	err = worker.MirrorPersisted(context.Background(), persistedEvent(1, models.GameTypeClan))
	if err == nil {
		t.Fatal("MirrorPersisted() expected error")
	}
	if !pipeline.IsRetryableError(err) {
		t.Errorf("MirrorPersisted() error = %v, want retryable", err)
	}
}

func TestRebuild(t *testing.T) {
	m := newTestMirror(t)
	ctx := context.Background()

	const (
		fullID  = 7598531900009001
		noStats = 7598531900009002
	)
	fullMatch, fullStats := testBattle(fullID, models.GameTypeClan, models.WinLossWin)
	orphan, _ := testBattle(noStats, models.GameTypeClan, models.WinLossLoss)

	lister := &stubLister{
		stubLoader: stubLoader{
			matches: map[int64]*models.MatchRecord{fullID: fullMatch, noStats: orphan},
			stats:   map[int64]*models.StatsRecord{fullID: fullStats},
		},
		summaries: map[string][]models.MatchSummary{
			models.GameTypeClan: {
				{ArenaUniqueID: fullID, GameType: models.GameTypeClan},
				{ArenaUniqueID: noStats, GameType: models.GameTypeClan},
			},
		},
	}

	result, err := Rebuild(ctx, m, lister)
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if result.Mirrored != 1 {
		t.Errorf("Mirrored = %d, want 1", result.Mirrored)
	}
	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", result.Skipped)
	}
	if result.Failed != 0 {
		t.Errorf("Failed = %d, want 0", result.Failed)
	}

	overview, err := m.GetOverview(ctx, Filter{})
	if err != nil {
		t.Fatalf("GetOverview() error = %v", err)
	}
	if overview.TotalBattles != 1 {
		t.Errorf("TotalBattles after rebuild = %d, want 1", overview.TotalBattles)
	}
}
