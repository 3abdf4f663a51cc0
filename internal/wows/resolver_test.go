// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package wows

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/navarchus/internal/gamedata"
)

// stubEncyclopedia answers from fixed maps and records calls.
type stubEncyclopedia struct {
	ships     map[int64]string
	clans     map[string]string
	shipCalls int
}

func (s *stubEncyclopedia) ShipName(_ context.Context, shipID int64) (string, error) {
	s.shipCalls++
	if name, ok := s.ships[shipID]; ok {
		return name, nil
	}
	return "", ErrNotFound
}

func (s *stubEncyclopedia) AccountID(_ context.Context, nickname string) (int64, error) {
	if _, ok := s.clans[nickname]; ok {
		return 1, nil
	}
	return 0, ErrNotFound
}

func (s *stubEncyclopedia) ClanTag(_ context.Context, nickname string) (string, error) {
	if tag, ok := s.clans[nickname]; ok {
		return tag, nil
	}
	return "", ErrNotFound
}

func newTestResolver(t *testing.T, enc Encyclopedia) *Resolver {
	t.Helper()
	tables, err := gamedata.NewTables()
	if err != nil {
		t.Fatalf("gamedata.NewTables() error = %v", err)
	}
	return NewResolver(tables, enc)
}

func TestResolverShipNameFromSnapshot(t *testing.T) {
	stub := &stubEncyclopedia{}
	r := newTestResolver(t, stub)

	// Yamato is in the embedded snapshot; the API must not be asked.
	if got := r.ShipName(context.Background(), 4253922944); got != "Yamato" {
		t.Errorf("ShipName() = %q, want \"Yamato\"", got)
	}
	if stub.shipCalls != 0 {
		t.Errorf("API ship calls = %d, want 0 for snapshot hit", stub.shipCalls)
	}
}

func TestResolverShipNameFromAPI(t *testing.T) {
	stub := &stubEncyclopedia{ships: map[int64]string{777: "Belfast"}}
	r := newTestResolver(t, stub)

	if got := r.ShipName(context.Background(), 777); got != "Belfast" {
		t.Errorf("ShipName() = %q, want \"Belfast\"", got)
	}
}

func TestResolverShipNamePlaceholder(t *testing.T) {
	tests := []struct {
		name string
		enc  Encyclopedia
	}{
		{"api enabled but unknown", &stubEncyclopedia{}},
		{"api disabled", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(t, tt.enc)
			if got := r.ShipName(context.Background(), 999); got != "Unknown Ship (ID: 999)" {
				t.Errorf("ShipName() = %q, want \"Unknown Ship (ID: 999)\"", got)
			}
		})
	}
}

func TestResolverShipClassSnapshotOnly(t *testing.T) {
	r := newTestResolver(t, &stubEncyclopedia{ships: map[int64]string{999: "Mystery"}})

	if got := r.ShipClass(4253922944); got != gamedata.ClassBattleship {
		t.Errorf("ShipClass() = %q, want %q", got, gamedata.ClassBattleship)
	}
	// Class never comes from the API, even when the API knows the ship.
	if got := r.ShipClass(999); got != "" {
		t.Errorf("ShipClass() = %q, want empty for unknown ship", got)
	}
}

func TestResolverClanTag(t *testing.T) {
	stub := &stubEncyclopedia{clans: map[string]string{"Flagship": "NAVA"}}
	r := newTestResolver(t, stub)

	if got := r.ClanTag(context.Background(), "Flagship"); got != "NAVA" {
		t.Errorf("ClanTag() = %q, want \"NAVA\"", got)
	}
	if got := r.ClanTag(context.Background(), "Lone"); got != "" {
		t.Errorf("ClanTag() = %q, want empty for clanless player", got)
	}
}

func TestResolverClanTagDisabled(t *testing.T) {
	r := newTestResolver(t, nil)

	if got := r.ClanTag(context.Background(), "Flagship"); got != "" {
		t.Errorf("ClanTag() = %q, want empty when API disabled", got)
	}
}

// failingEncyclopedia always returns a transport error.
type failingEncyclopedia struct{}

func (failingEncyclopedia) ShipName(context.Context, int64) (string, error) {
	return "", errors.New("connection refused")
}

func (failingEncyclopedia) AccountID(context.Context, string) (int64, error) {
	return 0, errors.New("connection refused")
}

func (failingEncyclopedia) ClanTag(context.Context, string) (string, error) {
	return "", errors.New("connection refused")
}

func TestResolverDegradesOnAPIFailure(t *testing.T) {
	r := newTestResolver(t, failingEncyclopedia{})

	if got := r.ShipName(context.Background(), 999); got != "Unknown Ship (ID: 999)" {
		t.Errorf("ShipName() = %q, want placeholder on API failure", got)
	}
	if got := r.ClanTag(context.Background(), "Anyone"); got != "" {
		t.Errorf("ClanTag() = %q, want empty on API failure", got)
	}
}
