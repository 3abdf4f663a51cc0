// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package api

import (
	"context"
	"encoding/binary"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/navarchus/internal/assemble"
	"github.com/tomtom215/navarchus/internal/blobstore"
	"github.com/tomtom215/navarchus/internal/config"
	"github.com/tomtom215/navarchus/internal/models"
	"github.com/tomtom215/navarchus/internal/pipeline"
	"github.com/tomtom215/navarchus/internal/query"
	"github.com/tomtom215/navarchus/internal/store"
)

// stubPublisher records published events; err, when set, fails every
// publish.
type stubPublisher struct {
	mu     sync.Mutex
	events []pipeline.Event
	err    error
}

func (p *stubPublisher) PublishEvent(_ context.Context, event pipeline.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *stubPublisher) published() []pipeline.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]pipeline.Event(nil), p.events...)
}

type testEnv struct {
	handler   *Handler
	router    http.Handler
	store     *store.Store
	blobs     *blobstore.Store
	signer    *blobstore.Signer
	publisher *stubPublisher
	cfg       *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s, err := store.Open(config.StoreConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("store.Close failed: %v", err)
		}
	})

	blobs, err := blobstore.Open(config.BlobStoreConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("blobstore.Open failed: %v", err)
	}

	signer, err := blobstore.NewSigner(config.AuthConfig{SigningSecret: "test-secret"})
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}

	cfg := &config.Config{
		Upload: config.UploadConfig{
			APIKey:       "test-api-key",
			MaxSizeBytes: 4 << 20,
		},
		API: config.APIConfig{
			DefaultPageSize: 30,
			MaxPageSize:     100,
			CORSOrigins:     []string{"*"},
		},
	}

	gw := query.New(s, signer, cfg.API)
	pub := &stubPublisher{}
	handler := NewHandler(s, blobs, signer, gw, pub, nil, nil, nil, cfg)
	router := NewRouter(handler, cfg).SetupChi()

	return &testEnv{
		handler:   handler,
		router:    router,
		store:     s,
		blobs:     blobs,
		signer:    signer,
		publisher: pub,
		cfg:       cfg,
	}
}

// seedBattle persists one minimal battle. The sole uploader is the
// first ally, player id arenaID*100.
func seedBattle(t *testing.T, s *store.Store, arenaID int64, gameType, dateTime, mapID, winLoss string) {
	t.Helper()

	now := time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)
	allies := []models.RosterEntry{
		{PlayerID: arenaID * 100, Name: "Uploader_One", ClanTag: "OZEKI", ShipID: 4281317072, ShipName: "Gearing"},
		{PlayerID: arenaID*100 + 1, Name: "Wingman", ClanTag: "OZEKI", ShipID: 4282317072, ShipName: "Fletcher"},
	}
	enemies := []models.RosterEntry{
		{PlayerID: arenaID*100 + 50, Name: "Opponent", ClanTag: "FOE", ShipID: 4283317072, ShipName: "Yamato"},
	}

	match := &models.MatchRecord{
		ArenaUniqueID:           arenaID,
		GameType:                gameType,
		ListingKey:              models.ListingKeyActive,
		UnixTime:                assemble.UnixTime(dateTime),
		DateTime:                dateTime,
		DateTimeSortable:        assemble.SortableDateTime(dateTime),
		MapID:                   mapID,
		ClientVersion:           "14.11.0",
		AllyPerspectivePlayerID: allies[0].PlayerID,
		WinLoss:                 winLoss,
		AllyMainClanTag:         "OZEKI",
		EnemyMainClanTag:        "FOE",
		Allies:                  allies,
		Enemies:                 enemies,
		Uploaders:               []models.Uploader{{PlayerID: allies[0].PlayerID, PlayerName: allies[0].Name, Team: 0}},
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	match.MatchKey = assemble.MatchKeyFor(match)

	upload := &models.UploadRecord{
		ArenaUniqueID: arenaID,
		GameType:      gameType,
		PlayerID:      allies[0].PlayerID,
		PlayerName:    allies[0].Name,
		Team:          0,
		ReplayKey:     fmt.Sprintf("replays/test/%d.wowsreplay", arenaID),
		FileName:      fmt.Sprintf("%d.wowsreplay", arenaID),
		FileSize:      1 << 20,
		ClientVersion: "14.11.0",
		UploadedAt:    now,
	}

	if _, err := s.PersistBundle(context.Background(), &assemble.Bundle{Match: match, Upload: upload}); err != nil {
		t.Fatalf("PersistBundle failed: %v", err)
	}
}

// buildReplayFixture assembles a minimal replay container: header,
// metadata JSON block, and a token encrypted section. ReadMetadata
// never touches the stream, so the fixture stays small.
func buildReplayFixture(t *testing.T, dateTime string, playerID int64, mapName string) []byte {
	t.Helper()

	meta, err := json.Marshal(map[string]interface{}{
		"dateTime":             dateTime,
		"playerID":             playerID,
		"mapName":              mapName,
		"playerName":           "Uploader_One",
		"clientVersionFromXml": "14, 11, 0, 0",
		"matchGroup":           "clan",
	})
	if err != nil {
		t.Fatalf("marshal metadata: %v", err)
	}

	buf := make([]byte, 12, 12+len(meta)+8)
	binary.LittleEndian.PutUint32(buf[0:4], 0x11343212)
	binary.LittleEndian.PutUint32(buf[4:8], 1)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(meta)))
	buf = append(buf, meta...)
	buf = append(buf, []byte("streambyte")...)
	return buf
}

// envelope mirrors models.APIResponse with a raw data payload for
// per-test decoding.
type envelope struct {
	Status string           `json:"status"`
	Data   json.RawMessage  `json:"data"`
	Error  *models.APIError `json:"error"`
}

func decodeEnvelope(t *testing.T, body []byte) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("decode envelope: %v\nbody: %s", err, body)
	}
	return env
}

func decodeData(t *testing.T, body []byte, dst interface{}) {
	t.Helper()
	env := decodeEnvelope(t, body)
	if env.Status != "success" {
		t.Fatalf("expected success envelope, got %q (error %+v)", env.Status, env.Error)
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v\ndata: %s", err, env.Data)
	}
}
