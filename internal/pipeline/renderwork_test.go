// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/navarchus/internal/blobstore"
	"github.com/tomtom215/navarchus/internal/models"
	"github.com/tomtom215/navarchus/internal/render"
	"github.com/tomtom215/navarchus/internal/replay"
	"github.com/tomtom215/navarchus/internal/store"
)

const renderArenaID = 7598531900003333

type stubRenderer struct {
	key string
	err error

	singleCalls int
	dualCalls   int
	gotGreenTag string
	gotRedTag   string
}

func (r *stubRenderer) RenderSingle(ctx context.Context, decoded *replay.DecodedReplay, arenaUniqueID int64) (string, error) {
	r.singleCalls++
	if r.err != nil {
		return "", r.err
	}
	return r.key, nil
}

func (r *stubRenderer) RenderDual(ctx context.Context, green, red *replay.DecodedReplay, greenTag, redTag string, arenaUniqueID int64) (string, error) {
	r.dualCalls++
	r.gotGreenTag = greenTag
	r.gotRedTag = redTag
	if r.err != nil {
		return "", r.err
	}
	return r.key, nil
}

type stubRenderStore struct {
	match  *models.MatchRecord
	getErr error

	setErr      error
	videoKey    string
	dualKey     string
	setCalls    int
	setDualCall int
}

func (s *stubRenderStore) GetMatch(ctx context.Context, gameType string, arenaID int64) (*models.MatchRecord, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.match, nil
}

func (s *stubRenderStore) SetVideo(ctx context.Context, arenaID int64, videoKey string, generatedAt time.Time) (*models.MatchRecord, error) {
	s.setCalls++
	if s.setErr != nil {
		return nil, s.setErr
	}
	s.videoKey = videoKey
	return s.match, nil
}

func (s *stubRenderStore) SetDualVideo(ctx context.Context, arenaID int64, videoKey string, generatedAt time.Time) (*models.MatchRecord, error) {
	s.setDualCall++
	if s.setErr != nil {
		return nil, s.setErr
	}
	s.dualKey = videoKey
	return s.match, nil
}

type renderFixture struct {
	renderer  *stubRenderer
	decoder   *stubDecoder
	blobs     *stubBlobStore
	store     *stubRenderStore
	publisher *stubPublisher
	worker    *RenderWorker
}

func newRenderFixture(t *testing.T) *renderFixture {
	t.Helper()

	f := &renderFixture{
		renderer: &stubRenderer{key: blobstore.VideoKey(renderArenaID, false)},
		decoder:  &stubDecoder{decoded: &replay.DecodedReplay{ClientVersion: "14.10.0"}},
		blobs: &stubBlobStore{blobs: map[string][]byte{
			"replays/discord~611001/green.wowsreplay": []byte("green"),
			"replays/discord~611003/red.wowsreplay":   []byte("red"),
		}},
		store: &stubRenderStore{match: &models.MatchRecord{
			ArenaUniqueID:    renderArenaID,
			GameType:         "clan",
			AllyMainClanTag:  "OZEKI",
			EnemyMainClanTag: "FOE",
		}},
		publisher: &stubPublisher{},
	}

	worker, err := NewRenderWorker(RenderDeps{
		Renderer:  f.renderer,
		Decoder:   f.decoder,
		Blobs:     f.blobs,
		Store:     f.store,
		Publisher: f.publisher,
	}, RenderWorkerConfig{DecodeTimeout: 5 * time.Second, RenderTimeout: 30 * time.Second}, watermill.NopLogger{})
	if err != nil {
		t.Fatalf("NewRenderWorker() error = %v", err)
	}
	f.worker = worker
	return f
}

func renderMessage(t *testing.T, dual bool) *message.Message {
	t.Helper()
	keys := []string{"replays/discord~611001/green.wowsreplay"}
	if dual {
		keys = append(keys, "replays/discord~611003/red.wowsreplay")
	}
	event := &RenderRequested{
		Envelope:      newEnvelope(),
		ArenaUniqueID: renderArenaID,
		GameType:      "clan",
		Dual:          dual,
		ReplayKeys:    keys,
	}
	data, err := MarshalEvent(event)
	if err != nil {
		t.Fatalf("MarshalEvent() error = %v", err)
	}
	return message.NewMessage(event.ID(), data)
}

func TestRenderWorkerSingle(t *testing.T) {
	f := newRenderFixture(t)

	if err := f.worker.Handle(renderMessage(t, false)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if f.renderer.singleCalls != 1 {
		t.Errorf("RenderSingle calls = %d, want 1", f.renderer.singleCalls)
	}
	if f.renderer.dualCalls != 0 {
		t.Errorf("RenderDual calls = %d, want 0", f.renderer.dualCalls)
	}
	if f.store.videoKey != blobstore.VideoKey(renderArenaID, false) {
		t.Errorf("SetVideo key = %q, want %q", f.store.videoKey, blobstore.VideoKey(renderArenaID, false))
	}

	completed := f.publisher.byTopic(TopicRenderCompleted)
	if len(completed) != 1 {
		t.Fatalf("render.completed events = %d, want 1", len(completed))
	}
	ce := completed[0].(*RenderCompleted)
	if ce.VideoKey != f.store.videoKey {
		t.Errorf("event video key = %q, want %q", ce.VideoKey, f.store.videoKey)
	}
	if ce.Dual {
		t.Error("Dual = true, want false")
	}
}

func TestRenderWorkerDualPassesClanTags(t *testing.T) {
	f := newRenderFixture(t)
	f.renderer.key = blobstore.VideoKey(renderArenaID, true)

	if err := f.worker.Handle(renderMessage(t, true)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if f.renderer.dualCalls != 1 {
		t.Fatalf("RenderDual calls = %d, want 1", f.renderer.dualCalls)
	}
	if f.renderer.gotGreenTag != "OZEKI" || f.renderer.gotRedTag != "FOE" {
		t.Errorf("clan tags = %q/%q, want OZEKI/FOE", f.renderer.gotGreenTag, f.renderer.gotRedTag)
	}
	if f.store.setDualCall != 1 {
		t.Errorf("SetDualVideo calls = %d, want 1", f.store.setDualCall)
	}
	if f.store.setCalls != 0 {
		t.Errorf("SetVideo calls = %d, want 0 for dual job", f.store.setCalls)
	}
	if f.decoder.calls != 2 {
		t.Errorf("Decode calls = %d, want 2 for dual job", f.decoder.calls)
	}
}

func TestRenderWorkerSkipsWhenAlreadyRendered(t *testing.T) {
	f := newRenderFixture(t)
	f.store.match.MP4Key = blobstore.VideoKey(renderArenaID, false)

	if err := f.worker.Handle(renderMessage(t, false)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if f.renderer.singleCalls != 0 {
		t.Errorf("RenderSingle calls = %d, want 0", f.renderer.singleCalls)
	}
	if got := f.worker.Stats().Skipped; got != 1 {
		t.Errorf("Stats().Skipped = %d, want 1", got)
	}
}

func TestRenderWorkerRecoversOrphanedVideo(t *testing.T) {
	f := newRenderFixture(t)
	orphanKey := blobstore.VideoKey(renderArenaID, false)
	f.blobs.blobs[orphanKey] = []byte("mp4")

	if err := f.worker.Handle(renderMessage(t, false)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if f.renderer.singleCalls != 0 {
		t.Errorf("RenderSingle calls = %d, want 0 when video blob already exists", f.renderer.singleCalls)
	}
	if f.store.videoKey != orphanKey {
		t.Errorf("SetVideo key = %q, want %q", f.store.videoKey, orphanKey)
	}
	if got := len(f.publisher.byTopic(TopicRenderCompleted)); got != 1 {
		t.Errorf("render.completed events = %d, want 1", got)
	}
}

func TestRenderWorkerFailureRouting(t *testing.T) {
	tests := []struct {
		name          string
		renderErr     error
		wantErr       bool
		wantRetryable bool
	}{
		{
			name:      "terminal render failure acknowledges",
			renderErr: fmt.Errorf("%w: encoder exited", render.ErrRenderFailure),
		},
		{
			name:      "timeout acknowledges",
			renderErr: context.DeadlineExceeded,
		},
		{
			name:          "shutdown cancellation retries",
			renderErr:     context.Canceled,
			wantErr:       true,
			wantRetryable: true,
		},
		{
			name:          "blob write failure retries",
			renderErr:     fmt.Errorf("store video videos/x: %w", errors.New("disk full")),
			wantErr:       true,
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRenderFixture(t)
			f.renderer.err = tt.renderErr

			err := f.worker.Handle(renderMessage(t, false))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Handle() error = %v, wantErr=%v", err, tt.wantErr)
			}
			if tt.wantRetryable && !IsRetryableError(err) {
				t.Errorf("IsRetryableError() = false for %v", err)
			}
			if f.store.setCalls != 0 {
				t.Errorf("SetVideo calls = %d, want 0 after render failure", f.store.setCalls)
			}
			if got := len(f.publisher.byTopic(TopicRenderCompleted)); got != 0 {
				t.Errorf("render.completed events = %d, want 0", got)
			}
		})
	}
}

func TestRenderWorkerStoreFailureIsRetryable(t *testing.T) {
	f := newRenderFixture(t)
	f.store.setErr = errors.New("store closed")

	err := f.worker.Handle(renderMessage(t, false))
	if err == nil {
		t.Fatal("Handle() = nil, want error")
	}
	if !IsRetryableError(err) {
		t.Errorf("IsRetryableError() = false for %v", err)
	}
}

func TestRenderWorkerMissingMatchIsPermanent(t *testing.T) {
	f := newRenderFixture(t)
	f.store.getErr = store.ErrNotFound

	err := f.worker.Handle(renderMessage(t, false))
	if err == nil {
		t.Fatal("Handle() = nil, want error")
	}
	if !IsPermanentError(err) {
		t.Errorf("IsPermanentError() = false for %v", err)
	}
}

func TestRenderWorkerMissingSourceIsPermanent(t *testing.T) {
	f := newRenderFixture(t)
	delete(f.blobs.blobs, "replays/discord~611001/green.wowsreplay")

	err := f.worker.Handle(renderMessage(t, false))
	if err == nil {
		t.Fatal("Handle() = nil, want error")
	}
	if !IsPermanentError(err) {
		t.Errorf("IsPermanentError() = false for %v", err)
	}
	if f.renderer.singleCalls != 0 {
		t.Errorf("RenderSingle calls = %d, want 0", f.renderer.singleCalls)
	}
}

func TestRenderWorkerBadPayloadIsPermanent(t *testing.T) {
	f := newRenderFixture(t)

	err := f.worker.Handle(message.NewMessage(watermill.NewUUID(), []byte("nope")))
	if err == nil {
		t.Fatal("Handle() = nil, want error")
	}
	if !IsPermanentError(err) {
		t.Errorf("IsPermanentError() = false for %v", err)
	}
}
