// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package api

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/navarchus/internal/assemble"
	"github.com/tomtom215/navarchus/internal/models"
	"github.com/tomtom215/navarchus/internal/pipeline"
)

func multipartBody(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func postUpload(env *testEnv, body *bytes.Buffer, contentType, apiKey, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func TestUploadAccepted(t *testing.T) {
	env := newTestEnv(t)

	const dateTime = "04.01.2026 21:56:55"
	fixture := buildReplayFixture(t, dateTime, 523062124, "18_NE_ice_islands")
	body, contentType := multipartBody(t, "battle.wowsreplay", fixture)

	rec := postUpload(env, body, contentType, "test-api-key", "discord-123")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201\nbody: %s", rec.Code, rec.Body.String())
	}

	var resp models.UploadResponse
	decodeData(t, rec.Body.Bytes(), &resp)

	wantKey := "replays/discord-123/battle.wowsreplay"
	if resp.UploadKey != wantKey {
		t.Errorf("UploadKey = %q, want %q", resp.UploadKey, wantKey)
	}
	wantArena := assemble.TempUploadKey(dateTime, 523062124, "18_NE_ice_islands")
	if resp.ArenaUniqueID != wantArena {
		t.Errorf("ArenaUniqueID = %q, want %q", resp.ArenaUniqueID, wantArena)
	}
	if resp.Status != "queued" {
		t.Errorf("Status = %q, want queued", resp.Status)
	}

	exists, err := env.blobs.Exists(context.Background(), wantKey)
	if err != nil || !exists {
		t.Errorf("blob %q stored = %v (err %v), want true", wantKey, exists, err)
	}

	events := env.publisher.published()
	if len(events) != 1 {
		t.Fatalf("published %d events, want 1", len(events))
	}
	uploaded, ok := events[0].(*pipeline.ReplayUploaded)
	if !ok {
		t.Fatalf("published event is %T, want *pipeline.ReplayUploaded", events[0])
	}
	if uploaded.ReplayKey != wantKey {
		t.Errorf("event ReplayKey = %q, want %q", uploaded.ReplayKey, wantKey)
	}
	if uploaded.FileName != "battle.wowsreplay" {
		t.Errorf("event FileName = %q", uploaded.FileName)
	}
	if uploaded.UploadedBy != "discord-123" {
		t.Errorf("event UploadedBy = %q", uploaded.UploadedBy)
	}
}

func TestUploadRequiresAPIKey(t *testing.T) {
	env := newTestEnv(t)

	fixture := buildReplayFixture(t, "04.01.2026 21:56:55", 1, "18_NE_ice_islands")
	body, contentType := multipartBody(t, "battle.wowsreplay", fixture)

	rec := postUpload(env, body, contentType, "wrong-key", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	env2 := decodeEnvelope(t, rec.Body.Bytes())
	if env2.Error == nil || env2.Error.Code != codeAuth {
		t.Errorf("error = %+v, want code %s", env2.Error, codeAuth)
	}
	if len(env.publisher.published()) != 0 {
		t.Error("rejected upload must not publish events")
	}
}

func TestUploadRejectsExtension(t *testing.T) {
	env := newTestEnv(t)

	fixture := buildReplayFixture(t, "04.01.2026 21:56:55", 1, "18_NE_ice_islands")
	body, contentType := multipartBody(t, "battle.zip", fixture)

	rec := postUpload(env, body, contentType, "test-api-key", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	env2 := decodeEnvelope(t, rec.Body.Bytes())
	if env2.Error == nil || env2.Error.Code != codeUnsupportedMedia {
		t.Errorf("error = %+v, want code %s", env2.Error, codeUnsupportedMedia)
	}
}

func TestUploadRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartBody(t, "battle.wowsreplay", []byte("not a replay"))

	rec := postUpload(env, body, contentType, "test-api-key", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400\nbody: %s", rec.Code, rec.Body.String())
	}
	env2 := decodeEnvelope(t, rec.Body.Bytes())
	if env2.Error == nil || env2.Error.Code != codeUnsupportedMedia {
		t.Errorf("error = %+v, want code %s", env2.Error, codeUnsupportedMedia)
	}
}

func TestUploadRejectsOversize(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Upload.MaxSizeBytes = 1024

	fixture := buildReplayFixture(t, "04.01.2026 21:56:55", 1, "18_NE_ice_islands")
	fixture = append(fixture, make([]byte, 8192)...)
	body, contentType := multipartBody(t, "battle.wowsreplay", fixture)

	rec := postUpload(env, body, contentType, "test-api-key", "")
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413\nbody: %s", rec.Code, rec.Body.String())
	}
}

func TestUploadRefusesKnownDecodeFailure(t *testing.T) {
	env := newTestEnv(t)

	blobKey := "replays/discord-123/battle.wowsreplay"
	err := env.store.PutDecodeFailure(context.Background(), models.DecodeFailureMarker{
		UploadKey: blobKey,
		Kind:      "decrypt_failure",
		FailedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("PutDecodeFailure failed: %v", err)
	}

	fixture := buildReplayFixture(t, "04.01.2026 21:56:55", 1, "18_NE_ice_islands")
	body, contentType := multipartBody(t, "battle.wowsreplay", fixture)

	rec := postUpload(env, body, contentType, "test-api-key", "discord-123")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422\nbody: %s", rec.Code, rec.Body.String())
	}
	if len(env.publisher.published()) != 0 {
		t.Error("known-bad upload must not publish events")
	}
}

func TestUploadPublishFailure(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.err = errors.New("nats unavailable")

	fixture := buildReplayFixture(t, "04.01.2026 21:56:55", 77, "18_NE_ice_islands")
	body, contentType := multipartBody(t, "battle.wowsreplay", fixture)

	rec := postUpload(env, body, contentType, "test-api-key", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503\nbody: %s", rec.Code, rec.Body.String())
	}

	// The blob write precedes the publish and sticks around for retry.
	exists, err := env.blobs.Exists(context.Background(), "replays/77/battle.wowsreplay")
	if err != nil || !exists {
		t.Errorf("blob stored = %v (err %v), want true", exists, err)
	}
}
