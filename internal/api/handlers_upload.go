// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package api

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/navarchus/internal/assemble"
	"github.com/tomtom215/navarchus/internal/blobstore"
	"github.com/tomtom215/navarchus/internal/logging"
	"github.com/tomtom215/navarchus/internal/models"
	"github.com/tomtom215/navarchus/internal/pipeline"
	"github.com/tomtom215/navarchus/internal/replay"
)

// Upload accepts one replay file as multipart form data and enqueues it
// for decoding. The response is a 201 with a provisional arena id
// derived from the plaintext metadata block; the definitive
// arenaUniqueID only exists once the pipeline decodes and persists the
// match.
//
// POST /api/upload
// Headers: X-API-Key (required), X-User-ID (optional uploader identity)
// Form fields: file (required), playerID (optional override)
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if !h.authenticateUpload(r) {
		respondError(w, http.StatusUnauthorized, codeAuth, "Invalid or missing API key", nil)
		return
	}

	maxSize := h.config.Upload.MaxSizeBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, codePayloadTooLarge,
				"Upload exceeds the size limit of "+strconv.FormatInt(maxSize, 10)+" bytes", nil)
			return
		}
		respondError(w, http.StatusBadRequest, codeValidation, "Invalid multipart form", err)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, "Missing file field", err)
		return
	}
	defer file.Close()

	if !h.allowedExtension(header.Filename) {
		respondError(w, http.StatusBadRequest, codeUnsupportedMedia, "File extension not allowed", nil)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, "Failed to read upload", err)
		return
	}

	meta, err := replay.ReadMetadata(data)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeUnsupportedMedia, "Not a parseable replay file", err)
		return
	}

	playerID := meta.PlayerID
	if raw := r.FormValue("playerID"); raw != "" {
		id, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil || id <= 0 {
			respondError(w, http.StatusBadRequest, codeValidation, "playerID must be a positive integer", nil)
			return
		}
		playerID = id
	}

	uploadedBy := strings.TrimSpace(r.Header.Get("X-User-ID"))
	tempArenaID := assemble.TempUploadKey(meta.DateTime, playerID, meta.MapName)

	owner := uploadedBy
	if owner == "" {
		owner = strconv.FormatInt(playerID, 10)
	}
	blobKey := blobstore.ReplayKey(owner, header.Filename)

	// A replay that already failed decoding is not worth re-enqueueing.
	if marker, merr := h.store.GetDecodeFailure(r.Context(), blobKey); merr == nil {
		respondJSON(w, http.StatusUnprocessableEntity, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now()},
			Error: &models.APIError{
				Code:    codeUnsupportedMedia,
				Message: "This replay previously failed to decode",
				Details: map[string]interface{}{"kind": marker.Kind},
			},
		})
		return
	}

	if _, err := h.blobs.Put(r.Context(), blobKey, bytes.NewReader(data)); err != nil {
		respondError(w, http.StatusInternalServerError, codeStore, "Failed to store replay", err)
		return
	}

	event := pipeline.NewReplayUploaded(blobKey, header.Filename, int64(len(data)), uploadedBy, time.Now().UTC())
	if err := h.publishEvent(r, event); err != nil {
		respondError(w, http.StatusServiceUnavailable, codePipeline, "Upload stored but could not be enqueued, retry later", err)
		return
	}

	logging.Info().
		Str("component", "api").
		Str("blob_key", sanitizeLogValue(blobKey)).
		Str("file_name", sanitizeLogValue(header.Filename)).
		Int("file_size", len(data)).
		Str("uploaded_by", sanitizeLogValue(uploadedBy)).
		Msg("Replay upload accepted")

	respondData(w, http.StatusCreated, models.UploadResponse{
		UploadKey:     blobKey,
		ArenaUniqueID: tempArenaID,
		Status:        "queued",
	}, 0)
}

// authenticateUpload checks X-API-Key in constant time. An empty
// configured key disables upload auth, which is only sensible behind a
// trusted proxy.
func (h *Handler) authenticateUpload(r *http.Request) bool {
	want := h.config.Upload.APIKey
	if want == "" {
		return true
	}
	got := r.Header.Get("X-API-Key")
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// allowedExtension reports whether the filename's extension is in the
// configured allow list. An empty list admits only .wowsreplay.
func (h *Handler) allowedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	allowed := h.config.Upload.AllowedExtensions
	if len(allowed) == 0 {
		return ext == ".wowsreplay"
	}
	for _, a := range allowed {
		if strings.EqualFold(ext, a) {
			return true
		}
	}
	return false
}

func (h *Handler) publishEvent(r *http.Request, event pipeline.Event) error {
	if h.publisher == nil {
		return errors.New("event pipeline is not running")
	}
	return h.publisher.PublishEvent(r.Context(), event)
}
