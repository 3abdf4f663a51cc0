// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/navarchus/internal/logging"
	"github.com/tomtom215/navarchus/internal/models"
	"github.com/tomtom215/navarchus/internal/pipeline"
	"github.com/tomtom215/navarchus/internal/query"
	"github.com/tomtom215/navarchus/internal/store"
)

// Search runs a filtered match search with cursor pagination.
//
// POST /api/search
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req query.SearchRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now()},
			Error:    apiErr,
		})
		return
	}

	start := time.Now()
	result, err := h.gateway.Search(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeStore, "Search failed", err)
		return
	}

	respondData(w, http.StatusOK, result, time.Since(start))
}

// MatchDetail returns the merged match view: MATCH record, per-player
// replay downloads with signed URLs, and signed video URLs when
// rendered.
//
// GET /api/match/{arenaUniqueID}
func (h *Handler) MatchDetail(w http.ResponseWriter, r *http.Request) {
	arenaID := arenaIDParam(w, r)
	if arenaID == 0 {
		return
	}

	start := time.Now()
	detail, err := h.gateway.MatchDetail(r.Context(), arenaID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, codeNotFound, "Match not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, codeStore, "Failed to load match", err)
		return
	}

	respondData(w, http.StatusOK, detail, time.Since(start))
}

// MatchStats returns the shared STATS record of a match.
//
// GET /api/match/{arenaUniqueID}/stats
func (h *Handler) MatchStats(w http.ResponseWriter, r *http.Request) {
	arenaID := arenaIDParam(w, r)
	if arenaID == 0 {
		return
	}

	start := time.Now()
	stats, err := h.gateway.MatchStats(r.Context(), arenaID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, codeNotFound, "Match has no stats record", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, codeStore, "Failed to load stats", err)
		return
	}

	respondData(w, http.StatusOK, stats, time.Since(start))
}

// generateVideoRequest is the body for POST /api/generate-video.
type generateVideoRequest struct {
	ArenaUniqueID int64 `json:"arena_unique_id" validate:"required,min=1"`
	PlayerID      int64 `json:"player_id,omitempty" validate:"omitempty,min=1"`
	Dual          bool  `json:"dual,omitempty"`
}

// GenerateVideo enqueues a minimap render for a match, or returns the
// signed URL of an already rendered video. The operation is idempotent:
// re-requesting a rendered match never re-renders it.
//
// POST /api/generate-video
func (h *Handler) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	var req generateVideoRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now()},
			Error:    apiErr,
		})
		return
	}

	match, err := h.store.FindMatch(r.Context(), req.ArenaUniqueID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, codeNotFound, "Match not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, codeStore, "Failed to load match", err)
		return
	}

	existingKey := match.MP4Key
	if req.Dual {
		existingKey = match.DualMP4Key
	}
	if existingKey != "" {
		respondData(w, http.StatusOK, models.GenerateVideoResponse{
			Status:   models.VideoStatusAlreadyExists,
			VideoURL: h.signBlobURL(existingKey),
		}, 0)
		return
	}

	uploads, err := h.store.GetUploads(r.Context(), match.GameType, match.ArenaUniqueID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeStore, "Failed to load uploads", err)
		return
	}

	job, err := pipeline.BuildRenderRequest(match, uploads)
	if err != nil {
		respondError(w, http.StatusConflict, codeValidation, "No uploaded replay available to render", err)
		return
	}

	// The requested perspective wins over the pinned default when that
	// player actually uploaded a replay.
	if req.PlayerID != 0 {
		if up := uploadFor(uploads, req.PlayerID); up != nil {
			job.ReplayKeys[0] = up.ReplayKey
		}
	}
	if !req.Dual {
		job.Dual = false
		job.ReplayKeys = job.ReplayKeys[:1]
	} else if !job.Dual {
		respondError(w, http.StatusConflict, codeValidation, "Dual render needs uploads from both teams", nil)
		return
	}

	if err := h.publishEvent(r, job); err != nil {
		respondError(w, http.StatusServiceUnavailable, codePipeline, "Render could not be enqueued, retry later", err)
		return
	}

	logging.Info().
		Str("component", "api").
		Int64("arena_unique_id", match.ArenaUniqueID).
		Bool("dual", job.Dual).
		Msg("Render enqueued")

	respondData(w, http.StatusAccepted, models.GenerateVideoResponse{
		Status: models.VideoStatusGenerating,
	}, 0)
}

func uploadFor(uploads []models.UploadRecord, playerID int64) *models.UploadRecord {
	for i := range uploads {
		if uploads[i].PlayerID == playerID {
			return &uploads[i]
		}
	}
	return nil
}

// signBlobURL turns a blob key into a short-lived download URL. Errors
// degrade to an empty URL rather than failing the request.
func (h *Handler) signBlobURL(blobKey string) string {
	if h.signer == nil || blobKey == "" {
		return ""
	}
	token, err := h.signer.Sign(blobKey)
	if err != nil {
		logging.Warn().Err(err).Str("blob_key", sanitizeLogValue(blobKey)).Msg("Failed to sign blob URL")
		return ""
	}
	return "/blob/" + token
}
