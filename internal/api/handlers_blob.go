// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package api

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/tomtom215/navarchus/internal/blobstore"
	"github.com/tomtom215/navarchus/internal/logging"
)

// BlobDownload streams a blob addressed by a signed token. The token is
// the only credential: whoever holds a fresh one can download exactly
// the blob it was signed for.
//
// GET /blob/{token}
func (h *Handler) BlobDownload(w http.ResponseWriter, r *http.Request) {
	if h.signer == nil || h.blobs == nil {
		respondError(w, http.StatusNotFound, codeNotFound, "Blob downloads are not configured", nil)
		return
	}

	token := r.PathValue("token")
	blobKey, err := h.signer.Verify(token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, codeAuth, "Invalid or expired download token", err)
		return
	}

	rc, err := h.blobs.Get(r.Context(), blobKey)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			respondError(w, http.StatusNotFound, codeNotFound, "Blob no longer exists", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, codeStore, "Failed to open blob", err)
		return
	}
	defer rc.Close()

	name := path.Base(blobKey)
	w.Header().Set("Content-Type", blobContentType(name))
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if _, err := io.Copy(w, rc); err != nil {
		// Client disconnects are routine here, video downloads are large.
		logging.Debug().Err(err).Str("blob_key", sanitizeLogValue(blobKey)).Msg("Blob download aborted")
	}
}

func blobContentType(name string) string {
	switch {
	case strings.HasSuffix(name, ".mp4"):
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}
