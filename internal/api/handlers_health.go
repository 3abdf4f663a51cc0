// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package api

import (
	"net/http"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/navarchus/internal/models"
)

// HealthLive is the liveness probe. It answers as long as the process
// serves HTTP, regardless of dependency state.
//
// GET /api/v1/health/live
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "alive"}, 0)
}

// HealthReady is the readiness probe: the store and blob store must
// both answer before the instance takes traffic.
//
// GET /api/v1/health/ready
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ready := map[string]bool{
		"store":      h.storeConnected(),
		"blob_store": h.blobStoreWritable(r),
	}
	for _, ok := range ready {
		if !ok {
			respondData(w, http.StatusServiceUnavailable, ready, 0)
			return
		}
	}
	respondData(w, http.StatusOK, ready, 0)
}

// Health reports the component summary used by dashboards.
//
// GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatus{
		Status:             "healthy",
		Version:            Version,
		StoreConnected:     h.storeConnected(),
		NATSConnected:      h.natsConnected(r),
		BlobStoreWritable:  h.blobStoreWritable(r),
		AnalyticsConnected: h.analyticsConnected(r),
		Uptime:             time.Since(h.startTime).Seconds(),
	}
	code := http.StatusOK
	if !status.StoreConnected || !status.BlobStoreWritable {
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	} else if !status.NATSConnected {
		status.Status = "degraded"
	}
	respondData(w, code, status, 0)
}

// HealthNATS reports per-component health of the event pipeline.
//
// GET /api/v1/health/nats
func (h *Handler) HealthNATS(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		respondError(w, http.StatusServiceUnavailable, codePipeline, "Event pipeline is not running", nil)
		return
	}
	overall := h.health.CheckAll(r.Context())
	code := http.StatusOK
	if !overall.Healthy {
		code = http.StatusServiceUnavailable
	}
	respondData(w, code, overall, 0)
}

func (h *Handler) storeConnected() bool {
	if h.store == nil {
		return false
	}
	return h.store.DB().View(func(*badger.Txn) error { return nil }) == nil
}

func (h *Handler) blobStoreWritable(r *http.Request) bool {
	if h.blobs == nil {
		return false
	}
	return h.blobs.Healthy(r.Context()) == nil
}

func (h *Handler) natsConnected(r *http.Request) bool {
	if h.health == nil {
		return false
	}
	return h.health.CheckAll(r.Context()).Healthy
}

func (h *Handler) analyticsConnected(r *http.Request) bool {
	if h.analytics == nil {
		return false
	}
	return h.analytics.Ping(r.Context()) == nil
}
