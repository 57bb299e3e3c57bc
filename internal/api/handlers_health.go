// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/fieldwatch/internal/database"
	"github.com/tomtom215/fieldwatch/internal/ingest"
	"github.com/tomtom215/fieldwatch/internal/models"
	"github.com/tomtom215/fieldwatch/internal/transport"
)

// healthReport is the /api/v1/health payload.
type healthReport struct {
	models.HealthStatus
	Ingest *ingest.Stats `json:"ingest,omitempty"`
}

// Liveness serves GET /health in the dashboard's shape.
func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Health serves GET /api/v1/health. The service is degraded when either
// the Store or the transport is down; the status code stays 200.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	store := h.storeStatus(r)
	state := h.transportState()

	report := healthReport{
		HealthStatus: models.HealthStatus{
			Status:          "healthy",
			Version:         Version,
			TransportState:  string(state),
			TransportUp:     state == transport.StateConnected,
			StoreAvailable:  store.Available,
			StoreBreaker:    store.Breaker,
			LiveSubscribers: h.subscriberCount(),
			Uptime:          time.Since(h.startTime).Seconds(),
		},
	}
	if !report.StoreAvailable || !report.TransportUp {
		report.Status = "degraded"
	}
	if h.ingest != nil {
		stats := h.ingest.Stats()
		report.Ingest = &stats
	}

	NewResponseWriter(w, r).Success(report)
}

// HealthLive serves GET /api/v1/health/live.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]any{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady serves GET /api/v1/health/ready. It answers 503 until the
// Store is reachable. A disconnected transport does not make the service
// unready because history queries still work.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	store := h.storeStatus(r)
	state := h.transportState()

	data := map[string]any{
		"store_available":     store.Available,
		"transport_connected": state == transport.StateConnected,
		"ready_to_serve":      store.Available,
	}
	if !store.Available {
		NewResponseWriter(w, r).ErrorWithDetails(http.StatusServiceUnavailable,
			ErrCodeServiceUnavailable, "Store unavailable", data)
		return
	}
	NewResponseWriter(w, r).Success(data)
}

func (h *Handler) storeStatus(r *http.Request) database.Status {
	if h.store == nil {
		return database.Status{Available: false, Error: "store not configured"}
	}
	return h.store.Status(r.Context())
}

func (h *Handler) transportState() transport.State {
	if h.transport == nil {
		return transport.StateDisconnected
	}
	return h.transport.Status()
}

func (h *Handler) subscriberCount() int {
	if h.hub == nil {
		return 0
	}
	return h.hub.SubscriberCount()
}
