// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/tomtom215/fieldwatch/internal/config"
	"github.com/tomtom215/fieldwatch/internal/database"
	"github.com/tomtom215/fieldwatch/internal/ingest"
	"github.com/tomtom215/fieldwatch/internal/transport"
)

func TestLiveness(t *testing.T) {
	env := newTestEnv(t, withStoreStatus(database.Status{Available: false}))

	rec := env.get(t, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"status":"ok"}` {
		t.Errorf("body = %s", got)
	}
}

func TestHealthDetail(t *testing.T) {
	tests := []struct {
		name       string
		store      database.Status
		state      transport.State
		wantStatus string
	}{
		{"all up", database.Status{Available: true, Breaker: "closed"}, transport.StateConnected, "healthy"},
		{"store down", database.Status{Available: false, Breaker: "open"}, transport.StateConnected, "degraded"},
		{"transport down", database.Status{Available: true, Breaker: "closed"}, transport.StateDisconnected, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, withStoreStatus(tt.store), withTransport(tt.state))
			sub := env.hub.Subscribe()
			defer env.hub.Unsubscribe(sub)

			rec := env.get(t, "/api/v1/health")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}

			var resp struct {
				Success bool         `json:"success"`
				Data    healthReport `json:"data"`
			}
			decodeBody(t, rec, &resp)
			if resp.Data.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", resp.Data.Status, tt.wantStatus)
			}
			if resp.Data.TransportState != string(tt.state) {
				t.Errorf("transport_state = %q, want %q", resp.Data.TransportState, tt.state)
			}
			if resp.Data.StoreAvailable != tt.store.Available || resp.Data.StoreBreaker != tt.store.Breaker {
				t.Errorf("store fields = %v/%q", resp.Data.StoreAvailable, resp.Data.StoreBreaker)
			}
			if resp.Data.LiveSubscribers != 1 {
				t.Errorf("live_subscribers = %d, want 1", resp.Data.LiveSubscribers)
			}
			if resp.Data.Ingest != nil {
				t.Errorf("ingest = %+v, want omitted", resp.Data.Ingest)
			}
		})
	}
}

func TestHealthIncludesIngestStats(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies, _ *config.ServerConfig) {
		d.Ingest = fakeIngest{stats: ingest.Stats{Received: 10, DecodeErrors: 2, Stored: 7, StoreFailures: 1}}
	})

	var resp struct {
		Data healthReport `json:"data"`
	}
	decodeBody(t, env.get(t, "/api/v1/health"), &resp)
	if resp.Data.Ingest == nil || resp.Data.Ingest.Stored != 7 || resp.Data.Ingest.DecodeErrors != 2 {
		t.Errorf("ingest = %+v", resp.Data.Ingest)
	}
}

func TestHealthWithoutTransport(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies, _ *config.ServerConfig) { d.Transport = nil })

	var resp struct {
		Data healthReport `json:"data"`
	}
	decodeBody(t, env.get(t, "/api/v1/health"), &resp)
	if resp.Data.TransportUp || resp.Data.TransportState != string(transport.StateDisconnected) {
		t.Errorf("transport fields = %v/%q", resp.Data.TransportUp, resp.Data.TransportState)
	}
}

func TestHealthLive(t *testing.T) {
	env := newTestEnv(t)
	rec := env.get(t, "/api/v1/health/live")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp APIResponse
	decodeBody(t, rec, &resp)
	data, ok := resp.Data.(map[string]any)
	if !ok || data["alive"] != true {
		t.Errorf("data = %v", resp.Data)
	}
}

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name     string
		store    database.Status
		state    transport.State
		wantCode int
	}{
		{"ready", database.Status{Available: true}, transport.StateConnected, http.StatusOK},
		{"ready without transport", database.Status{Available: true}, transport.StateDisconnected, http.StatusOK},
		{"store unavailable", database.Status{Available: false, Error: "closed"}, transport.StateConnected, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, withStoreStatus(tt.store), withTransport(tt.state))
			rec := env.get(t, "/api/v1/health/ready")
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestHealthReadyWithoutStore(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies, _ *config.ServerConfig) { d.Store = nil })
	if rec := env.get(t, "/api/v1/health/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
