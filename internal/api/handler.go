// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package api

import (
	"context"
	"time"

	"github.com/tomtom215/fieldwatch/internal/config"
	"github.com/tomtom215/fieldwatch/internal/database"
	"github.com/tomtom215/fieldwatch/internal/ingest"
	"github.com/tomtom215/fieldwatch/internal/models"
	"github.com/tomtom215/fieldwatch/internal/transport"
	ws "github.com/tomtom215/fieldwatch/internal/websocket"
)

// Version is reported by the health endpoint. It is set at build time.
var Version = "dev"

// QueryEngine answers history queries.
type QueryEngine interface {
	History(ctx context.Context, deviceID string, limit int) ([]models.Reading, error)
	Monthly(ctx context.Context, deviceID string) ([]models.MonthBucket, error)
	Daily(ctx context.Context, deviceID string, year, month int) ([]models.DayBucket, error)
	Day(ctx context.Context, deviceID string, year, month, day int) ([]models.Reading, error)
}

// StoreStatus reports Store availability.
type StoreStatus interface {
	Status(ctx context.Context) database.Status
}

// TransportStatus reports the message transport connection state.
type TransportStatus interface {
	Status() transport.State
}

// IngestStats reports ingestion counters.
type IngestStats interface {
	Stats() ingest.Stats
}

// Dependencies are the collaborators the handlers read from. Transport and
// Ingest may be nil.
type Dependencies struct {
	Engine    QueryEngine
	Store     StoreStatus
	Transport TransportStatus
	Ingest    IngestStats
	Hub       *ws.Hub
}

// Handler holds the HTTP handlers.
type Handler struct {
	engine    QueryEngine
	store     StoreStatus
	transport TransportStatus
	ingest    IngestStats
	hub       *ws.Hub
	cfg       config.ServerConfig
	origins   []string
	startTime time.Time
}

// NewHandler creates a Handler.
func NewHandler(deps Dependencies, cfg config.ServerConfig) *Handler {
	if cfg.DefaultDeviceID == "" {
		cfg.DefaultDeviceID = config.DefaultDeviceID
	}
	return &Handler{
		engine:    deps.Engine,
		store:     deps.Store,
		transport: deps.Transport,
		ingest:    deps.Ingest,
		hub:       deps.Hub,
		cfg:       cfg,
		origins:   cfg.CORSOrigins,
		startTime: time.Now(),
	}
}
