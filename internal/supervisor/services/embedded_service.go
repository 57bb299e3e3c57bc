// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package services

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/fieldwatch/internal/logging"
)

// EmbeddedBroker is satisfied by *transport.EmbeddedServer.
type EmbeddedBroker interface {
	IsRunning() bool
	Shutdown(ctx context.Context) error
}

// EmbeddedBrokerService owns a broker that was started before the tree:
// the transports need it reachable while they are constructed. Serve
// watches it and shuts it down when the tree stops.
type EmbeddedBrokerService struct {
	broker          EmbeddedBroker
	shutdownTimeout time.Duration
	checkInterval   time.Duration
	name            string
}

// NewEmbeddedBrokerService wraps broker.
func NewEmbeddedBrokerService(broker EmbeddedBroker, shutdownTimeout time.Duration) *EmbeddedBrokerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &EmbeddedBrokerService{
		broker:          broker,
		shutdownTimeout: shutdownTimeout,
		checkInterval:   time.Second,
		name:            "embedded-nats",
	}
}

// Serve implements suture.Service. A broker that stops by itself cannot be
// restarted in place, so the service reports ErrDoNotRestart.
func (s *EmbeddedBrokerService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			err := s.broker.Shutdown(shutdownCtx)
			cancel()
			if err != nil {
				logging.Warn().Err(err).Msg("Embedded NATS server shutdown incomplete")
			}
			return ctx.Err()

		case <-ticker.C:
			if !s.broker.IsRunning() {
				logging.Error().Msg("Embedded NATS server stopped unexpectedly")
				return suture.ErrDoNotRestart
			}
		}
	}
}

func (s *EmbeddedBrokerService) String() string {
	return s.name
}
