// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/fieldwatch/internal/ingest"
	"github.com/tomtom215/fieldwatch/internal/logging"
)

// IngestRunner is satisfied by *ingest.Subscriber.
type IngestRunner interface {
	Serve(ctx context.Context) error
}

// IngestService supervises the ingestion subscriber. Subscribe failures
// are returned so suture retries with backoff. A closed transport cannot
// come back, so that case stops the service for good.
type IngestService struct {
	runner IngestRunner
	name   string
}

// NewIngestService wraps runner.
func NewIngestService(runner IngestRunner) *IngestService {
	return &IngestService{runner: runner, name: "ingest-subscriber"}
}

// Serve implements suture.Service.
func (s *IngestService) Serve(ctx context.Context) error {
	err := s.runner.Serve(ctx)
	switch {
	case err == nil, ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, ingest.ErrSourceClosed):
		logging.Warn().Err(err).Msg("Ingest transport closed; not restarting subscriber")
		return suture.ErrDoNotRestart
	default:
		return fmt.Errorf("ingest subscriber failed: %w", err)
	}
}

func (s *IngestService) String() string {
	return s.name
}
