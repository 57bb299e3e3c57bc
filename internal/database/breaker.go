// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package database

import (
	"math"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/fieldwatch/internal/config"
	"github.com/tomtom215/fieldwatch/internal/metrics"
)

// newInsertBreaker builds the breaker guarding Insert. A disabled breaker
// is configured never to trip so callers need no special casing.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func newInsertBreaker(cfg config.BreakerConfig, log zerolog.Logger) *gobreaker.CircuitBreaker[struct{}] {
	threshold := cfg.ConsecutiveFailures
	if !cfg.Enabled || threshold == 0 {
		threshold = math.MaxUint32
	}

	settings := gobreaker.Settings{
		Name:        "store-insert",
		MaxRequests: cfg.HalfOpenRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.StoreBreakerState.Set(breakerStateValue(to))
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Store circuit breaker state changed")
		},
	}
	return gobreaker.NewCircuitBreaker[struct{}](settings)
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
