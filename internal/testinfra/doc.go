// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

// Package testinfra starts real dependencies in Docker for integration
// tests, using testcontainers-go.
//
// Everything here is behind the integration build tag:
//
//	go test -tags integration ./...
//
// PostgresContainer backs the Store's postgres driver and
// MosquittoContainer is an external MQTT broker for the transport adapter.
// Tests call SkipIfNoDocker first so they skip cleanly on machines without
// a Docker daemon.
//
//	pg, err := testinfra.NewPostgresContainer(ctx)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer testinfra.CleanupContainer(t, ctx, pg)
//
//	db, err := database.New(&config.DatabaseConfig{Driver: "postgres", DSN: pg.DSN})
package testinfra
