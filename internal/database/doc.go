// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

/*
Package database is the durable Store for sensor readings.

Two drivers share one schema and one SQL dialect:

  - duckdb (default): embedded DuckDB file or ":memory:"
  - postgres: PostgreSQL via lib/pq, the database used by earlier deployments

The sensor_data table is append-only. Insert is the only mutation; there is
no update or delete path and no uniqueness constraint, so a reading delivered
twice by the transport is stored twice.

Query shapes:

  - QueryRawLatest: newest N readings for a device, returned oldest first
  - QueryMonthly: per-month averages over the 12 most recent months with data
  - QueryDaily: per-day averages within one month
  - QueryDay: every reading within one day

Buckets are computed in UTC from the reading's event timestamp. Averages of
a field with no contributing values are returned as nil.

Inserts pass through a circuit breaker. When the store keeps failing, the
breaker opens and inserts fail fast with ErrStoreUnavailable until the open
timeout elapses.

Every error returned by the Store is a *StoreError.
*/
package database
