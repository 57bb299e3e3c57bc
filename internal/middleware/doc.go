// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

// Package middleware holds HTTP middleware shared by the API routes:
// Prometheus request metrics keyed by chi route pattern, and gzip
// compression for large history payloads.
package middleware
