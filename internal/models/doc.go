// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

/*
Package models defines the data structures shared across FieldWatch.

  - Reading: one telemetry sample from a field sensor, immutable once stored
  - MonthBucket / DayBucket: time-truncated averages used by drill-down charts
  - HealthStatus: component availability reported by the health endpoints

Averages are pointers. A nil average means no reading in the bucket carried
that measurement, which is distinct from a measured zero.
*/
package models
