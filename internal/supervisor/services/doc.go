// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

// Package services adapts FieldWatch components to suture.Service.
//
// Each wrapper turns a component's own lifecycle (ListenAndServe/Shutdown,
// RunWithContext, a broker that only needs stopping) into
// Serve(ctx) error and names itself through fmt.Stringer for supervisor
// logs. The components are referenced through small interfaces so tests
// can substitute fakes.
package services
