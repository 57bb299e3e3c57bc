// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package models

// HealthStatus is the detailed health report.
type HealthStatus struct {
	Status          string  `json:"status"` // healthy or degraded
	Version         string  `json:"version"`
	TransportState  string  `json:"transport_state"`
	TransportUp     bool    `json:"transport_connected"`
	StoreAvailable  bool    `json:"store_available"`
	StoreBreaker    string  `json:"store_breaker"`
	LiveSubscribers int     `json:"live_subscribers"`
	Uptime          float64 `json:"uptime_seconds"`
}
