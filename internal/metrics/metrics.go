// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

// Package metrics holds the Prometheus instrumentation for FieldWatch.
// Metrics are registered with the default registry at package init and
// exposed on /metrics by the api package.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Store
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fieldwatch_store_operation_duration_seconds",
			Help:    "Duration of Store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "driver"},
	)

	StoreOpErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldwatch_store_operation_errors_total",
			Help: "Total number of failed Store operations",
		},
		[]string{"operation", "driver"},
	)

	StoreBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fieldwatch_store_breaker_state",
			Help: "Store insert circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Ingestion
	IngestMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fieldwatch_ingest_messages_received_total",
			Help: "Messages received from the transport",
		},
	)

	IngestDecodeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fieldwatch_ingest_decode_failures_total",
			Help: "Messages dropped because they could not be decoded",
		},
	)

	IngestReadingsStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fieldwatch_ingest_readings_stored_total",
			Help: "Readings persisted by the ingestion subscriber",
		},
	)

	IngestStoreFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fieldwatch_ingest_store_failures_total",
			Help: "Readings dropped because the Store insert failed",
		},
	)

	IngestProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fieldwatch_ingest_processing_duration_seconds",
			Help:    "Time from dequeue to broadcast for one reading",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	IngestQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fieldwatch_ingest_lane_queue_depth",
			Help: "Readings waiting in each per-device lane",
		},
		[]string{"lane"},
	)

	// Rollup cache
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldwatch_cache_lookups_total",
			Help: "Rollup cache lookups by rollup and result",
		},
		[]string{"rollup", "result"},
	)

	// Live fan-out
	HubSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fieldwatch_hub_subscribers",
			Help: "Currently registered live subscribers",
		},
	)

	HubBroadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fieldwatch_hub_broadcasts_total",
			Help: "Readings broadcast to live subscribers",
		},
	)

	HubSlowSubscribersDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fieldwatch_hub_slow_subscribers_dropped_total",
			Help: "Subscribers disconnected because their buffer was full",
		},
	)

	// Transport
	TransportStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldwatch_transport_state_changes_total",
			Help: "Transport connection state transitions",
		},
		[]string{"transport", "state"},
	)

	TransportConnected = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fieldwatch_transport_connected",
			Help: "1 when the transport connection is up",
		},
		[]string{"transport"},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldwatch_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fieldwatch_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordStoreOp records the duration of a Store operation and whether it failed.
func RecordStoreOp(operation, driver string, duration time.Duration, err error) {
	StoreOpDuration.WithLabelValues(operation, driver).Observe(duration.Seconds())
	if err != nil {
		StoreOpErrors.WithLabelValues(operation, driver).Inc()
	}
}

// RecordCacheLookup counts a rollup cache hit or miss.
func RecordCacheLookup(rollup string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(rollup, result).Inc()
}

// RecordAPIRequest records an API request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordTransportState counts a state transition and updates the connected gauge.
func RecordTransportState(transport, state string, connected bool) {
	TransportStateChanges.WithLabelValues(transport, state).Inc()
	v := 0.0
	if connected {
		v = 1
	}
	TransportConnected.WithLabelValues(transport).Set(v)
}
