// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

/*
Package api is the HTTP surface of FieldWatch: history queries, health
probes, the live push stream and the Prometheus exposition.

Two route families serve the same data:

	GET /history                     newest raw readings, ascending
	GET /history/monthly             monthly averages (12 most recent months)
	GET /history/daily?year=&month=  daily averages for one month
	GET /history/day?year=&month=&day=
	GET /health                      {"status":"ok"}

return bare JSON arrays shaped for the dashboard, with deviceId defaulting
to the configured device and limit defaulting to 40. The versioned family
under /api/v1 returns the same rows wrapped in the standard envelope:

	{"success": true, "data": [...], "meta": {"request_id": "...", "timestamp": "..."}}

and adds /api/v1/health, /api/v1/health/live and /api/v1/health/ready.

GET /ws upgrades to a websocket that carries one "sensor:data" frame per
persisted reading. GET /metrics serves Prometheus metrics.

All handlers are safe for concurrent use. The only shared state is the
Store, the Hub and the transport status, each of which synchronizes
internally.
*/
package api
