// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

/*
Package websocket is the live fan-out hub and its WebSocket client.

The Hub holds the current set of subscriptions. Broadcast hands a freshly
persisted Reading to every subscription without blocking: each subscription
has a bounded buffer, and a subscription whose buffer is full is closed and
removed so that one slow dashboard never delays the others. A dropped
dashboard reconnects and refetches recent history over HTTP; nothing is
replayed on subscribe.

Client attaches a subscription to a gorilla/websocket connection and writes
one frame per reading:

	{"type": "sensor:data", "data": {"deviceId": "sensor-A", "ts": "...", ...}}

Clients may send {"type":"ping"} and receive {"type":"pong"}; protocol level
pings keep idle connections alive.

RunWithContext blocks until shutdown and then closes every subscription,
which in turn closes every client connection.
*/
package websocket
