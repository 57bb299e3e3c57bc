// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

/*
Package main is the FieldWatch server.

The server subscribes to sensor readings on an MQTT or NATS topic, stores
every valid reading, pushes it to live WebSocket subscribers and serves
historical queries over HTTP.

# Startup

 1. Load configuration (defaults, optional YAML file, .env, environment)
 2. Initialize zerolog
 3. Open the store (DuckDB file or PostgreSQL)
 4. Start the embedded NATS server when NATS_EMBEDDED=true
 5. Connect the telemetry transport
 6. Build the live hub, ingestion subscriber and query engine
 7. Run everything under the suture supervisor tree

# Flags

	--config   path to a YAML configuration file (same as CONFIG_PATH)
	--version  print the version and exit

All other settings come from the environment. See internal/config for the
full list.

# Shutdown

SIGINT or SIGTERM cancels the root context. The tree stops the HTTP server
first, then the ingestion subscriber and live hub, then the embedded broker.
The transport and the store are closed after the tree returns.
*/
package main
