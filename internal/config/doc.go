// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

/*
Package config loads FieldWatch configuration.

Sources are layered with Koanf v2, highest priority last:

 1. Built-in defaults (defaultConfig)
 2. Optional YAML file (CONFIG_PATH, or config.yaml in the working directory)
 3. A .env file in the working directory, if present
 4. Process environment variables

Environment variables use flat names (MQTT_URL, DUCKDB_PATH, HTTP_PORT) that
envTransformFunc maps onto the nested koanf keys. Unknown variables are
ignored. The result is validated before it is returned.

Example config.yaml:

	transport:
	  kind: nats
	  topic: sensors.data
	nats:
	  embedded: true
	database:
	  driver: duckdb
	  path: /data/fieldwatch.duckdb
*/
package config
