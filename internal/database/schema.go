// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/fieldwatch/internal/config"
)

const schemaTimeout = 60 * time.Second

// Columns are DOUBLE PRECISION rather than REAL so stored values read back
// exactly as they were received.
var duckdbSchema = []string{
	`CREATE SEQUENCE IF NOT EXISTS sensor_data_id_seq START 1`,
	`CREATE TABLE IF NOT EXISTS sensor_data (
		id BIGINT PRIMARY KEY DEFAULT nextval('sensor_data_id_seq'),
		device_id VARCHAR(32) NOT NULL,
		ts TIMESTAMP NOT NULL,
		temperature DOUBLE PRECISION NOT NULL,
		humidity DOUBLE PRECISION NOT NULL,
		ph DOUBLE PRECISION NOT NULL,
		soil_moisture DOUBLE PRECISION
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sensor_data_device_ts ON sensor_data (device_id, ts)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS sensor_data (
		id BIGSERIAL PRIMARY KEY,
		device_id VARCHAR(32) NOT NULL,
		ts TIMESTAMP NOT NULL,
		temperature DOUBLE PRECISION NOT NULL,
		humidity DOUBLE PRECISION NOT NULL,
		ph DOUBLE PRECISION NOT NULL,
		soil_moisture DOUBLE PRECISION
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sensor_data_device_ts ON sensor_data (device_id, ts)`,
}

func (db *DB) createTables(ctx context.Context) error {
	queries := duckdbSchema
	if db.driver == config.DriverPostgres {
		queries = postgresSchema
	}
	for _, q := range queries {
		if _, err := db.conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}
