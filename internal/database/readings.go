// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/fieldwatch/internal/metrics"
	"github.com/tomtom215/fieldwatch/internal/models"
)

// MaxRawLimit bounds QueryRawLatest.
const MaxRawLimit = 1000

const insertReadingSQL = `
	INSERT INTO sensor_data (device_id, ts, temperature, humidity, ph, soil_moisture)
	VALUES ($1, $2, $3, $4, $5, $6)`

const rawLatestSQL = `
	SELECT device_id, ts, temperature, humidity, ph, soil_moisture
	FROM sensor_data
	WHERE device_id = $1
	ORDER BY ts DESC, id DESC
	LIMIT $2`

const rangeSQL = `
	SELECT device_id, ts, temperature, humidity, ph, soil_moisture
	FROM sensor_data
	WHERE device_id = $1 AND ts >= $2 AND ts < $3
	ORDER BY ts ASC, id ASC`

// Insert appends one reading.
func (db *DB) Insert(ctx context.Context, r models.Reading) error {
	if db.closed.Load() {
		return storeErr("insert", ErrClosed)
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	_, err := db.breaker.Execute(func() (struct{}, error) {
		_, execErr := db.conn.ExecContext(ctx, insertReadingSQL,
			r.DeviceID, r.Timestamp.UTC(), r.Temperature, r.Humidity, r.PH, nullFloat(r.SoilMoisture))
		return struct{}{}, execErr
	})
	metrics.RecordStoreOp("insert", db.driver, time.Since(start), err)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return storeErr("insert", fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
	}
	return storeErr("insert", err)
}

// QueryRawLatest returns the newest limit readings for deviceID, oldest
// first. limit is clamped to 1..MaxRawLimit.
func (db *DB) QueryRawLatest(ctx context.Context, deviceID string, limit int) ([]models.Reading, error) {
	limit = min(max(limit, 1), MaxRawLimit)

	readings, err := db.queryReadings(ctx, "raw_latest", rawLatestSQL, deviceID, limit)
	if err != nil {
		return nil, err
	}
	slices.Reverse(readings)
	return readings, nil
}

// QueryDay returns every reading within the given UTC calendar day in
// ascending timestamp order. The day is not validated here; callers pass
// coordinates already checked by the query engine.
func (db *DB) QueryDay(ctx context.Context, deviceID string, year, month, day int) ([]models.Reading, error) {
	start := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return db.queryReadings(ctx, "day", rangeSQL, deviceID, start, start.AddDate(0, 0, 1))
}

func (db *DB) queryReadings(ctx context.Context, op, query string, args ...any) ([]models.Reading, error) {
	if db.closed.Load() {
		return nil, storeErr(op, ErrClosed)
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	readings, err := db.scanReadings(ctx, query, args...)
	metrics.RecordStoreOp(op, db.driver, time.Since(start), err)
	if err != nil {
		return nil, storeErr(op, err)
	}
	return readings, nil
}

func (db *DB) scanReadings(ctx context.Context, query string, args ...any) ([]models.Reading, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer closeWithLog(rows, "rows")

	readings := make([]models.Reading, 0)
	for rows.Next() {
		var (
			r    models.Reading
			soil sql.NullFloat64
		)
		if err := rows.Scan(&r.DeviceID, &r.Timestamp, &r.Temperature, &r.Humidity, &r.PH, &soil); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		r.Timestamp = r.Timestamp.UTC()
		r.SoilMoisture = floatPtr(soil)
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readings: %w", err)
	}
	return readings, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
