// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package database

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/tomtom215/fieldwatch/internal/metrics"
	"github.com/tomtom215/fieldwatch/internal/models"
)

// MonthlyWindow is the number of most recent months with data returned by QueryMonthly.
const MonthlyWindow = 12

// Ordinal GROUP BY/ORDER BY keeps the statements valid in DuckDB and Postgres.
const monthlySQL = `
	SELECT date_trunc('month', ts) AS bucket,
		AVG(temperature), AVG(humidity), AVG(ph), AVG(soil_moisture)
	FROM sensor_data
	WHERE device_id = $1
	GROUP BY 1
	ORDER BY 1 DESC
	LIMIT $2`

const dailySQL = `
	SELECT date_trunc('day', ts) AS bucket,
		AVG(temperature), AVG(humidity), AVG(ph), AVG(soil_moisture)
	FROM sensor_data
	WHERE device_id = $1 AND ts >= $2 AND ts < $3
	GROUP BY 1
	ORDER BY 1 ASC`

// bucketRow is one aggregate row before it is shaped into a Month or Day bucket.
type bucketRow struct {
	start       time.Time
	temperature *float64
	humidity    *float64
	ph          *float64
	soil        *float64
}

// QueryMonthly returns per-month averages for the MonthlyWindow most recent
// months having readings, ascending by month. Empty months are absent.
func (db *DB) QueryMonthly(ctx context.Context, deviceID string) ([]models.MonthBucket, error) {
	rows, err := db.queryBuckets(ctx, "monthly", monthlySQL, deviceID, MonthlyWindow)
	if err != nil {
		return nil, err
	}
	slices.Reverse(rows)

	out := make([]models.MonthBucket, len(rows))
	for i, r := range rows {
		out[i] = models.MonthBucket{
			Month:        r.start,
			Temperature:  r.temperature,
			Humidity:     r.humidity,
			PH:           r.ph,
			SoilMoisture: r.soil,
		}
	}
	return out, nil
}

// QueryDaily returns per-day averages for days in the given UTC month that
// have readings, ascending by day.
func (db *DB) QueryDaily(ctx context.Context, deviceID string, year, month int) ([]models.DayBucket, error) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	rows, err := db.queryBuckets(ctx, "daily", dailySQL, deviceID, start, start.AddDate(0, 1, 0))
	if err != nil {
		return nil, err
	}

	out := make([]models.DayBucket, len(rows))
	for i, r := range rows {
		out[i] = models.DayBucket{
			Day:          r.start,
			Temperature:  r.temperature,
			Humidity:     r.humidity,
			PH:           r.ph,
			SoilMoisture: r.soil,
		}
	}
	return out, nil
}

func (db *DB) queryBuckets(ctx context.Context, op, query string, args ...any) ([]bucketRow, error) {
	if db.closed.Load() {
		return nil, storeErr(op, ErrClosed)
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := db.scanBuckets(ctx, query, args...)
	metrics.RecordStoreOp(op, db.driver, time.Since(start), err)
	if err != nil {
		return nil, storeErr(op, err)
	}
	return rows, nil
}

func (db *DB) scanBuckets(ctx context.Context, query string, args ...any) ([]bucketRow, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query buckets: %w", err)
	}
	defer closeWithLog(rows, "rows")

	var out []bucketRow
	for rows.Next() {
		var (
			b    bucketRow
			temp sql.NullFloat64
			hum  sql.NullFloat64
			ph   sql.NullFloat64
			soil sql.NullFloat64
		)
		if err := rows.Scan(&b.start, &temp, &hum, &ph, &soil); err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}
		b.start = b.start.UTC()
		b.temperature, b.humidity, b.ph, b.soil = floatPtr(temp), floatPtr(hum), floatPtr(ph), floatPtr(soil)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate buckets: %w", err)
	}
	return out, nil
}
