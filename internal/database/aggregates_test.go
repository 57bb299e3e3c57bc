// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package database

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/tomtom215/fieldwatch/internal/models"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestQueryMonthlyAverages(t *testing.T) {
	db := setupTestDB(t)
	mustInsert(t, db,
		reading("sensor-A", time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), 21.0),
		reading("sensor-A", time.Date(2024, 1, 16, 10, 0, 0, 0, time.UTC), 23.0),
	)

	got, err := db.QueryMonthly(context.Background(), "sensor-A")
	if err != nil {
		t.Fatalf("QueryMonthly failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(got))
	}
	b := got[0]
	if !b.Month.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("bucket month = %v, want 2024-01", b.Month)
	}
	if b.Temperature == nil || !approx(*b.Temperature, 22.0) {
		t.Errorf("average temperature = %v, want 22.0", b.Temperature)
	}
	if b.SoilMoisture != nil {
		t.Errorf("expected no soil moisture average, got %v", *b.SoilMoisture)
	}
}

func TestQueryMonthlyWindowAndOrder(t *testing.T) {
	db := setupTestDB(t)
	// 14 distinct months with data, plus a gap in 2023-03.
	start := time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		if i == 2 {
			continue
		}
		mustInsert(t, db, reading("sensor-A", start.AddDate(0, i, 0), float64(i)))
	}

	got, err := db.QueryMonthly(context.Background(), "sensor-A")
	if err != nil {
		t.Fatalf("QueryMonthly failed: %v", err)
	}
	if len(got) != MonthlyWindow {
		t.Fatalf("expected %d buckets, got %d", MonthlyWindow, len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i].Month.After(got[i-1].Month) {
			t.Fatalf("buckets not strictly ascending at %d: %v then %v", i, got[i-1].Month, got[i].Month)
		}
	}
	last := got[len(got)-1].Month
	if !last.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("newest bucket = %v, want 2024-03", last)
	}
}

func TestQueryMonthlySoilMoistureMixed(t *testing.T) {
	db := setupTestDB(t)
	r1 := reading("sensor-A", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), 20)
	r1.SoilMoisture = models.Float64(30)
	r2 := reading("sensor-A", time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), 20)
	mustInsert(t, db, r1, r2)

	got, err := db.QueryMonthly(context.Background(), "sensor-A")
	if err != nil {
		t.Fatalf("QueryMonthly failed: %v", err)
	}
	if len(got) != 1 || got[0].SoilMoisture == nil || !approx(*got[0].SoilMoisture, 30) {
		t.Errorf("expected soil moisture average over present values only, got %+v", got)
	}
}

func TestQueryDaily(t *testing.T) {
	db := setupTestDB(t)
	mustInsert(t, db,
		reading("sensor-A", time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC), 100), // previous month
		reading("sensor-A", time.Date(2024, 2, 3, 8, 0, 0, 0, time.UTC), 10),
		reading("sensor-A", time.Date(2024, 2, 3, 20, 0, 0, 0, time.UTC), 20),
		reading("sensor-A", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 5),
		reading("sensor-A", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 100), // next month
		reading("sensor-B", time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC), 100),
	)

	got, err := db.QueryDaily(context.Background(), "sensor-A", 2024, 2)
	if err != nil {
		t.Fatalf("QueryDaily failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 day buckets, got %d: %+v", len(got), got)
	}
	if !got[0].Day.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) || !approx(*got[0].Temperature, 5) {
		t.Errorf("unexpected first bucket: %+v", got[0])
	}
	if !got[1].Day.Equal(time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)) || !approx(*got[1].Temperature, 15) {
		t.Errorf("unexpected second bucket: %+v", got[1])
	}
}

func TestQueryDailyEmptyMonth(t *testing.T) {
	db := setupTestDB(t)
	got, err := db.QueryDaily(context.Background(), "sensor-A", 2024, 12)
	if err != nil {
		t.Fatalf("QueryDaily failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no buckets, got %d", len(got))
	}
}
