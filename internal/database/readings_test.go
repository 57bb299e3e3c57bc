// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/fieldwatch/internal/models"
)

func TestQueryRawLatestReturnsNewestAscending(t *testing.T) {
	db := setupTestDB(t)
	t1 := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	t3 := t2.Add(time.Minute)

	// Inserted out of order on purpose; ordering comes from event time.
	mustInsert(t, db,
		reading("sensor-A", t3, 23),
		reading("sensor-A", t1, 21),
		reading("sensor-A", t2, 22),
		reading("sensor-B", t3.Add(time.Hour), 99),
	)

	got, err := db.QueryRawLatest(context.Background(), "sensor-A", 2)
	if err != nil {
		t.Fatalf("QueryRawLatest failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(got))
	}
	if !got[0].Timestamp.Equal(t2) || !got[1].Timestamp.Equal(t3) {
		t.Errorf("expected [t2, t3], got [%v, %v]", got[0].Timestamp, got[1].Timestamp)
	}
	for _, r := range got {
		if r.DeviceID != "sensor-A" {
			t.Errorf("unexpected device %q", r.DeviceID)
		}
	}
}

func TestInsertPreservesValues(t *testing.T) {
	db := setupTestDB(t)
	ts := time.Date(2024, 3, 1, 8, 30, 15, 250000000, time.UTC)
	want := models.Reading{
		DeviceID:     "sensor-C",
		Timestamp:    ts,
		Temperature:  21.3,
		Humidity:     47.85,
		PH:           6.07,
		SoilMoisture: models.Float64(0),
	}
	mustInsert(t, db, want, reading("sensor-C", ts.Add(time.Second), 20))

	got, err := db.QueryRawLatest(context.Background(), "sensor-C", 10)
	if err != nil {
		t.Fatalf("QueryRawLatest failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(got))
	}
	r := got[0]
	if !r.Timestamp.Equal(ts) || r.Timestamp.Location() != time.UTC {
		t.Errorf("timestamp = %v, want %v UTC", r.Timestamp, ts)
	}
	if r.Temperature != 21.3 || r.Humidity != 47.85 || r.PH != 6.07 {
		t.Errorf("measurements changed in storage: %+v", r)
	}
	if r.SoilMoisture == nil || *r.SoilMoisture != 0 {
		t.Errorf("expected stored zero soil moisture, got %v", r.SoilMoisture)
	}
	if got[1].SoilMoisture != nil {
		t.Errorf("expected absent soil moisture, got %v", *got[1].SoilMoisture)
	}
}

func TestInsertToleratesDuplicates(t *testing.T) {
	db := setupTestDB(t)
	r := reading("sensor-A", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 20)
	mustInsert(t, db, r, r)

	got, err := db.QueryRawLatest(context.Background(), "sensor-A", 10)
	if err != nil {
		t.Fatalf("QueryRawLatest failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected duplicate rows to both be stored, got %d", len(got))
	}
}

func TestQueryRawLatestClampsLimit(t *testing.T) {
	db := setupTestDB(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		mustInsert(t, db, reading("sensor-A", base.Add(time.Duration(i)*time.Minute), float64(i)))
	}

	tests := []struct {
		limit int
		want  int
	}{
		{0, 1},
		{-5, 1},
		{2, 2},
		{5000, 3},
	}
	for _, tt := range tests {
		got, err := db.QueryRawLatest(context.Background(), "sensor-A", tt.limit)
		if err != nil {
			t.Fatalf("QueryRawLatest(%d) failed: %v", tt.limit, err)
		}
		if len(got) != tt.want {
			t.Errorf("QueryRawLatest(%d) returned %d rows, want %d", tt.limit, len(got), tt.want)
		}
	}
}

func TestQueryRawLatestUnknownDevice(t *testing.T) {
	db := setupTestDB(t)
	got, err := db.QueryRawLatest(context.Background(), "nobody", 40)
	if err != nil {
		t.Fatalf("QueryRawLatest failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestQueryDayBounds(t *testing.T) {
	db := setupTestDB(t)
	day := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	mustInsert(t, db,
		reading("sensor-A", day.Add(-time.Microsecond), 1), // previous day
		reading("sensor-A", day.Add(12*time.Hour), 3),
		reading("sensor-A", day, 2),
		reading("sensor-A", day.Add(24*time.Hour-time.Microsecond), 4),
		reading("sensor-A", day.Add(24*time.Hour), 5), // next day
	)

	got, err := db.QueryDay(context.Background(), "sensor-A", 2024, 2, 29)
	if err != nil {
		t.Fatalf("QueryDay failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 readings in day, got %d", len(got))
	}
	for i, want := range []float64{2, 3, 4} {
		if got[i].Temperature != want {
			t.Errorf("reading %d temperature = %v, want %v", i, got[i].Temperature, want)
		}
	}
}

func TestQueryRespectsCancellation(t *testing.T) {
	db := setupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := db.QueryRawLatest(ctx, "sensor-A", 10)
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected *StoreError for cancelled context, got %v", err)
	}

	// A cancelled query leaves the store usable.
	mustInsert(t, db, reading("sensor-A", time.Now().UTC(), 20))
	if _, err := db.QueryRawLatest(context.Background(), "sensor-A", 10); err != nil {
		t.Errorf("store unusable after cancelled query: %v", err)
	}
}
