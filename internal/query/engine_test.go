// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package query

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/fieldwatch/internal/codec"
	"github.com/tomtom215/fieldwatch/internal/models"
)

type call struct {
	op                    string
	device                string
	limit, year, month, d int
	hasDeadline           bool
}

type fakeStore struct {
	calls []call
	err   error
}

func (f *fakeStore) record(ctx context.Context, c call) {
	_, c.hasDeadline = ctx.Deadline()
	f.calls = append(f.calls, c)
}

func (f *fakeStore) QueryRawLatest(ctx context.Context, deviceID string, limit int) ([]models.Reading, error) {
	f.record(ctx, call{op: "raw", device: deviceID, limit: limit})
	return []models.Reading{}, f.err
}

func (f *fakeStore) QueryMonthly(ctx context.Context, deviceID string) ([]models.MonthBucket, error) {
	f.record(ctx, call{op: "monthly", device: deviceID})
	return []models.MonthBucket{}, f.err
}

func (f *fakeStore) QueryDaily(ctx context.Context, deviceID string, year, month int) ([]models.DayBucket, error) {
	f.record(ctx, call{op: "daily", device: deviceID, year: year, month: month})
	return []models.DayBucket{}, f.err
}

func (f *fakeStore) QueryDay(ctx context.Context, deviceID string, year, month, day int) ([]models.Reading, error) {
	f.record(ctx, call{op: "day", device: deviceID, year: year, month: month, d: day})
	return []models.Reading{}, f.err
}

func TestHistoryLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultLimit},
		{-3, 1},
		{1, 1},
		{250, 250},
		{1000, 1000},
		{1001, MaxLimit},
	}
	for _, tt := range tests {
		store := &fakeStore{}
		e := NewEngine(store, time.Second)
		if _, err := e.History(context.Background(), "sensor-A", tt.in); err != nil {
			t.Fatalf("History(%d) error: %v", tt.in, err)
		}
		if got := store.calls[0].limit; got != tt.want {
			t.Errorf("History(%d) used limit %d, want %d", tt.in, got, tt.want)
		}
		if !store.calls[0].hasDeadline {
			t.Error("expected query timeout on context")
		}
	}
}

func TestDayCalendarValidation(t *testing.T) {
	tests := []struct {
		name  string
		year  int
		month int
		day   int
		valid bool
	}{
		{"feb 30", 2024, 2, 30, false},
		{"feb 29 leap", 2024, 2, 29, true},
		{"feb 29 non-leap", 2023, 2, 29, false},
		{"apr 31", 2024, 4, 31, false},
		{"dec 31", 2024, 12, 31, true},
		{"day zero", 2024, 1, 0, false},
		{"month 13", 2024, 13, 1, false},
		{"year before epoch", 1969, 1, 1, false},
		{"first day of epoch", 1970, 1, 1, true},
		{"last day of 9999", 9999, 12, 31, true},
		{"year 10000", 10000, 1, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			e := NewEngine(store, 0)
			_, err := e.Day(context.Background(), "sensor-A", tt.year, tt.month, tt.day)

			if tt.valid {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(store.calls) != 1 {
					t.Fatal("expected store to be queried")
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T: %v", err, err)
			}
			if len(store.calls) != 0 {
				t.Error("store must not be queried for invalid coordinates")
			}
		})
	}
}

func TestDailyValidation(t *testing.T) {
	store := &fakeStore{}
	e := NewEngine(store, 0)

	if _, err := e.Daily(context.Background(), "sensor-A", 2024, 0); err == nil {
		t.Error("expected error for month 0")
	}
	if _, err := e.Daily(context.Background(), "sensor-A", 2024, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c := store.calls[0]; c.op != "daily" || c.year != 2024 || c.month != 2 {
		t.Errorf("unexpected store call %+v", c)
	}
}

func TestDeviceIDValidation(t *testing.T) {
	store := &fakeStore{}
	e := NewEngine(store, 0)

	for _, id := range []string{"", "with space", "abcdefghijklmnopqrstuvwxyz0123456789"} {
		if _, err := e.Monthly(context.Background(), id); err == nil {
			t.Errorf("Monthly(%q) expected validation error", id)
		}
	}
	if len(store.calls) != 0 {
		t.Errorf("store queried for invalid device ids: %+v", store.calls)
	}
}

func TestStoreErrorPassesThrough(t *testing.T) {
	boom := errors.New("boom")
	e := NewEngine(&fakeStore{err: boom}, 0)

	_, err := e.Monthly(context.Background(), "sensor-A")
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		t.Error("store error must not be reported as validation error")
	}
}

func TestDaysIn(t *testing.T) {
	tests := []struct{ year, month, want int }{
		{2024, 1, 31},
		{2024, 2, 29},
		{2023, 2, 28},
		{1900, 2, 28},
		{2000, 2, 29},
		{2024, 11, 30},
		{2024, 12, 31},
	}
	for _, tt := range tests {
		if got := DaysIn(tt.year, tt.month); got != tt.want {
			t.Errorf("DaysIn(%d, %d) = %d, want %d", tt.year, tt.month, got, tt.want)
		}
	}
}

// Every reading ingestion accepts must be reachable through the history
// endpoints, and ids ingestion rejects are rejected by history as well.
func TestDecodedReadingsAreQueryable(t *testing.T) {
	ids := []string{
		"sensor-A",
		"датчик-поле-север-01",
		"field 1",
		"tab\tid",
		"ctl\u0001x",
		" sensor-A ",
		"abcdefghijklmnopqrstuvwxyz0123456",
	}
	timestamps := []time.Time{
		time.Date(1969, 12, 31, 23, 59, 59, 0, time.UTC),
		time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC),
		time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC),
	}

	for _, id := range ids {
		for _, ts := range timestamps {
			t.Run(fmt.Sprintf("%q@%d", id, ts.Year()), func(t *testing.T) {
				raw, err := codec.Encode(models.Reading{DeviceID: id, Timestamp: ts, Temperature: 1, Humidity: 2, PH: 3})
				if err != nil {
					t.Fatalf("Encode failed: %v", err)
				}
				r, decErr := codec.Decode(raw)
				e := NewEngine(&fakeStore{}, 0)
				ctx := context.Background()

				if decErr != nil {
					var de *codec.DecodeError
					if !errors.As(decErr, &de) {
						t.Fatalf("expected *codec.DecodeError, got %T", decErr)
					}
					var verr *ValidationError
					switch de.Field {
					case codec.FieldDeviceID:
						if _, err := e.History(ctx, id, 10); !errors.As(err, &verr) {
							t.Errorf("History(%q) error = %v, want *ValidationError", id, err)
						}
					case codec.FieldTimestamp:
						if _, err := e.Daily(ctx, "sensor-A", ts.Year(), int(ts.Month())); !errors.As(err, &verr) {
							t.Errorf("Daily(%d) error = %v, want *ValidationError", ts.Year(), err)
						}
					}
					return
				}

				if _, err := e.History(ctx, r.DeviceID, 10); err != nil {
					t.Errorf("History(%q) error = %v", r.DeviceID, err)
				}
				y, m, d := r.Timestamp.Date()
				if _, err := e.Day(ctx, r.DeviceID, y, int(m), d); err != nil {
					t.Errorf("Day(%q, %d, %d, %d) error = %v", r.DeviceID, y, m, d, err)
				}
				if _, err := e.Daily(ctx, r.DeviceID, y, int(m)); err != nil {
					t.Errorf("Daily(%q, %d, %d) error = %v", r.DeviceID, y, m, err)
				}
			})
		}
	}
}
