// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package main

import (
	"math"
	"slices"
	"testing"
	"time"

	"github.com/tomtom215/fieldwatch/internal/codec"
)

func TestGeneratorRanges(t *testing.T) {
	gen := newGenerator(42, true)
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 123456789, time.UTC)
	gen.now = func() time.Time { return fixed }

	inRange := func(name string, v, lo, hi float64) {
		t.Helper()
		if v < lo || v >= hi {
			t.Fatalf("%s = %v, want [%v, %v)", name, v, lo, hi)
		}
		if math.Abs(v*100-math.Round(v*100)) > 1e-9 {
			t.Fatalf("%s = %v has more than two decimals", name, v)
		}
	}

	for i := 0; i < 1000; i++ {
		r := gen.next("sensor-A")
		inRange("temperature", r.Temperature, tempMin, tempMax)
		inRange("humidity", r.Humidity, humidityMin, humidityMax)
		inRange("ph", r.PH, phMin, phMax)
		if r.SoilMoisture == nil {
			t.Fatal("expected soil moisture")
		}
		inRange("soilMoisture", *r.SoilMoisture, soilMin, soilMax)
	}
}

func TestGeneratorReadingsDecode(t *testing.T) {
	gen := newGenerator(7, false)
	r := gen.next("sensor-B")
	if r.SoilMoisture != nil {
		t.Errorf("SoilMoisture = %v, want nil", *r.SoilMoisture)
	}

	payload, err := codec.Encode(r)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := codec.Decode(payload)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.DeviceID != "sensor-B" || !got.Timestamp.Equal(r.Timestamp) {
		t.Errorf("Decode() = %+v, want %+v", got, r)
	}
}

func TestGeneratorDeterministicSeed(t *testing.T) {
	a, b := newGenerator(99, false), newGenerator(99, false)
	for i := 0; i < 10; i++ {
		ra, rb := a.next("x"), b.next("x")
		if ra.Temperature != rb.Temperature || ra.Humidity != rb.Humidity || ra.PH != rb.PH {
			t.Fatalf("round %d diverged: %+v vs %+v", i, ra, rb)
		}
	}
}

func TestCleanDevices(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"default", nil, []string{"sensor-A"}},
		{"blank only", []string{" ", ""}, []string{"sensor-A"}},
		{"trim and dedupe", []string{" a ", "b", "a"}, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanDevices(tt.in); !slices.Equal(got, tt.want) {
				t.Errorf("cleanDevices(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
