// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package models

import (
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxDeviceIDLength matches the width of the device_id column.
	MaxDeviceIDLength = 32

	// TimestampResolution is the precision the Store keeps. Readings are
	// truncated to it on decode so live and historical views agree.
	TimestampResolution = time.Microsecond

	// MinYear and MaxYear bound the UTC year of a Reading. History queries
	// accept the same range.
	MinYear = 1970
	MaxYear = 9999
)

// ValidDeviceID reports whether id is valid UTF-8 of 1..MaxDeviceIDLength
// printable runes without whitespace. Ingestion and history queries share
// this rule, so every stored device can be queried.
func ValidDeviceID(id string) bool {
	if id == "" || !utf8.ValidString(id) {
		return false
	}
	n := 0
	for _, r := range id {
		n++
		if n > MaxDeviceIDLength || unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// ValidYear reports whether year lies in MinYear..MaxYear.
func ValidYear(year int) bool {
	return year >= MinYear && year <= MaxYear
}

// Reading is one telemetry sample. Timestamp is the event time reported by
// the sensor, always in UTC.
type Reading struct {
	DeviceID     string    `json:"deviceId"`
	Timestamp    time.Time `json:"ts"`
	Temperature  float64   `json:"temperature"`
	Humidity     float64   `json:"humidity"`
	PH           float64   `json:"ph"`
	SoilMoisture *float64  `json:"soilMoisture,omitempty"`
}

// MonthBucket holds per-field averages over one calendar month (UTC).
type MonthBucket struct {
	Month        time.Time `json:"month"`
	Temperature  *float64  `json:"temperature"`
	Humidity     *float64  `json:"humidity"`
	PH           *float64  `json:"ph"`
	SoilMoisture *float64  `json:"soilMoisture"`
}

// DayBucket holds per-field averages over one calendar day (UTC).
type DayBucket struct {
	Day          time.Time `json:"day"`
	Temperature  *float64  `json:"temperature"`
	Humidity     *float64  `json:"humidity"`
	PH           *float64  `json:"ph"`
	SoilMoisture *float64  `json:"soilMoisture"`
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 {
	return &v
}
