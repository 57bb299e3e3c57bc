// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

// Package codec converts between transport payloads and models.Reading.
//
// Wire format (one JSON object per message):
//
//	{"deviceId":"sensor-A","ts":"2024-01-15T10:00:00Z","temperature":21.5,
//	 "humidity":48.2,"ph":6.1,"soilMoisture":33.0}
//
// soilMoisture is optional. Decode has no side effects and never returns a
// partially populated Reading.
package codec

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fieldwatch/internal/models"
)

// Wire field names.
const (
	FieldDeviceID     = "deviceId"
	FieldTimestamp    = "ts"
	FieldTemperature  = "temperature"
	FieldHumidity     = "humidity"
	FieldPH           = "ph"
	FieldSoilMoisture = "soilMoisture"
)

// DecodeError reports a payload that cannot be turned into a Reading.
// Field is empty when the payload as a whole is unparseable.
type DecodeError struct {
	Field  string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return "decode reading: " + e.Reason
	}
	return fmt.Sprintf("decode reading: field %q %s", e.Field, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode parses raw into a Reading. Every failure is a *DecodeError.
func Decode(raw []byte) (models.Reading, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return models.Reading{}, &DecodeError{Reason: "payload is not a JSON object", Err: err}
	}
	if fields == nil {
		return models.Reading{}, &DecodeError{Reason: "payload is not a JSON object"}
	}

	deviceID, err := decodeDeviceID(fields)
	if err != nil {
		return models.Reading{}, err
	}
	ts, err := decodeTimestamp(fields)
	if err != nil {
		return models.Reading{}, err
	}
	temperature, err := requiredNumber(fields, FieldTemperature)
	if err != nil {
		return models.Reading{}, err
	}
	humidity, err := requiredNumber(fields, FieldHumidity)
	if err != nil {
		return models.Reading{}, err
	}
	ph, err := requiredNumber(fields, FieldPH)
	if err != nil {
		return models.Reading{}, err
	}
	soil, err := optionalNumber(fields, FieldSoilMoisture)
	if err != nil {
		return models.Reading{}, err
	}

	return models.Reading{
		DeviceID:     deviceID,
		Timestamp:    ts,
		Temperature:  temperature,
		Humidity:     humidity,
		PH:           ph,
		SoilMoisture: soil,
	}, nil
}

// Encode renders r in the wire format with ts in UTC.
func Encode(r models.Reading) ([]byte, error) {
	r.Timestamp = r.Timestamp.UTC()
	return json.Marshal(r)
}

func present(fields map[string]json.RawMessage, name string) (json.RawMessage, bool) {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return nil, false
	}
	return raw, true
}

func decodeDeviceID(fields map[string]json.RawMessage) (string, error) {
	raw, ok := present(fields, FieldDeviceID)
	if !ok {
		return "", &DecodeError{Field: FieldDeviceID, Reason: "is required"}
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return "", &DecodeError{Field: FieldDeviceID, Reason: "must be a string", Err: err}
	}
	if id == "" {
		return "", &DecodeError{Field: FieldDeviceID, Reason: "must not be empty"}
	}
	if !models.ValidDeviceID(id) {
		return "", &DecodeError{Field: FieldDeviceID, Reason: fmt.Sprintf(
			"must be at most %d printable characters without whitespace", models.MaxDeviceIDLength)}
	}
	return id, nil
}

func decodeTimestamp(fields map[string]json.RawMessage) (time.Time, error) {
	raw, ok := present(fields, FieldTimestamp)
	if !ok {
		return time.Time{}, &DecodeError{Field: FieldTimestamp, Reason: "is required"}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, &DecodeError{Field: FieldTimestamp, Reason: "must be an ISO-8601 string", Err: err}
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, &DecodeError{Field: FieldTimestamp, Reason: "must be an ISO-8601 timestamp with offset", Err: err}
	}
	ts = ts.UTC()
	if !models.ValidYear(ts.Year()) {
		return time.Time{}, &DecodeError{Field: FieldTimestamp, Reason: fmt.Sprintf(
			"must fall in years %d to %d (UTC)", models.MinYear, models.MaxYear)}
	}
	return ts.Truncate(models.TimestampResolution), nil
}

func requiredNumber(fields map[string]json.RawMessage, name string) (float64, error) {
	raw, ok := present(fields, name)
	if !ok {
		return 0, &DecodeError{Field: name, Reason: "is required"}
	}
	return number(raw, name)
}

func optionalNumber(fields map[string]json.RawMessage, name string) (*float64, error) {
	raw, ok := present(fields, name)
	if !ok {
		return nil, nil
	}
	v, err := number(raw, name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func number(raw json.RawMessage, name string) (float64, error) {
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, &DecodeError{Field: name, Reason: "must be a number", Err: err}
	}
	return v, nil
}
