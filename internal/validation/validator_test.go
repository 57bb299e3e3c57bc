// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package validation

import (
	"strings"
	"sync"
	"testing"
)

type sampleRequest struct {
	DeviceID string `query:"deviceId" validate:"required,deviceid"`
	Year     int    `query:"year" validate:"min=1970,max=9999"`
	Month    int    `json:"month" validate:"min=1,max=12"`
	Order    string `validate:"omitempty,oneof=asc desc"`
}

func TestGetValidatorSingleton(t *testing.T) {
	var wg sync.WaitGroup
	results := make(chan any, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- GetValidator()
		}()
	}
	wg.Wait()
	close(results)

	first := GetValidator()
	for v := range results {
		if v != first {
			t.Fatal("GetValidator returned different instances")
		}
	}
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		req       sampleRequest
		wantField string
		wantTag   string
	}{
		{"valid", sampleRequest{DeviceID: "sensor-A", Year: 2024, Month: 1}, "", ""},
		{"missing device", sampleRequest{Year: 2024, Month: 1}, "deviceId", "required"},
		{"device with space", sampleRequest{DeviceID: "sensor A", Year: 2024, Month: 1}, "deviceId", "deviceid"},
		{"device too long", sampleRequest{DeviceID: strings.Repeat("d", 33), Year: 2024, Month: 1}, "deviceId", "deviceid"},
		{"device with control char", sampleRequest{DeviceID: "ctl\u0001x", Year: 2024, Month: 1}, "deviceId", "deviceid"},
		{"multibyte device at max", sampleRequest{DeviceID: strings.Repeat("ж", 32), Year: 2024, Month: 1}, "", ""},
		{"year too small", sampleRequest{DeviceID: "sensor-A", Year: 1969, Month: 1}, "year", "min"},
		{"month too large", sampleRequest{DeviceID: "sensor-A", Year: 2024, Month: 13}, "month", "max"},
		{"bad order", sampleRequest{DeviceID: "sensor-A", Year: 2024, Month: 1, Order: "up"}, "Order", "oneof"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(&tt.req)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("unexpected error: %v", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("expected validation error")
			}
			if len(verr.Fields) != 1 {
				t.Fatalf("expected one field error, got %+v", verr.Fields)
			}
			f := verr.Fields[0]
			if f.Field != tt.wantField || f.Tag != tt.wantTag {
				t.Errorf("got field=%q tag=%q, want field=%q tag=%q", f.Field, f.Tag, tt.wantField, tt.wantTag)
			}
			if f.Message == "" {
				t.Error("expected a message")
			}
		})
	}
}

func TestValidateStructMultipleErrors(t *testing.T) {
	verr := ValidateStruct(&sampleRequest{Year: 1, Month: 0})
	if verr == nil {
		t.Fatal("expected errors")
	}
	if len(verr.Fields) != 3 {
		t.Fatalf("expected 3 field errors, got %d: %v", len(verr.Fields), verr)
	}
	if !strings.Contains(verr.Error(), "; ") {
		t.Errorf("expected joined message, got %q", verr.Error())
	}
	if _, ok := verr.Details()["fields"]; !ok {
		t.Errorf("expected fields detail, got %v", verr.Details())
	}
}

func TestTranslateMessages(t *testing.T) {
	verr := ValidateStruct(&sampleRequest{DeviceID: "sensor-A", Year: 2024, Month: 13})
	if verr == nil {
		t.Fatal("expected error")
	}
	if got := verr.Fields[0].Message; got != "month must be at most 12" {
		t.Errorf("message = %q", got)
	}

	type nameReq struct {
		Name string `json:"name" validate:"min=3"`
	}
	verr = ValidateStruct(&nameReq{Name: "ab"})
	if verr == nil || verr.Fields[0].Message != "name must be at least 3 characters" {
		t.Errorf("unexpected string min message: %v", verr)
	}
}

func TestNewSingleField(t *testing.T) {
	verr := New("day", "calendar", 31, "day 31 does not exist in 2024-02")
	if verr.Error() != "day 31 does not exist in 2024-02" {
		t.Errorf("Error() = %q", verr.Error())
	}
	d := verr.Details()
	if d["field"] != "day" || d["tag"] != "calendar" {
		t.Errorf("Details() = %v", d)
	}
}
