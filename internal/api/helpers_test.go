// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fieldwatch/internal/config"
	"github.com/tomtom215/fieldwatch/internal/database"
	"github.com/tomtom215/fieldwatch/internal/ingest"
	"github.com/tomtom215/fieldwatch/internal/logging"
	"github.com/tomtom215/fieldwatch/internal/models"
	"github.com/tomtom215/fieldwatch/internal/query"
	"github.com/tomtom215/fieldwatch/internal/transport"
	ws "github.com/tomtom215/fieldwatch/internal/websocket"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

// call records the arguments of one Store query.
type call struct {
	method   string
	deviceID string
	limit    int
	year     int
	month    int
	day      int
}

// fakeStore backs a real query.Engine.
type fakeStore struct {
	mu       sync.Mutex
	calls    []call
	readings []models.Reading
	months   []models.MonthBucket
	days     []models.DayBucket
	err      error
}

func (f *fakeStore) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeStore) lastCall(t *testing.T) call {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("store was not called")
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeStore) QueryRawLatest(_ context.Context, deviceID string, limit int) ([]models.Reading, error) {
	f.record(call{method: "raw", deviceID: deviceID, limit: limit})
	return f.readings, f.err
}

func (f *fakeStore) QueryMonthly(_ context.Context, deviceID string) ([]models.MonthBucket, error) {
	f.record(call{method: "monthly", deviceID: deviceID})
	return f.months, f.err
}

func (f *fakeStore) QueryDaily(_ context.Context, deviceID string, year, month int) ([]models.DayBucket, error) {
	f.record(call{method: "daily", deviceID: deviceID, year: year, month: month})
	return f.days, f.err
}

func (f *fakeStore) QueryDay(_ context.Context, deviceID string, year, month, day int) ([]models.Reading, error) {
	f.record(call{method: "day", deviceID: deviceID, year: year, month: month, day: day})
	return f.readings, f.err
}

type fakeStoreStatus struct {
	status database.Status
}

func (f fakeStoreStatus) Status(context.Context) database.Status {
	return f.status
}

type fakeTransport struct {
	state transport.State
}

func (f fakeTransport) Status() transport.State {
	return f.state
}

type fakeIngest struct {
	stats ingest.Stats
}

func (f fakeIngest) Stats() ingest.Stats {
	return f.stats
}

type testEnv struct {
	store   *fakeStore
	hub     *ws.Hub
	handler http.Handler
}

type envOption func(*Dependencies, *config.ServerConfig)

func withStoreStatus(s database.Status) envOption {
	return func(d *Dependencies, _ *config.ServerConfig) { d.Store = fakeStoreStatus{status: s} }
}

func withTransport(state transport.State) envOption {
	return func(d *Dependencies, _ *config.ServerConfig) { d.Transport = fakeTransport{state: state} }
}

func withServerConfig(mutate func(*config.ServerConfig)) envOption {
	return func(_ *Dependencies, c *config.ServerConfig) { mutate(c) }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	store := &fakeStore{}
	hub := ws.NewHub(8)
	deps := Dependencies{
		Engine:    query.NewEngine(store, time.Second),
		Store:     fakeStoreStatus{status: database.Status{Available: true, Driver: "duckdb", Breaker: "closed"}},
		Transport: fakeTransport{state: transport.StateConnected},
		Hub:       hub,
	}
	cfg := config.ServerConfig{
		CORSOrigins:       []string{"*"},
		RateLimitDisabled: true,
		DefaultDeviceID:   "sensor-A",
	}
	for _, opt := range opts {
		opt(&deps, &cfg)
	}

	handler := NewHandler(deps, cfg)
	router := NewRouter(handler, NewChiMiddleware(ChiMiddlewareConfigFromServer(cfg)))
	return &testEnv{store: store, hub: hub, handler: router.Setup()}
}

func (e *testEnv) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode body %q: %v", rec.Body.String(), err)
	}
}

func sampleReadings() []models.Reading {
	return []models.Reading{
		{
			DeviceID:    "sensor-A",
			Timestamp:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
			Temperature: 21.5,
			Humidity:    45,
			PH:          6.2,
		},
		{
			DeviceID:     "sensor-A",
			Timestamp:    time.Date(2024, 3, 1, 10, 5, 0, 0, time.UTC),
			Temperature:  22,
			Humidity:     46,
			PH:           6.3,
			SoilMoisture: models.Float64(30),
		},
	}
}
