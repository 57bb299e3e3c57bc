// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/fieldwatch/internal/logging"
	"github.com/tomtom215/fieldwatch/internal/models"
	"github.com/tomtom215/fieldwatch/internal/query"
	"github.com/tomtom215/fieldwatch/internal/validation"
)

// dashboardReading is a raw reading as the dashboard charts expect it.
// soil_moisture duplicates soilMoisture for older chart code.
type dashboardReading struct {
	DeviceID          string    `json:"deviceId"`
	Timestamp         time.Time `json:"ts"`
	Temperature       float64   `json:"temperature"`
	Humidity          float64   `json:"humidity"`
	PH                float64   `json:"ph"`
	SoilMoisture      *float64  `json:"soilMoisture"`
	SoilMoistureSnake *float64  `json:"soil_moisture"`
}

type dashboardMonth struct {
	Month             time.Time `json:"month"`
	Temperature       *float64  `json:"temperature"`
	Humidity          *float64  `json:"humidity"`
	PH                *float64  `json:"ph"`
	SoilMoisture      *float64  `json:"soilMoisture"`
	SoilMoistureSnake *float64  `json:"soil_moisture"`
}

type dashboardDay struct {
	Day               time.Time `json:"day"`
	Temperature       *float64  `json:"temperature"`
	Humidity          *float64  `json:"humidity"`
	PH                *float64  `json:"ph"`
	SoilMoisture      *float64  `json:"soilMoisture"`
	SoilMoistureSnake *float64  `json:"soil_moisture"`
}

func toDashboardReadings(rows []models.Reading) []dashboardReading {
	out := make([]dashboardReading, len(rows))
	for i, r := range rows {
		out[i] = dashboardReading{
			DeviceID:          r.DeviceID,
			Timestamp:         r.Timestamp,
			Temperature:       r.Temperature,
			Humidity:          r.Humidity,
			PH:                r.PH,
			SoilMoisture:      r.SoilMoisture,
			SoilMoistureSnake: r.SoilMoisture,
		}
	}
	return out
}

func toDashboardMonths(rows []models.MonthBucket) []dashboardMonth {
	out := make([]dashboardMonth, len(rows))
	for i, b := range rows {
		out[i] = dashboardMonth{
			Month:             b.Month,
			Temperature:       b.Temperature,
			Humidity:          b.Humidity,
			PH:                b.PH,
			SoilMoisture:      b.SoilMoisture,
			SoilMoistureSnake: b.SoilMoisture,
		}
	}
	return out
}

func toDashboardDays(rows []models.DayBucket) []dashboardDay {
	out := make([]dashboardDay, len(rows))
	for i, b := range rows {
		out[i] = dashboardDay{
			Day:               b.Day,
			Temperature:       b.Temperature,
			Humidity:          b.Humidity,
			PH:                b.PH,
			SoilMoisture:      b.SoilMoisture,
			SoilMoistureSnake: b.SoilMoisture,
		}
	}
	return out
}

// History serves GET /history?deviceId=&limit=.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	rows, err := h.history(r, true)
	if err != nil {
		h.dashboardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardReadings(rows))
}

// HistoryMonthly serves GET /history/monthly?deviceId=.
func (h *Handler) HistoryMonthly(w http.ResponseWriter, r *http.Request) {
	rows, err := h.monthly(r, true)
	if err != nil {
		h.dashboardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardMonths(rows))
}

// HistoryDaily serves GET /history/daily?deviceId=&year=&month=.
func (h *Handler) HistoryDaily(w http.ResponseWriter, r *http.Request) {
	rows, err := h.daily(r, true)
	if err != nil {
		h.dashboardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDays(rows))
}

// HistoryDay serves GET /history/day?deviceId=&year=&month=&day=.
func (h *Handler) HistoryDay(w http.ResponseWriter, r *http.Request) {
	rows, err := h.day(r, true)
	if err != nil {
		h.dashboardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardReadings(rows))
}

// APIHistory serves GET /api/v1/history.
func (h *Handler) APIHistory(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	rows, err := h.history(r, false)
	if err != nil {
		h.apiError(rw, err)
		return
	}
	rw.List(rows, len(rows))
}

// APIHistoryMonthly serves GET /api/v1/history/monthly.
func (h *Handler) APIHistoryMonthly(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	rows, err := h.monthly(r, false)
	if err != nil {
		h.apiError(rw, err)
		return
	}
	rw.List(rows, len(rows))
}

// APIHistoryDaily serves GET /api/v1/history/daily.
func (h *Handler) APIHistoryDaily(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	rows, err := h.daily(r, false)
	if err != nil {
		h.apiError(rw, err)
		return
	}
	rw.List(rows, len(rows))
}

// APIHistoryDay serves GET /api/v1/history/day.
func (h *Handler) APIHistoryDay(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	rows, err := h.day(r, false)
	if err != nil {
		h.apiError(rw, err)
		return
	}
	rw.List(rows, len(rows))
}

func (h *Handler) history(r *http.Request, defaults bool) ([]models.Reading, error) {
	limit, err := intParam(r, "limit", false)
	if err != nil {
		return nil, err
	}
	return h.engine.History(r.Context(), h.deviceID(r, defaults), limit)
}

func (h *Handler) monthly(r *http.Request, defaults bool) ([]models.MonthBucket, error) {
	return h.engine.Monthly(r.Context(), h.deviceID(r, defaults))
}

func (h *Handler) daily(r *http.Request, defaults bool) ([]models.DayBucket, error) {
	year, month, err := yearMonth(r)
	if err != nil {
		return nil, err
	}
	return h.engine.Daily(r.Context(), h.deviceID(r, defaults), year, month)
}

func (h *Handler) day(r *http.Request, defaults bool) ([]models.Reading, error) {
	year, month, err := yearMonth(r)
	if err != nil {
		return nil, err
	}
	day, err := intParam(r, "day", true)
	if err != nil {
		return nil, err
	}
	return h.engine.Day(r.Context(), h.deviceID(r, defaults), year, month, day)
}

// deviceID reads the deviceId parameter. Dashboard routes fall back to the
// configured default device.
func (h *Handler) deviceID(r *http.Request, defaults bool) string {
	id := r.URL.Query().Get("deviceId")
	if id == "" && defaults {
		return h.cfg.DefaultDeviceID
	}
	return id
}

func yearMonth(r *http.Request) (year, month int, err error) {
	if year, err = intParam(r, "year", true); err != nil {
		return 0, 0, err
	}
	if month, err = intParam(r, "month", true); err != nil {
		return 0, 0, err
	}
	return year, month, nil
}

// intParam parses an integer query parameter. A missing optional parameter
// is zero.
func intParam(r *http.Request, name string, required bool) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		if required {
			return 0, paramError(name, "required", raw, fmt.Sprintf("%s is required", name))
		}
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, paramError(name, "int", raw, fmt.Sprintf("%s must be an integer", name))
	}
	return v, nil
}

func paramError(field, tag, value, message string) error {
	return &query.ValidationError{RequestValidationError: validation.New(field, tag, value, message)}
}

func (h *Handler) dashboardError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *query.ValidationError
	if errors.As(err, &ve) {
		writePlainError(w, http.StatusBadRequest, ve.Error())
		return
	}
	logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("History query failed")
	writePlainError(w, http.StatusInternalServerError, "internal server error")
}

func (h *Handler) apiError(rw *ResponseWriter, err error) {
	var ve *query.ValidationError
	if errors.As(err, &ve) {
		rw.ValidationError(ve.Error(), ve.Details())
		return
	}
	rw.DatabaseError(err)
}
