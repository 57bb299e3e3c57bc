// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

// Package query maps history requests onto Store queries. It owns argument
// validation and bucket selection; the Store owns the SQL.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/fieldwatch/internal/models"
	"github.com/tomtom215/fieldwatch/internal/validation"
)

const (
	// DefaultLimit is used when a history request carries no limit.
	DefaultLimit = 40

	// MaxLimit caps history requests.
	MaxLimit = 1000

	defaultQueryTimeout = 10 * time.Second
)

// Store is the read side of the database used by the Engine.
type Store interface {
	QueryRawLatest(ctx context.Context, deviceID string, limit int) ([]models.Reading, error)
	QueryMonthly(ctx context.Context, deviceID string) ([]models.MonthBucket, error)
	QueryDaily(ctx context.Context, deviceID string, year, month int) ([]models.DayBucket, error)
	QueryDay(ctx context.Context, deviceID string, year, month, day int) ([]models.Reading, error)
}

// ValidationError rejects a request before it reaches the Store.
type ValidationError struct {
	*validation.RequestValidationError
}

func (e *ValidationError) Unwrap() error {
	return e.RequestValidationError
}

// Engine answers history and rollup queries.
type Engine struct {
	store   Store
	timeout time.Duration
}

// NewEngine creates an Engine. A non-positive timeout uses 10 seconds.
func NewEngine(store Store, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &Engine{store: store, timeout: timeout}
}

type deviceArgs struct {
	DeviceID string `query:"deviceId" validate:"required,deviceid"`
}

// Year bounds are models.MinYear and models.MaxYear.
type monthArgs struct {
	DeviceID string `query:"deviceId" validate:"required,deviceid"`
	Year     int    `query:"year" validate:"min=1970,max=9999"`
	Month    int    `query:"month" validate:"min=1,max=12"`
}

type dayArgs struct {
	DeviceID string `query:"deviceId" validate:"required,deviceid"`
	Year     int    `query:"year" validate:"min=1970,max=9999"`
	Month    int    `query:"month" validate:"min=1,max=12"`
	Day      int    `query:"day" validate:"min=1,max=31"`
}

// History returns the newest readings for deviceID, oldest first. A zero
// limit means DefaultLimit; anything else is clamped into 1..MaxLimit.
func (e *Engine) History(ctx context.Context, deviceID string, limit int) ([]models.Reading, error) {
	if err := check(&deviceArgs{DeviceID: deviceID}); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.store.QueryRawLatest(ctx, deviceID, NormalizeLimit(limit))
}

// Monthly returns per-month averages, ascending.
func (e *Engine) Monthly(ctx context.Context, deviceID string) ([]models.MonthBucket, error) {
	if err := check(&deviceArgs{DeviceID: deviceID}); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.store.QueryMonthly(ctx, deviceID)
}

// Daily returns per-day averages for one month, ascending.
func (e *Engine) Daily(ctx context.Context, deviceID string, year, month int) ([]models.DayBucket, error) {
	if err := check(&monthArgs{DeviceID: deviceID, Year: year, Month: month}); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.store.QueryDaily(ctx, deviceID, year, month)
}

// Day returns the raw readings of one calendar day, ascending.
func (e *Engine) Day(ctx context.Context, deviceID string, year, month, day int) ([]models.Reading, error) {
	if err := check(&dayArgs{DeviceID: deviceID, Year: year, Month: month, Day: day}); err != nil {
		return nil, err
	}
	if day > DaysIn(year, month) {
		return nil, &ValidationError{validation.New("day", "calendar", day,
			fmt.Sprintf("day %d does not exist in %04d-%02d", day, year, month))}
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.store.QueryDay(ctx, deviceID, year, month, day)
}

// NormalizeLimit applies the history limit rules.
func NormalizeLimit(limit int) int {
	if limit == 0 {
		return DefaultLimit
	}
	return min(max(limit, 1), MaxLimit)
}

// DaysIn returns the number of days in month of year.
func DaysIn(year, month int) int {
	// Day 0 of the next month normalises to the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func check(args any) error {
	if verr := validation.ValidateStruct(args); verr != nil {
		return &ValidationError{verr}
	}
	return nil
}
