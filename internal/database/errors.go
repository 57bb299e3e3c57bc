// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package database

import (
	"errors"
	"fmt"
	"io"

	"github.com/tomtom215/fieldwatch/internal/logging"
)

var (
	// ErrStoreUnavailable is returned while the insert circuit breaker is open.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store closed")

	// ErrUnsupportedDriver is returned by New for unknown drivers.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// StoreError wraps every failure returned by the Store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// closeWithLog closes a resource and logs a failure.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource on an error path where the close error is not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
