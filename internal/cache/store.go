// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/tomtom215/fieldwatch/internal/metrics"
	"github.com/tomtom215/fieldwatch/internal/models"
)

// Backend is the Store being cached. *database.DB satisfies it.
type Backend interface {
	Insert(ctx context.Context, r models.Reading) error
	QueryRawLatest(ctx context.Context, deviceID string, limit int) ([]models.Reading, error)
	QueryMonthly(ctx context.Context, deviceID string) ([]models.MonthBucket, error)
	QueryDaily(ctx context.Context, deviceID string, year, month int) ([]models.DayBucket, error)
	QueryDay(ctx context.Context, deviceID string, year, month, day int) ([]models.Reading, error)
}

type dailyKey struct {
	deviceID string
	year     int
	month    int
}

// Store caches monthly and daily rollups in front of a Backend. Raw
// reading queries always go to the Backend.
//
// Every Insert goes through Store and drops the device's cached rollups,
// so a query never returns buckets older than the last insert this
// process made. A per-device generation keeps a query that raced an
// insert from caching what it read.
type Store struct {
	backend Backend
	monthly *LRU[string, []models.MonthBucket]
	daily   *LRU[dailyKey, []models.DayBucket]

	mu   sync.Mutex
	gens map[string]uint64
}

// NewStore wraps backend with caches of capacity entries each.
func NewStore(backend Backend, capacity int, ttl time.Duration) *Store {
	return &Store{
		backend: backend,
		monthly: NewLRU[string, []models.MonthBucket](capacity, ttl),
		daily:   NewLRU[dailyKey, []models.DayBucket](capacity, ttl),
		gens:    make(map[string]uint64),
	}
}

// Insert stores r and invalidates the device's rollups. The rollups are
// dropped even when the insert reports an error: a timed out insert may
// still have committed.
func (s *Store) Insert(ctx context.Context, r models.Reading) error {
	err := s.backend.Insert(ctx, r)
	s.invalidate(r.DeviceID)
	return err
}

// QueryRawLatest is not cached.
func (s *Store) QueryRawLatest(ctx context.Context, deviceID string, limit int) ([]models.Reading, error) {
	return s.backend.QueryRawLatest(ctx, deviceID, limit)
}

// QueryDay is not cached.
func (s *Store) QueryDay(ctx context.Context, deviceID string, year, month, day int) ([]models.Reading, error) {
	return s.backend.QueryDay(ctx, deviceID, year, month, day)
}

// QueryMonthly returns cached monthly buckets when present.
func (s *Store) QueryMonthly(ctx context.Context, deviceID string) ([]models.MonthBucket, error) {
	if v, ok := s.monthly.Get(deviceID); ok {
		metrics.RecordCacheLookup("monthly", true)
		return slices.Clone(v), nil
	}
	metrics.RecordCacheLookup("monthly", false)

	gen := s.generation(deviceID)
	v, err := s.backend.QueryMonthly(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	s.addIfCurrent(deviceID, gen, func() { s.monthly.Add(deviceID, slices.Clone(v)) })
	return v, nil
}

// QueryDaily returns cached daily buckets when present.
func (s *Store) QueryDaily(ctx context.Context, deviceID string, year, month int) ([]models.DayBucket, error) {
	key := dailyKey{deviceID: deviceID, year: year, month: month}
	if v, ok := s.daily.Get(key); ok {
		metrics.RecordCacheLookup("daily", true)
		return slices.Clone(v), nil
	}
	metrics.RecordCacheLookup("daily", false)

	gen := s.generation(deviceID)
	v, err := s.backend.QueryDaily(ctx, deviceID, year, month)
	if err != nil {
		return nil, err
	}
	s.addIfCurrent(deviceID, gen, func() { s.daily.Add(key, slices.Clone(v)) })
	return v, nil
}

func (s *Store) generation(deviceID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[deviceID]
}

func (s *Store) addIfCurrent(deviceID string, gen uint64, add func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[deviceID] == gen {
		add()
	}
}

func (s *Store) invalidate(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gens[deviceID]++
	s.monthly.Remove(deviceID)
	s.daily.RemoveFunc(func(k dailyKey) bool { return k.deviceID == deviceID })
}
