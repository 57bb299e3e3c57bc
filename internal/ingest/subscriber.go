// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

// Package ingest bridges the transport to the Store and the live hub.
//
// Messages are decoded in arrival order and routed to a lane chosen by
// hashing the device id. Each lane runs insert-then-broadcast for one
// reading at a time, so a device's readings are stored and pushed in the
// order they arrived while different devices proceed in parallel. A
// reading is broadcast only after its insert succeeded.
package ingest

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/fieldwatch/internal/codec"
	"github.com/tomtom215/fieldwatch/internal/logging"
	"github.com/tomtom215/fieldwatch/internal/metrics"
	"github.com/tomtom215/fieldwatch/internal/models"
	"github.com/tomtom215/fieldwatch/internal/transport"
)

// ErrSourceClosed is returned by Serve when the transport ended the
// message channel on its own.
var ErrSourceClosed = errors.New("ingest: message source closed")

// Store persists readings.
type Store interface {
	Insert(ctx context.Context, r models.Reading) error
}

// Broadcaster pushes persisted readings to live subscribers.
type Broadcaster interface {
	Broadcast(r models.Reading)
}

// Config sizes the pipeline.
type Config struct {
	Topic         string
	Workers       int
	QueueSize     int
	InsertTimeout time.Duration
}

// Stats are cumulative pipeline counters.
type Stats struct {
	Received      uint64 `json:"received"`
	DecodeErrors  uint64 `json:"decode_errors"`
	Stored        uint64 `json:"stored"`
	StoreFailures uint64 `json:"store_failures"`
}

// Subscriber is the ingestion service.
type Subscriber struct {
	source transport.Source
	store  Store
	hub    Broadcaster
	cfg    Config
	log    zerolog.Logger

	decodeLog rate.Sometimes

	received      atomic.Uint64
	decodeErrors  atomic.Uint64
	stored        atomic.Uint64
	storeFailures atomic.Uint64
}

// NewSubscriber wires a Subscriber. Zero config values get defaults.
func NewSubscriber(source transport.Source, store Store, hub Broadcaster, cfg Config) *Subscriber {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.InsertTimeout <= 0 {
		cfg.InsertTimeout = 2 * time.Second
	}
	return &Subscriber{
		source:    source,
		store:     store,
		hub:       hub,
		cfg:       cfg,
		log:       logging.WithComponent("ingest"),
		decodeLog: rate.Sometimes{First: 5, Interval: 10 * time.Second},
	}
}

// Serve subscribes and processes messages until ctx is done, then drains
// queued readings before returning.
func (s *Subscriber) Serve(ctx context.Context) error {
	msgs, err := s.source.Subscribe(ctx, s.cfg.Topic)
	if err != nil {
		return err
	}

	lanes := make([]chan models.Reading, s.cfg.Workers)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan models.Reading, s.cfg.QueueSize)
		wg.Add(1)
		go func(id int, lane <-chan models.Reading) {
			defer wg.Done()
			s.runLane(id, lane)
		}(i, lanes[i])
	}

	s.log.Info().
		Str("topic", s.cfg.Topic).
		Int("workers", s.cfg.Workers).
		Msg("Ingestion started")

	result := s.dispatch(ctx, msgs, lanes)

	for _, lane := range lanes {
		close(lane)
	}
	wg.Wait()

	st := s.Stats()
	s.log.Info().
		Uint64("received", st.Received).
		Uint64("stored", st.Stored).
		Uint64("decode_errors", st.DecodeErrors).
		Uint64("store_failures", st.StoreFailures).
		Msg("Ingestion stopped")
	return result
}

func (s *Subscriber) dispatch(ctx context.Context, msgs <-chan transport.Message, lanes []chan models.Reading) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrSourceClosed
			}
			s.route(msg, lanes)
		}
	}
}

func (s *Subscriber) route(msg transport.Message, lanes []chan models.Reading) {
	s.received.Add(1)
	metrics.IngestMessagesReceived.Inc()

	r, err := codec.Decode(msg.Payload)
	if err != nil {
		s.decodeErrors.Add(1)
		metrics.IngestDecodeFailures.Inc()
		s.decodeLog.Do(func() {
			s.log.Warn().Err(err).Str("topic", msg.Topic).Int("bytes", len(msg.Payload)).Msg("Dropping malformed message")
		})
		return
	}

	idx := LaneFor(r.DeviceID, len(lanes))
	lanes[idx] <- r
	metrics.IngestQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(lanes[idx])))
}

func (s *Subscriber) runLane(id int, lane <-chan models.Reading) {
	label := strconv.Itoa(id)
	for r := range lane {
		s.process(r)
		metrics.IngestQueueDepth.WithLabelValues(label).Set(float64(len(lane)))
	}
}

// process stores r and broadcasts it on success. The insert deadline is
// independent of Serve's context so queued readings still drain on shutdown.
func (s *Subscriber) process(r models.Reading) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.InsertTimeout)
	err := s.store.Insert(ctx, r)
	cancel()

	if err != nil {
		s.storeFailures.Add(1)
		metrics.IngestStoreFailures.Inc()
		s.log.Error().Err(err).
			Str("device_id", r.DeviceID).
			Time("ts", r.Timestamp).
			Msg("Failed to store reading, dropping")
		return
	}

	s.stored.Add(1)
	metrics.IngestReadingsStored.Inc()
	s.hub.Broadcast(r)
	metrics.IngestProcessingDuration.Observe(time.Since(start).Seconds())
}

// Stats returns a snapshot of the pipeline counters.
func (s *Subscriber) Stats() Stats {
	return Stats{
		Received:      s.received.Load(),
		DecodeErrors:  s.decodeErrors.Load(),
		Stored:        s.stored.Load(),
		StoreFailures: s.storeFailures.Load(),
	}
}

// String names the service for the supervisor.
func (s *Subscriber) String() string {
	return "ingest-subscriber"
}

// LaneFor maps a device id onto one of n lanes.
func LaneFor(deviceID string, n int) int {
	if n <= 1 {
		return 0
	}
	return int(xxhash.Sum64String(deviceID) % uint64(n))
}
