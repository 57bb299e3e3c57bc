// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package websocket

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/tomtom215/fieldwatch/internal/logging"
	"github.com/tomtom215/fieldwatch/internal/metrics"
	"github.com/tomtom215/fieldwatch/internal/models"
)

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// DefaultSubscriberBuffer is the per-subscription buffer when none is configured.
const DefaultSubscriberBuffer = 256

var subscriptionIDCounter atomic.Uint64

// Subscription is one live registration.
type Subscription struct {
	id   uint64
	ch   chan models.Reading
	once sync.Once
}

// ID returns the subscription's unique identifier.
func (s *Subscription) ID() uint64 {
	return s.id
}

// C delivers readings. It is closed when the subscription ends, whether by
// Unsubscribe, overflow or hub shutdown.
func (s *Subscription) C() <-chan models.Reading {
	return s.ch
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

// Hub fans readings out to live subscribers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	buffer int
	closed bool
	log    zerolog.Logger
}

// NewHub creates a Hub whose subscriptions buffer up to buffer readings.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Hub{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
		log:    logging.WithComponent("hub"),
	}
}

// Subscribe registers a new subscriber. After shutdown the returned
// subscription is already closed.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		id: subscriptionIDCounter.Add(1),
		ch: make(chan models.Reading, h.buffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.close()
		return sub
	}
	h.subs[sub.id] = sub
	count := len(h.subs)
	h.mu.Unlock()

	metrics.HubSubscribers.Set(float64(count))
	h.log.Debug().Uint64("subscription_id", sub.id).Int("subscribers", count).Msg("Live subscriber connected")
	return sub
}

// Unsubscribe removes sub. Repeated calls and unknown subscriptions are no-ops.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	_, ok := h.subs[sub.id]
	delete(h.subs, sub.id)
	count := len(h.subs)
	h.mu.Unlock()

	sub.close()
	if ok {
		metrics.HubSubscribers.Set(float64(count))
		h.log.Debug().Uint64("subscription_id", sub.id).Int("subscribers", count).Msg("Live subscriber disconnected")
	}
}

// Broadcast delivers r to every current subscriber without waiting on any
// of them. Subscribers with a full buffer are disconnected.
func (h *Hub) Broadcast(r models.Reading) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	// Ascending subscription id keeps delivery order reproducible.
	ids := make([]uint64, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var dropped []uint64
	for _, id := range ids {
		select {
		case h.subs[id].ch <- r:
		default:
			dropped = append(dropped, id)
		}
	}

	for _, id := range dropped {
		h.subs[id].close()
		delete(h.subs, id)
	}

	metrics.HubBroadcasts.Inc()
	if len(dropped) > 0 {
		metrics.HubSlowSubscribersDropped.Add(float64(len(dropped)))
		metrics.HubSubscribers.Set(float64(len(h.subs)))
		h.log.Warn().
			Int("dropped", len(dropped)).
			Int("subscribers", len(h.subs)).
			Msg("Disconnected slow live subscribers")
	}
}

// SubscriberCount returns the number of live subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// RunWithContext blocks until ctx is done, then releases every subscription.
// It is the hub's supervised lifecycle.
func (h *Hub) RunWithContext(ctx context.Context) error {
	<-ctx.Done()

	count := h.closeAll()
	h.log.Info().
		Str("reason", string(shutdownReason(ctx))).
		Int("subscribers_closed", count).
		Msg("Live hub stopped")
	return ctx.Err()
}

func (h *Hub) closeAll() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	count := len(h.subs)
	for id, sub := range h.subs {
		sub.close()
		delete(h.subs, id)
	}
	metrics.HubSubscribers.Set(0)
	return count
}

func shutdownReason(ctx context.Context) ShutdownReason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}
