// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

// Package transport adapts pub/sub brokers (MQTT via paho, NATS via nats.go)
// to a single inbound message channel.
//
// Adapters reconnect forever. Connection state changes are logged, exported
// as metrics and passed to an optional Listener; they never end the message
// channel. The channel closes only when the subscribe context is cancelled
// or the source is closed.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/fieldwatch/internal/logging"
	"github.com/tomtom215/fieldwatch/internal/metrics"
)

// State is the connection state of a transport.
type State string

// Connection states.
const (
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateErrored      State = "errored"
	StateClosed       State = "closed"
)

// DefaultBuffer is the inbound channel capacity.
const DefaultBuffer = 64

var (
	// ErrTransportClosed is returned by operations on a closed source.
	ErrTransportClosed = errors.New("transport closed")

	// ErrAlreadySubscribed is returned by Subscribe while an earlier
	// subscription is still delivering.
	ErrAlreadySubscribed = errors.New("transport already subscribed")
)

// Error is a transport level failure.
type Error struct {
	Transport string
	Op        string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Transport, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is one inbound payload.
type Message struct {
	Topic      string
	Payload    []byte
	ReceivedAt time.Time
}

// Source delivers messages from one telemetry channel.
type Source interface {
	// Subscribe starts delivery from topic. Messages arrive in broker
	// order on the returned channel until ctx is done or Close is called.
	Subscribe(ctx context.Context, topic string) (<-chan Message, error)

	// Status reports the current connection state.
	Status() State

	// Close releases the broker connection.
	Close() error
}

// Publisher sends payloads to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Close() error
}

// Listener observes state changes. err is set for disconnected and errored.
type Listener func(state State, err error)

type options struct {
	listener Listener
	buffer   int
}

// Option configures an adapter.
type Option func(*options)

// WithListener registers a state change listener.
func WithListener(l Listener) Option {
	return func(o *options) { o.listener = l }
}

// WithBuffer sets the inbound channel capacity.
func WithBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.buffer = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{buffer: DefaultBuffer}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// stateTracker records the connection state of one adapter.
type stateTracker struct {
	kind     string
	listener Listener
	log      zerolog.Logger

	mu    sync.RWMutex
	state State
}

func newStateTracker(kind string, listener Listener) *stateTracker {
	return &stateTracker{
		kind:     kind,
		listener: listener,
		log:      logging.WithComponent("transport").With().Str("transport", kind).Logger(),
		state:    StateDisconnected,
	}
}

func (s *stateTracker) get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *stateTracker) set(state State, err error) {
	s.mu.Lock()
	if s.state == state || s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	prev := s.state
	s.state = state
	s.mu.Unlock()

	metrics.RecordTransportState(s.kind, string(state), state == StateConnected)

	ev := s.log.Info()
	if err != nil {
		ev = s.log.Warn().Err(err)
	}
	ev.Str("from", string(prev)).Str("to", string(state)).Msg("Transport state changed")

	if s.listener != nil {
		s.listener(state, err)
	}
}

// pipe is the inbound channel shared by broker callbacks and shutdown.
// Sends never race the close.
type pipe struct {
	mu     sync.RWMutex
	out    chan Message
	done   chan struct{}
	once   sync.Once
	closed bool
}

func newPipe(size int) *pipe {
	return &pipe{
		out:  make(chan Message, size),
		done: make(chan struct{}),
	}
}

// send blocks until the message is queued or the pipe is closing.
func (p *pipe) send(msg Message) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.out <- msg:
		return true
	case <-p.done:
		return false
	}
}

func (p *pipe) close() {
	p.once.Do(func() {
		close(p.done)
		p.mu.Lock()
		p.closed = true
		close(p.out)
		p.mu.Unlock()
	})
}

// isDone reports whether close has started.
func (p *pipe) isDone() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// closeOnDone closes p when ctx is done or p is closed elsewhere.
func (p *pipe) closeOnDone(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			p.close()
		case <-p.done:
		}
	}()
}
