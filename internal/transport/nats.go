// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package transport

import (
	"context"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tomtom215/fieldwatch/internal/config"
)

const natsKind = "nats"

// NATS is a nats.go backed Source and Publisher.
type NATS struct {
	conn  *nats.Conn
	opts  options
	state *stateTracker

	mu     sync.Mutex
	sub    *nats.Subscription
	pipe   *pipe
	closed bool
}

// NewNATS connects to cfg.URL. The connection is retried in the background
// when the server is not reachable yet, so an error here means the options
// themselves are unusable.
func NewNATS(cfg config.NATSConfig, opts ...Option) (*NATS, error) {
	n := &NATS{opts: buildOptions(opts)}
	n.state = newStateTracker(natsKind, n.opts.listener)

	wait := cfg.ReconnectWait
	if wait <= 0 {
		wait = 2 * time.Second
	}

	n.state.set(StateConnecting, nil)
	conn, err := nats.Connect(cfg.URL,
		nats.Name("fieldwatch"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(wait),
		nats.ConnectHandler(func(*nats.Conn) {
			n.state.set(StateConnected, nil)
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			n.state.set(StateDisconnected, err)
		}),
		nats.ReconnectHandler(func(*nats.Conn) {
			n.state.set(StateConnected, nil)
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			n.state.log.Warn().Err(err).Msg("NATS asynchronous error")
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			n.state.set(StateClosed, nil)
		}),
	)
	if err != nil {
		n.state.set(StateErrored, err)
		return nil, &Error{Transport: natsKind, Op: "connect", Err: err}
	}
	n.conn = conn

	// ConnectHandler only fires for connections completed by the retry loop.
	if conn.IsConnected() {
		n.state.set(StateConnected, nil)
	}
	return n, nil
}

// Subscribe implements Source.
func (n *NATS) Subscribe(ctx context.Context, topic string) (<-chan Message, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil, &Error{Transport: natsKind, Op: "subscribe", Err: ErrTransportClosed}
	}
	if n.pipe != nil && !n.pipe.isDone() {
		return nil, &Error{Transport: natsKind, Op: "subscribe", Err: ErrAlreadySubscribed}
	}
	if n.sub != nil {
		_ = n.sub.Unsubscribe()
		n.sub = nil
	}

	p := newPipe(n.opts.buffer)
	// Handlers of one subscription run sequentially, preserving order.
	sub, err := n.conn.Subscribe(topic, func(msg *nats.Msg) {
		p.send(Message{Topic: msg.Subject, Payload: msg.Data, ReceivedAt: time.Now()})
	})
	if err != nil {
		return nil, &Error{Transport: natsKind, Op: "subscribe", Err: err}
	}

	n.sub, n.pipe = sub, p
	p.closeOnDone(ctx)
	n.state.log.Info().Str("topic", topic).Msg("Subscribed to telemetry topic")
	return p.out, nil
}

// Publish sends payload and flushes it to the server.
func (n *NATS) Publish(ctx context.Context, topic string, payload []byte) error {
	if n.isClosed() {
		return &Error{Transport: natsKind, Op: "publish", Err: ErrTransportClosed}
	}
	if err := n.conn.Publish(topic, payload); err != nil {
		return &Error{Transport: natsKind, Op: "publish", Err: err}
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return &Error{Transport: natsKind, Op: "flush", Err: err}
	}
	return nil
}

// Status implements Source.
func (n *NATS) Status() State {
	return n.state.get()
}

// Close unsubscribes, ends the message channel and closes the connection.
func (n *NATS) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	sub, p := n.sub, n.pipe
	n.mu.Unlock()

	if p != nil {
		p.close()
	}
	if sub != nil {
		_ = sub.Unsubscribe()
	}
	n.conn.Close()
	n.state.set(StateClosed, nil)
	return nil
}

func (n *NATS) isClosed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}
