// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/tomtom215/fieldwatch/internal/config"
)

const (
	mqttKind            = "mqtt"
	mqttDisconnectQuiet = 250 // milliseconds
	mqttOpTimeout       = 10 * time.Second
)

// MQTT is a paho backed Source and Publisher.
type MQTT struct {
	cfg    config.MQTTConfig
	opts   options
	client mqtt.Client
	state  *stateTracker

	mu     sync.Mutex
	topic  string
	pipe   *pipe
	start  sync.Once
	token  mqtt.Token
	closed bool
}

// NewMQTT builds an MQTT adapter. No connection is made until Subscribe
// or Connect.
func NewMQTT(cfg config.MQTTConfig, opts ...Option) *MQTT {
	m := &MQTT{cfg: cfg, opts: buildOptions(opts)}
	m.state = newStateTracker(mqttKind, m.opts.listener)

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "fieldwatch-" + uuid.NewString()[:8]
	}

	co := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(clientID).
		SetOrderMatters(true).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(mqttOpTimeout).
		SetPingTimeout(10 * time.Second)
	if cfg.KeepAlive > 0 {
		co.SetKeepAlive(cfg.KeepAlive)
	}
	if cfg.RetryInterval > 0 {
		co.SetConnectRetryInterval(cfg.RetryInterval)
	}
	if cfg.MaxReconnect > 0 {
		co.SetMaxReconnectInterval(cfg.MaxReconnect)
	}
	if cfg.Username != "" {
		co.SetUsername(cfg.Username)
		co.SetPassword(cfg.Password)
	}

	co.SetOnConnectHandler(m.onConnect)
	co.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		m.state.set(StateDisconnected, err)
	})
	co.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		m.state.set(StateConnecting, nil)
	})

	m.client = mqtt.NewClient(co)
	return m
}

// onConnect runs on every (re)connect; a clean session needs the
// subscription restored each time.
func (m *MQTT) onConnect(c mqtt.Client) {
	m.state.set(StateConnected, nil)

	m.mu.Lock()
	topic, p := m.topic, m.pipe
	m.mu.Unlock()
	if topic == "" {
		return
	}

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		p.send(Message{Topic: msg.Topic(), Payload: msg.Payload(), ReceivedAt: time.Now()})
	}
	token := c.Subscribe(topic, byte(m.cfg.QoS), handler)
	if !token.WaitTimeout(mqttOpTimeout) || token.Error() != nil {
		err := token.Error()
		if err == nil {
			err = fmt.Errorf("subscribe to %q timed out", topic)
		}
		m.state.set(StateErrored, &Error{Transport: mqttKind, Op: "subscribe", Err: err})
		return
	}
	m.state.log.Info().Str("topic", topic).Msg("Subscribed to telemetry topic")
}

func (m *MQTT) connect() mqtt.Token {
	m.start.Do(func() {
		m.state.set(StateConnecting, nil)
		m.token = m.client.Connect()
	})
	return m.token
}

// Connect starts the connection and waits until it is established or ctx
// is done. The client keeps retrying in the background either way.
func (m *MQTT) Connect(ctx context.Context) error {
	if m.isClosed() {
		return &Error{Transport: mqttKind, Op: "connect", Err: ErrTransportClosed}
	}
	token := m.connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return &Error{Transport: mqttKind, Op: "connect", Err: err}
		}
		return nil
	case <-ctx.Done():
		return &Error{Transport: mqttKind, Op: "connect", Err: ctx.Err()}
	}
}

// Subscribe implements Source. It does not wait for the broker. A new
// subscription may replace one whose context has ended.
func (m *MQTT) Subscribe(ctx context.Context, topic string) (<-chan Message, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, &Error{Transport: mqttKind, Op: "subscribe", Err: ErrTransportClosed}
	}
	if m.pipe != nil && !m.pipe.isDone() {
		m.mu.Unlock()
		return nil, &Error{Transport: mqttKind, Op: "subscribe", Err: ErrAlreadySubscribed}
	}
	m.topic = topic
	m.pipe = newPipe(m.opts.buffer)
	p := m.pipe
	m.mu.Unlock()

	p.closeOnDone(ctx)

	if m.client.IsConnected() {
		// Already connected through Connect; subscribe now.
		m.onConnect(m.client)
	} else {
		m.connect()
	}
	return p.out, nil
}

// Publish sends payload with the configured QoS.
func (m *MQTT) Publish(ctx context.Context, topic string, payload []byte) error {
	if m.isClosed() {
		return &Error{Transport: mqttKind, Op: "publish", Err: ErrTransportClosed}
	}
	token := m.client.Publish(topic, byte(m.cfg.QoS), false, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return &Error{Transport: mqttKind, Op: "publish", Err: err}
		}
		return nil
	case <-ctx.Done():
		return &Error{Transport: mqttKind, Op: "publish", Err: ctx.Err()}
	}
}

// Status implements Source.
func (m *MQTT) Status() State {
	return m.state.get()
}

// Close disconnects and ends the message channel.
func (m *MQTT) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	p := m.pipe
	m.mu.Unlock()

	// Unblock any handler waiting on a full channel before paho quiesces.
	if p != nil {
		p.close()
	}
	m.client.Disconnect(mqttDisconnectQuiet)
	m.state.set(StateClosed, nil)
	return nil
}

func (m *MQTT) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
