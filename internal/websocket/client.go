// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package websocket

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/fieldwatch/internal/codec"
	"github.com/tomtom215/fieldwatch/internal/logging"
	"github.com/tomtom215/fieldwatch/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// Frame types on the live stream.
const (
	FrameTypeReading = "sensor:data"
	FrameTypePing    = "ping"
	FrameTypePong    = "pong"
)

// Frame is one message on the live stream.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ReadingFrame encodes r as a sensor:data frame.
func ReadingFrame(r models.Reading) ([]byte, error) {
	data, err := codec.Encode(r)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: FrameTypeReading, Data: data})
}

// Client is a middleman between a websocket connection and a hub subscription.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	sub     *Subscription
	control chan Frame
	log     zerolog.Logger
}

// NewClient subscribes a new client to hub.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	sub := hub.Subscribe()
	return &Client{
		hub:     hub,
		conn:    conn,
		sub:     sub,
		control: make(chan Frame, 1),
		log:     logging.WithComponent("hub").With().Uint64("subscription_id", sub.ID()).Logger(),
	}
}

// Start begins reading and writing for the client.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// readPump consumes client frames until the connection fails, then
// releases the subscription.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unsubscribe(c.sub)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Error().Err(err).Msg("Failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("Unexpected websocket close")
			}
			return
		}
		if frame.Type == FrameTypePing {
			select {
			case c.control <- Frame{Type: FrameTypePong}:
			default:
			}
		}
	}
}

// writePump forwards subscription readings to the connection. It returns
// when the subscription is closed or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case r, ok := <-c.sub.C():
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "subscription closed"))
				return
			}
			msg, err := ReadingFrame(r)
			if err != nil {
				c.log.Error().Err(err).Str("device_id", r.DeviceID).Msg("Failed to encode reading frame")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case frame := <-c.control:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			msg, err := json.Marshal(frame)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
