// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

//go:build integration

package transport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/fieldwatch/internal/testinfra"
)

func TestMQTTAgainstMosquitto(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx := context.Background()
	broker, err := testinfra.NewMosquittoContainer(ctx)
	if err != nil {
		t.Fatalf("start mosquitto: %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, broker)

	src := NewMQTT(mqttConfig(broker.BrokerURL), WithBuffer(64))
	t.Cleanup(func() { _ = src.Close() })
	msgs, err := src.Subscribe(ctx, "sensors/data")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	waitState(t, src, StateConnected)

	pub := NewMQTT(mqttConfig(broker.BrokerURL))
	t.Cleanup(func() { _ = pub.Close() })
	pubCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	if err := pub.Connect(pubCtx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	// Give the subscriber's SUBACK a moment before the ordered burst.
	time.Sleep(500 * time.Millisecond)
	const n = 20
	for i := 0; i < n; i++ {
		if err := pub.Publish(pubCtx, "sensors/data", []byte(fmt.Sprintf("%d", i))); err != nil {
			t.Fatalf("Publish %d failed: %v", i, err)
		}
	}

	for i := 0; i < n; i++ {
		select {
		case msg := <-msgs:
			if string(msg.Payload) != fmt.Sprintf("%d", i) {
				t.Fatalf("message %d = %q, out of order", i, msg.Payload)
			}
		case <-time.After(10 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
}
