// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

// Command simulator publishes random sensor readings to the telemetry topic.
//
// It reads the same transport environment as the server (TRANSPORT,
// MQTT_URL, NATS_URL, TELEMETRY_TOPIC); flags override it.
//
//	simulator --devices sensor-A,sensor-B --interval 2s --soil
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/tomtom215/fieldwatch/internal/codec"
	"github.com/tomtom215/fieldwatch/internal/config"
	"github.com/tomtom215/fieldwatch/internal/logging"
	"github.com/tomtom215/fieldwatch/internal/transport"
)

func main() {
	devices := pflag.StringSlice("devices", []string{config.DefaultDeviceID}, "device ids to simulate")
	interval := pflag.Duration("interval", 5*time.Second, "time between readings per device")
	kind := pflag.String("transport", "", "mqtt or nats (default from TRANSPORT)")
	broker := pflag.String("broker", "", "broker URL (default from MQTT_URL or NATS_URL)")
	topic := pflag.String("topic", "", "telemetry topic (default from TELEMETRY_TOPIC)")
	soil := pflag.Bool("soil", false, "include soil moisture")
	count := pflag.Int("count", 0, "stop after this many rounds, 0 runs until interrupted")
	seed := pflag.Uint64("seed", uint64(time.Now().UnixNano()), "random seed")
	pflag.Parse()

	cfg, err := config.LoadWithKoanf()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log := logging.WithComponent("simulator")

	if *kind != "" {
		cfg.Transport.Kind = *kind
	}
	if *topic != "" {
		cfg.Transport.Topic = *topic
	}
	if *interval <= 0 {
		log.Fatal().Dur("interval", *interval).Msg("Interval must be positive")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pub, err := newPublisher(ctx, cfg, *broker)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect publisher")
	}
	defer func() {
		if err := pub.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing publisher")
		}
	}()

	ids := cleanDevices(*devices)
	gen := newGenerator(*seed, *soil)
	log.Info().
		Str("transport", cfg.Transport.Kind).
		Str("topic", cfg.Transport.Topic).
		Strs("devices", ids).
		Dur("interval", *interval).
		Msg("Simulator started")

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for round := 1; ; round++ {
		for _, id := range ids {
			r := gen.next(id)
			payload, err := codec.Encode(r)
			if err != nil {
				log.Error().Err(err).Str("device_id", id).Msg("Failed to encode reading")
				continue
			}
			pubCtx, cancel := context.WithTimeout(ctx, *interval)
			err = pub.Publish(pubCtx, cfg.Transport.Topic, payload)
			cancel()
			if err != nil {
				log.Warn().Err(err).Str("device_id", id).Msg("Publish failed")
				continue
			}
			log.Info().RawJSON("reading", payload).Msg("Sent")
		}

		if *count > 0 && round >= *count {
			return
		}
		select {
		case <-ctx.Done():
			log.Info().Msg("Simulator stopped")
			return
		case <-ticker.C:
		}
	}
}

func newPublisher(ctx context.Context, cfg *config.Config, broker string) (transport.Publisher, error) {
	switch cfg.Transport.Kind {
	case config.TransportMQTT:
		if broker != "" {
			cfg.MQTT.BrokerURL = broker
		}
		m := transport.NewMQTT(cfg.MQTT)
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := m.Connect(connectCtx); err != nil {
			_ = m.Close()
			return nil, err
		}
		return m, nil
	case config.TransportNATS:
		if broker != "" {
			cfg.NATS.URL = broker
		}
		return transport.NewNATS(cfg.NATS)
	default:
		return nil, fmt.Errorf("unsupported transport %q", cfg.Transport.Kind)
	}
}

func cleanDevices(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, id := range in {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		out = append(out, config.DefaultDeviceID)
	}
	return out
}
