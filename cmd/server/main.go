// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/tomtom215/fieldwatch/internal/api"
	"github.com/tomtom215/fieldwatch/internal/cache"
	"github.com/tomtom215/fieldwatch/internal/config"
	"github.com/tomtom215/fieldwatch/internal/database"
	"github.com/tomtom215/fieldwatch/internal/ingest"
	"github.com/tomtom215/fieldwatch/internal/logging"
	"github.com/tomtom215/fieldwatch/internal/query"
	"github.com/tomtom215/fieldwatch/internal/supervisor"
	"github.com/tomtom215/fieldwatch/internal/supervisor/services"
	"github.com/tomtom215/fieldwatch/internal/transport"
	ws "github.com/tomtom215/fieldwatch/internal/websocket"
)

func main() {
	configPath := pflag.String("config", "", "path to a YAML configuration file")
	showVersion := pflag.Bool("version", false, "print the version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Println(api.Version)
		return
	}
	if *configPath != "" {
		if err := os.Setenv("CONFIG_PATH", *configPath); err != nil {
			fmt.Fprintf(os.Stderr, "set CONFIG_PATH: %v\n", err)
			os.Exit(1)
		}
	}

	cfg, err := config.LoadWithKoanf()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", api.Version).
		Str("transport", cfg.Transport.Kind).
		Str("topic", cfg.Transport.Topic).
		Str("store", cfg.Database.Driver).
		Msg("Starting FieldWatch with supervisor tree")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Str("driver", db.Driver()).Msg("Store initialized")

	var embedded *transport.EmbeddedServer
	if cfg.NATS.Embedded {
		embedded, err = startEmbedded(cfg)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to start embedded NATS server")
		}
	}

	src, err := newTelemetry(cfg, embedded)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create telemetry transport")
	}
	defer func() {
		if err := src.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing telemetry transport")
		}
	}()

	// Ingestion and queries share one Store so inserts invalidate the
	// rollup cache.
	var store cache.Backend = db
	if cfg.Cache.Enabled {
		store = cache.NewStore(db, cfg.Cache.Capacity, cfg.Cache.TTL)
		logging.Info().Dur("ttl", cfg.Cache.TTL).Int("capacity", cfg.Cache.Capacity).Msg("Rollup cache enabled")
	}

	hub := ws.NewHub(cfg.Hub.SubscriberBuffer)
	subscriber := ingest.NewSubscriber(src, store, hub, ingest.Config{
		Topic:         cfg.Transport.Topic,
		Workers:       cfg.Ingest.Workers,
		QueueSize:     cfg.Ingest.QueueSize,
		InsertTimeout: cfg.Database.InsertTimeout,
	})
	engine := query.NewEngine(store, cfg.Database.QueryTimeout)

	handler := api.NewHandler(api.Dependencies{
		Engine:    engine,
		Store:     db,
		Transport: src,
		Ingest:    subscriber,
		Hub:       hub,
	}, cfg.Server)
	chiMiddleware := api.NewChiMiddleware(api.ChiMiddlewareConfigFromServer(cfg.Server))
	router := api.NewRouter(handler, chiMiddleware)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
		// WriteTimeout stays zero; it would cut long-lived WebSocket streams.
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	if embedded != nil {
		tree.AddDataService(services.NewEmbeddedBrokerService(embedded, cfg.Server.ShutdownTimeout))
		logging.Info().Str("url", embedded.ClientURL()).Msg("Embedded NATS service added")
	}
	tree.AddMessagingService(services.NewHubService(hub))
	tree.AddMessagingService(services.NewIngestService(subscriber))
	logging.Info().Int("workers", cfg.Ingest.Workers).Msg("Ingestion services added")

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("Starting supervisor tree...")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	stats := subscriber.Stats()
	logging.Info().
		Uint64("received", stats.Received).
		Uint64("stored", stats.Stored).
		Uint64("decode_errors", stats.DecodeErrors).
		Uint64("store_failures", stats.StoreFailures).
		Msg("Application stopped gracefully")
}

func startEmbedded(cfg *config.Config) (*transport.EmbeddedServer, error) {
	embeddedCfg := transport.EmbeddedConfig{
		Host:         cfg.NATS.Host,
		Port:         cfg.NATS.Port,
		ReadyTimeout: 10 * time.Second,
	}
	// The MQTT listener is only needed when ingestion speaks MQTT.
	if cfg.Transport.Kind == config.TransportMQTT {
		embeddedCfg.MQTTPort = cfg.NATS.MQTTPort
		embeddedCfg.StoreDir = cfg.NATS.StoreDir
	}

	srv, err := transport.NewEmbeddedServer(embeddedCfg)
	if err != nil {
		return nil, err
	}
	logging.Info().
		Str("url", srv.ClientURL()).
		Int("mqtt_port", embeddedCfg.MQTTPort).
		Msg("Embedded NATS server started")
	return srv, nil
}

func newTelemetry(cfg *config.Config, embedded *transport.EmbeddedServer) (transport.Source, error) {
	buffer := transport.WithBuffer(cfg.Ingest.QueueSize)

	switch cfg.Transport.Kind {
	case config.TransportMQTT:
		m := transport.NewMQTT(cfg.MQTT, buffer)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// A broker that is down at startup is retried in the background.
		if err := m.Connect(ctx); err != nil {
			logging.Warn().Err(err).Str("broker", cfg.MQTT.BrokerURL).Msg("MQTT broker not reachable yet")
		}
		return m, nil

	case config.TransportNATS:
		natsCfg := cfg.NATS
		if embedded != nil {
			natsCfg.URL = embedded.ClientURL()
		}
		return transport.NewNATS(natsCfg, buffer)

	default:
		return nil, fmt.Errorf("unsupported transport %q", cfg.Transport.Kind)
	}
}
