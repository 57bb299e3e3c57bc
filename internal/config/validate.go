// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tomtom215/fieldwatch/internal/logging"
)

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if err := c.validateTransport(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTransport() error {
	if strings.TrimSpace(c.Transport.Topic) == "" {
		return fmt.Errorf("TELEMETRY_TOPIC must not be empty")
	}

	switch c.Transport.Kind {
	case TransportMQTT:
		u, err := url.Parse(c.MQTT.BrokerURL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("MQTT_URL is invalid: %q", c.MQTT.BrokerURL)
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			return fmt.Errorf("MQTT_QOS must be 0, 1 or 2, got %d", c.MQTT.QoS)
		}
		if c.MQTT.RetryInterval <= 0 {
			return fmt.Errorf("MQTT_RETRY_INTERVAL must be positive")
		}
		if c.NATS.Embedded && (c.NATS.MQTTPort <= 0 || c.NATS.StoreDir == "") {
			return fmt.Errorf("NATS_MQTT_PORT and NATS_STORE_DIR are required for an embedded MQTT broker")
		}
	case TransportNATS:
		if c.NATS.Embedded {
			if c.NATS.Port < 0 || c.NATS.Port > 65535 {
				return fmt.Errorf("NATS_PORT must be between 0 and 65535, got %d", c.NATS.Port)
			}
			return nil
		}
		u, err := url.Parse(c.NATS.URL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("NATS_URL is invalid: %q", c.NATS.URL)
		}
	default:
		return fmt.Errorf("TRANSPORT must be %q or %q, got %q", TransportMQTT, TransportNATS, c.Transport.Kind)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case DriverDuckDB:
		if c.Database.Path == "" {
			return fmt.Errorf("DUCKDB_PATH is required")
		}
		if c.Database.Threads < 0 {
			return fmt.Errorf("DUCKDB_THREADS must not be negative")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverDuckDB, DriverPostgres, c.Database.Driver)
	}

	if c.Database.InsertTimeout <= 0 || c.Database.QueryTimeout <= 0 {
		return fmt.Errorf("STORE_INSERT_TIMEOUT and STORE_QUERY_TIMEOUT must be positive")
	}
	if c.Database.Breaker.Enabled {
		if c.Database.Breaker.ConsecutiveFailures == 0 {
			return fmt.Errorf("BREAKER_CONSECUTIVE_FAILURES must be at least 1")
		}
		if c.Database.Breaker.OpenTimeout <= 0 {
			return fmt.Errorf("BREAKER_OPEN_TIMEOUT must be positive")
		}
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Ingest.Workers < 1 {
		return fmt.Errorf("INGEST_WORKERS must be at least 1, got %d", c.Ingest.Workers)
	}
	if c.Ingest.QueueSize < 1 {
		return fmt.Errorf("INGEST_QUEUE_SIZE must be at least 1, got %d", c.Ingest.QueueSize)
	}
	if c.Hub.SubscriberBuffer < 1 {
		return fmt.Errorf("HUB_SUBSCRIBER_BUFFER must be at least 1, got %d", c.Hub.SubscriberBuffer)
	}
	if c.Cache.Enabled && (c.Cache.TTL <= 0 || c.Cache.Capacity < 1) {
		return fmt.Errorf("CACHE_TTL and CACHE_CAPACITY must be positive when CACHE_ENABLED=true")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 || c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT and HTTP_SHUTDOWN_TIMEOUT must be positive")
	}
	if !c.Server.RateLimitDisabled && (c.Server.RateLimitReqs < 1 || c.Server.RateLimitWindow <= 0) {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL is invalid: %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
}
