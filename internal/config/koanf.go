// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/fieldwatch/config.yaml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DotEnvFile is loaded into the process environment when present.
var DotEnvFile = ".env"

func defaultConfig() *Config {
	return &Config{
		Transport: TransportConfig{
			Kind:  TransportMQTT,
			Topic: "sensors/data",
		},
		MQTT: MQTTConfig{
			BrokerURL:     "tcp://localhost:1883",
			QoS:           1,
			KeepAlive:     30 * time.Second,
			RetryInterval: 5 * time.Second,
			MaxReconnect:  time.Minute,
		},
		NATS: NATSConfig{
			URL:           "nats://127.0.0.1:4222",
			Embedded:      false,
			Host:          "127.0.0.1",
			Port:          4222,
			ReconnectWait: 2 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:        DriverDuckDB,
			Path:          "/data/fieldwatch.duckdb",
			MaxMemory:     "1GB",
			MaxOpenConns:  10,
			InsertTimeout: 2 * time.Second,
			QueryTimeout:  10 * time.Second,
			Breaker: BreakerConfig{
				Enabled:             true,
				ConsecutiveFailures: 5,
				OpenTimeout:         30 * time.Second,
				HalfOpenRequests:    1,
				Interval:            time.Minute,
			},
		},
		Ingest: IngestConfig{
			Workers:   4,
			QueueSize: 256,
		},
		Hub: HubConfig{
			SubscriberBuffer: 256,
		},
		Cache: CacheConfig{
			Enabled:  true,
			TTL:      30 * time.Second,
			Capacity: 1024,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
			DefaultDeviceID: DefaultDeviceID,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads defaults, then the optional YAML file, then the
// environment (including .env), then validates.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// godotenv never overrides variables already set in the process.
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", DotEnvFile, err)
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields splits comma-separated env values for slice keys.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"transport":       "transport.kind",
	"telemetry_topic": "transport.topic",

	"mqtt_url":                    "mqtt.broker_url",
	"mqtt_client_id":              "mqtt.client_id",
	"mqtt_username":               "mqtt.username",
	"mqtt_password":               "mqtt.password",
	"mqtt_qos":                    "mqtt.qos",
	"mqtt_keep_alive":             "mqtt.keep_alive",
	"mqtt_retry_interval":         "mqtt.retry_interval",
	"mqtt_max_reconnect_interval": "mqtt.max_reconnect_interval",

	"nats_url":            "nats.url",
	"nats_embedded":       "nats.embedded",
	"nats_host":           "nats.host",
	"nats_port":           "nats.port",
	"nats_reconnect_wait": "nats.reconnect_wait",
	"nats_mqtt_port":      "nats.mqtt_port",
	"nats_store_dir":      "nats.store_dir",

	"db_driver":                    "database.driver",
	"duckdb_path":                  "database.path",
	"duckdb_max_memory":            "database.max_memory",
	"duckdb_threads":               "database.threads",
	"database_url":                 "database.dsn",
	"db_max_open_conns":            "database.max_open_conns",
	"store_insert_timeout":         "database.insert_timeout",
	"store_query_timeout":          "database.query_timeout",
	"breaker_enabled":              "database.breaker.enabled",
	"breaker_consecutive_failures": "database.breaker.consecutive_failures",
	"breaker_open_timeout":         "database.breaker.open_timeout",
	"breaker_half_open_requests":   "database.breaker.half_open_requests",
	"breaker_interval":             "database.breaker.interval",

	"ingest_workers":    "ingest.workers",
	"ingest_queue_size": "ingest.queue_size",

	"hub_subscriber_buffer": "hub.subscriber_buffer",

	"cache_enabled":  "cache.enabled",
	"cache_ttl":      "cache.ttl",
	"cache_capacity": "cache.capacity",

	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"cors_origins":          "server.cors_origins",
	"rate_limit_requests":   "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",
	"default_device_id":     "server.default_device_id",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps MQTT_URL to mqtt.broker_url and so on. Variables not
// in envMappings return "" and are skipped by the env provider.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
