// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package config

import (
	"fmt"
	"time"
)

// Transport kinds.
const (
	TransportMQTT = "mqtt"
	TransportNATS = "nats"
)

// Database drivers.
const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

// DefaultDeviceID is used by the dashboard routes when no deviceId is given.
const DefaultDeviceID = "sensor-A"

// Config is the complete service configuration.
type Config struct {
	Transport TransportConfig `koanf:"transport"`
	MQTT      MQTTConfig      `koanf:"mqtt"`
	NATS      NATSConfig      `koanf:"nats"`
	Database  DatabaseConfig  `koanf:"database"`
	Ingest    IngestConfig    `koanf:"ingest"`
	Hub       HubConfig       `koanf:"hub"`
	Cache     CacheConfig     `koanf:"cache"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// TransportConfig selects the pub/sub transport and the telemetry channel.
type TransportConfig struct {
	Kind  string `koanf:"kind"`
	Topic string `koanf:"topic"`
}

// MQTTConfig configures the paho MQTT client.
type MQTTConfig struct {
	BrokerURL     string        `koanf:"broker_url"`
	ClientID      string        `koanf:"client_id"` // generated when empty
	Username      string        `koanf:"username"`
	Password      string        `koanf:"password"`
	QoS           int           `koanf:"qos"`
	KeepAlive     time.Duration `koanf:"keep_alive"`
	RetryInterval time.Duration `koanf:"retry_interval"`
	MaxReconnect  time.Duration `koanf:"max_reconnect_interval"`
}

// NATSConfig configures the NATS client and the optional embedded server.
type NATSConfig struct {
	URL           string        `koanf:"url"`
	Embedded      bool          `koanf:"embedded"`
	Host          string        `koanf:"host"`
	Port          int           `koanf:"port"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`

	// MQTTPort and StoreDir enable the embedded server's MQTT listener,
	// which needs JetStream storage.
	MQTTPort int    `koanf:"mqtt_port"`
	StoreDir string `koanf:"store_dir"`
}

// DatabaseConfig configures the Store.
type DatabaseConfig struct {
	Driver string `koanf:"driver"`

	// Path is the DuckDB file, or ":memory:".
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 lets DuckDB decide

	// DSN is the Postgres connection string (DATABASE_URL).
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`

	InsertTimeout time.Duration `koanf:"insert_timeout"`
	QueryTimeout  time.Duration `koanf:"query_timeout"`

	Breaker BreakerConfig `koanf:"breaker"`
}

// BreakerConfig configures the circuit breaker in front of Store inserts.
type BreakerConfig struct {
	Enabled             bool          `koanf:"enabled"`
	ConsecutiveFailures uint32        `koanf:"consecutive_failures"`
	OpenTimeout         time.Duration `koanf:"open_timeout"`
	HalfOpenRequests    uint32        `koanf:"half_open_requests"`
	Interval            time.Duration `koanf:"interval"`
}

// IngestConfig sizes the ingestion pipeline.
type IngestConfig struct {
	Workers   int `koanf:"workers"`
	QueueSize int `koanf:"queue_size"`
}

// HubConfig configures live fan-out.
type HubConfig struct {
	SubscriberBuffer int `koanf:"subscriber_buffer"`
}

// CacheConfig configures the rollup cache in front of the Store. Entries for
// a device are dropped whenever a reading for it is stored.
type CacheConfig struct {
	Enabled  bool          `koanf:"enabled"`
	TTL      time.Duration `koanf:"ttl"`
	Capacity int           `koanf:"capacity"`
}

// ServerConfig configures the HTTP façade.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	Timeout           time.Duration `koanf:"timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	DefaultDeviceID   string        `koanf:"default_device_id"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from all sources. See LoadWithKoanf.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
