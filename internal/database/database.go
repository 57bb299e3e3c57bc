// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/fieldwatch/internal/config"
	"github.com/tomtom215/fieldwatch/internal/logging"
)

// DB is the Store. It is safe for concurrent use; every operation is a
// single statement and therefore individually atomic.
type DB struct {
	conn    *sql.DB
	cfg     *config.DatabaseConfig
	driver  string
	breaker *gobreaker.CircuitBreaker[struct{}]
	log     zerolog.Logger
	closed  atomic.Bool
}

// Status summarises Store health for the health endpoints.
type Status struct {
	Available bool   `json:"available"`
	Driver    string `json:"driver"`
	Breaker   string `json:"breaker"`
	Error     string `json:"error,omitempty"`
}

// New opens the configured database and creates the schema. A failure here
// means the service cannot run.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	var (
		conn *sql.DB
		err  error
	)
	switch cfg.Driver {
	case config.DriverDuckDB, "":
		conn, err = openDuckDB(cfg)
	case config.DriverPostgres:
		conn, err = sql.Open("postgres", cfg.DSN)
	default:
		return nil, storeErr("open", fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver))
	}
	if err != nil {
		return nil, storeErr("open", err)
	}

	driver := cfg.Driver
	if driver == "" {
		driver = config.DriverDuckDB
	}

	db := &DB{
		conn:   conn,
		cfg:    cfg,
		driver: driver,
		log:    logging.WithComponent("store"),
	}
	db.breaker = newInsertBreaker(cfg.Breaker, db.log)
	db.configureConnectionPool()

	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, storeErr("connect", err)
	}
	if err := db.createTables(ctx); err != nil {
		closeQuietly(conn)
		return nil, storeErr("init schema", err)
	}

	db.log.Info().Str("driver", driver).Str("target", db.target()).Msg("Store initialized")
	return db, nil
}

func openDuckDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	path := cfg.Path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	params := url.Values{}
	params.Set("access_mode", "read_write")
	if cfg.MaxMemory != "" {
		params.Set("max_memory", cfg.MaxMemory)
	}
	if cfg.Threads > 0 {
		params.Set("threads", fmt.Sprint(cfg.Threads))
	}
	return sql.Open("duckdb", path+"?"+params.Encode())
}

func (db *DB) configureConnectionPool() {
	maxOpen := db.cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	db.conn.SetMaxOpenConns(maxOpen)
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// target describes the database location without credentials.
func (db *DB) target() string {
	if db.driver == config.DriverDuckDB {
		return db.cfg.Path
	}
	u, err := url.Parse(db.cfg.DSN)
	if err != nil || u.Host == "" {
		return "postgres"
	}
	return u.Host + u.Path
}

// Driver returns the active driver name.
func (db *DB) Driver() string {
	return db.driver
}

// Ping checks that the database answers.
func (db *DB) Ping(ctx context.Context) error {
	if db.closed.Load() {
		return storeErr("ping", ErrClosed)
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	return storeErr("ping", db.conn.PingContext(ctx))
}

// Status reports whether the Store can currently accept writes.
func (db *DB) Status(ctx context.Context) Status {
	s := Status{Driver: db.driver, Breaker: db.breaker.State().String()}
	if err := db.Ping(ctx); err != nil {
		s.Error = err.Error()
		return s
	}
	s.Available = db.breaker.State() != gobreaker.StateOpen
	return s
}

// Close checkpoints DuckDB and closes the pool. Calling it twice is harmless.
func (db *DB) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return nil
	}
	if db.driver == config.DriverDuckDB {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
			db.log.Warn().Err(err).Msg("Failed to checkpoint database before close")
		}
		cancel()
	}
	return db.conn.Close()
}

// ensureContext applies a 30 second timeout when ctx has no deadline.
func ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 30*time.Second)
	}
	if _, ok := ctx.Deadline(); !ok {
		return context.WithTimeout(ctx, 30*time.Second)
	}
	return ctx, func() {}
}
