// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultMosquittoImage is the MQTT broker image used by integration tests.
	DefaultMosquittoImage = "eclipse-mosquitto:2"

	mosquittoPort = "1883/tcp"
)

// Mosquitto 2 only listens on localhost without a config file.
const mosquittoConfig = "listener 1883 0.0.0.0\nallow_anonymous true\n"

// MosquittoContainer is a running MQTT broker.
type MosquittoContainer struct {
	testcontainers.Container
	BrokerURL string
}

// NewMosquittoContainer starts an anonymous Mosquitto broker.
func NewMosquittoContainer(ctx context.Context) (*MosquittoContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        DefaultMosquittoImage,
		ExposedPorts: []string{mosquittoPort},
		Files: []testcontainers.ContainerFile{{
			Reader:            strings.NewReader(mosquittoConfig),
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0o644,
		}},
		WaitingFor: wait.ForListeningPort(mosquittoPort).WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create mosquitto container: %w", err)
	}

	host, port, err := endpoint(ctx, container, mosquittoPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("resolve mosquitto endpoint: %w", err)
	}

	return &MosquittoContainer{
		Container: container,
		BrokerURL: fmt.Sprintf("tcp://%s:%s", host, port),
	}, nil
}
