// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

/*
Package supervisor runs FieldWatch's long-lived services under a suture v4
tree.

The tree has three layers so that a failing layer restarts on its own:

	fieldwatch
	├── data-layer
	│   └── embedded-nats (only when NATS_EMBEDDED=true)
	├── messaging-layer
	│   ├── live-hub
	│   └── ingest-subscriber
	└── api-layer
	    └── http-server

Supervisor events (start, failure, backoff, restart) are logged through
sutureslog into the zerolog pipeline.

Services that cannot usefully restart return suture.ErrDoNotRestart. The
ingest subscriber does this when its transport has been closed, which only
happens during shutdown.
*/
package supervisor
