// FieldWatch - Sensor Telemetry Ingestion and Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldwatch

package api

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/fieldwatch/internal/logging"
	ws "github.com/tomtom215/fieldwatch/internal/websocket"
)

func (h *Handler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts configured origins. A missing Origin header
// is only accepted when every origin is allowed.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	wildcard := slices.Contains(h.origins, "*")
	origin := r.Header.Get("Origin")

	if origin == "" {
		if !wildcard {
			logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		}
		return wildcard
	}
	if wildcard || slices.Contains(h.origins, origin) {
		return true
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// WebSocket serves GET /ws. Each connection receives one sensor:data frame
// per reading persisted after it connected.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		NewResponseWriter(w, r).ServiceUnavailable("Live stream unavailable")
		return
	}

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	ws.NewClient(h.hub, conn).Start()
}

// sanitizeLogValue strips control characters and bounds the length.
func sanitizeLogValue(s string) string {
	const maxLen = 200
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}
