// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/parley/internal/auth"
	"github.com/tomtom215/parley/internal/hub"
	"github.com/tomtom215/parley/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin browser clients are expected; authentication happens
	// before the upgrade, not via the Origin header.
	CheckOrigin: func(*http.Request) bool { return true },
}

// WebSocket handles GET /api/v1/ws: upgrades the authenticated request
// and hands the connection to the hub. Room membership is established
// by join events on the socket, not at upgrade time.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated", nil)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.Ctx(r.Context()).Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(h.hub, conn, userID)
	h.hub.Register <- client
	client.Start()
}
