// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package api

import (
	"net/http"
	"time"
)

// healthStatus is the payload of the health endpoints.
type healthStatus struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Connections   int    `json:"ws_connections,omitempty"`
}

// HealthLive handles GET /api/v1/health/live. It answers as long as the
// process can serve requests; no dependencies are checked.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondSuccess(w, http.StatusOK, healthStatus{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}, start)
}

// HealthReady handles GET /api/v1/health/ready. Readiness requires the
// database to answer a ping.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if err := h.db.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_ERROR", "Database is not reachable", err)
		return
	}

	respondSuccess(w, http.StatusOK, healthStatus{
		Status:        "ready",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Connections:   h.hub.GetClientCount(),
	}, start)
}
