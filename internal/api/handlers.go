// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package api

import (
	"time"

	"github.com/tomtom215/parley/internal/auth"
	"github.com/tomtom215/parley/internal/config"
	"github.com/tomtom215/parley/internal/database"
	"github.com/tomtom215/parley/internal/hub"
	"github.com/tomtom215/parley/internal/upload"
)

// Handler processes all HTTP requests. One instance serves the whole
// API; every method is safe for concurrent use.
type Handler struct {
	db        *database.DB
	cfg       *config.Config
	jwt       *auth.JWTManager
	sessions  auth.RevocationStore
	hub       *hub.Hub
	uploads   *upload.Store
	startTime time.Time
}

// NewHandler creates the API handler with its dependencies.
func NewHandler(
	db *database.DB,
	cfg *config.Config,
	jwt *auth.JWTManager,
	sessions auth.RevocationStore,
	wsHub *hub.Hub,
	uploads *upload.Store,
) *Handler {
	return &Handler{
		db:        db,
		cfg:       cfg,
		jwt:       jwt,
		sessions:  sessions,
		hub:       wsHub,
		uploads:   uploads,
		startTime: time.Now(),
	}
}
