// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

// Package main is the entry point for the Parley server.
//
// Parley is a self-hosted two-party direct messaging backend: account
// registration and JWT sessions, one-to-one conversations with
// delivered/read receipts, file and image attachments, and a
// room-based WebSocket layer for realtime delivery with a polling
// fallback.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered loading (defaults, config.yaml,
//     environment variables)
//  2. Database: DuckDB storage for users, conversations, and messages
//  3. Sessions: BadgerDB token revocation store plus JWT manager
//  4. WebSocket Hub: conversation rooms for realtime delivery
//  5. Upload Store: attachment and avatar blobs on local disk
//  6. HTTP Server: chi-routed REST API under /api/v1
//
// Long-running components run under a suture supervisor tree with
// three layers (session maintenance, messaging, API) so a crash in
// one layer restarts only that layer.
//
// # Configuration
//
// Required:
//   - JWT_SECRET: 32+ character secret for token signing
//
// Common:
//   - HTTP_HOST / HTTP_PORT: listen address (default 0.0.0.0:8080)
//   - DUCKDB_PATH: database file (default /data/parley.duckdb)
//   - SESSION_STORE_PATH: Badger directory for revoked tokens
//   - UPLOAD_DIR: attachment directory (default /data/uploads)
//   - CORS_ORIGINS: comma-separated allowed origins
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the HTTP
// server drains in-flight requests, the hub closes every WebSocket
// client, and the database checkpoints before close.
//
// # Example Usage
//
//	export JWT_SECRET=$(openssl rand -base64 32)
//	export DUCKDB_PATH=/data/parley.duckdb
//	export SESSION_STORE_PATH=/data/sessions
//	export UPLOAD_DIR=/data/uploads
//	./parley
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/parley/internal/api"
	"github.com/tomtom215/parley/internal/auth"
	"github.com/tomtom215/parley/internal/cache"
	"github.com/tomtom215/parley/internal/config"
	"github.com/tomtom215/parley/internal/database"
	"github.com/tomtom215/parley/internal/hub"
	"github.com/tomtom215/parley/internal/logging"
	"github.com/tomtom215/parley/internal/supervisor"
	"github.com/tomtom215/parley/internal/supervisor/services"
	"github.com/tomtom215/parley/internal/upload"
)

// sessionGCInterval is how often Badger value log GC runs for the
// revocation store.
const sessionGCInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Default logger, config not yet available
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("db_path", cfg.Database.Path).
		Str("environment", cfg.Server.Environment).
		Msg("Starting Parley")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	sessions, err := auth.NewBadgerRevocationStore(cfg.Security.SessionStorePath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open session revocation store")
	}
	defer func() {
		if err := sessions.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing session revocation store")
		}
	}()

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}

	uploads, err := upload.NewStore(&cfg.Upload)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize upload store")
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	if !cfg.Security.CookieSecure && cfg.IsProduction() {
		logging.Warn().Msg("Session cookie is not marked Secure in production (COOKIE_SECURE=false)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Conversation membership is fixed at creation, so join checks
	// can be cached in front of the database.
	membership := cache.NewParticipantCache(db, 5*time.Minute)
	wsHub := hub.NewHub(&cfg.Hub, membership)

	handler := api.NewHandler(db, cfg, jwtManager, sessions, wsHub, uploads)
	authMW := auth.NewMiddleware(jwtManager, sessions, cfg.Security.CookieName)
	router := api.NewRouter(handler, authMW)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Bridge zerolog to slog for sutureslog compatibility
	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddSessionService(services.NewSessionGCService(sessions, sessionGCInterval))
	tree.AddMessagingService(services.NewHubService(wsHub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("Services added to supervisor tree")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Server stopped gracefully")
}
