// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

/*
Package config provides centralized configuration management for Parley.

Configuration is loaded with Koanf v2 from three layered sources, in
increasing priority: built-in defaults, an optional YAML config file,
and environment variables.

The configuration is organized into logical groups:

  - ServerConfig: HTTP server settings (host, port, timeout, base URL)
  - DatabaseConfig: DuckDB path and tuning
  - SecurityConfig: JWT auth, bcrypt cost, rate limiting, CORS
  - UploadConfig: Attachment storage directory and size caps
  - HubConfig: WebSocket hub buffers and keepalive timing
  - SyncConfig: Polling fallback intervals
  - LoggingConfig: Log level and format

Config is immutable after Load() and safe for concurrent reads.
*/
package config
