// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML config file, and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access
// from multiple goroutines.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	Upload   UploadConfig   `koanf:"upload"`
	Hub      HubConfig      `koanf:"hub"`
	Sync     SyncConfig     `koanf:"sync"`
	API      APIConfig      `koanf:"api"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_PORT: Listen port (default: 8080)
//   - HTTP_HOST: Bind address (default: 0.0.0.0)
//   - HTTP_TIMEOUT: Read/write timeout (default: 30s)
//   - BASE_URL: Public base URL used when building attachment links
//   - ENVIRONMENT: "development" or "production"
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	BaseURL     string        `koanf:"base_url"`
	Environment string        `koanf:"environment"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds DuckDB settings.
//
// Environment Variables:
//   - DUCKDB_PATH: Database file path (default: /data/parley.duckdb)
//   - DUCKDB_MAX_MEMORY: Memory limit passed to DuckDB (default: 2GB)
//   - DUCKDB_THREADS: Worker threads, 0 = runtime.NumCPU()
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// SecurityConfig holds authentication and rate limiting settings.
//
// Environment Variables:
//   - JWT_SECRET: HMAC signing secret, required (min 32 chars)
//   - TOKEN_TTL: Session token lifetime (default: 720h, 30 days)
//   - BCRYPT_COST: Password hashing cost (default: 12)
//   - RATE_LIMIT_REQUESTS / RATE_LIMIT_WINDOW / DISABLE_RATE_LIMIT
//   - CORS_ORIGINS: Comma-separated allowed origins
//   - SESSION_STORE_PATH: Badger directory for token revocation state
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	TokenTTL          time.Duration `koanf:"token_ttl"`
	BcryptCost        int           `koanf:"bcrypt_cost"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	SessionStorePath  string        `koanf:"session_store_path"`
	CookieName        string        `koanf:"cookie_name"`
	CookieSecure      bool          `koanf:"cookie_secure"`
}

// UploadConfig holds attachment storage settings.
//
// Environment Variables:
//   - UPLOAD_DIR: Directory for stored files (default: /data/uploads)
//   - UPLOAD_MAX_FILE_SIZE: Attachment size cap in bytes (default: 10MiB)
//   - UPLOAD_MAX_AVATAR_SIZE: Avatar size cap in bytes (default: 5MiB)
type UploadConfig struct {
	Dir           string `koanf:"dir"`
	MaxFileSize   int64  `koanf:"max_file_size"`
	MaxAvatarSize int64  `koanf:"max_avatar_size"`
	PublicPath    string `koanf:"public_path"`
}

// HubConfig tunes the WebSocket hub and per-connection behavior.
type HubConfig struct {
	SendBufferSize  int           `koanf:"send_buffer_size"`
	MaxMessageSize  int64         `koanf:"max_message_size"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	PongTimeout     time.Duration `koanf:"pong_timeout"`
	PingInterval    time.Duration `koanf:"ping_interval"`
	TypingPerSecond float64       `koanf:"typing_per_second"`
	TypingBurst     int           `koanf:"typing_burst"`
}

// SyncConfig tunes the polling client used as a fallback when the
// WebSocket connection is unavailable.
type SyncConfig struct {
	MessagesInterval      time.Duration `koanf:"messages_interval"`
	ConversationsInterval time.Duration `koanf:"conversations_interval"`
	RequestTimeout        time.Duration `koanf:"request_timeout"`
}

// APIConfig holds pagination limits for list endpoints.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// LoggingConfig holds log output settings.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json or console (default: json)
//   - LOG_CALLER: Include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return !c.IsProduction()
}
