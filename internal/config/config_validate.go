// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	if err := c.validateUpload(); err != nil {
		return err
	}

	if err := c.validateHub(); err != nil {
		return err
	}

	if err := c.validateSync(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got: %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got: %s", c.Server.Timeout)
	}
	if c.Server.BaseURL != "" {
		if err := validateHTTPURL(c.Server.BaseURL, "BASE_URL"); err != nil {
			return err
		}
	}
	switch c.Server.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be development or production, got: %s", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be >= 0, got: %d", c.Database.Threads)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if err := c.validateJWTSecret(); err != nil {
		return err
	}
	if c.Security.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got: %s", c.Security.TokenTTL)
	}
	// bcrypt's library bounds; below 10 is too weak for stored credentials
	if c.Security.BcryptCost < 10 || c.Security.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 10 and 31, got: %d", c.Security.BcryptCost)
	}
	if err := c.validateRateLimits(); err != nil {
		return err
	}
	return c.validateCORS()
}

func (c *Config) validateJWTSecret() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters, got: %d", len(c.Security.JWTSecret))
	}
	if containsPlaceholder(c.Security.JWTSecret) {
		return fmt.Errorf("JWT_SECRET appears to be a placeholder value, generate a real secret")
	}
	return nil
}

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be >= 1, got: %d", c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got: %s", c.Security.RateLimitWindow)
	}
	return nil
}

func (c *Config) validateCORS() error {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			continue
		}
		if err := validateHTTPURL(origin, "CORS_ORIGINS"); err != nil {
			return err
		}
	}
	return nil
}

// ShouldWarnAboutCORS reports whether production mode is combined with a
// wildcard CORS origin. The combination works but defeats origin checks.
func (c *Config) ShouldWarnAboutCORS() bool {
	if !c.IsProduction() {
		return false
	}
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

func (c *Config) validateUpload() error {
	if c.Upload.Dir == "" {
		return fmt.Errorf("UPLOAD_DIR is required")
	}
	if c.Upload.MaxFileSize < 1 {
		return fmt.Errorf("UPLOAD_MAX_FILE_SIZE must be >= 1, got: %d", c.Upload.MaxFileSize)
	}
	if c.Upload.MaxAvatarSize < 1 {
		return fmt.Errorf("UPLOAD_MAX_AVATAR_SIZE must be >= 1, got: %d", c.Upload.MaxAvatarSize)
	}
	if !strings.HasPrefix(c.Upload.PublicPath, "/") {
		return fmt.Errorf("UPLOAD_PUBLIC_PATH must start with /, got: %s", c.Upload.PublicPath)
	}
	return nil
}

func (c *Config) validateHub() error {
	if c.Hub.SendBufferSize < 1 {
		return fmt.Errorf("HUB_SEND_BUFFER must be >= 1, got: %d", c.Hub.SendBufferSize)
	}
	if c.Hub.PingInterval >= c.Hub.PongTimeout {
		return fmt.Errorf("HUB_PING_INTERVAL (%s) must be shorter than HUB_PONG_TIMEOUT (%s)",
			c.Hub.PingInterval, c.Hub.PongTimeout)
	}
	if c.Hub.TypingPerSecond <= 0 {
		return fmt.Errorf("HUB_TYPING_PER_SECOND must be positive, got: %f", c.Hub.TypingPerSecond)
	}
	if c.Hub.TypingBurst < 1 {
		return fmt.Errorf("HUB_TYPING_BURST must be >= 1, got: %d", c.Hub.TypingBurst)
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.MessagesInterval <= 0 {
		return fmt.Errorf("SYNC_MESSAGES_INTERVAL must be positive, got: %s", c.Sync.MessagesInterval)
	}
	if c.Sync.ConversationsInterval <= 0 {
		return fmt.Errorf("SYNC_CONVERSATIONS_INTERVAL must be positive, got: %s", c.Sync.ConversationsInterval)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got: %s", c.Logging.Format)
	}
	return nil
}

// validateHTTPURL validates that a URL is properly formatted for HTTP/HTTPS services.
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}

	return nil
}

// containsPlaceholder catches obvious non-secrets copied from documentation.
func containsPlaceholder(value string) bool {
	lower := strings.ToLower(value)
	patterns := []string{"changeme", "change-me", "your-secret", "example", "placeholder", "xxxx"}
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
