// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/parley/internal/config"
)

// RateLimitConfig defines rate limiting parameters for an endpoint class.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Endpoint-class rate limits, tuned for a chat workload: the sync loop
// polls messages every 2 s and conversations every 10 s per client.
var (
	// rateLimitLogin is very strict for login attempts
	rateLimitLogin = RateLimitConfig{Requests: 5, Window: 5 * time.Minute}

	// rateLimitAuth covers the rest of the auth endpoints
	rateLimitAuth = RateLimitConfig{Requests: 20, Window: time.Minute}

	// rateLimitUpload is moderate; uploads are resource intensive
	rateLimitUpload = RateLimitConfig{Requests: 30, Window: time.Minute}

	// rateLimitHealth is permissive for monitoring probes
	rateLimitHealth = RateLimitConfig{Requests: 1000, Window: time.Minute}
)

// ChiMiddleware bundles the chi-compatible CORS and rate limiting
// middleware built from the security configuration.
type ChiMiddleware struct {
	cfg  *config.SecurityConfig
	cors func(http.Handler) http.Handler
}

// NewChiMiddleware creates the middleware set.
func NewChiMiddleware(cfg *config.SecurityConfig) *ChiMiddleware {
	return &ChiMiddleware{
		cfg: cfg,
		cors: cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	}
}

// CORS returns the go-chi/cors middleware. It must run globally so
// OPTIONS preflight requests are answered on every route.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit returns the default per-IP API limiter from configuration.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	return m.limit(RateLimitConfig{Requests: m.cfg.RateLimitReqs, Window: m.cfg.RateLimitWindow})
}

// RateLimitLogin returns a very strict limiter for login attempts.
// Prevents credential stuffing and brute force attacks.
func (m *ChiMiddleware) RateLimitLogin() func(http.Handler) http.Handler {
	return m.limit(rateLimitLogin)
}

// RateLimitAuth returns a strict limiter for the auth endpoint group.
func (m *ChiMiddleware) RateLimitAuth() func(http.Handler) http.Handler {
	return m.limit(rateLimitAuth)
}

// RateLimitUpload returns a moderate limiter for upload endpoints.
func (m *ChiMiddleware) RateLimitUpload() func(http.Handler) http.Handler {
	return m.limit(rateLimitUpload)
}

// RateLimitHealth returns a permissive limiter for health probes.
func (m *ChiMiddleware) RateLimitHealth() func(http.Handler) http.Handler {
	return m.limit(rateLimitHealth)
}

func (m *ChiMiddleware) limit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if m.cfg.RateLimitDisabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return httprate.LimitByIP(cfg.Requests, cfg.Window)
}
