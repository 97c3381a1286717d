// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/parley/internal/auth"
	"github.com/tomtom215/parley/internal/middleware"
)

// Router assembles the HTTP surface from the handler set and the
// middleware stacks.
type Router struct {
	handler       *Handler
	authMW        *auth.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router.
func NewRouter(handler *Handler, authMW *auth.Middleware) *Router {
	return &Router{
		handler:       handler,
		authMW:        authMW,
		chiMiddleware: NewChiMiddleware(&handler.cfg.Security),
	}
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler so the auth and metrics middleware
// can be used with r.Use().
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight
	r.Use(chiMiddleware(middleware.Compression))

	// Health endpoints: permissive rate limiting for monitoring.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// Authentication endpoints: strict rate limiting, login strictest.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitAuth())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Post("/register", router.handler.Register)
		r.With(router.chiMiddleware.RateLimitLogin()).Post("/login", router.handler.Login)
		r.With(chiMiddleware(router.authMW.Authenticate)).Post("/logout", router.handler.Logout)
	})

	// Core API: everything here requires authentication.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(chiMiddleware(router.authMW.Authenticate))

		r.Get("/me", router.handler.Me)
		r.Put("/me", router.handler.UpdateMe)
		r.Get("/users", router.handler.Users)

		r.Get("/conversations", router.handler.Conversations)
		r.Post("/conversations", router.handler.CreateConversation)

		r.Get("/messages/{conversationId}", router.handler.Messages)
		r.Post("/messages", router.handler.SendMessage)

		r.With(router.chiMiddleware.RateLimitUpload()).Post("/upload", router.handler.Upload)
		r.With(router.chiMiddleware.RateLimitUpload()).Post("/upload/avatar", router.handler.UploadAvatar)

		r.Get("/ws", router.handler.WebSocket)
	})

	// Stored blobs, served as-is. Authentication is deliberately not
	// required: URLs carry unguessable random names and are shared
	// inside conversations.
	uploadsDir := http.Dir(router.handler.uploads.Dir())
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(uploadsDir)))

	// Prometheus scrape endpoint.
	r.Handle("/metrics", promhttp.Handler())

	return r
}
