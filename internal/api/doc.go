// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

// Package api wires the HTTP surface: a chi router with CORS, rate
// limiting, request IDs and Prometheus instrumentation, plus handlers
// for auth, users, conversations, messages, uploads, health, and the
// websocket upgrade. Every endpoint responds with the APIResponse
// envelope encoded via goccy/go-json.
package api
