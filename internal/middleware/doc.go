// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

// Package middleware provides HTTP middleware for the API server:
// request ID propagation, Prometheus instrumentation, and gzip
// response compression.
package middleware
