// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

/*
Package sync implements the polling fallback used when a client
cannot hold a WebSocket connection open.

Client is a typed HTTP client for the REST API. It decodes the
standard response envelope and carries a bearer token captured at
login.

Poller drives two independent tickers: the message list of the
active conversation on a short interval and the conversation
sidebar on a longer one. Every successful fetch replaces the local
snapshot wholesale. Snapshots are never merged, which keeps the
poller trivially correct when messages are marked read server-side
between ticks. A failed fetch is logged and skipped until the next
tick.

All fetches run through a circuit breaker. When the server is
unreachable the breaker trips open and subsequent ticks fail fast
instead of stacking up timed-out requests.
*/
package sync
