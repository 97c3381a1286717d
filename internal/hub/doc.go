// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

// Package hub implements the realtime broadcast layer on top of
// gorilla/websocket.
//
// Each conversation maps to an in-memory room. Connections join and
// leave rooms explicitly; joining requires the authenticated user to be
// a participant of the conversation, verified against the store. Room
// membership is ephemeral and rebuilt empty on restart.
//
// Delivery is best effort: events are fanned out at most once, with no
// retry, no ordering guarantee, and no backlog. A client whose send
// buffer is full is evicted rather than allowed to stall the hub.
// Polling remains the correctness mechanism; the hub only lowers
// latency for clients that happen to be connected.
package hub
