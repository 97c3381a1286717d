// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package services

import (
	"context"
)

// ContextHub matches *hub.Hub's RunWithContext method without
// importing the hub package.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// HubService wraps the WebSocket hub as a supervised service. The
// hub's RunWithContext already implements the suture.Service pattern,
// so this wrapper only delegates and provides a name for logging.
type HubService struct {
	hub  ContextHub
	name string
}

// NewHubService creates a new hub service wrapper.
func NewHubService(hub ContextHub) *HubService {
	return &HubService{
		hub:  hub,
		name: "websocket-hub",
	}
}

// Serve implements suture.Service. Returns ctx.Err() on normal
// shutdown after the hub has closed all clients.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer for suture's log messages.
func (s *HubService) String() string {
	return s.name
}
