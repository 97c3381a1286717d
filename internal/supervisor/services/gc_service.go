// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package services

import (
	"context"
	"time"
)

// GCRunner matches *auth.BadgerRevocationStore's RunGC method.
type GCRunner interface {
	RunGC(ctx context.Context, interval time.Duration) error
}

// SessionGCService drives Badger's value log garbage collection for
// the token revocation store. Badger never runs GC on its own; without
// this service the store's value log grows unbounded.
type SessionGCService struct {
	store    GCRunner
	interval time.Duration
	name     string
}

// NewSessionGCService creates a session GC service wrapper. A
// non-positive interval falls back to 10 minutes.
func NewSessionGCService(store GCRunner, interval time.Duration) *SessionGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &SessionGCService{
		store:    store,
		interval: interval,
		name:     "session-gc",
	}
}

// Serve implements suture.Service. Blocks in the GC loop until the
// context is canceled.
func (s *SessionGCService) Serve(ctx context.Context) error {
	return s.store.RunGC(ctx, s.interval)
}

// String implements fmt.Stringer for suture's log messages.
func (s *SessionGCService) String() string {
	return s.name
}
