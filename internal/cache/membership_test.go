// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

// countingChecker is a test double for the ParticipantChecker
// interface.
type countingChecker struct {
	calls  atomic.Int32
	member bool
	err    error
}

func (c *countingChecker) IsParticipant(_ context.Context, _, _ uuid.UUID) (bool, error) {
	c.calls.Add(1)
	return c.member, c.err
}

func TestParticipantCacheHitsAvoidLookup(t *testing.T) {
	checker := &countingChecker{member: true}
	pc := NewParticipantCache(checker, time.Minute)

	conversationID := uuid.New()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		member, err := pc.IsParticipant(context.Background(), conversationID, userID)
		if err != nil {
			t.Fatalf("IsParticipant failed: %v", err)
		}
		if !member {
			t.Fatal("Expected participant")
		}
	}

	if calls := checker.calls.Load(); calls != 1 {
		t.Errorf("Expected 1 database lookup, got %d", calls)
	}
}

func TestParticipantCacheCachesNegativeResults(t *testing.T) {
	checker := &countingChecker{member: false}
	pc := NewParticipantCache(checker, time.Minute)

	conversationID := uuid.New()
	userID := uuid.New()

	for i := 0; i < 2; i++ {
		member, err := pc.IsParticipant(context.Background(), conversationID, userID)
		if err != nil {
			t.Fatalf("IsParticipant failed: %v", err)
		}
		if member {
			t.Fatal("Expected non-participant")
		}
	}

	if calls := checker.calls.Load(); calls != 1 {
		t.Errorf("Expected 1 database lookup, got %d", calls)
	}
}

func TestParticipantCacheDistinguishesUsers(t *testing.T) {
	checker := &countingChecker{member: true}
	pc := NewParticipantCache(checker, time.Minute)

	conversationID := uuid.New()
	if _, err := pc.IsParticipant(context.Background(), conversationID, uuid.New()); err != nil {
		t.Fatalf("IsParticipant failed: %v", err)
	}
	if _, err := pc.IsParticipant(context.Background(), conversationID, uuid.New()); err != nil {
		t.Fatalf("IsParticipant failed: %v", err)
	}

	if calls := checker.calls.Load(); calls != 2 {
		t.Errorf("Expected 2 database lookups for distinct users, got %d", calls)
	}
}

func TestParticipantCacheDoesNotCacheErrors(t *testing.T) {
	checker := &countingChecker{err: errors.New("connection lost")}
	pc := NewParticipantCache(checker, time.Minute)

	conversationID := uuid.New()
	userID := uuid.New()

	if _, err := pc.IsParticipant(context.Background(), conversationID, userID); err == nil {
		t.Fatal("Expected error")
	}

	// A later lookup must retry the database.
	checker.err = nil
	checker.member = true
	member, err := pc.IsParticipant(context.Background(), conversationID, userID)
	if err != nil {
		t.Fatalf("IsParticipant failed after recovery: %v", err)
	}
	if !member {
		t.Error("Expected participant after recovery")
	}
	if calls := checker.calls.Load(); calls != 2 {
		t.Errorf("Expected 2 database lookups, got %d", calls)
	}
}
