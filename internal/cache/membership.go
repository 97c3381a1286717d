// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ParticipantChecker matches the database's conversation membership
// lookup.
type ParticipantChecker interface {
	IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
}

// ParticipantCache caches conversation membership lookups in front of
// the database. A conversation's two participants are fixed at
// creation and never change, so positive results are safe to cache.
// Negative results are cached too with the same TTL: a user who was
// not a participant cannot become one, only a new conversation (with
// a new ID) can exist.
type ParticipantCache struct {
	checker ParticipantChecker
	cache   *Cache
}

// NewParticipantCache wraps checker with a TTL cache.
func NewParticipantCache(checker ParticipantChecker, ttl time.Duration) *ParticipantCache {
	return &ParticipantCache{
		checker: checker,
		cache:   New(ttl),
	}
}

// IsParticipant implements ParticipantChecker. Lookup errors are never
// cached.
func (p *ParticipantCache) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	key := conversationID.String() + ":" + userID.String()
	if cached, ok := p.cache.Get(key); ok {
		return cached.(bool), nil
	}

	member, err := p.checker.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return false, err
	}

	p.cache.Set(key, member)
	return member, nil
}

// Stats exposes the underlying cache counters.
func (p *ParticipantCache) Stats() Stats {
	return p.cache.GetStats()
}
