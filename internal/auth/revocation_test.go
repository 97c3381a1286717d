// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package auth

import (
	"context"
	"testing"
	"time"
)

func newTestRevocationStore(t *testing.T) *BadgerRevocationStore {
	t.Helper()
	store, err := NewBadgerRevocationStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open revocation store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Failed to close revocation store: %v", err)
		}
	})
	return store
}

func TestRevokeAndCheck(t *testing.T) {
	store := newTestRevocationStore(t)
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "some-jti")
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if revoked {
		t.Error("Unknown jti should not be revoked")
	}

	if err := store.Revoke(ctx, "some-jti", time.Hour); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	revoked, err = store.IsRevoked(ctx, "some-jti")
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if !revoked {
		t.Error("Expected jti to be revoked")
	}

	// Other jtis unaffected
	revoked, err = store.IsRevoked(ctx, "other-jti")
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if revoked {
		t.Error("Unrelated jti should not be revoked")
	}
}

func TestRevokeExpiredTokenIsNoop(t *testing.T) {
	store := newTestRevocationStore(t)
	ctx := context.Background()

	if err := store.Revoke(ctx, "expired-jti", -time.Minute); err != nil {
		t.Fatalf("Revoke with negative TTL failed: %v", err)
	}

	revoked, err := store.IsRevoked(ctx, "expired-jti")
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if revoked {
		t.Error("Expired token should not be recorded")
	}
}

func TestRevocationEntryExpires(t *testing.T) {
	store := newTestRevocationStore(t)
	ctx := context.Background()

	if err := store.Revoke(ctx, "short-jti", time.Second); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	time.Sleep(1100 * time.Millisecond)

	revoked, err := store.IsRevoked(ctx, "short-jti")
	if err != nil {
		t.Fatalf("IsRevoked failed: %v", err)
	}
	if revoked {
		t.Error("Expected revocation entry to expire with its TTL")
	}
}
