// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/parley/internal/logging"
)

// revokedKeyPrefix namespaces revocation entries in BadgerDB.
const revokedKeyPrefix = "revoked:"

// RevocationStore records logged-out tokens until they would have
// expired anyway.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Close() error
}

// BadgerRevocationStore implements RevocationStore using BadgerDB for
// durable storage. Entries carry a TTL so Badger expires them without
// explicit cleanup.
type BadgerRevocationStore struct {
	db *badger.DB
}

// NewBadgerRevocationStore opens (or creates) a BadgerDB at path.
func NewBadgerRevocationStore(path string) (*BadgerRevocationStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // zerolog handles our logging; Badger's is too chatty

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open revocation store at %s: %w", path, err)
	}

	return &BadgerRevocationStore{db: db}, nil
}

// Revoke records a token's jti. The entry expires after ttl, which
// callers set to the token's remaining lifetime.
func (s *BadgerRevocationStore) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// Token already expired, nothing to record
		return nil
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(revokedKeyPrefix+jti), []byte{1}).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the jti has been revoked. Expired entries
// read as not found, which is the correct answer: the token itself has
// expired too.
func (s *BadgerRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(revokedKeyPrefix + jti))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return true, nil
}

// Close closes the underlying BadgerDB.
func (s *BadgerRevocationStore) Close() error {
	return s.db.Close()
}

// RunGC drives Badger's value log garbage collection periodically,
// blocking until the context is cancelled. Badger requires the caller
// to drive GC.
func (s *BadgerRevocationStore) RunGC(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			err := s.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				logging.Warn().Err(err).Msg("Revocation store GC failed")
			}
		}
	}
}
