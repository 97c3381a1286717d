// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

/*
schema.go - Database Schema Management

Tables:
  - users: Registered accounts with bcrypt password hashes
  - conversations: Two-party conversation rows. The participant pair is
    stored in canonical order (user_a_id < user_b_id lexicographically)
    with a UNIQUE constraint so get-or-create is race-safe.
  - messages: All messages with delivery and read state, plus optional
    attachment metadata

Schema Strategy:
All columns are defined in the initial CREATE TABLE statements. This
provides a single source of truth for the complete schema and fast
startup with no migrations to run.

Index Strategy:
Indexes cover the hot query paths: message history per conversation
ordered by time, unread counting per receiver, and conversation listing
per participant.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			image TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// user_a_id < user_b_id always holds, enforced by the write path.
		// The UNIQUE constraint makes concurrent get-or-create converge
		// on a single row per pair.
		`CREATE TABLE IF NOT EXISTS conversations (
			id UUID PRIMARY KEY,
			user_a_id UUID NOT NULL,
			user_b_id UUID NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_a_id, user_b_id)
		)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY,
			conversation_id UUID NOT NULL,
			sender_id UUID NOT NULL,
			receiver_id UUID NOT NULL,
			content TEXT NOT NULL,
			message_type TEXT NOT NULL DEFAULT 'text',
			delivered BOOLEAN NOT NULL DEFAULT true,
			is_read BOOLEAN NOT NULL DEFAULT false,
			file_url TEXT,
			file_name TEXT,
			file_size BIGINT,
			file_mime_type TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

// createIndexes creates indexes for the hot query paths
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	indexes := []string{
		// Message history per conversation, newest-first pagination
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
			ON messages (conversation_id, created_at)`,

		// Unread counting and bulk mark-read per receiver
		`CREATE INDEX IF NOT EXISTS idx_messages_receiver_unread
			ON messages (conversation_id, receiver_id, is_read)`,

		// Conversation listing per participant
		`CREATE INDEX IF NOT EXISTS idx_conversations_user_a ON conversations (user_a_id)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_user_b ON conversations (user_b_id)`,

		// Login lookup
		`CREATE INDEX IF NOT EXISTS idx_users_email ON users (email)`,
	}

	for _, index := range indexes {
		if _, err := db.conn.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", index, err)
		}
	}

	return nil
}
