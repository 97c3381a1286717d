// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

// Package query provides SQL query building utilities for the database
// package. It reduces duplication and keeps parameter handling consistent.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WhereBuilder constructs SQL WHERE clauses with parameterized arguments.
//
// Example usage:
//
//	wb := query.NewWhereBuilder()
//	wb.AddConversation(conversationID)
//	wb.AddCreatedBefore(cursor)
//	whereClause, args := wb.Build()
//	// WHERE m.conversation_id = ? AND m.created_at < ?
type WhereBuilder struct {
	clauses []string
	args    []interface{}
}

// NewWhereBuilder creates a new WhereBuilder instance.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{
		clauses: []string{},
		args:    []interface{}{},
	}
}

// AddClause adds a raw WHERE clause with its arguments. Useful for custom
// conditions not covered by the helper methods.
func (wb *WhereBuilder) AddClause(clause string, args ...interface{}) *WhereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// AddConversation filters messages to a single conversation.
func (wb *WhereBuilder) AddConversation(conversationID uuid.UUID) *WhereBuilder {
	wb.clauses = append(wb.clauses, "m.conversation_id = ?")
	wb.args = append(wb.args, conversationID)
	return wb
}

// AddCreatedBefore adds a pagination cursor on creation time. A zero
// time is skipped, meaning "start from the newest".
func (wb *WhereBuilder) AddCreatedBefore(before time.Time) *WhereBuilder {
	if !before.IsZero() {
		wb.clauses = append(wb.clauses, "m.created_at < ?")
		wb.args = append(wb.args, before)
	}
	return wb
}

// AddCreatedSince adds a lower bound on creation time. A zero time is
// skipped. Used by incremental polling queries.
func (wb *WhereBuilder) AddCreatedSince(since time.Time) *WhereBuilder {
	if !since.IsZero() {
		wb.clauses = append(wb.clauses, "m.created_at > ?")
		wb.args = append(wb.args, since)
	}
	return wb
}

// AddReceiver filters messages addressed to the given user.
func (wb *WhereBuilder) AddReceiver(userID uuid.UUID) *WhereBuilder {
	wb.clauses = append(wb.clauses, "m.receiver_id = ?")
	wb.args = append(wb.args, userID)
	return wb
}

// AddUnreadOnly restricts to messages not yet read.
func (wb *WhereBuilder) AddUnreadOnly() *WhereBuilder {
	wb.clauses = append(wb.clauses, "m.is_read = false")
	return wb
}

// Build returns the assembled WHERE clause (including the leading
// "WHERE", or an empty string when no clauses were added) and the
// argument slice in matching order.
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.clauses) == 0 {
		return "", wb.args
	}
	return "WHERE " + strings.Join(wb.clauses, " AND "), wb.args
}

// LimitClause renders a LIMIT fragment, or an empty string for n <= 0.
// The limit is formatted inline because DuckDB does not accept a bound
// parameter in LIMIT position on all code paths.
func LimitClause(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", n)
}
