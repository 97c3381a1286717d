// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/parley/internal/metrics"
	"github.com/tomtom215/parley/internal/models"
	"github.com/tomtom215/parley/internal/database/query"
)

// Message errors
var ErrMessageNotFound = errors.New("message not found")

// NewMessage holds the caller-supplied fields for message creation.
type NewMessage struct {
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	ReceiverID     uuid.UUID
	Content        string
	Type           string
	FileURL        *string
	FileName       *string
	FileSize       *int64
	FileMimeType   *string
}

// CreateMessage persists a message and bumps the conversation's
// updated_at in the same transaction. The message is created with
// delivered=true: delivered means accepted and persisted by the server.
func (db *DB) CreateMessage(ctx context.Context, nm NewMessage) (*models.Message, error) {
	start := time.Now()
	var err error
	defer func() { observe("create", "messages", start, err) }()

	if nm.Type == "" {
		nm.Type = models.MessageTypeText
	}

	msg := &models.Message{
		ID:             uuid.New(),
		Content:        nm.Content,
		CreatedAt:      utcNow(),
		Delivered:      true,
		Read:           false,
		SenderID:       nm.SenderID,
		ReceiverID:     nm.ReceiverID,
		ConversationID: nm.ConversationID,
		Type:           nm.Type,
		FileURL:        nm.FileURL,
		FileName:       nm.FileName,
		FileSize:       nm.FileSize,
		FileMimeType:   nm.FileMimeType,
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (
			id, conversation_id, sender_id, receiver_id, content, message_type,
			delivered, is_read, file_url, file_name, file_size, file_mime_type, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.SenderID, msg.ReceiverID, msg.Content, msg.Type,
		msg.Delivered, msg.Read, msg.FileURL, msg.FileName, msg.FileSize, msg.FileMimeType, msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	// Sending reorders the sender's and receiver's sidebars
	_, err = tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		msg.CreatedAt, msg.ConversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to bump conversation: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}

	metrics.RecordMessageSent(msg.Type)
	return msg, nil
}

// ListMessagesOptions controls history pagination.
type ListMessagesOptions struct {
	Limit  int       // 0 = no limit
	Before time.Time // zero = from the newest
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// ListMessages returns the conversation history in chronological order
// with sender and receiver hydrated.
func (db *DB) ListMessages(ctx context.Context, conversationID uuid.UUID, opts ListMessagesOptions) ([]models.Message, error) {
	start := time.Now()
	var err error
	defer func() { observe("list", "messages", start, err) }()

	msgs, err := listMessages(ctx, db.conn, conversationID, opts)
	return msgs, err
}

// ListMessagesMarkingRead returns the history like ListMessages, but
// first flips every unread message addressed to the viewer to read, in
// the same transaction. This is the receiver-opens-conversation path:
// fetching history is what marks messages read. Idempotent under
// concurrent fetches. Returns the messages and the number transitioned.
func (db *DB) ListMessagesMarkingRead(ctx context.Context, conversationID, viewerID uuid.UUID, opts ListMessagesOptions) ([]models.Message, int64, error) {
	start := time.Now()
	var err error
	defer func() { observe("list_mark_read", "messages", start, err) }()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE messages SET is_read = true
			WHERE conversation_id = ? AND receiver_id = ? AND is_read = false`,
		conversationID, viewerID,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	marked, err := res.RowsAffected()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count marked messages: %w", err)
	}

	messages, err := listMessages(ctx, tx, conversationID, opts)
	if err != nil {
		return nil, 0, err
	}

	if err = tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("failed to commit mark-read: %w", err)
	}

	if marked > 0 {
		metrics.RecordMessagesMarkedRead(marked)
	}
	return messages, marked, nil
}

func listMessages(ctx context.Context, q querier, conversationID uuid.UUID, opts ListMessagesOptions) ([]models.Message, error) {
	wb := query.NewWhereBuilder().
		AddConversation(conversationID).
		AddCreatedBefore(opts.Before)
	where, args := wb.Build()

	// Page newest-first, then flip to chronological order for the client
	stmt := fmt.Sprintf(`SELECT
		m.id, m.conversation_id, m.sender_id, m.receiver_id, m.content, m.message_type,
		m.delivered, m.is_read, m.file_url, m.file_name, m.file_size, m.file_mime_type, m.created_at,
		s.id, s.name, s.email, s.image, s.created_at,
		r.id, r.name, r.email, r.image, r.created_at
	FROM messages m
	JOIN users s ON s.id = m.sender_id
	JOIN users r ON r.id = m.receiver_id
	%s
	ORDER BY m.created_at DESC, m.id DESC%s`, where, query.LimitClause(opts.Limit))

	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer closeQuietly(rows)

	messages := []models.Message{}
	for rows.Next() {
		msg, scanErr := scanMessage(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	// Reverse into chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// MarkMessagesRead flips every unread message addressed to the reader in
// the conversation to read. Idempotent: repeat calls affect zero rows.
// Returns the number of messages transitioned.
func (db *DB) MarkMessagesRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error) {
	start := time.Now()
	var err error
	defer func() { observe("mark_read", "messages", start, err) }()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE messages SET is_read = true
			WHERE conversation_id = ? AND receiver_id = ? AND is_read = false`,
		conversationID, readerID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count marked messages: %w", err)
	}

	if affected > 0 {
		metrics.RecordMessagesMarkedRead(affected)
	}
	return affected, nil
}

// UnreadCount returns the number of unread messages addressed to the
// user in the conversation. Always computed live, never cached.
func (db *DB) UnreadCount(ctx context.Context, conversationID, userID uuid.UUID) (int, error) {
	start := time.Now()
	var err error
	defer func() { observe("unread_count", "messages", start, err) }()

	var count int
	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages
			WHERE conversation_id = ? AND receiver_id = ? AND is_read = false`,
		conversationID, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

// GetMessage retrieves a single message with participants hydrated.
func (db *DB) GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	start := time.Now()
	var err error
	defer func() { observe("get", "messages", start, err) }()

	q := `SELECT
		m.id, m.conversation_id, m.sender_id, m.receiver_id, m.content, m.message_type,
		m.delivered, m.is_read, m.file_url, m.file_name, m.file_size, m.file_mime_type, m.created_at,
		s.id, s.name, s.email, s.image, s.created_at,
		r.id, r.name, r.email, r.image, r.created_at
	FROM messages m
	JOIN users s ON s.id = m.sender_id
	JOIN users r ON r.id = m.receiver_id
	WHERE m.id = ?`

	rows, err := db.conn.QueryContext(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query message: %w", err)
	}
	defer closeQuietly(rows)

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read message: %w", err)
		}
		err = ErrMessageNotFound
		return nil, err
	}

	msg, err := scanMessage(rows)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func scanMessage(rows *sql.Rows) (*models.Message, error) {
	msg := &models.Message{}
	sender := models.User{}
	receiver := models.User{}
	var fileURL, fileName, fileMime sql.NullString
	var fileSize sql.NullInt64
	var senderImage, receiverImage sql.NullString

	err := rows.Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.ReceiverID, &msg.Content, &msg.Type,
		&msg.Delivered, &msg.Read, &fileURL, &fileName, &fileSize, &fileMime, &msg.CreatedAt,
		&sender.ID, &sender.Name, &sender.Email, &senderImage, &sender.CreatedAt,
		&receiver.ID, &receiver.Name, &receiver.Email, &receiverImage, &receiver.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}

	if fileURL.Valid {
		msg.FileURL = &fileURL.String
	}
	if fileName.Valid {
		msg.FileName = &fileName.String
	}
	if fileSize.Valid {
		msg.FileSize = &fileSize.Int64
	}
	if fileMime.Valid {
		msg.FileMimeType = &fileMime.String
	}
	if senderImage.Valid {
		sender.Image = &senderImage.String
	}
	if receiverImage.Valid {
		receiver.Image = &receiverImage.String
	}
	msg.Sender = &sender
	msg.Receiver = &receiver

	return msg, nil
}
