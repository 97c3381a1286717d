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
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/parley/internal/models"
)

// Conversation errors
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrSelfConversation     = errors.New("cannot start a conversation with yourself")
)

// orderPair returns the two user IDs in canonical order. The conversations
// table stores user_a_id < user_b_id so each pair maps to exactly one row.
func orderPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if strings.Compare(a.String(), b.String()) < 0 {
		return a, b
	}
	return b, a
}

// GetOrCreateConversation returns the conversation between the two users,
// creating it if it does not exist. Safe under concurrent calls for the
// same pair: the UNIQUE constraint makes both callers converge on one row.
func (db *DB) GetOrCreateConversation(ctx context.Context, userID, otherID uuid.UUID) (*models.Conversation, error) {
	start := time.Now()
	var err error
	defer func() { observe("get_or_create", "conversations", start, err) }()

	if userID == otherID {
		err = ErrSelfConversation
		return nil, err
	}

	userA, userB := orderPair(userID, otherID)

	if conv, findErr := db.findConversationByPair(ctx, userA, userB, userID); findErr == nil {
		return conv, nil
	} else if !errors.Is(findErr, ErrConversationNotFound) {
		err = findErr
		return nil, err
	}

	now := utcNow()
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO conversations (id, user_a_id, user_b_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
		uuid.New(), userA, userB, now, now,
	)
	if err != nil && !isUniqueConstraintError(err) {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	err = nil

	// Re-read so a racing creator's row wins consistently
	conv, err := db.findConversationByPair(ctx, userA, userB, userID)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// GetConversation retrieves a single conversation by ID, with participants
// and unread count computed for the viewing user.
func (db *DB) GetConversation(ctx context.Context, id, viewerID uuid.UUID) (*models.Conversation, error) {
	start := time.Now()
	var err error
	defer func() { observe("get", "conversations", start, err) }()

	conv, err := db.queryConversations(ctx, viewerID, `c.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(conv) == 0 {
		err = ErrConversationNotFound
		return nil, err
	}
	return &conv[0], nil
}

// ListConversations returns all conversations the user participates in,
// most recently active first, each with its last message and the user's
// unread count.
func (db *DB) ListConversations(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	start := time.Now()
	var err error
	defer func() { observe("list", "conversations", start, err) }()

	convs, err := db.queryConversations(ctx, userID, `(c.user_a_id = ? OR c.user_b_id = ?)`, userID, userID)
	return convs, err
}

// IsParticipant reports whether the user is one of the two parties of the
// conversation. Used for HTTP authorization and WebSocket room joins.
func (db *DB) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	start := time.Now()
	var err error
	defer func() { observe("participant", "conversations", start, err) }()

	var count int
	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversations
			WHERE id = ? AND (user_a_id = ? OR user_b_id = ?)`,
		conversationID, userID, userID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}
	return count > 0, nil
}

func (db *DB) findConversationByPair(ctx context.Context, userA, userB, viewerID uuid.UUID) (*models.Conversation, error) {
	convs, err := db.queryConversations(ctx, viewerID, `c.user_a_id = ? AND c.user_b_id = ?`, userA, userB)
	if err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return nil, ErrConversationNotFound
	}
	return &convs[0], nil
}

// queryConversations runs the shared conversation projection: both
// participants, the latest message, and the viewer's unread count.
func (db *DB) queryConversations(ctx context.Context, viewerID uuid.UUID, where string, args ...interface{}) ([]models.Conversation, error) {
	query := fmt.Sprintf(`SELECT
		c.id, c.created_at, c.updated_at,
		ua.id, ua.name, ua.email, ua.image, ua.created_at,
		ub.id, ub.name, ub.email, ub.image, ub.created_at,
		(SELECT COUNT(*) FROM messages m
			WHERE m.conversation_id = c.id AND m.receiver_id = ? AND m.is_read = false),
		lm.id, lm.sender_id, lm.receiver_id, lm.content, lm.message_type,
		lm.delivered, lm.is_read, lm.file_url, lm.file_name, lm.file_size,
		lm.file_mime_type, lm.created_at
	FROM conversations c
	JOIN users ua ON ua.id = c.user_a_id
	JOIN users ub ON ub.id = c.user_b_id
	LEFT JOIN (
		SELECT *, ROW_NUMBER() OVER (PARTITION BY conversation_id ORDER BY created_at DESC, id DESC) AS rn
		FROM messages
	) lm ON lm.conversation_id = c.id AND lm.rn = 1
	WHERE %s
	ORDER BY c.updated_at DESC, c.id`, where)

	queryArgs := append([]interface{}{viewerID}, args...)
	rows, err := db.conn.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer closeQuietly(rows)

	conversations := []models.Conversation{}
	for rows.Next() {
		conv, scanErr := scanConversation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		conversations = append(conversations, *conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}

	return conversations, nil
}

func scanConversation(rows *sql.Rows) (*models.Conversation, error) {
	conv := &models.Conversation{}
	userA := models.User{}
	userB := models.User{}
	var imageA, imageB sql.NullString

	var lmID, lmSender, lmReceiver uuid.NullUUID
	var lmContent, lmType, lmFileURL, lmFileName, lmFileMime sql.NullString
	var lmDelivered, lmRead sql.NullBool
	var lmFileSize sql.NullInt64
	var lmCreatedAt sql.NullTime

	err := rows.Scan(
		&conv.ID, &conv.CreatedAt, &conv.UpdatedAt,
		&userA.ID, &userA.Name, &userA.Email, &imageA, &userA.CreatedAt,
		&userB.ID, &userB.Name, &userB.Email, &imageB, &userB.CreatedAt,
		&conv.UnreadCount,
		&lmID, &lmSender, &lmReceiver, &lmContent, &lmType,
		&lmDelivered, &lmRead, &lmFileURL, &lmFileName, &lmFileSize,
		&lmFileMime, &lmCreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}

	if imageA.Valid {
		userA.Image = &imageA.String
	}
	if imageB.Valid {
		userB.Image = &imageB.String
	}
	conv.Participants = []models.User{userA, userB}

	if lmID.Valid {
		msg := &models.Message{
			ID:             lmID.UUID,
			ConversationID: conv.ID,
			SenderID:       lmSender.UUID,
			ReceiverID:     lmReceiver.UUID,
			Content:        lmContent.String,
			Type:           lmType.String,
			Delivered:      lmDelivered.Bool,
			Read:           lmRead.Bool,
			CreatedAt:      lmCreatedAt.Time,
		}
		if lmFileURL.Valid {
			msg.FileURL = &lmFileURL.String
		}
		if lmFileName.Valid {
			msg.FileName = &lmFileName.String
		}
		if lmFileSize.Valid {
			msg.FileSize = &lmFileSize.Int64
		}
		if lmFileMime.Valid {
			msg.FileMimeType = &lmFileMime.String
		}
		conv.LastMessage = msg
	}

	return conv, nil
}
