// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

// Package models defines data structures used throughout the Parley
// application: users, conversations, messages, realtime event payloads,
// and the API response envelope.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Message content types.
const (
	MessageTypeText  = "text"
	MessageTypeFile  = "file"
	MessageTypeImage = "image"
)

// User represents an account. The stored password hash never leaves the
// database layer; User is safe to serialize in API responses.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Image     *string   `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message represents a single direct message within a conversation.
//
// Lifecycle: created -> delivered (immediately, "delivered" means accepted
// and persisted by the server, not received by the recipient's device) ->
// read (flipped in bulk when the receiver fetches the conversation).
// Messages are immutable after creation except for the one-way read flip.
//
// Invariant: SenderID and ReceiverID are always the two participants of
// ConversationID, in some order.
type Message struct {
	ID             uuid.UUID `json:"id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
	Delivered      bool      `json:"delivered"`
	Read           bool      `json:"read"`
	SenderID       uuid.UUID `json:"senderId"`
	ReceiverID     uuid.UUID `json:"receiverId"`
	ConversationID uuid.UUID `json:"conversationId"`
	Type           string    `json:"type"`
	FileURL        *string   `json:"fileUrl,omitempty"`
	FileName       *string   `json:"fileName,omitempty"`
	FileSize       *int64    `json:"fileSize,omitempty"`
	FileMimeType   *string   `json:"fileMimeType,omitempty"`

	// Hydrated participants, populated on API responses.
	Sender   *User `json:"sender,omitempty"`
	Receiver *User `json:"receiver,omitempty"`
}

// Conversation is a two-party exchange. Participants always has exactly
// two entries. UpdatedAt is bumped on every new message and is the sort
// key for conversation listings.
type Conversation struct {
	ID           uuid.UUID `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Participants []User    `json:"participants"`

	// Derived fields for the sidebar listing. LastMessage is the newest
	// message, UnreadCount is the live count of unread incoming messages
	// for the requesting user. Never cached server-side.
	LastMessage *Message `json:"lastMessage,omitempty"`
	UnreadCount int      `json:"unreadCount"`
}

// TypingStatus is the ephemeral typing-indicator payload relayed through
// the hub. It is never persisted.
type TypingStatus struct {
	UserID         uuid.UUID `json:"userId"`
	ConversationID uuid.UUID `json:"conversationId"`
	IsTyping       bool      `json:"isTyping"`
}

// UploadResult describes a stored blob, returned by the upload endpoints
// and embedded into file messages by clients.
type UploadResult struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

// OtherParticipant returns the participant that is not the given user.
// Returns nil if the user is not a participant or the conversation is
// not hydrated.
func (c *Conversation) OtherParticipant(userID uuid.UUID) *User {
	for i := range c.Participants {
		if c.Participants[i].ID != userID {
			return &c.Participants[i]
		}
	}
	return nil
}

// HasParticipant reports whether the user is one of the two participants.
func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	for i := range c.Participants {
		if c.Participants[i].ID == userID {
			return true
		}
	}
	return false
}
