// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package api

// RegisterRequest is the body of POST /api/v1/auth/register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the body of POST /api/v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest is the body of PUT /api/v1/me. Nil fields are
// left unchanged.
type UpdateProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=100"`
	Image *string `json:"image" validate:"omitempty,url,max=2048"`
}

// CreateConversationRequest is the body of POST /api/v1/conversations.
type CreateConversationRequest struct {
	UserID string `json:"userId" validate:"required,uuid4"`
}

// SendMessageRequest is the body of POST /api/v1/messages. File fields
// are set only for type "file" or "image", copied from a prior upload.
type SendMessageRequest struct {
	Content        string  `json:"content" validate:"required,min=1,max=2000"`
	ConversationID string  `json:"conversationId" validate:"required,uuid4"`
	ReceiverID     string  `json:"receiverId" validate:"required,uuid4"`
	Type           string  `json:"type" validate:"omitempty,oneof=text file image"`
	FileURL        *string `json:"fileUrl" validate:"omitempty,max=2048"`
	FileName       *string `json:"fileName" validate:"omitempty,max=255"`
	FileSize       *int64  `json:"fileSize" validate:"omitempty,min=0"`
	FileMimeType   *string `json:"fileMimeType" validate:"omitempty,max=127"`
}
