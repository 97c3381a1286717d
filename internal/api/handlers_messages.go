// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/parley/internal/auth"
	"github.com/tomtom215/parley/internal/database"
	"github.com/tomtom215/parley/internal/logging"
)

// Messages handles GET /api/v1/messages/{conversationId}: the full
// history in chronological order, participants hydrated. Fetching has
// the read-receipt side effect: the caller's unread incoming messages
// flip to read in the same transaction as the select, so concurrent
// fetches converge on the same end state. This is the 2-second poll
// target for an open conversation.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, ok := auth.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated", nil)
		return
	}

	conversationID, ok := pathUUID(w, chi.URLParam(r, "conversationId"), "conversation id")
	if !ok {
		return
	}

	member, err := h.db.IsParticipant(r.Context(), conversationID, userID)
	if err != nil {
		respondDatabaseError(w, err)
		return
	}
	if !member {
		respondError(w, http.StatusForbidden, "FORBIDDEN", "Not a participant of this conversation", nil)
		return
	}

	opts := database.ListMessagesOptions{
		Limit: clampLimit(getIntParam(r, "limit", 0), h.cfg.API.MaxPageSize),
	}
	if before := r.URL.Query().Get("before"); before != "" {
		ts, err := time.Parse(time.RFC3339Nano, before)
		if err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid before timestamp", nil)
			return
		}
		opts.Before = ts
	}

	messages, marked, err := h.db.ListMessagesMarkingRead(r.Context(), conversationID, userID, opts)
	if err != nil {
		respondDatabaseError(w, err)
		return
	}

	if marked > 0 {
		logging.Ctx(r.Context()).Debug().
			Str("conversation_id", conversationID.String()).
			Int64("marked_read", marked).
			Msg("messages marked read on fetch")
	}
	respondSuccess(w, http.StatusOK, messages, start)
}

// SendMessage handles POST /api/v1/messages: persists with
// delivered=true, bumps the conversation, broadcasts to the room, and
// returns the hydrated message.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, ok := auth.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated", nil)
		return
	}

	var req SendMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	conversationID, err := uuid.Parse(req.ConversationID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid conversationId", nil)
		return
	}
	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid receiverId", nil)
		return
	}
	if receiverID == userID {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Cannot send a message to yourself", nil)
		return
	}

	// Sender and receiver must be the conversation's two participants.
	if ok := h.requireParticipant(w, r, conversationID, userID, http.StatusForbidden); !ok {
		return
	}
	if ok := h.requireParticipant(w, r, conversationID, receiverID, http.StatusBadRequest); !ok {
		return
	}

	msg, err := h.db.CreateMessage(r.Context(), database.NewMessage{
		ConversationID: conversationID,
		SenderID:       userID,
		ReceiverID:     receiverID,
		Content:        req.Content,
		Type:           req.Type,
		FileURL:        req.FileURL,
		FileName:       req.FileName,
		FileSize:       req.FileSize,
		FileMimeType:   req.FileMimeType,
	})
	if err != nil {
		respondDatabaseError(w, err)
		return
	}

	hydrated, err := h.db.GetMessage(r.Context(), msg.ID)
	if err != nil {
		respondDatabaseError(w, err)
		return
	}

	// Best effort: connected room members see the message immediately,
	// everyone else picks it up on the next poll.
	h.hub.BroadcastMessage(hydrated)

	logging.Ctx(r.Context()).Info().
		Str("message_id", hydrated.ID.String()).
		Str("conversation_id", conversationID.String()).
		Str("type", hydrated.Type).
		Msg("message sent")
	respondSuccess(w, http.StatusCreated, hydrated, start)
}

// requireParticipant verifies conversation membership, writing the
// error response itself on failure.
func (h *Handler) requireParticipant(w http.ResponseWriter, r *http.Request, conversationID, userID uuid.UUID, failStatus int) bool {
	member, err := h.db.IsParticipant(r.Context(), conversationID, userID)
	if err != nil {
		respondDatabaseError(w, err)
		return false
	}
	if member {
		return true
	}
	if failStatus == http.StatusForbidden {
		respondError(w, failStatus, "FORBIDDEN", "Not a participant of this conversation", nil)
	} else {
		respondError(w, failStatus, "VALIDATION_ERROR", "Receiver is not a participant of this conversation", nil)
	}
	return false
}

// clampLimit caps a client-supplied page size.
func clampLimit(limit, maximum int) int {
	if limit < 0 {
		return 0
	}
	if maximum > 0 && limit > maximum {
		return maximum
	}
	return limit
}
