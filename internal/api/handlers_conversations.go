// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/parley/internal/auth"
	"github.com/tomtom215/parley/internal/database"
	"github.com/tomtom215/parley/internal/logging"
)

// Conversations handles GET /api/v1/conversations: the caller's
// conversations with hydrated participants, last message, and a live
// unread count, newest activity first. This is the sidebar poll target.
func (h *Handler) Conversations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, ok := auth.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated", nil)
		return
	}

	conversations, err := h.db.ListConversations(r.Context(), userID)
	if err != nil {
		respondDatabaseError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, conversations, start)
}

// CreateConversation handles POST /api/v1/conversations: idempotent
// get-or-create of the two-party conversation with the given peer.
func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, ok := auth.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated", nil)
		return
	}

	var req CreateConversationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	peerID, err := uuid.Parse(req.UserID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid userId", nil)
		return
	}

	// The peer must exist; a dangling conversation row helps nobody.
	if _, err := h.db.GetUserByID(r.Context(), peerID); err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "User not found", nil)
			return
		}
		respondDatabaseError(w, err)
		return
	}

	conversation, err := h.db.GetOrCreateConversation(r.Context(), userID, peerID)
	if err != nil {
		if errors.Is(err, database.ErrSelfConversation) {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Cannot start a conversation with yourself", nil)
			return
		}
		respondDatabaseError(w, err)
		return
	}

	logging.Ctx(r.Context()).Debug().
		Str("conversation_id", conversation.ID.String()).
		Str("peer_id", peerID.String()).
		Msg("conversation resolved")
	respondSuccess(w, http.StatusOK, conversation, start)
}
