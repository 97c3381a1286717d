// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/parley/internal/auth"
)

// Users handles GET /api/v1/users, listing every user except the
// caller. This backs the peer picker when starting a conversation.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, ok := auth.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated", nil)
		return
	}

	users, err := h.db.ListUsersExcept(r.Context(), userID)
	if err != nil {
		respondDatabaseError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, users, start)
}
