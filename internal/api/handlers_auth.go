// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/parley/internal/auth"
	"github.com/tomtom215/parley/internal/database"
	"github.com/tomtom215/parley/internal/logging"
)

// loginResponse is the payload of a successful login.
type loginResponse struct {
	Token string      `json:"token"`
	User  interface{} `json:"user"`
}

// Register handles POST /api/v1/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	hash, err := auth.HashPassword(req.Password, h.cfg.Security.BcryptCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "SERVICE_ERROR", "Failed to process password", err)
		return
	}

	user, err := h.db.CreateUser(r.Context(), req.Name, req.Email, hash)
	if err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			respondError(w, http.StatusConflict, "CONFLICT", "Email is already registered", nil)
			return
		}
		respondDatabaseError(w, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("user_id", user.ID.String()).
		Msg("user registered")
	respondSuccess(w, http.StatusCreated, user, start)
}

// Login handles POST /api/v1/auth/login. The token is returned in the
// body and also set as an HTTP-only cookie for browser clients.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, hash, err := h.db.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid email or password", nil)
			return
		}
		respondDatabaseError(w, err)
		return
	}

	if err := auth.CheckPassword(hash, req.Password); err != nil {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid email or password", nil)
		return
	}

	token, jti, err := h.jwt.GenerateToken(user)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "SERVICE_ERROR", "Failed to issue token", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Security.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.jwt.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.Security.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	logging.Ctx(r.Context()).Info().
		Str("user_id", user.ID.String()).
		Str("session_id", jti).
		Msg("user logged in")
	respondSuccess(w, http.StatusOK, loginResponse{Token: token, User: user}, start)
}

// Logout handles POST /api/v1/auth/logout, revoking the session's jti
// for the token's remaining lifetime and clearing the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	claims, ok := auth.TokenClaims(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated", nil)
		return
	}

	if claims.ID != "" && claims.ExpiresAt != nil {
		remaining := time.Until(claims.ExpiresAt.Time)
		if err := h.sessions.Revoke(r.Context(), claims.ID, remaining); err != nil {
			respondError(w, http.StatusInternalServerError, "SERVICE_ERROR", "Failed to revoke session", err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Security.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Security.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	logging.Ctx(r.Context()).Info().
		Str("session_id", claims.ID).
		Msg("user logged out")
	respondSuccess(w, http.StatusOK, map[string]bool{"loggedOut": true}, start)
}

// Me handles GET /api/v1/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, ok := auth.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated", nil)
		return
	}

	user, err := h.db.GetUserByID(r.Context(), userID)
	if err != nil {
		respondDatabaseError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, user, start)
}

// UpdateMe handles PUT /api/v1/me.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, ok := auth.UserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated", nil)
		return
	}

	var req UpdateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == nil && req.Image == nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Nothing to update", nil)
		return
	}

	user, err := h.db.UpdateUserProfile(r.Context(), userID, req.Name, req.Image)
	if err != nil {
		respondDatabaseError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, user, start)
}
