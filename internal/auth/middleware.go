// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/parley/internal/logging"
	"github.com/tomtom215/parley/internal/models"
)

type contextKey string

const (
	userContextKey   contextKey = "auth_user"
	claimsContextKey contextKey = "auth_claims"
)

// Middleware authenticates requests using a Bearer token or the session
// cookie, and rejects revoked tokens.
type Middleware struct {
	jwt        *JWTManager
	revoked    RevocationStore
	cookieName string
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(jwt *JWTManager, revoked RevocationStore, cookieName string) *Middleware {
	return &Middleware{
		jwt:        jwt,
		revoked:    revoked,
		cookieName: cookieName,
	}
}

// Authenticate wraps a handler, requiring a valid non-revoked token.
// On success the authenticated user's ID is stored in the request context.
func (m *Middleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := m.extractToken(r)
		if tokenString == "" {
			respondUnauthorized(w, "Missing authentication token")
			return
		}

		claims, err := m.jwt.ValidateToken(tokenString)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Token validation failed")
			respondUnauthorized(w, "Invalid or expired token")
			return
		}

		if claims.ID != "" {
			revoked, err := m.revoked.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Msg("Revocation check failed")
				respondUnauthorized(w, "Invalid or expired token")
				return
			}
			if revoked {
				respondUnauthorized(w, "Token has been revoked")
				return
			}
		}

		userID, err := claims.UserUUID()
		if err != nil {
			respondUnauthorized(w, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, userID)
		ctx = context.WithValue(ctx, claimsContextKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// extractToken pulls the token from the Authorization header, falling
// back to the session cookie set at login.
func (m *Middleware) extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	if cookie, err := r.Cookie(m.cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// UserID extracts the authenticated user's ID from the request context.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userContextKey).(uuid.UUID)
	return id, ok
}

// TokenClaims extracts the validated token claims from the request
// context. Used by logout to revoke the session's jti.
func TokenClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok
}

// ContextWithUserID returns a context carrying the user ID. Exposed for
// handler tests that bypass the middleware.
func ContextWithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userContextKey, id)
}

// respondUnauthorized writes the standard 401 envelope.
func respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)

	resp := models.APIResponse{
		Status: "error",
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
		},
		Error: &models.APIError{
			Code:    "UNAUTHORIZED",
			Message: message,
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error().Err(err).Msg("Failed to encode unauthorized response")
	}
}
