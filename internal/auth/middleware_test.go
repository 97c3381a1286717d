// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestMiddleware(t *testing.T) (*Middleware, *JWTManager, *BadgerRevocationStore) {
	t.Helper()
	jwtManager := newTestJWTManager(t, time.Hour)
	store := newTestRevocationStore(t)
	return NewMiddleware(jwtManager, store, "token"), jwtManager, store
}

func TestAuthenticateBearerToken(t *testing.T) {
	mw, jwtManager, _ := newTestMiddleware(t)
	user := testUser()
	token, _, err := jwtManager.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	var gotID uuid.UUID
	handler := mw.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserID(r.Context())
		if !ok {
			t.Error("Expected user ID in context")
		}
		gotID = id
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotID != user.ID {
		t.Errorf("Expected user ID %s, got %s", user.ID, gotID)
	}
}

func TestAuthenticateCookieToken(t *testing.T) {
	mw, jwtManager, _ := newTestMiddleware(t)
	token, _, err := jwtManager.GenerateToken(testUser())
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	called := false
	handler := mw.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusOK || !called {
		t.Fatalf("Expected cookie auth to succeed, got %d", rec.Code)
	}
}

func TestAuthenticateMissingToken(t *testing.T) {
	mw, _, _ := newTestMiddleware(t)

	handler := mw.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called without a token")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON error envelope, got Content-Type %q", ct)
	}
}

func TestAuthenticateGarbageToken(t *testing.T) {
	mw, _, _ := newTestMiddleware(t)

	handler := mw.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called with a garbage token")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", rec.Code)
	}
}

func TestAuthenticateRevokedToken(t *testing.T) {
	mw, jwtManager, store := newTestMiddleware(t)
	token, jti, err := jwtManager.GenerateToken(testUser())
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if err := store.Revoke(context.Background(), jti, time.Hour); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	handler := mw.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called with a revoked token")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 for revoked token, got %d", rec.Code)
	}
}
