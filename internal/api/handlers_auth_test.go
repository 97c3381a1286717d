// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package api

import (
	"net/http"
	"testing"

	"github.com/tomtom215/parley/internal/models"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	user := env.registerUser(t, "Ada", "ada@example.com")
	if user.Name != "Ada" || user.Email != "ada@example.com" {
		t.Errorf("unexpected user: %+v", user)
	}
	if user.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("user ID not assigned")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "Ada", "ada@example.com")

	status, apiEnv := env.request(t, http.MethodPost, "/api/v1/auth/register", "", RegisterRequest{
		Name:     "Imposter",
		Email:    "ada@example.com",
		Password: "another password",
	})
	if status != http.StatusConflict {
		t.Fatalf("status = %d, want %d", status, http.StatusConflict)
	}
	if apiEnv.Error == nil || apiEnv.Error.Code != "CONFLICT" {
		t.Errorf("error = %+v, want CONFLICT", apiEnv.Error)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"missing name", RegisterRequest{Email: "a@example.com", Password: "long enough"}},
		{"bad email", RegisterRequest{Name: "A", Email: "not-an-email", Password: "long enough"}},
		{"short password", RegisterRequest{Name: "A", Email: "a@example.com", Password: "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, apiEnv := env.request(t, http.MethodPost, "/api/v1/auth/register", "", tt.req)
			if status != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", status, http.StatusBadRequest)
			}
			if apiEnv.Error == nil || apiEnv.Error.Code != "VALIDATION_ERROR" {
				t.Errorf("error = %+v, want VALIDATION_ERROR", apiEnv.Error)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "Ada", "ada@example.com")

	token := env.login(t, "ada@example.com")

	// The token authenticates subsequent requests.
	status, apiEnv := env.request(t, http.MethodGet, "/api/v1/me", token, nil)
	if status != http.StatusOK {
		t.Fatalf("me: status = %d, error = %+v", status, apiEnv.Error)
	}
	var me models.User
	decodeData(t, apiEnv, &me)
	if me.Email != "ada@example.com" {
		t.Errorf("me email = %q, want ada@example.com", me.Email)
	}
}

func TestLoginSetsCookie(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "Ada", "ada@example.com")

	resp, err := env.srv.Client().Post(
		env.srv.URL+"/api/v1/auth/login",
		"application/json",
		jsonBody(t, LoginRequest{Email: "ada@example.com", Password: "correct horse battery"}),
	)
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == env.cfg.Security.CookieName && c.Value != "" {
			found = true
			if !c.HttpOnly {
				t.Error("session cookie must be HTTP-only")
			}
		}
	}
	if !found {
		t.Error("login did not set the session cookie")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "Ada", "ada@example.com")

	status, apiEnv := env.request(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{
		Email:    "ada@example.com",
		Password: "not the password",
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", status, http.StatusUnauthorized)
	}
	if apiEnv.Error == nil || apiEnv.Error.Code != "UNAUTHORIZED" {
		t.Errorf("error = %+v, want UNAUTHORIZED", apiEnv.Error)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.request(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{
		Email:    "ghost@example.com",
		Password: "whatever works",
	})
	// Unknown account and wrong password are indistinguishable.
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", status, http.StatusUnauthorized)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	env.registerUser(t, "Ada", "ada@example.com")
	token := env.login(t, "ada@example.com")

	status, _ := env.request(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	if status != http.StatusOK {
		t.Fatalf("logout: status = %d", status)
	}

	status, apiEnv := env.request(t, http.MethodGet, "/api/v1/me", token, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("post-logout me: status = %d, want %d (error = %+v)", status, http.StatusUnauthorized, apiEnv.Error)
	}
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.newUserWithToken(t, "ada")

	newName := "Ada Lovelace"
	image := "https://example.com/ada.png"
	status, apiEnv := env.request(t, http.MethodPut, "/api/v1/me", token, UpdateProfileRequest{
		Name:  &newName,
		Image: &image,
	})
	if status != http.StatusOK {
		t.Fatalf("update: status = %d, error = %+v", status, apiEnv.Error)
	}

	var updated models.User
	decodeData(t, apiEnv, &updated)
	if updated.Name != newName {
		t.Errorf("name = %q, want %q", updated.Name, newName)
	}
	if updated.Image == nil || *updated.Image != image {
		t.Errorf("image = %v, want %q", updated.Image, image)
	}
}

func TestUpdateProfileEmptyBody(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.newUserWithToken(t, "ada")

	status, _ := env.request(t, http.MethodPut, "/api/v1/me", token, UpdateProfileRequest{})
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", status, http.StatusBadRequest)
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	env := newTestEnv(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/me"},
		{http.MethodGet, "/api/v1/users"},
		{http.MethodGet, "/api/v1/conversations"},
		{http.MethodPost, "/api/v1/messages"},
	}

	for _, p := range paths {
		status, apiEnv := env.request(t, p.method, p.path, "", nil)
		if status != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want %d", p.method, p.path, status, http.StatusUnauthorized)
		}
		if apiEnv.Error == nil || apiEnv.Error.Code != "UNAUTHORIZED" {
			t.Errorf("%s %s: error = %+v, want UNAUTHORIZED", p.method, p.path, apiEnv.Error)
		}
	}
}
