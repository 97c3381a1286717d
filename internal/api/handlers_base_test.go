// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/parley/internal/auth"
	"github.com/tomtom215/parley/internal/config"
	"github.com/tomtom215/parley/internal/database"
	"github.com/tomtom215/parley/internal/hub"
	"github.com/tomtom215/parley/internal/logging"
	"github.com/tomtom215/parley/internal/models"
	"github.com/tomtom215/parley/internal/upload"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

// testEnv is a fully wired API server backed by throwaway storage.
type testEnv struct {
	srv *httptest.Server
	db  *database.DB
	cfg *config.Config
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Database: config.DatabaseConfig{
			Path:      t.TempDir() + "/test.duckdb",
			MaxMemory: "512MB",
			Threads:   2,
		},
		Security: config.SecurityConfig{
			JWTSecret:         "0123456789abcdef0123456789abcdef",
			TokenTTL:          time.Hour,
			BcryptCost:        10,
			RateLimitDisabled: true,
			CORSOrigins:       []string{"*"},
			CookieName:        "token",
		},
		Upload: config.UploadConfig{
			Dir:           t.TempDir(),
			MaxFileSize:   1024,
			MaxAvatarSize: 512,
			PublicPath:    "/uploads",
		},
		Hub: config.HubConfig{
			SendBufferSize:  8,
			MaxMessageSize:  4096,
			WriteTimeout:    time.Second,
			PongTimeout:     2 * time.Second,
			PingInterval:    time.Second,
			TypingPerSecond: 100,
			TypingBurst:     8,
		},
		API: config.APIConfig{
			DefaultPageSize: 50,
			MaxPageSize:     100,
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := newTestConfig(t)

	db, err := database.New(&cfg.Database)
	if err != nil {
		t.Fatalf("database.New failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	sessions, err := auth.NewBadgerRevocationStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadgerRevocationStore failed: %v", err)
	}
	t.Cleanup(func() { _ = sessions.Close() })

	jwtMgr, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("NewJWTManager failed: %v", err)
	}

	wsHub := hub.NewHub(&cfg.Hub, db)
	hubCtx, cancelHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		_ = wsHub.RunWithContext(hubCtx)
		close(hubDone)
	}()
	t.Cleanup(func() {
		cancelHub()
		<-hubDone
	})

	uploads, err := upload.NewStore(&cfg.Upload)
	if err != nil {
		t.Fatalf("upload.NewStore failed: %v", err)
	}

	handler := NewHandler(db, cfg, jwtMgr, sessions, wsHub, uploads)
	authMW := auth.NewMiddleware(jwtMgr, sessions, cfg.Security.CookieName)
	srv := httptest.NewServer(NewRouter(handler, authMW).SetupChi())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, db: db, cfg: cfg}
}

// envelope mirrors models.APIResponse with a deferred Data payload.
type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

// request performs an API call, returning the status code and decoded
// envelope. body is JSON-marshaled when non-nil; token is attached as a
// Bearer header when non-empty.
func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp.StatusCode, env
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(data)
}

func decodeData(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data payload: %v", err)
	}
}

// registerUser creates an account through the API and returns the user.
func (e *testEnv) registerUser(t *testing.T, name, email string) models.User {
	t.Helper()
	status, env := e.request(t, http.MethodPost, "/api/v1/auth/register", "", RegisterRequest{
		Name:     name,
		Email:    email,
		Password: "correct horse battery",
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s: status = %d, error = %+v", email, status, env.Error)
	}
	var user models.User
	decodeData(t, env, &user)
	return user
}

// login authenticates through the API and returns the token.
func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()
	status, env := e.request(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{
		Email:    email,
		Password: "correct horse battery",
	})
	if status != http.StatusOK {
		t.Fatalf("login %s: status = %d, error = %+v", email, status, env.Error)
	}
	var payload struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	decodeData(t, env, &payload)
	if payload.Token == "" {
		t.Fatal("login returned an empty token")
	}
	return payload.Token
}

// newUserWithToken registers and logs in a fresh user.
func (e *testEnv) newUserWithToken(t *testing.T, name string) (models.User, string) {
	t.Helper()
	email := fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8])
	user := e.registerUser(t, name, email)
	return user, e.login(t, email)
}

// startConversation creates (or fetches) the conversation between the
// token's user and the peer.
func (e *testEnv) startConversation(t *testing.T, token string, peerID uuid.UUID) models.Conversation {
	t.Helper()
	status, env := e.request(t, http.MethodPost, "/api/v1/conversations", token, CreateConversationRequest{
		UserID: peerID.String(),
	})
	if status != http.StatusOK {
		t.Fatalf("create conversation: status = %d, error = %+v", status, env.Error)
	}
	var conv models.Conversation
	decodeData(t, env, &conv)
	return conv
}

// sendMessage posts a text message and returns the hydrated result.
func (e *testEnv) sendMessage(t *testing.T, token string, conversationID, receiverID uuid.UUID, content string) models.Message {
	t.Helper()
	status, env := e.request(t, http.MethodPost, "/api/v1/messages", token, SendMessageRequest{
		Content:        content,
		ConversationID: conversationID.String(),
		ReceiverID:     receiverID.String(),
	})
	if status != http.StatusCreated {
		t.Fatalf("send message: status = %d, error = %+v", status, env.Error)
	}
	var msg models.Message
	decodeData(t, env, &msg)
	return msg
}
