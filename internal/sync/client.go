// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package sync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/parley/internal/models"
)

// RequestError is returned when the server answered with an error
// envelope. It preserves the HTTP status and the machine-readable
// error code so callers can branch on UNAUTHORIZED vs transient
// failures.
type RequestError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("api request failed: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// envelope mirrors the server's response wrapper. Data is kept raw
// so each call site can decode its own payload type.
type envelope struct {
	Status string           `json:"status"`
	Data   json.RawMessage  `json:"data"`
	Error  *models.APIError `json:"error"`
}

// Client is a typed HTTP client for the REST API. The zero value is
// not usable; construct with NewClient. Safe for concurrent use.
type Client struct {
	baseURL string
	hc      *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient builds a client for the API rooted at baseURL, for
// example "http://localhost:8080". The timeout bounds each request
// end to end.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
	}
}

// SetToken installs a bearer token for subsequent requests. Login
// calls this automatically.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token, empty before login.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) do(ctx context.Context, method, path string, body, dst interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response envelope: %w", err)
	}

	if env.Status != "success" {
		reqErr := &RequestError{StatusCode: resp.StatusCode}
		if env.Error != nil {
			reqErr.Code = env.Error.Code
			reqErr.Message = env.Error.Message
		}
		return reqErr
	}

	if dst != nil {
		if err := json.Unmarshal(env.Data, dst); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginData struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Login authenticates and stores the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var data loginData
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", loginRequest{Email: email, Password: password}, &data); err != nil {
		return nil, err
	}
	c.SetToken(data.Token)
	return &data.User, nil
}

// Me fetches the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/api/v1/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Users lists every registered user except the caller.
func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.do(ctx, http.MethodGet, "/api/v1/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Conversations fetches the caller's conversation sidebar, most
// recently active first.
func (c *Client) Conversations(ctx context.Context) ([]models.Conversation, error) {
	var conversations []models.Conversation
	if err := c.do(ctx, http.MethodGet, "/api/v1/conversations", nil, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

type createConversationRequest struct {
	UserID string `json:"userId"`
}

// StartConversation finds or creates the conversation with the
// given peer.
func (c *Client) StartConversation(ctx context.Context, peerID uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	body := createConversationRequest{UserID: peerID.String()}
	if err := c.do(ctx, http.MethodPost, "/api/v1/conversations", body, &conversation); err != nil {
		return nil, err
	}
	return &conversation, nil
}

// Messages fetches the message history of a conversation in
// chronological order. The fetch doubles as a read receipt: the
// server marks the peer's messages read before responding.
func (c *Client) Messages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	var messages []models.Message
	path := "/api/v1/messages/" + conversationID.String()
	if err := c.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendMessageInput carries the fields of a new message. File fields
// are nil for plain text.
type SendMessageInput struct {
	ConversationID uuid.UUID
	ReceiverID     uuid.UUID
	Content        string
	Type           string
	FileURL        *string
	FileName       *string
	FileSize       *int64
	FileMimeType   *string
}

type sendMessageRequest struct {
	Content        string  `json:"content"`
	ConversationID string  `json:"conversationId"`
	ReceiverID     string  `json:"receiverId"`
	Type           string  `json:"type,omitempty"`
	FileURL        *string `json:"fileUrl,omitempty"`
	FileName       *string `json:"fileName,omitempty"`
	FileSize       *int64  `json:"fileSize,omitempty"`
	FileMimeType   *string `json:"fileMimeType,omitempty"`
}

// SendMessage posts a message and returns the hydrated copy the
// server persisted.
func (c *Client) SendMessage(ctx context.Context, input SendMessageInput) (*models.Message, error) {
	body := sendMessageRequest{
		Content:        input.Content,
		ConversationID: input.ConversationID.String(),
		ReceiverID:     input.ReceiverID.String(),
		Type:           input.Type,
		FileURL:        input.FileURL,
		FileName:       input.FileName,
		FileSize:       input.FileSize,
		FileMimeType:   input.FileMimeType,
	}
	var message models.Message
	if err := c.do(ctx, http.MethodPost, "/api/v1/messages", body, &message); err != nil {
		return nil, err
	}
	return &message, nil
}
