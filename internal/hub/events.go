// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package hub

import (
	"github.com/goccy/go-json"

	"github.com/google/uuid"
)

// Client-to-server events.
const (
	EventJoin        = "join"
	EventLeave       = "leave"
	EventSendMessage = "send-message"
	EventTyping      = "typing"
	EventPing        = "ping"
)

// Server-to-client events.
const (
	EventNewMessage = "new-message"
	EventPong       = "pong"
	EventError      = "error"
)

// Message is the wire envelope for every WebSocket event in both
// directions.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// inboundMessage defers payload decoding until the event type is known.
type inboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// roomRef is the payload of join and leave events.
type roomRef struct {
	ConversationID uuid.UUID `json:"conversationId"`
}

// ErrorData is the payload of error events sent back to a client whose
// request was rejected.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorMessage(code, text string) Message {
	return Message{Event: EventError, Data: ErrorData{Code: code, Message: text}}
}
