// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package hub

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/parley/internal/logging"
	"github.com/tomtom215/parley/internal/metrics"
	"github.com/tomtom215/parley/internal/models"
)

// joinCheckTimeout bounds the store lookup performed for a join event.
const joinCheckTimeout = 5 * time.Second

// clientIDCounter generates unique, monotonically increasing IDs for clients.
// DETERMINISM: This ensures clients can be sorted in a consistent order for
// broadcast operations, eliminating non-deterministic map iteration order.
var clientIDCounter atomic.Uint64

// Client is a middleman between one authenticated websocket connection
// and the hub.
type Client struct {
	// id is a unique identifier for this client, used for deterministic
	// fan-out ordering.
	id     uint64
	userID uuid.UUID
	hub    *Hub
	conn   *websocket.Conn
	send   chan Message

	// rooms tracks this client's memberships; guarded by hub.mu.
	rooms map[uuid.UUID]bool

	// typing throttles typing indicators per connection.
	typing *rate.Limiter
}

// NewClient creates a Client bound to an authenticated user. Buffer
// sizes and the typing rate limit come from the hub's configuration.
func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		id:     clientIDCounter.Add(1),
		userID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan Message, hub.cfg.SendBufferSize),
		rooms:  make(map[uuid.UUID]bool),
		typing: rate.NewLimiter(rate.Limit(hub.cfg.TypingPerSecond), hub.cfg.TypingBurst),
	}
}

// ID returns the client's unique identifier for deterministic ordering.
func (c *Client) ID() uint64 {
	return c.id
}

// UserID returns the authenticated user this connection belongs to.
func (c *Client) UserID() uuid.UUID {
	return c.userID
}

// readPump pumps events from the websocket connection into the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close() // best-effort cleanup
	}()

	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongTimeout)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongTimeout))
	})

	for {
		var msg inboundMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Msg("unexpected websocket close error")
			}
			break
		}
		c.handleEvent(msg)
	}
}

// handleEvent dispatches one client event. Unknown events are dropped
// without a reply, matching the fire-and-forget contract.
func (c *Client) handleEvent(msg inboundMessage) {
	switch msg.Event {
	case EventPing:
		c.reply(Message{Event: EventPong})

	case EventJoin:
		c.handleJoin(msg.Data)

	case EventLeave:
		var ref roomRef
		if err := json.Unmarshal(msg.Data, &ref); err != nil || ref.ConversationID == uuid.Nil {
			c.reply(errorMessage("VALIDATION_ERROR", "leave requires a conversationId"))
			return
		}
		c.hub.Leave(c, ref.ConversationID)

	case EventTyping:
		c.handleTyping(msg.Data)

	case EventSendMessage:
		c.handleSendMessage(msg.Data)

	default:
		logging.Debug().Str("event", msg.Event).Msg("ignoring unknown websocket event")
	}
}

func (c *Client) handleJoin(data json.RawMessage) {
	var ref roomRef
	if err := json.Unmarshal(data, &ref); err != nil || ref.ConversationID == uuid.Nil {
		c.reply(errorMessage("VALIDATION_ERROR", "join requires a conversationId"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), joinCheckTimeout)
	defer cancel()

	switch err := c.hub.Join(ctx, c, ref.ConversationID); {
	case err == nil:
	case errors.Is(err, ErrNotParticipant):
		c.reply(errorMessage("FORBIDDEN", "not a participant of this conversation"))
	default:
		logging.Error().Err(err).
			Str("conversation_id", ref.ConversationID.String()).
			Msg("join authorization failed")
		c.reply(errorMessage("SERVICE_ERROR", "unable to join conversation"))
	}
}

func (c *Client) handleTyping(data json.RawMessage) {
	if !c.typing.Allow() {
		metrics.WSEventsDropped.WithLabelValues(EventTyping, "rate_limited").Inc()
		return
	}

	var status models.TypingStatus
	if err := json.Unmarshal(data, &status); err != nil || status.ConversationID == uuid.Nil {
		c.reply(errorMessage("VALIDATION_ERROR", "typing requires a conversationId"))
		return
	}

	// Typing is attributed to the connection's user, never to a claimed one.
	status.UserID = c.userID

	if !c.hub.InRoom(c, status.ConversationID) {
		metrics.WSEventsDropped.WithLabelValues(EventTyping, "not_member").Inc()
		return
	}
	c.hub.BroadcastTyping(c, status)
}

// handleSendMessage relays an already persisted message to the room.
// The canonical write path is the REST endpoint; this event exists so a
// client can nudge its peers without waiting for their next poll.
func (c *Client) handleSendMessage(data json.RawMessage) {
	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil || msg.ConversationID == uuid.Nil {
		c.reply(errorMessage("VALIDATION_ERROR", "send-message requires a message payload"))
		return
	}
	if msg.SenderID != c.userID {
		c.reply(errorMessage("FORBIDDEN", "cannot relay another user's message"))
		return
	}
	if !c.hub.InRoom(c, msg.ConversationID) {
		c.reply(errorMessage("FORBIDDEN", "join the conversation before sending"))
		return
	}
	c.hub.BroadcastMessage(&msg)
}

// reply enqueues a server-to-client event, dropping it if the buffer is
// full. The hub closes c.send under hub.mu when it evicts the client or
// shuts down, so registration is re-checked under that same lock before
// sending; a reply racing an eviction is dropped, never sent on a
// closed channel.
func (c *Client) reply(msg Message) {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
		metrics.WSEventsDropped.WithLabelValues(msg.Event, "buffer_full").Inc()
	}
}

// writePump pumps events from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // best-effort cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if !ok {
				// The hub closed the channel
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logging.Error().Err(err).Msg("failed to write close message")
				}
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				logging.Error().Err(err).Msg("failed to write JSON message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
