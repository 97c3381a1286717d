// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package hub

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/tomtom215/parley/internal/config"
	"github.com/tomtom215/parley/internal/logging"
	"github.com/tomtom215/parley/internal/metrics"
	"github.com/tomtom215/parley/internal/models"
)

// ErrNotParticipant is returned by Join when the authenticated user is
// not a participant of the requested conversation.
var ErrNotParticipant = errors.New("user is not a conversation participant")

// ShutdownReason identifies why the hub is shutting down.
// This enables clear observability in logs and metrics.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	// This is the normal graceful shutdown path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	// This may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// ParticipantChecker authorizes room joins against the store.
// *database.DB satisfies this interface.
type ParticipantChecker interface {
	IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
}

// roomBroadcast is a queued fan-out targeting a single conversation
// room. excludeClient suppresses delivery to that one connection
// (zero excludes nobody).
type roomBroadcast struct {
	conversationID uuid.UUID
	message        Message
	excludeClient  uint64
}

// Hub maintains the set of active clients and their room memberships,
// and fans events out to room members.
type Hub struct {
	cfg     *config.HubConfig
	checker ParticipantChecker

	clients map[*Client]bool
	rooms   map[uuid.UUID]map[*Client]bool

	broadcast  chan roomBroadcast
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub. The checker is consulted on every join.
func NewHub(cfg *config.HubConfig, checker ParticipantChecker) *Hub {
	return &Hub{
		cfg:        cfg,
		checker:    checker,
		clients:    make(map[*Client]bool),
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		broadcast:  make(chan roomBroadcast, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// RunWithContext starts the hub with context support for graceful shutdown.
// This method is designed for use with suture supervision.
//
// When the context is canceled:
//  1. All connected clients are gracefully closed
//  2. The method returns ctx.Err()
//
// This allows the hub to be restarted by a supervisor without leaving
// orphaned connections.
//
// DETERMINISM: Uses priority-based selection to ensure predictable behavior:
// - Priority 1: Context cancellation (shutdown)
// - Priority 2: Client lifecycle events (Register/Unregister)
// - Priority 3: Broadcast messages
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: Check for shutdown (highest priority, non-blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: Handle client lifecycle events (non-blocking check)
		select {
		case client := <-h.Register:
			h.registerClient(client)
			continue
		case client := <-h.Unregister:
			h.unregisterClient(client)
			continue
		default:
			// No lifecycle events pending
		}

		// Priority 3: Handle broadcast messages or wait for any event (blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case b := <-h.broadcast:
			h.broadcastToRoom(b)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().
		Str("user_id", client.userID.String()).
		Int("total_clients", total).
		Msg("websocket client connected")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		h.removeFromAllRoomsLocked(client)
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	roomTotal := len(h.rooms)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	metrics.WSRooms.Set(float64(roomTotal))
	logging.Info().
		Str("user_id", client.userID.String()).
		Int("total_clients", total).
		Msg("websocket client disconnected")
}

// Join admits a client into a conversation room after verifying that
// the client's authenticated user is a participant. It is a no-op if
// the client is already a member. Called from client read pumps, never
// from the hub loop, so the store lookup cannot stall fan-out.
func (h *Hub) Join(ctx context.Context, client *Client, conversationID uuid.UUID) error {
	if h.InRoom(client, conversationID) {
		return nil
	}

	ok, err := h.checker.IsParticipant(ctx, conversationID, client.userID)
	if err != nil {
		return fmt.Errorf("join authorization check: %w", err)
	}
	if !ok {
		return ErrNotParticipant
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// The client may have disconnected while the store was consulted.
	if !h.clients[client] {
		return nil
	}

	room := h.rooms[conversationID]
	if room == nil {
		room = make(map[*Client]bool)
		h.rooms[conversationID] = room
	}
	room[client] = true
	client.rooms[conversationID] = true

	metrics.WSRooms.Set(float64(len(h.rooms)))
	logging.Ctx(ctx).Debug().
		Str("conversation_id", conversationID.String()).
		Str("user_id", client.userID.String()).
		Int("room_members", len(room)).
		Msg("client joined room")
	return nil
}

// Leave removes a client from a conversation room. Unknown memberships
// are ignored.
func (h *Hub) Leave(client *Client, conversationID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoomLocked(client, conversationID)
	metrics.WSRooms.Set(float64(len(h.rooms)))
}

// InRoom reports whether the client is currently a member of the room.
func (h *Hub) InRoom(client *Client, conversationID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return client.rooms[conversationID]
}

// BroadcastMessage fans a persisted message out to every member of its
// conversation room, including the sender's own connections. A full
// broadcast queue drops the event; polling will pick the message up.
func (h *Hub) BroadcastMessage(msg *models.Message) {
	h.enqueue(roomBroadcast{
		conversationID: msg.ConversationID,
		message:        Message{Event: EventNewMessage, Data: msg},
	})
}

// BroadcastTyping fans a typing indicator out to every room member
// except the emitting connection. Other connections of the same user
// still receive it, so a second tab stays in sync.
func (h *Hub) BroadcastTyping(from *Client, status models.TypingStatus) {
	h.enqueue(roomBroadcast{
		conversationID: status.ConversationID,
		message:        Message{Event: EventTyping, Data: status},
		excludeClient:  from.id,
	})
}

func (h *Hub) enqueue(b roomBroadcast) {
	select {
	case h.broadcast <- b:
	default:
		metrics.WSEventsDropped.WithLabelValues(b.message.Event, "hub_backlog").Inc()
		logging.Warn().
			Str("event", b.message.Event).
			Str("conversation_id", b.conversationID.String()).
			Msg("hub broadcast queue full, event dropped")
	}
}

// broadcastToRoom delivers a queued event to the members of one room.
// DETERMINISM: members are sorted by client ID so delivery order is
// reproducible. A member whose send buffer is full is evicted.
func (h *Hub) broadcastToRoom(b roomBroadcast) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.rooms[b.conversationID]
	if len(room) == 0 {
		return
	}

	members := make([]*Client, 0, len(room))
	for client := range room {
		members = append(members, client)
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].id < members[j].id
	})

	var toEvict []*Client
	for _, client := range members {
		if b.excludeClient != 0 && client.id == b.excludeClient {
			continue
		}
		select {
		case client.send <- b.message:
			metrics.WSEventsSent.WithLabelValues(b.message.Event).Inc()
		default:
			// Buffer full or client wedged, evict rather than stall
			toEvict = append(toEvict, client)
		}
	}

	for _, client := range toEvict {
		metrics.WSEventsDropped.WithLabelValues(b.message.Event, "buffer_full").Inc()
		h.removeFromAllRoomsLocked(client)
		delete(h.clients, client)
		close(client.send)
		logging.Warn().
			Str("user_id", client.userID.String()).
			Msg("evicted slow websocket client")
	}
	if len(toEvict) > 0 {
		metrics.WSConnections.Set(float64(len(h.clients)))
		metrics.WSRooms.Set(float64(len(h.rooms)))
	}
}

func (h *Hub) removeFromRoomLocked(client *Client, conversationID uuid.UUID) {
	if room, ok := h.rooms[conversationID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, conversationID)
		}
	}
	delete(client.rooms, conversationID)
}

func (h *Hub) removeFromAllRoomsLocked(client *Client) {
	for conversationID := range client.rooms {
		h.removeFromRoomLocked(client, conversationID)
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomCount returns the number of rooms with at least one member.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// logGracefulShutdown closes all connected clients and logs structured
// shutdown information.
//
// Note: ctx.Err() is NOT logged as an error because context cancellation
// is expected behavior during graceful shutdown.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("broadcast hub stopped")
}

// getShutdownReason determines the shutdown reason from the context error.
func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.Canceled:
		return ShutdownReasonContextCanceled
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// closeAllClients gracefully closes all connected WebSocket clients.
// DETERMINISM: Closes clients in ID order for consistent shutdown behavior.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		h.removeFromAllRoomsLocked(client)
		delete(h.clients, client)
		close(client.send)
	}
	metrics.WSConnections.Set(0)
	metrics.WSRooms.Set(0)
}
