// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package sync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/parley/internal/config"
	"github.com/tomtom215/parley/internal/logging"
	"github.com/tomtom215/parley/internal/metrics"
	"github.com/tomtom215/parley/internal/models"
)

// Callbacks receive fresh snapshots after each successful fetch.
// They run on the poller goroutine, so they must not block. Nil
// callbacks are skipped.
type Callbacks struct {
	// OnConversations fires with the full sidebar after every
	// conversation tick.
	OnConversations func(conversations []models.Conversation)

	// OnMessages fires with the full history of the active
	// conversation after every message tick.
	OnMessages func(conversationID uuid.UUID, messages []models.Message)

	// OnError fires when a fetch fails, including fast failures
	// while the breaker is open. Target is "messages" or
	// "conversations".
	OnError func(target string, err error)
}

// Poller periodically refreshes the conversation sidebar and the
// message history of one active conversation. Each refresh replaces
// the previous snapshot wholesale. Safe for concurrent use.
type Poller struct {
	client  *Client
	cfg     *config.SyncConfig
	breaker *gobreaker.CircuitBreaker[interface{}]
	cb      Callbacks

	mu            sync.RWMutex
	active        uuid.UUID
	conversations []models.Conversation
	messages      []models.Message

	kick    chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewPoller builds a poller around an authenticated client. Start
// must be called before any ticks fire.
func NewPoller(client *Client, cfg *config.SyncConfig, callbacks Callbacks) *Poller {
	return &Poller{
		client:  client,
		cfg:     cfg,
		breaker: newBreaker("parley-sync", defaultBreakerSettings()),
		cb:      callbacks,
		kick:    make(chan struct{}, 1),
	}
}

// Start launches the polling loop. The conversation list is fetched
// immediately; the active conversation is fetched as soon as one is
// set. Calling Start twice is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	p.mu.Unlock()

	go p.run(ctx)
}

// Stop tears down the tickers and waits for the loop to exit.
// Calling Stop before Start, or twice, is a no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	<-done
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	msgTicker := time.NewTicker(p.cfg.MessagesInterval)
	defer msgTicker.Stop()
	convTicker := time.NewTicker(p.cfg.ConversationsInterval)
	defer convTicker.Stop()

	p.fetchConversations(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.kick:
			p.fetchMessages(ctx)
		case <-msgTicker.C:
			p.fetchMessages(ctx)
		case <-convTicker.C:
			p.fetchConversations(ctx)
		}
	}
}

// SetActiveConversation switches the short-interval target and
// triggers an immediate fetch so the UI does not wait out the
// current tick. uuid.Nil pauses message polling.
func (p *Poller) SetActiveConversation(conversationID uuid.UUID) {
	p.mu.Lock()
	changed := p.active != conversationID
	p.active = conversationID
	if changed {
		p.messages = nil
	}
	p.mu.Unlock()

	if changed && conversationID != uuid.Nil {
		select {
		case p.kick <- struct{}{}:
		default:
		}
	}
}

// ActiveConversation returns the current message poll target,
// uuid.Nil when none is set.
func (p *Poller) ActiveConversation() uuid.UUID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active
}

// Conversations returns a copy of the latest sidebar snapshot.
func (p *Poller) Conversations() []models.Conversation {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.Conversation, len(p.conversations))
	copy(out, p.conversations)
	return out
}

// Messages returns a copy of the latest history snapshot for the
// active conversation.
func (p *Poller) Messages() []models.Message {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.Message, len(p.messages))
	copy(out, p.messages)
	return out
}

// Send posts a message and appends the hydrated response to the
// local snapshot immediately, so the sender sees their own message
// without waiting for the next tick.
func (p *Poller) Send(ctx context.Context, input SendMessageInput) (*models.Message, error) {
	message, err := p.client.SendMessage(ctx, input)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.active == message.ConversationID {
		p.messages = append(p.messages, *message)
	}
	p.mu.Unlock()

	return message, nil
}

func (p *Poller) fetchConversations(ctx context.Context) {
	result, err := p.breaker.Execute(func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
		defer cancel()
		return p.client.Conversations(fetchCtx)
	})
	if err != nil {
		p.recordFailure("conversations", err)
		return
	}
	conversations := result.([]models.Conversation)

	p.mu.Lock()
	p.conversations = conversations
	p.mu.Unlock()

	metrics.SyncFetches.WithLabelValues("conversations", "success").Inc()
	if p.cb.OnConversations != nil {
		p.cb.OnConversations(conversations)
	}
}

func (p *Poller) fetchMessages(ctx context.Context) {
	p.mu.RLock()
	active := p.active
	p.mu.RUnlock()
	if active == uuid.Nil {
		return
	}

	result, err := p.breaker.Execute(func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
		defer cancel()
		return p.client.Messages(fetchCtx, active)
	})
	if err != nil {
		p.recordFailure("messages", err)
		return
	}
	messages := result.([]models.Message)

	p.mu.Lock()
	// The active conversation may have changed while the fetch was
	// in flight. Stale results are discarded, not merged.
	if p.active != active {
		p.mu.Unlock()
		return
	}
	p.messages = messages
	p.mu.Unlock()

	metrics.SyncFetches.WithLabelValues("messages", "success").Inc()
	if p.cb.OnMessages != nil {
		p.cb.OnMessages(active, messages)
	}
}

func (p *Poller) recordFailure(target string, err error) {
	metrics.SyncFetches.WithLabelValues(target, "error").Inc()
	logging.Warn().Err(err).Str("target", target).Msg("Sync fetch failed, waiting for next tick")
	if p.cb.OnError != nil {
		p.cb.OnError(target, err)
	}
}
