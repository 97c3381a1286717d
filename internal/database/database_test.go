// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/parley/internal/config"
	"github.com/tomtom215/parley/internal/models"
)

// newTestDB creates a DuckDB instance backed by a temp file, cleaned up
// with the test.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Path:      filepath.Join(t.TempDir(), "test.duckdb"),
		MaxMemory: "512MB",
		Threads:   2,
	}

	db, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})

	return db
}

func mustCreateUser(t *testing.T, db *DB, name, email string) *models.User {
	t.Helper()
	user, err := db.CreateUser(context.Background(), name, email, "$2a$12$fakehashfortesting")
	if err != nil {
		t.Fatalf("Failed to create user %s: %v", email, err)
	}
	return user
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	mustCreateUser(t, db, "Ada", "ada@example.com")

	_, err := db.CreateUser(ctx, "Imposter", "ada@example.com", "hash")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("Expected ErrEmailTaken, got %v", err)
	}
}

func TestGetUserByEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created := mustCreateUser(t, db, "Ada", "ada@example.com")

	user, hash, err := db.GetUserByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if user.ID != created.ID {
		t.Errorf("Expected ID %s, got %s", created.ID, user.ID)
	}
	if hash != "$2a$12$fakehashfortesting" {
		t.Errorf("Expected stored hash back, got %q", hash)
	}

	_, _, err = db.GetUserByEmail(ctx, "nobody@example.com")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestListUsersExcept(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	ada := mustCreateUser(t, db, "Ada", "ada@example.com")
	mustCreateUser(t, db, "Grace", "grace@example.com")
	mustCreateUser(t, db, "Alan", "alan@example.com")

	users, err := db.ListUsersExcept(ctx, ada.ID)
	if err != nil {
		t.Fatalf("ListUsersExcept failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("Expected 2 users, got %d", len(users))
	}
	for _, u := range users {
		if u.ID == ada.ID {
			t.Error("Excluded user returned in listing")
		}
	}
	// Ordered by name
	if users[0].Name != "Alan" || users[1].Name != "Grace" {
		t.Errorf("Expected name ordering [Alan Grace], got [%s %s]", users[0].Name, users[1].Name)
	}
}

func TestUpdateUserProfile(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := mustCreateUser(t, db, "Ada", "ada@example.com")

	newName := "Ada Lovelace"
	avatar := "/uploads/avatars/ada.png"
	updated, err := db.UpdateUserProfile(ctx, user.ID, &newName, &avatar)
	if err != nil {
		t.Fatalf("UpdateUserProfile failed: %v", err)
	}
	if updated.Name != newName {
		t.Errorf("Expected name %q, got %q", newName, updated.Name)
	}
	if updated.Image == nil || *updated.Image != avatar {
		t.Errorf("Expected image %q, got %v", avatar, updated.Image)
	}

	// Nil fields leave values unchanged
	updated, err = db.UpdateUserProfile(ctx, user.ID, nil, nil)
	if err != nil {
		t.Fatalf("UpdateUserProfile with nil fields failed: %v", err)
	}
	if updated.Name != newName {
		t.Errorf("Name changed unexpectedly: %q", updated.Name)
	}
}

func TestGetOrCreateConversationIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	ada := mustCreateUser(t, db, "Ada", "ada@example.com")
	grace := mustCreateUser(t, db, "Grace", "grace@example.com")

	first, err := db.GetOrCreateConversation(ctx, ada.ID, grace.ID)
	if err != nil {
		t.Fatalf("First GetOrCreateConversation failed: %v", err)
	}

	// Same pair in either direction resolves to the same conversation
	second, err := db.GetOrCreateConversation(ctx, grace.ID, ada.ID)
	if err != nil {
		t.Fatalf("Second GetOrCreateConversation failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("Expected one conversation per pair, got %s and %s", first.ID, second.ID)
	}

	if len(first.Participants) != 2 {
		t.Fatalf("Expected 2 participants, got %d", len(first.Participants))
	}
	if !first.HasParticipant(ada.ID) || !first.HasParticipant(grace.ID) {
		t.Error("Participants not hydrated correctly")
	}
}

func TestGetOrCreateConversationSelf(t *testing.T) {
	db := newTestDB(t)
	ada := mustCreateUser(t, db, "Ada", "ada@example.com")

	_, err := db.GetOrCreateConversation(context.Background(), ada.ID, ada.ID)
	if !errors.Is(err, ErrSelfConversation) {
		t.Fatalf("Expected ErrSelfConversation, got %v", err)
	}
}

func TestIsParticipant(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	ada := mustCreateUser(t, db, "Ada", "ada@example.com")
	grace := mustCreateUser(t, db, "Grace", "grace@example.com")
	alan := mustCreateUser(t, db, "Alan", "alan@example.com")

	conv, err := db.GetOrCreateConversation(ctx, ada.ID, grace.ID)
	if err != nil {
		t.Fatalf("GetOrCreateConversation failed: %v", err)
	}

	for _, tt := range []struct {
		name string
		user uuid.UUID
		want bool
	}{
		{"first participant", ada.ID, true},
		{"second participant", grace.ID, true},
		{"outsider", alan.ID, false},
	} {
		got, err := db.IsParticipant(ctx, conv.ID, tt.user)
		if err != nil {
			t.Fatalf("IsParticipant(%s) failed: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("IsParticipant(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCreateMessageDeliveredAndBump(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	ada := mustCreateUser(t, db, "Ada", "ada@example.com")
	grace := mustCreateUser(t, db, "Grace", "grace@example.com")

	conv, err := db.GetOrCreateConversation(ctx, ada.ID, grace.ID)
	if err != nil {
		t.Fatalf("GetOrCreateConversation failed: %v", err)
	}

	msg, err := db.CreateMessage(ctx, NewMessage{
		ConversationID: conv.ID,
		SenderID:       ada.ID,
		ReceiverID:     grace.ID,
		Content:        "hello",
	})
	if err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}

	// delivered means persisted, set at creation
	if !msg.Delivered {
		t.Error("Expected message to be delivered at creation")
	}
	if msg.Read {
		t.Error("Expected message to start unread")
	}
	if msg.Type != models.MessageTypeText {
		t.Errorf("Expected default type text, got %q", msg.Type)
	}

	// Sending bumps the conversation's updated_at
	after, err := db.GetConversation(ctx, conv.ID, grace.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if after.UpdatedAt.Before(msg.CreatedAt) {
		t.Errorf("Expected updated_at >= message time, got %s < %s", after.UpdatedAt, msg.CreatedAt)
	}
	if after.UnreadCount != 1 {
		t.Errorf("Expected receiver unread count 1, got %d", after.UnreadCount)
	}
	if after.LastMessage == nil || after.LastMessage.ID != msg.ID {
		t.Error("Expected last message to be the new message")
	}

	// Sender sees no unread for their own message
	senderView, err := db.GetConversation(ctx, conv.ID, ada.ID)
	if err != nil {
		t.Fatalf("GetConversation (sender) failed: %v", err)
	}
	if senderView.UnreadCount != 0 {
		t.Errorf("Expected sender unread count 0, got %d", senderView.UnreadCount)
	}
}

func TestMarkMessagesReadIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	ada := mustCreateUser(t, db, "Ada", "ada@example.com")
	grace := mustCreateUser(t, db, "Grace", "grace@example.com")
	conv, err := db.GetOrCreateConversation(ctx, ada.ID, grace.ID)
	if err != nil {
		t.Fatalf("GetOrCreateConversation failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := db.CreateMessage(ctx, NewMessage{
			ConversationID: conv.ID,
			SenderID:       ada.ID,
			ReceiverID:     grace.ID,
			Content:        "hi",
		}); err != nil {
			t.Fatalf("CreateMessage failed: %v", err)
		}
	}

	affected, err := db.MarkMessagesRead(ctx, conv.ID, grace.ID)
	if err != nil {
		t.Fatalf("MarkMessagesRead failed: %v", err)
	}
	if affected != 3 {
		t.Errorf("Expected 3 messages marked, got %d", affected)
	}

	// Second call is a no-op
	affected, err = db.MarkMessagesRead(ctx, conv.ID, grace.ID)
	if err != nil {
		t.Fatalf("Second MarkMessagesRead failed: %v", err)
	}
	if affected != 0 {
		t.Errorf("Expected idempotent re-run to affect 0 rows, got %d", affected)
	}

	count, err := db.UnreadCount(ctx, conv.ID, grace.ID)
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected unread count 0 after mark-read, got %d", count)
	}
}

func TestMarkMessagesReadOnlyTargetsReader(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	ada := mustCreateUser(t, db, "Ada", "ada@example.com")
	grace := mustCreateUser(t, db, "Grace", "grace@example.com")
	conv, err := db.GetOrCreateConversation(ctx, ada.ID, grace.ID)
	if err != nil {
		t.Fatalf("GetOrCreateConversation failed: %v", err)
	}

	// One message in each direction
	if _, err := db.CreateMessage(ctx, NewMessage{
		ConversationID: conv.ID, SenderID: ada.ID, ReceiverID: grace.ID, Content: "to grace",
	}); err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}
	if _, err := db.CreateMessage(ctx, NewMessage{
		ConversationID: conv.ID, SenderID: grace.ID, ReceiverID: ada.ID, Content: "to ada",
	}); err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}

	// Grace reading must not flip the message addressed to Ada
	if _, err := db.MarkMessagesRead(ctx, conv.ID, grace.ID); err != nil {
		t.Fatalf("MarkMessagesRead failed: %v", err)
	}

	adaUnread, err := db.UnreadCount(ctx, conv.ID, ada.ID)
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if adaUnread != 1 {
		t.Errorf("Expected Ada's unread to stay 1, got %d", adaUnread)
	}
}

func TestListMessagesChronologicalWithPagination(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	ada := mustCreateUser(t, db, "Ada", "ada@example.com")
	grace := mustCreateUser(t, db, "Grace", "grace@example.com")
	conv, err := db.GetOrCreateConversation(ctx, ada.ID, grace.ID)
	if err != nil {
		t.Fatalf("GetOrCreateConversation failed: %v", err)
	}

	contents := []string{"one", "two", "three", "four", "five"}
	for _, c := range contents {
		if _, err := db.CreateMessage(ctx, NewMessage{
			ConversationID: conv.ID, SenderID: ada.ID, ReceiverID: grace.ID, Content: c,
		}); err != nil {
			t.Fatalf("CreateMessage failed: %v", err)
		}
		time.Sleep(2 * time.Millisecond) // distinct timestamps for cursoring
	}

	all, err := db.ListMessages(ctx, conv.ID, ListMessagesOptions{})
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("Expected 5 messages, got %d", len(all))
	}
	for i, c := range contents {
		if all[i].Content != c {
			t.Errorf("Expected chronological order, got %q at index %d", all[i].Content, i)
		}
	}
	if all[0].Sender == nil || all[0].Sender.Name != "Ada" {
		t.Error("Expected sender to be hydrated")
	}

	// Newest page of 2
	page, err := db.ListMessages(ctx, conv.ID, ListMessagesOptions{Limit: 2})
	if err != nil {
		t.Fatalf("ListMessages with limit failed: %v", err)
	}
	if len(page) != 2 || page[0].Content != "four" || page[1].Content != "five" {
		t.Errorf("Expected newest page [four five], got %v", pageContents(page))
	}

	// Cursor before the oldest of that page
	older, err := db.ListMessages(ctx, conv.ID, ListMessagesOptions{Limit: 2, Before: page[0].CreatedAt})
	if err != nil {
		t.Fatalf("ListMessages with cursor failed: %v", err)
	}
	if len(older) != 2 || older[0].Content != "two" || older[1].Content != "three" {
		t.Errorf("Expected older page [two three], got %v", pageContents(older))
	}
}

func TestListMessagesMarkingRead(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	ada := mustCreateUser(t, db, "Ada", "ada@example.com")
	grace := mustCreateUser(t, db, "Grace", "grace@example.com")
	conv, err := db.GetOrCreateConversation(ctx, ada.ID, grace.ID)
	if err != nil {
		t.Fatalf("GetOrCreateConversation failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := db.CreateMessage(ctx, NewMessage{
			ConversationID: conv.ID, SenderID: ada.ID, ReceiverID: grace.ID, Content: "hi",
		}); err != nil {
			t.Fatalf("CreateMessage failed: %v", err)
		}
	}

	// Receiver opening the conversation marks everything read
	msgs, marked, err := db.ListMessagesMarkingRead(ctx, conv.ID, grace.ID, ListMessagesOptions{})
	if err != nil {
		t.Fatalf("ListMessagesMarkingRead failed: %v", err)
	}
	if marked != 2 {
		t.Errorf("Expected 2 messages marked, got %d", marked)
	}
	for _, m := range msgs {
		if !m.Read {
			t.Errorf("Expected message %s to be returned as read", m.ID)
		}
	}

	// Re-fetch is idempotent
	_, marked, err = db.ListMessagesMarkingRead(ctx, conv.ID, grace.ID, ListMessagesOptions{})
	if err != nil {
		t.Fatalf("Second ListMessagesMarkingRead failed: %v", err)
	}
	if marked != 0 {
		t.Errorf("Expected repeat fetch to mark 0, got %d", marked)
	}

	// Sender fetching must not mark their own sent messages
	unread, err := db.UnreadCount(ctx, conv.ID, grace.ID)
	if err != nil {
		t.Fatalf("UnreadCount failed: %v", err)
	}
	if unread != 0 {
		t.Errorf("Expected 0 unread after receiver fetch, got %d", unread)
	}
}

func pageContents(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func TestListConversationsOrdering(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	ada := mustCreateUser(t, db, "Ada", "ada@example.com")
	grace := mustCreateUser(t, db, "Grace", "grace@example.com")
	alan := mustCreateUser(t, db, "Alan", "alan@example.com")

	withGrace, err := db.GetOrCreateConversation(ctx, ada.ID, grace.ID)
	if err != nil {
		t.Fatalf("GetOrCreateConversation failed: %v", err)
	}
	withAlan, err := db.GetOrCreateConversation(ctx, ada.ID, alan.ID)
	if err != nil {
		t.Fatalf("GetOrCreateConversation failed: %v", err)
	}

	// Message in the older conversation moves it to the top
	time.Sleep(2 * time.Millisecond)
	if _, err := db.CreateMessage(ctx, NewMessage{
		ConversationID: withGrace.ID, SenderID: grace.ID, ReceiverID: ada.ID, Content: "ping",
	}); err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}

	convs, err := db.ListConversations(ctx, ada.ID)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("Expected 2 conversations, got %d", len(convs))
	}
	if convs[0].ID != withGrace.ID {
		t.Error("Expected conversation with newest message first")
	}
	if convs[1].ID != withAlan.ID {
		t.Error("Expected idle conversation second")
	}
	if convs[0].UnreadCount != 1 {
		t.Errorf("Expected unread count 1 on active conversation, got %d", convs[0].UnreadCount)
	}

	// Outsider sees nothing
	other, err := db.ListConversations(ctx, grace.ID)
	if err != nil {
		t.Fatalf("ListConversations for grace failed: %v", err)
	}
	if len(other) != 1 {
		t.Errorf("Expected grace to see 1 conversation, got %d", len(other))
	}
}

func TestFileMessageRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	ada := mustCreateUser(t, db, "Ada", "ada@example.com")
	grace := mustCreateUser(t, db, "Grace", "grace@example.com")
	conv, err := db.GetOrCreateConversation(ctx, ada.ID, grace.ID)
	if err != nil {
		t.Fatalf("GetOrCreateConversation failed: %v", err)
	}

	url := "/uploads/files/report.pdf"
	name := "report.pdf"
	size := int64(123456)
	mime := "application/pdf"

	created, err := db.CreateMessage(ctx, NewMessage{
		ConversationID: conv.ID,
		SenderID:       ada.ID,
		ReceiverID:     grace.ID,
		Content:        "sent a file",
		Type:           models.MessageTypeFile,
		FileURL:        &url,
		FileName:       &name,
		FileSize:       &size,
		FileMimeType:   &mime,
	})
	if err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}

	got, err := db.GetMessage(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}
	if got.Type != models.MessageTypeFile {
		t.Errorf("Expected file type, got %q", got.Type)
	}
	if got.FileURL == nil || *got.FileURL != url {
		t.Errorf("Expected file URL %q, got %v", url, got.FileURL)
	}
	if got.FileSize == nil || *got.FileSize != size {
		t.Errorf("Expected file size %d, got %v", size, got.FileSize)
	}
}
