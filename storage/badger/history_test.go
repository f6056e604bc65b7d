package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

func TestHistoryAppendAndRead(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() {
		repo.Close()
		backend.Close()
	}()

	ctx := context.Background()

	first := core.NewMemoryRecord(core.RoleUser, "My favorite hobby is photography")
	second := core.NewMemoryRecord(core.RoleAssistant, "That's a great hobby!")

	if err := repo.AppendMessages(ctx, "alice", first, second); err != nil {
		t.Fatalf("Failed to append messages: %v", err)
	}

	third := core.NewMemoryRecord(core.RoleUser, "I live in Boston")
	if err := repo.AppendMessages(ctx, "alice", third); err != nil {
		t.Fatalf("Failed to append third message: %v", err)
	}

	records, err := repo.UserMessages(ctx, "alice")
	if err != nil {
		t.Fatalf("Failed to read messages: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}

	want := []string{
		"My favorite hobby is photography",
		"That's a great hobby!",
		"I live in Boston",
	}
	for i, text := range want {
		if records[i].Text != text {
			t.Fatalf("Record %d: expected %q, got %q", i, text, records[i].Text)
		}
	}
	if records[0].Role != core.RoleUser || records[1].Role != core.RoleAssistant {
		t.Fatal("Roles not preserved through storage")
	}
}

func TestHistoryUnknownUser(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() {
		repo.Close()
		backend.Close()
	}()

	_, err = repo.UserMessages(context.Background(), "nobody")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestHistoryEnsureUser(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() {
		repo.Close()
		backend.Close()
	}()

	ctx := context.Background()

	if err := repo.EnsureUser(ctx, "bob"); err != nil {
		t.Fatalf("Failed to ensure user: %v", err)
	}

	records, err := repo.UserMessages(ctx, "bob")
	if err != nil {
		t.Fatalf("Expected empty log for ensured user, got error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("Expected 0 records, got %d", len(records))
	}

	// Ensuring twice is a no-op
	if err := repo.EnsureUser(ctx, "bob"); err != nil {
		t.Fatalf("Second ensure failed: %v", err)
	}
}

func TestHistoryEmptyUsername(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() {
		repo.Close()
		backend.Close()
	}()

	ctx := context.Background()

	if err := repo.EnsureUser(ctx, ""); !errors.Is(err, core.ErrEmptyUsername) {
		t.Fatalf("Expected ErrEmptyUsername, got %v", err)
	}
	if err := repo.AppendMessages(ctx, "", core.NewMemoryRecord(core.RoleUser, "x")); !errors.Is(err, core.ErrEmptyUsername) {
		t.Fatalf("Expected ErrEmptyUsername, got %v", err)
	}
	if _, err := repo.UserMessages(ctx, ""); !errors.Is(err, core.ErrEmptyUsername) {
		t.Fatalf("Expected ErrEmptyUsername, got %v", err)
	}
}

func TestHistoryUserIsolation(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() {
		repo.Close()
		backend.Close()
	}()

	ctx := context.Background()

	// "ab" is a prefix of "abc"; a naive key scheme would let the
	// shorter user's scan pick up the longer user's messages.
	if err := repo.AppendMessages(ctx, "ab", core.NewMemoryRecord(core.RoleUser, "short user")); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	if err := repo.AppendMessages(ctx, "abc", core.NewMemoryRecord(core.RoleUser, "long user")); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}

	records, err := repo.UserMessages(ctx, "ab")
	if err != nil {
		t.Fatalf("Failed to read messages: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record for user ab, got %d", len(records))
	}
	if records[0].Text != "short user" {
		t.Fatalf("Wrong record returned: %q", records[0].Text)
	}
}

func TestHistoryUsernames(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() {
		repo.Close()
		backend.Close()
	}()

	ctx := context.Background()

	usernames, err := repo.Usernames(ctx)
	if err != nil {
		t.Fatalf("Failed to list usernames: %v", err)
	}
	if len(usernames) != 0 {
		t.Fatalf("Expected no usernames, got %v", usernames)
	}

	if err := repo.EnsureUser(ctx, "alice"); err != nil {
		t.Fatalf("Failed to ensure user: %v", err)
	}
	if err := repo.AppendMessages(ctx, "bob", core.NewMemoryRecord(core.RoleUser, "hi")); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}

	usernames, err = repo.Usernames(ctx)
	if err != nil {
		t.Fatalf("Failed to list usernames: %v", err)
	}
	if len(usernames) != 2 {
		t.Fatalf("Expected 2 usernames, got %v", usernames)
	}
	found := map[string]bool{}
	for _, name := range usernames {
		found[name] = true
	}
	if !found["alice"] || !found["bob"] {
		t.Fatalf("Missing usernames in %v", usernames)
	}
}

func TestHistoryRejectsInvalidRecords(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() {
		repo.Close()
		backend.Close()
	}()

	bad := core.NewMemoryRecord(core.RoleUser, "valid text")
	bad.Role = core.Role(42)

	err = repo.AppendMessages(context.Background(), "alice", bad)
	if !errors.Is(err, core.ErrInvalidMemoryRecord) {
		t.Fatalf("Expected ErrInvalidMemoryRecord, got %v", err)
	}
}

func TestHistoryClosedBackend(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	repo.Close()
	backend.Close()

	err = repo.AppendMessages(context.Background(), "alice", core.NewMemoryRecord(core.RoleUser, "hi"))
	if !errors.Is(err, storage.ErrStorageClosed) {
		t.Fatalf("Expected ErrStorageClosed, got %v", err)
	}
}
