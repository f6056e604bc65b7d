package storage

import (
	"context"

	"github.com/poiesic/recall/core"
)

// HistoryRepository persists per-user, append-only conversation logs.
// Implementations must be thread-safe and preserve append order per user.
type HistoryRepository interface {
	// EnsureUser records that a username exists, creating an empty log
	// if absent. Idempotent.
	EnsureUser(ctx context.Context, username string) error

	// AppendMessages appends records to the user's log, creating the user
	// if absent. Records are stored in argument order after any existing
	// messages.
	AppendMessages(ctx context.Context, username string, records ...*core.MemoryRecord) error

	// UserMessages returns the user's full log in append order.
	// An unknown user yields ErrNotFound.
	UserMessages(ctx context.Context, username string) ([]*core.MemoryRecord, error)

	// Usernames returns every known username, including users with empty logs.
	Usernames(ctx context.Context) ([]string, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
