package backend

import (
	"context"
	"errors"

	"github.com/poiesic/recall/core"
)

var (
	// ErrLocalBackendRequired indicates a Chain was built without a local backend.
	ErrLocalBackendRequired = errors.New("local backend is required")
)

// Backend is one destination for a user's memories.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string

	// AddMessage stores one message for a user and returns the created record.
	AddMessage(ctx context.Context, username, text string, role core.Role) (*core.MemoryRecord, error)

	// Context assembles a transcript of relevant memories for a user.
	Context(ctx context.Context, username, query string, k int) (string, error)
}

// UserDeleter is implemented by backends that can drop all of a user's
// memories. The local conversation log never shrinks; deletion only
// applies to secondary backends.
type UserDeleter interface {
	DeleteUser(ctx context.Context, username string) error
}
