package backend

import (
	"context"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/memory"
)

// Local adapts a memory.Store to the Backend interface.
type Local struct {
	store *memory.Store
}

var _ Backend = (*Local)(nil)

// NewLocal wraps a memory.Store.
func NewLocal(store *memory.Store) *Local {
	return &Local{store: store}
}

func (l *Local) Name() string {
	return "local"
}

func (l *Local) AddMessage(ctx context.Context, username, text string, role core.Role) (*core.MemoryRecord, error) {
	return l.store.AddMessage(ctx, username, text, role)
}

func (l *Local) Context(ctx context.Context, username, query string, k int) (string, error) {
	return l.store.ContextForUser(ctx, username, query, k)
}
