package memory

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/index"
	"github.com/poiesic/recall/storage"
)

// DefaultContextSize is the number of records selected for a context
// transcript when the caller does not specify one.
const DefaultContextSize = 5

// userMemory pairs one user's conversation log with their vector index.
// The mutex serializes appends and snapshots for this user only.
type userMemory struct {
	mu      sync.Mutex
	records []*core.MemoryRecord
	index   *index.Flat
}

// Store maps usernames to their conversation logs and vector indexes.
// Users are created lazily and never implicitly deleted.
type Store struct {
	mu       sync.RWMutex
	users    map[string]*userMemory
	embedder ai.Embedder
	pool     *ants.Pool
	history  storage.HistoryRepository
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store) error

// WithPoolSize sets the embedding worker pool size.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(s *Store) error {
		if size < 1 {
			size = 1
		}

		if s.pool != nil {
			s.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		s.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithHistory mirrors every append into a durable archive. The archive
// is written after the in-memory append succeeds; an archive failure
// surfaces to the caller but the in-memory state is already updated.
func WithHistory(repo storage.HistoryRepository) Option {
	return func(s *Store) error {
		s.history = repo
		return nil
	}
}

// NewStore creates a Store backed by the given embedder.
func NewStore(embedder ai.Embedder, opts ...Option) (*Store, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	s := &Store{
		users:    make(map[string]*userMemory),
		embedder: embedder,
		pool:     pool,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(s); optErr != nil {
			s.Release()
			return nil, optErr
		}
	}

	return s, nil
}

// Release shuts down the embedding worker pool.
func (s *Store) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}

// Dimensions returns the embedding dimension all indexes share.
func (s *Store) Dimensions() int {
	return s.embedder.Dimensions()
}

// InitializeUser creates an empty log and index for a user if absent.
// Idempotent.
func (s *Store) InitializeUser(ctx context.Context, username string) error {
	if username == "" {
		return core.ErrEmptyUsername
	}

	s.getOrCreateUser(username)

	if s.history != nil {
		if err := s.history.EnsureUser(ctx, username); err != nil {
			return fmt.Errorf("archiving user: %w", err)
		}
	}
	return nil
}

// UserExists reports whether a log exists for the username, even an
// empty one.
func (s *Store) UserExists(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[username]
	return ok
}

// Usernames returns all known usernames in unspecified order.
func (s *Store) Usernames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usernames := make([]string, 0, len(s.users))
	for username := range s.users {
		usernames = append(usernames, username)
	}
	return usernames
}

// AddMessage embeds text, appends a record to the user's log, and
// indexes the vector. The user is auto-initialized if unknown. An
// embedding failure is tolerated: the record is still appended, just
// without an index position.
func (s *Store) AddMessage(ctx context.Context, username, text string, role core.Role) (*core.MemoryRecord, error) {
	if username == "" {
		return nil, core.ErrEmptyUsername
	}
	if text == "" {
		return nil, core.ErrEmptyText
	}
	if err := core.ValidateRole(role); err != nil {
		return nil, err
	}

	record := core.NewMemoryRecord(role, text)

	vector, embedErr := s.embedText(ctx, text)
	if embedErr != nil {
		s.logger.Warn("Embedding failed, storing message unindexed",
			"user", username, "error", embedErr)
	}

	user := s.getOrCreateUser(username)
	user.mu.Lock()
	if embedErr == nil {
		record.IndexPos = user.index.Add(vector)
	}
	user.records = append(user.records, record)
	user.mu.Unlock()

	if s.history != nil {
		if err := s.history.AppendMessages(ctx, username, record); err != nil {
			return record, fmt.Errorf("archiving message: %w", err)
		}
	}

	return record, nil
}

// ContextForUser assembles a plain-text transcript for a user. When a
// query is given and the embedder is not degraded, records are selected
// by similarity search; otherwise the k most recent records are used.
// Selected records are always emitted in log order so the transcript
// reads chronologically. Unknown users yield an empty string.
func (s *Store) ContextForUser(ctx context.Context, username, query string, k int) (string, error) {
	if username == "" {
		return "", core.ErrEmptyUsername
	}
	if k <= 0 {
		k = DefaultContextSize
	}

	s.mu.RLock()
	user := s.users[username]
	s.mu.RUnlock()
	if user == nil {
		return "", nil
	}

	var queryVector []float32
	if query != "" && !s.embedder.Degraded() {
		vector, err := s.embedText(ctx, query)
		if err != nil {
			s.logger.Warn("Query embedding failed, falling back to recent messages",
				"user", username, "error", err)
		} else {
			queryVector = vector
		}
	}

	user.mu.Lock()
	defer user.mu.Unlock()

	if len(user.records) == 0 {
		return "", nil
	}

	var selected []*core.MemoryRecord
	if queryVector != nil {
		matches := user.index.Search(queryVector, k)
		wanted := make(map[int]bool, len(matches))
		for _, match := range matches {
			wanted[match.Pos] = true
		}
		// Walking the log keeps the selection chronological and skips
		// index positions that no longer resolve to a record.
		for _, record := range user.records {
			if record.Embedded() && wanted[record.IndexPos] {
				selected = append(selected, record)
			}
		}
	}

	if len(selected) == 0 {
		start := len(user.records) - k
		if start < 0 {
			start = 0
		}
		selected = user.records[start:]
	}

	var b strings.Builder
	for _, record := range selected {
		b.WriteString(record.Role.Speaker())
		b.WriteString(": ")
		b.WriteString(record.Text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// AllMessages returns a copy of the user's full log in append order.
// Unknown users yield an empty slice, never an error.
func (s *Store) AllMessages(username string) []*core.MemoryRecord {
	s.mu.RLock()
	user := s.users[username]
	s.mu.RUnlock()
	if user == nil {
		return []*core.MemoryRecord{}
	}

	user.mu.Lock()
	defer user.mu.Unlock()

	records := make([]*core.MemoryRecord, len(user.records))
	copy(records, user.records)
	return records
}

// ExportAll returns a consistent copy of the full username -> log
// mapping, suitable for snapshotting.
func (s *Store) ExportAll() map[string][]*core.MemoryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make(map[string][]*core.MemoryRecord, len(s.users))
	for username, user := range s.users {
		user.mu.Lock()
		records := make([]*core.MemoryRecord, len(user.records))
		copy(records, user.records)
		user.mu.Unlock()
		users[username] = records
	}
	return users
}

// Restore replaces the store's contents with the given mapping,
// rebuilding every user's index by re-embedding each message in log
// order. Records are cloned, so the caller's copies are never touched.
// Records that fail to embed are kept unindexed.
func (s *Store) Restore(ctx context.Context, users map[string][]*core.MemoryRecord) error {
	usernames := make([]string, 0, len(users))
	for username := range users {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)

	rebuilt := make(map[string]*userMemory, len(users))
	for _, username := range usernames {
		user := &userMemory{index: index.NewFlat(s.Dimensions())}
		for _, original := range users[username] {
			record := original.Clone()
			record.IndexPos = core.NoIndexPos
			vector, err := s.embedText(ctx, record.Text)
			if err != nil {
				s.logger.Warn("Re-embedding failed during restore",
					"user", username, "error", err)
			} else {
				record.IndexPos = user.index.Add(vector)
			}
			user.records = append(user.records, record)
		}
		rebuilt[username] = user
	}

	s.mu.Lock()
	s.users = rebuilt
	s.mu.Unlock()

	s.logger.Info("Restored memory store", "users", len(rebuilt))
	return nil
}

// embedText dispatches one embedding call to the worker pool and awaits
// the result.
func (s *Store) embedText(ctx context.Context, text string) ([]float32, error) {
	type embedResult struct {
		vector []float32
		err    error
	}

	results := make(chan embedResult, 1)
	err := s.pool.Submit(func() {
		vector, err := s.embedder.EmbedText(ctx, text)
		results <- embedResult{vector: vector, err: err}
	})
	if err != nil {
		return nil, err
	}

	select {
	case result := <-results:
		return result.vector, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// getOrCreateUser returns the user's memory, creating it on first
// reference. Double-checked so concurrent first references race safely.
func (s *Store) getOrCreateUser(username string) *userMemory {
	s.mu.RLock()
	user, ok := s.users[username]
	s.mu.RUnlock()
	if ok {
		return user
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok = s.users[username]; ok {
		return user
	}

	user = &userMemory{index: index.NewFlat(s.Dimensions())}
	s.users[username] = user
	return user
}
