// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package recall is a per-user semantic memory store for conversational
// agents. It keeps an append-only conversation log per user, indexes
// message embeddings in a flat vector index, and assembles chronological
// context transcripts by similarity or recency. See the package
// documentation of memory, backend, and storage for the moving parts.
package recall

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/openai"
	"github.com/poiesic/recall/backend"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/memory"
	"github.com/poiesic/recall/ratelimit"
	"github.com/poiesic/recall/retry"
	"github.com/poiesic/recall/storage"
	badgerstore "github.com/poiesic/recall/storage/badger"
	"github.com/poiesic/recall/storage/snapshot"
)

// Service aggregates the embedder, the in-memory store, the optional
// durable archive, and the backend chain behind one handle with an
// explicit load/save lifecycle.
type Service struct {
	embedder     ai.Embedder
	store        *memory.Store
	chain        *backend.Chain
	history      storage.HistoryRepository
	archive      *badgerstore.Backend
	snapshotPath string
	snapshotHeld bool
	logger       *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	aiConfig     *ai.Config
	embedder     ai.Embedder
	snapshotPath string
	archivePath  string
	archiveInMem bool
	useArchive   bool
	remote       backend.Backend
	useChromem   bool
	rateInterval time.Duration
	retryPolicy  *retry.Policy
	poolSize     int
	logger       *slog.Logger
}

// WithAIConfig points the service at an OpenAI-compatible embedding
// endpoint. If the embedder cannot be constructed the service degrades
// to deterministic synthetic embeddings instead of failing.
func WithAIConfig(config *ai.Config) ServiceOption {
	return func(o *serviceOptions) {
		o.aiConfig = config
	}
}

// WithEmbedder injects a pre-built embedder, bypassing configuration.
func WithEmbedder(embedder ai.Embedder) ServiceOption {
	return func(o *serviceOptions) {
		o.embedder = embedder
	}
}

// WithSnapshotPath enables whole-store snapshot persistence. The file
// is loaded during construction (a missing file yields an empty store)
// and written on Close and Save.
func WithSnapshotPath(path string) ServiceOption {
	return func(o *serviceOptions) {
		o.snapshotPath = path
	}
}

// WithArchivePath mirrors every append into a BadgerDB archive at the
// given directory and reloads it at startup when no snapshot is
// configured.
func WithArchivePath(path string) ServiceOption {
	return func(o *serviceOptions) {
		o.archivePath = path
		o.useArchive = true
	}
}

// WithInMemoryArchive uses a throwaway in-memory archive. Test hook.
func WithInMemoryArchive() ServiceOption {
	return func(o *serviceOptions) {
		o.archiveInMem = true
		o.useArchive = true
	}
}

// WithRemoteBackend mirrors writes to and prefers retrieval from the
// given secondary backend.
func WithRemoteBackend(remote backend.Backend) ServiceOption {
	return func(o *serviceOptions) {
		o.remote = remote
	}
}

// WithChromemBackend enables a chromem-go secondary backend sharing
// the service's embedder.
func WithChromemBackend() ServiceOption {
	return func(o *serviceOptions) {
		o.useChromem = true
	}
}

// WithRateLimit sheds remote-backend calls for users operating faster
// than the interval.
func WithRateLimit(interval time.Duration) ServiceOption {
	return func(o *serviceOptions) {
		o.rateInterval = interval
	}
}

// WithRetryPolicy overrides the retry schedule for remote calls.
func WithRetryPolicy(policy retry.Policy) ServiceOption {
	return func(o *serviceOptions) {
		o.retryPolicy = &policy
	}
}

// WithPoolSize sets the embedding worker pool size.
func WithPoolSize(size int) ServiceOption {
	return func(o *serviceOptions) {
		o.poolSize = size
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// NewService builds the full stack and loads persisted state. A corrupt
// snapshot is a construction error; a missing one is not.
func NewService(ctx context.Context, opts ...ServiceOption) (*Service, error) {
	options := &serviceOptions{}
	for _, opt := range opts {
		opt(options)
	}

	logger := options.logger
	if logger == nil {
		logger = slog.Default()
	}

	embedder := buildEmbedder(options, logger)

	var archive *badgerstore.Backend
	var history storage.HistoryRepository
	storeOpts := []memory.Option{memory.WithLogger(logger)}
	if options.poolSize > 0 {
		storeOpts = append(storeOpts, memory.WithPoolSize(options.poolSize))
	}
	if options.useArchive {
		var err error
		archive, err = badgerstore.OpenBackend(options.archivePath, options.archiveInMem)
		if err != nil {
			return nil, fmt.Errorf("opening archive: %w", err)
		}
		history, err = badgerstore.NewHistoryRepository(archive)
		if err != nil {
			archive.Close()
			return nil, err
		}
		storeOpts = append(storeOpts, memory.WithHistory(history))
	}

	store, err := memory.NewStore(embedder, storeOpts...)
	if err != nil {
		if archive != nil {
			archive.Close()
		}
		return nil, err
	}

	chainOpts := []backend.ChainOption{
		backend.WithChainLogger(logger),
		backend.WithChainEmbedder(embedder),
	}
	if options.useChromem {
		remote, err := backend.NewChromem(embedder)
		if err != nil {
			store.Release()
			if archive != nil {
				archive.Close()
			}
			return nil, err
		}
		chainOpts = append(chainOpts, backend.WithRemote(remote))
	} else if options.remote != nil {
		chainOpts = append(chainOpts, backend.WithRemote(options.remote))
	}
	if options.retryPolicy != nil {
		chainOpts = append(chainOpts, backend.WithRetryPolicy(*options.retryPolicy))
	}
	if options.rateInterval > 0 {
		chainOpts = append(chainOpts, backend.WithLimiter(ratelimit.NewLimiter(options.rateInterval)))
	}

	chain, err := backend.NewChain(backend.NewLocal(store), chainOpts...)
	if err != nil {
		store.Release()
		if archive != nil {
			archive.Close()
		}
		return nil, err
	}

	s := &Service{
		embedder:     embedder,
		store:        store,
		chain:        chain,
		history:      history,
		archive:      archive,
		snapshotPath: options.snapshotPath,
		logger:       logger,
	}

	if err := s.restore(ctx); err != nil {
		s.shutdown()
		return nil, err
	}

	return s, nil
}

// buildEmbedder picks the configured embedder, degrading to synthetic
// vectors when the real one cannot be constructed.
func buildEmbedder(options *serviceOptions, logger *slog.Logger) ai.Embedder {
	if options.embedder != nil {
		return options.embedder
	}

	if options.aiConfig != nil {
		embedder, err := openai.NewEmbedder(options.aiConfig)
		if err == nil {
			return embedder
		}
		logger.Warn("Embedding provider unavailable, degrading to synthetic embeddings",
			"error", err)
		return ai.NewSyntheticEmbedder(options.aiConfig.Dimensions)
	}

	return ai.NewSyntheticEmbedder(ai.DefaultDimensions)
}

// restore loads persisted state: the snapshot when configured, else the
// archive. Indexes are rebuilt by re-embedding in log order.
func (s *Service) restore(ctx context.Context) error {
	if s.snapshotPath != "" {
		users, err := snapshot.Load(s.snapshotPath)
		if err != nil {
			if errors.Is(err, storage.ErrCorruptSnapshot) {
				// Start empty but keep the corrupt file for inspection:
				// auto-save on Close is held off until an explicit Save
				// replaces it.
				s.logger.Error("Snapshot is corrupt, starting with empty memory",
					"path", s.snapshotPath, "error", err)
				s.snapshotHeld = true
				return nil
			}
			return fmt.Errorf("loading snapshot: %w", err)
		}
		if len(users) > 0 {
			return s.store.Restore(ctx, users)
		}
		return nil
	}

	if s.history == nil {
		return nil
	}

	usernames, err := s.history.Usernames(ctx)
	if err != nil {
		return fmt.Errorf("listing archived users: %w", err)
	}
	if len(usernames) == 0 {
		return nil
	}

	users := make(map[string][]*core.MemoryRecord, len(usernames))
	for _, username := range usernames {
		records, err := s.history.UserMessages(ctx, username)
		if err != nil {
			return fmt.Errorf("reading archive for %s: %w", username, err)
		}
		users[username] = records
	}
	return s.store.Restore(ctx, users)
}

// InitializeUser creates an empty memory for the user. Idempotent.
func (s *Service) InitializeUser(ctx context.Context, username string) error {
	return s.store.InitializeUser(ctx, username)
}

// UserExists reports whether the user has a memory, even an empty one.
func (s *Service) UserExists(username string) bool {
	return s.store.UserExists(username)
}

// AddMessage stores one message for the user across the backend chain.
func (s *Service) AddMessage(ctx context.Context, username, text string, role core.Role) (*core.MemoryRecord, error) {
	return s.chain.AddMessage(ctx, username, text, role)
}

// Context assembles a chronological transcript of the user's relevant
// memories.
func (s *Service) Context(ctx context.Context, username, query string, k int) (string, error) {
	return s.chain.Context(ctx, username, query, k)
}

// AllMessages returns the user's full conversation log.
func (s *Service) AllMessages(username string) []*core.MemoryRecord {
	return s.store.AllMessages(username)
}

// Usernames returns all known usernames.
func (s *Service) Usernames() []string {
	return s.store.Usernames()
}

// DeleteRemoteMemories drops the user's memories on the secondary
// backend. The local log is untouched.
func (s *Service) DeleteRemoteMemories(ctx context.Context, username string) error {
	return s.chain.DeleteUser(ctx, username)
}

// Embedder exposes the embedder so callers can check for degraded mode.
func (s *Service) Embedder() ai.Embedder {
	return s.embedder
}

// Save writes the whole store to the configured snapshot path. No-op
// when snapshotting is not configured.
func (s *Service) Save() error {
	if s.snapshotPath == "" {
		return nil
	}
	users := s.store.ExportAll()
	if err := snapshot.Save(s.snapshotPath, users); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	s.snapshotHeld = false
	s.logger.Info("Saved snapshot", "path", s.snapshotPath, "users", len(users))
	return nil
}

// Close saves the snapshot and releases every resource. A corrupt
// snapshot found at startup is left untouched unless Save was called.
func (s *Service) Close() error {
	var saveErr error
	if s.snapshotHeld {
		s.logger.Warn("Skipping snapshot save, corrupt file left in place",
			"path", s.snapshotPath)
	} else {
		saveErr = s.Save()
	}
	s.shutdown()
	return saveErr
}

func (s *Service) shutdown() {
	s.store.Release()
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			s.logger.Error("error closing archive repository", "err", err)
		}
	}
	if s.archive != nil {
		if err := s.archive.Close(); err != nil {
			s.logger.Error("error closing archive backend", "err", err)
		}
	}
}
