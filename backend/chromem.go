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


package backend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
)

// Chromem stores memories in an embedded chromem-go vector database.
// Each user gets their own collection, and every document additionally
// carries a username metadata tag, so a query for one user can never
// surface another user's memories.
type Chromem struct {
	db          *chromem.DB
	embedder    ai.Embedder
	collections map[string]*chromem.Collection
	mu          sync.RWMutex
	logger      *slog.Logger
}

var (
	_ Backend     = (*Chromem)(nil)
	_ UserDeleter = (*Chromem)(nil)
)

// NewChromem creates a chromem-backed memory backend.
func NewChromem(embedder ai.Embedder) (*Chromem, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	return &Chromem{
		db:          chromem.NewDB(),
		embedder:    embedder,
		collections: make(map[string]*chromem.Collection),
		logger:      slog.Default().With("component", "chromem"),
	}, nil
}

func (c *Chromem) Name() string {
	return "chromem"
}

// AddMessage embeds text and stores it in the user's collection. An
// embedding failure degrades to a zero vector so the text is still
// retained; such documents are effectively invisible to similarity
// queries but survive for later re-indexing.
func (c *Chromem) AddMessage(ctx context.Context, username, text string, role core.Role) (*core.MemoryRecord, error) {
	if username == "" {
		return nil, core.ErrEmptyUsername
	}
	if text == "" {
		return nil, core.ErrEmptyText
	}
	if err := core.ValidateRole(role); err != nil {
		return nil, err
	}

	col, err := c.getOrCreateCollection(username)
	if err != nil {
		return nil, err
	}

	record := core.NewMemoryRecord(role, text)

	vector, err := c.embedder.EmbedText(ctx, text)
	if err != nil {
		c.logger.Warn("Embedding failed, storing zero vector",
			"user", username, "error", err)
		vector = ai.ZeroVector(c.embedder.Dimensions())
	}

	doc := chromem.Document{
		ID:        record.Id,
		Content:   text,
		Embedding: vector,
		Metadata: map[string]string{
			"username":  username,
			"role":      roleTag(role),
			"timestamp": strconv.FormatInt(record.Timestamp.UnixMicro(), 10),
		},
	}

	if err := col.AddDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("add document: %w", err)
	}

	return record, nil
}

// Context performs a similarity query over the user's collection and
// assembles the matches into a chronological transcript. An empty
// query or an empty collection yields an empty string.
func (c *Chromem) Context(ctx context.Context, username, query string, k int) (string, error) {
	if username == "" {
		return "", core.ErrEmptyUsername
	}
	if query == "" || k <= 0 {
		return "", nil
	}

	c.mu.RLock()
	col := c.collections[username]
	c.mu.RUnlock()
	if col == nil {
		return "", nil
	}

	// chromem rejects nResults larger than the collection
	n := col.Count()
	if n == 0 {
		return "", nil
	}
	if k < n {
		n = k
	}

	queryVector, err := c.embedder.EmbedText(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embedding query: %w", err)
	}

	where := map[string]string{"username": username}
	results, err := col.QueryEmbedding(ctx, queryVector, n, where, nil)
	if err != nil {
		return "", fmt.Errorf("chromem query: %w", err)
	}

	type entry struct {
		at   int64
		role core.Role
		text string
	}
	entries := make([]entry, 0, len(results))
	for _, result := range results {
		at, err := strconv.ParseInt(result.Metadata["timestamp"], 10, 64)
		if err != nil {
			c.logger.Warn("Skipping result with bad timestamp", "id", result.ID)
			continue
		}
		entries = append(entries, entry{
			at:   at,
			role: parseRoleTag(result.Metadata["role"]),
			text: result.Content,
		})
	}

	// Similarity rank in, chronological transcript out
	sort.Slice(entries, func(i, j int) bool { return entries[i].at < entries[j].at })

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.role.Speaker())
		b.WriteString(": ")
		b.WriteString(e.text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// DeleteUser drops the user's entire collection. Unknown users are a
// no-op.
func (c *Chromem) DeleteUser(ctx context.Context, username string) error {
	if username == "" {
		return core.ErrEmptyUsername
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.collections[username]; !ok {
		return nil
	}
	if err := c.db.DeleteCollection(collectionName(username)); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	delete(c.collections, username)

	c.logger.Info("Deleted user memories", "user", username)
	return nil
}

// getOrCreateCollection returns the user's collection, creating it on
// first reference.
func (c *Chromem) getOrCreateCollection(username string) (*chromem.Collection, error) {
	c.mu.RLock()
	col, ok := c.collections[username]
	c.mu.RUnlock()
	if ok {
		return col, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if col, ok := c.collections[username]; ok {
		return col, nil
	}

	col, err := c.db.CreateCollection(collectionName(username), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	c.collections[username] = col
	return col, nil
}

func collectionName(username string) string {
	return "user_" + username
}

func roleTag(role core.Role) string {
	if role == core.RoleUser {
		return "user"
	}
	return "assistant"
}

func parseRoleTag(tag string) core.Role {
	if tag == "user" {
		return core.RoleUser
	}
	return core.RoleAssistant
}
