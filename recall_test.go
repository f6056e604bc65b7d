package recall

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceDefaults(t *testing.T) {
	ctx := context.Background()
	service, err := NewService(ctx)
	require.NoError(t, err)
	defer service.Close()

	// Without configuration the service runs on synthetic embeddings
	assert.True(t, service.Embedder().Degraded())

	record, err := service.AddMessage(ctx, "alice", "hello there", core.RoleUser)
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.True(t, service.UserExists("alice"))
	assert.False(t, service.UserExists("bob"))

	// Degraded mode ignores the query and serves recency
	text, err := service.Context(ctx, "alice", "anything", 5)
	require.NoError(t, err)
	assert.Equal(t, "User: hello there\n", text)
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	service, err := NewService(ctx, WithEmbedder(mock.NewMockEmbedder()))
	require.NoError(t, err)
	defer service.Close()

	require.NoError(t, service.InitializeUser(ctx, "alice"))
	assert.True(t, service.UserExists("alice"))
	assert.Empty(t, service.AllMessages("alice"))

	_, err = service.AddMessage(ctx, "alice", "My favorite hobby is photography", core.RoleUser)
	require.NoError(t, err)
	_, err = service.AddMessage(ctx, "alice", "Nice!", core.RoleAssistant)
	require.NoError(t, err)

	records := service.AllMessages("alice")
	require.Len(t, records, 2)
	assert.Equal(t, core.RoleUser, records[0].Role)
	assert.Equal(t, core.RoleAssistant, records[1].Role)

	usernames := service.Usernames()
	assert.Equal(t, []string{"alice"}, usernames)
}

func TestServiceSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "memory.snap")

	service, err := NewService(ctx,
		WithEmbedder(mock.NewMockEmbedder()),
		WithSnapshotPath(path))
	require.NoError(t, err)

	_, err = service.AddMessage(ctx, "alice", "My favorite hobby is photography", core.RoleUser)
	require.NoError(t, err)
	_, err = service.AddMessage(ctx, "alice", "I live in Boston", core.RoleUser)
	require.NoError(t, err)

	wantContext, err := service.Context(ctx, "alice", "My favorite hobby is photography", 1)
	require.NoError(t, err)
	require.NotEmpty(t, wantContext)

	require.NoError(t, service.Close())

	// A fresh service with the same deterministic embedder rebuilds
	// the indexes and answers queries identically.
	reopened, err := NewService(ctx,
		WithEmbedder(mock.NewMockEmbedder()),
		WithSnapshotPath(path))
	require.NoError(t, err)
	defer reopened.Close()

	records := reopened.AllMessages("alice")
	require.Len(t, records, 2)
	assert.Equal(t, 0, records[0].IndexPos)
	assert.Equal(t, 1, records[1].IndexPos)

	gotContext, err := reopened.Context(ctx, "alice", "My favorite hobby is photography", 1)
	require.NoError(t, err)
	assert.Equal(t, wantContext, gotContext)
}

func TestServiceMissingSnapshotIsEmptyStore(t *testing.T) {
	ctx := context.Background()
	service, err := NewService(ctx,
		WithEmbedder(mock.NewMockEmbedder()),
		WithSnapshotPath(filepath.Join(t.TempDir(), "never-written.snap")))
	require.NoError(t, err)
	defer service.Close()

	assert.Empty(t, service.Usernames())
}

func TestServiceCorruptSnapshotStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.snap")
	corrupt := []byte("not a snapshot")
	require.NoError(t, os.WriteFile(path, corrupt, 0644))

	ctx := context.Background()
	service, err := NewService(ctx,
		WithEmbedder(mock.NewMockEmbedder()),
		WithSnapshotPath(path))
	require.NoError(t, err)
	assert.Empty(t, service.Usernames())

	// Close must not clobber the corrupt file with an empty snapshot.
	require.NoError(t, service.Close())
	kept, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, corrupt, kept)
}

func TestServiceCorruptSnapshotReplacedByExplicitSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.snap")
	require.NoError(t, os.WriteFile(path, []byte("not a snapshot"), 0644))

	ctx := context.Background()
	service, err := NewService(ctx,
		WithEmbedder(mock.NewMockEmbedder()),
		WithSnapshotPath(path))
	require.NoError(t, err)

	_, err = service.AddMessage(ctx, "alice", "fresh start", core.RoleUser)
	require.NoError(t, err)
	require.NoError(t, service.Save())
	require.NoError(t, service.Close())

	reopened, err := NewService(ctx,
		WithEmbedder(mock.NewMockEmbedder()),
		WithSnapshotPath(path))
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, []string{"alice"}, reopened.Usernames())
}

func TestServiceArchiveRestore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "archive")

	service, err := NewService(ctx,
		WithEmbedder(mock.NewMockEmbedder()),
		WithArchivePath(dir))
	require.NoError(t, err)

	_, err = service.AddMessage(ctx, "alice", "remember this", core.RoleUser)
	require.NoError(t, err)
	require.NoError(t, service.Close())

	reopened, err := NewService(ctx,
		WithEmbedder(mock.NewMockEmbedder()),
		WithArchivePath(dir))
	require.NoError(t, err)
	defer reopened.Close()

	records := reopened.AllMessages("alice")
	require.Len(t, records, 1)
	assert.Equal(t, "remember this", records[0].Text)
	assert.Equal(t, 0, records[0].IndexPos)
}

func TestServiceWithChromemBackend(t *testing.T) {
	ctx := context.Background()
	service, err := NewService(ctx,
		WithEmbedder(mock.NewMockEmbedder()),
		WithChromemBackend(),
		WithRetryPolicy(retry.Policy{Retries: 0, Delay: time.Millisecond, Backoff: 1.0}))
	require.NoError(t, err)
	defer service.Close()

	_, err = service.AddMessage(ctx, "alice", "My favorite hobby is photography", core.RoleUser)
	require.NoError(t, err)

	text, err := service.Context(ctx, "alice", "My favorite hobby is photography", 1)
	require.NoError(t, err)
	assert.Equal(t, "User: My favorite hobby is photography\n", text)

	// Remote deletion leaves the local log intact
	require.NoError(t, service.DeleteRemoteMemories(ctx, "alice"))
	assert.Len(t, service.AllMessages("alice"), 1)
}

func TestServiceChromemDegradedFallsBackToRecent(t *testing.T) {
	ctx := context.Background()
	service, err := NewService(ctx, WithChromemBackend())
	require.NoError(t, err)
	defer service.Close()

	require.True(t, service.Embedder().Degraded())

	for i := 0; i < 10; i++ {
		_, err := service.AddMessage(ctx, "alice", fmt.Sprintf("message number %d", i), core.RoleUser)
		require.NoError(t, err)
	}

	// Synthetic vectors carry no meaning, so any query must yield the
	// most recent message rather than a remote similarity ranking.
	for i := 0; i < 20; i++ {
		text, err := service.Context(ctx, "alice", fmt.Sprintf("query variant %d", i), 1)
		require.NoError(t, err)
		assert.Equal(t, "User: message number 9\n", text)
	}
}
