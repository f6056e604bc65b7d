package backend

import (
	"context"
	"testing"

	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func topicEmbedder(topics map[string][]float32) *mock.MockEmbedder {
	embedder := mock.NewMockEmbedderWithDimensions(3)
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if vector, ok := topics[text]; ok {
			return vector, nil
		}
		return []float32{0, 0, 1}, nil
	}
	return embedder
}

func TestChromemAddAndQuery(t *testing.T) {
	embedder := topicEmbedder(map[string][]float32{
		"My favorite hobby is photography": {1, 0, 0},
		"I live in Boston":                 {0, 1, 0},
		"What do I do for fun?":            {0.9, 0.1, 0},
	})

	remote, err := NewChromem(embedder)
	require.NoError(t, err)

	ctx := context.Background()

	record, err := remote.AddMessage(ctx, "alice", "My favorite hobby is photography", core.RoleUser)
	require.NoError(t, err)
	assert.NotEmpty(t, record.Id)

	_, err = remote.AddMessage(ctx, "alice", "I live in Boston", core.RoleUser)
	require.NoError(t, err)

	text, err := remote.Context(ctx, "alice", "What do I do for fun?", 1)
	require.NoError(t, err)
	assert.Equal(t, "User: My favorite hobby is photography\n", text)
}

func TestChromemContextChronological(t *testing.T) {
	embedder := topicEmbedder(map[string][]float32{
		"older message about cameras": {1, 0, 0},
		"newer message about lenses":  {0.9, 0.1, 0},
		"camera gear":                 {0.95, 0.05, 0},
	})

	remote, err := NewChromem(embedder)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = remote.AddMessage(ctx, "alice", "older message about cameras", core.RoleUser)
	require.NoError(t, err)
	_, err = remote.AddMessage(ctx, "alice", "newer message about lenses", core.RoleAssistant)
	require.NoError(t, err)

	text, err := remote.Context(ctx, "alice", "camera gear", 5)
	require.NoError(t, err)
	assert.Equal(t, "User: older message about cameras\nAssistant: newer message about lenses\n", text)
}

func TestChromemUserIsolation(t *testing.T) {
	embedder := topicEmbedder(map[string][]float32{
		"alice secret": {1, 0, 0},
		"bob secret":   {1, 0, 0},
	})

	remote, err := NewChromem(embedder)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = remote.AddMessage(ctx, "alice", "alice secret", core.RoleUser)
	require.NoError(t, err)
	_, err = remote.AddMessage(ctx, "bob", "bob secret", core.RoleUser)
	require.NoError(t, err)

	// Identical embeddings, but bob's memory must never leak into
	// alice's context.
	text, err := remote.Context(ctx, "alice", "alice secret", 10)
	require.NoError(t, err)
	assert.Contains(t, text, "alice secret")
	assert.NotContains(t, text, "bob secret")
}

func TestChromemEmptyCases(t *testing.T) {
	remote, err := NewChromem(mock.NewMockEmbedder())
	require.NoError(t, err)

	ctx := context.Background()

	// Unknown user
	text, err := remote.Context(ctx, "nobody", "anything", 5)
	require.NoError(t, err)
	assert.Equal(t, "", text)

	// Empty query
	_, err = remote.AddMessage(ctx, "alice", "hello", core.RoleUser)
	require.NoError(t, err)
	text, err = remote.Context(ctx, "alice", "", 5)
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestChromemDeleteUser(t *testing.T) {
	remote, err := NewChromem(mock.NewMockEmbedder())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = remote.AddMessage(ctx, "alice", "hello there", core.RoleUser)
	require.NoError(t, err)

	require.NoError(t, remote.DeleteUser(ctx, "alice"))

	text, err := remote.Context(ctx, "alice", "hello there", 5)
	require.NoError(t, err)
	assert.Equal(t, "", text)

	// Deleting an unknown user is a no-op
	require.NoError(t, remote.DeleteUser(ctx, "nobody"))
}

func TestChromemValidation(t *testing.T) {
	remote, err := NewChromem(mock.NewMockEmbedder())
	require.NoError(t, err)

	ctx := context.Background()

	_, err = remote.AddMessage(ctx, "", "hello", core.RoleUser)
	assert.ErrorIs(t, err, core.ErrEmptyUsername)
	_, err = remote.AddMessage(ctx, "alice", "", core.RoleUser)
	assert.ErrorIs(t, err, core.ErrEmptyText)
	_, err = remote.Context(ctx, "", "query", 5)
	assert.ErrorIs(t, err, core.ErrEmptyUsername)
}
