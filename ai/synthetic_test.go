package ai

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticEmbedder_Deterministic(t *testing.T) {
	e := NewSyntheticEmbedder(384)
	ctx := context.Background()

	first, err := e.EmbedText(ctx, "my favorite hobby is photography")
	require.NoError(t, err)
	second, err := e.EmbedText(ctx, "my favorite hobby is photography")
	require.NoError(t, err)

	assert.Equal(t, first, second, "identical text must yield identical vectors")
}

func TestSyntheticEmbedder_DistinctTexts(t *testing.T) {
	e := NewSyntheticEmbedder(384)
	ctx := context.Background()

	first, err := e.EmbedText(ctx, "I live in Boston")
	require.NoError(t, err)
	second, err := e.EmbedText(ctx, "I live in Berlin")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "distinct text must yield distinct vectors")
}

func TestSyntheticEmbedder_Dimensions(t *testing.T) {
	tests := []struct {
		name string
		dim  int
		want int
	}{
		{name: "default", dim: 0, want: DefaultDimensions},
		{name: "negative falls back to default", dim: -5, want: DefaultDimensions},
		{name: "custom", dim: 16, want: 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewSyntheticEmbedder(tt.dim)
			assert.Equal(t, tt.want, e.Dimensions())

			vector, err := e.EmbedText(context.Background(), "hello")
			require.NoError(t, err)
			assert.Len(t, vector, tt.want)
		})
	}
}

func TestSyntheticEmbedder_Degraded(t *testing.T) {
	assert.True(t, NewSyntheticEmbedder(384).Degraded())
}

func TestSyntheticEmbedder_UnitLength(t *testing.T) {
	e := NewSyntheticEmbedder(64)

	vector, err := e.EmbedText(context.Background(), "normalize me")
	require.NoError(t, err)

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-4)
}

func TestSyntheticEmbedder_Batch(t *testing.T) {
	e := NewSyntheticEmbedder(32)
	ctx := context.Background()

	texts := []string{"one", "two", "three"}
	vectors, err := e.EmbedTexts(ctx, texts)
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	// Batch output must match single-text output per element.
	for i, text := range texts {
		single, err := e.EmbedText(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, vectors[i])
	}
}
