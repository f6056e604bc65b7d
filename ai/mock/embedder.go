package mock

import (
	"context"
	"sync/atomic"

	"github.com/poiesic/recall/ai"
)

// MockEmbedder is a test double for ai.Embedder.
// It allows custom behavior injection via function fields.
type MockEmbedder struct {
	// EmbedTextFunc is called by EmbedText if set.
	// If nil, uses default deterministic behavior.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc is called by EmbedTexts if set.
	// If nil, uses default deterministic behavior.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	// DegradedFlag is returned by Degraded. Defaults to false so tests
	// exercise the similarity path unless they opt out.
	DegradedFlag bool

	dim       int
	fallback  *ai.SyntheticEmbedder
	callCount atomic.Int64
}

var _ ai.Embedder = (*MockEmbedder)(nil)

// NewMockEmbedder creates a mock embedder with default deterministic behavior
// at the default dimensionality.
// Note: Returns concrete type to allow test assertions.
func NewMockEmbedder() *MockEmbedder {
	return NewMockEmbedderWithDimensions(ai.DefaultDimensions)
}

// NewMockEmbedderWithDimensions creates a mock embedder producing vectors of
// the given length.
func NewMockEmbedderWithDimensions(dim int) *MockEmbedder {
	return &MockEmbedder{
		dim:      dim,
		fallback: ai.NewSyntheticEmbedder(dim),
	}
}

// EmbedText generates a deterministic embedding based on a text hash.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.callCount.Add(1)

	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}

	return m.fallback.EmbedText(ctx, text)
}

// EmbedTexts generates deterministic embeddings for multiple texts.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.callCount.Add(1)

	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}

	return m.fallback.EmbedTexts(ctx, texts)
}

// Dimensions returns the configured vector length.
func (m *MockEmbedder) Dimensions() int {
	return m.dim
}

// Degraded returns the configured capability flag.
func (m *MockEmbedder) Degraded() bool {
	return m.DegradedFlag
}

// CallCount returns the number of times any embed method was called.
func (m *MockEmbedder) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and injected behavior.
func (m *MockEmbedder) Reset() {
	m.callCount.Store(0)
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
	m.DegradedFlag = false
}
