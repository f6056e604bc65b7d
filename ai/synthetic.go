package ai

import (
	"context"
	"encoding/binary"

	"github.com/go-crypt/x/blake2b"
)

// SyntheticEmbedder is the degraded-mode fallback used when no real
// embedding service is available. Vectors are derived from a content hash
// of the text: identical text always yields an identical vector, distinct
// text yields different vectors with high probability. The vectors carry
// no semantic meaning, so Degraded() reports true and callers must not
// rank by similarity.
type SyntheticEmbedder struct {
	dim int
}

var _ Embedder = (*SyntheticEmbedder)(nil)

// NewSyntheticEmbedder creates a synthetic embedder producing vectors of
// the given dimensionality. A dim of 0 or less falls back to DefaultDimensions.
func NewSyntheticEmbedder(dim int) *SyntheticEmbedder {
	if dim < 1 {
		dim = DefaultDimensions
	}
	return &SyntheticEmbedder{dim: dim}
}

// EmbedText generates a deterministic vector from a content hash of text.
func (e *SyntheticEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	return syntheticVector(text, e.dim), nil
}

// EmbedTexts generates deterministic vectors for multiple texts.
func (e *SyntheticEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = syntheticVector(text, e.dim)
	}
	return vectors, nil
}

// Dimensions returns the configured vector length.
func (e *SyntheticEmbedder) Dimensions() int {
	return e.dim
}

// Degraded always reports true for synthetic embeddings.
func (e *SyntheticEmbedder) Degraded() bool {
	return true
}

// syntheticVector derives dim pseudo-random floats from a BLAKE2b hash of
// the text. The hash seeds a linear congruential generator, so the full
// vector is a pure function of the content.
func syntheticVector(text string, dim int) []float32 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	seed := binary.LittleEndian.Uint64(h.Sum(nil))

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*6364136223846793005 + 1442695040888963407 // LCG constants
		vector[i] = float32(seed%1000)/500.0 - 1.0
	}

	return NormalizeVector(vector)
}
