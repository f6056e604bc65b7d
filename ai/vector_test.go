package ai

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZeroVector(t *testing.T) {
	v := ZeroVector(5)
	assert.Len(t, v, 5)
	for _, val := range v {
		assert.Zero(t, val)
	}
}

func TestNormalizeVector(t *testing.T) {
	t.Run("normalizes to unit length", func(t *testing.T) {
		v := NormalizeVector([]float32{3, 4})
		assert.InDelta(t, 0.6, v[0], 1e-6)
		assert.InDelta(t, 0.8, v[1], 1e-6)
	})

	t.Run("zero vector stays zero", func(t *testing.T) {
		v := NormalizeVector([]float32{0, 0, 0})
		assert.Equal(t, []float32{0, 0, 0}, v)
	})

	t.Run("empty vector", func(t *testing.T) {
		assert.Empty(t, NormalizeVector(nil))
	})

	t.Run("does not mutate input", func(t *testing.T) {
		in := []float32{1, 1}
		NormalizeVector(in)
		assert.Equal(t, []float32{1, 1}, in)
	})

	t.Run("already normalized", func(t *testing.T) {
		in := []float32{1 / float32(math.Sqrt2), 1 / float32(math.Sqrt2)}
		out := NormalizeVector(in)
		assert.InDelta(t, in[0], out[0], 1e-6)
	})
}
