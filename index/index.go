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


// Package index provides a flat, append-only nearest-neighbor index over
// fixed-dimension embedding vectors. Positions are sequential and match
// insertion order; the index never shrinks.
package index

import (
	"fmt"
	"slices"
	"sync"
)

// Match is a single nearest-neighbor search hit.
type Match struct {
	Pos      int     // position assigned at Add time
	Distance float32 // squared Euclidean distance to the query
}

// Flat is an exact nearest-neighbor index using squared Euclidean distance.
// Every vector must have the dimensionality fixed at construction; adding a
// mismatched vector is a programming error and panics. Flat is safe for
// concurrent use.
type Flat struct {
	mu      sync.RWMutex
	dim     int
	vectors [][]float32
}

// NewFlat creates an empty index for vectors of the given dimensionality.
func NewFlat(dim int) *Flat {
	if dim < 1 {
		panic(fmt.Sprintf("index: invalid dimensionality %d", dim))
	}
	return &Flat{dim: dim}
}

// Dimensions returns the fixed vector length of the index.
func (f *Flat) Dimensions() int {
	return f.dim
}

// Size returns the number of vectors in the index.
func (f *Flat) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Add appends a vector and returns its position.
// Panics if the vector does not match the index dimensionality.
func (f *Flat) Add(vector []float32) int {
	f.checkDimensions(vector)

	owned := make([]float32, len(vector))
	copy(owned, vector)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors = append(f.vectors, owned)
	return len(f.vectors) - 1
}

// Search returns up to k matches ordered by ascending squared Euclidean
// distance (closest first). k is clamped to the index size; searching an
// empty index returns an empty result.
// Panics if the query does not match the index dimensionality.
func (f *Flat) Search(query []float32, k int) []Match {
	f.checkDimensions(query)

	f.mu.RLock()
	defer f.mu.RUnlock()

	if k > len(f.vectors) {
		k = len(f.vectors)
	}
	if k <= 0 {
		return []Match{}
	}

	matches := make([]Match, 0, len(f.vectors))
	for pos, vector := range f.vectors {
		matches = append(matches, Match{Pos: pos, Distance: squaredDistance(query, vector)})
	}

	slices.SortFunc(matches, func(a, b Match) int {
		if a.Distance < b.Distance {
			return -1
		}
		if a.Distance > b.Distance {
			return 1
		}
		return a.Pos - b.Pos
	})

	return matches[:k]
}

func (f *Flat) checkDimensions(vector []float32) {
	if len(vector) != f.dim {
		panic(fmt.Sprintf("index: vector has %d dimensions, index fixed at %d", len(vector), f.dim))
	}
}

// squaredDistance computes the squared Euclidean distance of two vectors
// of equal length.
func squaredDistance(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
