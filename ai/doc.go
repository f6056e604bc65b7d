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


// Package ai provides the text embedding abstraction used by the memory store.
//
// The package defines the Embedder interface along with two implementation
// sub-packages and one in-package fallback:
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//   - SyntheticEmbedder: Deterministic, hash-derived fallback used when no
//     real embedding service is available
//
// # Degraded Mode
//
// Every Embedder reports a capability flag via Degraded(). A degraded
// embedder preserves the shape of the contract (fixed-dimension vectors,
// identical text gives identical vectors) but carries no semantic meaning,
// so callers that rank by similarity must check the flag and fall back to
// recency-based selection instead of inspecting vectors.
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewEmbedder) return the ai.Embedder interface
// to enforce abstraction and prevent accidental coupling to concrete
// implementations. Test utility constructors (mock.NewMockEmbedder) return
// concrete types to enable test assertions and behavior injection.
package ai
