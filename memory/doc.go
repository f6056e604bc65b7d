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


// Package memory holds the per-user conversation store.
//
// Each user owns an append-only conversation log paired with a flat
// vector index over the embeddings of their messages. Appends for a
// single user are serialized; operations for different users proceed
// in parallel. Embedding calls are dispatched to a worker pool and
// awaited, so a slow model never blocks unrelated users.
//
// Embedding failures never abort an append. A record whose text could
// not be embedded is stored without an index position and is simply
// invisible to similarity search; recency-based retrieval still sees
// it. The log is therefore allowed to run ahead of the index.
//
// The store can export its full username -> log mapping for
// snapshotting and rebuild itself from such a mapping by re-embedding
// every message in log order. Vectors and index positions are derived
// state and are never persisted.
package memory
