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


// Package storage provides the persistence abstraction layer for recall.
//
// Two backends implement durability for the username-to-log mapping:
//
//   - storage/snapshot: a single-file, whole-store snapshot written at
//     shutdown and read at startup
//   - storage/badger: a BadgerDB archive that persists every append as it
//     happens and can reload all users after a restart
//
// Embeddings and index positions are never persisted by either backend.
// The vector index is a derived projection: after a load, the memory
// store rebuilds it by re-embedding every record's text in log order.
//
// # Constructor Return Type Pattern
//
// Public constructors return the storage.HistoryRepository interface to
// enforce abstraction and enable multiple storage backend implementations:
//
//	repo, err := badger.NewHistoryRepository(path)
//
// Internal package constructors may return concrete types since they're
// only used within the implementation package.
//
// # Serialization
//
// Records are encoded with hand-written mus-go serializers (see
// serialization.go). The snapshot file carries a magic number and format
// version so incompatible layouts fail loudly instead of decoding garbage.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
