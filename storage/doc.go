// Copyright 2026 Poiesic Systems
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



// Package storage provides the storage abstraction layer for driftnet.
//
// This package defines repository interfaces that decouple the ingestion
// pipeline from the storage implementation. The BadgerDB implementation lives
// in the badger subpackage.
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - ItemRepository: idempotent item upserts, normalizer write-back and the
//     reporting query surface
//   - SourceRepository: the persisted registry of channels to scrape
//
// # Idempotency
//
// Items are keyed by (SourceID, ItemID). Upsert never overwrites an existing
// record: a repeat upsert returns the stored record with created=false. This
// holds under concurrent callers; implementations must guarantee that two
// concurrent upserts of the same key never both insert.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	items := badger.NewItemRepository(backend)
//	stored, created, err := items.Upsert(ctx, item)
//
// Use in tests with in-memory storage:
//
//	items, sources, backend, err := badger.NewMemoryRepositories()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
