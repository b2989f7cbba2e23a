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



package storage

import (
	"context"
	"time"

	"github.com/poiesic/driftnet/core"
)

// ItemRepository provides operations for managing scraped items.
// Implementations must be thread-safe and support concurrent access.
type ItemRepository interface {
	// Upsert stores an item unless one with the same (SourceID, ItemID) exists.
	// New items are inserted with Processed=false and an empty NormalizedText, and
	// created is true. If the key already exists the stored record is returned
	// unchanged and created is false. Atomic per key under concurrent callers.
	Upsert(ctx context.Context, item *core.Item) (stored *core.Item, created bool, err error)

	// GetItem retrieves a single item by ID.
	// Returns ErrNotFound if the item doesn't exist.
	GetItem(ctx context.Context, id core.ID) (*core.Item, error)

	// GetItemByKey retrieves a single item by its composite key.
	// Returns ErrNotFound if the item doesn't exist.
	GetItemByKey(ctx context.Context, sourceID, itemID string) (*core.Item, error)

	// GetLinks returns the links of the item with the given ID.
	// Returns ErrNotFound if the item doesn't exist.
	GetLinks(ctx context.Context, id core.ID) ([]string, error)

	// ListWithLinks returns up to limit items that carry at least one link,
	// most recent first. A limit <= 0 returns all of them.
	ListWithLinks(ctx context.Context, limit int) ([]*core.Item, error)

	// ListUnprocessed returns up to limit items with Processed=false, oldest first.
	// A limit <= 0 returns all of them.
	ListUnprocessed(ctx context.Context, limit int) ([]*core.Item, error)

	// MarkNormalized records the normalizer's output for an item and sets Processed=true.
	// Returns ErrNotFound if the item doesn't exist.
	MarkNormalized(ctx context.Context, id core.ID, normalizedText string) (*core.Item, error)

	// CountByProcessed returns total, processed and unprocessed item counts.
	CountByProcessed(ctx context.Context) (core.ProcessingCounts, error)

	// Close releases repository resources.
	Close() error
}

// SourceRepository provides operations for the persisted source registry.
type SourceRepository interface {
	// AddSources registers sources, skipping names that already exist.
	// Returns the sources that were newly added.
	AddSources(ctx context.Context, names ...string) ([]*core.Source, error)

	// RemoveSource deletes a source from the registry.
	// Returns ErrNotFound if the source doesn't exist.
	RemoveSource(ctx context.Context, name string) error

	// ListSources returns all registered sources ordered by name.
	ListSources(ctx context.Context) ([]*core.Source, error)

	// MarkScraped records the time a source was last scraped successfully.
	// Unregistered sources are ignored.
	MarkScraped(ctx context.Context, name string, at time.Time) error
}
