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



package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/driftnet/core"
	"github.com/poiesic/driftnet/storage"
)

// ItemRepository implements storage.ItemRepository for BadgerDB.
type ItemRepository struct {
	backend *Backend
}

var _ storage.ItemRepository = (*ItemRepository)(nil)

// NewItemRepository creates a new ItemRepository.
func NewItemRepository(backend *Backend) *ItemRepository {
	return &ItemRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *ItemRepository) Close() error {
	return nil
}

// Upsert inserts the item unless its (SourceID, ItemID) key is already stored.
func (r *ItemRepository) Upsert(ctx context.Context, item *core.Item) (*core.Item, bool, error) {
	if err := core.ValidateItem(item); err != nil {
		return nil, false, err
	}

	id := item.Key().ID()
	key := makeItemKey(id)

	var (
		stored  *core.Item
		created bool
	)
	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		// Reset on replay after a conflict.
		stored, created = nil, false

		existing, err := readItem(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.SourceID != item.SourceID || existing.ItemID != item.ItemID {
				return fmt.Errorf("%w: id %d already holds %s/%s",
					storage.ErrDuplicateKey, id, existing.SourceID, existing.ItemID)
			}
			stored = existing
			return nil
		}

		now := time.Now().UTC().Truncate(time.Microsecond)
		record := *item
		record.Id = id
		record.Links = slices.Clone(item.Links)
		record.Timestamp = normalizeTime(item.Timestamp)
		record.Processed = false
		record.NormalizedText = ""
		record.InsertedAt = now
		record.UpdatedAt = now

		if err := tx.Set(key, storage.MarshalItem(&record)); err != nil {
			return err
		}
		if err := tx.Set(makeTimeIndexKey(itemUnprocessedPrefix, record.Timestamp, id), nil); err != nil {
			return err
		}
		if record.HasLinks {
			if err := tx.Set(makeTimeIndexKey(itemLinksPrefix, record.Timestamp, id), nil); err != nil {
				return err
			}
		}

		stored = &record
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

// GetItem retrieves a single item by ID.
func (r *ItemRepository) GetItem(ctx context.Context, id core.ID) (*core.Item, error) {
	var result *core.Item
	err := r.backend.View(func(tx *badger.Txn) error {
		var err error
		result, err = readItem(tx, makeItemKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	})
	return result, err
}

// GetItemByKey retrieves a single item by its composite key.
func (r *ItemRepository) GetItemByKey(ctx context.Context, sourceID, itemID string) (*core.Item, error) {
	item, err := r.GetItem(ctx, core.ItemIDFor(sourceID, itemID))
	if err != nil {
		return nil, err
	}
	if item.SourceID != sourceID || item.ItemID != itemID {
		return nil, storage.ErrNotFound
	}
	return item, nil
}

// GetLinks returns the links of the item with the given ID.
func (r *ItemRepository) GetLinks(ctx context.Context, id core.ID) ([]string, error) {
	item, err := r.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	return item.Links, nil
}

// ListWithLinks returns items carrying links, most recent first.
func (r *ItemRepository) ListWithLinks(ctx context.Context, limit int) ([]*core.Item, error) {
	return r.listIndex(ctx, itemLinksPrefix, true, limit)
}

// ListUnprocessed returns items awaiting normalization, oldest first.
func (r *ItemRepository) ListUnprocessed(ctx context.Context, limit int) ([]*core.Item, error) {
	return r.listIndex(ctx, itemUnprocessedPrefix, false, limit)
}

func (r *ItemRepository) listIndex(ctx context.Context, prefix string, reverse bool, limit int) ([]*core.Item, error) {
	var results []*core.Item

	err := r.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false
		opts.Reverse = reverse
		iter := tx.NewIterator(opts)
		defer iter.Close()

		start := []byte(prefix)
		if reverse {
			// Seek past the last possible key under the prefix.
			start = append([]byte(prefix), bytes.Repeat([]byte{0xFF}, 17)...)
		}

		for iter.Seek(start); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if limit > 0 && len(results) >= limit {
				break
			}
			id, ok := idFromIndexKey(iter.Item().Key())
			if !ok {
				continue
			}
			item, err := readItem(tx, makeItemKey(id))
			if err != nil {
				return err
			}
			if item == nil {
				// Dangling index entry
				continue
			}
			results = append(results, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// MarkNormalized records normalizer output and marks the item processed.
func (r *ItemRepository) MarkNormalized(ctx context.Context, id core.ID, normalizedText string) (*core.Item, error) {
	var result *core.Item
	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		key := makeItemKey(id)
		item, err := readItem(tx, key)
		if err != nil {
			return err
		}
		if item == nil {
			return storage.ErrNotFound
		}

		item.Processed = true
		item.NormalizedText = normalizedText
		item.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)

		if err := tx.Set(key, storage.MarshalItem(item)); err != nil {
			return err
		}
		if err := tx.Delete(makeTimeIndexKey(itemUnprocessedPrefix, item.Timestamp, id)); err != nil {
			return err
		}
		result = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CountByProcessed returns total, processed and unprocessed item counts.
func (r *ItemRepository) CountByProcessed(ctx context.Context) (core.ProcessingCounts, error) {
	var counts core.ProcessingCounts
	err := r.backend.View(func(tx *badger.Txn) error {
		var err error
		if counts.Total, err = countPrefix(ctx, tx, itemRecordPrefix); err != nil {
			return err
		}
		counts.Unprocessed, err = countPrefix(ctx, tx, itemUnprocessedPrefix)
		return err
	})
	if err != nil {
		return core.ProcessingCounts{}, err
	}
	counts.Processed = counts.Total - counts.Unprocessed
	return counts, nil
}

func countPrefix(ctx context.Context, tx *badger.Txn, prefix string) (int, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	count := 0
	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}

// readItem reads an item record from a transaction.
// Returns nil if the record doesn't exist.
func readItem(tx *badger.Txn, key []byte) (*core.Item, error) {
	entry, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var item *core.Item
	err = entry.Value(func(val []byte) error {
		var err error
		item, err = storage.UnmarshalItem(val)
		return err
	})
	return item, err
}

func normalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC().Truncate(time.Microsecond)
}
