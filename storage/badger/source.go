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
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/driftnet/core"
	"github.com/poiesic/driftnet/storage"
)

// SourceRepository implements storage.SourceRepository for BadgerDB.
type SourceRepository struct {
	backend *Backend
}

var _ storage.SourceRepository = (*SourceRepository)(nil)

// NewSourceRepository creates a new SourceRepository.
func NewSourceRepository(backend *Backend) *SourceRepository {
	return &SourceRepository{backend: backend}
}

// AddSources registers sources, skipping names that already exist.
func (r *SourceRepository) AddSources(ctx context.Context, names ...string) ([]*core.Source, error) {
	var added []*core.Source
	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		added = nil
		now := time.Now().UTC().Truncate(time.Microsecond)
		seen := make(map[string]bool, len(names))

		for _, raw := range names {
			source := &core.Source{Name: core.NormalizeSourceName(raw), AddedAt: now}
			if err := core.ValidateSource(source); err != nil {
				return err
			}
			if seen[source.Name] {
				continue
			}
			seen[source.Name] = true

			existing, err := readSource(tx, makeSourceKey(source.Name))
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			if err := tx.Set(makeSourceKey(source.Name), storage.MarshalSource(source)); err != nil {
				return err
			}
			added = append(added, source)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// RemoveSource deletes a source from the registry.
func (r *SourceRepository) RemoveSource(ctx context.Context, name string) error {
	name = core.NormalizeSourceName(name)
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		key := makeSourceKey(name)
		existing, err := readSource(tx, key)
		if err != nil {
			return err
		}
		if existing == nil {
			return storage.ErrNotFound
		}
		return tx.Delete(key)
	})
}

// ListSources returns all registered sources ordered by name.
func (r *SourceRepository) ListSources(ctx context.Context) ([]*core.Source, error) {
	var results []*core.Source
	err := r.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(sourceRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var source *core.Source
			err := iter.Item().Value(func(val []byte) error {
				var err error
				source, err = storage.UnmarshalSource(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, source)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// MarkScraped records the time a source was last scraped successfully.
func (r *SourceRepository) MarkScraped(ctx context.Context, name string, at time.Time) error {
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		key := makeSourceKey(core.NormalizeSourceName(name))
		source, err := readSource(tx, key)
		if err != nil || source == nil {
			return err
		}
		source.LastScraped = at.UTC().Truncate(time.Microsecond)
		return tx.Set(key, storage.MarshalSource(source))
	})
}

// readSource reads a source record from a transaction.
// Returns nil if the record doesn't exist.
func readSource(tx *badger.Txn, key []byte) (*core.Source, error) {
	entry, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var source *core.Source
	err = entry.Value(func(val []byte) error {
		var err error
		source, err = storage.UnmarshalSource(val)
		return err
	})
	return source, err
}
