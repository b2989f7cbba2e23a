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



package links

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/driftnet/core"
)

const (
	// DefaultMaxLinkWorkers caps concurrent resolutions for one source's links.
	DefaultMaxLinkWorkers = 15
	// DefaultMaxBatchWorkers caps concurrent resolutions across a batch.
	DefaultMaxBatchWorkers = 20
)

// ErrResolverRequired is returned when no Resolver is provided.
var ErrResolverRequired = errors.New("link resolver required")

// BatchStats summarizes one batch resolution pass.
type BatchStats struct {
	Items    int // Items in the batch
	Unique   int // Distinct indirect links across the batch
	Resolved int // Links whose destination differs from the original
	Fallback int // Links kept unchanged (failure or no redirect)
}

// BatchResolver resolves indirection links for many items at once.
type BatchResolver struct {
	resolver    Resolver
	itemWorkers int
	workers     int
	logger      *slog.Logger
}

// BatchOption configures a BatchResolver.
type BatchOption func(*BatchResolver) error

// WithBatchWorkers sets the worker count for ResolveBatch.
// Default is 20.
func WithBatchWorkers(n int) BatchOption {
	return func(b *BatchResolver) error {
		if n < 1 {
			n = 1
		}
		b.workers = n
		return nil
	}
}

// WithItemWorkers sets the worker count for ResolveSource.
// Default is 15.
func WithItemWorkers(n int) BatchOption {
	return func(b *BatchResolver) error {
		if n < 1 {
			n = 1
		}
		b.itemWorkers = n
		return nil
	}
}

// WithBatchLogger sets a custom logger.
// Default is slog.Default().
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchResolver) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBatchResolver creates a BatchResolver around resolver.
func NewBatchResolver(resolver Resolver, opts ...BatchOption) (*BatchResolver, error) {
	if resolver == nil {
		return nil, ErrResolverRequired
	}
	b := &BatchResolver{
		resolver:    resolver,
		itemWorkers: DefaultMaxLinkWorkers,
		workers:     DefaultMaxBatchWorkers,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	b.logger = b.logger.With("component", "batch-resolver")
	return b, nil
}

// ResolveSource resolves the indirect links of one source's items in place.
// Each distinct link is resolved once under the per-source worker cap.
func (b *BatchResolver) ResolveSource(ctx context.Context, items []*core.Item) (BatchStats, error) {
	return b.resolveItems(ctx, items, b.itemWorkers)
}

// ResolveBatch resolves every distinct indirect link across items exactly once
// and rewrites each item's links with the results. Links that fail to resolve
// keep their original URL.
func (b *BatchResolver) ResolveBatch(ctx context.Context, items []*core.Item) (BatchStats, error) {
	return b.resolveItems(ctx, items, b.workers)
}

func (b *BatchResolver) resolveItems(ctx context.Context, items []*core.Item, workers int) (BatchStats, error) {
	stats := BatchStats{Items: len(items)}

	seen := make(map[string]struct{})
	var unique []string
	for _, item := range items {
		for _, link := range item.Links {
			if _, ok := seen[link]; ok {
				continue
			}
			seen[link] = struct{}{}
			if b.resolver.IsIndirect(link) {
				unique = append(unique, link)
			}
		}
	}
	stats.Unique = len(unique)
	if len(unique) == 0 {
		return stats, nil
	}

	b.logger.Info("resolving links", "items", len(items), "unique", len(unique), "workers", min(workers, len(unique)))
	resolved, err := b.resolveAll(ctx, unique, workers)
	if err != nil {
		return stats, err
	}

	for original, final := range resolved {
		if final != original {
			stats.Resolved++
		} else {
			stats.Fallback++
		}
	}
	for _, item := range items {
		applyResolutions(item, resolved)
	}

	b.logger.Info("links resolved", "unique", stats.Unique, "resolved", stats.Resolved, "fallback", stats.Fallback)
	return stats, nil
}

// resolveAll resolves each URL once on an ants pool of the given size.
func (b *BatchResolver) resolveAll(ctx context.Context, urls []string, workers int) (map[string]string, error) {
	pool, err := ants.NewPool(min(workers, len(urls)))
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]string, len(urls))
	)
	for _, u := range urls {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			final := u
			if ctx.Err() == nil {
				final = b.resolver.Resolve(ctx, u)
			}
			if final == "" {
				final = u
			}
			mu.Lock()
			results[u] = final
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			results[u] = u
			mu.Unlock()
		}
	}
	wg.Wait()

	return results, nil
}

// applyResolutions rewrites item links through resolved, then re-deduplicates
// since two short links may share a destination.
func applyResolutions(item *core.Item, resolved map[string]string) {
	if len(item.Links) == 0 {
		item.SetLinks(nil)
		return
	}
	out := make([]string, len(item.Links))
	for i, link := range item.Links {
		if final, ok := resolved[link]; ok {
			out[i] = final
		} else {
			out[i] = link
		}
	}
	item.SetLinks(Dedupe(out))
}
