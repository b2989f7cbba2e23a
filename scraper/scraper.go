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



// Package scraper turns a source's raw items into primary core.Items with
// extracted links.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/driftnet/core"
	"github.com/poiesic/driftnet/fetch"
	"github.com/poiesic/driftnet/links"
)

var (
	// ErrFetcherRequired is returned when no fetcher is provided.
	ErrFetcherRequired = errors.New("fetcher required")
	// ErrLinkResolverRequired is returned when no link resolver is provided.
	ErrLinkResolverRequired = errors.New("link resolver required")
)

// ItemFetcher retrieves raw items from a source.
type ItemFetcher interface {
	Fetch(ctx context.Context, source, cursor string, maxItems int) ([]fetch.RawItem, error)
}

// ItemResolver resolves the indirect links of one source's items in place.
type ItemResolver interface {
	ResolveSource(ctx context.Context, items []*core.Item) (links.BatchStats, error)
}

// Scraper builds primary items for one source.
type Scraper struct {
	fetcher  ItemFetcher
	resolver ItemResolver
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Scraper.
type Option func(*Scraper) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scraper) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New creates a Scraper.
func New(fetcher ItemFetcher, resolver ItemResolver, opts ...Option) (*Scraper, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if resolver == nil {
		return nil, ErrLinkResolverRequired
	}
	s := &Scraper{
		fetcher:  fetcher,
		resolver: resolver,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "scraper")
	return s, nil
}

// ScrapeOne fetches up to maxItems items from source and resolves their
// indirect links before returning. A link shared by several items is resolved
// once. Resolution failures keep the original link.
func (s *Scraper) ScrapeOne(ctx context.Context, source string, maxItems int) ([]*core.Item, error) {
	items, err := s.Collect(ctx, source, maxItems)
	if err != nil {
		return nil, err
	}
	if _, err := s.resolver.ResolveSource(ctx, items); err != nil {
		s.logger.Warn("link resolution failed, keeping original links", "source", source, "err", err)
	}
	return items, nil
}

// Collect fetches up to maxItems items from source with links extracted but
// not resolved. Resolution is left to a later batch pass.
func (s *Scraper) Collect(ctx context.Context, source string, maxItems int) ([]*core.Item, error) {
	raw, err := s.fetcher.Fetch(ctx, source, "", maxItems)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", source, err)
	}

	items := make([]*core.Item, 0, len(raw))
	for _, r := range raw {
		if r.ID == "" {
			s.logger.Warn("skipping raw item without id", "source", source)
			continue
		}
		item := &core.Item{
			SourceID:  source,
			ItemID:    r.ID,
			Text:      r.Text,
			Kind:      core.SourceKindPrimary,
			Timestamp: r.Timestamp,
		}
		if item.Timestamp.IsZero() {
			item.Timestamp = s.now()
		}
		item.SetLinks(links.Extract(r.Text))
		items = append(items, item)
	}

	s.logger.Debug("source collected", "source", source, "items", len(items))
	return items, nil
}
