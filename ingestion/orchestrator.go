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



package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/driftnet/core"
	"github.com/poiesic/driftnet/expand"
	"github.com/poiesic/driftnet/links"
	"github.com/poiesic/driftnet/storage"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultConcurrency is the number of sources scraped at once.
	DefaultConcurrency = 5
	// DefaultMaxItemsPerSource caps the items taken from each source per run.
	DefaultMaxItemsPerSource = 100
)

// SourceScraper produces primary items for one source.
type SourceScraper interface {
	// ScrapeOne fetches items and resolves their links immediately.
	ScrapeOne(ctx context.Context, source string, maxItems int) ([]*core.Item, error)
	// Collect fetches items and leaves link resolution to the caller.
	Collect(ctx context.Context, source string, maxItems int) ([]*core.Item, error)
}

// BatchLinkResolver resolves links across many items at once.
type BatchLinkResolver interface {
	ResolveBatch(ctx context.Context, items []*core.Item) (links.BatchStats, error)
}

// SecondaryExpander derives secondary items from links.
type SecondaryExpander interface {
	Partition(links []string) []expand.Match
	Expand(ctx context.Context, url string, parent *core.Item) (*core.Item, error)
}

// Orchestrator scrapes many sources in parallel and persists the results.
type Orchestrator struct {
	scraper     SourceScraper
	batch       BatchLinkResolver
	items       storage.ItemRepository
	sources     storage.SourceRepository
	expander    SecondaryExpander
	concurrency int
	maxItems    int
	stopped     atomic.Bool
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithConcurrency sets the default number of sources scraped at once.
// Default is 5.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) error {
		if n < 1 {
			n = 1
		}
		o.concurrency = n
		return nil
	}
}

// WithMaxItemsPerSource sets the default per-source item cap.
// Default is 100.
func WithMaxItemsPerSource(n int) Option {
	return func(o *Orchestrator) error {
		if n < 1 {
			return fmt.Errorf("invalid max items per source %d", n)
		}
		o.maxItems = n
		return nil
	}
}

// WithExpander enables secondary expansion.
func WithExpander(e SecondaryExpander) Option {
	return func(o *Orchestrator) error {
		o.expander = e
		return nil
	}
}

// WithSourceRegistry sets the registry used when Run is given no sources,
// and updated with last-scraped times after each successful source.
func WithSourceRegistry(sources storage.SourceRepository) Option {
	return func(o *Orchestrator) error {
		o.sources = sources
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(
	scraper SourceScraper,
	batch BatchLinkResolver,
	items storage.ItemRepository,
	opts ...Option,
) (*Orchestrator, error) {
	if scraper == nil {
		return nil, ErrScraperRequired
	}
	if batch == nil {
		return nil, ErrBatchResolverRequired
	}
	if items == nil {
		return nil, ErrItemRepositoryRequired
	}

	o := &Orchestrator{
		scraper:     scraper,
		batch:       batch,
		items:       items,
		concurrency: DefaultConcurrency,
		maxItems:    DefaultMaxItemsPerSource,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	o.logger = o.logger.With("component", "orchestrator")
	return o, nil
}

// Stop refuses admission of further sources. Scrapes already running finish
// and the run completes with the remaining sources reported as shut down.
// A stopped Orchestrator admits no sources in later runs.
func (o *Orchestrator) Stop() {
	o.stopped.Store(true)
}

// Stopped reports whether Stop has been called.
func (o *Orchestrator) Stopped() bool {
	return o.stopped.Load()
}

// Run scrapes sources and stores the results. An empty source list falls back
// to the source registry. Values <= 0 for maxItemsPerSource and concurrency
// use the configured defaults. A cancelled run stores the items of sources
// that finished and returns the report together with ctx.Err().
func (o *Orchestrator) Run(ctx context.Context, sources []string, maxItemsPerSource, concurrency int) (*RunReport, error) {
	if maxItemsPerSource <= 0 {
		maxItemsPerSource = o.maxItems
	}
	if concurrency <= 0 {
		concurrency = o.concurrency
	}

	sources, err := o.resolveSources(ctx, sources)
	if err != nil {
		return nil, err
	}

	report := newRunReport(uuid.New().String(), o.now())
	logger := o.logger.With("run_id", report.RunID)
	logger.Info("run started", "sources", len(sources), "concurrency", concurrency, "max_items", maxItemsPerSource)

	single := len(sources) == 1
	results := o.scrapeAll(ctx, logger, sources, maxItemsPerSource, concurrency, single)

	var primary []*core.Item
	report.Sources = make([]SourceReport, len(results))
	for i, res := range results {
		report.Sources[i] = res.report
		if !res.report.OK() {
			report.skip(res.report.Reason)
		}
		primary = append(primary, res.items...)
	}

	// Items from sources that finished are stored even when the run was
	// cancelled. Batch resolution and expansion are skipped in that case.
	cancelled := ctx.Err()
	storeCtx := ctx
	if cancelled != nil {
		storeCtx = context.WithoutCancel(ctx)
		logger.Warn("run cancelled, storing items from finished sources", "items", len(primary))
	}

	if cancelled == nil && !single && len(primary) > 0 {
		stats, err := o.batch.ResolveBatch(ctx, primary)
		if err != nil {
			logger.Warn("batch link resolution failed, keeping original links", "err", err)
		}
		report.Links = stats
	}

	if err := o.storePrimary(storeCtx, logger, report, primary); err != nil {
		report.Finished = o.now()
		return report, err
	}
	if cancelled != nil {
		report.Finished = o.now()
		return report, cancelled
	}

	if o.expander != nil {
		if err := o.expandSecondary(ctx, logger, report, primary); err != nil {
			report.Finished = o.now()
			return report, err
		}
	}

	report.Finished = o.now()
	logger.Info("run finished",
		"primary", report.Primary,
		"secondary", report.Secondary,
		"created", report.Created,
		"failed_sources", len(report.FailedSources()),
		"elapsed", report.Finished.Sub(report.Started))
	return report, nil
}

func (o *Orchestrator) resolveSources(ctx context.Context, sources []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool, len(sources))
	for _, s := range sources {
		name := core.NormalizeSourceName(s)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	if len(out) > 0 {
		return out, nil
	}

	if o.sources == nil {
		return nil, ErrNoSources
	}
	registered, err := o.sources.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSources, err)
	}
	for _, s := range registered {
		out = append(out, s.Name)
	}
	if len(out) == 0 {
		return nil, ErrNoSources
	}
	return out, nil
}

type scrapeResult struct {
	items  []*core.Item
	report SourceReport
}

// scrapeAll runs one scrape per source under a weighted semaphore. Results
// are indexed by source position.
func (o *Orchestrator) scrapeAll(ctx context.Context, logger *slog.Logger, sources []string, maxItems, concurrency int, single bool) []scrapeResult {
	results := make([]scrapeResult, len(sources))
	sem := semaphore.NewWeighted(int64(concurrency))
	var wg sync.WaitGroup

	for i, source := range sources {
		results[i].report.Source = source

		if o.stopped.Load() {
			results[i].report.Reason = OutcomeShutdown
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i].report.Reason = OutcomeCancelled
			results[i].report.Err = err
			continue
		}
		// Stop may have been called while waiting for a slot.
		if o.stopped.Load() {
			sem.Release(1)
			results[i].report.Reason = OutcomeShutdown
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = o.scrapeSource(ctx, logger, source, maxItems, single)
		}()
	}
	wg.Wait()

	return results
}

func (o *Orchestrator) scrapeSource(ctx context.Context, logger *slog.Logger, source string, maxItems int, single bool) scrapeResult {
	res := scrapeResult{report: SourceReport{Source: source}}
	start := time.Now()

	var (
		items []*core.Item
		err   error
	)
	if single {
		items, err = o.scraper.ScrapeOne(ctx, source, maxItems)
	} else {
		items, err = o.scraper.Collect(ctx, source, maxItems)
	}
	if err != nil {
		res.report.Err = err
		res.report.Reason = OutcomeSourceFailed
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			res.report.Reason = OutcomeCancelled
		}
		logger.Error("source scrape failed", "source", source, "err", err)
		return res
	}

	res.items = items
	res.report.Fetched = len(items)
	logger.Info("source scraped", "source", source, "items", len(items), "elapsed", time.Since(start))
	return res
}

func (o *Orchestrator) storePrimary(ctx context.Context, logger *slog.Logger, report *RunReport, primary []*core.Item) error {
	index := make(map[string]int, len(report.Sources))
	for i, s := range report.Sources {
		index[s.Source] = i
	}

	for _, item := range primary {
		stored, created, err := o.items.Upsert(ctx, item)
		if err != nil {
			return fmt.Errorf("%w: %s/%s: %w", ErrStoreFailure, item.SourceID, item.ItemID, err)
		}
		report.Items = append(report.Items, stored)
		report.Primary++
		if created {
			report.Created++
			if i, ok := index[item.SourceID]; ok {
				report.Sources[i].Stored++
			}
		} else {
			report.skip(OutcomeDuplicate)
		}
	}

	if o.sources == nil {
		return nil
	}
	at := o.now()
	for _, s := range report.Sources {
		if !s.OK() {
			continue
		}
		if err := o.sources.MarkScraped(ctx, s.Source, at); err != nil {
			logger.Warn("failed to record scrape time", "source", s.Source, "err", err)
		}
	}
	return nil
}

// expandSecondary expands matching links sequentially. Each derived item is
// attempted at most once per run.
func (o *Orchestrator) expandSecondary(ctx context.Context, logger *slog.Logger, report *RunReport, primary []*core.Item) error {
	seen := make(map[core.ItemKey]bool)

	for _, parent := range primary {
		for _, match := range o.expander.Partition(parent.Links) {
			key := core.ItemKey{SourceID: parent.SourceID, ItemID: match.ItemID}
			if seen[key] {
				report.skip(OutcomeSecondaryDuplicate)
				continue
			}
			seen[key] = true

			if existing, err := o.items.GetItemByKey(ctx, key.SourceID, key.ItemID); err == nil {
				report.Items = append(report.Items, existing)
				report.Secondary++
				report.skip(OutcomeSecondaryExisting)
				continue
			} else if !errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: lookup %s/%s: %w", ErrStoreFailure, key.SourceID, key.ItemID, err)
			}

			item, err := o.expander.Expand(ctx, match.URL, parent)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if errors.Is(err, expand.ErrValidation) {
					report.skip(OutcomeSecondaryInvalid)
				} else {
					report.skip(OutcomeSecondaryFailed)
				}
				logger.Warn("secondary expansion dropped", "url", match.URL, "parent", parent.ItemID, "err", err)
				continue
			}

			stored, created, err := o.items.Upsert(ctx, item)
			if err != nil {
				return fmt.Errorf("%w: %s/%s: %w", ErrStoreFailure, item.SourceID, item.ItemID, err)
			}
			report.Items = append(report.Items, stored)
			report.Secondary++
			if created {
				report.Created++
			}
			logger.Info("secondary stored", "url", match.URL, "item", stored.ItemID, "created", created)
		}
	}
	return nil
}
