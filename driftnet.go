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


// Package driftnet wires the ingestion pipeline together around one
// badger database.
//
// A Database owns the storage backend and builds the pipeline components
// from a config.Config:
//
//	cfg, err := config.Load("driftnet.yaml")
//	db, err := driftnet.NewDatabase(cfg)
//	defer db.Close()
//
//	orch, err := db.NewOrchestrator()
//	report, err := orch.Run(ctx, cfg.Sources, 0, 0)
package driftnet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/poiesic/driftnet/ai"
	"github.com/poiesic/driftnet/ai/openai"
	"github.com/poiesic/driftnet/config"
	"github.com/poiesic/driftnet/expand"
	"github.com/poiesic/driftnet/expand/page"
	"github.com/poiesic/driftnet/fetch"
	"github.com/poiesic/driftnet/ingestion"
	"github.com/poiesic/driftnet/links"
	"github.com/poiesic/driftnet/normalize"
	"github.com/poiesic/driftnet/schedule"
	"github.com/poiesic/driftnet/scraper"
	"github.com/poiesic/driftnet/source/telegram"
	"github.com/poiesic/driftnet/storage"
	"github.com/poiesic/driftnet/storage/badger"
)

// Database owns the storage backend and the long-lived pipeline dependencies.
type Database struct {
	cfg        *config.Config
	backend    *badger.Backend
	items      storage.ItemRepository
	sources    storage.SourceRepository
	client     fetch.SourceClient
	secondary  expand.SecondaryFetcher
	normalizer ai.Normalizer
	transport  http.RoundTripper
	closers    []io.Closer
	logger     *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	inMemory   bool
	client     fetch.SourceClient
	secondary  expand.SecondaryFetcher
	normalizer ai.Normalizer
	transport  http.RoundTripper
	logger     *slog.Logger
}

// WithInMemory keeps all data in memory. Used by tests.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) { o.inMemory = true }
}

// WithSourceClient replaces the Telegram preview client.
func WithSourceClient(client fetch.SourceClient) DatabaseOption {
	return func(o *databaseOptions) { o.client = client }
}

// WithSecondaryFetcher replaces the configured post page fetcher.
func WithSecondaryFetcher(f expand.SecondaryFetcher) DatabaseOption {
	return func(o *databaseOptions) { o.secondary = f }
}

// WithNormalizer replaces the OpenAI-compatible normalizer.
func WithNormalizer(n ai.Normalizer) DatabaseOption {
	return func(o *databaseOptions) { o.normalizer = n }
}

// WithTransport sets the HTTP transport used for link resolution.
func WithTransport(rt http.RoundTripper) DatabaseOption {
	return func(o *databaseOptions) { o.transport = rt }
}

// WithLogger sets the logger handed to every component.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewDatabase opens the database at cfg.DBPath.
func NewDatabase(cfg *config.Config, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend, err := badger.OpenBackend(cfg.DBPath, options.inMemory)
	if err != nil {
		return nil, err
	}

	return &Database{
		cfg:        cfg,
		backend:    backend,
		items:      badger.NewItemRepository(backend),
		sources:    badger.NewSourceRepository(backend),
		client:     options.client,
		secondary:  options.secondary,
		normalizer: options.normalizer,
		transport:  options.transport,
		logger:     options.logger,
	}, nil
}

// Close releases browser sessions and the storage backend.
func (db *Database) Close() error {
	var errs []error
	for i := len(db.closers) - 1; i >= 0; i-- {
		if err := db.closers[i].Close(); err != nil {
			db.logger.Error("error closing component", "err", err)
			errs = append(errs, err)
		}
	}
	db.closers = nil

	if err := db.items.Close(); err != nil {
		db.logger.Error("error closing item repository", "err", err)
		errs = append(errs, err)
	}
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Config returns the configuration the database was opened with.
func (db *Database) Config() *config.Config {
	return db.cfg
}

// ItemRepository returns the item store shared by every component the database builds.
func (db *Database) ItemRepository() storage.ItemRepository {
	return db.items
}

// SourceRepository returns the persisted source registry.
func (db *Database) SourceRepository() storage.SourceRepository {
	return db.sources
}

// NewOrchestrator builds the full scrape, resolve, store and expand chain.
// opts are applied after the configured ones.
func (db *Database) NewOrchestrator(opts ...ingestion.Option) (*ingestion.Orchestrator, error) {
	client, err := db.sourceClient()
	if err != nil {
		return nil, err
	}

	fc := db.cfg.Fetch
	fetcher, err := fetch.NewFetcher(client,
		fetch.WithMaxAttempts(fc.MaxAttempts),
		fetch.WithBaseDelay(fc.BaseDelay),
		fetch.WithJitter(fc.Jitter),
		fetch.WithOverFetch(fc.OverFetch),
		fetch.WithMaxThrottleWaits(fc.MaxThrottleWaits),
		fetch.WithThrottleWait(fc.ThrottleWait),
		fetch.WithLogger(db.logger),
	)
	if err != nil {
		return nil, err
	}

	batch, err := db.newBatchResolver()
	if err != nil {
		return nil, err
	}

	s, err := scraper.New(fetcher, batch, scraper.WithLogger(db.logger))
	if err != nil {
		return nil, err
	}

	configured := []ingestion.Option{
		ingestion.WithConcurrency(db.cfg.Ingest.Concurrency),
		ingestion.WithMaxItemsPerSource(db.cfg.Ingest.MaxItemsPerSource),
		ingestion.WithSourceRegistry(db.sources),
		ingestion.WithLogger(db.logger),
	}
	if db.cfg.Expand.Enabled {
		expander, err := db.NewExpander()
		if err != nil {
			return nil, err
		}
		configured = append(configured, ingestion.WithExpander(expander))
	}
	return ingestion.NewOrchestrator(s, batch, db.items, append(configured, opts...)...)
}

// NewExpander builds the secondary expander using the configured page fetcher.
func (db *Database) NewExpander(opts ...expand.Option) (*expand.Expander, error) {
	configured := []expand.Option{
		expand.WithDelay(db.cfg.Expand.Delay),
		expand.WithLogger(db.logger),
	}
	return expand.New(db.secondaryFetcher(), append(configured, opts...)...)
}

// NewNormalizeProcessor builds a normalization processor over the stored items.
func (db *Database) NewNormalizeProcessor(opts ...normalize.Option) (*normalize.Processor, error) {
	normalizer := db.normalizer
	if normalizer == nil {
		n, err := openai.NewNormalizer(db.cfg.ModelConfig())
		if err != nil {
			return nil, fmt.Errorf("create normalizer: %w", err)
		}
		normalizer = n
		db.normalizer = n
	}
	configured := []normalize.Option{
		normalize.WithDelay(db.cfg.Normalize.Delay),
		normalize.WithMaxItems(db.cfg.Normalize.MaxItems),
		normalize.WithLogger(db.logger),
	}
	return normalize.NewProcessor(db.items, normalizer, append(configured, opts...)...)
}

// NewScheduler registers the ingest and normalize jobs on their configured
// intervals. Stopping the scheduler stops the ingest orchestrator from admitting
// further sources. The returned scheduler is not started.
func (db *Database) NewScheduler(opts ...schedule.Option) (*schedule.Scheduler, error) {
	orch, err := db.NewOrchestrator()
	if err != nil {
		return nil, err
	}
	proc, err := db.NewNormalizeProcessor()
	if err != nil {
		return nil, err
	}

	base := []schedule.Option{schedule.WithLogger(db.logger), schedule.WithStopHook(orch.Stop)}
	s, err := schedule.New(append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	sources := db.cfg.Sources
	if err := s.Add("ingest", db.cfg.Ingest.Interval, func(ctx context.Context) error {
		report, err := orch.Run(ctx, sources, 0, 0)
		if err != nil {
			return err
		}
		db.logger.Info("ingest complete",
			"run_id", report.RunID, "created", report.Created, "failed_sources", len(report.FailedSources()))
		return nil
	}); err != nil {
		return nil, err
	}
	if err := s.Add("normalize", db.cfg.Normalize.Interval, func(ctx context.Context) error {
		_, err := proc.Run(ctx)
		return err
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func (db *Database) sourceClient() (fetch.SourceClient, error) {
	if db.client != nil {
		return db.client, nil
	}
	tc := db.cfg.Telegram
	opts := []telegram.Option{
		telegram.WithBaseURL(tc.BaseURL),
		telegram.WithHTTPClient(&http.Client{Timeout: tc.Timeout}),
		telegram.WithLogger(db.logger),
	}
	if tc.UserAgent != "" {
		opts = append(opts, telegram.WithUserAgent(tc.UserAgent))
	}
	client, err := telegram.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	db.client = client
	return client, nil
}

func (db *Database) newBatchResolver() (*links.BatchResolver, error) {
	lc := db.cfg.Links
	ropts := []links.ResolverOption{
		links.WithTimeout(lc.Timeout),
		links.WithMaxRedirects(lc.MaxRedirects),
		links.WithResolverLogger(db.logger),
	}
	if len(lc.IndirectDomains) > 0 {
		ropts = append(ropts, links.WithIndirectDomains(lc.IndirectDomains...))
	}
	if db.transport != nil {
		ropts = append(ropts, links.WithTransport(db.transport))
	}
	resolver, err := links.NewHTTPResolver(ropts...)
	if err != nil {
		return nil, err
	}
	return links.NewBatchResolver(resolver,
		links.WithItemWorkers(lc.ItemWorkers),
		links.WithBatchWorkers(lc.BatchWorkers),
		links.WithBatchLogger(db.logger),
	)
}

func (db *Database) secondaryFetcher() expand.SecondaryFetcher {
	if db.secondary != nil {
		return db.secondary
	}
	if db.cfg.Expand.Browser {
		rf := page.NewRodFetcher(db.cfg.Expand.BrowserURL, db.logger)
		db.closers = append(db.closers, rf)
		db.secondary = rf
	} else {
		db.secondary = page.NewHTTPFetcher(nil, db.logger)
	}
	return db.secondary
}
