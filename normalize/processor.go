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


package normalize

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/driftnet/ai"
	"github.com/poiesic/driftnet/core"
	"github.com/poiesic/driftnet/storage"
	"golang.org/x/time/rate"
)

const (
	// DefaultDelay is the minimum spacing between model calls.
	DefaultDelay = 500 * time.Millisecond

	// DefaultMaxAttempts is the number of model calls made per item.
	DefaultMaxAttempts = 2

	// DefaultRetryBaseDelay is the backoff before the second attempt.
	DefaultRetryBaseDelay = time.Second

	// DefaultPrimaryKind is the source kind reported for primary items.
	DefaultPrimaryKind = "telegram"
)

// Stats summarizes one normalization pass.
type Stats struct {
	Attempted  int
	Normalized int
	Skipped    int // blank items marked processed without a model call
	Failed     int
}

// Processor normalizes unprocessed items one at a time.
type Processor struct {
	items          storage.ItemRepository
	normalizer     ai.Normalizer
	delay          time.Duration
	maxItems       int
	maxAttempts    int
	retryBaseDelay time.Duration
	primaryKind    string
	progress       io.Writer
	logger         *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor) error

// WithDelay sets the minimum spacing between model calls. Zero disables pacing.
func WithDelay(d time.Duration) Option {
	return func(p *Processor) error {
		if d < 0 {
			return fmt.Errorf("%w: delay must not be negative", ErrInvalidOption)
		}
		p.delay = d
		return nil
	}
}

// WithMaxItems caps the number of items handled per pass. Zero means all.
func WithMaxItems(n int) Option {
	return func(p *Processor) error {
		if n < 0 {
			return fmt.Errorf("%w: max items must not be negative", ErrInvalidOption)
		}
		p.maxItems = n
		return nil
	}
}

// WithRetry sets the per-item attempt count and backoff base.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Processor) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		if baseDelay < 0 {
			return fmt.Errorf("%w: retry delay must not be negative", ErrInvalidOption)
		}
		p.maxAttempts = maxAttempts
		p.retryBaseDelay = baseDelay
		return nil
	}
}

// WithPrimaryKind sets the source kind passed to the model for primary items.
func WithPrimaryKind(kind string) Option {
	return func(p *Processor) error {
		if kind == "" {
			return fmt.Errorf("%w: primary kind must not be empty", ErrInvalidOption)
		}
		p.primaryKind = kind
		return nil
	}
}

// WithProgress writes a progress line to w while a pass runs.
func WithProgress(w io.Writer) Option {
	return func(p *Processor) error {
		p.progress = w
		return nil
	}
}

// WithLogger sets the logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewProcessor creates a Processor writing to items through normalizer.
func NewProcessor(items storage.ItemRepository, normalizer ai.Normalizer, opts ...Option) (*Processor, error) {
	if items == nil {
		return nil, ErrItemRepositoryRequired
	}
	if normalizer == nil {
		return nil, ErrNormalizerRequired
	}
	p := &Processor{
		items:          items,
		normalizer:     normalizer,
		delay:          DefaultDelay,
		maxAttempts:    DefaultMaxAttempts,
		retryBaseDelay: DefaultRetryBaseDelay,
		primaryKind:    DefaultPrimaryKind,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "normalizer")
	return p, nil
}

// Run performs one pass over the items that are unprocessed when it starts.
// Per-item failures are counted and logged; only storage failures and
// context cancellation end the pass early.
func (p *Processor) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	pending, err := p.items.ListUnprocessed(ctx, p.maxItems)
	if err != nil {
		return stats, fmt.Errorf("list unprocessed: %w", err)
	}
	p.logger.Info("normalization pass started", "pending", len(pending))
	if len(pending) == 0 {
		return stats, nil
	}

	var bar *progress
	if p.progress != nil {
		bar = newProgress(p.progress, len(pending))
		defer bar.finish()
	}

	limit := rate.Inf
	if p.delay > 0 {
		limit = rate.Every(p.delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	for _, item := range pending {
		if strings.TrimSpace(item.Text) == "" {
			if _, err := p.items.MarkNormalized(ctx, item.Id, ""); err != nil {
				return stats, fmt.Errorf("mark item %d: %w", item.Id, err)
			}
			stats.Skipped++
			if bar != nil {
				bar.increment()
			}
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			return stats, err
		}
		stats.Attempted++

		normalized, err := p.normalize(ctx, item)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.Failed++
			p.logger.Warn("normalization failed, item left unprocessed",
				"id", item.Id, "source", item.SourceID, "item", item.ItemID, "err", err)
		} else {
			if _, err := p.items.MarkNormalized(ctx, item.Id, normalized); err != nil {
				return stats, fmt.Errorf("mark item %d: %w", item.Id, err)
			}
			stats.Normalized++
		}
		if bar != nil {
			bar.increment()
		}
	}

	p.logger.Info("normalization pass finished",
		"normalized", stats.Normalized, "skipped", stats.Skipped, "failed", stats.Failed)
	return stats, nil
}

// Counts reports how many stored items have and have not been normalized.
func (p *Processor) Counts(ctx context.Context) (core.ProcessingCounts, error) {
	return p.items.CountByProcessed(ctx)
}

func (p *Processor) normalize(ctx context.Context, item *core.Item) (string, error) {
	kind := p.kindOf(item)
	var normalized string
	err := retryWithBackoff(ctx, p.logger, func() error {
		var err error
		normalized, err = p.normalizer.Normalize(ctx, item.Text, kind)
		return err
	}, p.maxAttempts, p.retryBaseDelay)
	return normalized, err
}

// kindOf names the source kind of item. Secondary item ids carry the
// pattern name as a prefix ("instagram_<shortcode>").
func (p *Processor) kindOf(item *core.Item) string {
	if item.Kind == core.SourceKindSecondary {
		if name, _, ok := strings.Cut(item.ItemID, "_"); ok && name != "" {
			return name
		}
		return item.Kind.String()
	}
	return p.primaryKind
}
