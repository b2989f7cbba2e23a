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



package expand

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/driftnet/core"
	"golang.org/x/time/rate"
)

// DefaultDelay is the minimum spacing between secondary fetches.
const DefaultDelay = 2 * time.Second

// Post is the content extracted from a secondary page.
type Post struct {
	URL             string
	PrimaryText     string
	RichDescription string
	AuthorHandle    string
	Published       time.Time
}

// SecondaryFetcher retrieves and parses a secondary page.
type SecondaryFetcher interface {
	FetchPost(ctx context.Context, url string) (*Post, error)
}

// Match is a link recognized by a pattern.
type Match struct {
	URL     string
	Pattern string
	ItemID  string
}

// Expander turns matching links into secondary items.
type Expander struct {
	fetcher  SecondaryFetcher
	patterns []Pattern
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// Option configures an Expander.
type Option func(*Expander) error

// WithPatterns replaces the secondary patterns.
// Default is DefaultPatterns().
func WithPatterns(patterns ...Pattern) Option {
	return func(e *Expander) error {
		for _, p := range patterns {
			if p.Name == "" || p.Regexp == nil {
				return fmt.Errorf("invalid pattern %q", p.Name)
			}
		}
		e.patterns = patterns
		return nil
	}
}

// WithDelay sets the minimum spacing between fetches. Zero disables pacing.
// Default is 2s.
func WithDelay(d time.Duration) Option {
	return func(e *Expander) error {
		if d < 0 {
			return fmt.Errorf("invalid expansion delay %s", d)
		}
		e.limiter = newLimiter(d)
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Expander) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// New creates an Expander around fetcher.
func New(fetcher SecondaryFetcher, opts ...Option) (*Expander, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	e := &Expander{
		fetcher:  fetcher,
		patterns: DefaultPatterns(),
		limiter:  newLimiter(DefaultDelay),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "expander")
	return e, nil
}

func newLimiter(d time.Duration) *rate.Limiter {
	if d == 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// Match returns the pattern match for url, if any.
func (e *Expander) Match(url string) (Match, bool) {
	for _, p := range e.patterns {
		if id, ok := p.ItemID(url); ok {
			return Match{URL: url, Pattern: p.Name, ItemID: id}, true
		}
	}
	return Match{}, false
}

// Partition returns the links that match a secondary pattern, in order.
func (e *Expander) Partition(links []string) []Match {
	var matches []Match
	for _, link := range links {
		if m, ok := e.Match(link); ok {
			matches = append(matches, m)
		}
	}
	return matches
}

// Expand fetches url and builds the secondary item derived from parent.
// Returns *SecondaryFetchError when the page cannot be fetched and
// ErrValidation when it carries no primary text.
func (e *Expander) Expand(ctx context.Context, url string, parent *core.Item) (*core.Item, error) {
	if parent == nil {
		return nil, ErrParentRequired
	}
	match, ok := e.Match(url)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoPattern, url)
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	post, err := e.fetcher.FetchPost(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &SecondaryFetchError{URL: url, Err: err}
	}
	if post == nil {
		return nil, fmt.Errorf("%w: %s: no post", ErrValidation, url)
	}

	text := composeText(post)
	if text == "" {
		return nil, fmt.Errorf("%w: %s: empty primary text", ErrValidation, url)
	}

	item := &core.Item{
		SourceID:  parent.SourceID,
		ItemID:    match.ItemID,
		Text:      text,
		Kind:      core.SourceKindSecondary,
		Timestamp: post.Published,
		ParentID:  parent.Key().ID(),
		Author:    post.AuthorHandle,
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = parent.Timestamp
	}
	item.SetLinks([]string{url})

	e.logger.Debug("secondary expanded", "url", url, "item", item.ItemID, "parent", parent.ItemID)
	return item, nil
}

// composeText joins the primary text and rich description, skipping a
// description that repeats the primary text.
func composeText(post *Post) string {
	primary := strings.TrimSpace(post.PrimaryText)
	if primary == "" {
		return ""
	}
	desc := strings.TrimSpace(post.RichDescription)
	if desc == "" || desc == primary {
		return primary
	}
	return primary + "\n\n" + desc
}
