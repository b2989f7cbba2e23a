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



package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"
)

const (
	// DefaultMaxAttempts is the total number of attempts for transient failures.
	DefaultMaxAttempts = 3
	// DefaultBaseDelay is the first backoff delay; it doubles on each retry.
	DefaultBaseDelay = time.Second
	// DefaultOverFetch multiplies maxItems to bound how many raw items are examined.
	DefaultOverFetch = 2
	// DefaultMaxThrottleWaits caps consecutive throttle waits for one request.
	DefaultMaxThrottleWaits = 10
	// DefaultThrottleWait is used when a source throttles without a hint.
	DefaultThrottleWait = 30 * time.Second
)

// Fetcher retrieves raw items from a SourceClient, absorbing throttling and transient failures.
type Fetcher struct {
	client           SourceClient
	maxAttempts      int
	baseDelay        time.Duration
	jitter           float64
	overFetch        int
	maxThrottleWaits int
	throttleWait     time.Duration
	sleep            func(ctx context.Context, d time.Duration) error
	logger           *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher) error

// WithMaxAttempts sets the total attempts for transient failures.
// Default is 3.
func WithMaxAttempts(n int) Option {
	return func(f *Fetcher) error {
		if n < 1 {
			return fmt.Errorf("%w: max attempts %d", ErrInvalidOption, n)
		}
		f.maxAttempts = n
		return nil
	}
}

// WithBaseDelay sets the first retry delay.
// Default is 1s.
func WithBaseDelay(d time.Duration) Option {
	return func(f *Fetcher) error {
		if d < 0 {
			return fmt.Errorf("%w: base delay %s", ErrInvalidOption, d)
		}
		f.baseDelay = d
		return nil
	}
}

// WithJitter adds up to fraction × delay of random extra wait to each backoff.
// Default is 0.
func WithJitter(fraction float64) Option {
	return func(f *Fetcher) error {
		if fraction < 0 || fraction > 1 {
			return fmt.Errorf("%w: jitter %v", ErrInvalidOption, fraction)
		}
		f.jitter = fraction
		return nil
	}
}

// WithOverFetch sets the raw-item budget multiplier.
// Default is 2.
func WithOverFetch(factor int) Option {
	return func(f *Fetcher) error {
		if factor < 1 {
			return fmt.Errorf("%w: over-fetch %d", ErrInvalidOption, factor)
		}
		f.overFetch = factor
		return nil
	}
}

// WithMaxThrottleWaits caps how many throttle waits a single request may take.
// Default is 10.
func WithMaxThrottleWaits(n int) Option {
	return func(f *Fetcher) error {
		if n < 0 {
			return fmt.Errorf("%w: max throttle waits %d", ErrInvalidOption, n)
		}
		f.maxThrottleWaits = n
		return nil
	}
}

// WithThrottleWait sets the wait used when a throttle response has no RetryAfter.
// Default is 30s.
func WithThrottleWait(d time.Duration) Option {
	return func(f *Fetcher) error {
		if d < 0 {
			return fmt.Errorf("%w: throttle wait %s", ErrInvalidOption, d)
		}
		f.throttleWait = d
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		f.logger = logger
		return nil
	}
}

// NewFetcher creates a Fetcher around client.
func NewFetcher(client SourceClient, opts ...Option) (*Fetcher, error) {
	if client == nil {
		return nil, ErrClientRequired
	}

	f := &Fetcher{
		client:           client,
		maxAttempts:      DefaultMaxAttempts,
		baseDelay:        DefaultBaseDelay,
		overFetch:        DefaultOverFetch,
		maxThrottleWaits: DefaultMaxThrottleWaits,
		throttleWait:     DefaultThrottleWait,
		sleep:            sleepContext,
		logger:           slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	f.logger = f.logger.With("component", "fetcher")

	return f, nil
}

// Fetch returns up to maxItems raw items with non-empty text, in source order,
// starting at cursor. It examines at most maxItems × OverFetch raw items.
func (f *Fetcher) Fetch(ctx context.Context, source, cursor string, maxItems int) ([]RawItem, error) {
	if maxItems <= 0 {
		return nil, nil
	}

	budget := maxItems * f.overFetch
	examined := 0
	var kept []RawItem

	for examined < budget {
		page, err := f.fetchPage(ctx, source, cursor, budget-examined)
		if err != nil {
			return nil, err
		}

		for _, raw := range page.Items {
			if examined >= budget {
				break
			}
			examined++
			if strings.TrimSpace(raw.Text) == "" {
				continue
			}
			kept = append(kept, raw)
			if len(kept) == maxItems {
				return kept, nil
			}
		}

		if page.Done || len(page.Items) == 0 || page.Next == "" || page.Next == cursor {
			break
		}
		cursor = page.Next
	}

	f.logger.Debug("fetch finished", "source", source, "kept", len(kept), "examined", examined)
	return kept, nil
}

// fetchPage performs one logical read, retrying per the error class.
func (f *Fetcher) fetchPage(ctx context.Context, source, cursor string, limit int) (*Page, error) {
	attempt := 0
	throttles := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := f.client.FetchPage(ctx, source, cursor, limit)
		if err == nil {
			if page == nil {
				page = &Page{Done: true}
			}
			if attempt > 0 || throttles > 0 {
				f.logger.Debug("fetch succeeded after retry", "source", source, "attempt", attempt+1, "throttles", throttles)
			}
			return page, nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		var fatal *FatalError
		if errors.As(err, &fatal) {
			return nil, err
		}

		var throttled *ThrottledError
		if errors.As(err, &throttled) {
			throttles++
			if throttles > f.maxThrottleWaits {
				return nil, fmt.Errorf("%w: %s: %w", ErrThrottleLimit, source, err)
			}
			wait := throttled.RetryAfter
			if wait <= 0 {
				wait = f.throttleWait
			}
			f.logger.Warn("source throttled, waiting", "source", source, "wait", wait, "throttles", throttles)
			if err := f.sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		attempt++
		if attempt >= f.maxAttempts {
			return nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrRetriesExhausted, source, attempt, err)
		}

		delay := f.backoff(attempt - 1)
		f.logger.Debug("fetch failed, will retry", "source", source, "attempt", attempt, "maxAttempts", f.maxAttempts, "delay", delay, "err", err)
		if err := f.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// backoff returns baseDelay × 2^n plus jitter.
func (f *Fetcher) backoff(n int) time.Duration {
	delay := f.baseDelay << n
	if f.jitter > 0 && delay > 0 {
		delay += time.Duration(rand.Int64N(int64(float64(delay)*f.jitter) + 1))
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
