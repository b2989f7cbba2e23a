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


package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	// DefaultIngestInterval is the spacing between ingestion runs.
	DefaultIngestInterval = 168 * time.Hour

	// DefaultNormalizeInterval is the spacing between normalization passes.
	DefaultNormalizeInterval = 24 * time.Hour
)

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

type entry struct {
	name  string
	every time.Duration
	id    cron.EntryID
}

// Scheduler triggers registered jobs on their intervals.
type Scheduler struct {
	cron       *cron.Cron
	logger     *slog.Logger
	runOnStart bool
	stopHooks  []func()

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries []entry
	started bool
	wg      sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler) error

// WithLogger sets the logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithRunOnStart triggers every job once as soon as the scheduler starts.
func WithRunOnStart(enabled bool) Option {
	return func(s *Scheduler) error {
		s.runOnStart = enabled
		return nil
	}
}

// WithStopHook registers fn to be called when Stop begins, before waiting
// for running jobs. Jobs use it to wind down without losing work.
func WithStopHook(fn func()) Option {
	return func(s *Scheduler) error {
		if fn != nil {
			s.stopHooks = append(s.stopHooks, fn)
		}
		return nil
	}
}

// New creates a stopped Scheduler.
func New(opts ...Option) (*Scheduler, error) {
	s := &Scheduler{logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "scheduler")

	cl := &cronLogger{logger: s.logger}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// Add registers job to run every interval. Intervals below one second are
// rounded up to one second.
func (s *Scheduler) Add(name string, every time.Duration, job Job) error {
	if every <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, name)
	}
	if job == nil {
		return fmt.Errorf("%w: %s", ErrJobRequired, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.name == name {
			return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
		}
	}

	id, err := s.cron.AddFunc(fmt.Sprintf("@every %s", every), func() {
		s.run(name, job)
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.entries = append(s.entries, entry{name: name, every: every, id: id})
	s.logger.Info("job scheduled", "job", name, "every", every)
	return nil
}

// Start begins triggering jobs.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.entries))

	if s.runOnStart {
		for _, e := range s.entries {
			wrapped := s.cron.Entry(e.id).WrappedJob
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				wrapped.Run()
			}()
		}
	}
	return nil
}

// NextRuns reports the next trigger time of every registered job.
func (s *Scheduler) NextRuns() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	next := make(map[string]time.Time, len(s.entries))
	for _, e := range s.entries {
		ce := s.cron.Entry(e.id)
		if !ce.Valid() {
			continue
		}
		if ce.Next.IsZero() {
			next[e.name] = ce.Schedule.Next(now)
		} else {
			next[e.name] = ce.Next
		}
	}
	return next
}

// Stop prevents new triggers, runs the stop hooks and waits for running jobs.
// If ctx expires first, running jobs are cancelled and ctx.Err() is returned.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.Info("stopping scheduler")
	cronDone := s.cron.Stop()
	for _, hook := range s.stopHooks {
		hook()
	}

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.cancel()
		s.logger.Warn("scheduler stop timed out, running jobs cancelled")
		return ctx.Err()
	}
}

func (s *Scheduler) run(name string, job Job) {
	if s.ctx.Err() != nil {
		return
	}
	start := time.Now()
	s.logger.Info("job started", "job", name)
	if err := job(s.ctx); err != nil {
		s.logger.Error("job failed", "job", name, "elapsed", time.Since(start), "err", err)
		return
	}
	s.logger.Info("job finished", "job", name, "elapsed", time.Since(start))
}
