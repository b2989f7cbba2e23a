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
	"fmt"
	"io"
	"sync"
	"time"
)

// progress prints a single updating progress line for a normalization pass.
type progress struct {
	writer    io.Writer
	total     int
	current   int
	startTime time.Time
	mu        sync.Mutex
}

func newProgress(writer io.Writer, total int) *progress {
	return &progress{writer: writer, total: total, startTime: time.Now()}
}

func (p *progress) increment() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current < p.total {
		p.current++
	}
	p.report()
}

func (p *progress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.report()
	fmt.Fprintln(p.writer)
}

// report must be called with the lock held.
func (p *progress) report() {
	elapsed := time.Since(p.startTime).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.current) / elapsed
	}
	percentage := 100.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}
	fmt.Fprintf(p.writer, "\rNormalized: %d/%d (%.1f%%) - %.1f items/s",
		p.current, p.total, percentage, rate)
}
