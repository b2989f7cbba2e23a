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


package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/driftnet/ai"
)

// MockNormalizer is a test double for ai.Normalizer.
// By default it collapses whitespace and prefixes the source kind.
type MockNormalizer struct {
	NormalizeFunc func(ctx context.Context, text, sourceKind string) (string, error)

	mu    sync.Mutex
	calls []string
}

var _ ai.Normalizer = (*MockNormalizer)(nil)

// NewMockNormalizer creates a mock normalizer with default behavior.
func NewMockNormalizer() *MockNormalizer {
	return &MockNormalizer{}
}

// WithNormalizeFunc sets custom behavior for Normalize.
func (m *MockNormalizer) WithNormalizeFunc(fn func(ctx context.Context, text, sourceKind string) (string, error)) *MockNormalizer {
	m.NormalizeFunc = fn
	return m
}

// Normalize records the call and returns the configured result.
func (m *MockNormalizer) Normalize(ctx context.Context, text, sourceKind string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, text)
	m.mu.Unlock()

	if m.NormalizeFunc != nil {
		return m.NormalizeFunc(ctx, text, sourceKind)
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", ai.ErrEmptyInput
	}
	return sourceKind + ": " + strings.Join(fields, " "), nil
}

// CallCount returns the number of times Normalize was called.
func (m *MockNormalizer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns the texts passed to Normalize, in call order.
func (m *MockNormalizer) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Reset clears recorded calls.
func (m *MockNormalizer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
