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
	"time"
)

// RawItem is one unprocessed item as returned by a source.
type RawItem struct {
	ID        string
	Text      string
	Timestamp time.Time
}

// Page is one read from a source.
type Page struct {
	Items []RawItem
	Next  string // Cursor for the following page
	Done  bool   // No more items after this page
}

// SourceClient performs a single network read against a primary source.
// Implementations classify failures as *ThrottledError, *TransientError or
// *FatalError; anything else is treated as transient.
type SourceClient interface {
	// FetchPage returns up to limit items starting at cursor. An empty cursor
	// means the most recent items.
	FetchPage(ctx context.Context, source, cursor string, limit int) (*Page, error)
}
