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



package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored items.
// It is derived from content so the same logical item always maps to the same ID.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ItemIDFor returns the stable ID for the item identified by (sourceID, itemID).
func ItemIDFor(sourceID, itemID string) ID {
	return IDFromContent(sourceID + "\x00" + itemID)
}

// SourceKind distinguishes directly scraped items from ones derived via link expansion.
type SourceKind int

const (
	// SourceKindPrimary is an item scraped directly from a source.
	SourceKindPrimary SourceKind = iota + 1
	// SourceKindSecondary is an item synthesized from a link found in a primary item.
	SourceKindSecondary
)

// String returns the lowercase name of the kind.
func (k SourceKind) String() string {
	switch k {
	case SourceKindPrimary:
		return "primary"
	case SourceKindSecondary:
		return "secondary"
	default:
		return "unknown"
	}
}

// Item is one unit of scraped or derived content.
type Item struct {
	Id             ID
	SourceID       string     // Owning source's stable identifier
	ItemID         string     // Unique within the source
	Text           string     // May be empty
	Links          []string   // Deduplicated, in order of first appearance
	HasLinks       bool       // len(Links) > 0, stored for query efficiency
	Kind           SourceKind
	Timestamp      time.Time  // When the item originated at its source
	Processed      bool       // Set only by the normalizer
	NormalizedText string     // Set only by the normalizer
	ParentID       ID         // Primary item that referenced a secondary item (0 for primary items)
	Author         string     // Author handle reported by the secondary source, if any
	InsertedAt     time.Time  // When the record was inserted into the database
	UpdatedAt      time.Time  // When the record was last updated
}

// Key returns the composite (SourceID, ItemID) key of the item.
func (i *Item) Key() ItemKey {
	return ItemKey{SourceID: i.SourceID, ItemID: i.ItemID}
}

// SetLinks replaces the item's links and keeps HasLinks consistent.
func (i *Item) SetLinks(links []string) {
	i.Links = links
	i.HasLinks = len(links) > 0
}

// ItemKey is the unique composite key of an item in the store.
type ItemKey struct {
	SourceID string
	ItemID   string
}

// ID returns the stable ID derived from the key.
func (k ItemKey) ID() ID {
	return ItemIDFor(k.SourceID, k.ItemID)
}

// Source is a registered channel in the source registry.
type Source struct {
	Name        string
	AddedAt     time.Time
	LastScraped time.Time // Zero if never scraped
}

// ProcessingCounts reports how many items have and have not been normalized.
type ProcessingCounts struct {
	Total       int
	Processed   int
	Unprocessed int
}
