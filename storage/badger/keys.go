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



package badger

import (
	"encoding/binary"
	"time"

	"github.com/poiesic/driftnet/core"
)

// Key prefixes for different data types
const (
	itemRecordPrefix      = "itmrec:"
	itemUnprocessedPrefix = "itmunp:"
	itemLinksPrefix       = "itmlnk:"
	sourceRecordPrefix    = "srcrec:"
)

// makeItemKey generates a key for an item record by ID.
func makeItemKey(id core.ID) []byte {
	buf := make([]byte, len(itemRecordPrefix)+8)
	offset := copy(buf, itemRecordPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeTimeIndexKey generates a composite key for a time-ordered index.
// Format: prefix:timestamp:id
func makeTimeIndexKey(prefix string, timestamp time.Time, id core.ID) []byte {
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], sortableMicros(timestamp))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// idFromIndexKey extracts the trailing item ID from a time index key.
func idFromIndexKey(key []byte) (core.ID, bool) {
	if len(key) < 8 {
		return 0, false
	}
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:])), true
}

// sortableMicros flips the sign bit so pre-epoch times still sort before later ones.
func sortableMicros(t time.Time) uint64 {
	return uint64(t.UnixMicro()) ^ (1 << 63)
}

// makeSourceKey generates a key for a registry source by name.
func makeSourceKey(name string) []byte {
	return []byte(sourceRecordPrefix + name)
}
