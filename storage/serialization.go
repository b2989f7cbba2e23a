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



package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/driftnet/core"
)

// Record layout versions. Bumped when a field is added.
const (
	itemRecordVersion   byte = 1
	sourceRecordVersion byte = 1
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return core.ID(v), nil
}

// MarshalItem serializes an Item to bytes.
func MarshalItem(item *core.Item) []byte {
	buf := make([]byte, itemSize(item))
	n := 0
	buf[n] = itemRecordVersion
	n++
	n += varint.Uint64.Marshal(uint64(item.Id), buf[n:])
	n += ord.String.Marshal(item.SourceID, buf[n:])
	n += ord.String.Marshal(item.ItemID, buf[n:])
	n += ord.String.Marshal(item.Text, buf[n:])
	n += varint.Int.Marshal(len(item.Links), buf[n:])
	for _, link := range item.Links {
		n += ord.String.Marshal(link, buf[n:])
	}
	n += ord.Bool.Marshal(item.HasLinks, buf[n:])
	n += varint.Int.Marshal(int(item.Kind), buf[n:])
	n += marshalTime(item.Timestamp, buf[n:])
	n += ord.Bool.Marshal(item.Processed, buf[n:])
	n += ord.String.Marshal(item.NormalizedText, buf[n:])
	n += varint.Uint64.Marshal(uint64(item.ParentID), buf[n:])
	n += ord.String.Marshal(item.Author, buf[n:])
	n += marshalTime(item.InsertedAt, buf[n:])
	marshalTime(item.UpdatedAt, buf[n:])
	return buf
}

func itemSize(item *core.Item) int {
	size := 1
	size += varint.Uint64.Size(uint64(item.Id))
	size += ord.String.Size(item.SourceID)
	size += ord.String.Size(item.ItemID)
	size += ord.String.Size(item.Text)
	size += varint.Int.Size(len(item.Links))
	for _, link := range item.Links {
		size += ord.String.Size(link)
	}
	size += ord.Bool.Size(item.HasLinks)
	size += varint.Int.Size(int(item.Kind))
	size += timeSize(item.Timestamp)
	size += ord.Bool.Size(item.Processed)
	size += ord.String.Size(item.NormalizedText)
	size += varint.Uint64.Size(uint64(item.ParentID))
	size += ord.String.Size(item.Author)
	size += timeSize(item.InsertedAt)
	size += timeSize(item.UpdatedAt)
	return size
}

// UnmarshalItem deserializes an Item from bytes.
func UnmarshalItem(data []byte) (*core.Item, error) {
	d := decoder{bs: data}
	if v := d.version(); d.err == nil && v != itemRecordVersion {
		return nil, fmt.Errorf("%w: unknown item record version %d", ErrSerializationFailed, v)
	}

	item := &core.Item{}
	item.Id = core.ID(d.uint64())
	item.SourceID = d.string()
	item.ItemID = d.string()
	item.Text = d.string()
	count := d.int()
	if d.err == nil && (count < 0 || count > len(data)) {
		return nil, fmt.Errorf("%w: %w: link count %d", ErrSerializationFailed, ErrTruncatedData, count)
	}
	if count > 0 {
		item.Links = make([]string, 0, count)
		for i := 0; i < count && d.err == nil; i++ {
			item.Links = append(item.Links, d.string())
		}
	}
	item.HasLinks = d.bool()
	item.Kind = core.SourceKind(d.int())
	item.Timestamp = d.time()
	item.Processed = d.bool()
	item.NormalizedText = d.string()
	item.ParentID = core.ID(d.uint64())
	item.Author = d.string()
	item.InsertedAt = d.time()
	item.UpdatedAt = d.time()

	if d.err != nil {
		return nil, d.err
	}
	return item, nil
}

// MarshalSource serializes a registry Source to bytes.
func MarshalSource(source *core.Source) []byte {
	size := 1 + ord.String.Size(source.Name) + timeSize(source.AddedAt) + timeSize(source.LastScraped)
	buf := make([]byte, size)
	n := 0
	buf[n] = sourceRecordVersion
	n++
	n += ord.String.Marshal(source.Name, buf[n:])
	n += marshalTime(source.AddedAt, buf[n:])
	marshalTime(source.LastScraped, buf[n:])
	return buf
}

// UnmarshalSource deserializes a registry Source from bytes.
func UnmarshalSource(data []byte) (*core.Source, error) {
	d := decoder{bs: data}
	if v := d.version(); d.err == nil && v != sourceRecordVersion {
		return nil, fmt.Errorf("%w: unknown source record version %d", ErrSerializationFailed, v)
	}
	source := &core.Source{
		Name:        d.string(),
		AddedAt:     d.time(),
		LastScraped: d.time(),
	}
	if d.err != nil {
		return nil, d.err
	}
	return source, nil
}

// Times are stored as microseconds since the Unix epoch. The zero time is
// stored as a flag so it survives the round trip as time.Time{}.
func marshalTime(t time.Time, bs []byte) int {
	if t.IsZero() {
		return ord.Bool.Marshal(false, bs)
	}
	n := ord.Bool.Marshal(true, bs)
	return n + varint.Int64.Marshal(t.UnixMicro(), bs[n:])
}

func timeSize(t time.Time) int {
	if t.IsZero() {
		return ord.Bool.Size(false)
	}
	return ord.Bool.Size(true) + varint.Int64.Size(t.UnixMicro())
}

// decoder reads fields sequentially and keeps the first error.
type decoder struct {
	bs  []byte
	n   int
	err error
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
}

func (d *decoder) version() byte {
	if d.err != nil {
		return 0
	}
	if d.n >= len(d.bs) {
		d.fail(ErrTruncatedData)
		return 0
	}
	v := d.bs[d.n]
	d.n++
	return v
}

func (d *decoder) string() string {
	if d.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(d.bs[d.n:])
	if err != nil {
		d.fail(err)
		return ""
	}
	d.n += n
	return v
}

func (d *decoder) bool() bool {
	if d.err != nil {
		return false
	}
	v, n, err := ord.Bool.Unmarshal(d.bs[d.n:])
	if err != nil {
		d.fail(err)
		return false
	}
	d.n += n
	return v
}

func (d *decoder) int() int {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Int.Unmarshal(d.bs[d.n:])
	if err != nil {
		d.fail(err)
		return 0
	}
	d.n += n
	return v
}

func (d *decoder) uint64() uint64 {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(d.bs[d.n:])
	if err != nil {
		d.fail(err)
		return 0
	}
	d.n += n
	return v
}

func (d *decoder) time() time.Time {
	if !d.bool() {
		return time.Time{}
	}
	v, n, err := varint.Int64.Unmarshal(d.bs[d.n:])
	if err != nil {
		d.fail(err)
		return time.Time{}
	}
	d.n += n
	return time.UnixMicro(v).UTC()
}
