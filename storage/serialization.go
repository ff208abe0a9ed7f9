// Copyright 2025 Poiesic Systems
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
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/suggestit/core"
)

// recordVersion prefixes every encoded record.
const recordVersion uint64 = 1

// writer appends MUS-encoded fields to a growing buffer.
type writer struct {
	bs []byte
}

func (w *writer) grow(n int) []byte {
	l := len(w.bs)
	w.bs = slices.Grow(w.bs, n)[:l+n]
	return w.bs[l:]
}

func (w *writer) uint64(v uint64) {
	varint.Uint64.Marshal(v, w.grow(varint.Uint64.Size(v)))
}

func (w *writer) int64(v int64) {
	varint.Int64.Marshal(v, w.grow(varint.Int64.Size(v)))
}

func (w *writer) float64(v float64) {
	raw.Float64.Marshal(v, w.grow(raw.Float64.Size(v)))
}

func (w *writer) string(v string) {
	ord.String.Marshal(v, w.grow(ord.String.Size(v)))
}

func (w *writer) bool(v bool) {
	ord.Bool.Marshal(v, w.grow(ord.Bool.Size(v)))
}

func (w *writer) strings(v []string) {
	w.uint64(uint64(len(v)))
	for _, s := range v {
		w.string(s)
	}
}

// Timestamps are stored as Unix microseconds.
func (w *writer) time(v time.Time) {
	w.int64(v.UnixMicro())
}

// reader consumes MUS-encoded fields. The first error sticks and every later
// read returns a zero value.
type reader struct {
	bs  []byte
	err error
}

func (r *reader) uint64() uint64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(r.bs)
	return advance(r, v, n, err)
}

func (r *reader) int64() int64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(r.bs)
	return advance(r, v, n, err)
}

func (r *reader) float64() float64 {
	if r.err != nil {
		return 0
	}
	v, n, err := raw.Float64.Unmarshal(r.bs)
	return advance(r, v, n, err)
}

func (r *reader) string() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.bs)
	return advance(r, v, n, err)
}

func (r *reader) bool() bool {
	if r.err != nil {
		return false
	}
	v, n, err := ord.Bool.Unmarshal(r.bs)
	return advance(r, v, n, err)
}

func (r *reader) strings() []string {
	count := r.uint64()
	if r.err != nil || count == 0 {
		return nil
	}
	if count > uint64(len(r.bs)) {
		r.err = ErrTruncatedData
		return nil
	}
	out := make([]string, 0, count)
	for range count {
		out = append(out, r.string())
	}
	return out
}

func (r *reader) time() time.Time {
	return time.UnixMicro(r.int64()).UTC()
}

func (r *reader) header() {
	if v := r.uint64(); r.err == nil && v != recordVersion {
		r.err = fmt.Errorf("%w: %d", ErrUnknownVersion, v)
	}
}

func (r *reader) done() error {
	if r.err != nil {
		return fmt.Errorf("%w: %w", ErrSerializationFailed, r.err)
	}
	return nil
}

func advance[T any](r *reader, v T, n int, err error) T {
	if err != nil {
		r.err = err
		var zero T
		return zero
	}
	r.bs = r.bs[n:]
	return v
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return core.ID(id), nil
}

// MarshalInteraction serializes an Interaction to bytes.
func MarshalInteraction(in *core.Interaction) []byte {
	w := &writer{}
	w.uint64(recordVersion)
	w.uint64(uint64(in.Id))
	w.string(in.UserID)
	w.string(in.Query)
	w.strings(in.Suggestions)
	w.string(in.Selected)
	w.int64(int64(in.Rating))
	w.string(in.Location)
	w.string(in.Variant)
	w.time(in.Timestamp)
	w.time(in.UpdatedAt)
	return w.bs
}

// UnmarshalInteraction deserializes an Interaction from bytes.
func UnmarshalInteraction(data []byte) (*core.Interaction, error) {
	r := &reader{bs: data}
	r.header()
	in := &core.Interaction{
		Id:          core.ID(r.uint64()),
		UserID:      r.string(),
		Query:       r.string(),
		Suggestions: r.strings(),
		Selected:    r.string(),
		Rating:      int(r.int64()),
		Location:    r.string(),
		Variant:     r.string(),
		Timestamp:   r.time(),
		UpdatedAt:   r.time(),
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return in, nil
}

// MarshalManualRecord serializes a ManualRecord to bytes.
func MarshalManualRecord(record *core.ManualRecord) []byte {
	w := &writer{}
	w.uint64(recordVersion)
	w.uint64(uint64(record.Id))
	w.uint64(uint64(record.ContentId))
	w.string(string(record.Kind))
	w.string(record.Content.Name)
	w.string(record.Content.Location)
	w.float64(record.Content.Rating)
	w.string(record.Content.Base)
	w.strings(record.Content.Terms)
	w.string(record.Content.Term)
	w.string(record.AddedBy)
	w.bool(record.Active)
	w.time(record.InsertedAt)
	return w.bs
}

// UnmarshalManualRecord deserializes a ManualRecord from bytes.
func UnmarshalManualRecord(data []byte) (*core.ManualRecord, error) {
	r := &reader{bs: data}
	r.header()
	record := &core.ManualRecord{
		Id:        core.ID(r.uint64()),
		ContentId: core.ContentID(r.uint64()),
		Kind:      core.ManualKind(r.string()),
		Content: core.ManualContent{
			Name:     r.string(),
			Location: r.string(),
			Rating:   r.float64(),
			Base:     r.string(),
			Terms:    r.strings(),
			Term:     r.string(),
		},
		AddedBy:    r.string(),
		Active:     r.bool(),
		InsertedAt: r.time(),
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return record, nil
}

// MarshalEvent serializes an Event to bytes.
func MarshalEvent(event *core.Event) []byte {
	w := &writer{}
	w.uint64(recordVersion)
	w.uint64(uint64(event.Id))
	w.string(event.UserID)
	w.string(event.Type)
	w.string(event.Payload)
	w.time(event.Timestamp)
	return w.bs
}

// UnmarshalEvent deserializes an Event from bytes.
func UnmarshalEvent(data []byte) (*core.Event, error) {
	r := &reader{bs: data}
	r.header()
	event := &core.Event{
		Id:        core.ID(r.uint64()),
		UserID:    r.string(),
		Type:      r.string(),
		Payload:   r.string(),
		Timestamp: r.time(),
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return event, nil
}
