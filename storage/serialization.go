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
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/recall/core"
)

// Record wire layout (mus-go, in order):
//
//	Id        ord.String
//	Role      varint.Int
//	Text      ord.String
//	Timestamp raw.Int64 (UnixMicro, UTC)
//
// IndexPos is deliberately absent: index positions are a derived
// projection and are rederived when the vector index is rebuilt.

// SizeMemoryRecord returns the encoded size of a record in bytes.
func SizeMemoryRecord(record *core.MemoryRecord) int {
	return ord.String.Size(record.Id) +
		varint.Int.Size(int(record.Role)) +
		ord.String.Size(record.Text) +
		raw.Int64.Size(record.Timestamp.UnixMicro())
}

// MarshalMemoryRecordTo encodes a record into bs and returns the number of
// bytes written. bs must have at least SizeMemoryRecord(record) capacity.
func MarshalMemoryRecordTo(record *core.MemoryRecord, bs []byte) int {
	n := ord.String.Marshal(record.Id, bs)
	n += varint.Int.Marshal(int(record.Role), bs[n:])
	n += ord.String.Marshal(record.Text, bs[n:])
	n += raw.Int64.Marshal(record.Timestamp.UnixMicro(), bs[n:])
	return n
}

// UnmarshalMemoryRecordFrom decodes a record from the start of bs. Returns
// the record, the number of bytes consumed, and any decode error.
func UnmarshalMemoryRecordFrom(bs []byte) (*core.MemoryRecord, int, error) {
	id, n, err := ord.String.Unmarshal(bs)
	if err != nil {
		return nil, n, fmt.Errorf("%w: id: %w", ErrSerializationFailed, err)
	}

	role, n1, err := varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return nil, n, fmt.Errorf("%w: role: %w", ErrSerializationFailed, err)
	}

	text, n1, err := ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return nil, n, fmt.Errorf("%w: text: %w", ErrSerializationFailed, err)
	}

	micros, n1, err := raw.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return nil, n, fmt.Errorf("%w: timestamp: %w", ErrSerializationFailed, err)
	}

	return &core.MemoryRecord{
		Id:        id,
		Role:      core.Role(role),
		Text:      text,
		Timestamp: time.UnixMicro(micros).UTC(),
		IndexPos:  core.NoIndexPos,
	}, n, nil
}

// MarshalMemoryRecord serializes a MemoryRecord to a new byte slice.
func MarshalMemoryRecord(record *core.MemoryRecord) []byte {
	buf := make([]byte, SizeMemoryRecord(record))
	MarshalMemoryRecordTo(record, buf)
	return buf
}

// UnmarshalMemoryRecord deserializes a MemoryRecord from bytes.
// Trailing bytes beyond the record are treated as corruption.
func UnmarshalMemoryRecord(data []byte) (*core.MemoryRecord, error) {
	record, n, err := UnmarshalMemoryRecordFrom(data)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, len(data)-n)
	}
	return record, nil
}
