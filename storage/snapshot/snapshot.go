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


// Package snapshot reads and writes whole-store snapshots of the
// username-to-log mapping as a single versioned file.
//
// File layout:
//
//	magic   4 bytes "RCLS"
//	version 1 byte
//	users   varint.Int count, then per user:
//	          username ord.String
//	          records  varint.Int count, then mus-encoded records
//
// Embeddings and index positions are not part of the file; the memory
// store rebuilds every user's index by re-embedding after a load.
package snapshot

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

const formatVersion byte = 1

var magic = []byte("RCLS")

// Save serializes the complete username-to-log mapping to a single file at
// path. The write is atomic: a temporary file is renamed over the target,
// so a crash mid-save never leaves a half-written snapshot behind.
func Save(path string, users map[string][]*core.MemoryRecord) error {
	size := len(magic) + 1 + varint.Int.Size(len(users))

	usernames := make([]string, 0, len(users))
	for username := range users {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)

	for _, username := range usernames {
		size += ord.String.Size(username)
		size += varint.Int.Size(len(users[username]))
		for _, record := range users[username] {
			size += storage.SizeMemoryRecord(record)
		}
	}

	buf := make([]byte, size)
	n := copy(buf, magic)
	buf[n] = formatVersion
	n++
	n += varint.Int.Marshal(len(users), buf[n:])
	for _, username := range usernames {
		n += ord.String.Marshal(username, buf[n:])
		n += varint.Int.Marshal(len(users[username]), buf[n:])
		for _, record := range users[username] {
			n += storage.MarshalMemoryRecordTo(record, buf[n:])
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}

	slog.Debug("snapshot saved", "path", path, "users", len(users), "bytes", size)
	return nil
}

// Load deserializes a snapshot back into a username-to-log mapping.
// A nonexistent path is not an error and yields an empty mapping. A file
// that cannot be parsed returns an error wrapping storage.ErrCorruptSnapshot;
// callers fall back to an empty in-memory state so the process can still
// start, but the failure is never silent.
func Load(path string) (map[string][]*core.MemoryRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("no snapshot file, starting empty", "path", path)
			return map[string][]*core.MemoryRecord{}, nil
		}
		return nil, err
	}

	if len(data) < len(magic)+1 {
		return nil, fmt.Errorf("%w: file too short (%d bytes)", storage.ErrCorruptSnapshot, len(data))
	}
	for i := range magic {
		if data[i] != magic[i] {
			return nil, fmt.Errorf("%w: bad magic", storage.ErrCorruptSnapshot)
		}
	}
	n := len(magic)
	if data[n] != formatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", storage.ErrCorruptSnapshot, data[n])
	}
	n++

	userCount, n1, err := varint.Int.Unmarshal(data[n:])
	n += n1
	if err != nil || userCount < 0 {
		return nil, fmt.Errorf("%w: user count: %v", storage.ErrCorruptSnapshot, err)
	}

	users := make(map[string][]*core.MemoryRecord, userCount)
	for i := 0; i < userCount; i++ {
		username, n1, err := ord.String.Unmarshal(data[n:])
		n += n1
		if err != nil {
			return nil, fmt.Errorf("%w: username %d: %v", storage.ErrCorruptSnapshot, i, err)
		}

		recordCount, n1, err := varint.Int.Unmarshal(data[n:])
		n += n1
		if err != nil || recordCount < 0 {
			return nil, fmt.Errorf("%w: record count for %q: %v", storage.ErrCorruptSnapshot, username, err)
		}

		records := make([]*core.MemoryRecord, 0, recordCount)
		for j := 0; j < recordCount; j++ {
			record, n1, err := storage.UnmarshalMemoryRecordFrom(data[n:])
			n += n1
			if err != nil {
				return nil, fmt.Errorf("%w: record %d for %q: %v", storage.ErrCorruptSnapshot, j, username, err)
			}
			records = append(records, record)
		}
		users[username] = records
	}

	if n != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", storage.ErrCorruptSnapshot, len(data)-n)
	}

	slog.Debug("snapshot loaded", "path", path, "users", len(users))
	return users, nil
}
