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


package badger

import (
	"context"
	"encoding/binary"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// HistoryRepository implements storage.HistoryRepository for BadgerDB.
// Appends for a single user must be serialized by the caller; the
// sequence counter is read and rewritten inside one transaction.
type HistoryRepository struct {
	backend *Backend
}

var _ storage.HistoryRepository = (*HistoryRepository)(nil)

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(backend *Backend) (*HistoryRepository, error) {
	return &HistoryRepository{backend: backend}, nil
}

// Close is a no-op; the backend owns the database handle.
func (r *HistoryRepository) Close() error {
	return nil
}

// EnsureUser records that a user exists, without requiring any messages.
func (r *HistoryRepository) EnsureUser(ctx context.Context, username string) error {
	if username == "" {
		return core.ErrEmptyUsername
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeUserKey(username), []byte{}); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// AppendMessages appends records to the end of a user's log.
func (r *HistoryRepository) AppendMessages(ctx context.Context, username string, records ...*core.MemoryRecord) error {
	if username == "" {
		return core.ErrEmptyUsername
	}
	if len(records) == 0 {
		return nil
	}
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	for _, record := range records {
		if err := core.ValidateMemoryRecord(record); err != nil {
			return err
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeUserKey(username), []byte{}); err != nil {
			return err
		}

		seq, err := r.readSequence(tx, username)
		if err != nil {
			return err
		}

		for _, record := range records {
			key := makeMessageKey(username, seq)
			value := storage.MarshalMemoryRecord(record)
			if err := tx.Set(key, value); err != nil {
				return err
			}
			seq++
		}

		var seqBytes [8]byte
		binary.BigEndian.PutUint64(seqBytes[:], seq)
		if err := tx.Set(makeMessageCountKey(username), seqBytes[:]); err != nil {
			return err
		}

		return tx.Commit()
	}, true)
}

// UserMessages returns a user's full log in append order.
// Returns storage.ErrNotFound for unknown users.
func (r *HistoryRepository) UserMessages(ctx context.Context, username string) ([]*core.MemoryRecord, error) {
	if username == "" {
		return nil, core.ErrEmptyUsername
	}

	var records []*core.MemoryRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := tx.Get(makeUserKey(username)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeMessagePrefix(username)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var record *core.MemoryRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalMemoryRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return records, nil
}

// Usernames returns all known users.
func (r *HistoryRepository) Usernames(ctx context.Context) ([]string, error) {
	var usernames []string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(userRecordPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefixLen := len(userRecordPrefix)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < prefixLen+4 {
				continue
			}
			usernames = append(usernames, string(key[prefixLen+4:]))
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return usernames, nil
}

// readSequence returns the next sequence number for a user's log.
func (r *HistoryRepository) readSequence(tx *badger.Txn, username string) (uint64, error) {
	item, err := tx.Get(makeMessageCountKey(username))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}

	var seq uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return storage.ErrTruncatedData
		}
		seq = binary.BigEndian.Uint64(val)
		return nil
	})
	return seq, err
}
