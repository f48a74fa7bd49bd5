// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianFold/services/crossval"
)

// ErrRunNotFound is returned by RunStore.Get for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

var (
	runPrefix      = []byte("run/")
	runIndexPrefix = []byte("runidx/")
)

// RunRecord is a completed run as persisted.
type RunRecord struct {
	// Model is the registered model family name.
	Model string `json:"model"`

	// Corpus names the corpus or file the run read.
	Corpus string `json:"corpus"`

	// Result is the full run result.
	Result *crossval.Result `json:"result"`
}

// RunStore persists run history.
//
// Records live under run/<id>. A secondary index runidx/<started>/<id>
// orders them by start time.
type RunStore struct {
	db *DB
}

// NewRunStore returns a RunStore over db.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// Save stores rec. Saving the same run ID twice overwrites the record and
// moves its index entry to the new start time.
func (s *RunStore) Save(ctx context.Context, rec RunRecord) error {
	if rec.Result == nil || rec.Result.RunID == "" {
		return errors.New("run record has no result")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", rec.Result.RunID, err)
	}
	id := rec.Result.RunID

	return s.db.update(ctx, func(txn *badger.Txn) error {
		prev, err := getRun(txn, id)
		switch {
		case err == nil:
			if err := txn.Delete(runIndexKey(prev.Result.StartedAt, id)); err != nil {
				return fmt.Errorf("save run %s: %w", id, err)
			}
		case !errors.Is(err, ErrRunNotFound):
			return fmt.Errorf("save run %s: %w", id, err)
		}
		if err := txn.Set(runKey(id), data); err != nil {
			return fmt.Errorf("save run %s: %w", id, err)
		}
		return txn.Set(runIndexKey(rec.Result.StartedAt, id), nil)
	})
}

// Get returns the run with the given ID.
func (s *RunStore) Get(ctx context.Context, id string) (*RunRecord, error) {
	var rec *RunRecord
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		var err error
		rec, err = getRun(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func getRun(txn *badger.Txn, id string) (*RunRecord, error) {
	item, err := txn.Get(runKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var rec RunRecord
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	if rec.Result == nil {
		return nil, fmt.Errorf("decode run %s: record has no result", id)
	}
	return &rec, nil
}

// List returns up to limit runs, newest first. A limit <= 0 returns all.
// Index entries without a record are skipped.
func (s *RunStore) List(ctx context.Context, limit int) ([]*RunRecord, error) {
	out := []*RunRecord{}
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		opts.Prefix = runIndexPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, runIndexPrefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(runIndexPrefix); it.Next() {
			key := it.Item().Key()
			id := string(key[len(runIndexPrefix)+8+1:])
			rec, err := getRun(txn, id)
			if errors.Is(err, ErrRunNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, rec)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

// Delete removes a run. Deleting an unknown run is not an error.
func (s *RunStore) Delete(ctx context.Context, id string) error {
	return s.db.update(ctx, func(txn *badger.Txn) error {
		rec, err := getRun(txn, id)
		if errors.Is(err, ErrRunNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := txn.Delete(runKey(id)); err != nil {
			return err
		}
		return txn.Delete(runIndexKey(rec.Result.StartedAt, id))
	})
}

func runKey(id string) []byte {
	return append(append([]byte{}, runPrefix...), id...)
}

// runIndexKey is runidx/<8-byte big-endian unix nanos>/<id>.
func runIndexKey(started time.Time, id string) []byte {
	key := make([]byte, 0, len(runIndexPrefix)+8+1+len(id))
	key = append(key, runIndexPrefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(started.UnixNano()))
	key = append(key, '/')
	return append(key, id...)
}
