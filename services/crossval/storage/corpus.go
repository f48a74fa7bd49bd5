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
	"io"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianFold/services/crossval/cverrors"
	"github.com/AleutianAI/AleutianFold/services/crossval/sample"
)

// importBatch is the number of samples written per batch during Import.
const importBatch = 1000

// ErrInvalidCorpusName is returned for empty names or names containing '/'.
var ErrInvalidCorpusName = errors.New("invalid corpus name")

// Codec converts samples to and from their stored form.
type Codec[T any] interface {
	Marshal(v T) ([]byte, error)
	Unmarshal(data []byte) (T, error)
}

// JSONCodec stores samples as JSON.
type JSONCodec[T any] struct{}

// Marshal implements Codec.
func (JSONCodec[T]) Marshal(v T) ([]byte, error) { return json.Marshal(v) }

// Unmarshal implements Codec.
func (JSONCodec[T]) Unmarshal(data []byte) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}

// Corpus is a named, append-only, ordered sample collection. It implements
// sample.Source and is restartable: each Open starts a fresh read-only
// iterator, so only the current sample is decoded at any time.
//
// Thread Safety: Append and Import serialize on an internal mutex. Open is
// safe to call concurrently with other Opens.
type Corpus[T any] struct {
	db     *DB
	codec  Codec[T]
	name   string
	prefix []byte

	mu sync.Mutex
	n  uint64
}

// NewCorpus opens the corpus called name in db, creating it when absent.
// A nil codec selects JSONCodec.
func NewCorpus[T any](ctx context.Context, db *DB, name string, codec Codec[T]) (*Corpus[T], error) {
	if name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCorpusName, name)
	}
	if codec == nil {
		codec = JSONCodec[T]{}
	}
	c := &Corpus[T]{
		db:     db,
		codec:  codec,
		name:   name,
		prefix: []byte("corpus/" + name + "/s/"),
	}

	err := db.view(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(c.countKey())
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corpus %s: corrupt sample count", name)
			}
			c.n = binary.BigEndian.Uint64(val)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load corpus %s: %w", name, err)
	}
	return c, nil
}

// Name returns the corpus name.
func (c *Corpus[T]) Name() string { return c.name }

// Len returns the number of stored samples.
func (c *Corpus[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int(c.n)
}

// Restartable implements sample.Restartable.
func (c *Corpus[T]) Restartable() bool { return true }

func (c *Corpus[T]) countKey() []byte {
	return []byte("corpus/" + c.name + "/n")
}

func (c *Corpus[T]) sampleKey(pos uint64) []byte {
	key := make([]byte, len(c.prefix)+8)
	copy(key, c.prefix)
	binary.BigEndian.PutUint64(key[len(c.prefix):], pos)
	return key
}

// Append stores samples after the current last position.
func (c *Corpus[T]) Append(ctx context.Context, samples ...T) error {
	if len(samples) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	encoded := make([][]byte, len(samples))
	for i, s := range samples {
		data, err := c.codec.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode sample %d: %w", c.n+uint64(i), err)
		}
		encoded[i] = data
	}

	next := c.n
	err := c.db.update(ctx, func(txn *badger.Txn) error {
		for _, data := range encoded {
			if err := txn.Set(c.sampleKey(next), data); err != nil {
				return err
			}
			next++
		}
		var count [8]byte
		binary.BigEndian.PutUint64(count[:], next)
		return txn.Set(c.countKey(), count[:])
	})
	if err != nil {
		return fmt.Errorf("append to corpus %s: %w", c.name, err)
	}
	c.n = next
	return nil
}

// Import appends a full pass of src and returns the number of samples read.
func (c *Corpus[T]) Import(ctx context.Context, src sample.Source[T]) (int, error) {
	batch := make([]T, 0, importBatch)
	total := 0

	err := sample.Each(ctx, src, func(v T) error {
		batch = append(batch, v)
		if len(batch) < importBatch {
			return nil
		}
		if err := c.Append(ctx, batch...); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	})
	if err != nil {
		return total, err
	}
	if err := c.Append(ctx, batch...); err != nil {
		return total, err
	}
	return total + len(batch), nil
}

// Drop deletes every sample of the corpus.
func (c *Corpus[T]) Drop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.db.db.DropPrefix([]byte("corpus/" + c.name + "/")); err != nil {
		return fmt.Errorf("drop corpus %s: %w", c.name, err)
	}
	c.n = 0
	return nil
}

// Open implements sample.Source.
func (c *Corpus[T]) Open(ctx context.Context) (sample.Stream[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, cverrors.Wrap(cverrors.KindCancelled, cverrors.NoFold, "open corpus", err)
	}
	txn := c.db.db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = c.prefix
	opts.PrefetchSize = 64
	it := txn.NewIterator(opts)
	it.Seek(c.prefix)
	return &corpusStream[T]{txn: txn, it: it, prefix: c.prefix, codec: c.codec}, nil
}

type corpusStream[T any] struct {
	txn    *badger.Txn
	it     *badger.Iterator
	prefix []byte
	codec  Codec[T]
	closed bool
}

func (s *corpusStream[T]) Read(ctx context.Context) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, cverrors.Wrap(cverrors.KindCancelled, cverrors.NoFold, "read corpus", err)
	}
	if s.closed || !s.it.ValidForPrefix(s.prefix) {
		return zero, io.EOF
	}
	data, err := s.it.Item().ValueCopy(nil)
	if err != nil {
		return zero, cverrors.Wrap(cverrors.KindIO, cverrors.NoFold, "read corpus", err)
	}
	s.it.Next()
	v, err := s.codec.Unmarshal(data)
	if err != nil {
		return zero, cverrors.Wrap(cverrors.KindIO, cverrors.NoFold, "decode corpus", err)
	}
	return v, nil
}

func (s *corpusStream[T]) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.it.Close()
	s.txn.Discard()
	return nil
}

// CorpusInfo describes a stored corpus.
type CorpusInfo struct {
	Name    string `json:"name"`
	Samples int    `json:"samples"`
}

// ListCorpora returns every corpus in db ordered by name.
func (d *DB) ListCorpora(ctx context.Context) ([]CorpusInfo, error) {
	var out []CorpusInfo
	prefix := []byte("corpus/")
	err := d.view(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			name, ok := strings.CutSuffix(strings.TrimPrefix(key, "corpus/"), "/n")
			if !ok || strings.Contains(name, "/") {
				continue
			}
			var n uint64
			err := it.Item().Value(func(val []byte) error {
				if len(val) == 8 {
					n = binary.BigEndian.Uint64(val)
				}
				return nil
			})
			if err != nil {
				return err
			}
			out = append(out, CorpusInfo{Name: name, Samples: int(n)})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list corpora: %w", err)
	}
	return out, nil
}
