// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package partition splits an ordered sample source into k cross-validation
// folds.
//
// # Partitioning Rule
//
// The sample at zero-based position i belongs to the test set of fold f iff
//
//	i mod k == f
//
// and to the training set of every other fold. The rule is positional and
// deterministic: two partitioners over the same corpus and k produce the
// same folds. The k test sets are pairwise disjoint and cover the corpus.
//
// # Modes
//
// Folds never copy samples into per-fold buffers. Each fold is an index
// predicate over the original sequence:
//
//   - Re-derive: the source is restartable, so every fold stream re-opens it
//     and filters by position. Nothing is cached.
//   - Buffered: the source is single-pass, so the first fold reads it once
//     into memory and every fold stream filters that buffer.
//
// # Sequencing
//
// Folds are handed out strictly in order. Requesting fold f+1 expires fold
// f: opening its sources afterwards fails with ErrFoldExpired. This keeps a
// single fold's data live at a time. WithConcurrentFolds lifts the rule for
// restartable sources so folds can be evaluated in parallel.
package partition

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	"github.com/AleutianAI/AleutianFold/services/crossval/cverrors"
	"github.com/AleutianAI/AleutianFold/services/crossval/sample"
)

// ErrFoldExpired is returned when a fold's source is opened after the
// partitioner moved on to the next fold.
var ErrFoldExpired = errors.New("fold expired: the next fold was already requested")

// -----------------------------------------------------------------------------
// Options
// -----------------------------------------------------------------------------

type options struct {
	buffered   bool
	concurrent bool
}

// Option configures a Partitioner.
type Option func(*options)

// WithBuffering reads the source once into memory even when it is
// restartable. Useful when re-opening is expensive.
func WithBuffering() Option {
	return func(o *options) { o.buffered = true }
}

// WithConcurrentFolds keeps earlier folds usable after Next.
func WithConcurrentFolds() Option {
	return func(o *options) { o.concurrent = true }
}

// -----------------------------------------------------------------------------
// Partitioner
// -----------------------------------------------------------------------------

// Partitioner produces the k folds of a source in order.
//
// Thread Safety: Next must not be called concurrently. Fold sources may be
// opened from any goroutine.
type Partitioner[T any] struct {
	src  sample.Source[T]
	k    int
	opts options

	buffer  *sample.SliceSource[T]
	next    int
	current *Fold[T]
}

// New returns a partitioner over src with k folds.
//
// Returns a configuration-kind error when k < 1 or src is nil. A source that
// does not report itself restartable is buffered.
func New[T any](src sample.Source[T], k int, opts ...Option) (*Partitioner[T], error) {
	if k < 1 {
		return nil, cverrors.New(cverrors.KindConfiguration, "partition", "number of folds must be >= 1, got %d", k)
	}
	if src == nil {
		return nil, cverrors.New(cverrors.KindConfiguration, "partition", "sample source must not be nil")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if !sample.IsRestartable(src) {
		o.buffered = true
	}

	return &Partitioner[T]{src: src, k: k, opts: o}, nil
}

// K returns the number of folds.
func (p *Partitioner[T]) K() int { return p.k }

// Buffered reports whether the partitioner holds the corpus in memory.
func (p *Partitioner[T]) Buffered() bool { return p.opts.buffered }

// HasNext reports whether another fold remains.
func (p *Partitioner[T]) HasNext() bool { return p.next < p.k }

// Next returns the next fold, or io.EOF after the k-th fold.
//
// In buffered mode the first call reads the whole source; read failures are
// returned here.
func (p *Partitioner[T]) Next(ctx context.Context) (*Fold[T], error) {
	if !p.HasNext() {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, cverrors.Wrap(cverrors.KindCancelled, p.next, "next fold", err)
	}

	if p.opts.buffered && p.buffer == nil {
		samples, err := sample.Collect(ctx, p.src)
		if err != nil {
			return nil, cverrors.Wrap(cverrors.KindIO, p.next, "buffer corpus", err)
		}
		p.buffer = sample.FromSlice(samples)
	}

	if p.current != nil && !p.opts.concurrent {
		p.current.expire()
	}

	var base sample.Source[T] = p.src
	if p.buffer != nil {
		base = p.buffer
	}
	f := &Fold[T]{Index: p.next, K: p.k, base: base}
	p.current = f
	p.next++
	return f, nil
}

// -----------------------------------------------------------------------------
// Fold
// -----------------------------------------------------------------------------

// Fold is one train/test split.
type Fold[T any] struct {
	// Index is the zero-based fold index in [0, K).
	Index int

	// K is the total number of folds.
	K int

	base    sample.Source[T]
	expired atomic.Bool
}

// IsTest reports whether the sample at position pos is held out by this fold.
func (f *Fold[T]) IsTest(pos int) bool {
	return pos%f.K == f.Index
}

// Test returns the held-out samples: positions with pos mod K == Index.
// The returned source is restartable until the fold expires.
func (f *Fold[T]) Test() sample.Source[T] {
	return &foldSource[T]{fold: f, test: true}
}

// Training returns every sample not held out by this fold. The returned
// source is restartable until the fold expires, so trainers may make
// several passes.
func (f *Fold[T]) Training() sample.Source[T] {
	return &foldSource[T]{fold: f, test: false}
}

// Expired reports whether the fold can no longer be opened.
func (f *Fold[T]) Expired() bool {
	return f.expired.Load()
}

func (f *Fold[T]) expire() {
	f.expired.Store(true)
}

type foldSource[T any] struct {
	fold *Fold[T]
	test bool
}

func (s *foldSource[T]) Restartable() bool { return !s.fold.Expired() }

func (s *foldSource[T]) Open(ctx context.Context) (sample.Stream[T], error) {
	f := s.fold
	if f.Expired() {
		return nil, cverrors.Wrap(cverrors.KindConfiguration, f.Index, "open fold", ErrFoldExpired)
	}
	inner, err := f.base.Open(ctx)
	if err != nil {
		return nil, cverrors.Wrap(cverrors.KindIO, f.Index, "open fold", err)
	}
	test := s.test
	return sample.Positional(inner, func(pos int) bool {
		return f.IsTest(pos) == test
	}), nil
}

// Close expires the current fold and releases the buffered corpus, if any.
func (p *Partitioner[T]) Close() {
	if p.current != nil {
		p.current.expire()
		p.current = nil
	}
	p.buffer = nil
}
