// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sample provides lazy, ordered sample streams.
//
// # Overview
//
// A Stream is a forward-only reader over samples. A Source hands out Streams.
// Sources backed by re-openable storage (a slice, a file, a badger corpus)
// can be opened any number of times and report so through Restartable.
// Sources backed by a transient reader can be opened exactly once.
//
//	src := sample.FromSlice([]string{"a", "b", "c"})
//	s, err := src.Open(ctx)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	for {
//	    v, err := s.Read(ctx)
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    ...
//	}
//
// # Errors
//
// Read returns io.EOF at the end of the stream. Any other failure is an
// I/O-kind cverrors.Error and is never retried here. A cancelled context
// yields a cancellation-kind error.
//
// # Thread Safety
//
// Streams are not safe for concurrent use. Restartable sources are safe to
// Open from multiple goroutines; each Stream they return is independent.
package sample

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	"github.com/AleutianAI/AleutianFold/services/crossval/cverrors"
)

// ErrNotRestartable is returned when a single-pass source is opened twice.
var ErrNotRestartable = errors.New("source supports a single pass only")

// -----------------------------------------------------------------------------
// Core Interfaces
// -----------------------------------------------------------------------------

// Stream is a forward-only reader over samples.
type Stream[T any] interface {
	// Read returns the next sample, or io.EOF when the stream is exhausted.
	Read(ctx context.Context) (T, error)

	// Close releases the stream. Reading after Close is undefined.
	Close() error
}

// Source produces Streams over the same ordered samples.
type Source[T any] interface {
	// Open starts a new pass from the first sample.
	Open(ctx context.Context) (Stream[T], error)
}

// Restartable is implemented by sources that can be opened more than once.
type Restartable interface {
	Restartable() bool
}

// IsRestartable reports whether src documents that it can be re-opened.
// Sources that say nothing are treated as single-pass.
func IsRestartable(src any) bool {
	r, ok := src.(Restartable)
	return ok && r.Restartable()
}

// checkContext turns a done context into a cancellation-kind error.
func checkContext(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return cverrors.Wrap(cverrors.KindCancelled, cverrors.NoFold, op, err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Slice Source
// -----------------------------------------------------------------------------

// SliceSource is a restartable in-memory source.
type SliceSource[T any] struct {
	samples []T
}

// FromSlice returns a restartable source over samples. The slice is not
// copied and must not be mutated while streams are open.
func FromSlice[T any](samples []T) *SliceSource[T] {
	return &SliceSource[T]{samples: samples}
}

// Open implements Source.
func (s *SliceSource[T]) Open(ctx context.Context) (Stream[T], error) {
	if err := checkContext(ctx, "open"); err != nil {
		return nil, err
	}
	return &sliceStream[T]{samples: s.samples}, nil
}

// Restartable implements Restartable.
func (s *SliceSource[T]) Restartable() bool { return true }

// Len returns the number of samples.
func (s *SliceSource[T]) Len() int { return len(s.samples) }

type sliceStream[T any] struct {
	samples []T
	pos     int
}

func (s *sliceStream[T]) Read(ctx context.Context) (T, error) {
	var zero T
	if err := checkContext(ctx, "read"); err != nil {
		return zero, err
	}
	if s.pos >= len(s.samples) {
		return zero, io.EOF
	}
	v := s.samples[s.pos]
	s.pos++
	return v, nil
}

func (s *sliceStream[T]) Close() error { return nil }

// -----------------------------------------------------------------------------
// Function Stream
// -----------------------------------------------------------------------------

type funcStream[T any] struct {
	next  func(ctx context.Context) (T, error)
	close func() error
}

// FromFunc adapts a next function into a Stream. next must return io.EOF at
// the end. close may be nil.
func FromFunc[T any](next func(ctx context.Context) (T, error), close func() error) Stream[T] {
	return &funcStream[T]{next: next, close: close}
}

func (f *funcStream[T]) Read(ctx context.Context) (T, error) {
	if err := checkContext(ctx, "read"); err != nil {
		var zero T
		return zero, err
	}
	v, err := f.next(ctx)
	if err != nil && !errors.Is(err, io.EOF) {
		return v, cverrors.Wrap(cverrors.KindIO, cverrors.NoFold, "read", err)
	}
	return v, err
}

func (f *funcStream[T]) Close() error {
	if f.close == nil {
		return nil
	}
	return f.close()
}

// -----------------------------------------------------------------------------
// Single-pass Source
// -----------------------------------------------------------------------------

type onceSource[T any] struct {
	stream Stream[T]
	used   atomic.Bool
}

// Once wraps an already open stream as a single-pass Source. The first Open
// returns stream; every later Open fails with ErrNotRestartable.
func Once[T any](stream Stream[T]) Source[T] {
	return &onceSource[T]{stream: stream}
}

func (o *onceSource[T]) Open(ctx context.Context) (Stream[T], error) {
	if err := checkContext(ctx, "open"); err != nil {
		return nil, err
	}
	if o.used.Swap(true) {
		return nil, cverrors.Wrap(cverrors.KindConfiguration, cverrors.NoFold, "open", ErrNotRestartable)
	}
	return o.stream, nil
}

func (o *onceSource[T]) Restartable() bool { return false }

// -----------------------------------------------------------------------------
// Positional Filter
// -----------------------------------------------------------------------------

type positional[T any] struct {
	inner Stream[T]
	keep  func(pos int) bool
	pos   int
}

// Positional returns a stream yielding only the samples of inner whose
// zero-based position satisfies keep. Positions count every sample of inner,
// kept or not.
func Positional[T any](inner Stream[T], keep func(pos int) bool) Stream[T] {
	return &positional[T]{inner: inner, keep: keep}
}

func (p *positional[T]) Read(ctx context.Context) (T, error) {
	for {
		v, err := p.inner.Read(ctx)
		if err != nil {
			return v, err
		}
		pos := p.pos
		p.pos++
		if p.keep(pos) {
			return v, nil
		}
	}
}

func (p *positional[T]) Close() error { return p.inner.Close() }

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// Each opens src and calls fn for every sample in order. The stream is
// closed before Each returns.
func Each[T any](ctx context.Context, src Source[T], fn func(T) error) (err error) {
	s, err := src.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cverrors.Wrap(cverrors.KindIO, cverrors.NoFold, "close", cerr)
		}
	}()

	for {
		v, err := s.Read(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
	}
}

// Collect reads a full pass of src into memory.
func Collect[T any](ctx context.Context, src Source[T]) ([]T, error) {
	var out []T
	err := Each(ctx, src, func(v T) error {
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count reads a full pass of src and returns the number of samples.
func Count[T any](ctx context.Context, src Source[T]) (int, error) {
	n := 0
	err := Each(ctx, src, func(T) error {
		n++
		return nil
	})
	return n, err
}
