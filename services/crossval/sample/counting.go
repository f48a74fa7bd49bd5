// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sample

import (
	"context"
	"sync"
)

// CountingSource records how many samples consumers read from a source.
// A consumer that reads several passes counts once: Max reports the longest
// single pass, which is the source length whenever one pass ran to the end.
type CountingSource[T any] struct {
	inner Source[T]

	mu     sync.Mutex
	max    int
	passes int
}

// Counted wraps src.
func Counted[T any](src Source[T]) *CountingSource[T] {
	return &CountingSource[T]{inner: src}
}

// Restartable reports whether the wrapped source is restartable.
func (c *CountingSource[T]) Restartable() bool { return IsRestartable(c.inner) }

// Open implements Source.
func (c *CountingSource[T]) Open(ctx context.Context) (Stream[T], error) {
	s, err := c.inner.Open(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.passes++
	c.mu.Unlock()
	return &countingStream[T]{inner: s, parent: c}, nil
}

// Max returns the number of samples read by the longest pass.
func (c *CountingSource[T]) Max() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.max
}

// Passes returns how many times the source was opened.
func (c *CountingSource[T]) Passes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.passes
}

func (c *CountingSource[T]) observe(n int) {
	c.mu.Lock()
	if n > c.max {
		c.max = n
	}
	c.mu.Unlock()
}

type countingStream[T any] struct {
	inner  Stream[T]
	parent *CountingSource[T]
	n      int
}

func (s *countingStream[T]) Read(ctx context.Context) (T, error) {
	v, err := s.inner.Read(ctx)
	if err == nil {
		s.n++
		s.parent.observe(s.n)
	}
	return v, err
}

func (s *countingStream[T]) Close() error { return s.inner.Close() }
