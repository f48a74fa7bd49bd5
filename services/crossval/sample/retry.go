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
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryConfig configures RetrySource.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	// Zero disables retrying.
	MaxRetries uint64

	// Base is the first Fibonacci backoff step.
	// Default: 1s.
	Base time.Duration

	// Logger receives one Warn line per failed attempt. May be nil.
	Logger *slog.Logger
}

// DefaultRetryConfig returns five retries on a one second Fibonacci backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 5,
		Base:       time.Second,
	}
}

// RetrySource retries Open of the wrapped source on transient failures.
// Reads are never retried: a stream that fails mid-pass would otherwise
// yield a corpus with a hole in it.
type RetrySource[T any] struct {
	inner  Source[T]
	config RetryConfig
}

// WithRetry wraps src with retrying Open.
func WithRetry[T any](src Source[T], config RetryConfig) *RetrySource[T] {
	if config.Base <= 0 {
		config.Base = time.Second
	}
	return &RetrySource[T]{inner: src, config: config}
}

// Restartable reports whether the wrapped source is restartable.
func (r *RetrySource[T]) Restartable() bool { return IsRestartable(r.inner) }

// Open implements Source.
func (r *RetrySource[T]) Open(ctx context.Context) (Stream[T], error) {
	var stream Stream[T]
	attempt := 0

	b := retry.WithMaxRetries(r.config.MaxRetries, retry.NewFibonacci(r.config.Base))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		s, err := r.inner.Open(ctx)
		if err == nil {
			stream = s
			return nil
		}
		if !shouldRetry(err) {
			return err
		}
		if r.config.Logger != nil {
			r.config.Logger.Warn("corpus open failed, retrying",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// shouldRetry reports whether an Open failure may be transient.
func shouldRetry(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrNotRestartable):
		return false
	case errors.Is(err, os.ErrNotExist), errors.Is(err, os.ErrPermission):
		return false
	}
	return true
}
