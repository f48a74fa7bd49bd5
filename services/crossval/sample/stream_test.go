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
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianFold/services/crossval/cverrors"
)

func TestSliceSource(t *testing.T) {
	ctx := context.Background()
	src := FromSlice([]int{1, 2, 3})

	assert.True(t, IsRestartable(src))
	assert.Equal(t, 3, src.Len())

	// Two full passes see the same samples.
	for pass := 0; pass < 2; pass++ {
		got, err := Collect[int](ctx, src)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, got)
	}
}

func TestSliceSource_Empty(t *testing.T) {
	n, err := Count[string](context.Background(), FromSlice[string](nil))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSliceSource_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, err := FromSlice([]int{1, 2}).Open(ctx)
	require.NoError(t, err)

	cancel()
	_, err = s.Read(ctx)
	assert.ErrorIs(t, err, cverrors.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOnce(t *testing.T) {
	ctx := context.Background()
	inner, err := FromSlice([]string{"a", "b"}).Open(ctx)
	require.NoError(t, err)

	src := Once(inner)
	assert.False(t, IsRestartable(src))

	got, err := Collect(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	_, err = src.Open(ctx)
	assert.ErrorIs(t, err, ErrNotRestartable)
	assert.ErrorIs(t, err, cverrors.ErrConfiguration)
}

func TestIsRestartable_Undocumented(t *testing.T) {
	var src Source[int] = sourceFunc[int](func(ctx context.Context) (Stream[int], error) {
		return FromSlice([]int{1}).Open(ctx)
	})
	assert.False(t, IsRestartable(src), "sources must opt in to restartability")
}

func TestFromFunc(t *testing.T) {
	ctx := context.Background()

	t.Run("classifies failures as io", func(t *testing.T) {
		s := FromFunc(func(context.Context) (int, error) {
			return 0, errors.New("disk gone")
		}, nil)

		_, err := s.Read(ctx)
		assert.ErrorIs(t, err, cverrors.ErrIO)
		assert.NoError(t, s.Close())
	})

	t.Run("passes EOF through", func(t *testing.T) {
		closed := false
		s := FromFunc(func(context.Context) (int, error) {
			return 0, io.EOF
		}, func() error {
			closed = true
			return nil
		})

		_, err := s.Read(ctx)
		assert.Equal(t, io.EOF, err)
		require.NoError(t, s.Close())
		assert.True(t, closed)
	})
}

func TestPositional(t *testing.T) {
	ctx := context.Background()
	inner, err := FromSlice([]int{10, 11, 12, 13, 14, 15, 16}).Open(ctx)
	require.NoError(t, err)

	odd := Positional(inner, func(pos int) bool { return pos%3 == 1 })

	var got []int
	for {
		v, err := odd.Read(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []int{11, 14}, got)
}

func TestEach_StopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	seen := 0

	err := Each(context.Background(), FromSlice([]int{1, 2, 3}), func(int) error {
		seen++
		if seen == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, seen)
}

func TestFileSource(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.txt")
	require.NoError(t, os.WriteFile(path, []byte("1\n\n2\n   \n3\n"), 0o600))

	src := NewFileSource(path, strconv.Atoi)
	assert.True(t, IsRestartable(src))
	assert.Equal(t, path, src.Path())

	for pass := 0; pass < 2; pass++ {
		got, err := Collect[int](ctx, src)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, got)
	}
}

func TestFileSource_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		src := NewFileSource(filepath.Join(t.TempDir(), "nope.txt"), strconv.Atoi)
		_, err := src.Open(ctx)
		assert.ErrorIs(t, err, cverrors.ErrIO)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("undecodable line", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.txt")
		require.NoError(t, os.WriteFile(path, []byte("1\nx\n"), 0o600))

		_, err := Collect[int](ctx, NewFileSource(path, strconv.Atoi))
		assert.ErrorIs(t, err, cverrors.ErrIO)
		assert.Contains(t, err.Error(), "bad.txt:2")
	})
}

func TestRetrySource(t *testing.T) {
	ctx := context.Background()

	t.Run("recovers from transient failures", func(t *testing.T) {
		var calls atomic.Int32
		flaky := sourceFunc[int](func(ctx context.Context) (Stream[int], error) {
			if calls.Add(1) < 3 {
				return nil, errors.New("temporarily unavailable")
			}
			return FromSlice([]int{7}).Open(ctx)
		})

		src := WithRetry[int](flaky, RetryConfig{MaxRetries: 5, Base: time.Millisecond})
		got, err := Collect[int](ctx, src)
		require.NoError(t, err)
		assert.Equal(t, []int{7}, got)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var calls atomic.Int32
		broken := sourceFunc[int](func(context.Context) (Stream[int], error) {
			calls.Add(1)
			return nil, errors.New("still down")
		})

		_, err := WithRetry[int](broken, RetryConfig{MaxRetries: 2, Base: time.Millisecond}).Open(ctx)
		assert.EqualError(t, err, "still down")
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("does not retry permanent failures", func(t *testing.T) {
		src := WithRetry[int](NewFileSource(filepath.Join(t.TempDir(), "gone"), strconv.Atoi),
			RetryConfig{MaxRetries: 5, Base: time.Millisecond})
		_, err := src.Open(ctx)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.True(t, src.Restartable())
	})
}

type sourceFunc[T any] func(ctx context.Context) (Stream[T], error)

func (f sourceFunc[T]) Open(ctx context.Context) (Stream[T], error) { return f(ctx) }

func TestCountingSource(t *testing.T) {
	ctx := context.Background()
	src := Counted[int](FromSlice([]int{1, 2, 3}))
	assert.True(t, src.Restartable())

	// A partial pass followed by a full one.
	s, err := src.Open(ctx)
	require.NoError(t, err)
	_, err = s.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.Equal(t, 1, src.Max())

	n, err := Count[int](ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, src.Max())
	assert.Equal(t, 2, src.Passes())

	assert.False(t, Counted[int](Once[int](FromFunc[int](nil, nil))).Restartable())
}
