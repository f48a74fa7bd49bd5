// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package partition

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianFold/services/crossval/cverrors"
	"github.com/AleutianAI/AleutianFold/services/crossval/sample"
)

// corpus returns the positions 0..n-1 as samples, so every sample carries
// its own index.
func corpus(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// singlePass returns a source that can be opened once, over corpus(n).
func singlePass(t *testing.T, n int) sample.Source[int] {
	t.Helper()
	s, err := sample.FromSlice(corpus(n)).Open(context.Background())
	require.NoError(t, err)
	return sample.Once(s)
}

func TestNew_InvalidK(t *testing.T) {
	for _, k := range []int{0, -1, -10} {
		_, err := New[int](sample.FromSlice(corpus(3)), k)
		assert.ErrorIs(t, err, cverrors.ErrConfiguration, "k=%d", k)
	}
}

func TestNew_NilSource(t *testing.T) {
	_, err := New[int](nil, 3)
	assert.ErrorIs(t, err, cverrors.ErrConfiguration)
}

func TestPartition_CoverageAndNoLeakage(t *testing.T) {
	ctx := context.Background()

	modes := map[string]func(t *testing.T, n int) sample.Source[int]{
		"re-derive": func(t *testing.T, n int) sample.Source[int] { return sample.FromSlice(corpus(n)) },
		"buffered":  singlePass,
	}

	for name, mk := range modes {
		t.Run(name, func(t *testing.T) {
			for n := 0; n <= 23; n++ {
				for k := 1; k <= n+2; k++ {
					p, err := New(mk(t, n), k)
					require.NoError(t, err)

					seen := make(map[int]int)
					folds := 0
					for p.HasNext() {
						f, err := p.Next(ctx)
						require.NoError(t, err)
						assert.Equal(t, folds, f.Index)
						folds++

						test, err := sample.Collect(ctx, f.Test())
						require.NoError(t, err)
						training, err := sample.Collect(ctx, f.Training())
						require.NoError(t, err)

						for _, i := range test {
							assert.Equal(t, f.Index, i%k, "n=%d k=%d: %d in wrong test fold", n, k, i)
							seen[i]++
						}
						inTest := make(map[int]bool, len(test))
						for _, i := range test {
							inTest[i] = true
						}
						for _, i := range training {
							assert.False(t, inTest[i], "n=%d k=%d fold=%d: %d leaked into training", n, k, f.Index, i)
							assert.NotEqual(t, f.Index, i%k)
						}
						assert.Equal(t, n, len(test)+len(training))
					}

					assert.Equal(t, k, folds)
					assert.Len(t, seen, n, "n=%d k=%d: union must cover corpus", n, k)
					for i, c := range seen {
						assert.Equal(t, 1, c, "n=%d k=%d: %d in %d test folds", n, k, i, c)
					}

					_, err = p.Next(ctx)
					assert.Equal(t, io.EOF, err)
				}
			}
		})
	}
}

func TestPartition_Deterministic(t *testing.T) {
	ctx := context.Background()
	run := func() [][]int {
		p, err := New[int](sample.FromSlice(corpus(17)), 4)
		require.NoError(t, err)
		var out [][]int
		for p.HasNext() {
			f, err := p.Next(ctx)
			require.NoError(t, err)
			test, err := sample.Collect(ctx, f.Test())
			require.NoError(t, err)
			out = append(out, test)
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestPartition_SingleFold(t *testing.T) {
	ctx := context.Background()
	p, err := New[int](sample.FromSlice(corpus(10)), 1)
	require.NoError(t, err)

	f, err := p.Next(ctx)
	require.NoError(t, err)

	test, err := sample.Collect(ctx, f.Test())
	require.NoError(t, err)
	training, err := sample.Collect(ctx, f.Training())
	require.NoError(t, err)

	assert.Equal(t, corpus(10), test)
	assert.Empty(t, training)
	assert.False(t, p.HasNext())
}

func TestPartition_MoreFoldsThanSamples(t *testing.T) {
	ctx := context.Background()
	p, err := New[int](sample.FromSlice(corpus(3)), 5)
	require.NoError(t, err)

	var sizes []int
	for p.HasNext() {
		f, err := p.Next(ctx)
		require.NoError(t, err)
		n, err := sample.Count(ctx, f.Test())
		require.NoError(t, err)
		sizes = append(sizes, n)
	}
	assert.Equal(t, []int{1, 1, 1, 0, 0}, sizes)
}

func TestPartition_ExpiresPreviousFold(t *testing.T) {
	ctx := context.Background()
	p, err := New[int](sample.FromSlice(corpus(6)), 3)
	require.NoError(t, err)

	first, err := p.Next(ctx)
	require.NoError(t, err)
	assert.True(t, sample.IsRestartable(first.Training()))

	_, err = p.Next(ctx)
	require.NoError(t, err)

	assert.True(t, first.Expired())
	assert.False(t, sample.IsRestartable(first.Test()))
	_, err = first.Training().Open(ctx)
	assert.ErrorIs(t, err, ErrFoldExpired)
	assert.ErrorIs(t, err, cverrors.ErrConfiguration)
	assert.Equal(t, 0, cverrors.FoldOf(err))
}

func TestPartition_ConcurrentFolds(t *testing.T) {
	ctx := context.Background()
	p, err := New[int](sample.FromSlice(corpus(6)), 3, WithConcurrentFolds())
	require.NoError(t, err)

	var folds []*Fold[int]
	for p.HasNext() {
		f, err := p.Next(ctx)
		require.NoError(t, err)
		folds = append(folds, f)
	}

	for _, f := range folds {
		test, err := sample.Collect(ctx, f.Test())
		require.NoError(t, err)
		assert.Equal(t, []int{f.Index, f.Index + 3}, test)
	}

	p.Close()
	assert.True(t, folds[2].Expired())
}

func TestPartition_ReDeriveReopensSource(t *testing.T) {
	ctx := context.Background()
	var opens atomic.Int32
	src := &openCounter{inner: sample.FromSlice(corpus(8)), opens: &opens}

	p, err := New[int](src, 4)
	require.NoError(t, err)
	assert.False(t, p.Buffered())

	for p.HasNext() {
		f, err := p.Next(ctx)
		require.NoError(t, err)
		_, err = sample.Collect(ctx, f.Training())
		require.NoError(t, err)
		_, err = sample.Collect(ctx, f.Test())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(8), opens.Load(), "two opens per fold, nothing cached")
}

func TestPartition_BufferedReadsOnce(t *testing.T) {
	ctx := context.Background()
	var opens atomic.Int32
	src := &openCounter{inner: sample.FromSlice(corpus(8)), opens: &opens}

	p, err := New[int](src, 4, WithBuffering())
	require.NoError(t, err)
	assert.True(t, p.Buffered())

	for p.HasNext() {
		f, err := p.Next(ctx)
		require.NoError(t, err)
		_, err = sample.Collect(ctx, f.Training())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), opens.Load())
}

func TestPartition_BufferReadFailure(t *testing.T) {
	boom := errors.New("device unplugged")
	s := sample.FromFunc(func(context.Context) (int, error) { return 0, boom }, nil)

	p, err := New(sample.Once(s), 2)
	require.NoError(t, err)

	_, err = p.Next(context.Background())
	assert.ErrorIs(t, err, cverrors.ErrIO)
	assert.ErrorIs(t, err, boom)
}

func TestPartition_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, err := New[int](sample.FromSlice(corpus(4)), 2)
	require.NoError(t, err)

	_, err = p.Next(ctx)
	assert.ErrorIs(t, err, cverrors.ErrCancelled)
}

type openCounter struct {
	inner sample.Source[int]
	opens *atomic.Int32
}

func (o *openCounter) Restartable() bool { return true }

func (o *openCounter) Open(ctx context.Context) (sample.Stream[int], error) {
	o.opens.Add(1)
	return o.inner.Open(ctx)
}
