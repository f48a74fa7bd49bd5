// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cverrors

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindConfiguration, "configuration"},
		{KindIO, "io"},
		{KindTraining, "training"},
		{KindEvaluation, "evaluation"},
		{KindCancelled, "cancelled"},
		{Kind(42), "kind(42)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.String())
	}
}

func TestError_Is(t *testing.T) {
	err := Wrap(KindTraining, 3, "train", io.ErrUnexpectedEOF)

	assert.True(t, errors.Is(err, ErrTraining))
	assert.False(t, errors.Is(err, ErrEvaluation))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF), "cause must stay reachable")
	assert.Equal(t, 3, FoldOf(err))
	assert.Equal(t, KindTraining, KindOf(err))
	assert.Equal(t, "fold 3: train: training: unexpected EOF", err.Error())
}

func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(KindIO, 0, "read", nil))
	})

	t.Run("keeps first kind", func(t *testing.T) {
		inner := Wrap(KindIO, NoFold, "read", io.ErrClosedPipe)
		outer := Wrap(KindTraining, 2, "train", fmt.Errorf("trainer: %w", inner))

		assert.Equal(t, KindIO, KindOf(outer))
		assert.Equal(t, 2, FoldOf(outer))
	})

	t.Run("keeps existing fold", func(t *testing.T) {
		inner := Wrap(KindEvaluation, 1, "evaluate", io.EOF)
		outer := Wrap(KindEvaluation, 4, "evaluate", inner)

		assert.Equal(t, 1, FoldOf(outer))
	})
}

func TestNew(t *testing.T) {
	err := New(KindConfiguration, "partition", "k must be >= 1, got %d", 0)

	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.Equal(t, NoFold, err.Fold)
	assert.Equal(t, "partition: configuration: k must be >= 1, got 0", err.Error())
}

func TestKindOf_Unclassified(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(io.EOF))
	assert.Equal(t, NoFold, FoldOf(io.EOF))
}
