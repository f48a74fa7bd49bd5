// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package crossval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianFold/services/crossval/cverrors"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams("de")

	assert.Equal(t, "de", p.String(ParamLanguage, ""))
	cutoff, err := p.Int(ParamCutoff, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultCutoff, cutoff)
	iterations, err := p.Int(ParamIterations, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultIterations, iterations)
}

func TestParams_Int(t *testing.T) {
	p := Params{"cutoff": " 7 ", "bad": "seven"}

	n, err := p.Int("cutoff", 1)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = p.Int("absent", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = p.Int("bad", 1)
	assert.ErrorIs(t, err, cverrors.ErrConfiguration)
}

func TestParams_Require(t *testing.T) {
	p := Params{"language": "en", "cutoff": "  "}

	assert.NoError(t, p.Require("language"))
	assert.NoError(t, p.Require())

	err := p.Require("iterations", "language", "cutoff")
	require.ErrorIs(t, err, cverrors.ErrConfiguration)
	assert.Contains(t, err.Error(), "cutoff, iterations")
}

func TestParams_RequireInts(t *testing.T) {
	p := Params{"cutoff": "5", "iterations": "many", "beam": "wide"}

	assert.NoError(t, p.RequireInts("cutoff", "absent"))

	err := p.RequireInts("iterations", "cutoff", "beam")
	require.ErrorIs(t, err, cverrors.ErrConfiguration)
	assert.Contains(t, err.Error(), `beam="wide", iterations="many"`)
}

func TestParams_Clone(t *testing.T) {
	var nilParams Params
	c := nilParams.Clone()
	require.NotNil(t, c)
	c["x"] = "y"

	orig := Params{"a": "1"}
	clone := orig.Clone()
	clone["a"] = "2"
	assert.Equal(t, "1", orig["a"])
	assert.Equal(t, "fallback", orig.String("missing", "fallback"))
}
