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
	"time"

	"github.com/AleutianAI/AleutianFold/services/crossval/metric"
)

// Result is the outcome of a completed run.
type Result struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// StartedAt is when Evaluate was called.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall time of the whole run.
	Duration time.Duration `json:"duration"`

	// K is the number of folds.
	K int `json:"k"`

	// Params are the parameters every fold was trained with.
	Params Params `json:"params"`

	// Aggregate holds the summed counts of every fold.
	Aggregate *metric.Accumulator `json:"aggregate"`

	// Folds holds per-fold results ordered by fold index.
	Folds []FoldResult `json:"folds"`

	// Spread summarizes per-fold F-measure over folds with test samples.
	// Nil when fewer than two such folds exist.
	Spread *metric.Spread `json:"spread,omitempty"`
}

// FoldResult is the outcome of one fold.
type FoldResult struct {
	// Index is the zero-based fold index.
	Index int `json:"index"`

	// TrainingSamples is the number of training samples the trainer read
	// in its longest pass.
	TrainingSamples int `json:"training_samples"`

	// TestSamples is the number of test samples read.
	TestSamples int `json:"test_samples"`

	// Counts are the fold's own counts.
	Counts metric.Counts `json:"counts"`

	// Skipped is set when the fold had no test samples and
	// EmptyFoldSkip was in effect.
	Skipped bool `json:"skipped,omitempty"`

	// Duration is the wall time of training plus evaluation.
	Duration time.Duration `json:"duration"`
}

// FMeasure returns the fold's own F-measure.
func (f FoldResult) FMeasure() float64 {
	return metric.FromCounts(f.Counts).FMeasure()
}

// Evaluated returns the folds that were not skipped.
func (r *Result) Evaluated() []FoldResult {
	out := make([]FoldResult, 0, len(r.Folds))
	for _, f := range r.Folds {
		if !f.Skipped {
			out = append(out, f)
		}
	}
	return out
}
