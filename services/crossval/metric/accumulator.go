// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package metric accumulates precision/recall statistics.
//
// # Overview
//
// An Accumulator stores raw counts only: true positives, false positives and
// false negatives. Precision, recall and F-measure are derived from the
// counts on every call and are never stored.
//
// Folds are combined with Merge, which adds counts field by field. Summing
// counts before dividing gives every evaluation unit the same weight;
// averaging per-fold F-measures would over-weight small folds.
//
//	total := metric.NewAccumulator()
//	for _, fold := range folds {
//	    acc := metric.NewAccumulator()
//	    metric.Record(acc, predictedSpans, goldSpans)
//	    total.Merge(acc)
//	}
//	fmt.Println(total.FMeasure())
//
// # Thread Safety
//
// Accumulator is not safe for concurrent use. Callers merging from several
// goroutines must serialize Merge themselves.
package metric

import (
	"encoding/json"
	"fmt"
)

// -----------------------------------------------------------------------------
// Counts
// -----------------------------------------------------------------------------

// Counts holds raw overlap statistics.
type Counts struct {
	TruePositives  int64 `json:"true_positives"`
	FalsePositives int64 `json:"false_positives"`
	FalseNegatives int64 `json:"false_negatives"`
}

// Add returns the field-wise sum of c and other.
func (c Counts) Add(other Counts) Counts {
	return Counts{
		TruePositives:  c.TruePositives + other.TruePositives,
		FalsePositives: c.FalsePositives + other.FalsePositives,
		FalseNegatives: c.FalseNegatives + other.FalseNegatives,
	}
}

// Predicted returns TP + FP.
func (c Counts) Predicted() int64 { return c.TruePositives + c.FalsePositives }

// Gold returns TP + FN.
func (c Counts) Gold() int64 { return c.TruePositives + c.FalseNegatives }

// IsZero reports whether nothing was recorded.
func (c Counts) IsZero() bool { return c == Counts{} }

// Compare matches predicted against gold with multiset semantics.
//
// A predicted item is a true positive iff it equals a gold item that has not
// already been matched. Unmatched predictions are false positives, unmatched
// gold items are false negatives. Order is irrelevant.
func Compare[T comparable](predicted, gold []T) Counts {
	remaining := make(map[T]int, len(gold))
	for _, g := range gold {
		remaining[g]++
	}

	var c Counts
	for _, p := range predicted {
		if remaining[p] > 0 {
			remaining[p]--
			c.TruePositives++
		} else {
			c.FalsePositives++
		}
	}
	c.FalseNegatives = int64(len(gold)) - c.TruePositives
	return c
}

// -----------------------------------------------------------------------------
// Accumulator
// -----------------------------------------------------------------------------

// Accumulator is a mergeable precision/recall counter.
//
// The zero value is ready to use.
type Accumulator struct {
	counts Counts
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// FromCounts returns an accumulator holding c.
func FromCounts(c Counts) *Accumulator {
	return &Accumulator{counts: c}
}

// Record compares one evaluation unit's predictions against its gold items
// and adds the result to a.
func Record[T comparable](a *Accumulator, predicted, gold []T) {
	a.RecordCounts(Compare(predicted, gold))
}

// RecordCounts adds precomputed counts.
func (a *Accumulator) RecordCounts(c Counts) {
	a.counts = a.counts.Add(c)
}

// Merge adds other's counts into a. A nil other is a no-op.
func (a *Accumulator) Merge(other *Accumulator) {
	if other == nil {
		return
	}
	a.counts = a.counts.Add(other.counts)
}

// Counts returns the raw counts.
func (a *Accumulator) Counts() Counts {
	return a.counts
}

// Precision returns TP / (TP + FP), or 0 when nothing was predicted.
func (a *Accumulator) Precision() float64 {
	return ratio(a.counts.TruePositives, a.counts.Predicted())
}

// Recall returns TP / (TP + FN), or 0 when there was nothing to find.
func (a *Accumulator) Recall() float64 {
	return ratio(a.counts.TruePositives, a.counts.Gold())
}

// FMeasure returns the harmonic mean of precision and recall, or 0 when both
// are 0.
func (a *Accumulator) FMeasure() float64 {
	return FMeasure(a.Precision(), a.Recall())
}

// FMeasure returns 2PR/(P+R), or 0 when P+R is 0.
func FMeasure(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

func ratio(num, denom int64) float64 {
	if denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}

// String renders the derived values.
func (a *Accumulator) String() string {
	return fmt.Sprintf("Precision: %.4f\nRecall: %.4f\nF-Measure: %.4f",
		a.Precision(), a.Recall(), a.FMeasure())
}

type accumulatorJSON struct {
	Counts
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	FMeasure  float64 `json:"f_measure"`
}

// MarshalJSON writes the counts together with the derived values.
func (a *Accumulator) MarshalJSON() ([]byte, error) {
	return json.Marshal(accumulatorJSON{
		Counts:    a.counts,
		Precision: a.Precision(),
		Recall:    a.Recall(),
		FMeasure:  a.FMeasure(),
	})
}

// UnmarshalJSON restores the counts. Derived values in the input are
// ignored and recomputed on demand.
func (a *Accumulator) UnmarshalJSON(data []byte) error {
	var v accumulatorJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	a.counts = v.Counts
	return nil
}
