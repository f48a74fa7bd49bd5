// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package metric

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInsufficientSamples is returned when fewer than two values are given.
	ErrInsufficientSamples = errors.New("insufficient samples for statistical analysis")

	// ErrUnsupportedLevel is returned for a confidence level outside
	// SupportedLevels.
	ErrUnsupportedLevel = errors.New("unsupported confidence level")
)

// SupportedLevels are the confidence levels with Student-t tables.
var SupportedLevels = []float64{0.90, 0.95, 0.99}

// IsSupportedLevel reports whether level is one of SupportedLevels.
func IsSupportedLevel(level float64) bool {
	for _, l := range SupportedLevels {
		if math.Abs(level-l) < 1e-9 {
			return true
		}
	}
	return false
}

// ConfidenceInterval is a two-sided interval around a mean.
type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Level float64 `json:"level"`
}

// Contains reports whether v lies within the interval.
func (ci ConfidenceInterval) Contains(v float64) bool {
	return v >= ci.Lower && v <= ci.Upper
}

// Width returns Upper - Lower.
func (ci ConfidenceInterval) Width() float64 {
	return ci.Upper - ci.Lower
}

// Clamp limits both bounds to [lo, hi].
func (ci ConfidenceInterval) Clamp(lo, hi float64) ConfidenceInterval {
	ci.Lower = math.Min(math.Max(ci.Lower, lo), hi)
	ci.Upper = math.Min(math.Max(ci.Upper, lo), hi)
	return ci
}

// Spread describes how a per-fold score varies across folds.
//
// It complements the additive aggregate: the aggregate answers "how good is
// the model", the spread answers "how stable is that answer across folds".
// Spread is never used to compute the aggregate.
type Spread struct {
	// Folds is the number of values summarized.
	Folds int `json:"folds"`

	// Mean is the unweighted mean of the values.
	Mean float64 `json:"mean"`

	// StdDev is the sample standard deviation (n-1 denominator).
	StdDev float64 `json:"std_dev"`

	// CI is a Student-t confidence interval for the mean.
	CI ConfidenceInterval `json:"ci"`
}

// Summarize computes the spread of values at one of SupportedLevels. At
// least two values are required.
func Summarize(values []float64, level float64) (Spread, error) {
	n := len(values)
	if !IsSupportedLevel(level) {
		return Spread{Folds: n}, fmt.Errorf("%w: %v", ErrUnsupportedLevel, level)
	}
	if n < 2 {
		return Spread{Folds: n}, ErrInsufficientSamples
	}

	m := mean(values)
	sd := math.Sqrt(sampleVariance(values, m))
	margin := tCriticalValue(n-1, level) * sd / math.Sqrt(float64(n))

	return Spread{
		Folds:  n,
		Mean:   m,
		StdDev: sd,
		CI: ConfidenceInterval{
			Lower: m - margin,
			Upper: m + margin,
			Level: level,
		},
	}, nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sampleVariance(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sumSq float64
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return sumSq / float64(len(values)-1)
}

// tCriticalValue returns the two-sided Student-t critical value for df
// degrees of freedom at a supported level.
func tCriticalValue(df int, level float64) float64 {
	if df >= 30 {
		switch {
		case level > 0.98:
			return 2.576
		case level > 0.93:
			return 1.96
		default:
			return 1.645
		}
	}

	t90 := []float64{6.314, 2.920, 2.353, 2.132, 2.015, 1.943, 1.895, 1.860, 1.833, 1.812,
		1.796, 1.782, 1.771, 1.761, 1.753, 1.746, 1.740, 1.734, 1.729, 1.725,
		1.721, 1.717, 1.714, 1.711, 1.708, 1.706, 1.703, 1.701, 1.699, 1.697}
	t95 := []float64{12.706, 4.303, 3.182, 2.776, 2.571, 2.447, 2.365, 2.306, 2.262, 2.228,
		2.201, 2.179, 2.160, 2.145, 2.131, 2.120, 2.110, 2.101, 2.093, 2.086,
		2.080, 2.074, 2.069, 2.064, 2.060, 2.056, 2.052, 2.048, 2.045, 2.042}
	t99 := []float64{63.657, 9.925, 5.841, 4.604, 4.032, 3.707, 3.499, 3.355, 3.250, 3.169,
		3.106, 3.055, 3.012, 2.977, 2.947, 2.921, 2.898, 2.878, 2.861, 2.845,
		2.831, 2.819, 2.807, 2.797, 2.787, 2.779, 2.771, 2.763, 2.756, 2.750}

	if df < 1 {
		df = 1
	}

	switch {
	case level > 0.98:
		return t99[df-1]
	case level > 0.93:
		return t95[df-1]
	default:
		return t90[df-1]
	}
}
