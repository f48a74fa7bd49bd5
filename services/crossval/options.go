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
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianFold/pkg/logging"
)

// EmptyFoldPolicy decides what happens to a fold whose test set is empty,
// which occurs when k exceeds the corpus length.
type EmptyFoldPolicy int

const (
	// EmptyFoldEvaluate trains and evaluates the fold as usual. It
	// contributes zero counts to the aggregate.
	EmptyFoldEvaluate EmptyFoldPolicy = iota

	// EmptyFoldSkip does not invoke the trainer for the fold. The fold is
	// reported with Skipped set.
	EmptyFoldSkip
)

// String returns "evaluate" or "skip".
func (p EmptyFoldPolicy) String() string {
	switch p {
	case EmptyFoldEvaluate:
		return "evaluate"
	case EmptyFoldSkip:
		return "skip"
	default:
		return fmt.Sprintf("EmptyFoldPolicy(%d)", int(p))
	}
}

// ParseEmptyFoldPolicy parses "evaluate" or "skip". The empty string is
// EmptyFoldEvaluate.
func ParseEmptyFoldPolicy(s string) (EmptyFoldPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "evaluate":
		return EmptyFoldEvaluate, nil
	case "skip":
		return EmptyFoldSkip, nil
	default:
		return EmptyFoldEvaluate, fmt.Errorf("unknown empty fold policy %q", s)
	}
}

// DefaultConfidenceLevel is the confidence level of Result.Spread.
const DefaultConfidenceLevel = 0.95

type options struct {
	params      Params
	required    []string
	ints        []string
	logger      *logging.Logger
	observer    Observer
	emptyFold   EmptyFoldPolicy
	parallelism int
	confidence  float64
	buffered    bool
}

func defaultOptions() options {
	return options{
		params:      Params{},
		logger:      logging.Discard(),
		observer:    NopObserver{},
		parallelism: 1,
		confidence:  DefaultConfidenceLevel,
	}
}

// Option configures a Driver.
type Option func(*options)

// WithParams sets the parameters handed to the trainer on every fold.
func WithParams(params Params) Option {
	return func(o *options) { o.params = params.Clone() }
}

// WithRequiredParams makes Evaluate fail with a configuration error, before
// any fold runs, when one of keys is missing.
func WithRequiredParams(keys ...string) Option {
	return func(o *options) { o.required = append(o.required, keys...) }
}

// WithIntParams makes Evaluate fail with a configuration error, before any
// fold runs, when one of keys is present but not an integer.
func WithIntParams(keys ...string) Option {
	return func(o *options) { o.ints = append(o.ints, keys...) }
}

// WithLogger sets the logger. Default: discard.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver adds an observer. Repeated calls add more observers.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		if observer == nil {
			return
		}
		if _, nop := o.observer.(NopObserver); nop {
			o.observer = observer
			return
		}
		o.observer = MultiObserver{o.observer, observer}
	}
}

// WithEmptyFoldPolicy sets the empty fold policy. Default: EmptyFoldEvaluate.
func WithEmptyFoldPolicy(policy EmptyFoldPolicy) Option {
	return func(o *options) { o.emptyFold = policy }
}

// WithParallelism evaluates up to n folds at once. Values below one are
// treated as one. Folds still merge into a single aggregate, which is
// identical to the sequential result.
//
// With n > 1 several models and folds are live at once, and a single-pass
// source is buffered in memory.
func WithParallelism(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.parallelism = n
	}
}

// WithConfidenceLevel sets the level of the per-fold F-measure confidence
// interval, one of metric.SupportedLevels. Default: 0.95.
func WithConfidenceLevel(level float64) Option {
	return func(o *options) { o.confidence = level }
}

// WithBufferedCorpus reads the corpus once into memory even when it could
// be re-opened for every fold.
func WithBufferedCorpus() Option {
	return func(o *options) { o.buffered = true }
}
