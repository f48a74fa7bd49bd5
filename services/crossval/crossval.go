// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package crossval runs k-fold cross-validation of a trainable model family
// over a streamed corpus.
//
// # Overview
//
// A Driver owns a Trainer and an Evaluator. Evaluate partitions the corpus
// into k folds (see package partition), and for each fold in order:
//
//  1. trains a model on the fold's training stream
//  2. scores the model on the fold's test stream into a fresh accumulator
//  3. merges that accumulator into the run's aggregate
//  4. drops the model before moving on
//
// The aggregate sums raw counts, so every test sample carries equal weight
// regardless of fold size. Precision, recall and F-measure are derived from
// the summed counts at the end.
//
// # Usage
//
//	driver, err := crossval.New[Sentence](trainer, evaluator,
//	    crossval.WithParams(crossval.DefaultParams("en")),
//	    crossval.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	result, err := driver.Evaluate(ctx, corpus, 10)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.Aggregate)
//
// # Errors
//
// Every failure is a *cverrors.Error. Configuration errors are reported
// before any fold runs. A training, evaluation, I/O or cancellation error in
// any fold aborts the run and no partial aggregate is returned.
//
// # Thread Safety
//
// A Driver is safe for concurrent use: each Evaluate call owns its own
// partitioner and aggregate. Trainers and evaluators must be safe for
// concurrent use when WithParallelism is above one.
package crossval

import (
	"context"

	"github.com/AleutianAI/AleutianFold/services/crossval/metric"
	"github.com/AleutianAI/AleutianFold/services/crossval/sample"
)

// Model is a trained model. The driver never inspects it; it only hands it
// from the Trainer to the Evaluator of the same fold.
type Model any

// Trainer builds a model from a fold's training samples.
//
// The training source is restartable for the duration of the fold, so
// iterative trainers may read it several times. An empty training source
// should be rejected with an error; the driver classifies it as a training
// failure.
type Trainer[T any] interface {
	Train(ctx context.Context, training sample.Source[T], params Params) (Model, error)
}

// Evaluator scores a model against a fold's test samples, recording
// true/false positives and false negatives into acc.
type Evaluator[T any] interface {
	Evaluate(ctx context.Context, model Model, test sample.Source[T], acc *metric.Accumulator) error
}

// TrainerFunc adapts a function to Trainer.
type TrainerFunc[T any] func(ctx context.Context, training sample.Source[T], params Params) (Model, error)

// Train implements Trainer.
func (f TrainerFunc[T]) Train(ctx context.Context, training sample.Source[T], params Params) (Model, error) {
	return f(ctx, training, params)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc[T any] func(ctx context.Context, model Model, test sample.Source[T], acc *metric.Accumulator) error

// Evaluate implements Evaluator.
func (f EvaluatorFunc[T]) Evaluate(ctx context.Context, model Model, test sample.Source[T], acc *metric.Accumulator) error {
	return f(ctx, model, test, acc)
}
