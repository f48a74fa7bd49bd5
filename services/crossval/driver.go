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
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianFold/pkg/logging"
	"github.com/AleutianAI/AleutianFold/services/crossval/cverrors"
	"github.com/AleutianAI/AleutianFold/services/crossval/metric"
	"github.com/AleutianAI/AleutianFold/services/crossval/partition"
	"github.com/AleutianAI/AleutianFold/services/crossval/sample"
)

// Driver runs cross-validation for one model family.
type Driver[T any] struct {
	trainer   Trainer[T]
	evaluator Evaluator[T]
	opts      options
}

// New creates a Driver.
//
// Returns a configuration-kind error when trainer or evaluator is nil.
func New[T any](trainer Trainer[T], evaluator Evaluator[T], opts ...Option) (*Driver[T], error) {
	if trainer == nil {
		return nil, cverrors.New(cverrors.KindConfiguration, "new driver", "trainer must not be nil")
	}
	if evaluator == nil {
		return nil, cverrors.New(cverrors.KindConfiguration, "new driver", "evaluator must not be nil")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if !metric.IsSupportedLevel(o.confidence) {
		return nil, cverrors.New(cverrors.KindConfiguration, "new driver",
			"confidence level %v is not one of %v", o.confidence, metric.SupportedLevels)
	}
	return &Driver[T]{trainer: trainer, evaluator: evaluator, opts: o}, nil
}

// Evaluate cross-validates over src with k folds and returns the aggregate.
//
// Folds are consumed in index order. The first error of any fold aborts the
// run; the aggregate of earlier folds is discarded and only the error is
// returned.
//
// Errors:
//   - KindConfiguration: k < 1, nil src, missing required params or a
//     malformed integer param
//   - KindIO: the corpus could not be read
//   - KindTraining: the trainer failed, including on empty training data
//   - KindEvaluation: the evaluator failed
//   - KindCancelled: ctx was cancelled or timed out
func (d *Driver[T]) Evaluate(ctx context.Context, src sample.Source[T], k int) (*Result, error) {
	if err := d.opts.params.Require(d.opts.required...); err != nil {
		return nil, err
	}
	if err := d.opts.params.RequireInts(d.opts.ints...); err != nil {
		return nil, err
	}

	var popts []partition.Option
	if d.opts.buffered {
		popts = append(popts, partition.WithBuffering())
	}
	if d.opts.parallelism > 1 {
		popts = append(popts, partition.WithConcurrentFolds())
	}
	p, err := partition.New(src, k, popts...)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	run := RunInfo{RunID: uuid.NewString(), K: k, Params: d.opts.params.Clone()}
	logger := d.opts.logger.With("run_id", run.RunID, "k", k)
	started := time.Now()

	ctx = d.opts.observer.RunStarted(ctx, run)
	logger.Info("cross-validation started",
		"buffered", p.Buffered(),
		"parallelism", d.opts.parallelism,
		"empty_fold_policy", d.opts.emptyFold.String())

	var (
		agg   *metric.Accumulator
		folds []FoldResult
	)
	if d.opts.parallelism > 1 {
		agg, folds, err = d.runParallel(ctx, p, run, logger)
	} else {
		agg, folds, err = d.runSequential(ctx, p, run, logger)
	}
	if err != nil {
		logger.Error("cross-validation failed",
			"kind", cverrors.KindOf(err).String(),
			"fold", cverrors.FoldOf(err),
			"error", err)
		d.opts.observer.RunFinished(ctx, run, nil, err)
		return nil, err
	}

	result := &Result{
		RunID:     run.RunID,
		StartedAt: started,
		Duration:  time.Since(started),
		K:         k,
		Params:    run.Params,
		Aggregate: agg,
		Folds:     folds,
	}
	result.Spread = d.spread(result, logger)

	logger.Info("cross-validation finished",
		"precision", agg.Precision(),
		"recall", agg.Recall(),
		"f_measure", agg.FMeasure(),
		"duration", result.Duration)
	d.opts.observer.RunFinished(ctx, run, result, nil)
	return result, nil
}

// -----------------------------------------------------------------------------
// Fold Loops
// -----------------------------------------------------------------------------

func (d *Driver[T]) runSequential(ctx context.Context, p *partition.Partitioner[T], run RunInfo, logger *logging.Logger) (*metric.Accumulator, []FoldResult, error) {
	agg := metric.NewAccumulator()
	folds := make([]FoldResult, 0, p.K())

	for p.HasNext() {
		f, err := p.Next(ctx)
		if err != nil {
			return nil, nil, err
		}
		fr, acc, err := d.runFold(ctx, f, run, logger)
		if err != nil {
			return nil, nil, err
		}
		agg.Merge(acc)
		folds = append(folds, fr)
	}
	return agg, folds, nil
}

func (d *Driver[T]) runParallel(ctx context.Context, p *partition.Partitioner[T], run RunInfo, logger *logging.Logger) (*metric.Accumulator, []FoldResult, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.parallelism)

	var mu sync.Mutex
	agg := metric.NewAccumulator()
	folds := make([]FoldResult, p.K())

	var nextErr error
	for p.HasNext() {
		f, err := p.Next(gctx)
		if err != nil {
			nextErr = err
			break
		}
		g.Go(func() error {
			fr, acc, err := d.runFold(gctx, f, run, logger)
			if err != nil {
				return err
			}
			mu.Lock()
			agg.Merge(acc)
			folds[f.Index] = fr
			mu.Unlock()
			return nil
		})
	}

	// A fold failure cancels gctx, which makes Next fail too; the fold's
	// error is the one worth reporting.
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if nextErr != nil {
		return nil, nil, nextErr
	}
	return agg, folds, nil
}

// runFold trains and evaluates a single fold. The model goes out of scope
// when it returns.
func (d *Driver[T]) runFold(ctx context.Context, f *partition.Fold[T], run RunInfo, logger *logging.Logger) (FoldResult, *metric.Accumulator, error) {
	ctx = d.opts.observer.FoldStarted(ctx, run, f.Index)
	start := time.Now()
	fr := FoldResult{Index: f.Index}
	flog := logger.With("fold", f.Index)

	finish := func(err error) (FoldResult, *metric.Accumulator, error) {
		fr.Duration = time.Since(start)
		d.opts.observer.FoldFinished(ctx, run, fr, err)
		return fr, nil, err
	}

	if d.opts.emptyFold == EmptyFoldSkip {
		n, err := sample.Count(ctx, f.Test())
		if err != nil {
			return finish(classify(cverrors.KindIO, f.Index, "count test", err))
		}
		if n == 0 {
			fr.Skipped = true
			flog.Warn("skipping fold with empty test set")
			fr.Duration = time.Since(start)
			d.opts.observer.FoldFinished(ctx, run, fr, nil)
			return fr, metric.NewAccumulator(), nil
		}
	}

	training := sample.Counted(f.Training())
	model, err := d.trainer.Train(ctx, training, run.Params.Clone())
	fr.TrainingSamples = training.Max()
	if err != nil {
		return finish(classify(cverrors.KindTraining, f.Index, "train", err))
	}
	if err := ctx.Err(); err != nil {
		return finish(classify(cverrors.KindCancelled, f.Index, "train", err))
	}
	flog.Debug("fold trained", "training_samples", fr.TrainingSamples)

	test := sample.Counted(f.Test())
	acc := metric.NewAccumulator()
	err = d.evaluator.Evaluate(ctx, model, test, acc)
	fr.TestSamples = test.Max()
	if err != nil {
		return finish(classify(cverrors.KindEvaluation, f.Index, "evaluate", err))
	}
	if err := ctx.Err(); err != nil {
		return finish(classify(cverrors.KindCancelled, f.Index, "evaluate", err))
	}

	fr.Counts = acc.Counts()
	fr.Duration = time.Since(start)
	flog.Debug("fold evaluated",
		"test_samples", fr.TestSamples,
		"tp", fr.Counts.TruePositives,
		"fp", fr.Counts.FalsePositives,
		"fn", fr.Counts.FalseNegatives,
		"f_measure", acc.FMeasure(),
		"duration", fr.Duration)
	d.opts.observer.FoldFinished(ctx, run, fr, nil)
	return fr, acc, nil
}

// classify attaches kind and fold to err. Errors already carrying a kind
// keep it, and bare context errors are cancellations.
func classify(kind cverrors.Kind, fold int, op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = cverrors.KindCancelled
	}
	return cverrors.Wrap(kind, fold, op, err)
}

// spread summarizes the F-measure of folds that had test samples. Empty
// folds carry no evidence and would pull the mean toward zero.
func (d *Driver[T]) spread(r *Result, logger *logging.Logger) *metric.Spread {
	var values []float64
	for _, f := range r.Evaluated() {
		if f.TestSamples == 0 {
			continue
		}
		values = append(values, f.FMeasure())
	}
	s, err := metric.Summarize(values, d.opts.confidence)
	if err != nil {
		logger.Debug("no fold spread", "scored_folds", len(values), "reason", err)
		return nil
	}
	s.CI = s.CI.Clamp(0, 1)
	return &s
}
