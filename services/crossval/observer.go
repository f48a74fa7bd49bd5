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

import "context"

// RunInfo identifies a run to observers.
type RunInfo struct {
	RunID  string
	K      int
	Params Params
}

// Observer receives run lifecycle events.
//
// RunStarted and FoldStarted return the context used for the rest of the run
// or fold, so an observer can attach values such as trace spans. Observers
// must be safe for concurrent use: with WithParallelism folds report from
// several goroutines.
type Observer interface {
	RunStarted(ctx context.Context, run RunInfo) context.Context
	FoldStarted(ctx context.Context, run RunInfo, fold int) context.Context
	FoldFinished(ctx context.Context, run RunInfo, fold FoldResult, err error)
	RunFinished(ctx context.Context, run RunInfo, result *Result, err error)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) RunStarted(ctx context.Context, _ RunInfo) context.Context { return ctx }

func (NopObserver) FoldStarted(ctx context.Context, _ RunInfo, _ int) context.Context {
	return ctx
}

func (NopObserver) FoldFinished(context.Context, RunInfo, FoldResult, error) {}

func (NopObserver) RunFinished(context.Context, RunInfo, *Result, error) {}

// MultiObserver fans events out in order. Contexts are threaded through, so
// later observers see values attached by earlier ones.
type MultiObserver []Observer

func (m MultiObserver) RunStarted(ctx context.Context, run RunInfo) context.Context {
	for _, o := range m {
		ctx = o.RunStarted(ctx, run)
	}
	return ctx
}

func (m MultiObserver) FoldStarted(ctx context.Context, run RunInfo, fold int) context.Context {
	for _, o := range m {
		ctx = o.FoldStarted(ctx, run, fold)
	}
	return ctx
}

func (m MultiObserver) FoldFinished(ctx context.Context, run RunInfo, fold FoldResult, err error) {
	for _, o := range m {
		o.FoldFinished(ctx, run, fold, err)
	}
}

func (m MultiObserver) RunFinished(ctx context.Context, run RunInfo, result *Result, err error) {
	for _, o := range m {
		o.RunFinished(ctx, run, result, err)
	}
}
