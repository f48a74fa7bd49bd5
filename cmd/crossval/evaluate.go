// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianFold/pkg/ux"
	"github.com/AleutianAI/AleutianFold/services/crossval"
	"github.com/AleutianAI/AleutianFold/services/crossval/cverrors"
	"github.com/AleutianAI/AleutianFold/services/crossval/registry"
	"github.com/AleutianAI/AleutianFold/services/crossval/storage"
	"github.com/AleutianAI/AleutianFold/services/crossval/telemetry"
)

type evaluateFlags struct {
	corpus    string
	model     string
	folds     int
	parallel  int
	params    map[string]string
	buffered  bool
	emptyFold string
	noSave    bool
	textfile  string
}

func newEvaluateCmd(a *app) *cobra.Command {
	var f evaluateFlags
	cmd := &cobra.Command{
		Use:   "evaluate [corpus-file]",
		Short: "Cross-validate a model over a corpus file or a stored corpus",
		Example: `  crossval evaluate data/ner.txt --folds 10
  crossval evaluate --corpus news --param cutoff=3 --parallel 4`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return a.runEvaluate(cmd, path, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.corpus, "corpus", "", "stored corpus to evaluate instead of a file")
	fl.StringVarP(&f.model, "model", "m", "", "model family (default from config)")
	fl.IntVarP(&f.folds, "folds", "k", 0, "number of folds (default from config)")
	fl.IntVarP(&f.parallel, "parallel", "p", 0, "folds trained concurrently (default from config)")
	fl.StringToStringVar(&f.params, "param", nil, "training parameter key=value, repeatable")
	fl.BoolVar(&f.buffered, "buffered", false, "read the corpus once into memory")
	fl.StringVar(&f.emptyFold, "empty-fold", "", "empty test fold policy: evaluate or skip")
	fl.BoolVar(&f.noSave, "no-save", false, "do not record the run in the database")
	fl.StringVar(&f.textfile, "metrics-textfile", "", "write Prometheus metrics to this file after the run")
	return cmd
}

// apply overrides the loaded configuration with the flags that were set.
func (f evaluateFlags) apply(cmd *cobra.Command, a *app) error {
	run := &a.cfg.Run
	if f.model != "" {
		run.Model = f.model
	}
	if f.folds != 0 {
		run.Folds = f.folds
	}
	if f.parallel != 0 {
		run.Parallelism = f.parallel
	}
	if f.emptyFold != "" {
		run.EmptyFoldPolicy = f.emptyFold
	}
	if cmd.Flags().Changed("buffered") {
		run.Buffered = f.buffered
	}
	if f.corpus != "" {
		run.Corpus = f.corpus
	}
	if f.textfile != "" {
		a.cfg.Telemetry.TextfilePath = f.textfile
	}
	if a.cfg.Params == nil {
		a.cfg.Params = map[string]string{}
	}
	for k, v := range f.params {
		a.cfg.Params[k] = v
	}
	return a.cfg.Validate()
}

func (a *app) runEvaluate(cmd *cobra.Command, path string, f evaluateFlags) error {
	ctx := cmd.Context()
	if err := f.apply(cmd, a); err != nil {
		return err
	}
	run := a.cfg.Run

	family, err := a.families.Get(run.Model)
	if err != nil {
		return cverrors.Wrap(cverrors.KindConfiguration, cverrors.NoFold, "select model", err)
	}

	in := registry.Input{Path: path}
	if path == "" {
		in = registry.Input{Corpus: run.Corpus}
	}
	if in.Path != "" {
		retry := a.cfg.RetryConfig()
		retry.Logger = a.logger.Slog()
		in.Retry = &retry
	}
	var db *storage.DB
	if in.Corpus != "" || !f.noSave {
		if db, err = a.openDB(); err != nil {
			return err
		}
		in.DB = db
	}

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: telemetry.DefaultConfig().ServiceVersion,
		TraceExporter:  a.cfg.Telemetry.Tracing,
		MetricExporter: a.cfg.Telemetry.Metrics,
		OTLPEndpoint:   a.cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:   true,
	})
	if err != nil {
		return cverrors.Wrap(cverrors.KindConfiguration, cverrors.NoFold, "init telemetry", err)
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			a.logger.Warn("Telemetry shutdown failed", "error", err)
		}
	}()

	opts, err := a.cfg.DriverOptions()
	if err != nil {
		return err
	}
	opts = append(opts, crossval.WithLogger(a.logger))

	otelObs, err := telemetry.NewOTelObserver(telemetry.OTelConfig{Model: run.Model})
	if err != nil {
		return fmt.Errorf("create tracing observer: %w", err)
	}
	opts = append(opts, crossval.WithObserver(otelObs))

	var promObs *telemetry.PrometheusObserver
	if a.cfg.Telemetry.TextfilePath != "" {
		pc := telemetry.DefaultPrometheusConfig()
		pc.Model = run.Model
		if promObs, err = telemetry.NewPrometheusObserver(pc); err != nil {
			return fmt.Errorf("create metrics observer: %w", err)
		}
		opts = append(opts, crossval.WithObserver(promObs))
	}

	out := a.printer()
	if !a.jsonOut {
		opts = append(opts, crossval.WithObserver(newProgressObserver(out)))
		out.Title(fmt.Sprintf("Cross-validating %s on %s", family.Name(), in.Describe()))
	}

	result, runErr := family.Evaluate(ctx, in, run.Folds, opts...)

	if promObs != nil {
		if err := promObs.WriteTextfile(a.cfg.Telemetry.TextfilePath); err != nil {
			a.logger.Warn("Writing metrics textfile failed", "path", a.cfg.Telemetry.TextfilePath, "error", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	rec := storage.RunRecord{Model: family.Name(), Corpus: in.Describe(), Result: result}
	if !f.noSave {
		if err := storage.NewRunStore(db).Save(ctx, rec); err != nil {
			return cverrors.Wrap(cverrors.KindIO, cverrors.NoFold, "save run", err)
		}
	}

	if a.jsonOut {
		return a.writeJSON(rec)
	}
	renderRun(out, &rec)
	return nil
}

// progressObserver prints one line per finished fold.
type progressObserver struct {
	crossval.NopObserver

	mu   sync.Mutex
	out  *ux.Printer
	done int
}

func newProgressObserver(out *ux.Printer) *progressObserver {
	return &progressObserver{out: out}
}

func (p *progressObserver) FoldFinished(_ context.Context, run crossval.RunInfo, fold crossval.FoldResult, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++

	bar := p.out.ProgressBar(p.done, run.K, 20)
	switch {
	case err != nil:
		p.out.Warning(fmt.Sprintf("fold %d failed: %v", fold.Index, err))
	case fold.Skipped:
		p.out.Muted(fmt.Sprintf("%s fold %d skipped, empty test set", bar, fold.Index))
	default:
		p.out.Info(fmt.Sprintf("%s fold %d  F=%.4f  (%d train, %d test)",
			bar, fold.Index, fold.FMeasure(), fold.TrainingSamples, fold.TestSamples))
	}
}
