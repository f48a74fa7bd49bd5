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
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianFold/pkg/logging"
	"github.com/AleutianAI/AleutianFold/pkg/ux"
	"github.com/AleutianAI/AleutianFold/services/crossval/config"
	"github.com/AleutianAI/AleutianFold/services/crossval/cverrors"
	"github.com/AleutianAI/AleutianFold/services/crossval/models/lexicon"
	"github.com/AleutianAI/AleutianFold/services/crossval/registry"
	"github.com/AleutianAI/AleutianFold/services/crossval/storage"
)

const serviceName = "aleutian-fold"

// app carries the state shared by every command of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	// Persistent flags.
	configPath string
	output     string
	jsonOut    bool
	verbose    bool

	cfg      *config.Config
	logger   *logging.Logger
	out      *ux.Printer
	families *registry.Registry
	db       *storage.DB
}

func newApp(stdout, stderr io.Writer) *app {
	families := registry.New()
	families.MustRegister(lexicon.Family())
	return &app{
		stdout:   stdout,
		stderr:   stderr,
		families: families,
		logger:   logging.Discard(),
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "crossval",
		Short: "Streaming k-fold cross-validation of model families",
		Long: `crossval partitions a corpus into k folds, trains a model on every
fold's training part, evaluates it on the held-out part and reports the
summed precision, recall and F-measure with their spread across folds.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default ~/.aleutian/fold/"+config.DefaultFileName+")")
	pf.StringVar(&a.output, "output", "", "output style: full, minimal or machine (default: detect)")
	pf.BoolVar(&a.jsonOut, "json", false, "print results as JSON")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log to stderr at debug level")

	root.AddCommand(
		newEvaluateCmd(a),
		newImportCmd(a),
		newCorporaCmd(a),
		newRunsCmd(a),
		newModelsCmd(a),
		newConfigCmd(a),
		newServeCmd(a),
	)
	return root
}

func defaultConfigPath() string {
	return filepath.Join(config.BaseDir(), config.DefaultFileName)
}

// setup loads configuration and builds the logger and printer.
func (a *app) setup() error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath == "" {
		cfg, err = config.LoadOrDefault(defaultConfigPath())
	} else {
		cfg, err = config.Load(a.configPath)
	}
	if err != nil {
		return err
	}
	a.cfg = cfg

	lc := cfg.LoggerConfig(serviceName)
	lc.Writer = a.stderr
	lc.Quiet = !a.verbose
	if a.verbose {
		lc.Level = logging.LevelDebug
	}
	a.logger = logging.New(lc)
	a.out = nil
	return nil
}

func (a *app) printer() *ux.Printer {
	if a.out == nil {
		a.out = &ux.Printer{Level: a.level(), Out: a.stdout, Err: a.stderr}
	}
	return a.out
}

func (a *app) level() ux.PersonalityLevel {
	switch {
	case a.jsonOut:
		return ux.PersonalityMachine
	case a.output != "":
		return ux.ParsePersonalityLevel(a.output)
	}
	if f, ok := a.stdout.(*os.File); ok {
		return ux.DetectPersonality(f)
	}
	return ux.PersonalityMachine
}

// openDB opens the configured database once per invocation.
func (a *app) openDB() (*storage.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	sc := a.cfg.StorageConfig()
	sc.Logger = a.logger.Slog()
	db, err := storage.Open(sc)
	if err != nil {
		return nil, cverrors.Wrap(cverrors.KindIO, cverrors.NoFold, "open database", err)
	}
	a.db = db
	return db, nil
}

func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("Closing database failed", "error", err)
		}
		a.db = nil
	}
	_ = a.logger.Close()
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		return 130
	}
	switch cverrors.KindOf(err) {
	case cverrors.KindConfiguration:
		return 2
	case cverrors.KindIO:
		return 3
	case cverrors.KindTraining:
		return 4
	case cverrors.KindEvaluation:
		return 5
	case cverrors.KindCancelled:
		return 130
	default:
		return 1
	}
}
