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
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianFold/services/crossval/cverrors"
	"github.com/AleutianAI/AleutianFold/services/crossval/screen"
	"github.com/AleutianAI/AleutianFold/services/crossval/storage"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		corpus, model  string
		allowSensitive bool
	)
	cmd := &cobra.Command{
		Use:   "import <corpus-file>",
		Short: "Append a corpus file to a stored corpus",
		Long: `Append a corpus file to a stored corpus. The file is screened for
credentials and personal data first; any match aborts the import unless
--allow-sensitive is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !allowSensitive {
				if err := a.screenCorpus(cmd.Context(), args[0]); err != nil {
					return err
				}
			}
			if model == "" {
				model = a.cfg.Run.Model
			}
			family, err := a.families.Get(model)
			if err != nil {
				return cverrors.Wrap(cverrors.KindConfiguration, cverrors.NoFold, "select model", err)
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			n, err := family.Import(cmd.Context(), db, corpus, args[0])
			if err != nil {
				return err
			}
			a.logger.Info("Imported corpus", "corpus", corpus, "path", args[0], "samples", n)
			if a.jsonOut {
				return a.writeJSON(map[string]any{"corpus": corpus, "imported": n})
			}
			a.printer().Success(fmt.Sprintf("imported %d samples into %s", n, corpus))
			return nil
		},
	}
	cmd.Flags().StringVar(&corpus, "corpus", "", "stored corpus name")
	cmd.Flags().StringVarP(&model, "model", "m", "", "model family whose line format the file uses (default from config)")
	cmd.Flags().BoolVar(&allowSensitive, "allow-sensitive", false, "import even if the screen finds credentials or personal data")
	_ = cmd.MarkFlagRequired("corpus")
	return cmd
}

// screenCorpus refuses a file that matches any screen rule.
func (a *app) screenCorpus(ctx context.Context, path string) error {
	s, err := screen.New()
	if err != nil {
		return fmt.Errorf("load screen rules: %w", err)
	}
	findings, err := s.ScanFile(ctx, path)
	if err != nil {
		return err
	}
	if len(findings) == 0 {
		return nil
	}
	out := a.printer()
	for _, f := range findings {
		out.Warning(f.String())
	}
	a.logger.Warn("Corpus failed screening", "path", path, "findings", len(findings))
	return cverrors.New(cverrors.KindConfiguration, "screen corpus",
		"%s has %d sensitive match(es), use --allow-sensitive to import anyway", path, len(findings))
}

func newCorporaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpora",
		Short: "Manage stored corpora",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored corpora",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			corpora, err := db.ListCorpora(cmd.Context())
			if err != nil {
				return cverrors.Wrap(cverrors.KindIO, cverrors.NoFold, "list corpora", err)
			}
			if a.jsonOut {
				if corpora == nil {
					corpora = []storage.CorpusInfo{}
				}
				return a.writeJSON(corpora)
			}
			out := a.printer()
			if len(corpora) == 0 {
				out.Muted("no stored corpora")
				return nil
			}
			rows := make([][]string, len(corpora))
			for i, c := range corpora {
				rows[i] = []string{c.Name, strconv.Itoa(c.Samples)}
			}
			out.Table([]string{"corpus", "samples"}, rows, nil)
			return nil
		},
	}

	drop := &cobra.Command{
		Use:   "drop <name>",
		Short: "Delete a stored corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			c, err := storage.NewCorpus[json.RawMessage](cmd.Context(), db, args[0], nil)
			if err != nil {
				return cverrors.Wrap(cverrors.KindConfiguration, cverrors.NoFold, "drop corpus", err)
			}
			if err := c.Drop(cmd.Context()); err != nil {
				return cverrors.Wrap(cverrors.KindIO, cverrors.NoFold, "drop corpus", err)
			}
			a.printer().Success("dropped " + args[0])
			return nil
		},
	}

	cmd.AddCommand(list, drop)
	return cmd
}
