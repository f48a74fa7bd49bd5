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
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianFold/services/crossval/api"
	"github.com/AleutianAI/AleutianFold/services/crossval/cverrors"
	"github.com/AleutianAI/AleutianFold/services/crossval/storage"
)

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded runs",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.runStore()
			if err != nil {
				return err
			}
			recs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return cverrors.Wrap(cverrors.KindIO, cverrors.NoFold, "list runs", err)
			}
			summaries := make([]api.RunSummary, len(recs))
			for i, rec := range recs {
				summaries[i] = api.Summarize(rec)
			}
			if a.jsonOut {
				return a.writeJSON(summaries)
			}

			out := a.printer()
			if len(summaries) == 0 {
				out.Muted("no recorded runs")
				return nil
			}
			rows := make([][]string, len(summaries))
			for i, s := range summaries {
				rows[i] = []string{
					s.RunID,
					s.StartedAt.Local().Format(time.DateTime),
					s.Model,
					s.Corpus,
					strconv.Itoa(s.K),
					fmt.Sprintf("%.4f", s.FMeasure),
				}
			}
			out.Table([]string{"run", "started", "model", "corpus", "k", "f-measure"}, rows, nil)
			return nil
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list, 0 for all")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a recorded run with its per-fold results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.runStore()
			if err != nil {
				return err
			}
			rec, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, storage.ErrRunNotFound) {
					return cverrors.Wrap(cverrors.KindConfiguration, cverrors.NoFold, "show run", err)
				}
				return cverrors.Wrap(cverrors.KindIO, cverrors.NoFold, "show run", err)
			}
			if a.jsonOut {
				return a.writeJSON(rec)
			}
			renderRun(a.printer(), rec)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <run-id>...",
		Short: "Delete recorded runs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.runStore()
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := store.Delete(cmd.Context(), id); err != nil {
					return cverrors.Wrap(cverrors.KindIO, cverrors.NoFold, "delete run", err)
				}
			}
			a.printer().Success(fmt.Sprintf("deleted %d run(s)", len(args)))
			return nil
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}

func (a *app) runStore() (*storage.RunStore, error) {
	db, err := a.openDB()
	if err != nil {
		return nil, err
	}
	return storage.NewRunStore(db), nil
}
