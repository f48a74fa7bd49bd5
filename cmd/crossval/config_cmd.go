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
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianFold/services/crossval/config"
	"github.com/AleutianAI/AleutianFold/services/crossval/cverrors"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if path == "" {
				path = defaultConfigPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return cverrors.New(cverrors.KindConfiguration, "init config", "%s exists, use --force to overwrite", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return cverrors.Wrap(cverrors.KindIO, cverrors.NoFold, "init config", err)
			}
			if err := config.Default().Save(path); err != nil {
				return cverrors.Wrap(cverrors.KindIO, cverrors.NoFold, "init config", err)
			}
			a.printer().Success("wrote " + path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.jsonOut {
				return a.writeJSON(a.cfg)
			}
			data, err := yaml.Marshal(a.cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = a.stdout.Write(data)
			return err
		},
	}

	// init must work when the existing file is invalid.
	initCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error { return nil }

	cmd.AddCommand(initCmd, show)
	return cmd
}

func newModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List registered model families",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := a.families.List()
			rows := make([][]string, 0, len(names))
			type entry struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			}
			entries := make([]entry, 0, len(names))
			for _, name := range names {
				f, err := a.families.Get(name)
				if err != nil {
					continue
				}
				rows = append(rows, []string{f.Name(), f.Description()})
				entries = append(entries, entry{f.Name(), f.Description()})
			}
			if a.jsonOut {
				return a.writeJSON(entries)
			}
			a.printer().Table([]string{"model", "description"}, rows, nil)
			return nil
		},
	}
}
