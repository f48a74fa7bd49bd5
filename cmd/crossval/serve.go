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
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianFold/services/crossval/api"
	"github.com/AleutianAI/AleutianFold/services/crossval/telemetry"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve recorded runs and metrics over HTTP (read-only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := a.openDB()
			if err != nil {
				return err
			}

			shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
				ServiceName:    serviceName,
				ServiceVersion: api.ServiceVersion,
				TraceExporter:  a.cfg.Telemetry.Tracing,
				MetricExporter: a.cfg.Telemetry.Metrics,
				OTLPEndpoint:   a.cfg.Telemetry.OTLPEndpoint,
				OTLPInsecure:   true,
			})
			if err != nil {
				return err
			}
			defer func() { _ = shutdownTelemetry(context.WithoutCancel(ctx)) }()

			if !a.verbose {
				gin.SetMode(gin.ReleaseMode)
			}
			router := api.NewRouter(serviceName, api.NewHandlers(db, a.logger), promhttp.Handler())
			srv := &http.Server{
				Addr:              addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			a.logger.Info("Serving fold API", "address", addr)
			a.printer().Success("serving on " + addr)

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			a.logger.Info("Shutting down fold API")
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8090", "listen address")
	return cmd
}
