// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RegisterRoutes registers the fold endpoints under rg.
//
// Endpoints:
//
//	GET /v1/fold/health     - Health check
//	GET /v1/fold/runs       - Stored runs, newest first
//	GET /v1/fold/runs/:id   - One stored run with per-fold results
//	GET /v1/fold/corpora    - Stored corpora and their sizes
//
// Example:
//
//	handlers := api.NewHandlers(db, logger)
//	v1 := router.Group("/v1")
//	api.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	fold := rg.Group("/fold")
	{
		fold.GET("/health", handlers.HandleHealth)
		fold.GET("/runs", handlers.HandleListRuns)
		fold.GET("/runs/:id", handlers.HandleGetRun)
		fold.GET("/corpora", handlers.HandleListCorpora)
	}
}

// NewRouter returns a gin engine with tracing middleware, the fold routes
// and, when metrics is non-nil, GET /metrics.
func NewRouter(service string, handlers *Handlers, metrics http.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(service))

	RegisterRoutes(router.Group("/v1"), handlers)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}
	return router
}
