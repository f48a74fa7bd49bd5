// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package api serves stored cross-validation results over HTTP.
//
// The API is read-only. Runs are produced by the command line and read back
// here, alongside the Prometheus metrics of the serving process.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianFold/pkg/logging"
	"github.com/AleutianAI/AleutianFold/services/crossval/storage"
)

// ServiceVersion is reported by the health endpoint.
const ServiceVersion = "1.0.0"

// DefaultListLimit caps GET /runs without a limit parameter.
const DefaultListLimit = 50

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is a stable machine-readable error code.
	Code string `json:"code,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// RunSummary is one entry of GET /runs.
type RunSummary struct {
	RunID     string    `json:"run_id"`
	Model     string    `json:"model"`
	Corpus    string    `json:"corpus"`
	StartedAt time.Time `json:"started_at"`
	K         int       `json:"k"`
	Precision float64   `json:"precision"`
	Recall    float64   `json:"recall"`
	FMeasure  float64   `json:"f_measure"`
}

// Summarize condenses a stored run.
func Summarize(rec *storage.RunRecord) RunSummary {
	s := RunSummary{Model: rec.Model, Corpus: rec.Corpus}
	if r := rec.Result; r != nil {
		s.RunID = r.RunID
		s.StartedAt = r.StartedAt
		s.K = r.K
		if r.Aggregate != nil {
			s.Precision = r.Aggregate.Precision()
			s.Recall = r.Aggregate.Recall()
			s.FMeasure = r.Aggregate.FMeasure()
		}
	}
	return s
}

// Handlers serves run history and corpora from one database.
type Handlers struct {
	db     *storage.DB
	runs   *storage.RunStore
	logger *logging.Logger
}

// NewHandlers creates handlers over db. A nil logger discards.
func NewHandlers(db *storage.DB, logger *logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handlers{db: db, runs: storage.NewRunStore(db), logger: logger}
}

// HandleHealth handles GET /v1/fold/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Version: ServiceVersion})
}

// HandleListRuns handles GET /v1/fold/runs?limit=N.
//
// Response:
//
//	200 OK: []RunSummary, newest first
//	400 Bad Request: limit is not a positive integer
func (h *Handlers) HandleListRuns(c *gin.Context) {
	limit := DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "limit must be a positive integer",
				Code:  "INVALID_PARAMETER",
			})
			return
		}
		limit = n
	}

	recs, err := h.runs.List(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("List runs failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "STORAGE_ERROR"})
		return
	}
	out := make([]RunSummary, len(recs))
	for i, rec := range recs {
		out[i] = Summarize(rec)
	}
	c.JSON(http.StatusOK, out)
}

// HandleGetRun handles GET /v1/fold/runs/:id.
//
// Response:
//
//	200 OK: storage.RunRecord with per-fold results
//	404 Not Found: no such run
func (h *Handlers) HandleGetRun(c *gin.Context) {
	id := c.Param("id")
	rec, err := h.runs.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "RUN_NOT_FOUND"})
			return
		}
		h.logger.Error("Get run failed", "run_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "STORAGE_ERROR"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// HandleListCorpora handles GET /v1/fold/corpora.
func (h *Handlers) HandleListCorpora(c *gin.Context) {
	corpora, err := h.db.ListCorpora(c.Request.Context())
	if err != nil {
		h.logger.Error("List corpora failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "STORAGE_ERROR"})
		return
	}
	if corpora == nil {
		corpora = []storage.CorpusInfo{}
	}
	c.JSON(http.StatusOK, corpora)
}
