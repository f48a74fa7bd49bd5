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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianFold/services/crossval"
	"github.com/AleutianAI/AleutianFold/services/crossval/metric"
	"github.com/AleutianAI/AleutianFold/services/crossval/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T) (*gin.Engine, *storage.DB) {
	t.Helper()
	db, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})
	return NewRouter("fold-test", NewHandlers(db, nil), metrics), db
}

func saveRun(t *testing.T, db *storage.DB, id string, started time.Time, c metric.Counts) {
	t.Helper()
	rec := storage.RunRecord{
		Model:  "lexicon",
		Corpus: "corpus:news",
		Result: &crossval.Result{
			RunID:     id,
			StartedAt: started,
			K:         2,
			Aggregate: metric.FromCounts(c),
			Folds:     []crossval.FoldResult{{Index: 0, Counts: c}},
		},
	}
	require.NoError(t, storage.NewRunStore(db).Save(context.Background(), rec))
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	router, _ := setupRouter(t)
	w := get(router, "/v1/fold/health")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, ServiceVersion, resp.Version)
}

func TestHandleListRuns(t *testing.T) {
	router, db := setupRouter(t)
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	saveRun(t, db, "old", base, metric.Counts{TruePositives: 1, FalseNegatives: 1})
	saveRun(t, db, "new", base.Add(time.Hour), metric.Counts{TruePositives: 3, FalsePositives: 1})

	w := get(router, "/v1/fold/runs")
	require.Equal(t, http.StatusOK, w.Code)

	var runs []RunSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].RunID)
	assert.Equal(t, "lexicon", runs[0].Model)
	assert.InDelta(t, 0.75, runs[0].Precision, 1e-9)
	assert.InDelta(t, 0.5, runs[1].Recall, 1e-9)

	w = get(router, "/v1/fold/runs?limit=1")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	assert.Len(t, runs, 1)
}

func TestHandleListRuns_InvalidLimit(t *testing.T) {
	router, _ := setupRouter(t)
	for _, q := range []string{"0", "-3", "many"} {
		w := get(router, "/v1/fold/runs?limit="+q)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "INVALID_PARAMETER", resp.Code)
	}
}

func TestHandleGetRun(t *testing.T) {
	router, db := setupRouter(t)
	saveRun(t, db, "r1", time.Now(), metric.Counts{TruePositives: 2})

	w := get(router, "/v1/fold/runs/r1")
	require.Equal(t, http.StatusOK, w.Code)
	var rec storage.RunRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "r1", rec.Result.RunID)
	assert.Equal(t, int64(2), rec.Result.Aggregate.Counts().TruePositives)

	w = get(router, "/v1/fold/runs/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleListCorpora(t *testing.T) {
	router, db := setupRouter(t)

	w := get(router, "/v1/fold/corpora")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	c, err := storage.NewCorpus[string](context.Background(), db, "words", nil)
	require.NoError(t, err)
	require.NoError(t, c.Append(context.Background(), "a", "b", "c"))

	w = get(router, "/v1/fold/corpora")
	var corpora []storage.CorpusInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &corpora))
	assert.Equal(t, []storage.CorpusInfo{{Name: "words", Samples: 3}}, corpora)
}

func TestMetricsRoute(t *testing.T) {
	router, _ := setupRouter(t)
	w := get(router, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "# metrics")
}
