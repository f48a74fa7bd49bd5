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
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianFold/pkg/ux"
	"github.com/AleutianAI/AleutianFold/services/crossval/metric"
	"github.com/AleutianAI/AleutianFold/services/crossval/storage"
)

var foldHeader = []string{"fold", "train", "test", "tp", "fp", "fn", "precision", "recall", "f-measure"}

// renderRun prints a stored or freshly finished run.
func renderRun(out *ux.Printer, rec *storage.RunRecord) {
	r := rec.Result
	out.KeyValue(
		"run", r.RunID,
		"model", rec.Model,
		"corpus", rec.Corpus,
		"started", r.StartedAt.Format(time.RFC3339),
		"duration", r.Duration.Round(time.Millisecond).String(),
		"folds", strconv.Itoa(r.K),
		"params", formatParams(r.Params),
	)

	rows := make([][]string, 0, len(r.Folds))
	for _, f := range r.Folds {
		if f.Skipped {
			rows = append(rows, []string{strconv.Itoa(f.Index), strconv.Itoa(f.TrainingSamples), "0",
				"-", "-", "-", "-", "-", "skipped"})
			continue
		}
		rows = append(rows, countsRow(strconv.Itoa(f.Index), f.TrainingSamples, f.TestSamples, f.Counts))
	}
	var total []string
	if r.Aggregate != nil {
		total = countsRow("all", 0, 0, r.Aggregate.Counts())
		total[1], total[2] = "", ""
	}
	out.Table(foldHeader, rows, total)

	if r.Aggregate != nil {
		out.Box("Aggregate", r.Aggregate.String())
	}
	if s := r.Spread; s != nil {
		out.Box("F-measure across folds", fmt.Sprintf("mean %.4f  sd %.4f  %.0f%% CI [%.4f, %.4f] over %d folds",
			s.Mean, s.StdDev, s.CI.Level*100, s.CI.Lower, s.CI.Upper, s.Folds))
	}
}

func countsRow(label string, train, test int, c metric.Counts) []string {
	acc := metric.FromCounts(c)
	return []string{
		label,
		strconv.Itoa(train),
		strconv.Itoa(test),
		strconv.FormatInt(c.TruePositives, 10),
		strconv.FormatInt(c.FalsePositives, 10),
		strconv.FormatInt(c.FalseNegatives, 10),
		fmt.Sprintf("%.4f", acc.Precision()),
		fmt.Sprintf("%.4f", acc.Recall()),
		fmt.Sprintf("%.4f", acc.FMeasure()),
	}
}

func formatParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + params[k]
	}
	return strings.Join(parts, " ")
}
