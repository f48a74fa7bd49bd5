// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/AleutianFold/services/crossval"
)

// ErrInvalidConfig is returned for an incomplete PrometheusConfig.
var ErrInvalidConfig = errors.New("invalid prometheus configuration")

// PrometheusConfig configures a PrometheusObserver.
type PrometheusConfig struct {
	Namespace string
	Subsystem string

	// Model is the value of the model label.
	Model string

	// Registry receives the collectors. Default: a new registry owned by
	// the observer.
	Registry *prometheus.Registry

	// DurationBuckets are the fold duration histogram buckets in seconds.
	DurationBuckets []float64
}

// DefaultPrometheusConfig returns namespace "aleutian", subsystem
// "crossval".
func DefaultPrometheusConfig() PrometheusConfig {
	return PrometheusConfig{
		Namespace:       "aleutian",
		Subsystem:       "crossval",
		DurationBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 3600},
	}
}

// Validate checks the required fields.
func (c PrometheusConfig) Validate() error {
	if c.Namespace == "" {
		return errors.New("namespace is required")
	}
	if c.Subsystem == "" {
		return errors.New("subsystem is required")
	}
	return nil
}

// PrometheusObserver exposes runs as Prometheus metrics.
type PrometheusObserver struct {
	model    string
	registry *prometheus.Registry

	runsTotal    *prometheus.CounterVec
	foldsTotal   *prometheus.CounterVec
	foldDuration *prometheus.HistogramVec
	scores       *prometheus.GaugeVec
	counts       *prometheus.GaugeVec
	lastRun      *prometheus.GaugeVec
}

var _ crossval.Observer = (*PrometheusObserver)(nil)

// NewPrometheusObserver registers the collectors.
func NewPrometheusObserver(cfg PrometheusConfig) (*PrometheusObserver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	if cfg.DurationBuckets == nil {
		cfg.DurationBuckets = DefaultPrometheusConfig().DurationBuckets
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	o := &PrometheusObserver{model: cfg.Model, registry: reg}
	o.runsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "runs_total",
		Help:      "Cross-validation runs finished, by status",
	}, []string{"model", "status"})
	o.foldsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "folds_total",
		Help:      "Folds finished, by status",
	}, []string{"model", "status"})
	o.foldDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "fold_duration_seconds",
		Help:      "Training plus evaluation time of one fold",
		Buckets:   cfg.DurationBuckets,
	}, []string{"model"})
	o.scores = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "score",
		Help:      "Aggregate score of the last completed run",
	}, []string{"model", "measure"})
	o.counts = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "count",
		Help:      "Aggregate counts of the last completed run",
	}, []string{"model", "outcome"})
	o.lastRun = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "last_run_timestamp_seconds",
		Help:      "Start time of the last completed run",
	}, []string{"model"})
	return o, nil
}

// Registry returns the registry holding the collectors.
func (o *PrometheusObserver) Registry() *prometheus.Registry { return o.registry }

// Handler serves the registry in the Prometheus exposition format.
func (o *PrometheusObserver) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})
}

// WriteTextfile atomically writes the registry to path for node_exporter's
// textfile collector.
func (o *PrometheusObserver) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, o.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func (o *PrometheusObserver) RunStarted(ctx context.Context, _ crossval.RunInfo) context.Context {
	return ctx
}

func (o *PrometheusObserver) FoldStarted(ctx context.Context, _ crossval.RunInfo, _ int) context.Context {
	return ctx
}

func (o *PrometheusObserver) FoldFinished(_ context.Context, _ crossval.RunInfo, fold crossval.FoldResult, err error) {
	o.foldsTotal.WithLabelValues(o.model, statusOf(err, fold.Skipped)).Inc()
	if err == nil && !fold.Skipped {
		o.foldDuration.WithLabelValues(o.model).Observe(fold.Duration.Seconds())
	}
}

func (o *PrometheusObserver) RunFinished(_ context.Context, _ crossval.RunInfo, result *crossval.Result, err error) {
	o.runsTotal.WithLabelValues(o.model, statusOf(err, false)).Inc()
	if result == nil {
		return
	}
	agg := result.Aggregate
	o.scores.WithLabelValues(o.model, "precision").Set(agg.Precision())
	o.scores.WithLabelValues(o.model, "recall").Set(agg.Recall())
	o.scores.WithLabelValues(o.model, "f_measure").Set(agg.FMeasure())

	c := agg.Counts()
	o.counts.WithLabelValues(o.model, "true_positive").Set(float64(c.TruePositives))
	o.counts.WithLabelValues(o.model, "false_positive").Set(float64(c.FalsePositives))
	o.counts.WithLabelValues(o.model, "false_negative").Set(float64(c.FalseNegatives))
	o.lastRun.WithLabelValues(o.model).Set(float64(result.StartedAt.Unix()))
}
