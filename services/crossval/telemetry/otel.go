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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianFold/services/crossval"
	"github.com/AleutianAI/AleutianFold/services/crossval/cverrors"
)

// OTelConfig configures an OTelObserver.
type OTelConfig struct {
	// Model is recorded on every span and data point.
	Model string

	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider

	// MeterProvider defaults to the global provider.
	MeterProvider metric.MeterProvider
}

// OTelObserver records runs and folds as spans and OTel metrics.
type OTelObserver struct {
	model  string
	tracer trace.Tracer

	foldDuration metric.Float64Histogram
	foldsTotal   metric.Int64Counter
	runsTotal    metric.Int64Counter
	fMeasure     metric.Float64Gauge
	precision    metric.Float64Gauge
	recall       metric.Float64Gauge
}

var _ crossval.Observer = (*OTelObserver)(nil)

// NewOTelObserver creates the observer and its instruments.
func NewOTelObserver(cfg OTelConfig) (*OTelObserver, error) {
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	mp := cfg.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	o := &OTelObserver{
		model:  cfg.Model,
		tracer: tp.Tracer(instrumentationName),
	}

	var err, e error
	o.foldDuration, e = meter.Float64Histogram("crossval.fold.duration",
		metric.WithDescription("Training plus evaluation time of one fold"),
		metric.WithUnit("s"))
	err = errors.Join(err, e)
	o.foldsTotal, e = meter.Int64Counter("crossval.folds",
		metric.WithDescription("Folds finished, by status"),
		metric.WithUnit("{fold}"))
	err = errors.Join(err, e)
	o.runsTotal, e = meter.Int64Counter("crossval.runs",
		metric.WithDescription("Runs finished, by status"),
		metric.WithUnit("{run}"))
	err = errors.Join(err, e)
	o.fMeasure, e = meter.Float64Gauge("crossval.f_measure",
		metric.WithDescription("Aggregate F-measure of the last completed run"))
	err = errors.Join(err, e)
	o.precision, e = meter.Float64Gauge("crossval.precision",
		metric.WithDescription("Aggregate precision of the last completed run"))
	err = errors.Join(err, e)
	o.recall, e = meter.Float64Gauge("crossval.recall",
		metric.WithDescription("Aggregate recall of the last completed run"))
	err = errors.Join(err, e)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// RunStarted starts the run span.
func (o *OTelObserver) RunStarted(ctx context.Context, run crossval.RunInfo) context.Context {
	ctx, _ = o.tracer.Start(ctx, "crossval.run", trace.WithAttributes(
		attribute.String("crossval.run_id", run.RunID),
		attribute.String("crossval.model", o.model),
		attribute.Int("crossval.k", run.K),
	))
	return ctx
}

// FoldStarted starts a fold span under the run span.
func (o *OTelObserver) FoldStarted(ctx context.Context, run crossval.RunInfo, fold int) context.Context {
	ctx, _ = o.tracer.Start(ctx, "crossval.fold", trace.WithAttributes(
		attribute.String("crossval.run_id", run.RunID),
		attribute.Int("crossval.fold", fold),
	))
	return ctx
}

// FoldFinished ends the fold span and records the fold.
func (o *OTelObserver) FoldFinished(ctx context.Context, _ crossval.RunInfo, fold crossval.FoldResult, err error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.Int("crossval.training_samples", fold.TrainingSamples),
		attribute.Int("crossval.test_samples", fold.TestSamples),
		attribute.Int64("crossval.true_positives", fold.Counts.TruePositives),
		attribute.Int64("crossval.false_positives", fold.Counts.FalsePositives),
		attribute.Int64("crossval.false_negatives", fold.Counts.FalseNegatives),
		attribute.Bool("crossval.skipped", fold.Skipped),
	)
	status := statusOf(err, fold.Skipped)
	endSpan(span, err)

	attrs := metric.WithAttributes(attribute.String("model", o.model), attribute.String("status", status))
	o.foldsTotal.Add(ctx, 1, attrs)
	o.foldDuration.Record(ctx, fold.Duration.Seconds(), attrs)
}

// RunFinished ends the run span and records the aggregate.
func (o *OTelObserver) RunFinished(ctx context.Context, _ crossval.RunInfo, result *crossval.Result, err error) {
	span := trace.SpanFromContext(ctx)
	model := attribute.String("model", o.model)
	o.runsTotal.Add(ctx, 1, metric.WithAttributes(model, attribute.String("status", statusOf(err, false))))

	if result != nil {
		span.SetAttributes(
			attribute.Float64("crossval.precision", result.Aggregate.Precision()),
			attribute.Float64("crossval.recall", result.Aggregate.Recall()),
			attribute.Float64("crossval.f_measure", result.Aggregate.FMeasure()),
		)
		o.precision.Record(ctx, result.Aggregate.Precision(), metric.WithAttributes(model))
		o.recall.Record(ctx, result.Aggregate.Recall(), metric.WithAttributes(model))
		o.fMeasure.Record(ctx, result.Aggregate.FMeasure(), metric.WithAttributes(model))
	}
	endSpan(span, err)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("crossval.error_kind", cverrors.KindOf(err).String()))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// statusOf maps an outcome to a low-cardinality status label.
func statusOf(err error, skipped bool) string {
	switch {
	case err != nil:
		return cverrors.KindOf(err).String()
	case skipped:
		return "skipped"
	default:
		return "ok"
	}
}
