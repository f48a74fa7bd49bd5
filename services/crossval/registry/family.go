// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/AleutianAI/AleutianFold/services/crossval"
	"github.com/AleutianAI/AleutianFold/services/crossval/cverrors"
	"github.com/AleutianAI/AleutianFold/services/crossval/sample"
	"github.com/AleutianAI/AleutianFold/services/crossval/storage"
)

// Input locates a corpus. Exactly one of Path or Corpus must be set.
type Input struct {
	// Path is a line-oriented corpus file.
	Path string

	// Retry, when non-nil, retries opening Path.
	Retry *sample.RetryConfig

	// Corpus names a stored corpus in DB.
	Corpus string

	// DB holds stored corpora. Required with Corpus.
	DB *storage.DB
}

// Describe returns a short human-readable name of the input.
func (in Input) Describe() string {
	if in.Corpus != "" {
		return "corpus:" + in.Corpus
	}
	return in.Path
}

// Family is a model family that can be cross-validated by name, without the
// caller knowing its sample type.
type Family interface {
	// Name is the registry key.
	Name() string

	// Description is a one-line summary for listings.
	Description() string

	// Evaluate cross-validates the family over in with k folds.
	Evaluate(ctx context.Context, in Input, k int, opts ...crossval.Option) (*crossval.Result, error)

	// Import appends the samples of the file at path to the stored corpus
	// named corpus and returns how many were added.
	Import(ctx context.Context, db *storage.DB, corpus, path string) (int, error)
}

// TypedFamily binds a sample type to a trainer, an evaluator and the codecs
// that read it from files and the store.
type TypedFamily[T any] struct {
	// FamilyName is returned by Name.
	FamilyName string

	// Summary is returned by Description.
	Summary string

	// Decode parses one non-blank corpus file line.
	Decode func(line string) (T, error)

	// Codec stores samples. Nil selects storage.JSONCodec.
	Codec storage.Codec[T]

	// Trainer and Evaluator are handed to crossval.New.
	Trainer   crossval.Trainer[T]
	Evaluator crossval.Evaluator[T]

	// RequiredParams are checked before any fold runs.
	RequiredParams []string

	// IntParams must parse as integers when present. Checked before any
	// fold runs.
	IntParams []string
}

var _ Family = (*TypedFamily[struct{}])(nil)

// Name implements Family.
func (f *TypedFamily[T]) Name() string { return f.FamilyName }

// Description implements Family.
func (f *TypedFamily[T]) Description() string { return f.Summary }

// Source resolves in to a sample source.
func (f *TypedFamily[T]) Source(ctx context.Context, in Input) (sample.Source[T], error) {
	switch {
	case in.Path != "" && in.Corpus != "":
		return nil, cverrors.New(cverrors.KindConfiguration, "resolve input", "both a corpus file and a stored corpus were given")
	case in.Corpus != "":
		if in.DB == nil {
			return nil, cverrors.New(cverrors.KindConfiguration, "resolve input", "stored corpus %q needs a database", in.Corpus)
		}
		c, err := storage.NewCorpus(ctx, in.DB, in.Corpus, f.Codec)
		if err != nil {
			return nil, cverrors.Wrap(cverrors.KindConfiguration, cverrors.NoFold, "resolve input", err)
		}
		return c, nil
	case in.Path != "":
		if f.Decode == nil {
			return nil, cverrors.New(cverrors.KindConfiguration, "resolve input", "model %s cannot read corpus files", f.FamilyName)
		}
		var src sample.Source[T] = sample.NewFileSource(in.Path, f.Decode)
		if in.Retry != nil {
			src = sample.WithRetry(src, *in.Retry)
		}
		return src, nil
	default:
		return nil, cverrors.New(cverrors.KindConfiguration, "resolve input", "no corpus given")
	}
}

// Evaluate implements Family.
func (f *TypedFamily[T]) Evaluate(ctx context.Context, in Input, k int, opts ...crossval.Option) (*crossval.Result, error) {
	src, err := f.Source(ctx, in)
	if err != nil {
		return nil, err
	}
	all := append([]crossval.Option{
		crossval.WithRequiredParams(f.RequiredParams...),
		crossval.WithIntParams(f.IntParams...),
	}, opts...)
	d, err := crossval.New(f.Trainer, f.Evaluator, all...)
	if err != nil {
		return nil, err
	}
	return d.Evaluate(ctx, src, k)
}

// Import implements Family.
func (f *TypedFamily[T]) Import(ctx context.Context, db *storage.DB, corpus, path string) (int, error) {
	if db == nil {
		return 0, errors.New("import needs a database")
	}
	src, err := f.Source(ctx, Input{Path: path})
	if err != nil {
		return 0, err
	}
	c, err := storage.NewCorpus(ctx, db, corpus, f.Codec)
	if err != nil {
		return 0, err
	}
	n, err := c.Import(ctx, src)
	if err != nil {
		return n, fmt.Errorf("import %s into %s: %w", path, corpus, err)
	}
	return n, nil
}
