// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cverrors defines the error kinds shared by the cross-validation
// packages.
//
// Every failure surfaced by the harness carries exactly one Kind. Callers
// match kinds with errors.Is against the sentinel values:
//
//	res, err := driver.Evaluate(ctx, src, 10)
//	switch {
//	case errors.Is(err, cverrors.ErrConfiguration):
//	    // bad k or missing parameter, nothing ran
//	case errors.Is(err, cverrors.ErrTraining):
//	    // a fold could not be trained, run aborted
//	}
//
// The fold index, when known, is available through errors.As on *Error.
package cverrors

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Kinds
// -----------------------------------------------------------------------------

// Kind classifies a cross-validation failure.
type Kind int

const (
	// KindUnknown is the zero value.
	KindUnknown Kind = iota

	// KindConfiguration covers invalid k and missing or malformed parameters.
	// Reported before any fold runs.
	KindConfiguration

	// KindIO covers an unreadable corpus. Never retried by the core.
	KindIO

	// KindTraining covers a trainer rejecting a fold's data.
	KindTraining

	// KindEvaluation covers an evaluator failing to score a fold.
	KindEvaluation

	// KindCancelled covers a run aborted through its context.
	KindCancelled
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindConfiguration:
		return "configuration"
	case KindIO:
		return "io"
	case KindTraining:
		return "training"
	case KindEvaluation:
		return "evaluation"
	case KindCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// -----------------------------------------------------------------------------
// Sentinels
// -----------------------------------------------------------------------------

var (
	// ErrConfiguration matches configuration-kind errors.
	ErrConfiguration = errors.New("configuration error")

	// ErrIO matches I/O-kind errors.
	ErrIO = errors.New("i/o error")

	// ErrTraining matches training-kind errors.
	ErrTraining = errors.New("training failed")

	// ErrEvaluation matches evaluation-kind errors.
	ErrEvaluation = errors.New("evaluation failed")

	// ErrCancelled matches cancellation-kind errors.
	ErrCancelled = errors.New("run cancelled")
)

func (k Kind) sentinel() error {
	switch k {
	case KindConfiguration:
		return ErrConfiguration
	case KindIO:
		return ErrIO
	case KindTraining:
		return ErrTraining
	case KindEvaluation:
		return ErrEvaluation
	case KindCancelled:
		return ErrCancelled
	default:
		return nil
	}
}

// -----------------------------------------------------------------------------
// Error
// -----------------------------------------------------------------------------

// NoFold marks an error that is not attached to a particular fold.
const NoFold = -1

// Error is a classified cross-validation failure.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Fold is the zero-based fold index, or NoFold.
	Fold int

	// Op names the operation that failed (e.g. "train", "read test").
	Op string

	// Err is the underlying cause. May be nil.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Fold != NoFold {
		msg = fmt.Sprintf("fold %d: %s", e.Fold, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// New creates an Error with a formatted message as its cause.
func New(kind Kind, op string, format string, args ...any) *Error {
	return &Error{
		Kind: kind,
		Fold: NoFold,
		Op:   op,
		Err:  fmt.Errorf(format, args...),
	}
}

// Wrap classifies err. A nil err returns nil.
//
// An err that already carries a kind keeps it; only a missing fold index is
// filled in. This keeps the first classification, which is the most precise.
func Wrap(kind Kind, fold int, op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		if existing.Fold == NoFold && fold != NoFold {
			copied := *existing
			copied.Fold = fold
			return &copied
		}
		return err
	}
	return &Error{Kind: kind, Fold: fold, Op: op, Err: err}
}

// KindOf returns the kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// FoldOf returns the fold index carried by err, or NoFold.
func FoldOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Fold
	}
	return NoFold
}
