// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sample

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AleutianAI/AleutianFold/services/crossval/cverrors"
)

// maxLineBytes bounds a single corpus line.
const maxLineBytes = 4 * 1024 * 1024

// DecodeFunc turns one corpus line into a sample.
type DecodeFunc[T any] func(line string) (T, error)

// FileSource is a restartable source over a line-oriented file. Every Open
// re-opens the file, so only one line is held in memory per stream. Blank
// lines are skipped and do not occupy a position.
type FileSource[T any] struct {
	path   string
	decode DecodeFunc[T]
}

// NewFileSource returns a source decoding each non-blank line of path.
func NewFileSource[T any](path string, decode func(line string) (T, error)) *FileSource[T] {
	return &FileSource[T]{path: path, decode: decode}
}

// Path returns the file path.
func (f *FileSource[T]) Path() string { return f.path }

// Restartable implements Restartable.
func (f *FileSource[T]) Restartable() bool { return true }

// Open implements Source.
func (f *FileSource[T]) Open(ctx context.Context) (Stream[T], error) {
	if err := checkContext(ctx, "open"); err != nil {
		return nil, err
	}
	file, err := os.Open(f.path)
	if err != nil {
		return nil, cverrors.Wrap(cverrors.KindIO, cverrors.NoFold, "open corpus", err)
	}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &fileStream[T]{file: file, scanner: scanner, decode: f.decode, path: f.path}, nil
}

type fileStream[T any] struct {
	file    *os.File
	scanner *bufio.Scanner
	decode  DecodeFunc[T]
	path    string
	line    int
}

func (s *fileStream[T]) Read(ctx context.Context) (T, error) {
	var zero T
	for {
		if err := checkContext(ctx, "read"); err != nil {
			return zero, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return zero, cverrors.Wrap(cverrors.KindIO, cverrors.NoFold, "read corpus", err)
			}
			return zero, io.EOF
		}
		s.line++
		text := s.scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		v, err := s.decode(text)
		if err != nil {
			return zero, cverrors.Wrap(cverrors.KindIO, cverrors.NoFold, "decode corpus",
				fmt.Errorf("%s:%d: %w", s.path, s.line, err))
		}
		return v, nil
	}
}

func (s *fileStream[T]) Close() error {
	return s.file.Close()
}
