// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lexicon

import (
	"errors"
	"fmt"
	"strings"
)

// Outside is the label of a token that belongs to no span.
const Outside = "O"

// ErrMalformedToken is returned for a token without a "/LABEL" suffix.
var ErrMalformedToken = errors.New("token must have the form word/LABEL")

// Token is a word and its label.
type Token struct {
	Word  string `json:"w"`
	Label string `json:"l"`
}

// Sentence is one labeled sample.
type Sentence struct {
	Tokens []Token `json:"t"`
}

// ParseSentence parses whitespace-separated word/LABEL tokens. The label is
// everything after the last '/', so words may contain slashes.
//
//	John/PER Smith/PER lives/O in/O New/LOC York/LOC
func ParseSentence(line string) (Sentence, error) {
	fields := strings.Fields(line)
	s := Sentence{Tokens: make([]Token, 0, len(fields))}
	for i, f := range fields {
		cut := strings.LastIndexByte(f, '/')
		if cut <= 0 || cut == len(f)-1 {
			return Sentence{}, fmt.Errorf("token %d %q: %w", i, f, ErrMalformedToken)
		}
		s.Tokens = append(s.Tokens, Token{Word: f[:cut], Label: f[cut+1:]})
	}
	return s, nil
}

// String formats s the way ParseSentence reads it.
func (s Sentence) String() string {
	parts := make([]string, len(s.Tokens))
	for i, t := range s.Tokens {
		parts[i] = t.Word + "/" + t.Label
	}
	return strings.Join(parts, " ")
}

// Words returns the words of s.
func (s Sentence) Words() []string {
	out := make([]string, len(s.Tokens))
	for i, t := range s.Tokens {
		out[i] = t.Word
	}
	return out
}

// Labels returns the labels of s.
func (s Sentence) Labels() []string {
	out := make([]string, len(s.Tokens))
	for i, t := range s.Tokens {
		out[i] = t.Label
	}
	return out
}

// Span is a half-open token range [Start, End) carrying one label.
type Span struct {
	Start int
	End   int
	Label string
}

// Spans groups maximal runs of equal, non-Outside labels into spans.
func Spans(labels []string) []Span {
	var out []Span
	for i := 0; i < len(labels); {
		if labels[i] == Outside {
			i++
			continue
		}
		j := i + 1
		for j < len(labels) && labels[j] == labels[i] {
			j++
		}
		out = append(out, Span{Start: i, End: j, Label: labels[i]})
		i = j
	}
	return out
}
