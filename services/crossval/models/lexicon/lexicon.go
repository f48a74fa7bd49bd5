// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lexicon is a baseline span tagger for cross-validation.
//
// Training counts, for every word, how often each label was assigned to it.
// Words seen fewer than "cutoff" times are dropped. Tagging assigns each
// known word its most frequent label and every other word Outside. Spans are
// maximal runs of one label, and a predicted span counts as correct only
// when its boundaries and label both match a gold span.
//
// The model is deliberately simple. It gives the cross-validation harness a
// real trainer and evaluator to run against any word/LABEL corpus, and a
// floor that learned taggers must beat.
package lexicon

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/AleutianAI/AleutianFold/services/crossval"
	"github.com/AleutianAI/AleutianFold/services/crossval/metric"
	"github.com/AleutianAI/AleutianFold/services/crossval/registry"
	"github.com/AleutianAI/AleutianFold/services/crossval/sample"
)

// Name is the registry name of the family.
const Name = "lexicon"

// ErrNoTrainingData is returned when the training stream holds no tokens.
var ErrNoTrainingData = errors.New("no training tokens")

// Model maps known words to labels.
type Model struct {
	Language string
	Cutoff   int
	labels   map[string]string
}

// Tag labels every word.
func (m *Model) Tag(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		if l, ok := m.labels[normalize(w)]; ok {
			out[i] = l
		} else {
			out[i] = Outside
		}
	}
	return out
}

// Size returns the number of known words.
func (m *Model) Size() int { return len(m.labels) }

func normalize(word string) string {
	return strings.ToLower(word)
}

// Trainer builds a Model. It reads the cutoff and language parameters.
type Trainer struct{}

// Train implements crossval.Trainer.
func (Trainer) Train(ctx context.Context, training sample.Source[Sentence], params crossval.Params) (crossval.Model, error) {
	cutoff, err := params.Int(crossval.ParamCutoff, crossval.DefaultCutoff)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]map[string]int)
	tokens := 0
	err = sample.Each(ctx, training, func(s Sentence) error {
		for _, t := range s.Tokens {
			w := normalize(t.Word)
			byLabel, ok := counts[w]
			if !ok {
				byLabel = make(map[string]int)
				counts[w] = byLabel
			}
			byLabel[t.Label]++
			tokens++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if tokens == 0 {
		return nil, ErrNoTrainingData
	}

	m := &Model{
		Language: params.String(crossval.ParamLanguage, ""),
		Cutoff:   cutoff,
		labels:   make(map[string]string),
	}
	for w, byLabel := range counts {
		total := 0
		for _, n := range byLabel {
			total += n
		}
		if total < cutoff {
			continue
		}
		if best := argmax(byLabel); best != Outside {
			m.labels[w] = best
		}
	}
	return m, nil
}

// argmax returns the most frequent label, the smallest one on ties.
func argmax(byLabel map[string]int) string {
	labels := make([]string, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	best := labels[0]
	for _, l := range labels[1:] {
		if byLabel[l] > byLabel[best] {
			best = l
		}
	}
	return best
}

// Evaluator scores a Model by exact span match.
type Evaluator struct{}

// Evaluate implements crossval.Evaluator.
func (Evaluator) Evaluate(ctx context.Context, model crossval.Model, test sample.Source[Sentence], acc *metric.Accumulator) error {
	m, ok := model.(*Model)
	if !ok {
		return errors.New("lexicon: model is not a *lexicon.Model")
	}
	return sample.Each(ctx, test, func(s Sentence) error {
		predicted := Spans(m.Tag(s.Words()))
		gold := Spans(s.Labels())
		metric.Record(acc, predicted, gold)
		return nil
	})
}

// Family returns the registry entry for the lexicon tagger.
func Family() *registry.TypedFamily[Sentence] {
	return &registry.TypedFamily[Sentence]{
		FamilyName:     Name,
		Summary:        "most-frequent-label span tagger over word/LABEL corpora",
		Decode:         ParseSentence,
		Trainer:        Trainer{},
		Evaluator:      Evaluator{},
		RequiredParams: []string{crossval.ParamLanguage},
		IntParams:      []string{crossval.ParamCutoff},
	}
}
