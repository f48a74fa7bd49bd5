// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package screen checks corpus files for credentials and personal data
// before they are copied into the local corpus store.
//
// The rules are compiled from a YAML document embedded in the binary, so a
// deployed screen cannot be weakened by editing files on the host.
package screen

import (
	"bufio"
	"context"
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianFold/services/crossval/cverrors"
)

//go:embed patterns.yaml
var embeddedPatterns []byte

// ConfidenceLevel grades how likely a match is a true finding.
type ConfidenceLevel string

const (
	Low    ConfidenceLevel = "low"
	Medium ConfidenceLevel = "medium"
	High   ConfidenceLevel = "high"
)

// UnmarshalYAML rejects unknown levels.
func (c *ConfidenceLevel) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch level := ConfidenceLevel(s); level {
	case High, Medium, Low:
		*c = level
		return nil
	default:
		return fmt.Errorf("invalid value for confidence: %q", s)
	}
}

type ruleFile struct {
	Classifications []Classification `yaml:"classifications"`
}

// Classification groups patterns under one name such as "secret".
type Classification struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Priority    int       `yaml:"priority"`
	Patterns    []Pattern `yaml:"patterns"`
}

// Pattern is one rule.
type Pattern struct {
	ID          string          `yaml:"id"`
	Description string          `yaml:"description"`
	Regex       string          `yaml:"regex"`
	Confidence  ConfidenceLevel `yaml:"confidence"`

	re *regexp.Regexp
}

// Finding is one match in a scanned file.
type Finding struct {
	Path           string          `json:"path,omitempty"`
	Line           int             `json:"line"`
	Classification string          `json:"classification"`
	PatternID      string          `json:"pattern_id"`
	Description    string          `json:"description"`
	Confidence     ConfidenceLevel `json:"confidence"`

	// Excerpt is the matched text, masked past its first four characters.
	Excerpt string `json:"excerpt"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s:%d: %s %s (%s)", f.Path, f.Line, f.Classification, f.PatternID, f.Excerpt)
}

// Screen holds compiled rules, highest priority first.
type Screen struct {
	classifications []Classification
}

// New compiles the embedded rules.
func New() (*Screen, error) {
	return Parse(embeddedPatterns)
}

// Parse compiles rules from a YAML document.
func Parse(data []byte) (*Screen, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse screen rules: %w", err)
	}
	for i := range file.Classifications {
		c := &file.Classifications[i]
		for j := range c.Patterns {
			p := &c.Patterns[j]
			re, err := regexp.Compile(p.Regex)
			if err != nil {
				return nil, fmt.Errorf("compile pattern %s: %w", p.ID, err)
			}
			p.re = re
		}
	}
	sort.SliceStable(file.Classifications, func(i, j int) bool {
		return file.Classifications[i].Priority > file.Classifications[j].Priority
	})
	return &Screen{classifications: file.Classifications}, nil
}

// Classify returns the name of the highest priority classification matching
// text, or "public".
func (s *Screen) Classify(text string) string {
	for _, c := range s.classifications {
		for _, p := range c.Patterns {
			if p.re.MatchString(text) {
				return c.Name
			}
		}
	}
	return "public"
}

// ScanLine returns every rule matching line. lineNum is recorded as given.
func (s *Screen) ScanLine(line string, lineNum int) []Finding {
	var out []Finding
	for _, c := range s.classifications {
		for _, p := range c.Patterns {
			match := p.re.FindString(line)
			if match == "" {
				continue
			}
			out = append(out, Finding{
				Line:           lineNum,
				Classification: c.Name,
				PatternID:      p.ID,
				Description:    p.Description,
				Confidence:     p.Confidence,
				Excerpt:        mask(strings.TrimSpace(match)),
			})
		}
	}
	return out
}

// ScanFile scans path line by line. Open and read failures are I/O errors.
func (s *Screen) ScanFile(ctx context.Context, path string) ([]Finding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cverrors.Wrap(cverrors.KindIO, cverrors.NoFold, "screen corpus", err)
	}
	defer f.Close()

	var out []Finding
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for n := 1; scanner.Scan(); n++ {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, cverrors.Wrap(cverrors.KindCancelled, cverrors.NoFold, "screen corpus", err)
			}
		}
		for _, finding := range s.ScanLine(scanner.Text(), n) {
			finding.Path = path
			out = append(out, finding)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, cverrors.Wrap(cverrors.KindIO, cverrors.NoFold, "screen corpus", err)
	}
	return out, nil
}

func mask(s string) string {
	r := []rune(s)
	if len(r) <= 4 {
		return s
	}
	return string(r[:4]) + strings.Repeat("*", len(r)-4)
}
