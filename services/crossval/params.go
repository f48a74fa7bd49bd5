// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package crossval

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/AleutianAI/AleutianFold/services/crossval/cverrors"
)

// Well-known parameter keys.
const (
	ParamLanguage   = "language"
	ParamCutoff     = "cutoff"
	ParamIterations = "iterations"
)

const (
	// DefaultCutoff is the minimum feature frequency kept by trainers.
	DefaultCutoff = 5

	// DefaultIterations is the number of training iterations.
	DefaultIterations = 100
)

// Params is a flat set of named training parameters. The driver passes it
// through to the trainer without interpreting it.
type Params map[string]string

// DefaultParams returns the language plus the default cutoff and iteration
// count.
func DefaultParams(language string) Params {
	return Params{
		ParamLanguage:   language,
		ParamCutoff:     strconv.Itoa(DefaultCutoff),
		ParamIterations: strconv.Itoa(DefaultIterations),
	}
}

// String returns the value of key, or def when absent.
func (p Params) String(key, def string) string {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Int returns key parsed as an integer, or def when absent. A malformed
// value is a configuration error.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def, cverrors.New(cverrors.KindConfiguration, "params", "parameter %q: %q is not an integer", key, v)
	}
	return n, nil
}

// Require returns a configuration error naming every key that is absent or
// blank.
func (p Params) Require(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if strings.TrimSpace(p[k]) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return cverrors.New(cverrors.KindConfiguration, "params", "missing required parameters: %s", strings.Join(missing, ", "))
}

// RequireInts returns a configuration error naming every key that is
// present but not an integer. Absent keys pass; trainers apply defaults.
func (p Params) RequireInts(keys ...string) error {
	var bad []string
	for _, k := range keys {
		if _, err := p.Int(k, 0); err != nil {
			bad = append(bad, fmt.Sprintf("%s=%q", k, p[k]))
		}
	}
	if len(bad) == 0 {
		return nil
	}
	sort.Strings(bad)
	return cverrors.New(cverrors.KindConfiguration, "params", "parameters are not integers: %s", strings.Join(bad, ", "))
}

// Clone returns a copy. Cloning nil returns an empty, non-nil map.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
