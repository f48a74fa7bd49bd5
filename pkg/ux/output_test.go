// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func newTestPrinter(level PersonalityLevel) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return &Printer{Level: level, Out: &out, Err: &errOut}, &out, &errOut
}

// =============================================================================
// Icon.Render Tests
// =============================================================================

func TestIcon_Render(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconPending} {
		if !strings.Contains(icon.Render(), string(icon)) {
			t.Errorf("rendered %q does not contain the icon", icon.Render())
		}
	}
	if IconArrow.Render() != "→" {
		t.Errorf("expected unstyled arrow, got %q", IconArrow.Render())
	}
}

// =============================================================================
// Printer Tests
// =============================================================================

func TestPrinter_MachineMode(t *testing.T) {
	p, out, errOut := newTestPrinter(PersonalityMachine)

	p.Title("Title")
	p.Muted("muted")
	p.Success("done")
	p.Info("info")
	p.Warning("careful")
	p.Error("broken")

	if got := out.String(); got != "OK: done\ninfo\n" {
		t.Errorf("stdout = %q", got)
	}
	if got := errOut.String(); got != "WARN: careful\nERROR: broken\n" {
		t.Errorf("stderr = %q", got)
	}
}

func TestPrinter_MinimalMode(t *testing.T) {
	p, out, errOut := newTestPrinter(PersonalityMinimal)

	p.Success("done")
	p.Error("broken")

	if !strings.Contains(out.String(), "done") || !strings.Contains(out.String(), "✓") {
		t.Errorf("stdout = %q", out.String())
	}
	if !strings.Contains(errOut.String(), "broken") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestPrinter_FullMode(t *testing.T) {
	p, out, _ := newTestPrinter(PersonalityFull)

	p.Title("Cross-validation")
	p.Muted("secondary")
	p.Box("Result", "F=0.91")

	got := out.String()
	for _, want := range []string{"Cross-validation", "secondary", "Result", "F=0.91"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q: %q", want, got)
		}
	}
}

func TestPrinter_KeyValue(t *testing.T) {
	p, out, _ := newTestPrinter(PersonalityMachine)
	p.KeyValue("run", "abc", "folds", "10", "dangling")

	if got := out.String(); got != "run\tabc\nfolds\t10\n" {
		t.Errorf("KeyValue = %q", got)
	}

	p, out, _ = newTestPrinter(PersonalityFull)
	p.KeyValue("a", "1", "longer", "2")
	if !strings.Contains(out.String(), "longer") {
		t.Errorf("KeyValue = %q", out.String())
	}
}

func TestPrinter_Table_Machine(t *testing.T) {
	p, out, _ := newTestPrinter(PersonalityMachine)
	p.Table([]string{"fold", "f"}, [][]string{{"0", "0.5"}, {"1", "1.0"}}, []string{"all", "0.75"})

	want := "fold\tf\n0\t0.5\n1\t1.0\nall\t0.75\n"
	if got := out.String(); got != want {
		t.Errorf("Table = %q, want %q", got, want)
	}
}

func TestPrinter_Table_Full(t *testing.T) {
	p, out, _ := newTestPrinter(PersonalityFull)
	p.Table([]string{"fold", "f-measure"}, [][]string{{"0", "0.5"}}, nil)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out.String())
	}
	if !strings.Contains(lines[0], "f-measure") || !strings.Contains(lines[1], "0.5") {
		t.Errorf("Table = %q", out.String())
	}
}

func TestPrinter_ProgressBar(t *testing.T) {
	p, _, _ := newTestPrinter(PersonalityMachine)
	if got := p.ProgressBar(3, 10, 20); got != "3/10" {
		t.Errorf("machine ProgressBar = %q", got)
	}

	p, _, _ = newTestPrinter(PersonalityFull)
	if got := p.ProgressBar(5, 10, 10); !strings.Contains(got, "50%") {
		t.Errorf("ProgressBar = %q", got)
	}
	if got := p.ProgressBar(1, 0, 10); got != "1/0" {
		t.Errorf("zero total ProgressBar = %q", got)
	}
}

func TestRepeatChar(t *testing.T) {
	if repeatChar('x', 3) != "xxx" {
		t.Error("expected xxx")
	}
	if repeatChar('x', 0) != "" || repeatChar('x', -1) != "" {
		t.Error("expected empty string for n <= 0")
	}
}

// =============================================================================
// Personality Tests
// =============================================================================

func TestParsePersonalityLevel(t *testing.T) {
	tests := map[string]PersonalityLevel{
		"full":    PersonalityFull,
		"STD":     PersonalityFull,
		"minimal": PersonalityMinimal,
		"m":       PersonalityMinimal,
		"machine": PersonalityMachine,
		" quiet ": PersonalityMachine,
		"bogus":   PersonalityFull,
	}
	for in, want := range tests {
		if got := ParsePersonalityLevel(in); got != want {
			t.Errorf("ParsePersonalityLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestDetectPersonality(t *testing.T) {
	t.Setenv(EnvPersonality, "minimal")
	if got := DetectPersonality(os.Stdout); got != PersonalityMinimal {
		t.Errorf("env override ignored: %s", got)
	}

	t.Setenv(EnvPersonality, "")
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if got := DetectPersonality(f); got != PersonalityMachine {
		t.Errorf("regular file should select machine output, got %s", got)
	}
	if IsTerminal(nil) {
		t.Error("nil file is not a terminal")
	}
}
