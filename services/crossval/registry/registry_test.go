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
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/AleutianAI/AleutianFold/services/crossval"
	"github.com/AleutianAI/AleutianFold/services/crossval/cverrors"
	"github.com/AleutianAI/AleutianFold/services/crossval/metric"
	"github.com/AleutianAI/AleutianFold/services/crossval/sample"
	"github.com/AleutianAI/AleutianFold/services/crossval/storage"
)

// counting is a family over integers: training succeeds on any non-empty
// data, and every test sample is a true positive.
func counting(name string) *TypedFamily[int] {
	return &TypedFamily[int]{
		FamilyName: name,
		Summary:    "integers, always right",
		Decode:     strconv.Atoi,
		Trainer: crossval.TrainerFunc[int](func(ctx context.Context, training sample.Source[int], _ crossval.Params) (crossval.Model, error) {
			n, err := sample.Count(ctx, training)
			if err != nil {
				return nil, err
			}
			if n == 0 {
				return nil, errors.New("empty")
			}
			return n, nil
		}),
		Evaluator: crossval.EvaluatorFunc[int](func(ctx context.Context, _ crossval.Model, test sample.Source[int], acc *metric.Accumulator) error {
			return sample.Each(ctx, test, func(int) error {
				acc.RecordCounts(metric.Counts{TruePositives: 1})
				return nil
			})
		}),
	}
}

func writeCorpus(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString(strconv.Itoa(i))
		b.WriteString("\n")
	}
	path := filepath.Join(t.TempDir(), "ints.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

func TestRegistry_Register(t *testing.T) {
	t.Run("successful registration", func(t *testing.T) {
		r := New()
		if err := r.Register(counting("ints")); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if r.Count() != 1 {
			t.Errorf("Count = %d, want 1", r.Count())
		}
	})

	t.Run("nil family", func(t *testing.T) {
		r := New()
		if err := r.Register(nil); !errors.Is(err, ErrNilFamily) {
			t.Errorf("expected ErrNilFamily, got %v", err)
		}
	})

	t.Run("duplicate registration", func(t *testing.T) {
		r := New()
		r.MustRegister(counting("dup"))
		if err := r.Register(counting("dup")); !errors.Is(err, ErrAlreadyRegistered) {
			t.Errorf("expected ErrAlreadyRegistered, got %v", err)
		}
	})
}

func TestRegistry_MustRegisterPanics(t *testing.T) {
	r := New()
	r.MustRegister(counting("x"))

	defer func() {
		if recover() == nil {
			t.Error("MustRegister should panic on duplicate")
		}
	}()
	r.MustRegister(counting("x"))
}

func TestRegistry_GetAndList(t *testing.T) {
	r := New()
	r.MustRegister(counting("b"))
	r.MustRegister(counting("a"))

	f, err := r.Get("a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if f.Name() != "a" {
		t.Errorf("Name = %s, want a", f.Name())
	}

	_, err = r.Get("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "[a b]") {
		t.Errorf("error should list available families: %v", err)
	}

	if got := r.List(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("List = %v, want [a b]", got)
	}
}

func TestRegistry_UnregisterAndHooks(t *testing.T) {
	r := New()
	var events []string
	r.AddHook(func(name string, _ Family, registered bool) {
		events = append(events, name+":"+strconv.FormatBool(registered))
	})

	r.MustRegister(counting("a"))
	if err := r.Unregister("a"); err != nil {
		t.Fatalf("Unregister failed: %v", err)
	}
	if err := r.Unregister("a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	want := []string{"a:true", "a:false"}
	if len(events) != 2 || events[0] != want[0] || events[1] != want[1] {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = r.Register(counting("f" + strconv.Itoa(i)))
			_ = r.List()
		}(i)
	}
	wg.Wait()
	if r.Count() != 50 {
		t.Errorf("Count = %d, want 50", r.Count())
	}
}

// -----------------------------------------------------------------------------
// TypedFamily
// -----------------------------------------------------------------------------

func TestTypedFamily_EvaluateFile(t *testing.T) {
	path := writeCorpus(t, 10)
	f := counting("ints")

	result, err := f.Evaluate(context.Background(), Input{Path: path, Retry: &sample.RetryConfig{}}, 5)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if got := result.Aggregate.Counts().TruePositives; got != 10 {
		t.Errorf("TruePositives = %d, want 10", got)
	}
}

func TestTypedFamily_ImportThenEvaluateStored(t *testing.T) {
	ctx := context.Background()
	db, err := storage.OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	f := counting("ints")
	n, err := f.Import(ctx, db, "ints", writeCorpus(t, 12))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if n != 12 {
		t.Errorf("imported %d, want 12", n)
	}

	in := Input{DB: db, Corpus: "ints"}
	if in.Describe() != "corpus:ints" {
		t.Errorf("Describe = %s", in.Describe())
	}
	result, err := f.Evaluate(ctx, in, 4)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if got := result.Aggregate.Counts().TruePositives; got != 12 {
		t.Errorf("TruePositives = %d, want 12", got)
	}
}

func TestTypedFamily_InputErrors(t *testing.T) {
	f := counting("ints")
	tests := []struct {
		name string
		in   Input
	}{
		{"nothing", Input{}},
		{"both", Input{Path: "x", Corpus: "y"}},
		{"corpus without db", Input{Corpus: "y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Evaluate(context.Background(), tt.in, 3)
			if !errors.Is(err, cverrors.ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestTypedFamily_RequiredParams(t *testing.T) {
	f := counting("ints")
	f.RequiredParams = []string{crossval.ParamLanguage}

	_, err := f.Evaluate(context.Background(), Input{Path: writeCorpus(t, 4)}, 2)
	if !errors.Is(err, cverrors.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	_, err = f.Evaluate(context.Background(), Input{Path: writeCorpus(t, 4)}, 2,
		crossval.WithParams(crossval.DefaultParams("en")))
	if err != nil {
		t.Errorf("Evaluate with params failed: %v", err)
	}
}

func TestTypedFamily_MissingFileIsIO(t *testing.T) {
	f := counting("ints")
	_, err := f.Evaluate(context.Background(), Input{Path: filepath.Join(t.TempDir(), "nope")}, 2)
	if !errors.Is(err, cverrors.ErrIO) {
		t.Errorf("expected I/O error, got %v", err)
	}
}
