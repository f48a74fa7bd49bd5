// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package registry maps model family names to cross-validatable families.
//
// A family hides its sample type behind the Family interface, so a command
// line can pick a model by name and point it at a corpus file or a stored
// corpus. TypedFamily builds a Family from a trainer, an evaluator and a
// line decoder.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrNotFound is returned when a family is not registered.
	ErrNotFound = errors.New("model family not found")

	// ErrAlreadyRegistered is returned when a name is registered twice.
	ErrAlreadyRegistered = errors.New("model family already registered")

	// ErrNilFamily is returned when registering nil.
	ErrNilFamily = errors.New("model family must not be nil")
)

// Hook is called after a family is registered (registered true) or
// removed (registered false). Hooks run with the registry locked and must
// not call back into it.
type Hook func(name string, family Family, registered bool)

// Registry holds model families by name.
//
// Thread Safety: Safe for concurrent use via read-write mutex.
type Registry struct {
	mu       sync.RWMutex
	families map[string]Family
	hooks    []Hook
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{families: make(map[string]Family)}
}

// Register adds family under its Name.
func (r *Registry) Register(family Family) error {
	if family == nil {
		return ErrNilFamily
	}
	name := family.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.families[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	r.families[name] = family
	for _, hook := range r.hooks {
		hook(name, family, true)
	}
	return nil
}

// MustRegister is Register, panicking on error. For program setup.
func (r *Registry) MustRegister(family Family) {
	if err := r.Register(family); err != nil {
		panic(fmt.Sprintf("registry: %v", err))
	}
}

// Unregister removes the family called name.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	family, exists := r.families[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(r.families, name)
	for _, hook := range r.hooks {
		hook(name, family, false)
	}
	return nil
}

// Get returns the family called name.
func (r *Registry) Get(name string) (Family, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	family, ok := r.families[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrNotFound, name, r.namesLocked())
	}
	return family, nil
}

// List returns the registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.families))
	for name := range r.families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered families.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.families)
}

// AddHook registers a hook for future registrations and removals.
func (r *Registry) AddHook(hook Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}
