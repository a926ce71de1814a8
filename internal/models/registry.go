// Package models lists the models a delegated task may run on and resolves
// requested model references against that list.
package models

import (
	"context"
	"slices"
	"strings"
)

// Registry reports the models enabled for delegation.
type Registry interface {
	// EnabledModels returns "provider/id" references in display order.
	EnabledModels(ctx context.Context) ([]string, error)
}

// Static is a fixed registry.
type Static []string

// Compile-time verification that Static implements Registry.
var _ Registry = Static(nil)

// EnabledModels returns a copy of the list.
func (s Static) EnabledModels(context.Context) ([]string, error) {
	return slices.Clone(s), nil
}

// Func adapts a function to Registry.
type Func func(ctx context.Context) ([]string, error)

// EnabledModels calls f.
func (f Func) EnabledModels(ctx context.Context) ([]string, error) {
	return f(ctx)
}

// Resolve finds requested in available, ignoring case, and returns the
// registry's spelling. Only exact "provider/id" matches count; there is no
// prefix or alias matching.
func Resolve(available []string, requested string) (string, bool) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return "", false
	}

	for _, ref := range available {
		if strings.EqualFold(ref, requested) {
			return ref, true
		}
	}

	return "", false
}

// Split separates a "provider/id" reference. The id may itself contain
// slashes; only the first one separates the provider.
func Split(ref string) (provider, id string, ok bool) {
	provider, id, ok = strings.Cut(ref, "/")
	if !ok || provider == "" || id == "" {
		return "", "", false
	}

	return provider, id, true
}
