// Package analysis turns extracted facts into spending reports.
package analysis

import "subscan/internal/core"

// DedupeBy keeps the first item seen for each key, preserving input order.
// The empty key is a key like any other.
func DedupeBy[T any](items []T, key func(T) string) []T {
	out := make([]T, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		k := key(it)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}

// Dedupe collapses facts extracted from the same message id, first seen
// wins.
func Dedupe(facts []core.Fact) []core.Fact {
	return DedupeBy(facts, func(f core.Fact) string { return f.MessageID })
}
