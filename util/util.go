// Package util holds small generic helpers shared across the engine's
// packages: slice transforms and deterministic map key ordering, the
// latter used wherever a result derived from a map (error details, rendered
// diagnostics) must not depend on Go's randomized map iteration order.
package util

import "sort"

// TransformSlice applies converter to each element of in and returns the
// resulting slice, preserving order.
func TransformSlice[T any, R any](in []T, converter func(T) R) []R {
	out := make([]R, len(in))
	for i, v := range in {
		out[i] = converter(v)
	}
	return out
}

// SortedKeys returns m's keys in ascending order.
func SortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
