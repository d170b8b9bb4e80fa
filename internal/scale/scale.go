// Package scale holds the generic numeric helpers the compiler's operand
// scaling rules are built on (spec.md §4.3: "Values are scaled to their
// domains"), factored out of lang/compiler so the same clamp/scale logic is
// not duplicated per value domain (volume, pitch, duty cycle).
package scale

import "golang.org/x/exp/constraints"

// Clamp restricts v to [lo, hi].
func Clamp[T constraints.Integer](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Linear scales v from a source range [0, srcMax] to a destination range
// [0, dstMax], the shape every spec.md §4.3 domain scaling rule shares
// (volume ×MAX_VOLUME/255, duty cycle, etc.).
func Linear[T constraints.Integer](v, srcMax, dstMax T) T {
	return v * dstMax / srcMax
}
