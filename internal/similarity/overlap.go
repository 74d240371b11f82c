// Package similarity provides the pairwise scoring primitives shared by
// candidate discovery, column alignment and row ranking.
//
// Overlap convention: both inputs are reduced to sets of distinct values
// before counting, and the intersection size is normalized by the larger of
// the two distinct counts. The same rule applies to strings and numbers.
package similarity

import "strconv"

// Overlap returns |set(a) ∩ set(b)| / max(|set(a)|, |set(b)|).
// It is 0 when either side is empty.
func Overlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(a))
	for _, v := range a {
		setA[v] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, v := range b {
		setB[v] = struct{}{}
	}

	return overlapSets(setA, setB)
}

// OverlapFloats is Overlap for numeric columns; values are compared by value,
// so "5" and "5.0" match once parsed.
func OverlapFloats(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := make(map[float64]struct{}, len(a))
	for _, v := range a {
		setA[v] = struct{}{}
	}
	setB := make(map[float64]struct{}, len(b))
	for _, v := range b {
		setB[v] = struct{}{}
	}

	return overlapSets(setA, setB)
}

func overlapSets[K comparable](a, b map[K]struct{}) float64 {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}

	shared := 0
	for v := range small {
		if _, ok := large[v]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(large))
}

// ParseFloats converts every value that parses as a number and silently drops
// the rest, mirroring how numeric columns are read from the cell store.
func ParseFloats(values []string) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := ParseNumber(v); ok {
			out = append(out, f)
		}
	}
	return out
}

// FormatNumber renders a float in the shortest form that round-trips.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
