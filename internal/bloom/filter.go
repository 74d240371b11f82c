// Package bloom implements the per-column key index used to prune candidate
// tables before the cell store is queried. Each text column of the corpus gets
// one filter over its distinct cell values.
package bloom

import (
	"math"

	"github.com/spaolacci/murmur3"
)

// Filter is a bloom filter over the distinct values of one column. It never
// reports a false negative.
type Filter struct {
	bits      []uint64
	numBits   uint64
	numHashes uint64
	distinct  uint64
}

// New creates a filter with numBits bits (rounded up to a word) and numHashes
// hash functions.
func New(numBits, numHashes int) *Filter {
	if numBits <= 0 {
		numBits = 1024
	}
	if numHashes <= 0 {
		numHashes = 7
	}

	numWords := (numBits + 63) / 64
	return &Filter{
		bits:      make([]uint64, numWords),
		numBits:   uint64(numWords * 64),
		numHashes: uint64(numHashes),
	}
}

// ForColumn sizes a filter for a column with the given number of distinct
// values at the target false positive rate.
func ForColumn(distinctValues int, targetFPR float64) *Filter {
	numBits, numHashes := OptimalParameters(distinctValues, targetFPR)
	return New(numBits, numHashes)
}

// OptimalParameters returns m = -n ln(p) / ln(2)^2 bits and k = (m/n) ln(2)
// hash functions for n items at false positive rate p.
func OptimalParameters(items int, targetFPR float64) (numBits, numHashes int) {
	if items <= 0 {
		items = 1
	}
	if targetFPR <= 0 || targetFPR >= 1 {
		targetFPR = 0.01
	}

	n := float64(items)
	m := -n * math.Log(targetFPR) / (math.Ln2 * math.Ln2)
	numBits = int(math.Ceil(m))
	numHashes = int(math.Ceil((m / n) * math.Ln2))

	if numBits < 64 {
		numBits = 64
	}
	if numHashes < 1 {
		numHashes = 1
	}
	return numBits, numHashes
}

// Add inserts a cell value. Callers add each distinct value once; Distinct
// counts insertions.
func (f *Filter) Add(value string) {
	h1, h2 := murmur3.Sum128([]byte(value))
	for i := uint64(0); i < f.numHashes; i++ {
		pos := (h1 + i*h2) % f.numBits
		f.bits[pos/64] |= 1 << (pos % 64)
	}
	f.distinct++
}

// MayContain reports whether value might have been added.
func (f *Filter) MayContain(value string) bool {
	h1, h2 := murmur3.Sum128([]byte(value))
	for i := uint64(0); i < f.numHashes; i++ {
		pos := (h1 + i*h2) % f.numBits
		if f.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}

// Distinct returns the number of distinct values the column holds.
func (f *Filter) Distinct() int {
	return int(f.distinct)
}

// NumBits returns the size of the bit array.
func (f *Filter) NumBits() int {
	return int(f.numBits)
}

// NumHashes returns the number of hash functions.
func (f *Filter) NumHashes() int {
	return int(f.numHashes)
}

// MaxOverlap is an upper bound on the deduplicated overlap between keys and
// the indexed column: positives / max(|set(keys)|, distinct). A false positive
// can only raise the bound, so a column whose bound is below a threshold
// cannot reach it.
func (f *Filter) MaxOverlap(keys []string) float64 {
	seen := make(map[string]struct{}, len(keys))
	hits := 0
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		if f.MayContain(k) {
			hits++
		}
	}
	if len(seen) == 0 || f.distinct == 0 {
		return 0
	}

	denom := uint64(len(seen))
	if f.distinct > denom {
		denom = f.distinct
	}
	if uint64(hits) > f.distinct {
		// more positives than values in the column: all extras are false
		hits = int(f.distinct)
	}
	return float64(hits) / float64(denom)
}
