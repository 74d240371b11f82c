package expand

import (
	"context"

	"github.com/setexpand/setexpand/internal/seedset"
)

// assignNull gives the seed NULL columns the lowest column ids the text and
// numeric permutations left unclaimed. Positional only: NULL columns carry no
// values to score against. A table with too few free columns leaves the
// trailing NULL columns unmapped.
func (e *Expander) assignNull(ctx context.Context, seed *seedset.SeedSet, cand *Candidate) error {
	k := seed.CountType(seedset.TypeNull)
	if k == 0 {
		return nil
	}
	ids, err := e.store.ColumnIDs(ctx, cand.TableID)
	if err != nil {
		return err
	}
	cand.NullPerm = freeColumns(ids, cand.TextPerm, cand.NumericPerm, k)
	return nil
}

// freeColumns returns up to k ids from the ascending list ids that appear in
// none of claimed.
func freeColumns(ids []int, textPerm, numericPerm []int, k int) []int {
	claimed := make(map[int]bool, len(textPerm)+len(numericPerm))
	for _, id := range textPerm {
		claimed[id] = true
	}
	for _, id := range numericPerm {
		claimed[id] = true
	}

	out := make([]int, 0, k)
	for _, id := range ids {
		if len(out) == k {
			break
		}
		if !claimed[id] {
			out = append(out, id)
		}
	}
	return out
}
