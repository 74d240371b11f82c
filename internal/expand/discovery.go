package expand

import (
	"context"

	"github.com/setexpand/setexpand/internal/corpus"
	"github.com/setexpand/setexpand/internal/seedset"
)

// keyQuery builds the discovery predicate for seed. The key vectors are the
// first text and first numeric columns with a nonzero slider; ok is false
// when neither exists.
func keyQuery(seed *seedset.SeedSet) (q corpus.KeyMatchQuery, ok bool) {
	q = corpus.KeyMatchQuery{
		MinText:      seed.CountType(seedset.TypeText),
		MinNumerical: seed.CountType(seedset.TypeNumerical),
		MinColumns:   seed.NumCols,
	}

	if col := firstActive(seed, seedset.TypeText); col >= 0 {
		q.TextKey = seed.Column(col)
		q.TextThreshold = threshold(seed.Sliders[col])
	}
	if col := firstActive(seed, seedset.TypeNumerical); col >= 0 {
		q.NumericKey = seed.Column(col)
		q.NumericThreshold = threshold(seed.Sliders[col])
	}
	return q, len(q.TextKey) > 0 || len(q.NumericKey) > 0
}

func firstActive(seed *seedset.SeedSet, t seedset.ColumnType) int {
	for _, col := range seed.ColumnsOfType(t) {
		if seed.Sliders[col] > 0 {
			return col
		}
	}
	return -1
}

func threshold(slider int) float64 {
	return float64(slider) / 100
}

// discover returns the tables that can host the seed set.
func (e *Expander) discover(ctx context.Context, seed *seedset.SeedSet) ([]corpus.TableMatch, error) {
	q, ok := keyQuery(seed)
	if !ok {
		return nil, nil
	}
	return e.store.FindKeyMatches(ctx, q)
}
