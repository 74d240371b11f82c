package expand

import (
	"context"
	"fmt"
	"math"

	"github.com/setexpand/setexpand/internal/corpus"
	seterrors "github.com/setexpand/setexpand/internal/errors"
	"github.com/setexpand/setexpand/internal/seedset"
	"github.com/setexpand/setexpand/internal/similarity"
)

// minPValue keeps ln(p) finite for columns that share nothing.
const minPValue = 1e-12

// Candidate is a table aligned to the seed set. The permutations hold
// candidate column ids indexed by the ordinal of the seed column among the
// seed columns of the same type.
type Candidate struct {
	TableID int64
	Title   string

	TextPerm    []int
	NumericPerm []int
	NullPerm    []int

	TextScore    float64
	NumericScore float64
	Score        float64
}

// align maps the seed columns of seed onto the columns of one table.
// Returns an INFEASIBLE_ALIGNMENT error when a type has too few columns or a
// text column misses its slider threshold.
func (e *Expander) align(ctx context.Context, seed *seedset.SeedSet, match corpus.TableMatch) (*Candidate, error) {
	cand := &Candidate{TableID: match.TableID, Title: match.Title}

	textCols := seed.ColumnsOfType(seedset.TypeText)
	if len(textCols) > 0 {
		cols, err := e.store.TableColumns(ctx, match.TableID, corpus.KindText)
		if err != nil {
			return nil, err
		}
		cand.TextPerm, cand.TextScore, err = alignText(seed, textCols, cols)
		if err != nil {
			return nil, err
		}
	}

	numCols := seed.ColumnsOfType(seedset.TypeNumerical)
	if len(numCols) > 0 {
		cols, err := e.store.TableColumns(ctx, match.TableID, corpus.KindNumerical)
		if err != nil {
			return nil, err
		}
		cand.NumericPerm, cand.NumericScore, err = alignNumeric(seed, numCols, cols)
		if err != nil {
			return nil, err
		}
		cand.Score = cand.NumericScore + cand.TextScore
	} else {
		cand.Score = cand.TextScore
	}

	return cand, nil
}

// alignText assigns seed text columns to candidate text columns maximizing
// the summed overlap.
func alignText(seed *seedset.SeedSet, seedCols []int, cols []corpus.Column) ([]int, float64, error) {
	if len(cols) < len(seedCols) {
		return nil, 0, seterrors.NewInfeasibleAlignment(
			fmt.Sprintf("table has %d text columns, seed needs %d", len(cols), len(seedCols)))
	}

	m := make([][]float64, len(seedCols))
	for i, sc := range seedCols {
		values := seed.Column(sc)
		m[i] = make([]float64, len(cols))
		for j, c := range cols {
			m[i][j] = similarity.Overlap(values, c.Values)
		}
	}

	chosen, total, ok := assign(m)
	if !ok {
		return nil, 0, seterrors.NewInfeasibleAlignment("no text assignment")
	}

	perm := make([]int, len(seedCols))
	for i, j := range chosen {
		if m[i][j] < threshold(seed.Sliders[seedCols[i]]) {
			return nil, 0, seterrors.NewInfeasibleAlignment(
				fmt.Sprintf("column %d overlap %.3f below threshold", seedCols[i]+1, m[i][j]))
		}
		perm[i] = cols[j].ColID
	}
	return perm, total, nil
}

// alignNumeric assigns seed numeric columns to candidate numeric columns
// maximizing Σ ln p. The returned score is 2·Σ ln p, the negated Fisher
// statistic.
func alignNumeric(seed *seedset.SeedSet, seedCols []int, cols []corpus.Column) ([]int, float64, error) {
	if len(cols) < len(seedCols) {
		return nil, 0, seterrors.NewInfeasibleAlignment(
			fmt.Sprintf("table has %d numeric columns, seed needs %d", len(cols), len(seedCols)))
	}

	candValues := make([][]float64, len(cols))
	for j, c := range cols {
		candValues[j] = similarity.ParseFloats(c.Values)
	}

	m := make([][]float64, len(seedCols))
	for i, sc := range seedCols {
		values := similarity.ParseFloats(seed.Column(sc))
		m[i] = make([]float64, len(cols))
		for j := range cols {
			p := math.Max(similarity.OverlapFloats(values, candValues[j]), similarity.WelchTTest(values, candValues[j]))
			m[i][j] = math.Log(math.Max(p, minPValue))
		}
	}

	chosen, total, ok := assign(m)
	if !ok {
		return nil, 0, seterrors.NewInfeasibleAlignment("no numeric assignment")
	}

	perm := make([]int, len(seedCols))
	for i, j := range chosen {
		perm[i] = cols[j].ColID
	}
	return perm, 2 * total, nil
}

// inverse maps candidate column ids to seed column indices.
func (c *Candidate) inverse(seed *seedset.SeedSet) map[int]int {
	out := make(map[int]int, seed.NumCols)
	perms := map[seedset.ColumnType][]int{
		seedset.TypeText:      c.TextPerm,
		seedset.TypeNumerical: c.NumericPerm,
		seedset.TypeNull:      c.NullPerm,
	}
	next := make(map[seedset.ColumnType]int, len(perms))
	for col, t := range seed.Types {
		perm := perms[t]
		k := next[t]
		next[t]++
		if k < len(perm) {
			out[perm[k]] = col
		}
	}
	return out
}
