package expand

import (
	"context"

	"github.com/setexpand/setexpand/internal/corpus"
	"github.com/setexpand/setexpand/internal/seedset"
)

// candidateRow is a corpus row rewritten into the seed column order.
type candidateRow struct {
	Row     seedset.Row
	TableID int64
	RowID   int64
	Title   string
}

// materialize fetches the data rows of an aligned table and reorders their
// cells into the seed layout. Cells in unmapped columns are dropped and
// missing cells stay null.
func (e *Expander) materialize(ctx context.Context, seed *seedset.SeedSet, cand *Candidate) ([]candidateRow, error) {
	cells, err := e.store.LookupCells(ctx, corpus.CellQuery{TableID: cand.TableID, ExcludeHeaders: true})
	if err != nil {
		return nil, err
	}

	inverse := cand.inverse(seed)
	var rows []candidateRow
	byRow := make(map[int64]int)
	for _, c := range cells {
		i, ok := byRow[c.RowID]
		if !ok {
			i = len(rows)
			byRow[c.RowID] = i
			rows = append(rows, candidateRow{
				Row:     seedset.PadRow(nil, seed.NumCols),
				TableID: cand.TableID,
				RowID:   c.RowID,
				Title:   cand.Title,
			})
		}
		col, mapped := inverse[c.ColID]
		if !mapped {
			continue
		}
		rows[i].Row[col] = seedset.FromStore(c.Value)
	}
	return rows, nil
}
