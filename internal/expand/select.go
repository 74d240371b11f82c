package expand

import "github.com/setexpand/setexpand/internal/seedset"

// selectRows walks ranked in order and keeps at most seed.RowsReturned rows.
// A row is skipped when it repeats a seed or already accepted row, has a
// null beyond the first column, repeats a value of a unique column, or
// carries a value outside the seed values in a sticky column.
func selectRows(seed *seedset.SeedSet, ranked []RankedRow) []RankedRow {
	seen := make(map[string]bool, len(seed.Rows)+len(ranked))
	for _, r := range seed.Rows {
		seen[r.Key()] = true
	}

	unique := make(map[int]map[seedset.Cell]bool, len(seed.UniqueCols))
	for _, col := range seed.UniqueCols {
		unique[col] = make(map[seedset.Cell]bool)
	}

	sticky := make(map[int]map[seedset.Cell]bool)
	for col, slider := range seed.Sliders {
		if slider < seedset.StickySlider {
			continue
		}
		values := make(map[seedset.Cell]bool)
		for _, v := range seed.Column(col) {
			values[seedset.Value(v)] = true
		}
		sticky[col] = values
	}

	var out []RankedRow
	for _, r := range ranked {
		if len(out) >= seed.RowsReturned {
			break
		}
		key := r.Row.Key()
		if seen[key] || r.Row.HasNullAfterFirst() {
			continue
		}
		if !satisfies(r.Row, unique, sticky) {
			continue
		}

		seen[key] = true
		for col, values := range unique {
			values[r.Row[col]] = true
		}
		out = append(out, r)
	}
	return out
}

func satisfies(row seedset.Row, unique, sticky map[int]map[seedset.Cell]bool) bool {
	for col, values := range unique {
		if col < len(row) && values[row[col]] {
			return false
		}
	}
	for col, values := range sticky {
		if col >= len(row) || !values[row[col]] {
			return false
		}
	}
	return true
}
