package expand

import (
	"sort"
	"strconv"

	"github.com/setexpand/setexpand/internal/bs25"
	"github.com/setexpand/setexpand/internal/seedset"
	"github.com/setexpand/setexpand/internal/similarity"
)

// RankedRow is a candidate row with its Borda score.
type RankedRow struct {
	Row     seedset.Row `json:"row"`
	TableID int64       `json:"table_id"`
	RowID   int64       `json:"row_id"`
	Title   string      `json:"title"`
	Score   float64     `json:"score"`
}

// rank scores every candidate row per active seed column with BS25 and
// combines the per-column rankings by Borda count. Each column awards
// totalRows−rank points, where tied rows share the rank of the first row of
// their group. Scores are averaged over the columns that voted.
func (e *Expander) rank(seed *seedset.SeedSet, rows []candidateRow) ([]RankedRow, error) {
	out := make([]RankedRow, len(rows))
	for i, r := range rows {
		out[i] = RankedRow{Row: r.Row, TableID: r.TableID, RowID: r.RowID, Title: r.Title}
	}
	if len(rows) == 0 {
		return out, nil
	}

	engine := bs25.New(similarity.CellSimilarity)
	voters := 0
	for col := 0; col < seed.NumCols; col++ {
		slider := seed.Sliders[col]
		if slider <= 0 {
			continue
		}
		terms := seed.Column(col)
		if len(terms) == 0 {
			continue
		}

		err := engine.DefineConfig(bs25.Config{
			Terms: terms,
			K1:    e.opts.K1Scale * float64(slider),
			B:     e.opts.B,
		})
		if err != nil {
			return nil, err
		}
		for i, r := range rows {
			doc := ""
			if !r.Row[col].Null {
				doc = r.Row[col].Value
			}
			if err := engine.AddDoc(doc, strconv.Itoa(i)); err != nil {
				return nil, err
			}
		}
		if err := engine.Consolidate(); err != nil {
			return nil, err
		}
		results, err := engine.Query(len(rows))
		if err != nil {
			return nil, err
		}

		position := 0
		for _, res := range results {
			points := float64(len(rows) - position)
			for _, id := range res.IDs {
				i, _ := strconv.Atoi(id)
				out[i].Score += points
			}
			position += len(res.IDs)
		}
		voters++
	}

	if voters > 0 {
		for i := range out {
			out[i].Score /= float64(voters)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out, nil
}
