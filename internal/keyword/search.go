// Package keyword finds the corpus tables matching a keyword query and ranks
// them with BS25 so the user can pick an initial seed set.
package keyword

import (
	"context"
	"strconv"
	"strings"

	"github.com/setexpand/setexpand/internal/bs25"
	"github.com/setexpand/setexpand/internal/corpus"
	seterrors "github.com/setexpand/setexpand/internal/errors"
	"github.com/setexpand/setexpand/internal/observability"
	"github.com/setexpand/setexpand/internal/seedset"
)

// Ranking parameters for table documents.
const (
	DefaultK1 = 0.75
	DefaultB  = 0.3

	// minRankedTables is the smallest result set worth ranking; below it the
	// per-term averages say nothing about rarity.
	minRankedTables = 3
)

// RowSource returns the rows matching a set of normalized keywords.
type RowSource interface {
	KeywordRows(ctx context.Context, keywords []string) ([]corpus.KeywordRow, error)
}

// Row is one matched row rendered with the cell separator.
type Row struct {
	RowID int64  `json:"row_id"`
	Value string `json:"value"`
}

// Table is a matched table with its matching rows.
type Table struct {
	TableID  int64   `json:"table_id"`
	Title    string  `json:"title"`
	RowCount int     `json:"row_count"`
	Rows     []Row   `json:"rows"`
	Score    float64 `json:"score"`
}

// Searcher runs keyword searches.
type Searcher struct {
	src   RowSource
	stats *observability.ExpansionStats
}

// NewSearcher creates a Searcher. stats may be nil.
func NewSearcher(src RowSource, stats *observability.ExpansionStats) *Searcher {
	return &Searcher{src: src, stats: stats}
}

// Search splits and normalizes inputs, fetches the matching rows and returns
// their tables ordered by descending score.
func (s *Searcher) Search(ctx context.Context, inputs []string) ([]Table, error) {
	keywords := corpus.SplitKeywords(inputs)
	if len(keywords) == 0 {
		return nil, seterrors.NewInvalidInput("at least one keyword is required")
	}
	if s.stats != nil {
		s.stats.RecordKeywords(keywords)
	}

	rows, err := s.src.KeywordRows(ctx, keywords)
	if err != nil {
		return nil, err
	}

	tables := groupTables(rows)
	if len(tables) < minRankedTables {
		return tables, nil
	}
	return rank(tables, keywords)
}

// groupTables folds rows into tables, keeping store order.
func groupTables(rows []corpus.KeywordRow) []Table {
	var out []Table
	index := make(map[int64]int)
	for _, r := range rows {
		i, ok := index[r.TableID]
		if !ok {
			i = len(out)
			index[r.TableID] = i
			out = append(out, Table{TableID: r.TableID, Title: r.Title, RowCount: r.RowCount})
		}
		out[i].Rows = append(out[i].Rows, Row{
			RowID: r.RowID,
			Value: strings.Join(r.Cells, seedset.CellSeparator),
		})
	}
	return out
}

func rank(tables []Table, keywords []string) ([]Table, error) {
	engine := bs25.New(TokenSimilarity)
	if err := engine.DefineConfig(bs25.Config{Terms: keywords, K1: DefaultK1, B: DefaultB}); err != nil {
		return nil, err
	}
	for i, t := range tables {
		if err := engine.AddDoc(document(t), strconv.Itoa(i)); err != nil {
			return nil, err
		}
	}
	if err := engine.Consolidate(); err != nil {
		return nil, err
	}
	results, err := engine.Query(len(tables))
	if err != nil {
		return nil, err
	}

	out := make([]Table, 0, len(tables))
	for _, res := range results {
		for _, id := range res.IDs {
			i, _ := strconv.Atoi(id)
			t := tables[i]
			t.Score = res.Score
			out = append(out, t)
		}
	}
	return out, nil
}

// document renders a table as its title followed by every cell, space
// separated.
func document(t Table) string {
	var b strings.Builder
	b.WriteString(t.Title)
	for _, r := range t.Rows {
		b.WriteByte(' ')
		b.WriteString(strings.ReplaceAll(r.Value, seedset.CellSeparator, " "))
	}
	return b.String()
}

// TokenSimilarity is 1 when a normalized token of doc equals term, 0.5 when
// a token contains it, and 0 otherwise.
func TokenSimilarity(doc, term string) float64 {
	best := 0.0
	for _, tok := range strings.Fields(doc) {
		tok = corpus.NormalizeKeyword(tok)
		if tok == term {
			return 1
		}
		if term != "" && strings.Contains(tok, term) {
			best = 0.5
		}
	}
	return best
}
