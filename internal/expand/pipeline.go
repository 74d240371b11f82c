// Package expand grows a seed set with rows from corpus tables that look
// like it.
//
// One expansion runs five stages in order: candidate discovery in the store,
// column alignment per candidate table, NULL column assignment, row
// materialization, then BS25 ranking with Borda aggregation and constrained
// selection. A failure scoped to one candidate table drops that table and
// the run continues; a discovery failure aborts it.
package expand

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/setexpand/setexpand/internal/corpus"
	seterrors "github.com/setexpand/setexpand/internal/errors"
	"github.com/setexpand/setexpand/internal/observability"
	"github.com/setexpand/setexpand/internal/seedset"
)

// Default ranking parameters.
const (
	DefaultK1Scale = 0.01
	DefaultB       = 0.3
)

// Store is the part of the cell store the pipeline reads.
type Store interface {
	FindKeyMatches(ctx context.Context, q corpus.KeyMatchQuery) ([]corpus.TableMatch, error)
	TableColumns(ctx context.Context, tableID int64, kind corpus.ColumnKind) ([]corpus.Column, error)
	ColumnIDs(ctx context.Context, tableID int64) ([]int, error)
	LookupCells(ctx context.Context, q corpus.CellQuery) ([]corpus.CellRecord, error)
}

// Options configures an Expander.
type Options struct {
	// K1Scale times a column slider gives the BS25 k1 of that column (default: 0.01)
	K1Scale float64

	// B is the BS25 length normalization (default: 0.3)
	B float64

	// Stats receives per-table outcomes and stage counts. Optional.
	Stats *observability.ExpansionStats
}

// Expander runs the expansion pipeline against a store.
type Expander struct {
	store Store
	opts  Options
}

// New creates an Expander.
func New(store Store, opts Options) *Expander {
	if opts.K1Scale <= 0 {
		opts.K1Scale = DefaultK1Scale
	}
	if opts.B < 0 || opts.B > 1 {
		opts.B = DefaultB
	}
	return &Expander{store: store, opts: opts}
}

// Expansion is the outcome of one pipeline run.
type Expansion struct {
	Rows       []RankedRow
	Candidates []*Candidate
	Counts     observability.StageCounts
}

// Expand runs the pipeline for seed. An empty candidate set is not an
// error; the result simply has no rows.
func (e *Expander) Expand(ctx context.Context, seed *seedset.SeedSet) (*Expansion, error) {
	start := time.Now()
	res := &Expansion{}

	matches, err := e.discover(ctx, seed)
	if err != nil {
		return nil, err
	}
	res.Counts.Candidates = len(matches)
	if len(matches) == 0 {
		log.Printf("expand: %s", seterrors.NewEmptyCandidateSet("no table matches the seed keys"))
		e.finish(res, start)
		return res, nil
	}

	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.record(m.TableID, m.Title, observability.OutcomeMatched)

		cand, err := e.align(ctx, seed, m)
		if err == nil {
			err = e.assignNull(ctx, seed, cand)
		}
		if err != nil {
			if seterrors.GetCode(err) == seterrors.CodeInfeasibleAlignment {
				res.Counts.Infeasible++
				e.record(m.TableID, m.Title, observability.OutcomeInfeasible)
				continue
			}
			log.Printf("expand: skipping table %d: %v", m.TableID, err)
			res.Counts.Failed++
			e.record(m.TableID, m.Title, observability.OutcomeFailed)
			continue
		}
		res.Candidates = append(res.Candidates, cand)
	}

	sort.SliceStable(res.Candidates, func(i, j int) bool {
		return res.Candidates[i].Score > res.Candidates[j].Score
	})
	res.Counts.Aligned = len(res.Candidates)

	var rows []candidateRow
	for _, cand := range res.Candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := e.materialize(ctx, seed, cand)
		if err != nil {
			log.Printf("expand: skipping rows of table %d: %v", cand.TableID, err)
			res.Counts.Failed++
			e.record(cand.TableID, cand.Title, observability.OutcomeFailed)
			continue
		}
		rows = append(rows, r...)
	}

	ranked, err := e.rank(seed, rows)
	if err != nil {
		return nil, seterrors.NewInternalError("expand: ranking failed", err)
	}
	res.Counts.RowsRanked = len(ranked)

	res.Rows = selectRows(seed, ranked)
	res.Counts.RowsSelected = len(res.Rows)

	contributed := make(map[int64]bool)
	for _, r := range res.Rows {
		if !contributed[r.TableID] {
			contributed[r.TableID] = true
			e.record(r.TableID, r.Title, observability.OutcomeSelected)
		}
	}

	e.finish(res, start)
	return res, nil
}

func (e *Expander) finish(res *Expansion, start time.Time) {
	res.Counts.DurationMs = time.Since(start).Milliseconds()
	c := res.Counts
	log.Printf("expand: candidates=%d aligned=%d infeasible=%d failed=%d ranked=%d selected=%d in %dms",
		c.Candidates, c.Aligned, c.Infeasible, c.Failed, c.RowsRanked, c.RowsSelected, c.DurationMs)
	if e.opts.Stats != nil {
		e.opts.Stats.RecordExpansion(c)
	}
}

func (e *Expander) record(tableID int64, title, outcome string) {
	if e.opts.Stats != nil {
		e.opts.Stats.RecordTable(tableID, title, outcome)
	}
}

// Settings are the per-request column settings sent with a dot operation.
type Settings struct {
	Sliders      []int
	Unique       []int // 1-indexed
	RowsReturned int
}

// DotOpResult is the response to a dot operation.
type DotOpResult struct {
	Op   string           `json:"dot_op"`
	Rows []seedset.Row    `json:"rows"`
	Info []string         `json:"info"`
	Seed *seedset.SeedSet `json:"seed"`
}

// HandleDotOp applies settings to seed and runs op. Callers hold the
// session lock for the duration of the call.
func (e *Expander) HandleDotOp(ctx context.Context, seed *seedset.SeedSet, op DotOp, settings Settings) (*DotOpResult, error) {
	if !seed.Initialized() {
		return nil, seterrors.NewSeedNotInitialized()
	}
	seed.ApplySettings(settings.Sliders, settings.Unique, settings.RowsReturned)

	res := &DotOpResult{Op: op.Name()}
	switch op.(type) {
	case ViewOp:
		res.Rows = cloneRows(seed.Rows)
	case ExpandRowsOp:
		if seed.Empty() {
			res.Rows = cloneRows(seed.Rows)
			break
		}
		exp, err := e.Expand(ctx, seed)
		if err != nil {
			return nil, err
		}
		res.Rows = make([]seedset.Row, 0, len(exp.Rows))
		res.Info = make([]string, 0, len(exp.Rows))
		for _, r := range exp.Rows {
			res.Rows = append(res.Rows, r.Row.Clone())
			res.Info = append(res.Info, FormatInfo(r))
		}
	default:
		return nil, seterrors.NewInvalidInput(fmt.Sprintf("unhandled dot operation %T", op))
	}

	for i := range res.Rows {
		res.Rows[i] = seedset.PadRow(res.Rows[i], seed.NumCols)
	}
	res.Seed = seed.Snapshot()
	return res, nil
}

// FormatInfo renders the provenance line shown next to an expanded row.
func FormatInfo(r RankedRow) string {
	return fmt.Sprintf("Title: %s, Similarity Score: %.5f", r.Title, r.Score)
}

func cloneRows(rows []seedset.Row) []seedset.Row {
	out := make([]seedset.Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}
