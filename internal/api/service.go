// Package api holds the transport-independent operations served over HTTP
// and gRPC.
package api

import (
	"context"

	"github.com/setexpand/setexpand/internal/corpus"
	"github.com/setexpand/setexpand/internal/expand"
	"github.com/setexpand/setexpand/internal/keyword"
	"github.com/setexpand/setexpand/internal/observability"
	"github.com/setexpand/setexpand/internal/seedset"
)

// topN bounds the table and keyword lists in the stats report.
const topN = 20

// Service binds sessions, the expansion pipeline and keyword search.
type Service struct {
	store    corpus.Store
	sessions *seedset.SessionStore
	expander *expand.Expander
	searcher *keyword.Searcher
	stats    *observability.ExpansionStats
}

// NewService creates a Service. stats may be nil.
func NewService(
	store corpus.Store,
	sessions *seedset.SessionStore,
	expander *expand.Expander,
	searcher *keyword.Searcher,
	stats *observability.ExpansionStats,
) *Service {
	return &Service{
		store:    store,
		sessions: sessions,
		expander: expander,
		searcher: searcher,
		stats:    stats,
	}
}

// SeedSetView is the client rendering of a seed set. Null cells are JSON
// null and unique columns are 1-indexed.
type SeedSetView struct {
	SessionID    string               `json:"session_id"`
	Rows         [][]*string          `json:"rows"`
	Sources      []seedset.RowRef     `json:"sources"`
	NumCols      int                  `json:"num_cols"`
	Types        []seedset.ColumnType `json:"types"`
	Sliders      []int                `json:"sliders"`
	UniqueCols   []int                `json:"unique_cols"`
	RowsReturned int                  `json:"rows_returned"`
}

// DotOpView is the client rendering of a dot operation result.
type DotOpView struct {
	SessionID string       `json:"session_id"`
	DotOp     string       `json:"dot_op"`
	Rows      [][]*string  `json:"rows"`
	Info      []string     `json:"info"`
	Seed      *SeedSetView `json:"seed"`
}

// DotOpRequest carries the parameters of a dot operation.
type DotOpRequest struct {
	SessionID    string
	DotOp        string
	Sliders      []int
	Unique       []int
	RowsReturned int
}

// StatsView is the /stats report.
type StatsView struct {
	Sessions    int                          `json:"sessions"`
	Totals      observability.Totals         `json:"totals"`
	TopTables   []observability.TableStats   `json:"top_tables"`
	TopKeywords []observability.KeywordStats `json:"top_keywords"`
}

// Keyword runs a keyword table search.
func (s *Service) Keyword(ctx context.Context, keywords []string) ([]keyword.Table, error) {
	tables, err := s.searcher.Search(ctx, keywords)
	if err != nil {
		return nil, err
	}
	if tables == nil {
		tables = []keyword.Table{}
	}
	return tables, nil
}

// PostSeedSet loads the referenced rows as the seed set of a session. An
// empty sessionID creates a new session.
func (s *Service) PostSeedSet(ctx context.Context, sessionID string, refs []seedset.RowRef) (*SeedSetView, error) {
	var (
		sess    *seedset.Session
		created bool
		err     error
	)
	if sessionID == "" {
		sess = s.sessions.Create()
		created = true
	} else if sess, err = s.sessions.Get(sessionID); err != nil {
		return nil, err
	}

	var view *SeedSetView
	err = sess.Do(func(seed *seedset.SeedSet) error {
		if err := seed.Post(ctx, s.store, refs); err != nil {
			return err
		}
		view = NewSeedSetView(sess.ID, seed)
		return nil
	})
	if err != nil {
		if created {
			s.sessions.Delete(sess.ID)
		}
		return nil, err
	}
	return view, nil
}

// DotOp runs a dot operation on a session.
func (s *Service) DotOp(ctx context.Context, req DotOpRequest) (*DotOpView, error) {
	op, err := expand.ParseDotOp(req.DotOp)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Get(req.SessionID)
	if err != nil {
		return nil, err
	}

	var view *DotOpView
	err = sess.Do(func(seed *seedset.SeedSet) error {
		res, err := s.expander.HandleDotOp(ctx, seed, op, expand.Settings{
			Sliders:      req.Sliders,
			Unique:       req.Unique,
			RowsReturned: req.RowsReturned,
		})
		if err != nil {
			return err
		}
		view = &DotOpView{
			SessionID: sess.ID,
			DotOp:     res.Op,
			Rows:      renderRows(res.Rows),
			Info:      res.Info,
			Seed:      NewSeedSetView(sess.ID, res.Seed),
		}
		if view.Info == nil {
			view.Info = []string{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// DeleteColumns removes 1-indexed columns from a session's seed set.
func (s *Service) DeleteColumns(ctx context.Context, sessionID string, cols []int) (*SeedSetView, error) {
	return s.mutate(sessionID, func(seed *seedset.SeedSet) error {
		return seed.DeleteCols(cols)
	})
}

// SwapCells exchanges two cells of a session's seed set.
func (s *Service) SwapCells(ctx context.Context, sessionID string, rowA, colA, rowB, colB int) (*SeedSetView, error) {
	return s.mutate(sessionID, func(seed *seedset.SeedSet) error {
		return seed.SwapCells(rowA, colA, rowB, colB)
	})
}

func (s *Service) mutate(sessionID string, fn func(*seedset.SeedSet) error) (*SeedSetView, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	var view *SeedSetView
	err = sess.Do(func(seed *seedset.SeedSet) error {
		if err := fn(seed); err != nil {
			return err
		}
		view = NewSeedSetView(sess.ID, seed)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// DeleteSession drops a session.
func (s *Service) DeleteSession(sessionID string) error {
	if !s.sessions.Delete(sessionID) {
		_, err := s.sessions.Get(sessionID)
		return err
	}
	return nil
}

// Stats reports session and expansion statistics.
func (s *Service) Stats() StatsView {
	view := StatsView{
		Sessions:    s.sessions.Len(),
		TopTables:   []observability.TableStats{},
		TopKeywords: []observability.KeywordStats{},
	}
	if s.stats != nil {
		view.Totals = s.stats.Totals()
		view.TopTables = s.stats.GetTopTables(topN)
		view.TopKeywords = s.stats.GetTopKeywords(topN)
	}
	return view
}

// Health checks that the corpus answers queries.
func (s *Service) Health(ctx context.Context) error {
	_, err := s.store.SchemaColumnCounts(ctx, 0)
	return err
}

// NewSeedSetView renders a seed set for a client.
func NewSeedSetView(sessionID string, seed *seedset.SeedSet) *SeedSetView {
	view := &SeedSetView{
		SessionID:    sessionID,
		Rows:         renderRows(seed.Rows),
		Sources:      append([]seedset.RowRef{}, seed.Sources...),
		NumCols:      seed.NumCols,
		Types:        append([]seedset.ColumnType{}, seed.Types...),
		Sliders:      append([]int{}, seed.Sliders...),
		UniqueCols:   make([]int, len(seed.UniqueCols)),
		RowsReturned: seed.RowsReturned,
	}
	for i, c := range seed.UniqueCols {
		view.UniqueCols[i] = c + 1
	}
	return view
}

func renderRows(rows []seedset.Row) [][]*string {
	out := make([][]*string, len(rows))
	for i, r := range rows {
		cells := make([]*string, len(r))
		for j, c := range r {
			if !c.Null {
				v := c.Value
				cells[j] = &v
			}
		}
		out[i] = cells
	}
	return out
}
