// Package observability tracks which corpus tables and keywords expansion
// requests touch, plus running per-stage totals.
package observability

import (
	"sort"
	"sync"
	"time"
)

// Table outcomes recorded by the expansion pipeline.
const (
	OutcomeMatched    = "matched"
	OutcomeInfeasible = "infeasible"
	OutcomeFailed     = "failed"
	OutcomeSelected   = "selected"
)

// ExpansionStats tracks table and keyword frequency for expansion requests.
type ExpansionStats struct {
	mu          sync.RWMutex
	tableFreq   map[int64]*TableStats
	keywordFreq map[string]*KeywordStats
	totals      Totals
	window      time.Duration
}

// TableStats holds statistics for one corpus table.
type TableStats struct {
	TableID   int64          `json:"table_id"`
	Title     string         `json:"title"`
	Frequency int64          `json:"frequency"`
	LastSeen  time.Time      `json:"last_seen"`
	Outcomes  map[string]int `json:"outcomes"` // outcome → count (e.g., "selected" → 3)
}

// KeywordStats holds statistics for one search keyword.
type KeywordStats struct {
	Keyword   string    `json:"keyword"`
	Frequency int64     `json:"frequency"`
	LastSeen  time.Time `json:"last_seen"`
}

// StageCounts are the per-stage sizes of one expansion.
type StageCounts struct {
	Candidates   int   `json:"candidates"`
	Aligned      int   `json:"aligned"`
	Infeasible   int   `json:"infeasible"`
	Failed       int   `json:"failed"`
	RowsRanked   int   `json:"rows_ranked"`
	RowsSelected int   `json:"rows_selected"`
	DurationMs   int64 `json:"duration_ms"`
}

// Totals accumulates StageCounts over all expansions.
type Totals struct {
	Expansions      int64 `json:"expansions"`
	KeywordSearches int64 `json:"keyword_searches"`
	Candidates      int64 `json:"candidates"`
	Aligned         int64 `json:"aligned"`
	Infeasible      int64 `json:"infeasible"`
	Failed          int64 `json:"failed"`
	RowsRanked      int64 `json:"rows_ranked"`
	RowsSelected    int64 `json:"rows_selected"`
	TotalDurationMs int64 `json:"total_duration_ms"`
}

// NewExpansionStats creates a new statistics tracker.
// window: time duration for pruning old entries (e.g., 1 hour)
func NewExpansionStats(window time.Duration) *ExpansionStats {
	return &ExpansionStats{
		tableFreq:   make(map[int64]*TableStats),
		keywordFreq: make(map[string]*KeywordStats),
		window:      window,
	}
}

// RecordTable records that an expansion reached a table with the given outcome.
// This method is O(1) and thread-safe.
func (s *ExpansionStats) RecordTable(tableID int64, title, outcome string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, exists := s.tableFreq[tableID]
	if !exists {
		stats = &TableStats{
			TableID:  tableID,
			Outcomes: make(map[string]int),
		}
		s.tableFreq[tableID] = stats
	}

	if title != "" {
		stats.Title = title
	}
	stats.Frequency++
	stats.LastSeen = time.Now()
	stats.Outcomes[outcome]++
}

// RecordKeywords records one keyword search.
func (s *ExpansionStats) RecordKeywords(keywords []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totals.KeywordSearches++
	now := time.Now()
	for _, kw := range keywords {
		stats, exists := s.keywordFreq[kw]
		if !exists {
			stats = &KeywordStats{Keyword: kw}
			s.keywordFreq[kw] = stats
		}
		stats.Frequency++
		stats.LastSeen = now
	}
}

// RecordExpansion adds the stage counts of one finished expansion.
func (s *ExpansionStats) RecordExpansion(c StageCounts) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totals.Expansions++
	s.totals.Candidates += int64(c.Candidates)
	s.totals.Aligned += int64(c.Aligned)
	s.totals.Infeasible += int64(c.Infeasible)
	s.totals.Failed += int64(c.Failed)
	s.totals.RowsRanked += int64(c.RowsRanked)
	s.totals.RowsSelected += int64(c.RowsSelected)
	s.totals.TotalDurationMs += c.DurationMs
}

// Totals returns the accumulated counters.
func (s *ExpansionStats) Totals() Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totals
}

// GetTopTables returns the top N tables by frequency.
// Returns a copy of the stats sorted by frequency (descending).
func (s *ExpansionStats) GetTopTables(n int) []TableStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || len(s.tableFreq) == 0 {
		return []TableStats{}
	}

	out := make([]TableStats, 0, len(s.tableFreq))
	for _, t := range s.tableFreq {
		cp := *t
		cp.Outcomes = make(map[string]int, len(t.Outcomes))
		for o, count := range t.Outcomes {
			cp.Outcomes[o] = count
		}
		out = append(out, cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].TableID < out[j].TableID
	})

	if n > len(out) {
		n = len(out)
	}
	return out[:n]
}

// GetTopKeywords returns the top N keywords by frequency.
func (s *ExpansionStats) GetTopKeywords(n int) []KeywordStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || len(s.keywordFreq) == 0 {
		return []KeywordStats{}
	}

	out := make([]KeywordStats, 0, len(s.keywordFreq))
	for _, k := range s.keywordFreq {
		out = append(out, *k)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Keyword < out[j].Keyword
	})

	if n > len(out) {
		n = len(out)
	}
	return out[:n]
}

// Prune removes entries where time.Since(LastSeen) > window.
// This should be called periodically (e.g., every 5 minutes).
func (s *ExpansionStats) Prune() {
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := time.Now().Add(-s.window)

	for id, stats := range s.tableFreq {
		if stats.LastSeen.Before(threshold) {
			delete(s.tableFreq, id)
		}
	}

	for kw, stats := range s.keywordFreq {
		if stats.LastSeen.Before(threshold) {
			delete(s.keywordFreq, kw)
		}
	}
}
