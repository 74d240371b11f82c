package observability

import (
	"sync"
	"testing"
	"time"
)

// TestRecordTableConcurrent tests concurrent RecordTable calls for race conditions.
func TestRecordTableConcurrent(t *testing.T) {
	es := NewExpansionStats(1 * time.Hour)
	var wg sync.WaitGroup
	numGoroutines := 10
	recordsPerGoroutine := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < recordsPerGoroutine; j++ {
				es.RecordTable(1, "countries", OutcomeMatched)
				es.RecordTable(2, "cities", OutcomeInfeasible)
				es.RecordTable(3, "rivers", OutcomeSelected)
			}
		}()
	}

	wg.Wait()

	top := es.GetTopTables(10)
	if len(top) != 3 {
		t.Errorf("expected 3 tables, got %d", len(top))
	}

	expectedFreq := int64(numGoroutines * recordsPerGoroutine)
	for _, stat := range top {
		if stat.Frequency != expectedFreq {
			t.Errorf("expected frequency %d for table %d, got %d", expectedFreq, stat.TableID, stat.Frequency)
		}
	}
}

// TestGetTopTablesOrdering tests that GetTopTables returns results sorted by frequency.
func TestGetTopTablesOrdering(t *testing.T) {
	es := NewExpansionStats(1 * time.Hour)

	for i := 0; i < 10; i++ {
		es.RecordTable(1, "countries", OutcomeMatched)
	}
	for i := 0; i < 5; i++ {
		es.RecordTable(2, "cities", OutcomeMatched)
	}
	for i := 0; i < 20; i++ {
		es.RecordTable(3, "rivers", OutcomeMatched)
	}

	top := es.GetTopTables(3)
	if len(top) != 3 {
		t.Fatalf("expected 3 tables, got %d", len(top))
	}

	if top[0].TableID != 3 || top[0].Frequency != 20 {
		t.Errorf("expected table 3 with frequency 20, got %d with %d", top[0].TableID, top[0].Frequency)
	}
	if top[1].TableID != 1 || top[1].Frequency != 10 {
		t.Errorf("expected table 1 with frequency 10, got %d with %d", top[1].TableID, top[1].Frequency)
	}
	if top[2].TableID != 2 || top[2].Frequency != 5 {
		t.Errorf("expected table 2 with frequency 5, got %d with %d", top[2].TableID, top[2].Frequency)
	}
}

// TestPruneRemovesOldEntries tests that Prune removes entries older than the window.
func TestPruneRemovesOldEntries(t *testing.T) {
	window := 100 * time.Millisecond
	es := NewExpansionStats(window)

	es.RecordTable(1, "countries", OutcomeMatched)
	es.RecordKeywords([]string{"country"})

	if top := es.GetTopTables(10); len(top) != 1 {
		t.Errorf("expected 1 table before prune, got %d", len(top))
	}

	time.Sleep(window + 50*time.Millisecond)
	es.Prune()

	if top := es.GetTopTables(10); len(top) != 0 {
		t.Errorf("expected 0 tables after prune, got %d", len(top))
	}
	if top := es.GetTopKeywords(10); len(top) != 0 {
		t.Errorf("expected 0 keywords after prune, got %d", len(top))
	}
}

// TestRecordTableTracksOutcomes tests that RecordTable tracks the outcome distribution.
func TestRecordTableTracksOutcomes(t *testing.T) {
	es := NewExpansionStats(1 * time.Hour)

	for i := 0; i < 5; i++ {
		es.RecordTable(7, "", OutcomeMatched)
	}
	for i := 0; i < 3; i++ {
		es.RecordTable(7, "lakes", OutcomeSelected)
	}
	for i := 0; i < 2; i++ {
		es.RecordTable(7, "", OutcomeFailed)
	}

	top := es.GetTopTables(1)
	if len(top) != 1 {
		t.Fatalf("expected 1 table, got %d", len(top))
	}

	stat := top[0]
	if stat.Frequency != 10 {
		t.Errorf("expected frequency 10, got %d", stat.Frequency)
	}
	if stat.Title != "lakes" {
		t.Errorf("expected title lakes, got %q", stat.Title)
	}
	if stat.Outcomes[OutcomeMatched] != 5 {
		t.Errorf("expected 5 matched, got %d", stat.Outcomes[OutcomeMatched])
	}
	if stat.Outcomes[OutcomeSelected] != 3 {
		t.Errorf("expected 3 selected, got %d", stat.Outcomes[OutcomeSelected])
	}
	if stat.Outcomes[OutcomeFailed] != 2 {
		t.Errorf("expected 2 failed, got %d", stat.Outcomes[OutcomeFailed])
	}
}

// TestGetTopTablesReturnsCopies tests that callers cannot mutate tracked stats.
func TestGetTopTablesReturnsCopies(t *testing.T) {
	es := NewExpansionStats(1 * time.Hour)
	es.RecordTable(1, "countries", OutcomeMatched)

	top := es.GetTopTables(1)
	top[0].Outcomes[OutcomeMatched] = 100

	again := es.GetTopTables(1)
	if again[0].Outcomes[OutcomeMatched] != 1 {
		t.Errorf("expected stored outcome count 1, got %d", again[0].Outcomes[OutcomeMatched])
	}
}

// TestRecordKeywordsFrequency tests that RecordKeywords tracks keyword frequency.
func TestRecordKeywordsFrequency(t *testing.T) {
	es := NewExpansionStats(1 * time.Hour)

	for i := 0; i < 15; i++ {
		es.RecordKeywords([]string{"country"})
	}
	for i := 0; i < 8; i++ {
		es.RecordKeywords([]string{"capital", "river"})
	}

	top := es.GetTopKeywords(3)
	if len(top) != 3 {
		t.Fatalf("expected 3 keywords, got %d", len(top))
	}
	if top[0].Keyword != "country" || top[0].Frequency != 15 {
		t.Errorf("expected country with frequency 15, got %s with %d", top[0].Keyword, top[0].Frequency)
	}
	// ties break alphabetically
	if top[1].Keyword != "capital" || top[2].Keyword != "river" {
		t.Errorf("expected capital then river, got %s then %s", top[1].Keyword, top[2].Keyword)
	}
	if got := es.Totals().KeywordSearches; got != 23 {
		t.Errorf("expected 23 keyword searches, got %d", got)
	}
}

// TestRecordExpansionTotals tests that stage counts accumulate.
func TestRecordExpansionTotals(t *testing.T) {
	es := NewExpansionStats(1 * time.Hour)
	es.RecordExpansion(StageCounts{Candidates: 4, Aligned: 3, Infeasible: 1, RowsRanked: 20, RowsSelected: 10, DurationMs: 12})
	es.RecordExpansion(StageCounts{Candidates: 2, Aligned: 1, Failed: 1, RowsRanked: 5, RowsSelected: 5, DurationMs: 8})

	totals := es.Totals()
	if totals.Expansions != 2 {
		t.Errorf("expected 2 expansions, got %d", totals.Expansions)
	}
	if totals.Candidates != 6 || totals.Aligned != 4 || totals.Infeasible != 1 || totals.Failed != 1 {
		t.Errorf("unexpected stage totals: %+v", totals)
	}
	if totals.RowsRanked != 25 || totals.RowsSelected != 15 || totals.TotalDurationMs != 20 {
		t.Errorf("unexpected row totals: %+v", totals)
	}
}

// TestGetTopEmpty tests the getters with no data.
func TestGetTopEmpty(t *testing.T) {
	es := NewExpansionStats(1 * time.Hour)
	if top := es.GetTopTables(10); len(top) != 0 {
		t.Errorf("expected 0 tables, got %d", len(top))
	}
	if top := es.GetTopKeywords(10); len(top) != 0 {
		t.Errorf("expected 0 keywords, got %d", len(top))
	}
	if top := es.GetTopTables(0); len(top) != 0 {
		t.Errorf("expected 0 tables for n=0, got %d", len(top))
	}
}
