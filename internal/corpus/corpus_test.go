package corpus

import (
	"context"
	"math"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	seterrors "github.com/setexpand/setexpand/internal/errors"
	"github.com/setexpand/setexpand/internal/seedset"
)

const testDump = `
title: List of countries
types: object, int64
header: 0
"Country", "Population"
"k1", "5"
"k2", "7"
"k3", "6"

title: List of words
types: object
"k1"
"zzz"

title: Mixed
types: object, float64, object
caption: a caption
caption: here
"k1", "5.5", "x"
"k2", "6.5", ""
`

func buildCorpus(t *testing.T, dump string) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.db")
	_, err := Ingest(context.Background(), strings.NewReader(dump), path)
	require.NoError(t, err)

	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestIngest_Stats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.db")
	stats, err := Ingest(context.Background(), strings.NewReader(testDump), path)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Tables)
	assert.Equal(t, 7, stats.Rows)
	assert.Equal(t, 8+2+6, stats.Cells)
	assert.Equal(t, 4, stats.Filters)
	assert.Positive(t, stats.Keywords)
}

func TestParseDump_Errors(t *testing.T) {
	cases := map[string]string{
		"row before title": `"a", "b"`,
		"missing types":    "title: x\n\"a\"",
		"bad header":       "title: x\ntypes: object\nheader: one",
		"unquoted row":     "title: x\ntypes: object\nplain row",
	}
	for name, dump := range cases {
		_, err := parseDump(strings.NewReader(dump))
		if seterrors.GetCode(err) != seterrors.CodeInvalidInput {
			t.Errorf("%s: expected invalid input, got %v", name, err)
		}
	}
}

func TestParseDump_Caption(t *testing.T) {
	tables, err := parseDump(strings.NewReader(testDump))
	require.NoError(t, err)
	require.Len(t, tables, 3)
	assert.Equal(t, "a caption here", tables[2].caption)
	assert.Equal(t, []ColumnKind{KindText, KindNumerical, KindText}, tables[2].kinds)
	assert.True(t, tables[0].headers[0])
}

func TestStore_SeedCells(t *testing.T) {
	store := buildCorpus(t, testDump)

	rows, err := store.SeedCells(context.Background(), []seedset.RowRef{
		{TableID: 1, RowID: 1},
		{TableID: 3, RowID: 1},
		{TableID: 99, RowID: 0},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{"k1", "5"}, rows[0].Strings())
	assert.Equal(t, "k2", rows[1][0].Value)
	assert.True(t, rows[1][2].Null, "empty store value should be a null cell")
}

func TestStore_Metadata(t *testing.T) {
	store := buildCorpus(t, testDump)
	ctx := context.Background()

	counts, err := store.SchemaColumnCounts(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, ColumnCounts{Text: 2, Numerical: 1, Total: 3}, counts)

	title, err := store.TableTitle(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "List of countries", title)

	missing, err := store.TableTitle(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, missing)

	ids, err := store.ColumnIDs(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, ids)

	n, err := store.TableCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestStore_TableColumns(t *testing.T) {
	store := buildCorpus(t, testDump)

	cols, err := store.TableColumns(context.Background(), 1, KindNumerical)
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, 1, cols[0].ColID)

	values := append([]string(nil), cols[0].Values...)
	sort.Strings(values)
	assert.Equal(t, []string{"5", "6", "7"}, values, "header cells must be excluded")

	text, err := store.TableColumns(context.Background(), 3, KindText)
	require.NoError(t, err)
	require.Len(t, text, 2)
	assert.Equal(t, []string{"x"}, text[1].Values, "empty values must be excluded")
}

func TestStore_LookupCells(t *testing.T) {
	store := buildCorpus(t, testDump)
	ctx := context.Background()

	cells, err := store.LookupCells(ctx, CellQuery{TableID: 1, ExcludeHeaders: true})
	require.NoError(t, err)
	assert.Len(t, cells, 6)
	assert.Equal(t, CellRecord{TableID: 1, RowID: 1, ColID: 0, Value: "k1"}, cells[0])

	withHeaders, err := store.LookupCells(ctx, CellQuery{TableID: 1})
	require.NoError(t, err)
	assert.Len(t, withHeaders, 8)

	numeric, err := store.LookupCells(ctx, CellQuery{Kind: KindNumerical, ExcludeHeaders: true})
	require.NoError(t, err)
	assert.Len(t, numeric, 5)
}

func TestStore_FindKeyMatches(t *testing.T) {
	store := buildCorpus(t, testDump)
	ctx := context.Background()

	matches, err := store.FindKeyMatches(ctx, KeyMatchQuery{
		TextKey:          []string{"k1", "k2"},
		TextThreshold:    0.5,
		NumericKey:       []string{"5", "7"},
		NumericThreshold: 0.5,
		MinText:          1,
		MinNumerical:     1,
		MinColumns:       2,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, tableIDs(matches))
	assert.Equal(t, "List of countries", matches[0].Title)

	textOnly, err := store.FindKeyMatches(ctx, KeyMatchQuery{
		TextKey:       []string{"zzz"},
		TextThreshold: 0.5,
		MinText:       1,
		MinColumns:    1,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, tableIDs(textOnly))

	none, err := store.FindKeyMatches(ctx, KeyMatchQuery{MinText: 1})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_FindKeyMatches_ShapeFilter(t *testing.T) {
	store := buildCorpus(t, testDump)

	matches, err := store.FindKeyMatches(context.Background(), KeyMatchQuery{
		TextKey:       []string{"k1", "k2"},
		TextThreshold: 0.5,
		MinText:       2,
		MinColumns:    3,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, tableIDs(matches))
}

func TestStore_KeywordRows(t *testing.T) {
	store := buildCorpus(t, testDump)
	ctx := context.Background()

	byTitle, err := store.KeywordRows(ctx, []string{"countries"})
	require.NoError(t, err)
	require.Len(t, byTitle, 3)
	assert.Equal(t, []string{"k1", "5"}, byTitle[0].Cells)
	assert.Equal(t, 3, byTitle[0].RowCount)

	byCell, err := store.KeywordRows(ctx, []string{"zzz"})
	require.NoError(t, err)
	require.Len(t, byCell, 1)
	assert.Equal(t, int64(2), byCell[0].TableID)
	assert.Equal(t, int64(1), byCell[0].RowID)

	byCaption, err := store.KeywordRows(ctx, []string{"caption"})
	require.NoError(t, err)
	assert.Len(t, byCaption, 2)
}

func TestSQLFunctions(t *testing.T) {
	store := buildCorpus(t, testDump)

	var overlap float64
	require.NoError(t, store.db.QueryRow(`SELECT overlap_sim('["a","b","c"]', '["b","c","d"]')`).Scan(&overlap))
	assert.InDelta(t, 2.0/3.0, overlap, 1e-12)

	var p float64
	require.NoError(t, store.db.QueryRow(`SELECT t_test('[3]', '[3]')`).Scan(&p))
	assert.Equal(t, 0.99, p)

	var num float64
	require.NoError(t, store.db.QueryRow(`SELECT overlap_num('["5"]', '["5.0"]')`).Scan(&num))
	assert.Equal(t, 1.0, num)

	var arr string
	require.NoError(t, store.db.QueryRow(
		`SELECT to_arr(value) FROM cells WHERE table_id = 2`).Scan(&arr))
	got, err := decodeStrings(arr)
	require.NoError(t, err)
	sort.Strings(got)
	assert.Equal(t, []string{"k1", "zzz"}, got)
}

func TestNormalizeKeyword(t *testing.T) {
	assert.Equal(t, "café", NormalizeKeyword("ＣＡＦÉ,"))
	assert.Equal(t, "strasse", NormalizeKeyword("STRASSE"))
	assert.Equal(t, []string{"foo", "bar", "baz"}, SplitKeywords([]string{"Foo, bar", "foo  baz"}))
	assert.Empty(t, SplitKeywords([]string{" , "}))
}

func TestKeyIndex_Exclude(t *testing.T) {
	idx := NewKeyIndex()
	idx.Add(1, buildColumnFilter([]string{"a", "b"}))
	idx.Add(2, buildColumnFilter([]string{"x", "y", "z"}))

	got := idx.Exclude([]string{"a", "b"}, 1)
	if !reflect.DeepEqual(got, []int64{2}) {
		t.Errorf("Exclude = %v, want [2]", got)
	}
	if buildColumnFilter([]string{"", ""}) != nil {
		t.Error("empty column should produce no filter")
	}
}

func tableIDs(ms []TableMatch) []int64 {
	var out []int64
	for _, m := range ms {
		out = append(out, m.TableID)
	}
	return out
}

func TestOverlapSQLMatchesGo(t *testing.T) {
	v, err := overlapSimSQL(`["k1","k2"]`, `["k1","k2","k3"]`)
	require.NoError(t, err)
	if math.Abs(v-2.0/3.0) > 1e-12 {
		t.Errorf("overlap_sim = %v", v)
	}
	_, err = overlapSimSQL(`not json`, `[]`)
	assert.Error(t, err)
}
