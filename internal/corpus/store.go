package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	seterrors "github.com/setexpand/setexpand/internal/errors"
	"github.com/setexpand/setexpand/internal/seedset"
)

// Store is the query surface of the cell store.
type Store interface {
	// LookupCells returns cells ordered by table, row and column.
	LookupCells(ctx context.Context, q CellQuery) ([]CellRecord, error)

	// SeedCells returns the referenced rows in reference order.
	SeedCells(ctx context.Context, refs []seedset.RowRef) ([]seedset.Row, error)

	// SchemaColumnCounts returns the column counts of a table by type.
	SchemaColumnCounts(ctx context.Context, tableID int64) (ColumnCounts, error)

	// TableTitle returns the title of a table.
	TableTitle(ctx context.Context, tableID int64) (string, error)

	// TableColumns returns the non-empty data values of every column of the
	// given kind, ordered by column id.
	TableColumns(ctx context.Context, tableID int64, kind ColumnKind) ([]Column, error)

	// ColumnIDs returns the distinct column ids holding cells, ascending.
	ColumnIDs(ctx context.Context, tableID int64) ([]int, error)

	// FindKeyMatches returns the tables whose shape and key columns satisfy q.
	FindKeyMatches(ctx context.Context, q KeyMatchQuery) ([]TableMatch, error)

	// KeywordRows returns the data rows of tables matching any keyword.
	KeywordRows(ctx context.Context, keywords []string) ([]KeywordRow, error)

	// Close releases the database.
	Close() error
}

// CellQuery filters LookupCells. Zero values match everything.
type CellQuery struct {
	TableID        int64
	Kind           ColumnKind
	ExcludeHeaders bool
}

// CellRecord is one stored cell.
type CellRecord struct {
	TableID int64
	RowID   int64
	ColID   int
	Value   string
}

// ColumnCounts is the shape of a table.
type ColumnCounts struct {
	Text      int
	Numerical int
	Total     int
}

// Column is the data of one column.
type Column struct {
	ColID  int
	Values []string
}

// KeyMatchQuery describes the tables candidate discovery is looking for. An
// empty key disables its predicate.
type KeyMatchQuery struct {
	TextKey          []string
	TextThreshold    float64
	NumericKey       []string
	NumericThreshold float64

	MinText      int
	MinNumerical int
	MinColumns   int
}

// TableMatch is a table returned by FindKeyMatches.
type TableMatch struct {
	TableID int64
	Title   string
}

// KeywordRow is a data row of a table matched by keyword search.
type KeywordRow struct {
	TableID  int64
	Title    string
	RowID    int64
	Cells    []string
	RowCount int
}

// SQLiteStore implements Store over a read-only SQLite corpus.
type SQLiteStore struct {
	db   *sql.DB
	path string

	keyIndexMu sync.Mutex
	keyIndex   *KeyIndex
}

// Open opens the corpus at path read-only.
func Open(path string) (*SQLiteStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("corpus: %w", err)
	}

	db, err := sql.Open(DriverName, "file:"+path+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("corpus: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("corpus: failed to connect: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LookupCells implements Store.
func (s *SQLiteStore) LookupCells(ctx context.Context, q CellQuery) ([]CellRecord, error) {
	var (
		where []string
		args  []interface{}
	)
	stmt := `SELECT c.table_id, c.row_id, c.col_id, c.value FROM cells c`
	if q.Kind != "" {
		stmt += ` JOIN columns col ON col.table_id = c.table_id AND col.col_id = c.col_id`
		where = append(where, "col.type = ?")
		args = append(args, string(q.Kind))
	}
	if q.TableID != 0 {
		where = append(where, "c.table_id = ?")
		args = append(args, q.TableID)
	}
	if q.ExcludeHeaders {
		where = append(where, "c.location != ?")
		args = append(args, LocationHeader)
	}
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	stmt += " ORDER BY c.table_id, c.row_id, c.col_id"

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, seterrors.NewStoreError("corpus: lookup cells", err)
	}
	defer rows.Close()

	var out []CellRecord
	for rows.Next() {
		var rec CellRecord
		if err := rows.Scan(&rec.TableID, &rec.RowID, &rec.ColID, &rec.Value); err != nil {
			return nil, seterrors.NewStoreError("corpus: scan cell", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, seterrors.NewStoreError("corpus: lookup cells", err)
	}
	return out, nil
}

// SeedCells implements Store.
func (s *SQLiteStore) SeedCells(ctx context.Context, refs []seedset.RowRef) ([]seedset.Row, error) {
	stmt, err := s.db.PrepareContext(ctx,
		`SELECT value FROM cells WHERE table_id = ? AND row_id = ? ORDER BY col_id`)
	if err != nil {
		return nil, seterrors.NewStoreError("corpus: prepare seed query", err)
	}
	defer stmt.Close()

	var out []seedset.Row
	for _, ref := range refs {
		row, err := scanRow(ctx, stmt, ref.TableID, ref.RowID)
		if err != nil {
			return nil, err
		}
		if len(row) > 0 {
			out = append(out, row)
		}
	}
	return out, nil
}

func scanRow(ctx context.Context, stmt *sql.Stmt, tableID, rowID int64) (seedset.Row, error) {
	rows, err := stmt.QueryContext(ctx, tableID, rowID)
	if err != nil {
		return nil, seterrors.NewStoreError("corpus: seed cells", err)
	}
	defer rows.Close()

	var row seedset.Row
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, seterrors.NewStoreError("corpus: scan seed cell", err)
		}
		row = append(row, seedset.FromStore(v))
	}
	if err := rows.Err(); err != nil {
		return nil, seterrors.NewStoreError("corpus: seed cells", err)
	}
	return row, nil
}

// SchemaColumnCounts implements Store.
func (s *SQLiteStore) SchemaColumnCounts(ctx context.Context, tableID int64) (ColumnCounts, error) {
	var c ColumnCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(type = 'text'), 0), COALESCE(SUM(type = 'numerical'), 0), COUNT(*)
		FROM columns WHERE table_id = ?`, tableID).Scan(&c.Text, &c.Numerical, &c.Total)
	if err != nil {
		return ColumnCounts{}, seterrors.NewStoreError("corpus: column counts", err)
	}
	return c, nil
}

// TableTitle implements Store.
func (s *SQLiteStore) TableTitle(ctx context.Context, tableID int64) (string, error) {
	var title string
	err := s.db.QueryRowContext(ctx, `SELECT title FROM titles WHERE table_id = ?`, tableID).Scan(&title)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", seterrors.NewStoreError("corpus: table title", err)
	}
	return title, nil
}

// TableColumns implements Store.
func (s *SQLiteStore) TableColumns(ctx context.Context, tableID int64, kind ColumnKind) ([]Column, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.col_id, to_arr(c.value)
		FROM cells c JOIN columns col ON col.table_id = c.table_id AND col.col_id = c.col_id
		WHERE c.table_id = ? AND col.type = ? AND c.location != ? AND c.value != ''
		GROUP BY c.col_id
		ORDER BY c.col_id`, tableID, string(kind), LocationHeader)
	if err != nil {
		return nil, seterrors.NewStoreError("corpus: table columns", err)
	}
	defer rows.Close()

	var out []Column
	for rows.Next() {
		var (
			col Column
			arr string
		)
		if err := rows.Scan(&col.ColID, &arr); err != nil {
			return nil, seterrors.NewStoreError("corpus: scan column", err)
		}
		if err := json.Unmarshal([]byte(arr), &col.Values); err != nil {
			return nil, seterrors.NewStoreError("corpus: decode column", err)
		}
		out = append(out, col)
	}
	if err := rows.Err(); err != nil {
		return nil, seterrors.NewStoreError("corpus: table columns", err)
	}
	return out, nil
}

// ColumnIDs implements Store.
func (s *SQLiteStore) ColumnIDs(ctx context.Context, tableID int64) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT col_id FROM cells WHERE table_id = ? ORDER BY col_id`, tableID)
	if err != nil {
		return nil, seterrors.NewStoreError("corpus: column ids", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, seterrors.NewStoreError("corpus: scan column id", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, seterrors.NewStoreError("corpus: column ids", err)
	}
	return out, nil
}

// FindKeyMatches implements Store. The text predicate is first checked
// against the bloom key index; tables whose text columns cannot reach the
// threshold are excluded before the SQL runs.
func (s *SQLiteStore) FindKeyMatches(ctx context.Context, q KeyMatchQuery) ([]TableMatch, error) {
	if len(q.TextKey) == 0 && len(q.NumericKey) == 0 {
		return nil, nil
	}

	var excluded []int64
	if len(q.TextKey) > 0 {
		idx, err := s.loadKeyIndex(ctx)
		if err != nil {
			return nil, err
		}
		excluded = idx.Exclude(q.TextKey, q.TextThreshold)
	}

	args := []interface{}{q.MinText, q.MinNumerical, q.MinColumns}
	exclusion := ""
	if len(excluded) > 0 {
		ids, _ := json.Marshal(excluded)
		exclusion = "AND c.table_id NOT IN (SELECT value FROM json_each(?))"
		args = append(args, string(ids))
	}

	var parts []string
	if len(q.TextKey) > 0 {
		parts = append(parts, fmt.Sprintf(`
			SELECT c.table_id
			FROM cells c
			JOIN columns col ON col.table_id = c.table_id AND col.col_id = c.col_id
			JOIN table_shape sh ON sh.table_id = c.table_id
			WHERE col.type = 'text' AND c.location != 'header' AND c.value != '' %s
			GROUP BY c.table_id, c.col_id
			HAVING overlap_sim(?, to_arr(c.value)) >= ?`, exclusion))
		args = append(args, encodeStrings(q.TextKey), q.TextThreshold)
	}
	if len(q.NumericKey) > 0 {
		parts = append(parts, `
			SELECT c.table_id
			FROM cells c
			JOIN columns col ON col.table_id = c.table_id AND col.col_id = c.col_id
			JOIN table_shape sh ON sh.table_id = c.table_id
			WHERE col.type = 'numerical' AND c.location != 'header' AND c.value != ''
			GROUP BY c.table_id, c.col_id
			HAVING MAX(overlap_num(?, to_arr(c.value)), t_test(?, to_arr(c.value))) >= ?`)
		key := encodeStrings(q.NumericKey)
		args = append(args, key, key, q.NumericThreshold)
	}
	stmt := `
		WITH table_shape AS (
			SELECT table_id
			FROM columns
			GROUP BY table_id
			HAVING SUM(type = 'text') >= ? AND SUM(type = 'numerical') >= ? AND COUNT(*) >= ?
		), matches AS (` + strings.Join(parts, "\nINTERSECT\n") + `
		)
		SELECT m.table_id, COALESCE(t.title, '')
		FROM matches m LEFT JOIN titles t ON t.table_id = m.table_id
		ORDER BY m.table_id`

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, seterrors.NewStoreError("corpus: find key matches", err)
	}
	defer rows.Close()

	var out []TableMatch
	for rows.Next() {
		var m TableMatch
		if err := rows.Scan(&m.TableID, &m.Title); err != nil {
			return nil, seterrors.NewStoreError("corpus: scan key match", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, seterrors.NewStoreError("corpus: find key matches", err)
	}
	return out, nil
}

// KeywordRows implements Store. Rows whose cells or headers carry a keyword
// match individually; a title or caption match brings in every row of the
// table.
func (s *SQLiteStore) KeywordRows(ctx context.Context, keywords []string) ([]KeywordRow, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	kw := encodeStrings(keywords)

	rows, err := s.db.QueryContext(ctx, `
		WITH wanted AS (
			SELECT value AS keyword FROM json_each(?)
		), matched(table_id, row_id) AS (
			SELECT k.table_id, k.row_id
			FROM keywords_cell_header k JOIN wanted w ON w.keyword = k.keyword
			UNION
			SELECT c.table_id, c.row_id
			FROM keywords_title_caption k
			JOIN wanted w ON w.keyword = k.keyword
			JOIN cells c ON c.table_id = k.table_id
		), row_counts AS (
			SELECT table_id, COUNT(DISTINCT row_id) AS row_count
			FROM cells
			WHERE location != 'header'
			GROUP BY table_id
		)
		SELECT c.table_id, COALESCE(t.title, ''), c.row_id, c.value, COALESCE(rc.row_count, 0)
		FROM matched m
		JOIN cells c ON c.table_id = m.table_id AND c.row_id = m.row_id
		LEFT JOIN titles t ON t.table_id = c.table_id
		LEFT JOIN row_counts rc ON rc.table_id = c.table_id
		WHERE c.location != 'header'
		ORDER BY c.table_id, c.row_id, c.col_id`, kw)
	if err != nil {
		return nil, seterrors.NewStoreError("corpus: keyword rows", err)
	}
	defer rows.Close()

	var out []KeywordRow
	for rows.Next() {
		var (
			tableID, rowID int64
			title, value   string
			rowCount       int
		)
		if err := rows.Scan(&tableID, &title, &rowID, &value, &rowCount); err != nil {
			return nil, seterrors.NewStoreError("corpus: scan keyword row", err)
		}
		if n := len(out); n > 0 && out[n-1].TableID == tableID && out[n-1].RowID == rowID {
			out[n-1].Cells = append(out[n-1].Cells, value)
			continue
		}
		out = append(out, KeywordRow{
			TableID:  tableID,
			Title:    title,
			RowID:    rowID,
			Cells:    []string{value},
			RowCount: rowCount,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, seterrors.NewStoreError("corpus: keyword rows", err)
	}
	return out, nil
}

// TableCount returns the number of tables in the corpus.
func (s *SQLiteStore) TableCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM titles`).Scan(&n); err != nil {
		return 0, seterrors.NewStoreError("corpus: table count", err)
	}
	return n, nil
}

func (s *SQLiteStore) loadKeyIndex(ctx context.Context) (*KeyIndex, error) {
	s.keyIndexMu.Lock()
	defer s.keyIndexMu.Unlock()

	if s.keyIndex != nil {
		return s.keyIndex, nil
	}
	idx, err := LoadKeyIndex(ctx, s.db)
	if err != nil {
		return nil, err
	}
	s.keyIndex = idx
	return idx, nil
}
