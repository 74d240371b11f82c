// Package corpus is the read-only cell store the expansion engine queries:
// a SQLite database of tables flattened into cells, plus the keyword and
// bloom-filter indexes built at ingest time.
package corpus

// Location values for cells.
const (
	LocationCell   = "cell"
	LocationHeader = "header"
)

// ColumnKind is a column type as stored in the columns table.
type ColumnKind string

const (
	KindText      ColumnKind = "text"
	KindNumerical ColumnKind = "numerical"
)

// Schema holds the statements that create an empty corpus.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS cells (
    table_id INTEGER NOT NULL,
    row_id INTEGER NOT NULL,
    col_id INTEGER NOT NULL,
    value TEXT NOT NULL,
    location TEXT NOT NULL,
    PRIMARY KEY (table_id, row_id, col_id)
)`,
	`CREATE TABLE IF NOT EXISTS titles (
    table_id INTEGER PRIMARY KEY,
    title TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS captions (
    table_id INTEGER PRIMARY KEY,
    caption TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS columns (
    table_id INTEGER NOT NULL,
    col_id INTEGER NOT NULL,
    type TEXT NOT NULL,
    PRIMARY KEY (table_id, col_id)
)`,
	`CREATE TABLE IF NOT EXISTS keywords_cell_header (
    keyword TEXT NOT NULL,
    table_id INTEGER NOT NULL,
    row_id INTEGER NOT NULL,
    col_id INTEGER NOT NULL,
    location TEXT NOT NULL,
    PRIMARY KEY (keyword, table_id, row_id, col_id)
)`,
	`CREATE TABLE IF NOT EXISTS keywords_title_caption (
    table_id INTEGER NOT NULL,
    location TEXT NOT NULL,
    keyword TEXT NOT NULL,
    PRIMARY KEY (table_id, location, keyword)
)`,
	`CREATE TABLE IF NOT EXISTS column_blooms (
    table_id INTEGER NOT NULL,
    col_id INTEGER NOT NULL,
    distinct_count INTEGER NOT NULL,
    filter BLOB NOT NULL,
    PRIMARY KEY (table_id, col_id)
)`,
}

// Indexes are created after bulk loading.
var Indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_kwch_kw ON keywords_cell_header(keyword)`,
	`CREATE INDEX IF NOT EXISTS idx_kwtc_kw ON keywords_title_caption(keyword)`,
	`CREATE INDEX IF NOT EXISTS idx_columns_type ON columns(type, table_id)`,
}
