package corpus

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"

	seterrors "github.com/setexpand/setexpand/internal/errors"
)

var (
	titlePrefix   = regexp.MustCompile(`^title:? ?`)
	typesPrefix   = regexp.MustCompile(`^types:? ?`)
	captionPrefix = regexp.MustCompile(`^caption:? *`)
	headerPrefix  = regexp.MustCompile(`^header:? ?`)
	listOfPrefix  = regexp.MustCompile(`^(?:List of )?`)
	numericType   = regexp.MustCompile(`^(?:int|float)\d*$`)
)

// IngestStats summarizes an ingest run.
type IngestStats struct {
	Tables   int
	Rows     int
	Cells    int
	Keywords int
	Filters  int
}

// dumpTable is one table read from a dump.
type dumpTable struct {
	id      int64
	title   string
	caption string
	kinds   []ColumnKind
	headers map[int]bool
	rows    [][]string
}

// parseDump reads the table dump format:
//
//	title: <title>
//	types: <dtype>, <dtype>, ...
//	caption: <caption>        (optional, may repeat)
//	header: <row index>       (optional, may repeat)
//	"v1", "v2", ...           (one line per row)
//
// int* and float* dtypes become numerical columns, everything else text.
// Tables are numbered from 1 in dump order and rows from 0.
func parseDump(r io.Reader) ([]*dumpTable, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var (
		tables []*dumpTable
		cur    *dumpTable
		lineNo int
	)

	next := func() (string, bool) {
		for scanner.Scan() {
			lineNo++
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				return line, true
			}
		}
		return "", false
	}

	for {
		line, ok := next()
		if !ok {
			break
		}

		switch {
		case strings.HasPrefix(line, "title"):
			cur = &dumpTable{
				id:      int64(len(tables) + 1),
				title:   titlePrefix.ReplaceAllString(line, ""),
				headers: make(map[int]bool),
			}
			tables = append(tables, cur)

			typesLine, ok := next()
			if !ok || !strings.HasPrefix(typesLine, "types") {
				return nil, seterrors.NewInvalidInput(fmt.Sprintf("line %d: table %q has no types line", lineNo, cur.title))
			}
			for _, t := range strings.Split(typesPrefix.ReplaceAllString(typesLine, ""), ", ") {
				if numericType.MatchString(strings.TrimSpace(t)) {
					cur.kinds = append(cur.kinds, KindNumerical)
				} else {
					cur.kinds = append(cur.kinds, KindText)
				}
			}

		case cur == nil:
			return nil, seterrors.NewInvalidInput(fmt.Sprintf("line %d: content before the first title", lineNo))

		case strings.HasPrefix(line, "caption"):
			if c := captionPrefix.ReplaceAllString(line, ""); c != "" {
				cur.caption = strings.TrimSpace(cur.caption + " " + c)
			}

		case strings.HasPrefix(line, "header"):
			n, err := strconv.Atoi(strings.TrimSpace(headerPrefix.ReplaceAllString(line, "")))
			if err != nil {
				return nil, seterrors.NewInvalidInput(fmt.Sprintf("line %d: bad header index: %v", lineNo, err))
			}
			cur.headers[n] = true

		default:
			if len(line) < 2 || line[0] != '"' || line[len(line)-1] != '"' {
				return nil, seterrors.NewInvalidInput(fmt.Sprintf("line %d: row must be a quoted list", lineNo))
			}
			values := strings.Split(line[1:len(line)-1], `", "`)
			for i, v := range values {
				values[i] = strings.ToValidUTF8(v, "�")
			}
			cur.rows = append(cur.rows, values)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("corpus: read dump: %w", err)
	}
	return tables, nil
}

// Ingest builds a corpus database at dbPath from a dump, replacing any
// existing file. Everything is written in one transaction.
func Ingest(ctx context.Context, r io.Reader, dbPath string) (*IngestStats, error) {
	tables, err := parseDump(r)
	if err != nil {
		return nil, err
	}

	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("corpus: remove old database: %w", err)
	}

	db, err := sql.Open(DriverName, dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("corpus: failed to open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	for _, stmt := range Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("corpus: create schema: %w", err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("corpus: begin: %w", err)
	}
	w, err := newWriter(ctx, tx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	stats := &IngestStats{}
	for i, t := range tables {
		if err := w.writeTable(t, stats); err != nil {
			w.close()
			tx.Rollback()
			return nil, fmt.Errorf("corpus: table %d (%s): %w", t.id, t.title, err)
		}
		if (i+1)%1000 == 0 {
			log.Printf("corpus: %d tables written", i+1)
		}
	}
	w.close()

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("corpus: commit: %w", err)
	}

	for _, stmt := range Indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("corpus: create index: %w", err)
		}
	}

	log.Printf("corpus: ingested %d tables, %d rows, %d cells, %d keywords, %d column filters into %s",
		stats.Tables, stats.Rows, stats.Cells, stats.Keywords, stats.Filters, dbPath)
	return stats, nil
}

type writer struct {
	cell, title, caption, column, kwCell, kwTitle, filter *sql.Stmt
}

func newWriter(ctx context.Context, tx *sql.Tx) (*writer, error) {
	w := &writer{}
	prepare := []struct {
		dst  **sql.Stmt
		stmt string
	}{
		{&w.cell, `INSERT INTO cells VALUES (?, ?, ?, ?, ?)`},
		{&w.title, `INSERT INTO titles VALUES (?, ?)`},
		{&w.caption, `INSERT INTO captions VALUES (?, ?)`},
		{&w.column, `INSERT INTO columns VALUES (?, ?, ?)`},
		{&w.kwCell, `INSERT OR IGNORE INTO keywords_cell_header VALUES (?, ?, ?, ?, ?)`},
		{&w.kwTitle, `INSERT OR IGNORE INTO keywords_title_caption VALUES (?, ?, ?)`},
		{&w.filter, `INSERT INTO column_blooms VALUES (?, ?, ?, ?)`},
	}
	for _, p := range prepare {
		stmt, err := tx.PrepareContext(ctx, p.stmt)
		if err != nil {
			w.close()
			return nil, fmt.Errorf("corpus: prepare: %w", err)
		}
		*p.dst = stmt
	}
	return w, nil
}

func (w *writer) close() {
	for _, s := range []*sql.Stmt{w.cell, w.title, w.caption, w.column, w.kwCell, w.kwTitle, w.filter} {
		if s != nil {
			s.Close()
		}
	}
}

func (w *writer) writeTable(t *dumpTable, stats *IngestStats) error {
	if _, err := w.title.Exec(t.id, t.title); err != nil {
		return err
	}
	for _, word := range textWords(listOfPrefix.ReplaceAllString(t.title, "")) {
		if _, err := w.kwTitle.Exec(t.id, "title", word); err != nil {
			return err
		}
		stats.Keywords++
	}

	if t.caption != "" {
		if _, err := w.caption.Exec(t.id, t.caption); err != nil {
			return err
		}
		for _, word := range textWords(t.caption) {
			if _, err := w.kwTitle.Exec(t.id, "caption", word); err != nil {
				return err
			}
			stats.Keywords++
		}
	}

	for col, kind := range t.kinds {
		if _, err := w.column.Exec(t.id, col, string(kind)); err != nil {
			return err
		}
	}

	columnValues := make([][]string, len(t.kinds))
	for rowID, row := range t.rows {
		location := LocationCell
		if t.headers[rowID] {
			location = LocationHeader
		} else {
			stats.Rows++
		}

		for col, value := range row {
			if _, err := w.cell.Exec(t.id, rowID, col, value, location); err != nil {
				return err
			}
			stats.Cells++

			for _, word := range cellWords(value) {
				if _, err := w.kwCell.Exec(word, t.id, rowID, col, location); err != nil {
					return err
				}
				stats.Keywords++
			}

			if location == LocationCell && col < len(columnValues) {
				columnValues[col] = append(columnValues[col], value)
			}
		}
	}

	for col, kind := range t.kinds {
		if kind != KindText {
			continue
		}
		f := buildColumnFilter(columnValues[col])
		if f == nil {
			continue
		}
		if _, err := w.filter.Exec(t.id, col, f.Distinct(), f.Encode()); err != nil {
			return err
		}
		stats.Filters++
	}

	stats.Tables++
	return nil
}
