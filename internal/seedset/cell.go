// Package seedset holds the mutable query state of an expansion session:
// the seed rows, their column types and the per-column settings.
package seedset

import (
	"strings"

	"github.com/setexpand/setexpand/internal/similarity"
)

// CellSeparator joins cell values in the text rendering of a row.
const CellSeparator = " || "

// NullText is how an absent cell is rendered.
const NullText = "NULL"

// ColumnType is the inferred type of a seed column.
type ColumnType string

const (
	TypeText      ColumnType = "text"
	TypeNumerical ColumnType = "numerical"
	TypeNull      ColumnType = "NULL"
)

// Cell is a nullable cell value. A null cell is distinct from a cell whose
// value happens to be the string "NULL".
type Cell struct {
	Value string
	Null  bool
}

// Value returns a non-null cell.
func Value(v string) Cell {
	return Cell{Value: v}
}

// NullCell returns an absent cell.
func NullCell() Cell {
	return Cell{Null: true}
}

// FromStore converts a raw store value; the store marks missing cells with an
// empty value.
func FromStore(v string) Cell {
	if v == "" {
		return NullCell()
	}
	return Value(v)
}

// String renders the cell, using NullText for absent cells.
func (c Cell) String() string {
	if c.Null {
		return NullText
	}
	return c.Value
}

// IsNumber reports whether the cell is non-null and parses as a number.
func (c Cell) IsNumber() bool {
	if c.Null {
		return false
	}
	_, ok := similarity.ParseNumber(c.Value)
	return ok
}

// Row is an ordered sequence of cells.
type Row []Cell

// ParseRow splits a rendered row back into cells; NullText becomes a null
// cell.
func ParseRow(s string) Row {
	parts := strings.Split(s, CellSeparator)
	row := make(Row, len(parts))
	for i, p := range parts {
		if p == NullText {
			row[i] = NullCell()
		} else {
			row[i] = Value(p)
		}
	}
	return row
}

// String joins the row with CellSeparator.
func (r Row) String() string {
	parts := make([]string, len(r))
	for i, c := range r {
		parts[i] = c.String()
	}
	return strings.Join(parts, CellSeparator)
}

// Strings returns the rendered cells.
func (r Row) Strings() []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = c.String()
	}
	return out
}

// Key returns an identity for the row that keeps null cells apart from
// values spelled "NULL".
func (r Row) Key() string {
	var b strings.Builder
	for _, c := range r {
		if c.Null {
			b.WriteByte(0)
		} else {
			b.WriteByte(1)
			b.WriteString(c.Value)
		}
		b.WriteByte(0x1f)
	}
	return b.String()
}

// Clone returns a copy of the row.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// HasNullAfterFirst reports whether any cell beyond column 0 is null.
func (r Row) HasNullAfterFirst() bool {
	for i := 1; i < len(r); i++ {
		if r[i].Null {
			return true
		}
	}
	return false
}

// RowRef identifies a row of the cell store.
type RowRef struct {
	TableID int64 `json:"table_id"`
	RowID   int64 `json:"row_id"`
}
