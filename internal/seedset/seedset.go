package seedset

import (
	"context"
	"fmt"

	seterrors "github.com/setexpand/setexpand/internal/errors"
)

const (
	// DefaultSlider is the stickiness every column starts with.
	DefaultSlider = 50
	// DefaultRowsReturned bounds the rows an expansion returns.
	DefaultRowsReturned = 10
	// StickySlider marks a column whose expanded values must come from the seed.
	StickySlider = 100

	groupTableThreshold = 2
	groupRowThreshold   = 10
)

// CellSource fetches seed rows from the cell store.
type CellSource interface {
	// SeedCells returns one row per reference, in reference order, with cells
	// in column order. References that match no cells yield no row.
	SeedCells(ctx context.Context, refs []RowRef) ([]Row, error)
}

// Options holds the defaults applied when a seed set is (re)posted.
type Options struct {
	DefaultSlider int
	RowsReturned  int
}

func (o Options) withDefaults() Options {
	if o.DefaultSlider <= 0 || o.DefaultSlider > 100 {
		o.DefaultSlider = DefaultSlider
	}
	if o.RowsReturned <= 0 {
		o.RowsReturned = DefaultRowsReturned
	}
	return o
}

// SeedSet is the query state of one session. Every row has exactly NumCols
// cells and Types and Sliders have NumCols entries after every mutation.
type SeedSet struct {
	Rows         []Row        `json:"rows"`
	Sources      []RowRef     `json:"sources"`
	NumCols      int          `json:"num_cols"`
	Types        []ColumnType `json:"types"`
	Sliders      []int        `json:"sliders"`
	UniqueCols   []int        `json:"unique_cols"`
	RowsReturned int          `json:"rows_returned"`

	opts        Options
	initialized bool
}

// New creates an empty seed set.
func New(opts Options) *SeedSet {
	opts = opts.withDefaults()
	return &SeedSet{
		RowsReturned: opts.RowsReturned,
		opts:         opts,
	}
}

// Initialized reports whether a seed set has been posted.
func (s *SeedSet) Initialized() bool {
	return s.initialized
}

// Post replaces the seed set with the referenced store rows.
func (s *SeedSet) Post(ctx context.Context, src CellSource, refs []RowRef) error {
	if len(refs) == 0 {
		return seterrors.NewInvalidInput("seed set needs at least one row reference")
	}

	refs = dedupeRefs(refs)
	rows, err := src.SeedCells(ctx, refs)
	if err != nil {
		return err
	}

	s.Load(refs, rows)
	return nil
}

// Load installs rows as the new seed set. Column grouping runs only when the
// seed spans more than two source tables or more than ten rows.
func (s *SeedSet) Load(refs []RowRef, rows []Row) {
	s.Rows = make([]Row, len(rows))
	for i, r := range rows {
		s.Rows[i] = r.Clone()
	}
	s.Sources = append([]RowRef(nil), refs...)
	s.UniqueCols = nil
	s.RowsReturned = s.opts.RowsReturned
	s.Sliders = nil
	s.initialized = true

	s.NumCols = maxWidth(s.Rows)
	s.Pad()
	if distinctTables(s.Sources) > groupTableThreshold || len(s.Rows) > groupRowThreshold {
		for _, r := range s.Rows {
			GroupRow(r)
		}
	}
	s.InferTypes()

	s.Sliders = make([]int, s.NumCols)
	for i := range s.Sliders {
		s.Sliders[i] = s.opts.DefaultSlider
	}
}

// Pad null-pads every row to NumCols. It never shortens a row.
func (s *SeedSet) Pad() {
	for i := range s.Rows {
		s.Rows[i] = PadRow(s.Rows[i], s.NumCols)
	}
}

// PadRow appends null cells until row has n cells.
func PadRow(row Row, n int) Row {
	for len(row) < n {
		row = append(row, NullCell())
	}
	return row
}

// InferTypes recomputes Types: numerical iff every non-null value parses as a
// number, NULL iff the column has no values, text otherwise.
func (s *SeedSet) InferTypes() {
	s.Types = InferTypes(s.Rows, s.NumCols)
}

// InferTypes computes the column types of rows with n columns.
func InferTypes(rows []Row, n int) []ColumnType {
	types := make([]ColumnType, n)
	for col := 0; col < n; col++ {
		values, numeric := 0, true
		for _, r := range rows {
			if col >= len(r) || r[col].Null {
				continue
			}
			values++
			if !r[col].IsNumber() {
				numeric = false
			}
		}
		switch {
		case values == 0:
			types[col] = TypeNull
		case numeric:
			types[col] = TypeNumerical
		default:
			types[col] = TypeText
		}
	}
	return types
}

// GroupRow partitions cells 1..n of row in place into text, numerical and
// null cells, in that order. Column 0 stays put.
func GroupRow(row Row) {
	numPointer, emptyPointer := 1, 1
	for j := 1; j < len(row); j++ {
		if row[j].Null {
			continue
		}
		row[emptyPointer], row[j] = row[j], row[emptyPointer]
		if !row[emptyPointer].IsNumber() {
			row[emptyPointer], row[numPointer] = row[numPointer], row[emptyPointer]
			numPointer++
		}
		emptyPointer++
	}
}

// SwapCells exchanges two cells of the seed set.
func (s *SeedSet) SwapCells(rowA, colA, rowB, colB int) error {
	if !s.initialized {
		return seterrors.NewSeedNotInitialized()
	}
	for _, rc := range [][2]int{{rowA, colA}, {rowB, colB}} {
		if rc[0] < 0 || rc[0] >= len(s.Rows) || rc[1] < 0 || rc[1] >= s.NumCols {
			return seterrors.NewInvalidInput(fmt.Sprintf("cell (%d,%d) is outside the %dx%d seed set", rc[0], rc[1], len(s.Rows), s.NumCols))
		}
	}

	s.Rows[rowA][colA], s.Rows[rowB][colB] = s.Rows[rowB][colB], s.Rows[rowA][colA]
	s.normalize()
	return nil
}

// DeleteCols removes the given 1-indexed columns together with their slider
// and unique settings. Indices outside the seed set are ignored. Removing
// every column leaves empty rows.
func (s *SeedSet) DeleteCols(cols []int) error {
	if !s.initialized {
		return seterrors.NewSeedNotInitialized()
	}

	drop := make(map[int]bool, len(cols))
	for _, c := range cols {
		if c >= 1 && c <= s.NumCols {
			drop[c-1] = true
		}
	}
	if len(drop) == 0 {
		return nil
	}

	keep := func(n int) []int {
		var idx []int
		for i := 0; i < n; i++ {
			if !drop[i] {
				idx = append(idx, i)
			}
		}
		return idx
	}(s.NumCols)

	for i, r := range s.Rows {
		nr := make(Row, 0, len(keep))
		for _, c := range keep {
			nr = append(nr, r[c])
		}
		s.Rows[i] = nr
	}

	sliders := make([]int, 0, len(keep))
	for _, c := range keep {
		sliders = append(sliders, s.Sliders[c])
	}
	s.Sliders = sliders

	var unique []int
	for _, u := range s.UniqueCols {
		if drop[u] {
			continue
		}
		shift := 0
		for d := range drop {
			if d < u {
				shift++
			}
		}
		unique = append(unique, u-shift)
	}
	s.UniqueCols = unique

	s.NumCols = len(keep)
	s.normalize()
	return nil
}

// ApplySettings updates the per-column settings from a dot operation.
// Sliders are clamped to [0,100]; unique columns are 1-indexed; a
// non-positive rowsReturned keeps the current value.
func (s *SeedSet) ApplySettings(sliders []int, unique []int, rowsReturned int) {
	for i, v := range sliders {
		if i >= len(s.Sliders) {
			break
		}
		if v < 0 {
			v = 0
		}
		if v > 100 {
			v = 100
		}
		s.Sliders[i] = v
	}

	s.UniqueCols = nil
	seen := make(map[int]bool)
	for _, u := range unique {
		c := u - 1
		if c < 0 || c >= s.NumCols || seen[c] {
			continue
		}
		seen[c] = true
		s.UniqueCols = append(s.UniqueCols, c)
	}

	if rowsReturned > 0 {
		s.RowsReturned = rowsReturned
	}
}

// Column returns the non-null values of column col.
func (s *SeedSet) Column(col int) []string {
	var out []string
	for _, r := range s.Rows {
		if col < len(r) && !r[col].Null {
			out = append(out, r[col].Value)
		}
	}
	return out
}

// ColumnsOfType returns the indices of columns with type t, ascending.
func (s *SeedSet) ColumnsOfType(t ColumnType) []int {
	var out []int
	for i, ct := range s.Types {
		if ct == t {
			out = append(out, i)
		}
	}
	return out
}

// CountType returns how many columns have type t.
func (s *SeedSet) CountType(t ColumnType) int {
	return len(s.ColumnsOfType(t))
}

// Empty reports whether the seed set has no columns left.
func (s *SeedSet) Empty() bool {
	return s.NumCols == 0
}

// Snapshot returns a deep copy safe to hand out after the session lock is
// released.
func (s *SeedSet) Snapshot() *SeedSet {
	cp := &SeedSet{
		Rows:         make([]Row, len(s.Rows)),
		Sources:      append([]RowRef(nil), s.Sources...),
		NumCols:      s.NumCols,
		Types:        append([]ColumnType(nil), s.Types...),
		Sliders:      append([]int(nil), s.Sliders...),
		UniqueCols:   append([]int(nil), s.UniqueCols...),
		RowsReturned: s.RowsReturned,
		opts:         s.opts,
		initialized:  s.initialized,
	}
	for i, r := range s.Rows {
		cp.Rows[i] = r.Clone()
	}
	return cp
}

// normalize re-establishes the shape invariants after a structural change.
func (s *SeedSet) normalize() {
	if w := maxWidth(s.Rows); w > s.NumCols {
		s.NumCols = w
	}
	s.Pad()
	s.InferTypes()
	for len(s.Sliders) < s.NumCols {
		s.Sliders = append(s.Sliders, s.opts.DefaultSlider)
	}
	s.Sliders = s.Sliders[:s.NumCols]
}

func maxWidth(rows []Row) int {
	w := 0
	for _, r := range rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

func distinctTables(refs []RowRef) int {
	seen := make(map[int64]struct{}, len(refs))
	for _, r := range refs {
		seen[r.TableID] = struct{}{}
	}
	return len(seen)
}

func dedupeRefs(refs []RowRef) []RowRef {
	seen := make(map[RowRef]struct{}, len(refs))
	out := make([]RowRef, 0, len(refs))
	for _, r := range refs {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
