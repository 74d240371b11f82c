package corpus

import (
	"context"
	"database/sql"
	"log"
	"sort"

	"github.com/setexpand/setexpand/internal/bloom"
	seterrors "github.com/setexpand/setexpand/internal/errors"
)

// bloomFPR is the false positive rate column filters are sized for.
const bloomFPR = 0.01

// KeyIndex holds one bloom filter per text column, grouped by table.
type KeyIndex struct {
	tables map[int64][]*bloom.Filter
}

// NewKeyIndex creates an empty index.
func NewKeyIndex() *KeyIndex {
	return &KeyIndex{tables: make(map[int64][]*bloom.Filter)}
}

// Add registers the filter of one column.
func (k *KeyIndex) Add(tableID int64, f *bloom.Filter) {
	k.tables[tableID] = append(k.tables[tableID], f)
}

// Len returns the number of indexed tables.
func (k *KeyIndex) Len() int {
	return len(k.tables)
}

// Exclude returns, ascending, the indexed tables none of whose text columns
// can reach threshold overlap with key. Tables without filters are never
// excluded.
func (k *KeyIndex) Exclude(key []string, threshold float64) []int64 {
	var out []int64
	for tableID, filters := range k.tables {
		reachable := false
		for _, f := range filters {
			if f.MaxOverlap(key) >= threshold {
				reachable = true
				break
			}
		}
		if !reachable {
			out = append(out, tableID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LoadKeyIndex reads every text-column filter from column_blooms.
func LoadKeyIndex(ctx context.Context, db *sql.DB) (*KeyIndex, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT b.table_id, b.filter
		FROM column_blooms b
		JOIN columns col ON col.table_id = b.table_id AND col.col_id = b.col_id
		WHERE col.type = 'text'`)
	if err != nil {
		return nil, seterrors.NewStoreError("corpus: load key index", err)
	}
	defer rows.Close()

	idx := NewKeyIndex()
	broken := make(map[int64]bool)
	for rows.Next() {
		var (
			tableID int64
			blob    []byte
		)
		if err := rows.Scan(&tableID, &blob); err != nil {
			return nil, seterrors.NewStoreError("corpus: scan key index", err)
		}
		f, err := bloom.Decode(blob)
		if err != nil {
			broken[tableID] = true
			continue
		}
		idx.Add(tableID, f)
	}
	if err := rows.Err(); err != nil {
		return nil, seterrors.NewStoreError("corpus: load key index", err)
	}

	// a table with an unreadable filter must stay a candidate
	for tableID := range broken {
		delete(idx.tables, tableID)
	}
	if len(broken) > 0 {
		log.Printf("corpus: %d tables have unreadable column filters", len(broken))
	}
	log.Printf("corpus: key index loaded for %d tables", idx.Len())
	return idx, nil
}

// buildColumnFilter indexes the distinct non-empty values of a column.
func buildColumnFilter(values []string) *bloom.Filter {
	distinct := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v != "" {
			distinct[v] = struct{}{}
		}
	}
	if len(distinct) == 0 {
		return nil
	}
	f := bloom.ForColumn(len(distinct), bloomFPR)
	for v := range distinct {
		f.Add(v)
	}
	return f
}
