package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/setexpand/setexpand/internal/corpus"
	"github.com/setexpand/setexpand/internal/keyword"
)

func keywordSearch(cmd *cobra.Command, args []string) error {
	dbPath, _ := cmd.Flags().GetString("db")
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := corpus.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	tables, err := keyword.NewSearcher(store, nil).Search(cmd.Context(), args)
	if err != nil {
		return err
	}
	if limit > 0 && len(tables) > limit {
		tables = tables[:limit]
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tSCORE\tROWS\tTITLE")
	for _, t := range tables {
		fmt.Fprintf(w, "%d\t%.5f\t%d\t%s\n", t.TableID, t.Score, t.RowCount, t.Title)
	}
	return w.Flush()
}
