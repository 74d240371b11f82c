package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/setexpand/setexpand/internal/app"
	"github.com/setexpand/setexpand/internal/corpus"
	"github.com/setexpand/setexpand/internal/storage"
)

func ingest(cmd *cobra.Command, args []string) error {
	dumpPath, _ := cmd.Flags().GetString("dump")
	dbPath, _ := cmd.Flags().GetString("db")
	upload, _ := cmd.Flags().GetString("upload")
	ctx := cmd.Context()

	var r io.Reader = cmd.InOrStdin()
	if dumpPath != "-" {
		f, err := os.Open(dumpPath)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	start := time.Now()
	stats, err := corpus.Ingest(ctx, r, dbPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ingested %d tables, %d rows, %d cells, %d keywords, %d filters in %s\n",
		stats.Tables, stats.Rows, stats.Cells, stats.Keywords, stats.Filters, time.Since(start).Round(time.Millisecond))

	if upload == "" {
		return nil
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Resolve()
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	st, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		return err
	}
	sum, err := storage.PublishCorpus(ctx, st, dbPath, upload)
	if err != nil {
		return err
	}
	log.Printf("published %s to %s storage as %s (sha256 %s)", dbPath, cfg.Storage.Type, upload, sum)
	return nil
}
