// Package main implements the setexpand binary: the expansion service, corpus
// ingest and keyword search from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:           "setexpand",
		Short:         "Grow a set of example rows with similar rows from a table corpus",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addCommands(root)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func addCommands(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC expansion service",
		Args:  cobra.NoArgs,
		RunE:  serve}
	cmd.Flags().String("config", "", "path to configuration file (YAML or JSON)")
	cmd.Flags().String("data-dir", "", "base directory for data files")
	cmd.Flags().String("http-addr", "", "HTTP listen address")
	cmd.Flags().String("grpc-addr", "", "gRPC listen address")
	cmd.Flags().String("corpus", "", "path to the corpus database")
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "ingest",
		Short: "Build a corpus database from a table dump",
		Args:  cobra.NoArgs,
		RunE:  ingest}
	cmd.Flags().String("dump", "", "table dump to read (- for stdin)")
	cmd.Flags().String("db", "", "corpus database to write")
	cmd.Flags().String("upload", "", "object path to publish the database to")
	cmd.Flags().String("config", "", "configuration file naming the object storage")
	cmd.MarkFlagRequired("dump")
	cmd.MarkFlagRequired("db")
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "keyword word...",
		Short: "Search corpus tables by keyword",
		Args:  cobra.MinimumNArgs(1),
		RunE:  keywordSearch}
	cmd.Flags().String("db", "", "corpus database to search")
	cmd.Flags().Int("limit", 10, "maximum number of tables to print")
	cmd.MarkFlagRequired("db")
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "setexpand version %s (commit: %s)\n", version, commit)
		}}
	root.AddCommand(cmd)
}
