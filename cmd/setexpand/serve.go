package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/setexpand/setexpand/internal/app"
	"github.com/setexpand/setexpand/internal/config"
)

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	printBanner(cfg)

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	if err := application.WaitForShutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	return application.Stop(context.Background())
}

// loadConfig applies the config file, then the environment, then flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		var err error
		cfg, err = config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
	}

	if err := config.LoadFromEnv(cfg); err != nil {
		return nil, err
	}

	flags := []struct {
		name string
		dst  *string
	}{
		{"data-dir", &cfg.DataDir},
		{"http-addr", &cfg.HTTP.Addr},
		{"grpc-addr", &cfg.GRPC.Addr},
		{"corpus", &cfg.Corpus.Path},
	}
	for _, f := range flags {
		if cmd.Flags().Lookup(f.name) == nil {
			continue
		}
		if v, _ := cmd.Flags().GetString(f.name); v != "" {
			*f.dst = v
		}
	}

	return cfg, nil
}

func printBanner(cfg *config.Config) {
	cfg.Resolve()
	log.Printf("setexpand %s (commit: %s)", version, commit)
	log.Printf("Configuration:")
	log.Printf("  Data Dir: %s", cfg.DataDir)
	log.Printf("  Corpus:   %s", cfg.Corpus.Path)
	if cfg.Corpus.ObjectPath != "" {
		log.Printf("  Fetch:    %s (%s storage)", cfg.Corpus.ObjectPath, cfg.Storage.Type)
	}
	log.Printf("  HTTP:     %s", cfg.HTTP.Addr)
	if cfg.GRPC.Enabled {
		log.Printf("  gRPC:     %s", cfg.GRPC.Addr)
	}
	log.Printf("  Rows:     %d per expansion, slider %d", cfg.Expansion.RowsReturned, cfg.Expansion.DefaultSlider)
	log.Printf("  Sessions: ttl %s", cfg.Sessions.TTL)
}
