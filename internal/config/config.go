// Package config provides the configuration of the set-expansion service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "SETEXPAND_"

// Config holds the configuration of the set-expansion service.
type Config struct {
	// DataDir is the base directory for all data files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// HTTP configuration
	HTTP HTTPConfig `json:"http" yaml:"http"`

	// gRPC configuration
	GRPC GRPCConfig `json:"grpc" yaml:"grpc"`

	// Corpus configuration
	Corpus CorpusConfig `json:"corpus" yaml:"corpus"`

	// Expansion pipeline configuration
	Expansion ExpansionConfig `json:"expansion" yaml:"expansion"`

	// Session configuration
	Sessions SessionConfig `json:"sessions" yaml:"sessions"`

	// Storage configuration
	Storage StorageConfig `json:"storage" yaml:"storage"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	// Addr is the HTTP listen address
	Addr string `json:"addr" yaml:"addr"`

	// ReadTimeout is the HTTP read timeout
	ReadTimeout time.Duration `json:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the HTTP write timeout; it bounds a whole expansion
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the HTTP idle timeout
	IdleTimeout time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

// GRPCConfig holds gRPC server configuration.
type GRPCConfig struct {
	// Addr is the gRPC server address
	Addr string `json:"addr" yaml:"addr"`

	// Enabled controls whether gRPC is enabled
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// CorpusConfig locates the cell store.
type CorpusConfig struct {
	// Path is the local SQLite corpus file
	Path string `json:"path" yaml:"path"`

	// ObjectPath, when set, is fetched from storage into Path on startup
	ObjectPath string `json:"object_path" yaml:"object_path"`
}

// ExpansionConfig holds the defaults of the expansion pipeline.
type ExpansionConfig struct {
	// RowsReturned is the default number of rows an expansion returns
	RowsReturned int `json:"rows_returned" yaml:"rows_returned"`

	// DefaultSlider is the initial slider of every seed column (1–100)
	DefaultSlider int `json:"default_slider" yaml:"default_slider"`

	// BM25B is the length normalization of the row ranker (0–1)
	BM25B float64 `json:"bm25_b" yaml:"bm25_b"`

	// K1Scale times a column slider gives the k1 of that column
	K1Scale float64 `json:"k1_scale" yaml:"k1_scale"`

	// StatsWindow is how long table and keyword statistics are kept
	StatsWindow time.Duration `json:"stats_window" yaml:"stats_window"`
}

// SessionConfig holds session lifecycle configuration.
type SessionConfig struct {
	// TTL is the idle time after which a session is dropped
	TTL time.Duration `json:"ttl" yaml:"ttl"`

	// SweepInterval is the interval between idle session sweeps
	SweepInterval time.Duration `json:"sweep_interval" yaml:"sweep_interval"`
}

// StorageConfig holds storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Prefix is prepended to every object key
	Prefix string `json:"prefix" yaml:"prefix"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data/setexpand",
		HTTP: HTTPConfig{
			Addr:         ":3000",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		GRPC: GRPCConfig{
			Addr:    ":9090",
			Enabled: true,
		},
		Expansion: ExpansionConfig{
			RowsReturned:  10,
			DefaultSlider: 50,
			BM25B:         0.3,
			K1Scale:       0.01,
			StatsWindow:   time.Hour,
		},
		Sessions: SessionConfig{
			TTL:           30 * time.Minute,
			SweepInterval: time.Minute,
		},
		Storage: StorageConfig{
			Type: "local",
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/setexpand"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "storage")
	}
	if c.Corpus.Path == "" {
		c.Corpus.Path = filepath.Join(c.DataDir, "corpus.db")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}

	if c.GRPC.Enabled && c.GRPC.Addr == "" {
		return fmt.Errorf("grpc.addr is required when grpc is enabled")
	}

	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("invalid storage type: %s (must be local or s3)", c.Storage.Type)
	}

	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when storage type is s3")
	}

	if c.Expansion.RowsReturned < 1 {
		return fmt.Errorf("expansion.rows_returned must be positive, got %d", c.Expansion.RowsReturned)
	}

	if c.Expansion.DefaultSlider < 1 || c.Expansion.DefaultSlider > 100 {
		return fmt.Errorf("expansion.default_slider must be between 1 and 100, got %d", c.Expansion.DefaultSlider)
	}

	if c.Expansion.BM25B < 0 || c.Expansion.BM25B > 1 {
		return fmt.Errorf("expansion.bm25_b must be between 0 and 1, got %g", c.Expansion.BM25B)
	}

	if c.Expansion.K1Scale <= 0 {
		return fmt.Errorf("expansion.k1_scale must be positive, got %g", c.Expansion.K1Scale)
	}

	if c.Sessions.TTL <= 0 {
		return fmt.Errorf("sessions.ttl must be positive, got %s", c.Sessions.TTL)
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv overrides cfg with SETEXPAND_* environment variables.
// Malformed values are reported and leave the setting unchanged.
func LoadFromEnv(cfg *Config) error {
	var errs []string
	str := func(name string, dst *string) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s=%q", EnvPrefix, name, v))
				return
			}
			*dst = n
		}
	}
	float := func(name string, dst *float64) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s=%q", EnvPrefix, name, v))
				return
			}
			*dst = f
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s=%q", EnvPrefix, name, v))
				return
			}
			*dst = d
		}
	}

	str("DATA_DIR", &cfg.DataDir)

	str("HTTP_ADDR", &cfg.HTTP.Addr)
	duration("HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout)
	duration("HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout)

	str("GRPC_ADDR", &cfg.GRPC.Addr)
	if v := os.Getenv(EnvPrefix + "GRPC_ENABLED"); v != "" {
		cfg.GRPC.Enabled = v == "true" || v == "1"
	}

	str("CORPUS_PATH", &cfg.Corpus.Path)
	str("CORPUS_OBJECT_PATH", &cfg.Corpus.ObjectPath)

	integer("ROWS_RETURNED", &cfg.Expansion.RowsReturned)
	integer("DEFAULT_SLIDER", &cfg.Expansion.DefaultSlider)
	float("BM25_B", &cfg.Expansion.BM25B)
	float("K1_SCALE", &cfg.Expansion.K1Scale)

	duration("SESSION_TTL", &cfg.Sessions.TTL)
	duration("SESSION_SWEEP_INTERVAL", &cfg.Sessions.SweepInterval)

	str("STORAGE_TYPE", &cfg.Storage.Type)
	str("STORAGE_PATH", &cfg.Storage.Path)
	str("S3_BUCKET", &cfg.Storage.S3.Bucket)
	str("S3_REGION", &cfg.Storage.S3.Region)
	str("S3_ENDPOINT", &cfg.Storage.S3.Endpoint)
	str("S3_PREFIX", &cfg.Storage.S3.Prefix)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment values: %s", strings.Join(errs, ", "))
	}
	return nil
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.DataDir,
		filepath.Dir(c.Corpus.Path),
	}
	if c.Storage.Type == "local" {
		dirs = append(dirs, c.Storage.Path)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
