// Package gsqliteconfig provides the CLI-facing configuration file format
// for cmd/gsqlite: a YAML or JSON document naming the database path, the C1
// GRI options, and a default reference assembly to load.
package gsqliteconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mlin/genomicsqlite/internal/gsqlite/config"
)

// Config holds the CLI tool's configuration.
type Config struct {
	// DBFile is the path to the SQLite database to operate on.
	DBFile string `json:"db_file" yaml:"db_file"`

	// Options are the GenomicSQLite GRI/compression options (C1).
	Options config.Options `json:"options" yaml:"options"`

	// DefaultAssembly, if non-empty, is loaded via --load-assembly when no
	// assembly is given explicitly on the command line.
	DefaultAssembly string `json:"default_assembly" yaml:"default_assembly"`

	// LogFile, if non-empty, redirects CLI log output to that path instead
	// of stderr.
	LogFile string `json:"log_file" yaml:"log_file"`
}

// DefaultConfig returns the CLI tool's default configuration.
func DefaultConfig() *Config {
	return &Config{
		DBFile:  "",
		Options: config.Defaults(),
	}
}

// Validate checks the configuration for internally-inconsistent values
// beyond what config.Merge already checks on the embedded Options.
func (c *Config) Validate() error {
	if c.DBFile == "" {
		return fmt.Errorf("db_file is required")
	}
	if c.Options.ZstdLevel < 1 || c.Options.ZstdLevel > 22 {
		return fmt.Errorf("options.zstd_level must be between 1 and 22, got %d", c.Options.ZstdLevel)
	}
	return nil
}

// LoadFromFile loads a Config from a YAML or JSON file, layered over
// DefaultConfig().
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
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

// LoadFromEnv overlays cfg with GENOMICSQLITE_*-prefixed environment
// variables, mutating cfg in place.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("GENOMICSQLITE_DB_FILE"); v != "" {
		cfg.DBFile = v
	}
	if v := os.Getenv("GENOMICSQLITE_DEFAULT_ASSEMBLY"); v != "" {
		cfg.DefaultAssembly = v
	}
	if v := os.Getenv("GENOMICSQLITE_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("GENOMICSQLITE_UNSAFE_LOAD"); v != "" {
		cfg.Options.UnsafeLoad = v == "true" || v == "1"
	}
	if v := os.Getenv("GENOMICSQLITE_IMMUTABLE"); v != "" {
		cfg.Options.Immutable = v == "true" || v == "1"
	}
	if v := os.Getenv("GENOMICSQLITE_PAGE_CACHE_MIB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Options.PageCacheMiB = n
		}
	}
	if v := os.Getenv("GENOMICSQLITE_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Options.Threads = n
		}
	}
	if v := os.Getenv("GENOMICSQLITE_ZSTD_LEVEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Options.ZstdLevel = n
		}
	}
}
