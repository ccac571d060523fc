package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when --config
// is not given.
const DefaultConfigFile = "quarry.yaml"

// Config is the optional project configuration file. Flags override it.
type Config struct {
	// SchemaDir holds the CUE record type declarations.
	SchemaDir string `yaml:"schema_dir"`

	// Prefix is the default source prefix (schema/attach name).
	Prefix string `yaml:"prefix,omitempty"`

	Database DatabaseConfig `yaml:"database"`
}

// DatabaseConfig selects and parameterizes the storage backend.
type DatabaseConfig struct {
	// Backend is "sqlite" (default) or "postgres".
	Backend string `yaml:"backend"`

	// Path is the SQLite database file.
	Path string `yaml:"path,omitempty"`

	// Driver selects the SQLite driver: "sqlite3" (cgo, default) or
	// "sqlite" (pure Go).
	Driver string `yaml:"driver,omitempty"`

	// DSN is the PostgreSQL connection string.
	DSN string `yaml:"dsn,omitempty"`

	// SearchPath is the PostgreSQL schema to resolve sources in.
	SearchPath string `yaml:"search_path,omitempty"`
}

// LoadConfig reads a config file. A missing file at the default path is
// not an error: commands fall back to flags alone.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Database.Backend != "" && cfg.Database.Backend != "sqlite" && cfg.Database.Backend != "postgres" {
		return nil, fmt.Errorf("config %s: unknown backend %q", path, cfg.Database.Backend)
	}
	return &cfg, nil
}
