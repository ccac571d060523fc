package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Full(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quarry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
schema_dir: ./schema
prefix: tenant_a
database:
  backend: sqlite
  path: ./blog.db
  driver: sqlite
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "./schema", cfg.SchemaDir)
	assert.Equal(t, "tenant_a", cfg.Prefix)
	assert.Equal(t, "sqlite", cfg.Database.Backend)
	assert.Equal(t, "./blog.db", cfg.Database.Path)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoadConfig_Postgres(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quarry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
schema_dir: ./schema
database:
  backend: postgres
  dsn: postgres://localhost/blog
  search_path: tenant_a
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Backend)
	assert.Equal(t, "postgres://localhost/blog", cfg.Database.DSN)
	assert.Equal(t, "tenant_a", cfg.Database.SearchPath)
}

func TestLoadConfig_UnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quarry.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  backend: oracle\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown backend "oracle"`)
}

func TestLoadConfig_ExplicitMissingFileFails(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestBuildAdapter(t *testing.T) {
	t.Run("sqlite from flags", func(t *testing.T) {
		a, err := buildAdapter(execOptions{dbPath: "x.db"}, &Config{})
		require.NoError(t, err)
		assert.Equal(t, "sqlite", string(a.Backend()))
	})

	t.Run("flags win over config", func(t *testing.T) {
		cfg := &Config{Database: DatabaseConfig{Backend: "postgres", DSN: "postgres://cfg"}}
		a, err := buildAdapter(execOptions{backend: "sqlite", dbPath: "x.db"}, cfg)
		require.NoError(t, err)
		assert.Equal(t, "sqlite", string(a.Backend()))
	})

	t.Run("postgres needs a dsn", func(t *testing.T) {
		_, err := buildAdapter(execOptions{backend: "postgres"}, &Config{})
		require.Error(t, err)
	})

	t.Run("sqlite needs a path", func(t *testing.T) {
		_, err := buildAdapter(execOptions{backend: "sqlite"}, &Config{})
		require.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := buildAdapter(execOptions{dbPath: "x.db", driver: "duckdb"}, &Config{})
		require.Error(t, err)
	})
}
