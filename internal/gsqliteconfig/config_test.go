package gsqliteconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigHasUsableOptions(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, 6, cfg.Options.ZstdLevel)
	require.Empty(t, cfg.DBFile)
}

func TestValidateRequiresDBFile(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	require.Error(t, err)

	cfg.DBFile = "/tmp/x.db"
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsOutOfRangeZstdLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DBFile = "/tmp/x.db"
	cfg.Options.ZstdLevel = 99
	require.Error(t, cfg.Validate())
}

func TestLoadFromFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gsqlite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db_file: /data/genomes.db
default_assembly: GRCh38_no_alt_analysis_set
options:
  zstd_level: 9
  page_cache_MiB: 2048
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "/data/genomes.db", cfg.DBFile)
	require.Equal(t, "GRCh38_no_alt_analysis_set", cfg.DefaultAssembly)
	require.Equal(t, 9, cfg.Options.ZstdLevel)
	require.Equal(t, 2048, cfg.Options.PageCacheMiB)
	// Unspecified options fields keep the defaults.
	require.Equal(t, 16, cfg.Options.InnerPageKiB)
}

func TestLoadFromFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gsqlite.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"db_file":"/data/genomes.db","options":{"threads":4}}`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "/data/genomes.db", cfg.DBFile)
	require.Equal(t, 4, cfg.Options.Threads)
}

func TestLoadFromFileRejectsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gsqlite.toml")
	require.NoError(t, os.WriteFile(path, []byte("db_file = \"x\""), 0o644))

	_, err := LoadFromFile(path)
	require.Error(t, err)
}

func TestLoadFromEnvOverlaysFields(t *testing.T) {
	t.Setenv("GENOMICSQLITE_DB_FILE", "/env/genomes.db")
	t.Setenv("GENOMICSQLITE_ZSTD_LEVEL", "3")
	t.Setenv("GENOMICSQLITE_UNSAFE_LOAD", "true")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)
	require.Equal(t, "/env/genomes.db", cfg.DBFile)
	require.Equal(t, 3, cfg.Options.ZstdLevel)
	require.True(t, cfg.Options.UnsafeLoad)
}
