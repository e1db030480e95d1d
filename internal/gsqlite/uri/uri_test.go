package uri

import (
	"strings"
	"testing"

	"github.com/mlin/genomicsqlite/internal/gsqlite/config"
	"github.com/stretchr/testify/require"
)

func TestBuildDefaultURI(t *testing.T) {
	opts, err := config.Merge("")
	require.NoError(t, err)
	u := Build("/tmp/db.gsqlite", opts)
	require.True(t, strings.HasPrefix(u, "file:"))
	require.Contains(t, u, "vfs=zstd")
	require.Contains(t, u, "outer_cache_size=-65536")
	require.Contains(t, u, "outer_page_size=32768")
	require.Contains(t, u, "level=6")
}

// Scenario 5 from the testable properties: unsafe_load + low inner page size
// together yield noprefetch=1 and the nolock/outer_unsafe unsafe-load suffix.
func TestBuildScenario5(t *testing.T) {
	opts, err := config.Merge(`{"unsafe_load": true, "threads": 4, "inner_page_KiB": 8}`)
	require.NoError(t, err)
	u := Build("/tmp/db", opts)
	require.Contains(t, u, "vfs=zstd")
	require.Contains(t, u, "threads=4")
	require.Contains(t, u, "noprefetch=1")
	require.Contains(t, u, "nolock=1&outer_unsafe")
}

func TestBuildModeAndImmutable(t *testing.T) {
	opts, err := config.Merge(`{"mode": "ro", "immutable": true}`)
	require.NoError(t, err)
	u := Build("/tmp/db", opts)
	require.Contains(t, u, "mode=ro")
	require.Contains(t, u, "immutable=1")
}

func TestBuildNoPrefetchRequiresAllThreeConditions(t *testing.T) {
	opts, err := config.Merge(`{"threads": 1, "inner_page_KiB": 8}`)
	require.NoError(t, err)
	u := Build("/tmp/db", opts)
	require.NotContains(t, u, "noprefetch")

	opts, err = config.Merge(`{"threads": 4, "inner_page_KiB": 32}`)
	require.NoError(t, err)
	u = Build("/tmp/db", opts)
	require.NotContains(t, u, "noprefetch")

	opts, err = config.Merge(`{"threads": 4, "inner_page_KiB": 8, "force_prefetch": true}`)
	require.NoError(t, err)
	u = Build("/tmp/db", opts)
	require.NotContains(t, u, "noprefetch")
}

func TestBuildPathEscaping(t *testing.T) {
	opts := config.Defaults()
	u := Build("/tmp/has space/db file.gsqlite", opts)
	require.NotContains(t, u, " ")
}
