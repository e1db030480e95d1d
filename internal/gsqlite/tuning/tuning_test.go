package tuning

import (
	"strings"
	"testing"

	"github.com/mlin/genomicsqlite/internal/gsqlite/config"
	"github.com/stretchr/testify/require"
)

// Scenario 6 from the testable properties.
func TestBuildScenario6(t *testing.T) {
	opts, err := config.Merge("")
	require.NoError(t, err)
	script := Build(opts, "")
	stmts := strings.Split(script, "; ")
	require.True(t, strings.HasPrefix(stmts[0], "PRAGMA page_size="))
	require.Contains(t, script, "PRAGMA journal_mode=MEMORY")
}

func TestBuildUnsafeLoadTriple(t *testing.T) {
	opts, err := config.Merge(`{"unsafe_load": true}`)
	require.NoError(t, err)
	script := Build(opts, "")
	require.Contains(t, script, "journal_mode=OFF")
	require.Contains(t, script, "synchronous=OFF")
	require.Contains(t, script, "locking_mode=EXCLUSIVE")
}

func TestBuildAttachedSchemaQualifiesPragmas(t *testing.T) {
	opts, err := config.Merge("")
	require.NoError(t, err)
	script := Build(opts, "other")
	require.Contains(t, script, "PRAGMA other.page_size=")
	require.Contains(t, script, "PRAGMA other.cache_size=")
	require.Contains(t, script, "PRAGMA other.journal_mode=MEMORY")
	require.NotContains(t, script, "PRAGMA threads=")
}

func TestBuildPragmaOrder(t *testing.T) {
	opts, err := config.Merge("")
	require.NoError(t, err)
	script := Build(opts, "")
	idxCache := strings.Index(script, "cache_size")
	idxJournal := strings.Index(script, "journal_mode")
	idxMax := strings.Index(script, "max_page_count")
	idxThreads := strings.Index(script, "PRAGMA threads")
	require.True(t, idxCache < idxMax)
	require.True(t, idxMax < idxThreads)
	require.True(t, idxThreads < idxJournal)
}
