package gri

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitSchemaTable(t *testing.T) {
	prefix, table := SplitSchemaTable("main.feat")
	require.Equal(t, "main.", prefix)
	require.Equal(t, "feat", table)

	prefix, table = SplitSchemaTable("feat")
	require.Equal(t, "", prefix)
	require.Equal(t, "feat", table)
}

// Scenario 1 from the testable properties.
func TestCreateGenomicRangeIndexSQLScenario1(t *testing.T) {
	sql, err := CreateGenomicRangeIndexSQL("feat", "chrom_id", "beg", "end", -1)
	require.NoError(t, err)

	alters := strings.Count(sql, "ALTER TABLE feat ADD COLUMN _gri_")
	require.Equal(t, 4, alters)
	require.True(t, strings.HasSuffix(sql, "CREATE INDEX feat__gri ON feat(_gri_rid, _gri_lvl, _gri_beg, _gri_len)"))
	require.Contains(t, sql, "WHEN _gri_len <= 0x10000000000 THEN -10")
}

func TestCreateGenomicRangeIndexSQLIsIdempotent(t *testing.T) {
	a, err := CreateGenomicRangeIndexSQL("feat", "chrom_id", "beg", "end", 2)
	require.NoError(t, err)
	b, err := CreateGenomicRangeIndexSQL("feat", "chrom_id", "beg", "end", 2)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestCreateGenomicRangeIndexSQLSchemaQualified(t *testing.T) {
	sql, err := CreateGenomicRangeIndexSQL("other.feat", "chrom_id", "beg", "end", -1)
	require.NoError(t, err)
	require.Contains(t, sql, "ALTER TABLE other.feat ADD COLUMN _gri_rid")
	require.Contains(t, sql, "CREATE INDEX other.feat__gri ON feat(")
}

func TestCreateGenomicRangeIndexSQLFloorRange(t *testing.T) {
	_, err := CreateGenomicRangeIndexSQL("feat", "r", "b", "e", 16)
	require.Error(t, err)
	_, err = CreateGenomicRangeIndexSQL("feat", "r", "b", "e", -2)
	require.Error(t, err)
}

func TestCreateGenomicRangeIndexSQLFloorNarrowsCaseExpression(t *testing.T) {
	sql, err := CreateGenomicRangeIndexSQL("feat", "r", "b", "e", 5)
	require.NoError(t, err)
	require.NotContains(t, sql, "THEN -0")
	require.NotContains(t, sql, "THEN -4 ")
	require.Contains(t, sql, "THEN -5")
}
