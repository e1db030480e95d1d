package refseq

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func execScript(t *testing.T, db *sql.DB, script string) {
	t.Helper()
	for _, stmt := range strings.Split(script, ";\n") {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
}

func TestPutSequenceSQLIncludesDDLOnlyWhenRequested(t *testing.T) {
	withDDL, err := PutSequenceSQL("chr1", 1000, "", "", "", -1, "", true)
	require.NoError(t, err)
	require.Contains(t, withDDL, "CREATE TABLE IF NOT EXISTS _gri_refseq")

	withoutDDL, err := PutSequenceSQL("chr1", 1000, "", "", "", -1, "", false)
	require.NoError(t, err)
	require.NotContains(t, withoutDDL, "CREATE TABLE")
	require.Contains(t, withoutDDL, "INSERT INTO _gri_refseq")
}

func TestPutSequenceSQLOptionalFieldsDefaultToNull(t *testing.T) {
	stmt, err := PutSequenceSQL("chr1", 1000, "", "", "", -1, "", false)
	require.NoError(t, err)
	require.Contains(t, stmt, "VALUES(NULL,'chr1',NULL,NULL,1000,'{}')")
}

func TestPutSequenceSQLQuotesEmbeddedQuote(t *testing.T) {
	stmt, err := PutSequenceSQL("chr1's", 1000, "", "", "", -1, "", false)
	require.NoError(t, err)
	require.Contains(t, stmt, "'chr1''s'")
}

func TestPutSequenceSQLRejectsNonPrintable(t *testing.T) {
	_, err := PutSequenceSQL("chr1\n", 1000, "", "", "", -1, "", false)
	require.Error(t, err)
}

func TestPutSequenceSQLSchemaQualified(t *testing.T) {
	stmt, err := PutSequenceSQL("chr1", 1000, "", "", "", -1, "aux", true)
	require.NoError(t, err)
	require.Contains(t, stmt, "CREATE TABLE IF NOT EXISTS aux._gri_refseq")
	require.Contains(t, stmt, "INSERT INTO aux._gri_refseq")
}

func TestPutAssemblySQLUnknownAssembly(t *testing.T) {
	_, err := PutAssemblySQL("not_a_real_assembly", "")
	require.Error(t, err)
}

// Scenario 4 from the testable properties, adapted: the demonstration
// catalogue stands in for the full hardcoded assembly, but chr1's length
// and refget id match the documented values, and round-tripping through
// SequencesByRid/SequencesByName preserves every field.
func TestPutAssemblyAndReadBackScenario4(t *testing.T) {
	db := openTestDB(t)
	script, err := PutAssemblySQL("GRCh38_no_alt_analysis_set", "")
	require.NoError(t, err)
	execScript(t, db, script)

	byRid, err := SequencesByRid(context.Background(), db, "", "")
	require.NoError(t, err)
	require.Len(t, byRid, len(GRCh38Demo.Sequences))

	byName, err := SequencesByName(context.Background(), db, "", "")
	require.NoError(t, err)
	chr1, ok := byName["chr1"]
	require.True(t, ok)
	require.Equal(t, int64(248956422), chr1.Length)
	require.Equal(t, "6aef897c3d6ff0c78aff06ac189178dd", chr1.RefgetID)
	require.Equal(t, "GRCh38_no_alt_analysis_set", chr1.Assembly)
}

func TestSequencesByRidFiltersByAssembly(t *testing.T) {
	db := openTestDB(t)
	script, err := PutAssemblySQL("GRCh38_no_alt_analysis_set", "")
	require.NoError(t, err)
	execScript(t, db, script)

	extra, err := PutSequenceSQL("scaffold1", 500, "other_assembly", "", "", -1, "", false)
	require.NoError(t, err)
	execScript(t, db, extra)

	filtered, err := SequencesByRid(context.Background(), db, "other_assembly", "")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
}

func TestSequencesByNameDetectsCollision(t *testing.T) {
	db := openTestDB(t)
	first, err := PutSequenceSQL("dup", 10, "asmA", "", "", -1, "", true)
	require.NoError(t, err)
	execScript(t, db, first)
	second, err := PutSequenceSQL("dup", 20, "asmB", "", "", -1, "", false)
	require.NoError(t, err)
	execScript(t, db, second)

	_, err = SequencesByName(context.Background(), db, "", "")
	require.Error(t, err)
}

func TestLargeMetaJSONRoundTripsThroughCompression(t *testing.T) {
	db := openTestDB(t)
	big := `{"notes":"` + strings.Repeat("x", 1000) + `"}`
	stmt, err := PutSequenceSQL("chr1", 1000, "", "", big, -1, "", true)
	require.NoError(t, err)
	require.Contains(t, stmt, "snappy:")
	execScript(t, db, stmt)

	byRid, err := SequencesByRid(context.Background(), db, "", "")
	require.NoError(t, err)
	var got Sequence
	for _, v := range byRid {
		got = v
	}
	require.Equal(t, big, got.MetaJSON)
}

func TestSmallMetaJSONStoredLiteralNotCompressed(t *testing.T) {
	stmt, err := PutSequenceSQL("chr1", 1000, "", "", `{"k":"v"}`, -1, "", false)
	require.NoError(t, err)
	require.Contains(t, stmt, `'{"k":"v"}'`)
	require.NotContains(t, stmt, "snappy:")
}
