package conn

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAttachSQLExplicitSchema(t *testing.T) {
	sql, err := AttachSQL("/tmp/x.db", "aux", "")
	require.NoError(t, err)
	require.Contains(t, sql, "AS aux;")
	require.Contains(t, sql, "ATTACH 'file:")
}

func TestAttachSQLGeneratesAliasWhenSchemaEmpty(t *testing.T) {
	a, err := AttachSQL("/tmp/x.db", "", "")
	require.NoError(t, err)
	b, err := AttachSQL("/tmp/x.db", "", "")
	require.NoError(t, err)
	require.Contains(t, a, "ATTACH 'file:")
	require.True(t, strings.Contains(a, "AS gsqlite_"))
	require.NotEqual(t, a, b, "each generated alias should be unique")
}

func TestVacuumIntoSQLUsesInnerPageSize(t *testing.T) {
	sql, err := VacuumIntoSQL("/tmp/out.db", `{"inner_page_KiB": 8}`)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(sql, "PRAGMA page_size = 8192;"))
	require.Contains(t, sql, "VACUUM INTO 'file:")
	require.Contains(t, sql, "outer_unsafe=true")
}

func TestCheckHostVersion(t *testing.T) {
	require.NoError(t, CheckHostVersion())
}
