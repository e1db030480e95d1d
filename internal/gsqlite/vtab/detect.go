package vtab

import (
	"context"
	"database/sql/driver"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/mlin/genomicsqlite/internal/gsqlite/gerrors"
	"github.com/mlin/genomicsqlite/internal/gsqlite/gri"
)

// detectLevelRangeViaConn mirrors gri.DetectLevelRange but runs the skip-scan
// query directly against a raw sqlite3 connection, since the virtual table
// callbacks only have access to the connection that is already mid-query,
// not a separate *sql.DB handle.
func detectLevelRangeViaConn(ctx context.Context, conn *sqlite3.SQLiteConn, schemaTable string) (gri.LevelRange, error) {
	_, table := gri.SplitSchemaTable(schemaTable)
	tblGRI := schemaTable + " INDEXED BY " + table + "__gri"

	query := "WITH RECURSIVE __distinct(__rid) AS" +
		"\n (SELECT (SELECT _gri_rid FROM " + tblGRI +
		" ORDER BY _gri_rid NULLS LAST LIMIT 1) AS __rid_0 WHERE __rid_0 IS NOT NULL" +
		"\n  UNION ALL" +
		"\n  SELECT (SELECT _gri_rid FROM " + tblGRI +
		" WHERE _gri_rid > __rid ORDER BY _gri_rid LIMIT 1) AS __rid_i FROM __distinct WHERE __rid_i IS NOT NULL)" +
		"\nSELECT" +
		"\n (SELECT _gri_lvl FROM " + tblGRI +
		" WHERE _gri_rid = __rid AND _gri_lvl <= 0 ORDER BY _gri_rid, _gri_lvl LIMIT 1)," +
		"\n (SELECT _gri_lvl FROM " + tblGRI +
		" WHERE _gri_rid = __rid AND _gri_lvl <= 0 ORDER BY _gri_rid DESC, _gri_lvl DESC LIMIT 1)" +
		"\nFROM __distinct"

	rows, err := conn.Query(query, nil)
	if err != nil {
		return gri.LevelRange{}, gerrors.Wrap(gerrors.KindMissingGRI, fmt.Sprintf("table %q is probably missing its genomic range index", schemaTable), err)
	}
	defer rows.Close()

	minLvl, maxLvl := int64(15), int64(0)
	dest := make([]driver.Value, 2)
	for rows.Next(dest) == nil {
		if v, ok := asInt64(dest[0]); ok {
			if neg := -v; neg > maxLvl {
				maxLvl = neg
			}
		}
		if v, ok := asInt64(dest[1]); ok {
			if neg := -v; neg < minLvl {
				minLvl = neg
			}
		}
	}
	if minLvl == 15 && maxLvl == 0 {
		minLvl, maxLvl = maxLvl, minLvl
	}
	if !(0 <= minLvl && minLvl <= maxLvl && maxLvl < gri.NumLevels) {
		return gri.LevelRange{}, gerrors.GRICorrupted(schemaTable, fmt.Sprintf("observed range (%d, %d) is outside 0..15", minLvl, maxLvl))
	}
	_ = ctx
	return gri.LevelRange{Min: int(minLvl), Max: int(maxLvl)}, nil
}
