package gri

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mlin/genomicsqlite/internal/gsqlite/gerrors"
)

// LevelRange is the minimum and maximum level actually populated in a GRI.
type LevelRange struct {
	Min int
	Max int
}

// DetectLevelRange inspects the GRI on schemaTable and returns the min and
// max level occupied by any row, using a skip-scan recursive CTE rather than
// a naive MIN/MAX aggregate, so that the query planner is forced to use the
// composite index instead of a full table scan.
func DetectLevelRange(ctx context.Context, db *sql.DB, schemaTable string) (LevelRange, error) {
	_, table := SplitSchemaTable(schemaTable)
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

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return LevelRange{}, gerrors.Wrap(gerrors.KindMissingGRI, fmt.Sprintf("table %q is probably missing its genomic range index", schemaTable), err)
	}
	defer rows.Close()

	minLvl, maxLvl := int64(15), int64(0)
	for rows.Next() {
		var maxCol, minCol sql.NullInt64
		if err := rows.Scan(&maxCol, &minCol); err != nil {
			return LevelRange{}, gerrors.Wrap(gerrors.KindGRICorrupted, "error inspecting GRI", err)
		}
		if maxCol.Valid {
			if v := -maxCol.Int64; v > maxLvl {
				maxLvl = v
			}
		}
		if minCol.Valid {
			if v := -minCol.Int64; v < minLvl {
				minLvl = v
			}
		}
	}
	if err := rows.Err(); err != nil {
		return LevelRange{}, gerrors.Wrap(gerrors.KindGRICorrupted, "error inspecting GRI", err)
	}

	if minLvl == 15 && maxLvl == 0 {
		// Empty table: swap to the full, syntactically-valid-but-empty range.
		minLvl, maxLvl = maxLvl, minLvl
	}
	if !(0 <= minLvl && minLvl <= maxLvl && maxLvl < NumLevels) {
		return LevelRange{}, gerrors.GRICorrupted(schemaTable, fmt.Sprintf("observed range (%d, %d) is outside 0..15", minLvl, maxLvl))
	}
	return LevelRange{Min: int(minLvl), Max: int(maxLvl)}, nil
}
