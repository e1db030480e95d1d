package gri

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mlin/genomicsqlite/internal/gsqlite/gerrors"
)

// OverlapQuery builds the parenthesised SELECT that returns the rowids of
// rows in indexedTable overlapping the interval (qrid, [qbeg, qend)). qrid,
// qbeg, qend are SQL expressions (typically bound-parameter placeholders or
// column references of another table in a join). If db is non-nil and
// ceiling < 0, the level range is detected via DetectLevelRange; otherwise
// ceiling defaults to 15 and floor to 0.
func OverlapQuery(ctx context.Context, db *sql.DB, indexedTable, qrid, qbeg, qend string, ceiling, floor int) (string, error) {
	if ceiling < 0 {
		if db != nil {
			lr, err := DetectLevelRange(ctx, db, indexedTable)
			if err != nil {
				return "", err
			}
			if floor < 0 {
				floor = lr.Min
			}
			ceiling = lr.Max
		} else {
			ceiling = NumLevels - 1
			if floor < 0 {
				floor = 0
			}
		}
	} else if floor == -1 {
		floor = 0
	}
	if !(0 <= floor && floor <= ceiling && ceiling < NumLevels) {
		return "", gerrors.InvalidFloorCeiling(floor, ceiling)
	}
	_, table := SplitSchemaTable(indexedTable)

	var lvq strings.Builder
	lvq.WriteString(" (")
	for lv := ceiling; lv >= floor; lv-- {
		if lv < ceiling {
			lvq.WriteString("\n  UNION ALL\n  ")
		}
		it := indexedTable
		fmt.Fprintf(&lvq, "SELECT _rowid_ FROM %s INDEXED BY %s__gri WHERE", it, table)
		fmt.Fprintf(&lvq, "\n   (%s._gri_rid,%s._gri_lvl,%s._gri_beg) BETWEEN ((%s),-%d,(%s)-0x1%s) AND ((%s),-%d,(%s)-0)",
			it, it, it, qrid, lv, qbeg, strings.Repeat("0", lv), qrid, lv, qend)
		fmt.Fprintf(&lvq, "\n   AND (%s._gri_beg+%s._gri_len) >= (%s)", it, it, qbeg)
	}
	lvq.WriteString(")")
	return "(SELECT _rowid_ FROM\n" + lvq.String() + "\n ORDER BY _rowid_)", nil
}
