package vtab

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/mlin/genomicsqlite/internal/gsqlite/gri"
)

// LevelsModuleName is the module name registered for genomic_range_index_levels.
const LevelsModuleName = "genomic_range_index_levels"

type cachedLevels struct {
	dataVersion  int64
	totalChanges int64
	ceiling      int
	floor        int
	valid        bool
}

// LevelsModule implements sqlite3.Module for
// genomic_range_index_levels(tableName), returning the single row
// (ceiling, floor) detected for that table's genomic range index.
type LevelsModule struct{}

func (LevelsModule) Create(c *sqlite3.SQLiteConn, args []string) (sqlite3.VTab, error) {
	return LevelsModule{}.Connect(c, args)
}

func (LevelsModule) Connect(c *sqlite3.SQLiteConn, args []string) (sqlite3.VTab, error) {
	err := c.DeclareVTab(
		"CREATE TABLE genomic_range_index_levels(_gri_ceiling INTEGER, _gri_floor INTEGER, tableName HIDDEN)")
	if err != nil {
		return nil, err
	}
	return &levelsVTab{conn: c, cache: newLevelsCacheShards()}, nil
}

func (LevelsModule) DestroyModule() {}

type levelsVTab struct {
	conn  *sqlite3.SQLiteConn
	cache *levelsCacheShards
}

func (v *levelsVTab) BestIndex(cst []sqlite3.InfoConstraint, ob []sqlite3.InfoOrderBy) (*sqlite3.IndexResult, error) {
	used := make([]bool, len(cst))
	for i, c := range cst {
		if c.Usable && c.Column == 2 {
			used[i] = true
		}
	}
	return &sqlite3.IndexResult{
		Used:           used,
		AlreadyOrdered: true,
		EstimatedCost:  1,
		EstimatedRows:  1,
	}, nil
}

func (v *levelsVTab) Open() (sqlite3.VTabCursor, error) {
	return &levelsCursor{vtab: v, floor: -1, ceiling: -1}, nil
}

func (v *levelsVTab) Disconnect() error { return nil }
func (v *levelsVTab) Destroy() error    { return nil }

type levelsCursor struct {
	vtab    *levelsVTab
	ceiling int
	floor   int
	done    bool
}

// Filter detects the level range of the requested table, reusing a cached
// result for the main schema as long as the database's data_version and
// total_changes counters have not moved since the value was cached.
// Attached schemas are never cached since the file behind a schema alias
// could change between invocations.
func (cur *levelsCursor) Filter(idxNum int, idxStr string, vals []any) error {
	cur.ceiling, cur.floor, cur.done = -1, -1, false
	if len(vals) != 1 {
		return fmt.Errorf("genomic_range_index_levels() expects 1 argument")
	}
	tableName, ok := vals[0].(string)
	if !ok {
		return fmt.Errorf("genomic_range_index_levels() expects a table name")
	}
	schemaPrefix, table := gri.SplitSchemaTable(tableName)
	main := schemaPrefix == "" || strings.EqualFold(schemaPrefix, "main.")

	var dataVersion, totalChanges int64
	if main {
		dataVersion, totalChanges = cur.readCounters()
		if cached, ok := cur.vtab.cache.get(table); ok && cached.valid &&
			cached.dataVersion == dataVersion && cached.totalChanges == totalChanges {
			cur.ceiling, cur.floor = cached.ceiling, cached.floor
			return nil
		}
	}

	lr, err := cur.detectLevelRange(table)
	if err != nil {
		return err
	}
	cur.ceiling, cur.floor = lr.Max, lr.Min

	if main {
		cur.vtab.cache.set(table, cachedLevels{
			dataVersion: dataVersion, totalChanges: totalChanges,
			ceiling: cur.ceiling, floor: cur.floor, valid: true,
		})
	}
	return nil
}

func (cur *levelsCursor) detectLevelRange(table string) (gri.LevelRange, error) {
	return detectLevelRangeViaConn(context.Background(), cur.vtab.conn, table)
}

func (cur *levelsCursor) readCounters() (dataVersion, totalChanges int64) {
	if rows, err := cur.vtab.conn.Query("PRAGMA data_version", nil); err == nil {
		dest := make([]driver.Value, 1)
		if rows.Next(dest) == nil {
			dataVersion, _ = asInt64(dest[0])
		}
		rows.Close()
	}
	if rows, err := cur.vtab.conn.Query("SELECT total_changes()", nil); err == nil {
		dest := make([]driver.Value, 1)
		if rows.Next(dest) == nil {
			totalChanges, _ = asInt64(dest[0])
		}
		rows.Close()
	}
	return
}

func (cur *levelsCursor) Next() error {
	cur.done = true
	return nil
}

func (cur *levelsCursor) EOF() bool {
	return cur.done || cur.floor < 0
}

func (cur *levelsCursor) Column(c *sqlite3.SQLiteContext, col int) error {
	switch col {
	case 0:
		c.ResultInt64(int64(cur.ceiling))
	case 1:
		c.ResultInt64(int64(cur.floor))
	default:
		c.ResultNull()
	}
	return nil
}

func (cur *levelsCursor) Rowid() (int64, error) { return 1, nil }
func (cur *levelsCursor) Close() error          { return nil }
