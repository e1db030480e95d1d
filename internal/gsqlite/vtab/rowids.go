// Package vtab exposes the genomic_range_rowids and genomic_range_index_levels
// table-valued functions as go-sqlite3 virtual table modules, each backed by
// a small per-connection cache so repeated queries against the same indexed
// table avoid re-preparing and re-planning the underlying GRI scan.
package vtab

import (
	"context"
	"database/sql/driver"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/mlin/genomicsqlite/internal/gsqlite/gri"
)

// RowidsModuleName is the module name registered for genomic_range_rowids.
const RowidsModuleName = "genomic_range_rowids"

// rowidsVisibleCols is the number of non-hidden columns genomic_range_rowids
// declares (_rowid_); argument columns start right after it.
const rowidsVisibleCols = 1

// rowidsMinArgs and rowidsMaxArgs bound the hidden-column argument count:
// tableName, qrid, qbeg, qend are required; ceiling and floor are optional.
const (
	rowidsMinArgs = 4
	rowidsMaxArgs = 6
)

// rowidsStmtCache holds the prepared statements for one indexed table at a
// fixed (ceiling, floor) pair. Statements are returned to the pool after a
// cursor finishes with them rather than re-prepared on every Filter call.
// The whole cache is replaced, not mutated in place, whenever a Filter call
// observes different bounds for the table, which is what lets a borrowed
// statement detect that its bounds are now stale.
type rowidsStmtCache struct {
	ceiling int
	floor   int
	pool    []*pooledStmt
}

// pooledStmt wraps a statement prepared directly against the connection's
// driver.Conn, since go-sqlite3's virtual-table callbacks only have access
// to the raw connection, not a *sql.DB.
type pooledStmt struct {
	stmt driver.Stmt
}

// RowidsModule implements sqlite3.Module for genomic_range_rowids(tableName,
// qrid, qbeg, qend[, ceiling[, floor]]).
type RowidsModule struct{}

func (RowidsModule) Create(c *sqlite3.SQLiteConn, args []string) (sqlite3.VTab, error) {
	return RowidsModule{}.Connect(c, args)
}

func (RowidsModule) Connect(c *sqlite3.SQLiteConn, args []string) (sqlite3.VTab, error) {
	err := c.DeclareVTab(
		"CREATE TABLE genomic_range_rowids(_rowid_ INTEGER, tableName HIDDEN, qrid HIDDEN, qbeg HIDDEN, qend HIDDEN, ceiling HIDDEN, floor HIDDEN)")
	if err != nil {
		return nil, err
	}
	return &rowidsVTab{conn: c, caches: newRowidsStmtCacheShards()}, nil
}

func (RowidsModule) DestroyModule() {}

type rowidsVTab struct {
	conn   *sqlite3.SQLiteConn
	caches *rowidsStmtCacheShards
}

// BestIndex accepts only a contiguous prefix of the hidden columns
// (tableName, qrid, qbeg, qend[, ceiling[, floor]]) given as equality
// constraints, 4 to 6 of them; any other shape is rejected so the planner
// never silently drops ceiling/floor or calls Filter with a partial set of
// arguments.
func (v *rowidsVTab) BestIndex(cst []sqlite3.InfoConstraint, ob []sqlite3.InfoOrderBy) (*sqlite3.IndexResult, error) {
	n := len(cst)
	if n < rowidsMinArgs || n > rowidsMaxArgs {
		return nil, fmt.Errorf("genomic_range_rowids() requires %d to %d arguments", rowidsMinArgs, rowidsMaxArgs)
	}

	used := make([]bool, n)
	var bitmap uint
	for i, c := range cst {
		arg := c.Column - rowidsVisibleCols
		if !c.Usable || arg < 0 || arg >= rowidsMaxArgs || c.Op != sqlite3.OpEQ {
			return nil, fmt.Errorf("genomic_range_rowids() arguments must be equality constraints")
		}
		if bitmap&(1<<uint(arg)) != 0 {
			return nil, fmt.Errorf("genomic_range_rowids() argument %d constrained more than once", arg+1)
		}
		bitmap |= 1 << uint(arg)
		used[i] = true
	}
	if bitmap != (uint(1)<<uint(n))-1 {
		return nil, fmt.Errorf("genomic_range_rowids() requires a contiguous prefix of tableName, qrid, qbeg, qend[, ceiling[, floor]]")
	}

	return &sqlite3.IndexResult{
		Used:          used,
		IdxNum:        0,
		IdxStr:        "",
		EstimatedCost: 1000,
		EstimatedRows: 1000,
	}, nil
}

func (v *rowidsVTab) Open() (sqlite3.VTabCursor, error) {
	return &rowidsCursor{vtab: v}, nil
}

func (v *rowidsVTab) Disconnect() error { return nil }
func (v *rowidsVTab) Destroy() error    { return nil }

type rowidsCursor struct {
	vtab    *rowidsVTab
	rowids  []int64
	pos     int
	lastErr error

	// borrowed is the statement this cursor is currently holding, prepared
	// or popped from borrowedCache's pool during the last Filter call. It is
	// returned (or finalized, if borrowedCache's bounds have since moved on)
	// at the top of the next Filter call and on Close.
	borrowed      *pooledStmt
	borrowedCache *rowidsStmtCache
	borrowedTable string
}

// Filter runs the GRI overlap query for the requested table and level range,
// materializing the full rowid list for this cursor. This trades the
// original's streaming sqlite3_stmt cursor for a simpler batch fetch, since
// database/sql does not expose incremental stepping of a foreign statement
// the way the C API does; the table-level statement-pool cache below still
// avoids rebuilding and re-preparing the query text on every call for the
// same table.
func (cur *rowidsCursor) Filter(idxNum int, idxStr string, vals []any) error {
	cur.rowids = nil
	cur.pos = 0
	cur.lastErr = nil
	cur.returnBorrowed()

	if len(vals) < rowidsMinArgs {
		return fmt.Errorf("genomic_range_rowids() expects %d-%d arguments", rowidsMinArgs, rowidsMaxArgs)
	}
	tableName, ok := vals[0].(string)
	if !ok {
		return fmt.Errorf("genomic_range_rowids() argument 1 should be the GRI-indexed table name")
	}
	requestedCeiling, requestedFloor := -1, -1
	if len(vals) >= 5 {
		if n, ok := asInt(vals[4]); ok {
			requestedCeiling = n
		}
	}
	if len(vals) >= 6 {
		if n, ok := asInt(vals[5]); ok {
			requestedFloor = n
		}
	}

	cache := cur.vtab.caches.get(tableName)
	if cache == nil || cache.ceiling != requestedCeiling || cache.floor != requestedFloor {
		cache = &rowidsStmtCache{ceiling: requestedCeiling, floor: requestedFloor}
		cur.vtab.caches.set(tableName, cache)
	}

	ps := cache.pop()
	if ps == nil {
		var err error
		ps, err = cur.prepare(tableName, requestedCeiling, requestedFloor)
		if err != nil {
			return err
		}
	}

	rows, err := ps.stmt.Query([]driver.Value{vals[1], vals[2], vals[3]})
	if err != nil {
		ps.stmt.Close()
		return fmt.Errorf("genomic_range_rowids(): table doesn't exist or lacks a genomic range index: %w", err)
	}
	dest := make([]driver.Value, 1)
	for rows.Next(dest) == nil {
		rowid, _ := asInt64(dest[0])
		cur.rowids = append(cur.rowids, rowid)
	}
	rows.Close()

	cur.borrowed = ps
	cur.borrowedCache = cache
	cur.borrowedTable = tableName
	return nil
}

// prepare resolves the effective (possibly auto-detected) ceiling/floor for
// a fresh query and prepares it against the connection. The requested
// ceiling/floor (which may be unset, i.e. negative) are only used to key the
// statement cache; C8's SQL text is built from the effective bounds so that
// an omitted ceiling/floor still narrows via the table's detected levels.
func (cur *rowidsCursor) prepare(tableName string, requestedCeiling, requestedFloor int) (*pooledStmt, error) {
	ceiling, floor := requestedCeiling, requestedFloor
	if ceiling < 0 {
		lr, err := detectLevelRangeViaConn(context.Background(), cur.vtab.conn, tableName)
		if err != nil {
			return nil, err
		}
		ceiling = lr.Max
		if floor < 0 {
			floor = lr.Min
		}
	} else if floor < 0 {
		floor = 0
	}

	sqlText, err := gri.OverlapQuery(context.Background(), nil, tableName, "?1", "?2", "?3", ceiling, floor)
	if err != nil {
		return nil, err
	}
	stmt, err := cur.vtab.conn.Prepare(trimOuterParens(sqlText))
	if err != nil {
		return nil, fmt.Errorf("genomic_range_rowids(): table doesn't exist or lacks a genomic range index: %w", err)
	}
	return &pooledStmt{stmt: stmt}, nil
}

// returnBorrowed gives the cursor's held statement back to its cache, but
// only if that cache is still the one registered for the table: a Filter
// call against the same table with different ceiling/floor replaces the
// cache wholesale, which means any statement borrowed from the old cache no
// longer matches the pool's current bounds and is finalized instead of
// reused.
func (cur *rowidsCursor) returnBorrowed() {
	if cur.borrowed == nil {
		return
	}
	ps, cache, table := cur.borrowed, cur.borrowedCache, cur.borrowedTable
	cur.borrowed, cur.borrowedCache, cur.borrowedTable = nil, nil, ""
	if cur.vtab.caches.get(table) == cache {
		cache.push(ps)
		return
	}
	ps.stmt.Close()
}

func (c *rowidsStmtCache) pop() *pooledStmt {
	n := len(c.pool)
	if n == 0 {
		return nil
	}
	ps := c.pool[n-1]
	c.pool = c.pool[:n-1]
	return ps
}

func (c *rowidsStmtCache) push(ps *pooledStmt) {
	c.pool = append(c.pool, ps)
}

// trimOuterParens strips the outermost parentheses gri.OverlapQuery wraps
// its SQL text in, since a standalone prepared statement needs a bare
// SELECT rather than a parenthesised scalar subquery expression.
func trimOuterParens(sqlText string) string {
	if len(sqlText) >= 2 && sqlText[0] == '(' && sqlText[len(sqlText)-1] == ')' {
		return sqlText[1 : len(sqlText)-1]
	}
	return sqlText
}

func (cur *rowidsCursor) Next() error {
	cur.pos++
	return nil
}

func (cur *rowidsCursor) EOF() bool {
	return cur.pos >= len(cur.rowids)
}

func (cur *rowidsCursor) Column(c *sqlite3.SQLiteContext, col int) error {
	if col == 0 && cur.pos < len(cur.rowids) {
		c.ResultInt64(cur.rowids[cur.pos])
	} else {
		c.ResultNull()
	}
	return nil
}

func (cur *rowidsCursor) Rowid() (int64, error) {
	if cur.pos < len(cur.rowids) {
		return cur.rowids[cur.pos], nil
	}
	return 0, nil
}

func (cur *rowidsCursor) Close() error {
	cur.returnBorrowed()
	return nil
}

func asInt(v driver.Value) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

func asInt64(v driver.Value) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}
