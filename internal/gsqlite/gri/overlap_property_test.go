package gri

import (
	"context"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type feature struct {
	rowid int64
	rid   int64
	beg   int64
	end   int64
}

// linearScanOverlap is the reference implementation: every row whose interval
// overlaps [qbeg, qend) on qrid, found by a full scan rather than the index.
func linearScanOverlap(rows []feature, qrid, qbeg, qend int64) []int64 {
	var out []int64
	for _, r := range rows {
		if r.rid == qrid && qbeg <= r.end && qend >= r.beg {
			out = append(out, r.rowid)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TestOverlapQueryMatchesLinearScan validates the universal invariant that
// the index-path overlap query and a linear scan agree on every row, across
// randomly generated rid/beg/len triples and random query windows.
func TestOverlapQueryMatchesLinearScan(t *testing.T) {
	db := openTestDB(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40
	properties := gopter.NewProperties(parameters)

	properties.Property("overlap query result set equals linear scan result set", prop.ForAll(
		func(rids, begs, lens []int64, qrid, qbeg, qwidth int64) bool {
			n := len(rids)
			if len(begs) < n {
				n = len(begs)
			}
			if len(lens) < n {
				n = len(lens)
			}

			if _, err := db.Exec("DROP TABLE IF EXISTS rnd"); err != nil {
				return false
			}
			if _, err := db.Exec("CREATE TABLE rnd (rid INTEGER, beg INTEGER, end INTEGER)"); err != nil {
				return false
			}
			ddl, err := CreateGenomicRangeIndexSQL("rnd", "rid", "beg", "end", -1)
			if err != nil {
				return false
			}
			for _, stmt := range splitStatements(ddl) {
				if _, err := db.Exec(stmt); err != nil {
					return false
				}
			}

			rows := make([]feature, 0, n)
			for i := 0; i < n; i++ {
				end := begs[i] + lens[i]
				if _, err := db.Exec("INSERT INTO rnd (rid, beg, end) VALUES (?, ?, ?)", rids[i], begs[i], end); err != nil {
					return false
				}
				rows = append(rows, feature{rowid: int64(i + 1), rid: rids[i], beg: begs[i], end: end})
			}

			if qwidth < 0 {
				qwidth = -qwidth
			}
			qend := qbeg + qwidth

			sqlStr, err := OverlapQuery(context.Background(), db, "rnd", "?1", "?2", "?3", -1, -1)
			if err != nil {
				return false
			}
			dbRows, err := db.QueryContext(context.Background(), "SELECT * FROM "+sqlStr, qrid, qbeg, qend)
			if err != nil {
				return false
			}
			defer dbRows.Close()
			var got []int64
			for dbRows.Next() {
				var rowid int64
				if err := dbRows.Scan(&rowid); err != nil {
					return false
				}
				got = append(got, rowid)
			}
			if err := dbRows.Err(); err != nil {
				return false
			}

			want := linearScanOverlap(rows, qrid, qbeg, qend)
			if len(got) != len(want) {
				return false
			}
			for i := range got {
				if got[i] != want[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(12, gen.Int64Range(0, 3)),
		gen.SliceOfN(12, gen.Int64Range(0, 1<<20)),
		gen.SliceOfN(12, gen.Int64Range(0, 1<<16)),
		gen.Int64Range(0, 3),
		gen.Int64Range(0, 1<<20),
		gen.Int64Range(0, 1<<16),
	))

	properties.TestingRun(t)
}
