// Package gri implements the three core Genomic Range Index components: the
// schema emitter (C6), the level-range detector (C7), and the overlap-query
// generator (C8).
package gri

import (
	"fmt"
	"strings"

	"github.com/mlin/genomicsqlite/internal/gsqlite/gerrors"
)

// MaxPos is the largest permitted interval endpoint: 2^36 - 1 - 2^32.
const MaxPos int64 = (1 << 36) - 1 - (1 << 32)

// NumLevels is the number of levels in the 16-ary GRI hierarchy.
const NumLevels = 16

// SplitSchemaTable splits a possibly schema-qualified table reference
// ("main.feat") into its schema prefix (including the trailing dot, or empty)
// and bare table name, following the original implementation's rule of
// splitting on the first literal '.'. Identifiers containing a quoted '.' are
// not supported, matching the reference behavior.
func SplitSchemaTable(qualified string) (schemaPrefix, table string) {
	if i := strings.IndexByte(qualified, '.'); i >= 0 {
		return qualified[:i+1], qualified[i+1:]
	}
	return "", qualified
}

// CreateGenomicRangeIndexSQL emits the DDL script that adds the four
// generated virtual columns and the composite index to schemaTable. floor is
// -1 (meaning 0) or in 0..15.
func CreateGenomicRangeIndexSQL(schemaTable, ridExpr, begExpr, endExpr string, floor int) (string, error) {
	if floor == -1 {
		floor = 0
	}
	if floor < 0 || floor >= NumLevels {
		return "", gerrors.New(gerrors.KindInvalidFloorCeiling, fmt.Sprintf("floor must satisfy 0 <= floor < %d, got %d", NumLevels, floor))
	}
	_, table := SplitSchemaTable(schemaTable)

	var b strings.Builder
	fmt.Fprintf(&b, "ALTER TABLE %s ADD COLUMN _gri_rid INTEGER AS (%s) VIRTUAL", schemaTable, ridExpr)
	fmt.Fprintf(&b, ";\nALTER TABLE %s ADD COLUMN _gri_beg INTEGER AS (%s) VIRTUAL", schemaTable, begExpr)
	fmt.Fprintf(&b, ";\nALTER TABLE %s ADD COLUMN _gri_len INTEGER AS ((%s)-(%s)) VIRTUAL", schemaTable, endExpr, begExpr)
	fmt.Fprintf(&b, ";\nALTER TABLE %s ADD COLUMN _gri_lvl INTEGER AS (CASE WHEN _gri_len IS NULL OR _gri_len < 0 THEN NULL", schemaTable)
	for lv := floor; lv < NumLevels; lv++ {
		// _gri_lvl is stored negated so that small, common intervals cluster
		// at the rightmost end of the index b-tree, keeping append-mostly
		// insertion cheap.
		fmt.Fprintf(&b, " WHEN _gri_len <= 0x1%s THEN -%d", strings.Repeat("0", lv), lv)
	}
	b.WriteString(" ELSE NULL END) VIRTUAL")
	fmt.Fprintf(&b, ";\nCREATE INDEX %s__gri ON %s(_gri_rid, _gri_lvl, _gri_beg, _gri_len)", schemaTable, table)
	return b.String(), nil
}
