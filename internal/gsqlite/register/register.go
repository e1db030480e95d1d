// Package register installs the scalar SQL functions and virtual table
// modules that make up the GenomicSQLite extension's SQL-visible surface
// onto a freshly opened sqlite3 connection.
package register

import (
	"context"

	"github.com/mattn/go-sqlite3"

	"github.com/mlin/genomicsqlite/internal/gsqlite/config"
	"github.com/mlin/genomicsqlite/internal/gsqlite/conn"
	"github.com/mlin/genomicsqlite/internal/gsqlite/gerrors"
	"github.com/mlin/genomicsqlite/internal/gsqlite/gri"
	"github.com/mlin/genomicsqlite/internal/gsqlite/refseq"
	"github.com/mlin/genomicsqlite/internal/gsqlite/tuning"
	"github.com/mlin/genomicsqlite/internal/gsqlite/uri"
	"github.com/mlin/genomicsqlite/internal/gsqlite/vtab"
)

// Version is the fixed version string returned by genomicsqlite_version().
// It stands in for the real extension's git-revision-derived build stamp.
const Version = "0.1.0-go"

// OnConnect registers every scalar function and virtual table module on c.
// Call it from a sqlite3.SQLiteDriver's ConnectHook so that every connection
// opened through that driver gets the full extension surface.
func OnConnect(c *sqlite3.SQLiteConn) error {
	if err := conn.CheckHostVersion(); err != nil {
		return err
	}
	for _, reg := range []struct {
		name string
		fn   interface{}
	}{
		{"genomicsqlite_version", func() string { return Version }},
		{"genomicsqlite_default_config_json", defaultConfigJSONOrEmpty},

		{"genomicsqlite_uri", sqlURI1},
		{"genomicsqlite_uri", sqlURI2},

		{"genomicsqlite_tuning_sql", sqlTuning0},
		{"genomicsqlite_tuning_sql", sqlTuning1},
		{"genomicsqlite_tuning_sql", sqlTuning2},

		{"genomicsqlite_attach_sql", sqlAttach2},
		{"genomicsqlite_attach_sql", sqlAttach3},

		{"genomicsqlite_vacuum_into_sql", sqlVacuumInto1},
		{"genomicsqlite_vacuum_into_sql", sqlVacuumInto2},

		{"create_genomic_range_index_sql", sqlCreateGRI4},
		{"create_genomic_range_index_sql", sqlCreateGRI5},

		{"genomic_range_rowids_sql", sqlRowids1},
		{"genomic_range_rowids_sql", sqlRowids4},
		{"genomic_range_rowids_sql", sqlRowids5},
		{"genomic_range_rowids_sql", sqlRowids6},

		{"put_genomic_reference_sequence_sql", sqlPutSequence2},
		{"put_genomic_reference_sequence_sql", sqlPutSequence3},
		{"put_genomic_reference_sequence_sql", sqlPutSequence4},
		{"put_genomic_reference_sequence_sql", sqlPutSequence5},
		{"put_genomic_reference_sequence_sql", sqlPutSequence6},
		{"put_genomic_reference_sequence_sql", sqlPutSequence7},

		{"put_genomic_reference_assembly_sql", sqlPutAssembly1},
		{"put_genomic_reference_assembly_sql", sqlPutAssembly2},
	} {
		if err := c.RegisterFunc(reg.name, reg.fn, true); err != nil {
			return wrapRegisterErr(reg.name, err)
		}
	}
	if err := vtab.Register(c); err != nil {
		return wrapRegisterErr("virtual table modules", err)
	}
	return nil
}

func defaultConfigJSONOrEmpty() string {
	s, err := config.DefaultConfigJSON()
	if err != nil {
		return "{}"
	}
	return s
}

func sqlURI1(path string) (string, error) { return sqlURI2(path, "") }
func sqlURI2(path, optionsJSON string) (string, error) {
	opts, err := config.Merge(optionsJSON)
	if err != nil {
		return "", err
	}
	return uri.Build(path, opts), nil
}

func sqlTuning0() (string, error)                             { return sqlTuning2("", "") }
func sqlTuning1(optionsJSON string) (string, error)           { return sqlTuning2(optionsJSON, "") }
func sqlTuning2(optionsJSON, schema string) (string, error) {
	opts, err := config.Merge(optionsJSON)
	if err != nil {
		return "", err
	}
	return tuning.Build(opts, schema), nil
}

func sqlAttach2(dbfile, schemaName string) (string, error) { return sqlAttach3(dbfile, schemaName, "") }
func sqlAttach3(dbfile, schemaName, optionsJSON string) (string, error) {
	return conn.AttachSQL(dbfile, schemaName, optionsJSON)
}

func sqlVacuumInto1(destfile string) (string, error) { return sqlVacuumInto2(destfile, "") }
func sqlVacuumInto2(destfile, optionsJSON string) (string, error) {
	return conn.VacuumIntoSQL(destfile, optionsJSON)
}

func sqlCreateGRI4(table, ridExpr, begExpr, endExpr string) (string, error) {
	return sqlCreateGRI5(table, ridExpr, begExpr, endExpr, -1)
}
func sqlCreateGRI5(table, ridExpr, begExpr, endExpr string, floor int64) (string, error) {
	return gri.CreateGenomicRangeIndexSQL(table, ridExpr, begExpr, endExpr, int(floor))
}

func sqlRowids1(table string) (string, error) {
	return sqlRowids6(table, "?1", "?2", "?3", -1, -1)
}
func sqlRowids4(table, qrid, qbeg, qend string) (string, error) {
	return sqlRowids6(table, qrid, qbeg, qend, -1, -1)
}
func sqlRowids5(table, qrid, qbeg, qend string, ceiling int64) (string, error) {
	return sqlRowids6(table, qrid, qbeg, qend, ceiling, -1)
}
func sqlRowids6(table, qrid, qbeg, qend string, ceiling, floor int64) (string, error) {
	// A bare connection handle is not available inside a registered scalar
	// function, so level-range auto-detection (which needs to query the
	// table) is unavailable here; omitted ceiling/floor fall back to the
	// full 0..15 range rather than the table's actual occupied range. The
	// genomic_range_rowids virtual table (vtab package) does have a live
	// connection and performs the narrower auto-detection.
	return gri.OverlapQuery(context.Background(), nil, table, qrid, qbeg, qend, int(ceiling), int(floor))
}

func sqlPutSequence2(name string, length int64) (string, error) {
	return sqlPutSequence7(name, length, "", "", "", -1, "")
}
func sqlPutSequence3(name string, length int64, assembly string) (string, error) {
	return sqlPutSequence7(name, length, assembly, "", "", -1, "")
}
func sqlPutSequence4(name string, length int64, assembly, refgetID string) (string, error) {
	return sqlPutSequence7(name, length, assembly, refgetID, "", -1, "")
}
func sqlPutSequence5(name string, length int64, assembly, refgetID, metaJSON string) (string, error) {
	return sqlPutSequence7(name, length, assembly, refgetID, metaJSON, -1, "")
}
func sqlPutSequence6(name string, length int64, assembly, refgetID, metaJSON string, rid int64) (string, error) {
	return sqlPutSequence7(name, length, assembly, refgetID, metaJSON, rid, "")
}
func sqlPutSequence7(name string, length int64, assembly, refgetID, metaJSON string, rid int64, schema string) (string, error) {
	return refseq.PutSequenceSQL(name, length, assembly, refgetID, metaJSON, rid, schema, true)
}

func sqlPutAssembly1(assembly string) (string, error) { return sqlPutAssembly2(assembly, "") }
func sqlPutAssembly2(assembly, schema string) (string, error) {
	return refseq.PutAssemblySQL(assembly, schema)
}

func wrapRegisterErr(what string, cause error) error {
	return gerrors.ExtensionLoadFailed(cause).WithDetails(map[string]interface{}{"component": what})
}
