// Package refseq builds and reads the _gri_refseq reference-assembly
// catalogue: a small table of chromosome/contig name, length, and refget
// identifier, keyed by the same rowid space as the Genomic Range Index.
package refseq

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/snappy"

	"github.com/mlin/genomicsqlite/internal/gsqlite/gerrors"
)

// metaJSONCompressThreshold is the size in bytes above which meta_json is
// stored snappy-compressed and base64-encoded rather than literal text. The
// gri_refseq_meta_json column stays TEXT either way; the metaJSONMarker
// prefix distinguishes the two encodings on read.
const metaJSONCompressThreshold = 256

const metaJSONMarker = "snappy:"

func encodeMetaJSON(metaJSON string) string {
	if metaJSON == "" {
		return "{}"
	}
	if len(metaJSON) <= metaJSONCompressThreshold {
		return metaJSON
	}
	compressed := snappy.Encode(nil, []byte(metaJSON))
	return metaJSONMarker + base64.StdEncoding.EncodeToString(compressed)
}

func decodeMetaJSON(stored string) (string, error) {
	if !strings.HasPrefix(stored, metaJSONMarker) {
		return stored, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, metaJSONMarker))
	if err != nil {
		return "", gerrors.Wrap(gerrors.KindGRICorrupted, "error decoding compressed reference sequence metadata", err)
	}
	decompressed, err := snappy.Decode(nil, raw)
	if err != nil {
		return "", gerrors.Wrap(gerrors.KindGRICorrupted, "error decompressing reference sequence metadata", err)
	}
	return string(decompressed), nil
}

// Sequence is one row of the reference-assembly catalogue.
type Sequence struct {
	Rid      int64
	Name     string
	Length   int64
	Assembly string
	RefgetID string
	MetaJSON string
}

// sqlquote single-quotes v for embedding in generated SQL text, doubling
// embedded quotes. Only the printable ASCII range is accepted; anything
// outside it is rejected rather than silently mangled.
func sqlquote(v string) (string, error) {
	var out strings.Builder
	out.WriteByte('\'')
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c < 0x20 || c > 0x7E {
			return "", gerrors.NonPrintable(v)
		}
		if c == '\'' {
			out.WriteString("''")
		} else {
			out.WriteByte(c)
		}
	}
	out.WriteByte('\'')
	return out.String(), nil
}

func ddl(schema string) string {
	prefix := ""
	if schema != "" {
		prefix = schema + "."
	}
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s_gri_refseq"+
			"(_gri_rid INTEGER NOT NULL PRIMARY KEY, gri_refseq_name TEXT NOT NULL, gri_assembly TEXT,"+
			" gri_refget_id TEXT UNIQUE, gri_refseq_length INTEGER NOT NULL, gri_refseq_meta_json TEXT NOT NULL DEFAULT '{}', "+
			"UNIQUE(gri_assembly,gri_refseq_name))"+
			";\nCREATE INDEX IF NOT EXISTS %s_gri_refseq_name ON %s_gri_refseq(gri_refseq_name)",
		prefix, prefix, prefix)
}

// PutSequenceSQL builds the INSERT (optionally preceded by the _gri_refseq
// DDL) that registers one reference sequence. rid < 0 lets SQLite assign the
// rowid. assembly, refgetID, and metaJSON may be empty; an empty metaJSON is
// stored as "{}".
func PutSequenceSQL(name string, length int64, assembly, refgetID, metaJSON string, rid int64, schema string, withDDL bool) (string, error) {
	prefix := ""
	if schema != "" {
		prefix = schema + "."
	}
	nameQ, err := sqlquote(name)
	if err != nil {
		return "", err
	}
	assemblyQ := "NULL"
	if assembly != "" {
		if assemblyQ, err = sqlquote(assembly); err != nil {
			return "", err
		}
	}
	refgetQ := "NULL"
	if refgetID != "" {
		if refgetQ, err = sqlquote(refgetID); err != nil {
			return "", err
		}
	}
	metaQ, err := sqlquote(encodeMetaJSON(metaJSON))
	if err != nil {
		return "", err
	}
	ridLiteral := "NULL"
	if rid >= 0 {
		ridLiteral = strconv.FormatInt(rid, 10)
	}

	var out strings.Builder
	if withDDL {
		out.WriteString(ddl(schema))
		out.WriteString(";\n")
	}
	fmt.Fprintf(&out, "INSERT INTO %s_gri_refseq(_gri_rid,gri_refseq_name,gri_assembly,gri_refget_id,gri_refseq_length,gri_refseq_meta_json) VALUES(%s,%s,%s,%s,%d,%s)",
		prefix, ridLiteral, nameQ, assemblyQ, refgetQ, length, metaQ)
	return out.String(), nil
}

// Catalogue is a named, ordered set of hardcoded sequences for an assembly.
// The real GenomicSQLite ships a ~195-entry GRCh38 catalogue; this is a
// small stand-in demonstration set rather than a reproduction of it.
type Catalogue struct {
	Assembly  string
	Sequences []HardcodedSequence
}

// HardcodedSequence is one entry of a Catalogue.
type HardcodedSequence struct {
	Name     string
	Length   int64
	RefgetID string
}

// GRCh38Demo is a small demonstration catalogue covering the 24 GRCh38
// primary chromosomes (1-22, X, Y). Lengths and the chr1 refget ID match
// the GRCh38_no_alt_analysis_set assembly; the remaining refget IDs are
// left blank since the full catalogue is out of scope here.
var GRCh38Demo = Catalogue{
	Assembly: "GRCh38_no_alt_analysis_set",
	Sequences: []HardcodedSequence{
		{Name: "chr1", Length: 248956422, RefgetID: "6aef897c3d6ff0c78aff06ac189178dd"},
		{Name: "chr2", Length: 242193529},
		{Name: "chr3", Length: 198295559},
		{Name: "chr4", Length: 190214555},
		{Name: "chr5", Length: 181538259},
		{Name: "chr6", Length: 170805979},
		{Name: "chr7", Length: 159345973},
		{Name: "chr8", Length: 145138636},
		{Name: "chr9", Length: 138394717},
		{Name: "chr10", Length: 133797422},
		{Name: "chr11", Length: 135086622},
		{Name: "chr12", Length: 133275309},
		{Name: "chr13", Length: 114364328},
		{Name: "chr14", Length: 107043718},
		{Name: "chr15", Length: 101991189},
		{Name: "chr16", Length: 90338345},
		{Name: "chr17", Length: 83257441},
		{Name: "chr18", Length: 80373285},
		{Name: "chr19", Length: 58617616},
		{Name: "chr20", Length: 64444167},
		{Name: "chr21", Length: 46709983},
		{Name: "chr22", Length: 50818468},
		{Name: "chrX", Length: 156040895},
		{Name: "chrY", Length: 57227415},
	},
}

var knownCatalogues = map[string]Catalogue{
	GRCh38Demo.Assembly: GRCh38Demo,
}

// PutAssemblySQL builds the concatenated PutSequenceSQL statements for every
// sequence of a known hardcoded assembly.
func PutAssemblySQL(assembly, schema string) (string, error) {
	cat, ok := knownCatalogues[assembly]
	if !ok {
		return "", gerrors.UnknownAssembly(assembly)
	}
	var out strings.Builder
	for i, seq := range cat.Sequences {
		if i > 0 {
			out.WriteString(";\n")
		}
		stmt, err := PutSequenceSQL(seq.Name, seq.Length, assembly, seq.RefgetID, "{}", -1, schema, i == 0)
		if err != nil {
			return "", err
		}
		out.WriteString(stmt)
	}
	return out.String(), nil
}

// SequencesByRid returns every catalogued sequence of schema, keyed by rid.
// If assembly is non-empty, only sequences of that assembly are returned.
func SequencesByRid(ctx context.Context, db *sql.DB, assembly, schema string) (map[int64]Sequence, error) {
	prefix := ""
	if schema != "" {
		prefix = schema + "."
	}
	query := "SELECT _gri_rid, gri_refseq_name, gri_refseq_length, gri_assembly, gri_refget_id, gri_refseq_meta_json FROM " +
		prefix + "_gri_refseq"
	var args []interface{}
	if assembly != "" {
		query += " WHERE gri_assembly = ?1"
		args = append(args, assembly)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, gerrors.Wrap(gerrors.KindHostEngine, "error querying reference sequences", err)
	}
	defer rows.Close()

	ans := make(map[int64]Sequence)
	for rows.Next() {
		var item Sequence
		var assemblyNS, refgetNS, metaNS sql.NullString
		if err := rows.Scan(&item.Rid, &item.Name, &item.Length, &assemblyNS, &refgetNS, &metaNS); err != nil {
			return nil, gerrors.Wrap(gerrors.KindHostEngine, "error querying reference sequences", err)
		}
		item.Assembly = assemblyNS.String
		item.RefgetID = refgetNS.String
		item.MetaJSON, err = decodeMetaJSON(metaNS.String)
		if err != nil {
			return nil, err
		}
		ans[item.Rid] = item
	}
	if err := rows.Err(); err != nil {
		return nil, gerrors.Wrap(gerrors.KindHostEngine, "error querying reference sequences", err)
	}
	return ans, nil
}

// SequencesByName is SequencesByRid reindexed by name. It fails with a
// NamesNotUnique error if the catalogue contains duplicate names, which can
// happen if a caller mixes assemblies with colliding chromosome names.
func SequencesByName(ctx context.Context, db *sql.DB, assembly, schema string) (map[string]Sequence, error) {
	byRid, err := SequencesByRid(ctx, db, assembly, schema)
	if err != nil {
		return nil, err
	}
	ans := make(map[string]Sequence, len(byRid))
	for _, item := range byRid {
		if _, collision := ans[item.Name]; collision {
			return nil, gerrors.NamesNotUnique(item.Name)
		}
		ans[item.Name] = item
	}
	return ans, nil
}
