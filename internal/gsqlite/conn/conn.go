// Package conn opens and attaches genomicsqlite-tuned databases: it wires
// the uri, tuning, and config packages together into the handful of SQL
// statements a caller needs to open, attach, or vacuum-copy a database, plus
// the minimum-host-version check performed once per process.
package conn

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/mlin/genomicsqlite/internal/gsqlite/config"
	"github.com/mlin/genomicsqlite/internal/gsqlite/gerrors"
	"github.com/mlin/genomicsqlite/internal/gsqlite/tuning"
	"github.com/mlin/genomicsqlite/internal/gsqlite/uri"
)

// MinSQLiteVersionNumber is the oldest SQLITE_VERSION_NUMBER this package
// relies on, matching the generated-columns feature used by the genomic
// range index.
const MinSQLiteVersionNumber = 3031000

// MinSQLiteVersion is the human-readable form of MinSQLiteVersionNumber.
const MinSQLiteVersion = "3.31.0"

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

// CheckHostVersion fails with a HostTooOld error if the linked SQLite
// library predates MinSQLiteVersionNumber.
func CheckHostVersion() error {
	libVersion, libVersionNumber, _ := sqlite3.Version()
	if libVersionNumber < MinSQLiteVersionNumber {
		return gerrors.HostTooOld(libVersion, MinSQLiteVersion)
	}
	return nil
}

// Open opens dbfile through the zstd VFS URI with the requested options and
// runs the tuning pragmas against it. Callers that need to configure the
// sqlite3 driver's ConnectHook themselves should call uri.Build and
// tuning.Build directly instead.
func Open(ctx context.Context, dbfile, optionsJSON string) (*sql.DB, error) {
	if err := CheckHostVersion(); err != nil {
		return nil, err
	}
	opts, err := config.Merge(optionsJSON)
	if err != nil {
		return nil, err
	}
	dsn := uri.Build(dbfile, opts)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, gerrors.HostEngine(err)
	}
	for _, stmt := range splitStatements(tuning.Build(opts, "")) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, gerrors.HostEngine(err)
		}
	}
	return db, nil
}

// AttachSQL builds the "ATTACH ... ; PRAGMA ..." script that attaches dbfile
// as schemaName on an already-open connection, with tuning pragmas scoped to
// that schema. If schemaName is empty, a fresh UUID-derived alias is
// generated so concurrent callers attaching the same file by relative path
// don't collide on the schema namespace.
func AttachSQL(dbfile, schemaName, optionsJSON string) (string, error) {
	opts, err := config.Merge(optionsJSON)
	if err != nil {
		return "", err
	}
	if schemaName == "" {
		schemaName = "gsqlite_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	}
	dsnQ, err := sqlquote(uri.Build(dbfile, opts))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ATTACH %s AS %s;%s", dsnQ, schemaName, tuning.Build(opts, schemaName)), nil
}

// VacuumIntoSQL builds the "PRAGMA page_size=...; VACUUM INTO ..." script
// that copies the currently open database into a freshly tuned destfile.
// The destination URI is marked outer_unsafe since VACUUM INTO writes a
// brand new file nothing else can be reading concurrently.
func VacuumIntoSQL(destfile, optionsJSON string) (string, error) {
	opts, err := config.Merge(optionsJSON)
	if err != nil {
		return "", err
	}
	destURI := uri.Build(destfile, opts) + "&outer_unsafe=true"
	destQ, err := sqlquote(destURI)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("PRAGMA page_size = %d;\nVACUUM INTO %s", opts.InnerPageKiB*1024, destQ), nil
}

func splitStatements(script string) []string {
	var out []string
	start := 0
	for i := 0; i+1 < len(script); i++ {
		if script[i] == ';' && script[i+1] == ' ' {
			out = append(out, script[start:i])
			start = i + 2
		}
	}
	out = append(out, script[start:])
	return out
}
