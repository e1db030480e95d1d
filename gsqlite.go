// Package gsqlite is the public entry point for compressed-storage
// configuration and Genomic Range Index (GRI) queries against SQLite,
// fronting github.com/mattn/go-sqlite3 with a driver that registers the
// extension's scalar functions and virtual table modules on every
// connection.
package gsqlite

import (
	"context"
	"database/sql"
	"log"
	"sync"

	"github.com/mattn/go-sqlite3"

	"github.com/mlin/genomicsqlite/internal/gsqlite/config"
	"github.com/mlin/genomicsqlite/internal/gsqlite/conn"
	"github.com/mlin/genomicsqlite/internal/gsqlite/gerrors"
	"github.com/mlin/genomicsqlite/internal/gsqlite/register"
	"github.com/mlin/genomicsqlite/internal/gsqlite/tuning"
	"github.com/mlin/genomicsqlite/internal/gsqlite/uri"
)

// DriverName is the database/sql driver name registered by Init.
const DriverName = "genomicsqlite"

var (
	initOnce  sync.Once
	initErr   error
	logger    = log.Default()
	loggerMtx sync.Mutex
)

// SetLogger redirects this package's log output. Passing nil restores the
// standard library's default logger.
func SetLogger(l *log.Logger) {
	loggerMtx.Lock()
	defer loggerMtx.Unlock()
	if l == nil {
		l = log.Default()
	}
	logger = l
}

func logf(format string, args ...interface{}) {
	loggerMtx.Lock()
	l := logger
	loggerMtx.Unlock()
	l.Printf(format, args...)
}

// Init registers the "genomicsqlite" database/sql driver exactly once per
// process. Subsequent calls are no-ops returning the first call's result,
// matching the reference extension's single-flag global init guard. Most
// callers should use Open instead, which calls Init implicitly.
func Init() error {
	initOnce.Do(func() {
		if err := conn.CheckHostVersion(); err != nil {
			initErr = err
			return
		}
		sql.Register(DriverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(c *sqlite3.SQLiteConn) error {
				return register.OnConnect(c)
			},
		})
		logf("gsqlite: registered driver %q, extension version %s", DriverName, register.Version)
	})
	return initErr
}

// Open initializes the driver if needed, then opens dbfile through the
// zstd-VFS URI built from optionsJSON and applies the tuning pragma script.
// optionsJSON may be empty, in which case Defaults() apply.
func Open(ctx context.Context, dbfile, optionsJSON string) (*sql.DB, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	opts, err := config.Merge(optionsJSON)
	if err != nil {
		return nil, err
	}
	dsn := uri.Build(dbfile, opts)
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, gerrors.HostEngine(err)
	}
	for _, stmt := range splitStatements(tuning.Build(opts, "")) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, gerrors.HostEngine(err)
		}
	}
	logf("genomicsqlite: opened %s", dbfile)
	return db, nil
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

// Version returns the extension's fixed version string, mirroring the
// reference ABI's genomicsqlite_version().
func Version() string { return register.Version }

// Error is re-exported so callers can use errors.Is(err, gsqlite.ErrXxx)
// without importing the internal gerrors package directly.
type Error = gerrors.Error

// Err* sentinels, one per catalogue entry in the error design, for
// errors.Is comparisons against a kind rather than a concrete error value.
var (
	ErrInvalidConfig       = &gerrors.Error{Kind: gerrors.KindInvalidConfig}
	ErrConfigTypeMismatch  = &gerrors.Error{Kind: gerrors.KindConfigTypeMismatch}
	ErrHostTooOld          = &gerrors.Error{Kind: gerrors.KindHostTooOld}
	ErrExtensionLoadFailed = &gerrors.Error{Kind: gerrors.KindExtensionLoadFailed}
	ErrInconsistentLinkage = &gerrors.Error{Kind: gerrors.KindInconsistentLinkage}
	ErrMissingGRI          = &gerrors.Error{Kind: gerrors.KindMissingGRI}
	ErrGRICorrupted        = &gerrors.Error{Kind: gerrors.KindGRICorrupted}
	ErrInvalidFloorCeiling = &gerrors.Error{Kind: gerrors.KindInvalidFloorCeiling}
	ErrUnknownAssembly     = &gerrors.Error{Kind: gerrors.KindUnknownAssembly}
	ErrNamesNotUnique      = &gerrors.Error{Kind: gerrors.KindNamesNotUnique}
	ErrNonPrintable        = &gerrors.Error{Kind: gerrors.KindNonPrintable}
)
