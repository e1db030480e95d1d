// Command gsqlite is a small operator tool for GenomicSQLite databases:
// print the zstd-VFS connection URI or tuning pragma script for a file,
// create a Genomic Range Index on an existing table, report a table's
// occupied GRI level range, and load reference-sequence catalogue rows.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/mlin/genomicsqlite"
	"github.com/mlin/genomicsqlite/internal/gsqlite/gri"
	"github.com/mlin/genomicsqlite/internal/gsqlite/refseq"
	"github.com/mlin/genomicsqlite/internal/gsqliteconfig"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile   string
		dbFile       string
		zstdLevel    int
		pageCacheMiB int
		printURI     bool
		printTuning  bool
		createGRI    string
		ridCol       string
		begCol       string
		endCol       string
		floor        int
		detectLevels string
		loadAssembly string
		showVersion  bool
		showHelp     bool
	)

	flag.StringVar(&configFile, "config", "", "Path to gsqlite configuration file (YAML or JSON)")
	flag.StringVar(&dbFile, "db", "", "Path to the GenomicSQLite database file")
	flag.IntVar(&zstdLevel, "zstd-level", 0, "zstd compression level (0 keeps the configured default)")
	flag.IntVar(&pageCacheMiB, "page-cache-mib", 0, "Page cache size in MiB (0 keeps the configured default)")
	flag.BoolVar(&printURI, "print-uri", false, "Print the zstd-VFS connection URI for --db and exit")
	flag.BoolVar(&printTuning, "print-tuning", false, "Print the tuning pragma script and exit")
	flag.StringVar(&createGRI, "create-gri", "", "Create a Genomic Range Index on the named table")
	flag.StringVar(&ridCol, "rid-col", "rid", "Reference sequence id column for --create-gri")
	flag.StringVar(&begCol, "beg-col", "beg", "Range-begin column for --create-gri")
	flag.StringVar(&endCol, "end-col", "end", "Range-end column for --create-gri")
	flag.IntVar(&floor, "floor", -1, "Minimum GRI bin level for --create-gri (-1 means 0)")
	flag.StringVar(&detectLevels, "detect-levels", "", "Report the occupied GRI level range for the named table")
	flag.StringVar(&loadAssembly, "load-assembly", "", "Load a built-in reference sequence catalogue by assembly name")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showHelp, "help", false, "Show help message")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "gsqlite - GenomicSQLite operator tool\n\n")
		fmt.Fprintf(os.Stderr, "Usage: gsqlite --db FILE [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  gsqlite --db genomes.db --print-uri\n")
		fmt.Fprintf(os.Stderr, "  gsqlite --db genomes.db --create-gri features --rid-col chrom_id\n")
		fmt.Fprintf(os.Stderr, "  gsqlite --db genomes.db --detect-levels features\n")
		fmt.Fprintf(os.Stderr, "  gsqlite --db genomes.db --load-assembly GRCh38_no_alt_analysis_set\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  GENOMICSQLITE_DB_FILE           Database file path\n")
		fmt.Fprintf(os.Stderr, "  GENOMICSQLITE_DEFAULT_ASSEMBLY  Assembly to load when --load-assembly is omitted\n")
		fmt.Fprintf(os.Stderr, "  GENOMICSQLITE_ZSTD_LEVEL        zstd compression level\n")
		fmt.Fprintf(os.Stderr, "  GENOMICSQLITE_PAGE_CACHE_MIB    Page cache size in MiB\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if showVersion {
		fmt.Printf("gsqlite version %s (commit: %s, extension %s)\n", version, commit, gsqlite.Version())
		os.Exit(0)
	}

	cfg, err := loadCLIConfig(configFile, dbFile, zstdLevel, pageCacheMiB)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if cfg.LogFile != "" {
		logOut, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("failed to open log file %s: %v", cfg.LogFile, err)
		}
		defer logOut.Close()
		log.SetOutput(logOut)
	}
	if cfg.DBFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	optionsJSON, err := json.Marshal(cfg.Options)
	if err != nil {
		log.Fatalf("failed to marshal options: %v", err)
	}

	ctx := context.Background()

	if printURI || printTuning {
		db, err := gsqlite.Open(ctx, ":memory:", string(optionsJSON))
		if err != nil {
			log.Fatalf("%v", err)
		}
		defer db.Close()
		if printURI {
			printSQL(db, "SELECT genomicsqlite_uri(?, ?)", cfg.DBFile, string(optionsJSON))
		}
		if printTuning {
			printSQL(db, "SELECT genomicsqlite_tuning_sql(?)", string(optionsJSON))
		}
		return
	}

	db, err := gsqlite.Open(ctx, cfg.DBFile, string(optionsJSON))
	if err != nil {
		log.Fatalf("failed to open %s: %v", cfg.DBFile, err)
	}
	defer db.Close()

	switch {
	case createGRI != "":
		runCreateGRI(ctx, db, createGRI, ridCol, begCol, endCol, floor)
	case detectLevels != "":
		runDetectLevels(ctx, db, detectLevels)
	case loadAssembly != "" || cfg.DefaultAssembly != "":
		assembly := loadAssembly
		if assembly == "" {
			assembly = cfg.DefaultAssembly
		}
		runLoadAssembly(ctx, db, assembly)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func loadCLIConfig(configFile, dbFile string, zstdLevel, pageCacheMiB int) (*gsqliteconfig.Config, error) {
	var cfg *gsqliteconfig.Config
	var err error

	if configFile != "" {
		cfg, err = gsqliteconfig.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = gsqliteconfig.DefaultConfig()
	}

	gsqliteconfig.LoadFromEnv(cfg)

	if dbFile != "" {
		cfg.DBFile = dbFile
	}
	if zstdLevel != 0 {
		cfg.Options.ZstdLevel = zstdLevel
	}
	if pageCacheMiB != 0 {
		cfg.Options.PageCacheMiB = pageCacheMiB
	}
	return cfg, nil
}

func printSQL(db *sql.DB, query string, args ...interface{}) {
	var result string
	if err := db.QueryRow(query, args...).Scan(&result); err != nil {
		log.Fatalf("query failed: %v", err)
	}
	fmt.Println(result)
}

func runCreateGRI(ctx context.Context, db *sql.DB, table, ridCol, begCol, endCol string, floor int) {
	ddl, err := gri.CreateGenomicRangeIndexSQL(table, ridCol, begCol, endCol, floor)
	if err != nil {
		log.Fatalf("failed to build GRI schema for %s: %v", table, err)
	}
	runID := uuid.New().String()
	for _, stmt := range splitStatements(ddl) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Fatalf("[%s] failed executing %q: %v", runID, stmt, err)
		}
	}
	log.Printf("[%s] created Genomic Range Index on %s", runID, table)
}

func runDetectLevels(ctx context.Context, db *sql.DB, table string) {
	levels, err := gri.DetectLevelRange(ctx, db, table)
	if err != nil {
		log.Fatalf("failed to detect level range for %s: %v", table, err)
	}
	fmt.Printf("%s: min=%d max=%d\n", table, levels.Min, levels.Max)
}

func runLoadAssembly(ctx context.Context, db *sql.DB, assembly string) {
	ddl, err := refseq.PutAssemblySQL(assembly, "")
	if err != nil {
		log.Fatalf("failed to build catalogue load for %s: %v", assembly, err)
	}
	for _, stmt := range splitStatements(ddl) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Fatalf("failed executing %q: %v", stmt, err)
		}
	}
	log.Printf("loaded reference sequence catalogue for %s", assembly)
}

func splitStatements(script string) []string {
	var out []string
	start := 0
	for i := 0; i+1 < len(script); i++ {
		if script[i] == ';' && script[i+1] == '\n' {
			out = append(out, script[start:i])
			start = i + 2
		}
	}
	out = append(out, script[start:])
	return out
}
