// Package tuning implements the GenomicSQLite tuning statement emitter (C3):
// the ordered pragma script that configures page size, cache, journalling,
// and worker threads for a connection or an attached schema.
package tuning

import (
	"fmt"
	"strings"

	"github.com/mlin/genomicsqlite/internal/gsqlite/config"
)

// Build emits a semicolon-separated pragma script for opts. schema is empty
// for the main/root schema, or the alias of an attached schema. The first
// statement always sets page_size, since the host engine requires that
// before any table is created; subsequent pragmas are emitted in the fixed
// order cache_size, max_page_count, threads (root schema only), then either
// journal_mode=MEMORY or the unsafe_load triple.
func Build(opts config.Options, schema string) string {
	prefix := ""
	if schema != "" {
		prefix = schema + "."
	}

	type pragma struct {
		name, value string
	}
	pragmas := []pragma{
		{prefix + "cache_size", fmt.Sprintf("%d", -960*opts.PageCacheMiB)},
		{prefix + "max_page_count", "2147483646"},
	}
	if schema == "" {
		pragmas = append(pragmas, pragma{"threads", fmt.Sprintf("%d", opts.Threads)})
	}
	if opts.UnsafeLoad {
		pragmas = append(pragmas,
			pragma{prefix + "journal_mode", "OFF"},
			pragma{prefix + "synchronous", "OFF"},
			pragma{prefix + "locking_mode", "EXCLUSIVE"})
	} else {
		// Transaction rollback after a crash is handled by the outer
		// compressed VFS, so the inner journal can be skipped.
		pragmas = append(pragmas, pragma{prefix + "journal_mode", "MEMORY"})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "PRAGMA %spage_size=%d", prefix, opts.InnerPageKiB*1024)
	for _, p := range pragmas {
		fmt.Fprintf(&b, "; PRAGMA %s=%s", p.name, p.value)
	}
	return b.String()
}
