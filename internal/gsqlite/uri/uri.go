// Package uri implements the GenomicSQLite URI builder (C2): composing a
// host-engine file URI that selects the stacked compressed VFS and sets its
// parameters from a merged configuration.
package uri

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/mlin/genomicsqlite/internal/gsqlite/config"
)

// Build composes the file: URI for dbfile under the merged options. Parameter
// order matches the reference implementation exactly, since consumers outside
// this module may construct equivalent URIs directly and byte-for-byte
// compatibility with the stacked VFS contract is part of the persisted ABI.
func Build(dbfile string, opts config.Options) string {
	var b strings.Builder
	b.WriteString("file:")
	b.WriteString(escapePath(dbfile))
	b.WriteString("?vfs=zstd")

	fmt.Fprintf(&b, "&outer_cache_size=%d", -64*opts.PageCacheMiB)
	fmt.Fprintf(&b, "&threads=%d", opts.Threads)
	if opts.Mode != "" {
		b.WriteString("&mode=")
		b.WriteString(opts.Mode)
	}
	fmt.Fprintf(&b, "&outer_page_size=%d", opts.OuterPageKiB*1024)
	fmt.Fprintf(&b, "&level=%d", opts.ZstdLevel)
	if opts.Immutable {
		b.WriteString("&immutable=1")
	}
	if opts.UnsafeLoad {
		b.WriteString("&nolock=1&outer_unsafe")
	}
	if opts.Threads > 1 && opts.InnerPageKiB < 16 && !opts.ForcePrefetch {
		b.WriteString("&noprefetch=1")
	}
	return b.String()
}

// escapePath percent-encodes dbfile the way a URI path segment requires,
// while leaving forward slashes intact so the result still reads as a path.
func escapePath(dbfile string) string {
	segments := strings.Split(dbfile, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
