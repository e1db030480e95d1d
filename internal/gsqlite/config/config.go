// Package config implements the GenomicSQLite configuration merger (C1): a
// typed record over the small set of options the extension recognizes, with
// defaults and typed accessors. It deliberately does not represent the
// caller's options document as a general JSON value in the hot path.
package config

import (
	"encoding/json"
	"runtime"

	"github.com/mlin/genomicsqlite/internal/gsqlite/gerrors"
)

// Options holds the merged, typed configuration recognized by GenomicSQLite.
// Field names mirror the option keys in the options document.
type Options struct {
	UnsafeLoad    bool   `json:"unsafe_load" yaml:"unsafe_load"`
	Immutable     bool   `json:"immutable" yaml:"immutable"`
	PageCacheMiB  int    `json:"page_cache_MiB" yaml:"page_cache_MiB"`
	Threads       int    `json:"threads" yaml:"threads"`
	ForcePrefetch bool   `json:"force_prefetch" yaml:"force_prefetch"`
	ZstdLevel     int    `json:"zstd_level" yaml:"zstd_level"`
	InnerPageKiB  int    `json:"inner_page_KiB" yaml:"inner_page_KiB"`
	OuterPageKiB  int    `json:"outer_page_KiB" yaml:"outer_page_KiB"`
	Mode          string `json:"mode" yaml:"mode"`
}

// Defaults returns the built-in default configuration.
func Defaults() Options {
	return Options{
		UnsafeLoad:    false,
		Immutable:     false,
		PageCacheMiB:  1024,
		Threads:       -1,
		ForcePrefetch: false,
		ZstdLevel:     6,
		InnerPageKiB:  16,
		OuterPageKiB:  32,
		Mode:          "",
	}
}

// document is the shape accepted from callers: an arbitrary subset of the
// recognized keys. Unrecognized keys are ignored, matching the original
// extension's tolerant merge behavior.
type document struct {
	UnsafeLoad    *bool   `json:"unsafe_load"`
	Immutable     *bool   `json:"immutable"`
	PageCacheMiB  *int    `json:"page_cache_MiB"`
	Threads       *int    `json:"threads"`
	ForcePrefetch *bool   `json:"force_prefetch"`
	ZstdLevel     *int    `json:"zstd_level"`
	InnerPageKiB  *int    `json:"inner_page_KiB"`
	OuterPageKiB  *int    `json:"outer_page_KiB"`
	Mode          *string `json:"mode"`
}

// Merge parses a possibly-empty JSON options document and layers it over the
// built-in defaults, returning the merged, typed Options. An empty document
// yields Defaults() with the threads=-1 sentinel resolved. Malformed JSON
// yields InvalidConfig; a value present at a recognized key but of the wrong
// JSON type yields ConfigTypeMismatch.
func Merge(optionsJSON string) (Options, error) {
	opts := Defaults()
	if optionsJSON == "" {
		return resolveThreads(opts), nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(optionsJSON), &raw); err != nil {
		return Options{}, gerrors.InvalidConfig("options document is not a JSON object: " + err.Error())
	}

	var doc document
	// Decode field-by-field so a type mismatch on one key can be reported
	// with that key's path, rather than failing the whole unmarshal.
	for key, value := range raw {
		var typeErr error
		switch key {
		case "unsafe_load":
			typeErr = decodeBool(value, &doc.UnsafeLoad, key)
		case "immutable":
			typeErr = decodeBool(value, &doc.Immutable, key)
		case "page_cache_MiB":
			typeErr = decodeInt(value, &doc.PageCacheMiB, key)
		case "threads":
			typeErr = decodeInt(value, &doc.Threads, key)
		case "force_prefetch":
			typeErr = decodeBool(value, &doc.ForcePrefetch, key)
		case "zstd_level":
			typeErr = decodeInt(value, &doc.ZstdLevel, key)
		case "inner_page_KiB":
			typeErr = decodeInt(value, &doc.InnerPageKiB, key)
		case "outer_page_KiB":
			typeErr = decodeInt(value, &doc.OuterPageKiB, key)
		case "mode":
			typeErr = decodeString(value, &doc.Mode, key)
		default:
			// Unrecognized keys are ignored.
		}
		if typeErr != nil {
			return Options{}, typeErr
		}
	}

	if doc.UnsafeLoad != nil {
		opts.UnsafeLoad = *doc.UnsafeLoad
	}
	if doc.Immutable != nil {
		opts.Immutable = *doc.Immutable
	}
	if doc.PageCacheMiB != nil {
		opts.PageCacheMiB = *doc.PageCacheMiB
	}
	if doc.Threads != nil {
		opts.Threads = *doc.Threads
	}
	if doc.ForcePrefetch != nil {
		opts.ForcePrefetch = *doc.ForcePrefetch
	}
	if doc.ZstdLevel != nil {
		opts.ZstdLevel = *doc.ZstdLevel
	}
	if doc.InnerPageKiB != nil {
		opts.InnerPageKiB = *doc.InnerPageKiB
	}
	if doc.OuterPageKiB != nil {
		opts.OuterPageKiB = *doc.OuterPageKiB
	}
	if doc.Mode != nil {
		opts.Mode = *doc.Mode
	}

	if !PowerOfTwoInRange(opts.InnerPageKiB, 1, 64) {
		return Options{}, gerrors.InvalidConfig("inner_page_KiB must be a power of two from 1 to 64")
	}
	if !PowerOfTwoInRange(opts.OuterPageKiB, 1, 64) {
		return Options{}, gerrors.InvalidConfig("outer_page_KiB must be a power of two from 1 to 64")
	}

	opts = resolveThreads(opts)
	return opts, nil
}

func decodeBool(raw json.RawMessage, dst **bool, key string) error {
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return gerrors.ConfigTypeMismatch(key, "bool", "?")
	}
	*dst = &v
	return nil
}

func decodeInt(raw json.RawMessage, dst **int, key string) error {
	var v int
	if err := json.Unmarshal(raw, &v); err != nil {
		return gerrors.ConfigTypeMismatch(key, "int", "?")
	}
	*dst = &v
	return nil
}

func decodeString(raw json.RawMessage, dst **string, key string) error {
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return gerrors.ConfigTypeMismatch(key, "string", "?")
	}
	*dst = &v
	return nil
}

// resolveThreads expands the threads=-1 sentinel to min(8, NumCPU).
func resolveThreads(opts Options) Options {
	if opts.Threads < 0 {
		n := runtime.NumCPU()
		if n > 8 {
			n = 8
		}
		opts.Threads = n
	}
	return opts
}

// DefaultConfigJSON renders the built-in defaults as the JSON document the
// genomicsqlite_default_config_json() scalar function returns.
func DefaultConfigJSON() (string, error) {
	b, err := json.Marshal(Defaults())
	if err != nil {
		return "", gerrors.Wrap(gerrors.KindInvalidConfig, "failed to marshal defaults", err)
	}
	return string(b), nil
}

// PowerOfTwoInRange reports whether v is a power of two in [lo, hi].
func PowerOfTwoInRange(v, lo, hi int) bool {
	if v < lo || v > hi {
		return false
	}
	return v&(v-1) == 0
}
