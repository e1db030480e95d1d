// Package gerrors provides the structured error taxonomy used throughout the
// genomicsqlite packages. Every failure path that is not a direct passthrough
// of a host-engine error returns one of these, classified by Kind.
package gerrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error by which part of the contract it violates.
type Kind string

const (
	KindInvalidConfig       Kind = "INVALID_CONFIG"
	KindConfigTypeMismatch  Kind = "CONFIG_TYPE_MISMATCH"
	KindHostTooOld          Kind = "HOST_TOO_OLD"
	KindExtensionLoadFailed Kind = "EXTENSION_LOAD_FAILED"
	KindInconsistentLinkage Kind = "INCONSISTENT_LINKAGE"
	KindMissingGRI          Kind = "MISSING_GRI"
	KindGRICorrupted        Kind = "GRI_CORRUPTED"
	KindInvalidFloorCeiling Kind = "INVALID_FLOOR_CEILING"
	KindUnknownAssembly     Kind = "UNKNOWN_ASSEMBLY"
	KindNamesNotUnique      Kind = "NAMES_NOT_UNIQUE"
	KindNonPrintable        Kind = "NON_PRINTABLE"
	KindHostEngine          Kind = "HOST_ENGINE"
)

// Error is the structured error type returned by every exported operation in
// this module that can fail for a documented reason.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	Cause   error
}

// Error renders a formatted error string.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *Error with the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New creates an Error with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithDetails returns a copy of e carrying additional structured details.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// GetKind extracts the Kind from an error chain, or "" if err is not an *Error.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Convenience constructors, one per catalogue entry in the error design.

func InvalidConfig(message string) *Error { return New(KindInvalidConfig, message) }

func ConfigTypeMismatch(path string, wantKind, gotKind string) *Error {
	return New(KindConfigTypeMismatch, fmt.Sprintf("option %q: expected %s, got %s", path, wantKind, gotKind))
}

func HostTooOld(have, want string) *Error {
	return New(KindHostTooOld, fmt.Sprintf("host engine version %s is below the required minimum %s", have, want))
}

func ExtensionLoadFailed(cause error) *Error {
	return Wrap(KindExtensionLoadFailed, "failed to load genomicsqlite extension", cause)
}

func InconsistentLinkage(message string) *Error { return New(KindInconsistentLinkage, message) }

func MissingGRI(table string) *Error {
	return New(KindMissingGRI, fmt.Sprintf("table %q has no genomic range index", table))
}

func GRICorrupted(table, detail string) *Error {
	return New(KindGRICorrupted, fmt.Sprintf("table %q genomic range index is corrupted: %s", table, detail))
}

func InvalidFloorCeiling(floor, ceiling int) *Error {
	return New(KindInvalidFloorCeiling, fmt.Sprintf("invalid floor/ceiling (%d, %d): require 0 <= floor <= ceiling <= 15", floor, ceiling))
}

func UnknownAssembly(name string) *Error {
	return New(KindUnknownAssembly, fmt.Sprintf("unknown reference assembly %q", name))
}

func NamesNotUnique(name string) *Error {
	return New(KindNamesNotUnique, fmt.Sprintf("reference sequence name %q is not unique", name))
}

func NonPrintable(value string) *Error {
	return New(KindNonPrintable, fmt.Sprintf("value contains a non-printable byte: %q", value))
}

func HostEngine(cause error) *Error {
	return Wrap(KindHostEngine, "host engine error", cause)
}
