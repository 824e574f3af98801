// Package pgerrors defines the typed error taxonomy surfaced by every stage
// of the pipeline (grammar, normaliser, preparer, registrar, validator).
//
// Every error tied to a source location (ParseError, NormaliseError,
// PrepareError, ValidationError) carries a Path and a span.Span so the
// (external) diagnostic renderer can point at the offending source text.
// DbError and UnknownTypeError carry neither a Path nor a Span. None of them
// are recovered locally, per the propagation policy of fail-fast-and-abort.
package pgerrors

import (
	"fmt"

	"github.com/quillhq/pgquery/internal/span"
)

// ParseError reports a malformed annotation or an unterminated string/
// comment encountered while tokenising a query file.
type ParseError struct {
	Path    string
	Span    span.Span
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse error: %s", e.Span, e.Message)
}

// NormaliseError is reserved for defence in depth: well-formed input never
// reaches a state the normaliser can't handle, so this should be
// unreachable in practice.
type NormaliseError struct {
	Path    string
	Span    span.Span
	Message string
}

func (e *NormaliseError) Error() string {
	return fmt.Sprintf("%s: normalise error: %s", e.Span, e.Message)
}

// DbError wraps a connection or protocol failure from the catalog client.
// It has no Span because it isn't tied to a specific source location.
type DbError struct {
	Message string
	Cause   error
}

func (e *DbError) Error() string {
	return fmt.Sprintf("database error: %s", e.Message)
}

func (e *DbError) Unwrap() error {
	return e.Cause
}

// PrepareError reports that the server rejected a normalised statement —
// a syntax error or a mismatch with the live schema.
type PrepareError struct {
	Path      string
	Span      span.Span
	QueryName string
	DBMessage string
}

func (e *PrepareError) Error() string {
	return fmt.Sprintf("%s: query %q: %s", e.Span, e.QueryName, e.DBMessage)
}

// UnknownTypeError means an OID returned by the server could not be
// classified by the catalog walk. In a correctly written introspection
// query this never happens; its appearance is a bug in that query, not a
// user-facing schema problem, so it is never silenced.
type UnknownTypeError struct {
	OID uint32
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown type oid %d", e.OID)
}

// ValidationKind discriminates the ValidationError subkinds of §7.
type ValidationKind int

const (
	NameMismatch ValidationKind = iota
	ArityMismatch
	UnknownNamedStruct
	UnknownDbType
	Duplicate
)

func (k ValidationKind) String() string {
	switch k {
	case NameMismatch:
		return "NameMismatch"
	case ArityMismatch:
		return "ArityMismatch"
	case UnknownNamedStruct:
		return "UnknownNamedStruct"
	case UnknownDbType:
		return "UnknownDbType"
	case Duplicate:
		return "Duplicate"
	default:
		return "Unknown"
	}
}

// ValidationError reports a reconciliation failure between a query's
// annotations and what the database actually prepared.
type ValidationError struct {
	Kind    ValidationKind
	Path    string
	Span    span.Span
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Span, e.Kind, e.Message)
}
