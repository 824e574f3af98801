// Package span provides the diagnostic source-location type shared by every
// stage of the compiler pipeline.
package span

import "fmt"

// Span is a half-open byte range [Start, End) into a named source file.
// Every user-meaningful token produced by the parser carries a Span so
// later stages can point diagnostics back at the original text.
type Span struct {
	Path  string
	Start int
	End   int
}

// String renders the span as "path:start-end" for error messages.
func (s Span) String() string {
	return fmt.Sprintf("%s:%d-%d", s.Path, s.Start, s.End)
}

// Len returns the number of bytes the span covers.
func (s Span) Len() int {
	return s.End - s.Start
}

// Spanned pairs a value with the Span it was parsed from. Equality,
// ordering, and hashing are defined on Value only — the Span is diagnostic
// metadata and must never affect comparison, sorting, or map keys.
type Spanned[T comparable] struct {
	Value T
	Span  Span
}

// New builds a Spanned value at the given span.
func New[T comparable](value T, sp Span) Spanned[T] {
	return Spanned[T]{Value: value, Span: sp}
}

// Key returns the comparison key for map/set use — the inner value alone.
func (s Spanned[T]) Key() T {
	return s.Value
}

// Equal reports whether two Spanned values carry the same inner value,
// ignoring their spans.
func (s Spanned[T]) Equal(other Spanned[T]) bool {
	return s.Value == other.Value
}
