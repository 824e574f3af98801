// Package dsl implements the Grammar & Parser stage (§4.1): it reads the
// annotated query DSL embedded in SQL files and produces a ParsedModule —
// an AST of type declarations, query annotations, and raw SQL bodies.
package dsl

import "github.com/quillhq/pgquery/internal/span"

// TypeAnnotationKind discriminates the three struct kinds a `--:` line can
// declare. A Param or Row kind names a struct used by a query; a Db kind
// pins the expected shape of a database composite type.
type TypeAnnotationKind int

const (
	Param TypeAnnotationKind = iota
	Row
	Db
)

func (k TypeAnnotationKind) String() string {
	switch k {
	case Param:
		return "PARAM"
	case Row:
		return "ROW"
	case Db:
		return "DB"
	default:
		return "UNKNOWN"
	}
}

// Field is one entry of a field list: `name` or `name?`. The `?` marks the
// field nullable, overriding whatever default nullability the validator
// would otherwise apply.
type Field struct {
	Name     span.Spanned[string]
	Nullable bool
}

// NamedStructDecl is a `--: KIND Name(field[?], ...)` declaration. Field
// order is significant — it dictates the constructor/emission order of the
// generated type (§3 invariant 1).
type NamedStructDecl struct {
	Kind   TypeAnnotationKind
	Name   span.Spanned[string]
	Fields []Field
}

// ShapeKind discriminates the three forms a query's param/row shape can
// take (§3 QueryShape).
type ShapeKind int

const (
	ShapeNone ShapeKind = iota
	ShapeImplicit
	ShapeNamed
)

// Shape is the parameter or row shape attached to a query annotation.
// Exactly one of Fields (ShapeImplicit) or Ref (ShapeNamed) is meaningful,
// selected by Kind; ShapeNone carries neither.
type Shape struct {
	Kind   ShapeKind
	Fields []Field             // ShapeImplicit
	Ref    span.Spanned[string] // ShapeNamed
}

// QueryAnnotation is the parsed `--! name [param-shape] [: row-shape]`
// header line.
type QueryAnnotation struct {
	Name  span.Spanned[string]
	Param Shape
	Row   Shape
}

// BindParam is one `:ident` occurrence inside a query's SQL body. The span
// is file-absolute; the same name may occur more than once, each with its
// own span (§3 BindParam).
type BindParam struct {
	Name span.Spanned[string]
}

// RawQuery is one complete `--!` query block: its header annotation, the
// literal SQL text that follows it, that text's offset within the source
// file, and every bind occurrence found inside it in source order.
type RawQuery struct {
	Annotation QueryAnnotation
	SQLText    string
	SQLOffset  int
	Binds      []BindParam
}

// ParsedModule is the parse result for one source file: its declared
// structs grouped by kind, and its queries in source order.
type ParsedModule struct {
	Path      string
	ParamDecls []NamedStructDecl
	RowDecls   []NamedStructDecl
	DbDecls    []NamedStructDecl
	Queries    []RawQuery
}
