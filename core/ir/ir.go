// Package ir implements IR Assembly (§4.6): it turns validated queries into
// the per-module, then per-project, intermediate representation consumed by
// a separate emitter. Ordering throughout is deterministic and never backed
// by map iteration (§13).
package ir

import (
	"github.com/quillhq/pgquery/core/registry"
	"github.com/quillhq/pgquery/core/validate"
)

// PreparedQuery is one fully-resolved query ready for emission (§3).
type PreparedQuery struct {
	Name          string
	ParamFields   []validate.Field
	RowFields     []validate.Field
	NormalisedSQL string
}

// Module is one source file's IR: the TypeIds first referenced by its
// queries, in first-reference order, and its queries in source order (§4.6).
type Module struct {
	Path    string
	Types   []registry.TypeId
	Queries []PreparedQuery
}

// Project is the complete IR handed to the emitter (§6 "IR interface
// produced").
type Project struct {
	Modules []Module
	Types   *registry.Registry
}

// Builder accumulates one Module's IR while walking its queries in source
// order, recording each newly-seen TypeId the first time a query
// references it.
type Builder struct {
	path    string
	seen    map[registry.TypeId]bool
	types   []registry.TypeId
	queries []PreparedQuery
}

// NewBuilder starts a Module builder for the file at path.
func NewBuilder(path string) *Builder {
	return &Builder{path: path, seen: map[registry.TypeId]bool{}}
}

// Add records one validated query and the TypeIds it references, in
// first-reference order across the module (§4.6 "types in the order of
// first reference across queries in annotation order").
func (b *Builder) Add(q *validate.Query) {
	for _, f := range q.ParamFields {
		b.touch(f.Type)
	}
	for _, f := range q.RowFields {
		b.touch(f.Type)
	}
	b.queries = append(b.queries, PreparedQuery{
		Name:          q.Name,
		ParamFields:   q.ParamFields,
		RowFields:     q.RowFields,
		NormalisedSQL: q.NormalisedSQL,
	})
}

func (b *Builder) touch(id registry.TypeId) {
	if b.seen[id] {
		return
	}
	b.seen[id] = true
	b.types = append(b.types, id)
}

// Build finalizes the Module.
func (b *Builder) Build() Module {
	return Module{Path: b.path, Types: b.types, Queries: b.queries}
}
