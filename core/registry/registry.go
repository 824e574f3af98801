// Package registry owns the TypeRegistry (§3/§4.4): the process-local
// mapping from a database type's (schema, name) identity to a TypeId, and
// from a TypeId to its resolved shape. Intern is idempotent — two lookups
// of the same database type, however they're reached, yield the same
// TypeId.
package registry

import (
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// TypeId is an opaque handle into a Registry. Two TypeIds compare equal
// iff they name the same interned type.
type TypeId int

// Kind discriminates the CornucopiaType variants of §3.
type Kind int

const (
	KindSimple Kind = iota
	KindArray
	KindDomain
	KindComposite
	KindEnum
)

// CompositeField is one attribute of a Composite type, in attnum order.
type CompositeField struct {
	Name     string
	Type     TypeId
	Nullable bool
}

// Type is the resolved type graph node (§3 CornucopiaType). Only the
// fields relevant to Kind are meaningful; the zero value of the others is
// unused.
type Type struct {
	Kind Kind

	// Simple / Domain / Composite / Enum all carry a Name.
	Name string

	// KindSimple only.
	PGOid uint32

	// KindArray / KindDomain: the element/base type.
	Inner TypeId

	// KindComposite only, ordered by attnum.
	Fields []CompositeField

	// KindEnum only, in catalog sort order.
	Variants []string
}

// key identifies a database type by its schema-qualified name. Two types
// with the same unqualified name in different schemas are distinct keys
// and get distinct TypeIds — the registrar does not reject that collision
// (§4.4); disambiguating it is the emitter's problem.
type key struct {
	schema string
	name   string
}

// Registry is the process-local type graph. It is mutated only by the
// Preparer during preparation (§5) and is read-only afterwards.
type Registry struct {
	byKey   map[key]TypeId
	byOid   map[uint32]TypeId
	types   []Type
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		byKey: make(map[key]TypeId),
		byOid: make(map[uint32]TypeId),
	}
}

// Intern returns the TypeId for (schema, name), constructing it via ctor
// on first lookup. A second call with the same key returns the existing
// id regardless of what ctor would build — Intern never re-evaluates
// ctor for a key it already holds.
func (r *Registry) Intern(schema, name string, ctor func() Type) TypeId {
	// Normalize to NFC before using schema/name as a map key, so two
	// visually-identical but differently-composed Unicode identifiers
	// (e.g. a precomposed vs. combining-character accent) intern to the
	// same TypeId instead of silently producing two.
	k := key{schema: norm.NFC.String(schema), name: norm.NFC.String(name)}
	if id, ok := r.byKey[k]; ok {
		return id
	}
	id := TypeId(len(r.types))
	r.types = append(r.types, Type{}) // placeholder, breaks composite self-reference cycles
	r.byKey[k] = id
	r.types[id] = ctor()
	return id
}

// ReserveOid records that oid maps to id, so a later LookupOid for the
// same oid short-circuits straight to the already-interned type (§4.3).
func (r *Registry) ReserveOid(oid uint32, id TypeId) {
	r.byOid[oid] = id
}

// LookupOid reports the TypeId already interned for oid, if any.
func (r *Registry) LookupOid(oid uint32) (TypeId, bool) {
	id, ok := r.byOid[oid]
	return id, ok
}

// Get returns the resolved Type for id. It panics on an out-of-range id,
// since every TypeId in circulation was handed out by this same Registry.
func (r *Registry) Get(id TypeId) Type {
	if int(id) < 0 || int(id) >= len(r.types) {
		panic(fmt.Sprintf("registry: invalid TypeId %d", id))
	}
	return r.types[id]
}

// Set overwrites the Type stored at id — used by the Preparer to fill in
// a Composite's fields after its placeholder has already been handed out
// to break a cycle (§4.3 "Cycle handling").
func (r *Registry) Set(id TypeId, t Type) {
	r.types[id] = t
}

// Len reports how many types have been interned.
func (r *Registry) Len() int {
	return len(r.types)
}
