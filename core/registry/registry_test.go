package registry_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/quillhq/pgquery/core/registry"
)

func TestIntern_idempotent(t *testing.T) {
	c := qt.New(t)

	r := registry.New()
	calls := 0
	ctor := func() registry.Type {
		calls++
		return registry.Type{Kind: registry.KindSimple, Name: "int4"}
	}

	id1 := r.Intern("pg_catalog", "int4", ctor)
	id2 := r.Intern("pg_catalog", "int4", func() registry.Type {
		t.Fatal("ctor must not be re-evaluated for an already-interned key")
		return registry.Type{}
	})

	c.Assert(id1, qt.Equals, id2)
	c.Assert(calls, qt.Equals, 1)
}

func TestIntern_distinctSchemasDistinctIds(t *testing.T) {
	c := qt.New(t)

	r := registry.New()
	id1 := r.Intern("a", "point", func() registry.Type { return registry.Type{Kind: registry.KindComposite, Name: "point"} })
	id2 := r.Intern("b", "point", func() registry.Type { return registry.Type{Kind: registry.KindComposite, Name: "point"} })

	c.Assert(id1, qt.Not(qt.Equals), id2, qt.Commentf("same unqualified name in different schemas must not collide"))
}

func TestReserveAndLookupOid(t *testing.T) {
	c := qt.New(t)

	r := registry.New()
	id := r.Intern("pg_catalog", "text", func() registry.Type { return registry.Type{Kind: registry.KindSimple, Name: "text", PGOid: 25} })
	r.ReserveOid(25, id)

	got, ok := r.LookupOid(25)
	c.Assert(ok, qt.IsTrue)
	c.Assert(got, qt.Equals, id)

	_, ok = r.LookupOid(999)
	c.Assert(ok, qt.IsFalse)
}

func TestSetOverwritesPlaceholder(t *testing.T) {
	c := qt.New(t)

	r := registry.New()
	id := r.Intern("public", "point", func() registry.Type { return registry.Type{Kind: registry.KindComposite, Name: "point"} })
	r.Set(id, registry.Type{
		Kind: registry.KindComposite,
		Name: "point",
		Fields: []registry.CompositeField{
			{Name: "x", Type: 0, Nullable: false},
			{Name: "y", Type: 0, Nullable: false},
		},
	})

	got := r.Get(id)
	c.Assert(got.Fields, qt.HasLen, 2)
	c.Assert(got.Fields[0].Name, qt.Equals, "x")
}

func TestGet_invalidIdPanics(t *testing.T) {
	c := qt.New(t)

	r := registry.New()
	c.Assert(func() { r.Get(registry.TypeId(42)) }, qt.PanicMatches, ".*invalid TypeId.*")
}

func TestLen(t *testing.T) {
	c := qt.New(t)

	r := registry.New()
	c.Assert(r.Len(), qt.Equals, 0)
	r.Intern("pg_catalog", "int4", func() registry.Type { return registry.Type{Kind: registry.KindSimple, Name: "int4"} })
	r.Intern("pg_catalog", "int8", func() registry.Type { return registry.Type{Kind: registry.KindSimple, Name: "int8"} })
	c.Assert(r.Len(), qt.Equals, 2)
}
