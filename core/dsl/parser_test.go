package dsl_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/quillhq/pgquery/core/dsl"
)

func TestParseModule_typeDecl(t *testing.T) {
	c := qt.New(t)

	src := "--: PARAM NewBook(title?, author)\n"
	mod, err := dsl.ParseModule("t.sql", src)
	c.Assert(err, qt.IsNil)
	c.Assert(mod.ParamDecls, qt.HasLen, 1)

	decl := mod.ParamDecls[0]
	c.Assert(decl.Name.Value, qt.Equals, "NewBook")
	c.Assert(decl.Fields, qt.HasLen, 2)
	c.Assert(decl.Fields[0].Name.Value, qt.Equals, "title")
	c.Assert(decl.Fields[0].Nullable, qt.IsTrue)
	c.Assert(decl.Fields[1].Name.Value, qt.Equals, "author")
	c.Assert(decl.Fields[1].Nullable, qt.IsFalse)
}

func TestParseModule_kindWordsAcceptedCasings(t *testing.T) {
	for _, word := range []string{"ROW", "Row", "row"} {
		t.Run(word, func(t *testing.T) {
			c := qt.New(t)
			src := "--: " + word + " R(a)\n"
			mod, err := dsl.ParseModule("t.sql", src)
			c.Assert(err, qt.IsNil)
			c.Assert(mod.RowDecls, qt.HasLen, 1)
		})
	}
}

func TestParseModule_queryWithImplicitShapes(t *testing.T) {
	c := qt.New(t)

	src := "--! find_book (id) : (title, author?)\nSELECT title, author FROM books WHERE id = :id\n"
	mod, err := dsl.ParseModule("t.sql", src)
	c.Assert(err, qt.IsNil)
	c.Assert(mod.Queries, qt.HasLen, 1)

	q := mod.Queries[0]
	c.Assert(q.Annotation.Name.Value, qt.Equals, "find_book")
	c.Assert(q.Annotation.Param.Kind, qt.Equals, dsl.ShapeImplicit)
	c.Assert(q.Annotation.Param.Fields, qt.HasLen, 1)
	c.Assert(q.Annotation.Param.Fields[0].Name.Value, qt.Equals, "id")
	c.Assert(q.Annotation.Row.Kind, qt.Equals, dsl.ShapeImplicit)
	c.Assert(q.Annotation.Row.Fields, qt.HasLen, 2)
	c.Assert(q.Binds, qt.HasLen, 1)
	c.Assert(q.Binds[0].Name.Value, qt.Equals, "id")
}

func TestParseModule_queryWithNamedParamShape(t *testing.T) {
	c := qt.New(t)

	src := "--! insert_book NewBook\nINSERT INTO books(title) VALUES (:title)\n"
	mod, err := dsl.ParseModule("t.sql", src)
	c.Assert(err, qt.IsNil)
	c.Assert(mod.Queries, qt.HasLen, 1)

	q := mod.Queries[0]
	c.Assert(q.Annotation.Param.Kind, qt.Equals, dsl.ShapeNamed)
	c.Assert(q.Annotation.Param.Ref.Value, qt.Equals, "NewBook")
	c.Assert(q.Annotation.Row.Kind, qt.Equals, dsl.ShapeNone)
}

func TestParseModule_multipleQueriesSplitOnNextAnnotation(t *testing.T) {
	c := qt.New(t)

	src := "--! first\nSELECT 1\n--! second\nSELECT 2\n"
	mod, err := dsl.ParseModule("t.sql", src)
	c.Assert(err, qt.IsNil)
	c.Assert(mod.Queries, qt.HasLen, 2)
	c.Assert(mod.Queries[0].Annotation.Name.Value, qt.Equals, "first")
	c.Assert(mod.Queries[0].SQLText, qt.Equals, "SELECT 1")
	c.Assert(mod.Queries[1].Annotation.Name.Value, qt.Equals, "second")
	c.Assert(mod.Queries[1].SQLText, qt.Equals, "SELECT 2")
}

func TestParseModule_unknownKindFails(t *testing.T) {
	c := qt.New(t)

	_, err := dsl.ParseModule("t.sql", "--: WAT Foo(a)\n")
	c.Assert(err, qt.ErrorMatches, ".*unknown type annotation kind.*")
}

func TestParseModule_duplicateFieldFails(t *testing.T) {
	c := qt.New(t)

	_, err := dsl.ParseModule("t.sql", "--: ROW R(a, a)\n")
	c.Assert(err, qt.ErrorMatches, ".*duplicate field.*")
}

func TestParseModule_unterminatedStringFails(t *testing.T) {
	c := qt.New(t)

	_, err := dsl.ParseModule("t.sql", "--! q\nSELECT 'oops\n")
	c.Assert(err, qt.ErrorMatches, ".*unterminated.*")
}
