package normalize_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/quillhq/pgquery/core/dsl"
	"github.com/quillhq/pgquery/core/normalize"
	"github.com/quillhq/pgquery/internal/span"
)

func rawQuery(t *testing.T, path, sqlWithBinds string) dsl.RawQuery {
	t.Helper()
	src := "--! q\n" + sqlWithBinds + "\n"
	mod, err := dsl.ParseModule(path, src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return mod.Queries[0]
}

// TestNormalize_S1 covers spec scenario S1: two occurrences of one bind
// normalise to the same placeholder.
func TestNormalize_S1(t *testing.T) {
	c := qt.New(t)

	q := rawQuery(t, "s1.sql", "SELECT * FROM t WHERE a = :x AND b = :x")
	result := normalize.Query(q)

	c.Assert(result.SQL, qt.Equals, "SELECT * FROM t WHERE a = $1 AND b = $1")
	c.Assert(result.Binds, qt.HasLen, 1)
	c.Assert(result.Binds[0].Value, qt.Equals, "x")
}

// TestNormalize_S2 covers spec scenario S2: numbering follows lexicographic
// order of the bind name, not first occurrence in the text.
func TestNormalize_S2(t *testing.T) {
	c := qt.New(t)

	q := rawQuery(t, "s2.sql", "UPDATE t SET a = :zeta, b = :alpha WHERE c = :mu")
	result := normalize.Query(q)

	c.Assert(result.SQL, qt.Equals, "UPDATE t SET a = $3, b = $1 WHERE c = $2")
	names := make([]string, len(result.Binds))
	for i, b := range result.Binds {
		names[i] = b.Value
	}
	c.Assert(names, qt.DeepEquals, []string{"alpha", "mu", "zeta"})
}

// TestNormalize_orderIndependence covers testable property 2: two queries
// with the same set of bind names in different textual order produce the
// same name -> $k mapping.
func TestNormalize_orderIndependence(t *testing.T) {
	c := qt.New(t)

	q1 := rawQuery(t, "a.sql", "SELECT :b, :a")
	q2 := rawQuery(t, "b.sql", "SELECT :a, :b")

	r1 := normalize.Query(q1)
	r2 := normalize.Query(q2)

	c.Assert(r1.Binds, qt.DeepEquals, r2.Binds)
}

// TestNormalize_manyRepeatsBackToFrontReplacement exercises the
// descending-start-offset replacement algorithm (§12 supplemented
// feature 2) against 3+ occurrences of the same name, which would corrupt
// later offsets under a naive forward replacement.
func TestNormalize_manyRepeatsBackToFrontReplacement(t *testing.T) {
	c := qt.New(t)

	q := rawQuery(t, "many.sql", "SELECT :x, :x, :x, :y")
	result := normalize.Query(q)

	c.Assert(result.SQL, qt.Equals, "SELECT $1, $1, $1, $2")
}

func TestNormalize_noBinds(t *testing.T) {
	c := qt.New(t)

	q := rawQuery(t, "none.sql", "SELECT 1")
	result := normalize.Query(q)

	c.Assert(result.SQL, qt.Equals, "SELECT 1")
	c.Assert(result.Binds, qt.HasLen, 0)
}

func TestNormalize_spansSurviveIntoBinds(t *testing.T) {
	c := qt.New(t)

	q := rawQuery(t, "spans.sql", "SELECT :named")
	result := normalize.Query(q)

	c.Assert(result.Binds[0].Span, qt.Not(qt.DeepEquals), span.Span{})
}
