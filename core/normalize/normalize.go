// Package normalize implements the Normaliser stage (§4.2): it rewrites a
// RawQuery's named bind parameters (`:name`) into positional placeholders
// (`$1`, `$2`, ...) ready for PREPARE, and records the deduplicated,
// lexicographically-ordered parameter list the rest of the pipeline keys
// off of.
package normalize

import (
	"sort"
	"strconv"

	"github.com/quillhq/pgquery/core/dsl"
	"github.com/quillhq/pgquery/internal/span"
)

// Result is the output of normalising one RawQuery.
type Result struct {
	// SQL is the query text with every `:name` replaced by its positional
	// placeholder.
	SQL string
	// Binds is the deduplicated bind list in the lexicographic order that
	// assigns each name its $k index — index i holds the name bound to
	// $(i+1). This order is a stability contract (§4.2): implementations
	// must not renumber by first occurrence.
	Binds []span.Spanned[string]
}

// Query normalises one RawQuery per §4.2:
//  1. sort binds by name, dedupe adjacent equals -> unique_binds
//  2. for each original occurrence, compute its local offset and pair it
//     with "$" + (index in unique_binds + 1)
//  3. apply all replacements in descending order of start offset so
//     earlier offsets stay valid.
func Query(q dsl.RawQuery) Result {
	unique := uniqueSorted(q.Binds)
	indexOf := make(map[string]int, len(unique))
	for i, b := range unique {
		indexOf[b.Value] = i
	}

	type replacement struct {
		start, end int
		text       string
	}
	repls := make([]replacement, len(q.Binds))
	for i, b := range q.Binds {
		idx := indexOf[b.Name.Value]
		localStart := b.Name.Span.Start - q.SQLOffset
		localEnd := b.Name.Span.End - q.SQLOffset
		repls[i] = replacement{start: localStart, end: localEnd, text: placeholder(idx + 1)}
	}
	sort.Slice(repls, func(i, j int) bool { return repls[i].start > repls[j].start })

	out := []byte(q.SQLText)
	for _, r := range repls {
		var buf []byte
		buf = append(buf, out[:r.start]...)
		buf = append(buf, r.text...)
		buf = append(buf, out[r.end:]...)
		out = buf
	}

	return Result{SQL: string(out), Binds: unique}
}

// uniqueSorted sorts binds lexicographically by name and collapses
// adjacent equal names, producing the stable parameter ordering §4.2
// mandates. The span kept for each unique name is that of its first
// occurrence after sorting.
func uniqueSorted(binds []dsl.BindParam) []span.Spanned[string] {
	names := make([]span.Spanned[string], len(binds))
	for i, b := range binds {
		names[i] = b.Name
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Value < names[j].Value })

	var out []span.Spanned[string]
	for i, n := range names {
		if i == 0 || n.Value != names[i-1].Value {
			out = append(out, n)
		}
	}
	return out
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
