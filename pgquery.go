// Package pgquery is the library entry point for the compiler pipeline: it
// wires the Grammar & Parser, Normaliser, Preparer, Type Registrar,
// Validator, and IR Assembly stages together behind a single Compile call,
// so a consumer's own build step (a `go:generate` directive, or the thin
// cmd/pgquery CLI) can drive the whole pipeline without importing each
// stage package individually.
package pgquery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/quillhq/pgquery/config"
	"github.com/quillhq/pgquery/core/catalog"
	"github.com/quillhq/pgquery/core/dsl"
	"github.com/quillhq/pgquery/core/ir"
	"github.com/quillhq/pgquery/core/normalize"
	"github.com/quillhq/pgquery/core/registry"
	"github.com/quillhq/pgquery/core/validate"
)

// Compile runs the full pipeline over opts.QueryGlobs against db, returning
// the assembled Project. The caller owns db's lifecycle (including loading
// opts.SchemaGlobs into it beforehand); that is the managed-database
// collaborator this package treats as external (spec §1).
func Compile(ctx context.Context, db catalog.DB, opts *config.Options) (*ir.Project, error) {
	paths, err := expandGlobs(opts.QueryGlobs)
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	prep := catalog.New(db, reg, opts.SearchPath, opts.NullableOverrides)

	project := &ir.Project{Types: reg}
	for _, path := range paths {
		mod, err := compileModule(ctx, prep, path)
		if err != nil {
			return nil, err
		}
		project.Modules = append(project.Modules, *mod)
	}
	return project, nil
}

// expandGlobs resolves every glob and returns the matches in sorted path
// order, deduplicated, so IR assembly is reproducible regardless of
// filesystem iteration or glob match order (§5).
func expandGlobs(globs []string) ([]string, error) {
	seen := map[string]bool{}
	var paths []string
	for _, g := range globs {
		matches, err := filepath.Glob(g)
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", g, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func compileModule(ctx context.Context, prep *catalog.Preparer, path string) (*ir.Module, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	parsed, err := dsl.ParseModule(path, string(src))
	if err != nil {
		return nil, err
	}

	decls, err := validate.NewDecls(parsed.ParamDecls, parsed.RowDecls, parsed.DbDecls)
	if err != nil {
		return nil, err
	}

	if err := validateDbDecls(ctx, prep, decls); err != nil {
		return nil, err
	}

	builder := ir.NewBuilder(path)
	for _, rq := range parsed.Queries {
		norm := normalize.Query(rq)

		desc, err := prep.Prepare(ctx, rq.Annotation.Name, norm.SQL)
		if err != nil {
			return nil, err
		}

		q, err := decls.Query(rq.Annotation.Name, rq.Annotation, norm.Binds, desc, norm.SQL)
		if err != nil {
			return nil, err
		}
		builder.Add(q)
	}

	mod := builder.Build()
	return &mod, nil
}

// validateDbDecls pins every `--: DB` declaration in the module against the
// composite type it names, per §4.5 step 3. It resolves the named
// composite via a throwaway `regtype` cast so the Preparer's normal OID
// walk interns it, then reconciles field order and nullability. Db decls
// are walked in sorted-name order so which one surfaces first in a
// multi-error module never depends on map iteration (§13).
func validateDbDecls(ctx context.Context, prep *catalog.Preparer, decls *validate.Decls) error {
	names := make([]string, 0, len(decls.Db))
	for name := range decls.Db {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		decl := decls.Db[name]
		id, err := prep.ResolveNamedComposite(ctx, decl.Name)
		if err != nil {
			return err
		}
		if err := validate.Db(decl, prep.Registry(), id); err != nil {
			return err
		}
	}
	return nil
}
