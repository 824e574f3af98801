// Package config provides configuration options for the pgquery compiler
// pipeline.
//
// This package provides a simple, programmatic API for configuring a
// compile run: which schema DDL and query files to read, the schema search
// path for unqualified names, and any nullability overrides the caller
// wants to force onto specific columns. It favours a fluent builder over
// an external configuration file format.
package config

// Options holds everything one compile run needs before it touches a
// database connection (§10.3).
type Options struct {
	// SchemaGlobs names the schema DDL files applied verbatim to the
	// managed database before preparation (§6 "Schema files").
	SchemaGlobs []string

	// QueryGlobs names the annotated query files to parse. Files are
	// always walked in sorted path order regardless of glob match order
	// (§5 "Files are parsed in a stable lexical order").
	QueryGlobs []string

	// SearchPath is the schema search order consulted when an unqualified
	// type or table name could resolve in more than one schema.
	SearchPath []string

	// NullableOverrides forces the nullability of a specific column,
	// keyed "table.column", overriding whatever the introspected
	// attnotnull would otherwise say.
	NullableOverrides map[string]bool
}

// DefaultOptions returns an empty configuration with the default search
// path of just "public".
func DefaultOptions() *Options {
	return &Options{
		SearchPath:        []string{"public"},
		NullableOverrides: map[string]bool{},
	}
}

// WithSchemaGlobs returns a new Options with the given schema DDL globs,
// replacing any previously set.
func (o *Options) WithSchemaGlobs(globs ...string) *Options {
	next := o.clone()
	next.SchemaGlobs = globs
	return next
}

// WithQueryGlobs returns a new Options with the given query file globs,
// replacing any previously set.
func (o *Options) WithQueryGlobs(globs ...string) *Options {
	next := o.clone()
	next.QueryGlobs = globs
	return next
}

// WithSearchPath returns a new Options with the given schema search path,
// replacing the default.
//
// Example:
//
//	opts := config.DefaultOptions().WithSearchPath("app", "public")
func (o *Options) WithSearchPath(schemas ...string) *Options {
	next := o.clone()
	next.SearchPath = schemas
	return next
}

// WithNullableOverride returns a new Options with one additional
// "table.column" -> nullable override merged into the existing set.
func (o *Options) WithNullableOverride(table, column string, nullable bool) *Options {
	next := o.clone()
	next.NullableOverrides = make(map[string]bool, len(o.NullableOverrides)+1)
	for k, v := range o.NullableOverrides {
		next.NullableOverrides[k] = v
	}
	next.NullableOverrides[table+"."+column] = nullable
	return next
}

// NullableOverride reports whether "table.column" has a forced
// nullability, and what it is.
func (o *Options) NullableOverride(table, column string) (nullable bool, ok bool) {
	v, ok := o.NullableOverrides[table+"."+column]
	return v, ok
}

func (o *Options) clone() *Options {
	next := &Options{
		SchemaGlobs: append([]string(nil), o.SchemaGlobs...),
		QueryGlobs:  append([]string(nil), o.QueryGlobs...),
		SearchPath:  append([]string(nil), o.SearchPath...),
	}
	next.NullableOverrides = make(map[string]bool, len(o.NullableOverrides))
	for k, v := range o.NullableOverrides {
		next.NullableOverrides[k] = v
	}
	return next
}
