// Package catalog implements the Preparer stage (§4.3): it submits each
// normalised query to a live PostgreSQL session, reads back the server's
// own parameter/column descriptors, and walks pg_catalog to resolve every
// OID transitively into the shared registry.Registry.
//
// The managed database's lifecycle — spinning one up, loading schema DDL
// into it — is an external collaborator (§1 Out of scope); this package
// only consumes an already-connected session.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-extras/go-kit/ptr"
	"github.com/jackc/pgx/v5"

	"github.com/quillhq/pgquery/core/pgerrors"
	"github.com/quillhq/pgquery/core/registry"
	"github.com/quillhq/pgquery/internal/span"
)

// DB is the minimal synchronous session this package consumes: a
// transaction source. *pgxpool.Pool and *pgx.Conn both satisfy it.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ColumnDescriptor is one entry of a PreparedQuery's row shape (§3).
type ColumnDescriptor struct {
	Name     string
	Type     registry.TypeId
	Nullable bool
}

// ParamDescriptor is one entry of a PreparedQuery's param list (§3).
type ParamDescriptor struct {
	Type registry.TypeId
}

// Description is the introspected shape of one normalised query, with
// every OID already resolved into the shared Registry.
type Description struct {
	Params  []ParamDescriptor
	Columns []ColumnDescriptor
}

// Preparer owns the single blocking database session used across a whole
// compile run (§5: "one blocking database session at a time").
type Preparer struct {
	db         DB
	reg        *registry.Registry
	searchPath []string
	overrides  map[string]bool
}

// New builds a Preparer over db, resolving types into reg. searchPath sets
// the schema search order consulted for unqualified type and table names
// (config.Options.SearchPath); a nil or empty searchPath leaves the
// server's own default in effect. overrides forces the reported
// nullability of specific "table.column" result columns
// (config.Options.NullableOverrides), overriding whatever attnotnull says.
func New(db DB, reg *registry.Registry, searchPath []string, overrides map[string]bool) *Preparer {
	return &Preparer{db: db, reg: reg, searchPath: searchPath, overrides: overrides}
}

// setSearchPath applies the Preparer's configured search path to tx, scoped
// to that transaction alone (SET LOCAL), so it never leaks across Prepare
// calls that share a pooled connection.
func (p *Preparer) setSearchPath(ctx context.Context, tx pgx.Tx) error {
	if len(p.searchPath) == 0 {
		return nil
	}
	quoted := make([]string, len(p.searchPath))
	for i, s := range p.searchPath {
		quoted[i] = pgx.Identifier{s}.Sanitize()
	}
	_, err := tx.Exec(ctx, "SET LOCAL search_path TO "+strings.Join(quoted, ", "))
	if err != nil {
		return &pgerrors.DbError{Message: "set search_path", Cause: err}
	}
	return nil
}

// Registry returns the shared TypeRegistry this Preparer resolves into.
func (p *Preparer) Registry() *registry.Registry {
	return p.reg
}

// ResolveNamedComposite resolves the composite type named name (as it
// would appear unqualified on the search path) into the registry, by
// preparing a throwaway statement that forces the server to report its
// OID. This lets a `--: DB` declaration be pinned (§4.5 step 3) without a
// dedicated pg_catalog-by-name lookup path. A name that doesn't resolve to
// any type is a validation failure (§3.1, §7 UnknownDbType), not a catalog
// bug, so it is reported anchored at the decl's own span rather than as an
// UnknownTypeError.
func (p *Preparer) ResolveNamedComposite(ctx context.Context, name span.Spanned[string]) (registry.TypeId, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return 0, &pgerrors.DbError{Message: "begin transaction", Cause: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := p.setSearchPath(ctx, tx); err != nil {
		return 0, err
	}

	var oid uint32
	err = tx.QueryRow(ctx, `SELECT $1::regtype::oid`, name.Value).Scan(&oid)
	if err != nil {
		return 0, &pgerrors.ValidationError{
			Kind:    pgerrors.UnknownDbType,
			Path:    name.Span.Path,
			Span:    name.Span,
			Message: fmt.Sprintf("no composite type named %q", name.Value),
		}
	}
	return p.resolveOid(ctx, tx, oid)
}

// Prepare submits normalisedSQL as the query named by name, reads back its
// parameter and column descriptors, and resolves every OID they reference.
// The transaction is always rolled back on every exit path, so no schema
// side effects remain (§4.3, §5).
func (p *Preparer) Prepare(ctx context.Context, name span.Spanned[string], normalisedSQL string) (*Description, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return nil, &pgerrors.DbError{Message: "begin transaction", Cause: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := p.setSearchPath(ctx, tx); err != nil {
		return nil, err
	}

	sd, err := tx.Prepare(ctx, "", normalisedSQL)
	if err != nil {
		return nil, &pgerrors.PrepareError{
			Path:      name.Span.Path,
			Span:      name.Span,
			QueryName: name.Value,
			DBMessage: err.Error(),
		}
	}

	desc := &Description{
		Params:  make([]ParamDescriptor, len(sd.ParamOIDs)),
		Columns: make([]ColumnDescriptor, len(sd.Fields)),
	}
	for i, oid := range sd.ParamOIDs {
		id, err := p.resolveOid(ctx, tx, oid)
		if err != nil {
			return nil, err
		}
		desc.Params[i] = ParamDescriptor{Type: id}
	}
	for i, f := range sd.Fields {
		id, err := p.resolveOid(ctx, tx, f.DataTypeOID)
		if err != nil {
			return nil, err
		}
		nullable, err := p.columnNullable(ctx, tx, f.TableOID, f.TableAttributeNumber, f.Name)
		if err != nil {
			return nil, err
		}
		desc.Columns[i] = ColumnDescriptor{Name: f.Name, Type: id, Nullable: nullable}
	}

	slog.Info("prepared query", "name", name.Value, "params", len(desc.Params), "cols", len(desc.Columns))
	return desc, nil
}

// columnNullable looks up attnotnull for a result column that maps back
// to a real table attribute, then lets a configured NullableOverride for
// that table.column have the final word. Columns with no backing table
// (computed expressions, tableOID == 0) default to nullable — the server
// gives no evidence otherwise. A missing catalog row is also treated as
// nullable. attnotnull is scanned as *bool, and a NULL value falls back to
// nullable through the ptr.Deref default.
func (p *Preparer) columnNullable(ctx context.Context, tx pgx.Tx, tableOid uint32, attNum uint16, colName string) (bool, error) {
	if tableOid == 0 {
		return true, nil
	}
	var notNull *bool
	err := tx.QueryRow(ctx,
		`SELECT attnotnull FROM pg_attribute WHERE attrelid = $1 AND attnum = $2`,
		tableOid, int16(attNum),
	).Scan(&notNull)
	if err != nil {
		return true, nil //nolint:nilerr // missing catalog row: treat as nullable rather than fail the run
	}
	nullable := !ptr.Deref(notNull, false)

	if len(p.overrides) > 0 {
		var tableName string
		if err := tx.QueryRow(ctx, `SELECT relname FROM pg_class WHERE oid = $1`, tableOid).Scan(&tableName); err == nil {
			if forced, ok := p.overrides[tableName+"."+colName]; ok {
				return forced, nil
			}
		}
	}
	return nullable, nil
}
