package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/quillhq/pgquery/core/pgerrors"
	"github.com/quillhq/pgquery/core/registry"
)

// builtinScalars maps the fixed, stable OIDs of PostgreSQL's built-in
// scalar types to the names the registry records them under (§4.3 bullet
// 1). These OIDs are part of the wire protocol's stable surface and never
// change across server versions.
var builtinScalars = map[uint32]string{
	16:   "bool",
	17:   "bytea",
	18:   "char",
	19:   "name",
	20:   "int8",
	21:   "int2",
	23:   "int4",
	25:   "text",
	114:  "json",
	650:  "cidr",
	700:  "float4",
	701:  "float8",
	829:  "macaddr",
	869:  "inet",
	1042: "bpchar",
	1043: "varchar",
	1082: "date",
	1083: "time",
	1114: "timestamp",
	1184: "timestamptz",
	1186: "interval",
	1266: "timetz",
	1700: "numeric",
	2950: "uuid",
	3802: "jsonb",
}

type typeRow struct {
	Name        string
	Namespace   string
	TypType     string // 'b' base, 'd' domain, 'e' enum, 'c' composite
	TypCategory string // 'A' for true arrays; geometric base types also carry a non-zero TypElem
	TypElem     uint32 // array element oid; also non-zero for some base types, so not an array test on its own
	TypBase     uint32 // domain base type oid
	TypRelid    uint32 // composite's backing pg_class oid, 0 otherwise
}

// resolveOid walks pg_catalog to classify oid and intern it, short
// circuiting through already-known OIDs and builtin scalars before
// issuing any catalog query (§4.3, §4.4).
func (p *Preparer) resolveOid(ctx context.Context, tx pgx.Tx, oid uint32) (registry.TypeId, error) {
	if id, ok := p.reg.LookupOid(oid); ok {
		return id, nil
	}
	if name, ok := builtinScalars[oid]; ok {
		id := p.reg.Intern("pg_catalog", name, func() registry.Type {
			return registry.Type{Kind: registry.KindSimple, Name: name, PGOid: oid}
		})
		p.reg.ReserveOid(oid, id)
		return id, nil
	}

	row, err := p.queryType(ctx, tx, oid)
	if err != nil {
		return 0, err
	}

	switch {
	case row.TypCategory == "A" && row.TypElem != 0:
		return p.resolveArray(ctx, tx, oid, row)
	case row.TypType == "d":
		return p.resolveDomain(ctx, tx, oid, row)
	case row.TypType == "c" && row.TypRelid != 0:
		return p.resolveComposite(ctx, tx, oid, row)
	case row.TypType == "e":
		return p.resolveEnum(ctx, tx, oid, row)
	default:
		return 0, &pgerrors.UnknownTypeError{OID: oid}
	}
}

func (p *Preparer) queryType(ctx context.Context, tx pgx.Tx, oid uint32) (typeRow, error) {
	var row typeRow
	err := tx.QueryRow(ctx, `
		SELECT t.typname, n.nspname, t.typtype, t.typcategory, t.typelem, t.typbasetype, t.typrelid
		FROM pg_type t
		JOIN pg_namespace n ON n.oid = t.typnamespace
		WHERE t.oid = $1`, oid,
	).Scan(&row.Name, &row.Namespace, &row.TypType, &row.TypCategory, &row.TypElem, &row.TypBase, &row.TypRelid)
	if err != nil {
		return typeRow{}, &pgerrors.UnknownTypeError{OID: oid}
	}
	return row, nil
}

func (p *Preparer) resolveArray(ctx context.Context, tx pgx.Tx, oid uint32, row typeRow) (registry.TypeId, error) {
	inner, err := p.resolveOid(ctx, tx, row.TypElem)
	if err != nil {
		return 0, err
	}
	id := p.reg.Intern(row.Namespace, row.Name, func() registry.Type {
		return registry.Type{Kind: registry.KindArray, Name: row.Name, Inner: inner}
	})
	p.reg.ReserveOid(oid, id)
	return id, nil
}

func (p *Preparer) resolveDomain(ctx context.Context, tx pgx.Tx, oid uint32, row typeRow) (registry.TypeId, error) {
	inner, err := p.resolveOid(ctx, tx, row.TypBase)
	if err != nil {
		return 0, err
	}
	id := p.reg.Intern(row.Namespace, row.Name, func() registry.Type {
		return registry.Type{Kind: registry.KindDomain, Name: row.Name, Inner: inner}
	})
	p.reg.ReserveOid(oid, id)
	return id, nil
}

// resolveComposite interns a placeholder before resolving its attribute
// types, so a composite transitively containing an array of itself
// terminates (§3 "may be cyclic only through arrays of composites", §4.3
// "Cycle handling").
func (p *Preparer) resolveComposite(ctx context.Context, tx pgx.Tx, oid uint32, row typeRow) (registry.TypeId, error) {
	id := p.reg.Intern(row.Namespace, row.Name, func() registry.Type {
		return registry.Type{Kind: registry.KindComposite, Name: row.Name}
	})
	p.reg.ReserveOid(oid, id)

	rows, err := tx.Query(ctx, `
		SELECT attname, atttypid, attnotnull
		FROM pg_attribute
		WHERE attrelid = $1 AND attnum > 0 AND NOT attisdropped
		ORDER BY attnum`, row.TypRelid)
	if err != nil {
		return 0, &pgerrors.UnknownTypeError{OID: oid}
	}
	defer rows.Close()

	var fields []registry.CompositeField
	for rows.Next() {
		var name string
		var attTypeOid uint32
		var notNull bool
		if err := rows.Scan(&name, &attTypeOid, &notNull); err != nil {
			return 0, &pgerrors.UnknownTypeError{OID: oid}
		}
		fieldType, err := p.resolveOid(ctx, tx, attTypeOid)
		if err != nil {
			return 0, err
		}
		fields = append(fields, registry.CompositeField{Name: name, Type: fieldType, Nullable: !notNull})
	}
	if err := rows.Err(); err != nil {
		return 0, &pgerrors.UnknownTypeError{OID: oid}
	}

	p.reg.Set(id, registry.Type{Kind: registry.KindComposite, Name: row.Name, Fields: fields})
	return id, nil
}

func (p *Preparer) resolveEnum(ctx context.Context, tx pgx.Tx, oid uint32, row typeRow) (registry.TypeId, error) {
	rows, err := tx.Query(ctx, `
		SELECT enumlabel FROM pg_enum WHERE enumtypid = $1 ORDER BY enumsortorder`, oid)
	if err != nil {
		return 0, &pgerrors.UnknownTypeError{OID: oid}
	}
	defer rows.Close()

	var variants []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return 0, &pgerrors.UnknownTypeError{OID: oid}
		}
		variants = append(variants, label)
	}
	if err := rows.Err(); err != nil {
		return 0, &pgerrors.UnknownTypeError{OID: oid}
	}

	id := p.reg.Intern(row.Namespace, row.Name, func() registry.Type {
		return registry.Type{Kind: registry.KindEnum, Name: row.Name, Variants: variants}
	})
	p.reg.ReserveOid(oid, id)
	return id, nil
}
