// Package validate implements the Validator stage (§4.5): it reconciles a
// query's declared param/row annotations against what the Preparer actually
// read back from the live server, and pins Db declarations against the
// composite types they claim to describe.
package validate

import (
	"fmt"

	"github.com/quillhq/pgquery/core/catalog"
	"github.com/quillhq/pgquery/core/dsl"
	"github.com/quillhq/pgquery/core/pgerrors"
	"github.com/quillhq/pgquery/core/registry"
	"github.com/quillhq/pgquery/internal/span"
)

// Field is one reconciled param or row field, resolved to its TypeId.
type Field struct {
	Name     string
	Type     registry.TypeId
	Nullable bool
}

// Query is the validated, fully-resolved shape of one PreparedQuery (§3).
type Query struct {
	Name          string
	ParamFields   []Field
	RowFields     []Field
	NormalisedSQL string
}

// Decls indexes a module's named struct declarations by kind and name, as
// the Validator needs to look up Named(n) shape references and Db pins.
type Decls struct {
	Param map[string]dsl.NamedStructDecl
	Row   map[string]dsl.NamedStructDecl
	Db    map[string]dsl.NamedStructDecl
}

// NewDecls indexes the three decl slices of a ParsedModule, returning a
// ValidationError of kind Duplicate if any kind repeats a name.
func NewDecls(paramDecls, rowDecls, dbDecls []dsl.NamedStructDecl) (*Decls, error) {
	d := &Decls{
		Param: map[string]dsl.NamedStructDecl{},
		Row:   map[string]dsl.NamedStructDecl{},
		Db:    map[string]dsl.NamedStructDecl{},
	}
	kinds := []struct {
		label string
		decls []dsl.NamedStructDecl
		into  map[string]dsl.NamedStructDecl
	}{
		{"PARAM", paramDecls, d.Param},
		{"ROW", rowDecls, d.Row},
		{"DB", dbDecls, d.Db},
	}
	for _, k := range kinds {
		for _, decl := range k.decls {
			if _, dup := k.into[decl.Name.Value]; dup {
				return nil, &pgerrors.ValidationError{
					Kind:    pgerrors.Duplicate,
					Path:    decl.Name.Span.Path,
					Span:    decl.Name.Span,
					Message: fmt.Sprintf("duplicate %s struct name %q", k.label, decl.Name.Value),
				}
			}
			k.into[decl.Name.Value] = decl
		}
	}
	return d, nil
}

// Query reconciles one RawQuery's annotation against its Preparer
// description, per §4.5 steps 1-2. bindNames is unique_binds from the
// normaliser, in lexicographic order, positionally aligned with desc.Params.
func (d *Decls) Query(
	name span.Spanned[string],
	ann dsl.QueryAnnotation,
	bindNames []span.Spanned[string],
	desc *catalog.Description,
	normalisedSQL string,
) (*Query, error) {
	paramFields, err := d.reconcileParams(ann, bindNames, desc.Params)
	if err != nil {
		return nil, err
	}
	rowFields, err := d.reconcileRows(ann, desc.Columns)
	if err != nil {
		return nil, err
	}
	return &Query{
		Name:          name.Value,
		ParamFields:   paramFields,
		RowFields:     rowFields,
		NormalisedSQL: normalisedSQL,
	}, nil
}

func (d *Decls) reconcileParams(ann dsl.QueryAnnotation, bindNames []span.Spanned[string], params []catalog.ParamDescriptor) ([]Field, error) {
	shape := ann.Param
	switch shape.Kind {
	case dsl.ShapeNone:
		if len(bindNames) != 0 {
			return nil, &pgerrors.ValidationError{
				Kind:    pgerrors.ArityMismatch,
				Path:    ann.Name.Span.Path,
				Span:    ann.Name.Span,
				Message: fmt.Sprintf("query %q binds %d parameter(s) but declares none", ann.Name.Value, len(bindNames)),
			}
		}
		return nil, nil

	case dsl.ShapeImplicit:
		if len(shape.Fields) != len(bindNames) {
			return nil, &pgerrors.ValidationError{
				Kind:    pgerrors.ArityMismatch,
				Path:    ann.Name.Span.Path,
				Span:    ann.Name.Span,
				Message: fmt.Sprintf("%d declared parameter field(s) vs %d bound", len(shape.Fields), len(bindNames)),
			}
		}
		fields := make([]Field, len(shape.Fields))
		for i, f := range shape.Fields {
			if f.Name.Value != bindNames[i].Value {
				return nil, &pgerrors.ValidationError{
					Kind: pgerrors.NameMismatch,
					Path: f.Name.Span.Path,
					Span: f.Name.Span,
					Message: fmt.Sprintf("parameter %d declared as %q but bound as %q",
						i+1, f.Name.Value, bindNames[i].Value),
				}
			}
			fields[i] = Field{Name: f.Name.Value, Type: params[i].Type, Nullable: f.Nullable}
		}
		return fields, nil

	case dsl.ShapeNamed:
		decl, ok := d.Param[shape.Ref.Value]
		if !ok {
			return nil, &pgerrors.ValidationError{
				Kind:    pgerrors.UnknownNamedStruct,
				Path:    shape.Ref.Span.Path,
				Span:    shape.Ref.Span,
				Message: fmt.Sprintf("no PARAM struct named %q", shape.Ref.Value),
			}
		}
		return reconcileNamedSet(decl, bindNames, params)

	default:
		return nil, nil
	}
}

func (d *Decls) reconcileRows(ann dsl.QueryAnnotation, cols []catalog.ColumnDescriptor) ([]Field, error) {
	shape := ann.Row
	switch shape.Kind {
	case dsl.ShapeNone:
		if len(cols) != 0 {
			return nil, &pgerrors.ValidationError{
				Kind:    pgerrors.ArityMismatch,
				Path:    ann.Name.Span.Path,
				Span:    ann.Name.Span,
				Message: fmt.Sprintf("query %q returns %d column(s) but declares no row shape", ann.Name.Value, len(cols)),
			}
		}
		return nil, nil

	case dsl.ShapeImplicit:
		if len(shape.Fields) != len(cols) {
			return nil, &pgerrors.ValidationError{
				Kind:    pgerrors.ArityMismatch,
				Path:    ann.Name.Span.Path,
				Span:    ann.Name.Span,
				Message: fmt.Sprintf("%d declared row field(s) vs %d returned", len(shape.Fields), len(cols)),
			}
		}
		fields := make([]Field, len(shape.Fields))
		for i, f := range shape.Fields {
			if f.Name.Value != cols[i].Name {
				return nil, &pgerrors.ValidationError{
					Kind: pgerrors.NameMismatch,
					Path: f.Name.Span.Path,
					Span: f.Name.Span,
					Message: fmt.Sprintf("row field %d declared as %q but column is %q",
						i+1, f.Name.Value, cols[i].Name),
				}
			}
			nullable := cols[i].Nullable
			if f.Nullable {
				nullable = true
			}
			fields[i] = Field{Name: f.Name.Value, Type: cols[i].Type, Nullable: nullable}
		}
		return fields, nil

	case dsl.ShapeNamed:
		decl, ok := d.Row[shape.Ref.Value]
		if !ok {
			return nil, &pgerrors.ValidationError{
				Kind:    pgerrors.UnknownNamedStruct,
				Path:    shape.Ref.Span.Path,
				Span:    shape.Ref.Span,
				Message: fmt.Sprintf("no ROW struct named %q", shape.Ref.Value),
			}
		}
		return reconcileNamedRowSet(decl, cols)

	default:
		return nil, nil
	}
}

// reconcileNamedSet validates a Named(n) PARAM shape: the decl's field set
// must equal the set of bind names (§4.5 step 1, Named case). Emission
// order follows the decl, not the bind order.
func reconcileNamedSet(decl dsl.NamedStructDecl, binds []span.Spanned[string], params []catalog.ParamDescriptor) ([]Field, error) {
	byName := make(map[string]int, len(binds))
	for i, b := range binds {
		byName[b.Value] = i
	}
	if len(decl.Fields) != len(binds) {
		return nil, &pgerrors.ValidationError{
			Kind:    pgerrors.ArityMismatch,
			Path:    decl.Name.Span.Path,
			Span:    decl.Name.Span,
			Message: fmt.Sprintf("PARAM %q declares %d field(s) but query binds %d", decl.Name.Value, len(decl.Fields), len(binds)),
		}
	}
	fields := make([]Field, len(decl.Fields))
	for i, f := range decl.Fields {
		idx, ok := byName[f.Name.Value]
		if !ok {
			return nil, &pgerrors.ValidationError{
				Kind:    pgerrors.NameMismatch,
				Path:    f.Name.Span.Path,
				Span:    f.Name.Span,
				Message: fmt.Sprintf("PARAM %q field %q is not bound by the query", decl.Name.Value, f.Name.Value),
			}
		}
		fields[i] = Field{Name: f.Name.Value, Type: params[idx].Type, Nullable: f.Nullable}
	}
	return fields, nil
}

func reconcileNamedRowSet(decl dsl.NamedStructDecl, cols []catalog.ColumnDescriptor) ([]Field, error) {
	byName := make(map[string]int, len(cols))
	for i, c := range cols {
		byName[c.Name] = i
	}
	if len(decl.Fields) != len(cols) {
		return nil, &pgerrors.ValidationError{
			Kind:    pgerrors.ArityMismatch,
			Path:    decl.Name.Span.Path,
			Span:    decl.Name.Span,
			Message: fmt.Sprintf("ROW %q declares %d field(s) but query returns %d", decl.Name.Value, len(decl.Fields), len(cols)),
		}
	}
	fields := make([]Field, len(decl.Fields))
	for i, f := range decl.Fields {
		idx, ok := byName[f.Name.Value]
		if !ok {
			return nil, &pgerrors.ValidationError{
				Kind:    pgerrors.NameMismatch,
				Path:    f.Name.Span.Path,
				Span:    f.Name.Span,
				Message: fmt.Sprintf("ROW %q field %q is not among the returned columns", decl.Name.Value, f.Name.Value),
			}
		}
		nullable := cols[idx].Nullable
		if f.Nullable {
			nullable = true
		}
		fields[i] = Field{Name: f.Name.Value, Type: cols[idx].Type, Nullable: nullable}
	}
	return fields, nil
}

// Db validates every `Db` decl against the composite the registry
// resolved for it, per §4.5 step 3: the declared field list must equal the
// composite's, in the same order, with the same nullability.
func Db(decl dsl.NamedStructDecl, reg *registry.Registry, compositeId registry.TypeId) error {
	t := reg.Get(compositeId)
	if t.Kind != registry.KindComposite {
		return &pgerrors.ValidationError{
			Kind:    pgerrors.UnknownDbType,
			Path:    decl.Name.Span.Path,
			Span:    decl.Name.Span,
			Message: fmt.Sprintf("%q is not a composite type", decl.Name.Value),
		}
	}
	if len(decl.Fields) != len(t.Fields) {
		return &pgerrors.ValidationError{
			Kind:    pgerrors.ArityMismatch,
			Path:    decl.Name.Span.Path,
			Span:    decl.Name.Span,
			Message: fmt.Sprintf("DB %q declares %d field(s) but composite has %d", decl.Name.Value, len(decl.Fields), len(t.Fields)),
		}
	}
	for i, f := range decl.Fields {
		if f.Name.Value != t.Fields[i].Name {
			return &pgerrors.ValidationError{
				Kind: pgerrors.NameMismatch,
				Path: f.Name.Span.Path,
				Span: f.Name.Span,
				Message: fmt.Sprintf("DB %q field %d declared as %q but composite has %q at that position",
					decl.Name.Value, i+1, f.Name.Value, t.Fields[i].Name),
			}
		}
		if f.Nullable != t.Fields[i].Nullable {
			return &pgerrors.ValidationError{
				Kind: pgerrors.NameMismatch,
				Path: f.Name.Span.Path,
				Span: f.Name.Span,
				Message: fmt.Sprintf("DB %q field %q declared nullable=%t but composite column is nullable=%t",
					decl.Name.Value, f.Name.Value, f.Nullable, t.Fields[i].Nullable),
			}
		}
	}
	return nil
}
