// Package schema holds the type system a project's documents are checked
// against. A Schema is built once from SDL documents and is read-only after
// Finish.
package schema

import (
	"slices"
	"sort"

	"graft/internal/diag"
	"graft/internal/graphql"
	"graft/internal/intern"
	"graft/internal/source"
)

// TypenameField is the implicit meta field every composite type exposes.
const TypenameField = "__typename"

var builtinScalars = []string{"Int", "Float", "String", "Boolean", "ID"}

type Type struct {
	Name       string
	Kind       graphql.TypeDefKind
	Builtin    bool
	Interfaces []string
	Members    []string
	EnumValues []string
	Loc        source.Location

	fields     map[string]*Field
	fieldOrder []string
}

type Field struct {
	Name string
	Type *graphql.TypeRef
	Args []string
	Loc  source.Location
}

// IsComposite reports whether selections may be made on the type.
func (t *Type) IsComposite() bool {
	switch t.Kind {
	case graphql.ObjectDef, graphql.InterfaceDef, graphql.UnionDef:
		return true
	}
	return false
}

// IsLeaf reports whether the type is a scalar or an enum.
func (t *Type) IsLeaf() bool {
	return t.Kind == graphql.ScalarDef || t.Kind == graphql.EnumDef
}

// Field looks up a field, including the implicit __typename on composites.
func (t *Type) Field(name string) (*Field, bool) {
	if name == TypenameField && t.IsComposite() {
		return typenameField, true
	}
	f, ok := t.fields[name]
	return f, ok
}

// FieldNames returns declared field names in declaration order.
func (t *Type) FieldNames() []string {
	return slices.Clone(t.fieldOrder)
}

var typenameField = &Field{
	Name: TypenameField,
	Type: &graphql.TypeRef{Named: &graphql.Ident{Value: "String"}, NonNull: true},
}

type Schema struct {
	Project intern.StringKey

	types       map[string]*Type
	roots       [3]string
	diagnostics []diag.Diagnostic
	finished    bool
}

// New returns a schema holding only the built-in scalars.
func New(project intern.StringKey) *Schema {
	s := &Schema{Project: project, types: make(map[string]*Type)}
	for _, name := range builtinScalars {
		s.types[name] = &Type{Name: name, Kind: graphql.ScalarDef, Builtin: true}
	}
	return s
}

// Diagnostics returns problems found while building the schema.
func (s *Schema) Diagnostics() []diag.Diagnostic {
	return s.diagnostics
}

// HasErrors reports whether any error-severity diagnostic was recorded.
func (s *Schema) HasErrors() bool {
	for _, d := range s.diagnostics {
		if d.Severity == diag.SevError {
			return true
		}
	}
	return false
}

func (s *Schema) report(d diag.Diagnostic) {
	s.diagnostics = append(s.diagnostics, d)
}

// AddDiagnostics records diagnostics produced outside the schema itself,
// such as SDL syntax errors.
func (s *Schema) AddDiagnostics(ds ...diag.Diagnostic) {
	s.diagnostics = append(s.diagnostics, ds...)
}

// AddDocument merges the type-system definitions of doc. Extensions are
// applied after all documents are added.
func (s *Schema) AddDocument(doc *graphql.Document) []*graphql.TypeDefinition {
	var extensions []*graphql.TypeDefinition
	loc := func(sp source.Span) source.Location { return source.Location{Path: doc.Path, Span: sp} }
	for _, def := range doc.Definitions {
		switch d := def.(type) {
		case *graphql.SchemaDefinition:
			for _, op := range d.Operations {
				if prev := s.roots[op.Operation]; prev != "" && !d.Extend {
					s.report(diag.Errorf(diag.SemDuplicateType, loc(op.Type.Loc),
						"root %s type already defined as %q", op.Operation, prev))
					continue
				}
				s.roots[op.Operation] = op.Type.Value
			}
		case *graphql.TypeDefinition:
			if d.Extend {
				extensions = append(extensions, d)
				continue
			}
			if prev, ok := s.types[d.Name.Value]; ok {
				dg := diag.Errorf(diag.SemDuplicateType, loc(d.Name.Loc), "type %q is defined more than once", d.Name.Value)
				if !prev.Builtin {
					dg = dg.WithNote(prev.Loc, "previous definition")
				}
				s.report(dg)
				continue
			}
			t := &Type{
				Name:       d.Name.Value,
				Kind:       d.Kind,
				Interfaces: identValues(d.Interfaces),
				Members:    identValues(d.Members),
				EnumValues: identValues(d.EnumValues),
				Loc:        loc(d.Name.Loc),
				fields:     make(map[string]*Field),
			}
			s.addFields(t, d.Fields, doc.Path)
			s.types[t.Name] = t
		case *graphql.DirectiveDefinition:
		default:
			s.report(diag.Errorf(diag.SynUnexpectedTopLevel, loc(def.Span()),
				"executable definitions are not allowed in schema files"))
		}
	}
	return extensions
}

// Extend applies "extend type" definitions collected by AddDocument.
func (s *Schema) Extend(path string, ext *graphql.TypeDefinition) {
	t, ok := s.types[ext.Name.Value]
	if !ok || t.Builtin {
		s.report(diag.Errorf(diag.SemUnknownType, source.Location{Path: path, Span: ext.Name.Loc},
			"cannot extend unknown type %q", ext.Name.Value))
		return
	}
	t.Interfaces = append(t.Interfaces, identValues(ext.Interfaces)...)
	t.Members = append(t.Members, identValues(ext.Members)...)
	t.EnumValues = append(t.EnumValues, identValues(ext.EnumValues)...)
	s.addFields(t, ext.Fields, path)
}

func (s *Schema) addFields(t *Type, defs []*graphql.FieldDefinition, path string) {
	if t.fields == nil {
		t.fields = make(map[string]*Field)
	}
	for _, fd := range defs {
		loc := source.Location{Path: path, Span: fd.Name.Loc}
		if _, dup := t.fields[fd.Name.Value]; dup {
			s.report(diag.Errorf(diag.SemDuplicateType, loc, "field %s.%s is defined more than once", t.Name, fd.Name.Value))
			continue
		}
		f := &Field{Name: fd.Name.Value, Type: fd.Type, Loc: loc}
		for _, a := range fd.Arguments {
			f.Args = append(f.Args, a.Name.Value)
		}
		t.fields[f.Name] = f
		t.fieldOrder = append(t.fieldOrder, f.Name)
	}
}

// Finish resolves default root types and checks type references. It is
// idempotent.
func (s *Schema) Finish() {
	if s.finished {
		return
	}
	s.finished = true
	defaults := [...]string{graphql.Query: "Query", graphql.Mutation: "Mutation", graphql.Subscription: "Subscription"}
	for kind, name := range defaults {
		if s.roots[kind] == "" {
			if t, ok := s.types[name]; ok && t.Kind == graphql.ObjectDef {
				s.roots[kind] = name
			}
		}
	}
	for _, name := range s.TypeNames() {
		t := s.types[name]
		for _, fname := range t.fieldOrder {
			f := t.fields[fname]
			if _, ok := s.types[f.Type.NamedType()]; !ok {
				s.report(diag.Errorf(diag.SemUnknownType, f.Loc, "field %s.%s has unknown type %q", t.Name, f.Name, f.Type.NamedType()))
			}
		}
		for _, member := range t.Members {
			if _, ok := s.types[member]; !ok {
				s.report(diag.Errorf(diag.SemUnknownType, t.Loc, "union %s has unknown member %q", t.Name, member))
			}
		}
	}
}

// Type looks up a named type.
func (s *Schema) Type(name string) (*Type, bool) {
	t, ok := s.types[name]
	return t, ok
}

// RootType returns the root type for an operation kind.
func (s *Schema) RootType(kind graphql.OperationKind) (*Type, bool) {
	name := s.roots[kind]
	if name == "" {
		return nil, false
	}
	return s.Type(name)
}

// TypeNames returns every type name, sorted.
func (s *Schema) TypeNames() []string {
	names := make([]string, 0, len(s.types))
	for name := range s.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PossibleTypes returns the object types a composite type may resolve to.
func (s *Schema) PossibleTypes(t *Type) []string {
	switch t.Kind {
	case graphql.ObjectDef:
		return []string{t.Name}
	case graphql.UnionDef:
		return slices.Clone(t.Members)
	case graphql.InterfaceDef:
		var out []string
		for _, name := range s.TypeNames() {
			if slices.Contains(s.types[name].Interfaces, t.Name) {
				out = append(out, name)
			}
		}
		return out
	}
	return nil
}

func identValues(ids []graphql.Ident) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Value
	}
	return out
}
