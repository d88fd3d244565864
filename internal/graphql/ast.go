package graphql

import "graft/internal/source"

// Document is a parsed file. Definitions keep source order.
type Document struct {
	Path        string
	Definitions []Definition
}

// Definition is any top-level node.
type Definition interface {
	Node
	definition()
}

// Node is anything with a source span.
type Node interface {
	Span() source.Span
}

// Selection is a field, fragment spread or inline fragment.
type Selection interface {
	Node
	selection()
}

// Ident is a name with its span.
type Ident struct {
	Value string
	Loc   source.Span
}

func (n Ident) Span() source.Span { return n.Loc }

// OperationKind distinguishes query, mutation and subscription.
type OperationKind uint8

const (
	Query OperationKind = iota
	Mutation
	Subscription
)

func (k OperationKind) String() string {
	switch k {
	case Mutation:
		return "mutation"
	case Subscription:
		return "subscription"
	default:
		return "query"
	}
}

// ParseOperationKind maps a keyword to its kind.
func ParseOperationKind(s string) (OperationKind, bool) {
	switch s {
	case "query":
		return Query, true
	case "mutation":
		return Mutation, true
	case "subscription":
		return Subscription, true
	}
	return Query, false
}

// Operations

type OperationDefinition struct {
	Kind         OperationKind
	Name         *Ident
	Variables    []*VariableDefinition
	Directives   []*Directive
	SelectionSet *SelectionSet
	Loc          source.Span
}

type FragmentDefinition struct {
	Name          Ident
	TypeCondition Ident
	Directives    []*Directive
	SelectionSet  *SelectionSet
	Loc           source.Span
}

type VariableDefinition struct {
	Name    Ident
	Type    *TypeRef
	Default *Value
	Loc     source.Span
}

type SelectionSet struct {
	Selections []Selection
	Loc        source.Span
}

type Field struct {
	Alias        *Ident
	Name         Ident
	Arguments    []*Argument
	Directives   []*Directive
	SelectionSet *SelectionSet
	Loc          source.Span
}

// ResponseKey is the alias when present, otherwise the field name.
func (f *Field) ResponseKey() string {
	if f.Alias != nil {
		return f.Alias.Value
	}
	return f.Name.Value
}

type FragmentSpread struct {
	Name       Ident
	Directives []*Directive
	Loc        source.Span
}

type InlineFragment struct {
	TypeCondition *Ident
	Directives    []*Directive
	SelectionSet  *SelectionSet
	Loc           source.Span
}

type Argument struct {
	Name  Ident
	Value *Value
	Loc   source.Span
}

type Directive struct {
	Name      Ident
	Arguments []*Argument
	Loc       source.Span
}

// ValueKind classifies a literal or variable.
type ValueKind uint8

const (
	VariableVal ValueKind = iota
	IntVal
	FloatVal
	StringVal
	BooleanVal
	NullVal
	EnumVal
	ListVal
	ObjectVal
)

// Value keeps the raw source text; nested values are only kept for lists
// and objects.
type Value struct {
	Kind   ValueKind
	Raw    string
	List   []*Value
	Fields []*Argument
	Loc    source.Span
}

// TypeRef is a named type, a list type or a non-null wrapper of either.
type TypeRef struct {
	Named   *Ident
	Elem    *TypeRef
	NonNull bool
	Loc     source.Span
}

// NamedType unwraps lists down to the innermost named type.
func (t *TypeRef) NamedType() string {
	for t != nil {
		if t.Named != nil {
			return t.Named.Value
		}
		t = t.Elem
	}
	return ""
}

func (t *TypeRef) String() string {
	if t == nil {
		return ""
	}
	s := ""
	if t.Named != nil {
		s = t.Named.Value
	} else {
		s = "[" + t.Elem.String() + "]"
	}
	if t.NonNull {
		s += "!"
	}
	return s
}

// Type system

type SchemaDefinition struct {
	Extend     bool
	Operations []*RootOperationType
	Loc        source.Span
}

type RootOperationType struct {
	Operation OperationKind
	Type      Ident
}

// TypeDefKind distinguishes the named type definitions.
type TypeDefKind uint8

const (
	ObjectDef TypeDefKind = iota
	InterfaceDef
	InputDef
	EnumDef
	ScalarDef
	UnionDef
)

func (k TypeDefKind) String() string {
	switch k {
	case InterfaceDef:
		return "interface"
	case InputDef:
		return "input"
	case EnumDef:
		return "enum"
	case ScalarDef:
		return "scalar"
	case UnionDef:
		return "union"
	default:
		return "type"
	}
}

// TypeDefinition covers every named type kind; unused slices stay nil.
type TypeDefinition struct {
	Kind        TypeDefKind
	Extend      bool
	Description string
	Name        Ident
	Interfaces  []Ident
	Fields      []*FieldDefinition
	EnumValues  []Ident
	Members     []Ident
	Directives  []*Directive
	Loc         source.Span
}

type FieldDefinition struct {
	Description string
	Name        Ident
	Arguments   []*InputValueDefinition
	Type        *TypeRef
	Directives  []*Directive
	Loc         source.Span
}

type InputValueDefinition struct {
	Name    Ident
	Type    *TypeRef
	Default *Value
	Loc     source.Span
}

type DirectiveDefinition struct {
	Name      Ident
	Arguments []*InputValueDefinition
	Locations []Ident
	Loc       source.Span
}

func (d *OperationDefinition) Span() source.Span  { return d.Loc }
func (d *FragmentDefinition) Span() source.Span   { return d.Loc }
func (d *SchemaDefinition) Span() source.Span     { return d.Loc }
func (d *TypeDefinition) Span() source.Span       { return d.Loc }
func (d *DirectiveDefinition) Span() source.Span  { return d.Loc }
func (s *SelectionSet) Span() source.Span         { return s.Loc }
func (f *Field) Span() source.Span                { return f.Loc }
func (f *FragmentSpread) Span() source.Span       { return f.Loc }
func (f *InlineFragment) Span() source.Span       { return f.Loc }
func (d *FieldDefinition) Span() source.Span      { return d.Loc }
func (d *InputValueDefinition) Span() source.Span { return d.Loc }

func (*OperationDefinition) definition() {}
func (*FragmentDefinition) definition()  {}
func (*SchemaDefinition) definition()    {}
func (*TypeDefinition) definition()      {}
func (*DirectiveDefinition) definition() {}

func (*Field) selection()          {}
func (*FragmentSpread) selection() {}
func (*InlineFragment) selection() {}

// IsExecutable reports whether d is an operation or a fragment.
func IsExecutable(d Definition) bool {
	switch d.(type) {
	case *OperationDefinition, *FragmentDefinition:
		return true
	}
	return false
}

// HasDirective reports whether any directive in ds is named name.
func HasDirective(ds []*Directive, name string) bool {
	for _, d := range ds {
		if d.Name.Value == name {
			return true
		}
	}
	return false
}
