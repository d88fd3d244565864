package compiler

import (
	"graft/internal/diag"
	"graft/internal/graphql"
	"graft/internal/ir"
	"graft/internal/schema"
	"graft/internal/source"
)

type validator struct {
	schema *schema.Schema
	prog   *ir.Program
	bag    *diag.Bag
	path   string
}

// validateProgram checks every operation and fragment of prog against its
// schema.
func validateProgram(prog *ir.Program, bag *diag.Bag) {
	v := &validator{schema: prog.Schema, prog: prog, bag: bag}
	for _, op := range prog.Operations() {
		v.path = op.Path
		v.operation(op.Def)
	}
	for _, name := range prog.FragmentNames() {
		frag, _ := prog.Fragment(name)
		v.path = frag.Path
		v.fragment(frag.Def)
	}
}

func (v *validator) loc(sp source.Span) source.Location {
	return source.Location{Path: v.path, Span: sp}
}

func (v *validator) operation(op *graphql.OperationDefinition) {
	for _, vd := range op.Variables {
		if _, ok := v.schema.Type(vd.Type.NamedType()); !ok {
			v.bag.Add(diag.Errorf(diag.SemUnknownType, v.loc(vd.Type.Loc), "unknown type %q", vd.Type.NamedType()))
		}
	}
	root, ok := v.schema.RootType(op.Kind)
	if !ok {
		sp := op.Loc
		if op.Name != nil {
			sp = op.Name.Loc
		}
		v.bag.Add(diag.Errorf(diag.SemNoRootType, v.loc(sp), "schema does not define a %s root type", op.Kind))
		return
	}
	v.selectionSet(root, op.SelectionSet)
}

func (v *validator) fragment(frag *graphql.FragmentDefinition) {
	t, ok := v.typeCondition(frag.TypeCondition)
	if !ok {
		return
	}
	v.selectionSet(t, frag.SelectionSet)
}

func (v *validator) typeCondition(cond graphql.Ident) (*schema.Type, bool) {
	t, ok := v.schema.Type(cond.Value)
	if !ok {
		v.bag.Add(diag.Errorf(diag.SemUnknownType, v.loc(cond.Loc), "unknown type %q", cond.Value))
		return nil, false
	}
	if !t.IsComposite() {
		v.bag.Add(diag.Errorf(diag.SemFragmentOnScalar, v.loc(cond.Loc), "fragment cannot condition on %s type %q", t.Kind, t.Name))
		return nil, false
	}
	return t, true
}

func (v *validator) selectionSet(parent *schema.Type, set *graphql.SelectionSet) {
	if set == nil {
		return
	}
	for _, sel := range set.Selections {
		switch s := sel.(type) {
		case *graphql.Field:
			v.field(parent, s)
		case *graphql.FragmentSpread:
			if _, ok := v.prog.Fragment(s.Name.Value); !ok {
				v.bag.Add(diag.Errorf(diag.SemUnknownFragment, v.loc(s.Name.Loc), "unknown fragment %q", s.Name.Value))
			}
		case *graphql.InlineFragment:
			t := parent
			if s.TypeCondition != nil {
				var ok bool
				if t, ok = v.typeCondition(*s.TypeCondition); !ok {
					continue
				}
			}
			v.selectionSet(t, s.SelectionSet)
		}
	}
}

func (v *validator) field(parent *schema.Type, f *graphql.Field) {
	def, ok := parent.Field(f.Name.Value)
	if !ok {
		v.bag.Add(diag.Errorf(diag.SemUnknownField, v.loc(f.Name.Loc), "unknown field %q on type %q", f.Name.Value, parent.Name))
		return
	}
	ft, ok := v.schema.Type(def.Type.NamedType())
	if !ok {
		return
	}
	switch {
	case ft.IsLeaf() && f.SelectionSet != nil:
		v.bag.Add(diag.Errorf(diag.SemLeafWithSelection, v.loc(f.SelectionSet.Loc),
			"field %q of %s type %q must not have a selection set", f.Name.Value, ft.Kind, ft.Name))
	case ft.IsComposite() && f.SelectionSet == nil:
		v.bag.Add(diag.Errorf(diag.SemCompositeWithoutFields, v.loc(f.Name.Loc),
			"field %q of type %q must have a selection of subfields", f.Name.Value, ft.Name))
	case ft.IsComposite():
		v.selectionSet(ft, f.SelectionSet)
	}
}

// checkDefinitions reports duplicate names across docs and anonymous
// operations that share a document.
func checkDefinitions(files []*source.File, docs []*graphql.Document, bag *diag.Bag) {
	ops := make(map[string]source.Location)
	frags := make(map[string]source.Location)
	for i, doc := range docs {
		path := files[i].Path
		var opCount, anon int
		for _, def := range doc.Definitions {
			switch d := def.(type) {
			case *graphql.OperationDefinition:
				opCount++
				if d.Name == nil {
					anon++
					continue
				}
				loc := source.Location{Path: path, Span: d.Name.Loc}
				if prev, dup := ops[d.Name.Value]; dup {
					bag.Add(diag.Errorf(diag.SemDuplicateOperation, loc, "operation %q is defined more than once", d.Name.Value).
						WithNote(prev, "previous definition"))
					continue
				}
				ops[d.Name.Value] = loc
			case *graphql.FragmentDefinition:
				loc := source.Location{Path: path, Span: d.Name.Loc}
				if prev, dup := frags[d.Name.Value]; dup {
					bag.Add(diag.Errorf(diag.SemDuplicateFragment, loc, "fragment %q is defined more than once", d.Name.Value).
						WithNote(prev, "previous definition"))
					continue
				}
				frags[d.Name.Value] = loc
			}
		}
		if anon > 0 && opCount > 1 {
			for _, def := range doc.Definitions {
				if op, ok := def.(*graphql.OperationDefinition); ok && op.Name == nil {
					bag.Add(diag.Errorf(diag.SemAnonymousNotAlone, source.Location{Path: path, Span: op.Loc},
						"anonymous operation must be the only operation in its document"))
				}
			}
		}
	}
}
