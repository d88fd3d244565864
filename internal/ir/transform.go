package ir

import "graft/internal/graphql"

// ModuleDirective marks an operation generated for a split module.
const ModuleDirective = "__module"

// Transform rewrites a program. Implementations return the input program
// when nothing changed.
type Transform interface {
	Name() string
	Apply(*Program) *Program
}

// Apply runs transforms in order.
func Apply(p *Program, transforms ...Transform) *Program {
	for _, t := range transforms {
		p = t.Apply(p)
	}
	return p
}

// SkipSplitOperation removes operations annotated with @__module, keeping
// every fragment. It is used when printing operations for a server.
type SkipSplitOperation struct{}

func (SkipSplitOperation) Name() string { return "SkipSplitOperationTransform" }

func (SkipSplitOperation) Apply(p *Program) *Program {
	kept := make([]*Operation, 0, len(p.operations))
	for _, op := range p.operations {
		if graphql.HasDirective(op.Def.Directives, ModuleDirective) {
			continue
		}
		kept = append(kept, op)
	}
	if len(kept) == len(p.operations) {
		return p
	}
	return &Program{Schema: p.Schema, operations: kept, fragments: p.fragments}
}
