package ir

import (
	"testing"

	"graft/internal/graphql"
	"graft/internal/intern"
	"graft/internal/schema"
	"graft/internal/source"
)

func buildProgram(t *testing.T, text string) *Program {
	t.Helper()
	file := source.NewFileString("ops.graphql", text)
	doc, diags := graphql.Parse(file)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	b := NewBuilder(schema.New(intern.Intern("test")))
	b.AddDocument(file, doc)
	return b.Build()
}

func TestBuilderOrdersOperations(t *testing.T) {
	p := buildProgram(t, "query B { a } query A { a } fragment F on T { a }")
	ops := p.Operations()
	if len(ops) != 2 || ops[0].Name != "A" || ops[1].Name != "B" {
		t.Fatalf("unexpected operation order")
	}
	if ops[0].Text != "query A { a }" {
		t.Fatalf("operation text = %q", ops[0].Text)
	}
	if _, ok := p.Fragment("F"); !ok {
		t.Fatalf("fragment F missing")
	}
}

func TestSkipSplitOperationRemovesModuleOperations(t *testing.T) {
	p := buildProgram(t, `query Main { a } query Split @__module(name: "x") { a } fragment F on T { a }`)
	out := Apply(p, SkipSplitOperation{})
	if out.OperationCount() != 1 {
		t.Fatalf("got %d operations, want 1", out.OperationCount())
	}
	if _, ok := out.Operation("Split"); ok {
		t.Fatalf("split operation kept")
	}
	if out.FragmentCount() != 1 {
		t.Fatalf("fragments must be kept")
	}
	if p.OperationCount() != 2 {
		t.Fatalf("input program mutated")
	}
}

func TestSkipSplitOperationKeepsUnchangedProgram(t *testing.T) {
	p := buildProgram(t, "query Main { a }")
	if out := (SkipSplitOperation{}).Apply(p); out != p {
		t.Fatalf("unchanged program should be returned as is")
	}
}
