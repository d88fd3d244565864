package compiler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"graft/internal/diag"
	"graft/internal/errs"
	"graft/internal/trace"
)

func TestParseSourcesOnlyPending(t *testing.T) {
	root, cfg, state := newWorkspace(t, map[string]string{"web/old.graphql": "query Old { viewer { id } }"})
	writeFiles(t, root, map[string]string{"web/new.graphql": "query New { viewer { name } }"})
	if _, err := state.AddPendingFileSourceChanges(cfg, batchOf(filepath.Join(root, "web", "new.graphql")), perfEvent()); err != nil {
		t.Fatal(err)
	}
	parsed, err := NewPipeline().ParseSources(state)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Len() != 1 {
		t.Fatalf("parsed %d documents, want 1", parsed.Len())
	}
	if _, ok := parsed.Document(filepath.Join(root, "web", "new.graphql")); !ok {
		t.Fatalf("pending document missing")
	}
}

func TestParseSourcesSyntaxErrors(t *testing.T) {
	root, cfg, state := newWorkspace(t, nil)
	writeFiles(t, root, map[string]string{
		"web/bad.graphql":   "query { user { ",
		"admin/bad.graphql": "type Query { a: Int }",
	})
	b := batchOf(filepath.Join(root, "web", "bad.graphql"), filepath.Join(root, "admin", "bad.graphql"))
	if _, err := state.AddPendingFileSourceChanges(cfg, b, perfEvent()); err != nil {
		t.Fatal(err)
	}
	_, err := NewPipeline().ParseSources(state)
	var se *errs.SyntaxErrors
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want SyntaxErrors", err)
	}
	if len(se.Errors) != 2 {
		t.Fatalf("got %d syntax errors, want 2", len(se.Errors))
	}
	if se.Errors[0].Code != diag.SynUnexpectedTopLevel || se.Errors[1].Code != diag.SynUnclosedBrace {
		t.Fatalf("unexpected codes %s %s", se.Errors[0].Code.ID(), se.Errors[1].Code.ID())
	}
}

func checkWeb(t *testing.T, files map[string]string) (*Programs, error) {
	t.Helper()
	root, cfg, state := newWorkspace(t, nil)
	writeFiles(t, root, files)
	var paths []string
	for rel := range files {
		paths = append(paths, filepath.Join(root, filepath.FromSlash(rel)))
	}
	if _, err := state.AddPendingFileSourceChanges(cfg, batchOf(paths...), perfEvent()); err != nil {
		t.Fatal(err)
	}
	p := NewPipeline()
	parsed, err := p.ParseSources(state)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	schemas := BuildSchemas(cfg, state, perfEvent())
	ctx := trace.WithTracer(context.Background(), trace.Nop)
	return p.CheckProject(ctx, cfg.Projects[webName], state, parsed, schemas[webName])
}

func TestCheckProjectBuildsPrograms(t *testing.T) {
	programs, err := checkWeb(t, map[string]string{
		"web/a.graphql": `query A { viewer { ...U } } fragment U on User { id name }`,
		"web/b.graphql": `query B @__module(name: "b") { user(id: 1) { friends { id } } }`,
	})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if programs.Project != webName {
		t.Fatalf("project = %s", programs.Project)
	}
	if programs.Source.OperationCount() != 2 {
		t.Fatalf("source operations = %d, want 2", programs.Source.OperationCount())
	}
	if programs.Operations.OperationCount() != 1 {
		t.Fatalf("split operation not skipped")
	}
}

func TestCheckProjectValidation(t *testing.T) {
	cases := []struct {
		name string
		text string
		code diag.Code
	}{
		{"unknown field", "query Q { viewer { nme } }", diag.SemUnknownField},
		{"unknown fragment", "query Q { viewer { ...Missing } }", diag.SemUnknownFragment},
		{"leaf selection", "query Q { viewer { id { x } } }", diag.SemLeafWithSelection},
		{"composite without fields", "query Q { viewer }", diag.SemCompositeWithoutFields},
		{"no mutation root", "mutation M { viewer { id } }", diag.SemNoRootType},
		{"unknown type condition", "query Q { viewer { ... on Nope { id } } }", diag.SemUnknownType},
		{"fragment on scalar", "fragment F on String { a }", diag.SemFragmentOnScalar},
		{"duplicate operation", "query Q { viewer { id } } query Q { viewer { id } }", diag.SemDuplicateOperation},
		{"anonymous not alone", "{ viewer { id } } query Q { viewer { id } }", diag.SemAnonymousNotAlone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := checkWeb(t, map[string]string{"web/q.graphql": tc.text})
			var be *errs.BuildProjectError
			if !errors.As(err, &be) {
				t.Fatalf("got %v, want BuildProjectError", err)
			}
			if be.Project != webName {
				t.Fatalf("project = %s", be.Project)
			}
			found := false
			for _, d := range be.Diagnostics {
				if d.Code == tc.code {
					found = true
				}
			}
			if !found {
				t.Fatalf("missing %s in %v", tc.code.ID(), be.Diagnostics)
			}
		})
	}
}

func TestCheckProjectCancelled(t *testing.T) {
	_, cfg, state := newWorkspace(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	schemas := BuildSchemas(cfg, state, perfEvent())
	_, err := NewPipeline().CheckProject(ctx, cfg.Projects[webName], state, nil, schemas[webName])
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestParseCacheReusesDocuments(t *testing.T) {
	_, _, state := newWorkspace(t, map[string]string{"web/q.graphql": "{ viewer { id } }"})
	c := NewParseCache(8)
	f := state.Sources(webName)[0]
	d1, _ := c.Parse(f)
	d2, _ := c.Parse(f)
	if d1 != d2 || c.Len() != 1 {
		t.Fatalf("cache did not reuse the parse")
	}
}
