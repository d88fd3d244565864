package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"graft/internal/diag"
	"graft/internal/source"
)

func TestJSONBasic(t *testing.T) {
	file := source.NewFileString("/w/web/q.graphql", "query Q {\n  viewer { nope }\n}\n")
	d := unknownField(file.Path, 21, 25).WithNote(source.Location{Path: file.Path, Span: source.Span{Start: 12, End: 18}}, "on this field")

	var buf bytes.Buffer
	opts := JSONOpts{IncludePositions: true, PathMode: PathModeRelative, BaseDir: "/w", IncludeNotes: true}
	if err := JSON(&buf, []diag.Diagnostic{d}, filesOf(file), opts); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}

	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("count = %d", out.Count)
	}
	got := out.Diagnostics[0]
	if got.Severity != "ERROR" || got.Code != "SEM3002" {
		t.Fatalf("unexpected header %+v", got)
	}
	want := LocationJSON{File: "web/q.graphql", StartByte: 21, EndByte: 25, StartLine: 2, StartCol: 12, EndLine: 2, EndCol: 16}
	if got.Location != want {
		t.Fatalf("location = %+v, want %+v", got.Location, want)
	}
	if len(got.Notes) != 1 || got.Notes[0].Location.StartCol != 3 {
		t.Fatalf("notes = %+v", got.Notes)
	}
}

func TestJSONMaxAndPositionsOff(t *testing.T) {
	diags := []diag.Diagnostic{unknownField("a.graphql", 0, 1), unknownField("b.graphql", 0, 1)}
	out := BuildDiagnosticsOutput(diags, nil, JSONOpts{Max: 1})
	if out.Count != 1 {
		t.Fatalf("count = %d", out.Count)
	}
	if loc := out.Diagnostics[0].Location; loc.StartLine != 0 || loc.File != "a.graphql" {
		t.Fatalf("location = %+v", loc)
	}
}
