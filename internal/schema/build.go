package schema

import (
	"graft/internal/graphql"
	"graft/internal/intern"
	"graft/internal/source"
)

// FromFiles builds and finishes a schema from SDL files. It never fails:
// syntax and semantic problems are recorded as diagnostics.
func FromFiles(project intern.StringKey, files []*source.File) *Schema {
	s := New(project)
	type pending struct {
		path string
		ext  *graphql.TypeDefinition
	}
	var exts []pending
	for _, f := range files {
		doc, diags := graphql.Parse(f)
		s.AddDiagnostics(diags...)
		for _, ext := range s.AddDocument(doc) {
			exts = append(exts, pending{path: f.Path, ext: ext})
		}
	}
	for _, p := range exts {
		s.Extend(p.path, p.ext)
	}
	s.Finish()
	return s
}

// FromString builds a schema from a single SDL text.
func FromString(project intern.StringKey, path, sdl string) *Schema {
	return FromFiles(project, []*source.File{source.NewFileString(path, sdl)})
}
