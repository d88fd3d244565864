// Package ir holds validated programs: the operations and fragments of a
// project bound to the schema they were checked against.
package ir

import (
	"sort"

	"graft/internal/graphql"
	"graft/internal/schema"
	"graft/internal/source"
)

type Operation struct {
	Name string
	Path string
	Text string
	Def  *graphql.OperationDefinition
}

type Fragment struct {
	Name string
	Path string
	Text string
	Def  *graphql.FragmentDefinition
}

// Program is immutable once built; transforms return new programs.
type Program struct {
	Schema     *schema.Schema
	operations []*Operation
	fragments  map[string]*Fragment
}

func NewProgram(s *schema.Schema) *Program {
	return &Program{Schema: s, fragments: make(map[string]*Fragment)}
}

// Builder accumulates definitions and produces a Program.
type Builder struct {
	prog *Program
}

func NewBuilder(s *schema.Schema) *Builder {
	return &Builder{prog: NewProgram(s)}
}

// AddDocument adds every executable definition of doc. file supplies the
// source text of each definition.
func (b *Builder) AddDocument(file *source.File, doc *graphql.Document) {
	for _, def := range doc.Definitions {
		text := string(file.Content[def.Span().Start:def.Span().End])
		switch d := def.(type) {
		case *graphql.OperationDefinition:
			op := &Operation{Path: file.Path, Text: text, Def: d}
			if d.Name != nil {
				op.Name = d.Name.Value
			}
			b.prog.operations = append(b.prog.operations, op)
		case *graphql.FragmentDefinition:
			b.prog.fragments[d.Name.Value] = &Fragment{Name: d.Name.Value, Path: file.Path, Text: text, Def: d}
		}
	}
}

// Build returns the program with operations ordered by name then path.
func (b *Builder) Build() *Program {
	p := b.prog
	sort.SliceStable(p.operations, func(i, j int) bool {
		if p.operations[i].Name != p.operations[j].Name {
			return p.operations[i].Name < p.operations[j].Name
		}
		return p.operations[i].Path < p.operations[j].Path
	})
	b.prog = NewProgram(p.Schema)
	return p
}

func (p *Program) Operations() []*Operation {
	return p.operations
}

func (p *Program) Operation(name string) (*Operation, bool) {
	for _, op := range p.operations {
		if op.Name == name {
			return op, true
		}
	}
	return nil, false
}

func (p *Program) Fragment(name string) (*Fragment, bool) {
	f, ok := p.fragments[name]
	return f, ok
}

// FragmentNames returns fragment names, sorted.
func (p *Program) FragmentNames() []string {
	names := make([]string, 0, len(p.fragments))
	for name := range p.fragments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *Program) OperationCount() int { return len(p.operations) }
func (p *Program) FragmentCount() int  { return len(p.fragments) }
