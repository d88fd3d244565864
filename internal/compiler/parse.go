package compiler

import (
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"graft/internal/diag"
	"graft/internal/errs"
	"graft/internal/graphql"
	"graft/internal/source"
)

// DefaultParseCacheSize bounds the number of parsed documents kept.
const DefaultParseCacheSize = 4096

type parseKey struct {
	path   string
	digest source.Digest
}

type parseResult struct {
	doc   *graphql.Document
	diags []diag.Diagnostic
}

// ParseCache memoizes parses by path and content digest.
type ParseCache struct {
	cache *lru.Cache[parseKey, parseResult]
}

func NewParseCache(size int) *ParseCache {
	if size <= 0 {
		size = DefaultParseCacheSize
	}
	c, err := lru.New[parseKey, parseResult](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &ParseCache{cache: c}
}

// Parse returns the document for f and any syntax diagnostics, including
// type-system definitions found in an executable source.
func (c *ParseCache) Parse(f *source.File) (*graphql.Document, []diag.Diagnostic) {
	key := parseKey{path: f.Path, digest: f.Hash}
	if r, ok := c.cache.Get(key); ok {
		return r.doc, r.diags
	}
	doc, diags := graphql.Parse(f)
	if len(diags) == 0 {
		for _, def := range doc.Definitions {
			if !graphql.IsExecutable(def) {
				diags = append(diags, diag.Errorf(diag.SynUnexpectedTopLevel,
					source.Location{Path: f.Path, Span: def.Span()},
					"type system definitions belong in schema files"))
			}
		}
	}
	c.cache.Add(key, parseResult{doc: doc, diags: diags})
	return doc, diags
}

func (c *ParseCache) Len() int { return c.cache.Len() }

// ParsedSources holds the documents of the sources pending in one cycle.
type ParsedSources struct {
	docs map[string]*graphql.Document
}

// Document returns the parsed document for path, if it was pending.
func (p *ParsedSources) Document(path string) (*graphql.Document, bool) {
	if p == nil {
		return nil, false
	}
	d, ok := p.docs[path]
	return d, ok
}

func (p *ParsedSources) Len() int {
	if p == nil {
		return 0
	}
	return len(p.docs)
}

// ParseSources parses every pending source across projects. Any syntax error
// fails the whole call with *errs.SyntaxErrors listing every error found.
func (p *Pipeline) ParseSources(state *State) (*ParsedSources, error) {
	parsed := &ParsedSources{docs: make(map[string]*graphql.Document)}
	bag := diag.NewBag(0)
	for _, f := range state.PendingFiles() {
		doc, diags := p.cache.Parse(f)
		for _, d := range diags {
			bag.Add(d)
		}
		parsed.docs[f.Path] = doc
	}
	if bag.HasErrors() {
		bag.Sort()
		p.log.Debug("parse failed", slog.Int("errors", bag.Len()))
		return nil, &errs.SyntaxErrors{Errors: bag.Items()}
	}
	return parsed, nil
}
