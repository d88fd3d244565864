package lsp

import "graft/internal/source"

// DocumentCache holds the live text of documents open in the editor, keyed
// by canonical URI. It is owned by a single goroutine.
type DocumentCache struct {
	docs map[string]*document
}

type document struct {
	text    string
	version int
}

func NewDocumentCache() *DocumentCache {
	return &DocumentCache{docs: make(map[string]*document)}
}

// Open stores the document text, replacing any previous entry.
func (c *DocumentCache) Open(p DidOpenTextDocumentParams) {
	uri := CanonicalURI(p.TextDocument.URI)
	if uri == "" {
		return
	}
	c.docs[uri] = &document{text: p.TextDocument.Text, version: p.TextDocument.Version}
}

// Change applies incremental changes. A document not seen before starts
// empty.
func (c *DocumentCache) Change(p DidChangeTextDocumentParams) {
	uri := CanonicalURI(p.TextDocument.URI)
	if uri == "" {
		return
	}
	doc, ok := c.docs[uri]
	if !ok {
		doc = &document{}
		c.docs[uri] = doc
	}
	doc.text = applyChanges(doc.text, p.ContentChanges)
	doc.version = p.TextDocument.Version
}

func (c *DocumentCache) Close(p DidCloseTextDocumentParams) {
	delete(c.docs, CanonicalURI(p.TextDocument.URI))
}

// Text returns the synced text of uri.
func (c *DocumentCache) Text(uri string) (string, bool) {
	doc, ok := c.docs[CanonicalURI(uri)]
	if !ok {
		return "", false
	}
	return doc.text, true
}

func (c *DocumentCache) Version(uri string) (int, bool) {
	doc, ok := c.docs[CanonicalURI(uri)]
	if !ok {
		return 0, false
	}
	return doc.version, true
}

// File returns the synced text of the document at path.
func (c *DocumentCache) File(path string) (*source.File, bool) {
	text, ok := c.Text(PathToURI(path))
	if !ok {
		return nil, false
	}
	return source.NewFileString(path, text), true
}

func (c *DocumentCache) Len() int { return len(c.docs) }

