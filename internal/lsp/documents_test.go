package lsp

import (
	"path/filepath"
	"testing"
)

func change(sl, sc, el, ec int, text string) TextDocumentContentChangeEvent {
	return TextDocumentContentChangeEvent{
		Range: &Range{
			Start: Position{Line: sl, Character: sc},
			End:   Position{Line: el, Character: ec},
		},
		Text: text,
	}
}

func TestApplyChangesIncremental(t *testing.T) {
	text := "query {\n  user\n}\n"
	got := applyChanges(text, []TextDocumentContentChangeEvent{
		change(1, 6, 1, 6, " { id }"),
		change(0, 5, 0, 5, " Me"),
	})
	want := "query Me {\n  user { id }\n}\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestApplyChangesFullReplaceAndClamp(t *testing.T) {
	got := applyChanges("old", []TextDocumentContentChangeEvent{{Text: "new"}, change(5, 0, 9, 9, "!")})
	if got != "new!" {
		t.Fatalf("got %q", got)
	}
}

func TestApplyChangesUTF16(t *testing.T) {
	// The emoji takes two UTF-16 code units, so x starts at character 4.
	text := "# 😀x"
	got := applyChanges(text, []TextDocumentContentChangeEvent{change(0, 4, 0, 5, "y")})
	if got != "# 😀y" {
		t.Fatalf("got %q", got)
	}
}

func TestDocumentCacheLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.graphql")
	uri := PathToURI(path)
	cache := NewDocumentCache()

	cache.Open(DidOpenTextDocumentParams{TextDocument: TextDocumentItem{URI: uri, Version: 1, Text: "{ a }"}})
	cache.Change(DidChangeTextDocumentParams{
		TextDocument:   VersionedTextDocumentIdentifier{URI: uri, Version: 2},
		ContentChanges: []TextDocumentContentChangeEvent{change(0, 3, 0, 3, " b")},
	})
	text, ok := cache.Text(uri)
	if !ok || text != "{ a b }" {
		t.Fatalf("text = %q, %v", text, ok)
	}
	if v, _ := cache.Version(uri); v != 2 {
		t.Fatalf("version = %d", v)
	}
	f, ok := cache.File(path)
	if !ok || string(f.Content) != "{ a b }" {
		t.Fatalf("file lookup failed")
	}

	cache.Close(DidCloseTextDocumentParams{TextDocument: TextDocumentIdentifier{URI: uri}})
	if _, ok := cache.Text(uri); ok || cache.Len() != 0 {
		t.Fatalf("document still cached after close")
	}
}

func TestDocumentCacheChangeWithoutOpen(t *testing.T) {
	cache := NewDocumentCache()
	uri := PathToURI(filepath.Join(t.TempDir(), "b.graphql"))
	cache.Change(DidChangeTextDocumentParams{
		TextDocument:   VersionedTextDocumentIdentifier{URI: uri, Version: 1},
		ContentChanges: []TextDocumentContentChangeEvent{{Text: "{ x }"}},
	})
	if text, ok := cache.Text(uri); !ok || text != "{ x }" {
		t.Fatalf("text = %q, %v", text, ok)
	}
}
