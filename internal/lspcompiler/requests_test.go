package lspcompiler

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"graft/internal/lsp"
	"graft/internal/metrics"
)

const openSelection = "query Viewer { viewer { "

func endPos(text string) lsp.Position {
	return lsp.Position{Line: 0, Character: len(text)}
}

func itemLabels(items []lsp.CompletionItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Label
	}
	return out
}

func TestScenarioCCompletionFromAdoptedPrograms(t *testing.T) {
	h := newHarness(t, "", map[string]string{"web/q.graphql": validQuery})
	h.edit(map[string]string{"web/q.graphql": validQuery + "\n"})

	h.open("web/q.graphql", openSelection)
	h.complete("web/q.graphql", endPos(openSelection), "7")

	calls := h.conn.completionCalls()
	if len(calls) != 1 {
		t.Fatalf("completions = %d, want 1", len(calls))
	}
	if calls[0].id.String() != "7" {
		t.Fatalf("request id = %q", calls[0].id.String())
	}
	if !slices.Contains(itemLabels(calls[0].items), "id") {
		t.Fatalf("items %v missing id", itemLabels(calls[0].items))
	}
	if got := testutil.ToFloat64(h.c.metrics.Completions.WithLabelValues(metrics.CompletionSent)); got != 1 {
		t.Fatalf("sent = %v", got)
	}
}

func TestCompletionCacheMissIsSilent(t *testing.T) {
	h := newHarness(t, "", map[string]string{"web/q.graphql": validQuery})

	h.open("web/q.graphql", openSelection)
	h.complete("web/q.graphql", endPos(openSelection), "1")

	if len(h.conn.completionCalls()) != 0 || len(h.conn.publishCalls()) != 0 {
		t.Fatalf("cache miss produced output")
	}
	if got := testutil.ToFloat64(h.c.metrics.Completions.WithLabelValues(metrics.CompletionNoPrograms)); got != 1 {
		t.Fatalf("no_programs = %v", got)
	}
}

func TestCompletionForUnsyncedDocumentIsSilent(t *testing.T) {
	h := newHarness(t, "", map[string]string{"web/q.graphql": validQuery})
	h.edit(map[string]string{"web/q.graphql": validQuery + "\n"})

	h.complete("web/q.graphql", endPos(openSelection), "2")

	if len(h.conn.completionCalls()) != 0 {
		t.Fatalf("completion sent for a document never opened")
	}
	if got := testutil.ToFloat64(h.c.metrics.Completions.WithLabelValues(metrics.CompletionNoDocument)); got != 1 {
		t.Fatalf("no_document = %v", got)
	}
}

func TestDocumentLifecycleDrivesCompletion(t *testing.T) {
	h := newHarness(t, "", map[string]string{"web/q.graphql": validQuery})
	h.edit(map[string]string{"web/q.graphql": validQuery + "\n"})
	uri := h.uri("web/q.graphql")

	h.open("web/q.graphql", "")
	h.c.onBridgeMessage(lsp.DidChangeTextDocument{Params: lsp.DidChangeTextDocumentParams{
		TextDocument:   lsp.VersionedTextDocumentIdentifier{URI: uri, Version: 2},
		ContentChanges: []lsp.TextDocumentContentChangeEvent{{Text: openSelection}},
	}})
	h.complete("web/q.graphql", endPos(openSelection), "3")
	if len(h.conn.completionCalls()) != 1 {
		t.Fatalf("changed document not used for completion")
	}

	h.c.onBridgeMessage(lsp.DidCloseTextDocument{Params: lsp.DidCloseTextDocumentParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: uri},
	}})
	h.complete("web/q.graphql", endPos(openSelection), "4")
	if len(h.conn.completionCalls()) != 1 {
		t.Fatalf("closed document still served completions")
	}
}

func TestCompletionOutsideProjectsIsSilent(t *testing.T) {
	h := newHarness(t, "", map[string]string{"web/q.graphql": validQuery})
	h.edit(map[string]string{"web/q.graphql": validQuery + "\n"})

	h.open("elsewhere/q.graphql", openSelection)
	h.complete("elsewhere/q.graphql", endPos(openSelection), "5")

	if len(h.conn.completionCalls()) != 0 {
		t.Fatalf("completion sent for a document outside every project")
	}
	if got := testutil.ToFloat64(h.c.metrics.Completions.WithLabelValues(metrics.CompletionNoProject)); got != 1 {
		t.Fatalf("no_project = %v", got)
	}
}

func TestCompletionUsesFallbackProject(t *testing.T) {
	h := newHarness(t, "default_project = \"web\"\n", map[string]string{"web/q.graphql": validQuery})
	h.edit(map[string]string{"web/q.graphql": validQuery + "\n"})

	h.open("elsewhere/q.graphql", openSelection)
	h.complete("elsewhere/q.graphql", endPos(openSelection), "6")

	if len(h.conn.completionCalls()) != 1 {
		t.Fatalf("fallback project not used")
	}
}

type unknownMessage struct{ lsp.CompletionRequest }

func TestUnknownBridgeMessagePanics(t *testing.T) {
	h := newHarness(t, "", nil)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	h.c.onBridgeMessage(unknownMessage{})
}

func TestCompletionThroughSymlinkedWorkspace(t *testing.T) {
	h := newHarness(t, "", map[string]string{"web/q.graphql": validQuery})
	h.edit(map[string]string{"web/q.graphql": validQuery + "\n"})
	link := filepath.Join(t.TempDir(), "ws")
	if err := os.Symlink(h.root, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	uri := lsp.PathToURI(filepath.Join(link, "web", "q.graphql"))

	h.c.onBridgeMessage(lsp.DidOpenTextDocument{Params: lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{URI: uri, Version: 1, Text: openSelection},
	}})
	h.c.onBridgeMessage(completionRequest(uri, endPos(openSelection), "3"))

	calls := h.conn.completionCalls()
	if len(calls) != 1 || !slices.Contains(itemLabels(calls[0].items), "id") {
		t.Fatalf("completions through symlink = %+v", calls)
	}
	if got := testutil.ToFloat64(h.c.metrics.Completions.WithLabelValues(metrics.CompletionNoProject)); got != 0 {
		t.Fatalf("no_project = %v", got)
	}
}
