package lspcompiler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"graft/internal/compiler"
	"graft/internal/config"
	"graft/internal/intern"
	"graft/internal/lsp"
	"graft/internal/schema"
	"graft/internal/trace"
	"graft/internal/watch"
)

const testSchema = `
type Query { user(id: ID!): User  viewer: User }
type User { id: ID!  name: String  friends: [User!] }
`

const projectsConfig = `
[projects.web]
root = "web"
schema = ["web/schema.graphql"]

[projects.admin]
root = "admin"
schema = ["admin/schema.graphql"]
`

const (
	validQuery     = "query Viewer { viewer { id name } }"
	validAdmin     = "query Admin { user(id: 1) { friends { id } } }"
	unknownField   = "query Viewer { viewer { nope } }"
	malformedQuery = "query Viewer { viewer { id }"
)

var (
	webName   = intern.Intern("web")
	adminName = intern.Intern("admin")
)

type changeSource struct {
	ch chan watch.Batch
}

func (s changeSource) Changes() <-chan watch.Batch { return s.ch }

type publishCall struct {
	uri   string
	diags []lsp.Diagnostic
}

type completionCall struct {
	id    lsp.RequestID
	items []lsp.CompletionItem
}

// fakeConn records what the compiler sends to the editor.
type fakeConn struct {
	mu          sync.Mutex
	publishes   []publishCall
	completions []completionCall
	sent        chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{sent: make(chan struct{}, 64)}
}

func (f *fakeConn) PublishDiagnostics(uri string, diags []lsp.Diagnostic) error {
	f.mu.Lock()
	f.publishes = append(f.publishes, publishCall{uri: uri, diags: diags})
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) SendCompletion(id lsp.RequestID, items []lsp.CompletionItem) error {
	f.mu.Lock()
	f.completions = append(f.completions, completionCall{id: id, items: items})
	f.mu.Unlock()
	f.sent <- struct{}{}
	return nil
}

func (f *fakeConn) publishCalls() []publishCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publishCall(nil), f.publishes...)
}

func (f *fakeConn) completionCalls() []completionCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]completionCall(nil), f.completions...)
}

// recordingChecker is the real pipeline with call bookkeeping.
type recordingChecker struct {
	*compiler.Pipeline
	parses  int
	checked []config.ProjectName
}

func (r *recordingChecker) ParseSources(state *compiler.State) (*compiler.ParsedSources, error) {
	r.parses++
	return r.Pipeline.ParseSources(state)
}

func (r *recordingChecker) CheckProject(ctx context.Context, pc *config.ProjectConfig, state *compiler.State, parsed *compiler.ParsedSources, s *schema.Schema) (*compiler.Programs, error) {
	r.checked = append(r.checked, pc.Name)
	return r.Pipeline.CheckProject(ctx, pc, state, parsed, s)
}

type harness struct {
	t        *testing.T
	root     string
	cfg      *config.Config
	state    *compiler.State
	changes  chan watch.Batch
	requests chan lsp.BridgeMessage
	conn     *fakeConn
	checker  *recordingChecker
	c        *Compiler
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, text := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

func loadConfig(t *testing.T, path string) *config.Config {
	t.Helper()
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

// newHarness writes a web/admin workspace whose config starts with header,
// loads it and wires a compiler over fakes.
func newHarness(t *testing.T, header string, files map[string]string, opts ...Option) *harness {
	t.Helper()
	dir := t.TempDir()
	base := map[string]string{
		"graft.toml":           header + projectsConfig,
		"web/schema.graphql":   testSchema,
		"admin/schema.graphql": testSchema,
	}
	for k, v := range files {
		base[k] = v
	}
	writeFiles(t, dir, base)

	cfg := loadConfig(t, filepath.Join(dir, "graft.toml"))
	state, err := compiler.LoadState(cfg, nil)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	schemas := compiler.BuildSchemas(cfg, state, trace.NewPerfLogger(nil, nil).CreateEvent("setup"))

	h := &harness{
		t:        t,
		root:     cfg.RootDir,
		cfg:      cfg,
		state:    state,
		changes:  make(chan watch.Batch, 16),
		requests: make(chan lsp.BridgeMessage, 16),
		conn:     newFakeConn(),
		checker:  &recordingChecker{Pipeline: compiler.NewPipeline()},
	}
	opts = append([]Option{WithPipeline(h.checker)}, opts...)
	h.c = New(schemas, cfg, changeSource{ch: h.changes}, state, h.requests, h.conn, opts...)
	return h
}

// edit writes files and runs one check cycle over them.
func (h *harness) edit(files map[string]string) {
	h.t.Helper()
	writeFiles(h.t, h.root, files)
	var batch watch.Batch
	for rel := range files {
		batch.Changes = append(batch.Changes, watch.Change{Path: h.path(rel), Op: watch.Write})
	}
	h.c.onChanges(context.Background(), batch)
}

func (h *harness) path(rel string) string {
	return filepath.Join(h.root, filepath.FromSlash(rel))
}

func (h *harness) uri(rel string) string {
	return lsp.PathToURI(h.path(rel))
}

func (h *harness) programs(name config.ProjectName) *compiler.Programs {
	p, _ := h.c.Programs(name)
	return p
}

func (h *harness) open(rel, text string) {
	h.c.onBridgeMessage(openRequest(h, rel, text))
}

func openRequest(h *harness, rel, text string) lsp.DidOpenTextDocument {
	return lsp.DidOpenTextDocument{Params: lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{URI: h.uri(rel), Version: 1, Text: text},
	}}
}

func (h *harness) complete(rel string, pos lsp.Position, id string) {
	h.c.onBridgeMessage(completionRequest(h.uri(rel), pos, id))
}

func completionRequest(uri string, pos lsp.Position, id string) lsp.CompletionRequest {
	return lsp.CompletionRequest{
		Params: lsp.CompletionParams{
			TextDocument: lsp.TextDocumentIdentifier{URI: uri},
			Position:     pos,
		},
		RequestID: lsp.RequestID(id),
	}
}

func names(ns []config.ProjectName) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.String()
	}
	return out
}
