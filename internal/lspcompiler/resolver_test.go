package lspcompiler

import (
	"path/filepath"
	"testing"
)

const nestedConfig = `
[projects.web]
root = "web"
schema = ["web/schema.graphql"]

[projects.widgets]
root = "web/widgets"
schema = ["web/widgets/schema.graphql"]
`

func TestProjectByRoot(t *testing.T) {
	h := newHarness(t, "", nil)
	r := ProjectByRoot(h.cfg, nil)

	tests := []struct {
		rel  string
		want string
		ok   bool
	}{
		{"web/a.graphql", "web", true},
		{"admin/deep/b.graphql", "admin", true},
		{"elsewhere/c.graphql", "", false},
	}
	for _, tt := range tests {
		got, ok := r.Resolve(h.path(tt.rel))
		if ok != tt.ok || (ok && got.String() != tt.want) {
			t.Fatalf("Resolve(%s) = %v %v, want %s %v", tt.rel, got, ok, tt.want, tt.ok)
		}
	}
	if _, ok := r.Resolve(""); ok {
		t.Fatalf("empty path resolved without a fallback")
	}
}

func TestProjectByRootFallbackAndOnlyProject(t *testing.T) {
	h := newHarness(t, "", nil)
	fallback := adminName
	r := ProjectByRoot(h.cfg, &fallback)
	if got, ok := r.Resolve(h.path("elsewhere/c.graphql")); !ok || got != adminName {
		t.Fatalf("fallback = %v %v", got, ok)
	}
	if got, ok := r.Resolve(""); !ok || got != adminName {
		t.Fatalf("fallback for empty path = %v %v", got, ok)
	}

	only := webName
	h.cfg.OnlyProject = &only
	if got, ok := r.Resolve(h.path("admin/q.graphql")); !ok || got != webName {
		t.Fatalf("only project = %v %v", got, ok)
	}
}

func TestProjectByRootPrefersDeepestRoot(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"graft.toml":                 nestedConfig,
		"web/schema.graphql":         testSchema,
		"web/widgets/schema.graphql": testSchema,
	})
	cfg := loadConfig(t, filepath.Join(dir, "graft.toml"))
	r := ProjectByRoot(cfg, nil)

	if got, ok := r.Resolve(filepath.Join(cfg.RootDir, "web", "widgets", "w.graphql")); !ok || got.String() != "widgets" {
		t.Fatalf("nested = %v %v", got, ok)
	}
	if got, ok := r.Resolve(filepath.Join(cfg.RootDir, "web", "page.graphql")); !ok || got.String() != "web" {
		t.Fatalf("outer = %v %v", got, ok)
	}
}

func TestFixedProject(t *testing.T) {
	r := FixedProject(webName)
	if got, ok := r.Resolve("/anywhere"); !ok || got != webName {
		t.Fatalf("fixed = %v %v", got, ok)
	}
}
