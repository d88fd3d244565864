package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"graft/internal/errs"
	"graft/internal/intern"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func workspace(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("eval symlinks: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "web"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "mobile"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return dir
}

func TestLoadTOML(t *testing.T) {
	dir := workspace(t)
	path := filepath.Join(dir, "graft.toml")
	writeFile(t, path, `
default_project = "web"
adoption = "successful"
artifacts = ".graft"

[projects.web]
root = "web"
schema = ["schema/web.graphql"]
extensions = [".GraphQL", "gql"]

[projects.mobile]
root = "mobile"
schema = ["schema/mobile.graphql"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(cfg.Projects))
	}
	if cfg.Adoption != AdoptSuccessful {
		t.Fatalf("unexpected adoption %s", cfg.Adoption)
	}
	if cfg.OnlyProject != nil {
		t.Fatal("expected all-projects mode")
	}
	if cfg.DefaultProject == nil || cfg.DefaultProject.String() != "web" {
		t.Fatalf("unexpected default project %v", cfg.DefaultProject)
	}
	if cfg.ArtifactsDir != filepath.Join(dir, ".graft") {
		t.Fatalf("unexpected artifacts dir %q", cfg.ArtifactsDir)
	}
	sorted := cfg.SortedProjects()
	if sorted[0].Name.String() != "mobile" || sorted[1].Name.String() != "web" {
		t.Fatalf("unexpected order %v", sorted)
	}
	web := sorted[1]
	if web.Root != filepath.Join(dir, "web") {
		t.Fatalf("unexpected root %q", web.Root)
	}
	if len(web.Extensions) != 2 || web.Extensions[0] != "graphql" || web.Extensions[1] != "gql" {
		t.Fatalf("unexpected extensions %v", web.Extensions)
	}
	if !web.IsSourceFile(filepath.Join(dir, "web", "a", "q.gql")) {
		t.Fatal("expected .gql source under web")
	}
	if web.IsSourceFile(filepath.Join(dir, "mobile", "q.graphql")) {
		t.Fatal("mobile file must not belong to web")
	}
	if !web.IsSchemaFile(filepath.Join(dir, "schema", "web.graphql")) {
		t.Fatal("expected schema file")
	}
	if got := cfg.ProjectsContaining(filepath.Join(dir, "schema", "web.graphql")); len(got) != 1 || got[0] != web {
		t.Fatalf("schema file should map to web only, got %v", got)
	}
}

func TestLoadYAMLOnlyProject(t *testing.T) {
	dir := workspace(t)
	path := filepath.Join(dir, "graft.yaml")
	writeFile(t, path, `
only_project: web
projects:
  web:
    root: web
    schema: [schema.graphql]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OnlyProject == nil || cfg.OnlyProject.String() != "web" {
		t.Fatalf("unexpected only project %v", cfg.OnlyProject)
	}
	if cfg.Adoption != AdoptAllOrNothing {
		t.Fatalf("unexpected default adoption %s", cfg.Adoption)
	}
}

func TestLoadErrorsAreClassified(t *testing.T) {
	dir := workspace(t)

	_, err := Load(filepath.Join(dir, "missing.toml"))
	var readErr *errs.ConfigFileReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("expected read error, got %v", err)
	}

	bad := filepath.Join(dir, "bad.toml")
	writeFile(t, bad, "projects = [")
	_, err = Load(bad)
	var parseErr *errs.ConfigFileParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected parse error, got %v", err)
	}

	invalid := filepath.Join(dir, "invalid.toml")
	writeFile(t, invalid, `
only_project = "nope"
[projects.web]
root = "web"
`)
	_, err = Load(invalid)
	var validation *errs.ConfigFileValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(validation.Messages) != 2 {
		t.Fatalf("expected missing schema and bad only_project, got %v", validation.Messages)
	}

	missingRoot := filepath.Join(dir, "root.toml")
	writeFile(t, missingRoot, `
[projects.web]
root = "does-not-exist"
schema = ["s.graphql"]
`)
	_, err = Load(missingRoot)
	var canon *errs.CanonicalizeRootError
	if !errors.As(err, &canon) {
		t.Fatalf("expected canonicalize error, got %v", err)
	}
}

func TestFindWalksUp(t *testing.T) {
	dir := workspace(t)
	path := filepath.Join(dir, "graft.toml")
	writeFile(t, path, "")
	found, ok, err := Find(filepath.Join(dir, "web"))
	if err != nil || !ok {
		t.Fatalf("find: ok=%v err=%v", ok, err)
	}
	if found != path {
		t.Fatalf("expected %q, got %q", path, found)
	}
}

func TestWatchRootsDropsNested(t *testing.T) {
	cfg := &Config{Projects: map[ProjectName]*ProjectConfig{}}
	for _, p := range []*ProjectConfig{
		{Name: intern.Intern("repo"), Root: "/repo"},
		{Name: intern.Intern("repo-web"), Root: "/repo/web"},
		{Name: intern.Intern("other"), Root: "/other"},
	} {
		cfg.Projects[p.Name] = p
	}
	roots := cfg.WatchRoots()
	if len(roots) != 2 {
		t.Fatalf("expected 2 roots, got %v", roots)
	}
}

func TestPathWithin(t *testing.T) {
	cases := []struct {
		root, path string
		want       bool
	}{
		{"/a/b", "/a/b", true},
		{"/a/b", "/a/b/c.graphql", true},
		{"/a/b", "/a/bc", false},
		{"/a/b", "/a", false},
		{"", "/a", false},
	}
	for _, tc := range cases {
		if got := PathWithin(tc.root, tc.path); got != tc.want {
			t.Fatalf("PathWithin(%q, %q) = %v, want %v", tc.root, tc.path, got, tc.want)
		}
	}
}
