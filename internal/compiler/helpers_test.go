package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"graft/internal/config"
	"graft/internal/intern"
)

const webSchema = `
type Query { user(id: ID!): User  viewer: User }
type User { id: ID!  name: String  friends: [User!] }
`

const twoProjectConfig = `
[projects.web]
root = "web"
schema = ["web/schema.graphql"]

[projects.admin]
root = "admin"
schema = ["admin/schema.graphql"]
`

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

// newWorkspace writes a two-project workspace and loads its config and
// state.
func newWorkspace(t *testing.T, files map[string]string) (string, *config.Config, *State) {
	t.Helper()
	root := t.TempDir()
	base := map[string]string{
		"graft.toml":           twoProjectConfig,
		"web/schema.graphql":   webSchema,
		"admin/schema.graphql": webSchema,
	}
	for k, v := range files {
		base[k] = v
	}
	writeFiles(t, root, base)
	cfg, err := config.Load(filepath.Join(root, "graft.toml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	state, err := LoadState(cfg, nil)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	return cfg.RootDir, cfg, state
}

var (
	webName   = intern.Intern("web")
	adminName = intern.Intern("admin")
)
