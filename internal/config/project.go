package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"graft/internal/intern"
)

// DefaultExtensions are the source extensions used when a project sets none.
var DefaultExtensions = []string{"graphql"}

// ProjectConfig holds the settings of one project. Paths are absolute.
type ProjectConfig struct {
	Name       ProjectName
	Root       string
	Schema     []string
	Extensions []string
}

func buildProject(rootDir, name string, raw rawProject) (*ProjectConfig, error) {
	if strings.TrimSpace(raw.Root) == "" {
		return nil, fmt.Errorf("project %q: missing root", name)
	}
	if filepath.IsAbs(raw.Root) {
		return nil, fmt.Errorf("project %q: root %q must be relative", name, raw.Root)
	}
	root, err := canonicalDir(filepath.Join(rootDir, filepath.FromSlash(raw.Root)))
	if err != nil {
		return nil, err
	}
	if !PathWithin(rootDir, root) {
		return nil, fmt.Errorf("project %q: root %q escapes the config root", name, raw.Root)
	}
	if len(raw.Schema) == 0 {
		return nil, fmt.Errorf("project %q: missing schema", name)
	}
	schema := make([]string, 0, len(raw.Schema))
	for _, s := range raw.Schema {
		s = strings.TrimSpace(s)
		if s == "" || filepath.IsAbs(s) {
			return nil, fmt.Errorf("project %q: schema path %q must be relative", name, s)
		}
		schema = append(schema, filepath.Clean(filepath.Join(rootDir, filepath.FromSlash(s))))
	}
	exts := make([]string, 0, len(raw.Extensions))
	for _, e := range raw.Extensions {
		e = strings.TrimPrefix(strings.TrimSpace(e), ".")
		if e != "" {
			exts = append(exts, strings.ToLower(e))
		}
	}
	if len(exts) == 0 {
		exts = append(exts, DefaultExtensions...)
	}
	return &ProjectConfig{
		Name:       intern.Intern(name),
		Root:       root,
		Schema:     schema,
		Extensions: exts,
	}, nil
}

// Contains reports whether path is under the project root or is one of its
// schema files.
func (p *ProjectConfig) Contains(path string) bool {
	return PathWithin(p.Root, path) || p.IsSchemaFile(path)
}

// IsSchemaFile reports whether path is one of the project's schema files.
func (p *ProjectConfig) IsSchemaFile(path string) bool {
	path = filepath.Clean(path)
	for _, s := range p.Schema {
		if s == path {
			return true
		}
	}
	return false
}

// IsSourceFile reports whether path is an executable-document source of the
// project: under the root, with a known extension, and not a schema file.
func (p *ProjectConfig) IsSourceFile(path string) bool {
	if !PathWithin(p.Root, path) || p.IsSchemaFile(path) {
		return false
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	for _, e := range p.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func (p *ProjectConfig) String() string {
	return p.Name.String()
}
