package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"graft/internal/errs"
	"graft/internal/intern"
)

// FileNames are the config file names looked up by Find, in priority order.
var FileNames = []string{"graft.toml", "graft.yaml", "graft.yml"}

// ProjectName identifies a configured project.
type ProjectName = intern.StringKey

// AdoptionPolicy decides what a check cycle with failures does with the
// projects that did build.
type AdoptionPolicy uint8

const (
	// AdoptAllOrNothing keeps every cached artifact when any project fails.
	AdoptAllOrNothing AdoptionPolicy = iota
	// AdoptSuccessful caches the projects that built even if others failed.
	AdoptSuccessful
)

func (p AdoptionPolicy) String() string {
	switch p {
	case AdoptAllOrNothing:
		return "all-or-nothing"
	case AdoptSuccessful:
		return "successful"
	default:
		return "unknown"
	}
}

// ParseAdoptionPolicy converts a config string to an AdoptionPolicy.
func ParseAdoptionPolicy(s string) (AdoptionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all-or-nothing":
		return AdoptAllOrNothing, nil
	case "successful":
		return AdoptSuccessful, nil
	default:
		return AdoptAllOrNothing, fmt.Errorf("invalid adoption policy %q (expected: all-or-nothing|successful)", s)
	}
}

// Config is the static configuration. It is read-only after Load.
type Config struct {
	Path           string
	RootDir        string
	Projects       map[ProjectName]*ProjectConfig
	OnlyProject    *ProjectName
	DefaultProject *ProjectName
	Adoption       AdoptionPolicy
	ArtifactsDir   string
}

type rawConfig struct {
	Root           string                `toml:"root" yaml:"root"`
	OnlyProject    string                `toml:"only_project" yaml:"only_project"`
	DefaultProject string                `toml:"default_project" yaml:"default_project"`
	Adoption       string                `toml:"adoption" yaml:"adoption"`
	Artifacts      string                `toml:"artifacts" yaml:"artifacts"`
	Projects       map[string]rawProject `toml:"projects" yaml:"projects"`
}

type rawProject struct {
	Root       string   `toml:"root" yaml:"root"`
	Schema     []string `toml:"schema" yaml:"schema"`
	Extensions []string `toml:"extensions" yaml:"extensions"`
}

// Find walks up from startDir looking for a config file.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, true, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads, parses and validates the config at path. Errors are errs.Error
// values of the configuration and canonicalization kinds.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errs.ConfigFileReadError{Path: path, Err: err}
	}
	raw, err := decode(path, data)
	if err != nil {
		return nil, &errs.ConfigFileParseError{Path: path, Err: err}
	}
	return build(path, raw)
}

func decode(path string, data []byte) (rawConfig, error) {
	var raw rawConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil {
			return rawConfig{}, err
		}
	default:
		meta, err := toml.Decode(string(data), &raw)
		if err != nil {
			return rawConfig{}, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return rawConfig{}, fmt.Errorf("unknown key %q", undecoded[0].String())
		}
	}
	return raw, nil
}

func build(path string, raw rawConfig) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &errs.CanonicalizeRootError{Root: path, Err: err}
	}
	rootDir, err := canonicalDir(filepath.Join(filepath.Dir(abs), filepath.FromSlash(raw.Root)))
	if err != nil {
		return nil, err
	}

	var problems []string
	adoption, err := ParseAdoptionPolicy(raw.Adoption)
	if err != nil {
		problems = append(problems, err.Error())
	}
	cfg := &Config{
		Path:     abs,
		RootDir:  rootDir,
		Projects: make(map[ProjectName]*ProjectConfig, len(raw.Projects)),
		Adoption: adoption,
	}
	if strings.TrimSpace(raw.Artifacts) != "" {
		cfg.ArtifactsDir = filepath.Join(rootDir, filepath.FromSlash(raw.Artifacts))
	}
	if len(raw.Projects) == 0 {
		problems = append(problems, "no [projects] configured")
	}

	names := make([]string, 0, len(raw.Projects))
	for name := range raw.Projects {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			problems = append(problems, "project with empty name")
			continue
		}
		project, perr := buildProject(rootDir, name, raw.Projects[name])
		if perr != nil {
			var canon *errs.CanonicalizeRootError
			if errors.As(perr, &canon) {
				return nil, canon
			}
			problems = append(problems, perr.Error())
			continue
		}
		cfg.Projects[project.Name] = project
	}

	if only := strings.TrimSpace(raw.OnlyProject); only != "" {
		key := intern.Intern(only)
		if _, ok := cfg.Projects[key]; !ok {
			problems = append(problems, fmt.Sprintf("only_project %q is not a configured project", only))
		}
		cfg.OnlyProject = &key
	}
	if def := strings.TrimSpace(raw.DefaultProject); def != "" {
		key := intern.Intern(def)
		if _, ok := cfg.Projects[key]; !ok {
			problems = append(problems, fmt.Sprintf("default_project %q is not a configured project", def))
		}
		cfg.DefaultProject = &key
	}

	if len(problems) > 0 {
		return nil, &errs.ConfigFileValidationError{Path: abs, Messages: problems}
	}
	return cfg, nil
}

// SortedProjects returns the projects ordered by name.
func (c *Config) SortedProjects() []*ProjectConfig {
	out := make([]*ProjectConfig, 0, len(c.Projects))
	for _, p := range c.Projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name.String() < out[j].Name.String() })
	return out
}

// ForEachProject calls fn for every project in name order.
func (c *Config) ForEachProject(fn func(*ProjectConfig)) {
	for _, p := range c.SortedProjects() {
		fn(p)
	}
}

// ProjectsContaining returns the projects whose root contains path.
func (c *Config) ProjectsContaining(path string) []*ProjectConfig {
	var out []*ProjectConfig
	for _, p := range c.SortedProjects() {
		if p.Contains(path) {
			out = append(out, p)
		}
	}
	return out
}

// WatchRoots returns the distinct project roots, outermost first.
func (c *Config) WatchRoots() []string {
	var roots []string
	for _, p := range c.SortedProjects() {
		roots = append(roots, p.Root)
	}
	sort.Slice(roots, func(i, j int) bool { return len(roots[i]) < len(roots[j]) })
	out := roots[:0]
	for _, r := range roots {
		covered := false
		for _, kept := range out {
			if PathWithin(kept, r) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, r)
		}
	}
	return out
}

func canonicalDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", &errs.CanonicalizeRootError{Root: dir, Err: err}
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", &errs.CanonicalizeRootError{Root: dir, Err: err}
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", &errs.CanonicalizeRootError{Root: dir, Err: err}
	}
	if !info.IsDir() {
		return "", &errs.CanonicalizeRootError{Root: dir, Err: fmt.Errorf("not a directory")}
	}
	return filepath.Clean(resolved), nil
}

// PathWithin reports whether path is root or lies below it.
func PathWithin(root, path string) bool {
	if root == "" || path == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
