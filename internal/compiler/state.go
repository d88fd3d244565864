// Package compiler tracks project sources between check cycles and builds
// validated programs from them.
package compiler

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"graft/internal/config"
	"graft/internal/errs"
	"graft/internal/source"
)

type projectState struct {
	config  *config.ProjectConfig
	sources map[string]*source.File
	schemas map[string]*source.File
	pending map[string]struct{}
}

// State holds the current text of every project file and the set of source
// paths changed since the project last built successfully. It is owned by a
// single goroutine.
type State struct {
	projects map[config.ProjectName]*projectState
	log      *slog.Logger
}

// NewState returns an empty state for the configured projects.
func NewState(cfg *config.Config, log *slog.Logger) *State {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &State{projects: make(map[config.ProjectName]*projectState, len(cfg.Projects)), log: log}
	for name, pc := range cfg.Projects {
		s.projects[name] = &projectState{
			config:  pc,
			sources: make(map[string]*source.File),
			schemas: make(map[string]*source.File),
			pending: make(map[string]struct{}),
		}
	}
	return s
}

// LoadSchemas reads every project's schema files. Sources are left to the
// first change batch, which makes them all pending.
func LoadSchemas(cfg *config.Config, log *slog.Logger) (*State, error) {
	s := NewState(cfg, log)
	for _, pc := range cfg.SortedProjects() {
		ps := s.projects[pc.Name]
		for _, path := range pc.Schema {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, &errs.ReadFileError{Path: path, Err: err}
			}
			ps.schemas[path] = source.NewFile(path, data)
		}
	}
	return s, nil
}

// LoadState reads every schema and source file of every project. Nothing is
// pending afterwards.
func LoadState(cfg *config.Config, log *slog.Logger) (*State, error) {
	s, err := LoadSchemas(cfg, log)
	if err != nil {
		return nil, err
	}
	for _, pc := range cfg.SortedProjects() {
		ps := s.projects[pc.Name]
		err := filepath.WalkDir(pc.Root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !pc.IsSourceFile(path) {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return &errs.ReadFileError{Path: path, Err: err}
			}
			ps.sources[path] = source.NewFile(path, data)
			return nil
		})
		if err != nil {
			var rf *errs.ReadFileError
			if errors.As(err, &rf) {
				return nil, rf
			}
			return nil, &errs.CanonicalizeRootError{Root: pc.Root, Err: err}
		}
	}
	return s, nil
}

// ProjectHasPendingChanges reports whether name has sources changed since
// its last adopted build.
func (s *State) ProjectHasPendingChanges(name config.ProjectName) bool {
	ps, ok := s.projects[name]
	return ok && len(ps.pending) > 0
}

// PendingPaths returns the pending paths of name, sorted.
func (s *State) PendingPaths(name config.ProjectName) []string {
	ps, ok := s.projects[name]
	if !ok {
		return nil
	}
	return sortedKeys(ps.pending)
}

// Commit clears the pending set of name. Called once its build is adopted.
func (s *State) Commit(name config.ProjectName) {
	if ps, ok := s.projects[name]; ok {
		clear(ps.pending)
	}
}

// Sources returns the current source files of name, sorted by path.
func (s *State) Sources(name config.ProjectName) []*source.File {
	ps, ok := s.projects[name]
	if !ok {
		return nil
	}
	return sortedFiles(ps.sources)
}

// SchemaFiles returns the schema files of name in configuration order.
func (s *State) SchemaFiles(name config.ProjectName) []*source.File {
	ps, ok := s.projects[name]
	if !ok {
		return nil
	}
	out := make([]*source.File, 0, len(ps.config.Schema))
	for _, path := range ps.config.Schema {
		if f, ok := ps.schemas[path]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Source returns the current text of a project source.
func (s *State) Source(name config.ProjectName, path string) (*source.File, bool) {
	ps, ok := s.projects[name]
	if !ok {
		return nil, false
	}
	f, ok := ps.sources[path]
	return f, ok
}

// File returns the current text of a source or schema file of any project.
func (s *State) File(path string) (*source.File, bool) {
	for _, ps := range s.projects {
		if f, ok := ps.sources[path]; ok {
			return f, true
		}
		if f, ok := ps.schemas[path]; ok {
			return f, true
		}
	}
	return nil, false
}

// PendingFiles returns every pending source file across projects, sorted by
// path. A path shared by several projects is listed once.
func (s *State) PendingFiles() []*source.File {
	files := make(map[string]*source.File)
	for _, ps := range s.projects {
		for path := range ps.pending {
			if f, ok := ps.sources[path]; ok {
				files[path] = f
			}
		}
	}
	return sortedFiles(files)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedFiles(m map[string]*source.File) []*source.File {
	out := make([]*source.File, 0, len(m))
	for _, k := range sortedKeys(m) {
		out = append(out, m[k])
	}
	return out
}
