package compiler

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"graft/internal/config"
	"graft/internal/errs"
	"graft/internal/source"
	"graft/internal/trace"
	"graft/internal/watch"
)

// AddPendingFileSourceChanges folds batch into the state and reports whether
// any project source actually changed. Rewrites with identical content do
// not count. In single-project mode files of other projects are ignored.
// Schema files are reloaded but never make a project pending.
func (s *State) AddPendingFileSourceChanges(cfg *config.Config, batch watch.Batch, ev trace.PerfEvent) (bool, error) {
	if batch.Err != nil {
		return false, nil
	}
	ev.Number("file_changes", len(batch.Changes))
	changed := 0
	for _, c := range batch.Changes {
		path, err := canonicalPath(c.Path)
		if err != nil {
			return changed > 0, err
		}
		if gone(path) {
			changed += s.removeBelow(cfg, path)
		}
		for _, pc := range cfg.ProjectsContaining(path) {
			if cfg.OnlyProject != nil && pc.Name != *cfg.OnlyProject {
				continue
			}
			ps := s.projects[pc.Name]
			if ps == nil {
				continue
			}
			switch {
			case pc.IsSchemaFile(path):
				updated, err := s.refreshSchema(ps, path)
				if err != nil {
					return changed > 0, err
				}
				if updated {
					s.log.Warn("schema changes require a restart", "project", pc.Name.String(), "path", path)
				}
			case pc.IsSourceFile(path):
				updated, err := refreshSource(ps, path)
				if err != nil {
					return changed > 0, err
				}
				if updated {
					ps.pending[path] = struct{}{}
					changed++
				}
			}
		}
	}
	ev.Number("changed_sources", changed)
	return changed > 0, nil
}

// removeBelow drops every tracked file strictly below dir, which no longer
// exists, and returns the number of sources removed. Removed sources make
// their project pending.
func (s *State) removeBelow(cfg *config.Config, dir string) int {
	removed := 0
	for name, ps := range s.projects {
		if cfg.OnlyProject != nil && name != *cfg.OnlyProject {
			continue
		}
		for path := range ps.sources {
			if path != dir && config.PathWithin(dir, path) {
				delete(ps.sources, path)
				ps.pending[path] = struct{}{}
				removed++
			}
		}
		for path := range ps.schemas {
			if path != dir && config.PathWithin(dir, path) {
				delete(ps.schemas, path)
				s.log.Warn("schema changes require a restart", "project", name.String(), "path", path)
			}
		}
	}
	return removed
}

func gone(path string) bool {
	_, err := os.Lstat(path)
	return errors.Is(err, fs.ErrNotExist)
}

// refreshSource rereads path. A missing file is a removal.
func refreshSource(ps *projectState, path string) (bool, error) {
	data, err := readIfFile(path)
	if err != nil {
		return false, err
	}
	prev, existed := ps.sources[path]
	if data == nil {
		if !existed {
			return false, nil
		}
		delete(ps.sources, path)
		return true, nil
	}
	if existed && prev.Hash == source.DigestOf(data) {
		return false, nil
	}
	ps.sources[path] = source.NewFile(path, data)
	return true, nil
}

func (s *State) refreshSchema(ps *projectState, path string) (bool, error) {
	data, err := readIfFile(path)
	if err != nil {
		return false, err
	}
	prev, existed := ps.schemas[path]
	if data == nil {
		if existed {
			delete(ps.schemas, path)
		}
		return existed, nil
	}
	if existed && prev.Hash == source.DigestOf(data) {
		return false, nil
	}
	ps.schemas[path] = source.NewFile(path, data)
	return true, nil
}

// readIfFile returns nil data without error when path is gone or is a
// directory.
func readIfFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
		return nil, nil
	}
	return nil, &errs.ReadFileError{Path: path, Err: err}
}

// canonicalPath resolves symlinks in the directory part of path. A
// directory that no longer exists is left as is.
func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &errs.CanonicalizeRootError{Root: path, Err: err}
	}
	dir, base := filepath.Split(abs)
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return filepath.Clean(abs), nil
		}
		return "", &errs.CanonicalizeRootError{Root: path, Err: err}
	}
	return filepath.Join(resolved, base), nil
}
