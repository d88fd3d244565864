package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"graft/internal/config"
	"graft/internal/errs"
)

// Bump when ArtifactPayload changes shape.
const artifactFormatVersion uint16 = 1

// ArtifactPayload is the persisted form of an adopted project build.
type ArtifactPayload struct {
	Version    uint16
	Project    string
	Operations []PersistedOperation
	Fragments  []PersistedFragment
}

type PersistedOperation struct {
	Name string
	Kind string
	Path string
	Text string
}

type PersistedFragment struct {
	Name string
	Path string
	Text string
}

// ArtifactStore writes one msgpack file per project under dir.
type ArtifactStore struct {
	mu  sync.Mutex
	dir string
}

func NewArtifactStore(dir string) *ArtifactStore {
	return &ArtifactStore{dir: dir}
}

func (s *ArtifactStore) pathFor(project config.ProjectName) string {
	return filepath.Join(s.dir, project.String()+".mp")
}

// Persist writes the printable operations of programs. The file is replaced
// atomically.
func (s *ArtifactStore) Persist(programs *Programs) error {
	if s == nil {
		return nil
	}
	payload := payloadFor(programs)
	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(payload); err != nil {
		return &errs.SerializationError{What: "artifacts for " + payload.Project, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	target := s.pathFor(programs.Project)
	if err := writeAtomic(target, buf.Bytes()); err != nil {
		return &errs.WriteFileError{Path: target, Err: err}
	}
	return nil
}

// Load reads a project's persisted artifacts. ok is false when none exist.
func (s *ArtifactStore) Load(project config.ProjectName) (payload *ArtifactPayload, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.pathFor(project)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, &errs.ReadFileError{Path: path, Err: err}
	}
	payload = &ArtifactPayload{}
	if err := msgpack.Unmarshal(data, payload); err != nil {
		return nil, false, &errs.DeserializationError{What: path, Err: err}
	}
	if payload.Version != artifactFormatVersion {
		return nil, false, &errs.DeserializationError{What: path, Err: fmt.Errorf("unsupported artifact version %d", payload.Version)}
	}
	return payload, true, nil
}

func payloadFor(programs *Programs) *ArtifactPayload {
	p := &ArtifactPayload{Version: artifactFormatVersion, Project: programs.Project.String()}
	for _, op := range programs.Operations.Operations() {
		p.Operations = append(p.Operations, PersistedOperation{
			Name: op.Name,
			Kind: op.Def.Kind.String(),
			Path: op.Path,
			Text: op.Text,
		})
	}
	for _, name := range programs.Operations.FragmentNames() {
		f, _ := programs.Operations.Fragment(name)
		p.Fragments = append(p.Fragments, PersistedFragment{Name: f.Name, Path: f.Path, Text: f.Text})
	}
	return p
}

func writeAtomic(target string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(target), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
