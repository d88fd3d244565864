package lsp

import (
	"log/slog"
	"sort"

	"graft/internal/diag"
	"graft/internal/errs"
	"graft/internal/source"
)

// Publisher sends diagnostics to the editor.
type Publisher interface {
	PublishDiagnostics(uri string, diags []Diagnostic) error
}

// FileLookup returns the current text of path, used to turn byte spans into
// editor ranges.
type FileLookup func(path string) (*source.File, bool)

// ServerState tracks which documents currently show diagnostics. Every
// report replaces the previous one: documents that no longer have problems
// are cleared.
type ServerState struct {
	published map[string]struct{}
	log       *slog.Logger
}

func NewServerState(log *slog.Logger) *ServerState {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &ServerState{published: make(map[string]struct{}), log: log}
}

// Published returns the URIs with diagnostics, sorted.
func (s *ServerState) Published() []string {
	out := make([]string, 0, len(s.published))
	for uri := range s.published {
		out = append(out, uri)
	}
	sort.Strings(out)
	return out
}

// ClearDiagnostics removes every published diagnostic.
func (s *ServerState) ClearDiagnostics(p Publisher) {
	s.publish(p, nil)
}

// ReportSyntaxErrors publishes parse failures of a cycle.
func (s *ServerState) ReportSyntaxErrors(p Publisher, diags []diag.Diagnostic, files FileLookup) {
	s.publish(p, groupDiagnostics(diags, files))
}

// ReportBuildProjectErrors publishes the diagnostics of failed projects.
// Failures without diagnostics are only logged.
func (s *ServerState) ReportBuildProjectErrors(p Publisher, failures []*errs.BuildProjectError, files FileLookup) {
	var all []diag.Diagnostic
	for _, f := range failures {
		if f.Err != nil && len(f.Diagnostics) == 0 {
			s.log.Warn("project failed without diagnostics", "project", f.Project.String(), "error", f.Err)
			continue
		}
		all = append(all, f.Diagnostics...)
	}
	s.publish(p, groupDiagnostics(all, files))
}

func (s *ServerState) publish(p Publisher, grouped map[string][]Diagnostic) {
	targets := make([]string, 0, len(grouped))
	for uri := range grouped {
		targets = append(targets, uri)
	}
	sort.Strings(targets)

	prev := s.published
	s.published = make(map[string]struct{}, len(targets))
	for _, uri := range targets {
		s.published[uri] = struct{}{}
		if err := p.PublishDiagnostics(uri, grouped[uri]); err != nil {
			s.log.Warn("failed to publish diagnostics", "uri", uri, "error", err)
		}
	}

	stale := make([]string, 0, len(prev))
	for uri := range prev {
		if _, ok := grouped[uri]; !ok {
			stale = append(stale, uri)
		}
	}
	sort.Strings(stale)
	for _, uri := range stale {
		if err := p.PublishDiagnostics(uri, nil); err != nil {
			s.log.Warn("failed to clear diagnostics", "uri", uri, "error", err)
		}
	}
}
