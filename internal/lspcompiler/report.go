package lspcompiler

import (
	"graft/internal/errs"
	"graft/internal/source"
)

// report turns a cycle result into editor side effects. Success clears all
// diagnostics; syntax and build failures are published; every other kind
// stays off the editor and goes to the log and metrics.
func (c *Compiler) report(err error) {
	if err == nil {
		c.serverState.ClearDiagnostics(c.conn)
		return
	}
	c.metrics.Error(err)
	e, ok := errs.As(err)
	if !ok {
		c.log.Error("unclassified error", "error", err)
		return
	}
	e.Accept(reporter{c: c})
}

// reporter is the exhaustive classification of error kinds.
type reporter struct {
	c *Compiler
}

func (r reporter) SyntaxErrors(e *errs.SyntaxErrors) {
	r.c.serverState.ReportSyntaxErrors(r.c.conn, e.Errors, r.c.lookupFile)
}

func (r reporter) BuildProjectsErrors(e *errs.BuildProjectsErrors) {
	r.c.serverState.ReportBuildProjectErrors(r.c.conn, e.Errors, r.c.lookupFile)
}

func (r reporter) ConfigFileRead(e *errs.ConfigFileReadError)             { r.discard(e) }
func (r reporter) ConfigFileParse(e *errs.ConfigFileParseError)           { r.discard(e) }
func (r reporter) ConfigFileValidation(e *errs.ConfigFileValidationError) { r.discard(e) }
func (r reporter) ReadFile(e *errs.ReadFileError)                         { r.discard(e) }
func (r reporter) WriteFile(e *errs.WriteFileError)                       { r.discard(e) }
func (r reporter) Serialization(e *errs.SerializationError)               { r.discard(e) }
func (r reporter) Deserialization(e *errs.DeserializationError)           { r.discard(e) }
func (r reporter) CanonicalizeRoot(e *errs.CanonicalizeRootError)         { r.discard(e) }
func (r reporter) Watcher(e *errs.WatcherError)                           { r.discard(e) }
func (r reporter) EmptyQueryResult(e *errs.EmptyQueryResultError)         { r.discard(e) }

func (r reporter) discard(e errs.Error) {
	r.c.log.Warn("error not reported to editor", "kind", e.Kind().String(), "error", e)
}

// lookupFile resolves diagnostic paths against the compiler state, which is
// what spans were computed from, then against synced documents.
func (c *Compiler) lookupFile(path string) (*source.File, bool) {
	if f, ok := c.state.File(path); ok {
		return f, true
	}
	return c.documents.File(path)
}
