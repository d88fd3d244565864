// Package errs defines the error kinds produced by config loading, change
// ingestion and project checks.
//
// Every kind implements Error and dispatches to one Visitor method. Adding a
// kind means adding a Visitor method, so every place that classifies errors
// stops compiling until it makes an explicit decision for the new kind.
package errs

import (
	"errors"
	"fmt"
	"strings"

	"graft/internal/diag"
	"graft/internal/intern"
)

// Error is the closed set of structured compiler errors.
type Error interface {
	error
	Kind() Kind
	Accept(v Visitor)
	sealed()
}

// Visitor handles each error kind. Implementations must handle every method.
type Visitor interface {
	SyntaxErrors(*SyntaxErrors)
	BuildProjectsErrors(*BuildProjectsErrors)
	ConfigFileRead(*ConfigFileReadError)
	ConfigFileParse(*ConfigFileParseError)
	ConfigFileValidation(*ConfigFileValidationError)
	ReadFile(*ReadFileError)
	WriteFile(*WriteFileError)
	Serialization(*SerializationError)
	Deserialization(*DeserializationError)
	CanonicalizeRoot(*CanonicalizeRootError)
	Watcher(*WatcherError)
	EmptyQueryResult(*EmptyQueryResultError)
}

// Kind is a stable label for an error kind, used for logs and metrics.
type Kind uint8

const (
	KindSyntax Kind = iota + 1
	KindBuildProjects
	KindConfigFileRead
	KindConfigFileParse
	KindConfigFileValidation
	KindReadFile
	KindWriteFile
	KindSerialization
	KindDeserialization
	KindCanonicalizeRoot
	KindWatcher
	KindEmptyQueryResult
)

func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "syntax"
	case KindBuildProjects:
		return "build_projects"
	case KindConfigFileRead:
		return "config_file_read"
	case KindConfigFileParse:
		return "config_file_parse"
	case KindConfigFileValidation:
		return "config_file_validation"
	case KindReadFile:
		return "read_file"
	case KindWriteFile:
		return "write_file"
	case KindSerialization:
		return "serialization"
	case KindDeserialization:
		return "deserialization"
	case KindCanonicalizeRoot:
		return "canonicalize_root"
	case KindWatcher:
		return "watcher"
	case KindEmptyQueryResult:
		return "empty_query_result"
	default:
		return "unknown"
	}
}

// As extracts a structured Error from err's chain.
func As(err error) (Error, bool) {
	var e Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// SyntaxErrors reports sources that failed to parse. It covers a whole cycle.
type SyntaxErrors struct {
	Errors []diag.Diagnostic
}

func (e *SyntaxErrors) Error() string {
	return fmt.Sprintf("%d syntax error(s)%s", len(e.Errors), firstMessage(e.Errors))
}
func (e *SyntaxErrors) Kind() Kind       { return KindSyntax }
func (e *SyntaxErrors) Accept(v Visitor) { v.SyntaxErrors(e) }
func (*SyntaxErrors) sealed()            {}

// BuildProjectError is the failure of a single project.
type BuildProjectError struct {
	Project     intern.StringKey
	Diagnostics []diag.Diagnostic
	Err         error // non-diagnostic cause, e.g. artifact persistence
}

func (e *BuildProjectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("project %s: %v", e.Project, e.Err)
	}
	return fmt.Sprintf("project %s: %d error(s)%s", e.Project, len(e.Diagnostics), firstMessage(e.Diagnostics))
}

func (e *BuildProjectError) Unwrap() error { return e.Err }

// BuildProjectsErrors aggregates per-project failures of one cycle.
type BuildProjectsErrors struct {
	Errors []*BuildProjectError
}

func (e *BuildProjectsErrors) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, pe := range e.Errors {
		parts = append(parts, pe.Error())
	}
	return "build failed: " + strings.Join(parts, "; ")
}
func (e *BuildProjectsErrors) Kind() Kind       { return KindBuildProjects }
func (e *BuildProjectsErrors) Accept(v Visitor) { v.BuildProjectsErrors(e) }
func (*BuildProjectsErrors) sealed()            {}

// Projects lists the failed project names in report order.
func (e *BuildProjectsErrors) Projects() []intern.StringKey {
	out := make([]intern.StringKey, 0, len(e.Errors))
	for _, pe := range e.Errors {
		out = append(out, pe.Project)
	}
	return out
}

type ConfigFileReadError struct {
	Path string
	Err  error
}

func (e *ConfigFileReadError) Error() string {
	return fmt.Sprintf("failed to read config %s: %v", e.Path, e.Err)
}
func (e *ConfigFileReadError) Unwrap() error    { return e.Err }
func (e *ConfigFileReadError) Kind() Kind       { return KindConfigFileRead }
func (e *ConfigFileReadError) Accept(v Visitor) { v.ConfigFileRead(e) }
func (*ConfigFileReadError) sealed()            {}

type ConfigFileParseError struct {
	Path string
	Err  error
}

func (e *ConfigFileParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse config: %v", e.Path, e.Err)
}
func (e *ConfigFileParseError) Unwrap() error    { return e.Err }
func (e *ConfigFileParseError) Kind() Kind       { return KindConfigFileParse }
func (e *ConfigFileParseError) Accept(v Visitor) { v.ConfigFileParse(e) }
func (*ConfigFileParseError) sealed()            {}

type ConfigFileValidationError struct {
	Path     string
	Messages []string
}

func (e *ConfigFileValidationError) Error() string {
	return fmt.Sprintf("%s: invalid config: %s", e.Path, strings.Join(e.Messages, "; "))
}
func (e *ConfigFileValidationError) Kind() Kind       { return KindConfigFileValidation }
func (e *ConfigFileValidationError) Accept(v Visitor) { v.ConfigFileValidation(e) }
func (*ConfigFileValidationError) sealed()            {}

type ReadFileError struct {
	Path string
	Err  error
}

func (e *ReadFileError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}
func (e *ReadFileError) Unwrap() error    { return e.Err }
func (e *ReadFileError) Kind() Kind       { return KindReadFile }
func (e *ReadFileError) Accept(v Visitor) { v.ReadFile(e) }
func (*ReadFileError) sealed()            {}

type WriteFileError struct {
	Path string
	Err  error
}

func (e *WriteFileError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}
func (e *WriteFileError) Unwrap() error    { return e.Err }
func (e *WriteFileError) Kind() Kind       { return KindWriteFile }
func (e *WriteFileError) Accept(v Visitor) { v.WriteFile(e) }
func (*WriteFileError) sealed()            {}

type SerializationError struct {
	What string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("failed to encode %s: %v", e.What, e.Err)
}
func (e *SerializationError) Unwrap() error    { return e.Err }
func (e *SerializationError) Kind() Kind       { return KindSerialization }
func (e *SerializationError) Accept(v Visitor) { v.Serialization(e) }
func (*SerializationError) sealed()            {}

type DeserializationError struct {
	What string
	Err  error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.What, e.Err)
}
func (e *DeserializationError) Unwrap() error    { return e.Err }
func (e *DeserializationError) Kind() Kind       { return KindDeserialization }
func (e *DeserializationError) Accept(v Visitor) { v.Deserialization(e) }
func (*DeserializationError) sealed()            {}

type CanonicalizeRootError struct {
	Root string
	Err  error
}

func (e *CanonicalizeRootError) Error() string {
	return fmt.Sprintf("failed to canonicalize %s: %v", e.Root, e.Err)
}
func (e *CanonicalizeRootError) Unwrap() error    { return e.Err }
func (e *CanonicalizeRootError) Kind() Kind       { return KindCanonicalizeRoot }
func (e *CanonicalizeRootError) Accept(v Visitor) { v.CanonicalizeRoot(e) }
func (*CanonicalizeRootError) sealed()            {}

// WatcherError is a failure reported by the filesystem watcher.
type WatcherError struct {
	Err error
}

func (e *WatcherError) Error() string {
	return fmt.Sprintf("watcher: %v", e.Err)
}
func (e *WatcherError) Unwrap() error    { return e.Err }
func (e *WatcherError) Kind() Kind       { return KindWatcher }
func (e *WatcherError) Accept(v Visitor) { v.Watcher(e) }
func (*WatcherError) sealed()            {}

// EmptyQueryResultError marks a step that produced nothing where a value was required.
type EmptyQueryResultError struct {
	What string
}

func (e *EmptyQueryResultError) Error() string {
	return fmt.Sprintf("empty result: %s", e.What)
}
func (e *EmptyQueryResultError) Kind() Kind       { return KindEmptyQueryResult }
func (e *EmptyQueryResultError) Accept(v Visitor) { v.EmptyQueryResult(e) }
func (*EmptyQueryResultError) sealed()            {}

func firstMessage(diags []diag.Diagnostic) string {
	if len(diags) == 0 {
		return ""
	}
	return ": " + diags[0].Message
}
