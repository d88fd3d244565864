// Package lspcompiler keeps the configured projects compiled while files
// change and answers editor requests against the last successful build.
//
// A Compiler owns all of its state and is driven by a single goroutine in
// Watch: file change batches and editor messages arrive on two channels and
// each one is handled to completion before the next is taken.
package lspcompiler

import (
	"context"
	"errors"

	"graft/internal/compiler"
	"graft/internal/completion"
	"graft/internal/config"
	"graft/internal/logging"
	"graft/internal/lsp"
	"graft/internal/metrics"
	"graft/internal/schema"
	"graft/internal/trace"
	"graft/internal/watch"
)

var (
	// ErrChangeSourceClosed is returned by Watch when the change channel closes.
	ErrChangeSourceClosed = errors.New("change source closed")
	// ErrRequestSourceClosed is returned by Watch when the request channel closes.
	ErrRequestSourceClosed = errors.New("request source closed")
)

// ChangeSource delivers debounced file change batches.
type ChangeSource interface {
	Changes() <-chan watch.Batch
}

// ProjectChecker parses pending sources and builds single projects.
type ProjectChecker interface {
	ParseSources(state *compiler.State) (*compiler.ParsedSources, error)
	CheckProject(ctx context.Context, project *config.ProjectConfig, state *compiler.State, parsed *compiler.ParsedSources, s *schema.Schema) (*compiler.Programs, error)
}

// Completer computes completion candidates.
type Completer interface {
	Complete(req completion.Request, s *schema.Schema, programs *compiler.Programs) []completion.Item
}

// Connection is the editor side of the protocol.
type Connection interface {
	lsp.Publisher
	SendCompletion(id lsp.RequestID, items []lsp.CompletionItem) error
}

// ArtifactPersister writes adopted programs to disk.
type ArtifactPersister interface {
	Persist(programs *compiler.Programs) error
}

type Compiler struct {
	schemas  map[config.ProjectName]*schema.Schema
	cfg      *config.Config
	changes  <-chan watch.Batch
	requests <-chan lsp.BridgeMessage
	conn     Connection
	state    *compiler.State

	documents   *lsp.DocumentCache
	serverState *lsp.ServerState
	programs    map[config.ProjectName]*compiler.Programs

	checker   ProjectChecker
	completer Completer
	resolver  ProjectResolver
	artifacts ArtifactPersister
	log       *logging.Logger
	perf      *trace.PerfLogger
	metrics   *metrics.Metrics
}

type Option func(*Compiler)

// WithPipeline replaces the project checker.
func WithPipeline(p ProjectChecker) Option {
	return func(c *Compiler) { c.checker = p }
}

func WithCompleter(comp Completer) Option {
	return func(c *Compiler) { c.completer = comp }
}

// WithLogger sets the application log. It is flushed after every cycle.
func WithLogger(log *logging.Logger) Option {
	return func(c *Compiler) { c.log = log }
}

// WithPerfLogger sets the perf logger cycles are recorded on.
func WithPerfLogger(p *trace.PerfLogger) Option {
	return func(c *Compiler) { c.perf = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Compiler) { c.metrics = m }
}

// WithResolver sets how completion requests are bound to a project.
func WithResolver(r ProjectResolver) Option {
	return func(c *Compiler) { c.resolver = r }
}

// WithArtifactStore persists every adopted project. A nil store disables
// persistence.
func WithArtifactStore(a ArtifactPersister) Option {
	return func(c *Compiler) { c.artifacts = a }
}

// New wires a compiler. schemas must hold a schema for every configured
// project; state is the initial compiler state.
func New(
	schemas map[config.ProjectName]*schema.Schema,
	cfg *config.Config,
	subscription ChangeSource,
	state *compiler.State,
	requests <-chan lsp.BridgeMessage,
	conn Connection,
	opts ...Option,
) *Compiler {
	c := &Compiler{
		schemas:   schemas,
		cfg:       cfg,
		changes:   subscription.Changes(),
		requests:  requests,
		conn:      conn,
		state:     state,
		documents: lsp.NewDocumentCache(),
		programs:  make(map[config.ProjectName]*compiler.Programs),
	}
	if cfg.ArtifactsDir != "" {
		c.artifacts = compiler.NewArtifactStore(cfg.ArtifactsDir)
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logging.Discard()
	}
	if c.checker == nil {
		c.checker = compiler.NewPipeline(compiler.WithLogger(c.log.Logger))
	}
	if c.completer == nil {
		c.completer = completion.Engine{}
	}
	if c.resolver == nil {
		c.resolver = ProjectByRoot(cfg, cfg.DefaultProject)
	}
	if c.perf == nil {
		c.perf = trace.NewPerfLogger(nil, c.log.Logger)
	}
	if c.metrics == nil {
		c.metrics = metrics.New(false)
	}
	c.perf.Observe(c.metrics.ObservePerf)
	c.serverState = lsp.NewServerState(c.log.Logger)
	return c
}

// Watch runs the event loop until ctx is done or an input channel closes.
func (c *Compiler) Watch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-c.changes:
			if !ok {
				return ErrChangeSourceClosed
			}
			c.onChanges(ctx, batch)
		case msg, ok := <-c.requests:
			if !ok {
				return ErrRequestSourceClosed
			}
			c.onBridgeMessage(msg)
		}
	}
}

// Programs returns the adopted programs of a project.
func (c *Compiler) Programs(name config.ProjectName) (*compiler.Programs, bool) {
	p, ok := c.programs[name]
	return p, ok
}
