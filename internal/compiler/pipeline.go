package compiler

import (
	"context"
	"log/slog"
	"strconv"

	"graft/internal/config"
	"graft/internal/diag"
	"graft/internal/errs"
	"graft/internal/graphql"
	"graft/internal/ir"
	"graft/internal/schema"
	"graft/internal/trace"
)

// Programs is the validated output of one project build.
type Programs struct {
	Project config.ProjectName
	Schema  *schema.Schema
	// Source holds every operation and fragment as written.
	Source *ir.Program
	// Operations is Source after the printing transforms.
	Operations *ir.Program
}

// Pipeline parses sources and checks projects. It keeps a parse cache across
// cycles and is not safe for concurrent use.
type Pipeline struct {
	cache      *ParseCache
	transforms []ir.Transform
	log        *slog.Logger
}

type Option func(*Pipeline)

// WithParseCacheSize sets the number of parsed documents kept.
func WithParseCacheSize(n int) Option {
	return func(p *Pipeline) { p.cache = NewParseCache(n) }
}

// WithLogger sets the pipeline logger.
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithTransforms replaces the printing transforms applied to Operations.
func WithTransforms(ts ...ir.Transform) Option {
	return func(p *Pipeline) { p.transforms = ts }
}

func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		transforms: []ir.Transform{ir.SkipSplitOperation{}},
		log:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cache == nil {
		p.cache = NewParseCache(DefaultParseCacheSize)
	}
	return p
}

// CheckProject builds and validates one project against s. Pending sources
// come from parsed; the rest are parsed through the cache. Failures are
// *errs.BuildProjectError.
func (p *Pipeline) CheckProject(ctx context.Context, project *config.ProjectConfig, state *State, parsed *ParsedSources, s *schema.Schema) (*Programs, error) {
	span := trace.BeginProject(trace.FromContext(ctx), project.Name.String(), "check_project", trace.ParentFromContext(ctx))
	bag := diag.NewBag(0)
	defer func() { span.End(strconv.Itoa(bag.Len()) + " diagnostics") }()

	if err := ctx.Err(); err != nil {
		return nil, &errs.BuildProjectError{Project: project.Name, Err: err}
	}
	for _, d := range s.Diagnostics() {
		bag.Add(d)
	}

	files := state.Sources(project.Name)
	docs := make([]*graphql.Document, 0, len(files))
	for _, f := range files {
		doc, ok := parsed.Document(f.Path)
		if !ok {
			var diags []diag.Diagnostic
			doc, diags = p.cache.Parse(f)
			for _, d := range diags {
				bag.Add(d)
			}
		}
		docs = append(docs, doc)
	}
	checkDefinitions(files, docs, bag)

	b := ir.NewBuilder(s)
	for i, doc := range docs {
		b.AddDocument(files[i], doc)
	}
	prog := b.Build()
	validateProgram(prog, bag)

	if bag.HasErrors() {
		bag.Sort()
		bag.Dedup()
		return nil, &errs.BuildProjectError{Project: project.Name, Diagnostics: bag.Items()}
	}
	p.log.Debug("project checked",
		slog.String("project", project.Name.String()),
		slog.Int("operations", prog.OperationCount()),
		slog.Int("fragments", prog.FragmentCount()))
	return &Programs{
		Project:    project.Name,
		Schema:     s,
		Source:     prog,
		Operations: ir.Apply(prog, p.transforms...),
	}, nil
}

// BuildSchema builds the schema of project from the state's schema files. It
// never fails; problems are recorded on the schema.
func BuildSchema(state *State, project *config.ProjectConfig) *schema.Schema {
	return schema.FromFiles(project.Name, state.SchemaFiles(project.Name))
}

// BuildSchemas builds every project's schema under the build_schemas timer.
func BuildSchemas(cfg *config.Config, state *State, ev trace.PerfEvent) map[config.ProjectName]*schema.Schema {
	timer := ev.Start("build_schemas")
	defer ev.Stop(timer)
	schemas := make(map[config.ProjectName]*schema.Schema, len(cfg.Projects))
	cfg.ForEachProject(func(pc *config.ProjectConfig) {
		schemas[pc.Name] = BuildSchema(state, pc)
	})
	return schemas
}
