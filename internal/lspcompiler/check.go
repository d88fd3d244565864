package lspcompiler

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"graft/internal/compiler"
	"graft/internal/config"
	"graft/internal/errs"
	"graft/internal/metrics"
	"graft/internal/trace"
	"graft/internal/watch"
)

const (
	cycleEvent = "incremental_check_event"
	parseTimer = "parse_sources_time"
)

// cycleResult is what one check produced. err is nil, *errs.SyntaxErrors or
// *errs.BuildProjectsErrors; built may be non-empty alongside a build error.
type cycleResult struct {
	built map[config.ProjectName]*compiler.Programs
	err   error
}

// onChanges runs one check cycle for batch inside a perf event and flushes
// the perf and application logs afterwards.
func (c *Compiler) onChanges(ctx context.Context, batch watch.Batch) {
	ev := c.perf.CreateEvent(cycleEvent)
	timer := ev.Start(metrics.CycleTimer)
	outcome := c.runCycle(ctx, batch, ev)
	ev.Label("outcome", outcome)
	ev.Stop(timer)
	c.perf.CompleteEvent(ev)
	c.metrics.CycleOutcome(outcome)

	if err := c.perf.Flush(); err != nil {
		c.log.Warn("perf flush failed", "error", err)
	}
	if err := c.log.Flush(); err != nil {
		c.metrics.Error(err)
	}
}

func (c *Compiler) runCycle(ctx context.Context, batch watch.Batch, ev trace.PerfEvent) string {
	if batch.Err != nil {
		c.report(batch.Err)
		return metrics.CycleIdle
	}
	c.metrics.ChangesIngested(len(batch.Changes))
	c.log.Debug("ingesting changes", "paths", batch.Paths())
	changed, err := c.state.AddPendingFileSourceChanges(c.cfg, batch, ev)
	if err != nil {
		c.report(err)
		return metrics.CycleFailed
	}
	if !changed {
		return metrics.CycleIdle
	}

	res := c.checkProjects(ctx, ev)
	adopted := c.adopt(res)
	c.report(res.err)
	c.persist(adopted)

	switch {
	case res.err == nil:
		return metrics.CycleSucceeded
	case len(adopted) > 0:
		return metrics.CyclePartial
	default:
		return metrics.CycleFailed
	}
}

// checkProjects parses pending sources once and builds the projects due
// this cycle, in name order. Project failures accumulate.
func (c *Compiler) checkProjects(ctx context.Context, ev trace.PerfEvent) cycleResult {
	parsed, err := trace.Time(ev, parseTimer, func() (*compiler.ParsedSources, error) {
		return c.checker.ParseSources(c.state)
	})
	if err != nil {
		return cycleResult{err: err}
	}

	projects := c.projectsToCheck()
	ev.Number("projects_checked", len(projects))
	if len(projects) == 1 {
		ev.Label("project", projects[0].Name.String())
	}
	built := make(map[config.ProjectName]*compiler.Programs, len(projects))
	var failures []*errs.BuildProjectError
	for _, pc := range projects {
		s, ok := c.schemas[pc.Name]
		if !ok {
			panic(fmt.Sprintf("no schema for project %s", pc.Name))
		}
		programs, err := c.checker.CheckProject(ctx, pc, c.state, parsed, s)
		c.metrics.ProjectBuild(pc.Name.String(), err == nil)
		if err != nil {
			var failure *errs.BuildProjectError
			if !errors.As(err, &failure) {
				failure = &errs.BuildProjectError{Project: pc.Name, Err: err}
			}
			failures = append(failures, failure)
			continue
		}
		built[pc.Name] = programs
	}
	if len(failures) > 0 {
		return cycleResult{built: built, err: &errs.BuildProjectsErrors{Errors: failures}}
	}
	return cycleResult{built: built}
}

// projectsToCheck returns the only project in single-project mode, and the
// projects with pending changes otherwise.
func (c *Compiler) projectsToCheck() []*config.ProjectConfig {
	if only := c.cfg.OnlyProject; only != nil {
		pc, ok := c.cfg.Projects[*only]
		if !ok {
			panic(fmt.Sprintf("expected the project %s to exist", *only))
		}
		return []*config.ProjectConfig{pc}
	}
	var out []*config.ProjectConfig
	for _, pc := range c.cfg.SortedProjects() {
		if c.state.ProjectHasPendingChanges(pc.Name) {
			out = append(out, pc)
		}
	}
	return out
}

// adopt merges built programs into the cache and commits their pending
// changes. Under AdoptAllOrNothing a failed cycle adopts nothing.
func (c *Compiler) adopt(res cycleResult) []*compiler.Programs {
	if res.err != nil && c.cfg.Adoption == config.AdoptAllOrNothing {
		return nil
	}
	names := make([]config.ProjectName, 0, len(res.built))
	for name := range res.built {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].String() < names[j].String() })

	adopted := make([]*compiler.Programs, 0, len(names))
	for _, name := range names {
		programs := res.built[name]
		c.programs[name] = programs
		c.state.Commit(name)
		adopted = append(adopted, programs)
	}
	return adopted
}

func (c *Compiler) persist(adopted []*compiler.Programs) {
	if c.artifacts == nil {
		return
	}
	for _, programs := range adopted {
		if err := c.artifacts.Persist(programs); err != nil {
			c.report(err)
		}
	}
}
