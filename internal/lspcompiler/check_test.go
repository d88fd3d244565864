package lspcompiler

import (
	"errors"
	"io/fs"
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"graft/internal/compiler"
	"graft/internal/diag"
	"graft/internal/errs"
	"graft/internal/metrics"
	"graft/internal/trace"
	"graft/internal/watch"
)

func TestScenarioAChangeRebuildsOnlyTouchedProject(t *testing.T) {
	h := newHarness(t, "", map[string]string{
		"web/q.graphql":   validQuery,
		"admin/q.graphql": validAdmin,
	})

	h.edit(map[string]string{"web/q.graphql": validQuery + "\n"})

	if got := names(h.checker.checked); !slices.Equal(got, []string{"web"}) {
		t.Fatalf("checked = %v, want [web]", got)
	}
	if h.programs(webName) == nil {
		t.Fatalf("web programs not adopted")
	}
	if h.programs(adminName) != nil {
		t.Fatalf("admin programs should be absent")
	}
	if len(h.conn.publishCalls()) != 0 {
		t.Fatalf("nothing was published before, nothing to clear: %+v", h.conn.publishCalls())
	}
	if h.state.ProjectHasPendingChanges(webName) {
		t.Fatalf("adopted project should be committed")
	}
}

func TestAllProjectsSelectivityKeepsOtherProjectUntouched(t *testing.T) {
	h := newHarness(t, "", map[string]string{
		"web/q.graphql":   validQuery,
		"admin/q.graphql": validAdmin,
	})
	h.edit(map[string]string{"web/q.graphql": validQuery + "\n"})
	web := h.programs(webName)

	h.edit(map[string]string{"admin/q.graphql": validAdmin + "\n"})

	if got := names(h.checker.checked); !slices.Equal(got, []string{"web", "admin"}) {
		t.Fatalf("checked = %v", got)
	}
	if h.programs(webName) != web {
		t.Fatalf("web programs replaced by an admin-only cycle")
	}
	if h.programs(adminName) == nil {
		t.Fatalf("admin programs not adopted")
	}
}

func TestSingleProjectModeIgnoresOtherProjects(t *testing.T) {
	h := newHarness(t, "only_project = \"web\"\n", map[string]string{
		"web/q.graphql":   validQuery,
		"admin/q.graphql": validAdmin,
	})
	h.edit(map[string]string{"web/q.graphql": validQuery + "\n"})
	web := h.programs(webName)
	if web == nil {
		t.Fatalf("web programs not adopted")
	}

	h.edit(map[string]string{"admin/q.graphql": unknownField})

	if got := names(h.checker.checked); !slices.Equal(got, []string{"web"}) {
		t.Fatalf("checked = %v, want only the first web build", got)
	}
	if h.checker.parses != 1 {
		t.Fatalf("parses = %d, want 1", h.checker.parses)
	}
	if h.programs(webName) != web || h.programs(adminName) != nil {
		t.Fatalf("programs changed by a change outside the only project")
	}
}

func TestScenarioBSyntaxErrorTouchesNoCache(t *testing.T) {
	h := newHarness(t, "", map[string]string{"web/q.graphql": validQuery})
	h.edit(map[string]string{"web/q.graphql": validQuery + "\n"})
	v1 := h.programs(webName)
	checks := len(h.checker.checked)

	h.edit(map[string]string{"web/q.graphql": malformedQuery})

	if len(h.checker.checked) != checks {
		t.Fatalf("project built after a parse failure")
	}
	if h.programs(webName) != v1 {
		t.Fatalf("cache changed by a failed cycle")
	}
	calls := h.conn.publishCalls()
	if len(calls) != 1 || calls[0].uri != h.uri("web/q.graphql") || len(calls[0].diags) == 0 {
		t.Fatalf("unexpected publishes %+v", calls)
	}
	if !h.state.ProjectHasPendingChanges(webName) {
		t.Fatalf("failed project should stay pending")
	}
	if got := testutil.ToFloat64(h.c.metrics.Cycles.WithLabelValues(metrics.CycleFailed)); got != 1 {
		t.Fatalf("failed cycles = %v", got)
	}

	h.edit(map[string]string{"web/q.graphql": validQuery})
	calls = h.conn.publishCalls()
	last := calls[len(calls)-1]
	if last.uri != h.uri("web/q.graphql") || last.diags != nil {
		t.Fatalf("diagnostics not cleared after the fix: %+v", last)
	}
	if h.programs(webName) == v1 {
		t.Fatalf("fixed build not adopted")
	}
}

func TestFailedProjectBlocksAdoptionOfWholeCycle(t *testing.T) {
	h := newHarness(t, "", map[string]string{
		"web/q.graphql":   validQuery,
		"admin/q.graphql": validAdmin,
	})

	h.edit(map[string]string{
		"web/q.graphql":   validQuery + "\n",
		"admin/q.graphql": unknownField,
	})

	if got := names(h.checker.checked); !slices.Equal(got, []string{"admin", "web"}) {
		t.Fatalf("checked = %v, want both in name order", got)
	}
	if h.programs(webName) != nil || h.programs(adminName) != nil {
		t.Fatalf("a failed cycle adopted programs")
	}
	calls := h.conn.publishCalls()
	if len(calls) != 1 || calls[0].uri != h.uri("admin/q.graphql") {
		t.Fatalf("expected diagnostics for the admin file only, got %+v", calls)
	}
	if calls[0].diags[0].Code != diag.SemUnknownField.ID() {
		t.Fatalf("unexpected diagnostic %+v", calls[0].diags[0])
	}
	if !h.state.ProjectHasPendingChanges(webName) || !h.state.ProjectHasPendingChanges(adminName) {
		t.Fatalf("nothing should be committed")
	}
}

func TestAdoptSuccessfulPolicy(t *testing.T) {
	h := newHarness(t, "adoption = \"successful\"\n", map[string]string{
		"web/q.graphql":   validQuery,
		"admin/q.graphql": validAdmin,
	})

	h.edit(map[string]string{
		"web/q.graphql":   validQuery + "\n",
		"admin/q.graphql": unknownField,
	})

	if h.programs(webName) == nil || h.programs(adminName) != nil {
		t.Fatalf("expected web adopted and admin not")
	}
	if h.state.ProjectHasPendingChanges(webName) || !h.state.ProjectHasPendingChanges(adminName) {
		t.Fatalf("expected web committed and admin pending")
	}
	if got := testutil.ToFloat64(h.c.metrics.Cycles.WithLabelValues(metrics.CyclePartial)); got != 1 {
		t.Fatalf("partial cycles = %v", got)
	}
}

func TestStaleOnFailure(t *testing.T) {
	h := newHarness(t, "", map[string]string{"web/q.graphql": validQuery})
	h.edit(map[string]string{"web/q.graphql": validQuery + "\n"})
	v1 := h.programs(webName)

	h.edit(map[string]string{"web/q.graphql": unknownField})

	if h.programs(webName) != v1 {
		t.Fatalf("failed cycle replaced last good programs")
	}
}

func TestIdenticalRewriteRunsNoBuild(t *testing.T) {
	h := newHarness(t, "", map[string]string{"web/q.graphql": validQuery})
	h.edit(map[string]string{"web/q.graphql": validQuery})
	if h.checker.parses != 0 || len(h.checker.checked) != 0 {
		t.Fatalf("identical content triggered a build")
	}
	if got := testutil.ToFloat64(h.c.metrics.Cycles.WithLabelValues(metrics.CycleIdle)); got != 1 {
		t.Fatalf("idle cycles = %v", got)
	}
}

func TestWatcherFailureIsDroppedAndCounted(t *testing.T) {
	h := newHarness(t, "", nil)
	h.c.onChanges(t.Context(), watch.Batch{Err: &errs.WatcherError{Err: errors.New("overflow")}})

	if h.checker.parses != 0 || len(h.conn.publishCalls()) != 0 {
		t.Fatalf("watcher failure reached the pipeline or the editor")
	}
	if got := testutil.ToFloat64(h.c.metrics.Errors.WithLabelValues("watcher")); got != 1 {
		t.Fatalf("watcher errors = %v", got)
	}
}

func TestEveryCycleRecordsPerfEventAndFlushes(t *testing.T) {
	perf := trace.NewPerfLogger(nil, nil)
	var records []trace.PerfRecord
	perf.Observe(func(rec trace.PerfRecord) { records = append(records, rec) })
	h := newHarness(t, "", map[string]string{"web/q.graphql": validQuery}, WithPerfLogger(perf))

	h.edit(map[string]string{"web/q.graphql": validQuery})        // idle
	h.edit(map[string]string{"web/q.graphql": validQuery + "\n"}) // build

	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	for _, rec := range records {
		if rec.Name != cycleEvent {
			t.Fatalf("event name = %q", rec.Name)
		}
		if _, ok := rec.Timers[metrics.CycleTimer]; !ok {
			t.Fatalf("missing cycle timer in %+v", rec.Timers)
		}
	}
	if _, ok := records[1].Timers[parseTimer]; !ok {
		t.Fatalf("missing parse timer in %+v", records[1].Timers)
	}
	if perf.Pending() != 0 {
		t.Fatalf("perf logger not flushed")
	}
}

func TestAdoptedProgramsArePersisted(t *testing.T) {
	h := newHarness(t, "artifacts = \".graft\"\n", map[string]string{"web/q.graphql": validQuery})
	h.edit(map[string]string{"web/q.graphql": validQuery + "\n"})

	payload, ok, err := compiler.NewArtifactStore(h.cfg.ArtifactsDir).Load(webName)
	if err != nil || !ok {
		t.Fatalf("load artifacts: ok=%v err=%v", ok, err)
	}
	if len(payload.Operations) != 1 || payload.Operations[0].Name != "Viewer" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

type failingStore struct{ calls int }

func (s *failingStore) Persist(p *compiler.Programs) error {
	s.calls++
	return &errs.WriteFileError{Path: p.Project.String(), Err: fs.ErrPermission}
}

func TestPersistFailureStaysOffEditor(t *testing.T) {
	store := &failingStore{}
	h := newHarness(t, "", map[string]string{"web/q.graphql": validQuery}, WithArtifactStore(store))
	h.edit(map[string]string{"web/q.graphql": validQuery + "\n"})

	if store.calls != 1 {
		t.Fatalf("persist calls = %d", store.calls)
	}
	if h.programs(webName) == nil {
		t.Fatalf("persistence failure must not undo adoption")
	}
	if len(h.conn.publishCalls()) != 0 {
		t.Fatalf("write failure published to the editor")
	}
	if got := testutil.ToFloat64(h.c.metrics.Errors.WithLabelValues("write_file")); got != 1 {
		t.Fatalf("write_file errors = %v", got)
	}
}

func TestMissingOnlyProjectPanics(t *testing.T) {
	h := newHarness(t, "", nil)
	missing := h.cfg.Projects[webName].Name
	delete(h.cfg.Projects, webName)
	h.cfg.OnlyProject = &missing
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	h.c.projectsToCheck()
}
