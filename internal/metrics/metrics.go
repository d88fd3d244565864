// Package metrics exposes Prometheus counters for check cycles, change
// ingestion, error kinds and completion requests.
//
// Each Metrics owns its registry, so several instances (tests, embedded
// servers) never collide on registration.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"graft/internal/errs"
	"graft/internal/trace"
)

const namespace = "graft"

// CycleTimer is the perf timer whose duration feeds the cycle histogram.
const CycleTimer = "incremental_check_time"

// Cycle outcomes.
const (
	CycleIdle      = "idle"      // no state change, nothing built
	CycleSucceeded = "succeeded" // every attempted project adopted
	CyclePartial   = "partial"   // failures reported, successful projects adopted
	CycleFailed    = "failed"    // nothing adopted
)

// Completion outcomes.
const (
	CompletionSent       = "sent"
	CompletionEmpty      = "empty"
	CompletionNoDocument = "no_document"
	CompletionNoProject  = "no_project"
	CompletionNoPrograms = "no_programs"
)

type Metrics struct {
	registry *prometheus.Registry

	// Cycles counts check cycles by outcome.
	Cycles *prometheus.CounterVec
	// Changes counts filesystem changes handed to ingestion.
	Changes prometheus.Counter
	// Errors counts cycle and ingestion errors by errs.Kind.
	Errors *prometheus.CounterVec
	// Completions counts completion requests by outcome.
	Completions *prometheus.CounterVec
	// ProjectBuilds counts project checks by project and result.
	ProjectBuilds *prometheus.CounterVec
	// CycleDuration observes the incremental_check_time timer.
	CycleDuration prometheus.Histogram
}

// New registers a fresh set of metrics on its own registry. When
// withRuntime is set the Go and process collectors are registered too.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_cycles_total",
			Help:      "Check cycles by outcome",
		}, []string{"outcome"}),
		Changes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_changes_total",
			Help:      "Filesystem changes received by ingestion",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Structured errors by kind",
		}, []string{"kind"}),
		Completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_requests_total",
			Help:      "Completion requests by outcome",
		}, []string{"outcome"}),
		ProjectBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "project_builds_total",
			Help:      "Project checks by project and result",
		}, []string{"project", "result"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_cycle_duration_seconds",
			Help:      "Duration of check cycles in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
	reg.MustRegister(m.Cycles, m.Changes, m.Errors, m.Completions, m.ProjectBuilds, m.CycleDuration)
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) CycleOutcome(outcome string) {
	m.Cycles.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ChangesIngested(n int) {
	m.Changes.Add(float64(n))
}

// Error counts err under its errs.Kind, or "other" for unstructured errors.
func (m *Metrics) Error(err error) {
	if err == nil {
		return
	}
	kind := "other"
	if e, ok := errs.As(err); ok {
		kind = e.Kind().String()
	}
	m.Errors.WithLabelValues(kind).Inc()
}

func (m *Metrics) Completion(outcome string) {
	m.Completions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ProjectBuild(project string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.ProjectBuilds.WithLabelValues(project, result).Inc()
}

// ObservePerf feeds CycleTimer durations from completed perf events into
// CycleDuration. Register it with trace.PerfLogger.Observe.
func (m *Metrics) ObservePerf(rec trace.PerfRecord) {
	if d, ok := rec.Timers[CycleTimer]; ok {
		m.CycleDuration.Observe(d.Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, log *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return m.serve(ctx, ln, log)
}

func (m *Metrics) serve(ctx context.Context, ln net.Listener, log *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		case <-done:
		}
	}()

	if log != nil {
		log.Info("metrics endpoint listening", "addr", ln.Addr().String())
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
