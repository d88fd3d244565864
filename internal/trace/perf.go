package trace

import (
	"context"
	"log/slog"
	"maps"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PerfEvent is an open perf event. Timers with the same name accumulate.
type PerfEvent interface {
	ID() uuid.UUID
	Name() string
	Start(timer string) Timer
	Stop(Timer)
	Number(name string, n int)
	Label(name, value string)
}

// Timer is a running timer returned by PerfEvent.Start.
type Timer struct {
	name    string
	started time.Time
	span    *Span
}

// Time runs fn under a timer of ev.
func Time[T any](ev PerfEvent, timer string, fn func() (T, error)) (T, error) {
	t := ev.Start(timer)
	defer ev.Stop(t)
	return fn()
}

// PerfRecord is a completed perf event.
type PerfRecord struct {
	ID       uuid.UUID
	Name     string
	Started  time.Time
	Duration time.Duration
	Timers   map[string]time.Duration
	Numbers  map[string]int
	Labels   map[string]string
}

// PerfLogger creates perf events and queues them on completion until Flush.
type PerfLogger struct {
	tracer Tracer
	log    *slog.Logger

	mu        sync.Mutex
	queue     []PerfRecord
	observers []func(PerfRecord)
}

// NewPerfLogger returns a logger writing to t and log. Either may be nil.
func NewPerfLogger(t Tracer, log *slog.Logger) *PerfLogger {
	if t == nil {
		t = Nop
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &PerfLogger{tracer: t, log: log}
}

// Observe registers fn to run for every completed event, before it is queued.
func (l *PerfLogger) Observe(fn func(PerfRecord)) {
	l.mu.Lock()
	l.observers = append(l.observers, fn)
	l.mu.Unlock()
}

func (l *PerfLogger) CreateEvent(name string) PerfEvent {
	return &perfEvent{
		id:      uuid.New(),
		name:    name,
		tracer:  l.tracer,
		span:    Begin(l.tracer, ScopeCycle, name, 0),
		timers:  make(map[string]time.Duration),
		numbers: make(map[string]int),
		labels:  make(map[string]string),
	}
}

// CompleteEvent closes ev and queues its record. Events from another logger
// are ignored.
func (l *PerfLogger) CompleteEvent(ev PerfEvent) {
	pe, ok := ev.(*perfEvent)
	if !ok {
		return
	}
	rec := pe.complete()
	l.mu.Lock()
	observers := l.observers
	l.queue = append(l.queue, rec)
	l.mu.Unlock()
	for _, fn := range observers {
		fn(rec)
	}
}

// Pending returns the number of completed events not yet flushed.
func (l *PerfLogger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Flush writes queued records to the log and the tracer and empties the
// queue.
func (l *PerfLogger) Flush() error {
	l.mu.Lock()
	queue := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, rec := range queue {
		attrs := []slog.Attr{
			slog.String("event_id", rec.ID.String()),
			slog.Duration("duration", rec.Duration),
		}
		extra := map[string]string{"event_id": rec.ID.String()}
		for name, d := range rec.Timers {
			attrs = append(attrs, slog.Duration(name, d))
			extra[name] = d.String()
		}
		for name, n := range rec.Numbers {
			attrs = append(attrs, slog.Int(name, n))
			extra[name] = strconv.Itoa(n)
		}
		for name, v := range rec.Labels {
			attrs = append(attrs, slog.String(name, v))
			extra[name] = v
		}
		l.log.LogAttrs(context.Background(), slog.LevelDebug, "perf "+rec.Name, attrs...)
		if l.tracer.Enabled() {
			l.tracer.Emit(&Event{
				Time:    rec.Started.Add(rec.Duration),
				Kind:    KindPoint,
				Scope:   ScopeCycle,
				Project: rec.Labels["project"],
				Name:    rec.Name,
				Detail:  rec.Duration.String(),
				Extra:   extra,
			})
		}
	}
	return l.tracer.Flush()
}

type perfEvent struct {
	id     uuid.UUID
	name   string
	tracer Tracer
	span   *Span

	mu      sync.Mutex
	timers  map[string]time.Duration
	numbers map[string]int
	labels  map[string]string
}

func (e *perfEvent) ID() uuid.UUID { return e.id }
func (e *perfEvent) Name() string  { return e.name }

func (e *perfEvent) Start(timer string) Timer {
	return Timer{
		name:    timer,
		started: time.Now(),
		span:    Begin(e.tracer, ScopeCycle, timer, e.span.ID()),
	}
}

func (e *perfEvent) Stop(t Timer) {
	if t.name == "" {
		return
	}
	d := t.span.End("")
	if t.span == nil {
		d = time.Since(t.started)
	}
	e.mu.Lock()
	e.timers[t.name] += d
	e.mu.Unlock()
}

func (e *perfEvent) Number(name string, n int) {
	e.mu.Lock()
	e.numbers[name] = n
	e.mu.Unlock()
}

func (e *perfEvent) Label(name, value string) {
	e.mu.Lock()
	e.labels[name] = value
	e.mu.Unlock()
}

func (e *perfEvent) complete() PerfRecord {
	dur := e.span.End("")
	e.mu.Lock()
	defer e.mu.Unlock()
	return PerfRecord{
		ID:       e.id,
		Name:     e.name,
		Started:  e.span.started,
		Duration: dur,
		Timers:   maps.Clone(e.timers),
		Numbers:  maps.Clone(e.numbers),
		Labels:   maps.Clone(e.labels),
	}
}
