package trace

import "time"

// Span tracks one timed operation. A nil or disabled span is a no-op but
// still measures its duration.
type Span struct {
	tracer  Tracer
	ev      Event
	started time.Time
}

// Begin starts a span and emits its begin event. parent is 0 for roots.
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	return begin(t, Event{Scope: scope, ParentID: parent, Name: name})
}

// BeginProject starts a project-scoped span.
func BeginProject(t Tracer, project, name string, parent uint64) *Span {
	return begin(t, Event{Scope: ScopeProject, ParentID: parent, Project: project, Name: name})
}

func begin(t Tracer, ev Event) *Span {
	now := time.Now()
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(ev.Scope) {
		return &Span{tracer: Nop, started: now, ev: ev}
	}
	ev.SpanID = spanIDs.next()
	s := &Span{tracer: t, started: now, ev: ev}
	s.emit(KindSpanBegin, now, "")
	return s
}

func (s *Span) emit(kind Kind, at time.Time, detail string) {
	ev := s.ev
	ev.Kind = kind
	ev.Time = at
	ev.Seq = seq.next()
	ev.Detail = detail
	if kind == KindSpanBegin {
		ev.Extra = nil
	}
	s.tracer.Emit(&ev)
}

// End emits the end event and returns the elapsed time.
func (s *Span) End(detail string) time.Duration {
	if s == nil {
		return 0
	}
	dur := time.Since(s.started)
	if s.tracer.Enabled() {
		s.emit(KindSpanEnd, time.Now(), detail)
	}
	return dur
}

// WithExtra adds a key-value pair to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || !s.tracer.Enabled() {
		return s
	}
	if s.ev.Extra == nil {
		s.ev.Extra = make(map[string]string)
	}
	s.ev.Extra[key] = value
	return s
}

func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.ev.SpanID
}
