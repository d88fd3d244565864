package trace

import (
	"sync/atomic"
	"time"
)

// Kind represents the type of trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
)

var kindNames = [...]string{KindSpanBegin: "begin", KindSpanEnd: "end", KindPoint: "point"}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// Scope indicates the granularity of an event. Lower values are coarser.
type Scope uint8

const (
	ScopeSession Scope = iota + 1 // process lifetime: startup, schema build
	ScopeCycle                    // one check cycle or one editor request
	ScopeProject                  // per-project check
	ScopeFile                     // per-file parse
)

var scopeNames = [...]string{ScopeSession: "session", ScopeCycle: "cycle", ScopeProject: "project", ScopeFile: "file"}

func (s Scope) String() string {
	if int(s) < len(scopeNames) && scopeNames[s] != "" {
		return scopeNames[s]
	}
	return "unknown"
}

// Event is one trace record. Project is empty for events that are not tied
// to a single project.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	Project  string
	Name     string
	Detail   string
	Extra    map[string]string
}

type counter struct{ n atomic.Uint64 }

func (c *counter) next() uint64 { return c.n.Add(1) }

var (
	seq     counter
	spanIDs counter
)
