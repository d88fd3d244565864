package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Tracer receives trace events. Implementations must be goroutine-safe.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	Enabled() bool
}

// StorageMode selects where a Recorder keeps events.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1 // write each event as it arrives
	ModeRing                          // keep the newest events, write them on Close
	ModeBoth
)

var modeNames = map[string]StorageMode{"stream": ModeStream, "ring": ModeRing, "both": ModeBoth}

func (m StorageMode) String() string {
	for name, mode := range modeNames {
		if mode == m {
			return name
		}
	}
	return "unknown"
}

// ParseMode converts a --trace-mode value.
func ParseMode(s string) (StorageMode, error) {
	if m, ok := modeNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m, nil
	}
	return ModeStream, fmt.Errorf("invalid storage mode: %q (expected: stream|ring|both)", s)
}

// Config describes a Recorder.
type Config struct {
	Level      Level
	Mode       StorageMode
	Format     Format
	Output     io.Writer // wins over OutputPath
	OutputPath string    // "-" or empty for stderr
	RingSize   int
}

const defaultRingSize = 4096

// New returns Nop for LevelOff and a Recorder otherwise.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	if cfg.Mode == 0 {
		cfg.Mode = ModeStream
	}
	if _, ok := modeNames[cfg.Mode.String()]; !ok {
		return nil, fmt.Errorf("unknown storage mode: %d", cfg.Mode)
	}
	if cfg.RingSize <= 0 {
		cfg.RingSize = defaultRingSize
	}
	if cfg.Format == FormatAuto {
		cfg.Format = formatForPath(cfg.OutputPath)
	}
	w, closer, err := openOutput(cfg)
	if err != nil {
		return nil, err
	}
	r := &Recorder{level: cfg.Level, format: cfg.Format, out: w, closer: closer}
	r.stream = cfg.Mode != ModeRing
	if cfg.Mode != ModeStream {
		r.ring = make([]Event, cfg.RingSize)
	}
	return r, nil
}

func formatForPath(path string) Format {
	switch filepath.Ext(path) {
	case ".ndjson", ".jsonl", ".json":
		return FormatNDJSON
	default:
		return FormatText
	}
}

func openOutput(cfg Config) (io.Writer, io.Closer, error) {
	if cfg.Output != nil {
		closer, _ := cfg.Output.(io.Closer)
		if f, ok := cfg.Output.(*os.File); ok && (f == os.Stderr || f == os.Stdout) {
			closer = nil
		}
		return cfg.Output, closer, nil
	}
	if cfg.OutputPath == "" || cfg.OutputPath == "-" {
		return os.Stderr, nil, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	return f, f, nil
}

// Recorder streams events to a writer, keeps the newest ones in a ring, or
// both. In ring-only mode the ring is written out on Close.
type Recorder struct {
	level  Level
	format Format
	stream bool

	mu     sync.Mutex
	out    io.Writer
	closer io.Closer
	ring   []Event
	next   int
	filled bool
	closed bool
}

func (r *Recorder) Emit(ev *Event) {
	if !r.level.ShouldEmit(ev.Scope) {
		return
	}
	stored := *ev
	if stored.Seq == 0 {
		stored.Seq = seq.next()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if r.stream {
		// Best effort; a trace write never fails a cycle.
		_, _ = r.out.Write(FormatEvent(&stored, r.format))
	}
	if r.ring != nil {
		r.ring[r.next] = stored
		r.next = (r.next + 1) % len(r.ring)
		r.filled = r.filled || r.next == 0
	}
}

// Recent returns the ring contents, oldest first. It is empty in stream
// mode.
func (r *Recorder) Recent() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recentLocked()
}

func (r *Recorder) recentLocked() []Event {
	if !r.filled {
		return append([]Event(nil), r.ring[:r.next]...)
	}
	out := make([]Event, 0, len(r.ring))
	out = append(out, r.ring[r.next:]...)
	return append(out, r.ring[:r.next]...)
}

func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return flushWriter(r.out)
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	var errList []error
	if !r.stream {
		for _, ev := range r.recentLocked() {
			if _, err := r.out.Write(FormatEvent(&ev, r.format)); err != nil {
				errList = append(errList, err)
				break
			}
		}
	}
	errList = append(errList, flushWriter(r.out))
	if r.closer != nil {
		errList = append(errList, r.closer.Close())
	}
	return errors.Join(errList...)
}

func (r *Recorder) Level() Level  { return r.level }
func (r *Recorder) Enabled() bool { return r.level > LevelOff }

func flushWriter(w io.Writer) error {
	if f, ok := w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

type nopTracer struct{}

func (nopTracer) Emit(*Event)   {}
func (nopTracer) Flush() error  { return nil }
func (nopTracer) Close() error  { return nil }
func (nopTracer) Level() Level  { return LevelOff }
func (nopTracer) Enabled() bool { return false }

// Nop discards every event.
var Nop Tracer = nopTracer{}
