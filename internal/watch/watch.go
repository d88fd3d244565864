// Package watch turns filesystem notifications under the project roots into
// debounced batches of changes.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"graft/internal/errs"
)

type Op uint8

const (
	Create Op = iota
	Write
	Remove
	Rename
)

func (op Op) String() string {
	switch op {
	case Create:
		return "create"
	case Write:
		return "write"
	case Remove:
		return "remove"
	case Rename:
		return "rename"
	default:
		return "unknown"
	}
}

type Change struct {
	Path string
	Op   Op
	Time time.Time
}

// Batch is one debounced delivery. A batch with Err set carries no usable
// changes.
type Batch struct {
	Changes []Change
	Err     error
}

// Paths returns the changed paths in delivery order.
func (b Batch) Paths() []string {
	out := make([]string, len(b.Changes))
	for i, c := range b.Changes {
		out[i] = c.Path
	}
	return out
}

type Options struct {
	Debounce time.Duration
	Ignore   []string
	Buffer   int
	Logger   *slog.Logger
	// InitialScan makes Run deliver every existing file as a Create change
	// before any notification.
	InitialScan bool
}

func DefaultOptions() Options {
	return Options{
		Debounce: 100 * time.Millisecond,
		Ignore:   []string{".git", "node_modules", ".idea", "*.swp", "*.tmp", "*~"},
		Buffer:   1024,
	}
}

var errWatcherClosed = errors.New("filesystem watcher closed")

// Subscription delivers batches for a set of roots until Run returns.
type Subscription struct {
	watcher *fsnotify.Watcher
	roots   []string
	opts    Options
	log     *slog.Logger

	raw       chan Change
	out       chan Batch
	closeOnce sync.Once
}

// Subscribe starts watching every directory under roots.
func Subscribe(roots []string, opts Options) (*Subscription, error) {
	def := DefaultOptions()
	if opts.Debounce <= 0 {
		opts.Debounce = def.Debounce
	}
	if opts.Buffer <= 0 {
		opts.Buffer = def.Buffer
	}
	if opts.Ignore == nil {
		opts.Ignore = def.Ignore
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &errs.WatcherError{Err: err}
	}
	s := &Subscription{
		watcher: w,
		roots:   roots,
		opts:    opts,
		log:     log,
		raw:     make(chan Change, opts.Buffer),
		out:     make(chan Batch, 16),
	}
	for _, root := range roots {
		if err := s.addRecursive(root); err != nil {
			_ = w.Close()
			return nil, &errs.WatcherError{Err: err}
		}
	}
	return s, nil
}

// Changes returns the batch channel. It is closed when Run returns.
func (s *Subscription) Changes() <-chan Batch {
	return s.out
}

// Run pumps notifications until ctx is done or the watcher fails. It returns
// nil on cancellation.
func (s *Subscription) Run(ctx context.Context) error {
	defer close(s.out)
	if s.opts.InitialScan {
		batch := s.scan()
		select {
		case s.out <- batch:
		case <-ctx.Done():
			s.Close()
			return nil
		}
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.pump(gctx) })
	g.Go(func() error { return s.debounce(gctx) })
	err := g.Wait()
	s.Close()
	if err == nil || (ctx.Err() != nil && errors.Is(err, context.Canceled)) {
		return nil
	}
	return &errs.WatcherError{Err: err}
}

// Close stops the underlying watcher.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() { _ = s.watcher.Close() })
}

func (s *Subscription) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && s.ignored(path) {
			return filepath.SkipDir
		}
		return s.watcher.Add(path)
	})
}

// scan lists the files under the roots. A walk failure becomes the batch
// error.
func (s *Subscription) scan() Batch {
	var changes []Change
	now := time.Now()
	for _, root := range s.roots {
		files, err := s.listFiles(root, now)
		if err != nil {
			return Batch{Err: &errs.WatcherError{Err: err}}
		}
		changes = append(changes, files...)
	}
	return Batch{Changes: Coalesce(changes)}
}

// listFiles returns a Create change for every file below dir that is not
// ignored.
func (s *Subscription) listFiles(dir string, now time.Time) ([]Change, error) {
	var changes []Change
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && s.ignored(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			changes = append(changes, Change{Path: path, Op: Create, Time: now})
		}
		return nil
	})
	return changes, err
}

func (s *Subscription) ignored(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range s.opts.Ignore {
		if base == pattern {
			return true
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		if !strings.ContainsAny(pattern, "*?[") && strings.Contains(path, string(filepath.Separator)+pattern+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (s *Subscription) pump(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return errWatcherClosed
			}
			if s.ignored(ev.Name) {
				continue
			}
			changes := []Change{{Path: ev.Name, Op: convertOp(ev.Op), Time: time.Now()}}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					changes = append(changes, s.enterDir(ev.Name)...)
				}
			}
			for _, c := range changes {
				select {
				case s.raw <- c:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return errWatcherClosed
			}
			s.log.Warn("watch: notification error", "error", err)
			select {
			case s.out <- Batch{Err: &errs.WatcherError{Err: err}}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// enterDir watches a directory that appeared under a root and returns its
// files, which produce no events of their own.
func (s *Subscription) enterDir(dir string) []Change {
	if err := s.addRecursive(dir); err != nil {
		s.log.Warn("watch: failed to add directory", "path", dir, "error", err)
		return nil
	}
	files, err := s.listFiles(dir, time.Now())
	if err != nil {
		s.log.Warn("watch: failed to list directory", "path", dir, "error", err)
	}
	return files
}

func (s *Subscription) debounce(ctx context.Context) error {
	var (
		pending []Change
		timer   *time.Timer
		timerC  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case c := <-s.raw:
			pending = append(pending, c)
			if timer == nil {
				timer = time.NewTimer(s.opts.Debounce)
				timerC = timer.C
			} else {
				timer.Reset(s.opts.Debounce)
			}
		case <-timerC:
			timer, timerC = nil, nil
			batch := Batch{Changes: Coalesce(pending)}
			pending = nil
			select {
			case s.out <- batch:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Coalesce keeps the last change per path, in first-seen order.
func Coalesce(changes []Change) []Change {
	seen := make(map[string]int, len(changes))
	out := make([]Change, 0, len(changes))
	for _, c := range changes {
		c.Path = filepath.Clean(c.Path)
		if i, ok := seen[c.Path]; ok {
			out[i] = c
			continue
		}
		seen[c.Path] = len(out)
		out = append(out, c)
	}
	return out
}

func convertOp(op fsnotify.Op) Op {
	switch {
	case op.Has(fsnotify.Remove):
		return Remove
	case op.Has(fsnotify.Rename):
		return Rename
	case op.Has(fsnotify.Create):
		return Create
	default:
		return Write
	}
}
