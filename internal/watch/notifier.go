// Package watch turns filesystem activity under the agent log roots into
// change notifications for subscribers.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/theirongolddev/agentinsights/internal/model"
	"github.com/theirongolddev/agentinsights/internal/source"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 100

// Event reports that a log file was created or written.
type Event struct {
	Agent model.AgentKind `json:"agent"`
	Path  string          `json:"file_path"`
	At    time.Time       `json:"at"`
}

type root struct {
	agent model.AgentKind
	dir   string
}

// Notifier watches agent roots and multicasts Events. Delivery is
// at-most-once per subscriber: a full subscriber queue drops the event.
type Notifier struct {
	roots  []root
	exts   map[string]bool
	buffer int
	log    *slog.Logger

	mu      sync.Mutex
	nextID  int
	subs    map[int]chan Event
	watched []root
	closed  bool

	ready   chan struct{}
	started bool
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithBuffer sets the per-subscriber queue length.
func WithBuffer(n int) Option {
	return func(nt *Notifier) {
		if n > 0 {
			nt.buffer = n
		}
	}
}

// WithLogger sets the logger for watch diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(nt *Notifier) {
		if l != nil {
			nt.log = l
		}
	}
}

// New returns a notifier for the given sources. Watching starts with Run.
func New(srcs []source.Source, opts ...Option) *Notifier {
	n := &Notifier{
		exts:   make(map[string]bool),
		buffer: DefaultBuffer,
		log:    slog.Default(),
		subs:   make(map[int]chan Event),
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	for _, s := range srcs {
		n.roots = append(n.roots, root{agent: s.Kind, dir: source.ResolveRoot(s.Root)})
		ext := s.Ext
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		n.exts[ext] = true
	}
	// Longest root first so nested roots resolve to the most specific agent.
	sort.SliceStable(n.roots, func(i, j int) bool {
		return len(n.roots[i].dir) > len(n.roots[j].dir)
	})
	return n
}

// Subscribe registers a new subscriber. The returned cancel func removes it
// and closes the channel; it is safe to call more than once. Channels are
// also closed when Run returns.
func (n *Notifier) Subscribe() (<-chan Event, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan Event, n.buffer)
	if n.closed {
		close(ch)
		return ch, func() {}
	}
	n.nextID++
	id := n.nextID
	n.subs[id] = ch

	return ch, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if c, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(c)
		}
	}
}

// Subscribers returns the current subscriber count.
func (n *Notifier) Subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// Ready is closed once Run has installed its watches.
func (n *Notifier) Ready() <-chan struct{} { return n.ready }

// Watched returns the agent roots that are being watched, keyed by agent.
func (n *Notifier) Watched() map[model.AgentKind]string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[model.AgentKind]string, len(n.watched))
	for _, r := range n.watched {
		out[r.agent] = r.dir
	}
	return out
}

// Run watches every existing root until ctx is done. Missing roots are
// skipped; a root that cannot be watched is logged and the rest continue.
// A Notifier runs once: later calls return ErrAlreadyRun.
func (n *Notifier) Run(ctx context.Context) error {
	n.mu.Lock()
	if n.started {
		n.mu.Unlock()
		return ErrAlreadyRun
	}
	n.started = true
	n.mu.Unlock()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		close(n.ready)
		n.shutdown()
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = w.Close() }()
	defer n.shutdown()

	for _, r := range n.roots {
		info, err := os.Stat(r.dir)
		if err != nil || !info.IsDir() {
			n.log.Debug("watch root missing, skipping", "agent", r.agent.String(), "root", r.dir)
			continue
		}
		if err := n.addTree(w, r.dir, nil); err != nil {
			n.log.Warn("watch failed", "agent", r.agent.String(), "root", r.dir, "error", err)
			continue
		}
		n.mu.Lock()
		n.watched = append(n.watched, r)
		n.mu.Unlock()
		n.log.Info("watching", "agent", r.agent.String(), "root", r.dir)
	}
	close(n.ready)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			n.handle(w, ev)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			n.log.Warn("watch error", "error", err)
		}
	}
}

func (n *Notifier) handle(w *fsnotify.Watcher, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Lstat(ev.Name); err == nil && info.IsDir() {
			// Files may land in a new directory before its watch exists.
			var found []string
			if err := n.addTree(w, ev.Name, &found); err != nil {
				n.log.Debug("watch new dir failed", "path", ev.Name, "error", err)
			}
			for _, p := range found {
				n.notify(p)
			}
			return
		}
	}
	n.notify(ev.Name)
}

func (n *Notifier) notify(path string) {
	if !n.exts[filepath.Ext(path)] {
		return
	}
	agent, ok := n.Owner(path)
	if !ok {
		return
	}
	n.Publish(Event{Agent: agent, Path: path, At: time.Now()})
}

// Owner returns the agent whose root contains path.
func (n *Notifier) Owner(path string) (model.AgentKind, bool) {
	clean := filepath.Clean(path)
	for _, r := range n.roots {
		if clean == r.dir || strings.HasPrefix(clean, r.dir+string(filepath.Separator)) {
			return r.agent, true
		}
	}
	return model.AgentUnknown, false
}

// Publish delivers ev to every subscriber without blocking.
func (n *Notifier) Publish(ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// addTree watches dir and every directory below it. Regular files that match
// the accepted extensions are appended to found when it is non-nil.
func (n *Notifier) addTree(w *fsnotify.Watcher, dir string, found *[]string) error {
	var firstErr error
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil //nolint:nilerr // skip unreadable subtrees
		}
		if d.IsDir() {
			if err := w.Add(path); err != nil {
				if path == dir {
					return err
				}
				if firstErr == nil {
					firstErr = err
				}
			}
			return nil
		}
		if found != nil && d.Type().IsRegular() && n.exts[filepath.Ext(path)] {
			*found = append(*found, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if firstErr != nil {
		n.log.Debug("some directories not watched", "root", dir, "error", firstErr)
	}
	return nil
}

func (n *Notifier) shutdown() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	for id, ch := range n.subs {
		delete(n.subs, id)
		close(ch)
	}
}

// ErrClosed is returned by Wait when the notifier stopped.
var ErrClosed = errors.New("notifier closed")

// ErrAlreadyRun is returned by Run on a notifier that has already run.
var ErrAlreadyRun = errors.New("notifier already run")

// Wait blocks until an event arrives on ch, ctx is done, or ch is closed.
func Wait(ctx context.Context, ch <-chan Event) (Event, error) {
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case ev, ok := <-ch:
		if !ok {
			return Event{}, ErrClosed
		}
		return ev, nil
	}
}
