package indexer

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchEventKind classifies a filesystem event for the updater.
type WatchEventKind int

const (
	// EventModified covers creation and modification; both are handled as
	// remove-then-reinsert.
	EventModified WatchEventKind = iota
	// EventDeleted is a removal of an indexed source file.
	EventDeleted
	// EventConfigChanged is a change to a resolver-relevant config file and
	// triggers a full rebuild.
	EventConfigChanged
)

// WatchEvent is one classified, debounced filesystem event.
type WatchEvent struct {
	Kind WatchEventKind
	Path string
}

// configFiles are the config files whose changes invalidate resolver state.
var configFiles = map[string]bool{
	"tsconfig.json":       true,
	"package.json":        true,
	"pnpm-workspace.yaml": true,
	"Cargo.toml":          true,
}

// Watcher converts raw fsnotify events into a bounded stream of classified
// WatchEvents. Events for the same path within the debounce window collapse
// to a single event.
type Watcher struct {
	root    string
	ignorer *Ignorer
	logger  *slog.Logger

	debounce time.Duration
	events   chan WatchEvent
	fsw      *fsnotify.Watcher

	mu     sync.Mutex
	timers map[string]*time.Timer

	stop    chan struct{}
	stopped bool
}

// NewWatcher creates a watcher for root. debounceMs defaults to 75 when
// zero per the config default.
func NewWatcher(root string, ig *Ignorer, debounceMs int, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if debounceMs <= 0 {
		debounceMs = 75
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &Watcher{
		root:     root,
		ignorer:  ig,
		logger:   logger,
		debounce: time.Duration(debounceMs) * time.Millisecond,
		events:   make(chan WatchEvent, 256),
		fsw:      fsw,
		timers:   make(map[string]*time.Timer),
		stop:     make(chan struct{}),
	}, nil
}

// Events is the outbound bounded event stream.
func (w *Watcher) Events() <-chan WatchEvent {
	return w.events
}

// Start registers watches for every non-ignored directory under root and
// launches the event loop.
func (w *Watcher) Start() error {
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && (w.ignorer.ExcludedDir(d.Name()) || w.ignorer.Ignored(path)) {
			return fs.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("cannot watch directory", "path", path, "error", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("register watches: %w", err)
	}

	go w.loop()
	w.logger.Info("watcher started", "root", w.root, "debounce", w.debounce)
	return nil
}

// Stop shuts the watcher down. Idempotent.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stop)
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = make(map[string]*time.Timer)
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.stop:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Transient watcher errors are logged; the watcher continues.
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	path := ev.Name

	if ev.Op == fsnotify.Chmod {
		return
	}

	// New directories need their own watches.
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.ignorer.ExcludedDir(filepath.Base(path)) && !w.ignorer.Ignored(path) {
				if err := w.fsw.Add(path); err != nil {
					w.logger.Warn("cannot watch new directory", "path", path, "error", err)
				}
			}
			return
		}
	}

	if w.ignorer.ExcludedDir(filepath.Base(filepath.Dir(path))) || w.ignorer.Ignored(path) {
		return
	}

	if configFiles[filepath.Base(path)] {
		w.schedule(path, WatchEvent{Kind: EventConfigChanged, Path: path})
		return
	}

	if !isSourceLang(path) {
		return
	}

	// Create vs modify is not distinguished; existence at fire time decides
	// modified vs deleted.
	w.schedule(path, WatchEvent{Kind: EventModified, Path: path})
}

// schedule arms (or re-arms) the debounce timer for path. At fire time the
// event is re-classified against the filesystem, so a write followed by a
// quick delete emits a single Deleted event.
func (w *Watcher) schedule(path string, ev WatchEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		stopped := w.stopped
		w.mu.Unlock()
		if stopped {
			return
		}

		final := ev
		if ev.Kind == EventModified {
			if _, err := os.Stat(path); err != nil {
				final.Kind = EventDeleted
			}
		}
		select {
		case w.events <- final:
		case <-w.stop:
		}
	})
}
