// Package watch monitors a drop folder for images and containers.
package watch

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/roboco-io/imgframe/internal/container"
)

// DefaultDebounce is the quiet period before a file is reported.
const DefaultDebounce = 500 * time.Millisecond

// Event reports a file that settled in the watched folder.
type Event struct {
	Path string
	Kind container.Kind
}

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration // zero selects DefaultDebounce
	Logger   *slog.Logger  // nil discards
}

// Watcher monitors one directory for created or written files that imgframe
// can ingest.
type Watcher struct {
	dir      string
	debounce time.Duration
	logger   *slog.Logger
	watcher  *fsnotify.Watcher

	events chan Event
	fired  chan string
	quit   chan struct{}
	done   chan struct{}

	mu       sync.Mutex
	started  bool
	stopOnce sync.Once
}

// New creates a watcher for dir. Call Start to begin monitoring.
func New(dir string, opts Options) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Watcher{
		dir:      dir,
		debounce: debounce,
		logger:   logger,
		watcher:  fsWatcher,
		events:   make(chan Event, 100),
		fired:    make(chan string),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start begins monitoring the directory.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return fmt.Errorf("watcher already started")
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch folder %s: %w", w.dir, err)
	}
	w.started = true
	w.logger.Info("watching folder", "dir", w.dir, "debounce", w.debounce)

	go w.processEvents()
	return nil
}

// Events returns the event channel. It is closed by Stop.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop stops the watcher and closes the event channel.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.quit)
		err = w.watcher.Close()

		w.mu.Lock()
		started := w.started
		w.mu.Unlock()
		if started {
			<-w.done
		} else {
			close(w.events)
		}
	})
	return err
}

// processEvents owns the debounce timers. A path is reported once no
// further event arrived for it during the debounce period.
func (w *Watcher) processEvents() {
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
		close(w.events)
		close(w.done)
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}

			name := event.Name
			if timer, exists := timers[name]; exists {
				timer.Stop()
			}
			timers[name] = time.AfterFunc(w.debounce, func() {
				select {
				case w.fired <- name:
				case <-w.quit:
				}
			})

		case name := <-w.fired:
			delete(timers, name)
			ev := Event{Path: name, Kind: container.DetectName(name)}
			w.logger.Debug("file settled", "path", name, "kind", ev.Kind.String())
			select {
			case w.events <- ev:
			case <-w.quit:
				return
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)

		case <-w.quit:
			return
		}
	}
}

// relevant reports whether an fsnotify event names a file worth ingesting.
func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	base := filepath.Base(event.Name)
	// Skip temp files
	if strings.HasPrefix(base, ".") {
		return false
	}
	return container.DetectName(base) != container.KindUnknown
}
