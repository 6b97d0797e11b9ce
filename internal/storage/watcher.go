package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events a single save produces.
const DefaultDebounce = 100 * time.Millisecond

// Logger is the logging surface used by storage.
type Logger interface {
	Warn(msg string, keyvals ...any)
}

// Watcher calls onChange after macro files in a directory are created,
// written, renamed or removed.
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   Logger
	onChange func()
	debounce time.Duration

	mu       sync.Mutex
	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

// WatchMacros starts watching dir, creating it when missing.
func WatchMacros(dir string, debounce time.Duration, onChange func(), logger Logger) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create macros directory: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = nopLogger{}
	}

	watcher := &Watcher{
		watcher:  fsw,
		logger:   logger,
		onChange: onChange,
		debounce: debounce,
		closeCh:  make(chan struct{}),
	}
	watcher.closedWg.Add(1)
	go watcher.processLoop()
	return watcher, nil
}

// Close stops the watcher and waits for its goroutine.
func (watcher *Watcher) Close() error {
	watcher.mu.Lock()
	if watcher.closed {
		watcher.mu.Unlock()
		return nil
	}
	watcher.closed = true
	close(watcher.closeCh)
	watcher.mu.Unlock()

	watcher.closedWg.Wait()
	return watcher.watcher.Close()
}

func (watcher *Watcher) processLoop() {
	defer watcher.closedWg.Done()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-watcher.closeCh:
			return

		case event, ok := <-watcher.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watcher.debounce)
			} else {
				timer.Reset(watcher.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if watcher.onChange != nil {
				watcher.onChange()
			}

		case err, ok := <-watcher.watcher.Errors:
			if !ok {
				return
			}
			watcher.logger.Warn("macro watcher error", "err", err)
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if !isMacroFile(filepath.Base(event.Name)) {
		return false
	}
	return event.Op.Has(fsnotify.Create) ||
		event.Op.Has(fsnotify.Write) ||
		event.Op.Has(fsnotify.Remove) ||
		event.Op.Has(fsnotify.Rename)
}

type nopLogger struct{}

func (nopLogger) Warn(string, ...any) {}
