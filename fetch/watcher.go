package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// eventChannelBuffer is the size of the change event channel.
	eventChannelBuffer = 100

	// DefaultDebounce is the delay used when none is configured.
	DefaultDebounce = 500 * time.Millisecond
)

// Operation indicates the type of file change.
type Operation string

// OpCreate, OpModify, and OpDelete enumerate the file change types.
const (
	OpCreate Operation = "create"
	OpModify Operation = "modify"
	OpDelete Operation = "delete"
)

// Change is a debounced change of a watched file.
type Change struct {
	Path      string
	Operation Operation
}

// Watcher watches local locations and emits a Change when the content of a
// matching file changes. Locations may be glob patterns.
type Watcher struct {
	*Matcher
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	hashMu sync.RWMutex
	hashes map[string]string

	events chan Change

	droppedEvents atomic.Int64
}

// NewWatcher creates a watcher for the local locations among locations.
// Remote locations are ignored.
func NewWatcher(locations []string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		Matcher:  NewMatcher(locations, logger),
		debounce: debounce,
		watcher:  fsw,
		logger:   logger,
		pending:  make(map[string]fsnotify.Op),
		hashes:   make(map[string]string),
		events:   make(chan Change, eventChannelBuffer),
	}, nil
}

// Events returns the channel of changes.
func (w *Watcher) Events() <-chan Change {
	return w.events
}

// Dropped returns the number of changes dropped because the channel was full.
func (w *Watcher) Dropped() int64 {
	return w.droppedEvents.Load()
}

// Start adds watches for the directories holding the watched files and
// begins processing events.
func (w *Watcher) Start(ctx context.Context) error {
	for _, pattern := range w.patterns {
		if ContainsGlob(pattern) {
			w.addWatchesRecursive(GlobBase(pattern))
			continue
		}
		w.addWatch(filepath.Dir(pattern))
		w.recordHash(pattern)
	}

	go w.processEvents(ctx)

	w.logger.Info("Source watcher started",
		"patterns", w.patterns,
		"debounce", w.debounce)
	return nil
}

// Stop stops the watcher. The events channel is closed by processEvents
// when it exits.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) addWatch(dir string) {
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Warn("Failed to watch directory", "path", dir, "error", err)
		return
	}
	w.logger.Debug("Watching directory", "path", dir)
}

func (w *Watcher) addWatchesRecursive(root string) {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			if w.Matches(path) {
				w.recordHash(path)
			}
			return nil
		}
		base := filepath.Base(path)
		if strings.HasPrefix(base, ".") && path != root {
			return filepath.SkipDir
		}
		w.addWatch(path)
		return nil
	})
}

func (w *Watcher) recordHash(path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		return
	}
	w.hashMu.Lock()
	w.hashes[path] = contentHash(content)
	w.hashMu.Unlock()
}

// processEvents handles fsnotify events with debouncing.
func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.addWatchesRecursive(path)
			return
		}
	}
	if !w.Matches(path) {
		return
	}

	w.pendingMu.Lock()
	w.pending[path] |= event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("Source change detected", "path", path, "op", event.Op.String())
}

// flushPending emits the accumulated changes whose content really changed.
func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	for path, op := range toProcess {
		select {
		case <-ctx.Done():
			return
		default:
		}

		content, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) || op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
				w.hashMu.Lock()
				delete(w.hashes, path)
				w.hashMu.Unlock()
				w.sendEvent(Change{Path: path, Operation: OpDelete})
				continue
			}
			w.logger.Warn("Failed to read file for hash check", "path", path, "error", err)
			continue
		}

		newHash := contentHash(content)
		w.hashMu.Lock()
		oldHash, hadHash := w.hashes[path]
		w.hashes[path] = newHash
		w.hashMu.Unlock()

		if hadHash && oldHash == newHash {
			continue
		}

		operation := OpModify
		if !hadHash {
			operation = OpCreate
		}
		w.sendEvent(Change{Path: path, Operation: operation})
	}
}

func (w *Watcher) sendEvent(change Change) {
	select {
	case w.events <- change:
		w.logger.Debug("Sent source change", "path", change.Path, "op", change.Operation)
	default:
		w.droppedEvents.Add(1)
		w.logger.Warn("Source change dropped, channel full", "path", change.Path)
	}
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
