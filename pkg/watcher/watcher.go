package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/topobench/pkg/logging"
)

// ChangeType represents the kind of run input that changed
type ChangeType int

const (
	ChangeTypeConfig ChangeType = iota
	ChangeTypeGraphFile
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeConfig:
		return "config"
	case ChangeTypeGraphFile:
		return "graph file"
	default:
		return fmt.Sprintf("ChangeType(%d)", int(t))
	}
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// flushDelay batches the burst of events a single save produces
const flushDelay = 100 * time.Millisecond

// FileWatcher watches individual run input files. Editors often replace a
// file instead of writing it, so the parent directories are watched and
// events are filtered by file name.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]ChangeType // absolute path -> type
	events  chan ChangeEvent
	done    chan struct{}
	once    sync.Once
}

// NewFileWatcher creates a watcher for files. Files that do not exist yet
// are still watched through their directory.
func NewFileWatcher(files map[string]ChangeType) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher: watcher,
		files:   make(map[string]ChangeType, len(files)),
		events:  make(chan ChangeEvent, 100),
		done:    make(chan struct{}),
	}
	for path, typ := range files {
		abs, err := filepath.Abs(path)
		if err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		fw.files[abs] = typ
	}
	return fw, nil
}

// Start begins watching for file changes
func (fw *FileWatcher) Start(ctx context.Context) error {
	dirs := make(map[string]bool)
	for path := range fw.files {
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		if err := fw.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	logging.Info("started watching run inputs", "files", len(fw.files), "directories", len(dirs))

	// Process events
	go fw.processEvents(ctx)

	return nil
}

// processEvents filters file system events down to the watched files and
// batches them by type
func (fw *FileWatcher) processEvents(ctx context.Context) {
	pending := make(map[ChangeType][]string)

	flushTimer := time.NewTimer(flushDelay)
	flushTimer.Stop()

	flush := func() {
		for _, typ := range []ChangeType{ChangeTypeConfig, ChangeTypeGraphFile} {
			if paths := pending[typ]; len(paths) > 0 {
				fw.events <- ChangeEvent{Type: typ, Paths: paths, Timestamp: time.Now()}
			}
		}
		pending = make(map[ChangeType][]string)
	}

	defer func() {
		_ = fw.watcher.Close()
		close(fw.events)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-fw.done:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			typ, watched := fw.files[filepath.Clean(event.Name)]
			if !watched {
				continue
			}
			logging.Debug("run input changed", "file", event.Name, "op", event.Op.String())
			pending[typ] = append(pending[typ], event.Name)
			flushTimer.Reset(flushDelay)

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events. It is closed when the
// watcher stops.
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop stops the file watcher
func (fw *FileWatcher) Stop() {
	fw.once.Do(func() { close(fw.done) })
}
